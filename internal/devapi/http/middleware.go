package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/leedontbeshy/unimerch-client/internal/config"
	"github.com/leedontbeshy/unimerch-client/pkg/logger"
)

type ctxKey int

const (
	principalKey ctxKey = iota
	requestIDKey
)

// AuthMiddleware resolves the bearer token against the token table and
// stores the principal on the request context.
func AuthMiddleware(tokens config.TokenTable) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				respondError(w, http.StatusUnauthorized, "Authentication required")
				return
			}
			who, ok := tokens[strings.TrimSpace(token)]
			if !ok {
				respondError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}
			ctx := context.WithValue(r.Context(), principalKey, who)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestIDMiddleware echoes the caller's X-Request-ID or assigns one.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// LoggerMiddleware puts a request-scoped logger on the context and logs
// each completed request.
func LoggerMiddleware(base *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			l := logger.WithTrace(r.Context(), base).With(zap.String("request_id", getRequestID(r.Context())))
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r.WithContext(logger.IntoContext(r.Context(), l)))

			l.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)))
		})
	}
}

func principalFrom(ctx context.Context) (config.Principal, bool) {
	who, ok := ctx.Value(principalKey).(config.Principal)
	return who, ok
}

func getRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(requestIDKey).(string); ok {
		return requestID
	}
	return ""
}
