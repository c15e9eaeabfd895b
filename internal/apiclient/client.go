// Package apiclient is the HTTP transport for the storefront API: bearer
// auth, the {success, message, data} envelope, error classification and
// a circuit breaker.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/leedontbeshy/unimerch-client/pkg/circuitbreaker"
	"github.com/leedontbeshy/unimerch-client/pkg/logger"
)

const (
	DefaultTimeout = 10 * time.Second

	headerRequestID      = "X-Request-ID"
	headerIdempotencyKey = "Idempotency-Key"

	maxBodyBytes = 4 << 20
)

type envelope struct {
	Success *bool           `json:"success"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
}

type response struct {
	status int
	body   []byte
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenStore
	breaker    *circuitbreaker.Breaker[*response]
	settings   circuitbreaker.Settings
	logger     *zap.Logger

	onUnauthorized func()
	mu             sync.Mutex
	loggedOut      string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithTokenStore(s TokenStore) Option {
	return func(c *Client) { c.tokens = s }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithBreaker replaces the default breaker settings.
func WithBreaker(s circuitbreaker.Settings) Option {
	return func(c *Client) { c.settings = s }
}

// OnUnauthorized registers the logout hook. It runs at most once per token
// after the token store has been cleared.
func OnUnauthorized(fn func()) Option {
	return func(c *Client) { c.onUnauthorized = fn }
}

func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		tokens:   NewMemoryTokenStore(""),
		logger:   zap.NewNop(),
		settings: circuitbreaker.DefaultSettings("storefront-api"),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.settings.IsFailure = isBreakerFailure
	c.breaker = circuitbreaker.New[*response](c.settings, c.logger)
	return c
}

// isBreakerFailure counts 5xx and transport failures. Client errors and
// caller cancellation leave the breaker alone.
func isBreakerFailure(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 500
	}
	return !errors.Is(err, context.Canceled)
}

// SetToken stores a fresh token and re-arms the logout hook.
func (c *Client) SetToken(ctx context.Context, token string) error {
	c.mu.Lock()
	c.loggedOut = ""
	c.mu.Unlock()
	return c.tokens.SetToken(ctx, token)
}

func (c *Client) Tokens() TokenStore {
	return c.tokens
}

type requestOptions struct {
	query          url.Values
	idempotencyKey string
}

type RequestOption func(*requestOptions)

func WithQuery(q url.Values) RequestOption {
	return func(o *requestOptions) { o.query = q }
}

func WithIdempotencyKey(key string) RequestOption {
	return func(o *requestOptions) { o.idempotencyKey = key }
}

// Do sends a JSON request and decodes the envelope's data into out.
// out is left untouched when data is absent or null.
func (c *Client) Do(ctx context.Context, method, path string, body, out any, opts ...RequestOption) error {
	var ro requestOptions
	for _, opt := range opts {
		opt(&ro)
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("read token: %w", err)
	}

	var payload []byte
	if body != nil {
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	requestID := uuid.NewString()
	log := logger.WithTrace(ctx, c.logger).With(
		zap.String("method", method),
		zap.String("path", path),
		zap.String("request_id", requestID))

	start := time.Now()
	resp, err := c.breaker.Execute(func() (*response, error) {
		return c.send(ctx, method, path, payload, token, requestID, ro)
	})
	if err != nil {
		if errors.Is(err, circuitbreaker.ErrOpen) {
			log.Warn("request rejected by open breaker")
			return fmt.Errorf("%s %s: %w: %w", method, path, ErrUnavailable, err)
		}
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			log.Info("api error", zap.Int("status", apiErr.StatusCode), zap.String("message", apiErr.Message))
			if apiErr.StatusCode == http.StatusUnauthorized {
				c.handleUnauthorized(ctx, token, log)
			}
			return err
		}
		log.Warn("request failed", zap.Error(err))
		return err
	}

	log.Debug("request completed", zap.Int("status", resp.status), zap.Duration("duration", time.Since(start)))
	return decodeData(resp, requestID, out)
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte, token, requestID string, ro requestOptions) (*response, error) {
	target := c.baseURL + path
	if len(ro.query) > 0 {
		target += "?" + ro.query.Encode()
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(headerRequestID, requestID)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if ro.idempotencyKey != "" {
		req.Header.Set(headerIdempotencyKey, ro.idempotencyKey)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s %s: %w", method, path, ctxErr)
		}
		return nil, fmt.Errorf("%s %s: %w: %v", method, path, ErrUnavailable, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%s %s: read body: %w: %v", method, path, ErrUnavailable, err)
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, &APIError{
			StatusCode: res.StatusCode,
			Message:    errorMessage(raw),
			RequestID:  requestID,
		}
	}
	return &response{status: res.StatusCode, body: raw}, nil
}

// handleUnauthorized clears the token store and fires the logout hook,
// once for each token that the server rejected.
func (c *Client) handleUnauthorized(ctx context.Context, token string, log *zap.Logger) {
	if token == "" {
		return
	}
	c.mu.Lock()
	if c.loggedOut == token {
		c.mu.Unlock()
		return
	}
	c.loggedOut = token
	c.mu.Unlock()

	if err := c.tokens.Clear(context.WithoutCancel(ctx)); err != nil {
		log.Error("failed to clear token", zap.Error(err))
	}
	log.Info("session expired, signing out")
	if c.onUnauthorized != nil {
		c.onUnauthorized()
	}
}

func decodeData(resp *response, requestID string, out any) error {
	if len(bytes.TrimSpace(resp.body)) == 0 {
		return nil
	}
	var env envelope
	if err := json.Unmarshal(resp.body, &env); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}
	if env.Success != nil && !*env.Success {
		return &APIError{StatusCode: resp.status, Message: env.message(), RequestID: requestID}
	}
	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}

func errorMessage(raw []byte) string {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return strings.TrimSpace(string(raw))
	}
	return env.message()
}

func (e envelope) message() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Error
}
