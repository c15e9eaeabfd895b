// Package circuitbreaker wraps gobreaker with the settings used for calls
// to the storefront API.
package circuitbreaker

import (
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// ErrOpen is returned instead of calling through while the breaker is open
// or half-open and saturated.
var ErrOpen = errors.New("circuit breaker is open")

type Settings struct {
	Name string
	// ConsecutiveFailures trips the breaker.
	ConsecutiveFailures uint32
	// OpenTimeout is how long the breaker stays open before probing.
	OpenTimeout time.Duration
	// HalfOpenRequests is the number of trial requests allowed while half-open.
	HalfOpenRequests uint32
	// IsFailure decides which errors count against the breaker. Nil means
	// every non-nil error counts.
	IsFailure func(err error) bool
}

func DefaultSettings(name string) Settings {
	return Settings{
		Name:                name,
		ConsecutiveFailures: 5,
		OpenTimeout:         30 * time.Second,
		HalfOpenRequests:    1,
	}
}

type Breaker[T any] struct {
	cb *gobreaker.CircuitBreaker[T]
}

func New[T any](s Settings, logger *zap.Logger) *Breaker[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	threshold := s.ConsecutiveFailures
	if threshold == 0 {
		threshold = 5
	}
	isFailure := s.IsFailure

	st := gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: s.HalfOpenRequests,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}
	if isFailure != nil {
		st.IsSuccessful = func(err error) bool {
			return err == nil || !isFailure(err)
		}
	}

	return &Breaker[T]{cb: gobreaker.NewCircuitBreaker[T](st)}
}

// Execute runs fn through the breaker. Rejections are reported as ErrOpen.
func (b *Breaker[T]) Execute(fn func() (T, error)) (T, error) {
	res, err := b.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		var zero T
		return zero, ErrOpen
	}
	return res, err
}

func (b *Breaker[T]) State() string {
	return b.cb.State().String()
}
