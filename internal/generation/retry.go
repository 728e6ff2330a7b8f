package generation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// RetryConfig holds exponential backoff parameters.
type RetryConfig struct {
	MaxRetries  int
	InitialWait time.Duration
	MaxWait     time.Duration
	Factor      float64
}

// StatusError is a non-2xx response from a backend.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Body)
}

// Retryable reports whether a request that failed with err may succeed if
// repeated: rate limits and server errors.
func Retryable(err error) bool {
	var se *StatusError
	if !errors.As(err, &se) {
		return false
	}
	return se.StatusCode == http.StatusTooManyRequests || se.StatusCode >= 500
}

// withRetry runs op until it succeeds, fails with a non-retryable error, or
// exhausts the retry budget. Waits honor ctx.
func withRetry[T any](ctx context.Context, cfg RetryConfig, op func() (T, error)) (T, error) {
	wait := cfg.InitialWait

	for attempt := 0; ; attempt++ {
		result, err := op()
		if err == nil || !Retryable(err) {
			return result, err
		}

		if attempt >= cfg.MaxRetries {
			var zero T
			return zero, fmt.Errorf("failed after %d retries: %w", cfg.MaxRetries, err)
		}

		delay := min(wait, cfg.MaxWait)
		if cfg.MaxWait == 0 {
			delay = wait
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			var zero T
			return zero, ctx.Err()
		case <-timer.C:
		}

		wait = time.Duration(float64(wait) * cfg.Factor)
	}
}
