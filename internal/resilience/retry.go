package resilience

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"time"

	"github.com/ZanzyTHEbar/creative-scorer/internal/errors"
)

// RetryConfig holds configuration for retry behavior
type RetryConfig struct {
	MaxAttempts   int              `json:"max_attempts"`
	InitialDelay  time.Duration    `json:"initial_delay"`
	MaxDelay      time.Duration    `json:"max_delay"`
	BackoffFactor float64          `json:"backoff_factor"`
	JitterEnabled bool             `json:"jitter_enabled"`
	Retryable     func(error) bool `json:"-"`
}

// DefaultRetryConfig suits calls to AI sidecars: few attempts, short waits
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  200 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2.0,
		JitterEnabled: true,
		Retryable:     isRetryable,
	}
}

// Retry runs fn until it succeeds, returns a non-retryable error, or the
// attempts run out
func Retry(ctx context.Context, config RetryConfig, fn func() error) error {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 1
	}
	if config.Retryable == nil {
		config.Retryable = isRetryable
	}

	var lastErr error
	for attempt := 0; attempt < config.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !config.Retryable(err) || attempt == config.MaxAttempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff(config, attempt)):
		}
	}
	return lastErr
}

func backoff(config RetryConfig, attempt int) time.Duration {
	delay := time.Duration(float64(config.InitialDelay) * math.Pow(config.BackoffFactor, float64(attempt)))
	if config.MaxDelay > 0 && delay > config.MaxDelay {
		delay = config.MaxDelay
	}
	if config.JitterEnabled && delay >= 10 {
		delay += time.Duration(rand.Int63n(int64(delay / 10)))
	}
	return delay
}

// StatusError is a non-2xx reply from a collaborator
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("collaborator returned %s", e.Status)
}

// RetryableStatus reports whether an HTTP status is worth retrying
func RetryableStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout, http.StatusTooManyRequests,
		http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

func isRetryable(err error) bool {
	if IsOpen(err) {
		return false
	}
	if se, ok := err.(*StatusError); ok {
		return RetryableStatus(se.StatusCode)
	}
	return errors.IsRetryableError(err)
}
