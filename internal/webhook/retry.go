package webhook

import (
	"context"
	"math"
	"net/http"
	"time"

	"github.com/PratikLad0/job-search-automation/internal/model"
)

// RetryStrategy handles exponential backoff retry logic
type RetryStrategy struct {
	config model.RetryConfig
}

// NewRetryStrategy creates a new retry strategy
func NewRetryStrategy(config model.RetryConfig) *RetryStrategy {
	config.SetDefaults()
	return &RetryStrategy{
		config: config,
	}
}

// Delay returns the wait before the attempt after the given one:
// min(initial * multiplier^(attempt-1), max)
func (rs *RetryStrategy) Delay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	delayMs := float64(rs.config.InitialDelayMs) * math.Pow(rs.config.Multiplier, float64(attempt-1))
	if delayMs > float64(rs.config.MaxDelayMs) {
		delayMs = float64(rs.config.MaxDelayMs)
	}

	return time.Duration(delayMs) * time.Millisecond
}

// ShouldRetry decides whether a failed attempt is worth repeating.
// transportErr is a network-level failure; statusCode is 0 when no response arrived.
func (rs *RetryStrategy) ShouldRetry(attempt, statusCode int, transportErr error) bool {
	if attempt >= rs.config.MaxAttempts {
		return false
	}
	if transportErr != nil {
		return true
	}

	switch {
	case statusCode >= 200 && statusCode < 300:
		return false
	case statusCode == http.StatusTooManyRequests:
		return true
	case statusCode >= 400 && statusCode < 500:
		return false
	default:
		return true
	}
}

// Wait sleeps for Delay(attempt) unless ctx ends first
func (rs *RetryStrategy) Wait(ctx context.Context, attempt int) error {
	timer := time.NewTimer(rs.Delay(attempt))
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// MaxAttempts returns the maximum number of attempts
func (rs *RetryStrategy) MaxAttempts() int {
	return rs.config.MaxAttempts
}
