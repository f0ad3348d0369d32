package retry

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// Default retry configuration.
const (
	// DefaultMaxAttempts is one initial attempt plus three retries.
	DefaultMaxAttempts = 4

	// DefaultInitialDelay is the delay before the first retry.
	DefaultInitialDelay = time.Second

	// DefaultMaxDelay caps backoff growth.
	DefaultMaxDelay = 30 * time.Second

	// DefaultBackoffMultiplier is the exponential growth factor.
	DefaultBackoffMultiplier = 2.0

	// DefaultJitterFactor adds up to 30% of the computed delay.
	DefaultJitterFactor = 0.3
)

// ErrInvalidConfig is returned by Config.Validate.
var ErrInvalidConfig = errors.New("invalid retry config")

// DefaultRetryableStatusCodes returns the status codes treated as transient
// service failures: request timeout, rate limiting and 5xx gateway errors.
func DefaultRetryableStatusCodes() []int {
	return []int{408, 429, 500, 502, 503, 504}
}

// Config controls one retry loop. It is read but never modified by Do.
type Config struct {
	// MaxAttempts is the total attempt budget, including the first attempt.
	MaxAttempts int

	// InitialDelay is the backoff before the second attempt.
	InitialDelay time.Duration

	// MaxDelay caps the pre-jitter backoff.
	MaxDelay time.Duration

	// BackoffMultiplier is applied once per additional attempt. Must be > 1.
	BackoffMultiplier float64

	// JitterFactor is the upper bound of random jitter as a fraction of the delay.
	JitterFactor float64

	// RetryableStatusCodes lists service status codes worth retrying.
	RetryableStatusCodes []int

	// OnRetry, when set, is called before every backoff wait.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// DefaultConfig returns the default retry configuration.
//   - 4 attempts
//   - 1 second initial delay, doubling, capped at 30 seconds
//   - 30% jitter
//   - retry on 408, 429, 500, 502, 503, 504
func DefaultConfig() Config {
	return Config{
		MaxAttempts:          DefaultMaxAttempts,
		InitialDelay:         DefaultInitialDelay,
		MaxDelay:             DefaultMaxDelay,
		BackoffMultiplier:    DefaultBackoffMultiplier,
		JitterFactor:         DefaultJitterFactor,
		RetryableStatusCodes: DefaultRetryableStatusCodes(),
	}
}

// WithMaxAttempts returns a copy of c with MaxAttempts replaced.
func (c Config) WithMaxAttempts(n int) Config {
	c.MaxAttempts = n
	c.RetryableStatusCodes = slices.Clone(c.RetryableStatusCodes)
	return c
}

// Validate reports the first invalid field, wrapped in ErrInvalidConfig.
func (c Config) Validate() error {
	switch {
	case c.MaxAttempts < 1:
		return fmt.Errorf("%w: max attempts must be >= 1, got %d", ErrInvalidConfig, c.MaxAttempts)
	case c.InitialDelay < 0:
		return fmt.Errorf("%w: initial delay must be >= 0, got %s", ErrInvalidConfig, c.InitialDelay)
	case c.MaxDelay < c.InitialDelay:
		return fmt.Errorf("%w: max delay %s is below initial delay %s", ErrInvalidConfig, c.MaxDelay, c.InitialDelay)
	case c.BackoffMultiplier <= 1:
		return fmt.Errorf("%w: backoff multiplier must be > 1, got %g", ErrInvalidConfig, c.BackoffMultiplier)
	case c.JitterFactor < 0 || c.JitterFactor > 1:
		return fmt.Errorf("%w: jitter factor must be in [0,1], got %g", ErrInvalidConfig, c.JitterFactor)
	}
	return nil
}
