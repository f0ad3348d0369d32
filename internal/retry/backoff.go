package retry

import (
	"context"
	"math"
	"math/rand/v2"
	"time"
)

// BackoffDelay returns the pre-jitter delay after the given failed attempt
// (1-based): InitialDelay * BackoffMultiplier^(attempt-1), capped at MaxDelay.
func BackoffDelay(cfg Config, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if cfg.InitialDelay <= 0 {
		return 0
	}

	delay := float64(cfg.InitialDelay) * math.Pow(cfg.BackoffMultiplier, float64(attempt-1))
	if cfg.MaxDelay > 0 && delay > float64(cfg.MaxDelay) {
		return cfg.MaxDelay
	}
	if delay >= math.MaxInt64 || math.IsNaN(delay) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(delay)
}

// WithJitter adds a uniform random duration in [0, factor*d) to d.
func WithJitter(d time.Duration, factor float64) time.Duration {
	if d <= 0 || factor <= 0 {
		return d
	}
	jitter := time.Duration(rand.Float64() * factor * float64(d))
	if d > math.MaxInt64-jitter {
		return time.Duration(math.MaxInt64)
	}
	return d + jitter
}

// sleepWithContext waits for d or until ctx is done, whichever comes first.
// It reports ctx.Err() when the wait was cut short, including when ctx was
// already done on entry.
func sleepWithContext(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
