package retry

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffDelay(t *testing.T) {
	cfg := Config{
		InitialDelay:      100 * time.Millisecond,
		MaxDelay:          time.Second,
		BackoffMultiplier: 2,
	}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{attempt: 0, want: 100 * time.Millisecond},
		{attempt: 1, want: 100 * time.Millisecond},
		{attempt: 2, want: 200 * time.Millisecond},
		{attempt: 3, want: 400 * time.Millisecond},
		{attempt: 4, want: 800 * time.Millisecond},
		{attempt: 5, want: time.Second},
		{attempt: 50, want: time.Second},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, BackoffDelay(cfg, tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestBackoffDelay_Monotonic(t *testing.T) {
	configs := []Config{
		DefaultConfig(),
		{InitialDelay: 3 * time.Millisecond, MaxDelay: time.Minute, BackoffMultiplier: 1.5},
		{InitialDelay: time.Second, MaxDelay: time.Second, BackoffMultiplier: 10},
		{InitialDelay: time.Millisecond, MaxDelay: 0, BackoffMultiplier: 3},
	}

	for _, cfg := range configs {
		prev := time.Duration(0)
		for attempt := 1; attempt <= 100; attempt++ {
			d := BackoffDelay(cfg, attempt)
			assert.GreaterOrEqual(t, d, prev)
			if cfg.MaxDelay > 0 {
				assert.LessOrEqual(t, d, cfg.MaxDelay)
			}
			prev = d
		}
	}
}

func TestBackoffDelay_Overflow(t *testing.T) {
	cfg := Config{InitialDelay: time.Hour, BackoffMultiplier: 10}
	assert.Equal(t, time.Duration(math.MaxInt64), BackoffDelay(cfg, 200))
}

func TestBackoffDelay_ZeroInitial(t *testing.T) {
	assert.Equal(t, time.Duration(0), BackoffDelay(Config{BackoffMultiplier: 2}, 3))
}

func TestWithJitter(t *testing.T) {
	base := 100 * time.Millisecond
	for range 1000 {
		d := WithJitter(base, DefaultJitterFactor)
		assert.GreaterOrEqual(t, d, base)
		assert.Less(t, d, base+30*time.Millisecond)
	}

	assert.Equal(t, base, WithJitter(base, 0))
	assert.Equal(t, time.Duration(0), WithJitter(0, 0.3))
}

func TestSleepWithContext(t *testing.T) {
	assert.NoError(t, sleepWithContext(context.Background(), 0))
	assert.NoError(t, sleepWithContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepWithContext(ctx, time.Hour), context.Canceled)
	assert.ErrorIs(t, sleepWithContext(ctx, 0), context.Canceled)
}
