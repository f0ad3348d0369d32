package retry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 4, cfg.MaxAttempts)
	assert.Equal(t, []int{408, 429, 500, 502, 503, 504}, cfg.RetryableStatusCodes)
	assert.InDelta(t, 0.3, cfg.JitterFactor, 1e-9)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "zero attempts", mutate: func(c *Config) { c.MaxAttempts = 0 }},
		{name: "negative initial delay", mutate: func(c *Config) { c.InitialDelay = -time.Second }},
		{name: "max below initial", mutate: func(c *Config) { c.MaxDelay = c.InitialDelay / 2 }},
		{name: "multiplier of one", mutate: func(c *Config) { c.BackoffMultiplier = 1 }},
		{name: "jitter above one", mutate: func(c *Config) { c.JitterFactor = 1.5 }},
		{name: "negative jitter", mutate: func(c *Config) { c.JitterFactor = -0.1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestConfig_WithMaxAttempts(t *testing.T) {
	base := DefaultConfig()
	cfg := base.WithMaxAttempts(7)
	assert.Equal(t, 7, cfg.MaxAttempts)
	assert.Equal(t, DefaultMaxAttempts, base.MaxAttempts)

	cfg.RetryableStatusCodes[0] = 999
	assert.Equal(t, 408, base.RetryableStatusCodes[0])
}
