package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rshade/batchrun/internal/engine/batch"
	"github.com/rshade/batchrun/internal/retry"
)

// Output formats understood by the CLI renderers.
const (
	OutputFormatTable  = "table"
	OutputFormatJSON   = "json"
	OutputFormatNDJSON = "ndjson"
	OutputFormatCSV    = "csv"
)

// configFileName is the name of the config file inside the config directory.
const configFileName = "config.yaml"

// Config is the complete batchrun configuration.
type Config struct {
	Batch   BatchConfig   `yaml:"batch"`
	Retry   RetryConfig   `yaml:"retry"`
	Remote  RemoteConfig  `yaml:"remote"`
	Output  OutputConfig  `yaml:"output"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Cache   CacheConfig   `yaml:"cache"`
}

// BatchConfig shapes chunking and pacing.
type BatchConfig struct {
	ChunkSize          int           `yaml:"chunk_size"           validate:"min=1,max=1000"`
	DelayBetweenChunks time.Duration `yaml:"delay_between_chunks" validate:"min=0"`
	MaxRetries         int           `yaml:"max_retries"          validate:"min=0,max=100"`
}

// RetryConfig shapes the per-item backoff.
type RetryConfig struct {
	InitialDelay         time.Duration `yaml:"initial_delay"          validate:"min=0"`
	MaxDelay             time.Duration `yaml:"max_delay"              validate:"gtefield=InitialDelay"`
	BackoffMultiplier    float64       `yaml:"backoff_multiplier"     validate:"gt=1"`
	JitterFactor         float64       `yaml:"jitter_factor"          validate:"min=0,max=1"`
	RetryableStatusCodes []int         `yaml:"retryable_status_codes" validate:"dive,min=100,max=599"`
}

// RemoteConfig configures the HTTP item processor.
type RemoteConfig struct {
	Endpoint string            `yaml:"endpoint"          validate:"omitempty,url"`
	Timeout  time.Duration     `yaml:"timeout"           validate:"min=0"`
	Headers  map[string]string `yaml:"headers,omitempty"`
}

// OutputConfig controls result rendering.
type OutputConfig struct {
	DefaultFormat string `yaml:"default_format" validate:"oneof=table json ndjson csv"`
}

// LoggingConfig controls log level, format and destination.
type LoggingConfig struct {
	Level  string `yaml:"level"          validate:"omitempty,oneof=trace debug info warn error"`
	Format string `yaml:"format"         validate:"omitempty,oneof=json console"`
	File   string `yaml:"file,omitempty"`
}

// MetricsConfig controls Prometheus exposition.
type MetricsConfig struct {
	Addr      string `yaml:"addr,omitempty"     validate:"omitempty,hostname_port"`
	Textfile  string `yaml:"textfile,omitempty"`
	Namespace string `yaml:"namespace"          validate:"required"`
}

// CacheConfig controls the on-disk response cache of HTTP runs. An empty Dir
// means <config dir>/cache; a zero TTL means the cache default.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Dir     string        `yaml:"dir,omitempty"`
	TTL     time.Duration `yaml:"ttl"           validate:"omitempty,min=1m,max=720h"`
}

// Default returns the built-in configuration.
func Default() *Config {
	r := retry.DefaultConfig()
	return &Config{
		Batch: BatchConfig{
			ChunkSize:          batch.DefaultChunkSize,
			DelayBetweenChunks: batch.DefaultDelayBetweenChunks,
			MaxRetries:         batch.DefaultMaxRetries,
		},
		Retry: RetryConfig{
			InitialDelay:         r.InitialDelay,
			MaxDelay:             r.MaxDelay,
			BackoffMultiplier:    r.BackoffMultiplier,
			JitterFactor:         r.JitterFactor,
			RetryableStatusCodes: r.RetryableStatusCodes,
		},
		Remote: RemoteConfig{
			Timeout: 30 * time.Second,
		},
		Output: OutputConfig{
			DefaultFormat: OutputFormatTable,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Metrics: MetricsConfig{
			Namespace: "batchrun",
		},
		Cache: CacheConfig{
			TTL: 24 * time.Hour,
		},
	}
}

// New returns the default configuration overlaid with the user's config file
// and environment. Problems with the file are ignored so the CLI always
// starts; use Load to surface them.
func New() *Config {
	cfg := Default()
	if path, err := ConfigFilePath(); err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			_ = ShallowMergeYAML(cfg, path)
		}
	}
	_ = cfg.ApplyEnvOverrides(os.LookupEnv)
	return cfg
}

// Load builds a configuration from defaults, the YAML file at path (when not
// empty) and the environment, then validates it.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := ShallowMergeYAML(cfg, path); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnvOverrides(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg as YAML to path, creating parent directories.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err = os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err = os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config file %s: %w", path, err)
	}
	return nil
}

// ToRetryConfig converts the retry section into the engine's retry.Config.
// MaxAttempts is derived from Batch.MaxRetries.
func (c *Config) ToRetryConfig() retry.Config {
	codes := make([]int, len(c.Retry.RetryableStatusCodes))
	copy(codes, c.Retry.RetryableStatusCodes)
	return retry.Config{
		MaxAttempts:          c.Batch.MaxRetries + 1,
		InitialDelay:         c.Retry.InitialDelay,
		MaxDelay:             c.Retry.MaxDelay,
		BackoffMultiplier:    c.Retry.BackoffMultiplier,
		JitterFactor:         c.Retry.JitterFactor,
		RetryableStatusCodes: codes,
	}
}

// ToBatchOptions converts c into runner options. Callbacks are left for the
// caller to set.
func ToBatchOptions[In, Out any](c *Config) batch.Options[In, Out] {
	return batch.Options[In, Out]{
		ChunkSize:          c.Batch.ChunkSize,
		DelayBetweenChunks: c.Batch.DelayBetweenChunks,
		MaxRetries:         c.Batch.MaxRetries,
		Retry:              c.ToRetryConfig(),
	}
}
