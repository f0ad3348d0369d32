package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment variables that override file configuration.
const (
	EnvHome               = "BATCHRUN_HOME"
	EnvConfig             = "BATCHRUN_CONFIG"
	EnvChunkSize          = "BATCHRUN_CHUNK_SIZE"
	EnvDelayBetweenChunks = "BATCHRUN_DELAY_BETWEEN_CHUNKS"
	EnvMaxRetries         = "BATCHRUN_MAX_RETRIES"
	EnvRetryInitialDelay  = "BATCHRUN_RETRY_INITIAL_DELAY"
	EnvRetryMaxDelay      = "BATCHRUN_RETRY_MAX_DELAY"
	EnvEndpoint           = "BATCHRUN_ENDPOINT"
	EnvTimeout            = "BATCHRUN_TIMEOUT"
	EnvOutputFormat       = "BATCHRUN_OUTPUT_FORMAT"
	EnvLogLevel           = "BATCHRUN_LOG_LEVEL"
	EnvLogFormat          = "BATCHRUN_LOG_FORMAT"
	EnvLogFile            = "BATCHRUN_LOG_FILE"
	EnvMetricsAddr        = "BATCHRUN_METRICS_ADDR"
	EnvMetricsTextfile    = "BATCHRUN_METRICS_TEXTFILE"
	EnvCacheEnabled       = "BATCHRUN_CACHE_ENABLED"
	EnvCacheDir           = "BATCHRUN_CACHE_DIR"
	EnvCacheTTL           = "BATCHRUN_CACHE_TTL"
)

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ApplyEnvOverrides applies BATCHRUN_* variables on top of c. Every malformed
// value is reported; well-formed ones are applied regardless.
func (c *Config) ApplyEnvOverrides(lookup LookupFunc) error {
	var errs []error

	setInt := func(key string, dst *int) {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %q is not an integer", key, v))
			return
		}
		*dst = n
	}
	setDuration := func(key string, dst *time.Duration) {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return
		}
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %q is not a duration", key, v))
			return
		}
		*dst = d
	}
	setBool := func(key string, dst *bool) {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return
		}
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %q is not a boolean", key, v))
			return
		}
		*dst = b
	}
	setString := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	setInt(EnvChunkSize, &c.Batch.ChunkSize)
	setDuration(EnvDelayBetweenChunks, &c.Batch.DelayBetweenChunks)
	setInt(EnvMaxRetries, &c.Batch.MaxRetries)
	setDuration(EnvRetryInitialDelay, &c.Retry.InitialDelay)
	setDuration(EnvRetryMaxDelay, &c.Retry.MaxDelay)
	setString(EnvEndpoint, &c.Remote.Endpoint)
	setDuration(EnvTimeout, &c.Remote.Timeout)
	setString(EnvOutputFormat, &c.Output.DefaultFormat)
	setString(EnvLogLevel, &c.Logging.Level)
	setString(EnvLogFormat, &c.Logging.Format)
	setString(EnvLogFile, &c.Logging.File)
	setString(EnvMetricsAddr, &c.Metrics.Addr)
	setString(EnvMetricsTextfile, &c.Metrics.Textfile)
	setBool(EnvCacheEnabled, &c.Cache.Enabled)
	setString(EnvCacheDir, &c.Cache.Dir)
	setDuration(EnvCacheTTL, &c.Cache.TTL)

	return errors.Join(errs...)
}

// LoadEnvFile loads KEY=VALUE pairs from path into the process environment
// without overwriting variables that are already set. A missing file is not
// an error.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading env file %s: %w", path, err)
	}
	return nil
}
