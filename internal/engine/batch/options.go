package batch

import (
	"errors"
	"fmt"
	"time"

	"github.com/rshade/batchrun/internal/retry"
)

// Default run configuration.
const (
	// DefaultChunkSize is the number of items dispatched concurrently per chunk.
	DefaultChunkSize = 10

	// MinChunkSize is the minimum allowed chunk size.
	MinChunkSize = 1

	// MaxChunkSize is the maximum allowed chunk size.
	MaxChunkSize = 1000

	// DefaultDelayBetweenChunks is the pause between two chunks.
	DefaultDelayBetweenChunks = 100 * time.Millisecond

	// DefaultMaxRetries gives each item three attempts in total.
	DefaultMaxRetries = 2
)

// Configuration errors. They are returned before any item is processed.
var (
	ErrInvalidChunkSize  = errors.New("chunk size must be between 1 and 1000")
	ErrInvalidMaxRetries = errors.New("max retries must be >= 0")
	ErrInvalidDelay      = errors.New("delay between chunks must be >= 0")
	ErrNilProcessor      = errors.New("item processor cannot be nil")
)

// ItemCallback is invoked after every item resolves, in completion order.
type ItemCallback[In, Out any] func(result ItemResult[In, Out], progress ProgressSnapshot)

// ChunkCallback is invoked after every item of a chunk has resolved.
// chunkIndex is 0-based.
type ChunkCallback func(chunkIndex int, progress ProgressSnapshot)

// Options configures a Runner.
//
// Callbacks run on the runner's goroutines, one at a time. A callback that
// blocks stalls the run.
type Options[In, Out any] struct {
	// ChunkSize bounds how many items run at once.
	ChunkSize int

	// DelayBetweenChunks is the pause after a chunk when more remain.
	DelayBetweenChunks time.Duration

	// MaxRetries is the number of retries per item after the first attempt.
	MaxRetries int

	// Retry shapes the backoff. Its MaxAttempts is replaced by MaxRetries+1.
	// When InitialDelay, MaxDelay and BackoffMultiplier are all zero the
	// backoff comes from retry.DefaultConfig(); OnRetry, JitterFactor and
	// RetryableStatusCodes are still taken from here when set.
	Retry retry.Config

	OnItemComplete  ItemCallback[In, Out]
	OnChunkComplete ChunkCallback
}

// DefaultOptions returns options with the default chunk size, pacing and retries.
func DefaultOptions[In, Out any]() Options[In, Out] {
	return Options[In, Out]{
		ChunkSize:          DefaultChunkSize,
		DelayBetweenChunks: DefaultDelayBetweenChunks,
		MaxRetries:         DefaultMaxRetries,
		Retry:              retry.DefaultConfig(),
	}
}

// retryConfig returns the per-item retry configuration.
func (o Options[In, Out]) retryConfig() retry.Config {
	cfg := o.Retry
	if cfg.InitialDelay == 0 && cfg.MaxDelay == 0 && cfg.BackoffMultiplier == 0 {
		defaults := retry.DefaultConfig()
		defaults.OnRetry = cfg.OnRetry
		if cfg.RetryableStatusCodes != nil {
			defaults.RetryableStatusCodes = cfg.RetryableStatusCodes
		}
		if cfg.JitterFactor != 0 {
			defaults.JitterFactor = cfg.JitterFactor
		}
		cfg = defaults
	}
	return cfg.WithMaxAttempts(o.MaxRetries + 1)
}

// Validate checks the options for programmer errors.
func (o Options[In, Out]) Validate() error {
	if o.ChunkSize < MinChunkSize || o.ChunkSize > MaxChunkSize {
		return fmt.Errorf("%w: got %d", ErrInvalidChunkSize, o.ChunkSize)
	}
	if o.MaxRetries < 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidMaxRetries, o.MaxRetries)
	}
	if o.DelayBetweenChunks < 0 {
		return fmt.Errorf("%w: got %s", ErrInvalidDelay, o.DelayBetweenChunks)
	}
	return o.retryConfig().Validate()
}
