package batch

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/rshade/batchrun/internal/logging"
	"github.com/rshade/batchrun/internal/retry"
)

// ItemProcessor performs the work for one input item. index is the item's
// position in the original input slice. Errors should be mapped onto the
// retry error kinds so the runner can tell transient failures from fatal ones.
type ItemProcessor[In, Out any] interface {
	Process(ctx context.Context, item In, index int) (Out, error)
}

// ProcessorFunc adapts a function to ItemProcessor.
type ProcessorFunc[In, Out any] func(ctx context.Context, item In, index int) (Out, error)

// Process calls f.
func (f ProcessorFunc[In, Out]) Process(ctx context.Context, item In, index int) (Out, error) {
	return f(ctx, item, index)
}

// PanicError is recorded as the item error when a processor panics.
type PanicError struct {
	Index int
	Value interface{}
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("processor panicked on item %d: %v", e.Index, e.Value)
}

// Runner executes item processors over inputs in chunks.
// A Runner holds no per-run state and may be reused, also concurrently.
type Runner[In, Out any] struct {
	opts Options[In, Out]
}

// NewRunner creates a runner after validating opts.
func NewRunner[In, Out any](opts Options[In, Out]) (*Runner[In, Out], error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Runner[In, Out]{opts: opts}, nil
}

// ChunkSize returns the configured chunk size.
func (r *Runner[In, Out]) ChunkSize() int {
	return r.opts.ChunkSize
}

// CalculateChunks returns the chunk boundaries for totalItems.
// Returns a slice of [start, end) index pairs in input order.
func (r *Runner[In, Out]) CalculateChunks(totalItems int) [][2]int {
	return calculateChunks(totalItems, r.opts.ChunkSize)
}

func calculateChunks(totalItems, chunkSize int) [][2]int {
	if totalItems <= 0 || chunkSize <= 0 {
		return nil
	}

	totalChunks := (totalItems + chunkSize - 1) / chunkSize
	chunks := make([][2]int, totalChunks)
	for i := range totalChunks {
		start := i * chunkSize
		end := min(start+chunkSize, totalItems)
		chunks[i] = [2]int{start, end}
	}
	return chunks
}

// Run processes items chunk by chunk and returns every produced result in
// index order.
//
// Item failures never make Run return an error; they are reported in the
// results. Run only fails, before any item runs, on a nil processor. When ctx
// is cancelled the current chunk finishes, no further chunk starts, and the
// summary is marked aborted.
func (r *Runner[In, Out]) Run(
	ctx context.Context,
	items []In,
	processor ItemProcessor[In, Out],
) (*Result[In, Out], error) {
	if processor == nil {
		return nil, ErrNilProcessor
	}

	runID := logging.RunIDFromContext(ctx)
	if runID == "" {
		runID = logging.NewRunID()
		ctx = logging.ContextWithRunID(ctx, runID)
	}
	log := logging.ComponentLogger(*logging.FromContext(ctx), "batch")

	chunks := r.CalculateChunks(len(items))
	progress := NewProgress(len(items), len(chunks))
	start := time.Now()

	log.Info().
		Int("items", len(items)).
		Int("chunks", len(chunks)).
		Int("chunk_size", r.opts.ChunkSize).
		Msg("batch run started")

	// Items outlive cancellation of the run: an attempt that has started is
	// allowed to finish its own retry loop.
	itemCtx := context.WithoutCancel(ctx)

	var (
		mu      sync.Mutex
		slots   = make([]ItemResult[In, Out], len(items))
		filled  = make([]bool, len(items))
		aborted bool
	)

	for chunkIndex, bounds := range chunks {
		if ctx.Err() != nil {
			aborted = true
			log.Warn().
				Int("chunk", chunkIndex).
				Int("processed", progress.Snapshot().Completed).
				Msg("batch run cancelled, skipping remaining chunks")
			break
		}

		progress.StartChunk(chunkIndex)
		log.Debug().
			Int("chunk", chunkIndex).
			Int("start", bounds[0]).
			Int("end", bounds[1]).
			Msg("dispatching chunk")

		// No shared context: one item's failure must not cancel its siblings.
		var g errgroup.Group
		g.SetLimit(r.opts.ChunkSize)

		for index := bounds[0]; index < bounds[1]; index++ {
			g.Go(func() error {
				res := r.runItem(itemCtx, log, items[index], index, processor)

				mu.Lock()
				defer mu.Unlock()
				slots[index] = res
				filled[index] = true
				snapshot := progress.Record(res.Success, res.Attempts)
				if r.opts.OnItemComplete != nil {
					r.opts.OnItemComplete(res, snapshot)
				}
				return nil
			})
		}
		_ = g.Wait()

		snapshot := progress.Snapshot()
		log.Debug().
			Int("chunk", chunkIndex).
			Int("completed", snapshot.Completed).
			Int("failed", snapshot.Failed).
			Msg("chunk complete")
		if r.opts.OnChunkComplete != nil {
			r.opts.OnChunkComplete(chunkIndex, snapshot)
		}

		if chunkIndex < len(chunks)-1 {
			pause(ctx, r.opts.DelayBetweenChunks)
		}
	}

	results := make([]ItemResult[In, Out], 0, len(items))
	for i, ok := range filled {
		if ok {
			results = append(results, slots[i])
		}
	}

	final := progress.Snapshot()
	summary := Summary{
		RunID:        runID,
		Total:        len(items),
		Successful:   final.Successful,
		Failed:       final.Failed,
		Duration:     time.Since(start),
		Aborted:      aborted,
		TotalRetries: progress.Retries(),
	}

	log.Info().
		Int("successful", summary.Successful).
		Int("failed", summary.Failed).
		Int("retries", summary.TotalRetries).
		Bool("aborted", summary.Aborted).
		Dur("duration", summary.Duration).
		Msg("batch run finished")

	return &Result[In, Out]{Results: results, Summary: summary}, nil
}

// runItem runs one item through the retry primitive.
func (r *Runner[In, Out]) runItem(
	ctx context.Context,
	log zerolog.Logger,
	item In,
	index int,
	processor ItemProcessor[In, Out],
) ItemResult[In, Out] {
	cfg := r.opts.retryConfig()
	userHook := cfg.OnRetry
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		log.Debug().
			Int("index", index).
			Int("attempt", attempt).
			Dur("backoff", delay).
			Err(err).
			Msg("retrying item")
		if userHook != nil {
			userHook(attempt, err, delay)
		}
	}

	start := time.Now()
	outcome := retry.Do(ctx, cfg, func(ctx context.Context) (out Out, err error) {
		defer func() {
			if rec := recover(); rec != nil {
				err = &PanicError{Index: index, Value: rec, Stack: debug.Stack()}
			}
		}()
		return processor.Process(ctx, item, index)
	})

	if !outcome.Success {
		log.Debug().
			Int("index", index).
			Int("attempts", outcome.Attempts).
			Str("kind", retry.KindOf(outcome.Err).String()).
			Err(outcome.Err).
			Msg("item failed")
	}

	return ItemResult[In, Out]{
		Input:    item,
		Index:    index,
		Success:  outcome.Success,
		Output:   outcome.Value,
		Err:      outcome.Err,
		Attempts: outcome.Attempts,
		Duration: time.Since(start),
	}
}

// pause waits for d, returning early when ctx is done.
func pause(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
