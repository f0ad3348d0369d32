package retry

import "context"

// Operation is a unit of work that may fail.
type Operation[T any] func(ctx context.Context) (T, error)

// Outcome is the result of a retry loop.
//
// Attempts is always between 1 and the configured MaxAttempts. When Success is
// false, Err is the error of the last attempt.
type Outcome[T any] struct {
	Success  bool
	Value    T
	Err      error
	Attempts int

	// Interrupted is set when ctx ended the loop between attempts.
	Interrupted bool
}

// Do runs op until it succeeds, fails fatally, or the attempt budget is spent.
// Failures are classified with IsRetryable against cfg.RetryableStatusCodes.
func Do[T any](ctx context.Context, cfg Config, op Operation[T]) Outcome[T] {
	return DoWithPredicate(ctx, cfg, op, StatusCodePredicate(cfg.RetryableStatusCodes))
}

// DoWithPredicate is Do with a caller supplied retry policy in place of the
// status code classifier.
//
// ctx is only observed between attempts: a running attempt is never
// interrupted by the loop itself. When ctx is done before the next attempt the
// loop stops and reports the last error with the attempts made so far.
func DoWithPredicate[T any](ctx context.Context, cfg Config, op Operation[T], shouldRetry Predicate) Outcome[T] {
	maxAttempts := max(cfg.MaxAttempts, 1)

	for attempt := 1; ; attempt++ {
		value, err := op(ctx)
		if err == nil {
			return Outcome[T]{Success: true, Value: value, Attempts: attempt}
		}

		if attempt >= maxAttempts || shouldRetry == nil || !shouldRetry(err, attempt) {
			return Outcome[T]{Err: err, Attempts: attempt}
		}

		delay := WithJitter(BackoffDelay(cfg, attempt), cfg.JitterFactor)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, delay)
		}

		if sleepErr := sleepWithContext(ctx, delay); sleepErr != nil {
			return Outcome[T]{Err: err, Attempts: attempt, Interrupted: true}
		}
	}
}
