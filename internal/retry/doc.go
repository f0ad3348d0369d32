// Package retry executes a single unit of work with bounded retries.
//
// A failed attempt is classified as retryable or fatal:
//   - transport failures (no response received) are always retryable
//   - service failures are retryable when their status code is in the configured set
//   - everything else, including validation failures, is fatal
//
// Retryable failures wait out an exponential backoff capped at MaxDelay plus up to
// JitterFactor of uniform random jitter. The package holds no shared state; every
// call to Do is independent and safe to use from many goroutines at once.
package retry
