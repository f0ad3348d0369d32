package batch

import (
	"fmt"
	"time"
)

// ItemResult is the outcome of one input item. It is created once, when the
// item resolves, and never modified afterwards.
type ItemResult[In, Out any] struct {
	// Input is the item as it was passed to Run.
	Input In

	// Index is the item's position in the original input slice.
	Index int

	Success bool
	Output  Out
	Err     error

	// Attempts is the number of times the processor was invoked.
	Attempts int

	// Duration covers all attempts including backoff waits.
	Duration time.Duration
}

// Summary holds the final counts of a run.
type Summary struct {
	RunID        string
	Total        int
	Successful   int
	Failed       int
	Duration     time.Duration
	Aborted      bool
	TotalRetries int
}

// Processed returns the number of items that produced a result.
func (s Summary) Processed() int {
	return s.Successful + s.Failed
}

// String returns a one-line human readable summary.
func (s Summary) String() string {
	status := "completed"
	if s.Aborted {
		status = "aborted"
	}
	return fmt.Sprintf("%s: %d/%d succeeded, %d failed in %s",
		status, s.Successful, s.Total, s.Failed, s.Duration.Round(time.Millisecond))
}

// Result is what Run returns: item results ordered by index plus the summary.
type Result[In, Out any] struct {
	Results []ItemResult[In, Out]
	Summary Summary
}

// Failures returns the failed item results in index order.
func (r *Result[In, Out]) Failures() []ItemResult[In, Out] {
	var failed []ItemResult[In, Out]
	for _, res := range r.Results {
		if !res.Success {
			failed = append(failed, res)
		}
	}
	return failed
}
