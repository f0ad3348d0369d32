package retry

import "slices"

// Predicate decides whether the failure of the given attempt (1-based) should
// be retried. Budget exhaustion is checked separately by the retry loop.
type Predicate func(err error, attempt int) bool

// IsRetryable reports whether err is worth another attempt.
// The verdict depends only on err and retryableCodes.
func IsRetryable(err error, retryableCodes []int) bool {
	switch KindOf(err) {
	case KindTransient:
		return true
	case KindService:
		code, _ := StatusCode(err)
		return slices.Contains(retryableCodes, code)
	default:
		return false
	}
}

// StatusCodePredicate returns the default predicate for the given codes.
func StatusCodePredicate(retryableCodes []int) Predicate {
	codes := slices.Clone(retryableCodes)
	return func(err error, _ int) bool {
		return IsRetryable(err, codes)
	}
}
