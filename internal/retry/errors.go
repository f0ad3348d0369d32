package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Kind is the closed set of failure kinds a processor error maps to.
type Kind int

const (
	// KindUnknown is an error that was not mapped to a known kind. It is fatal.
	KindUnknown Kind = iota
	// KindTransient is a connectivity or timeout failure with no response.
	KindTransient
	// KindService is a failure carrying a status code from the remote side.
	KindService
	// KindValidation is an input problem that no retry can fix.
	KindValidation
	// KindCancelled means the caller stopped the work.
	KindCancelled
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindService:
		return "service"
	case KindValidation:
		return "validation"
	case KindCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// TransientError wraps a failure where no response was received.
type TransientError struct {
	Err error
}

// Transient wraps err as a TransientError. A nil err yields nil.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient failure: %v", e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// ServiceError is a failure reported by the remote side with a status code.
type ServiceError struct {
	StatusCode int
	Message    string
}

// Service creates a ServiceError.
func Service(statusCode int, message string) error {
	return &ServiceError{StatusCode: statusCode, Message: message}
}

func (e *ServiceError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("service error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("service error: status %d: %s", e.StatusCode, e.Message)
}

// ValidationError is an input failure. It is never retried.
type ValidationError struct {
	Field   string
	Message string
}

// Validation creates a ValidationError for field.
func Validation(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Message)
}

// KindOf maps err onto the closed kind set.
//
// Explicit kinds win over inferred ones: a TransientError wrapping a
// context.Canceled is still transient. Bare deadline errors and net.Error
// values count as transient.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	var transient *TransientError
	if errors.As(err, &transient) {
		return KindTransient
	}
	var service *ServiceError
	if errors.As(err, &service) {
		return KindService
	}
	var validation *ValidationError
	if errors.As(err, &validation) {
		return KindValidation
	}

	if errors.Is(err, context.Canceled) {
		return KindCancelled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTransient
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindTransient
	}

	return KindUnknown
}

// StatusCode extracts the status code of a ServiceError in err's chain.
func StatusCode(err error) (int, bool) {
	var service *ServiceError
	if errors.As(err, &service) {
		return service.StatusCode, true
	}
	return 0, false
}
