package billing

import (
	"errors"
	"fmt"
)

var (
	ErrNotConfigured     = errors.New("payment processor not configured")
	ErrInvalidRequest    = errors.New("invalid request")
	ErrInvalidSignature  = errors.New("webhook signature verification failed")
	ErrPaymentNotFound   = errors.New("payment not found")
	ErrInvalidTransition = errors.New("invalid payment status transition")
	ErrProcessor         = errors.New("payment processor error")
)

// ProcessorError carries the processor's message verbatim together with the
// HTTP status the processor answered with.
type ProcessorError struct {
	StatusCode int
	Code       string
	Param      string
	Message    string
}

func (e *ProcessorError) Error() string {
	return e.Message
}

func (e *ProcessorError) Unwrap() error {
	return ErrProcessor
}

// Rejected reports whether the processor refused the request itself (bad price,
// bad email) rather than failing.
func (e *ProcessorError) Rejected() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// Invalid builds a validation error with a descriptive message.
func Invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}
