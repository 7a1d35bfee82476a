package source

import (
	"context"
	"errors"
	"fmt"

	"exposurescan/internal/taxonomy"
)

// ErrorKind is the normalized failure taxonomy for adapter calls.
type ErrorKind string

const (
	// KindTimeout indicates the source took too long to respond.
	KindTimeout ErrorKind = "TIMEOUT"

	// KindRateLimited indicates the source rejected the call for quota reasons.
	KindRateLimited ErrorKind = "RATE_LIMITED"

	// KindUpstreamError indicates the source failed or returned garbage.
	KindUpstreamError ErrorKind = "UPSTREAM_ERROR"

	// KindInvalidInput indicates the source cannot process this subject or
	// ingredient. Retrying the same pair within a scan is pointless.
	KindInvalidInput ErrorKind = "INVALID_INPUT"
)

// AdapterError wraps adapter failures with a normalized kind so the
// scheduler can record and classify them uniformly.
type AdapterError struct {
	Kind       ErrorKind
	Source     taxonomy.DetectionSource
	Message    string
	Underlying error
}

func (e *AdapterError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("adapter %s [%s]: %s: %v", e.Source, e.Kind, e.Message, e.Underlying)
	}
	return fmt.Sprintf("adapter %s [%s]: %s", e.Source, e.Kind, e.Message)
}

func (e *AdapterError) Unwrap() error { return e.Underlying }

// Retryable reports whether the failure is worth retrying on a later scan.
// INVALID_INPUT never is; it also poisons the pair for the current scan.
func (e *AdapterError) Retryable() bool {
	return e.Kind == KindTimeout || e.Kind == KindRateLimited || e.Kind == KindUpstreamError
}

// NewAdapterError creates a normalized adapter error.
func NewAdapterError(kind ErrorKind, src taxonomy.DetectionSource, message string, underlying error) *AdapterError {
	return &AdapterError{Kind: kind, Source: src, Message: message, Underlying: underlying}
}

// KindOf extracts the error kind from any error returned by an adapter call.
// Context deadline and cancellation errors map to TIMEOUT; everything not
// carrying an *AdapterError maps to UPSTREAM_ERROR.
func KindOf(err error) ErrorKind {
	var ae *AdapterError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindTimeout
	}
	return KindUpstreamError
}
