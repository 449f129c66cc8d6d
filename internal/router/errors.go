// Package router decides, per agent attempt, which (provider, tier) pair
// runs next. It owns the circuit-breaker table and the error taxonomy that
// drives fallback and escalation.
package router

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrorKind names a failure class for tier attempts.
type ErrorKind string

const (
	// KindTimeout is a per-attempt deadline expiry.
	KindTimeout ErrorKind = "timeout"
	// KindConnection is a network-level failure reaching the provider.
	KindConnection ErrorKind = "connection"
	// KindRateLimit is a provider throttling response.
	KindRateLimit ErrorKind = "rate_limit"
	// KindAvailability is a provider-side availability failure (5xx,
	// overloaded).
	KindAvailability ErrorKind = "availability"
	// KindShortCircuit marks an attempt suppressed by an open breaker.
	KindShortCircuit ErrorKind = "short_circuit"
	// KindInvalidInput is a request the provider rejected as malformed.
	KindInvalidInput ErrorKind = "invalid_input"
	// KindInvalidConfig is a bad agent or provider configuration.
	KindInvalidConfig ErrorKind = "invalid_config"
	// KindPanic is a runtime panic converted at the agent boundary.
	KindPanic ErrorKind = "panic"
	// KindUnknown is an unclassified failure.
	KindUnknown ErrorKind = "unknown"
)

// Recoverable reports whether the kind should drive provider fallback or
// tier escalation. Unclassified failures are treated as fatal so a broken
// agent does not burn the whole ladder.
func (k ErrorKind) Recoverable() bool {
	switch k {
	case KindTimeout, KindConnection, KindRateLimit, KindAvailability, KindShortCircuit:
		return true
	default:
		return false
	}
}

// ExecError is an error with an attached classification. The runtime wraps
// provider failures in ExecError so the router can classify without string
// matching.
type ExecError struct {
	// Kind is the failure class.
	Kind ErrorKind
	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *ExecError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ExecError) Unwrap() error { return e.Err }

// Wrap attaches a classification to err.
func Wrap(kind ErrorKind, err error) *ExecError {
	return &ExecError{Kind: kind, Err: err}
}

// Errorf builds a classified error from a format string.
func Errorf(kind ErrorKind, format string, args ...any) *ExecError {
	return &ExecError{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// Classify extracts the error kind from err. Deadline expiry and net
// errors are recognized even when the runtime did not wrap them.
func Classify(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var ee *ExecError
	if errors.As(err, &ee) {
		return ee.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) {
		if ne.Timeout() {
			return KindTimeout
		}
		return KindConnection
	}
	return KindUnknown
}
