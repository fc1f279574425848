package lead

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by stores when no record has the given identity.
var ErrNotFound = errors.New("not found")

// FailureKind classifies a recoverable discovery failure. Every kind is
// recoverable at the entity level; none aborts a batch run.
type FailureKind string

// Failure kinds surfaced by fetchers, searchers and extractors.
const (
	FailTimeout     FailureKind = "network_timeout"
	FailNetwork     FailureKind = "network_error"
	FailBlocked     FailureKind = "blocked"
	FailRateLimited FailureKind = "rate_limited"
	FailParse       FailureKind = "parse_failure"
	FailValidation  FailureKind = "validation_failure"
	FailCircuitOpen FailureKind = "circuit_open"
)

// DiscoveryError is a typed, recoverable failure from an external
// dependency or a candidate check.
type DiscoveryError struct {
	Kind FailureKind
	Op   string
	Err  error
}

func (e *DiscoveryError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *DiscoveryError) Unwrap() error { return e.Err }

// NewDiscoveryError wraps err with an operation name and failure kind.
func NewDiscoveryError(kind FailureKind, op string, err error) *DiscoveryError {
	return &DiscoveryError{Kind: kind, Op: op, Err: err}
}

// KindOf extracts the failure kind from an error chain, or "" when the
// error is not a discovery failure.
func KindOf(err error) FailureKind {
	var de *DiscoveryError
	if errors.As(err, &de) {
		return de.Kind
	}
	var ce *CircuitOpenError
	if errors.As(err, &ce) {
		return FailCircuitOpen
	}
	return ""
}

// Transient reports whether the failure should feed the circuit breaker.
func Transient(err error) bool {
	switch KindOf(err) {
	case FailTimeout, FailNetwork, FailBlocked, FailRateLimited:
		return true
	}
	return false
}

// CircuitOpenError is returned when the rate guard refuses a call
// because the dependency's breaker is open.
type CircuitOpenError struct {
	Dependency string
	RetryAfter time.Duration
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("circuit open for %s, retry after %s", e.Dependency, e.RetryAfter)
}

// IsCircuitOpen reports whether the error chain contains an open-circuit refusal.
func IsCircuitOpen(err error) bool {
	var ce *CircuitOpenError
	return errors.As(err, &ce)
}
