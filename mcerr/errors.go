// Package mcerr defines the structured error taxonomy shared by every
// motioncore package (see spec §7). Callers distinguish error kinds with
// errors.As against *Error, never by string-matching messages.
package mcerr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind enumerates the error taxonomy from spec §7.
type Kind int

const (
	// InvalidArgument marks non-finite, non-positive, or out-of-domain
	// input rejected at an API boundary.
	InvalidArgument Kind = iota
	// KinematicsUnreachable marks a point the inverse kinematics cannot
	// solve.
	KinematicsUnreachable
	// ProfileInfeasible marks a segment the profile solver cannot
	// satisfy at the requested v_in/v_out/L even at v_peak = max(v_in, v_out).
	ProfileInfeasible
	// PlannerDivergence marks lookahead passes that failed to converge
	// within the configured bounded retries.
	PlannerDivergence
	// StateInvalid marks a control operation attempted from a disallowed
	// controller state.
	StateInvalid
	// BackpressureExhausted marks a step generator stalled on transport
	// credit with no pause/cancel in flight.
	BackpressureExhausted
	// ConfigInvalid marks a configuration rejected at load time.
	ConfigInvalid
)

func (k Kind) String() string {
	switch k {
	case InvalidArgument:
		return "InvalidArgument"
	case KinematicsUnreachable:
		return "KinematicsUnreachable"
	case ProfileInfeasible:
		return "ProfileInfeasible"
	case PlannerDivergence:
		return "PlannerDivergence"
	case StateInvalid:
		return "StateInvalid"
	case BackpressureExhausted:
		return "BackpressureExhausted"
	case ConfigInvalid:
		return "ConfigInvalid"
	default:
		return "Unknown"
	}
}

// Error is the structured error type every motioncore package returns.
// SeqID is -1 when the error isn't attached to a particular segment.
type Error struct {
	Kind  Kind
	SeqID int64
	msg   string
	cause error
}

func (e *Error) Error() string {
	if e.SeqID >= 0 {
		return fmt.Sprintf("%s: seq_id=%d: %s", e.Kind, e.SeqID, e.msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.msg)
}

// Unwrap exposes the wrapped cause, if any, to errors.Is/errors.As.
func (e *Error) Unwrap() error { return e.cause }

// New builds a *Error with no segment context.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, SeqID: -1, msg: fmt.Sprintf(format, args...)}
}

// WithSeq attaches a segment's seq_id for diagnostics.
func WithSeq(kind Kind, seqID int64, format string, args ...any) *Error {
	return &Error{Kind: kind, SeqID: seqID, msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches cause's stack trace (via pkg/errors) to a new *Error of the
// given kind, preserving cause for errors.Is/errors.As on the wrapped chain.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, SeqID: -1, msg: fmt.Sprintf(format, args...), cause: errors.WithStack(cause)}
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
