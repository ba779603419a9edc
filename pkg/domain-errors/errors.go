// Package domainerrors defines the coded error type services return to
// callers. Stores report infrastructure facts via pkg/platform/sentinel;
// services translate those facts into coded domain errors here so callers
// can branch on the code without string matching.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error. Codes are stable API: callers and the
// transport layer dispatch on them.
type Code string

const (
	CodeInvalidInput       Code = "invalid_input"
	CodeBadRequest         Code = "bad_request"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeForbidden          Code = "forbidden"
	CodeTimeout            Code = "timeout"
	CodeInternal           Code = "internal"
	CodeUnavailable        Code = "unavailable"
	CodeInvariantViolation Code = "invariant_violation"

	// Registration admission outcomes. These are precondition failures the
	// caller must react to (pick another event, wait, escalate); they are
	// never retried automatically.
	CodeAccountBlocked    Code = "account_blocked"
	CodeEventNotOpen      Code = "event_not_open"
	CodeDeadlinePassed    Code = "deadline_passed"
	CodeEventFull         Code = "event_full"
	CodeAlreadyRegistered Code = "already_registered"
	CodeTooLateToCancel   Code = "too_late_to_cancel"

	// Deletion scheduling outcomes.
	CodeAlreadyEligible  Code = "already_eligible"
	CodeAlreadyScheduled Code = "already_scheduled"
	CodeNotYetEligible   Code = "not_yet_eligible"
)

// Error is a coded domain error, optionally wrapping an underlying cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a domain error with a code and message.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error. The cause stays
// reachable through errors.Is/As for sentinel checks.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err or anything it wraps carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	for errors.As(err, &de) {
		if de.Code == code {
			return true
		}
		err = de.cause
		de = nil
	}
	return false
}

// CodeOf returns the outermost code on err, or CodeInternal when err carries
// no domain code.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// Is forwards to errors.Is so call sites importing this package under a
// short alias don't also need the stdlib errors import.
func Is(err, target error) bool { return errors.Is(err, target) }
