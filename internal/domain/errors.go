package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks malformed or incomplete input.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound marks a missing interview, notification, or directory record.
	ErrNotFound = errors.New("not found")
	// ErrPermissionDenied marks an actor driving a transition it does not own.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrInvalidTransition marks a transition whose precondition no longer holds.
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrDuplicateActiveInterview marks a second non-terminal interview for one application.
	ErrDuplicateActiveInterview = errors.New("active interview already exists for application")
	// ErrConflict marks a state mismatch outside the transition table.
	ErrConflict = errors.New("conflict")
)

// InvalidTransitionError carries the attempted transition and the state that
// rejected it, for caller-facing diagnostics.
type InvalidTransitionError struct {
	Transition   Transition
	CurrentState string
}

func (e *InvalidTransitionError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("invalid state transition: %s not allowed in state %s", e.Transition, e.CurrentState)
}

func (e *InvalidTransitionError) Unwrap() error { return ErrInvalidTransition }

func NewInvalidTransition(t Transition, currentState string) error {
	return &InvalidTransitionError{Transition: t, CurrentState: currentState}
}
