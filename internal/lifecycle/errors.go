package lifecycle

import (
	"errors"
	"fmt"
)

// Sentinel errors matched by the typed errors below.
var (
	ErrValidation   = errors.New("invalid input")
	ErrNotPermitted = errors.New("not permitted")
	ErrNotFound     = errors.New("not found")
	ErrOperational  = errors.New("operation failed")
)

// ValidationError reports bad input. Nothing was written.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// AuthorizationError reports that the actor may not perform Action.
type AuthorizationError struct {
	ActorID int64
	Action  string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("not permitted: user %d may not %s", e.ActorID, e.Action)
}

func (e *AuthorizationError) Unwrap() error {
	return ErrNotPermitted
}

// NotFoundError reports a missing task or user.
type NotFoundError struct {
	Kind string
	ID   int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// OperationalError wraps a store or timeout failure. The operation did not
// apply and may be retried as a whole.
type OperationalError struct {
	Op  string
	Err error
}

func (e *OperationalError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *OperationalError) Is(target error) bool {
	return target == ErrOperational
}

func (e *OperationalError) Unwrap() error {
	return e.Err
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

func denied(actor int64, action string) error {
	return &AuthorizationError{ActorID: actor, Action: action}
}

func taskNotFound(id int64) error {
	return &NotFoundError{Kind: "task", ID: id}
}
