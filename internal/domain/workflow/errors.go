package workflow

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTransition is returned when a state transition is not allowed
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrInvalidState is returned when a status is not valid
	ErrInvalidState = errors.New("invalid state")

	// ErrGuardFailed is returned when a guard condition fails
	ErrGuardFailed = errors.New("guard condition failed")

	// ErrEmptyChain is returned when the approval chain has no roles
	ErrEmptyChain = errors.New("approval chain is empty")

	// ErrUnknownRole is returned for roles outside the known set
	ErrUnknownRole = errors.New("unknown role")

	// ErrDuplicateRole is returned when a chain lists a role twice
	ErrDuplicateRole = errors.New("duplicate role in approval chain")
)

// GuardError is returned by Fire when every matching transition was refused by
// its guard. It matches ErrGuardFailed and the guard's own error.
type GuardError struct {
	Trigger Trigger
	Actor   Role
	From    Status
	Err     error
}

func (e *GuardError) Error() string {
	return fmt.Sprintf("%s: %s cannot %s from %s: %v", ErrGuardFailed, e.Actor, e.Trigger, e.From, e.Err)
}

func (e *GuardError) Unwrap() []error {
	return []error{ErrGuardFailed, e.Err}
}
