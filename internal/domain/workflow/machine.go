package workflow

import "context"

// StateMachine tracks the current status of one request and validates transitions
type StateMachine interface {
	// State returns the current status
	State() Status

	// CanFire returns true if the current status has a transition for the trigger and role
	CanFire(trigger Trigger, actor Role) bool

	// Fire attempts to execute the trigger on behalf of the role
	Fire(ctx context.Context, trigger Trigger, actor Role) error
}
