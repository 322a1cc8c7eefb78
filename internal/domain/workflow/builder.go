package workflow

import (
	"context"
	"fmt"
)

// GuardFunc decides whether a transition may proceed. A nil error allows it.
type GuardFunc func(ctx context.Context) error

// StateMachineBuilder builds a configured state machine
type StateMachineBuilder interface {
	// Configure returns a state configuration for the given status
	Configure(status Status) StateConfiguration

	// Build creates a new state machine instance with the given initial status
	Build(initial Status) StateMachine
}

// StateConfiguration configures transitions out of a specific status
type StateConfiguration interface {
	// Permit allows the actor role to fire the trigger, moving to the target status
	Permit(trigger Trigger, actor Role, to Status) StateConfiguration

	// PermitIf is Permit with a guard condition
	PermitIf(trigger Trigger, actor Role, to Status, guard GuardFunc) StateConfiguration
}

// transitionKey identifies a transition by trigger and acting role
type transitionKey struct {
	trigger Trigger
	actor   Role
}

type transition struct {
	to    Status
	guard GuardFunc
}

type stateConfig struct {
	from        Status
	transitions map[transitionKey][]transition
}

type stateMachineBuilder struct {
	configurations map[Status]*stateConfig
}

type stateMachine struct {
	current        Status
	configurations map[Status]*stateConfig
}

// NewBuilder creates a new state machine builder
func NewBuilder() StateMachineBuilder {
	return &stateMachineBuilder{
		configurations: make(map[Status]*stateConfig),
	}
}

// Configure returns a state configuration for the given status
func (b *stateMachineBuilder) Configure(status Status) StateConfiguration {
	if !status.IsValid() {
		panic(fmt.Sprintf("invalid status: %s", status))
	}

	config, exists := b.configurations[status]
	if !exists {
		config = &stateConfig{
			from:        status,
			transitions: make(map[transitionKey][]transition),
		}
		b.configurations[status] = config
	}

	return config
}

// Build creates a new state machine instance with the given initial status
func (b *stateMachineBuilder) Build(initial Status) StateMachine {
	if !initial.IsValid() {
		panic(fmt.Sprintf("invalid initial status: %s", initial))
	}

	// Copy so later Configure calls do not leak into built machines
	configsCopy := make(map[Status]*stateConfig, len(b.configurations))
	for status, config := range b.configurations {
		transitionsCopy := make(map[transitionKey][]transition, len(config.transitions))
		for key, ts := range config.transitions {
			transitionsCopy[key] = append([]transition{}, ts...)
		}
		configsCopy[status] = &stateConfig{
			from:        status,
			transitions: transitionsCopy,
		}
	}

	return &stateMachine{
		current:        initial,
		configurations: configsCopy,
	}
}

// Permit allows the actor role to fire the trigger, moving to the target status
func (c *stateConfig) Permit(trigger Trigger, actor Role, to Status) StateConfiguration {
	return c.PermitIf(trigger, actor, to, nil)
}

// PermitIf is Permit with a guard condition
func (c *stateConfig) PermitIf(trigger Trigger, actor Role, to Status, guard GuardFunc) StateConfiguration {
	if !to.IsValid() {
		panic(fmt.Sprintf("invalid target status: %s", to))
	}

	key := transitionKey{trigger: trigger, actor: actor}
	c.transitions[key] = append(c.transitions[key], transition{
		to:    to,
		guard: guard,
	})

	return c
}

// State returns the current status
func (m *stateMachine) State() Status {
	return m.current
}

// CanFire returns true if a transition exists for the trigger and role.
// Guards are only evaluated by Fire.
func (m *stateMachine) CanFire(trigger Trigger, actor Role) bool {
	config, exists := m.configurations[m.current]
	if !exists {
		return false
	}
	return len(config.transitions[transitionKey{trigger: trigger, actor: actor}]) > 0
}

// Fire attempts to execute the trigger, transitioning to the new status if allowed
func (m *stateMachine) Fire(ctx context.Context, trigger Trigger, actor Role) error {
	config, exists := m.configurations[m.current]
	if !exists {
		return fmt.Errorf("%w: %s cannot %s from %s (no configuration)", ErrInvalidTransition, actor, trigger, m.current)
	}

	transitions := config.transitions[transitionKey{trigger: trigger, actor: actor}]
	if len(transitions) == 0 {
		return fmt.Errorf("%w: %s cannot %s from %s", ErrInvalidTransition, actor, trigger, m.current)
	}

	var refused error
	for _, t := range transitions {
		if t.guard != nil {
			if err := t.guard(ctx); err != nil {
				refused = err
				continue
			}
		}
		m.current = t.to
		return nil
	}

	return &GuardError{Trigger: trigger, Actor: actor, From: m.current, Err: refused}
}
