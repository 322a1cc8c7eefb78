package workflow

import "context"

// chainStatuses are the statuses a request can be in while it waits on an approver
var chainStatuses = []Status{
	StatusDraft,
	StatusSubmitted,
	StatusManagerApproved,
	StatusGMApproved,
	StatusHRApproved,
}

// ActorGuard is checked before the given role approves or rejects
type ActorGuard func(ctx context.Context, role Role) error

// BuildChainMachine creates a state machine whose transitions are derived from
// the chain: every non-terminal status permits APPROVE and REJECT for exactly
// the role NextRole assigns to it. A non-nil guard is attached to each of them.
func BuildChainMachine(chain Chain, initial Status, guard ActorGuard) StateMachine {
	builder := NewBuilder()

	for _, status := range chainStatuses {
		if IsTerminal(chain, status) {
			continue
		}
		next, ok := NextRole(chain, status)
		if !ok {
			continue
		}
		approved, _ := next.ApprovedStatus()

		config := builder.Configure(status)
		if guard == nil {
			config.
				Permit(TriggerApprove, next, approved).
				Permit(TriggerReject, next, StatusRejected)
			continue
		}

		role := next
		check := func(ctx context.Context) error { return guard(ctx, role) }
		config.
			PermitIf(TriggerApprove, next, approved, check).
			PermitIf(TriggerReject, next, StatusRejected, check)
	}

	// rejected is terminal - no outgoing transitions

	return builder.Build(initial)
}
