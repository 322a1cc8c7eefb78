package workflow

import "fmt"

// Chain is the configured, ordered sequence of approver roles a request must pass through
type Chain []Role

// ParseChain converts raw role names into a validated chain
func ParseChain(roles []string) (Chain, error) {
	chain := make(Chain, 0, len(roles))
	for _, raw := range roles {
		r, err := ParseRole(raw)
		if err != nil {
			return nil, err
		}
		chain = append(chain, r)
	}
	if err := chain.Validate(); err != nil {
		return nil, err
	}
	return chain, nil
}

// Validate checks that the chain is non-empty and lists distinct approver roles
func (c Chain) Validate() error {
	if len(c) == 0 {
		return ErrEmptyChain
	}
	seen := make(map[Role]bool, len(c))
	for _, r := range c {
		if !r.IsApprover() {
			return fmt.Errorf("%w: %q cannot approve", ErrUnknownRole, r)
		}
		if seen[r] {
			return fmt.Errorf("%w: %q", ErrDuplicateRole, r)
		}
		seen[r] = true
	}
	return nil
}

// IndexOf returns the position of the role in the chain, or -1
func (c Chain) IndexOf(r Role) int {
	for i, role := range c {
		if role == r {
			return i
		}
	}
	return -1
}

// Strings returns the chain as plain role names
func (c Chain) Strings() []string {
	out := make([]string, len(c))
	for i, r := range c {
		out[i] = string(r)
	}
	return out
}

// NextRole returns the role that must act next on a request in the given status.
// It returns false when the request is rejected, the chain is empty, or the
// last role of the chain has already approved.
//
// If the role that last approved is no longer part of the chain (the chain was
// reconfigured after it acted), the request restarts at chain[0].
func NextRole(chain Chain, status Status) (Role, bool) {
	if len(chain) == 0 || status == StatusRejected {
		return "", false
	}

	last, approved := LastApprovedRole(status)
	if !approved {
		return chain[0], true
	}

	idx := chain.IndexOf(last)
	if idx < 0 {
		return chain[0], true
	}
	if idx == len(chain)-1 {
		return "", false
	}
	return chain[idx+1], true
}

// IsTerminal reports whether no further transition is possible: the request is
// rejected, HR has signed off, or the chain is exhausted.
func IsTerminal(chain Chain, status Status) bool {
	if status.IsFinal() {
		return true
	}
	_, ok := NextRole(chain, status)
	return !ok
}

// IsComplete reports whether the request passed every role of a non-empty chain
func IsComplete(chain Chain, status Status) bool {
	if len(chain) == 0 || status == StatusRejected {
		return false
	}
	if status == StatusHRApproved {
		return true
	}
	_, ok := NextRole(chain, status)
	return !ok
}

// IsPendingForRole reports whether the request waits on the given role
func IsPendingForRole(status Status, role Role, chain Chain) bool {
	if IsTerminal(chain, status) {
		return false
	}
	next, ok := NextRole(chain, status)
	return ok && next == role
}

// SelfApprovalApplies reports whether a manager filing for one of their reports
// stands in for the manager step. It only holds when manager is first in the chain.
func SelfApprovalApplies(chain Chain, requesterRole Role, employeeID, requesterID string) bool {
	return len(chain) > 0 &&
		chain[0] == RoleManager &&
		requesterRole == RoleManager &&
		employeeID != requesterID
}
