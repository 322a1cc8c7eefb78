package entity

import (
	"time"

	"github.com/garyjia/promotion-approval/internal/domain/workflow"
)

// PromotionRequest is a promotion or raise request moving through the approval chain
type PromotionRequest struct {
	ID            string        `json:"id"`
	EmployeeID    string        `json:"employeeId"`
	RequesterID   string        `json:"requesterId"`
	RequesterRole workflow.Role `json:"requesterRole"`

	// Business content, immutable after creation
	TargetLevel        Level   `json:"targetLevel"`
	TargetPosition     string  `json:"targetPosition"`
	RaisePercentage    float64 `json:"raisePercentage"`
	PerformanceSummary string  `json:"performanceSummary"`
	SkillSummary       string  `json:"skillSummary"`
	CompetencySummary  string  `json:"competencySummary"`
	WorkSummary        string  `json:"workSummary"`

	Status workflow.Status `json:"status"`

	Manager Decision `json:"manager"`
	GM      Decision `json:"gm"`
	HR      Decision `json:"hr"`

	Rejection *Rejection `json:"rejection,omitempty"`

	// Version is bumped on every write and guards against lost updates
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Decision is the per-role approval record. Comment may be set without an
// approver when the role rejected the request.
type Decision struct {
	ApproverID string     `json:"approverId,omitempty"`
	ApprovedAt *time.Time `json:"approvedAt,omitempty"`
	Comment    string     `json:"comment,omitempty"`
}

// Approved returns true once the role has approved
func (d Decision) Approved() bool {
	return d.ApproverID != ""
}

// Rejection records who ended the request and why
type Rejection struct {
	ByRole workflow.Role `json:"rejectedByRole"`
	ByID   string        `json:"rejectedById"`
	Reason string        `json:"reason"`
	At     time.Time     `json:"rejectedAt"`
}

// DecisionFor returns the decision slot for an approver role, nil otherwise
func (p *PromotionRequest) DecisionFor(role workflow.Role) *Decision {
	switch role {
	case workflow.RoleManager:
		return &p.Manager
	case workflow.RoleGM:
		return &p.GM
	case workflow.RoleHR:
		return &p.HR
	default:
		return nil
	}
}

// Involves returns true if the user filed the request or is its subject
func (p *PromotionRequest) Involves(userID string) bool {
	return p.EmployeeID == userID || p.RequesterID == userID
}

// ActedBy returns true if the user approved or rejected the request in the role
func (p *PromotionRequest) ActedBy(role workflow.Role, userID string) bool {
	if d := p.DecisionFor(role); d != nil && d.ApproverID == userID {
		return true
	}
	return p.Rejection != nil && p.Rejection.ByRole == role && p.Rejection.ByID == userID
}

// Clone returns a deep copy so callers can mutate without touching the original
func (p *PromotionRequest) Clone() *PromotionRequest {
	c := *p
	c.Manager = p.Manager.clone()
	c.GM = p.GM.clone()
	c.HR = p.HR.clone()
	if p.Rejection != nil {
		r := *p.Rejection
		c.Rejection = &r
	}
	return &c
}

func (d Decision) clone() Decision {
	if d.ApprovedAt != nil {
		t := *d.ApprovedAt
		d.ApprovedAt = &t
	}
	return d
}

// PromotionView is a request enriched with the role that must act next.
// NextRole is computed at read time from the current chain and never stored.
type PromotionView struct {
	*PromotionRequest
	NextRole *workflow.Role `json:"nextRole"`
}

// NewPromotionView computes the pending role for the request under the chain
func NewPromotionView(req *PromotionRequest, chain workflow.Chain) *PromotionView {
	view := &PromotionView{PromotionRequest: req}
	if workflow.IsTerminal(chain, req.Status) {
		return view
	}
	if next, ok := workflow.NextRole(chain, req.Status); ok {
		view.NextRole = &next
	}
	return view
}

// NewPromotionViews maps NewPromotionView over the requests
func NewPromotionViews(reqs []*PromotionRequest, chain workflow.Chain) []*PromotionView {
	views := make([]*PromotionView, 0, len(reqs))
	for _, req := range reqs {
		views = append(views, NewPromotionView(req, chain))
	}
	return views
}
