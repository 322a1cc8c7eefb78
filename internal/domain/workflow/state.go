package workflow

// Status is the lifecycle state of a promotion request
type Status string

const (
	StatusDraft           Status = "draft"
	StatusSubmitted       Status = "submitted"
	StatusManagerApproved Status = "manager_approved"
	StatusGMApproved      Status = "gm_approved"
	StatusHRApproved      Status = "hr_approved"
	StatusRejected        Status = "rejected"
)

var validStatuses = map[Status]bool{
	StatusDraft:           true,
	StatusSubmitted:       true,
	StatusManagerApproved: true,
	StatusGMApproved:      true,
	StatusHRApproved:      true,
	StatusRejected:        true,
}

// finalStatuses are terminal regardless of the configured chain. hr_approved ends
// the request even when hr is not last in the chain, where NextRole alone would continue.
var finalStatuses = map[Status]bool{
	StatusHRApproved: true,
	StatusRejected:   true,
}

// String returns the string representation of the status
func (s Status) String() string {
	return string(s)
}

// IsValid returns true if the status is a known lifecycle status
func (s Status) IsValid() bool {
	return validStatuses[s]
}

// IsFinal returns true for statuses that end the lifecycle under any chain.
// Use IsTerminal when the chain is known.
func (s Status) IsFinal() bool {
	return finalStatuses[s]
}
