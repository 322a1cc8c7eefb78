package workflow

import "fmt"

// Role is an organizational role. Manager, GM and HR can act as approvers.
type Role string

const (
	RoleEmployee Role = "employee"
	RoleManager  Role = "manager"
	RoleGM       Role = "gm"
	RoleHR       Role = "hr"
)

// ApproverRoles lists every role that can appear in an approval chain
var ApproverRoles = []Role{RoleManager, RoleGM, RoleHR}

var knownRoles = map[Role]bool{
	RoleEmployee: true,
	RoleManager:  true,
	RoleGM:       true,
	RoleHR:       true,
}

// approvedStatusByRole is the transition table: the status a request moves to
// once the role approves it.
var approvedStatusByRole = map[Role]Status{
	RoleManager: StatusManagerApproved,
	RoleGM:      StatusGMApproved,
	RoleHR:      StatusHRApproved,
}

// lastApprovedByStatus is the reverse of approvedStatusByRole
var lastApprovedByStatus = func() map[Status]Role {
	m := make(map[Status]Role, len(approvedStatusByRole))
	for role, status := range approvedStatusByRole {
		m[status] = role
	}
	return m
}()

// ParseRole converts a raw string into a known role
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !knownRoles[r] {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
	return r, nil
}

// String returns the string representation of the role
func (r Role) String() string {
	return string(r)
}

// IsValid returns true for any known organizational role
func (r Role) IsValid() bool {
	return knownRoles[r]
}

// IsApprover returns true if the role may appear in an approval chain
func (r Role) IsApprover() bool {
	_, ok := approvedStatusByRole[r]
	return ok
}

// ApprovedStatus returns the status reached when this role approves
func (r Role) ApprovedStatus() (Status, bool) {
	s, ok := approvedStatusByRole[r]
	return s, ok
}

// LastApprovedRole returns the role whose approval produced the status.
// Returns false for draft, submitted and rejected.
func LastApprovedRole(s Status) (Role, bool) {
	r, ok := lastApprovedByStatus[s]
	return r, ok
}
