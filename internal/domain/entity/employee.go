package entity

import "github.com/garyjia/promotion-approval/internal/domain/workflow"

// Employee is a read-only directory entry
type Employee struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	Role       workflow.Role `json:"role"`
	ManagerID  string        `json:"managerId,omitempty"`
	Department string        `json:"department,omitempty"`
}

// ReportsTo returns true if managerID is the employee's direct manager
func (e *Employee) ReportsTo(managerID string) bool {
	return e.ManagerID != "" && e.ManagerID == managerID
}
