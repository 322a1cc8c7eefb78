package service

import "github.com/garyjia/promotion-approval/internal/domain/workflow"

// Actor is the authenticated caller of a service operation
type Actor struct {
	UserID string
	Role   workflow.Role
}

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}
