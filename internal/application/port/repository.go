package port

import (
	"context"
	"errors"

	"github.com/garyjia/promotion-approval/internal/domain/entity"
	"github.com/garyjia/promotion-approval/internal/domain/workflow"
)

var (
	// ErrNotFound is returned when a record does not exist
	ErrNotFound = errors.New("record not found")

	// ErrConcurrentUpdate is returned when a record changed between read and write
	ErrConcurrentUpdate = errors.New("record was modified concurrently")
)

// PromotionRepository defines persistence operations for PromotionRequest.
// Records are never deleted.
type PromotionRepository interface {
	// Create inserts a new request; Version is set to 1
	Create(ctx context.Context, req *entity.PromotionRequest) error

	// GetByID retrieves a request by its ID, ErrNotFound if missing
	GetByID(ctx context.Context, id string) (*entity.PromotionRequest, error)

	// Update writes the mutable lifecycle fields if req.Version still matches the
	// stored version, then increments req.Version. Returns ErrConcurrentUpdate otherwise.
	Update(ctx context.Context, req *entity.PromotionRequest) error

	// ListByParticipant returns requests filed by or about the user, newest first
	ListByParticipant(ctx context.Context, userID string) ([]*entity.PromotionRequest, error)

	// ListActive returns requests that are neither rejected nor HR approved
	ListActive(ctx context.Context) ([]*entity.PromotionRequest, error)

	// ListActiveByEmployees is ListActive restricted to the given subjects
	ListActiveByEmployees(ctx context.Context, employeeIDs []string) ([]*entity.PromotionRequest, error)

	// ListByEmployees returns every request about the given subjects, newest first
	ListByEmployees(ctx context.Context, employeeIDs []string) ([]*entity.PromotionRequest, error)

	// ListAll returns every request, newest first
	ListAll(ctx context.Context) ([]*entity.PromotionRequest, error)

	// FindApprovalHistory returns one page of requests the user approved or
	// rejected in the role, most recently updated first, plus the total count
	FindApprovalHistory(ctx context.Context, role workflow.Role, userID string, limit, offset int) ([]*entity.PromotionRequest, int, error)
}

// EmployeeDirectory resolves employees and their manager relationships. Read-only.
type EmployeeDirectory interface {
	GetByID(ctx context.Context, id string) (*entity.Employee, error)
	ListDirectReports(ctx context.Context, managerID string) ([]*entity.Employee, error)
}

// ChainConfigRepository stores the single, versionless approval chain
type ChainConfigRepository interface {
	// GetChain returns the configured chain, ErrNotFound when none is stored
	GetChain(ctx context.Context) (workflow.Chain, error)

	// SaveChain replaces the configured chain
	SaveChain(ctx context.Context, chain workflow.Chain) error
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
