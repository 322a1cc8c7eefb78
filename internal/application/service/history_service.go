package service

import (
	"context"
	"fmt"

	"github.com/garyjia/promotion-approval/internal/application/port"
	"github.com/garyjia/promotion-approval/internal/domain/entity"
	"github.com/garyjia/promotion-approval/internal/domain/workflow"
)

// Page size bounds for approval history
const (
	DefaultHistoryPageSize = 10
	MaxHistoryPageSize     = 50
)

// HistoryPage is one page of requests an approver acted on
type HistoryPage struct {
	Records    []*entity.PromotionView `json:"records"`
	Page       int                     `json:"page"`
	PageSize   int                     `json:"pageSize"`
	Total      int                     `json:"total"`
	TotalPages int                     `json:"totalPages"`
}

// HistoryService answers "what did I approve or reject"
type HistoryService interface {
	// ForActor returns the actor's own history. Only approver roles have one.
	ForActor(ctx context.Context, actor Actor, page, pageSize int) (*HistoryPage, error)

	// FindApprovalHistory returns requests the user approved or rejected in the
	// role, most recently updated first. An unknown role yields an empty page.
	FindApprovalHistory(ctx context.Context, role workflow.Role, userID string, page, pageSize int) (*HistoryPage, error)
}

type historyServiceImpl struct {
	repo   port.PromotionRepository
	chains port.ChainConfigRepository
	logger Logger
}

// NewHistoryService creates a new HistoryService
func NewHistoryService(repo port.PromotionRepository, chains port.ChainConfigRepository, logger Logger) HistoryService {
	return &historyServiceImpl{
		repo:   repo,
		chains: chains,
		logger: logger,
	}
}

func (s *historyServiceImpl) ForActor(ctx context.Context, actor Actor, page, pageSize int) (*HistoryPage, error) {
	if !actor.Role.IsApprover() {
		return nil, forbidden("role %s has no approval history", actor.Role)
	}
	return s.FindApprovalHistory(ctx, actor.Role, actor.UserID, page, pageSize)
}

func (s *historyServiceImpl) FindApprovalHistory(ctx context.Context, role workflow.Role, userID string, page, pageSize int) (*HistoryPage, error) {
	page, pageSize = normalizePage(page, pageSize)

	result := &HistoryPage{
		Records:  []*entity.PromotionView{},
		Page:     page,
		PageSize: pageSize,
	}
	if !role.IsApprover() {
		return result, nil
	}

	reqs, total, err := s.repo.FindApprovalHistory(ctx, role, userID, pageSize, (page-1)*pageSize)
	if err != nil {
		s.logger.Error("Failed to query approval history", "error", err, "role", role.String(), "user_id", userID)
		return nil, fmt.Errorf("find approval history: %w", err)
	}

	chain, err := loadChain(ctx, s.chains)
	if err != nil {
		return nil, err
	}

	result.Records = entity.NewPromotionViews(reqs, chain)
	result.Total = total
	result.TotalPages = (total + pageSize - 1) / pageSize
	return result, nil
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultHistoryPageSize
	}
	if pageSize > MaxHistoryPageSize {
		pageSize = MaxHistoryPageSize
	}
	return page, pageSize
}
