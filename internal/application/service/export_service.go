package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/garyjia/promotion-approval/internal/application/port"
	"github.com/garyjia/promotion-approval/internal/domain/entity"
	"github.com/garyjia/promotion-approval/internal/domain/workflow"
)

// Export formats
const (
	FormatExcel = "excel"
	FormatJSON  = "json"
)

// Export is a rendered download. Body is empty for JSON, where Records is
// returned as-is.
type Export struct {
	Format      string
	Filename    string
	ContentType string
	Body        []byte
	Records     []*entity.PromotionView
}

// ExportService produces downloads of the requests in an approver's scope
type ExportService interface {
	Export(ctx context.Context, actor Actor, format string) (*Export, error)
}

type exportServiceImpl struct {
	repo      port.PromotionRepository
	directory port.EmployeeDirectory
	chains    port.ChainConfigRepository
	renderer  port.ReportRenderer
	logger    Logger
}

// NewExportService creates a new ExportService
func NewExportService(
	repo port.PromotionRepository,
	directory port.EmployeeDirectory,
	chains port.ChainConfigRepository,
	renderer port.ReportRenderer,
	logger Logger,
) ExportService {
	return &exportServiceImpl{
		repo:      repo,
		directory: directory,
		chains:    chains,
		renderer:  renderer,
		logger:    logger,
	}
}

func (s *exportServiceImpl) Export(ctx context.Context, actor Actor, format string) (*Export, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = FormatExcel
	}
	if format != FormatExcel && format != FormatJSON {
		return nil, invalid("format", "must be %s or %s", FormatExcel, FormatJSON)
	}

	reqs, err := s.scope(ctx, actor)
	if err != nil {
		return nil, err
	}

	chain, err := loadChain(ctx, s.chains)
	if err != nil {
		return nil, err
	}
	views := entity.NewPromotionViews(reqs, chain)

	out := &Export{Format: format, Records: views}
	if format == FormatJSON {
		return out, nil
	}

	body, err := s.renderer.RenderPromotions(views)
	if err != nil {
		s.logger.Error("Failed to render export", "error", err, "actor_id", actor.UserID)
		return nil, fmt.Errorf("render export: %w", err)
	}
	out.Body = body
	out.Filename = "promotion-requests.xlsx"
	out.ContentType = s.renderer.ContentType()

	s.logger.Info("Promotion requests exported", "actor_id", actor.UserID, "count", len(views))
	return out, nil
}

func (s *exportServiceImpl) scope(ctx context.Context, actor Actor) ([]*entity.PromotionRequest, error) {
	switch actor.Role {
	case workflow.RoleGM, workflow.RoleHR:
		reqs, err := s.repo.ListAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("list requests: %w", err)
		}
		return reqs, nil
	case workflow.RoleManager:
		reports, err := s.directory.ListDirectReports(ctx, actor.UserID)
		if err != nil {
			return nil, fmt.Errorf("list direct reports: %w", err)
		}
		if len(reports) == 0 {
			return nil, nil
		}
		ids := make([]string, 0, len(reports))
		for _, e := range reports {
			ids = append(ids, e.ID)
		}
		reqs, err := s.repo.ListByEmployees(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("list requests: %w", err)
		}
		return reqs, nil
	default:
		return nil, forbidden("role %s cannot export promotion requests", actor.Role)
	}
}
