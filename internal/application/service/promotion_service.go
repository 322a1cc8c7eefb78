package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/promotion-approval/internal/application/port"
	"github.com/garyjia/promotion-approval/internal/domain/entity"
	"github.com/garyjia/promotion-approval/internal/domain/event"
	"github.com/garyjia/promotion-approval/internal/domain/workflow"
	"github.com/garyjia/promotion-approval/pkg/utils"
)

// CreateInput is the business content of a new promotion request
type CreateInput struct {
	// EmployeeID defaults to the requester when empty
	EmployeeID         string
	TargetLevel        string
	TargetPosition     string
	RaisePercentage    float64
	PerformanceSummary string
	SkillSummary       string
	CompetencySummary  string
	WorkSummary        string
}

// PromotionService runs promotion requests through the approval chain
type PromotionService interface {
	Create(ctx context.Context, actor Actor, in CreateInput) (*entity.PromotionView, error)
	Get(ctx context.Context, actor Actor, id string) (*entity.PromotionView, error)
	Approve(ctx context.Context, actor Actor, id, comment string) (*entity.PromotionView, error)
	Reject(ctx context.Context, actor Actor, id, reason string) (*entity.PromotionView, error)

	// ListMine returns requests the actor filed or is the subject of, newest first
	ListMine(ctx context.Context, actor Actor) ([]*entity.PromotionView, error)

	// ListPending returns requests currently waiting on the actor's role.
	// Managers only see their direct reports.
	ListPending(ctx context.Context, actor Actor) ([]*entity.PromotionView, error)
}

// PromotionOptions tunes PromotionService behavior
type PromotionOptions struct {
	// ManagerSelfApproval stamps the manager step when a manager files for a direct report
	ManagerSelfApproval bool

	Now   func() time.Time
	NewID func() string
}

type promotionServiceImpl struct {
	repo      port.PromotionRepository
	directory port.EmployeeDirectory
	chains    port.ChainConfigRepository
	txManager port.TransactionManager
	publisher port.EventPublisher
	logger    Logger
	opts      PromotionOptions
}

// NewPromotionService creates a new PromotionService
func NewPromotionService(
	repo port.PromotionRepository,
	directory port.EmployeeDirectory,
	chains port.ChainConfigRepository,
	txManager port.TransactionManager,
	publisher port.EventPublisher,
	logger Logger,
	opts PromotionOptions,
) PromotionService {
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	return &promotionServiceImpl{
		repo:      repo,
		directory: directory,
		chains:    chains,
		txManager: txManager,
		publisher: publisher,
		logger:    logger,
		opts:      opts,
	}
}

// Create validates the input and files a new request
func (s *promotionServiceImpl) Create(ctx context.Context, actor Actor, in CreateInput) (*entity.PromotionView, error) {
	if actor.Role != workflow.RoleEmployee && actor.Role != workflow.RoleManager {
		return nil, forbidden("role %s cannot file promotion requests", actor.Role)
	}

	in, err := validateCreateInput(in)
	if err != nil {
		return nil, err
	}

	employeeID := in.EmployeeID
	if employeeID == "" {
		employeeID = actor.UserID
	}

	subject, err := s.directory.GetByID(ctx, employeeID)
	if err != nil {
		return nil, notFound("employee", employeeID, err)
	}

	if employeeID != actor.UserID {
		if actor.Role == workflow.RoleEmployee {
			return nil, forbidden("employees can only file requests for themselves")
		}
		if !subject.ReportsTo(actor.UserID) {
			return nil, forbidden("only the direct manager of %s can file on their behalf", employeeID)
		}
	}

	chain, err := loadChain(ctx, s.chains)
	if err != nil {
		return nil, err
	}

	now := s.opts.Now()
	req := &entity.PromotionRequest{
		ID:                 s.opts.NewID(),
		EmployeeID:         employeeID,
		RequesterID:        actor.UserID,
		RequesterRole:      actor.Role,
		TargetLevel:        entity.Level(in.TargetLevel),
		TargetPosition:     in.TargetPosition,
		RaisePercentage:    in.RaisePercentage,
		PerformanceSummary: in.PerformanceSummary,
		SkillSummary:       in.SkillSummary,
		CompetencySummary:  in.CompetencySummary,
		WorkSummary:        in.WorkSummary,
		Status:             workflow.StatusSubmitted,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	selfApproved := s.opts.ManagerSelfApproval &&
		workflow.SelfApprovalApplies(chain, actor.Role, employeeID, actor.UserID)
	if selfApproved {
		if err := s.transition(ctx, chain, req, workflow.TriggerApprove, workflow.RoleManager, nil); err != nil {
			return nil, err
		}
		req.Manager = entity.Decision{ApproverID: actor.UserID, ApprovedAt: &now}
	}

	if err := s.repo.Create(ctx, req); err != nil {
		s.logger.Error("Failed to create promotion request", "error", err, "employee_id", employeeID)
		return nil, fmt.Errorf("create request: %w", err)
	}

	s.logger.Info("Promotion request created",
		"id", req.ID,
		"employee_id", employeeID,
		"requester_id", actor.UserID,
		"status", req.Status.String(),
	)

	view := entity.NewPromotionView(req, chain)
	created := event.NewEvent(event.TypePromotionCreated, req.ID, actorPayload(actor, view))
	publish(ctx, s.publisher, s.logger, created)
	if selfApproved {
		approved := event.NewEventWithCorrelation(event.TypePromotionApproved, req.ID, actorPayload(actor, view), created.CorrelationID)
		publish(ctx, s.publisher, s.logger, approved)
	}
	return view, nil
}

// Get returns a single request the actor may see: parties to it, and approvers
// in their scope
func (s *promotionServiceImpl) Get(ctx context.Context, actor Actor, id string) (*entity.PromotionView, error) {
	req, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound("promotion request", id, err)
	}

	if !req.Involves(actor.UserID) {
		switch actor.Role {
		case workflow.RoleGM, workflow.RoleHR:
		case workflow.RoleManager:
			subject, err := s.directory.GetByID(ctx, req.EmployeeID)
			if err != nil || !subject.ReportsTo(actor.UserID) {
				return nil, forbidden("not allowed to view request %s", id)
			}
		default:
			return nil, forbidden("not allowed to view request %s", id)
		}
	}

	chain, err := loadChain(ctx, s.chains)
	if err != nil {
		return nil, err
	}
	return entity.NewPromotionView(req, chain), nil
}

// Approve records the actor's approval as the pending role
func (s *promotionServiceImpl) Approve(ctx context.Context, actor Actor, id, comment string) (*entity.PromotionView, error) {
	comment = utils.SanitizeString(comment)

	return s.decide(ctx, actor, id, workflow.TriggerApprove, func(req *entity.PromotionRequest, now time.Time) {
		d := req.DecisionFor(actor.Role)
		d.ApproverID = actor.UserID
		d.ApprovedAt = &now
		d.Comment = comment
	}, comment)
}

// Reject ends the request. The reason is required and also kept as the role's comment.
func (s *promotionServiceImpl) Reject(ctx context.Context, actor Actor, id, reason string) (*entity.PromotionView, error) {
	reason = utils.SanitizeString(reason)
	if reason == "" {
		return nil, invalid("reason", "is required")
	}

	return s.decide(ctx, actor, id, workflow.TriggerReject, func(req *entity.PromotionRequest, now time.Time) {
		req.DecisionFor(actor.Role).Comment = reason
		req.Rejection = &entity.Rejection{
			ByRole: actor.Role,
			ByID:   actor.UserID,
			Reason: reason,
			At:     now,
		}
	}, reason)
}

// decide runs one approve or reject as a single read-modify-write
func (s *promotionServiceImpl) decide(
	ctx context.Context,
	actor Actor,
	id string,
	trigger workflow.Trigger,
	stamp func(req *entity.PromotionRequest, now time.Time),
	comment string,
) (*entity.PromotionView, error) {
	if !actor.Role.IsApprover() {
		return nil, forbidden("role %s cannot act on promotion requests", actor.Role)
	}

	var (
		updated *entity.PromotionRequest
		chain   workflow.Chain
	)

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		req, err := s.repo.GetByID(txCtx, id)
		if err != nil {
			return notFound("promotion request", id, err)
		}

		chain, err = loadChain(txCtx, s.chains)
		if err != nil {
			return err
		}

		if !req.Status.IsValid() {
			return fmt.Errorf("request %s: %w: %q", req.ID, workflow.ErrInvalidState, req.Status)
		}

		next := req.Clone()
		if err := s.transition(txCtx, chain, next, trigger, actor.Role, s.actorGuard(req, actor)); err != nil {
			return err
		}

		now := s.opts.Now()
		stamp(next, now)
		next.UpdatedAt = now

		if err := s.repo.Update(txCtx, next); err != nil {
			if errors.Is(err, port.ErrConcurrentUpdate) {
				return conflict("request %s was modified concurrently, reload and retry", id)
			}
			return fmt.Errorf("update request: %w", err)
		}

		updated = next
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to record decision",
			"error", err,
			"id", id,
			"trigger", string(trigger),
			"actor_id", actor.UserID,
			"actor_role", actor.Role.String(),
		)
		return nil, err
	}

	completed := trigger == workflow.TriggerApprove && workflow.IsComplete(chain, updated.Status)
	s.logger.Info("Promotion request decided",
		"id", id,
		"trigger", string(trigger),
		"actor_id", actor.UserID,
		"status", updated.Status.String(),
		"completed", completed,
	)

	view := entity.NewPromotionView(updated, chain)
	evtType := event.TypePromotionApproved
	if trigger == workflow.TriggerReject {
		evtType = event.TypePromotionRejected
	}
	payload := actorPayload(actor, view)
	if comment != "" {
		payload[event.KeyComment] = comment
	}
	if completed {
		payload[event.KeyCompleted] = true
	}
	publish(ctx, s.publisher, s.logger, event.NewEvent(evtType, id, payload))

	return view, nil
}

// actorGuard checks the actor holds the pending role for this request and has
// not already decided it. It runs only once the machine accepts the trigger.
func (s *promotionServiceImpl) actorGuard(req *entity.PromotionRequest, actor Actor) workflow.ActorGuard {
	return func(ctx context.Context, role workflow.Role) error {
		if d := req.DecisionFor(role); d != nil && d.Approved() {
			return conflict("%s already approved request %s", role, req.ID)
		}

		if role == workflow.RoleManager {
			subject, err := s.directory.GetByID(ctx, req.EmployeeID)
			if err != nil {
				return notFound("employee", req.EmployeeID, err)
			}
			if !subject.ReportsTo(actor.UserID) {
				return forbidden("only the direct manager of %s can act as manager", req.EmployeeID)
			}
			return nil
		}

		approver, err := s.directory.GetByID(ctx, actor.UserID)
		if err != nil {
			if errors.Is(err, port.ErrNotFound) {
				return forbidden("approver %s is not in the directory", actor.UserID)
			}
			return fmt.Errorf("get approver: %w", err)
		}
		if approver.Role != role {
			return forbidden("user %s does not hold role %s", actor.UserID, role)
		}
		return nil
	}
}

// transition fires the trigger on a chain-derived machine and applies the new
// status. A pending-role mismatch is a conflict; guard errors are returned as is.
func (s *promotionServiceImpl) transition(
	ctx context.Context,
	chain workflow.Chain,
	req *entity.PromotionRequest,
	trigger workflow.Trigger,
	role workflow.Role,
	guard workflow.ActorGuard,
) error {
	machine := workflow.BuildChainMachine(chain, req.Status, guard)
	if !machine.CanFire(trigger, role) {
		if workflow.IsTerminal(chain, req.Status) {
			return conflict("request %s is %s and accepts no further decisions", req.ID, req.Status)
		}
		next, _ := workflow.NextRole(chain, req.Status)
		return conflict("request %s is awaiting %s approval", req.ID, next)
	}

	if err := machine.Fire(ctx, trigger, role); err != nil {
		var guardErr *workflow.GuardError
		if errors.As(err, &guardErr) && guardErr.Err != nil {
			return guardErr.Err
		}
		if errors.Is(err, workflow.ErrInvalidTransition) {
			return conflict("%s cannot %s request %s in status %s", role, trigger, req.ID, req.Status)
		}
		return fmt.Errorf("fire %s: %w", trigger, err)
	}
	req.Status = machine.State()
	return nil
}

func (s *promotionServiceImpl) ListMine(ctx context.Context, actor Actor) ([]*entity.PromotionView, error) {
	reqs, err := s.repo.ListByParticipant(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	chain, err := loadChain(ctx, s.chains)
	if err != nil {
		return nil, err
	}
	return entity.NewPromotionViews(reqs, chain), nil
}

func (s *promotionServiceImpl) ListPending(ctx context.Context, actor Actor) ([]*entity.PromotionView, error) {
	var (
		reqs []*entity.PromotionRequest
		err  error
	)

	switch actor.Role {
	case workflow.RoleManager:
		ids, derr := s.directReportIDs(ctx, actor.UserID)
		if derr != nil {
			return nil, derr
		}
		if len(ids) == 0 {
			return []*entity.PromotionView{}, nil
		}
		reqs, err = s.repo.ListActiveByEmployees(ctx, ids)
	case workflow.RoleGM, workflow.RoleHR:
		reqs, err = s.repo.ListActive(ctx)
	default:
		return nil, forbidden("role %s has no pending approvals", actor.Role)
	}
	if err != nil {
		return nil, fmt.Errorf("list active requests: %w", err)
	}

	chain, err := loadChain(ctx, s.chains)
	if err != nil {
		return nil, err
	}

	pending := make([]*entity.PromotionRequest, 0, len(reqs))
	for _, req := range reqs {
		if workflow.IsPendingForRole(req.Status, actor.Role, chain) {
			pending = append(pending, req)
		}
	}
	return entity.NewPromotionViews(pending, chain), nil
}

func (s *promotionServiceImpl) directReportIDs(ctx context.Context, managerID string) ([]string, error) {
	reports, err := s.directory.ListDirectReports(ctx, managerID)
	if err != nil {
		return nil, fmt.Errorf("list direct reports: %w", err)
	}
	ids := make([]string, 0, len(reports))
	for _, e := range reports {
		ids = append(ids, e.ID)
	}
	return ids, nil
}

func validateCreateInput(in CreateInput) (CreateInput, error) {
	in.EmployeeID = utils.SanitizeString(in.EmployeeID)
	in.TargetLevel = utils.SanitizeString(in.TargetLevel)
	in.TargetPosition = utils.SanitizeString(in.TargetPosition)
	in.PerformanceSummary = utils.SanitizeString(in.PerformanceSummary)
	in.SkillSummary = utils.SanitizeString(in.SkillSummary)
	in.CompetencySummary = utils.SanitizeString(in.CompetencySummary)
	in.WorkSummary = utils.SanitizeString(in.WorkSummary)

	if !entity.Level(in.TargetLevel).IsValid() {
		return in, invalid("targetLevel", "%q is not a recognized level", in.TargetLevel)
	}
	if err := utils.ValidateRange("raisePercentage", in.RaisePercentage, entity.MinRaisePercentage, entity.MaxRaisePercentage); err != nil {
		return in, invalid("raisePercentage", "%v", err)
	}

	required := []struct {
		field string
		value string
	}{
		{"targetPosition", in.TargetPosition},
		{"performanceSummary", in.PerformanceSummary},
		{"skillSummary", in.SkillSummary},
		{"competencySummary", in.CompetencySummary},
		{"workSummary", in.WorkSummary},
	}
	for _, r := range required {
		if err := utils.RequireText(r.field, r.value); err != nil {
			return in, invalid(r.field, "is required")
		}
	}
	return in, nil
}

func notFound(resource, id string, err error) error {
	if errors.Is(err, port.ErrNotFound) {
		return &NotFoundError{Resource: resource, ID: id}
	}
	return fmt.Errorf("get %s %s: %w", resource, id, err)
}

func actorPayload(actor Actor, view *entity.PromotionView) map[string]interface{} {
	payload := map[string]interface{}{
		event.KeyActorID:   actor.UserID,
		event.KeyActorRole: actor.Role.String(),
		event.KeyStatus:    view.Status.String(),
	}
	if view.NextRole != nil {
		payload[event.KeyNextRole] = view.NextRole.String()
	}
	return payload
}
