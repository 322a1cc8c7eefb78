package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/garyjia/promotion-approval/internal/application/port"
	"github.com/garyjia/promotion-approval/internal/domain/event"
	"github.com/garyjia/promotion-approval/internal/domain/workflow"
)

// ChainService reads and edits the approval chain
type ChainService interface {
	// GetChain returns the configured chain, ErrChainNotConfigured if missing or empty
	GetChain(ctx context.Context) (workflow.Chain, error)

	// UpdateChain replaces the chain. HR only. Takes effect on the next read.
	UpdateChain(ctx context.Context, actor Actor, roles []string) (workflow.Chain, error)

	// EnsureDefault stores roles as the chain if none is configured yet
	EnsureDefault(ctx context.Context, roles []string) error
}

type chainServiceImpl struct {
	repo      port.ChainConfigRepository
	publisher port.EventPublisher
	logger    Logger
}

// NewChainService creates a new ChainService
func NewChainService(repo port.ChainConfigRepository, publisher port.EventPublisher, logger Logger) ChainService {
	return &chainServiceImpl{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
	}
}

func (s *chainServiceImpl) GetChain(ctx context.Context) (workflow.Chain, error) {
	return loadChain(ctx, s.repo)
}

func (s *chainServiceImpl) UpdateChain(ctx context.Context, actor Actor, roles []string) (workflow.Chain, error) {
	if actor.Role != workflow.RoleHR {
		return nil, forbidden("only hr can change the approval chain")
	}

	chain, err := workflow.ParseChain(roles)
	if err != nil {
		return nil, invalid("roles", "%v", err)
	}

	if err := s.repo.SaveChain(ctx, chain); err != nil {
		s.logger.Error("Failed to save approval chain", "error", err, "actor_id", actor.UserID)
		return nil, fmt.Errorf("save chain: %w", err)
	}

	s.logger.Info("Approval chain updated", "chain", chain.Strings(), "actor_id", actor.UserID)

	publish(ctx, s.publisher, s.logger, event.NewEvent(event.TypeChainUpdated, "", map[string]interface{}{
		event.KeyActorID:   actor.UserID,
		event.KeyActorRole: string(actor.Role),
		"chain":            chain.Strings(),
	}))
	return chain, nil
}

func (s *chainServiceImpl) EnsureDefault(ctx context.Context, roles []string) error {
	_, err := s.repo.GetChain(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, port.ErrNotFound) {
		return fmt.Errorf("get chain: %w", err)
	}

	chain, err := workflow.ParseChain(roles)
	if err != nil {
		return fmt.Errorf("default chain: %w", err)
	}
	if err := s.repo.SaveChain(ctx, chain); err != nil {
		return fmt.Errorf("save default chain: %w", err)
	}

	s.logger.Info("Seeded default approval chain", "chain", chain.Strings())
	return nil
}

// loadChain reads the chain fresh. A missing, empty or corrupt chain is a
// configuration error.
func loadChain(ctx context.Context, repo port.ChainConfigRepository) (workflow.Chain, error) {
	chain, err := repo.GetChain(ctx)
	if errors.Is(err, port.ErrNotFound) {
		return nil, ErrChainNotConfigured
	}
	if err != nil {
		return nil, fmt.Errorf("get chain: %w", err)
	}
	if err := chain.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrChainNotConfigured, err)
	}
	return chain, nil
}

// publish dispatches evt after the write committed. Subscriber failures are
// logged and never fail the operation.
func publish(ctx context.Context, publisher port.EventPublisher, logger Logger, evt *event.Event) {
	if publisher == nil {
		return
	}
	if err := publisher.Dispatch(ctx, evt); err != nil {
		logger.Error("Failed to dispatch event", "error", err, "event_type", string(evt.Type), "request_id", evt.RequestID)
	}
}
