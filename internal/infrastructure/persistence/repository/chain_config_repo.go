package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/garyjia/promotion-approval/internal/application/port"
	"github.com/garyjia/promotion-approval/internal/domain/entity"
	"github.com/garyjia/promotion-approval/internal/domain/workflow"
	"github.com/garyjia/promotion-approval/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// ChainConfigRepository implements port.ChainConfigRepository on the
// system_config key-value table. The chain is stored as a JSON array.
type ChainConfigRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewChainConfigRepository creates a new chain config repository
func NewChainConfigRepository(db *sql.DB, logger *zap.Logger) port.ChainConfigRepository {
	return &ChainConfigRepository{
		db:     db,
		logger: logger,
	}
}

// GetChain returns the stored approval chain
func (r *ChainConfigRepository) GetChain(ctx context.Context) (workflow.Chain, error) {
	var raw string
	err := sqlite.ExecutorFor(ctx, r.db).
		QueryRowContext(ctx, `SELECT value FROM system_config WHERE key = ?`, entity.ConfigKeyApprovalChain).
		Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("approval chain: %w", port.ErrNotFound)
	}
	if err != nil {
		r.logger.Error("Failed to read approval chain", zap.Error(err))
		return nil, fmt.Errorf("failed to read approval chain: %w", err)
	}

	var roles []string
	if err := json.Unmarshal([]byte(raw), &roles); err != nil {
		r.logger.Error("Stored approval chain is malformed", zap.String("value", raw), zap.Error(err))
		return nil, fmt.Errorf("failed to decode approval chain: %w", err)
	}

	chain := make(workflow.Chain, 0, len(roles))
	for _, role := range roles {
		chain = append(chain, workflow.Role(role))
	}
	return chain, nil
}

// SaveChain replaces the stored approval chain
func (r *ChainConfigRepository) SaveChain(ctx context.Context, chain workflow.Chain) error {
	value, err := json.Marshal(chain.Strings())
	if err != nil {
		return fmt.Errorf("failed to encode approval chain: %w", err)
	}

	query := `
		INSERT INTO system_config (key, value, description, updated_at)
		VALUES (?, ?, 'Ordered approver roles for promotion requests', ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`

	if _, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query, entity.ConfigKeyApprovalChain, string(value), time.Now().UTC()); err != nil {
		r.logger.Error("Failed to save approval chain", zap.Strings("chain", chain.Strings()), zap.Error(err))
		return fmt.Errorf("failed to save approval chain: %w", err)
	}

	r.logger.Info("Approval chain saved", zap.Strings("chain", chain.Strings()))
	return nil
}

// Verify interface compliance
var _ port.ChainConfigRepository = (*ChainConfigRepository)(nil)
