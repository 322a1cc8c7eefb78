package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/garyjia/promotion-approval/internal/application/port"
	"github.com/garyjia/promotion-approval/internal/domain/entity"
	"github.com/garyjia/promotion-approval/internal/domain/workflow"
	"github.com/garyjia/promotion-approval/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

const promotionColumns = `
	id, employee_id, requester_id, requester_role,
	target_level, target_position, raise_percentage,
	performance_summary, skill_summary, competency_summary, work_summary,
	status,
	manager_approver_id, manager_approved_at, manager_comment,
	gm_approver_id, gm_approved_at, gm_comment,
	hr_approver_id, hr_approved_at, hr_comment,
	rejected_by_role, rejected_by_id, rejection_reason, rejected_at,
	version, created_at, updated_at`

// approverColumnByRole whitelists the per-role columns usable in dynamic queries
var approverColumnByRole = map[workflow.Role]string{
	workflow.RoleManager: "manager_approver_id",
	workflow.RoleGM:      "gm_approver_id",
	workflow.RoleHR:      "hr_approver_id",
}

// PromotionRepository implements port.PromotionRepository
type PromotionRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPromotionRepository creates a new promotion request repository
func NewPromotionRepository(db *sql.DB, logger *zap.Logger) port.PromotionRepository {
	return &PromotionRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new promotion request
func (r *PromotionRepository) Create(ctx context.Context, req *entity.PromotionRequest) error {
	query := `INSERT INTO promotion_requests (` + promotionColumns + `
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	req.Version = 1
	args := []interface{}{
		req.ID, req.EmployeeID, req.RequesterID, string(req.RequesterRole),
		string(req.TargetLevel), req.TargetPosition, req.RaisePercentage,
		req.PerformanceSummary, req.SkillSummary, req.CompetencySummary, req.WorkSummary,
		string(req.Status),
	}
	args = append(args, decisionArgs(req)...)
	args = append(args, rejectionArgs(req)...)
	args = append(args, req.Version, req.CreatedAt.UTC(), req.UpdatedAt.UTC())

	if _, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		r.logger.Error("Failed to create promotion request",
			zap.String("employee_id", req.EmployeeID),
			zap.Error(err))
		return fmt.Errorf("failed to create promotion request: %w", err)
	}

	return nil
}

// GetByID retrieves a promotion request by ID
func (r *PromotionRepository) GetByID(ctx context.Context, id string) (*entity.PromotionRequest, error) {
	query := `SELECT ` + promotionColumns + ` FROM promotion_requests WHERE id = ?`

	req, err := scanPromotion(sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("promotion request %s: %w", id, port.ErrNotFound)
	}
	if err != nil {
		r.logger.Error("Failed to get promotion request", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get promotion request: %w", err)
	}

	return req, nil
}

// Update writes status, decisions and rejection with a version check
func (r *PromotionRepository) Update(ctx context.Context, req *entity.PromotionRequest) error {
	query := `
		UPDATE promotion_requests SET
			status = ?,
			manager_approver_id = ?, manager_approved_at = ?, manager_comment = ?,
			gm_approver_id = ?, gm_approved_at = ?, gm_comment = ?,
			hr_approver_id = ?, hr_approved_at = ?, hr_comment = ?,
			rejected_by_role = ?, rejected_by_id = ?, rejection_reason = ?, rejected_at = ?,
			version = version + 1,
			updated_at = ?
		WHERE id = ? AND version = ?
	`

	args := []interface{}{string(req.Status)}
	args = append(args, decisionArgs(req)...)
	args = append(args, rejectionArgs(req)...)
	args = append(args, req.UpdatedAt.UTC(), req.ID, req.Version)

	result, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to update promotion request", zap.String("id", req.ID), zap.Error(err))
		return fmt.Errorf("failed to update promotion request: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		r.logger.Info("Promotion request version conflict",
			zap.String("id", req.ID),
			zap.Int64("version", req.Version))
		return fmt.Errorf("promotion request %s at version %d: %w", req.ID, req.Version, port.ErrConcurrentUpdate)
	}

	req.Version++
	return nil
}

// ListByParticipant returns requests filed by or about the user
func (r *PromotionRepository) ListByParticipant(ctx context.Context, userID string) ([]*entity.PromotionRequest, error) {
	query := `SELECT ` + promotionColumns + `
		FROM promotion_requests
		WHERE employee_id = ? OR requester_id = ?
		ORDER BY created_at DESC, id DESC`

	return r.query(ctx, "list by participant", query, userID, userID)
}

// ListActive returns requests that can still transition
func (r *PromotionRepository) ListActive(ctx context.Context) ([]*entity.PromotionRequest, error) {
	query := `SELECT ` + promotionColumns + `
		FROM promotion_requests
		WHERE status NOT IN (?, ?)
		ORDER BY created_at ASC, id ASC`

	return r.query(ctx, "list active", query, string(workflow.StatusRejected), string(workflow.StatusHRApproved))
}

// ListActiveByEmployees returns active requests about the given subjects
func (r *PromotionRepository) ListActiveByEmployees(ctx context.Context, employeeIDs []string) ([]*entity.PromotionRequest, error) {
	if len(employeeIDs) == 0 {
		return []*entity.PromotionRequest{}, nil
	}

	query := `SELECT ` + promotionColumns + `
		FROM promotion_requests
		WHERE status NOT IN (?, ?) AND employee_id IN (` + placeholders(len(employeeIDs)) + `)
		ORDER BY created_at ASC, id ASC`

	args := []interface{}{string(workflow.StatusRejected), string(workflow.StatusHRApproved)}
	for _, id := range employeeIDs {
		args = append(args, id)
	}

	return r.query(ctx, "list active by employees", query, args...)
}

// ListByEmployees returns every request about the given subjects
func (r *PromotionRepository) ListByEmployees(ctx context.Context, employeeIDs []string) ([]*entity.PromotionRequest, error) {
	if len(employeeIDs) == 0 {
		return []*entity.PromotionRequest{}, nil
	}

	query := `SELECT ` + promotionColumns + `
		FROM promotion_requests
		WHERE employee_id IN (` + placeholders(len(employeeIDs)) + `)
		ORDER BY created_at DESC, id DESC`

	args := make([]interface{}, 0, len(employeeIDs))
	for _, id := range employeeIDs {
		args = append(args, id)
	}

	return r.query(ctx, "list by employees", query, args...)
}

// ListAll returns every request
func (r *PromotionRepository) ListAll(ctx context.Context) ([]*entity.PromotionRequest, error) {
	query := `SELECT ` + promotionColumns + `
		FROM promotion_requests
		ORDER BY created_at DESC, id DESC`

	return r.query(ctx, "list all", query)
}

// FindApprovalHistory returns requests the user acted on in the role.
// Unknown roles yield an empty page.
func (r *PromotionRepository) FindApprovalHistory(ctx context.Context, role workflow.Role, userID string, limit, offset int) ([]*entity.PromotionRequest, int, error) {
	column, ok := approverColumnByRole[role]
	if !ok {
		return []*entity.PromotionRequest{}, 0, nil
	}

	where := ` WHERE ` + column + ` = ? OR (rejected_by_role = ? AND rejected_by_id = ?)`
	args := []interface{}{userID, string(role), userID}

	var total int
	countQuery := `SELECT COUNT(*) FROM promotion_requests` + where
	if err := sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		r.logger.Error("Failed to count approval history",
			zap.String("role", string(role)),
			zap.String("user_id", userID),
			zap.Error(err))
		return nil, 0, fmt.Errorf("failed to count approval history: %w", err)
	}

	if total == 0 {
		return []*entity.PromotionRequest{}, 0, nil
	}

	pageQuery := `SELECT ` + promotionColumns + ` FROM promotion_requests` + where + `
		ORDER BY updated_at DESC, id DESC
		LIMIT ? OFFSET ?`

	records, err := r.query(ctx, "find approval history", pageQuery, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}

	return records, total, nil
}

func (r *PromotionRepository) query(ctx context.Context, op, query string, args ...interface{}) ([]*entity.PromotionRequest, error) {
	rows, err := sqlite.ExecutorFor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query promotion requests", zap.String("op", op), zap.Error(err))
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}
	defer rows.Close()

	records := make([]*entity.PromotionRequest, 0)
	for rows.Next() {
		req, err := scanPromotion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan promotion request: %w", err)
		}
		records = append(records, req)
	}

	return records, rows.Err()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPromotion(row rowScanner) (*entity.PromotionRequest, error) {
	var req entity.PromotionRequest
	var requesterRole, targetLevel, status string
	var decisions [3]struct {
		approverID sql.NullString
		approvedAt sql.NullTime
		comment    sql.NullString
	}
	var rejectedByRole, rejectedByID, rejectionReason sql.NullString
	var rejectedAt sql.NullTime

	err := row.Scan(
		&req.ID, &req.EmployeeID, &req.RequesterID, &requesterRole,
		&targetLevel, &req.TargetPosition, &req.RaisePercentage,
		&req.PerformanceSummary, &req.SkillSummary, &req.CompetencySummary, &req.WorkSummary,
		&status,
		&decisions[0].approverID, &decisions[0].approvedAt, &decisions[0].comment,
		&decisions[1].approverID, &decisions[1].approvedAt, &decisions[1].comment,
		&decisions[2].approverID, &decisions[2].approvedAt, &decisions[2].comment,
		&rejectedByRole, &rejectedByID, &rejectionReason, &rejectedAt,
		&req.Version, &req.CreatedAt, &req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	req.RequesterRole = workflow.Role(requesterRole)
	req.TargetLevel = entity.Level(targetLevel)
	req.Status = workflow.Status(status)

	for i, role := range workflow.ApproverRoles {
		d := req.DecisionFor(role)
		d.ApproverID = decisions[i].approverID.String
		d.Comment = decisions[i].comment.String
		if decisions[i].approvedAt.Valid {
			t := decisions[i].approvedAt.Time
			d.ApprovedAt = &t
		}
	}

	if rejectedByRole.Valid {
		req.Rejection = &entity.Rejection{
			ByRole: workflow.Role(rejectedByRole.String),
			ByID:   rejectedByID.String,
			Reason: rejectionReason.String,
			At:     rejectedAt.Time,
		}
	}

	return &req, nil
}

// decisionArgs flattens the manager, gm and hr decisions in column order
func decisionArgs(req *entity.PromotionRequest) []interface{} {
	args := make([]interface{}, 0, 9)
	for _, role := range workflow.ApproverRoles {
		d := req.DecisionFor(role)
		var approvedAt sql.NullTime
		if d.ApprovedAt != nil {
			approvedAt = sql.NullTime{Time: d.ApprovedAt.UTC(), Valid: true}
		}
		args = append(args, nullString(d.ApproverID), approvedAt, nullString(d.Comment))
	}
	return args
}

func rejectionArgs(req *entity.PromotionRequest) []interface{} {
	if req.Rejection == nil {
		return []interface{}{nil, nil, nil, nil}
	}
	return []interface{}{
		string(req.Rejection.ByRole),
		req.Rejection.ByID,
		req.Rejection.Reason,
		req.Rejection.At.UTC(),
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// Verify interface compliance
var _ port.PromotionRepository = (*PromotionRepository)(nil)
