package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/garyjia/promotion-approval/internal/application/port"
	"github.com/garyjia/promotion-approval/internal/domain/entity"
	"github.com/garyjia/promotion-approval/internal/domain/workflow"
	"github.com/garyjia/promotion-approval/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// EmployeeRepository implements port.EmployeeDirectory over the employees table.
// The table is owned by the directory sync; this repository never writes to it.
type EmployeeRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewEmployeeRepository creates a new read-only employee directory
func NewEmployeeRepository(db *sql.DB, logger *zap.Logger) port.EmployeeDirectory {
	return &EmployeeRepository{
		db:     db,
		logger: logger,
	}
}

// GetByID retrieves an employee by ID
func (r *EmployeeRepository) GetByID(ctx context.Context, id string) (*entity.Employee, error) {
	query := `
		SELECT id, name, role, manager_id, department
		FROM employees
		WHERE id = ?
	`

	emp, err := scanEmployee(sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("employee %s: %w", id, port.ErrNotFound)
	}
	if err != nil {
		r.logger.Error("Failed to get employee", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get employee: %w", err)
	}

	return emp, nil
}

// ListDirectReports returns employees whose manager is managerID
func (r *EmployeeRepository) ListDirectReports(ctx context.Context, managerID string) ([]*entity.Employee, error) {
	query := `
		SELECT id, name, role, manager_id, department
		FROM employees
		WHERE manager_id = ?
		ORDER BY id ASC
	`

	rows, err := sqlite.ExecutorFor(ctx, r.db).QueryContext(ctx, query, managerID)
	if err != nil {
		r.logger.Error("Failed to list direct reports", zap.String("manager_id", managerID), zap.Error(err))
		return nil, fmt.Errorf("failed to list direct reports: %w", err)
	}
	defer rows.Close()

	reports := make([]*entity.Employee, 0)
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		reports = append(reports, emp)
	}

	return reports, rows.Err()
}

func scanEmployee(row rowScanner) (*entity.Employee, error) {
	var emp entity.Employee
	var role string
	var managerID, department sql.NullString

	if err := row.Scan(&emp.ID, &emp.Name, &role, &managerID, &department); err != nil {
		return nil, err
	}

	emp.Role = workflow.Role(role)
	emp.ManagerID = managerID.String
	emp.Department = department.String
	return &emp, nil
}

// Verify interface compliance
var _ port.EmployeeDirectory = (*EmployeeRepository)(nil)
