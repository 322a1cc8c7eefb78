package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/promotion-approval/internal/domain/entity"
	"github.com/garyjia/promotion-approval/internal/domain/workflow"
	"github.com/garyjia/promotion-approval/pkg/database"
)

// openTestDB returns a migrated database in a temp file. A file is used instead
// of :memory: so every pooled connection sees the same schema.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.New(database.Config{
		Path:            filepath.Join(t.TempDir(), "repo.db"),
		MaxOpenConns:    4,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Minute,
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.NewMigrator(db, zap.NewNop()).RunMigrations(database.EmbeddedMigrations()))
	return db.DB
}

func seedEmployees(t *testing.T, db *sql.DB, employees ...entity.Employee) {
	t.Helper()
	for _, e := range employees {
		_, err := db.Exec(`INSERT INTO employees (id, name, role, manager_id, department) VALUES (?, ?, ?, ?, ?)`,
			e.ID, e.Name, string(e.Role), nullString(e.ManagerID), nullString(e.Department))
		require.NoError(t, err)
	}
}

func newRequest(id, employeeID string, at time.Time) *entity.PromotionRequest {
	return &entity.PromotionRequest{
		ID:                 id,
		EmployeeID:         employeeID,
		RequesterID:        employeeID,
		RequesterRole:      workflow.RoleEmployee,
		TargetLevel:        entity.LevelP5,
		TargetPosition:     "Engineer II",
		RaisePercentage:    8,
		PerformanceSummary: "perf",
		SkillSummary:       "skill",
		CompetencySummary:  "competency",
		WorkSummary:        "work",
		Status:             workflow.StatusSubmitted,
		CreatedAt:          at,
		UpdatedAt:          at,
	}
}

func mustCreate(t *testing.T, repo interface {
	Create(ctx context.Context, req *entity.PromotionRequest) error
}, req *entity.PromotionRequest) {
	t.Helper()
	require.NoError(t, repo.Create(context.Background(), req))
}
