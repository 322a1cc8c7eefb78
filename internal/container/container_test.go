package container

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/promotion-approval/internal/application/service"
	"github.com/garyjia/promotion-approval/internal/domain/event"
	"github.com/garyjia/promotion-approval/internal/domain/workflow"
	httpapi "github.com/garyjia/promotion-approval/internal/interfaces/http"
)

const testSecret = "container-test-secret"

func testConfig(t *testing.T) *Config {
	cfg := DefaultConfig()
	cfg.Database.Path = filepath.Join(t.TempDir(), "nested", "promotions.db")
	cfg.Database.MaxOpenConns = 4
	cfg.Database.MaxIdleConns = 2
	cfg.Auth.JWTSecret = testSecret
	cfg.Server.Mode = "test"
	return cfg
}

func startContainer(t *testing.T, cfg *Config) *Container {
	t.Helper()
	c, err := NewContainer(cfg, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, c.Start(context.Background()))
	t.Cleanup(func() {
		if !c.closed.Load() {
			_ = c.Close()
		}
	})
	return c
}

func TestNewContainer_Validation(t *testing.T) {
	_, err := NewContainer(nil, zap.NewNop())
	assert.Error(t, err)

	_, err = NewContainer(DefaultConfig(), nil)
	assert.Error(t, err)

	_, err = NewContainer(DefaultConfig(), zap.NewNop())
	assert.ErrorContains(t, err, "jwt_secret")

	cfg := testConfig(t)
	cfg.Approval.DefaultChain = []string{"manager", "manager"}
	_, err = NewContainer(cfg, zap.NewNop())
	assert.ErrorContains(t, err, "default_chain")
}

func TestContainer_StartSeedsChainAndWiresComponents(t *testing.T) {
	cfg := testConfig(t)
	cfg.Approval.DefaultChain = []string{"gm", "hr"}
	c := startContainer(t, cfg)

	assert.True(t, c.Ready())
	require.NotNil(t, c.Server())
	require.NotNil(t, c.Services())
	require.NotNil(t, c.Repositories())
	assert.NotNil(t, c.Logger())

	chain, err := c.Services().Chain.GetChain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, workflow.Chain{workflow.RoleGM, workflow.RoleHR}, chain)

	handlers := c.Dispatcher().ListHandlers(event.TypePromotionApproved)
	require.Len(t, handlers, 1)
	assert.Equal(t, "audit_log", handlers[0].Name)

	health := c.Health(context.Background())
	assert.True(t, health.Overall)
	assert.True(t, health.Components["database"].Healthy)

	err = c.Start(context.Background())
	assert.ErrorContains(t, err, "already started")
}

func TestContainer_RestartKeepsStoredChain(t *testing.T) {
	cfg := testConfig(t)
	first := startContainer(t, cfg)
	_, err := first.Services().Chain.UpdateChain(context.Background(),
		service.Actor{UserID: "h1", Role: workflow.RoleHR}, []string{"hr"})
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second := startContainer(t, cfg)
	chain, err := second.Services().Chain.GetChain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, workflow.Chain{workflow.RoleHR}, chain)
}

func TestContainer_Close(t *testing.T) {
	c := startContainer(t, testConfig(t))

	require.NoError(t, c.Close())
	assert.False(t, c.Ready())
	assert.ErrorContains(t, c.Close(), "already closed")
	assert.ErrorContains(t, c.Start(context.Background()), "has been closed")

	health := c.Health(context.Background())
	assert.False(t, health.Overall)
	assert.Error(t, c.checkHealth(context.Background()))
}

func TestContainer_EndToEndOverHTTP(t *testing.T) {
	cfg := testConfig(t)
	c := startContainer(t, cfg)

	_, err := c.database.SqlDB.Exec(`INSERT INTO employees (id, name, role, manager_id) VALUES
		('e1', 'Erin', 'employee', 'm1'),
		('m1', 'Mona', 'manager', 'g1'),
		('g1', 'Gus', 'gm', NULL),
		('h1', 'Hana', 'hr', NULL)`)
	require.NoError(t, err)

	auth, err := httpapi.NewAuthenticator(testSecret, cfg.Auth.Issuer)
	require.NoError(t, err)
	router := c.Server().Router()

	call := func(method, path, userID string, role workflow.Role, body interface{}) (int, map[string]interface{}) {
		t.Helper()
		var reader *bytes.Reader
		if body != nil {
			raw, err := json.Marshal(body)
			require.NoError(t, err)
			reader = bytes.NewReader(raw)
		} else {
			reader = bytes.NewReader(nil)
		}
		req := httptest.NewRequest(method, path, reader)
		req.Header.Set("Content-Type", "application/json")
		if userID != "" {
			token, err := auth.Issue(userID, role, time.Hour)
			require.NoError(t, err)
			req.Header.Set("Authorization", "Bearer "+token)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		var resp map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		return w.Code, resp
	}

	code, _ := call(http.MethodGet, "/health", "", "", nil)
	assert.Equal(t, http.StatusOK, code)

	code, resp := call(http.MethodPost, "/api/promotion-requests", "e1", workflow.RoleEmployee, map[string]interface{}{
		"targetLevel":        "P6",
		"targetPosition":     "Senior Engineer",
		"raisePercentage":    12.5,
		"performanceSummary": "exceeded goals",
		"skillSummary":       "go, sql",
		"competencySummary":  "mentoring",
		"workSummary":        "led migration",
	})
	require.Equal(t, http.StatusOK, code, resp)
	created := resp["data"].(map[string]interface{})
	id := created["id"].(string)
	assert.Equal(t, "submitted", created["status"])
	assert.Equal(t, "manager", created["nextRole"])

	code, _ = call(http.MethodPost, "/api/promotion-requests/"+id+"/approve", "g1", workflow.RoleGM, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	for _, step := range []struct {
		userID string
		role   workflow.Role
		status string
	}{
		{"m1", workflow.RoleManager, "manager_approved"},
		{"g1", workflow.RoleGM, "gm_approved"},
		{"h1", workflow.RoleHR, "hr_approved"},
	} {
		code, resp = call(http.MethodPost, "/api/promotion-requests/"+id+"/approve", step.userID, step.role,
			map[string]string{"comment": "ok"})
		require.Equal(t, http.StatusOK, code, resp)
		assert.Equal(t, step.status, resp["data"].(map[string]interface{})["status"])
	}

	code, resp = call(http.MethodGet, "/api/promotion-requests/history", "g1", workflow.RoleGM, nil)
	require.Equal(t, http.StatusOK, code)
	page := resp["data"].(map[string]interface{})
	assert.Equal(t, float64(1), page["total"])

	code, resp = call(http.MethodGet, "/api/promotion-requests/"+id, "e1", workflow.RoleEmployee, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Nil(t, resp["data"].(map[string]interface{})["nextRole"])
}
