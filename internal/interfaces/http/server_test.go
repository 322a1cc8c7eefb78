package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/promotion-approval/internal/application/service"
	"github.com/garyjia/promotion-approval/internal/domain/entity"
	"github.com/garyjia/promotion-approval/internal/domain/workflow"
)

const testSecret = "test-secret"

type mockPromotionService struct {
	createFunc  func(ctx context.Context, actor service.Actor, in service.CreateInput) (*entity.PromotionView, error)
	getFunc     func(ctx context.Context, actor service.Actor, id string) (*entity.PromotionView, error)
	approveFunc func(ctx context.Context, actor service.Actor, id, comment string) (*entity.PromotionView, error)
	rejectFunc  func(ctx context.Context, actor service.Actor, id, reason string) (*entity.PromotionView, error)
	mineFunc    func(ctx context.Context, actor service.Actor) ([]*entity.PromotionView, error)
	pendingFunc func(ctx context.Context, actor service.Actor) ([]*entity.PromotionView, error)
}

func (m *mockPromotionService) Create(ctx context.Context, actor service.Actor, in service.CreateInput) (*entity.PromotionView, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, actor, in)
	}
	return view("r1", workflow.StatusSubmitted), nil
}

func (m *mockPromotionService) Get(ctx context.Context, actor service.Actor, id string) (*entity.PromotionView, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, actor, id)
	}
	return view(id, workflow.StatusSubmitted), nil
}

func (m *mockPromotionService) Approve(ctx context.Context, actor service.Actor, id, comment string) (*entity.PromotionView, error) {
	if m.approveFunc != nil {
		return m.approveFunc(ctx, actor, id, comment)
	}
	return view(id, workflow.StatusManagerApproved), nil
}

func (m *mockPromotionService) Reject(ctx context.Context, actor service.Actor, id, reason string) (*entity.PromotionView, error) {
	if m.rejectFunc != nil {
		return m.rejectFunc(ctx, actor, id, reason)
	}
	return view(id, workflow.StatusRejected), nil
}

func (m *mockPromotionService) ListMine(ctx context.Context, actor service.Actor) ([]*entity.PromotionView, error) {
	if m.mineFunc != nil {
		return m.mineFunc(ctx, actor)
	}
	return []*entity.PromotionView{}, nil
}

func (m *mockPromotionService) ListPending(ctx context.Context, actor service.Actor) ([]*entity.PromotionView, error) {
	if m.pendingFunc != nil {
		return m.pendingFunc(ctx, actor)
	}
	return []*entity.PromotionView{}, nil
}

type mockHistoryService struct {
	forActorFunc func(ctx context.Context, actor service.Actor, page, pageSize int) (*service.HistoryPage, error)
}

func (m *mockHistoryService) ForActor(ctx context.Context, actor service.Actor, page, pageSize int) (*service.HistoryPage, error) {
	if m.forActorFunc != nil {
		return m.forActorFunc(ctx, actor, page, pageSize)
	}
	return &service.HistoryPage{Records: []*entity.PromotionView{}, Page: 1, PageSize: 10}, nil
}

func (m *mockHistoryService) FindApprovalHistory(ctx context.Context, role workflow.Role, userID string, page, pageSize int) (*service.HistoryPage, error) {
	return &service.HistoryPage{Records: []*entity.PromotionView{}}, nil
}

type mockChainService struct {
	chain workflow.Chain
	err   error
}

func (m *mockChainService) GetChain(ctx context.Context) (workflow.Chain, error) {
	return m.chain, m.err
}

func (m *mockChainService) UpdateChain(ctx context.Context, actor service.Actor, roles []string) (workflow.Chain, error) {
	chain, err := workflow.ParseChain(roles)
	if err != nil {
		return nil, &service.ValidationError{Field: "roles", Message: err.Error()}
	}
	m.chain = chain
	return chain, nil
}

func (m *mockChainService) EnsureDefault(ctx context.Context, roles []string) error {
	return nil
}

type mockExportService struct {
	exportFunc func(ctx context.Context, actor service.Actor, format string) (*service.Export, error)
}

func (m *mockExportService) Export(ctx context.Context, actor service.Actor, format string) (*service.Export, error) {
	return m.exportFunc(ctx, actor, format)
}

type mockLogger struct{}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {}

func view(id string, status workflow.Status) *entity.PromotionView {
	chain := workflow.Chain{workflow.RoleManager, workflow.RoleGM, workflow.RoleHR}
	return entity.NewPromotionView(&entity.PromotionRequest{ID: id, EmployeeID: "e1", Status: status}, chain)
}

type testServer struct {
	promotions *mockPromotionService
	history    *mockHistoryService
	chains     *mockChainService
	exports    *mockExportService
	auth       *Authenticator
	health     error
	router     *gin.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	auth, err := NewAuthenticator(testSecret, "promotion-approval")
	require.NoError(t, err)

	ts := &testServer{
		promotions: &mockPromotionService{},
		history:    &mockHistoryService{},
		chains:     &mockChainService{chain: workflow.Chain{workflow.RoleManager, workflow.RoleGM, workflow.RoleHR}},
		exports:    &mockExportService{},
		auth:       auth,
	}

	cfg := DefaultServerConfig()
	cfg.Mode = gin.TestMode
	server := NewServer(cfg, Services{
		Promotions: ts.promotions,
		History:    ts.history,
		Chains:     ts.chains,
		Exports:    ts.exports,
	}, auth, func(ctx context.Context) error { return ts.health }, &mockLogger{})
	ts.router = server.Router()
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, body string, userID string, role workflow.Role) *httptest.ResponseRecorder {
	t.Helper()

	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	var req *http.Request
	if reader != nil {
		req = httptest.NewRequest(method, path, reader)
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	if userID != "" {
		token, err := ts.auth.Issue(userID, role, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/health", "", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["success"])

	ts.health = errors.New("database is closed")
	w = ts.do(t, http.MethodGet, "/health", "", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, false, decode(t, w)["success"])
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodOptions, "/api/promotion-requests", "", "", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Authorization")
}

func TestAuthentication(t *testing.T) {
	ts := newTestServer(t)

	otherAuth, err := NewAuthenticator("other-secret", "promotion-approval")
	require.NoError(t, err)
	forged, err := otherAuth.Issue("e1", workflow.RoleHR, time.Hour)
	require.NoError(t, err)
	expired, err := ts.auth.Issue("e1", workflow.RoleEmployee, -time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Token abc"},
		{"garbage", "Bearer not-a-jwt"},
		{"wrong secret", "Bearer " + forged},
		{"expired", "Bearer " + expired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/promotion-requests/my", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			ts.router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			body := decode(t, w)
			assert.Equal(t, false, body["success"])
			assert.NotEmpty(t, body["message"])
		})
	}
}

func TestAuthenticator_IssueRejectsUnknownRole(t *testing.T) {
	auth, err := NewAuthenticator(testSecret, "")
	require.NoError(t, err)

	_, err = auth.Issue("u1", workflow.Role("ceo"), time.Hour)
	assert.ErrorIs(t, err, workflow.ErrUnknownRole)

	_, err = NewAuthenticator("", "")
	assert.Error(t, err)
}

func TestRoleGates(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		role   workflow.Role
		want   int
	}{
		{"employee cannot list pending", http.MethodGet, "/api/promotion-requests/pending", "", workflow.RoleEmployee, http.StatusForbidden},
		{"employee cannot approve", http.MethodPost, "/api/promotion-requests/r1/approve", "", workflow.RoleEmployee, http.StatusForbidden},
		{"gm cannot create", http.MethodPost, "/api/promotion-requests", `{}`, workflow.RoleGM, http.StatusForbidden},
		{"gm cannot edit chain", http.MethodPut, "/api/approval-chain", `{"roles":["hr"]}`, workflow.RoleGM, http.StatusForbidden},
		{"employee cannot read history", http.MethodGet, "/api/promotion-requests/history", "", workflow.RoleEmployee, http.StatusForbidden},
		{"manager lists pending", http.MethodGet, "/api/promotion-requests/pending", "", workflow.RoleManager, http.StatusOK},
		{"hr edits chain", http.MethodPut, "/api/approval-chain", `{"roles":["hr"]}`, workflow.RoleHR, http.StatusOK},
		{"anyone reads chain", http.MethodGet, "/api/approval-chain", "", workflow.RoleEmployee, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do(t, tt.method, tt.path, tt.body, "u1", tt.role)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestCreatePromotion(t *testing.T) {
	ts := newTestServer(t)

	var gotActor service.Actor
	var gotInput service.CreateInput
	ts.promotions.createFunc = func(ctx context.Context, actor service.Actor, in service.CreateInput) (*entity.PromotionView, error) {
		gotActor, gotInput = actor, in
		return view("r1", workflow.StatusManagerApproved), nil
	}

	body := `{
		"employeeId": "e1",
		"targetLevel": "P6",
		"targetPosition": "Senior Engineer",
		"raisePercentage": 15,
		"performanceSummary": "p",
		"skillSummary": "s",
		"competencySummary": "c",
		"workSummary": "w"
	}`
	w := ts.do(t, http.MethodPost, "/api/promotion-requests", body, "m1", workflow.RoleManager)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.Equal(t, service.Actor{UserID: "m1", Role: workflow.RoleManager}, gotActor)
	assert.Equal(t, "e1", gotInput.EmployeeID)
	assert.Equal(t, "P6", gotInput.TargetLevel)
	assert.Equal(t, 15.0, gotInput.RaisePercentage)
	assert.Equal(t, "w", gotInput.WorkSummary)

	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "r1", data["id"])
	assert.Equal(t, "manager_approved", data["status"])
	assert.Equal(t, "gm", data["nextRole"])
}

func TestCreatePromotion_MalformedBody(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/promotion-requests", `{"raisePercentage": "lots"}`, "e1", workflow.RoleEmployee)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		want    int
		message string
	}{
		{"validation", &service.ValidationError{Field: "reason", Message: "is required"}, http.StatusBadRequest, "reason: is required"},
		{"state conflict", &service.StateConflictError{Message: "request r1 is awaiting gm approval"}, http.StatusBadRequest, "request r1 is awaiting gm approval"},
		{"authorization", &service.AuthorizationError{Message: "not your report"}, http.StatusForbidden, "not your report"},
		{"not found", &service.NotFoundError{Resource: "promotion request", ID: "r1"}, http.StatusNotFound, "promotion request r1 not found"},
		{"chain missing", service.ErrChainNotConfigured, http.StatusInternalServerError, "approval chain is not configured"},
		{"unexpected", errors.New("disk full"), http.StatusInternalServerError, "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			ts.promotions.approveFunc = func(ctx context.Context, actor service.Actor, id, comment string) (*entity.PromotionView, error) {
				return nil, tt.err
			}

			w := ts.do(t, http.MethodPost, "/api/promotion-requests/r1/approve", "", "g1", workflow.RoleGM)
			assert.Equal(t, tt.want, w.Code)
			body := decode(t, w)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tt.message, body["message"])
		})
	}
}

func TestApproveAndReject(t *testing.T) {
	ts := newTestServer(t)

	var gotComment, gotReason, gotID string
	ts.promotions.approveFunc = func(ctx context.Context, actor service.Actor, id, comment string) (*entity.PromotionView, error) {
		gotID, gotComment = id, comment
		return view(id, workflow.StatusGMApproved), nil
	}
	ts.promotions.rejectFunc = func(ctx context.Context, actor service.Actor, id, reason string) (*entity.PromotionView, error) {
		gotReason = reason
		if reason == "" {
			return nil, &service.ValidationError{Field: "reason", Message: "is required"}
		}
		return view(id, workflow.StatusRejected), nil
	}

	w := ts.do(t, http.MethodPost, "/api/promotion-requests/abc/approve", "", "g1", workflow.RoleGM)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "abc", gotID)
	assert.Empty(t, gotComment)

	w = ts.do(t, http.MethodPost, "/api/promotion-requests/abc/approve", `{"comment":"ship it"}`, "g1", workflow.RoleGM)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ship it", gotComment)

	w = ts.do(t, http.MethodPost, "/api/promotion-requests/abc/reject", "", "g1", workflow.RoleGM)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPost, "/api/promotion-requests/abc/reject", `{"reason":"budget"}`, "g1", workflow.RoleGM)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "budget", gotReason)
	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "rejected", data["status"])
	assert.Nil(t, data["nextRole"])
}

func TestApprovalHistoryQuery(t *testing.T) {
	ts := newTestServer(t)

	var gotPage, gotSize int
	ts.history.forActorFunc = func(ctx context.Context, actor service.Actor, page, pageSize int) (*service.HistoryPage, error) {
		gotPage, gotSize = page, pageSize
		return &service.HistoryPage{Records: []*entity.PromotionView{}, Page: page, PageSize: pageSize, Total: 25, TotalPages: 3}, nil
	}

	w := ts.do(t, http.MethodGet, "/api/promotion-requests/history?page=2&pageSize=10", "", "m1", workflow.RoleManager)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, gotPage)
	assert.Equal(t, 10, gotSize)

	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, float64(25), data["total"])
	assert.Equal(t, float64(3), data["totalPages"])
	assert.Equal(t, float64(10), data["pageSize"])

	w = ts.do(t, http.MethodGet, "/api/promotion-requests/history", "", "m1", workflow.RoleManager)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, gotPage)
	assert.Equal(t, 0, gotSize)

	w = ts.do(t, http.MethodGet, "/api/promotion-requests/history?page=two", "", "m1", workflow.RoleManager)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExportPromotions(t *testing.T) {
	ts := newTestServer(t)
	ts.exports.exportFunc = func(ctx context.Context, actor service.Actor, format string) (*service.Export, error) {
		switch format {
		case "json":
			return &service.Export{Format: service.FormatJSON, Records: []*entity.PromotionView{view("r1", workflow.StatusSubmitted)}}, nil
		case "excel", "":
			return &service.Export{
				Format:      service.FormatExcel,
				Filename:    "promotion-requests.xlsx",
				ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
				Body:        []byte("PK"),
			}, nil
		default:
			return nil, &service.ValidationError{Field: "format", Message: "must be excel or json"}
		}
	}

	w := ts.do(t, http.MethodGet, "/api/promotion-requests/export?format=excel", "", "h1", workflow.RoleHR)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), `filename="promotion-requests.xlsx"`)
	assert.Equal(t, "PK", w.Body.String())

	w = ts.do(t, http.MethodGet, "/api/promotion-requests/export?format=json", "", "h1", workflow.RoleHR)
	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].(map[string]interface{})
	assert.Len(t, data["records"], 1)

	w = ts.do(t, http.MethodGet, "/api/promotion-requests/export?format=csv", "", "h1", workflow.RoleHR)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestApprovalChainEndpoints(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/api/approval-chain", "", "e1", workflow.RoleEmployee)
	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, []interface{}{"manager", "gm", "hr"}, data["roles"])

	w = ts.do(t, http.MethodPut, "/api/approval-chain", `{"roles":["gm","gm"]}`, "h1", workflow.RoleHR)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPut, "/api/approval-chain", `{"roles":["gm","hr"]}`, "h1", workflow.RoleHR)
	require.Equal(t, http.StatusOK, w.Code)
	data = decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, []interface{}{"gm", "hr"}, data["roles"])

	ts.chains.err = service.ErrChainNotConfigured
	w = ts.do(t, http.MethodGet, "/api/approval-chain", "", "e1", workflow.RoleEmployee)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestGetPromotionNotFound(t *testing.T) {
	ts := newTestServer(t)
	ts.promotions.getFunc = func(ctx context.Context, actor service.Actor, id string) (*entity.PromotionView, error) {
		return nil, &service.NotFoundError{Resource: "promotion request", ID: id}
	}

	w := ts.do(t, http.MethodGet, "/api/promotion-requests/missing", "", "e1", workflow.RoleEmployee)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
