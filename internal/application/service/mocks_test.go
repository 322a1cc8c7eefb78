package service

import (
	"context"
	"sort"
	"sync"

	"github.com/garyjia/promotion-approval/internal/application/port"
	"github.com/garyjia/promotion-approval/internal/domain/entity"
	"github.com/garyjia/promotion-approval/internal/domain/event"
	"github.com/garyjia/promotion-approval/internal/domain/workflow"
)

// mockPromotionRepo keeps records in memory. Func fields override behavior.
type mockPromotionRepo struct {
	mu      sync.Mutex
	records map[string]*entity.PromotionRequest

	createFunc  func(ctx context.Context, req *entity.PromotionRequest) error
	updateFunc  func(ctx context.Context, req *entity.PromotionRequest) error
	historyFunc func(ctx context.Context, role workflow.Role, userID string, limit, offset int) ([]*entity.PromotionRequest, int, error)
}

func newMockPromotionRepo() *mockPromotionRepo {
	return &mockPromotionRepo{records: make(map[string]*entity.PromotionRequest)}
}

func (m *mockPromotionRepo) put(req *entity.PromotionRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if req.Version == 0 {
		req.Version = 1
	}
	m.records[req.ID] = req.Clone()
}

func (m *mockPromotionRepo) Create(ctx context.Context, req *entity.PromotionRequest) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, req)
	}
	req.Version = 1
	m.put(req)
	return nil
}

func (m *mockPromotionRepo) GetByID(ctx context.Context, id string) (*entity.PromotionRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.records[id]
	if !ok {
		return nil, port.ErrNotFound
	}
	return req.Clone(), nil
}

func (m *mockPromotionRepo) Update(ctx context.Context, req *entity.PromotionRequest) error {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, req)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.records[req.ID]
	if !ok {
		return port.ErrNotFound
	}
	if stored.Version != req.Version {
		return port.ErrConcurrentUpdate
	}
	req.Version++
	m.records[req.ID] = req.Clone()
	return nil
}

func (m *mockPromotionRepo) filter(keep func(*entity.PromotionRequest) bool) []*entity.PromotionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*entity.PromotionRequest, 0)
	for _, r := range m.records {
		if keep(r) {
			out = append(out, r.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (m *mockPromotionRepo) ListByParticipant(ctx context.Context, userID string) ([]*entity.PromotionRequest, error) {
	return m.filter(func(r *entity.PromotionRequest) bool { return r.Involves(userID) }), nil
}

func (m *mockPromotionRepo) ListActive(ctx context.Context) ([]*entity.PromotionRequest, error) {
	return m.filter(func(r *entity.PromotionRequest) bool { return !r.Status.IsFinal() }), nil
}

func (m *mockPromotionRepo) ListActiveByEmployees(ctx context.Context, employeeIDs []string) ([]*entity.PromotionRequest, error) {
	ids := toSet(employeeIDs)
	return m.filter(func(r *entity.PromotionRequest) bool { return ids[r.EmployeeID] && !r.Status.IsFinal() }), nil
}

func (m *mockPromotionRepo) ListByEmployees(ctx context.Context, employeeIDs []string) ([]*entity.PromotionRequest, error) {
	ids := toSet(employeeIDs)
	return m.filter(func(r *entity.PromotionRequest) bool { return ids[r.EmployeeID] }), nil
}

func (m *mockPromotionRepo) ListAll(ctx context.Context) ([]*entity.PromotionRequest, error) {
	return m.filter(func(*entity.PromotionRequest) bool { return true }), nil
}

func (m *mockPromotionRepo) FindApprovalHistory(ctx context.Context, role workflow.Role, userID string, limit, offset int) ([]*entity.PromotionRequest, int, error) {
	if m.historyFunc != nil {
		return m.historyFunc(ctx, role, userID, limit, offset)
	}
	all := m.filter(func(r *entity.PromotionRequest) bool { return r.ActedBy(role, userID) })
	sort.SliceStable(all, func(i, j int) bool { return all[i].UpdatedAt.After(all[j].UpdatedAt) })
	total := len(all)
	if offset >= total {
		return []*entity.PromotionRequest{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

type mockDirectory struct {
	employees map[string]*entity.Employee
	getErr    error
}

func newMockDirectory(employees ...*entity.Employee) *mockDirectory {
	d := &mockDirectory{employees: make(map[string]*entity.Employee)}
	for _, e := range employees {
		d.employees[e.ID] = e
	}
	return d
}

func (m *mockDirectory) GetByID(ctx context.Context, id string) (*entity.Employee, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	e, ok := m.employees[id]
	if !ok {
		return nil, port.ErrNotFound
	}
	return e, nil
}

func (m *mockDirectory) ListDirectReports(ctx context.Context, managerID string) ([]*entity.Employee, error) {
	var out []*entity.Employee
	for _, e := range m.employees {
		if e.ReportsTo(managerID) {
			out = append(out, e)
		}
	}
	return out, nil
}

type mockChainRepo struct {
	chain    workflow.Chain
	getErr   error
	saveFunc func(ctx context.Context, chain workflow.Chain) error
}

func (m *mockChainRepo) GetChain(ctx context.Context) (workflow.Chain, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if m.chain == nil {
		return nil, port.ErrNotFound
	}
	return append(workflow.Chain{}, m.chain...), nil
}

func (m *mockChainRepo) SaveChain(ctx context.Context, chain workflow.Chain) error {
	if m.saveFunc != nil {
		return m.saveFunc(ctx, chain)
	}
	m.chain = append(workflow.Chain{}, chain...)
	return nil
}

type mockTxManager struct {
	withTransactionFunc func(ctx context.Context, fn func(ctx context.Context) error) error
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.withTransactionFunc != nil {
		return m.withTransactionFunc(ctx, fn)
	}
	return fn(ctx)
}

type mockPublisher struct {
	events      []*event.Event
	dispatchErr error
}

func (m *mockPublisher) Dispatch(ctx context.Context, evt *event.Event) error {
	m.events = append(m.events, evt)
	return m.dispatchErr
}

func (m *mockPublisher) types() []event.Type {
	out := make([]event.Type, len(m.events))
	for i, e := range m.events {
		out[i] = e.Type
	}
	return out
}

type mockLogger struct{}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {}
