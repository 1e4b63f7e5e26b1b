package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/garyjia/credentialing/internal/application/port"
	"github.com/garyjia/credentialing/internal/domain/entity"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{}) {}
func (nopLogger) Error(string, ...interface{}) {}

type mockTxManager struct {
	calls int
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.calls++
	return fn(ctx)
}

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

type mockTemplateRepo struct {
	templates   map[string]*entity.WorkflowTemplate
	getFunc     func(ctx context.Context, payerID string) (*entity.WorkflowTemplate, error)
	upsertFunc  func(ctx context.Context, tmpl *entity.WorkflowTemplate) error
	upsertedIDs []string
}

func (m *mockTemplateRepo) Upsert(ctx context.Context, tmpl *entity.WorkflowTemplate) error {
	if m.upsertFunc != nil {
		return m.upsertFunc(ctx, tmpl)
	}
	if m.templates == nil {
		m.templates = map[string]*entity.WorkflowTemplate{}
	}
	tmpl.Version++
	m.templates[tmpl.PayerID] = tmpl
	m.upsertedIDs = append(m.upsertedIDs, tmpl.PayerID)
	return nil
}

func (m *mockTemplateRepo) GetByPayerID(ctx context.Context, payerID string) (*entity.WorkflowTemplate, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, payerID)
	}
	return m.templates[payerID], nil
}

func (m *mockTemplateRepo) List(ctx context.Context) ([]*entity.WorkflowTemplate, error) {
	var out []*entity.WorkflowTemplate
	for _, t := range m.templates {
		out = append(out, t)
	}
	return out, nil
}

type mockApplicationRepo struct {
	mu             sync.Mutex
	apps           map[int64]*entity.PayerApplication
	nextID         int64
	createFunc     func(ctx context.Context, app *entity.PayerApplication) error
	updateCalls    int
	contractAt     *time.Time
	contractErr    string
	contractCalled bool
}

func newMockApplicationRepo() *mockApplicationRepo {
	return &mockApplicationRepo{apps: map[int64]*entity.PayerApplication{}}
}

func (m *mockApplicationRepo) Create(ctx context.Context, app *entity.PayerApplication) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, app)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.apps {
		if a.ProviderID == app.ProviderID && a.PayerID == app.PayerID {
			return entity.ErrDuplicateApplication
		}
	}
	m.nextID++
	app.ID = m.nextID
	cp := *app
	m.apps[app.ID] = &cp
	return nil
}

func (m *mockApplicationRepo) GetByID(ctx context.Context, id int64) (*entity.PayerApplication, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.apps[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, nil
}

func (m *mockApplicationRepo) GetByProviderAndPayer(ctx context.Context, providerID, payerID string) (*entity.PayerApplication, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.apps {
		if a.ProviderID == providerID && a.PayerID == payerID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockApplicationRepo) ListByProvider(ctx context.Context, providerID string) ([]*entity.PayerApplication, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.PayerApplication
	for _, a := range m.apps {
		if a.ProviderID == providerID {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PayerID < out[j].PayerID })
	return out, nil
}

func (m *mockApplicationRepo) Update(ctx context.Context, app *entity.PayerApplication) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCalls++
	if _, ok := m.apps[app.ID]; !ok {
		return entity.ErrNotFound
	}
	cp := *app
	m.apps[app.ID] = &cp
	return nil
}

func (m *mockApplicationRepo) SetContractResult(ctx context.Context, id int64, requestedAt *time.Time, triggerErr string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contractCalled = true
	m.contractAt = requestedAt
	m.contractErr = triggerErr
	if a, ok := m.apps[id]; ok {
		a.ContractRequestedAt = requestedAt
		a.ContractTriggerError = triggerErr
	}
	return nil
}

type mockTaskRepo struct {
	tasks       map[int64]*entity.CredentialingTask
	nextID      int64
	createFunc  func(ctx context.Context, task *entity.CredentialingTask) error
	updateCalls int
}

func newMockTaskRepo() *mockTaskRepo {
	return &mockTaskRepo{tasks: map[int64]*entity.CredentialingTask{}}
}

func (m *mockTaskRepo) Create(ctx context.Context, task *entity.CredentialingTask) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, task)
	}
	m.nextID++
	task.ID = m.nextID
	cp := *task
	m.tasks[task.ID] = &cp
	return nil
}

func (m *mockTaskRepo) GetByID(ctx context.Context, id int64) (*entity.CredentialingTask, error) {
	if t, ok := m.tasks[id]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, nil
}

func (m *mockTaskRepo) List(ctx context.Context, filter port.TaskFilter) ([]*entity.CredentialingTask, error) {
	var out []*entity.CredentialingTask
	for _, t := range m.tasks {
		if t.ProviderID != filter.ProviderID {
			continue
		}
		if filter.PayerID != nil && t.PayerID != *filter.PayerID {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PayerID != out[j].PayerID {
			return out[i].PayerID < out[j].PayerID
		}
		return out[i].Order < out[j].Order
	})
	return out, nil
}

func (m *mockTaskRepo) Update(ctx context.Context, task *entity.CredentialingTask) error {
	m.updateCalls++
	if _, ok := m.tasks[task.ID]; !ok {
		return entity.ErrNotFound
	}
	cp := *task
	m.tasks[task.ID] = &cp
	return nil
}

func (m *mockTaskRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := m.tasks[id]; !ok {
		return entity.ErrNotFound
	}
	delete(m.tasks, id)
	return nil
}

func (m *mockTaskRepo) MaxOrder(ctx context.Context, providerID, payerID string) (int, error) {
	maxOrder := 0
	for _, t := range m.tasks {
		if t.ProviderID == providerID && t.PayerID == payerID && t.Order > maxOrder {
			maxOrder = t.Order
		}
	}
	return maxOrder, nil
}

func (m *mockTaskRepo) ListOverdue(ctx context.Context, today time.Time, after *port.OverdueCursor, limit int) ([]*entity.CredentialingTask, error) {
	var out []*entity.CredentialingTask
	for _, t := range m.tasks {
		if !t.IsOverdue(today) {
			continue
		}
		due := entity.Day(*t.DueDate)
		if after != nil && (due.Before(after.DueDate) || (due.Equal(after.DueDate) && t.ID <= after.ID)) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DueDate.Equal(*out[j].DueDate) {
			return out[i].DueDate.Before(*out[j].DueDate)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type mockHistoryRepo struct {
	rows []*entity.StatusHistory
}

func (m *mockHistoryRepo) Create(ctx context.Context, h *entity.StatusHistory) error {
	h.ID = int64(len(m.rows) + 1)
	m.rows = append(m.rows, h)
	return nil
}

func (m *mockHistoryRepo) ListByEntity(ctx context.Context, entityType string, entityID int64) ([]*entity.StatusHistory, error) {
	var out []*entity.StatusHistory
	for _, h := range m.rows {
		if h.EntityType == entityType && h.EntityID == entityID {
			out = append(out, h)
		}
	}
	return out, nil
}

type mockContractClient struct {
	requests []port.ContractRequest
	err      error
}

func (m *mockContractClient) RequestContract(ctx context.Context, req port.ContractRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.requests = append(m.requests, req)
	return m.err
}

type recordingMetrics struct {
	port.NopMetrics
	outcomes  []string
	triggers  []bool
	taskMoves int
	appMoves  int
}

func (m *recordingMetrics) GenerationOutcome(outcome string) {
	m.outcomes = append(m.outcomes, outcome)
}

func (m *recordingMetrics) ContractTrigger(success bool) {
	m.triggers = append(m.triggers, success)
}

func (m *recordingMetrics) TaskTransition(from, to entity.TaskStatus) {
	m.taskMoves++
}

func (m *recordingMetrics) ApplicationTransition(from, to entity.ApplicationStatus) {
	m.appMoves++
}

func portalTemplate(payerID string, steps int) *entity.WorkflowTemplate {
	tmpl := &entity.WorkflowTemplate{
		PayerID:             payerID,
		PayerName:           "Payer " + payerID,
		Category:            entity.CategoryPortalSubmission,
		PortalURL:           "https://portal.example/" + payerID,
		TypicalApprovalDays: 45,
		Version:             1,
		Contact:             entity.SubmissionContact{Name: "Enrollment", Email: "enroll@example.com"},
	}
	for i := 1; i <= steps; i++ {
		tmpl.Tasks = append(tmpl.Tasks, entity.TaskTemplate{
			Title:         "Step",
			Order:         i,
			EstimatedDays: 2,
		})
	}
	return tmpl
}

func ptr[T any](v T) *T {
	return &v
}

func mustDate(s string) time.Time {
	d, err := entity.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}
