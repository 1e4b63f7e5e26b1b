package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/garyjia/credentialing/internal/application/dispatcher"
	"github.com/garyjia/credentialing/internal/application/port"
	"github.com/garyjia/credentialing/internal/domain/entity"
	"github.com/garyjia/credentialing/internal/domain/event"
	"pgregory.net/rapid"
)

type generationFixture struct {
	templates *mockTemplateRepo
	apps      *mockApplicationRepo
	tasks     *mockTaskRepo
	history   *mockHistoryRepo
	metrics   *recordingMetrics
	events    []*event.Event
	svc       GenerationService
}

func newGenerationFixture(templates ...*entity.WorkflowTemplate) *generationFixture {
	f := &generationFixture{
		templates: &mockTemplateRepo{templates: map[string]*entity.WorkflowTemplate{}},
		apps:      newMockApplicationRepo(),
		tasks:     newMockTaskRepo(),
		history:   &mockHistoryRepo{},
		metrics:   &recordingMetrics{},
	}
	for _, t := range templates {
		f.templates.templates[t.PayerID] = t
	}

	d := dispatcher.NewDispatcher()
	d.SubscribeAll("recorder", func(ctx context.Context, evt *event.Event) error {
		f.events = append(f.events, evt)
		return nil
	})

	f.svc = NewGenerationService(f.templates, f.apps, f.tasks, f.history, &mockTxManager{}, nopLogger{},
		WithDispatcher(d),
		WithMetrics(f.metrics),
		WithClock(fixedClock{now: time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)}),
	)
	return f
}

func TestGenerate_CreatesApplicationAndTasks(t *testing.T) {
	f := newGenerationFixture(portalTemplate("aetna", 4))

	result, err := f.svc.Generate(context.Background(), GenerateRequest{
		ProviderID: "prov-1",
		PayerIDs:   []string{"aetna"},
		Actor:      "ops@example.com",
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if result.ApplicationsCreated != 1 || result.TasksCreated != 4 {
		t.Errorf("counts = %d apps, %d tasks, want 1, 4", result.ApplicationsCreated, result.TasksCreated)
	}
	if len(result.Outcomes) != 1 || result.Outcomes[0].Outcome != OutcomeCreated {
		t.Fatalf("outcomes = %+v, want one created", result.Outcomes)
	}

	app, _ := f.apps.GetByProviderAndPayer(context.Background(), "prov-1", "aetna")
	if app == nil || app.Status != entity.ApplicationStatusNotStarted {
		t.Fatalf("application = %+v, want not_started", app)
	}
	if app.CreatedBy != "ops@example.com" {
		t.Errorf("CreatedBy = %q", app.CreatedBy)
	}

	for _, task := range f.tasks.tasks {
		if task.Status != entity.TaskStatusPending {
			t.Errorf("task %d status = %s, want pending", task.ID, task.Status)
		}
		if task.TaskType != string(entity.CategoryPortalSubmission) {
			t.Errorf("task %d type = %s, want portal_submission", task.ID, task.TaskType)
		}
	}

	// 1 application row plus 4 task rows
	if len(f.history.rows) != 5 {
		t.Errorf("history rows = %d, want 5", len(f.history.rows))
	}

	if len(f.events) != 2 {
		t.Fatalf("events = %d, want 2", len(f.events))
	}
	if f.events[0].Type != event.TypeApplicationCreated || f.events[1].Type != event.TypeGenerationCompleted {
		t.Errorf("event types = %s, %s", f.events[0].Type, f.events[1].Type)
	}
	if f.events[0].Actor != "ops@example.com" {
		t.Errorf("event actor = %q", f.events[0].Actor)
	}
}

func TestGenerate_MixedOutcomes(t *testing.T) {
	f := newGenerationFixture(portalTemplate("aetna", 2), portalTemplate("cigna", 3))
	f.templates.getFunc = func(ctx context.Context, payerID string) (*entity.WorkflowTemplate, error) {
		if payerID == "broken" {
			return nil, errors.New("disk I/O error")
		}
		return f.templates.templates[payerID], nil
	}

	// Pre-existing application for cigna
	_ = f.apps.Create(context.Background(), &entity.PayerApplication{ProviderID: "prov-1", PayerID: "cigna", Status: entity.ApplicationStatusInProgress})

	result, err := f.svc.Generate(context.Background(), GenerateRequest{
		ProviderID: "prov-1",
		PayerIDs:   []string{"aetna", "cigna", "humana", "broken", "aetna"},
		Actor:      "ops",
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	want := map[string]string{
		"aetna":  OutcomeCreated,
		"cigna":  OutcomeAlreadyCredentialing,
		"humana": OutcomeNoTemplate,
		"broken": OutcomeFailed,
	}
	if len(result.Outcomes) != len(want) {
		t.Fatalf("outcomes = %d, want %d (duplicates collapsed)", len(result.Outcomes), len(want))
	}
	for _, o := range result.Outcomes {
		if o.Outcome != want[o.PayerID] {
			t.Errorf("payer %s outcome = %s, want %s", o.PayerID, o.Outcome, want[o.PayerID])
		}
	}

	if result.ApplicationsCreated != 1 || result.TasksCreated != 2 {
		t.Errorf("counts = %d apps, %d tasks, want 1, 2", result.ApplicationsCreated, result.TasksCreated)
	}
	if len(result.Warnings) != 2 {
		t.Errorf("warnings = %v, want 2 (no template, failed)", result.Warnings)
	}
	if cigna := result.Outcomes[1]; cigna.ApplicationID == 0 {
		t.Error("already credentialing outcome should reference the existing application")
	}
	if len(f.metrics.outcomes) != 4 {
		t.Errorf("metrics outcomes = %v", f.metrics.outcomes)
	}
}

func TestGenerate_UniqueViolationIsAlreadyCredentialing(t *testing.T) {
	f := newGenerationFixture(portalTemplate("aetna", 3))

	// Simulate a concurrent caller inserting between the existence check and the insert.
	f.apps.createFunc = func(ctx context.Context, app *entity.PayerApplication) error {
		f.apps.createFunc = nil
		_ = f.apps.Create(ctx, &entity.PayerApplication{ProviderID: app.ProviderID, PayerID: app.PayerID, Status: entity.ApplicationStatusNotStarted})
		return entity.ErrDuplicateApplication
	}

	result, err := f.svc.Generate(context.Background(), GenerateRequest{
		ProviderID: "prov-1",
		PayerIDs:   []string{"aetna"},
		Actor:      "ops",
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got := result.Outcomes[0].Outcome; got != OutcomeAlreadyCredentialing {
		t.Errorf("outcome = %s, want %s", got, OutcomeAlreadyCredentialing)
	}
	if len(f.tasks.tasks) != 0 {
		t.Errorf("tasks created = %d, want 0", len(f.tasks.tasks))
	}
}

func TestGenerate_Validation(t *testing.T) {
	f := newGenerationFixture()

	tests := []struct {
		name string
		req  GenerateRequest
	}{
		{"missing provider", GenerateRequest{PayerIDs: []string{"a"}, Actor: "ops"}},
		{"missing actor", GenerateRequest{ProviderID: "p", PayerIDs: []string{"a"}}},
		{"empty payers", GenerateRequest{ProviderID: "p", Actor: "ops"}},
		{"blank payers", GenerateRequest{ProviderID: "p", PayerIDs: []string{" ", ""}, Actor: "ops"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Generate(context.Background(), tt.req)
			if !errors.Is(err, ErrValidation) {
				t.Errorf("Generate() error = %v, want %v", err, ErrValidation)
			}
		})
	}
}

func TestGenerate_StartDateDrivesDueDates(t *testing.T) {
	f := newGenerationFixture(portalTemplate("aetna", 2))
	start := mustDate("2026-04-01")

	_, err := f.svc.Generate(context.Background(), GenerateRequest{
		ProviderID: "prov-1",
		PayerIDs:   []string{"aetna"},
		Actor:      "ops",
		StartDate:  &start,
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	tasks, _ := f.tasks.List(context.Background(), port.TaskFilter{ProviderID: "prov-1"})
	if len(tasks) != 2 {
		t.Fatalf("tasks = %d, want 2", len(tasks))
	}
	if got := entity.FormatDate(tasks[0].DueDate); got != "2026-04-03" {
		t.Errorf("first due = %s, want 2026-04-03", got)
	}
	if got := entity.FormatDate(tasks[1].DueDate); got != "2026-04-05" {
		t.Errorf("second due = %s, want 2026-04-05", got)
	}
}

// Generating twice never duplicates applications or tasks.
func TestGenerate_Idempotent_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		payers := []string{"p1", "p2", "p3", "p4"}
		var templates []*entity.WorkflowTemplate
		steps := map[string]int{}
		for _, p := range payers {
			if rapid.Bool().Draw(t, "has_template_"+p) {
				n := rapid.IntRange(1, 6).Draw(t, "steps_"+p)
				steps[p] = n
				templates = append(templates, portalTemplate(p, n))
			}
		}
		f := newGenerationFixture(templates...)

		selected := rapid.SliceOfN(rapid.SampledFrom(payers), 1, 6).Draw(t, "selected")
		req := GenerateRequest{ProviderID: "prov", PayerIDs: selected, Actor: "ops"}

		first, err := f.svc.Generate(context.Background(), req)
		if err != nil {
			t.Fatalf("first Generate() error = %v", err)
		}
		appsAfterFirst := len(f.apps.apps)
		tasksAfterFirst := len(f.tasks.tasks)

		second, err := f.svc.Generate(context.Background(), req)
		if err != nil {
			t.Fatalf("second Generate() error = %v", err)
		}

		if len(f.apps.apps) != appsAfterFirst || len(f.tasks.tasks) != tasksAfterFirst {
			t.Fatalf("second run changed state: apps %d->%d tasks %d->%d",
				appsAfterFirst, len(f.apps.apps), tasksAfterFirst, len(f.tasks.tasks))
		}
		if second.ApplicationsCreated != 0 || second.TasksCreated != 0 {
			t.Fatalf("second run created %d apps, %d tasks", second.ApplicationsCreated, second.TasksCreated)
		}

		wantTasks := 0
		for _, o := range first.Outcomes {
			if o.Outcome == OutcomeCreated {
				wantTasks += steps[o.PayerID]
			}
		}
		if tasksAfterFirst != wantTasks {
			t.Fatalf("tasks = %d, want %d", tasksAfterFirst, wantTasks)
		}
	})
}
