package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/garyjia/credentialing/internal/domain/entity"
	domainwf "github.com/garyjia/credentialing/internal/domain/workflow"
	"pgregory.net/rapid"
)

func TestTaskTransitions(t *testing.T) {
	allowed := map[entity.TaskStatus][]entity.TaskStatus{
		entity.TaskStatusPending:       {entity.TaskStatusInProgress, entity.TaskStatusCompleted, entity.TaskStatusBlocked, entity.TaskStatusNotApplicable},
		entity.TaskStatusInProgress:    {entity.TaskStatusPending, entity.TaskStatusCompleted, entity.TaskStatusBlocked, entity.TaskStatusNotApplicable},
		entity.TaskStatusBlocked:       {entity.TaskStatusPending, entity.TaskStatusInProgress, entity.TaskStatusNotApplicable},
		entity.TaskStatusCompleted:     {entity.TaskStatusPending, entity.TaskStatusInProgress},
		entity.TaskStatusNotApplicable: {},
	}

	ctx := context.Background()
	for _, from := range entity.TaskStatuses {
		for _, to := range entity.TaskStatuses {
			if from == to {
				continue
			}
			want := contains(allowed[from], to)
			t.Run(string(from)+"->"+string(to), func(t *testing.T) {
				err := TransitionTask(ctx, from, to)
				if want && err != nil {
					t.Errorf("TransitionTask() error = %v, want nil", err)
				}
				if !want && !errors.Is(err, domainwf.ErrInvalidTransition) {
					t.Errorf("TransitionTask() error = %v, want %v", err, domainwf.ErrInvalidTransition)
				}
			})
		}
	}
}

func TestTransitionTask_SameStatus(t *testing.T) {
	if err := TransitionTask(context.Background(), entity.TaskStatusNotApplicable, entity.TaskStatusNotApplicable); err != nil {
		t.Errorf("same-status transition should be a no-op, got %v", err)
	}
}

func TestTransitionTask_UnknownStatus(t *testing.T) {
	err := TransitionTask(context.Background(), entity.TaskStatusPending, entity.TaskStatus("done"))
	if !errors.Is(err, domainwf.ErrInvalidState) {
		t.Errorf("TransitionTask() error = %v, want %v", err, domainwf.ErrInvalidState)
	}
}

func TestApplicationTransitions(t *testing.T) {
	allowed := map[entity.ApplicationStatus][]entity.ApplicationStatus{
		entity.ApplicationStatusNotStarted:  {entity.ApplicationStatusInProgress, entity.ApplicationStatusWithdrawn},
		entity.ApplicationStatusInProgress:  {entity.ApplicationStatusSubmitted, entity.ApplicationStatusWithdrawn},
		entity.ApplicationStatusSubmitted:   {entity.ApplicationStatusUnderReview, entity.ApplicationStatusWithdrawn},
		entity.ApplicationStatusUnderReview: {entity.ApplicationStatusApproved, entity.ApplicationStatusDenied, entity.ApplicationStatusOnHold, entity.ApplicationStatusWithdrawn},
		entity.ApplicationStatusOnHold:      {entity.ApplicationStatusUnderReview, entity.ApplicationStatusWithdrawn},
	}

	d := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	entry := ApplicationEntry{SubmittedDate: &d, EffectiveDate: &d}

	ctx := context.Background()
	for _, from := range entity.ApplicationStatuses {
		for _, to := range entity.ApplicationStatuses {
			if from == to {
				continue
			}
			want := contains(allowed[from], to)
			t.Run(string(from)+"->"+string(to), func(t *testing.T) {
				err := TransitionApplication(ctx, from, to, entry)
				if want && err != nil {
					t.Errorf("TransitionApplication() error = %v, want nil", err)
				}
				if !want && !errors.Is(err, domainwf.ErrInvalidTransition) {
					t.Errorf("TransitionApplication() error = %v, want %v", err, domainwf.ErrInvalidTransition)
				}
			})
		}
	}
}

func TestApplicationPreconditions(t *testing.T) {
	d := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		from      entity.ApplicationStatus
		to        entity.ApplicationStatus
		entry     ApplicationEntry
		wantField string
		wantEdge  bool
	}{
		{
			name:      "submit without date",
			from:      entity.ApplicationStatusInProgress,
			to:        entity.ApplicationStatusSubmitted,
			wantField: "application_submitted_date",
		},
		{
			name:  "submit with date",
			from:  entity.ApplicationStatusInProgress,
			to:    entity.ApplicationStatusSubmitted,
			entry: ApplicationEntry{SubmittedDate: &d},
		},
		{
			name:      "approve without effective date",
			from:      entity.ApplicationStatusUnderReview,
			to:        entity.ApplicationStatusApproved,
			wantField: "effective_date",
		},
		{
			name:      "precondition reported before missing edge",
			from:      entity.ApplicationStatusNotStarted,
			to:        entity.ApplicationStatusApproved,
			wantField: "effective_date",
		},
		{
			name:     "effective date present but edge missing",
			from:     entity.ApplicationStatusNotStarted,
			to:       entity.ApplicationStatusApproved,
			entry:    ApplicationEntry{EffectiveDate: &d},
			wantEdge: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := TransitionApplication(context.Background(), tt.from, tt.to, tt.entry)

			switch {
			case tt.wantField != "":
				var fieldErr *FieldRequiredError
				if !errors.As(err, &fieldErr) {
					t.Fatalf("error = %v, want FieldRequiredError", err)
				}
				if fieldErr.Field != tt.wantField {
					t.Errorf("Field = %s, want %s", fieldErr.Field, tt.wantField)
				}
				if !errors.Is(err, domainwf.ErrGuardFailed) {
					t.Errorf("error = %v, want %v", err, domainwf.ErrGuardFailed)
				}
			case tt.wantEdge:
				if !errors.Is(err, domainwf.ErrInvalidTransition) {
					t.Errorf("error = %v, want %v", err, domainwf.ErrInvalidTransition)
				}
			default:
				if err != nil {
					t.Errorf("error = %v, want nil", err)
				}
			}
		})
	}
}

func TestPermittedStatuses(t *testing.T) {
	got := PermittedApplicationStatuses(entity.ApplicationStatusUnderReview)
	want := []entity.ApplicationStatus{
		entity.ApplicationStatusApproved,
		entity.ApplicationStatusDenied,
		entity.ApplicationStatusOnHold,
		entity.ApplicationStatusWithdrawn,
	}
	if len(got) != len(want) {
		t.Fatalf("PermittedApplicationStatuses() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("PermittedApplicationStatuses()[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	if n := len(PermittedTaskStatuses(entity.TaskStatusNotApplicable)); n != 0 {
		t.Errorf("not_applicable should have no exits, got %d", n)
	}
	if n := len(PermittedApplicationStatuses(entity.ApplicationStatusApproved)); n != 0 {
		t.Errorf("approved should have no exits, got %d", n)
	}
}

// Completed date tracks the completed status across any walk of legal transitions.
func TestTaskCompletedDate_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		task := &entity.CredentialingTask{Status: entity.TaskStatusPending}
		today := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

		steps := rapid.IntRange(1, 30).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			to := rapid.SampledFrom(entity.TaskStatuses).Draw(t, "to")
			today = today.AddDate(0, 0, 1)
			if err := TransitionTask(context.Background(), task.Status, to); err != nil {
				continue
			}
			task.SetStatus(to, today)

			if (task.Status == entity.TaskStatusCompleted) != (task.CompletedDate != nil) {
				t.Fatalf("status %s with completed date %v", task.Status, task.CompletedDate)
			}
		}
	})
}

func contains[T comparable](list []T, s T) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
