package workflow

import (
	"context"
	"time"

	"github.com/garyjia/credentialing/internal/domain/entity"
	domainwf "github.com/garyjia/credentialing/internal/domain/workflow"
)

func taskStates() []domainwf.State {
	states := make([]domainwf.State, 0, len(entity.TaskStatuses))
	for _, s := range entity.TaskStatuses {
		states = append(states, domainwf.State(s))
	}
	return states
}

func applicationStates() []domainwf.State {
	states := make([]domainwf.State, 0, len(entity.ApplicationStatuses))
	for _, s := range entity.ApplicationStatuses {
		states = append(states, domainwf.State(s))
	}
	return states
}

// BuildTaskStateMachine creates a state machine configured for credentialing tasks
func BuildTaskStateMachine(initial entity.TaskStatus) domainwf.StateMachine {
	var (
		pending       = domainwf.State(entity.TaskStatusPending)
		inProgress    = domainwf.State(entity.TaskStatusInProgress)
		completed     = domainwf.State(entity.TaskStatusCompleted)
		blocked       = domainwf.State(entity.TaskStatusBlocked)
		notApplicable = domainwf.State(entity.TaskStatusNotApplicable)
	)

	builder := domainwf.NewBuilder(taskStates()...)

	builder.Configure(pending).
		Permit(inProgress, completed, blocked, notApplicable)

	builder.Configure(inProgress).
		Permit(pending, completed, blocked, notApplicable)

	// Blocked tasks resume before they can complete.
	builder.Configure(blocked).
		Permit(pending, inProgress, notApplicable)

	// Reopening a completed task clears its completed date.
	builder.Configure(completed).
		Permit(pending, inProgress)

	// NOT_APPLICABLE is terminal

	return builder.Build(domainwf.State(initial))
}

// ApplicationEntry carries the field values that gate entry into guarded states
type ApplicationEntry struct {
	// SubmittedDate is the submission date from the call or already recorded.
	SubmittedDate *time.Time
	// EffectiveDate must be supplied by the same call that approves.
	EffectiveDate *time.Time
}

// BuildApplicationStateMachine creates a state machine configured for payer applications
func BuildApplicationStateMachine(initial entity.ApplicationStatus, entry ApplicationEntry) domainwf.StateMachine {
	var (
		notStarted  = domainwf.State(entity.ApplicationStatusNotStarted)
		inProgress  = domainwf.State(entity.ApplicationStatusInProgress)
		submitted   = domainwf.State(entity.ApplicationStatusSubmitted)
		underReview = domainwf.State(entity.ApplicationStatusUnderReview)
		approved    = domainwf.State(entity.ApplicationStatusApproved)
		denied      = domainwf.State(entity.ApplicationStatusDenied)
		onHold      = domainwf.State(entity.ApplicationStatusOnHold)
		withdrawn   = domainwf.State(entity.ApplicationStatusWithdrawn)
	)

	builder := domainwf.NewBuilder(applicationStates()...)

	builder.Configure(notStarted).
		Permit(inProgress, withdrawn)

	builder.Configure(inProgress).
		Permit(submitted, withdrawn)

	builder.Configure(submitted).
		Permit(underReview, withdrawn).
		RequireOnEntry(func(ctx context.Context) error {
			if entry.SubmittedDate == nil {
				return &FieldRequiredError{Field: "application_submitted_date", Target: entity.ApplicationStatusSubmitted}
			}
			return nil
		})

	builder.Configure(underReview).
		Permit(approved, denied, onHold, withdrawn)

	builder.Configure(onHold).
		Permit(underReview, withdrawn)

	builder.Configure(approved).
		RequireOnEntry(func(ctx context.Context) error {
			if entry.EffectiveDate == nil {
				return &FieldRequiredError{Field: "effective_date", Target: entity.ApplicationStatusApproved}
			}
			return nil
		})

	// APPROVED, DENIED and WITHDRAWN are terminal

	return builder.Build(domainwf.State(initial))
}
