package workflow

import (
	"context"

	"github.com/garyjia/credentialing/internal/domain/entity"
	domainwf "github.com/garyjia/credentialing/internal/domain/workflow"
)

// TransitionTask validates a task status change. Staying in the same status is allowed.
func TransitionTask(ctx context.Context, from, to entity.TaskStatus) error {
	if from == to {
		return nil
	}
	return BuildTaskStateMachine(from).Fire(ctx, domainwf.State(to))
}

// TransitionApplication validates an application status change, including entry
// preconditions. Staying in the same status is allowed.
func TransitionApplication(ctx context.Context, from, to entity.ApplicationStatus, entry ApplicationEntry) error {
	if from == to {
		return nil
	}
	return BuildApplicationStateMachine(from, entry).Fire(ctx, domainwf.State(to))
}

// PermittedTaskStatuses lists the statuses a task may move to next
func PermittedTaskStatuses(from entity.TaskStatus) []entity.TaskStatus {
	states := BuildTaskStateMachine(from).PermittedStates()
	out := make([]entity.TaskStatus, len(states))
	for i, s := range states {
		out[i] = entity.TaskStatus(s)
	}
	return out
}

// PermittedApplicationStatuses lists the statuses an application may move to next,
// ignoring entry preconditions
func PermittedApplicationStatuses(from entity.ApplicationStatus) []entity.ApplicationStatus {
	states := BuildApplicationStateMachine(from, ApplicationEntry{}).PermittedStates()
	out := make([]entity.ApplicationStatus, len(states))
	for i, s := range states {
		out[i] = entity.ApplicationStatus(s)
	}
	return out
}
