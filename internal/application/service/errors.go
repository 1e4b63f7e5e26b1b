package service

import (
	"errors"
	"fmt"

	appwf "github.com/garyjia/credentialing/internal/application/workflow"
	"github.com/garyjia/credentialing/internal/domain/entity"
	domainwf "github.com/garyjia/credentialing/internal/domain/workflow"
)

// Service-level error categories
var (
	ErrValidation         = errors.New("validation failed")
	ErrPreconditionFailed = errors.New("precondition failed")
)

// TransitionError reports a status change the state machine does not allow.
// It carries the current status and the legal next statuses so callers can reconcile.
type TransitionError struct {
	Entity    string   `json:"entity"`
	ID        int64    `json:"id"`
	Current   string   `json:"current_status"`
	Requested string   `json:"requested_status"`
	Permitted []string `json:"permitted_statuses"`
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s %d: cannot move from %s to %s", e.Entity, e.ID, e.Current, e.Requested)
}

// Unwrap lets errors.Is match workflow.ErrInvalidTransition
func (e *TransitionError) Unwrap() error {
	return domainwf.ErrInvalidTransition
}

// PreconditionError reports a required field missing for the requested status
type PreconditionError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("precondition failed: %s", e.Reason)
}

// Unwrap lets errors.Is match ErrPreconditionFailed
func (e *PreconditionError) Unwrap() error {
	return ErrPreconditionFailed
}

func validationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// translateTransition maps state machine failures onto the service error taxonomy
func translateTransition(entityName string, id int64, current, requested string, err error) error {
	var fieldErr *appwf.FieldRequiredError
	switch {
	case errors.As(err, &fieldErr):
		return &PreconditionError{Field: fieldErr.Field, Reason: fieldErr.Error()}
	case errors.Is(err, domainwf.ErrInvalidState):
		return validationError("unknown status %q", requested)
	case errors.Is(err, domainwf.ErrInvalidTransition):
		return &TransitionError{
			Entity:    entityName,
			ID:        id,
			Current:   current,
			Requested: requested,
			Permitted: permittedStatuses(entityName, current),
		}
	default:
		return err
	}
}

func permittedStatuses(entityName, current string) []string {
	out := []string{}
	if entityName == entity.EntityTypeApplication {
		for _, st := range appwf.PermittedApplicationStatuses(entity.ApplicationStatus(current)) {
			out = append(out, string(st))
		}
		return out
	}
	for _, st := range appwf.PermittedTaskStatuses(entity.TaskStatus(current)) {
		out = append(out, string(st))
	}
	return out
}
