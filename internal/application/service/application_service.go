package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/credentialing/internal/application/port"
	appwf "github.com/garyjia/credentialing/internal/application/workflow"
	"github.com/garyjia/credentialing/internal/domain/entity"
	"github.com/garyjia/credentialing/internal/domain/event"
)

// ApplicationUpdate carries the fields an operator may change on an application.
// Nil fields are left untouched.
type ApplicationUpdate struct {
	Status                *entity.ApplicationStatus `json:"status,omitempty"`
	SubmittedDate         *time.Time                `json:"application_submitted_date,omitempty"`
	ExpectedDecisionDate  *time.Time                `json:"expected_decision_date,omitempty"`
	ApprovalDate          *time.Time                `json:"approval_date,omitempty"`
	DenialDate            *time.Time                `json:"denial_date,omitempty"`
	EffectiveDate         *time.Time                `json:"effective_date,omitempty"`
	ExternalApplicationID *string                   `json:"external_application_id,omitempty"`
	PayerProviderID       *string                   `json:"payer_provider_id,omitempty"`
	DenialReason          *string                   `json:"denial_reason,omitempty"`
	ReapplicationEligible *bool                     `json:"reapplication_eligible,omitempty"`
	ReapplicationDate     *time.Time                `json:"reapplication_date,omitempty"`
	Contact               *entity.SubmissionContact `json:"contact,omitempty"`
	PortalURL             *string                   `json:"portal_url,omitempty"`
	Notes                 *string                   `json:"notes,omitempty"`
	Actor                 string                    `json:"-"`
}

// ApplicationUpdateResult is the updated application plus non-fatal warnings,
// such as a failed contract trigger after approval
type ApplicationUpdateResult struct {
	Application *entity.PayerApplication `json:"application"`
	Warnings    []string                 `json:"warnings"`
}

// ApplicationService manages the per (provider, payer) application lifecycle
type ApplicationService interface {
	GetApplication(ctx context.Context, providerID, payerID string) (*entity.PayerApplication, error)
	ListApplications(ctx context.Context, providerID string) ([]*entity.PayerApplication, error)

	// UpdateApplication validates preconditions and the transition table before
	// writing. Approval events fire only after the write commits.
	UpdateApplication(ctx context.Context, providerID, payerID string, update ApplicationUpdate) (*ApplicationUpdateResult, error)

	ApplicationHistory(ctx context.Context, providerID, payerID string) ([]*entity.StatusHistory, error)
}

type applicationServiceImpl struct {
	applicationRepo port.ApplicationRepository
	historyRepo     port.HistoryRepository
	txManager       port.TransactionManager
	logger          Logger
	opts            options
}

// NewApplicationService creates a new ApplicationService
func NewApplicationService(
	applicationRepo port.ApplicationRepository,
	historyRepo port.HistoryRepository,
	txManager port.TransactionManager,
	logger Logger,
	opts ...Option,
) ApplicationService {
	return &applicationServiceImpl{
		applicationRepo: applicationRepo,
		historyRepo:     historyRepo,
		txManager:       txManager,
		logger:          logger,
		opts:            buildOptions(opts),
	}
}

// GetApplication retrieves the application of a (provider, payer) pair
func (s *applicationServiceImpl) GetApplication(ctx context.Context, providerID, payerID string) (*entity.PayerApplication, error) {
	app, err := s.applicationRepo.GetByProviderAndPayer(ctx, providerID, payerID)
	if err != nil {
		return nil, fmt.Errorf("get application: %w", err)
	}
	if app == nil {
		return nil, fmt.Errorf("provider %s payer %s: %w", providerID, payerID, entity.ErrNotFound)
	}
	return app, nil
}

// ListApplications lists every application of a provider
func (s *applicationServiceImpl) ListApplications(ctx context.Context, providerID string) ([]*entity.PayerApplication, error) {
	if strings.TrimSpace(providerID) == "" {
		return nil, validationError("provider_id is required")
	}
	apps, err := s.applicationRepo.ListByProvider(ctx, providerID)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	return apps, nil
}

// UpdateApplication applies an operator update in one transaction
func (s *applicationServiceImpl) UpdateApplication(ctx context.Context, providerID, payerID string, update ApplicationUpdate) (*ApplicationUpdateResult, error) {
	if err := requireActor(update.Actor); err != nil {
		return nil, err
	}
	if update.Status != nil && !update.Status.IsValid() {
		return nil, validationError("unknown application status %q", *update.Status)
	}

	today := s.opts.today()
	var app *entity.PayerApplication
	var previous entity.ApplicationStatus

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		app, err = s.applicationRepo.GetByProviderAndPayer(txCtx, providerID, payerID)
		if err != nil {
			return err
		}
		if app == nil {
			return fmt.Errorf("provider %s payer %s: %w", providerID, payerID, entity.ErrNotFound)
		}
		previous = app.Status

		if update.Status != nil && *update.Status != app.Status {
			entry := appwf.ApplicationEntry{
				SubmittedDate: app.SubmittedDate,
				EffectiveDate: update.EffectiveDate,
			}
			if update.SubmittedDate != nil {
				entry.SubmittedDate = update.SubmittedDate
			}
			if err := appwf.TransitionApplication(txCtx, app.Status, *update.Status, entry); err != nil {
				return translateTransition(entity.EntityTypeApplication, app.ID, string(app.Status), string(*update.Status), err)
			}
			app.Status = *update.Status
		}

		if err := applyApplicationFields(app, update); err != nil {
			return err
		}
		if app.Status != previous {
			stampApplication(app, today)
		}
		app.UpdatedBy = update.Actor

		if err := s.applicationRepo.Update(txCtx, app); err != nil {
			return err
		}

		history := &entity.StatusHistory{
			EntityType:     entity.EntityTypeApplication,
			EntityID:       app.ID,
			ProviderID:     app.ProviderID,
			PayerID:        app.PayerID,
			Action:         entity.ActionUpdate,
			PreviousStatus: string(previous),
			NewStatus:      string(app.Status),
			Actor:          update.Actor,
		}
		if app.Status != previous {
			history.Action = entity.ActionStatusChange
		}
		return s.historyRepo.Create(txCtx, history)
	})
	if err != nil {
		s.logger.Error("Failed to update application",
			"error", err,
			"provider_id", providerID,
			"payer_id", payerID)
		return nil, err
	}

	result := &ApplicationUpdateResult{Application: app, Warnings: []string{}}
	if app.Status == previous {
		return result, nil
	}

	s.opts.metrics.ApplicationTransition(previous, app.Status)
	s.logger.Info("Application status changed",
		"application_id", app.ID,
		"provider_id", app.ProviderID,
		"payer_id", app.PayerID,
		"from", previous,
		"to", app.Status,
		"actor", update.Actor)

	_ = s.opts.dispatch(ctx, s.logger, event.NewEvent(event.TypeApplicationStatusChanged, app.ProviderID, app.PayerID, app.ID, map[string]interface{}{
		event.KeyPreviousStatus: string(previous),
		event.KeyNewStatus:      string(app.Status),
	}).WithActor(update.Actor))

	if app.Status == entity.ApplicationStatusApproved && previous != entity.ApplicationStatusApproved {
		_ = s.opts.dispatch(ctx, s.logger, event.NewEvent(event.TypeApplicationApproved, app.ProviderID, app.PayerID, app.ID, map[string]interface{}{
			event.KeyPreviousStatus: string(previous),
			event.KeyEffectiveDate:  entity.FormatDate(app.EffectiveDate),
			"payer_provider_id":     app.PayerProviderID,
		}).WithActor(update.Actor))

		// The trigger records its outcome on the row; reload to surface it.
		if reloaded, err := s.applicationRepo.GetByID(context.WithoutCancel(ctx), app.ID); err == nil && reloaded != nil {
			result.Application = reloaded
		}
		if msg := result.Application.ContractTriggerError; msg != "" {
			result.Warnings = append(result.Warnings, "contract trigger failed: "+msg)
		}
	}

	return result, nil
}

// ApplicationHistory returns the audit trail of an application
func (s *applicationServiceImpl) ApplicationHistory(ctx context.Context, providerID, payerID string) ([]*entity.StatusHistory, error) {
	app, err := s.GetApplication(ctx, providerID, payerID)
	if err != nil {
		return nil, err
	}
	history, err := s.historyRepo.ListByEntity(ctx, entity.EntityTypeApplication, app.ID)
	if err != nil {
		return nil, fmt.Errorf("application history: %w", err)
	}
	return history, nil
}

func applyApplicationFields(app *entity.PayerApplication, update ApplicationUpdate) error {
	eligible := app.ReapplicationEligible
	if update.ReapplicationEligible != nil {
		eligible = *update.ReapplicationEligible
	}
	if update.ReapplicationDate != nil && !eligible {
		return validationError("reapplication_date requires reapplication_eligible")
	}
	app.ReapplicationEligible = eligible
	if !eligible {
		app.ReapplicationDate = nil
	} else if update.ReapplicationDate != nil {
		app.ReapplicationDate = entity.DatePtr(*update.ReapplicationDate)
	}

	dates := []struct {
		src *time.Time
		dst **time.Time
	}{
		{update.SubmittedDate, &app.SubmittedDate},
		{update.ExpectedDecisionDate, &app.ExpectedDecisionDate},
		{update.ApprovalDate, &app.ApprovalDate},
		{update.DenialDate, &app.DenialDate},
		{update.EffectiveDate, &app.EffectiveDate},
	}
	for _, d := range dates {
		if d.src != nil {
			*d.dst = entity.DatePtr(*d.src)
		}
	}

	if update.ExternalApplicationID != nil {
		app.ExternalApplicationID = *update.ExternalApplicationID
	}
	if update.PayerProviderID != nil {
		app.PayerProviderID = *update.PayerProviderID
	}
	if update.DenialReason != nil {
		app.DenialReason = *update.DenialReason
	}
	if update.Contact != nil {
		app.Contact = *update.Contact
	}
	if update.PortalURL != nil {
		app.PortalURL = *update.PortalURL
	}
	if update.Notes != nil {
		app.Notes = *update.Notes
	}
	return nil
}

// stampApplication fills the dates implied by entering app.Status
func stampApplication(app *entity.PayerApplication, today time.Time) {
	switch app.Status {
	case entity.ApplicationStatusInProgress:
		if app.StartedDate == nil {
			app.StartedDate = entity.DatePtr(today)
		}
	case entity.ApplicationStatusSubmitted:
		if app.ExpectedDecisionDate == nil && app.SubmittedDate != nil {
			d := entity.AddDays(*app.SubmittedDate, app.TypicalApprovalDays)
			app.ExpectedDecisionDate = &d
		}
	case entity.ApplicationStatusApproved:
		if app.ApprovalDate == nil {
			app.ApprovalDate = entity.DatePtr(today)
		}
	case entity.ApplicationStatusDenied:
		if app.DenialDate == nil {
			app.DenialDate = entity.DatePtr(today)
		}
	}
}
