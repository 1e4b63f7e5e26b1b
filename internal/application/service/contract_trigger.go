package service

import (
	"context"
	"fmt"

	"github.com/garyjia/credentialing/internal/application/dispatcher"
	"github.com/garyjia/credentialing/internal/application/port"
	"github.com/garyjia/credentialing/internal/domain/entity"
	"github.com/garyjia/credentialing/internal/domain/event"
)

// ContractTriggerHandlerName identifies the contract trigger on the dispatcher
const ContractTriggerHandlerName = "contract-auto-trigger"

// ContractTrigger requests a network contract once an application is approved.
// It runs after the approval commits; a failure is recorded on the application
// and never undoes the approval.
type ContractTrigger struct {
	client          port.ContractClient
	applicationRepo port.ApplicationRepository
	logger          Logger
	opts            options
}

// NewContractTrigger creates a new ContractTrigger
func NewContractTrigger(client port.ContractClient, applicationRepo port.ApplicationRepository, logger Logger, opts ...Option) *ContractTrigger {
	return &ContractTrigger{
		client:          client,
		applicationRepo: applicationRepo,
		logger:          logger,
		opts:            buildOptions(opts),
	}
}

// Register subscribes the trigger to approval events
func (t *ContractTrigger) Register(d dispatcher.Dispatcher) {
	d.SubscribeNamed(event.TypeApplicationApproved, ContractTriggerHandlerName, t.Handle)
}

// Handle processes one application.approved event
func (t *ContractTrigger) Handle(ctx context.Context, evt *event.Event) error {
	if evt.Type != event.TypeApplicationApproved {
		return nil
	}
	if evt.GetPayloadString(event.KeyPreviousStatus) == string(entity.ApplicationStatusApproved) {
		t.logger.Info("Application was already approved, contract not requested again",
			"application_id", evt.EntityID)
		return nil
	}

	req := port.ContractRequest{
		ApplicationID:   evt.EntityID,
		ProviderID:      evt.ProviderID,
		PayerID:         evt.PayerID,
		EffectiveDate:   evt.GetPayloadString(event.KeyEffectiveDate),
		PayerProviderID: evt.GetPayloadString("payer_provider_id"),
		RequestedBy:     evt.Actor,
	}

	// The outcome must reach the row even if the triggering request went away.
	recordCtx := context.WithoutCancel(ctx)

	if err := t.client.RequestContract(ctx, req); err != nil {
		t.opts.metrics.ContractTrigger(false)
		t.logger.Error("Contract trigger failed",
			"error", err,
			"application_id", req.ApplicationID,
			"provider_id", req.ProviderID,
			"payer_id", req.PayerID)
		if recErr := t.applicationRepo.SetContractResult(recordCtx, req.ApplicationID, nil, err.Error()); recErr != nil {
			t.logger.Error("Failed to record contract trigger failure", "error", recErr, "application_id", req.ApplicationID)
		}
		return fmt.Errorf("request contract for application %d: %w", req.ApplicationID, err)
	}

	now := t.opts.clock.Now()
	t.opts.metrics.ContractTrigger(true)
	t.logger.Info("Contract requested",
		"application_id", req.ApplicationID,
		"provider_id", req.ProviderID,
		"payer_id", req.PayerID,
		"effective_date", req.EffectiveDate)
	if err := t.applicationRepo.SetContractResult(recordCtx, req.ApplicationID, &now, ""); err != nil {
		t.logger.Error("Failed to record contract request", "error", err, "application_id", req.ApplicationID)
		return err
	}
	return nil
}
