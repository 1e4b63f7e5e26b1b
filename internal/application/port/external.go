package port

import (
	"context"
	"time"

	"github.com/garyjia/credentialing/internal/domain/entity"
	"github.com/garyjia/credentialing/internal/domain/event"
)

// ContractRequest asks the network-contract collaborator to create a contract
type ContractRequest struct {
	ApplicationID   int64  `json:"application_id"`
	ProviderID      string `json:"provider_id"`
	PayerID         string `json:"payer_id"`
	EffectiveDate   string `json:"effective_date"`
	PayerProviderID string `json:"payer_provider_id,omitempty"`
	RequestedBy     string `json:"requested_by,omitempty"`
}

// ContractClient creates network contracts in the external contracting system
type ContractClient interface {
	RequestContract(ctx context.Context, req ContractRequest) error
}

// EventPublisher forwards domain events to external consumers
type EventPublisher interface {
	Publish(ctx context.Context, evt *event.Event) error
}

// TemplateSource reads workflow template definitions from files
type TemplateSource interface {
	LoadFile(path string) (*entity.WorkflowTemplate, error)
	LoadDir(dir string) ([]*entity.WorkflowTemplate, error)
}

// Metrics records operational counters for the credentialing core
type Metrics interface {
	GenerationOutcome(outcome string)
	TaskTransition(from, to entity.TaskStatus)
	ApplicationTransition(from, to entity.ApplicationStatus)
	ContractTrigger(success bool)
}

// Clock supplies the current time
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock in UTC
type SystemClock struct{}

// Now returns the current UTC time
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// NopMetrics discards all measurements
type NopMetrics struct{}

func (NopMetrics) GenerationOutcome(string) {}
func (NopMetrics) TaskTransition(entity.TaskStatus, entity.TaskStatus) {}
func (NopMetrics) ApplicationTransition(entity.ApplicationStatus, entity.ApplicationStatus) {}
func (NopMetrics) ContractTrigger(bool) {}
