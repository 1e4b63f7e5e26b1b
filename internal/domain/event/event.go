package event

import (
	"time"

	"github.com/google/uuid"
)

// Event represents a domain event raised by the credentialing core
type Event struct {
	ID            string                 `json:"id"`
	Type          Type                   `json:"type"`
	ProviderID    string                 `json:"provider_id"`
	PayerID       string                 `json:"payer_id,omitempty"`
	EntityID      int64                  `json:"entity_id,omitempty"`
	Actor         string                 `json:"actor,omitempty"`
	Payload       map[string]interface{} `json:"payload"`
	Timestamp     time.Time              `json:"timestamp"`
	CorrelationID string                 `json:"correlation_id"`
}

// NewEvent creates a new domain event with auto-generated ID and timestamp
func NewEvent(eventType Type, providerID, payerID string, entityID int64, payload map[string]interface{}) *Event {
	return NewEventWithCorrelation(eventType, providerID, payerID, entityID, payload, uuid.NewString())
}

// NewEventWithCorrelation creates an event linked to a correlation chain
func NewEventWithCorrelation(eventType Type, providerID, payerID string, entityID int64, payload map[string]interface{}, correlationID string) *Event {
	if payload == nil {
		payload = map[string]interface{}{}
	}
	return &Event{
		ID:            uuid.NewString(),
		Type:          eventType,
		ProviderID:    providerID,
		PayerID:       payerID,
		EntityID:      entityID,
		Payload:       payload,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
	}
}

// WithActor returns a copy of the event attributed to actor
func (e *Event) WithActor(actor string) *Event {
	cp := e.clone(len(e.Payload))
	cp.Actor = actor
	return cp
}

// WithPayload returns a new Event with an added payload key-value pair (immutable operation)
func (e *Event) WithPayload(key string, value interface{}) *Event {
	cp := e.clone(len(e.Payload) + 1)
	cp.Payload[key] = value
	return cp
}

func (e *Event) clone(size int) *Event {
	payload := make(map[string]interface{}, size)
	for k, v := range e.Payload {
		payload[k] = v
	}
	cp := *e
	cp.Payload = payload
	return &cp
}

// GetPayloadString retrieves a string value from the payload
func (e *Event) GetPayloadString(key string) string {
	if val, ok := e.Payload[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}

// GetPayloadInt retrieves an int64 value from the payload
func (e *Event) GetPayloadInt(key string) int64 {
	if val, ok := e.Payload[key]; ok {
		switch v := val.(type) {
		case int64:
			return v
		case int:
			return int64(v)
		case float64:
			return int64(v)
		}
	}
	return 0
}

// GetPayloadBool retrieves a bool value from the payload
func (e *Event) GetPayloadBool(key string) bool {
	if val, ok := e.Payload[key]; ok {
		if b, ok := val.(bool); ok {
			return b
		}
	}
	return false
}
