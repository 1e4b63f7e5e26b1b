package entity

import "time"

// StatusHistory is the audit trail row written for every task or application mutation
type StatusHistory struct {
	ID             int64     `json:"id"`
	EntityType     string    `json:"entity_type"`
	EntityID       int64     `json:"entity_id"`
	ProviderID     string    `json:"provider_id"`
	PayerID        string    `json:"payer_id,omitempty"`
	Action         string    `json:"action"`
	PreviousStatus string    `json:"previous_status,omitempty"`
	NewStatus      string    `json:"new_status,omitempty"`
	Actor          string    `json:"actor"`
	Note           string    `json:"note,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
