package entity

import "time"

// ApplicationStatus is the approval lifecycle state of a payer application.
type ApplicationStatus string

// Application status constants
const (
	ApplicationStatusNotStarted  ApplicationStatus = "not_started"
	ApplicationStatusInProgress  ApplicationStatus = "in_progress"
	ApplicationStatusSubmitted   ApplicationStatus = "submitted"
	ApplicationStatusUnderReview ApplicationStatus = "under_review"
	ApplicationStatusApproved    ApplicationStatus = "approved"
	ApplicationStatusDenied      ApplicationStatus = "denied"
	ApplicationStatusOnHold      ApplicationStatus = "on_hold"
	ApplicationStatusWithdrawn   ApplicationStatus = "withdrawn"
)

// ApplicationStatuses lists every application status in lifecycle order.
var ApplicationStatuses = []ApplicationStatus{
	ApplicationStatusNotStarted,
	ApplicationStatusInProgress,
	ApplicationStatusSubmitted,
	ApplicationStatusUnderReview,
	ApplicationStatusApproved,
	ApplicationStatusDenied,
	ApplicationStatusOnHold,
	ApplicationStatusWithdrawn,
}

// IsValid reports whether s is a known application status.
func (s ApplicationStatus) IsValid() bool {
	for _, known := range ApplicationStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// IsPendingApproval reports whether the payer still owes a decision.
func (s ApplicationStatus) IsPendingApproval() bool {
	return s == ApplicationStatusSubmitted || s == ApplicationStatusUnderReview
}

// PayerApplication tracks the approval of one provider with one payer.
// (ProviderID, PayerID) is unique.
type PayerApplication struct {
	ID                    int64             `json:"id"`
	ProviderID            string            `json:"provider_id"`
	PayerID               string            `json:"payer_id"`
	Status                ApplicationStatus `json:"status"`
	StartedDate           *time.Time        `json:"started_date,omitempty"`
	SubmittedDate         *time.Time        `json:"application_submitted_date,omitempty"`
	ExpectedDecisionDate  *time.Time        `json:"expected_decision_date,omitempty"`
	ApprovalDate          *time.Time        `json:"approval_date,omitempty"`
	DenialDate            *time.Time        `json:"denial_date,omitempty"`
	EffectiveDate         *time.Time        `json:"effective_date,omitempty"`
	ExternalApplicationID string            `json:"external_application_id,omitempty"`
	PayerProviderID       string            `json:"payer_provider_id,omitempty"`
	DenialReason          string            `json:"denial_reason,omitempty"`
	ReapplicationEligible bool              `json:"reapplication_eligible"`
	ReapplicationDate     *time.Time        `json:"reapplication_date,omitempty"`
	Contact               SubmissionContact `json:"contact"`
	PortalURL             string            `json:"portal_url,omitempty"`
	SubmissionMethod      WorkflowCategory  `json:"submission_method"`
	TypicalApprovalDays   int               `json:"typical_approval_days"`
	TemplateVersion       int               `json:"template_version,omitempty"`
	Notes                 string            `json:"notes,omitempty"`
	ContractRequestedAt   *time.Time        `json:"contract_requested_at,omitempty"`
	ContractTriggerError  string            `json:"contract_trigger_error,omitempty"`
	CreatedBy             string            `json:"created_by,omitempty"`
	UpdatedBy             string            `json:"updated_by,omitempty"`
	CreatedAt             time.Time         `json:"created_at"`
	UpdatedAt             time.Time         `json:"updated_at"`
}
