package entity

import "time"

// PayerProgress summarises one payer group of a provider's tasks.
// General tasks are reported in a group with an empty PayerID.
type PayerProgress struct {
	PayerID              string                `json:"payer_id"`
	PayerName            string                `json:"payer_name,omitempty"`
	TotalTasks           int                   `json:"total_tasks"`
	StatusCounts         map[TaskStatus]int    `json:"status_counts"`
	CompletedTasks       int                   `json:"completed_tasks"`
	OverdueTasks         int                   `json:"overdue_tasks"`
	CompletionPercentage int                   `json:"completion_percentage"`
	ApplicationStatus    ApplicationStatus     `json:"application_status,omitempty"`
	ApplicationDates     *ApplicationDateStamp `json:"application_dates,omitempty"`
}

// ApplicationDateStamp is the subset of application dates shown in progress views
type ApplicationDateStamp struct {
	Started          *time.Time `json:"started_date,omitempty"`
	Submitted        *time.Time `json:"application_submitted_date,omitempty"`
	ExpectedDecision *time.Time `json:"expected_decision_date,omitempty"`
	Approved         *time.Time `json:"approval_date,omitempty"`
	Denied           *time.Time `json:"denial_date,omitempty"`
	Effective        *time.Time `json:"effective_date,omitempty"`
}

// OverallProgress summarises every payer group of a provider
type OverallProgress struct {
	TotalPayers           int `json:"total_payers"`
	TotalTasks            int `json:"total_tasks"`
	CompletedTasks        int `json:"completed_tasks"`
	OverdueTasks          int `json:"overdue_tasks"`
	ApprovedPayers        int `json:"approved_payers"`
	PendingApprovalPayers int `json:"pending_approval_payers"`
	CompletionPercentage  int `json:"completion_percentage"`
}

// ProgressReport is the read-side projection for a provider
type ProgressReport struct {
	ProviderID  string          `json:"provider_id"`
	GeneratedAt time.Time       `json:"generated_at"`
	PerPayer    []PayerProgress `json:"per_payer"`
	Overall     OverallProgress `json:"overall"`
}

// CompletionPercentage returns completed/total*100 rounded half up, 0 when total is 0.
func CompletionPercentage(completed, total int) int {
	if total <= 0 {
		return 0
	}
	return (completed*200 + total) / (total * 2)
}
