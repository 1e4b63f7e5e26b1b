package entity

import "time"

// TaskStatus is the lifecycle state of a credentialing task.
type TaskStatus string

// Task status constants
const (
	TaskStatusPending       TaskStatus = "pending"
	TaskStatusInProgress    TaskStatus = "in_progress"
	TaskStatusCompleted     TaskStatus = "completed"
	TaskStatusBlocked       TaskStatus = "blocked"
	TaskStatusNotApplicable TaskStatus = "not_applicable"
)

// TaskStatuses lists every task status in display order.
var TaskStatuses = []TaskStatus{
	TaskStatusPending,
	TaskStatusInProgress,
	TaskStatusCompleted,
	TaskStatusBlocked,
	TaskStatusNotApplicable,
}

// IsValid reports whether s is a known task status.
func (s TaskStatus) IsValid() bool {
	for _, known := range TaskStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// CredentialingTask is one concrete step owned by a provider, optionally tied to a payer.
// An empty PayerID marks a general task.
type CredentialingTask struct {
	ID                   int64      `json:"id"`
	ProviderID           string     `json:"provider_id"`
	PayerID              string     `json:"payer_id,omitempty"`
	TaskType             string     `json:"task_type"`
	Title                string     `json:"title"`
	Description          string     `json:"description,omitempty"`
	Status               TaskStatus `json:"status"`
	DueDate              *time.Time `json:"due_date,omitempty"`
	CompletedDate        *time.Time `json:"completed_date,omitempty"`
	EstimatedDays        int        `json:"estimated_days"`
	Order                int        `json:"order"`
	Notes                string     `json:"notes,omitempty"`
	AssignedTo           string     `json:"assigned_to,omitempty"`
	ApplicationReference string     `json:"application_reference,omitempty"`
	DocumentURL          string     `json:"document_url,omitempty"`
	CreatedBy            string     `json:"created_by,omitempty"`
	UpdatedBy            string     `json:"updated_by,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`

	// Overdue is derived on read and never stored.
	Overdue bool `json:"overdue"`
}

// IsGeneral reports whether the task is not tied to any payer.
func (t *CredentialingTask) IsGeneral() bool {
	return t.PayerID == ""
}

// IsOverdue reports whether the task is past due as of today.
// Only pending and in-progress tasks can be overdue.
func (t *CredentialingTask) IsOverdue(today time.Time) bool {
	if t.DueDate == nil {
		return false
	}
	if t.Status != TaskStatusPending && t.Status != TaskStatusInProgress {
		return false
	}
	return Day(*t.DueDate).Before(Day(today))
}

// SetStatus moves the task to status and keeps CompletedDate consistent with it.
// Entering completed stamps today unless a date is already set; leaving completed clears it.
func (t *CredentialingTask) SetStatus(status TaskStatus, today time.Time) {
	if status == TaskStatusCompleted {
		if t.CompletedDate == nil {
			t.CompletedDate = DatePtr(today)
		}
	} else {
		t.CompletedDate = nil
	}
	t.Status = status
}
