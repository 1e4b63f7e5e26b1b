package event

// Type identifies the type of domain event
type Type string

const (
	TypeApplicationCreated       Type = "application.created"
	TypeApplicationStatusChanged Type = "application.status_changed"
	TypeApplicationApproved      Type = "application.approved"
	TypeTaskCreated              Type = "task.created"
	TypeTaskStatusChanged        Type = "task.status_changed"
	TypeTaskDeleted              Type = "task.deleted"
	TypeTaskOverdue              Type = "task.overdue"
	TypeGenerationCompleted      Type = "generation.completed"
	TypeContractRequested        Type = "contract.requested"
	TypeContractTriggerFailed    Type = "contract.trigger_failed"
)

// Payload keys shared by publishers and subscribers
const (
	KeyPreviousStatus = "previous_status"
	KeyNewStatus      = "new_status"
	KeyEffectiveDate  = "effective_date"
	KeyError          = "error"
	KeyDueDate        = "due_date"
	KeyDaysOverdue    = "days_overdue"
	KeyStatus         = "status"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeApplicationCreated,
		TypeApplicationStatusChanged,
		TypeApplicationApproved,
		TypeTaskCreated,
		TypeTaskStatusChanged,
		TypeTaskDeleted,
		TypeTaskOverdue,
		TypeGenerationCompleted,
		TypeContractRequested,
		TypeContractTriggerFailed:
		return true
	default:
		return false
	}
}
