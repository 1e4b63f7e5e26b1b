package port

import (
	"context"
	"time"

	"github.com/garyjia/credentialing/internal/domain/entity"
)

// TemplateRepository defines persistence operations for WorkflowTemplate
type TemplateRepository interface {
	// Upsert stores the template and its task templates, replacing any existing
	// template for the payer and bumping its version. ID and Version are set on tmpl.
	Upsert(ctx context.Context, tmpl *entity.WorkflowTemplate) error
	GetByPayerID(ctx context.Context, payerID string) (*entity.WorkflowTemplate, error)
	List(ctx context.Context) ([]*entity.WorkflowTemplate, error)
}

// ApplicationRepository defines persistence operations for PayerApplication
type ApplicationRepository interface {
	// Create returns entity.ErrDuplicateApplication when the (provider, payer) pair already exists.
	Create(ctx context.Context, app *entity.PayerApplication) error
	GetByID(ctx context.Context, id int64) (*entity.PayerApplication, error)
	GetByProviderAndPayer(ctx context.Context, providerID, payerID string) (*entity.PayerApplication, error)
	ListByProvider(ctx context.Context, providerID string) ([]*entity.PayerApplication, error)
	Update(ctx context.Context, app *entity.PayerApplication) error
	SetContractResult(ctx context.Context, id int64, requestedAt *time.Time, triggerErr string) error
}

// OverdueCursor is the (due_date, id) key of the last overdue task already read
type OverdueCursor struct {
	DueDate time.Time
	ID      int64
}

// CursorAfter returns the cursor positioned at task
func CursorAfter(task *entity.CredentialingTask) *OverdueCursor {
	return &OverdueCursor{DueDate: entity.Day(*task.DueDate), ID: task.ID}
}

// TaskFilter narrows task listings. A nil PayerID returns every task of the provider;
// a pointer to "" returns only general tasks.
type TaskFilter struct {
	ProviderID string
	PayerID    *string
	Status     *entity.TaskStatus
}

// TaskRepository defines persistence operations for CredentialingTask
type TaskRepository interface {
	Create(ctx context.Context, task *entity.CredentialingTask) error
	GetByID(ctx context.Context, id int64) (*entity.CredentialingTask, error)
	List(ctx context.Context, filter TaskFilter) ([]*entity.CredentialingTask, error)

	// ListOverdue returns pending and in-progress tasks of every provider due before today,
	// ordered by (due_date, id). A non-nil after resumes strictly past that key.
	ListOverdue(ctx context.Context, today time.Time, after *OverdueCursor, limit int) ([]*entity.CredentialingTask, error)
	Update(ctx context.Context, task *entity.CredentialingTask) error
	Delete(ctx context.Context, id int64) error
	// MaxOrder returns the highest order in the (provider, payer) group, 0 when empty.
	MaxOrder(ctx context.Context, providerID, payerID string) (int, error)
}

// HistoryRepository defines persistence operations for StatusHistory
type HistoryRepository interface {
	Create(ctx context.Context, history *entity.StatusHistory) error
	ListByEntity(ctx context.Context, entityType string, entityID int64) ([]*entity.StatusHistory, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
