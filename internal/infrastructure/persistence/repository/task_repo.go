package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/credentialing/internal/application/port"
	"github.com/garyjia/credentialing/internal/domain/entity"
	"github.com/garyjia/credentialing/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

const taskColumns = `
	id, provider_id, payer_id, task_type, title, description, status,
	due_date, completed_date, estimated_days, task_order,
	notes, assigned_to, application_reference, document_url,
	created_by, updated_by, created_at, updated_at`

// TaskRepository implements port.TaskRepository
type TaskRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewTaskRepository creates a new credentialing task repository
func NewTaskRepository(db *sql.DB, logger *zap.Logger) port.TaskRepository {
	return &TaskRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new task
func (r *TaskRepository) Create(ctx context.Context, task *entity.CredentialingTask) error {
	query := `
		INSERT INTO credentialing_tasks (
			provider_id, payer_id, task_type, title, description, status,
			due_date, completed_date, estimated_days, task_order,
			notes, assigned_to, application_reference, document_url,
			created_by, updated_by, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	now := time.Now().UTC()
	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		task.ProviderID,
		nullableString(task.PayerID),
		task.TaskType,
		task.Title,
		task.Description,
		task.Status,
		dateValue(task.DueDate),
		dateValue(task.CompletedDate),
		task.EstimatedDays,
		task.Order,
		task.Notes,
		task.AssignedTo,
		task.ApplicationReference,
		task.DocumentURL,
		task.CreatedBy,
		task.UpdatedBy,
		now,
		now,
	)
	if err != nil {
		r.logger.Error("Failed to create task",
			zap.String("provider_id", task.ProviderID),
			zap.String("payer_id", task.PayerID),
			zap.Int("order", task.Order),
			zap.Error(err))
		return fmt.Errorf("failed to create task: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	task.ID = id
	task.CreatedAt = now
	task.UpdatedAt = now
	return nil
}

// GetByID retrieves a task by ID
func (r *TaskRepository) GetByID(ctx context.Context, id int64) (*entity.CredentialingTask, error) {
	query := `SELECT ` + taskColumns + ` FROM credentialing_tasks WHERE id = ?`

	task, err := scanTask(r.getExecutor(ctx).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get task by ID", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return task, nil
}

// List retrieves tasks matching filter, general tasks first, then by payer and order
func (r *TaskRepository) List(ctx context.Context, filter port.TaskFilter) ([]*entity.CredentialingTask, error) {
	conds := []string{"provider_id = ?"}
	args := []interface{}{filter.ProviderID}

	if filter.PayerID != nil {
		if *filter.PayerID == "" {
			conds = append(conds, "payer_id IS NULL")
		} else {
			conds = append(conds, "payer_id = ?")
			args = append(args, *filter.PayerID)
		}
	}
	if filter.Status != nil {
		conds = append(conds, "status = ?")
		args = append(args, *filter.Status)
	}

	query := `SELECT ` + taskColumns + ` FROM credentialing_tasks WHERE ` +
		strings.Join(conds, " AND ") +
		` ORDER BY IFNULL(payer_id, ''), task_order, id`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list tasks", zap.String("provider_id", filter.ProviderID), zap.Error(err))
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*entity.CredentialingTask
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}

	return tasks, rows.Err()
}

// ListOverdue returns open tasks across providers whose due date is before today,
// resuming after the cursor when one is given. A non-positive limit returns every match.
func (r *TaskRepository) ListOverdue(ctx context.Context, today time.Time, after *port.OverdueCursor, limit int) ([]*entity.CredentialingTask, error) {
	query := `SELECT ` + taskColumns + ` FROM credentialing_tasks
		WHERE due_date IS NOT NULL AND due_date < ? AND status IN (?, ?)`
	args := []interface{}{
		entity.Day(today).Format(entity.DateLayout),
		entity.TaskStatusPending, entity.TaskStatusInProgress,
	}
	if after != nil {
		query += ` AND (due_date > ? OR (due_date = ? AND id > ?))`
		cursorDay := entity.Day(after.DueDate).Format(entity.DateLayout)
		args = append(args, cursorDay, cursorDay, after.ID)
	}
	query += ` ORDER BY due_date, id LIMIT ?`
	if limit <= 0 {
		limit = -1
	}
	args = append(args, limit)

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list overdue tasks", zap.Error(err))
		return nil, fmt.Errorf("failed to list overdue tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*entity.CredentialingTask
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}

	return tasks, rows.Err()
}

// Update writes every mutable field of the task
func (r *TaskRepository) Update(ctx context.Context, task *entity.CredentialingTask) error {
	query := `
		UPDATE credentialing_tasks SET
			status = ?, due_date = ?, completed_date = ?,
			notes = ?, assigned_to = ?, application_reference = ?, document_url = ?,
			updated_by = ?, updated_at = ?
		WHERE id = ?
	`

	now := time.Now().UTC()
	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		task.Status,
		dateValue(task.DueDate),
		dateValue(task.CompletedDate),
		task.Notes,
		task.AssignedTo,
		task.ApplicationReference,
		task.DocumentURL,
		task.UpdatedBy,
		now,
		task.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update task", zap.Int64("id", task.ID), zap.Error(err))
		return fmt.Errorf("failed to update task: %w", err)
	}

	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("task %d: %w", task.ID, entity.ErrNotFound)
	}

	task.UpdatedAt = now
	return nil
}

// Delete removes a task
func (r *TaskRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.getExecutor(ctx).ExecContext(ctx, `DELETE FROM credentialing_tasks WHERE id = ?`, id)
	if err != nil {
		r.logger.Error("Failed to delete task", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete task: %w", err)
	}

	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("task %d: %w", id, entity.ErrNotFound)
	}
	return nil
}

// MaxOrder returns the highest task_order in a (provider, payer) group
func (r *TaskRepository) MaxOrder(ctx context.Context, providerID, payerID string) (int, error) {
	query := `
		SELECT IFNULL(MAX(task_order), 0) FROM credentialing_tasks
		WHERE provider_id = ? AND IFNULL(payer_id, '') = ?
	`

	var maxOrder int
	if err := r.getExecutor(ctx).QueryRowContext(ctx, query, providerID, payerID).Scan(&maxOrder); err != nil {
		return 0, fmt.Errorf("failed to get max task order: %w", err)
	}
	return maxOrder, nil
}

func scanTask(row rowScanner) (*entity.CredentialingTask, error) {
	var task entity.CredentialingTask
	var payerID, due, completed sql.NullString

	err := row.Scan(
		&task.ID,
		&task.ProviderID,
		&payerID,
		&task.TaskType,
		&task.Title,
		&task.Description,
		&task.Status,
		&due,
		&completed,
		&task.EstimatedDays,
		&task.Order,
		&task.Notes,
		&task.AssignedTo,
		&task.ApplicationReference,
		&task.DocumentURL,
		&task.CreatedBy,
		&task.UpdatedBy,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	task.PayerID = payerID.String
	if task.DueDate, err = scanDate(due); err != nil {
		return nil, err
	}
	if task.CompletedDate, err = scanDate(completed); err != nil {
		return nil, err
	}

	return &task, nil
}

// getExecutor returns the transaction carried by ctx or the database
func (r *TaskRepository) getExecutor(ctx context.Context) sqlite.Executor {
	return sqlite.ExecutorFor(ctx, r.db)
}

// Verify interface compliance
var _ port.TaskRepository = (*TaskRepository)(nil)
