package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/credentialing/internal/application/port"
	appwf "github.com/garyjia/credentialing/internal/application/workflow"
	"github.com/garyjia/credentialing/internal/domain/entity"
	"github.com/garyjia/credentialing/internal/domain/event"
)

// TaskUpdate carries the fields an operator may change on a task. Nil fields are left untouched.
type TaskUpdate struct {
	Status               *entity.TaskStatus `json:"status,omitempty"`
	Notes                *string            `json:"notes,omitempty"`
	AssignedTo           *string            `json:"assigned_to,omitempty"`
	DueDate              *time.Time         `json:"due_date,omitempty"`
	ApplicationReference *string            `json:"application_reference,omitempty"`
	DocumentURL          *string            `json:"document_url,omitempty"`
	Actor                string             `json:"-"`
}

// CreateTaskRequest describes an operator-created task. An empty PayerID creates a general task.
type CreateTaskRequest struct {
	ProviderID    string     `json:"provider_id"`
	PayerID       string     `json:"payer_id,omitempty"`
	Title         string     `json:"title"`
	Description   string     `json:"description,omitempty"`
	DueDate       *time.Time `json:"due_date,omitempty"`
	EstimatedDays int        `json:"estimated_days,omitempty"`
	Notes         string     `json:"notes,omitempty"`
	AssignedTo    string     `json:"assigned_to,omitempty"`
	Actor         string     `json:"-"`
}

// TaskService manages credentialing tasks and their status machine
type TaskService interface {
	// GetTask retrieves a task with its overdue flag derived for today
	GetTask(ctx context.Context, id int64) (*entity.CredentialingTask, error)

	// ListTasks lists a provider's tasks. A nil payerID lists all, a pointer to "" lists general tasks.
	ListTasks(ctx context.Context, providerID string, payerID *string) ([]*entity.CredentialingTask, error)

	// CreateTask appends an operator-created task to its (provider, payer) group
	CreateTask(ctx context.Context, req CreateTaskRequest) (*entity.CredentialingTask, error)

	// UpdateTask validates the status transition, then applies the update atomically
	UpdateTask(ctx context.Context, id int64, update TaskUpdate) (*entity.CredentialingTask, error)

	// DeleteTask removes a task and records the removal in its history
	DeleteTask(ctx context.Context, id int64, actor string) error

	// TaskHistory returns the audit trail of a task, oldest first
	TaskHistory(ctx context.Context, id int64) ([]*entity.StatusHistory, error)
}

type taskServiceImpl struct {
	taskRepo        port.TaskRepository
	applicationRepo port.ApplicationRepository
	historyRepo     port.HistoryRepository
	txManager       port.TransactionManager
	logger          Logger
	opts            options
}

// NewTaskService creates a new TaskService
func NewTaskService(
	taskRepo port.TaskRepository,
	applicationRepo port.ApplicationRepository,
	historyRepo port.HistoryRepository,
	txManager port.TransactionManager,
	logger Logger,
	opts ...Option,
) TaskService {
	return &taskServiceImpl{
		taskRepo:        taskRepo,
		applicationRepo: applicationRepo,
		historyRepo:     historyRepo,
		txManager:       txManager,
		logger:          logger,
		opts:            buildOptions(opts),
	}
}

// GetTask retrieves a task by ID
func (s *taskServiceImpl) GetTask(ctx context.Context, id int64) (*entity.CredentialingTask, error) {
	task, err := s.taskRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	if task == nil {
		return nil, fmt.Errorf("task %d: %w", id, entity.ErrNotFound)
	}
	task.Overdue = task.IsOverdue(s.opts.today())
	return task, nil
}

// ListTasks lists tasks of a provider, optionally narrowed to one payer group
func (s *taskServiceImpl) ListTasks(ctx context.Context, providerID string, payerID *string) ([]*entity.CredentialingTask, error) {
	if strings.TrimSpace(providerID) == "" {
		return nil, validationError("provider_id is required")
	}

	tasks, err := s.taskRepo.List(ctx, port.TaskFilter{ProviderID: providerID, PayerID: payerID})
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	today := s.opts.today()
	for _, task := range tasks {
		task.Overdue = task.IsOverdue(today)
	}
	return tasks, nil
}

// CreateTask creates a pending task at the end of its group
func (s *taskServiceImpl) CreateTask(ctx context.Context, req CreateTaskRequest) (*entity.CredentialingTask, error) {
	if strings.TrimSpace(req.ProviderID) == "" {
		return nil, validationError("provider_id is required")
	}
	if strings.TrimSpace(req.Title) == "" {
		return nil, validationError("title is required")
	}
	if req.EstimatedDays < 0 {
		return nil, validationError("estimated_days must be >= 0")
	}
	if err := requireActor(req.Actor); err != nil {
		return nil, err
	}

	task := &entity.CredentialingTask{
		ProviderID:    req.ProviderID,
		PayerID:       req.PayerID,
		TaskType:      entity.TaskTypeGeneral,
		Title:         req.Title,
		Description:   req.Description,
		Status:        entity.TaskStatusPending,
		EstimatedDays: req.EstimatedDays,
		Notes:         req.Notes,
		AssignedTo:    req.AssignedTo,
		CreatedBy:     req.Actor,
		UpdatedBy:     req.Actor,
	}
	if req.DueDate != nil {
		task.DueDate = entity.DatePtr(*req.DueDate)
	}

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if !task.IsGeneral() {
			app, err := s.applicationRepo.GetByProviderAndPayer(txCtx, req.ProviderID, req.PayerID)
			if err != nil {
				return err
			}
			if app == nil {
				return fmt.Errorf("%w: provider %s has no application with payer %s", ErrValidation, req.ProviderID, req.PayerID)
			}
			task.TaskType = string(app.SubmissionMethod)
		}

		maxOrder, err := s.taskRepo.MaxOrder(txCtx, req.ProviderID, req.PayerID)
		if err != nil {
			return err
		}
		task.Order = maxOrder + 1

		if err := s.taskRepo.Create(txCtx, task); err != nil {
			return err
		}
		return s.historyRepo.Create(txCtx, &entity.StatusHistory{
			EntityType: entity.EntityTypeTask,
			EntityID:   task.ID,
			ProviderID: task.ProviderID,
			PayerID:    task.PayerID,
			Action:     entity.ActionCreate,
			NewStatus:  string(task.Status),
			Actor:      req.Actor,
		})
	})
	if err != nil {
		s.logger.Error("Failed to create task",
			"error", err,
			"provider_id", req.ProviderID,
			"payer_id", req.PayerID)
		return nil, fmt.Errorf("create task: %w", err)
	}

	s.logger.Info("Task created",
		"task_id", task.ID,
		"provider_id", task.ProviderID,
		"payer_id", task.PayerID,
		"order", task.Order)

	_ = s.opts.dispatch(ctx, s.logger, event.NewEvent(event.TypeTaskCreated, task.ProviderID, task.PayerID, task.ID, map[string]interface{}{
		"title": task.Title,
		"order": task.Order,
	}).WithActor(req.Actor))

	task.Overdue = task.IsOverdue(s.opts.today())
	return task, nil
}

// UpdateTask applies an operator update. An invalid transition leaves the task untouched.
func (s *taskServiceImpl) UpdateTask(ctx context.Context, id int64, update TaskUpdate) (*entity.CredentialingTask, error) {
	if err := requireActor(update.Actor); err != nil {
		return nil, err
	}
	if update.Status != nil && !update.Status.IsValid() {
		return nil, validationError("unknown task status %q", *update.Status)
	}

	today := s.opts.today()
	var task *entity.CredentialingTask
	var previous entity.TaskStatus

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		task, err = s.taskRepo.GetByID(txCtx, id)
		if err != nil {
			return err
		}
		if task == nil {
			return fmt.Errorf("task %d: %w", id, entity.ErrNotFound)
		}
		previous = task.Status

		if update.Status != nil {
			if err := appwf.TransitionTask(txCtx, task.Status, *update.Status); err != nil {
				return translateTransition(entity.EntityTypeTask, id, string(task.Status), string(*update.Status), err)
			}
			task.SetStatus(*update.Status, today)
		}
		applyTaskFields(task, update)
		task.UpdatedBy = update.Actor

		if err := s.taskRepo.Update(txCtx, task); err != nil {
			return err
		}

		history := &entity.StatusHistory{
			EntityType:     entity.EntityTypeTask,
			EntityID:       task.ID,
			ProviderID:     task.ProviderID,
			PayerID:        task.PayerID,
			Action:         entity.ActionUpdate,
			PreviousStatus: string(previous),
			NewStatus:      string(task.Status),
			Actor:          update.Actor,
		}
		if previous != task.Status {
			history.Action = entity.ActionStatusChange
		}
		return s.historyRepo.Create(txCtx, history)
	})
	if err != nil {
		s.logger.Error("Failed to update task", "error", err, "task_id", id)
		return nil, err
	}

	if previous != task.Status {
		s.opts.metrics.TaskTransition(previous, task.Status)
		s.logger.Info("Task status changed",
			"task_id", task.ID,
			"from", previous,
			"to", task.Status,
			"actor", update.Actor)

		_ = s.opts.dispatch(ctx, s.logger, event.NewEvent(event.TypeTaskStatusChanged, task.ProviderID, task.PayerID, task.ID, map[string]interface{}{
			event.KeyPreviousStatus: string(previous),
			event.KeyNewStatus:      string(task.Status),
		}).WithActor(update.Actor))
	}

	task.Overdue = task.IsOverdue(today)
	return task, nil
}

// DeleteTask removes a task. The history row outlives the task.
func (s *taskServiceImpl) DeleteTask(ctx context.Context, id int64, actor string) error {
	if err := requireActor(actor); err != nil {
		return err
	}

	var task *entity.CredentialingTask
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		task, err = s.taskRepo.GetByID(txCtx, id)
		if err != nil {
			return err
		}
		if task == nil {
			return fmt.Errorf("task %d: %w", id, entity.ErrNotFound)
		}
		if err := s.taskRepo.Delete(txCtx, id); err != nil {
			return err
		}
		return s.historyRepo.Create(txCtx, &entity.StatusHistory{
			EntityType:     entity.EntityTypeTask,
			EntityID:       id,
			ProviderID:     task.ProviderID,
			PayerID:        task.PayerID,
			Action:         entity.ActionDelete,
			PreviousStatus: string(task.Status),
			Actor:          actor,
			Note:           task.Title,
		})
	})
	if err != nil {
		s.logger.Error("Failed to delete task", "error", err, "task_id", id)
		return err
	}

	s.logger.Info("Task deleted", "task_id", id, "actor", actor)
	_ = s.opts.dispatch(ctx, s.logger, event.NewEvent(event.TypeTaskDeleted, task.ProviderID, task.PayerID, id, map[string]interface{}{
		event.KeyPreviousStatus: string(task.Status),
	}).WithActor(actor))
	return nil
}

// TaskHistory returns the audit trail of a task
func (s *taskServiceImpl) TaskHistory(ctx context.Context, id int64) ([]*entity.StatusHistory, error) {
	history, err := s.historyRepo.ListByEntity(ctx, entity.EntityTypeTask, id)
	if err != nil {
		return nil, fmt.Errorf("task history: %w", err)
	}
	if len(history) == 0 {
		return nil, fmt.Errorf("task %d: %w", id, entity.ErrNotFound)
	}
	return history, nil
}

func applyTaskFields(task *entity.CredentialingTask, update TaskUpdate) {
	if update.Notes != nil {
		task.Notes = *update.Notes
	}
	if update.AssignedTo != nil {
		task.AssignedTo = *update.AssignedTo
	}
	if update.DueDate != nil {
		task.DueDate = entity.DatePtr(*update.DueDate)
	}
	if update.ApplicationReference != nil {
		task.ApplicationReference = *update.ApplicationReference
	}
	if update.DocumentURL != nil {
		task.DocumentURL = *update.DocumentURL
	}
}
