package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/garyjia/credentialing/internal/application/dispatcher"
	"github.com/garyjia/credentialing/internal/application/port"
	"github.com/garyjia/credentialing/internal/domain/entity"
	"github.com/garyjia/credentialing/internal/domain/event"
	"go.uber.org/zap"
)

// OverdueActor is recorded as the actor on task.overdue events
const OverdueActor = "system:overdue-sweep"

// OverdueWorkerConfig holds configuration for the overdue sweep
type OverdueWorkerConfig struct {
	PollInterval time.Duration
	BatchSize    int
}

// DefaultOverdueWorkerConfig returns default configuration
func DefaultOverdueWorkerConfig() OverdueWorkerConfig {
	return OverdueWorkerConfig{
		PollInterval: time.Hour,
		BatchSize:    500,
	}
}

// OverdueWorker periodically emits task.overdue for open tasks past their
// due date. Each task is announced at most once per calendar day.
type OverdueWorker struct {
	config     OverdueWorkerConfig
	tasks      port.TaskRepository
	dispatcher dispatcher.Dispatcher
	clock      port.Clock
	logger     *zap.Logger

	mu       sync.Mutex
	cancel   context.CancelFunc
	done     chan struct{}
	running  bool
	notified map[int64]string
	emitted  int
}

// NewOverdueWorker creates a new overdue sweep worker
func NewOverdueWorker(
	config OverdueWorkerConfig,
	tasks port.TaskRepository,
	d dispatcher.Dispatcher,
	clock port.Clock,
	logger *zap.Logger,
) *OverdueWorker {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultOverdueWorkerConfig().PollInterval
	}
	if clock == nil {
		clock = port.SystemClock{}
	}
	return &OverdueWorker{
		config:     config,
		tasks:      tasks,
		dispatcher: d,
		clock:      clock,
		logger:     logger,
		notified:   make(map[int64]string),
	}
}

// Start runs one sweep immediately and then every PollInterval
func (w *OverdueWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("overdue worker already running")
	}
	var runCtx context.Context
	runCtx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})
	w.running = true
	w.mu.Unlock()

	w.logger.Info("OverdueWorker started",
		zap.Duration("poll_interval", w.config.PollInterval),
		zap.Int("batch_size", w.config.BatchSize))

	go w.pollLoop(runCtx)
	return nil
}

// Stop cancels the loop and waits for an in-flight sweep to finish
func (w *OverdueWorker) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	cancel, done := w.cancel, w.done
	w.mu.Unlock()

	cancel()
	<-done

	w.mu.Lock()
	emitted := w.emitted
	w.mu.Unlock()
	w.logger.Info("OverdueWorker stopped", zap.Int("emitted_count", emitted))
	return nil
}

// Name returns the worker name
func (w *OverdueWorker) Name() string {
	return "OverdueWorker"
}

func (w *OverdueWorker) pollLoop(ctx context.Context) {
	defer close(w.done)

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		if _, err := w.Sweep(ctx); err != nil && ctx.Err() == nil {
			w.logger.Error("Overdue sweep failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Sweep emits task.overdue for every overdue task not yet announced today
// and returns how many events were dispatched. Tasks are read in pages of
// BatchSize until the overdue set is exhausted.
func (w *OverdueWorker) Sweep(ctx context.Context) (int, error) {
	today := entity.Day(w.clock.Now())
	day := today.Format(entity.DateLayout)

	w.mu.Lock()
	for id, d := range w.notified {
		if d != day {
			delete(w.notified, id)
		}
	}
	w.mu.Unlock()

	sent := 0
	var cursor *port.OverdueCursor
	for {
		page, err := w.tasks.ListOverdue(ctx, today, cursor, w.config.BatchSize)
		if err != nil {
			return sent, fmt.Errorf("list overdue tasks: %w", err)
		}

		for _, task := range page {
			if ctx.Err() != nil {
				return sent, ctx.Err()
			}
			if w.announce(ctx, task, today, day) {
				sent++
			}
		}

		if w.config.BatchSize <= 0 || len(page) < w.config.BatchSize {
			break
		}
		cursor = port.CursorAfter(page[len(page)-1])
	}

	if sent > 0 {
		w.logger.Info("Overdue tasks announced",
			zap.Int("count", sent),
			zap.String("as_of", day))
	}
	return sent, nil
}

// announce dispatches task.overdue unless the task was already announced today
func (w *OverdueWorker) announce(ctx context.Context, task *entity.CredentialingTask, today time.Time, day string) bool {
	w.mu.Lock()
	seen := w.notified[task.ID] == day
	w.mu.Unlock()
	if seen {
		return false
	}

	days := int(today.Sub(entity.Day(*task.DueDate)).Hours() / 24)
	evt := event.NewEvent(event.TypeTaskOverdue, task.ProviderID, task.PayerID, task.ID, map[string]interface{}{
		event.KeyStatus:      string(task.Status),
		event.KeyDueDate:     entity.FormatDate(task.DueDate),
		event.KeyDaysOverdue: days,
	}).WithActor(OverdueActor)

	if w.dispatcher != nil {
		if err := w.dispatcher.Dispatch(ctx, evt); err != nil {
			w.logger.Error("Overdue event handlers failed",
				zap.Int64("task_id", task.ID),
				zap.Error(err))
			return false
		}
	}

	w.mu.Lock()
	w.notified[task.ID] = day
	w.emitted++
	w.mu.Unlock()
	return true
}
