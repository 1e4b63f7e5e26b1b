package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/garyjia/credentialing/internal/domain/event"
)

// mockLogger implements Logger for testing
type mockLogger struct {
	mu     sync.Mutex
	infos  []string
	errors []string
}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.infos = append(m.infos, msg)
}

func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, msg)
}

func (m *mockLogger) ErrorCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.errors)
}

func approvedEvent() *event.Event {
	return event.NewEvent(event.TypeApplicationApproved, "prov-1", "aetna", 1, nil)
}

func TestSubscribe(t *testing.T) {
	d := NewDispatcher()
	var order []string

	d.Subscribe(event.TypeApplicationApproved, func(ctx context.Context, evt *event.Event) error {
		order = append(order, "first")
		return nil
	})
	d.Subscribe(event.TypeApplicationApproved, func(ctx context.Context, evt *event.Event) error {
		order = append(order, "second")
		return nil
	})
	d.Subscribe(event.TypeTaskCreated, func(ctx context.Context, evt *event.Event) error {
		order = append(order, "other")
		return nil
	})

	if err := d.Dispatch(context.Background(), approvedEvent()); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}

	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Errorf("handlers ran as %v, want [first second]", order)
	}

	handlers := d.ListHandlers(event.TypeApplicationApproved)
	if len(handlers) != 2 || handlers[0].Name != "handler-0" || handlers[1].Name != "handler-1" {
		t.Errorf("unexpected handler names: %+v", handlers)
	}
}

func TestSubscribeAll(t *testing.T) {
	d := NewDispatcher(WithLogger(&mockLogger{}))
	var seen []event.Type
	var order []string

	d.SubscribeAll("stream", func(ctx context.Context, evt *event.Event) error {
		seen = append(seen, evt.Type)
		order = append(order, "wildcard")
		return nil
	})
	d.SubscribeNamed(event.TypeApplicationApproved, "contract", func(ctx context.Context, evt *event.Event) error {
		order = append(order, "typed")
		return nil
	})

	ctx := context.Background()
	if err := d.Dispatch(ctx, approvedEvent()); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	if err := d.Dispatch(ctx, event.NewEvent(event.TypeTaskDeleted, "prov-1", "", 2, nil)); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}

	if len(seen) != 2 || seen[0] != event.TypeApplicationApproved || seen[1] != event.TypeTaskDeleted {
		t.Errorf("wildcard saw %v", seen)
	}
	if order[0] != "typed" || order[1] != "wildcard" {
		t.Errorf("typed handlers should run before wildcard handlers, got %v", order)
	}
}

func TestUnsubscribe(t *testing.T) {
	d := NewDispatcher()
	var called1, called2 bool

	d.SubscribeNamed(event.TypeTaskCreated, "handler-1", func(ctx context.Context, evt *event.Event) error {
		called1 = true
		return nil
	})
	d.SubscribeNamed(event.TypeTaskCreated, "handler-2", func(ctx context.Context, evt *event.Event) error {
		called2 = true
		return nil
	})

	d.Unsubscribe(event.TypeTaskCreated, "handler-1")

	if err := d.Dispatch(context.Background(), event.NewEvent(event.TypeTaskCreated, "prov-1", "aetna", 1, nil)); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	if called1 {
		t.Error("expected unsubscribed handler not to be called")
	}
	if !called2 {
		t.Error("expected remaining handler to be called")
	}
}

func TestDispatch(t *testing.T) {
	t.Run("runs every handler and joins errors", func(t *testing.T) {
		logger := &mockLogger{}
		d := NewDispatcher(WithLogger(logger))
		contractErr := errors.New("contract service unavailable")
		var streamed bool

		d.SubscribeNamed(event.TypeApplicationApproved, "contract", func(ctx context.Context, evt *event.Event) error {
			return contractErr
		})
		d.SubscribeAll("stream", func(ctx context.Context, evt *event.Event) error {
			streamed = true
			return nil
		})

		err := d.Dispatch(context.Background(), approvedEvent())
		if !errors.Is(err, contractErr) {
			t.Fatalf("expected error to wrap %v, got %v", contractErr, err)
		}
		if !streamed {
			t.Error("a failing handler must not stop later handlers")
		}
		if logger.ErrorCount() != 1 {
			t.Errorf("expected 1 logged error, got %d", logger.ErrorCount())
		}
	})

	t.Run("returns nil with no handlers", func(t *testing.T) {
		d := NewDispatcher()
		if err := d.Dispatch(context.Background(), approvedEvent()); err != nil {
			t.Errorf("expected nil, got %v", err)
		}
	})

	t.Run("recovers from handler panic", func(t *testing.T) {
		logger := &mockLogger{}
		d := NewDispatcher(WithLogger(logger))

		d.Subscribe(event.TypeApplicationApproved, func(ctx context.Context, evt *event.Event) error {
			panic("test panic")
		})

		if err := d.Dispatch(context.Background(), approvedEvent()); err == nil {
			t.Fatal("expected error from panic recovery")
		}
		if logger.ErrorCount() == 0 {
			t.Error("expected panic to be logged as error")
		}
	})

	t.Run("returns error when dispatcher is closed", func(t *testing.T) {
		d := NewDispatcher()
		if err := d.Close(); err != nil {
			t.Fatalf("close failed: %v", err)
		}

		if err := d.Dispatch(context.Background(), approvedEvent()); err == nil {
			t.Fatal("expected error when dispatching to closed dispatcher")
		}
	})
}

func TestClose(t *testing.T) {
	logger := &mockLogger{}
	d := NewDispatcher(WithLogger(logger))
	var called atomic.Int32
	d.SubscribeAll("stream", func(ctx context.Context, evt *event.Event) error {
		called.Add(1)
		return nil
	})

	if err := d.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if err := d.Close(); err == nil {
		t.Error("expected error on double close")
	}
	if err := d.Dispatch(context.Background(), event.NewEvent(event.TypeGenerationCompleted, "prov-1", "", 0, nil)); err == nil {
		t.Error("expected error dispatching after close")
	}
	if called.Load() != 0 {
		t.Errorf("handlers ran after close: %d", called.Load())
	}
}

func TestConcurrency(t *testing.T) {
	d := NewDispatcher()
	var called atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			d.SubscribeNamed(event.TypeTaskStatusChanged, fmt.Sprintf("handler-%d", id), func(ctx context.Context, evt *event.Event) error {
				called.Add(1)
				return nil
			})
		}(i)
	}
	wg.Wait()

	if got := len(d.ListHandlers(event.TypeTaskStatusChanged)); got != 10 {
		t.Fatalf("expected 10 handlers, got %d", got)
	}

	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = d.Dispatch(context.Background(), event.NewEvent(event.TypeTaskStatusChanged, "prov-1", "aetna", 1, nil))
		}()
	}
	wg.Wait()

	if called.Load() != 50 {
		t.Errorf("expected 50 handler calls, got %d", called.Load())
	}
}
