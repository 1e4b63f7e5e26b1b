package service

import (
	"context"
	"strings"
	"time"

	"github.com/garyjia/credentialing/internal/application/dispatcher"
	"github.com/garyjia/credentialing/internal/application/port"
	"github.com/garyjia/credentialing/internal/domain/entity"
	"github.com/garyjia/credentialing/internal/domain/event"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Option configures optional collaborators shared by the services
type Option func(*options)

type options struct {
	dispatcher dispatcher.Dispatcher
	metrics    port.Metrics
	clock      port.Clock
}

// WithDispatcher sets the event dispatcher used for post-commit events
func WithDispatcher(d dispatcher.Dispatcher) Option {
	return func(o *options) {
		o.dispatcher = d
	}
}

// WithMetrics sets the metrics recorder
func WithMetrics(m port.Metrics) Option {
	return func(o *options) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithClock sets the clock used for "today"
func WithClock(c port.Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

func buildOptions(opts []Option) options {
	o := options{
		metrics: port.NopMetrics{},
		clock:   port.SystemClock{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) today() time.Time {
	return entity.Day(o.clock.Now())
}

// dispatch emits evt after commit. Handlers run on a context detached from the
// caller's cancellation so a dropped request cannot lose post-commit work.
// Handler failures are logged and returned; they never undo the committed write.
func (o options) dispatch(ctx context.Context, logger Logger, evt *event.Event) error {
	if o.dispatcher == nil {
		return nil
	}
	if err := o.dispatcher.Dispatch(context.WithoutCancel(ctx), evt); err != nil {
		logger.Error("Event handlers failed", "event_type", evt.Type, "event_id", evt.ID, "error", err)
		return err
	}
	return nil
}

func requireActor(actor string) error {
	if strings.TrimSpace(actor) == "" {
		return validationError("actor is required")
	}
	return nil
}
