package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/garyjia/credentialing/internal/application/dispatcher"
	"github.com/garyjia/credentialing/internal/application/port"
	"github.com/garyjia/credentialing/internal/domain/event"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// PublisherHandlerName identifies the stream publisher on the dispatcher
const PublisherHandlerName = "redis-stream-publisher"

// RedisConfig holds the Redis connection and stream settings
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	Stream    string
	MaxLength int64
}

// NewRedisClient creates a go-redis client from cfg
func NewRedisClient(cfg RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
}

// RedisPublisher appends domain events to a Redis stream for external consumers
type RedisPublisher struct {
	client *redis.Client
	stream string
	maxLen int64
	logger *zap.Logger
}

// NewRedisPublisher creates a publisher writing to cfg.Stream
func NewRedisPublisher(client *redis.Client, cfg RedisConfig, logger *zap.Logger) *RedisPublisher {
	stream := cfg.Stream
	if stream == "" {
		stream = "credentialing.events"
	}
	return &RedisPublisher{
		client: client,
		stream: stream,
		maxLen: cfg.MaxLength,
		logger: logger,
	}
}

// Publish appends evt to the stream. The event JSON is stored under "data".
func (p *RedisPublisher) Publish(ctx context.Context, evt *event.Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			"id":          evt.ID,
			"type":        string(evt.Type),
			"provider_id": evt.ProviderID,
			"payer_id":    evt.PayerID,
			"data":        string(data),
		},
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}

	id, err := p.client.XAdd(ctx, args).Result()
	if err != nil {
		p.logger.Error("Failed to publish event",
			zap.String("event_id", evt.ID),
			zap.String("event_type", string(evt.Type)),
			zap.Error(err))
		return fmt.Errorf("failed to publish event %s: %w", evt.ID, err)
	}

	p.logger.Debug("Event published",
		zap.String("event_id", evt.ID),
		zap.String("event_type", string(evt.Type)),
		zap.String("stream_id", id))
	return nil
}

// Register subscribes the publisher to every dispatched event
func (p *RedisPublisher) Register(d dispatcher.Dispatcher) {
	d.SubscribeAll(PublisherHandlerName, p.Publish)
}

// Ping checks the Redis connection
func (p *RedisPublisher) Ping(ctx context.Context) error {
	if err := p.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Verify interface compliance
var _ port.EventPublisher = (*RedisPublisher)(nil)
