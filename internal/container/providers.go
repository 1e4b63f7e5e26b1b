package container

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/garyjia/credentialing/internal/application/dispatcher"
	"github.com/garyjia/credentialing/internal/application/port"
	"github.com/garyjia/credentialing/internal/application/service"
	"github.com/garyjia/credentialing/internal/infrastructure/external/contract"
	"github.com/garyjia/credentialing/internal/infrastructure/messaging"
	"github.com/garyjia/credentialing/internal/infrastructure/metrics"
	"github.com/garyjia/credentialing/internal/infrastructure/persistence/repository"
	"github.com/garyjia/credentialing/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/credentialing/internal/infrastructure/templates"
	"github.com/garyjia/credentialing/internal/infrastructure/worker"
	"github.com/garyjia/credentialing/pkg/database"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	DB             *database.DB
	TransactionMgr *sqlite.DB
}

// MetricsBundle holds the Prometheus registry and the recorder bound to it.
// Registry is nil when metrics are disabled.
type MetricsBundle struct {
	Registry *prometheus.Registry
	Recorder port.Metrics
}

// EventStreamBundle holds the Redis client and stream publisher.
type EventStreamBundle struct {
	Client    *redis.Client
	Publisher *messaging.RedisPublisher
}

// ProvideDatabase opens the database and applies pending migrations.
func ProvideDatabase(cfg *DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	db, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		BusyTimeout:     cfg.BusyTimeout,
	}, logger)
	if err != nil {
		return nil, err
	}

	migrator := database.NewMigrator(db, logger)
	if err := migrator.RunMigrations(database.Migrations()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DatabaseBundle{
		DB:             db,
		TransactionMgr: sqlite.NewDB(db.DB, logger),
	}, nil
}

// ProvideRepositories creates all repositories from a database connection.
func ProvideRepositories(sqlDB *sql.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if sqlDB == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &RepositoryBundle{
		Template:    repository.NewTemplateRepository(sqlDB, logger),
		Application: repository.NewApplicationRepository(sqlDB, logger),
		Task:        repository.NewTaskRepository(sqlDB, logger),
		History:     repository.NewHistoryRepository(sqlDB, logger),
	}, nil
}

// ProvideMetrics creates a private Prometheus registry with runtime collectors.
func ProvideMetrics(cfg *MetricsConfig) *MetricsBundle {
	if cfg == nil || !cfg.Enabled {
		return &MetricsBundle{Recorder: port.NopMetrics{}}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &MetricsBundle{
		Registry: reg,
		Recorder: metrics.NewRecorder(reg),
	}
}

// ProvideContractClient returns the HTTP contract client, or a logging stand-in
// when no endpoint is configured.
func ProvideContractClient(cfg *ContractsConfig, logger *zap.Logger) port.ContractClient {
	if cfg == nil || cfg.BaseURL == "" {
		logger.Info("Contract endpoint not configured, contract requests will only be logged")
		return contract.NewLogClient(logger)
	}
	return contract.NewClient(contract.Config{
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
		Timeout: cfg.Timeout,
	}, logger)
}

// ProvideEventStream connects to Redis when an address is configured.
// It returns nil when publishing is disabled.
func ProvideEventStream(ctx context.Context, cfg *RedisConfig, logger *zap.Logger) (*EventStreamBundle, error) {
	if cfg == nil || cfg.Addr == "" {
		return nil, nil
	}

	redisCfg := messaging.RedisConfig{
		Addr:      cfg.Addr,
		Password:  cfg.Password,
		DB:        cfg.DB,
		Stream:    cfg.Stream,
		MaxLength: cfg.MaxLength,
	}
	client := messaging.NewRedisClient(redisCfg)
	publisher := messaging.NewRedisPublisher(client, redisCfg, logger)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := publisher.Ping(pingCtx); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	return &EventStreamBundle{Client: client, Publisher: publisher}, nil
}

// ProvideTemplateSource creates the schema-checking template file loader.
func ProvideTemplateSource(logger *zap.Logger) (port.TemplateSource, error) {
	return templates.NewLoader(logger)
}

// ProvideDispatcher creates the event dispatcher.
func ProvideDispatcher(logger *zap.Logger) (dispatcher.Dispatcher, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	// Create dispatcher logger adapter
	dispatcherLogger := NewLoggerAdapter(logger)

	return dispatcher.NewDispatcher(
		dispatcher.WithLogger(dispatcherLogger),
	), nil
}

// ServiceDeps holds dependencies required for creating application services.
type ServiceDeps struct {
	Repos          *RepositoryBundle
	TxManager      port.TransactionManager
	TemplateSource port.TemplateSource
	ContractClient port.ContractClient
	Dispatcher     dispatcher.Dispatcher
	Metrics        port.Metrics
	Logger         *zap.Logger
}

// ProvideServices creates all application services and registers the
// contract trigger on the dispatcher.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil || deps.Repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if deps.TxManager == nil {
		return nil, fmt.Errorf("transaction manager is required")
	}
	if deps.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}

	serviceLogger := NewLoggerAdapter(deps.Logger)
	opts := []service.Option{
		service.WithDispatcher(deps.Dispatcher),
		service.WithMetrics(deps.Metrics),
	}

	if deps.ContractClient != nil {
		trigger := service.NewContractTrigger(deps.ContractClient, deps.Repos.Application, serviceLogger, opts...)
		trigger.Register(deps.Dispatcher)
	}

	return &ServiceBundle{
		Templates: service.NewTemplateService(
			deps.Repos.Template,
			deps.TemplateSource,
			deps.TxManager,
			serviceLogger,
		),
		Generation: service.NewGenerationService(
			deps.Repos.Template,
			deps.Repos.Application,
			deps.Repos.Task,
			deps.Repos.History,
			deps.TxManager,
			serviceLogger,
			opts...,
		),
		Tasks: service.NewTaskService(
			deps.Repos.Task,
			deps.Repos.Application,
			deps.Repos.History,
			deps.TxManager,
			serviceLogger,
			opts...,
		),
		Applications: service.NewApplicationService(
			deps.Repos.Application,
			deps.Repos.History,
			deps.TxManager,
			serviceLogger,
			opts...,
		),
		Progress: service.NewProgressService(
			deps.Repos.Task,
			deps.Repos.Application,
			deps.Repos.Template,
			serviceLogger,
			opts...,
		),
	}, nil
}

// ProvideWorkers registers the background workers enabled in cfg.
// The returned manager is never nil.
func ProvideWorkers(cfg *WorkersConfig, repos *RepositoryBundle, d dispatcher.Dispatcher, logger *zap.Logger) *worker.Manager {
	manager := worker.NewManager(logger)

	if cfg.OverdueInterval > 0 {
		manager.Register(worker.NewOverdueWorker(
			worker.OverdueWorkerConfig{
				PollInterval: cfg.OverdueInterval,
				BatchSize:    cfg.OverdueBatchSize,
			},
			repos.Task,
			d,
			port.SystemClock{},
			logger,
		))
	}

	return manager
}
