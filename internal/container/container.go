package container

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/garyjia/credentialing/internal/application/dispatcher"
	"github.com/garyjia/credentialing/internal/application/port"
	"github.com/garyjia/credentialing/internal/application/service"
	"github.com/garyjia/credentialing/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/credentialing/internal/infrastructure/report"
	"github.com/garyjia/credentialing/internal/infrastructure/worker"
	httpapi "github.com/garyjia/credentialing/internal/interfaces/http"
	"github.com/garyjia/credentialing/pkg/database"
)

// Container manages all application dependencies and lifecycle.
// It follows Clean Architecture principles with ordered initialization
// and reverse-order teardown.
type Container struct {
	config *Config
	logger *zap.Logger

	// Infrastructure - Data
	database     *database.DB
	db           *sqlite.DB
	repositories *RepositoryBundle

	// Infrastructure - External
	contractClient port.ContractClient
	redisClient    *redis.Client
	eventStream    *EventStreamBundle
	templateSource port.TemplateSource
	metrics        *MetricsBundle
	exporter       *report.ExcelExporter

	// Application
	dispatcher dispatcher.Dispatcher
	services   *ServiceBundle
	workers    *worker.Manager

	// Lifecycle
	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
	ready  atomic.Bool
	closed atomic.Bool
}

// RepositoryBundle groups all repositories for convenient access.
type RepositoryBundle struct {
	Template    port.TemplateRepository
	Application port.ApplicationRepository
	Task        port.TaskRepository
	History     port.HistoryRepository
}

// ServiceBundle groups all application services.
type ServiceBundle struct {
	Templates    service.TemplateService
	Generation   service.GenerationService
	Tasks        service.TaskService
	Applications service.ApplicationService
	Progress     service.ProgressService
}

// HealthStatus represents the health of all components.
type HealthStatus struct {
	Overall    bool                       `json:"overall"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents health of a single component.
type ComponentHealth struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// NewContainer creates a new container from configuration.
// It does not initialize components - call Start() to initialize.
func NewContainer(cfg *Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Container{
		config: cfg,
		logger: logger,
	}, nil
}

// Start initializes all components.
// Components are initialized in dependency order:
// 1. Database and repositories
// 2. External clients (contract endpoint, Redis, template loader)
// 3. Metrics
// 4. Event dispatcher and its subscribers
// 5. Application services
// 6. Template import, when configured
// 7. Background workers (registered here, started by StartWorkers)
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}

	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}

	c.ctx, c.cancel = context.WithCancel(ctx)
	c.logger.Info("Starting container initialization")

	// Step 1: Initialize database and repositories
	if err := c.initDatabase(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	c.logger.Info("Database initialized")

	// Step 2: Initialize external clients
	if err := c.initExternalClients(); err != nil {
		c.closeResources()
		return fmt.Errorf("failed to initialize external clients: %w", err)
	}
	c.logger.Info("External clients initialized")

	// Step 3: Metrics
	c.metrics = ProvideMetrics(&c.config.Metrics)
	c.exporter = report.NewExcelExporter(c.logger)

	// Step 4: Initialize dispatcher
	if err := c.initDispatcher(); err != nil {
		c.closeResources()
		return fmt.Errorf("failed to initialize dispatcher: %w", err)
	}
	c.logger.Info("Dispatcher initialized")

	// Step 5: Initialize application services
	if err := c.initServices(); err != nil {
		c.closeResources()
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	c.logger.Info("Application services initialized")

	// Step 6: Import templates
	if c.config.Templates.ImportOnBoot {
		imported, err := c.services.Templates.ImportDir(c.ctx, c.config.Templates.Dir)
		if err != nil {
			c.closeResources()
			return fmt.Errorf("failed to import templates: %w", err)
		}
		c.logger.Info("Templates imported", zap.String("dir", c.config.Templates.Dir), zap.Int("count", len(imported)))
	}

	// Step 7: Register background workers
	c.workers = ProvideWorkers(&c.config.Workers, c.repositories, c.dispatcher, c.logger)

	c.ready.Store(true)
	c.logger.Info("Container started successfully")

	return nil
}

// Close gracefully shuts down all components in reverse order.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container already closed")
	}

	c.logger.Info("Closing container")

	// Cancel context to signal all goroutines
	if c.cancel != nil {
		c.cancel()
	}

	errs := c.closeResources()

	c.closed.Store(true)
	c.ready.Store(false)

	if len(errs) > 0 {
		c.logger.Error("Container closed with errors", zap.Int("error_count", len(errs)))
		return fmt.Errorf("container closed with %d errors", len(errs))
	}

	c.logger.Info("Container closed successfully")
	return nil
}

// closeResources releases whatever has been opened so far, newest first.
func (c *Container) closeResources() []error {
	var errs []error

	// Step 1: Stop workers before the dispatcher they publish to
	if c.workers != nil {
		if err := c.workers.StopAll(); err != nil {
			errs = append(errs, fmt.Errorf("stop workers: %w", err))
		}
		c.workers = nil
	}

	// Step 2: Close dispatcher
	if c.dispatcher != nil {
		if err := c.dispatcher.Close(); err != nil {
			c.logger.Error("Failed to close dispatcher", zap.Error(err))
			errs = append(errs, fmt.Errorf("close dispatcher: %w", err))
		} else {
			c.logger.Info("Dispatcher closed")
		}
		c.dispatcher = nil
	}

	// Step 3: Close Redis
	if c.redisClient != nil {
		if err := c.redisClient.Close(); err != nil {
			c.logger.Error("Failed to close redis client", zap.Error(err))
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
		c.redisClient = nil
		c.eventStream = nil
	}

	// Step 4: Close database
	if c.database != nil {
		if err := c.database.Close(); err != nil {
			c.logger.Error("Failed to close database", zap.Error(err))
			errs = append(errs, fmt.Errorf("close database: %w", err))
		} else {
			c.logger.Info("Database closed")
		}
		c.database = nil
	}

	return errs
}

// StartWorkers starts the registered background workers. They stop when the
// container closes or ctx is cancelled.
func (c *Container) StartWorkers(ctx context.Context) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.ready.Load() {
		return fmt.Errorf("container not started")
	}
	if c.workers.Count() == 0 {
		return nil
	}
	return c.workers.StartAll(ctx)
}

// Ready returns true when all components are initialized.
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Health returns health status of all components.
func (c *Container) Health(ctx context.Context) *HealthStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()

	status := &HealthStatus{
		Overall:    true,
		Components: make(map[string]ComponentHealth),
	}
	set := func(name string, err error) {
		if err != nil {
			status.Components[name] = ComponentHealth{Healthy: false, Message: err.Error()}
			status.Overall = false
			return
		}
		status.Components[name] = ComponentHealth{Healthy: true}
	}

	// Check database
	if c.database != nil {
		set("database", c.database.PingContext(ctx))
	} else {
		set("database", fmt.Errorf("not initialized"))
	}

	// Check event stream; absent means disabled, not unhealthy
	if c.redisClient != nil {
		set("redis", c.redisClient.Ping(ctx).Err())
	}

	// Check dispatcher
	if c.dispatcher != nil {
		set("dispatcher", nil)
	} else {
		set("dispatcher", fmt.Errorf("not initialized"))
	}

	return status
}

// initDatabase initializes the database and all repositories using providers.
func (c *Container) initDatabase() error {
	dbBundle, err := ProvideDatabase(&c.config.Database, c.logger)
	if err != nil {
		return err
	}

	c.database = dbBundle.DB
	c.db = dbBundle.TransactionMgr

	repos, err := ProvideRepositories(c.database.DB, c.logger)
	if err != nil {
		c.closeResources()
		return err
	}

	c.repositories = repos
	return nil
}

// initExternalClients initializes the contract client, the event stream and the template loader.
func (c *Container) initExternalClients() error {
	c.contractClient = ProvideContractClient(&c.config.Contracts, c.logger)

	stream, err := ProvideEventStream(c.ctx, &c.config.Redis, c.logger)
	if err != nil {
		return err
	}
	if stream != nil {
		c.eventStream = stream
		c.redisClient = stream.Client
	}

	source, err := ProvideTemplateSource(c.logger)
	if err != nil {
		return err
	}
	c.templateSource = source
	return nil
}

// initDispatcher creates the dispatcher and subscribes the stream publisher.
func (c *Container) initDispatcher() error {
	disp, err := ProvideDispatcher(c.logger)
	if err != nil {
		return err
	}
	c.dispatcher = disp

	if c.eventStream != nil {
		c.eventStream.Publisher.Register(disp)
		c.logger.Info("Event stream publisher registered")
	}
	return nil
}

// initServices initializes all application services using providers.
func (c *Container) initServices() error {
	services, err := ProvideServices(&ServiceDeps{
		Repos:          c.repositories,
		TxManager:      c.db,
		TemplateSource: c.templateSource,
		ContractClient: c.contractClient,
		Dispatcher:     c.dispatcher,
		Metrics:        c.metrics.Recorder,
		Logger:         c.logger,
	})
	if err != nil {
		return err
	}

	c.services = services
	return nil
}

// Getters for accessing container components

// DB returns the transaction manager.
func (c *Container) DB() port.TransactionManager {
	return c.db
}

// Repositories returns all repositories.
func (c *Container) Repositories() *RepositoryBundle {
	return c.repositories
}

// Dispatcher returns the event dispatcher.
func (c *Container) Dispatcher() dispatcher.Dispatcher {
	return c.dispatcher
}

// Services returns all application services.
func (c *Container) Services() *ServiceBundle {
	return c.services
}

// Exporter returns the XLSX progress exporter.
func (c *Container) Exporter() *report.ExcelExporter {
	return c.exporter
}

// MetricsRegistry returns the Prometheus registry, or nil when metrics are disabled.
func (c *Container) MetricsRegistry() *prometheus.Registry {
	if c.metrics == nil {
		return nil
	}
	return c.metrics.Registry
}

// Logger returns the container's logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Config returns the container's configuration.
func (c *Container) Config() *Config {
	return c.config
}

// HTTPServer builds the HTTP API over the container's services.
func (c *Container) HTTPServer() (*httpapi.Server, error) {
	if !c.ready.Load() {
		return nil, fmt.Errorf("container not started")
	}

	var gatherer prometheus.Gatherer
	if reg := c.MetricsRegistry(); reg != nil {
		gatherer = reg
	}

	return httpapi.NewServer(
		httpapi.ServerConfig{
			Host:         c.config.Server.Host,
			Port:         c.config.Server.Port,
			ReadTimeout:  c.config.Server.ReadTimeout,
			WriteTimeout: c.config.Server.WriteTimeout,
		},
		httpapi.Services{
			Templates:    c.services.Templates,
			Generation:   c.services.Generation,
			Tasks:        c.services.Tasks,
			Applications: c.services.Applications,
			Progress:     c.services.Progress,
		},
		c.exporter,
		gatherer,
		NewLoggerAdapter(c.logger),
	), nil
}

// LoggerAdapter adapts zap.Logger to the key-value Logger interfaces used by
// the application services, the dispatcher and the HTTP layer.
type LoggerAdapter struct {
	logger *zap.Logger
}

// NewLoggerAdapter wraps logger
func NewLoggerAdapter(logger *zap.Logger) *LoggerAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoggerAdapter{logger: logger}
}

func (a *LoggerAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Info(msg, convertToZapFields(keysAndValues...)...)
}

func (a *LoggerAdapter) Error(msg string, keysAndValues ...interface{}) {
	a.logger.Error(msg, convertToZapFields(keysAndValues...)...)
}

// convertToZapFields converts key-value pairs to zap fields.
func convertToZapFields(keysAndValues ...interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		if err, isErr := keysAndValues[i+1].(error); isErr {
			fields = append(fields, zap.NamedError(key, err))
			continue
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}
