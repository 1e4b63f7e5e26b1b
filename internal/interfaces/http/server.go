// Package http provides HTTP server adapter for the application layer.
// This is a thin adapter layer that translates HTTP requests to application service calls.
package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/garyjia/credentialing/internal/application/service"
	"github.com/garyjia/credentialing/internal/domain/entity"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ProgressExporter renders a progress report as a spreadsheet
type ProgressExporter interface {
	Write(report *entity.ProgressReport, w io.Writer) error
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:         "0.0.0.0",
		Port:         8080,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// Services groups the application services the API exposes
type Services struct {
	Templates    service.TemplateService
	Generation   service.GenerationService
	Tasks        service.TaskService
	Applications service.ApplicationService
	Progress     service.ProgressService
}

// Server is the HTTP server adapter
type Server struct {
	config     ServerConfig
	httpServer *http.Server
	router     *gin.Engine
	services   Services
	exporter   ProgressExporter
	gatherer   prometheus.Gatherer
	logger     Logger
}

// NewServer creates a new HTTP server with the given services.
// A nil gatherer disables the /metrics endpoint.
func NewServer(
	config ServerConfig,
	services Services,
	exporter ProgressExporter,
	gatherer prometheus.Gatherer,
	logger Logger,
) *Server {
	// Set gin mode based on environment
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	server := &Server{
		config:   config,
		router:   router,
		services: services,
		exporter: exporter,
		gatherer: gatherer,
		logger:   logger,
	}

	// Setup middleware
	server.setupMiddleware()

	// Setup routes
	server.setupRoutes()

	return server
}

// setupMiddleware configures middleware for the router
func (s *Server) setupMiddleware() {
	// Recovery middleware
	s.router.Use(gin.Recovery())

	// Logging middleware
	s.router.Use(s.loggingMiddleware())
}

// loggingMiddleware creates a logging middleware
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		// Process request
		c.Next()

		// Log request details
		latency := time.Since(start)
		status := c.Writer.Status()

		s.logger.Info("HTTP request",
			"method", method,
			"path", path,
			"status", status,
			"latency", latency.String(),
			"client_ip", c.ClientIP(),
			"operator", c.GetHeader(OperatorHeader),
		)
	}
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	handlers := NewHandlers(s.services, s.exporter, s.logger)
	operator := requireOperator()

	// Health check
	s.router.GET("/health", handlers.HealthCheck)
	if s.gatherer != nil {
		s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}

	// API routes
	api := s.router.Group("/api", validateIdentifiers())
	{
		// Templates
		api.GET("/templates", handlers.ListTemplates)
		api.GET("/templates/:payer_id", handlers.GetTemplate)

		// Providers
		provider := api.Group("/providers/:provider_id")
		provider.POST("/generate", operator, handlers.Generate)
		provider.GET("/tasks", handlers.ListTasks)
		provider.POST("/tasks", operator, handlers.CreateTask)
		provider.GET("/applications", handlers.ListApplications)
		provider.GET("/applications/:payer_id", handlers.GetApplication)
		provider.PATCH("/applications/:payer_id", operator, handlers.UpdateApplication)
		provider.GET("/applications/:payer_id/history", handlers.ApplicationHistory)
		provider.GET("/progress", handlers.Progress)
		provider.GET("/progress/export", handlers.ExportProgress)

		// Tasks
		api.GET("/tasks/:id", handlers.GetTask)
		api.PATCH("/tasks/:id", operator, handlers.UpdateTask)
		api.DELETE("/tasks/:id", operator, handlers.DeleteTask)
		api.GET("/tasks/:id/history", handlers.TaskHistory)
	}
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", "address", addr)

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for context cancellation or error
	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", "error", err)
		return err
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	s.logger.Info("Stopping HTTP server")

	// Create shutdown context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Address returns the server address
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}
