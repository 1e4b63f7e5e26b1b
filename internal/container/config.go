// Package container provides dependency injection and lifecycle management
// for the credentialing engine following Clean Architecture principles.
package container

import (
	"fmt"
	"time"
)

// Config holds all configuration for the Container.
// It aggregates configurations for all subsystems.
type Config struct {
	// Database configuration
	Database DatabaseConfig

	// Server configuration
	Server ServerConfig

	// Templates configuration
	Templates TemplatesConfig

	// Contract-creation endpoint
	Contracts ContractsConfig

	// Event stream
	Redis RedisConfig

	// Prometheus metrics
	Metrics MetricsConfig

	// Background jobs
	Workers WorkersConfig
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Path to SQLite database file
	Path string

	// MaxOpenConns is the maximum number of open connections
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections
	MaxIdleConns int

	// ConnMaxLifetime is the maximum connection lifetime
	ConnMaxLifetime time.Duration

	// BusyTimeout is how long a writer waits for the database lock
	BusyTimeout time.Duration
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host to bind to
	Host string

	// Port to listen on
	Port int

	// ReadTimeout for HTTP server
	ReadTimeout time.Duration

	// WriteTimeout for HTTP server
	WriteTimeout time.Duration
}

// TemplatesConfig holds template file settings.
type TemplatesConfig struct {
	// Dir holds the payer template files
	Dir string

	// ImportOnBoot imports Dir when the container starts
	ImportOnBoot bool
}

// ContractsConfig holds contract-creation client settings.
type ContractsConfig struct {
	// BaseURL of the contract service; empty logs requests only
	BaseURL string

	// APIKey sent as a bearer token
	APIKey string

	// Timeout for contract requests
	Timeout time.Duration
}

// RedisConfig holds event stream settings.
type RedisConfig struct {
	// Addr of the Redis server; empty disables publishing
	Addr string

	Password string
	DB       int

	// Stream receives every domain event
	Stream string

	// MaxLength trims the stream approximately; 0 keeps everything
	MaxLength int64
}

// MetricsConfig holds Prometheus settings.
type MetricsConfig struct {
	Enabled bool
}

// WorkersConfig holds background job settings.
type WorkersConfig struct {
	// OverdueInterval between overdue sweeps; 0 disables the sweep
	OverdueInterval time.Duration

	// OverdueBatchSize caps tasks announced per sweep
	OverdueBatchSize int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:            "data/credentialing.db",
			MaxOpenConns:    8,
			MaxIdleConns:    4,
			ConnMaxLifetime: 5 * time.Minute,
			BusyTimeout:     5 * time.Second,
		},
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Templates: TemplatesConfig{
			Dir: "templates",
		},
		Contracts: ContractsConfig{
			Timeout: 10 * time.Second,
		},
		Redis: RedisConfig{
			Stream:    "credentialing.events",
			MaxLength: 10000,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
		Workers: WorkersConfig{
			OverdueInterval:  time.Hour,
			OverdueBatchSize: 500,
		},
	}
}

// Validate checks that required configuration values are present.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Templates.ImportOnBoot && c.Templates.Dir == "" {
		return fmt.Errorf("templates.dir is required when import_on_boot is set")
	}
	return nil
}
