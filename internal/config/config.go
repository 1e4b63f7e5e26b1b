package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// EnvPrefix is the prefix of every environment override, e.g. CRED_DATABASE_PATH
const EnvPrefix = "CRED"

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	Templates TemplatesConfig `mapstructure:"templates"`
	Contracts ContractsConfig `mapstructure:"contracts"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Workers   WorkersConfig   `mapstructure:"workers"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	BusyTimeout     time.Duration `mapstructure:"busy_timeout"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// TemplatesConfig locates payer workflow template files
type TemplatesConfig struct {
	Dir          string `mapstructure:"dir"`
	ImportOnBoot bool   `mapstructure:"import_on_boot"`
}

// ContractsConfig configures the contract-creation endpoint.
// An empty BaseURL logs contract requests instead of sending them.
type ContractsConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// RedisConfig configures the event stream. An empty Addr disables publishing.
type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	Stream    string `mapstructure:"stream"`
	MaxLength int64  `mapstructure:"max_length"`
}

// MetricsConfig toggles the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// WorkersConfig configures background jobs. A zero interval disables a job.
type WorkersConfig struct {
	OverdueInterval  time.Duration `mapstructure:"overdue_interval"`
	OverdueBatchSize int           `mapstructure:"overdue_batch_size"`
}

// Load loads configuration from an optional YAML file, a .env file and
// CRED_* environment variables, in increasing order of precedence.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	// Set defaults
	setDefaults(v)

	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	// Read config file
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Override with environment variables
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindEnvVars(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadDotEnv applies a .env file if present. Variables already set win.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := gotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)

	// Database defaults
	v.SetDefault("database.path", "data/credentialing.db")
	v.SetDefault("database.max_open_conns", 8)
	v.SetDefault("database.max_idle_conns", 4)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.busy_timeout", 5*time.Second)

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")

	v.SetDefault("templates.dir", "templates")
	v.SetDefault("templates.import_on_boot", false)

	v.SetDefault("contracts.timeout", 10*time.Second)

	v.SetDefault("redis.stream", "credentialing.events")
	v.SetDefault("redis.max_length", 10000)

	v.SetDefault("metrics.enabled", true)

	v.SetDefault("workers.overdue_interval", time.Hour)
	v.SetDefault("workers.overdue_batch_size", 500)
}

// bindEnvVars binds the secrets that are usually only supplied through the environment
func bindEnvVars(v *viper.Viper) error {
	bindings := map[string]string{
		"contracts.api_key":  "CRED_CONTRACTS_API_KEY",
		"contracts.base_url": "CRED_CONTRACTS_BASE_URL",
		"redis.addr":         "CRED_REDIS_ADDR",
		"redis.password":     "CRED_REDIS_PASSWORD",
		"database.path":      "CRED_DATABASE_PATH",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 {
		return fmt.Errorf("server timeouts must not be negative")
	}

	if strings.TrimSpace(c.Database.Path) == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Database.BusyTimeout < 0 {
		return fmt.Errorf("database.busy_timeout must not be negative")
	}

	switch c.Logger.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logger.format must be json or console, got %q", c.Logger.Format)
	}

	if c.Contracts.Timeout < 0 {
		return fmt.Errorf("contracts.timeout must not be negative")
	}
	if c.Contracts.BaseURL != "" && !strings.HasPrefix(c.Contracts.BaseURL, "http") {
		return fmt.Errorf("contracts.base_url must be an http(s) URL")
	}

	if c.Redis.DB < 0 {
		return fmt.Errorf("redis.db must not be negative")
	}

	if c.Workers.OverdueInterval < 0 || c.Workers.OverdueBatchSize < 0 {
		return fmt.Errorf("workers settings must not be negative")
	}

	return nil
}
