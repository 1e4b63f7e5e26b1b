package config

import (
	"github.com/garyjia/credentialing/internal/container"
)

// ToContainerConfig converts the application Config to a container.Config.
// This provides a bridge between the file-based config loaded by viper
// and the container's configuration structure.
func (c *Config) ToContainerConfig() *container.Config {
	return &container.Config{
		Database: container.DatabaseConfig{
			Path:            c.Database.Path,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
			BusyTimeout:     c.Database.BusyTimeout,
		},
		Server: container.ServerConfig{
			Host:         c.Server.Host,
			Port:         c.Server.Port,
			ReadTimeout:  c.Server.ReadTimeout,
			WriteTimeout: c.Server.WriteTimeout,
		},
		Templates: container.TemplatesConfig{
			Dir:          c.Templates.Dir,
			ImportOnBoot: c.Templates.ImportOnBoot,
		},
		Contracts: container.ContractsConfig{
			BaseURL: c.Contracts.BaseURL,
			APIKey:  c.Contracts.APIKey,
			Timeout: c.Contracts.Timeout,
		},
		Redis: container.RedisConfig{
			Addr:      c.Redis.Addr,
			Password:  c.Redis.Password,
			DB:        c.Redis.DB,
			Stream:    c.Redis.Stream,
			MaxLength: c.Redis.MaxLength,
		},
		Metrics: container.MetricsConfig{
			Enabled: c.Metrics.Enabled,
		},
		Workers: container.WorkersConfig{
			OverdueInterval:  c.Workers.OverdueInterval,
			OverdueBatchSize: c.Workers.OverdueBatchSize,
		},
	}
}
