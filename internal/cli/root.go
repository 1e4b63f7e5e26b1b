// Package cli implements the credd command line.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/garyjia/credentialing/internal/config"
	"github.com/garyjia/credentialing/internal/container"
	"github.com/garyjia/credentialing/pkg/utils"
)

var (
	appVersion = "dev"
	appCommit  = "none"
)

// SetVersionInfo sets the version information injected via ldflags.
func SetVersionInfo(version, commit string) {
	appVersion = version
	appCommit = commit
}

type rootOptions struct {
	configPath string
}

// NewRootCommand builds the credd command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "credd",
		Short: "Provider credentialing workflow engine",
		Long: `credd turns payer workflow templates into per-provider credentialing
tasks and applications, tracks their status machines and reports progress.

Configuration is read from --config (YAML), a .env file and CRED_* environment variables.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to a YAML config file")

	root.AddCommand(
		newServeCommand(opts),
		newTemplatesCommand(opts),
		newGenerateCommand(opts),
		newProgressCommand(opts),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "credd %s\ncommit: %s\n", appVersion, appCommit)
			},
		},
	)
	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCommand().Execute()
}

// loadConfig reads configuration and builds the logger
func (o *rootOptions) loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, nil, err
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
		Service:    "credd",
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, logger, nil
}

// startContainer loads configuration and starts every component.
// The returned stop function closes the container and flushes the logger.
func (o *rootOptions) startContainer(ctx context.Context) (*container.Container, func(), error) {
	cfg, logger, err := o.loadConfig()
	if err != nil {
		return nil, nil, err
	}

	c, err := container.NewContainer(cfg.ToContainerConfig(), logger)
	if err != nil {
		return nil, nil, err
	}
	if err := c.Start(ctx); err != nil {
		return nil, nil, err
	}

	stop := func() {
		if err := c.Close(); err != nil {
			logger.Error("Failed to close container", zap.Error(err))
		}
		_ = logger.Sync()
	}
	return c, stop, nil
}
