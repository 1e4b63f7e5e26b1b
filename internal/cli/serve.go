package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			c, stop, err := opts.startContainer(ctx)
			if err != nil {
				return err
			}
			defer stop()

			server, err := c.HTTPServer()
			if err != nil {
				return err
			}

			if err := c.StartWorkers(ctx); err != nil {
				c.Logger().Warn("Some background workers failed to start", zap.Error(err))
			}

			c.Logger().Info("Starting credentialing service",
				zap.String("version", appVersion),
				zap.String("address", server.Address()))
			return server.Start(ctx)
		},
	}
}
