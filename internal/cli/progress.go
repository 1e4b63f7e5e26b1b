package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

type progressOptions struct {
	provider string
	xlsx     string
}

func newProgressCommand(opts *rootOptions) *cobra.Command {
	p := &progressOptions{}

	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Print a provider's credentialing progress, or export it to XLSX",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, stop, err := opts.startContainer(cmd.Context())
			if err != nil {
				return err
			}
			defer stop()

			report, err := c.Services().Progress.Progress(cmd.Context(), p.provider)
			if err != nil {
				return err
			}

			if p.xlsx == "" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}

			f, err := os.Create(p.xlsx)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", p.xlsx, err)
			}
			if err := c.Exporter().Write(report, f); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "progress for %s written to %s\n", p.provider, p.xlsx)
			return nil
		},
	}

	cmd.Flags().StringVar(&p.provider, "provider", "", "provider identifier")
	cmd.Flags().StringVar(&p.xlsx, "xlsx", "", "write an XLSX workbook to this file instead of printing JSON")
	_ = cmd.MarkFlagRequired("provider")
	return cmd
}
