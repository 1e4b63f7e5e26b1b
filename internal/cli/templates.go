package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/garyjia/credentialing/internal/domain/entity"
	"github.com/garyjia/credentialing/internal/infrastructure/templates"
)

func newTemplatesCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "Validate, import and list payer workflow templates",
	}
	cmd.AddCommand(
		newTemplatesValidateCommand(),
		newTemplatesImportCommand(opts),
		newTemplatesListCommand(opts),
	)
	return cmd
}

func newTemplatesValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file|dir>",
		Short: "Check template files without touching the database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loader, err := templates.NewLoader(zap.NewNop())
			if err != nil {
				return err
			}

			loaded, err := loadTemplates(loader, args[0])
			if err != nil {
				return err
			}
			for _, tmpl := range loaded {
				if err := tmpl.Validate(); err != nil {
					return fmt.Errorf("%s: %w", tmpl.PayerID, err)
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%d template(s) valid\n", len(loaded))
			return nil
		},
	}
}

func newTemplatesImportCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file|dir>",
		Short: "Import template files, replacing each payer's previous template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, stop, err := opts.startContainer(cmd.Context())
			if err != nil {
				return err
			}
			defer stop()

			svc := c.Services().Templates
			var imported []*entity.WorkflowTemplate
			if isDir(args[0]) {
				imported, err = svc.ImportDir(cmd.Context(), args[0])
			} else {
				var tmpl *entity.WorkflowTemplate
				tmpl, err = svc.ImportFile(cmd.Context(), args[0])
				imported = []*entity.WorkflowTemplate{tmpl}
			}
			if err != nil {
				return err
			}

			for _, tmpl := range imported {
				fmt.Fprintf(cmd.OutOrStdout(), "imported %s version %d (%d tasks)\n", tmpl.PayerID, tmpl.Version, len(tmpl.Tasks))
			}
			return nil
		},
	}
}

func newTemplatesListCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, stop, err := opts.startContainer(cmd.Context())
			if err != nil {
				return err
			}
			defer stop()

			list, err := c.Services().Templates.List(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PAYER\tNAME\tCATEGORY\tVERSION\tTASKS")
			for _, tmpl := range list {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\n", tmpl.PayerID, tmpl.PayerName, tmpl.Category, tmpl.Version, len(tmpl.Tasks))
			}
			return w.Flush()
		},
	}
}

func loadTemplates(loader *templates.Loader, path string) ([]*entity.WorkflowTemplate, error) {
	if isDir(path) {
		return loader.LoadDir(path)
	}
	tmpl, err := loader.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return []*entity.WorkflowTemplate{tmpl}, nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
