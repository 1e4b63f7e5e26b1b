package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/garyjia/credentialing/internal/application/service"
	"github.com/garyjia/credentialing/internal/domain/entity"
)

type generateOptions struct {
	provider string
	payers   []string
	actor    string
	start    string
}

func newGenerateCommand(opts *rootOptions) *cobra.Command {
	g := &generateOptions{}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate credentialing applications and tasks for a provider",
		Example: `  credd generate --provider prov-1 --payer aetna --payer cigna --actor ops
  credd generate --provider prov-1 --payer aetna,cigna --actor ops --start 2026-03-02`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := service.GenerateRequest{
				ProviderID: g.provider,
				PayerIDs:   g.payers,
				Actor:      g.actor,
			}
			if g.start != "" {
				start, err := entity.ParseDate(g.start)
				if err != nil {
					return fmt.Errorf("invalid --start: %w", err)
				}
				req.StartDate = &start
			}

			c, stop, err := opts.startContainer(cmd.Context())
			if err != nil {
				return err
			}
			defer stop()

			result, err := c.Services().Generation.Generate(cmd.Context(), req)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PAYER\tOUTCOME\tAPPLICATION\tTASKS\tMESSAGE")
			for _, o := range result.Outcomes {
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n", o.PayerID, o.Outcome, o.ApplicationID, o.TasksCreated, o.Message)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d application(s), %d task(s) created\n", result.ApplicationsCreated, result.TasksCreated)
			return nil
		},
	}

	cmd.Flags().StringVar(&g.provider, "provider", "", "provider identifier")
	cmd.Flags().StringSliceVar(&g.payers, "payer", nil, "payer identifier (repeatable)")
	cmd.Flags().StringVar(&g.actor, "actor", "", "operator recorded in history")
	cmd.Flags().StringVar(&g.start, "start", "", "first day of the workflow (YYYY-MM-DD, default today)")
	_ = cmd.MarkFlagRequired("provider")
	_ = cmd.MarkFlagRequired("payer")
	_ = cmd.MarkFlagRequired("actor")
	return cmd
}
