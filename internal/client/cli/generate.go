package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/socialmaster/internal/api"
	"github.com/dmitrijs2005/socialmaster/internal/client/client"
	"github.com/spf13/cobra"
)

func newGenerateCmd(a *app) *cobra.Command {
	var (
		start string
		days  int
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate posts for a run of consecutive days",
		Long:  "Generate posts for a run of consecutive days. Progress is printed on stderr; the final result is printed as JSON on stdout.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if days < 1 {
				return fmt.Errorf("--days must be at least 1")
			}
			if start == "" {
				start = time.Now().Format(time.DateOnly)
			}
			progress := cmd.ErrOrStderr()

			// Batches outlive the unary request timeout.
			return a.withClient(cmd, false, func(ctx context.Context, c client.Client) error {
				final, err := c.GenerateBatch(ctx, start, days, func(ev api.BatchEvent) {
					printProgress(progress, ev)
				})
				if final.State != "" {
					if perr := printJSON(cmd, final); perr != nil && err == nil {
						err = perr
					}
				}
				return err
			})
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "first day (YYYY-MM-DD, default today)")
	cmd.Flags().IntVar(&days, "days", 7, "number of days")
	return cmd
}

func printProgress(w io.Writer, ev api.BatchEvent) {
	if ev.Date != "" {
		fmt.Fprintf(w, "[%d/%d] %3.0f%% %s %s\n", ev.Completed, ev.Total, ev.Fraction*100, ev.Date, ev.State)
		return
	}
	fmt.Fprintf(w, "[%d/%d] %3.0f%% %s\n", ev.Completed, ev.Total, ev.Fraction*100, ev.State)
}
