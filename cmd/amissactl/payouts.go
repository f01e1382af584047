package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/amissa/backend/internal/app"
	"github.com/amissa/backend/internal/service"
	"github.com/spf13/cobra"
)

func payoutsCmd() *cobra.Command {
	var opts service.PayoutOptions
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "process-payouts",
		Short: "Transfer collected intention funds to each parish",
		Long: `Groups the paid intentions not yet paid out by parish and sends one
mobile-money payout per parish. --dry-run only reports the batches.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app.App) error {
				summary, err := a.Payouts.ProcessPayouts(cmd.Context(), opts)
				if summary != nil {
					if asJSON {
						if perr := printJSON(cmd.OutOrStdout(), summary); perr != nil {
							return perr
						}
					} else {
						printPayouts(cmd, summary, opts.DryRun)
					}
				}
				if err != nil {
					return err
				}
				if summary.Failed > 0 {
					return fmt.Errorf("%d of %d payouts failed", summary.Failed, summary.Attempted)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "report batches without transferring")
	cmd.Flags().StringVar(&opts.ParishID, "parish", "", "only this parish")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the summary as JSON")
	return cmd
}

func printPayouts(cmd *cobra.Command, s *service.PayoutSummary, dryRun bool) {
	out := cmd.OutOrStdout()
	if dryRun {
		fmt.Fprintln(out, "DRY RUN: nothing was transferred.")
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PARISH\tINTENTIONS\tAMOUNT\tSTATUS\tREFERENCE")
	for _, b := range s.Batches {
		fmt.Fprintf(tw, "%s\t%d\t%d XOF\t%s\t%s\n", b.ParishName, len(b.IntentionIDs), b.Amount, b.Status, b.Reference)
	}
	_ = tw.Flush()
	for _, sk := range s.Skipped {
		fmt.Fprintf(out, "skipped %s: %s\n", sk.ParishName, sk.Reason)
	}
	fmt.Fprintf(out, "\nattempted=%d succeeded=%d failed=%d transferred=%d XOF\n",
		s.Attempted, s.Succeeded, s.Failed, s.TotalTransferred)
}
