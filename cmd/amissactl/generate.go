package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/amissa/backend/internal/app"
	"github.com/amissa/backend/internal/config"
	"github.com/amissa/backend/internal/service"
	"github.com/spf13/cobra"
)

func generateCmd() *cobra.Command {
	var days int
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "generate-occurrences",
		Short: "Create the missing occurrences of every active recurring mass",
		Long: `Materializes occurrences for each active recurring mass from its last
generated occurrence (or start date) up to today + --days. Safe to re-run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("days") {
				days = config.Load().GenerationHorizonDays
			}
			if days < 1 {
				return fmt.Errorf("--days must be at least 1")
			}
			return withApp(cmd.Context(), func(a *app.App) error {
				summaries, err := a.Generator.GenerateForAll(cmd.Context(), days)
				if asJSON {
					if perr := printJSON(cmd.OutOrStdout(), summaries); perr != nil {
						return perr
					}
				} else {
					printGeneration(cmd, summaries)
				}
				return err
			})
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "generation horizon in days (default GENERATION_HORIZON_DAYS)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the summary as JSON")
	return cmd
}

func printGeneration(cmd *cobra.Command, summaries []service.GenerationSummary) {
	out := cmd.OutOrStdout()
	if len(summaries) == 0 {
		fmt.Fprintln(out, "Nothing to generate.")
		return
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PARISH\tMASS\tCREATED")
	total := 0
	for _, s := range summaries {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", s.ParishName, s.MassTitle, s.Count)
		total += s.Count
	}
	_ = tw.Flush()
	fmt.Fprintf(out, "\n%d occurrences created.\n", total)
}
