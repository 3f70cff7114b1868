package main

import (
	"context"

	"github.com/spf13/cobra"
)

var refreshFlag bool

var doiCmd = &cobra.Command{
	Use:   "doi <doi>",
	Short: "Enrich a single DOI",
	Long: `Enrich resolves a DOI (bare, doi: prefixed or a doi.org URL) into a canonical
paper record. Cached papers are returned without contacting any source unless
--refresh is given, which re-fetches citation metrics and badges.`,
	Args: cobra.ExactArgs(1),
	RunE: withApp(runDOI),
}

func init() {
	doiCmd.Flags().BoolVar(&refreshFlag, "refresh", false, "re-fetch metrics for a cached paper")
	rootCmd.AddCommand(doiCmd)
}

func runDOI(ctx context.Context, a *app, args []string) error {
	if refreshFlag {
		paper, err := a.service.RefreshMetrics(ctx, args[0])
		if err != nil {
			return err
		}
		return outputJSON(paper)
	}

	paper, err := a.service.EnrichByDOI(ctx, args[0])
	if err != nil {
		return err
	}
	return outputJSON(paper)
}
