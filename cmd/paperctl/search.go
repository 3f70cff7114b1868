package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/helixir/paper-enrichment-service/internal/enrichment"
)

var (
	searchCount   int
	searchReports bool
)

// searchOutput is the JSON printed by the search command.
type searchOutput struct {
	*enrichment.QueryResult
	Reports map[string]string `json:"reports,omitempty"`
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Enrich the top papers matching a query",
	Long: `Search pages through Semantic Scholar for papers matching the query and
enriches up to --count of them. Fewer results than requested is not an error.
With --reports every paper also gets a relevance report from the configured
LLM provider.`,
	Args: cobra.MinimumNArgs(1),
	RunE: withApp(runSearch),
}

func init() {
	searchCmd.Flags().IntVarP(&searchCount, "count", "n", 10, "number of papers to enrich (1-50)")
	searchCmd.Flags().BoolVar(&searchReports, "reports", false, "generate a relevance report per paper")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(ctx context.Context, a *app, args []string) error {
	query := strings.Join(args, " ")

	result, err := a.service.EnrichByQuery(ctx, query, searchCount)
	if err != nil {
		return err
	}

	out := searchOutput{QueryResult: result}
	if searchReports {
		out.Reports = a.service.GenerateReports(ctx, result.Query, result.Papers)
	}
	return outputJSON(out)
}
