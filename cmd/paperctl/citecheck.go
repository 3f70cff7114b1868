package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"
)

var citeCheckCmd = &cobra.Command{
	Use:   "citecheck <doi> <claim>",
	Short: "Judge whether a paper supports a claim",
	Long: `Citecheck enriches the DOI and asks the configured LLM provider whether the
paper supports the claim. Reports are cached per paper and claim. Set
PAPERENRICH_LLM_PROVIDER=static to exercise the pipeline offline.`,
	Args: cobra.MinimumNArgs(2),
	RunE: withApp(runCiteCheck),
}

func init() {
	rootCmd.AddCommand(citeCheckCmd)
}

func runCiteCheck(ctx context.Context, a *app, args []string) error {
	claim := strings.Join(args[1:], " ")

	result, err := a.service.CiteCheck(ctx, claim, args[0])
	if err != nil {
		return err
	}
	return outputJSON(result)
}
