package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/helixir/paper-enrichment-service/internal/badges"
)

// badgesOutput is the JSON printed by the badges command.
type badgesOutput struct {
	DOI        string    `json:"doi"`
	Title      string    `json:"title"`
	Stored     []string  `json:"stored"`
	Current    []string  `json:"current"`
	ComputedAt time.Time `json:"computed_at"`
}

var badgesCmd = &cobra.Command{
	Use:   "badges <doi>",
	Short: "Recompute badges for a cached paper",
	Long: `Badges recomputes the badge set of a cached paper at the current time and
prints it next to the badges stored when the paper was enriched. Age-based
badges such as Recent Publication can drift between the two.`,
	Args: cobra.ExactArgs(1),
	RunE: withApp(runBadges),
}

func init() {
	rootCmd.AddCommand(badgesCmd)
}

func runBadges(ctx context.Context, a *app, args []string) error {
	paper, err := a.service.Lookup(ctx, args[0])
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	return outputJSON(badgesOutput{
		DOI:        paper.DOI,
		Title:      paper.Title,
		Stored:     paper.Badges,
		Current:    badges.Compute(badges.FieldsFromPaper(paper), now).Sorted(),
		ComputedAt: now,
	})
}
