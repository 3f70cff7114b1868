package badges

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVenueRank(t *testing.T) {
	tests := []struct {
		venue    string
		expected string
	}{
		{venue: "Nature Medicine", expected: VenueRankHigh},
		{venue: "Science Advances", expected: VenueRankHigh},
		{venue: "Proceedings of the National Academy of Sciences", expected: VenueRankHigh},
		{venue: "NeurIPS", expected: VenueRankHigh},
		{venue: "Scientific Reports", expected: VenueRankMedium},
		{venue: "IEEE Access", expected: VenueRankMedium},
		{venue: "Frontiers in Psychology", expected: VenueRankMedium},
		{venue: "The Lancet Oncology", expected: VenueRankHigh},
		{venue: "Physical Review Letters.", expected: VenueRankHigh},
		{venue: "Advances in Neural Information Processing Systems 35", expected: VenueRankHigh},
		{venue: "Physical Review B", expected: VenueRankMedium},
		{venue: "BMJ Open", expected: VenueRankMedium},
		{venue: "Small Regional Bulletin", expected: VenueRankStandard},
		{venue: "Science of the Total Environment", expected: VenueRankStandard},
		{venue: "Natural Product Reports", expected: VenueRankStandard},
		{venue: "Journal of Computer Science", expected: VenueRankStandard},
		{venue: "  ", expected: VenueRankStandard},
	}

	for _, tt := range tests {
		t.Run(tt.venue, func(t *testing.T) {
			assert.Equal(t, tt.expected, VenueRank(tt.venue))
		})
	}
}
