package workflows

import (
	"sort"

	"github.com/helixir/paper-enrichment-service/internal/domain"
)

// UniqueDOIs normalizes dois, drops blanks and duplicates, and keeps the
// first-seen order. Workflow code iterates the result, so it must not depend
// on map iteration order.
func UniqueDOIs(dois []string) []string {
	if len(dois) == 0 {
		return []string{}
	}
	seen := make(map[string]struct{}, len(dois))
	result := make([]string, 0, len(dois))
	for _, raw := range dois {
		doi := domain.NormalizeDOI(raw)
		if doi == "" {
			continue
		}
		if _, ok := seen[doi]; ok {
			continue
		}
		seen[doi] = struct{}{}
		result = append(result, doi)
	}
	return result
}

// SortedMapKeys returns the keys of a map sorted in ascending order. Go maps
// iterate in random order, which would break replay.
func SortedMapKeys[K ~string, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i] < keys[j]
	})
	return keys
}
