package completion

import (
	"context"
	"slices"
)

// FilterCandidates returns the candidates present in available, in candidate
// order. With no candidates configured every available model is returned,
// sorted.
func FilterCandidates(available, candidates []string) []string {
	if len(candidates) == 0 {
		sorted := slices.Clone(available)
		slices.Sort(sorted)
		return sorted
	}

	filtered := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if slices.Contains(available, c) {
			filtered = append(filtered, c)
		}
	}
	return filtered
}

// ProbeModels lists the provider's models and narrows them to candidates.
// It doubles as the completion capability probe: any error means the
// service is unavailable.
func ProbeModels(ctx context.Context, lister ModelLister, candidates []string) ([]string, error) {
	models, err := lister.ListModels(ctx)
	if err != nil {
		return nil, err
	}
	return FilterCandidates(models, candidates), nil
}
