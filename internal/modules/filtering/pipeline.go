// Package filtering turns the loaded asset collection into the visible list:
// tab selection, search, then the active filter mode.
package filtering

import (
	"sort"
	"strings"

	"github.com/aristath/marketboard/internal/domain"
	"github.com/aristath/marketboard/internal/modules/scoring"
)

// Limit caps every sorted mode. FilterAll is never truncated.
const Limit = 20

// Apply returns the visible assets for state. The input slice is never modified.
func Apply(all []domain.Asset, state domain.FilterState) []domain.ScoredAsset {
	query := strings.ToLower(strings.TrimSpace(state.SearchQuery))

	out := make([]domain.ScoredAsset, 0, len(all))
	for _, a := range all {
		if a.Type != state.ActiveTab {
			continue
		}
		if query != "" && !matches(a, query) {
			continue
		}
		out = append(out, domain.ScoredAsset{Asset: a})
	}

	switch state.ActiveFilter {
	case domain.FilterTopGainers:
		sortBy(out, func(a, b domain.ScoredAsset) bool { return a.Change24h() > b.Change24h() })
	case domain.FilterTopLosers:
		sortBy(out, func(a, b domain.ScoredAsset) bool { return a.Change24h() < b.Change24h() })
	case domain.FilterMostExpensive:
		sortBy(out, func(a, b domain.ScoredAsset) bool { return a.CurrentPrice > b.CurrentPrice })
	case domain.FilterLeastExpensive:
		sortBy(out, func(a, b domain.ScoredAsset) bool { return a.CurrentPrice < b.CurrentPrice })
	case domain.FilterHighestMcap:
		sortBy(out, func(a, b domain.ScoredAsset) bool { return a.Cap() > b.Cap() })
	case domain.FilterRecommended:
		for i := range out {
			score := scoring.Score(out[i].Asset)
			out[i].RecommendationScore = &score
		}
		sortBy(out, func(a, b domain.ScoredAsset) bool { return *a.RecommendationScore > *b.RecommendationScore })
	default:
		return out
	}

	if len(out) > Limit {
		out = out[:Limit]
	}
	return out
}

func matches(a domain.Asset, query string) bool {
	return strings.Contains(strings.ToLower(a.Name), query) ||
		strings.Contains(strings.ToLower(a.Symbol), query)
}

func sortBy(assets []domain.ScoredAsset, less func(a, b domain.ScoredAsset) bool) {
	sort.SliceStable(assets, func(i, j int) bool {
		return less(assets[i], assets[j])
	})
}
