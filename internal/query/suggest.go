package query

import (
	"sort"

	"github.com/agnivade/levenshtein"

	"github.com/symindex/engine/internal/registry"
)

// maxSuggestions bounds how many "did you mean" candidates a not-found
// result carries.
const maxSuggestions = 3

// suggestionDistance is the farthest edit distance worth surfacing; beyond
// this the candidate is more likely noise than a typo.
const suggestionDistance = 4

// suggestNames returns the closest known symbol names to term, ordered by
// increasing edit distance, used to populate Result.Suggestions when a
// lookup verb (def/refs/members/...) fails to resolve its argument.
func suggestNames(reg *registry.IndexRegistry, term string) []string {
	candidates := reg.FindSymbols("*")
	if len(candidates) == 0 {
		return nil
	}

	type scored struct {
		name string
		dist int
	}
	seen := make(map[string]bool)
	var ranked []scored
	for _, sym := range candidates {
		if seen[sym.DisplayName] {
			continue
		}
		seen[sym.DisplayName] = true
		d := levenshtein.ComputeDistance(term, sym.DisplayName)
		if d <= suggestionDistance {
			ranked = append(ranked, scored{name: sym.DisplayName, dist: d})
		}
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].dist != ranked[j].dist {
			return ranked[i].dist < ranked[j].dist
		}
		return ranked[i].name < ranked[j].name
	})

	if len(ranked) > maxSuggestions {
		ranked = ranked[:maxSuggestions]
	}
	out := make([]string, len(ranked))
	for i, r := range ranked {
		out[i] = r.name
	}
	return out
}
