// Package correlate cross-validates per-source company lists. A company
// becomes a candidate only when enough distinct sources report it.
package correlate

import (
	"sort"

	"github.com/sells-group/earnings-cli/internal/model"
)

// Dedupe collapses records of one source that share a symbol. The first
// non-empty name wins; records without a symbol are dropped. Output keeps
// the order in which symbols first appear.
func Dedupe(list []model.Company) []model.Company {
	out := make([]model.Company, 0, len(list))
	index := make(map[string]int, len(list))

	for _, c := range list {
		if !c.Valid() {
			continue
		}
		i, ok := index[c.Symbol]
		if !ok {
			index[c.Symbol] = len(out)
			out = append(out, c)
			continue
		}
		if out[i].Name == "" && c.Name != "" {
			out[i].Name = c.Name
		}
	}
	return out
}

// Correlate merges per-source lists and returns the companies reported by
// at least minimumReferences distinct sources, ordered by reference count
// descending and symbol ascending.
//
// lists must be in configured source order: when sources disagree on a
// name, the earliest source with a non-empty name wins.
func Correlate(lists [][]model.Company, minimumReferences int) []model.Candidate {
	total := 0
	for _, l := range lists {
		total += len(l)
	}

	groups := make(map[string]*model.Candidate, CapacityHint(total, len(lists)))
	for _, list := range lists {
		// After Dedupe a symbol occurs at most once per source, so each
		// occurrence is one distinct reference.
		for _, c := range Dedupe(list) {
			g, ok := groups[c.Symbol]
			if !ok {
				groups[c.Symbol] = &model.Candidate{Company: c, References: 1}
				continue
			}
			g.References++
			if g.Name == "" && c.Name != "" {
				g.Name = c.Name
			}
		}
	}

	candidates := make([]model.Candidate, 0, len(groups))
	for _, g := range groups {
		if g.References >= minimumReferences {
			candidates = append(candidates, *g)
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].References != candidates[j].References {
			return candidates[i].References > candidates[j].References
		}
		return candidates[i].Symbol < candidates[j].Symbol
	})
	return candidates
}

// CapacityHint estimates the number of distinct companies as the average
// list size. It returns 0 when no source was attempted.
func CapacityHint(totalEntries, sourcesAttempted int) int {
	if sourcesAttempted <= 0 || totalEntries <= 0 {
		return 0
	}
	return totalEntries / sourcesAttempted
}
