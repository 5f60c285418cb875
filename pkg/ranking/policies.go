package ranking

import (
	"slices"

	"github.com/Sternrassler/swapi-export/pkg/swapi"
)

// AppearancesHeight implements PolicyAppearancesHeight.
type AppearancesHeight struct{}

// Policy implements Ranker.
func (AppearancesHeight) Policy() Policy { return PolicyAppearancesHeight }

// Select implements Ranker.
func (AppearancesHeight) Select(chars []swapi.Character, n int) []swapi.Character {
	if n <= 0 {
		return []swapi.Character{}
	}

	measured := make([]swapi.Character, 0, len(chars))
	for _, c := range chars {
		if c.HasHeight {
			measured = append(measured, c)
		}
	}

	slices.SortStableFunc(measured, byAppearancesThenHeight)
	if len(measured) > n {
		measured = measured[:n]
	}
	return slices.Clip(measured)
}

// BoundaryTallest implements PolicyBoundaryTallest.
type BoundaryTallest struct{}

// Policy implements Ranker.
func (BoundaryTallest) Policy() Policy { return PolicyBoundaryTallest }

// Select implements Ranker.
func (BoundaryTallest) Select(chars []swapi.Character, n int) []swapi.Character {
	if n <= 0 {
		return []swapi.Character{}
	}

	sorted := slices.Clone(chars)
	slices.SortStableFunc(sorted, byAppearancesDesc)

	superset := sorted[:min(2*n, len(sorted))]
	if len(superset) <= n {
		out := slices.Clone(superset)
		slices.SortStableFunc(out, byAppearancesThenHeight)
		return out
	}

	boundary := superset[n-1].Appearances
	runStart := n - 1
	for runStart > 0 && superset[runStart-1].Appearances == boundary {
		runStart--
	}

	// Every record of the boundary count competes for the slots from runStart on;
	// the run itself guarantees there are at least n-runStart of them.
	var group []swapi.Character
	for _, c := range superset {
		if c.Appearances == boundary {
			group = append(group, c)
		}
	}
	slices.SortStableFunc(group, byHeightDesc)

	out := make([]swapi.Character, 0, n)
	out = append(out, superset[:runStart]...)
	out = append(out, group[:n-runStart]...)
	slices.SortStableFunc(out, byAppearancesThenHeight)
	return out
}
