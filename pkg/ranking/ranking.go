// Package ranking selects the top-N characters by film appearances with a
// height tie-break.
//
// Two selection policies exist and are chosen by name, never mixed:
//
//   - appearances-height (default): records without a height are dropped, the
//     rest are sorted by appearances then height, both descending, and the first
//     N are kept.
//   - boundary-tallest: the top 2N by appearances alone are kept in stable order;
//     the run of records sharing the appearance count found at position N is
//     refilled with the tallest records of that count. Records without a height
//     rank below every measured record.
//
// Both return at most N records ordered by appearances then height, descending,
// and never modify their input.
package ranking

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"github.com/Sternrassler/swapi-export/pkg/swapi"
)

// DefaultTopN is the number of characters selected per run.
const DefaultTopN = 10

// ErrUnknownPolicy is returned by ParsePolicy for an unrecognized name.
var ErrUnknownPolicy = errors.New("unknown ranking policy")

// Policy names a selection policy.
type Policy string

const (
	// PolicyAppearancesHeight drops unmeasured records and sorts by (appearances, height).
	PolicyAppearancesHeight Policy = "appearances-height"

	// PolicyBoundaryTallest refills the tie at the cut with the tallest records.
	PolicyBoundaryTallest Policy = "boundary-tallest"
)

// Ranker selects the top-n characters.
type Ranker interface {
	Policy() Policy
	Select(chars []swapi.Character, n int) []swapi.Character
}

// ParsePolicy returns the Ranker implementing name. An empty name selects the default.
func ParsePolicy(name string) (Ranker, error) {
	switch Policy(name) {
	case "", PolicyAppearancesHeight:
		return AppearancesHeight{}, nil
	case PolicyBoundaryTallest:
		return BoundaryTallest{}, nil
	default:
		return nil, fmt.Errorf("%w: %q (want %q or %q)", ErrUnknownPolicy, name,
			PolicyAppearancesHeight, PolicyBoundaryTallest)
	}
}

// effectiveHeight orders unmeasured records below every measured one.
func effectiveHeight(c swapi.Character) int {
	if !c.HasHeight {
		return -1
	}
	return c.Height
}

func byAppearancesDesc(a, b swapi.Character) int {
	return cmp.Compare(b.Appearances, a.Appearances)
}

func byHeightDesc(a, b swapi.Character) int {
	return cmp.Compare(effectiveHeight(b), effectiveHeight(a))
}

func byAppearancesThenHeight(a, b swapi.Character) int {
	if c := byAppearancesDesc(a, b); c != 0 {
		return c
	}
	return byHeightDesc(a, b)
}

// IsRanked reports whether chars is ordered by appearances then height, descending.
func IsRanked(chars []swapi.Character) bool {
	return slices.IsSortedFunc(chars, byAppearancesThenHeight)
}

// OrderByHeight returns a copy of chars sorted by height, tallest first, with
// unmeasured records last. Equal heights keep their relative order.
func OrderByHeight(chars []swapi.Character) []swapi.Character {
	out := slices.Clone(chars)
	slices.SortStableFunc(out, byHeightDesc)
	return out
}
