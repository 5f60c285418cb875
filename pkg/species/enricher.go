// Package species resolves the species references of ranked characters to names.
package species

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/Sternrassler/swapi-export/pkg/pagination"
	"github.com/Sternrassler/swapi-export/pkg/swapi"
	"github.com/rs/zerolog"
)

// Stage is the collector stage name used in logs and metrics.
const Stage = "species"

// LookupError reports a species reference that no fetched species matches.
type LookupError struct {
	Character string
	Ref       string
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("species %q of character %q not found among fetched species", e.Ref, e.Character)
}

// Fetcher fetches one species by its reference URL.
type Fetcher interface {
	FetchSpecies(ctx context.Context, ref string) (swapi.Species, error)
}

// Enricher replaces species references with species names.
//
// Enrich expects Species to hold reference URLs. Running it a second time on
// its own output fails with a *LookupError because names never equal URLs.
type Enricher struct {
	fetcher   Fetcher
	collector *pagination.Collector[string, swapi.Species]
	logger    zerolog.Logger
}

// NewEnricher creates an enricher fetching through a bounded worker pool.
// Its log lines carry stage=species.
func NewEnricher(fetcher Fetcher, config pagination.Config, logger zerolog.Logger) *Enricher {
	return &Enricher{
		fetcher:   fetcher,
		collector: pagination.NewCollector[string, swapi.Species](Stage, config, logger),
		logger:    logger.With().Str("stage", Stage).Logger(),
	}
}

// Enrich returns a copy of chars with every non-empty species reference resolved.
// Each distinct reference is fetched once. Fetch failures are skipped by the
// collector and surface as a *LookupError for the affected character.
func (e *Enricher) Enrich(ctx context.Context, chars []swapi.Character) ([]swapi.Character, error) {
	refs := References(chars)

	results, err := e.collector.Collect(ctx, refs, e.fetcher.FetchSpecies)
	if err != nil {
		return nil, err
	}

	// Completion order is nondeterministic; sort so "first match" is stable.
	slices.SortFunc(results, func(a, b pagination.Result[string, swapi.Species]) int {
		return strings.Compare(a.Key, b.Key)
	})
	fetched := make([]swapi.Species, 0, len(results))
	for _, r := range results {
		fetched = append(fetched, r.Value)
	}

	out, err := Join(chars, fetched)
	if err != nil {
		return nil, err
	}

	e.logger.Info().
		Int("characters", len(chars)).
		Int("references", len(refs)).
		Int("fetched", len(fetched)).
		Msg("Species resolved")
	return out, nil
}

// References returns the distinct non-empty species references in first-seen order.
func References(chars []swapi.Character) []string {
	seen := make(map[string]struct{}, len(chars))
	refs := make([]string, 0, len(chars))
	for _, c := range chars {
		if c.Species == "" {
			continue
		}
		if _, ok := seen[c.Species]; ok {
			continue
		}
		seen[c.Species] = struct{}{}
		refs = append(refs, c.Species)
	}
	return refs
}

// Join resolves each non-empty reference to the name of the first species whose
// URL equals it exactly. chars is not modified.
func Join(chars []swapi.Character, fetched []swapi.Species) ([]swapi.Character, error) {
	names := make(map[string]string, len(fetched))
	for _, s := range fetched {
		if _, ok := names[s.URL]; !ok {
			names[s.URL] = s.Name
		}
	}

	out := make([]swapi.Character, len(chars))
	copy(out, chars)
	for i := range out {
		if out[i].Species == "" {
			continue
		}
		name, ok := names[out[i].Species]
		if !ok {
			return nil, &LookupError{Character: out[i].Name, Ref: out[i].Species}
		}
		out[i].Species = name
	}
	return out, nil
}
