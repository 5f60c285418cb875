package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/Sternrassler/swapi-export/pkg/swapi"
	"github.com/rs/zerolog"
)

// FilmsFetcher fetches the film list used to size the people crawl.
type FilmsFetcher interface {
	FetchFilms(ctx context.Context) (*swapi.FilmList, error)
}

// PlannerConfig holds page planning parameters.
type PlannerConfig struct {
	// DefaultPageCount is the crawl size when nothing is cached.
	DefaultPageCount int

	// PageSize is the number of people per API page.
	PageSize int
}

// DefaultPlannerConfig matches the public API: 9 pages of 10 people.
func DefaultPlannerConfig() PlannerConfig {
	return PlannerConfig{
		DefaultPageCount: 9,
		PageSize:         10,
	}
}

// Plan is the page range a run has to fetch.
type Plan struct {
	// Start and End delimit the page indices [Start, End) to fetch.
	Start, End int

	// Reused holds the cached records when the cache is still current.
	Reused []swapi.RawCharacter

	// Previous is the entry found in the store, nil on a miss or when caching is off.
	Previous *PageCache
}

// FromCache reports whether the run can skip fetching entirely.
func (p *Plan) FromCache() bool {
	return p.Start >= p.End && p.Previous != nil
}

// Planner decides page ranges from the persisted cache.
// A Planner with a nil Store always plans the default crawl and never writes.
type Planner struct {
	store  Store
	films  FilmsFetcher
	config PlannerConfig
	logger zerolog.Logger
}

// NewPlanner creates a planner. store may be nil to disable caching.
func NewPlanner(store Store, films FilmsFetcher, config PlannerConfig, logger zerolog.Logger) *Planner {
	def := DefaultPlannerConfig()
	if config.DefaultPageCount <= 0 {
		config.DefaultPageCount = def.DefaultPageCount
	}
	if config.PageSize <= 0 {
		config.PageSize = def.PageSize
	}
	return &Planner{
		store:  store,
		films:  films,
		config: config,
		logger: logger,
	}
}

// Enabled reports whether a store is configured.
func (p *Planner) Enabled() bool {
	return p.store != nil
}

// Plan returns the page range to fetch.
func (p *Planner) Plan(ctx context.Context) (*Plan, error) {
	defaultPlan := &Plan{Start: 0, End: p.config.DefaultPageCount}
	if p.store == nil {
		return defaultPlan, nil
	}

	previous, err := p.store.Load(ctx)
	if errors.Is(err, ErrCacheMiss) {
		p.logger.Info().
			Str("backend", p.store.Backend()).
			Int("pages", defaultPlan.End).
			Msg("No page cache, fetching default range")
		return defaultPlan, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load page cache: %w", err)
	}

	films, err := p.films.FetchFilms(ctx)
	if err != nil {
		return nil, fmt.Errorf("size people crawl: %w", err)
	}
	pages := PageCount(films.DistinctCharacters(), p.config.PageSize)

	if pages == previous.LastPageNumber {
		p.logger.Info().
			Str("backend", p.store.Backend()).
			Int("pages", pages).
			Int("characters", len(previous.Characters)).
			Msg("Page cache is current, skipping people fetch")
		return &Plan{
			Start:    previous.LastPageNumber,
			End:      previous.LastPageNumber,
			Reused:   previous.Characters,
			Previous: previous,
		}, nil
	}

	p.logger.Info().
		Str("backend", p.store.Backend()).
		Int("cached_pages", previous.LastPageNumber).
		Int("pages", pages).
		Msg("Page cache is stale, refetching")
	return &Plan{Start: 0, End: pages, Previous: previous}, nil
}

// Commit stores the crawl result when no entry existed or end grew past the cached one.
// It reports whether the store was written.
func (p *Planner) Commit(ctx context.Context, plan *Plan, end int, characters []swapi.RawCharacter) (bool, error) {
	if p.store == nil {
		return false, nil
	}
	if plan.Previous != nil && plan.Previous.LastPageNumber >= end {
		p.logger.Debug().
			Int("cached_pages", plan.Previous.LastPageNumber).
			Int("end", end).
			Msg("Page cache not advanced, keeping stored entry")
		return false, nil
	}

	entry := &PageCache{LastPageNumber: end, Characters: characters}
	if err := p.store.Save(ctx, entry); err != nil {
		return false, fmt.Errorf("save page cache: %w", err)
	}

	p.logger.Info().
		Str("backend", p.store.Backend()).
		Int("last_page_number", end).
		Int("characters", len(characters)).
		Msg("Page cache written")
	return true, nil
}

// PageCount returns ceil(items / pageSize). A non-positive pageSize yields 0.
func PageCount(items, pageSize int) int {
	if pageSize <= 0 || items <= 0 {
		return 0
	}
	return (items + pageSize - 1) / pageSize
}
