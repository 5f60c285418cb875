// Package processor runs one export: plan the crawl from the page cache, fetch
// people pages, rank, resolve species, write the CSV and upload it.
package processor

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/Sternrassler/swapi-export/pkg/cache"
	"github.com/Sternrassler/swapi-export/pkg/client"
	"github.com/Sternrassler/swapi-export/pkg/export"
	"github.com/Sternrassler/swapi-export/pkg/logging"
	"github.com/Sternrassler/swapi-export/pkg/metrics"
	"github.com/Sternrassler/swapi-export/pkg/pagination"
	"github.com/Sternrassler/swapi-export/pkg/ranking"
	"github.com/Sternrassler/swapi-export/pkg/species"
	"github.com/Sternrassler/swapi-export/pkg/swapi"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// PeopleStage is the collector stage name of the people crawl.
const PeopleStage = "people"

// Options configures a Processor.
type Options struct {
	// Client is the shared HTTP client of the run. Required.
	Client *client.Client

	// Store persists crawl results between runs. nil disables caching.
	Store cache.Store

	// Ranker selects the top characters. nil picks the default policy.
	Ranker ranking.Ranker

	// TopN is the number of characters exported. Zero picks ranking.DefaultTopN.
	TopN int

	// SortByHeight orders the selection by height before export.
	SortByHeight bool

	// Fetch configures both fan-out stages.
	Fetch pagination.Config

	// Planner sizes the crawl.
	Planner cache.PlannerConfig

	// CSVPath is the output file. Empty picks export.DefaultCSVPath.
	CSVPath string

	// UploadURL receives the CSV. Empty picks export.DefaultUploadURL.
	UploadURL string

	Logger zerolog.Logger
}

// Report summarizes a finished run.
type Report struct {
	RunID        string
	PagesFetched int
	FromCache    bool
	CacheWritten bool
	Characters   int
	Selected     []swapi.Character
	CSVPath      string
	UploadStatus int
	Duration     time.Duration
}

// Processor executes export runs.
type Processor struct {
	opts    Options
	fetcher *swapi.Fetcher
}

// New validates opts and fills defaults.
func New(opts Options) (*Processor, error) {
	if opts.Client == nil {
		return nil, errors.New("processor: client is required")
	}
	if opts.Ranker == nil {
		r, err := ranking.ParsePolicy("")
		if err != nil {
			return nil, err
		}
		opts.Ranker = r
	}
	if opts.TopN < 0 {
		return nil, fmt.Errorf("processor: top n must not be negative, got %d", opts.TopN)
	}
	if opts.TopN == 0 {
		opts.TopN = ranking.DefaultTopN
	}
	if opts.CSVPath == "" {
		opts.CSVPath = export.DefaultCSVPath
	}

	return &Processor{
		opts:    opts,
		fetcher: swapi.NewFetcher(opts.Client),
	}, nil
}

// Run executes one export. Every log line of the run carries its run id.
func (p *Processor) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	report := &Report{
		RunID:   uuid.NewString(),
		CSVPath: p.opts.CSVPath,
	}
	logger := logging.WithRunID(p.opts.Logger, report.RunID)

	err := p.run(ctx, logger, report)
	report.Duration = time.Since(start)
	metrics.ObserveRun(err, report.Duration, report.PagesFetched, report.Characters)

	if err != nil {
		return report, err
	}

	logger.Info().
		Int("pages_fetched", report.PagesFetched).
		Bool("from_cache", report.FromCache).
		Int("characters", report.Characters).
		Int("selected", len(report.Selected)).
		Str("csv_path", report.CSVPath).
		Int("upload_status", report.UploadStatus).
		Dur("duration", report.Duration).
		Msg("Run complete")
	return report, nil
}

func (p *Processor) run(ctx context.Context, logger zerolog.Logger, report *Report) error {
	logger.Info().
		Str("base_url", p.opts.Client.BaseURL()).
		Str("policy", string(p.opts.Ranker.Policy())).
		Int("top_n", p.opts.TopN).
		Bool("cache", p.opts.Store != nil).
		Msg("Run started")

	raws, err := p.collectPeople(ctx, logger, report)
	if err != nil {
		return err
	}

	chars := swapi.NormalizeAll(raws)
	report.Characters = len(chars)

	selected := p.opts.Ranker.Select(chars, p.opts.TopN)
	if p.opts.SortByHeight {
		selected = ranking.OrderByHeight(selected)
	}
	logger.Info().
		Int("characters", len(chars)).
		Int("selected", len(selected)).
		Msg("Characters ranked")

	enricher := species.NewEnricher(p.fetcher, p.opts.Fetch, logger)
	selected, err = enricher.Enrich(ctx, selected)
	if err != nil {
		return fmt.Errorf("resolve species: %w", err)
	}
	report.Selected = selected

	if err := export.WriteFile(p.opts.CSVPath, selected); err != nil {
		return fmt.Errorf("export csv: %w", err)
	}
	logger.Info().
		Str("path", p.opts.CSVPath).
		Int("rows", len(selected)).
		Msg("CSV written")

	uploader := export.NewUploader(p.opts.Client, p.opts.UploadURL, logger.With().Str("stage", "upload").Logger())
	status, err := uploader.Upload(ctx, p.opts.CSVPath)
	report.UploadStatus = status
	if err != nil {
		return err
	}
	return nil
}

// collectPeople returns the raw people records for this run, from the cache
// when it is current and from the API otherwise.
func (p *Processor) collectPeople(ctx context.Context, logger zerolog.Logger, report *Report) ([]swapi.RawCharacter, error) {
	planner := cache.NewPlanner(p.opts.Store, p.fetcher, p.opts.Planner, logger.With().Str("stage", "cache").Logger())

	plan, err := planner.Plan(ctx)
	if err != nil {
		return nil, fmt.Errorf("plan crawl: %w", err)
	}
	if plan.FromCache() {
		report.FromCache = true
		return plan.Reused, nil
	}

	collector := pagination.NewCollector[int, *swapi.PeoplePage](PeopleStage, p.opts.Fetch, logger)
	pages, end, err := pagination.NewPaginator(collector).FetchRange(ctx, p.fetcher.FetchPeopleIndex, plan.Start, plan.End)
	if err != nil {
		return nil, fmt.Errorf("fetch people: %w", err)
	}
	report.PagesFetched = len(pages)

	// Pages arrive in completion order.
	slices.SortFunc(pages, func(a, b pagination.Result[int, *swapi.PeoplePage]) int {
		return a.Key - b.Key
	})
	var raws []swapi.RawCharacter
	for _, page := range pages {
		raws = append(raws, page.Value.Results...)
	}

	written, err := planner.Commit(ctx, plan, end, raws)
	if err != nil {
		return nil, err
	}
	report.CacheWritten = written

	logger.Info().
		Int("pages", len(pages)).
		Int("end", end).
		Int("records", len(raws)).
		Msg("People collected")
	return raws, nil
}
