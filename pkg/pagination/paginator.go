package pagination

import (
	"context"
	"time"
)

// Page is a fetched page that knows whether the API advertises a following one.
type Page interface {
	HasNext() bool
}

// Paginator walks page indices with a Collector.
type Paginator[T Page] struct {
	collector *Collector[int, T]
}

// NewPaginator creates a paginator over collector.
func NewPaginator[T Page](collector *Collector[int, T]) *Paginator[T] {
	return &Paginator[T]{collector: collector}
}

// FetchRange fetches page indices [start, end) and keeps extending the range one
// page at a time while every page fetched so far reports a next page.
// It returns all fetched pages and the final exclusive end index.
// start >= end fetches nothing and returns end unchanged.
func (p *Paginator[T]) FetchRange(ctx context.Context, fetch FetchFunc[int, T], start, end int) ([]Result[int, T], int, error) {
	begin := time.Now()
	logger := p.collector.logger

	var (
		pages    []Result[int, T]
		sawLast  bool
		rounds   int
		firstIdx = start
	)

	for start < end {
		rounds++
		batch, err := p.collector.Collect(ctx, indexRange(start, end), fetch)
		pages = append(pages, batch...)
		if err != nil {
			return pages, end, err
		}

		for _, r := range batch {
			if !r.Value.HasNext() {
				sawLast = true
			}
		}

		if sawLast {
			break
		}
		if len(batch) == 0 {
			logger.Warn().
				Int("start", start).
				Int("end", end).
				Msg("No page succeeded in batch, stopping pagination")
			break
		}

		logger.Info().
			Int("next_index", end).
			Msg("Every fetched page has a successor, extending range")
		start, end = end, end+1
	}

	logger.Info().
		Int("first_index", firstIdx).
		Int("end", end).
		Int("pages", len(pages)).
		Int("rounds", rounds).
		Dur("duration", time.Since(begin)).
		Msg("Pagination complete")

	return pages, end, nil
}

func indexRange(start, end int) []int {
	keys := make([]int, 0, end-start)
	for i := start; i < end; i++ {
		keys = append(keys, i)
	}
	return keys
}
