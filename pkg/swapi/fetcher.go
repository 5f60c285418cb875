package swapi

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Sternrassler/swapi-export/pkg/client"
)

// Fetcher issues single GET requests against SWAPI and decodes them.
// A non-200 status is returned as a *client.APIError; whether that is fatal is
// up to the caller.
type Fetcher struct {
	client *client.Client
}

// NewFetcher creates a fetcher on top of the shared run client.
func NewFetcher(c *client.Client) *Fetcher {
	return &Fetcher{client: c}
}

// PeoplePath returns the endpoint of the given 1-based people page.
func PeoplePath(page int) string {
	return "people/?page=" + strconv.Itoa(page)
}

// FetchPeoplePage fetches one 1-based page of people.
func (f *Fetcher) FetchPeoplePage(ctx context.Context, page int) (*PeoplePage, error) {
	var p PeoplePage
	if err := f.client.GetJSON(ctx, PeoplePath(page), &p); err != nil {
		return nil, fmt.Errorf("people page %d: %w", page, err)
	}
	return &p, nil
}

// FetchPeopleIndex adapts FetchPeoplePage to 0-based page indices.
func (f *Fetcher) FetchPeopleIndex(ctx context.Context, index int) (*PeoplePage, error) {
	return f.FetchPeoplePage(ctx, index+1)
}

// FetchFilms fetches the film list used to size the people crawl.
func (f *Fetcher) FetchFilms(ctx context.Context) (*FilmList, error) {
	var l FilmList
	if err := f.client.GetJSON(ctx, "films/", &l); err != nil {
		return nil, fmt.Errorf("films: %w", err)
	}
	return &l, nil
}

// FetchSpecies fetches a species by its absolute reference URL.
func (f *Fetcher) FetchSpecies(ctx context.Context, ref string) (Species, error) {
	var s Species
	if err := f.client.GetJSON(ctx, ref, &s); err != nil {
		return Species{}, fmt.Errorf("species %s: %w", ref, err)
	}
	return s, nil
}
