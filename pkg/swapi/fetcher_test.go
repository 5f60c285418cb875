package swapi_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/Sternrassler/swapi-export/internal/testutil"
	"github.com/Sternrassler/swapi-export/pkg/client"
	"github.com/Sternrassler/swapi-export/pkg/swapi"
	"github.com/rs/zerolog"
)

func newFetcher(t *testing.T, mock *testutil.MockSWAPI) *swapi.Fetcher {
	t.Helper()

	cfg := client.DefaultConfig("swapi-export-test/1.0")
	cfg.BaseURL = mock.BaseURL()
	cfg.RateLimit.RequestsPerSecond = 0

	c, err := client.New(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("client.New() error = %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return swapi.NewFetcher(c)
}

func people(n int) []testutil.Person {
	out := make([]testutil.Person, n)
	for i := range out {
		out[i] = testutil.Person{Name: "p" + string(rune('a'+i%26)), Height: "170", Films: 1}
	}
	return out
}

func TestPeoplePath(t *testing.T) {
	if got := swapi.PeoplePath(3); got != "people/?page=3" {
		t.Errorf("PeoplePath(3) = %q", got)
	}
}

func TestFetchPeoplePage(t *testing.T) {
	mock := testutil.NewMockSWAPI()
	defer mock.Close()
	mock.SetPeople(people(15))

	f := newFetcher(t, mock)
	ctx := context.Background()

	first, err := f.FetchPeoplePage(ctx, 1)
	if err != nil {
		t.Fatalf("FetchPeoplePage(1) error = %v", err)
	}
	if len(first.Results) != 10 || !first.HasNext() || first.Count != 15 {
		t.Errorf("page 1 = %d results, next %v, count %d", len(first.Results), first.HasNext(), first.Count)
	}

	last, err := f.FetchPeopleIndex(ctx, 1)
	if err != nil {
		t.Fatalf("FetchPeopleIndex(1) error = %v", err)
	}
	if len(last.Results) != 5 || last.HasNext() {
		t.Errorf("page 2 = %d results, next %v; want 5, false", len(last.Results), last.HasNext())
	}

	_, err = f.FetchPeoplePage(ctx, 3)
	if !client.IsStatus(err, http.StatusNotFound) {
		t.Errorf("FetchPeoplePage(3) error = %v, want 404", err)
	}
}

func TestFetchFilms(t *testing.T) {
	mock := testutil.NewMockSWAPI()
	defer mock.Close()
	mock.SetFilmCharacters(82)

	films, err := newFetcher(t, mock).FetchFilms(context.Background())
	if err != nil {
		t.Fatalf("FetchFilms() error = %v", err)
	}
	if got := films.DistinctCharacters(); got != 82 {
		t.Errorf("DistinctCharacters() = %d, want 82", got)
	}
}

func TestFetchSpecies(t *testing.T) {
	mock := testutil.NewMockSWAPI()
	defer mock.Close()
	mock.SetSpecies(map[int]string{3: "Wookie"})

	f := newFetcher(t, mock)

	s, err := f.FetchSpecies(context.Background(), mock.SpeciesURL(3))
	if err != nil {
		t.Fatalf("FetchSpecies() error = %v", err)
	}
	if s.Name != "Wookie" || s.URL != mock.SpeciesURL(3) {
		t.Errorf("FetchSpecies() = %+v", s)
	}

	if _, err := f.FetchSpecies(context.Background(), mock.SpeciesURL(99)); err == nil {
		t.Error("FetchSpecies() for unknown id should fail")
	}
}
