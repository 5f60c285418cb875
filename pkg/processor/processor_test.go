package processor

import (
	"context"
	"encoding/csv"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Sternrassler/swapi-export/internal/testutil"
	"github.com/Sternrassler/swapi-export/pkg/cache"
	"github.com/Sternrassler/swapi-export/pkg/client"
	"github.com/Sternrassler/swapi-export/pkg/pagination"
	"github.com/Sternrassler/swapi-export/pkg/ranking"
	"github.com/Sternrassler/swapi-export/pkg/species"
	"github.com/rs/zerolog"
)

const (
	droid    = 2
	wookiee  = 3
	cerean   = 4
	nautolan = 5
	yodas    = 6
)

func elevenPeople() []testutil.Person {
	return []testutil.Person{
		{Name: "Luke Skywalker", Height: "172", Films: 4},
		{Name: "C-3PO", Height: "167", Films: 6, SpeciesIDs: []int{droid}},
		{Name: "R2-D2", Height: "96", Films: 6, SpeciesIDs: []int{droid}},
		{Name: "Darth Vader", Height: "202", Films: 4},
		{Name: "Leia Organa", Height: "150", Films: 4},
		{Name: "Obi-Wan Kenobi", Height: "182", Films: 6},
		{Name: "Chewbacca", Height: "228", Films: 4, SpeciesIDs: []int{wookiee}},
		{Name: "Yoda", Height: "66", Films: 5, SpeciesIDs: []int{yodas}},
		{Name: "Palpatine", Height: "170", Films: 5},
		{Name: "Ki-Adi-Mundi", Height: "198", Films: 3, SpeciesIDs: []int{cerean}},
		{Name: "Kit Fisto", Height: "196", Films: 3, SpeciesIDs: []int{nautolan}},
	}
}

func newMock(t *testing.T) *testutil.MockSWAPI {
	t.Helper()
	mock := testutil.NewMockSWAPI()
	t.Cleanup(mock.Close)
	mock.SetPeople(elevenPeople())
	mock.SetSpecies(map[int]string{
		droid:    "Droid",
		wookiee:  "Wookie",
		cerean:   "Cerean",
		nautolan: "Nautolan",
		yodas:    "Yoda's species",
	})
	return mock
}

func newOptions(t *testing.T, mock *testutil.MockSWAPI) Options {
	t.Helper()
	cfg := client.DefaultConfig("swapi-export-test/1.0")
	cfg.BaseURL = mock.BaseURL()
	cfg.RateLimit.RequestsPerSecond = 0
	c, err := client.New(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("client.New() error = %v", err)
	}
	t.Cleanup(func() { c.Close() })

	return Options{
		Client:       c,
		SortByHeight: true,
		Fetch:        pagination.Config{MaxConcurrency: 4},
		Planner:      cache.DefaultPlannerConfig(),
		CSVPath:      filepath.Join(t.TempDir(), "csv", "top.csv"),
		UploadURL:    mock.UploadURL(),
		Logger:       zerolog.Nop(),
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open csv: %v", err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	return records
}

func TestRun_EndToEnd(t *testing.T) {
	mock := newMock(t)
	opts := newOptions(t, mock)

	p, err := New(opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	report, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if report.RunID == "" {
		t.Error("RunID should be set")
	}
	if report.PagesFetched != 2 {
		t.Errorf("PagesFetched = %d, want 2", report.PagesFetched)
	}
	if report.Characters != 11 {
		t.Errorf("Characters = %d, want 11", report.Characters)
	}
	if report.UploadStatus != http.StatusOK {
		t.Errorf("UploadStatus = %d, want 200", report.UploadStatus)
	}

	want := [][]string{
		{"name", "species", "height", "appearances"},
		{"Chewbacca", "Wookie", "228", "4"},
		{"Darth Vader", "", "202", "4"},
		{"Ki-Adi-Mundi", "Cerean", "198", "3"},
		{"Obi-Wan Kenobi", "", "182", "6"},
		{"Luke Skywalker", "", "172", "4"},
		{"Palpatine", "", "170", "5"},
		{"C-3PO", "Droid", "167", "6"},
		{"Leia Organa", "", "150", "4"},
		{"R2-D2", "Droid", "96", "6"},
		{"Yoda", "Yoda's species", "66", "5"},
	}
	got := readCSV(t, report.CSVPath)
	if len(got) != len(want) {
		t.Fatalf("csv has %d records, want %d", len(got), len(want))
	}
	for i := range want {
		if strings.Join(got[i], "|") != strings.Join(want[i], "|") {
			t.Errorf("record %d = %q, want %q", i, got[i], want[i])
		}
	}

	uploads := mock.Uploads()
	if len(uploads) != 1 {
		t.Fatalf("uploads = %d, want 1", len(uploads))
	}
	onDisk, _ := os.ReadFile(report.CSVPath)
	if string(uploads[0]) != string(onDisk) {
		t.Error("uploaded content differs from the written file")
	}

	if n := mock.RequestCount("/api/species/2/"); n != 1 {
		t.Errorf("droid species fetched %d times, want 1", n)
	}
	if n := mock.RequestCount("/api/films/"); n != 0 {
		t.Errorf("films fetched %d times without a cache, want 0", n)
	}
}

func TestRun_CompositeOrder(t *testing.T) {
	mock := newMock(t)
	opts := newOptions(t, mock)
	opts.SortByHeight = false

	p, err := New(opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	report, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := []string{
		"Obi-Wan Kenobi", "C-3PO", "R2-D2", "Palpatine", "Yoda",
		"Chewbacca", "Darth Vader", "Luke Skywalker", "Leia Organa", "Ki-Adi-Mundi",
	}
	if len(report.Selected) != len(want) {
		t.Fatalf("selected %d, want %d", len(report.Selected), len(want))
	}
	for i, name := range want {
		if report.Selected[i].Name != name {
			t.Errorf("Selected[%d] = %q, want %q", i, report.Selected[i].Name, name)
		}
	}
	if !ranking.IsRanked(report.Selected) {
		t.Error("selection should be in composite order")
	}
}

func TestRun_SkipsFailedPage(t *testing.T) {
	mock := newMock(t)
	mock.FailPage(2, http.StatusInternalServerError)

	p, err := New(newOptions(t, mock))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	report, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.Characters != 10 {
		t.Errorf("Characters = %d, want 10 from the surviving page", report.Characters)
	}
}

func TestRun_CacheReuse(t *testing.T) {
	mock := newMock(t)
	opts := newOptions(t, mock)
	opts.Store = cache.NewFileStore(filepath.Join(t.TempDir(), "cache", "cache.json"))
	opts.Planner = cache.PlannerConfig{DefaultPageCount: 2, PageSize: testutil.PageSize}

	p, err := New(opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx := context.Background()

	first, err := p.Run(ctx)
	if err != nil {
		t.Fatalf("first Run() error = %v", err)
	}
	if first.FromCache || !first.CacheWritten {
		t.Errorf("first run FromCache=%v CacheWritten=%v, want fetch and write", first.FromCache, first.CacheWritten)
	}
	peopleRequests := mock.RequestCount("/api/people/")

	second, err := p.Run(ctx)
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if !second.FromCache {
		t.Error("second run should reuse the cache")
	}
	if second.CacheWritten {
		t.Error("second run should not rewrite the cache")
	}
	if second.PagesFetched != 0 {
		t.Errorf("second run fetched %d pages, want 0", second.PagesFetched)
	}
	if n := mock.RequestCount("/api/people/"); n != peopleRequests {
		t.Errorf("people requests grew from %d to %d on a cached run", peopleRequests, n)
	}
	if mock.RequestCount("/api/films/") != 1 {
		t.Errorf("films fetched %d times, want 1", mock.RequestCount("/api/films/"))
	}
	if second.Characters != first.Characters {
		t.Errorf("cached run ranked %d characters, want %d", second.Characters, first.Characters)
	}
}

func TestRun_StaleCacheRefetches(t *testing.T) {
	mock := newMock(t)
	opts := newOptions(t, mock)
	store := cache.NewFileStore(filepath.Join(t.TempDir(), "cache.json"))
	opts.Store = store
	opts.Planner = cache.PlannerConfig{DefaultPageCount: 2, PageSize: testutil.PageSize}

	if err := store.Save(context.Background(), &cache.PageCache{LastPageNumber: 1}); err != nil {
		t.Fatal(err)
	}

	p, err := New(opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	report, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.FromCache {
		t.Error("stale cache must not be reused")
	}
	if report.Characters != 11 {
		t.Errorf("Characters = %d, want 11 without stale duplicates", report.Characters)
	}
	if !report.CacheWritten {
		t.Error("grown crawl should overwrite the cache")
	}
}

func TestRun_SpeciesLookupFailure(t *testing.T) {
	mock := newMock(t)
	mock.FailSpecies(wookiee, http.StatusNotFound)
	opts := newOptions(t, mock)

	p, err := New(opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	_, err = p.Run(context.Background())

	var lookupErr *species.LookupError
	if !errors.As(err, &lookupErr) {
		t.Fatalf("Run() error = %v, want *species.LookupError", err)
	}
	if _, statErr := os.Stat(opts.CSVPath); !errors.Is(statErr, os.ErrNotExist) {
		t.Error("no CSV should be written when species lookup fails")
	}
	if len(mock.Uploads()) != 0 {
		t.Error("nothing should be uploaded when species lookup fails")
	}
}

func TestRun_UploadFailure(t *testing.T) {
	mock := newMock(t)
	mock.SetUploadStatus(http.StatusServiceUnavailable)
	opts := newOptions(t, mock)

	p, err := New(opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	report, err := p.Run(context.Background())
	if !client.IsStatus(err, http.StatusServiceUnavailable) {
		t.Fatalf("Run() error = %v, want 503", err)
	}
	if _, statErr := os.Stat(report.CSVPath); statErr != nil {
		t.Errorf("CSV should exist before the upload fails: %v", statErr)
	}
}

func TestRun_Cancelled(t *testing.T) {
	mock := newMock(t)
	p, err := New(newOptions(t, mock))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}

func TestNew_Defaults(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Error("New() without client should fail")
	}

	mock := newMock(t)
	opts := newOptions(t, mock)
	opts.CSVPath = ""
	p, err := New(opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if p.opts.TopN != ranking.DefaultTopN {
		t.Errorf("TopN = %d, want %d", p.opts.TopN, ranking.DefaultTopN)
	}
	if p.opts.Ranker.Policy() != ranking.PolicyAppearancesHeight {
		t.Errorf("Policy = %q, want %q", p.opts.Ranker.Policy(), ranking.PolicyAppearancesHeight)
	}
	if p.opts.CSVPath == "" {
		t.Error("CSVPath should default")
	}

	opts.TopN = -1
	if _, err := New(opts); err == nil {
		t.Error("New() with negative TopN should fail")
	}
}
