// Package testutil provides a configurable in-process SWAPI for tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"

	"github.com/Sternrassler/swapi-export/pkg/swapi"
)

// PageSize is the number of people per page, as served by SWAPI.
const PageSize = 10

// Person describes a fixture character. Films and SpeciesIDs are turned into
// absolute URLs pointing at the mock server.
type Person struct {
	Name       string
	Height     string
	Films      int
	SpeciesIDs []int
}

// MockSWAPI is a configurable mock of the Star Wars API plus an upload sink.
type MockSWAPI struct {
	server *httptest.Server

	mu              sync.RWMutex
	people          []Person
	species         map[int]string
	filmCharacters  int
	failingPages    map[int]int
	failingSpecies  map[int]int
	uploadStatus    int
	requests        map[string]int
	uploads         [][]byte
	uploadFilenames []string
}

// NewMockSWAPI starts a mock server. Call Close when done.
func NewMockSWAPI() *MockSWAPI {
	m := &MockSWAPI{
		species:        make(map[int]string),
		failingPages:   make(map[int]int),
		failingSpecies: make(map[int]int),
		uploadStatus:   http.StatusOK,
		requests:       make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/people/", m.handlePeople)
	mux.HandleFunc("/api/films/", m.handleFilms)
	mux.HandleFunc("/api/species/", m.handleSpecies)
	mux.HandleFunc("/post", m.handleUpload)

	m.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		m.requests[r.URL.Path]++
		m.mu.Unlock()
		mux.ServeHTTP(w, r)
	}))

	return m
}

// URL returns the mock server root.
func (m *MockSWAPI) URL() string {
	return m.server.URL
}

// BaseURL returns the API root to configure clients with.
func (m *MockSWAPI) BaseURL() string {
	return m.server.URL + "/api"
}

// UploadURL returns the upload sink endpoint.
func (m *MockSWAPI) UploadURL() string {
	return m.server.URL + "/post"
}

// SpeciesURL returns the absolute URL of a species id on this server.
func (m *MockSWAPI) SpeciesURL(id int) string {
	return fmt.Sprintf("%s/api/species/%d/", m.server.URL, id)
}

// Close shuts down the mock server.
func (m *MockSWAPI) Close() {
	m.server.Close()
}

// SetPeople replaces the people served across pages.
func (m *MockSWAPI) SetPeople(people []Person) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.people = people
}

// SetSpecies registers species names by id.
func (m *MockSWAPI) SetSpecies(species map[int]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, name := range species {
		m.species[id] = name
	}
}

// SetFilmCharacters sets how many distinct characters /films/ references.
// Zero means "as many as there are people".
func (m *MockSWAPI) SetFilmCharacters(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.filmCharacters = n
}

// FailPage makes the given 1-based people page answer with status.
func (m *MockSWAPI) FailPage(page, status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failingPages[page] = status
}

// FailSpecies makes the given species id answer with status.
func (m *MockSWAPI) FailSpecies(id, status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failingSpecies[id] = status
}

// SetUploadStatus sets the status returned by the upload sink.
func (m *MockSWAPI) SetUploadStatus(status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploadStatus = status
}

// RequestCount returns how many requests hit the given path.
func (m *MockSWAPI) RequestCount(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requests[path]
}

// Uploads returns the bodies of the files received by the upload sink.
func (m *MockSWAPI) Uploads() [][]byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([][]byte, len(m.uploads))
	copy(out, m.uploads)
	return out
}

// UploadFilenames returns the multipart filenames received by the upload sink.
func (m *MockSWAPI) UploadFilenames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.uploadFilenames...)
}

func (m *MockSWAPI) handlePeople(w http.ResponseWriter, r *http.Request) {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if status, ok := m.failingPages[page]; ok {
		writeJSON(w, status, map[string]string{"detail": "failure injected"})
		return
	}

	start := (page - 1) * PageSize
	if start >= len(m.people) {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found"})
		return
	}
	end := start + PageSize
	if end > len(m.people) {
		end = len(m.people)
	}

	resp := swapi.PeoplePage{Count: len(m.people)}
	if end < len(m.people) {
		next := fmt.Sprintf("%s/api/people/?page=%d", m.server.URL, page+1)
		resp.Next = &next
	}
	if page > 1 {
		prev := fmt.Sprintf("%s/api/people/?page=%d", m.server.URL, page-1)
		resp.Previous = &prev
	}
	for i, p := range m.people[start:end] {
		resp.Results = append(resp.Results, m.rawCharacter(start+i+1, p))
	}

	writeJSON(w, http.StatusOK, resp)
}

func (m *MockSWAPI) rawCharacter(id int, p Person) swapi.RawCharacter {
	raw := swapi.RawCharacter{
		Name:    p.Name,
		Height:  p.Height,
		Films:   []string{},
		Species: []string{},
		URL:     fmt.Sprintf("%s/api/people/%d/", m.server.URL, id),
	}
	for f := 1; f <= p.Films; f++ {
		raw.Films = append(raw.Films, fmt.Sprintf("%s/api/films/%d/", m.server.URL, f))
	}
	for _, s := range p.SpeciesIDs {
		raw.Species = append(raw.Species, m.SpeciesURL(s))
	}
	return raw
}

func (m *MockSWAPI) handleFilms(w http.ResponseWriter, r *http.Request) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := m.filmCharacters
	if n == 0 {
		n = len(m.people)
	}

	// Two films referencing overlapping halves so distinct counting matters.
	var first, second []string
	for i := 1; i <= n; i++ {
		u := fmt.Sprintf("%s/api/people/%d/", m.server.URL, i)
		if i <= (n+1)/2+1 {
			first = append(first, u)
		}
		if i >= (n+1)/2 {
			second = append(second, u)
		}
	}

	writeJSON(w, http.StatusOK, swapi.FilmList{
		Count: 2,
		Results: []swapi.Film{
			{Title: "A New Hope", EpisodeID: 4, Characters: first},
			{Title: "The Empire Strikes Back", EpisodeID: 5, Characters: second},
		},
	})
}

func (m *MockSWAPI) handleSpecies(w http.ResponseWriter, r *http.Request) {
	idStr := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/species/"), "/")
	id, err := strconv.Atoi(idStr)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found"})
		return
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if status, ok := m.failingSpecies[id]; ok {
		writeJSON(w, status, map[string]string{"detail": "failure injected"})
		return
	}
	name, ok := m.species[id]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found"})
		return
	}

	writeJSON(w, http.StatusOK, swapi.Species{
		Name:           name,
		Classification: "mammal",
		URL:            m.SpeciesURL(id),
	})
}

func (m *MockSWAPI) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	m.mu.Lock()
	status := m.uploadStatus
	if status >= 200 && status < 300 {
		m.uploads = append(m.uploads, data)
		m.uploadFilenames = append(m.uploadFilenames, header.Filename)
	}
	m.mu.Unlock()

	writeJSON(w, status, map[string]any{"files": map[string]string{"file": string(data)}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
