// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/listenlog/internal/models"
)

// MockCatalog is a test double for services.Catalog backed by in-memory tracks and artists.
// Tracks are keyed by track id, so any reference deriving that id resolves to it.
type MockCatalog struct {
	mu          sync.Mutex
	tracks      map[string]models.EnrichedTrack
	artists     map[string]models.Artist
	artistErrs  map[string]error
	enrichErr   error
	enrichCalls [][]string
	artistCalls []string
}

// NewMockCatalog creates an empty [MockCatalog]: every lookup misses until entities are added.
func NewMockCatalog() *MockCatalog {
	return &MockCatalog{
		tracks:     make(map[string]models.EnrichedTrack),
		artists:    make(map[string]models.Artist),
		artistErrs: make(map[string]error),
	}
}

// AddTrack registers a track on albumID owned by the first artist in artistIDs, which also
// becomes the main artist. Remaining artists are featured.
func (m *MockCatalog) AddTrack(id, albumID string, artistIDs ...string) *MockCatalog {
	refs := make([]models.ArtistRef, 0, len(artistIDs))
	for _, a := range artistIDs {
		refs = append(refs, models.ArtistRef{ID: a, Name: "Artist " + a})
	}

	var owner []models.ArtistRef
	if len(refs) > 0 {
		owner = refs[:1]
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.tracks[id] = models.EnrichedTrack{
		ID:   id,
		Name: "Track " + id,
		Album: models.EnrichedAlbum{
			ID:          albumID,
			Name:        "Album " + albumID,
			ReleaseDate: "2020",
			Artists:     owner,
		},
		Artists: refs,
	}
	return m
}

// AddEnrichedTrack registers a fully specified track under its ID.
func (m *MockCatalog) AddEnrichedTrack(t models.EnrichedTrack) *MockCatalog {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tracks[t.ID] = t
	return m
}

// AddArtist registers artists that resolve with a name and popularity.
func (m *MockCatalog) AddArtist(ids ...string) *MockCatalog {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		popularity := 50
		m.artists[id] = models.Artist{ID: id, Name: "Artist " + id, Popularity: &popularity, Genre: "rock, pop"}
	}
	return m
}

// FailArtist makes lookups of id return err.
func (m *MockCatalog) FailArtist(id string, err error) *MockCatalog {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.artistErrs[id] = err
	return m
}

// FailEnrich makes every EnrichTracks call return err.
func (m *MockCatalog) FailEnrich(err error) *MockCatalog {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enrichErr = err
	return m
}

func (m *MockCatalog) EnrichTracks(ctx context.Context, refs []string) (map[string]models.EnrichedTrack, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.enrichCalls = append(m.enrichCalls, append([]string(nil), refs...))
	if m.enrichErr != nil {
		return nil, m.enrichErr
	}

	result := make(map[string]models.EnrichedTrack)
	for _, ref := range refs {
		id := models.TrackIDFromURI(ref)
		if t, ok := m.tracks[id]; ok {
			t.Ref = ref
			result[ref] = t
		}
	}
	return result, nil
}

func (m *MockCatalog) ArtistDetail(ctx context.Context, id string) (models.ArtistLookup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.artistCalls = append(m.artistCalls, id)
	if err, ok := m.artistErrs[id]; ok {
		return models.ArtistLookup{}, err
	}
	if a, ok := m.artists[id]; ok {
		return models.ArtistFound(a), nil
	}
	return models.ArtistNotFound(id), nil
}

// EnrichCalls returns the references passed to each EnrichTracks call.
func (m *MockCatalog) EnrichCalls() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]string(nil), m.enrichCalls...)
}

// ArtistCalls returns the ids passed to ArtistDetail, in call order.
func (m *MockCatalog) ArtistCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.artistCalls...)
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustWriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write file %s: %v", path, err)
	}
}
