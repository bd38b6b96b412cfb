// Spotify Web API implementation of [Source]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/desertthunder/listenlog/internal/models"
	"github.com/desertthunder/listenlog/internal/shared"
	"github.com/goccy/go-json"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"
)

const (
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"
)

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// SpotifyArtist represents a Spotify artist. Genres, images and popularity are only present on full
// artist objects, not on the simplified artists embedded in tracks.
type SpotifyArtist struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Genres     []string       `json:"genres"`
	Images     []SpotifyImage `json:"images"`
	Popularity *int           `json:"popularity"`
	URI        string         `json:"uri"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Artists     []SpotifyArtist `json:"artists"`
	ReleaseDate string          `json:"release_date"`
	TotalTracks int             `json:"total_tracks"`
	Images      []SpotifyImage  `json:"images"`
	URI         string          `json:"uri"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Artists    []SpotifyArtist `json:"artists"`
	Album      SpotifyAlbum    `json:"album"`
	DurationMS int             `json:"duration_ms"`
	Popularity *int            `json:"popularity"`
	URI        string          `json:"uri"`
}

func firstImage(images []SpotifyImage) string {
	if len(images) == 0 {
		return ""
	}
	return images[0].URL
}

func artistRefs(artists []SpotifyArtist) []models.ArtistRef {
	refs := make([]models.ArtistRef, 0, len(artists))
	for _, a := range artists {
		refs = append(refs, models.ArtistRef{ID: a.ID, Name: a.Name})
	}
	return refs
}

func positive(n int) *int {
	if n <= 0 {
		return nil
	}
	return &n
}

// Enriched converts the track into the record an import works with. The identifier is derived
// from ref rather than taken from the response, so relinked tracks keep the id of the reference
// that was exported.
func (t SpotifyTrack) Enriched(ref string) models.EnrichedTrack {
	id := models.TrackIDFromURI(ref)
	if id == "" {
		id = t.ID
	}
	return models.EnrichedTrack{
		Ref:        ref,
		ID:         id,
		Name:       t.Name,
		DurationMS: positive(t.DurationMS),
		Popularity: t.Popularity,
		Album: models.EnrichedAlbum{
			ID:          t.Album.ID,
			Name:        t.Album.Name,
			ReleaseDate: t.Album.ReleaseDate,
			TotalTracks: positive(t.Album.TotalTracks),
			CoverURI:    firstImage(t.Album.Images),
			Artists:     artistRefs(t.Album.Artists),
		},
		Artists: artistRefs(t.Artists),
	}
}

// Model converts a full artist object into a persisted artist with genres joined by ", ".
func (a SpotifyArtist) Model() models.Artist {
	return models.Artist{
		ID:         a.ID,
		Name:       a.Name,
		Popularity: a.Popularity,
		Genre:      strings.Join(a.Genres, ", "),
		PictureURI: firstImage(a.Images),
	}
}

// SpotifyOpts configures a [SpotifyService]. Empty URLs default to the public Spotify endpoints.
type SpotifyOpts struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	BaseURL      string
	RateLimit    float64 // requests per second, 0 disables limiting
	Timeout      time.Duration
	HTTPClient   *http.Client // base transport for token and API requests
}

// SpotifyOptsFromConfig builds options from the credentials and catalog sections of the config.
func SpotifyOptsFromConfig(cfg *shared.Config) SpotifyOpts {
	return SpotifyOpts{
		ClientID:     cfg.Credentials.Spotify.ClientID,
		ClientSecret: cfg.Credentials.Spotify.ClientSecret,
		TokenURL:     cfg.Credentials.Spotify.TokenURL,
		BaseURL:      cfg.Credentials.Spotify.BaseURL,
		RateLimit:    cfg.Catalog.RateLimit,
		Timeout:      cfg.Catalog.Timeout(),
	}
}

// SpotifyService implements [Source] against the Spotify Web API.
// Tokens are obtained with the client-credentials grant and refreshed by the [oauth2] transport.
type SpotifyService struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewSpotifyService creates a new Spotify service with the given client credentials.
func NewSpotifyService(opts SpotifyOpts) (*SpotifyService, error) {
	if opts.ClientID == "" {
		return nil, fmt.Errorf("%w: missing spotify client_id", shared.ErrMissingCredentials)
	}
	if opts.ClientSecret == "" {
		return nil, fmt.Errorf("%w: missing spotify client_secret", shared.ErrMissingCredentials)
	}

	tokenURL := opts.TokenURL
	if tokenURL == "" {
		tokenURL = spotifyTokenURL
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = spotifyBaseURL
	}

	config := &clientcredentials.Config{
		ClientID:     opts.ClientID,
		ClientSecret: opts.ClientSecret,
		TokenURL:     tokenURL,
	}

	ctx := context.Background()
	if opts.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, opts.HTTPClient)
	}

	client := config.Client(ctx)
	client.Timeout = opts.Timeout

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), max(1, int(opts.RateLimit)))
	}

	return &SpotifyService{baseURL: baseURL, httpClient: client, limiter: limiter}, nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// doRequest performs an authenticated GET against the Spotify API and decodes the JSON body into result.
func (s *SpotifyService) doRequest(ctx context.Context, endpoint string, result any) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: request failed: %w", shared.ErrCatalogUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusBadRequest:
		return fmt.Errorf("%w: %s (status %d)", shared.ErrNotFound, endpoint, resp.StatusCode)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: spotify rejected credentials (status %d)", shared.ErrUnauthorized, resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return fmt.Errorf("%w: spotify API status %d", shared.ErrCatalogUnavailable, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("spotify API error: status %d", resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// SeveralTracks retrieves multiple tracks by their IDs (up to 50). Unknown ids come back as nil entries.
func (s *SpotifyService) SeveralTracks(ctx context.Context, trackIDs []string) ([]*SpotifyTrack, error) {
	if len(trackIDs) == 0 {
		return nil, fmt.Errorf("%w: no track IDs provided", shared.ErrInvalidArgument)
	}
	if len(trackIDs) > shared.MaxCatalogBatch {
		return nil, fmt.Errorf("%w: maximum %d track IDs allowed", shared.ErrInvalidArgument, shared.MaxCatalogBatch)
	}

	endpoint := "/tracks?ids=" + url.QueryEscape(strings.Join(trackIDs, ","))

	var response struct {
		Tracks []*SpotifyTrack `json:"tracks"`
	}
	if err := s.doRequest(ctx, endpoint, &response); err != nil {
		return nil, err
	}

	return response.Tracks, nil
}

// Track retrieves a single track by ID.
func (s *SpotifyService) Track(ctx context.Context, trackID string) (*SpotifyTrack, error) {
	if trackID == "" {
		return nil, fmt.Errorf("%w: empty track id", shared.ErrInvalidArgument)
	}

	var track SpotifyTrack
	if err := s.doRequest(ctx, "/tracks/"+url.PathEscape(trackID), &track); err != nil {
		return nil, err
	}
	return &track, nil
}

// Artist retrieves an artist by ID.
func (s *SpotifyService) Artist(ctx context.Context, artistID string) (*SpotifyArtist, error) {
	if artistID == "" {
		return nil, fmt.Errorf("%w: empty artist id", shared.ErrInvalidArgument)
	}

	var artist SpotifyArtist
	if err := s.doRequest(ctx, "/artists/"+url.PathEscape(artistID), &artist); err != nil {
		return nil, err
	}
	return &artist, nil
}
