package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/listenlog/internal/events"
	"github.com/desertthunder/listenlog/internal/metrics"
	"github.com/desertthunder/listenlog/internal/models"
	"github.com/desertthunder/listenlog/internal/services"
	"github.com/desertthunder/listenlog/internal/shared"
)

// Existence reports which identifiers of a kind are already stored.
type Existence interface {
	Existing(ctx context.Context, kind models.EntityKind, ids models.IDSet) (models.IDSet, error)
}

// Writer inserts rows idempotently and reports how many were new.
type Writer interface {
	InsertArtists(ctx context.Context, artists []models.Artist) (int, error)
	InsertAlbums(ctx context.Context, albums []models.Album) (int, error)
	InsertTracks(ctx context.Context, tracks []models.Track) (int, error)
	InsertHistory(ctx context.Context, entries []models.HistoryEntry) (int, error)
	InsertCollaborations(ctx context.Context, links []models.Collaboration) (int, error)
}

// Store is the persistence an import needs. repositories.Store implements it.
type Store interface {
	Existence
	Writer
}

// UserStore creates the listener an import writes history for.
type UserStore interface {
	Ensure(ctx context.Context, id, displayName string) (bool, error)
}

// ImportOpts configures an [ImportEngine].
type ImportOpts struct {
	DefaultUser     string // used when Import is called without a user id
	PlaceholderName string // display name given to users created by an import
	Logger          *log.Logger
}

// ImportOptsFromConfig builds engine options from the import section of the config.
func ImportOptsFromConfig(cfg shared.ImportConfig, logger *log.Logger) ImportOpts {
	return ImportOpts{DefaultUser: cfg.DefaultUser, PlaceholderName: cfg.PlaceholderName, Logger: logger}
}

// ImportEngine reconciles play events against storage and the catalog, then writes the rows that
// survive in foreign key order.
type ImportEngine struct {
	catalog services.Catalog
	store   Store
	users   UserStore
	opts    ImportOpts
	logger  *log.Logger
}

// NewImportEngine creates a new ImportEngine with the provided catalog and stores.
func NewImportEngine(catalog services.Catalog, store Store, users UserStore, opts ImportOpts) *ImportEngine {
	if opts.DefaultUser == "" {
		opts.DefaultUser = "default"
	}
	if opts.PlaceholderName == "" {
		opts.PlaceholderName = "Default User"
	}
	logger := opts.Logger
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &ImportEngine{catalog: catalog, store: store, users: users, opts: opts, logger: logger}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// candidates holds the rows derived from catalog results before cross-filtering.
type candidates struct {
	tracks     []models.Track
	albums     map[string]models.Album
	albumOrder []string
	artistIDs  []string
	links      []models.Collaboration
}

// Import reconciles evts for userID and writes the result. An empty userID falls back to the
// configured default user. Entities that cannot be resolved are dropped along with everything that
// depends on them; only storage failures and cancellation return an error.
func (e *ImportEngine) Import(ctx context.Context, progress chan<- ProgressUpdate, evts []models.PlayEvent, userID string) (*models.ImportResult, error) {
	start := time.Now()
	if userID == "" {
		userID = e.opts.DefaultUser
	}

	result := &models.ImportResult{RunID: shared.GenerateID(), UserID: userID, Events: len(evts)}
	logger := shared.WithLogger(e.logger, "import", result.RunID)
	metrics.ImportEvents.Add(float64(len(evts)))

	res, err := e.run(ctx, progress, logger, evts, result)
	if err != nil {
		metrics.ImportRuns.WithLabelValues("failed").Inc()
		logger.Error("import failed", "user", userID, "error", err)
		return nil, err
	}

	res.DurationMS = time.Since(start).Milliseconds()
	metrics.ImportRuns.WithLabelValues("success").Inc()
	metrics.ImportDuration.Observe(time.Since(start).Seconds())
	recordCounts(res)

	logger.Info("import complete",
		"user", userID, "events", res.Events,
		"artists", res.Artists, "albums", res.Albums, "tracks", res.Tracks,
		"history", res.History, "links", res.Links, "duration_ms", res.DurationMS)
	sendProgress(progress, completeUpdate(res))
	return res, nil
}

func (e *ImportEngine) run(ctx context.Context, progress chan<- ProgressUpdate, logger *log.Logger, evts []models.PlayEvent, result *models.ImportResult) (*models.ImportResult, error) {
	refs := events.TrackReferences(evts)
	sendProgress(progress, discoverUpdate(len(evts), len(refs)))

	trackIDs := make(models.IDSet, len(refs))
	for _, ref := range refs {
		trackIDs.Add(models.TrackIDFromURI(ref))
	}

	presentTracks, err := e.store.Existing(ctx, models.KindTrack, trackIDs)
	if err != nil {
		return nil, fmt.Errorf("check tracks: %w", err)
	}

	var missing []string
	for _, ref := range refs {
		if id := models.TrackIDFromURI(ref); id != "" && !presentTracks.Has(id) {
			missing = append(missing, ref)
		}
	}
	sendProgress(progress, checkTracksUpdate(len(presentTracks), len(missing)))

	var enriched map[string]models.EnrichedTrack
	if len(missing) > 0 {
		sendProgress(progress, enrichTracksUpdate(len(missing)))
		enriched, err = e.catalog.EnrichTracks(ctx, missing)
		if err != nil {
			return nil, fmt.Errorf("enrich tracks: %w", err)
		}
	}

	c := extractCandidates(missing, enriched, &result.Dropped)
	if unresolved := len(missing) - len(enriched); unresolved > 0 {
		logger.Warn("tracks not resolved by the catalog", "count", unresolved)
	}

	validArtists, newArtists, err := e.resolveArtists(ctx, progress, logger, c.artistIDs, &result.Dropped)
	if err != nil {
		return nil, err
	}

	albumIDs := make(models.IDSet, len(c.albumOrder))
	albumIDs.Add(c.albumOrder...)
	presentAlbums, err := e.store.Existing(ctx, models.KindAlbum, albumIDs)
	if err != nil {
		return nil, fmt.Errorf("check albums: %w", err)
	}
	sendProgress(progress, phaseUpdate(CheckAlbums, fmt.Sprintf("%d of %d albums already stored", len(presentAlbums), len(albumIDs))))

	rows := crossFilter(c, validArtists, presentAlbums, presentTracks, &result.Dropped)
	rows.artists = newArtists
	rows.history = historyEntries(evts, result.UserID, rows.validTracks, &result.Dropped)
	sendProgress(progress, filterUpdate(result.Dropped))

	created, err := e.users.Ensure(ctx, result.UserID, e.opts.PlaceholderName)
	if err != nil {
		return nil, fmt.Errorf("ensure user: %w", err)
	}
	result.UserCreated = created
	sendProgress(progress, phaseUpdate(EnsureUser, fmt.Sprintf("User %s ready", result.UserID)))

	if err := e.write(ctx, progress, rows, &result.Counts); err != nil {
		return nil, err
	}
	return result, nil
}

// extractCandidates derives track, album, artist and link candidates from catalog results, visiting
// refs in order so the outcome does not depend on map iteration. Albums are last-writer-wins.
func extractCandidates(refs []string, enriched map[string]models.EnrichedTrack, dropped *models.Counts) candidates {
	c := candidates{albums: make(map[string]models.Album)}
	seenTracks := make(models.IDSet)
	seenArtists := make(models.IDSet)

	for _, ref := range refs {
		t, ok := enriched[ref]
		if !ok {
			dropped.Tracks++
			continue
		}
		if seenTracks.Has(t.ID) {
			continue
		}

		track := t.TrackRow()
		album := t.AlbumRow()
		if track.Validate() != nil || album.Validate() != nil {
			dropped.Tracks++
			continue
		}
		seenTracks.Add(t.ID)

		c.tracks = append(c.tracks, track)
		if _, ok := c.albums[album.ID]; !ok {
			c.albumOrder = append(c.albumOrder, album.ID)
		}
		c.albums[album.ID] = album

		for _, id := range t.ArtistIDs() {
			if !seenArtists.Has(id) {
				seenArtists.Add(id)
				c.artistIDs = append(c.artistIDs, id)
			}
		}
		c.links = append(c.links, t.Collaborations()...)
	}
	return c
}

// resolveArtists returns the set of artists rows may depend on (stored plus newly enriched) and the
// new artist rows to write. Artists the catalog cannot describe are counted as dropped.
func (e *ImportEngine) resolveArtists(ctx context.Context, progress chan<- ProgressUpdate, logger *log.Logger, ids []string, dropped *models.Counts) (models.IDSet, []models.Artist, error) {
	candidateIDs := make(models.IDSet, len(ids))
	candidateIDs.Add(ids...)

	present, err := e.store.Existing(ctx, models.KindArtist, candidateIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("check artists: %w", err)
	}
	sendProgress(progress, phaseUpdate(CheckArtists, fmt.Sprintf("%d of %d artists already stored", len(present), len(candidateIDs))))

	valid := present.Union(nil)
	var toLookup []string
	for _, id := range ids {
		if !present.Has(id) {
			toLookup = append(toLookup, id)
		}
	}

	var artists []models.Artist
	for i, id := range toLookup {
		sendProgress(progress, enrichArtistUpdate(i+1, len(toLookup), id))

		lookup, err := e.catalog.ArtistDetail(ctx, id)
		if err != nil {
			return nil, nil, fmt.Errorf("enrich artist %s: %w", id, err)
		}
		if !lookup.Found {
			logger.Warn("artist not found, dropping dependents", "artist_id", id)
			dropped.Artists++
			continue
		}
		if err := lookup.Artist.Validate(); err != nil {
			logger.Warn("artist record invalid, dropping dependents", "artist_id", id, "error", err)
			dropped.Artists++
			continue
		}

		artists = append(artists, lookup.Artist)
		valid.Add(id)
	}
	return valid, artists, nil
}

// writeSet is the filtered, referentially valid output of an import.
type writeSet struct {
	artists     []models.Artist
	albums      []models.Album
	tracks      []models.Track
	history     []models.HistoryEntry
	links       []models.Collaboration
	validTracks models.IDSet
}

// crossFilter keeps only candidates whose dependencies are stored or scheduled for writing.
func crossFilter(c candidates, validArtists, presentAlbums, presentTracks models.IDSet, dropped *models.Counts) writeSet {
	var out writeSet

	validAlbums := presentAlbums.Union(nil)
	for _, id := range c.albumOrder {
		album := c.albums[id]
		switch {
		case presentAlbums.Has(id):
		case validArtists.Has(album.ArtistID):
			out.albums = append(out.albums, album)
			validAlbums.Add(id)
		default:
			dropped.Albums++
		}
	}

	out.validTracks = presentTracks.Union(nil)
	for _, t := range c.tracks {
		if validArtists.Has(t.MainArtistID) && validAlbums.Has(t.AlbumID) {
			out.tracks = append(out.tracks, t)
			out.validTracks.Add(t.ID)
			continue
		}
		dropped.Tracks++
	}

	for _, l := range c.links {
		if validArtists.Has(l.ArtistID) && out.validTracks.Has(l.TrackID) {
			out.links = append(out.links, l)
			continue
		}
		dropped.Links++
	}
	return out
}

// historyEntries converts events into history rows for userID, dropping plays whose track did not
// survive and plays without a timestamp. The track name plays no part here: a play counts as long
// as its reference resolved.
func historyEntries(evts []models.PlayEvent, userID string, validTracks models.IDSet, dropped *models.Counts) []models.HistoryEntry {
	entries := make([]models.HistoryEntry, 0, len(evts))
	for _, ev := range evts {
		id := models.TrackIDFromURI(ev.TrackURI)
		if id == "" || ev.Timestamp == "" || !validTracks.Has(id) {
			dropped.History++
			continue
		}
		entries = append(entries, ev.HistoryEntry(userID, id))
	}
	return entries
}

// write inserts rows in foreign key order: artists, albums, tracks, history, links.
func (e *ImportEngine) write(ctx context.Context, progress chan<- ProgressUpdate, rows writeSet, counts *models.Counts) error {
	steps := []struct {
		phase  Phase
		entity string
		n      int
		insert func() (int, error)
		dest   *int
	}{
		{WriteArtists, "artists", len(rows.artists), func() (int, error) { return e.store.InsertArtists(ctx, rows.artists) }, &counts.Artists},
		{WriteAlbums, "albums", len(rows.albums), func() (int, error) { return e.store.InsertAlbums(ctx, rows.albums) }, &counts.Albums},
		{WriteTracks, "tracks", len(rows.tracks), func() (int, error) { return e.store.InsertTracks(ctx, rows.tracks) }, &counts.Tracks},
		{WriteHistory, "plays", len(rows.history), func() (int, error) { return e.store.InsertHistory(ctx, rows.history) }, &counts.History},
		{WriteLinks, "collaborations", len(rows.links), func() (int, error) { return e.store.InsertCollaborations(ctx, rows.links) }, &counts.Links},
	}

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := step.insert()
		if err != nil {
			return fmt.Errorf("write %s: %w", step.entity, err)
		}
		*step.dest = n
		sendProgress(progress, writeUpdate(step.phase, step.entity, n, step.n))
	}
	return nil
}

func recordCounts(res *models.ImportResult) {
	for entity, pair := range map[string][2]int{
		"artists": {res.Artists, res.Dropped.Artists},
		"albums":  {res.Albums, res.Dropped.Albums},
		"tracks":  {res.Tracks, res.Dropped.Tracks},
		"history": {res.History, res.Dropped.History},
		"links":   {res.Links, res.Dropped.Links},
	} {
		metrics.RowsInserted.WithLabelValues(entity).Add(float64(pair[0]))
		metrics.RowsDropped.WithLabelValues(entity).Add(float64(pair[1]))
	}
}

// IsInputError reports whether err should be surfaced to callers as bad input rather than an internal failure.
func IsInputError(err error) bool {
	return errors.Is(err, shared.ErrMalformedInput)
}
