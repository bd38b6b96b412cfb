package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/desertthunder/listenlog/internal/models"
	"github.com/desertthunder/listenlog/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func intPtr(n int) *int { return &n }

// seedCatalog writes one artist, album, track and the default user.
func seedCatalog(t *testing.T, ctx context.Context, store *Store, users *UserRepository) {
	t.Helper()

	if _, err := users.Ensure(ctx, "u1", "Default User"); err != nil {
		t.Fatalf("failed to ensure user: %v", err)
	}
	if _, err := store.InsertArtists(ctx, []models.Artist{{ID: "X", Name: "Artist X", Popularity: intPtr(40)}}); err != nil {
		t.Fatalf("failed to insert artist: %v", err)
	}
	if _, err := store.InsertAlbums(ctx, []models.Album{{ID: "ALB1", Name: "Album", ArtistID: "X", ReleaseDate: "2001-01-01"}}); err != nil {
		t.Fatalf("failed to insert album: %v", err)
	}
	if _, err := store.InsertTracks(ctx, []models.Track{{ID: "T1", Name: "Song", AlbumID: "ALB1", MainArtistID: "X", DurationMS: intPtr(1000)}}); err != nil {
		t.Fatalf("failed to insert track: %v", err)
	}
}

func TestStore(t *testing.T) {
	ctx := context.Background()

	t.Run("Existing", func(t *testing.T) {
		db := setupTestDB(t)
		store := NewStore(db)
		seedCatalog(t, ctx, store, NewUserRepository(db))

		found, err := store.Existing(ctx, models.KindTrack, models.NewIDSet("T1", "T2"))
		if err != nil {
			t.Fatalf("failed to check tracks: %v", err)
		}
		if len(found) != 1 || !found.Has("T1") {
			t.Errorf("expected only T1 present, got %v", found.Sorted())
		}

		found, err = store.Existing(ctx, models.KindArtist, models.NewIDSet("X", "Y"))
		if err != nil {
			t.Fatalf("failed to check artists: %v", err)
		}
		if !found.Has("X") || found.Has("Y") {
			t.Errorf("unexpected artists %v", found.Sorted())
		}

		found, err = store.Existing(ctx, models.KindAlbum, models.NewIDSet("ALB1"))
		if err != nil {
			t.Fatalf("failed to check albums: %v", err)
		}
		if !found.Has("ALB1") {
			t.Error("expected ALB1 present")
		}
	})

	t.Run("Existing large set", func(t *testing.T) {
		db := setupTestDB(t)
		store := NewStore(db)
		seedCatalog(t, ctx, store, NewUserRepository(db))

		ids := models.NewIDSet("T1")
		for i := range 5000 {
			ids.Add(fmt.Sprintf("missing-%d", i))
		}

		found, err := store.Existing(ctx, models.KindTrack, ids)
		if err != nil {
			t.Fatalf("failed to check tracks: %v", err)
		}
		if len(found) != 1 {
			t.Errorf("expected 1 track, got %d", len(found))
		}
	})

	t.Run("Existing empty set", func(t *testing.T) {
		store := NewStore(setupTestDB(t))
		found, err := store.Existing(ctx, models.KindArtist, models.NewIDSet())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(found) != 0 {
			t.Errorf("expected empty result, got %v", found)
		}
	})

	t.Run("InsertArtists skips conflicts", func(t *testing.T) {
		store := NewStore(setupTestDB(t))

		n, err := store.InsertArtists(ctx, []models.Artist{{ID: "A", Name: "One"}, {ID: "B", Name: "Two"}})
		if err != nil {
			t.Fatalf("failed to insert artists: %v", err)
		}
		if n != 2 {
			t.Errorf("expected 2 inserted, got %d", n)
		}

		n, err = store.InsertArtists(ctx, []models.Artist{{ID: "A", Name: "Renamed"}, {ID: "C", Name: "Three"}})
		if err != nil {
			t.Fatalf("failed to insert artists: %v", err)
		}
		if n != 1 {
			t.Errorf("expected 1 inserted, got %d", n)
		}

		a, err := store.Artist(ctx, "A")
		if err != nil {
			t.Fatalf("failed to get artist: %v", err)
		}
		if a.Name != "One" {
			t.Errorf("existing artist must not be overwritten, got name %s", a.Name)
		}
	})

	t.Run("InsertArtists deduplicates input", func(t *testing.T) {
		store := NewStore(setupTestDB(t))

		n, err := store.InsertArtists(ctx, []models.Artist{
			{ID: "A", Name: "First"},
			{ID: "B", Name: "Other"},
			{ID: "A", Name: "Last"},
		})
		if err != nil {
			t.Fatalf("failed to insert artists: %v", err)
		}
		if n != 2 {
			t.Errorf("expected 2 inserted, got %d", n)
		}

		a, err := store.Artist(ctx, "A")
		if err != nil {
			t.Fatalf("failed to get artist: %v", err)
		}
		if a.Name != "Last" {
			t.Errorf("expected last occurrence to win, got %s", a.Name)
		}
	})

	t.Run("InsertTracks round trip", func(t *testing.T) {
		db := setupTestDB(t)
		store := NewStore(db)
		seedCatalog(t, ctx, store, NewUserRepository(db))

		track, err := store.Track(ctx, "T1")
		if err != nil {
			t.Fatalf("failed to get track: %v", err)
		}
		if track.AlbumID != "ALB1" || track.MainArtistID != "X" {
			t.Errorf("unexpected track %+v", track)
		}
		if track.DurationMS == nil || *track.DurationMS != 1000 {
			t.Errorf("expected duration 1000, got %v", track.DurationMS)
		}
		if track.Popularity != nil {
			t.Errorf("expected NULL popularity, got %d", *track.Popularity)
		}
	})

	t.Run("InsertHistory keyed by timestamp", func(t *testing.T) {
		db := setupTestDB(t)
		store := NewStore(db)
		seedCatalog(t, ctx, store, NewUserRepository(db))

		entries := []models.HistoryEntry{
			{UserID: "u1", TrackID: "T1", PlayedAt: "2024-01-01T00:00:00Z", MSPlayed: 100},
			{UserID: "u1", TrackID: "T1", PlayedAt: "2024-01-02T00:00:00Z", MSPlayed: 200, Skipped: true},
			{UserID: "u1", TrackID: "T1", PlayedAt: "2024-01-01T00:00:00Z", MSPlayed: 300},
		}

		n, err := store.InsertHistory(ctx, entries)
		if err != nil {
			t.Fatalf("failed to insert history: %v", err)
		}
		if n != 2 {
			t.Errorf("expected 2 inserted, got %d", n)
		}

		n, err = store.InsertHistory(ctx, entries)
		if err != nil {
			t.Fatalf("failed to re-insert history: %v", err)
		}
		if n != 0 {
			t.Errorf("expected re-insert to be a no-op, got %d", n)
		}

		lt, err := store.ListeningTime(ctx, "u1")
		if err != nil {
			t.Fatalf("failed to sum history: %v", err)
		}
		if lt.Plays != 2 || lt.MSPlayed != 500 {
			t.Errorf("unexpected listening time %+v", lt)
		}
	})

	t.Run("InsertCollaborations", func(t *testing.T) {
		db := setupTestDB(t)
		store := NewStore(db)
		seedCatalog(t, ctx, store, NewUserRepository(db))

		if _, err := store.InsertArtists(ctx, []models.Artist{{ID: "F", Name: "Feat"}}); err != nil {
			t.Fatalf("failed to insert artist: %v", err)
		}

		links := []models.Collaboration{{ArtistID: "F", TrackID: "T1"}, {ArtistID: "F", TrackID: "T1"}}
		n, err := store.InsertCollaborations(ctx, links)
		if err != nil {
			t.Fatalf("failed to insert links: %v", err)
		}
		if n != 1 {
			t.Errorf("expected 1 inserted, got %d", n)
		}
	})

	t.Run("Count", func(t *testing.T) {
		db := setupTestDB(t)
		store := NewStore(db)
		seedCatalog(t, ctx, store, NewUserRepository(db))

		for _, table := range []string{"users", "artists", "albums", "tracks"} {
			n, err := store.Count(ctx, table)
			if err != nil {
				t.Fatalf("failed to count %s: %v", table, err)
			}
			if n != 1 {
				t.Errorf("expected 1 row in %s, got %d", table, n)
			}
		}
	})
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Ensure creates once", func(t *testing.T) {
		repo := NewUserRepository(setupTestDB(t))

		created, err := repo.Ensure(ctx, "u1", "Default User")
		if err != nil {
			t.Fatalf("failed to ensure user: %v", err)
		}
		if !created {
			t.Error("expected user to be created")
		}

		created, err = repo.Ensure(ctx, "u1", "Another Name")
		if err != nil {
			t.Fatalf("failed to ensure user again: %v", err)
		}
		if created {
			t.Error("expected existing user to be left alone")
		}

		user, err := repo.Get(ctx, "u1")
		if err != nil {
			t.Fatalf("failed to get user: %v", err)
		}
		if user.DisplayName != "Default User" {
			t.Errorf("display name must not be overwritten, got %s", user.DisplayName)
		}
		if user.PictureURI != "" {
			t.Errorf("expected no picture, got %s", user.PictureURI)
		}
		if user.CreatedAt.IsZero() {
			t.Error("expected created_at to be set")
		}
	})
}
