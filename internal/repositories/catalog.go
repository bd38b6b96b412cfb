package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/desertthunder/listenlog/internal/models"
	"github.com/desertthunder/listenlog/internal/shared"
)

// InsertArtists inserts artists, skipping ids that already exist.
func (s *Store) InsertArtists(ctx context.Context, artists []models.Artist) (int, error) {
	query := `
		INSERT INTO artists (id, name, popularity, genre, profile_picture_uri)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`
	return insertAll(ctx, s.db, query, artists, func(a models.Artist) []any {
		return []any{a.ID, a.Name, nullInt(a.Popularity), nullString(a.Genre), nullString(a.PictureURI)}
	})
}

// InsertAlbums inserts albums, skipping ids that already exist.
func (s *Store) InsertAlbums(ctx context.Context, albums []models.Album) (int, error) {
	query := `
		INSERT INTO albums (id, album_name, artist_id, release_date, total_tracks, cover_image_uri)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`
	return insertAll(ctx, s.db, query, albums, func(a models.Album) []any {
		return []any{a.ID, a.Name, a.ArtistID, nullString(a.ReleaseDate), nullInt(a.TotalTracks), nullString(a.CoverURI)}
	})
}

// InsertTracks inserts tracks, skipping ids that already exist.
func (s *Store) InsertTracks(ctx context.Context, tracks []models.Track) (int, error) {
	query := `
		INSERT INTO tracks (id, track_name, album_id, main_artist_id, duration_ms, popularity, track_cover_uri)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`
	return insertAll(ctx, s.db, query, tracks, func(t models.Track) []any {
		return []any{t.ID, t.Name, t.AlbumID, t.MainArtistID, nullInt(t.DurationMS), nullInt(t.Popularity), nullString(t.CoverURI)}
	})
}

// InsertCollaborations inserts featured-artist links, skipping pairs that already exist.
func (s *Store) InsertCollaborations(ctx context.Context, links []models.Collaboration) (int, error) {
	query := `
		INSERT INTO collaborations (artist_id, track_id)
		VALUES (?, ?)
		ON CONFLICT(artist_id, track_id) DO NOTHING
	`
	return insertAll(ctx, s.db, query, links, func(c models.Collaboration) []any {
		return []any{c.ArtistID, c.TrackID}
	})
}

// Artist retrieves an artist by ID.
func (s *Store) Artist(ctx context.Context, id string) (*models.Artist, error) {
	query := `SELECT id, name, popularity, genre, profile_picture_uri FROM artists WHERE id = ?`

	var (
		a          models.Artist
		popularity sql.NullInt64
		genre      sql.NullString
		picture    sql.NullString
	)
	err := s.db.QueryRowContext(ctx, query, id).Scan(&a.ID, &a.Name, &popularity, &genre, &picture)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("artist %s: %w", id, shared.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query artist: %w", shared.ErrStorageUnavailable, err)
	}

	a.Popularity = intFromNull(popularity)
	a.Genre = genre.String
	a.PictureURI = picture.String
	return &a, nil
}

// Track retrieves a track by ID.
func (s *Store) Track(ctx context.Context, id string) (*models.Track, error) {
	query := `
		SELECT id, track_name, album_id, main_artist_id, duration_ms, popularity, track_cover_uri
		FROM tracks WHERE id = ?
	`

	var (
		t          models.Track
		duration   sql.NullInt64
		popularity sql.NullInt64
		cover      sql.NullString
	)
	err := s.db.QueryRowContext(ctx, query, id).Scan(&t.ID, &t.Name, &t.AlbumID, &t.MainArtistID, &duration, &popularity, &cover)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("track %s: %w", id, shared.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query track: %w", shared.ErrStorageUnavailable, err)
	}

	t.DurationMS = intFromNull(duration)
	t.Popularity = intFromNull(popularity)
	t.CoverURI = cover.String
	return &t, nil
}
