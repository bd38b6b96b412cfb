// package models defines the data model for listening history imports
package models

import (
	"fmt"
	"time"
)

// Entity is implemented by every row type the persistence layer writes.
type Entity interface {
	Key() string     // Key returns the value the storage layer detects conflicts on
	Validate() error // Validate checks that required fields are present
}

// EntityKind names a catalog relation that can be checked for existing identifiers.
type EntityKind string

const (
	KindArtist EntityKind = "artist"
	KindAlbum  EntityKind = "album"
	KindTrack  EntityKind = "track"
)

// User is a listener. Users are created with a placeholder name on first import and never updated.
type User struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	PictureURI  string    `json:"profile_picture_uri,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Artist is a fully enriched catalog artist.
type Artist struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Popularity *int   `json:"popularity,omitempty"`
	Genre      string `json:"genre,omitempty"`
	PictureURI string `json:"profile_picture_uri,omitempty"`
}

func (a Artist) Key() string { return a.ID }

func (a Artist) Validate() error {
	if a.ID == "" || a.Name == "" {
		return fmt.Errorf("artist requires id and name")
	}
	if a.Popularity != nil && (*a.Popularity < 0 || *a.Popularity > 100) {
		return fmt.Errorf("artist %s popularity %d out of range", a.ID, *a.Popularity)
	}
	return nil
}

// Album belongs to the artist that owns it in the catalog.
type Album struct {
	ID          string `json:"id"`
	Name        string `json:"album_name"`
	ArtistID    string `json:"artist_id"`
	ReleaseDate string `json:"release_date,omitempty"`
	TotalTracks *int   `json:"total_tracks,omitempty"`
	CoverURI    string `json:"cover_image_uri,omitempty"`
}

func (a Album) Key() string { return a.ID }

func (a Album) Validate() error {
	if a.ID == "" || a.ArtistID == "" {
		return fmt.Errorf("album requires id and artist id")
	}
	return nil
}

// Track references its album and main artist. Featured artists are stored as [Collaboration] rows.
type Track struct {
	ID           string `json:"id"`
	Name         string `json:"track_name"`
	AlbumID      string `json:"album_id"`
	MainArtistID string `json:"main_artist_id"`
	DurationMS   *int   `json:"duration_ms,omitempty"`
	Popularity   *int   `json:"popularity,omitempty"`
	CoverURI     string `json:"track_cover_uri,omitempty"`
}

func (t Track) Key() string { return t.ID }

func (t Track) Validate() error {
	if t.ID == "" || t.AlbumID == "" || t.MainArtistID == "" {
		return fmt.Errorf("track requires id, album id and main artist id")
	}
	return nil
}

// Collaboration links a featured artist to a track.
type Collaboration struct {
	ArtistID string `json:"artist_id"`
	TrackID  string `json:"track_id"`
}

func (c Collaboration) Key() string { return c.ArtistID + "\x00" + c.TrackID }

func (c Collaboration) Validate() error {
	if c.ArtistID == "" || c.TrackID == "" {
		return fmt.Errorf("collaboration requires artist id and track id")
	}
	return nil
}

// HistoryEntry is a single play. PlayedAt is the natural key: two entries with the same
// timestamp are the same play.
type HistoryEntry struct {
	UserID      string `json:"user_id"`
	TrackID     string `json:"track_id"`
	PlayedAt    string `json:"played_at"`
	MSPlayed    int    `json:"ms_played"`
	Platform    string `json:"platform,omitempty"`
	Country     string `json:"country,omitempty"`
	IPAddress   string `json:"ip_address,omitempty"`
	ReasonStart string `json:"reason_start,omitempty"`
	ReasonEnd   string `json:"reason_end,omitempty"`
	Skipped     bool   `json:"skipped"`
	Shuffle     bool   `json:"shuffle"`
	Offline     bool   `json:"offline"`
	Incognito   bool   `json:"incognito"`
}

func (h HistoryEntry) Key() string { return h.PlayedAt }

func (h HistoryEntry) Validate() error {
	if h.PlayedAt == "" || h.UserID == "" || h.TrackID == "" {
		return fmt.Errorf("history entry requires played_at, user id and track id")
	}
	return nil
}

// PlayEvent is one record from a streaming history export. JSON nulls decode to zero values.
type PlayEvent struct {
	TrackURI    string `json:"spotify_track_uri"`
	TrackName   string `json:"master_metadata_track_name"`
	AlbumName   string `json:"master_metadata_album_album_name"`
	ArtistName  string `json:"master_metadata_album_artist_name"`
	Timestamp   string `json:"ts"`
	MSPlayed    int    `json:"ms_played"`
	Platform    string `json:"platform"`
	Country     string `json:"conn_country"`
	IPAddress   string `json:"ip_addr"`
	ReasonStart string `json:"reason_start"`
	ReasonEnd   string `json:"reason_end"`
	Skipped     bool   `json:"skipped"`
	Shuffle     bool   `json:"shuffle"`
	Offline     bool   `json:"offline"`
	Incognito   bool   `json:"incognito_mode"`
}

// HistoryEntry converts the event into a history row for userID and trackID.
func (e PlayEvent) HistoryEntry(userID, trackID string) HistoryEntry {
	return HistoryEntry{
		UserID:      userID,
		TrackID:     trackID,
		PlayedAt:    e.Timestamp,
		MSPlayed:    e.MSPlayed,
		Platform:    e.Platform,
		Country:     e.Country,
		IPAddress:   e.IPAddress,
		ReasonStart: e.ReasonStart,
		ReasonEnd:   e.ReasonEnd,
		Skipped:     e.Skipped,
		Shuffle:     e.Shuffle,
		Offline:     e.Offline,
		Incognito:   e.Incognito,
	}
}

// IsTrack reports whether the event names a track, as opposed to an episode or a gap in the export.
func (e PlayEvent) IsTrack() bool {
	return e.TrackURI != "" && e.TrackName != ""
}
