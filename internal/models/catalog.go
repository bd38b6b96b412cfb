package models

// ArtistRef is an artist as listed on a track or album, before detail enrichment.
type ArtistRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// EnrichedAlbum is the album descriptor embedded in a catalog track.
type EnrichedAlbum struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	ReleaseDate string      `json:"release_date,omitempty"`
	TotalTracks *int        `json:"total_tracks,omitempty"`
	CoverURI    string      `json:"cover_uri,omitempty"`
	Artists     []ArtistRef `json:"artists,omitempty"`
}

// EnrichedTrack is a track resolved by the catalog. Ref is the reference it was requested
// with, and Artists lists the main artist first.
type EnrichedTrack struct {
	Ref        string        `json:"ref"`
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	DurationMS *int          `json:"duration_ms,omitempty"`
	Popularity *int          `json:"popularity,omitempty"`
	Album      EnrichedAlbum `json:"album"`
	Artists    []ArtistRef   `json:"artists"`
}

// MainArtistID returns the first listed artist, or "" for a track with no artists.
func (e EnrichedTrack) MainArtistID() string {
	if len(e.Artists) == 0 {
		return ""
	}
	return e.Artists[0].ID
}

// AlbumOwnerID returns the album's first artist, falling back to the track's main artist.
func (e EnrichedTrack) AlbumOwnerID() string {
	if len(e.Album.Artists) > 0 && e.Album.Artists[0].ID != "" {
		return e.Album.Artists[0].ID
	}
	return e.MainArtistID()
}

// AlbumRow builds the album candidate for this track.
func (e EnrichedTrack) AlbumRow() Album {
	return Album{
		ID:          e.Album.ID,
		Name:        e.Album.Name,
		ArtistID:    e.AlbumOwnerID(),
		ReleaseDate: NormalizeReleaseDate(e.Album.ReleaseDate),
		TotalTracks: e.Album.TotalTracks,
		CoverURI:    e.Album.CoverURI,
	}
}

// TrackRow builds the track candidate. The album cover doubles as the track cover.
func (e EnrichedTrack) TrackRow() Track {
	return Track{
		ID:           e.ID,
		Name:         e.Name,
		AlbumID:      e.Album.ID,
		MainArtistID: e.MainArtistID(),
		DurationMS:   e.DurationMS,
		Popularity:   e.Popularity,
		CoverURI:     e.Album.CoverURI,
	}
}

// ArtistIDs returns every artist the track depends on: its listed artists followed by the album owner.
func (e EnrichedTrack) ArtistIDs() []string {
	ids := make([]string, 0, len(e.Artists)+1)
	for _, a := range e.Artists {
		if a.ID != "" {
			ids = append(ids, a.ID)
		}
	}
	if owner := e.AlbumOwnerID(); owner != "" {
		ids = append(ids, owner)
	}
	return ids
}

// Collaborations returns one link per featured artist, skipping the main artist.
func (e EnrichedTrack) Collaborations() []Collaboration {
	if len(e.Artists) < 2 {
		return nil
	}
	links := make([]Collaboration, 0, len(e.Artists)-1)
	for _, a := range e.Artists[1:] {
		if a.ID == "" || a.ID == e.MainArtistID() {
			continue
		}
		links = append(links, Collaboration{ArtistID: a.ID, TrackID: e.ID})
	}
	return links
}

// ArtistLookup is the outcome of an artist detail lookup. Found is false when the catalog no
// longer has the artist, which callers treat as a reason to drop it.
type ArtistLookup struct {
	Found  bool   `json:"found"`
	Artist Artist `json:"artist"`
}

// ArtistFound wraps an enriched artist.
func ArtistFound(a Artist) ArtistLookup {
	return ArtistLookup{Found: true, Artist: a}
}

// ArtistNotFound is the lookup result for a missing artist.
func ArtistNotFound(id string) ArtistLookup {
	return ArtistLookup{Artist: Artist{ID: id}}
}
