// package services defines the catalog lookup contracts used by imports
package services

import (
	"context"
	"errors"

	"github.com/desertthunder/listenlog/internal/models"
)

// Catalog resolves references into enriched entities. Unresolvable entities are reported as
// absent results, never as errors.
type Catalog interface {
	// EnrichTracks returns an enriched record for each reference the catalog could resolve,
	// keyed by the reference as given.
	EnrichTracks(ctx context.Context, refs []string) (map[string]models.EnrichedTrack, error)

	// ArtistDetail returns the artist's full metadata, or a lookup with Found false when the
	// catalog no longer has it.
	ArtistDetail(ctx context.Context, id string) (models.ArtistLookup, error)
}

// Source is the raw catalog API a [CatalogResolver] batches over.
type Source interface {
	// SeveralTracks looks up 1 to 50 track ids. The result is positional: unknown ids yield nil entries.
	SeveralTracks(ctx context.Context, ids []string) ([]*SpotifyTrack, error)

	// Artist looks up a single artist by id.
	Artist(ctx context.Context, id string) (*SpotifyArtist, error)
}

// isContextErr reports whether err came from cancellation or a deadline.
func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
