package tasks

import (
	"fmt"

	"github.com/desertthunder/listenlog/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	ParseEvents Phase = iota
	DiscoverTracks
	CheckTracks
	EnrichTracks
	CheckArtists
	EnrichArtists
	CheckAlbums
	Filter
	EnsureUser
	WriteArtists
	WriteAlbums
	WriteTracks
	WriteHistory
	WriteLinks
	Complete
)

// importSteps is the number of phases a single import reports, used as the progress total.
const importSteps = int(Complete)

func (p Phase) String() string {
	switch p {
	case ParseEvents:
		return "parse_events"
	case DiscoverTracks:
		return "discover_tracks"
	case CheckTracks:
		return "check_tracks"
	case EnrichTracks:
		return "enrich_tracks"
	case CheckArtists:
		return "check_artists"
	case EnrichArtists:
		return "enrich_artists"
	case CheckAlbums:
		return "check_albums"
	case Filter:
		return "filter"
	case EnsureUser:
		return "ensure_user"
	case WriteArtists:
		return "write_artists"
	case WriteAlbums:
		return "write_albums"
	case WriteTracks:
		return "write_tracks"
	case WriteHistory:
		return "write_history"
	case WriteLinks:
		return "write_links"
	case Complete:
		return "complete"
	default:
		return ""
	}
}

func phaseUpdate(p Phase, message string) ProgressUpdate {
	return ProgressUpdate{Phase: p, Step: int(p), Total: importSteps, Message: message}
}

func discoverUpdate(events, refs int) ProgressUpdate {
	return phaseUpdate(DiscoverTracks, fmt.Sprintf("Found %d distinct tracks in %d events", refs, events))
}

func checkTracksUpdate(present, missing int) ProgressUpdate {
	return phaseUpdate(CheckTracks, fmt.Sprintf("%d tracks already stored, %d to resolve", present, missing))
}

func enrichTracksUpdate(requested int) ProgressUpdate {
	return phaseUpdate(EnrichTracks, fmt.Sprintf("Resolving %d tracks from the catalog...", requested))
}

func enrichArtistUpdate(step, total int, id string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   EnrichArtists,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Looking up artist %s", step, total, id),
	}
}

func filterUpdate(dropped models.Counts) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Filter,
		Step:    int(Filter),
		Total:   importSteps,
		Message: fmt.Sprintf("Dropped %d artists, %d albums, %d tracks, %d plays with unresolved dependencies", dropped.Artists, dropped.Albums, dropped.Tracks, dropped.History),
		Data:    dropped,
	}
}

func writeUpdate(p Phase, entity string, inserted, attempted int) ProgressUpdate {
	return phaseUpdate(p, fmt.Sprintf("Inserted %d of %d %s", inserted, attempted, entity))
}

func completeUpdate(result *models.ImportResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Complete,
		Step:    importSteps,
		Total:   importSteps,
		Message: fmt.Sprintf("Import complete: %d rows inserted in %dms", result.Total(), result.DurationMS),
		Data:    result,
	}
}

func fileStartedUpdate(step, total int, path string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ParseEvents,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Importing %s...", step, total, path),
	}
}

func fileCompletedUpdate(step, total int, res FileImportResult) ProgressUpdate {
	if res.Error != nil {
		return ProgressUpdate{
			Phase:   Complete,
			Step:    step,
			Total:   total,
			Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, res.Path, res.Error),
			Data:    res,
		}
	}
	return ProgressUpdate{
		Phase:   Complete,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%d plays)", step, total, res.Path, res.Result.History),
		Data:    res,
	}
}
