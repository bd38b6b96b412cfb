package tasks

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/desertthunder/listenlog/internal/shared"
	tu "github.com/desertthunder/listenlog/internal/testing"
)

const exportOne = `[
  {"ts": "2024-01-01T10:00:00Z", "spotify_track_uri": "spotify:track:T1", "master_metadata_track_name": "One", "ms_played": 1000},
  {"ts": "2024-01-01T10:05:00Z", "spotify_track_uri": "spotify:track:T1", "master_metadata_track_name": "One", "ms_played": 2000}
]`

const exportTwo = `{"history": [
  {"ts": "2024-01-01T10:05:00Z", "spotify_track_uri": "spotify:track:T1", "master_metadata_track_name": "One", "ms_played": 2000},
  {"ts": "2024-01-02T09:00:00Z", "spotify_track_uri": "spotify:track:T2", "master_metadata_track_name": "Two", "ms_played": 3000},
  {"ts": "2024-01-02T09:30:00Z", "spotify_track_uri": null, "master_metadata_track_name": null, "ms_played": 0}
]}`

func TestImportEngine_ImportFiles(t *testing.T) {
	dir := t.TempDir()
	one := filepath.Join(dir, "Streaming_History_0.json")
	two := filepath.Join(dir, "Streaming_History_1.json")
	bad := filepath.Join(dir, "broken.json")
	tu.MustWriteFile(t, one, exportOne)
	tu.MustWriteFile(t, two, exportTwo)
	tu.MustWriteFile(t, bad, `[1, 2, 3]`)

	t.Run("imports files in order and records failures", func(t *testing.T) {
		catalog := tu.NewMockCatalog().AddTrack("T1", "AL1", "A").AddTrack("T2", "AL1", "A", "B").AddArtist("A", "B")
		engine, _, db := setupEngine(t, catalog)

		progress := make(chan ProgressUpdate, 32)
		res, err := engine.ImportFiles(context.Background(), progress, []string{one, bad, two}, "alice")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if res.Succeeded != 2 || res.Failed != 1 {
			t.Errorf("succeeded/failed = %d/%d, want 2/1", res.Succeeded, res.Failed)
		}
		if len(res.Files) != 3 {
			t.Fatalf("expected 3 file results, got %d", len(res.Files))
		}
		if res.Files[1].Path != bad || !errors.Is(res.Files[1].Error, shared.ErrMalformedInput) {
			t.Errorf("expected malformed input for %s, got %v", bad, res.Files[1].Error)
		}
		if got := res.Files[0].Result.History; got != 2 {
			t.Errorf("first file history = %d, want 2", got)
		}
		if got := res.Files[2].Result.History; got != 1 {
			t.Errorf("overlapping play should be skipped, got %d new plays", got)
		}
		if res.Total.History != 3 || res.Total.Tracks != 2 || res.Total.Links != 1 {
			t.Errorf("unexpected totals %+v", res.Total)
		}
		if res.Events != 5 {
			t.Errorf("events = %d, want 5", res.Events)
		}
		if got := countRows(t, db, "SELECT COUNT(*) FROM history"); got != 3 {
			t.Errorf("history rows = %d, want 3", got)
		}
		if len(progress) == 0 {
			t.Error("expected progress updates")
		}
	})

	t.Run("missing file is a per-file failure", func(t *testing.T) {
		engine, _, _ := setupEngine(t, tu.NewMockCatalog())

		res, err := engine.ImportFiles(context.Background(), nil, []string{filepath.Join(dir, "nope.json")}, "alice")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Failed != 1 || res.Files[0].Success() {
			t.Errorf("expected one failed file, got %+v", res.Files)
		}
	})

	t.Run("no files", func(t *testing.T) {
		engine, _, _ := setupEngine(t, tu.NewMockCatalog())

		res, err := engine.ImportFiles(context.Background(), nil, nil, "alice")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(res.Files) != 0 || res.Succeeded != 0 {
			t.Errorf("expected empty result, got %+v", res)
		}
	})

	t.Run("storage failure stops the batch", func(t *testing.T) {
		engine, _, db := setupEngine(t, tu.NewMockCatalog())
		db.Close()

		res, err := engine.ImportFiles(context.Background(), nil, []string{one, two}, "alice")
		if !errors.Is(err, shared.ErrStorageUnavailable) {
			t.Fatalf("expected ErrStorageUnavailable, got %v", err)
		}
		if len(res.Files) != 0 {
			t.Errorf("expected no completed files, got %d", len(res.Files))
		}
	})

	t.Run("canceled context", func(t *testing.T) {
		engine, _, _ := setupEngine(t, tu.NewMockCatalog())
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if _, err := engine.ImportFiles(ctx, nil, []string{one}, "alice"); !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	})
}
