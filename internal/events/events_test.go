package events

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/desertthunder/listenlog/internal/shared"
)

const sampleEvent = `{
	"ts": "2024-03-01T10:00:00Z",
	"platform": "android",
	"ms_played": 183000,
	"conn_country": "FR",
	"ip_addr": "10.0.0.1",
	"master_metadata_track_name": "Song",
	"master_metadata_album_artist_name": "Artist",
	"master_metadata_album_album_name": "Album",
	"spotify_track_uri": "spotify:track:ABC",
	"reason_start": "trackdone",
	"reason_end": "endplay",
	"shuffle": true,
	"skipped": null,
	"offline": false,
	"incognito_mode": false
}`

func TestNormalize(t *testing.T) {
	t.Run("array", func(t *testing.T) {
		got, err := Normalize([]byte("[" + sampleEvent + "," + sampleEvent + "]"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("expected 2 events, got %d", len(got))
		}

		e := got[0]
		if e.TrackURI != "spotify:track:ABC" || e.TrackName != "Song" || e.AlbumName != "Album" || e.ArtistName != "Artist" {
			t.Errorf("unexpected identity fields %+v", e)
		}
		if e.MSPlayed != 183000 || e.Country != "FR" || e.IPAddress != "10.0.0.1" || e.Platform != "android" {
			t.Errorf("unexpected play fields %+v", e)
		}
		if !e.Shuffle || e.Skipped || e.ReasonStart != "trackdone" || e.ReasonEnd != "endplay" {
			t.Errorf("unexpected flag fields %+v", e)
		}
	})

	t.Run("container keys", func(t *testing.T) {
		for _, key := range ContainerKeys {
			t.Run(key, func(t *testing.T) {
				got, err := Normalize([]byte(`{"` + key + `": [` + sampleEvent + `]}`))
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if len(got) != 1 {
					t.Errorf("expected 1 event, got %d", len(got))
				}
			})
		}
	})

	t.Run("container key order", func(t *testing.T) {
		got, err := Normalize([]byte(`{"items": [], "history": [` + sampleEvent + `]}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 1 {
			t.Errorf("expected history to win over items, got %d events", len(got))
		}
	})

	t.Run("single event object", func(t *testing.T) {
		got, err := Normalize([]byte(sampleEvent))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 1 || got[0].Timestamp != "2024-03-01T10:00:00Z" {
			t.Errorf("unexpected events %+v", got)
		}
	})

	t.Run("null elements skipped", func(t *testing.T) {
		got, err := Normalize([]byte("[null, " + sampleEvent + ", null]"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 1 {
			t.Errorf("expected 1 event, got %d", len(got))
		}
	})

	t.Run("empty array", func(t *testing.T) {
		got, err := Normalize([]byte(" [] "))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 0 {
			t.Errorf("expected no events, got %d", len(got))
		}
	})

	t.Run("malformed", func(t *testing.T) {
		tc := []struct {
			name string
			raw  string
		}{
			{name: "empty", raw: ""},
			{name: "scalar", raw: "42"},
			{name: "string", raw: `"history"`},
			{name: "invalid json", raw: "[{"},
			{name: "unknown object", raw: `{"foo": []}`},
			{name: "container not array", raw: `{"history": {"ts": "x"}}`},
			{name: "non-array container does not fall through to later keys", raw: `{"history": "x", "items": [{"ts": "2024-01-01T00:00:00Z"}]}`},
			{name: "non-object element", raw: `[1, 2]`},
			{name: "wrong field type", raw: `[{"ts": "x", "ms_played": "long"}]`},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				_, err := Normalize([]byte(tt.raw))
				if !errors.Is(err, shared.ErrMalformedInput) {
					t.Errorf("expected ErrMalformedInput, got %v", err)
				}
			})
		}
	})
}

func TestParse(t *testing.T) {
	t.Run("reader", func(t *testing.T) {
		got, err := Parse(strings.NewReader(`{"plays": [` + sampleEvent + `]}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 1 {
			t.Errorf("expected 1 event, got %d", len(got))
		}
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "history.json")
		if err := os.WriteFile(path, []byte("["+sampleEvent+"]"), 0644); err != nil {
			t.Fatalf("failed to write fixture: %v", err)
		}

		got, err := ParseFile(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 1 {
			t.Errorf("expected 1 event, got %d", len(got))
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := ParseFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
			t.Error("expected error for missing file")
		}
	})
}

func TestTrackReferences(t *testing.T) {
	raw := `[
		{"ts": "1", "spotify_track_uri": "spotify:track:B", "master_metadata_track_name": "b"},
		{"ts": "2", "spotify_track_uri": "spotify:track:A", "master_metadata_track_name": "a"},
		{"ts": "3", "spotify_track_uri": "spotify:track:B", "master_metadata_track_name": "b"},
		{"ts": "4", "spotify_track_uri": "spotify:track:C", "master_metadata_track_name": null},
		{"ts": "5", "spotify_track_uri": null, "master_metadata_track_name": "podcast"}
	]`
	evts, err := Normalize([]byte(raw))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := TrackReferences(evts)
	want := []string{"spotify:track:B", "spotify:track:A"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("TrackReferences() = %v, want %v", got, want)
	}
}
