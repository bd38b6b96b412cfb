package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/listenlog/internal/services"
	"github.com/desertthunder/listenlog/internal/shared"
	tu "github.com/desertthunder/listenlog/internal/testing"
	"github.com/goccy/go-json"
)

const historyExport = `[
  {"ts": "2024-01-01T10:00:00Z", "spotify_track_uri": "spotify:track:T1", "master_metadata_track_name": "One", "ms_played": 60000},
  {"ts": "2024-01-01T10:05:00Z", "spotify_track_uri": "spotify:track:T1", "master_metadata_track_name": "One", "ms_played": 30000}
]`

type fakeLookup struct{}

func (fakeLookup) Track(ctx context.Context, id string) (*services.SpotifyTrack, error) {
	if id == "missing" {
		return nil, fmt.Errorf("%w: /tracks/missing", shared.ErrNotFound)
	}
	return &services.SpotifyTrack{ID: id, Name: "Song " + id}, nil
}

func (fakeLookup) Artist(ctx context.Context, id string) (*services.SpotifyArtist, error) {
	return &services.SpotifyArtist{ID: id, Name: "Artist " + id, Genres: []string{"rock"}}, nil
}

// testEnv writes a config file pointing at a temporary database and returns its path.
func testEnv(t *testing.T) (dir, configPath string) {
	t.Helper()
	dir = t.TempDir()
	configPath = filepath.Join(dir, "config.toml")
	tu.MustWriteFile(t, configPath, fmt.Sprintf("[database]\npath = %q\n", filepath.Join(dir, "test.db")))
	return dir, configPath
}

func newTestRunner(opts RunnerOpts) (*Runner, *bytes.Buffer) {
	output := &bytes.Buffer{}
	opts.Output = output
	opts.Logger = shared.DiscardLogger()
	return NewRunner(opts), output
}

func run(t *testing.T, r *Runner, args ...string) error {
	t.Helper()
	return newApp(r).Run(context.Background(), append([]string{"listenlog"}, args...))
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			catalog := tu.NewMockCatalog()

			runner := NewRunner(RunnerOpts{
				Config:  config,
				Logger:  logger,
				Output:  output,
				Catalog: catalog,
				Lookup:  fakeLookup{},
				Version: "1.0.0",
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.catalog != catalog {
				t.Error("expected catalog to be set")
			}
			if runner.version != "1.0.0" {
				t.Errorf("expected version 1.0.0, got %s", runner.version)
			}
		})

		t.Run("with nil options uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
			if runner.output != os.Stdout {
				t.Error("expected output to default to stdout")
			}
			if runner.version != "dev" {
				t.Errorf("expected dev version, got %s", runner.version)
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			runner, output := newTestRunner(RunnerOpts{})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !strings.Contains(output.String(), "\n  \"key\": \"value\"") {
				t.Errorf("expected indented JSON, got %q", output.String())
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner, _ := newTestRunner(RunnerOpts{})

			if err := runner.writeJSON(map[string]any{"fn": func() {}}, false); err == nil {
				t.Error("expected marshal error")
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}, Logger: shared.DiscardLogger()})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err == nil {
				t.Error("expected write error")
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			var buf bytes.Buffer
			lw := tu.NewLimitedWriter(1, 0, &buf)
			runner := NewRunner(RunnerOpts{Output: &lw, Logger: shared.DiscardLogger()})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err == nil {
				t.Error("expected newline write error")
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		runner, output := newTestRunner(RunnerOpts{})
		if err := runner.writePlain("%d plays\n", 3); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if output.String() != "3 plays\n" {
			t.Errorf("unexpected output %q", output.String())
		}

		failing := NewRunner(RunnerOpts{Output: &tu.FWriter{}, Logger: shared.DiscardLogger()})
		if err := failing.writePlain("x"); err == nil {
			t.Error("expected write error")
		}
	})

	t.Run("register", func(t *testing.T) {
		runner, _ := newTestRunner(RunnerOpts{})

		var names []string
		for _, cmd := range runner.register() {
			names = append(names, cmd.Name)
		}
		if got := strings.Join(names, ","); got != "setup,import,serve,catalog,stats" {
			t.Errorf("unexpected commands %s", got)
		}
	})
}

func TestConfigure(t *testing.T) {
	t.Run("loads config file", func(t *testing.T) {
		dir, configPath := testEnv(t)
		runner, _ := newTestRunner(RunnerOpts{})

		if err := run(t, runner, "--config", configPath, "setup", "database"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if runner.config.Database.Path != filepath.Join(dir, "test.db") {
			t.Errorf("config not loaded, database path %s", runner.config.Database.Path)
		}
	})

	t.Run("explicit missing config", func(t *testing.T) {
		runner, _ := newTestRunner(RunnerOpts{})

		err := run(t, runner, "--config", filepath.Join(t.TempDir(), "nope.toml"), "stats")
		if !errors.Is(err, shared.ErrMissingConfig) {
			t.Errorf("expected ErrMissingConfig, got %v", err)
		}
	})

	t.Run("invalid config", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		tu.MustWriteFile(t, configPath, "[catalog]\nconcurrency = 0\n")
		runner, _ := newTestRunner(RunnerOpts{})

		if err := run(t, runner, "--config", configPath, "stats"); !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})
}

func TestSetup(t *testing.T) {
	dir, configPath := testEnv(t)
	runner, output := newTestRunner(RunnerOpts{})

	if err := run(t, runner, "--config", configPath, "setup", "database"); err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	tu.AssertFileExists(t, filepath.Join(dir, "test.db"))
	if !strings.Contains(output.String(), "Database ready") {
		t.Errorf("unexpected output %q", output.String())
	}

	t.Run("rollback", func(t *testing.T) {
		if err := run(t, runner, "--config", configPath, "setup", "rollback"); err != nil {
			t.Fatalf("rollback failed: %v", err)
		}
		if !strings.Contains(output.String(), "Rolled back") {
			t.Errorf("unexpected output %q", output.String())
		}
	})
}

func TestImport(t *testing.T) {
	catalog := func() *tu.MockCatalog {
		return tu.NewMockCatalog().AddTrack("T1", "AL1", "A").AddArtist("A")
	}

	t.Run("single file as JSON", func(t *testing.T) {
		dir, configPath := testEnv(t)
		export := filepath.Join(dir, "history.json")
		tu.MustWriteFile(t, export, historyExport)

		runner, output := newTestRunner(RunnerOpts{Catalog: catalog()})
		if err := run(t, runner, "--config", configPath, "import", "--file", export, "--user", "alice", "--format", "json"); err != nil {
			t.Fatalf("import failed: %v", err)
		}

		var got map[string]any
		if err := json.Unmarshal(output.Bytes(), &got); err != nil {
			t.Fatalf("invalid JSON output %q: %v", output.String(), err)
		}
		for key, want := range map[string]float64{"artists": 1, "albums": 1, "tracks": 1, "history": 2, "links": 0} {
			if got[key].(float64) != want {
				t.Errorf("%s = %v, want %v", key, got[key], want)
			}
		}
		if got["user_id"] != "alice" {
			t.Errorf("user_id = %v, want alice", got["user_id"])
		}

		t.Run("stats reflect the import", func(t *testing.T) {
			output.Reset()
			if err := run(t, runner, "--config", configPath, "stats", "--user", "alice", "--format", "csv"); err != nil {
				t.Fatalf("stats failed: %v", err)
			}
			out := output.String()
			for _, want := range []string{"history,2", "users,1", "user (alice),Default User", "plays (alice),2", "listening time (alice),1:30"} {
				if !strings.Contains(out, want) {
					t.Errorf("stats missing %q:\n%s", want, out)
				}
			}
		})

		t.Run("stats for an unknown user", func(t *testing.T) {
			err := run(t, runner, "--config", configPath, "stats", "--user", "nobody")
			if !errors.Is(err, shared.ErrNotFound) {
				t.Errorf("expected ErrNotFound, got %v", err)
			}
		})

		t.Run("stored track and artist", func(t *testing.T) {
			output.Reset()
			if err := run(t, runner, "--config", configPath, "catalog", "track", "--local", "--pretty=false", "spotify:track:T1"); err != nil {
				t.Fatalf("catalog track failed: %v", err)
			}
			if !strings.Contains(output.String(), `"main_artist_id":"A"`) {
				t.Errorf("unexpected track output %q", output.String())
			}

			output.Reset()
			if err := run(t, runner, "--config", configPath, "catalog", "artist", "--local", "--pretty=false", "A"); err != nil {
				t.Fatalf("catalog artist failed: %v", err)
			}
			if !strings.Contains(output.String(), `"name":"Artist A"`) {
				t.Errorf("unexpected artist output %q", output.String())
			}

			err := run(t, runner, "--config", configPath, "catalog", "artist", "--local", "Z")
			if !errors.Is(err, shared.ErrNotFound) {
				t.Errorf("expected ErrNotFound for unknown artist, got %v", err)
			}
		})
	})

	t.Run("several files as a batch", func(t *testing.T) {
		dir, configPath := testEnv(t)
		good := filepath.Join(dir, "good.json")
		bad := filepath.Join(dir, "bad.json")
		tu.MustWriteFile(t, good, historyExport)
		tu.MustWriteFile(t, bad, `"nope"`)

		runner, output := newTestRunner(RunnerOpts{Catalog: catalog()})
		if err := run(t, runner, "--config", configPath, "import", "--file", good, "--file", bad, "--format", "csv"); err != nil {
			t.Fatalf("import failed: %v", err)
		}
		if !strings.Contains(output.String(), "failed") || !strings.Contains(output.String(), "bad.json") {
			t.Errorf("expected failed file in output:\n%s", output.String())
		}
	})

	t.Run("malformed single file", func(t *testing.T) {
		dir, configPath := testEnv(t)
		bad := filepath.Join(dir, "bad.json")
		tu.MustWriteFile(t, bad, `not json`)

		runner, _ := newTestRunner(RunnerOpts{Catalog: catalog()})
		err := run(t, runner, "--config", configPath, "import", "--file", bad)
		if !errors.Is(err, shared.ErrMalformedInput) {
			t.Errorf("expected ErrMalformedInput, got %v", err)
		}
	})

	t.Run("invalid format", func(t *testing.T) {
		_, configPath := testEnv(t)
		runner, _ := newTestRunner(RunnerOpts{Catalog: catalog()})

		err := run(t, runner, "--config", configPath, "import", "--file", "x.json", "--format", "yaml")
		if !errors.Is(err, shared.ErrInvalidFlag) {
			t.Errorf("expected ErrInvalidFlag, got %v", err)
		}
	})

	t.Run("missing credentials", func(t *testing.T) {
		_, configPath := testEnv(t)
		runner, _ := newTestRunner(RunnerOpts{})

		err := run(t, runner, "--config", configPath, "import", "--file", "x.json")
		if !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})
}

func TestCatalog(t *testing.T) {
	t.Run("track by URI", func(t *testing.T) {
		runner, output := newTestRunner(RunnerOpts{Lookup: fakeLookup{}})

		if err := run(t, runner, "catalog", "track", "spotify:track:ABC"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var got services.SpotifyTrack
		if err := json.Unmarshal(output.Bytes(), &got); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if got.ID != "ABC" {
			t.Errorf("id = %s, want ABC", got.ID)
		}
	})

	t.Run("track not found", func(t *testing.T) {
		runner, _ := newTestRunner(RunnerOpts{Lookup: fakeLookup{}})

		if err := run(t, runner, "catalog", "track", "missing"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("artist", func(t *testing.T) {
		runner, output := newTestRunner(RunnerOpts{Lookup: fakeLookup{}})

		if err := run(t, runner, "catalog", "artist", "--pretty=false", "A1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(output.String(), `"name":"Artist A1"`) {
			t.Errorf("unexpected output %q", output.String())
		}
	})

	t.Run("missing argument", func(t *testing.T) {
		runner, _ := newTestRunner(RunnerOpts{Lookup: fakeLookup{}})

		if err := run(t, runner, "catalog", "artist"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})
}
