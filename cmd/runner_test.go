package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/desertthunder/setlist/internal/models"
	"github.com/desertthunder/setlist/internal/services"
	"github.com/desertthunder/setlist/internal/shared"
	tu "github.com/desertthunder/setlist/internal/testing"
	"github.com/desertthunder/setlist/internal/tasks"
)

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := shared.OpenDatabase(shared.DatabaseConfig{Path: ":memory:", MaxOpenConns: 1})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testConfig(api *tu.FakeAPI) *shared.Config {
	config := shared.DefaultConfig()
	config.API.BaseURL = api.URL
	config.API.RateLimit = 0
	return config
}

type cliHarness struct {
	api    *tu.FakeAPI
	db     *sql.DB
	output *bytes.Buffer
	runner *Runner
}

func newHarness(t *testing.T) *cliHarness {
	t.Helper()
	api := tu.NewFakeAPI(t)
	db := openDB(t)
	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{
		Config: testConfig(api),
		DB:     db,
		Logger: shared.NewLogger(&bytes.Buffer{}),
		Output: output,
	})
	return &cliHarness{api: api, db: db, output: output, runner: runner}
}

// run executes one command line and returns what it printed.
func (h *cliHarness) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	h.output.Reset()
	err := h.runner.app().Run(context.Background(), append([]string{"setlist"}, args...))
	return h.output.String(), err
}

func (h *cliHarness) login(t *testing.T) {
	t.Helper()
	if _, err := h.run(t, "auth", "login", "-u", tu.FakeUsername, "-p", tu.FakePassword); err != nil {
		t.Fatalf("login failed: %v", err)
	}
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			db := openDB(t)

			runner := NewRunner(RunnerOpts{
				Config: config,
				DB:     db,
				Logger: logger,
				Output: output,
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
			if runner.db != db {
				t.Error("expected db to be set")
			}
			if runner.exports == nil {
				t.Error("expected export history to be wired when a database is given")
			}
			if runner.store == nil || runner.client == nil || runner.reader == nil || runner.mutations == nil || runner.exporter == nil {
				t.Error("expected the session, gateway, reader, coordinator and exporter to be wired")
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Config: nil})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
			if runner.client.BaseURL() != runner.config.API.BaseURL {
				t.Errorf("expected client to use %s, got %s", runner.config.API.BaseURL, runner.client.BaseURL())
			}
		})

		t.Run("with nil logger uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Logger: nil})

			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: nil})

			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})

		t.Run("with nil httpClient uses the configured timeout", func(t *testing.T) {
			config := shared.DefaultConfig()
			runner := NewRunner(RunnerOpts{Config: config})

			if runner.httpClient == nil {
				t.Fatal("expected an http client to be created")
			}
			if runner.httpClient.Timeout != config.API.Timeout {
				t.Errorf("expected timeout %v, got %v", config.API.Timeout, runner.httpClient.Timeout)
			}
		})

		t.Run("without a database keeps no export history", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.exports != nil {
				t.Error("expected no export repository without a database")
			}
		})

		t.Run("with configPath sets field", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{ConfigPath: "/test/path/config.toml"})

			if runner.configPath != "/test/path/config.toml" {
				t.Errorf("expected configPath to be set, got %s", runner.configPath)
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if output.String() != expected {
				t.Errorf("expected %q, got %q", expected, output.String())
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			err := runner.writeJSON(make(chan int), false)
			if err == nil {
				t.Fatal("expected error for non-serializable data")
			}
			if !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil {
				t.Fatal("expected error writing newline")
			}
			if !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "hello world" {
				t.Errorf("expected 'hello world', got %q", output.String())
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writePlain("test")
			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		names := map[string]bool{}
		for i, cmd := range commands {
			if cmd == nil {
				t.Fatalf("command at index %d is nil", i)
			}
			names[cmd.Name] = true
		}
		for _, want := range []string{"setup", "auth", "songs", "playlist", "serve", "tui"} {
			if !names[want] {
				t.Errorf("expected %q to be registered", want)
			}
		}
	})
}

func TestParseID(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		want    int
		wantErr error
	}{
		{name: "positive", value: "12", want: 12},
		{name: "surrounding space", value: " 7 ", want: 7},
		{name: "empty", value: "", wantErr: shared.ErrMissingArgument},
		{name: "zero", value: "0", wantErr: shared.ErrInvalidArgument},
		{name: "negative", value: "-3", wantErr: shared.ErrInvalidArgument},
		{name: "not a number", value: "abc", wantErr: shared.ErrInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseID(tt.value, "id")
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestAuthCommands(t *testing.T) {
	t.Run("login persists the session for later runs", func(t *testing.T) {
		h := newHarness(t)
		out, err := h.run(t, "auth", "login", "-u", tu.FakeUsername, "-p", tu.FakePassword)
		if err != nil {
			t.Fatalf("login failed: %v", err)
		}
		if !strings.Contains(out, "Logged in as "+tu.FakeUsername) {
			t.Errorf("unexpected output: %q", out)
		}

		next := NewRunner(RunnerOpts{
			Config: testConfig(h.api),
			DB:     h.db,
			Logger: shared.NewLogger(&bytes.Buffer{}),
			Output: &bytes.Buffer{},
		})
		if !next.store.HasToken() {
			t.Error("expected a new runner to restore the persisted session")
		}
	})

	t.Run("login with a wrong password fails", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.run(t, "auth", "login", "-u", tu.FakeUsername, "-p", "wrong-password")
		if !errors.Is(err, shared.ErrAuthFailed) {
			t.Fatalf("expected ErrAuthFailed, got %v", err)
		}
		if h.runner.store.HasToken() {
			t.Error("expected no token after a failed login")
		}
	})

	t.Run("login validates before calling the server", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.run(t, "auth", "login", "-u", tu.FakeUsername, "-p", "123")
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument, got %v", err)
		}
		if n := h.api.Calls(tu.RouteLogin); n != 0 {
			t.Errorf("expected no login call, got %d", n)
		}
	})

	t.Run("register then login", func(t *testing.T) {
		h := newHarness(t)
		out, err := h.run(t, "auth", "register",
			"--first-name", "Ada", "--last-name", "Lovelace",
			"-u", "ada", "-p", "engine42")
		if err != nil {
			t.Fatalf("register failed: %v", err)
		}
		if !strings.Contains(out, "Account ada created") {
			t.Errorf("unexpected output: %q", out)
		}
		if h.runner.store.HasToken() {
			t.Error("expected register not to sign in")
		}

		if _, err := h.run(t, "auth", "login", "-u", "ada", "-p", "engine42"); err != nil {
			t.Fatalf("login after register failed: %v", err)
		}
	})

	t.Run("register rejects a mismatched confirmation", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.run(t, "auth", "register",
			"--first-name", "Ada", "--last-name", "Lovelace",
			"-u", "ada", "-p", "engine42", "--confirm-password", "engine43")
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument, got %v", err)
		}
		if n := h.api.Calls(tu.RouteRegister); n != 0 {
			t.Errorf("expected no register call, got %d", n)
		}
	})

	t.Run("status and logout", func(t *testing.T) {
		h := newHarness(t)
		h.login(t)

		out, err := h.run(t, "auth", "status", "--json")
		if err != nil {
			t.Fatalf("status failed: %v", err)
		}
		var status sessionStatus
		if err := json.Unmarshal([]byte(out), &status); err != nil {
			t.Fatalf("failed to decode status %q: %v", out, err)
		}
		if !status.Authenticated || !status.Valid || status.ExpiresAt == nil {
			t.Errorf("unexpected status: %+v", status)
		}

		if _, err := h.run(t, "auth", "logout"); err != nil {
			t.Fatalf("logout failed: %v", err)
		}
		out, _ = h.run(t, "auth", "status")
		if !strings.Contains(out, "Not logged in") {
			t.Errorf("expected signed-out status, got %q", out)
		}
	})
}

func TestPlaylistCommands(t *testing.T) {
	t.Run("guarded commands need a session", func(t *testing.T) {
		h := newHarness(t)
		for _, args := range [][]string{
			{"playlist", "list"},
			{"playlist", "show", "1"},
			{"playlist", "create", "Mix"},
			{"songs", "list"},
		} {
			if _, err := h.run(t, args...); !errors.Is(err, shared.ErrNotAuthenticated) {
				t.Errorf("%v: expected ErrNotAuthenticated, got %v", args, err)
			}
		}
		if n := h.api.Calls(tu.RoutePlaylists); n != 0 {
			t.Errorf("expected no server calls, got %d", n)
		}
	})

	t.Run("create, add, show, rename, remove and delete", func(t *testing.T) {
		h := newHarness(t)
		h.login(t)

		out, err := h.run(t, "playlist", "create", "Road Trip")
		if err != nil {
			t.Fatalf("create failed: %v", err)
		}
		if !strings.Contains(out, "Created playlist 1: Road Trip") {
			t.Errorf("unexpected output: %q", out)
		}

		if _, err := h.run(t, "playlist", "add", "--song", "naima", "1"); err != nil {
			t.Fatalf("add by title failed: %v", err)
		}
		if _, err := h.run(t, "playlist", "add", "--song", "5", "1"); err != nil {
			t.Fatalf("add by id failed: %v", err)
		}

		out, err = h.run(t, "playlist", "show", "--json", "1")
		if err != nil {
			t.Fatalf("show failed: %v", err)
		}
		var shown models.Playlist
		if err := json.Unmarshal([]byte(out), &shown); err != nil {
			t.Fatalf("failed to decode playlist %q: %v", out, err)
		}
		if len(shown.Songs) != 2 || !shown.HasSong(3) || !shown.HasSong(5) {
			t.Errorf("expected songs 3 and 5, got %+v", shown.Songs)
		}

		if _, err := h.run(t, "playlist", "update", "--title", "Night Drive", "1"); err != nil {
			t.Fatalf("update failed: %v", err)
		}
		if p, _ := h.api.Playlist(1); p.Title != "Night Drive" {
			t.Errorf("expected renamed playlist, got %q", p.Title)
		}

		if _, err := h.run(t, "playlist", "remove", "--song", "Naima", "1"); err != nil {
			t.Fatalf("remove by title failed: %v", err)
		}
		if p, _ := h.api.Playlist(1); p.HasSong(3) || !p.HasSong(5) {
			t.Errorf("expected only song 5 left, got %+v", p.Songs)
		}

		out, err = h.run(t, "playlist", "list")
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if !strings.Contains(out, "Night Drive (1 songs)") {
			t.Errorf("expected the renamed playlist in the listing, got %q", out)
		}

		if _, err := h.run(t, "playlist", "delete", "1"); err != nil {
			t.Fatalf("delete failed: %v", err)
		}
		if _, ok := h.api.Playlist(1); ok {
			t.Error("expected playlist to be deleted on the server")
		}
		out, _ = h.run(t, "playlist", "list")
		if !strings.Contains(out, "No playlists yet") {
			t.Errorf("expected the listing to be refetched after delete, got %q", out)
		}
	})

	t.Run("update without changes is rejected", func(t *testing.T) {
		h := newHarness(t)
		h.login(t)
		h.api.SeedPlaylist("Mix")

		if _, err := h.run(t, "playlist", "update", "1"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Fatalf("expected ErrMissingArgument, got %v", err)
		}
		if n := h.api.Calls(tu.RouteUpdate); n != 0 {
			t.Errorf("expected no update call, got %d", n)
		}
	})

	t.Run("invalid playlist id", func(t *testing.T) {
		h := newHarness(t)
		h.login(t)

		if _, err := h.run(t, "playlist", "show", "abc"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("revoked session clears the stored token", func(t *testing.T) {
		h := newHarness(t)
		h.login(t)
		h.api.Revoke()

		_, err := h.run(t, "playlist", "list")
		if !errors.Is(err, services.ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
		if h.runner.store.HasToken() {
			t.Error("expected the token to be cleared")
		}
		if _, err := h.run(t, "playlist", "list"); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected the guard to stop the next command, got %v", err)
		}
	})

	t.Run("cover upload attaches to a playlist", func(t *testing.T) {
		h := newHarness(t)
		h.login(t)
		h.api.SeedPlaylist("Mix")

		image := filepath.Join(t.TempDir(), "cover.png")
		if err := os.WriteFile(image, []byte("\x89PNG fake"), 0644); err != nil {
			t.Fatalf("failed to write image: %v", err)
		}

		out, err := h.run(t, "playlist", "cover", "--playlist", "1", image)
		if err != nil {
			t.Fatalf("cover failed: %v", err)
		}
		if !strings.Contains(out, "Cover attached to Mix") {
			t.Errorf("unexpected output: %q", out)
		}
		if p, _ := h.api.Playlist(1); p.Cover == "" {
			t.Error("expected the playlist cover to be set")
		}
	})
}

func TestSongsCommand(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	out, err := h.run(t, "songs", "list", "--title", "blue")
	if err != nil {
		t.Fatalf("songs failed: %v", err)
	}
	for _, want := range []string{"Blue in Green", "Blue Train"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in %q", want, out)
		}
	}
	if strings.Contains(out, "Naima") {
		t.Errorf("expected the title filter to apply, got %q", out)
	}

	out, err = h.run(t, "songs", "list", "--per-page", "2", "--page", "2", "--json")
	if err != nil {
		t.Fatalf("paged songs failed: %v", err)
	}
	var songs []models.Song
	if err := json.Unmarshal([]byte(out), &songs); err != nil {
		t.Fatalf("failed to decode songs %q: %v", out, err)
	}
	if len(songs) != 2 || songs[0].ID != 3 {
		t.Errorf("expected songs 3 and 4, got %+v", songs)
	}

	if _, err := h.run(t, "songs", "list", "--page", "0"); !errors.Is(err, shared.ErrInvalidFlag) {
		t.Errorf("expected ErrInvalidFlag, got %v", err)
	}
}

func TestExportCommand(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	h.api.SeedPlaylist("Late Night", 1, 3)
	h.api.SeedPlaylist("Morning", 5)
	dir := filepath.Join(t.TempDir(), "out")

	out, err := h.run(t, "playlist", "export", "--format", "csv", "--output", dir, "--workers", "2", "--rate", "50")
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if !strings.Contains(out, "Exported: 2/2") {
		t.Errorf("unexpected output: %q", out)
	}

	tu.AssertFileExists(t, filepath.Join(dir, "1-late-night.csv"))
	tu.AssertFileExists(t, filepath.Join(dir, "2-morning.csv"))

	var manifest tasks.BulkExportResult
	if err := json.Unmarshal([]byte(tu.MustReadFile(t, filepath.Join(dir, tasks.ManifestFile))), &manifest); err != nil {
		t.Fatalf("failed to decode manifest: %v", err)
	}
	if manifest.SuccessfulExports != 2 || manifest.Format != models.FormatCSV {
		t.Errorf("unexpected manifest: %+v", manifest)
	}

	out, err = h.run(t, "playlist", "exports", "--playlist", "1", "--json")
	if err != nil {
		t.Fatalf("exports failed: %v", err)
	}
	var history []models.Export
	if err := json.Unmarshal([]byte(out), &history); err != nil {
		t.Fatalf("failed to decode history %q: %v", out, err)
	}
	if len(history) != 1 || history[0].PlaylistID != 1 {
		t.Errorf("expected one export of playlist 1, got %+v", history)
	}

	if _, err := h.run(t, "playlist", "export", "--format", "xml"); !errors.Is(err, shared.ErrInvalidFlag) {
		t.Errorf("expected ErrInvalidFlag for unknown format, got %v", err)
	}
}

func TestSetupCommand(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.toml")
	dbPath := filepath.Join(dir, "setlist.db")
	conf := "[database]\npath = " + strconv.Quote(dbPath) + "\n"
	if err := os.WriteFile(configPath, []byte(conf), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{Output: output, Logger: shared.NewLogger(&bytes.Buffer{})})
	if err := runner.app().Run(context.Background(), []string{"setlist", "setup", "--config", configPath}); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	tu.AssertFileExists(t, dbPath)
	if !strings.Contains(output.String(), "Setup complete for database: "+dbPath) {
		t.Errorf("unexpected output: %q", output.String())
	}
}
