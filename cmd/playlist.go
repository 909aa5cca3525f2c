package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/setlist/internal/models"
	"github.com/desertthunder/setlist/internal/query"
	"github.com/desertthunder/setlist/internal/routes"
	"github.com/desertthunder/setlist/internal/shared"
	"github.com/desertthunder/setlist/internal/tasks"
)

// parseID reads a positive playlist id from a positional argument or flag value.
func parseID(value, name string) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("%w: %s is required", shared.ErrMissingArgument, name)
	}
	id, err := strconv.Atoi(value)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("%w: %s must be a positive integer, got %q", shared.ErrInvalidArgument, name, value)
	}
	return id, nil
}

// playlistArg parses the id argument and applies the guard to its detail route.
func (r *Runner) playlistArg(cmd *cli.Command) (int, error) {
	id, err := parseID(cmd.StringArg("id"), "playlist id")
	if err != nil {
		return 0, err
	}
	if err := r.guard(fmt.Sprintf("%s/%d", routes.PlaylistPath, id)); err != nil {
		return 0, err
	}
	return id, nil
}

func (r *Runner) writePlaylist(p *models.Playlist) {
	r.writePlainHeader(p.Title)
	r.writePlain("ID: %d\n", p.ID)
	if p.Cover != "" {
		r.writePlain("Cover: %s\n", p.Cover)
	}
	if p.CreatedAt != "" {
		r.writePlain("Created: %s\n", shared.FormatDate(p.CreatedAt))
	}
	if p.UpdatedAt != nil {
		r.writePlain("Updated: %s\n", shared.FormatDate(*p.UpdatedAt))
	}
	r.writePlain("Songs: %d\n\n", len(p.Songs))
	for _, s := range p.Songs {
		r.writeSong(s)
	}
}

// Playlists lists the signed-in user's playlists.
func (r *Runner) Playlists(ctx context.Context, cmd *cli.Command) error {
	if err := r.guard(routes.PlaylistPath); err != nil {
		return err
	}

	playlists, err := r.reader.Playlists(ctx)
	if err != nil {
		return fmt.Errorf("failed to list playlists: %w", err)
	}

	if cmd.Bool("json") || cmd.Bool("pretty") {
		return r.writeJSON(playlists, cmd.Bool("pretty"))
	}

	if len(playlists) == 0 {
		r.writePlain("No playlists yet. Create one with 'setlist playlist create <title>'\n")
		return nil
	}

	r.writePlainHeader(fmt.Sprintf("Playlists (%d)", len(playlists)))
	for _, p := range playlists {
		r.writePlain("%5d  %s (%d songs)\n", p.ID, p.Title, len(p.Songs))
	}
	return nil
}

// ShowPlaylist prints one playlist with its songs.
func (r *Runner) ShowPlaylist(ctx context.Context, cmd *cli.Command) error {
	id, err := r.playlistArg(cmd)
	if err != nil {
		return err
	}

	p, err := r.reader.Playlist(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get playlist %d: %w", id, err)
	}

	if cmd.Bool("json") || cmd.Bool("pretty") {
		return r.writeJSON(p, cmd.Bool("pretty"))
	}
	r.writePlaylist(p)
	return nil
}

// CreatePlaylist creates a playlist from the title argument.
func (r *Runner) CreatePlaylist(ctx context.Context, cmd *cli.Command) error {
	if err := r.guard(routes.PlaylistPath); err != nil {
		return err
	}

	p, err := r.mutations.CreatePlaylist(ctx, models.CreatePlaylistRequest{
		Title: cmd.StringArg("title"),
		Cover: cmd.String("cover"),
	})
	if err != nil {
		return fmt.Errorf("failed to create playlist: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(p, false)
	}
	r.writePlain("✓ Created playlist %d: %s\n", p.ID, p.Title)
	return nil
}

// UpdatePlaylist changes the title and/or cover of a playlist.
func (r *Runner) UpdatePlaylist(ctx context.Context, cmd *cli.Command) error {
	id, err := r.playlistArg(cmd)
	if err != nil {
		return err
	}

	var req models.UpdatePlaylistRequest
	if cmd.IsSet("title") {
		title := cmd.String("title")
		req.Title = &title
	}
	if cmd.IsSet("cover") {
		cover := cmd.String("cover")
		req.Cover = &cover
	}
	if req.Title == nil && req.Cover == nil {
		return fmt.Errorf("%w: pass --title and/or --cover", shared.ErrMissingArgument)
	}

	p, err := r.mutations.UpdatePlaylist(ctx, id, req)
	if err != nil {
		return fmt.Errorf("failed to update playlist %d: %w", id, err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(p, false)
	}
	r.writePlain("✓ Updated playlist %d: %s\n", p.ID, p.Title)
	return nil
}

// DeletePlaylist deletes a playlist.
func (r *Runner) DeletePlaylist(ctx context.Context, cmd *cli.Command) error {
	id, err := r.playlistArg(cmd)
	if err != nil {
		return err
	}

	if err := r.mutations.DeletePlaylist(ctx, id); err != nil {
		return fmt.Errorf("failed to delete playlist %d: %w", id, err)
	}
	r.writePlain("✓ Deleted playlist %d\n", id)
	return nil
}

// AddSong adds a song, given by id or title, to a playlist.
func (r *Runner) AddSong(ctx context.Context, cmd *cli.Command) error {
	id, err := r.playlistArg(cmd)
	if err != nil {
		return err
	}

	song, err := r.reader.ResolveSong(ctx, cmd.String("song"))
	if err != nil {
		return fmt.Errorf("failed to resolve song: %w", err)
	}

	p, err := r.mutations.AddSong(ctx, id, song.ID)
	if err != nil {
		return fmt.Errorf("failed to add song %d to playlist %d: %w", song.ID, id, err)
	}

	r.writePlain("✓ Added song %d to %s (%d songs)\n", song.ID, p.Title, len(p.Songs))
	return nil
}

// RemoveSong removes a song from a playlist. Titles are resolved against the playlist's own songs before a bare number is read as an id.
func (r *Runner) RemoveSong(ctx context.Context, cmd *cli.Command) error {
	id, err := r.playlistArg(cmd)
	if err != nil {
		return err
	}

	term := strings.TrimSpace(cmd.String("song"))
	songID, explicit, err := query.ExplicitSongID(term)
	if err != nil {
		return err
	}
	if !explicit {
		p, err := r.reader.Playlist(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to get playlist %d: %w", id, err)
		}
		for _, s := range p.Songs {
			if strings.EqualFold(s.Title, term) {
				songID = s.ID
				break
			}
		}
		if n, err := strconv.Atoi(term); songID == 0 && err == nil && n > 0 {
			songID = n
		}
		if songID == 0 {
			return fmt.Errorf("%w: %q is not in playlist %d", shared.ErrSongNotFound, term, id)
		}
	}

	if err := r.mutations.RemoveSong(ctx, id, songID); err != nil {
		return fmt.Errorf("failed to remove song %d from playlist %d: %w", songID, id, err)
	}
	r.writePlain("✓ Removed song %d from playlist %d\n", songID, id)
	return nil
}

// UploadCover uploads an image and prints its URL. With --playlist the URL is attached to that playlist.
func (r *Runner) UploadCover(ctx context.Context, cmd *cli.Command) error {
	if err := r.guard(routes.PlaylistPath); err != nil {
		return err
	}

	path := cmd.StringArg("file")
	if path == "" {
		return fmt.Errorf("%w: image file is required", shared.ErrMissingArgument)
	}

	var playlistID int
	if cmd.IsSet("playlist") {
		id, err := parseID(cmd.String("playlist"), "--playlist")
		if err != nil {
			return err
		}
		playlistID = id
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	url, err := r.mutations.UploadCover(ctx, filepath.Base(path), f)
	if err != nil {
		return fmt.Errorf("failed to upload cover: %w", err)
	}
	r.writePlain("✓ Uploaded cover: %s\n", url)

	if playlistID == 0 {
		return nil
	}
	p, err := r.mutations.UpdatePlaylist(ctx, playlistID, models.UpdatePlaylistRequest{Cover: &url})
	if err != nil {
		return fmt.Errorf("failed to attach cover to playlist %d: %w", playlistID, err)
	}
	r.writePlain("✓ Cover attached to %s\n", p.Title)
	return nil
}

// Export writes playlists to files concurrently and records a manifest.
func (r *Runner) Export(ctx context.Context, cmd *cli.Command) error {
	if err := r.guard(routes.PlaylistPath); err != nil {
		return err
	}

	format, err := models.ParseExportFormat(cmd.String("format"))
	if err != nil {
		return fmt.Errorf("%w: %w", shared.ErrInvalidFlag, err)
	}

	opts := tasks.BulkExportOpts{
		Format:     format,
		OutputDir:  cmd.String("output"),
		NumWorkers: int(cmd.Int("workers")),
		RateLimit:  float64(cmd.Int("rate")),
	}
	for _, raw := range cmd.StringSlice("id") {
		id, err := parseID(raw, "--id")
		if err != nil {
			return err
		}
		opts.IDs = append(opts.IDs, id)
	}

	prog := make(chan tasks.ProgressUpdate, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for u := range prog {
			r.logger.Info(u.Message, "phase", u.Phase)
		}
	}()

	result, err := r.exporter.BulkExport(ctx, prog, opts)
	close(prog)
	<-done
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	r.writePlainHeader("Export complete")
	r.writePlain("Format: %s\n", result.Format)
	r.writePlain("Exported: %d/%d\n", result.SuccessfulExports, result.TotalPlaylists)
	for _, res := range result.Results {
		if res.Success {
			r.writePlain("  ✓ %d %s -> %s\n", res.PlaylistID, res.Title, res.Path)
		} else {
			r.writePlain("  ✗ %d %s: %s\n", res.PlaylistID, res.Title, res.Message)
		}
	}
	r.writePlain("Manifest: %s\n", result.ManifestPath)

	if result.FailedExports > 0 {
		return fmt.Errorf("%d of %d playlists failed to export", result.FailedExports, result.TotalPlaylists)
	}
	return nil
}

// Exports lists the export history recorded in the database.
func (r *Runner) Exports(ctx context.Context, cmd *cli.Command) error {
	if r.exports == nil {
		return fmt.Errorf("%w: export history requires a database, run 'setlist setup'", shared.ErrServiceUnavailable)
	}

	criteria := map[string]any{}
	if cmd.IsSet("playlist") {
		id, err := parseID(cmd.String("playlist"), "--playlist")
		if err != nil {
			return err
		}
		criteria["playlist_id"] = id
	}

	exports, err := r.exports.List(criteria)
	if err != nil {
		return err
	}

	if cmd.Bool("json") || cmd.Bool("pretty") {
		if exports == nil {
			exports = []*models.Export{}
		}
		return r.writeJSON(exports, cmd.Bool("pretty"))
	}

	if len(exports) == 0 {
		r.writePlain("No exports recorded\n")
		return nil
	}
	for _, e := range exports {
		r.writePlain("%s  %-4s  %d %s -> %s\n", e.Created.Local().Format("2006-01-02 15:04"), e.Format, e.PlaylistID, e.Title, e.Path)
	}
	return nil
}
