package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/setlist/internal/models"
	"github.com/desertthunder/setlist/internal/routes"
	"github.com/desertthunder/setlist/internal/shared"
)

// Songs lists one page of the catalog.
func (r *Runner) Songs(ctx context.Context, cmd *cli.Command) error {
	if err := r.guard(routes.SongsPath); err != nil {
		return err
	}

	filters := models.SongFilters{
		Title:   cmd.String("title"),
		Page:    int(cmd.Int("page")),
		PerPage: int(cmd.Int("per-page")),
	}
	if filters.Page < 1 || filters.PerPage < 1 {
		return fmt.Errorf("%w: --page and --per-page must be positive", shared.ErrInvalidFlag)
	}

	songs, err := r.reader.Songs(ctx, filters)
	if err != nil {
		return fmt.Errorf("failed to list songs: %w", err)
	}

	if cmd.Bool("json") || cmd.Bool("pretty") {
		return r.writeJSON(songs, cmd.Bool("pretty"))
	}

	if len(songs) == 0 {
		r.writePlain("No songs found\n")
		return nil
	}

	r.writePlainHeader(fmt.Sprintf("Songs (page %d)", filters.Page))
	for _, s := range songs {
		r.writeSong(s)
	}
	return nil
}

func (r *Runner) writeSong(s models.Song) {
	r.writePlain("%5d  %s - %s", s.ID, s.ArtistName, s.Title)
	if s.AlbumName != "" {
		r.writePlain(" (%s)", s.AlbumName)
	}
	if s.Duration != "" {
		r.writePlain(" [%s]", shared.FormatDuration(s.Duration))
	}
	r.writePlain("\n")
}
