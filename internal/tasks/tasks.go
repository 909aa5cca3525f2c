package tasks

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/setlist/internal/formatter"
	"github.com/desertthunder/setlist/internal/models"
	"github.com/desertthunder/setlist/internal/shared"
)

// PlaylistSource reads playlists. query.Reader satisfies it.
type PlaylistSource interface {
	Playlists(ctx context.Context) ([]models.Playlist, error)
	Playlist(ctx context.Context, id int) (*models.Playlist, error)
}

// ExportRecorder persists finished exports. repositories.ExportRepository satisfies it.
type ExportRecorder interface {
	Create(e *models.Export) error
}

// Exporter writes playlists to disk.
type Exporter struct {
	source   PlaylistSource
	recorder ExportRecorder
	covers   *http.Client
	logger   *log.Logger
	now      func() time.Time
}

// ExporterOpts configures [NewExporter]. Only Source is required.
type ExporterOpts struct {
	Source   PlaylistSource
	Recorder ExportRecorder
	Covers   *http.Client // downloads cover images for Markdown exports; nil skips covers
	Logger   *log.Logger
	Now      func() time.Time
}

func NewExporter(opts ExporterOpts) *Exporter {
	e := &Exporter{
		source:   opts.Source,
		recorder: opts.Recorder,
		covers:   opts.Covers,
		logger:   opts.Logger,
		now:      opts.Now,
	}
	if e.logger == nil {
		e.logger = log.New(io.Discard)
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

// Export writes playlist id in format under dir and records it when a recorder is configured.
func (e *Exporter) Export(ctx context.Context, id int, format models.ExportFormat, dir string) (*models.Export, error) {
	if e.source == nil {
		return nil, fmt.Errorf("%w: playlist source not initialized", shared.ErrServiceUnavailable)
	}

	p, err := e.source.Playlist(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch playlist %d: %w", id, err)
	}
	return e.write(ctx, p, format, dir)
}

func (e *Exporter) write(ctx context.Context, p *models.Playlist, format models.ExportFormat, dir string) (*models.Export, error) {
	path, err := formatter.Write(ctx, p, format, dir, formatter.WriteOpts{
		Covers: e.covers,
		Warn:   func(msg string, kv ...any) { e.logger.Warn(msg, kv...) },
	})
	if err != nil {
		return nil, fmt.Errorf("%s export failed: %w", format, err)
	}

	rec := &models.Export{
		ExportID:   shared.GenerateID(),
		PlaylistID: p.ID,
		Title:      p.Title,
		Format:     format,
		Path:       path,
		SongCount:  len(p.Songs),
		Created:    e.now().UTC(),
	}
	if e.recorder != nil {
		if err := e.recorder.Create(rec); err != nil {
			e.logger.Warn("failed to record export", "playlist", p.ID, "error", err)
		}
	}
	e.logger.Debug("exported playlist", "playlist", p.ID, "format", format, "path", path)
	return rec, nil
}
