package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/desertthunder/setlist/internal/models"
	"github.com/desertthunder/setlist/internal/shared"
)

// ManifestFile is written to the output directory after every bulk export.
const ManifestFile = "export_manifest.json"

// BulkExportOpts contains configuration for bulk playlist exports.
type BulkExportOpts struct {
	Format     models.ExportFormat // defaults to json
	OutputDir  string              // defaults to setlist_export_{epoch}
	IDs        []int               // playlists to export; empty means every playlist
	NumWorkers int                 // concurrent workers, 1..10 (default 5)
	RateLimit  float64             // playlist reads per second (default 5)
}

// PlaylistExportResult is the outcome for one playlist.
type PlaylistExportResult struct {
	PlaylistID int    `json:"playlist_id"`
	Title      string `json:"title"`
	Path       string `json:"path,omitempty"`
	SongCount  int    `json:"song_count"`
	Success    bool   `json:"success"`
	Message    string `json:"error,omitempty"`
	Error      error  `json:"-"`
}

// BulkExportResult summarizes a bulk export. It is also the manifest's content.
type BulkExportResult struct {
	Format            models.ExportFormat    `json:"format"`
	TotalPlaylists    int                    `json:"total_playlists"`
	SuccessfulExports int                    `json:"successful_exports"`
	FailedExports     int                    `json:"failed_exports"`
	OutputDirectory   string                 `json:"output_directory"`
	ManifestPath      string                 `json:"-"`
	StartedAt         time.Time              `json:"started_at"`
	FinishedAt        time.Time              `json:"finished_at"`
	Results           []PlaylistExportResult `json:"results"`
}

func (o *BulkExportOpts) defaults(now time.Time) {
	if o.Format == "" {
		o.Format = models.FormatJSON
	}
	if o.OutputDir == "" {
		o.OutputDir = fmt.Sprintf("setlist_export_%d", now.Unix())
	}
	if o.NumWorkers <= 0 {
		o.NumWorkers = 5
	}
	if o.NumWorkers > 10 {
		o.NumWorkers = 10
	}
	if o.RateLimit <= 0 {
		o.RateLimit = 5.0
	}
}

// BulkExport exports several playlists concurrently with rate limiting and progress tracking.
//
// Playlist reads are throttled by a shared limiter, rendering runs in a worker pool, and a manifest summarizing
// every result is written last. Individual failures are reported in the result and do not stop the run.
func (e *Exporter) BulkExport(ctx context.Context, prog chan<- ProgressUpdate, opts BulkExportOpts) (*BulkExportResult, error) {
	if e.source == nil {
		return nil, fmt.Errorf("%w: playlist source not initialized", shared.ErrServiceUnavailable)
	}
	started := e.now()
	opts.defaults(started)

	ids := opts.IDs
	if len(ids) == 0 {
		sendProgress(prog, fetchingPlaylistsUpdate())
		lists, err := e.source.Playlists(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list playlists: %w", err)
		}
		for _, p := range lists {
			ids = append(ids, p.ID)
		}
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &BulkExportResult{
		Format:          opts.Format,
		TotalPlaylists:  len(ids),
		OutputDirectory: opts.OutputDir,
		StartedAt:       started.UTC(),
		Results:         make([]PlaylistExportResult, 0, len(ids)),
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	jobs := make(chan int)
	results := make(chan PlaylistExportResult, len(ids))

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go e.exportWorker(ctx, &wg, limiter, jobs, results, opts)
	}

	go func() {
		defer close(jobs)
		for i, id := range ids {
			sendProgress(prog, exportingPlaylistUpdate(i+1, len(ids), id))
			select {
			case jobs <- id:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		result.Results = append(result.Results, res)
		if res.Success {
			result.SuccessfulExports++
			sendProgress(prog, exportCompletedUpdate(completed, len(ids), res))
		} else {
			result.FailedExports++
			sendProgress(prog, exportFailedUpdate(completed, len(ids), res))
		}
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}

	sort.Slice(result.Results, func(i, j int) bool { return result.Results[i].PlaylistID < result.Results[j].PlaylistID })
	result.FinishedAt = e.now().UTC()

	manifestPath := filepath.Join(opts.OutputDir, ManifestFile)
	data, err := shared.MarshalJSON(result, true)
	if err != nil {
		return result, fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := os.WriteFile(manifestPath, data, 0644); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	sendProgress(prog, manifestUpdate(manifestPath))
	return result, nil
}

func (e *Exporter) exportWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	limiter *rate.Limiter,
	jobs <-chan int,
	results chan<- PlaylistExportResult,
	opts BulkExportOpts,
) {
	defer wg.Done()

	for id := range jobs {
		if err := limiter.Wait(ctx); err != nil {
			return
		}
		results <- e.exportOne(ctx, id, opts)
	}
}

func (e *Exporter) exportOne(ctx context.Context, id int, opts BulkExportOpts) PlaylistExportResult {
	res := PlaylistExportResult{PlaylistID: id, Title: fmt.Sprintf("Unknown (%d)", id)}

	p, err := e.source.Playlist(ctx, id)
	if err != nil {
		res.Error = fmt.Errorf("failed to fetch playlist: %w", err)
		res.Message = res.Error.Error()
		return res
	}
	res.Title = p.Title
	res.SongCount = len(p.Songs)

	rec, err := e.write(ctx, p, opts.Format, opts.OutputDir)
	if err != nil {
		res.Error = err
		res.Message = err.Error()
		return res
	}
	res.Path = rec.Path
	res.Success = true
	return res
}
