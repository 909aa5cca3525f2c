// Package tasks runs long playlist operations with progress reporting.
//
// # Operations
//
//  1. [Exporter.Export] writes one playlist to disk and records it.
//  2. [Exporter.BulkExport] exports many playlists with a rate-limited worker pool and writes a manifest.
//
// # Progress Reporting
//
// Progress goes to an optional channel of [ProgressUpdate]. Sends use select with default, so a slow or absent
// reader never blocks an export.
//
// # Implementation
//
// [Exporter] depends on:
//   - [PlaylistSource] : cached playlist reads (query.Reader)
//   - [ExportRecorder] : optional persistence of finished exports (repositories.ExportRepository)
//   - formatter.Write : rendering and file layout
package tasks
