// package formatter renders playlists for export (CSV, Markdown, plain text, JSON) and writes them to disk.
package formatter

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/setlist/internal/models"
	"github.com/desertthunder/setlist/internal/shared"
)

// CSVHeaders are the columns written by [ToCSV].
var CSVHeaders = []string{"Position", "ID", "Title", "Artist", "Album", "Year", "Duration", "Format"}

// ToCSV writes one row per song in playlist order.
func ToCSV(p *models.Playlist) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(CSVHeaders); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for i, s := range p.Songs {
		record := []string{
			strconv.Itoa(i + 1),
			strconv.Itoa(s.ID),
			s.Title,
			s.ArtistName,
			s.AlbumName,
			s.Year,
			shared.FormatDuration(s.Duration),
			s.Format,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// ToMarkdown renders the playlist as a document, linking coverFile when it is not empty.
func ToMarkdown(p *models.Playlist, coverFile string) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", p.Title)
	if coverFile != "" {
		fmt.Fprintf(&buf, "![Cover](%s)\n\n", coverFile)
	}

	fmt.Fprintf(&buf, "**Songs**: %d\n", len(p.Songs))
	if p.CreatedAt != "" {
		fmt.Fprintf(&buf, "**Created**: %s\n", shared.FormatDate(p.CreatedAt))
	}
	if p.UpdatedAt != nil && *p.UpdatedAt != "" {
		fmt.Fprintf(&buf, "**Updated**: %s\n", shared.FormatDate(*p.UpdatedAt))
	}

	buf.WriteString("\n## Songs\n\n")
	if len(p.Songs) == 0 {
		buf.WriteString("_This playlist is empty._\n")
	}
	for i, s := range p.Songs {
		album := ""
		if s.AlbumName != "" {
			album = fmt.Sprintf(" (%s)", s.AlbumName)
		}
		fmt.Fprintf(&buf, "%d. %s - %s%s [%s]\n", i+1, s.ArtistName, s.Title, album, shared.FormatDuration(s.Duration))
	}
	return buf.Bytes()
}

// ToText renders a plain listing.
func ToText(p *models.Playlist) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Playlist: %s\n", p.Title)
	fmt.Fprintf(&buf, "Songs: %d\n\n", len(p.Songs))
	for i, s := range p.Songs {
		fmt.Fprintf(&buf, "%d. %s - %s (%s)\n", i+1, s.ArtistName, s.Title, shared.FormatDuration(s.Duration))
	}
	return buf.Bytes()
}

// Render encodes p in format. Markdown output carries no cover link.
func Render(p *models.Playlist, format models.ExportFormat) ([]byte, error) {
	switch format {
	case models.FormatCSV:
		return ToCSV(p)
	case models.FormatMarkdown:
		return ToMarkdown(p, ""), nil
	case models.FormatText:
		return ToText(p), nil
	case models.FormatJSON:
		return shared.MarshalJSON(p, true)
	default:
		return nil, fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidInput, format)
	}
}

// Slug lowercases title and keeps only letters, digits and single dashes.
func Slug(title string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// BaseName is the file stem used for a playlist's export: {id}-{slug}, or just {id} for untitled playlists.
func BaseName(p *models.Playlist) string {
	if slug := Slug(p.Title); slug != "" {
		return fmt.Sprintf("%d-%s", p.ID, slug)
	}
	return strconv.Itoa(p.ID)
}

// DownloadImage fetches url with client, which defaults to one with a 30 second timeout.
func DownloadImage(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("%w: empty URL provided", shared.ErrInvalidArgument)
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build image request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	return data, nil
}

// WriteOpts controls [Write].
type WriteOpts struct {
	// Covers downloads cover images for Markdown exports when set.
	Covers *http.Client
	// Warn receives non-fatal problems such as a failed cover download.
	Warn func(msg string, kv ...any)
}

// Write renders p in format under dir and returns the path of the main file.
//
// Markdown exports get their own directory ({dir}/{base}/README.md) so the cover image can sit next to the document.
func Write(ctx context.Context, p *models.Playlist, format models.ExportFormat, dir string, opts WriteOpts) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}
	base := BaseName(p)

	if format != models.FormatMarkdown {
		data, err := Render(p, format)
		if err != nil {
			return "", err
		}
		out := filepath.Join(dir, base+"."+string(format))
		if err := os.WriteFile(out, data, 0644); err != nil {
			return "", fmt.Errorf("failed to write %s export: %w", format, err)
		}
		return out, nil
	}

	outDir := filepath.Join(dir, base)
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	coverFile := ""
	if p.Cover != "" && opts.Covers != nil {
		if data, err := DownloadImage(ctx, opts.Covers, p.Cover); err != nil {
			warn(opts, "failed to download cover image", "playlist", p.ID, "error", err)
		} else {
			coverFile = "cover" + coverExt(p.Cover)
			if err := os.WriteFile(filepath.Join(outDir, coverFile), data, 0644); err != nil {
				warn(opts, "failed to save cover image", "playlist", p.ID, "error", err)
				coverFile = ""
			}
		}
	}

	out := filepath.Join(outDir, "README.md")
	if err := os.WriteFile(out, ToMarkdown(p, coverFile), 0644); err != nil {
		return "", fmt.Errorf("failed to write Markdown file: %w", err)
	}
	return out, nil
}

func warn(opts WriteOpts, msg string, kv ...any) {
	if opts.Warn != nil {
		opts.Warn(msg, kv...)
	}
}

func coverExt(url string) string {
	if i := strings.IndexAny(url, "?#"); i >= 0 {
		url = url[:i]
	}
	switch ext := strings.ToLower(path.Ext(url)); ext {
	case ".png", ".jpg", ".jpeg", ".gif", ".webp":
		return ext
	default:
		return ".jpg"
	}
}
