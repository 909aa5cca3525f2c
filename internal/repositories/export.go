package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/setlist/internal/models"
	"github.com/desertthunder/setlist/internal/shared"
)

// ExportRepository implements [models.Repository] for [models.Export] history.
type ExportRepository struct {
	db *sql.DB
}

// NewExportRepository creates a new [ExportRepository] with the given database connection
func NewExportRepository(db *sql.DB) *ExportRepository {
	return &ExportRepository{db: db}
}

// Create assigns an ID and timestamp when missing, then inserts the record.
func (r *ExportRepository) Create(e *models.Export) error {
	if e.ExportID == "" {
		e.ExportID = shared.GenerateID()
	}
	if e.Created.IsZero() {
		e.Created = time.Now().UTC()
	}

	if err := e.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO exports (id, playlist_id, title, format, path, song_count, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	if _, err := r.db.Exec(query, e.ExportID, e.PlaylistID, e.Title, string(e.Format), e.Path, e.SongCount, e.Created); err != nil {
		return fmt.Errorf("failed to insert export: %w", err)
	}
	return nil
}

const exportColumns = `id, playlist_id, title, format, path, song_count, created_at`

func scanExport(row interface{ Scan(...any) error }) (*models.Export, error) {
	var (
		e      models.Export
		format string
	)
	if err := row.Scan(&e.ExportID, &e.PlaylistID, &e.Title, &format, &e.Path, &e.SongCount, &e.Created); err != nil {
		return nil, err
	}
	e.Format = models.ExportFormat(format)
	return &e, nil
}

// Get retrieves an export by ID
func (r *ExportRepository) Get(id string) (*models.Export, error) {
	e, err := scanExport(r.db.QueryRow(`SELECT `+exportColumns+` FROM exports WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("export not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query export: %w", err)
	}
	return e, nil
}

// Delete removes an export record. The exported file is left on disk.
func (r *ExportRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM exports WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete export: %w", err)
	}
	return affectedOne(result, "export", id)
}

// List retrieves exports newest first. Supported criteria: "playlist_id" (int), "format" (string), "limit" (int).
func (r *ExportRepository) List(criteria map[string]any) ([]*models.Export, error) {
	query := `SELECT ` + exportColumns + ` FROM exports WHERE 1 = 1`
	args := []any{}

	if id, ok := criteria["playlist_id"].(int); ok && id > 0 {
		query += " AND playlist_id = ?"
		args = append(args, id)
	}
	if format, ok := criteria["format"].(string); ok && format != "" {
		query += " AND format = ?"
		args = append(args, format)
	}

	query += " ORDER BY created_at DESC, rowid DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query exports: %w", err)
	}
	defer rows.Close()

	var exports []*models.Export
	for rows.Next() {
		e, err := scanExport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan export: %w", err)
		}
		exports = append(exports, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return exports, nil
}
