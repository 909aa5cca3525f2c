package models

import (
	"fmt"
	"strings"
	"time"
)

// Model defines the base interface for locally persisted models.
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	UpdatedAt() time.Time // UpdatedAt returns when this model was last updated
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

// Repository defines the interface for data access operations.
type Repository[T Model] interface {
	Create(model T) error                      // Create inserts a new model into the database
	Get(id string) (T, error)                  // Get retrieves a model by its ID
	Delete(id string) error                    // Delete removes a model from the database by its ID
	List(criteria map[string]any) ([]T, error) // List retrieves all models matching the given criteria
}

// ExportFormat names an on-disk playlist export encoding.
type ExportFormat string

const (
	FormatCSV      ExportFormat = "csv"
	FormatMarkdown ExportFormat = "md"
	FormatText     ExportFormat = "txt"
	FormatJSON     ExportFormat = "json"
)

// ParseExportFormat accepts the format names the CLI exposes.
func ParseExportFormat(s string) (ExportFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	case "txt", "text":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown export format %q", s)
	}
}

// Export records one playlist written to disk.
type Export struct {
	ExportID   string       `json:"id"`
	PlaylistID int          `json:"playlist_id"`
	Title      string       `json:"title"`
	Format     ExportFormat `json:"format"`
	Path       string       `json:"path"`
	SongCount  int          `json:"song_count"`
	Created    time.Time    `json:"created_at"`
}

func (e *Export) ID() string           { return e.ExportID }
func (e *Export) CreatedAt() time.Time { return e.Created }
func (e *Export) UpdatedAt() time.Time { return e.Created }

func (e *Export) Validate() error {
	switch {
	case e.ExportID == "":
		return &ValidationError{Field: "id", Message: "is required"}
	case e.PlaylistID <= 0:
		return &ValidationError{Field: "playlist_id", Message: "must be positive"}
	case e.Path == "":
		return &ValidationError{Field: "path", Message: "is required"}
	}
	if _, err := ParseExportFormat(string(e.Format)); err != nil {
		return &ValidationError{Field: "format", Message: err.Error()}
	}
	return nil
}
