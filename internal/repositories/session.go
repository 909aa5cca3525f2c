package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SessionRepository stores the bearer token in a single-row table.
//
// A row past its expiry is treated as absent and removed on load.
type SessionRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSessionRepository creates a new [SessionRepository] with the given database connection
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db, now: time.Now}
}

// Save replaces the stored token.
func (r *SessionRepository) Save(token string, expiry time.Time) error {
	if token == "" {
		return fmt.Errorf("refusing to store empty token")
	}

	query := `
		INSERT INTO sessions (id, access_token, expires_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET access_token = excluded.access_token, expires_at = excluded.expires_at, created_at = CURRENT_TIMESTAMP
	`
	if _, err := r.db.Exec(query, token, expiry.UTC()); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Load returns the stored token, reporting ok=false when there is none or it has expired.
func (r *SessionRepository) Load() (string, time.Time, bool, error) {
	var (
		token     string
		expiresAt time.Time
	)

	err := r.db.QueryRow(`SELECT access_token, expires_at FROM sessions WHERE id = 1`).Scan(&token, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", time.Time{}, false, nil
	}
	if err != nil {
		return "", time.Time{}, false, fmt.Errorf("failed to load session: %w", err)
	}

	if !r.now().Before(expiresAt) {
		if err := r.Clear(); err != nil {
			return "", time.Time{}, false, err
		}
		return "", time.Time{}, false, nil
	}

	return token, expiresAt, true, nil
}

// Clear removes the stored token. Clearing an empty slot is not an error.
func (r *SessionRepository) Clear() error {
	if _, err := r.db.Exec(`DELETE FROM sessions`); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}
