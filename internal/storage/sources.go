package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// Source is a place cards are imported from, either a local directory
// or a git repository URL, owned by one user.
type Source struct {
	ID          int64
	UserID      int64
	Path        string
	Type        string
	LastScanned sql.NullTime
}

// InsertSource registers a new import source for a user and returns its ID.
func (db *DB) InsertSource(userID int64, path, sourceType string) (int64, error) {
	res, err := db.conn.Exec(`
		INSERT INTO sources (user_id, path, type)
		VALUES (?, ?, ?)
	`, userID, path, sourceType)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("source %s: %w", path, ErrDuplicate)
		}
		return 0, fmt.Errorf("failed to insert source %s: %w", path, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for source %s: %w", path, err)
	}
	return id, nil
}

// GetSources retrieves all import sources for a user.
func (db *DB) GetSources(userID int64) ([]Source, error) {
	rows, err := db.conn.Query(`
		SELECT id, user_id, path, type, last_scanned
		FROM sources WHERE user_id = ?
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get sources: %w", err)
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		var s Source
		if err := rows.Scan(&s.ID, &s.UserID, &s.Path, &s.Type, &s.LastScanned); err != nil {
			return nil, fmt.Errorf("failed to scan source row: %w", err)
		}
		sources = append(sources, s)
	}
	return sources, rows.Err()
}

// DeleteSource removes an import source. Cards already imported from it
// stay; they belong to the user, not the source.
func (db *DB) DeleteSource(id, userID int64) error {
	res, err := db.conn.Exec(`
		DELETE FROM sources
		WHERE id = ? AND user_id = ?
	`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete source %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete of source %d: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("source %d: %w", id, ErrNotFound)
	}
	return nil
}

// UpdateSourceLastScanned stamps the time a source was last reconciled.
func (db *DB) UpdateSourceLastScanned(sourceID int64) error {
	_, err := db.conn.Exec(`
		UPDATE sources
		SET last_scanned = ?
		WHERE id = ?
	`, time.Now().UTC(), sourceID)
	if err != nil {
		return fmt.Errorf("failed to update last scanned for source ID %d: %w", sourceID, err)
	}
	return nil
}
