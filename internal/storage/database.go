package storage

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/wordvault/wordvault/internal/domain"
	_ "modernc.org/sqlite" // Registers the sqlite driver
)

// DB represents a wrapper around the SQL database connection.
type DB struct {
	conn *sql.DB
}

// Open creates a new database connection and ensures the schema is up to date.
func Open(dsn string) (*DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// sqlite allows a single writer; one pooled connection avoids
	// SQLITE_BUSY and keeps :memory: databases on one connection.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Execute the schema to create tables if they don't exist.
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &DB{conn: db}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// CreateUser inserts a new account and returns its ID. A duplicate
// email yields ErrDuplicate.
func (db *DB) CreateUser(email, passwordHash string) (int64, error) {
	res, err := db.conn.Exec(`
		INSERT INTO users (email, password_hash)
		VALUES (?, ?)
	`, email, passwordHash)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("user %s: %w", email, ErrDuplicate)
		}
		return 0, fmt.Errorf("failed to create user %s: %w", email, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for user %s: %w", email, err)
	}
	return id, nil
}

// FindUserByEmail retrieves a user by email, or ErrNotFound.
func (db *DB) FindUserByEmail(email string) (*domain.User, error) {
	var u domain.User
	row := db.conn.QueryRow(`
		SELECT id, email, password_hash
		FROM users WHERE email = ?
	`, email)

	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("user %s: %w", email, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find user by email %s: %w", email, err)
	}
	return &u, nil
}

// isUniqueViolation reports whether err is a sqlite UNIQUE constraint
// failure. The modernc driver exposes this only through the message.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
