// Package store provides SQLite-based persistence for PolicyVault.
// It manages documents, version snapshots, acknowledgments, and categories.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Sentinel errors surfaced by store lookups and inserts.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)

// Store represents the SQLite database store
type Store struct {
	db *sql.DB
}

// New creates a new store connection
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Initialize creates the database schema
func (s *Store) Initialize() error {
	schema := `
	-- Numbering categories
	CREATE TABLE IF NOT EXISTS categories (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		range_start INTEGER NOT NULL,
		range_end INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Policy/procedure records (one row per logical document)
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		category_id TEXT NOT NULL,
		number INTEGER NOT NULL,
		title TEXT NOT NULL,
		description TEXT,
		sections JSON,
		status TEXT NOT NULL,
		version TEXT NOT NULL,
		owner_id TEXT,
		view_roles JSON,
		ack_roles JSON,
		requires_ack BOOLEAN DEFAULT FALSE,
		previous_version_id TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		created_by TEXT,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_by TEXT,
		approved_at DATETIME,
		approved_by TEXT,
		UNIQUE(category_id, number),
		FOREIGN KEY (category_id) REFERENCES categories(id)
	);

	-- Version ledger (append-only)
	CREATE TABLE IF NOT EXISTS snapshots (
		id TEXT PRIMARY KEY,
		document_id TEXT NOT NULL,
		version TEXT NOT NULL,
		note TEXT,
		changed_fields JSON,
		title TEXT NOT NULL,
		description TEXT,
		sections JSON,
		owner_id TEXT,
		status TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		created_by TEXT,
		FOREIGN KEY (document_id) REFERENCES documents(id)
	);

	-- Acknowledgments (append-only; duplicates possible, validity is computed)
	CREATE TABLE IF NOT EXISTS acknowledgments (
		id TEXT PRIMARY KEY,
		document_id TEXT NOT NULL,
		document_version TEXT NOT NULL,
		user_id TEXT NOT NULL,
		method TEXT NOT NULL,
		acknowledged_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		expires_at DATETIME,
		invalidated BOOLEAN DEFAULT FALSE,
		invalidated_at DATETIME,
		FOREIGN KEY (document_id) REFERENCES documents(id)
	);

	-- Config (seed markers, etc.)
	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT
	);

	-- Indexes
	CREATE INDEX IF NOT EXISTS idx_documents_category ON documents(category_id);
	CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(status);
	CREATE INDEX IF NOT EXISTS idx_snapshots_document ON snapshots(document_id);
	CREATE INDEX IF NOT EXISTS idx_acks_document ON acknowledgments(document_id, document_version);
	CREATE INDEX IF NOT EXISTS idx_acks_user ON acknowledgments(user_id);
	`

	_, err := s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// DB returns the underlying database connection for advanced queries
func (s *Store) DB() *sql.DB {
	return s.db
}

// queryer is the subset of database/sql shared by *sql.DB and *sql.Tx.
type queryer interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// Tx is a transactional view of the store. All entity accessors hang off Tx;
// Store exposes read-path wrappers that run outside a transaction.
type Tx struct {
	q queryer
}

// WithTx runs fn inside a single transaction. The transaction commits when
// fn returns nil and rolls back otherwise.
func (s *Store) WithTx(fn func(tx *Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(&Tx{q: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

// view returns a non-transactional Tx over the raw connection.
func (s *Store) view() *Tx {
	return &Tx{q: s.db}
}

// GetValue gets a value from the key-value store
func (s *Store) GetValue(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// SetValue sets a value in the key-value store
func (s *Store) SetValue(key, value string) error {
	_, err := s.db.Exec(
		"INSERT INTO kv (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = ?",
		key, value, value,
	)
	return err
}

// isUniqueViolation reports whether err is a SQLite unique-constraint failure.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// parseTimestamp parses a timestamp string from SQLite in various formats
func parseTimestamp(s string) time.Time {
	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02 15:04:05.999999999+07:00",
		"2006-01-02 15:04:05.999999-07:00",
		"2006-01-02 15:04:05.999999+07:00",
		"2006-01-02 15:04:05-07:00",
		"2006-01-02 15:04:05+07:00",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05Z",
	}
	for _, f := range formats {
		if t, err := time.Parse(f, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// timeValue formats a time for storage, mapping the zero time to NULL.
func timeValue(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// scanTime converts a nullable timestamp column back to a time.Time.
func scanTime(ns sql.NullString) time.Time {
	if !ns.Valid || ns.String == "" {
		return time.Time{}
	}
	return parseTimestamp(ns.String)
}
