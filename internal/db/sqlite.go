package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// DefaultCacheTTL is how long a cached CDX response stays fresh
const DefaultCacheTTL = 6 * time.Hour

// DB wraps the SQLite database connection
type DB struct {
	conn *sql.DB
	ttl  time.Duration
	now  func() time.Time
}

// New creates a new database connection and initializes the schema.
// ttl <= 0 uses DefaultCacheTTL.
func New(dbPath string, ttl time.Duration) (*DB, error) {
	// Ensure the directory exists
	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Serialize writers; concurrent discoveries share this handle
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec(createCDXCacheTable); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create cdx cache schema: %w", err)
	}

	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}

	return &DB{conn: conn, ttl: ttl, now: time.Now}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks the connection is usable
func (db *DB) Ping() error {
	return db.conn.Ping()
}

const timestampFormat = "2006-01-02T15:04:05Z"

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampFormat)
}

// parseTimestamp parses SQLite timestamp formats
func parseTimestamp(ts string) (time.Time, error) {
	formats := []string{
		"2006-01-02 15:04:05",
		timestampFormat,
		time.RFC3339,
	}
	for _, format := range formats {
		if t, err := time.Parse(format, ts); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse timestamp: %s", ts)
}
