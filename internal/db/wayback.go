package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// GetCDX returns a cached CDX body if one exists and is still fresh
func (db *DB) GetCDX(ctx context.Context, requestURL string) (string, bool, error) {
	var body, fetchedAt string
	err := db.conn.QueryRowContext(ctx, selectCDXCache, requestURL).Scan(&body, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to query cdx cache: %w", err)
	}

	fetched, err := parseTimestamp(fetchedAt)
	if err != nil {
		return "", false, nil
	}
	if db.now().Sub(fetched) > db.ttl {
		return "", false, nil
	}

	return body, true, nil
}

// PutCDX stores or refreshes a CDX body
func (db *DB) PutCDX(ctx context.Context, requestURL, body string) error {
	_, err := db.conn.ExecContext(ctx, upsertCDXCache, requestURL, body, formatTimestamp(db.now()))
	if err != nil {
		return fmt.Errorf("failed to write cdx cache: %w", err)
	}
	return nil
}

// PurgeExpiredCDX deletes entries older than the TTL and returns how many were removed
func (db *DB) PurgeExpiredCDX(ctx context.Context) (int64, error) {
	cutoff := formatTimestamp(db.now().Add(-db.ttl))
	result, err := db.conn.ExecContext(ctx, deleteExpiredCDXCache, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge cdx cache: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}

// CDXCacheCount returns the number of cached responses
func (db *DB) CDXCacheCount(ctx context.Context) (int, error) {
	var count int
	if err := db.conn.QueryRowContext(ctx, selectCDXCacheCount).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count cdx cache: %w", err)
	}
	return count, nil
}
