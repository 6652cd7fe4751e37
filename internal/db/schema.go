package db

// Schema for cached raw CDX responses, keyed by the full request URL
const createCDXCacheTable = `
CREATE TABLE IF NOT EXISTS cdx_cache (
    request_url TEXT PRIMARY KEY,
    body TEXT NOT NULL,
    fetched_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_cdx_cache_fetched ON cdx_cache(fetched_at);
`

const upsertCDXCache = `
INSERT INTO cdx_cache (request_url, body, fetched_at)
VALUES (?, ?, ?)
ON CONFLICT(request_url) DO UPDATE SET
    body = excluded.body,
    fetched_at = excluded.fetched_at
`

const selectCDXCache = `
SELECT body, fetched_at FROM cdx_cache WHERE request_url = ?
`

const deleteExpiredCDXCache = `
DELETE FROM cdx_cache WHERE fetched_at < ?
`

const selectCDXCacheCount = `
SELECT COUNT(*) FROM cdx_cache
`
