package githubclient

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // sqlite driver
)

const fetchCacheTable = "trender_fetch_cache"

// FetchCache is a local SQLite cache for file-contents fetches, keyed by
// repository path and fetch day. Repeated runs on the same day skip the
// contents API entirely.
type FetchCache struct {
	db *sql.DB
}

// OpenFetchCache opens (and initializes) the cache database at path.
func OpenFetchCache(path string) (*FetchCache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open fetch cache at %q: %w", path, err)
	}
	// Single connection avoids "database is locked" under concurrency.
	db.SetMaxOpenConns(1)

	createQuery := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			fetch_key TEXT NOT NULL,
			fetch_day TEXT NOT NULL,
			content TEXT NOT NULL,
			PRIMARY KEY (fetch_key, fetch_day)
		);
	`, fetchCacheTable)
	if _, err := db.Exec(createQuery); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create fetch cache table: %w", err)
	}

	return &FetchCache{db: db}, nil
}

// Get returns the cached content for key on the given day.
func (fc *FetchCache) Get(key, day string) (string, bool) {
	query := fmt.Sprintf(`SELECT content FROM %s WHERE fetch_key = ? AND fetch_day = ?`, fetchCacheTable)
	var content string
	if err := fc.db.QueryRow(query, key, day).Scan(&content); err != nil {
		return "", false
	}
	return content, true
}

// Put stores content for key on the given day, replacing any prior entry.
func (fc *FetchCache) Put(key, day, content string) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (fetch_key, fetch_day, content) VALUES (?, ?, ?)
		ON CONFLICT (fetch_key, fetch_day) DO UPDATE SET content = excluded.content
	`, fetchCacheTable)
	if _, err := fc.db.Exec(query, key, day, content); err != nil {
		return fmt.Errorf("failed to write fetch cache entry: %w", err)
	}
	return nil
}

// Prune removes entries older than the given day.
func (fc *FetchCache) Prune(beforeDay string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE fetch_day < ?`, fetchCacheTable)
	if _, err := fc.db.Exec(query, beforeDay); err != nil {
		return fmt.Errorf("failed to prune fetch cache: %w", err)
	}
	return nil
}

// Close closes the underlying connection.
func (fc *FetchCache) Close() error {
	return fc.db.Close()
}
