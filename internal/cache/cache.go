// Package cache provides SQLite-backed storage for signature snapshots.
// The cache is stored in .csig/cache.db and keeps named listings of extracted
// signatures so that later runs can be compared against them.
package cache

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Cache manages the .csig/cache.db SQLite database.
type Cache struct {
	db     *sql.DB
	dbPath string
}

// Open opens or creates the cache database in the specified .csig directory.
// It initializes the schema if the database is new.
func Open(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	dbPath := filepath.Join(dir, "cache.db")

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}

	// Enable WAL mode for better concurrent access
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	cache := &Cache{db: db, dbPath: dbPath}

	if err := cache.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return cache, nil
}

// Close closes the database connection.
func (c *Cache) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Clear removes every snapshot.
func (c *Cache) Clear() error {
	_, err := c.db.Exec("DELETE FROM signatures; DELETE FROM snapshots;")
	if err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	return nil
}

// Path returns the database file path.
func (c *Cache) Path() string {
	return c.dbPath
}

// Stats returns cache statistics.
type Stats struct {
	SnapshotCount  int64
	SignatureCount int64
}

// GetStats returns statistics about the cache contents.
func (c *Cache) GetStats() (*Stats, error) {
	var stats Stats

	err := c.db.QueryRow("SELECT COUNT(*) FROM snapshots").Scan(&stats.SnapshotCount)
	if err != nil {
		return nil, fmt.Errorf("count snapshots: %w", err)
	}

	err = c.db.QueryRow("SELECT COUNT(*) FROM signatures").Scan(&stats.SignatureCount)
	if err != nil {
		return nil, fmt.Errorf("count signatures: %w", err)
	}

	return &stats, nil
}
