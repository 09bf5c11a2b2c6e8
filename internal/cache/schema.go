package cache

// schemaSQL defines the SQLite schema for the cache database.
// Tables:
//   - snapshots: one row per named listing
//   - signatures: the signatures of a snapshot, in listing order
const schemaSQL = `
CREATE TABLE IF NOT EXISTS snapshots (
    name TEXT PRIMARY KEY,
    include_path TEXT NOT NULL DEFAULT '',
    signature_count INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS signatures (
    snapshot TEXT NOT NULL,
    position INTEGER NOT NULL,
    name TEXT NOT NULL,
    return_type TEXT NOT NULL,
    params TEXT NOT NULL,
    line TEXT NOT NULL,
    PRIMARY KEY (snapshot, position)
);

CREATE INDEX IF NOT EXISTS idx_signatures_name ON signatures(snapshot, name);
`

// initSchema creates the database tables and indexes if they don't exist.
func (c *Cache) initSchema() error {
	_, err := c.db.Exec(schemaSQL)
	return err
}
