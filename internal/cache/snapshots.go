package cache

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pyapi/csig/internal/extract"
)

// ErrSnapshotNotFound is returned when a named snapshot does not exist.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// Snapshot describes a stored signature listing.
type Snapshot struct {
	Name           string    `yaml:"name" json:"name"`
	IncludePath    string    `yaml:"include_path,omitempty" json:"include_path,omitempty"`
	SignatureCount int       `yaml:"signature_count" json:"signature_count"`
	CreatedAt      time.Time `yaml:"created_at" json:"created_at"`
}

// SaveSnapshot stores sigs under name, replacing any snapshot with the same
// name. The write happens in a single transaction.
func (c *Cache) SaveSnapshot(name, includePath string, sigs []extract.Signature) error {
	if name == "" {
		return fmt.Errorf("save snapshot: empty name")
	}

	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("save snapshot %s: %w", name, err)
	}
	defer tx.Rollback()

	if err := deleteSnapshotTx(tx, name); err != nil {
		return fmt.Errorf("save snapshot %s: %w", name, err)
	}

	_, err = tx.Exec(`
		INSERT INTO snapshots (name, include_path, signature_count, created_at)
		VALUES (?, ?, ?, ?)`,
		name, includePath, len(sigs), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("save snapshot %s: %w", name, err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO signatures (snapshot, position, name, return_type, params, line)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("save snapshot %s: %w", name, err)
	}
	defer stmt.Close()

	for i, sig := range sigs {
		_, err := stmt.Exec(name, i, sig.Name, sig.ReturnType, strings.Join(sig.Params, "|"), sig.String())
		if err != nil {
			return fmt.Errorf("save snapshot %s: signature %s: %w", name, sig.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save snapshot %s: commit: %w", name, err)
	}
	return nil
}

// LoadSnapshot returns the signatures of a snapshot in the order they were
// saved. Returns ErrSnapshotNotFound if there is no such snapshot.
func (c *Cache) LoadSnapshot(name string) ([]extract.Signature, error) {
	if _, err := c.GetSnapshot(name); err != nil {
		return nil, err
	}

	rows, err := c.db.Query(`
		SELECT name, return_type, params FROM signatures
		WHERE snapshot = ? ORDER BY position`, name)
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", name, err)
	}
	defer rows.Close()

	var sigs []extract.Signature
	for rows.Next() {
		var sig extract.Signature
		var params string
		if err := rows.Scan(&sig.Name, &sig.ReturnType, &params); err != nil {
			return nil, fmt.Errorf("load snapshot %s: %w", name, err)
		}
		if params != "" {
			sig.Params = strings.Split(params, "|")
		}
		sigs = append(sigs, sig)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", name, err)
	}
	return sigs, nil
}

// GetSnapshot returns the metadata of a snapshot.
func (c *Cache) GetSnapshot(name string) (*Snapshot, error) {
	row := c.db.QueryRow(`
		SELECT name, include_path, signature_count, created_at
		FROM snapshots WHERE name = ?`, name)

	snap, err := scanSnapshot(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, name)
		}
		return nil, fmt.Errorf("get snapshot %s: %w", name, err)
	}
	return snap, nil
}

// ListSnapshots returns all snapshots sorted by name.
func (c *Cache) ListSnapshots() ([]Snapshot, error) {
	rows, err := c.db.Query(`
		SELECT name, include_path, signature_count, created_at
		FROM snapshots ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("list snapshots: %w", err)
		}
		snaps = append(snaps, *snap)
	}
	return snaps, rows.Err()
}

// DeleteSnapshot removes a snapshot and its signatures.
// Returns ErrSnapshotNotFound if there is no such snapshot.
func (c *Cache) DeleteSnapshot(name string) error {
	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("delete snapshot %s: %w", name, err)
	}
	defer tx.Rollback()

	res, err := tx.Exec("DELETE FROM snapshots WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("delete snapshot %s: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrSnapshotNotFound, name)
	}
	if _, err := tx.Exec("DELETE FROM signatures WHERE snapshot = ?", name); err != nil {
		return fmt.Errorf("delete snapshot %s: %w", name, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("delete snapshot %s: commit: %w", name, err)
	}
	return nil
}

func deleteSnapshotTx(tx *sql.Tx, name string) error {
	if _, err := tx.Exec("DELETE FROM signatures WHERE snapshot = ?", name); err != nil {
		return err
	}
	_, err := tx.Exec("DELETE FROM snapshots WHERE name = ?", name)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row rowScanner) (*Snapshot, error) {
	var snap Snapshot
	var createdAt string
	if err := row.Scan(&snap.Name, &snap.IncludePath, &snap.SignatureCount, &createdAt); err != nil {
		return nil, err
	}
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		snap.CreatedAt = t
	}
	return &snap, nil
}
