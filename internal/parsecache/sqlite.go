package parsecache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"github.com/nacl-lang/workspace/internal/parser"
)

const schema = `
CREATE TABLE IF NOT EXISTS parse_results (
	filename    TEXT    NOT NULL PRIMARY KEY,
	modified    INTEGER NOT NULL,
	fingerprint TEXT    NOT NULL,
	result      BLOB    NOT NULL
);
`

// SQLite is a parse cache persisted in a SQLite database file, so unchanged
// files skip re-parsing across process restarts.
type SQLite struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens (and if needed initializes) a cache database at the given
// path. Parent directories are created.
func OpenSQLite(path string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening cache database %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing cache schema: %w", err)
	}
	return &SQLite{db: db, path: path}, nil
}

// Get implements parser.Cache.
func (c *SQLite) Get(ctx context.Context, key parser.Key) (*parser.Result, bool, error) {
	row := c.db.QueryRowContext(ctx,
		`SELECT result FROM parse_results WHERE filename = ? AND modified = ? AND fingerprint = ?`,
		key.Filename, key.Modified, fingerprintString(key.Fingerprint))

	var blob []byte
	switch err := row.Scan(&blob); err {
	case nil:
	case sql.ErrNoRows:
		return nil, false, nil
	default:
		return nil, false, fmt.Errorf("reading cached parse result for %s: %w", key.Filename, err)
	}

	var result parser.Result
	if err := json.Unmarshal(blob, &result); err != nil {
		return nil, false, fmt.Errorf("decoding cached parse result for %s: %w", key.Filename, err)
	}
	return &result, true, nil
}

// Put implements parser.Cache. One row per filename: stale fingerprints are
// replaced, never accumulated.
func (c *SQLite) Put(ctx context.Context, key parser.Key, result *parser.Result) error {
	blob, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encoding parse result for %s: %w", key.Filename, err)
	}
	_, err = c.db.ExecContext(ctx,
		`INSERT INTO parse_results (filename, modified, fingerprint, result) VALUES (?, ?, ?, ?)
		 ON CONFLICT(filename) DO UPDATE SET modified = excluded.modified,
		 fingerprint = excluded.fingerprint, result = excluded.result`,
		key.Filename, key.Modified, fingerprintString(key.Fingerprint), blob)
	if err != nil {
		return fmt.Errorf("storing parse result for %s: %w", key.Filename, err)
	}
	return nil
}

// Clear implements parser.Cache.
func (c *SQLite) Clear(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM parse_results`); err != nil {
		return fmt.Errorf("clearing parse cache: %w", err)
	}
	return nil
}

// Rename implements parser.Cache by moving the database file to live next to
// the renamed workspace.
func (c *SQLite) Rename(ctx context.Context, newName string) error {
	newPath := filepath.Join(filepath.Dir(c.path), newName)
	if err := c.db.Close(); err != nil {
		return fmt.Errorf("closing cache database before rename: %w", err)
	}
	if err := os.Rename(c.path, newPath); err != nil {
		return fmt.Errorf("renaming cache database: %w", err)
	}
	db, err := sql.Open("sqlite3", newPath)
	if err != nil {
		return fmt.Errorf("reopening cache database %s: %w", newPath, err)
	}
	c.db, c.path = db, newPath
	return nil
}

// Flush implements parser.Cache. Writes are committed eagerly; flushing only
// has to make sure the WAL, if any, hits the main database file.
func (c *SQLite) Flush(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, `PRAGMA wal_checkpoint(TRUNCATE)`); err != nil {
		return fmt.Errorf("checkpointing parse cache: %w", err)
	}
	return nil
}

// Clone implements parser.Cache. The clone is detached: it reads the current
// rows into an in-memory cache so mutations on either side stay independent.
func (c *SQLite) Clone() parser.Cache {
	clone := NewMemory()
	rows, err := c.db.Query(`SELECT filename, modified, fingerprint, result FROM parse_results`)
	if err != nil {
		return clone
	}
	defer rows.Close()

	for rows.Next() {
		var filename, fingerprint string
		var modified int64
		var blob []byte
		if err := rows.Scan(&filename, &modified, &fingerprint, &blob); err != nil {
			continue
		}
		var result parser.Result
		if err := json.Unmarshal(blob, &result); err != nil {
			continue
		}
		var fp uint64
		fmt.Sscanf(fingerprint, "%016x", &fp)
		key := parser.Key{Filename: filename, Modified: modified, Fingerprint: fp}
		_ = clone.Put(context.Background(), key, &result)
	}
	return clone
}

// Close releases the underlying database handle.
func (c *SQLite) Close() error {
	return c.db.Close()
}

// SQLite stores integers as signed 64-bit values; fingerprints are kept as
// fixed-width hex text to avoid overflow surprises.
func fingerprintString(fp uint64) string {
	return fmt.Sprintf("%016x", fp)
}
