package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/preston-bernstein/flag-sync-service/internal/domain"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS flags (
	key     TEXT PRIMARY KEY,
	version INTEGER NOT NULL,
	data    TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS segments (
	key     TEXT PRIMARY KEY,
	version INTEGER NOT NULL,
	data    TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS meta (
	k TEXT PRIMARY KEY,
	v TEXT NOT NULL
);
`

const metaInitializedKey = "initialized"

// SQLiteStore persists snapshots to a SQLite database so a restart can
// serve the last synced data before the first fresh fetch lands. Reads
// are served from an in-memory copy; ReplaceAll writes through to disk
// in one transaction and only then swaps the copy, so the durable and
// in-memory views roll forward together.
type SQLiteStore struct {
	db    *sql.DB
	cache *MemoryStore
}

// OpenSQLiteStore creates or opens a SQLite-backed store at the given
// path and restores any previously persisted snapshot.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect sqlite store: %w", err)
	}

	// SQLite allows one writer; the data source is the only writer
	// anyway, so a single connection avoids SQLITE_BUSY entirely.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply sqlite pragma: %w", err)
		}
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}

	s := &SQLiteStore{db: db, cache: NewMemoryStore()}
	if err := s.restore(); err != nil {
		db.Close()
		return nil, fmt.Errorf("restore persisted snapshot: %w", err)
	}
	return s, nil
}

// ReplaceAll persists the snapshot transactionally, then swaps the
// in-memory copy. On a write failure the previous snapshot remains
// visible and the error is returned to the data source.
func (s *SQLiteStore) ReplaceAll(snapshot *domain.Snapshot) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin replace-all: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM flags"); err != nil {
		return fmt.Errorf("clear flags: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM segments"); err != nil {
		return fmt.Errorf("clear segments: %w", err)
	}

	for key, f := range snapshot.Flags {
		data, err := json.Marshal(f)
		if err != nil {
			return fmt.Errorf("marshal flag %q: %w", key, err)
		}
		if _, err := tx.Exec("INSERT INTO flags (key, version, data) VALUES (?, ?, ?)", key, f.Version, string(data)); err != nil {
			return fmt.Errorf("insert flag %q: %w", key, err)
		}
	}
	for key, seg := range snapshot.Segments {
		data, err := json.Marshal(seg)
		if err != nil {
			return fmt.Errorf("marshal segment %q: %w", key, err)
		}
		if _, err := tx.Exec("INSERT INTO segments (key, version, data) VALUES (?, ?, ?)", key, seg.Version, string(data)); err != nil {
			return fmt.Errorf("insert segment %q: %w", key, err)
		}
	}

	if _, err := tx.Exec("INSERT OR REPLACE INTO meta (k, v) VALUES (?, ?)", metaInitializedKey, "1"); err != nil {
		return fmt.Errorf("mark initialized: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace-all: %w", err)
	}

	return s.cache.ReplaceAll(snapshot)
}

// IsInitialized reports whether any snapshot was ever persisted,
// including by a previous process.
func (s *SQLiteStore) IsInitialized() bool {
	return s.cache.IsInitialized()
}

// Flag retrieves a flag by key.
func (s *SQLiteStore) Flag(key string) (domain.Flag, bool) {
	return s.cache.Flag(key)
}

// AllFlags returns a copy of the current flags.
func (s *SQLiteStore) AllFlags() map[string]domain.Flag {
	return s.cache.AllFlags()
}

// Segment retrieves a segment by key.
func (s *SQLiteStore) Segment(key string) (domain.Segment, bool) {
	return s.cache.Segment(key)
}

// AllSegments returns a copy of the current segments.
func (s *SQLiteStore) AllSegments() map[string]domain.Segment {
	return s.cache.AllSegments()
}

// Close releases the database connection.
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) restore() error {
	var marker string
	err := s.db.QueryRow("SELECT v FROM meta WHERE k = ?", metaInitializedKey).Scan(&marker)
	if err == sql.ErrNoRows {
		return nil // fresh database, stay uninitialized
	}
	if err != nil {
		return err
	}

	flags := make(map[string]domain.Flag)
	if err := s.loadRows("SELECT data FROM flags", func(data []byte) error {
		var f domain.Flag
		if err := json.Unmarshal(data, &f); err != nil {
			return err
		}
		flags[f.Key] = f
		return nil
	}); err != nil {
		return err
	}

	segments := make(map[string]domain.Segment)
	if err := s.loadRows("SELECT data FROM segments", func(data []byte) error {
		var seg domain.Segment
		if err := json.Unmarshal(data, &seg); err != nil {
			return err
		}
		segments[seg.Key] = seg
		return nil
	}); err != nil {
		return err
	}

	return s.cache.ReplaceAll(domain.NewSnapshot(flags, segments))
}

func (s *SQLiteStore) loadRows(query string, apply func(data []byte) error) error {
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return err
		}
		if err := apply(data); err != nil {
			return err
		}
	}
	return rows.Err()
}
