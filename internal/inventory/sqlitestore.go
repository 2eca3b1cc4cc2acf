package inventory

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLite store configuration constants.
const (
	sqliteDirPerms  = 0750
	sqliteFilePerms = 0600

	// sqliteMsPerSecond converts seconds to milliseconds for the pragma.
	sqliteMsPerSecond = 1000

	// sqliteConnectTimeout bounds the connectivity check at open.
	sqliteConnectTimeout = 5 * time.Second

	// sqliteOpTimeout bounds individual load/save operations.
	sqliteOpTimeout = 5 * time.Second
)

// snapshotSchema holds the whole inventory as JSON in two fixed rows, one
// current and one backup, replaced together inside a transaction. The
// snapshot is always saved wholesale, so a document table beats a
// normalised schema here.
const snapshotSchema = `
CREATE TABLE IF NOT EXISTS snapshot (
    slot     TEXT PRIMARY KEY,
    data     TEXT NOT NULL,
    saved_at TEXT NOT NULL
);`

const (
	snapshotSlotCurrent = "current"
	snapshotSlotBackup  = "backup"
)

// SQLiteStore persists the snapshot in a single-row SQLite table (plus a
// backup row), selected via storage.driver: sqlite.
//
// WAL mode allows concurrent readers during writes; the busy timeout
// prevents "database is locked" errors under contention.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens (and if necessary creates) the snapshot database.
//
// Parameters:
//   - path: Filesystem path to the SQLite file
//   - busyTimeout: Lock wait in seconds
//
// Returns:
//   - *SQLiteStore: Ready store with schema applied
//   - error: If the file cannot be opened or the schema applied
func NewSQLiteStore(path string, busyTimeout int) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite store: path is required")
	}

	if err := os.MkdirAll(filepath.Dir(path), sqliteDirPerms); err != nil {
		return nil, fmt.Errorf("sqlite store: creating directory: %w", err)
	}

	connStr := fmt.Sprintf(
		"file:%s?_busy_timeout=%d&_journal_mode=WAL&_synchronous=NORMAL",
		path,
		busyTimeout*sqliteMsPerSecond,
	)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("sqlite store: opening database: %w", err)
	}

	// SQLite only supports one writer; the Manager serialises anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), sqliteConnectTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite store: verifying connection: %w", err)
	}

	if _, err := db.ExecContext(ctx, snapshotSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite store: applying schema: %w", err)
	}

	// Owner read/write only. Ignore error - file might not exist until the
	// first write.
	_ = os.Chmod(path, sqliteFilePerms)

	return &SQLiteStore{db: db, path: path}, nil
}

// Load reads the current snapshot row. An empty table yields an empty
// snapshot (first run). If the current row is corrupt, the backup row is
// tried before giving up.
func (s *SQLiteStore) Load() (*Snapshot, error) {
	ctx, cancel := context.WithTimeout(context.Background(), sqliteOpTimeout)
	defer cancel()

	snap, err := s.loadSlot(ctx, snapshotSlotCurrent)
	if err == nil {
		return snap, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return NewSnapshot(), nil
	}

	backup, backupErr := s.loadSlot(ctx, snapshotSlotBackup)
	if backupErr != nil {
		return nil, fmt.Errorf("sqlite store: loading snapshot: %w", err)
	}
	return backup, nil
}

func (s *SQLiteStore) loadSlot(ctx context.Context, slot string) (*Snapshot, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		"SELECT data FROM snapshot WHERE slot = ?", slot).Scan(&data)
	if err != nil {
		return nil, err
	}

	snap := NewSnapshot()
	if err := json.Unmarshal([]byte(data), snap); err != nil {
		return nil, fmt.Errorf("parsing %s slot: %w", slot, err)
	}
	snap.normalise()
	return snap, nil
}

// Save replaces the current and backup rows together in one transaction.
func (s *SQLiteStore) Save(snap *Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("sqlite store: encoding snapshot: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), sqliteOpTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite store: starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // No-op if committed

	now := time.Now().UTC().Format(time.RFC3339)
	for _, slot := range []string{snapshotSlotCurrent, snapshotSlotBackup} {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO snapshot (slot, data, saved_at) VALUES (?, ?, ?)
			 ON CONFLICT(slot) DO UPDATE SET data = excluded.data, saved_at = excluded.saved_at`,
			slot, string(data), now,
		); err != nil {
			return fmt.Errorf("sqlite store: writing %s slot: %w", slot, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite store: committing snapshot: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("sqlite store: closing database: %w", err)
	}
	return nil
}

// Path returns the filesystem path to the database file.
func (s *SQLiteStore) Path() string {
	return s.path
}
