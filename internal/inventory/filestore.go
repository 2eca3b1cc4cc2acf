package inventory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// File permission modes for the inventory files and their directory.
const (
	fileStoreDirPerms  = 0750
	fileStoreFilePerms = 0600
)

// FileStore persists the snapshot as a JSON file plus an identically
// written backup copy alongside it ("inventory.json" / "inventory_backup.json").
//
// Writes go through a temp file and rename, so a crash mid-write leaves the
// previous snapshot intact. The backup is written second; if the main file
// is ever corrupted by outside interference, the backup holds the last
// committed state.
type FileStore struct {
	path       string
	backupPath string
}

// NewFileStore creates a file store writing to the given path.
// The containing directory is created if missing.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("file store: path is required")
	}

	if err := os.MkdirAll(filepath.Dir(path), fileStoreDirPerms); err != nil {
		return nil, fmt.Errorf("file store: creating directory: %w", err)
	}

	return &FileStore{
		path:       path,
		backupPath: backupPath(path),
	}, nil
}

// backupPath derives the backup file name: "inventory.json" becomes
// "inventory_backup.json".
func backupPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "_backup" + ext
}

// Load reads the snapshot from disk. A missing file yields an empty
// snapshot (first run). If the main file is unreadable or corrupt, the
// backup copy is tried before giving up.
func (fs *FileStore) Load() (*Snapshot, error) {
	snap, err := loadSnapshotFile(fs.path)
	if err == nil {
		return snap, nil
	}
	if os.IsNotExist(err) {
		return NewSnapshot(), nil
	}

	// Main file damaged; fall back to the backup copy.
	backup, backupErr := loadSnapshotFile(fs.backupPath)
	if backupErr != nil {
		return nil, fmt.Errorf("file store: loading snapshot: %w", err)
	}
	return backup, nil
}

func loadSnapshotFile(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	snap := NewSnapshot()
	if err := json.Unmarshal(data, snap); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	snap.normalise()
	return snap, nil
}

// Save replaces both the main file and the backup copy with the snapshot.
func (fs *FileStore) Save(snap *Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("file store: encoding snapshot: %w", err)
	}

	if err := writeFileAtomic(fs.path, data); err != nil {
		return fmt.Errorf("file store: writing snapshot: %w", err)
	}
	if err := writeFileAtomic(fs.backupPath, data); err != nil {
		return fmt.Errorf("file store: writing backup: %w", err)
	}
	return nil
}

// writeFileAtomic writes via a temp file in the same directory and renames
// it into place.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, fileStoreFilePerms); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// Close is a no-op; the file store holds no open handles between calls.
func (fs *FileStore) Close() error {
	return nil
}
