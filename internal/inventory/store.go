package inventory

// Store persists the inventory snapshot.
//
// The snapshot is always replaced wholesale: Save writes the entire
// inventory (implementations also keep a backup copy), and Load returns the
// entire inventory. There are no partial writes.
//
// Implementations must be safe for use from a single goroutine at a time;
// the Manager serialises access under its own lock.
type Store interface {
	// Load reads the persisted snapshot. A missing database is not an
	// error: implementations return an empty snapshot on first run.
	Load() (*Snapshot, error)

	// Save replaces the persisted snapshot and its backup copy.
	Save(snap *Snapshot) error

	// Close releases any underlying resources.
	Close() error
}
