// Package inventory owns the bridge's authoritative model of the warehouse:
// which controllers exist, which shelf each one is bound to, and the pick
// positions stored on each shelf.
//
// # Architecture
//
//	┌─────────┐   validate    ┌──────────┐   encode+send   ┌────────────┐
//	│  HTTP   │──────────────▶│ Manager  │────────────────▶│  exchange  │
//	│ handler │               │ (locked) │◀────────────────│   Engine   │
//	└─────────┘               └────┬─────┘   await ack     └────────────┘
//	                                │ commit
//	                                ▼
//	                           ┌─────────┐
//	                           │  Store  │  snapshot + backup
//	                           └─────────┘
//
// Every mutating operation follows the same four-phase shape: validate
// against the current snapshot, encode and send the controller command,
// await the acknowledgment, then commit and persist. A mutation that fails
// validation never reaches the wire; a mutation whose acknowledgment never
// arrives never reaches the snapshot. The one deliberately asymmetric
// failure is the committed-but-unpersisted case, surfaced as ErrCommitFailed
// and logged as a consistency anomaly.
//
// # Invariants
//
// The Manager enforces three structural rules on every mutation:
//
//   - A controller is bound to at most one shelf at a time.
//   - Position ids are unique within their shelf (0-255).
//   - Within one shelf, no LED index belongs to two positions. An update
//     compares against every position except the one being replaced.
//
// # Persistence
//
// The snapshot is saved wholesale after every committed mutation, main copy
// first and backup second, via the Store interface. Two implementations are
// provided: FileStore (atomic JSON file plus backup file) and SQLiteStore
// (two-slot document table, replaced in one transaction).
//
// Light commands (TurnOn, TurnOff, TurnOnAll, TurnOffAll, SetLEDs,
// UnsetLEDs) are transient: they validate and exchange but never touch the
// snapshot.
package inventory
