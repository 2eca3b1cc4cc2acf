package inventory

import "errors"

// Sentinel errors for inventory operations.
//
// The taxonomy matters to callers: validation and not-found failures happen
// before any controller contact and leave no side effects; ErrUnconfirmed
// means the controller never acknowledged and its physical state is
// indeterminate; ErrCommitFailed means the controller acknowledged but the
// snapshot could not be persisted, so controller and database now disagree.
var (
	// ErrValidation is returned when a request violates an invariant
	// (range, exclusivity, duplicate id). Wrapped with detail.
	ErrValidation = errors.New("inventory: validation failed")

	// ErrDeviceNotFound is returned for an unknown controller address.
	ErrDeviceNotFound = errors.New("inventory: device not found")

	// ErrShelfNotFound is returned for an unknown shelf number.
	ErrShelfNotFound = errors.New("inventory: shelf not found")

	// ErrPositionNotFound is returned for an unknown position id.
	ErrPositionNotFound = errors.New("inventory: position not found")

	// ErrUnconfirmed is returned when the controller did not acknowledge
	// within the timeout. The snapshot is untouched but the physical state
	// is indeterminate; the caller decides whether to retry or reconcile.
	ErrUnconfirmed = errors.New("inventory: command unconfirmed by device")

	// ErrCommitFailed is returned when the controller acknowledged but the
	// snapshot could not be persisted. Logged as a consistency anomaly.
	ErrCommitFailed = errors.New("inventory: acknowledged but persist failed")

	// ErrInvalidAddress is returned for a malformed controller MAC address.
	ErrInvalidAddress = errors.New("inventory: invalid device address")
)
