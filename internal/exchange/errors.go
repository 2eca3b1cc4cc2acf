package exchange

import "errors"

// Sentinel errors for acknowledgment exchanges.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrTimeout is returned when no acknowledgment arrives within the
	// deadline. The controller may still have applied the command; the
	// physical state is indeterminate and the caller must reconcile.
	ErrTimeout = errors.New("exchange: acknowledgment timeout")

	// ErrIDSpaceExhausted is returned when 256 exchanges are already
	// outstanding for one controller and class. The single-byte id space
	// cannot admit another; the caller should back off rather than queue.
	ErrIDSpaceExhausted = errors.New("exchange: correlation id space exhausted")

	// ErrUnknownClass is returned for a class outside the closed set.
	ErrUnknownClass = errors.New("exchange: unknown acknowledgment class")

	// ErrPublishFailed is returned when the transport rejects the outbound
	// command; no wait was performed.
	ErrPublishFailed = errors.New("exchange: publish failed")
)
