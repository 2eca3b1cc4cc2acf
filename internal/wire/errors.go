package wire

import "errors"

// Sentinel errors for payload encoding and decoding.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrInvalidColor is returned when a colour string is not of the form
	// "#RRGGBB" with valid hex digits.
	ErrInvalidColor = errors.New("wire: invalid colour, want #RRGGBB")

	// ErrEmptyDumpItem is returned when a controller dump item carries no
	// position byte.
	ErrEmptyDumpItem = errors.New("wire: empty dump item")

	// ErrNoLEDs is returned when a dump item has a position but no LEDs.
	ErrNoLEDs = errors.New("wire: dump item has no LEDs")
)
