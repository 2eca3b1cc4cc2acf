package wire

import (
	"fmt"
	"strconv"
	"strings"
)

// Color is an RGB triple as sent to a controller.
type Color struct {
	R byte
	G byte
	B byte
}

// Bytes returns the colour in wire order (R, G, B).
func (c Color) Bytes() []byte {
	return []byte{c.R, c.G, c.B}
}

// String formats the colour as "#RRGGBB" (uppercase hex).
func (c Color) String() string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

// ParseColor parses a "#RRGGBB" colour string, case-insensitive.
//
// Parameters:
//   - s: Colour string, exactly 7 characters starting with '#'
//
// Returns:
//   - Color: The parsed RGB triple
//   - error: ErrInvalidColor if the string is malformed
func ParseColor(s string) (Color, error) {
	if len(s) != 7 || !strings.HasPrefix(s, "#") {
		return Color{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}

	v, err := strconv.ParseUint(s[1:], 16, 24)
	if err != nil {
		return Color{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}

	return Color{
		R: byte(v >> 16),
		G: byte(v >> 8),
		B: byte(v),
	}, nil
}
