// Package wire encodes and decodes the binary payloads exchanged with
// shelf controllers.
//
// Controllers speak a compact byte protocol: every outbound command payload
// is prefixed with a single correlation id byte (prepended by the exchange
// engine, not by this package), followed by the operation-specific bytes
// built here. All addresses and LED indices fit in one byte (0-255).
//
// Payload layouts (after the correlation id byte):
//
//	set LEDs on      LED bytes..., then R, G, B
//	set LEDs off     LED bytes...
//	all-on           R, G, B
//	all-off          (empty)
//	create/update    position byte, then LED bytes...
//	delete position  position byte
//	reset            (empty)
//	dump request     (empty)
//	dump item        position byte, then LED bytes... (controller → bridge)
//
// Colours arrive from HTTP callers as "#RRGGBB" strings and are parsed with
// ParseColor; malformed input is a validation error, never a panic.
package wire
