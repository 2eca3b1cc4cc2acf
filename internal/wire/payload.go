package wire

// Payload builders for outbound controller commands.
//
// Callers pass pre-validated LED and position bytes; range checking against
// the inventory happens upstream, so the builders are infallible.

// SetLEDs builds the payload lighting the given LEDs in the given colour.
func SetLEDs(leds []byte, color Color) []byte {
	payload := make([]byte, 0, len(leds)+3)
	payload = append(payload, leds...)
	payload = append(payload, color.R, color.G, color.B)
	return payload
}

// UnsetLEDs builds the payload extinguishing the given LEDs.
func UnsetLEDs(leds []byte) []byte {
	payload := make([]byte, len(leds))
	copy(payload, leds)
	return payload
}

// AllOn builds the payload lighting every LED on a controller.
func AllOn(color Color) []byte {
	return []byte{color.R, color.G, color.B}
}

// AllOff builds the payload extinguishing every LED. The command carries no
// operand bytes; only the correlation id travels on the wire.
func AllOff() []byte {
	return nil
}

// Position builds the payload storing or replacing a position on the
// controller: position byte followed by its LED bytes. Used for both create
// and update; the topic distinguishes the two.
func Position(position byte, leds []byte) []byte {
	payload := make([]byte, 0, len(leds)+1)
	payload = append(payload, position)
	payload = append(payload, leds...)
	return payload
}

// DeletePosition builds the payload removing a stored position.
func DeletePosition(position byte) []byte {
	return []byte{position}
}

// Reset builds the payload erasing the controller's stored positions.
func Reset() []byte {
	return nil
}

// DumpRequest builds the payload asking a controller to publish its stored
// positions as dump items.
func DumpRequest() []byte {
	return nil
}

// DumpItem is one stored position as reported by a controller.
type DumpItem struct {
	Position byte
	LEDs     []byte
}

// ParseDumpItem decodes an unsolicited dump item: position byte followed by
// at least one LED byte. Dump items are not ack-correlated, so there is no
// correlation id to strip.
func ParseDumpItem(payload []byte) (DumpItem, error) {
	if len(payload) == 0 {
		return DumpItem{}, ErrEmptyDumpItem
	}
	if len(payload) < 2 {
		return DumpItem{}, ErrNoLEDs
	}

	leds := make([]byte, len(payload)-1)
	copy(leds, payload[1:])

	return DumpItem{
		Position: payload[0],
		LEDs:     leds,
	}, nil
}
