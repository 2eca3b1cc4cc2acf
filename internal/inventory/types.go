package inventory

// Device is a shelf controller known to the bridge.
//
// Devices are created on first registration and never deleted, only updated.
// The Assigned flag is mutated exclusively by shelf operations so the
// one-shelf-per-controller invariant is enforced in a single place.
type Device struct {
	// Address is the controller's MAC address in canonical form
	// "AA:BB:CC:DD:EE:FF" (uppercase).
	Address string `json:"address"`

	// Assigned is true while a shelf is bound to this controller.
	Assigned bool `json:"assigned"`

	// Online is the last known liveness, driven by registration and
	// departure messages. Reset at startup because liveness cannot be
	// known across a restart.
	Online bool `json:"online"`
}

// Position is an addressable pick location within a shelf: an id byte plus
// the LED indices that light up for it.
type Position struct {
	// ID is unique within the owning shelf (0-255).
	ID int `json:"id"`

	// LEDs are the strip indices belonging to this position (0-255 each,
	// non-empty). Within one shelf no LED belongs to two positions.
	LEDs []int `json:"leds"`
}

// Shelf is a logical rack bound 1:1 to a controller.
type Shelf struct {
	// Number identifies the shelf; unique across the inventory.
	Number int `json:"number"`

	// DeviceAddress is the bound controller. Always set; a shelf cannot
	// exist without its controller.
	DeviceAddress string `json:"device_address"`

	// Positions are the stored pick locations, in creation order.
	Positions []Position `json:"positions"`
}

// Snapshot is the whole persisted inventory. It is saved wholesale (plus a
// backup copy) after every committed mutation, never patched incrementally.
type Snapshot struct {
	Devices map[string]*Device `json:"devices"`
	Shelves map[int]*Shelf     `json:"shelves"`
}

// NewSnapshot returns an empty, usable snapshot.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Devices: make(map[string]*Device),
		Shelves: make(map[int]*Shelf),
	}
}

// normalise backfills nil maps after JSON decoding.
func (s *Snapshot) normalise() {
	if s.Devices == nil {
		s.Devices = make(map[string]*Device)
	}
	if s.Shelves == nil {
		s.Shelves = make(map[int]*Shelf)
	}
}

// clone returns a deep copy of a position, detaching the LED slice.
func (p Position) clone() Position {
	leds := make([]int, len(p.LEDs))
	copy(leds, p.LEDs)
	return Position{ID: p.ID, LEDs: leds}
}

// clone returns a deep copy of a shelf.
func (sh *Shelf) clone() *Shelf {
	positions := make([]Position, 0, len(sh.Positions))
	for _, p := range sh.Positions {
		positions = append(positions, p.clone())
	}
	return &Shelf{
		Number:        sh.Number,
		DeviceAddress: sh.DeviceAddress,
		Positions:     positions,
	}
}

// position returns the position with the given id, or nil.
func (sh *Shelf) position(id int) *Position {
	for i := range sh.Positions {
		if sh.Positions[i].ID == id {
			return &sh.Positions[i]
		}
	}
	return nil
}

// ledBytes converts validated LED indices to wire bytes.
// Callers must have range-checked the values first.
func ledBytes(leds []int) []byte {
	out := make([]byte, len(leds))
	for i, led := range leds {
		out[i] = byte(led)
	}
	return out
}
