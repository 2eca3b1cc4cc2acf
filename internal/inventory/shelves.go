package inventory

import (
	"context"
	"fmt"
	"sort"

	"github.com/shelfbridge/shelfbridge/internal/exchange"
	"github.com/shelfbridge/shelfbridge/internal/wire"
)

// maxByteValue bounds position ids and LED indices, which travel as single
// bytes on the wire.
const maxByteValue = 255

// =============================================================================
// Shelf Operations
// =============================================================================

// CreateShelf binds a new shelf to an unassigned controller.
//
// This is the one mutation with no controller exchange: binding is a purely
// logical act, the controller's stored positions are untouched.
func (m *Manager) CreateShelf(shelfNumber int, deviceAddress string) error {
	addr, err := NormalizeAddress(deviceAddress)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	dev, ok := m.snap.Devices[addr]
	if !ok {
		return fmt.Errorf("%w: %s", ErrDeviceNotFound, addr)
	}
	if dev.Assigned {
		return fmt.Errorf("%w: device %s already bound to a shelf", ErrValidation, addr)
	}
	if _, taken := m.snap.Shelves[shelfNumber]; taken {
		return fmt.Errorf("%w: shelf %d already exists", ErrValidation, shelfNumber)
	}

	m.snap.Shelves[shelfNumber] = &Shelf{
		Number:        shelfNumber,
		DeviceAddress: addr,
		Positions:     []Position{},
	}
	dev.Assigned = true

	if err := m.persistCommitted("create shelf"); err != nil {
		// Roll the in-memory change back so memory and disk agree.
		delete(m.snap.Shelves, shelfNumber)
		dev.Assigned = false
		return err
	}

	m.logger.Info("shelf created", "shelf", shelfNumber, "device", addr)
	return nil
}

// DeleteShelf unbinds a shelf and erases the controller's stored positions.
//
// The controller reset is acknowledged before the shelf is removed from the
// snapshot, so a timed-out reset leaves the shelf intact. Resets take far
// longer than ordinary commands; the extended timeout applies.
func (m *Manager) DeleteShelf(ctx context.Context, shelfNumber int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	shelf, ok := m.snap.Shelves[shelfNumber]
	if !ok {
		return fmt.Errorf("%w: shelf %d", ErrShelfNotFound, shelfNumber)
	}
	addr := shelf.DeviceAddress

	err := m.cmd.SendAndAwait(ctx, addr, exchange.ClassConfig,
		m.topics.ConfigReset(addr), wire.Reset(), m.timeouts.Reset)
	if err != nil {
		return mapExchangeErr(err, addr)
	}

	delete(m.snap.Shelves, shelfNumber)
	if dev, known := m.snap.Devices[addr]; known {
		dev.Assigned = false
	}

	if err := m.persistCommitted("delete shelf"); err != nil {
		return err
	}

	m.logger.Info("shelf deleted", "shelf", shelfNumber, "device", addr)
	return nil
}

// Shelves returns copies of all shelves, ordered by number.
func (m *Manager) Shelves() []Shelf {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Shelf, 0, len(m.snap.Shelves))
	for _, shelf := range m.snap.Shelves {
		out = append(out, *shelf.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

// GetShelf returns a copy of one shelf.
func (m *Manager) GetShelf(shelfNumber int) (Shelf, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	shelf, ok := m.snap.Shelves[shelfNumber]
	if !ok {
		return Shelf{}, fmt.Errorf("%w: shelf %d", ErrShelfNotFound, shelfNumber)
	}
	return *shelf.clone(), nil
}

// Positions returns copies of a shelf's positions.
func (m *Manager) Positions(shelfNumber int) ([]Position, error) {
	shelf, err := m.GetShelf(shelfNumber)
	if err != nil {
		return nil, err
	}
	return shelf.Positions, nil
}

// PositionExists reports whether a shelf holds the given position id.
func (m *Manager) PositionExists(shelfNumber, positionID int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	shelf, ok := m.snap.Shelves[shelfNumber]
	if !ok {
		return false
	}
	return shelf.position(positionID) != nil
}

// =============================================================================
// Position Operations
// =============================================================================

// validatePositionID checks the single-byte range.
func validatePositionID(id int) error {
	if id < 0 || id > maxByteValue {
		return fmt.Errorf("%w: position id %d out of range 0-%d", ErrValidation, id, maxByteValue)
	}
	return nil
}

// validateLEDs checks the LED list is non-empty, in range, and free of
// internal duplicates.
func validateLEDs(leds []int) error {
	if len(leds) == 0 {
		return fmt.Errorf("%w: position needs at least one LED", ErrValidation)
	}
	seen := make(map[int]bool, len(leds))
	for _, led := range leds {
		if led < 0 || led > maxByteValue {
			return fmt.Errorf("%w: LED %d out of range 0-%d", ErrValidation, led, maxByteValue)
		}
		if seen[led] {
			return fmt.Errorf("%w: LED %d listed twice", ErrValidation, led)
		}
		seen[led] = true
	}
	return nil
}

// checkLEDOverlap enforces per-shelf LED exclusivity: none of the candidate
// LEDs may belong to another position on the shelf. excludeID names the
// position being replaced during an update (use -1 otherwise) so a position
// may keep its own LEDs.
func checkLEDOverlap(shelf *Shelf, leds []int, excludeID int) error {
	for i := range shelf.Positions {
		pos := &shelf.Positions[i]
		if pos.ID == excludeID {
			continue
		}
		for _, owned := range pos.LEDs {
			for _, candidate := range leds {
				if owned == candidate {
					return fmt.Errorf("%w: LED %d already used by position %d",
						ErrValidation, candidate, pos.ID)
				}
			}
		}
	}
	return nil
}

// CreatePosition stores a new position on the controller, then in the
// snapshot.
func (m *Manager) CreatePosition(ctx context.Context, shelfNumber, positionID int, leds []int) error {
	if err := validatePositionID(positionID); err != nil {
		return err
	}
	if err := validateLEDs(leds); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	shelf, ok := m.snap.Shelves[shelfNumber]
	if !ok {
		return fmt.Errorf("%w: shelf %d", ErrShelfNotFound, shelfNumber)
	}
	if shelf.position(positionID) != nil {
		return fmt.Errorf("%w: position %d already exists on shelf %d",
			ErrValidation, positionID, shelfNumber)
	}
	if err := checkLEDOverlap(shelf, leds, -1); err != nil {
		return err
	}

	addr := shelf.DeviceAddress
	payload := wire.Position(byte(positionID), ledBytes(leds))
	err := m.cmd.SendAndAwait(ctx, addr, exchange.ClassConfig,
		m.topics.ConfigCreatePosition(addr), payload, m.timeouts.Ack)
	if err != nil {
		return mapExchangeErr(err, addr)
	}

	stored := Position{ID: positionID, LEDs: leds}
	shelf.Positions = append(shelf.Positions, stored.clone())

	if err := m.persistCommitted("create position"); err != nil {
		return err
	}

	m.logger.Info("position created",
		"shelf", shelfNumber, "position", positionID, "leds", len(leds))
	return nil
}

// UpdatePosition replaces a position's LEDs on the controller, then in the
// snapshot. The exclusivity check compares against every position except
// the one being replaced.
func (m *Manager) UpdatePosition(ctx context.Context, shelfNumber, positionID int, leds []int) error {
	if err := validatePositionID(positionID); err != nil {
		return err
	}
	if err := validateLEDs(leds); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	shelf, ok := m.snap.Shelves[shelfNumber]
	if !ok {
		return fmt.Errorf("%w: shelf %d", ErrShelfNotFound, shelfNumber)
	}
	pos := shelf.position(positionID)
	if pos == nil {
		return fmt.Errorf("%w: position %d on shelf %d",
			ErrPositionNotFound, positionID, shelfNumber)
	}
	if err := checkLEDOverlap(shelf, leds, positionID); err != nil {
		return err
	}

	addr := shelf.DeviceAddress
	payload := wire.Position(byte(positionID), ledBytes(leds))
	err := m.cmd.SendAndAwait(ctx, addr, exchange.ClassConfig,
		m.topics.ConfigUpdatePosition(addr), payload, m.timeouts.Ack)
	if err != nil {
		return mapExchangeErr(err, addr)
	}

	replacement := Position{ID: positionID, LEDs: leds}
	*pos = replacement.clone()

	if err := m.persistCommitted("update position"); err != nil {
		return err
	}

	m.logger.Info("position updated",
		"shelf", shelfNumber, "position", positionID, "leds", len(leds))
	return nil
}

// DeletePosition removes a position from the controller, then from the
// snapshot. Removal is by id, never by structural comparison.
func (m *Manager) DeletePosition(ctx context.Context, shelfNumber, positionID int) error {
	if err := validatePositionID(positionID); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	shelf, ok := m.snap.Shelves[shelfNumber]
	if !ok {
		return fmt.Errorf("%w: shelf %d", ErrShelfNotFound, shelfNumber)
	}
	if shelf.position(positionID) == nil {
		return fmt.Errorf("%w: position %d on shelf %d",
			ErrPositionNotFound, positionID, shelfNumber)
	}

	addr := shelf.DeviceAddress
	err := m.cmd.SendAndAwait(ctx, addr, exchange.ClassConfig,
		m.topics.ConfigDeletePosition(addr), wire.DeletePosition(byte(positionID)), m.timeouts.Ack)
	if err != nil {
		return mapExchangeErr(err, addr)
	}

	kept := shelf.Positions[:0]
	for _, p := range shelf.Positions {
		if p.ID != positionID {
			kept = append(kept, p)
		}
	}
	shelf.Positions = kept

	if err := m.persistCommitted("delete position"); err != nil {
		return err
	}

	m.logger.Info("position deleted", "shelf", shelfNumber, "position", positionID)
	return nil
}

// =============================================================================
// Light Operations (transient; never touch the snapshot)
// =============================================================================

// lightTarget resolves a position's controller address and LED bytes under
// the lock, so the exchange itself can run without holding it.
func (m *Manager) lightTarget(shelfNumber, positionID int) (string, []byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	shelf, ok := m.snap.Shelves[shelfNumber]
	if !ok {
		return "", nil, fmt.Errorf("%w: shelf %d", ErrShelfNotFound, shelfNumber)
	}
	pos := shelf.position(positionID)
	if pos == nil {
		return "", nil, fmt.Errorf("%w: position %d on shelf %d",
			ErrPositionNotFound, positionID, shelfNumber)
	}
	return shelf.DeviceAddress, ledBytes(pos.LEDs), nil
}

// shelfDevice resolves a shelf's controller address under the lock.
func (m *Manager) shelfDevice(shelfNumber int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	shelf, ok := m.snap.Shelves[shelfNumber]
	if !ok {
		return "", fmt.Errorf("%w: shelf %d", ErrShelfNotFound, shelfNumber)
	}
	return shelf.DeviceAddress, nil
}

// TurnOn lights a position in the given colour.
func (m *Manager) TurnOn(ctx context.Context, shelfNumber, positionID int, color string) error {
	c, err := wire.ParseColor(color)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}

	addr, leds, err := m.lightTarget(shelfNumber, positionID)
	if err != nil {
		return err
	}

	err = m.cmd.SendAndAwait(ctx, addr, exchange.ClassLight,
		m.topics.LightSet(addr), wire.SetLEDs(leds, c), m.timeouts.Ack)
	return mapExchangeErr(err, addr)
}

// TurnOff extinguishes a position.
func (m *Manager) TurnOff(ctx context.Context, shelfNumber, positionID int) error {
	addr, leds, err := m.lightTarget(shelfNumber, positionID)
	if err != nil {
		return err
	}

	err = m.cmd.SendAndAwait(ctx, addr, exchange.ClassLight,
		m.topics.LightUnset(addr), wire.UnsetLEDs(leds), m.timeouts.Ack)
	return mapExchangeErr(err, addr)
}

// TurnOnAll lights every LED on a shelf's controller.
func (m *Manager) TurnOnAll(ctx context.Context, shelfNumber int, color string) error {
	c, err := wire.ParseColor(color)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}

	addr, err := m.shelfDevice(shelfNumber)
	if err != nil {
		return err
	}

	err = m.cmd.SendAndAwait(ctx, addr, exchange.ClassLight,
		m.topics.LightAllOn(addr), wire.AllOn(c), m.timeouts.Ack)
	return mapExchangeErr(err, addr)
}

// TurnOffAll extinguishes every LED on a shelf's controller.
func (m *Manager) TurnOffAll(ctx context.Context, shelfNumber int) error {
	addr, err := m.shelfDevice(shelfNumber)
	if err != nil {
		return err
	}

	err = m.cmd.SendAndAwait(ctx, addr, exchange.ClassLight,
		m.topics.LightAllOff(addr), wire.AllOff(), m.timeouts.Ack)
	return mapExchangeErr(err, addr)
}

// SetLEDs lights raw LED indices on a controller, bypassing positions.
// Maintenance surface: the controller need not be bound to a shelf.
func (m *Manager) SetLEDs(ctx context.Context, deviceAddress string, leds []int, color string) error {
	c, err := wire.ParseColor(color)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if err := validateLEDs(leds); err != nil {
		return err
	}

	addr, err := NormalizeAddress(deviceAddress)
	if err != nil {
		return err
	}
	if !m.DeviceExists(addr) {
		return fmt.Errorf("%w: %s", ErrDeviceNotFound, addr)
	}

	err = m.cmd.SendAndAwait(ctx, addr, exchange.ClassLight,
		m.topics.LightSet(addr), wire.SetLEDs(ledBytes(leds), c), m.timeouts.Ack)
	return mapExchangeErr(err, addr)
}

// UnsetLEDs extinguishes raw LED indices on a controller.
func (m *Manager) UnsetLEDs(ctx context.Context, deviceAddress string, leds []int) error {
	if err := validateLEDs(leds); err != nil {
		return err
	}

	addr, err := NormalizeAddress(deviceAddress)
	if err != nil {
		return err
	}
	if !m.DeviceExists(addr) {
		return fmt.Errorf("%w: %s", ErrDeviceNotFound, addr)
	}

	err = m.cmd.SendAndAwait(ctx, addr, exchange.ClassLight,
		m.topics.LightUnset(addr), wire.UnsetLEDs(ledBytes(leds)), m.timeouts.Ack)
	return mapExchangeErr(err, addr)
}

// =============================================================================
// Controller Reconciliation
// =============================================================================

// ResetDevice erases a controller's stored positions without touching the
// snapshot. Used to recover a controller whose table has drifted; follow
// with PushToDevice to restore the shelf's positions.
func (m *Manager) ResetDevice(ctx context.Context, deviceAddress string) error {
	addr, err := NormalizeAddress(deviceAddress)
	if err != nil {
		return err
	}
	if !m.DeviceExists(addr) {
		return fmt.Errorf("%w: %s", ErrDeviceNotFound, addr)
	}

	err = m.cmd.SendAndAwait(ctx, addr, exchange.ClassConfig,
		m.topics.ConfigReset(addr), wire.Reset(), m.timeouts.Reset)
	return mapExchangeErr(err, addr)
}

// PullFromDevice replaces a shelf's positions with the controller's stored
// table.
//
// The shelf's positions are cleared and persisted, then a dump request is
// published. The controller answers with unsolicited dump items, applied
// one by one via ApplyDump; the stream carries no completion marker, so
// callers poll the shelf until it stops growing.
func (m *Manager) PullFromDevice(shelfNumber int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	shelf, ok := m.snap.Shelves[shelfNumber]
	if !ok {
		return fmt.Errorf("%w: shelf %d", ErrShelfNotFound, shelfNumber)
	}

	shelf.Positions = []Position{}
	if err := m.persistCommitted("pull from device"); err != nil {
		return err
	}

	addr := shelf.DeviceAddress
	if err := m.cmd.Send(m.topics.ConfigGet(addr), wire.DumpRequest()); err != nil {
		return fmt.Errorf("requesting dump from %s: %w", addr, err)
	}

	m.logger.Info("dump requested", "shelf", shelfNumber, "device", addr)
	return nil
}

// ApplyDump records one dump item against the shelf bound to the reporting
// controller. Items use create semantics; a duplicate or conflicting item
// is skipped and logged rather than failing the stream.
func (m *Manager) ApplyDump(deviceAddress string, item wire.DumpItem) error {
	addr, err := NormalizeAddress(deviceAddress)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var shelf *Shelf
	for _, sh := range m.snap.Shelves {
		if sh.DeviceAddress == addr {
			shelf = sh
			break
		}
	}
	if shelf == nil {
		return fmt.Errorf("%w: no shelf bound to %s", ErrShelfNotFound, addr)
	}

	positionID := int(item.Position)
	leds := make([]int, len(item.LEDs))
	for i, led := range item.LEDs {
		leds[i] = int(led)
	}

	if shelf.position(positionID) != nil {
		m.logger.Warn("dump item skipped: duplicate position",
			"shelf", shelf.Number, "position", positionID, "device", addr)
		return nil
	}
	if err := validateLEDs(leds); err != nil {
		m.logger.Warn("dump item skipped: invalid LEDs",
			"shelf", shelf.Number, "position", positionID, "error", err)
		return nil
	}
	if err := checkLEDOverlap(shelf, leds, -1); err != nil {
		m.logger.Warn("dump item skipped: LED conflict",
			"shelf", shelf.Number, "position", positionID, "error", err)
		return nil
	}

	shelf.Positions = append(shelf.Positions, Position{ID: positionID, LEDs: leds})
	return m.persistCommitted("apply dump item")
}

// PushToDevice writes every stored position of a shelf down to its
// controller, one acknowledged update per position.
//
// Returns the ids of positions whose update went unconfirmed; an empty
// slice means the controller now mirrors the snapshot.
func (m *Manager) PushToDevice(ctx context.Context, shelfNumber int) ([]int, error) {
	shelf, err := m.GetShelf(shelfNumber)
	if err != nil {
		return nil, err
	}

	// Exchanges run without the lock: pushing is read-only and a large
	// shelf would otherwise stall every other operation for seconds.
	var failed []int
	for _, pos := range shelf.Positions {
		payload := wire.Position(byte(pos.ID), ledBytes(pos.LEDs))
		err := m.cmd.SendAndAwait(ctx, shelf.DeviceAddress, exchange.ClassConfig,
			m.topics.ConfigUpdatePosition(shelf.DeviceAddress), payload, m.timeouts.Ack)
		if err != nil {
			m.logger.Warn("position push unconfirmed",
				"shelf", shelfNumber, "position", pos.ID, "error", err)
			failed = append(failed, pos.ID)
		}
	}

	return failed, nil
}
