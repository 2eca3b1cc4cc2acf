package inventory

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/shelfbridge/shelfbridge/internal/exchange"
	"github.com/shelfbridge/shelfbridge/internal/infrastructure/mqtt"
)

// Commander performs an acknowledgment-correlated exchange with a
// controller. *exchange.Engine satisfies this.
type Commander interface {
	SendAndAwait(ctx context.Context, device string, class exchange.Class, topic string, payload []byte, timeout time.Duration) error
	Send(topic string, payload []byte) error
}

// Logger interface for operational logging.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Timeouts carries the exchange deadlines the Manager applies.
type Timeouts struct {
	// Ack is the ordinary acknowledgment wait.
	Ack time.Duration

	// Reset is the extended wait for controller resets, which erase the
	// stored position table and take far longer.
	Reset time.Duration
}

// Manager owns the inventory snapshot: the controller registry, the
// shelves bound to controllers, and their positions. Every mutating
// operation follows the same four-phase shape: validate against the current
// snapshot, encode and send the controller command, await the
// acknowledgment, then commit and persist.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
//   - A single lock is held across validate → exchange → commit, so two
//     concurrent mutations cannot both pass validation against a stale
//     snapshot. Throughput is bounded by controller round-trips, which is
//     acceptable at warehouse scale; per-shelf locking was rejected as
//     needless complexity.
//   - Light commands validate under the lock, release it, then perform
//     their exchange, since they never touch the snapshot.
type Manager struct {
	mu   sync.Mutex
	snap *Snapshot

	store    Store
	cmd      Commander
	topics   mqtt.Topics
	timeouts Timeouts
	logger   Logger
}

// New creates a Manager and loads the persisted snapshot.
//
// All controllers are marked offline on startup: liveness cannot be known
// across a restart, so the registry waits for fresh registrations.
//
// Parameters:
//   - store: Snapshot persistence
//   - cmd: Exchange engine for controller commands
//   - topics: Topic builders with the configured prefix
//   - timeouts: Acknowledgment deadlines
//   - logger: Operational logging (required)
//
// Returns:
//   - *Manager: Ready manager with snapshot loaded
//   - error: If the snapshot cannot be loaded or re-persisted
func New(store Store, cmd Commander, topics mqtt.Topics, timeouts Timeouts, logger Logger) (*Manager, error) {
	snap, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("loading inventory: %w", err)
	}

	m := &Manager{
		snap:     snap,
		store:    store,
		cmd:      cmd,
		topics:   topics,
		timeouts: timeouts,
		logger:   logger,
	}

	if err := m.markAllOffline(); err != nil {
		return nil, err
	}

	return m, nil
}

// markAllOffline resets stale liveness from a prior run and persists.
func (m *Manager) markAllOffline() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	changed := false
	for _, dev := range m.snap.Devices {
		if dev.Online {
			dev.Online = false
			changed = true
		}
	}

	if !changed {
		return nil
	}
	if err := m.store.Save(m.snap); err != nil {
		return fmt.Errorf("persisting offline reset: %w", err)
	}
	return nil
}

// macPattern matches a six-group colon-separated MAC address.
var macPattern = regexp.MustCompile(`^([0-9A-Fa-f]{2}:){5}[0-9A-Fa-f]{2}$`)

// NormalizeAddress validates a controller MAC address and returns its
// canonical uppercase form.
func NormalizeAddress(address string) (string, error) {
	address = strings.TrimSpace(address)
	if !macPattern.MatchString(address) {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}
	return strings.ToUpper(address), nil
}

// =============================================================================
// Device Registry
// =============================================================================

// RegisterOrRefresh records a controller liveness announcement.
//
// An unknown address creates a new unassigned device; a known address is
// marked online. Either way the snapshot is persisted.
func (m *Manager) RegisterOrRefresh(address string) error {
	addr, err := NormalizeAddress(address)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	dev, known := m.snap.Devices[addr]
	if !known {
		dev = &Device{Address: addr, Assigned: false, Online: true}
		m.snap.Devices[addr] = dev
		m.logger.Info("new device registered", "device", addr)
	} else if !dev.Online {
		dev.Online = true
		m.logger.Info("device back online", "device", addr)
	} else {
		// Already online; periodic announcement, nothing to persist.
		return nil
	}

	if err := m.store.Save(m.snap); err != nil {
		return fmt.Errorf("persisting registration: %w", err)
	}
	return nil
}

// MarkOffline records a controller departure (LWT). Unknown addresses are a
// no-op: a departure for a device never registered carries no information.
func (m *Manager) MarkOffline(address string) error {
	addr, err := NormalizeAddress(address)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	dev, known := m.snap.Devices[addr]
	if !known || !dev.Online {
		return nil
	}

	dev.Online = false
	m.logger.Info("device offline", "device", addr)

	if err := m.store.Save(m.snap); err != nil {
		return fmt.Errorf("persisting offline mark: %w", err)
	}
	return nil
}

// DeviceExists reports whether the address is known to the registry.
func (m *Manager) DeviceExists(address string) bool {
	addr, err := NormalizeAddress(address)
	if err != nil {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.snap.Devices[addr]
	return ok
}

// GetDevice returns a copy of the device record.
func (m *Manager) GetDevice(address string) (Device, error) {
	addr, err := NormalizeAddress(address)
	if err != nil {
		return Device{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	dev, ok := m.snap.Devices[addr]
	if !ok {
		return Device{}, fmt.Errorf("%w: %s", ErrDeviceNotFound, addr)
	}
	return *dev, nil
}

// UnassignedAddresses returns the addresses of devices not yet bound to a
// shelf, for shelf-creation pickers.
func (m *Manager) UnassignedAddresses() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []string
	for addr, dev := range m.snap.Devices {
		if !dev.Assigned {
			out = append(out, addr)
		}
	}
	return out
}

// OnlineDeviceCount returns how many devices are currently online.
func (m *Manager) OnlineDeviceCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, dev := range m.snap.Devices {
		if dev.Online {
			n++
		}
	}
	return n
}

// persistCommitted saves the snapshot after a controller acknowledged the
// change. Failure here is the consistency anomaly: the controller believes
// the change happened but the database does not.
func (m *Manager) persistCommitted(operation string) error {
	if err := m.store.Save(m.snap); err != nil {
		m.logger.Error("consistency anomaly: device acknowledged but persist failed",
			"operation", operation,
			"error", err,
		)
		return fmt.Errorf("%w: %s: %w", ErrCommitFailed, operation, err)
	}
	return nil
}

// mapExchangeErr translates engine failures into the inventory taxonomy.
// Only a timeout becomes "unconfirmed" (physical state indeterminate);
// publish failures and cancellations pass through, since the command
// provably never reached the controller.
func mapExchangeErr(err error, device string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, exchange.ErrTimeout) {
		return fmt.Errorf("%w: %s: %w", ErrUnconfirmed, device, err)
	}
	return err
}
