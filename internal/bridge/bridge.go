package bridge

import (
	"fmt"
	"strings"
	"sync"

	"github.com/shelfbridge/shelfbridge/internal/exchange"
	"github.com/shelfbridge/shelfbridge/internal/infrastructure/mqtt"
	"github.com/shelfbridge/shelfbridge/internal/wire"
)

// Bridge wires the inbound MQTT surface to the rest of the system. It
// subscribes to the controller topics and routes each message class:
//   - acknowledgments to the exchange engine
//   - registrations and departures to the inventory registry
//   - dump items to the inventory reconciler
//
// Outbound traffic does not pass through the bridge; the exchange engine
// publishes directly.
//
// Thread Safety: All methods are safe for concurrent use. Handlers run on
// the MQTT client's goroutines.
type Bridge struct {
	subscriber Subscriber
	router     AckRouter
	registry   Registry
	topics     mqtt.Topics
	qos        byte

	done     chan struct{}
	stopOnce sync.Once

	logger   Logger
	loggerMu sync.RWMutex
}

// Subscriber is the subset of the MQTT client the bridge consumes.
// *mqtt.Client satisfies this.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// AckRouter delivers controller acknowledgments to their waiters.
// *exchange.Engine satisfies this.
type AckRouter interface {
	HandleReply(class exchange.Class, device string, payload []byte)
}

// Registry receives controller lifecycle events and dump items.
// *inventory.Manager satisfies this.
type Registry interface {
	RegisterOrRefresh(address string) error
	MarkOffline(address string) error
	ApplyDump(deviceAddress string, item wire.DumpItem) error
}

// Logger interface for optional logging support.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Options holds configuration for creating a bridge.
type Options struct {
	// Subscriber is the MQTT client to subscribe through.
	Subscriber Subscriber

	// Router receives controller acknowledgments.
	Router AckRouter

	// Registry receives registrations, departures and dump items.
	Registry Registry

	// Topics builds the subscription patterns with the configured prefix.
	Topics mqtt.Topics

	// QoS is the subscription QoS level.
	QoS byte

	// Logger is optional structured logging.
	Logger Logger
}

// New creates a bridge. Call Start() to begin operation.
func New(opts Options) (*Bridge, error) {
	if opts.Subscriber == nil {
		return nil, fmt.Errorf("subscriber is required")
	}
	if opts.Router == nil {
		return nil, fmt.Errorf("ack router is required")
	}
	if opts.Registry == nil {
		return nil, fmt.Errorf("registry is required")
	}

	return &Bridge{
		subscriber: opts.Subscriber,
		router:     opts.Router,
		registry:   opts.Registry,
		topics:     opts.Topics,
		qos:        opts.QoS,
		done:       make(chan struct{}),
		logger:     opts.Logger,
	}, nil
}

// Start subscribes to all inbound controller topics.
//
// The acknowledgment subscriptions come first: the exchange engine may
// already have waiters outstanding, and a registration burst must not delay
// ack delivery.
func (b *Bridge) Start() error {
	subscriptions := []struct {
		pattern string
		handler mqtt.MessageHandler
	}{
		{b.topics.AllLightAcks(), b.handleLightAck},
		{b.topics.AllConfigAcks(), b.handleConfigAck},
		{b.topics.Register(), b.handleRegister},
		{b.topics.AllOffline(), b.handleOffline},
		{b.topics.AllConfigPuts(), b.handleDumpItem},
	}

	for _, sub := range subscriptions {
		if err := b.subscriber.Subscribe(sub.pattern, b.qos, sub.handler); err != nil {
			return fmt.Errorf("subscribing to %s: %w", sub.pattern, err)
		}
	}

	b.logInfo("bridge started", "subscriptions", len(subscriptions))
	return nil
}

// Stop marks the bridge stopped. Messages already in flight may still reach
// the handlers; each handler checks done and drops late deliveries.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		close(b.done)
		b.logInfo("bridge stopped")
	})
}

func (b *Bridge) stopped() bool {
	select {
	case <-b.done:
		return true
	default:
		return false
	}
}

// handleLightAck routes a light-class acknowledgment to its waiter.
func (b *Bridge) handleLightAck(topic string, payload []byte) error {
	return b.handleAck(exchange.ClassLight, topic, payload)
}

// handleConfigAck routes a config-class acknowledgment to its waiter.
func (b *Bridge) handleConfigAck(topic string, payload []byte) error {
	return b.handleAck(exchange.ClassConfig, topic, payload)
}

func (b *Bridge) handleAck(class exchange.Class, topic string, payload []byte) error {
	if b.stopped() {
		return nil
	}

	device, err := b.topics.DeviceFromTopic(topic)
	if err != nil {
		return fmt.Errorf("%s ack dropped: %w", class, err)
	}

	b.router.HandleReply(class, device, payload)
	return nil
}

// handleRegister processes a controller liveness announcement. The payload
// is the controller's MAC address in plain text.
func (b *Bridge) handleRegister(_ string, payload []byte) error {
	if b.stopped() {
		return nil
	}

	address := strings.TrimSpace(string(payload))
	if err := b.registry.RegisterOrRefresh(address); err != nil {
		return fmt.Errorf("registration rejected: %w", err)
	}
	return nil
}

// handleOffline processes a controller departure (broker-delivered LWT).
func (b *Bridge) handleOffline(topic string, _ []byte) error {
	if b.stopped() {
		return nil
	}

	device, err := b.topics.DeviceFromTopic(topic)
	if err != nil {
		return fmt.Errorf("departure dropped: %w", err)
	}

	if err := b.registry.MarkOffline(device); err != nil {
		return fmt.Errorf("departure for %s rejected: %w", device, err)
	}
	return nil
}

// handleDumpItem processes one unsolicited stored-position report from a
// controller answering a dump request.
func (b *Bridge) handleDumpItem(topic string, payload []byte) error {
	if b.stopped() {
		return nil
	}

	device, err := b.topics.DeviceFromTopic(topic)
	if err != nil {
		return fmt.Errorf("dump item dropped: %w", err)
	}

	item, err := wire.ParseDumpItem(payload)
	if err != nil {
		return fmt.Errorf("undecodable dump item from %s: %w", device, err)
	}

	if err := b.registry.ApplyDump(device, item); err != nil {
		return fmt.Errorf("dump item from %s not applied: %w", device, err)
	}
	return nil
}

// SetLogger sets the logger for the bridge.
func (b *Bridge) SetLogger(logger Logger) {
	b.loggerMu.Lock()
	b.logger = logger
	b.loggerMu.Unlock()
}

func (b *Bridge) logInfo(msg string, keysAndValues ...any) {
	b.loggerMu.RLock()
	logger := b.logger
	b.loggerMu.RUnlock()

	if logger != nil {
		logger.Info(msg, keysAndValues...)
	}
}
