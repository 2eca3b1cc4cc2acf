package exchange

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// Class partitions the acknowledgment namespace so unrelated concurrent
// operations on the same controller cannot cross-talk.
type Class string

// The closed set of acknowledgment classes.
const (
	// ClassLight correlates transient LED commands (set, unset, allOn, allOff).
	ClassLight Class = "light"

	// ClassConfig correlates mutations of the controller's stored position
	// table (create, update, delete, reset).
	ClassConfig Class = "config"
)

// idSpaceSize is the number of correlation ids available per controller and
// class. Ids are a single byte on the wire.
const idSpaceSize = 256

// Outcome describes how an exchange ended, for telemetry.
type Outcome string

// Exchange outcomes reported to observers.
const (
	OutcomeAcked   Outcome = "acked"
	OutcomeTimeout Outcome = "timeout"
	OutcomeError   Outcome = "error"
)

// Publisher delivers an outbound payload to a topic.
// *mqtt.Client satisfies this.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Logger interface for optional logging support.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Warn(msg string, args ...any)
	Debug(msg string, args ...any)
}

// Observer receives a notification for every completed exchange.
// Implementations must not block; they are called on the waiting goroutine.
type Observer interface {
	ExchangeCompleted(device string, class Class, outcome Outcome, duration time.Duration)
}

// waiterSet is the per-class table of outstanding exchanges.
//
// Each outstanding exchange owns a one-shot buffered channel. HandleReply
// removes the waiter and signals the channel under the lock, so a reply is
// delivered exactly once and a late reply finds no waiter.
type waiterSet struct {
	mu sync.Mutex

	// waiters maps controller address → correlation id → one-shot signal.
	waiters map[string]map[byte]chan struct{}
}

func newWaiterSet() *waiterSet {
	return &waiterSet{
		waiters: make(map[string]map[byte]chan struct{}),
	}
}

// Engine provides synchronous-looking acknowledgment exchanges over the
// asynchronous transport.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
//   - The two classes use independent locks and proceed fully in parallel.
type Engine struct {
	publisher Publisher
	qos       byte

	classes map[Class]*waiterSet

	logger   Logger
	loggerMu sync.RWMutex

	observers   []Observer
	observersMu sync.RWMutex
}

// New creates an Engine publishing through the given transport at the given
// QoS level.
func New(publisher Publisher, qos byte) *Engine {
	return &Engine{
		publisher: publisher,
		qos:       qos,
		classes: map[Class]*waiterSet{
			ClassLight:  newWaiterSet(),
			ClassConfig: newWaiterSet(),
		},
	}
}

// SetLogger sets a logger for late-reply and lifecycle logging.
// If not set, unmatched replies are silently dropped.
func (e *Engine) SetLogger(logger Logger) {
	e.loggerMu.Lock()
	e.logger = logger
	e.loggerMu.Unlock()
}

func (e *Engine) getLogger() Logger {
	e.loggerMu.RLock()
	defer e.loggerMu.RUnlock()
	return e.logger
}

// AddObserver registers an observer for completed exchanges.
// Observers must be registered before the engine is in use.
func (e *Engine) AddObserver(obs Observer) {
	e.observersMu.Lock()
	e.observers = append(e.observers, obs)
	e.observersMu.Unlock()
}

func (e *Engine) notify(device string, class Class, outcome Outcome, duration time.Duration) {
	e.observersMu.RLock()
	defer e.observersMu.RUnlock()
	for _, obs := range e.observers {
		obs.ExchangeCompleted(device, class, outcome, duration)
	}
}

// SendAndAwait publishes a command and blocks until the controller
// acknowledges it or the timeout elapses.
//
// The payload is prefixed with a freshly drawn correlation id byte before
// publishing. The waiter for that id is registered before the publish, so
// the acknowledgment cannot race past its waiter.
//
// Parameters:
//   - ctx: Cancels this caller's wait only; other exchanges are unaffected
//   - device: Controller address the acknowledgment will come from
//   - class: Acknowledgment class the controller replies on
//   - topic: Topic to publish the command to
//   - payload: Command bytes (without the correlation id)
//   - timeout: Maximum wait for the acknowledgment
//
// Returns:
//   - error: nil once acknowledged; ErrTimeout if the deadline passed
//     (physical state indeterminate); ErrIDSpaceExhausted if 256 exchanges
//     are already outstanding; ErrPublishFailed if the transport rejected
//     the command; ctx.Err() wrapped if the caller cancelled
func (e *Engine) SendAndAwait(ctx context.Context, device string, class Class, topic string, payload []byte, timeout time.Duration) error {
	ws, ok := e.classes[class]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownClass, class)
	}

	start := time.Now()

	id, ack, err := ws.register(device)
	if err != nil {
		e.notify(device, class, OutcomeError, time.Since(start))
		return err
	}

	framed := make([]byte, 0, len(payload)+1)
	framed = append(framed, id)
	framed = append(framed, payload...)

	if err := e.publisher.Publish(topic, framed, e.qos, false); err != nil {
		ws.remove(device, id)
		e.notify(device, class, OutcomeError, time.Since(start))
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ack:
		e.notify(device, class, OutcomeAcked, time.Since(start))
		return nil

	case <-timer.C:
		if !ws.remove(device, id) {
			// Reply arrived between the timer firing and the removal;
			// the signal is already in the channel.
			<-ack
			e.notify(device, class, OutcomeAcked, time.Since(start))
			return nil
		}
		e.notify(device, class, OutcomeTimeout, time.Since(start))
		return fmt.Errorf("%w: no %s ack from %s after %v", ErrTimeout, class, device, timeout)

	case <-ctx.Done():
		if !ws.remove(device, id) {
			<-ack
			e.notify(device, class, OutcomeAcked, time.Since(start))
			return nil
		}
		e.notify(device, class, OutcomeError, time.Since(start))
		return fmt.Errorf("exchange: wait cancelled: %w", ctx.Err())
	}
}

// Send publishes a command without awaiting an acknowledgment.
//
// Used for the dump request, which controllers answer with a stream of
// unsolicited dump items rather than an ack. The frame still carries a
// correlation id byte (every controller command does), but nothing waits
// on it.
func (e *Engine) Send(topic string, payload []byte) error {
	framed := make([]byte, 0, len(payload)+1)
	framed = append(framed, byte(rand.Intn(idSpaceSize)))
	framed = append(framed, payload...)

	if err := e.publisher.Publish(topic, framed, e.qos, false); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return nil
}

// HandleReply delivers an inbound acknowledgment to its waiter.
//
// The transport binding calls this with the controller address extracted
// from the ack topic. The correlation id is the first payload byte; any
// further payload bytes are ignored. A reply with no registered waiter is a
// defined no-op (late after timeout, or spurious) and is logged at debug.
func (e *Engine) HandleReply(class Class, device string, payload []byte) {
	ws, ok := e.classes[class]
	if !ok {
		if logger := e.getLogger(); logger != nil {
			logger.Warn("ack for unknown class dropped", "class", string(class), "device", device)
		}
		return
	}

	if len(payload) == 0 {
		if logger := e.getLogger(); logger != nil {
			logger.Warn("empty ack payload dropped", "class", string(class), "device", device)
		}
		return
	}

	id := payload[0]
	if !ws.resolve(device, id) {
		if logger := e.getLogger(); logger != nil {
			logger.Debug("unmatched ack dropped",
				"class", string(class),
				"device", device,
				"id", int(id),
			)
		}
	}
}

// Outstanding returns the number of exchanges currently awaiting an
// acknowledgment in the given class. Useful for monitoring and tests.
func (e *Engine) Outstanding(class Class) int {
	ws, ok := e.classes[class]
	if !ok {
		return 0
	}

	ws.mu.Lock()
	defer ws.mu.Unlock()

	n := 0
	for _, ids := range ws.waiters {
		n += len(ids)
	}
	return n
}

// register draws a unique correlation id for the device and installs a
// one-shot waiter for it. Fails fast when the id space is exhausted.
func (ws *waiterSet) register(device string) (byte, chan struct{}, error) {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	ids := ws.waiters[device]
	if ids == nil {
		ids = make(map[byte]chan struct{})
		ws.waiters[device] = ids
	}

	if len(ids) >= idSpaceSize {
		return 0, nil, fmt.Errorf("%w: %d outstanding for %s", ErrIDSpaceExhausted, len(ids), device)
	}

	var id byte
	for {
		id = byte(rand.Intn(idSpaceSize))
		if _, taken := ids[id]; !taken {
			break
		}
	}

	ack := make(chan struct{}, 1)
	ids[id] = ack
	return id, ack, nil
}

// resolve removes the waiter for (device, id) and signals it.
// Returns false if no such waiter exists.
func (ws *waiterSet) resolve(device string, id byte) bool {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	ids := ws.waiters[device]
	ack, ok := ids[id]
	if !ok {
		return false
	}

	delete(ids, id)
	if len(ids) == 0 {
		delete(ws.waiters, device)
	}

	ack <- struct{}{}
	return true
}

// remove abandons the waiter for (device, id) without signalling it.
// Returns false if the waiter was already resolved by a reply.
func (ws *waiterSet) remove(device string, id byte) bool {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	ids := ws.waiters[device]
	if _, ok := ids[id]; !ok {
		return false
	}

	delete(ids, id)
	if len(ids) == 0 {
		delete(ws.waiters, device)
	}
	return true
}
