package bridge

import (
	"strings"
	"sync"
	"testing"

	"github.com/shelfbridge/shelfbridge/internal/exchange"
	"github.com/shelfbridge/shelfbridge/internal/infrastructure/mqtt"
	"github.com/shelfbridge/shelfbridge/internal/wire"
)

// fakeSubscriber records subscriptions and lets tests inject messages.
type fakeSubscriber struct {
	mu       sync.Mutex
	handlers map[string]mqtt.MessageHandler
	err      error
}

func newFakeSubscriber() *fakeSubscriber {
	return &fakeSubscriber{handlers: make(map[string]mqtt.MessageHandler)}
}

func (f *fakeSubscriber) Subscribe(topic string, _ byte, handler mqtt.MessageHandler) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	f.handlers[topic] = handler
	f.mu.Unlock()
	return nil
}

// deliver finds the wildcard pattern matching the topic and invokes its
// handler, mimicking broker dispatch.
func (f *fakeSubscriber) deliver(t *testing.T, topic string, payload []byte) error {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()

	for pattern, handler := range f.handlers {
		if topicMatches(pattern, topic) {
			return handler(topic, payload)
		}
	}
	t.Fatalf("no subscription matches %q", topic)
	return nil
}

func topicMatches(pattern, topic string) bool {
	pp := strings.Split(pattern, "/")
	tp := strings.Split(topic, "/")
	if len(pp) != len(tp) {
		return false
	}
	for i := range pp {
		if pp[i] != "+" && pp[i] != tp[i] {
			return false
		}
	}
	return true
}

// fakeRouter records acknowledgment deliveries.
type fakeRouter struct {
	mu      sync.Mutex
	class   exchange.Class
	device  string
	payload []byte
	calls   int
}

func (f *fakeRouter) HandleReply(class exchange.Class, device string, payload []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.class = class
	f.device = device
	f.payload = payload
	f.calls++
}

// fakeRegistry records lifecycle events.
type fakeRegistry struct {
	mu         sync.Mutex
	registered []string
	offline    []string
	dumps      []wire.DumpItem
	dumpDevice string
	err        error
}

func (f *fakeRegistry) RegisterOrRefresh(address string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.registered = append(f.registered, address)
	return nil
}

func (f *fakeRegistry) MarkOffline(address string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.offline = append(f.offline, address)
	return nil
}

func (f *fakeRegistry) ApplyDump(deviceAddress string, item wire.DumpItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.dumpDevice = deviceAddress
	f.dumps = append(f.dumps, item)
	return nil
}

func newTestBridge(t *testing.T) (*Bridge, *fakeSubscriber, *fakeRouter, *fakeRegistry) {
	t.Helper()
	sub := newFakeSubscriber()
	router := &fakeRouter{}
	registry := &fakeRegistry{}

	b, err := New(Options{
		Subscriber: sub,
		Router:     router,
		Registry:   registry,
		Topics:     mqtt.Topics{},
		QoS:        1,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := b.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	return b, sub, router, registry
}

func TestNew_RequiresDependencies(t *testing.T) {
	sub := newFakeSubscriber()
	router := &fakeRouter{}
	registry := &fakeRegistry{}

	tests := []struct {
		name string
		opts Options
	}{
		{"missing subscriber", Options{Router: router, Registry: registry}},
		{"missing router", Options{Subscriber: sub, Registry: registry}},
		{"missing registry", Options{Subscriber: sub, Router: router}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.opts); err == nil {
				t.Error("New() succeeded, want error")
			}
		})
	}
}

func TestStart_SubscribesToAllInboundTopics(t *testing.T) {
	_, sub, _, _ := newTestBridge(t)

	want := []string{
		"pbl/+/light/ack",
		"pbl/+/config/ack",
		"pbl/register",
		"pbl/+/config/offline",
		"pbl/+/config/put",
	}
	for _, pattern := range want {
		if _, ok := sub.handlers[pattern]; !ok {
			t.Errorf("no subscription for %q", pattern)
		}
	}
	if len(sub.handlers) != len(want) {
		t.Errorf("subscriptions = %d, want %d", len(sub.handlers), len(want))
	}
}

func TestLightAck_RoutedToEngine(t *testing.T) {
	_, sub, router, _ := newTestBridge(t)

	err := sub.deliver(t, "pbl/AA:BB:CC:DD:EE:01/light/ack", []byte{0x2A})
	if err != nil {
		t.Fatalf("deliver error = %v", err)
	}

	if router.class != exchange.ClassLight {
		t.Errorf("class = %q, want light", router.class)
	}
	if router.device != "AA:BB:CC:DD:EE:01" {
		t.Errorf("device = %q", router.device)
	}
	if len(router.payload) != 1 || router.payload[0] != 0x2A {
		t.Errorf("payload = %v", router.payload)
	}
}

func TestConfigAck_RoutedToEngine(t *testing.T) {
	_, sub, router, _ := newTestBridge(t)

	if err := sub.deliver(t, "pbl/AA:BB:CC:DD:EE:02/config/ack", []byte{0x07}); err != nil {
		t.Fatalf("deliver error = %v", err)
	}
	if router.class != exchange.ClassConfig {
		t.Errorf("class = %q, want config", router.class)
	}
}

func TestRegister_ForwardsPayloadAddress(t *testing.T) {
	_, sub, _, registry := newTestBridge(t)

	err := sub.deliver(t, "pbl/register", []byte("aa:bb:cc:dd:ee:01\n"))
	if err != nil {
		t.Fatalf("deliver error = %v", err)
	}

	if len(registry.registered) != 1 || registry.registered[0] != "aa:bb:cc:dd:ee:01" {
		t.Errorf("registered = %v", registry.registered)
	}
}

func TestRegister_RejectionReturnedToClient(t *testing.T) {
	_, sub, _, registry := newTestBridge(t)
	registry.err = wire.ErrEmptyDumpItem // any sentinel works here

	if err := sub.deliver(t, "pbl/register", []byte("junk")); err == nil {
		t.Error("expected handler error for rejected registration")
	}
}

func TestOffline_DeviceFromTopic(t *testing.T) {
	_, sub, _, registry := newTestBridge(t)

	err := sub.deliver(t, "pbl/AA:BB:CC:DD:EE:01/config/offline", nil)
	if err != nil {
		t.Fatalf("deliver error = %v", err)
	}
	if len(registry.offline) != 1 || registry.offline[0] != "AA:BB:CC:DD:EE:01" {
		t.Errorf("offline = %v", registry.offline)
	}
}

func TestDumpItem_ParsedAndApplied(t *testing.T) {
	_, sub, _, registry := newTestBridge(t)

	err := sub.deliver(t, "pbl/AA:BB:CC:DD:EE:01/config/put", []byte{3, 10, 20})
	if err != nil {
		t.Fatalf("deliver error = %v", err)
	}

	if registry.dumpDevice != "AA:BB:CC:DD:EE:01" {
		t.Errorf("dump device = %q", registry.dumpDevice)
	}
	if len(registry.dumps) != 1 {
		t.Fatalf("dumps = %d, want 1", len(registry.dumps))
	}
	item := registry.dumps[0]
	if item.Position != 3 || len(item.LEDs) != 2 || item.LEDs[1] != 20 {
		t.Errorf("dump item = %+v", item)
	}
}

func TestDumpItem_Undecodable(t *testing.T) {
	_, sub, _, registry := newTestBridge(t)

	if err := sub.deliver(t, "pbl/AA:BB:CC:DD:EE:01/config/put", []byte{3}); err == nil {
		t.Error("expected handler error for dump item without LEDs")
	}
	if len(registry.dumps) != 0 {
		t.Errorf("truncated dump item was applied: %v", registry.dumps)
	}
}

func TestStop_DropsLateMessages(t *testing.T) {
	b, sub, router, registry := newTestBridge(t)
	b.Stop()

	if err := sub.deliver(t, "pbl/AA:BB:CC:DD:EE:01/light/ack", []byte{1}); err != nil {
		t.Fatalf("deliver error = %v", err)
	}
	if router.calls != 0 {
		t.Error("ack routed after Stop()")
	}

	if err := sub.deliver(t, "pbl/register", []byte("AA:BB:CC:DD:EE:01")); err != nil {
		t.Fatalf("deliver error = %v", err)
	}
	if len(registry.registered) != 0 {
		t.Error("registration processed after Stop()")
	}

	// Stop is idempotent.
	b.Stop()
}

func TestStart_SubscribeFailure(t *testing.T) {
	sub := newFakeSubscriber()
	sub.err = mqtt.ErrNotConnected

	b, err := New(Options{
		Subscriber: sub,
		Router:     &fakeRouter{},
		Registry:   &fakeRegistry{},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := b.Start(); err == nil {
		t.Error("Start() succeeded with failing subscriber, want error")
	}
}
