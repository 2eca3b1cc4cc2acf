//go:build integration

package mqtt

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shelfbridge/shelfbridge/internal/infrastructure/config"
)

// Integration tests for broker connectivity and reconnection behaviour.
// These tests require a running MQTT broker at 127.0.0.1:1883.
//
// Run with:
//   go test -tags=integration -v ./internal/infrastructure/mqtt/...
//
// Note: Some tests may be flaky in CI due to timing dependencies.
// Consider running with: go test -tags=integration -count=1 -v ...

func integrationConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "shelfbridge-integration-test",
			TLS:      false,
		},
		Auth: config.MQTTAuthConfig{
			Username: "",
			Password: "",
		},
		QoS:         1,
		TopicPrefix: "pbl-test",
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

func TestIntegration_Connect(t *testing.T) {
	cfg := integrationConfig()

	client, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	if !client.IsConnected() {
		t.Error("IsConnected() = false, want true")
	}
}

func TestIntegration_ConnectInvalidBroker(t *testing.T) {
	cfg := integrationConfig()
	cfg.Broker.Port = 19999

	_, err := Connect(cfg)
	if err == nil {
		t.Fatal("Connect() expected error for invalid broker")
	}

	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestIntegration_HealthCheck(t *testing.T) {
	cfg := integrationConfig()

	client, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v, want nil", err)
	}
}

func TestIntegration_HealthCheckDisconnected(t *testing.T) {
	cfg := integrationConfig()

	client, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	client.Close()

	err = client.HealthCheck(context.Background())
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
}

// TestIntegration_SubscriptionTracking verifies subscriptions are tracked.
//
// This test doesn't actually disconnect the broker (which would require
// external control), but verifies the subscription tracking mechanism
// that would be used during reconnection.
func TestIntegration_SubscriptionTracking(t *testing.T) {
	cfg := integrationConfig()
	cfg.Broker.ClientID = "shelfbridge-int-sub-track"

	client, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	topics := Topics{Prefix: cfg.TopicPrefix}
	patterns := []string{
		topics.AllLightAcks(),
		topics.AllConfigAcks(),
		topics.Register(),
	}

	handler := func(topic string, payload []byte) error {
		return nil
	}

	for _, pattern := range patterns {
		if err := client.Subscribe(pattern, 1, handler); err != nil {
			t.Fatalf("Subscribe(%s) error = %v", pattern, err)
		}
	}

	if client.SubscriptionCount() != len(patterns) {
		t.Errorf("SubscriptionCount() = %d, want %d", client.SubscriptionCount(), len(patterns))
	}

	for _, pattern := range patterns {
		if !client.HasSubscription(pattern) {
			t.Errorf("HasSubscription(%s) = false, want true", pattern)
		}
	}

	if err := client.Unsubscribe(patterns[0]); err != nil {
		t.Fatalf("Unsubscribe() error = %v", err)
	}

	if client.SubscriptionCount() != len(patterns)-1 {
		t.Errorf("SubscriptionCount() after unsubscribe = %d, want %d", client.SubscriptionCount(), len(patterns)-1)
	}

	if client.HasSubscription(patterns[0]) {
		t.Errorf("HasSubscription(%s) = true after unsubscribe", patterns[0])
	}
}

// TestIntegration_MessageRoundtrip verifies pub/sub works end-to-end with
// a binary payload of the kind controllers exchange.
func TestIntegration_MessageRoundtrip(t *testing.T) {
	cfg := integrationConfig()

	cfg.Broker.ClientID = "shelfbridge-int-pub"
	pubClient, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() publisher error = %v", err)
	}
	defer pubClient.Close()

	cfg.Broker.ClientID = "shelfbridge-int-sub"
	subClient, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() subscriber error = %v", err)
	}
	defer subClient.Close()

	topics := Topics{Prefix: cfg.TopicPrefix}
	topic := topics.LightAck("AA:BB:CC:DD:EE:FF")
	expected := []byte{0x7f}

	received := make(chan []byte, 1)
	var once sync.Once

	err = subClient.Subscribe(topics.AllLightAcks(), 1, func(t string, p []byte) error {
		once.Do(func() {
			received <- p
		})
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	time.Sleep(100 * time.Millisecond)

	err = pubClient.Publish(topic, expected, 1, false)
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case msg := <-received:
		if len(msg) != 1 || msg[0] != expected[0] {
			t.Errorf("Received = %x, want %x", msg, expected)
		}
	case <-time.After(5 * time.Second):
		t.Error("Timeout waiting for message")
	}
}

// TestIntegration_HandlerPanicRecovered verifies a panicking handler does not
// take down the client.
func TestIntegration_HandlerPanicRecovered(t *testing.T) {
	cfg := integrationConfig()
	cfg.Broker.ClientID = "shelfbridge-int-panic"

	client, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	logger := &mockLogger{}
	client.SetLogger(logger)

	topics := Topics{Prefix: cfg.TopicPrefix}
	topic := topics.ConfigAck("AA:BB:CC:DD:EE:FF")

	err = client.Subscribe(topics.AllConfigAcks(), 1, func(string, []byte) error {
		panic("handler blew up")
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	time.Sleep(100 * time.Millisecond)

	if err := client.Publish(topic, []byte{0x01}, 1, false); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	time.Sleep(500 * time.Millisecond)

	if !client.IsConnected() {
		t.Error("client disconnected after handler panic")
	}

	logger.mu.Lock()
	defer logger.mu.Unlock()
	if len(logger.errors) == 0 {
		t.Error("expected panic to be logged")
	}
}

// TestIntegration_LoggerSet verifies logger can be set and cleared.
func TestIntegration_LoggerSet(t *testing.T) {
	cfg := integrationConfig()
	cfg.Broker.ClientID = "shelfbridge-int-logger"

	client, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	logger := &mockLogger{}
	client.SetLogger(logger)

	got := client.getLogger()
	if got == nil {
		t.Error("getLogger() = nil after SetLogger()")
	}

	client.SetLogger(nil)

	got = client.getLogger()
	if got != nil {
		t.Error("getLogger() should be nil after SetLogger(nil)")
	}
}

// mockLogger implements Logger interface for testing.
type mockLogger struct {
	errors []string
	warns  []string
	mu     sync.Mutex
}

func (l *mockLogger) Error(msg string, args ...any) {
	l.mu.Lock()
	l.errors = append(l.errors, msg)
	l.mu.Unlock()
}

func (l *mockLogger) Warn(msg string, args ...any) {
	l.mu.Lock()
	l.warns = append(l.warns, msg)
	l.mu.Unlock()
}
