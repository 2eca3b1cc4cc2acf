package mqtt

import (
	"errors"
	"testing"

	"github.com/shelfbridge/shelfbridge/internal/infrastructure/config"
)

// =============================================================================
// Topics Tests
// =============================================================================

func TestTopicBuilders(t *testing.T) {
	const addr = "AA:BB:CC:DD:EE:FF"
	topics := Topics{Prefix: "pbl"}

	tests := []struct {
		name     string
		builder  func() string
		expected string
	}{
		{
			name:     "Register",
			builder:  topics.Register,
			expected: "pbl/register",
		},
		{
			name:     "BridgeStatus",
			builder:  topics.BridgeStatus,
			expected: "pbl/bridge/status",
		},
		{
			name:     "LightSet",
			builder:  func() string { return topics.LightSet(addr) },
			expected: "pbl/AA:BB:CC:DD:EE:FF/light/set",
		},
		{
			name:     "LightUnset",
			builder:  func() string { return topics.LightUnset(addr) },
			expected: "pbl/AA:BB:CC:DD:EE:FF/light/unset",
		},
		{
			name:     "LightAllOn",
			builder:  func() string { return topics.LightAllOn(addr) },
			expected: "pbl/AA:BB:CC:DD:EE:FF/light/allOn",
		},
		{
			name:     "LightAllOff",
			builder:  func() string { return topics.LightAllOff(addr) },
			expected: "pbl/AA:BB:CC:DD:EE:FF/light/allOff",
		},
		{
			name:     "LightAck",
			builder:  func() string { return topics.LightAck(addr) },
			expected: "pbl/AA:BB:CC:DD:EE:FF/light/ack",
		},
		{
			name:     "ConfigGet",
			builder:  func() string { return topics.ConfigGet(addr) },
			expected: "pbl/AA:BB:CC:DD:EE:FF/config/get",
		},
		{
			name:     "ConfigPut",
			builder:  func() string { return topics.ConfigPut(addr) },
			expected: "pbl/AA:BB:CC:DD:EE:FF/config/put",
		},
		{
			name:     "ConfigCreatePosition",
			builder:  func() string { return topics.ConfigCreatePosition(addr) },
			expected: "pbl/AA:BB:CC:DD:EE:FF/config/create_Position",
		},
		{
			name:     "ConfigUpdatePosition",
			builder:  func() string { return topics.ConfigUpdatePosition(addr) },
			expected: "pbl/AA:BB:CC:DD:EE:FF/config/update_Position",
		},
		{
			name:     "ConfigDeletePosition",
			builder:  func() string { return topics.ConfigDeletePosition(addr) },
			expected: "pbl/AA:BB:CC:DD:EE:FF/config/delete_Position",
		},
		{
			name:     "ConfigReset",
			builder:  func() string { return topics.ConfigReset(addr) },
			expected: "pbl/AA:BB:CC:DD:EE:FF/config/reset",
		},
		{
			name:     "ConfigAck",
			builder:  func() string { return topics.ConfigAck(addr) },
			expected: "pbl/AA:BB:CC:DD:EE:FF/config/ack",
		},
		{
			name:     "ConfigOffline",
			builder:  func() string { return topics.ConfigOffline(addr) },
			expected: "pbl/AA:BB:CC:DD:EE:FF/config/offline",
		},
		{
			name:     "AllLightAcks",
			builder:  topics.AllLightAcks,
			expected: "pbl/+/light/ack",
		},
		{
			name:     "AllConfigAcks",
			builder:  topics.AllConfigAcks,
			expected: "pbl/+/config/ack",
		},
		{
			name:     "AllConfigPuts",
			builder:  topics.AllConfigPuts,
			expected: "pbl/+/config/put",
		},
		{
			name:     "AllOffline",
			builder:  topics.AllOffline,
			expected: "pbl/+/config/offline",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.builder()
			if result != tt.expected {
				t.Errorf("%s() = %q, want %q", tt.name, result, tt.expected)
			}
		})
	}
}

func TestTopics_DefaultPrefix(t *testing.T) {
	// Zero-value Topics falls back to the flashed controller prefix.
	if got := (Topics{}).Register(); got != "pbl/register" {
		t.Errorf("Register() = %q, want %q", got, "pbl/register")
	}
}

func TestTopics_CustomPrefix(t *testing.T) {
	topics := Topics{Prefix: "warehouse7"}
	if got := topics.LightAck("11:22:33:44:55:66"); got != "warehouse7/11:22:33:44:55:66/light/ack" {
		t.Errorf("LightAck() = %q", got)
	}
}

func TestDeviceFromTopic(t *testing.T) {
	topics := Topics{Prefix: "pbl"}

	tests := []struct {
		name    string
		topic   string
		want    string
		wantErr bool
	}{
		{
			name:  "light ack topic",
			topic: "pbl/AA:BB:CC:DD:EE:FF/light/ack",
			want:  "AA:BB:CC:DD:EE:FF",
		},
		{
			name:  "config put topic",
			topic: "pbl/11:22:33:44:55:66/config/put",
			want:  "11:22:33:44:55:66",
		},
		{
			name:    "prefix only",
			topic:   "pbl",
			wantErr: true,
		},
		{
			name:    "empty address segment",
			topic:   "pbl//light/ack",
			wantErr: true,
		},
		{
			name:    "empty topic",
			topic:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := topics.DeviceFromTopic(tt.topic)
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedTopic) {
					t.Errorf("DeviceFromTopic() error = %v, want ErrMalformedTopic", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("DeviceFromTopic() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("DeviceFromTopic() = %q, want %q", got, tt.want)
			}
		})
	}
}

// =============================================================================
// Client Options Tests
// =============================================================================

func TestBuildClientOptions_ConcurrentDispatch(t *testing.T) {
	cfg := config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "localhost",
			Port:     1883,
			ClientID: "shelfbridge-test",
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}

	opts := buildClientOptions(cfg)

	// In-order dispatch runs every handler on one goroutine, so an
	// acknowledgment queued behind a handler blocked on shared state would
	// never arrive before the exchange deadline.
	if opts.Order {
		t.Error("buildClientOptions() Order = true, want false (concurrent handler dispatch)")
	}
}

// =============================================================================
// Client State Tests (no broker required)
// =============================================================================

func TestCloseNil(t *testing.T) {
	client := &Client{}
	err := client.Close()
	if err != nil {
		t.Errorf("Close() on nil client error = %v, want nil", err)
	}
}

func TestIsConnected_InitialState(t *testing.T) {
	client := &Client{}

	if client.IsConnected() {
		t.Error("IsConnected() should be false for uninitialised client")
	}
}

func TestPublishDisconnected(t *testing.T) {
	client := &Client{}

	err := client.Publish("test/topic", []byte("test"), 1, false)
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("Publish() error = %v, want ErrNotConnected", err)
	}
}

func TestPublishEmptyTopic(t *testing.T) {
	client := &Client{}

	err := client.Publish("", []byte("test"), 1, false)
	if !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Publish() error = %v, want ErrInvalidTopic", err)
	}
}

func TestPublishInvalidQoS(t *testing.T) {
	client := &Client{}

	err := client.Publish("test/topic", []byte("test"), 3, false)
	if !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("Publish() error = %v, want ErrInvalidQoS", err)
	}
}

func TestSubscribeEmptyTopic(t *testing.T) {
	client := &Client{}

	err := client.Subscribe("", 1, func(string, []byte) error { return nil })
	if !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Subscribe() error = %v, want ErrInvalidTopic", err)
	}
}

func TestSubscribeNilHandler(t *testing.T) {
	client := &Client{}

	err := client.Subscribe("test/topic", 1, nil)
	if !errors.Is(err, ErrSubscribeFailed) {
		t.Errorf("Subscribe() error = %v, want ErrSubscribeFailed", err)
	}
}

func TestUnsubscribeEmptyTopic(t *testing.T) {
	client := &Client{}

	err := client.Unsubscribe("")
	if !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Unsubscribe() error = %v, want ErrInvalidTopic", err)
	}
}
