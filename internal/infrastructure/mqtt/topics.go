package mqtt

import (
	"fmt"
	"strings"
)

// DefaultTopicPrefix is the first segment of every shelf-controller topic.
// Controllers are flashed with this prefix; override via mqtt.topic_prefix.
const DefaultTopicPrefix = "pbl"

// Topics provides builders for shelf-controller MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
// All controller topics follow the scheme: {prefix}/{address}/{class}/{operation}
// where address is the controller's MAC address and class is "light" or "config".
// The single exception is the registration topic {prefix}/register, which all
// controllers share.
//
//	topics := mqtt.Topics{Prefix: cfg.MQTT.TopicPrefix}
//	setTopic := topics.LightSet("AA:BB:CC:DD:EE:FF")
//	// Returns: "pbl/AA:BB:CC:DD:EE:FF/light/set"
type Topics struct {
	Prefix string
}

func (t Topics) prefix() string {
	if t.Prefix == "" {
		return DefaultTopicPrefix
	}
	return t.Prefix
}

// =============================================================================
// Fleet Topics
// =============================================================================

// Register returns the shared registration topic controllers announce on.
//
// Example: pbl/register
func (t Topics) Register() string {
	return fmt.Sprintf("%s/register", t.prefix())
}

// BridgeStatus returns the bridge's own status topic, used for the LWT
// and online/offline announcements. "bridge" cannot collide with a
// controller segment because controller addresses are MAC addresses.
//
// Example: pbl/bridge/status
func (t Topics) BridgeStatus() string {
	return fmt.Sprintf("%s/bridge/status", t.prefix())
}

// =============================================================================
// Light Topics (transient LED commands, never persisted by the controller)
// =============================================================================

// LightSet returns the topic for lighting specific LEDs on a controller.
//
// Example: pbl/AA:BB:CC:DD:EE:FF/light/set
func (t Topics) LightSet(address string) string {
	return fmt.Sprintf("%s/%s/light/set", t.prefix(), address)
}

// LightUnset returns the topic for extinguishing specific LEDs.
//
// Example: pbl/AA:BB:CC:DD:EE:FF/light/unset
func (t Topics) LightUnset(address string) string {
	return fmt.Sprintf("%s/%s/light/unset", t.prefix(), address)
}

// LightAllOn returns the topic for lighting every LED on a controller.
//
// Example: pbl/AA:BB:CC:DD:EE:FF/light/allOn
func (t Topics) LightAllOn(address string) string {
	return fmt.Sprintf("%s/%s/light/allOn", t.prefix(), address)
}

// LightAllOff returns the topic for extinguishing every LED.
//
// Example: pbl/AA:BB:CC:DD:EE:FF/light/allOff
func (t Topics) LightAllOff(address string) string {
	return fmt.Sprintf("%s/%s/light/allOff", t.prefix(), address)
}

// LightAck returns the topic a controller acknowledges light commands on.
//
// Example: pbl/AA:BB:CC:DD:EE:FF/light/ack
func (t Topics) LightAck(address string) string {
	return fmt.Sprintf("%s/%s/light/ack", t.prefix(), address)
}

// =============================================================================
// Config Topics (mutations of the controller's stored position table)
// =============================================================================

// ConfigGet returns the topic that requests a full dump of the controller's
// stored positions. The controller answers with one ConfigPut message per
// position.
//
// Example: pbl/AA:BB:CC:DD:EE:FF/config/get
func (t Topics) ConfigGet(address string) string {
	return fmt.Sprintf("%s/%s/config/get", t.prefix(), address)
}

// ConfigPut returns the topic a controller publishes dump items on.
//
// Example: pbl/AA:BB:CC:DD:EE:FF/config/put
func (t Topics) ConfigPut(address string) string {
	return fmt.Sprintf("%s/%s/config/put", t.prefix(), address)
}

// ConfigCreatePosition returns the topic for storing a new position.
//
// Example: pbl/AA:BB:CC:DD:EE:FF/config/create_Position
func (t Topics) ConfigCreatePosition(address string) string {
	return fmt.Sprintf("%s/%s/config/create_Position", t.prefix(), address)
}

// ConfigUpdatePosition returns the topic for replacing a stored position.
//
// Example: pbl/AA:BB:CC:DD:EE:FF/config/update_Position
func (t Topics) ConfigUpdatePosition(address string) string {
	return fmt.Sprintf("%s/%s/config/update_Position", t.prefix(), address)
}

// ConfigDeletePosition returns the topic for removing a stored position.
//
// Example: pbl/AA:BB:CC:DD:EE:FF/config/delete_Position
func (t Topics) ConfigDeletePosition(address string) string {
	return fmt.Sprintf("%s/%s/config/delete_Position", t.prefix(), address)
}

// ConfigReset returns the topic that erases the controller's stored positions.
// Resets take far longer than other operations; use the extended timeout.
//
// Example: pbl/AA:BB:CC:DD:EE:FF/config/reset
func (t Topics) ConfigReset(address string) string {
	return fmt.Sprintf("%s/%s/config/reset", t.prefix(), address)
}

// ConfigAck returns the topic a controller acknowledges config commands on.
//
// Example: pbl/AA:BB:CC:DD:EE:FF/config/ack
func (t Topics) ConfigAck(address string) string {
	return fmt.Sprintf("%s/%s/config/ack", t.prefix(), address)
}

// ConfigOffline returns the topic a controller's LWT announces departure on.
//
// Example: pbl/AA:BB:CC:DD:EE:FF/config/offline
func (t Topics) ConfigOffline(address string) string {
	return fmt.Sprintf("%s/%s/config/offline", t.prefix(), address)
}

// =============================================================================
// Wildcard Patterns for Subscriptions
// =============================================================================

// AllLightAcks returns a pattern matching light acknowledgments from every
// controller.
//
// Pattern: pbl/+/light/ack
func (t Topics) AllLightAcks() string {
	return fmt.Sprintf("%s/+/light/ack", t.prefix())
}

// AllConfigAcks returns a pattern matching config acknowledgments from every
// controller.
//
// Pattern: pbl/+/config/ack
func (t Topics) AllConfigAcks() string {
	return fmt.Sprintf("%s/+/config/ack", t.prefix())
}

// AllConfigPuts returns a pattern matching dump items from every controller.
//
// Pattern: pbl/+/config/put
func (t Topics) AllConfigPuts() string {
	return fmt.Sprintf("%s/+/config/put", t.prefix())
}

// AllOffline returns a pattern matching controller departure announcements.
//
// Pattern: pbl/+/config/offline
func (t Topics) AllOffline() string {
	return fmt.Sprintf("%s/+/config/offline", t.prefix())
}

// =============================================================================
// Topic Parsing
// =============================================================================

// DeviceFromTopic extracts the controller address from a controller topic.
//
// The address is always the second segment: {prefix}/{address}/{class}/{op}.
//
// Returns:
//   - string: The controller address
//   - error: If the topic has fewer than two segments
func (t Topics) DeviceFromTopic(topic string) (string, error) {
	parts := strings.Split(topic, "/")
	if len(parts) < 2 || parts[1] == "" {
		return "", fmt.Errorf("%w: %q", ErrMalformedTopic, topic)
	}
	return parts[1], nil
}
