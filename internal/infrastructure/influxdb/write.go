package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteExchange records one acknowledgment exchange with a shelf controller.
//
// This is the primary telemetry method: it captures round-trip latency and
// outcome per controller and command class, which is how slow or flaky
// controllers are spotted in the field.
// The write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - deviceAddress: Controller MAC address
//   - class: Command class ("light" or "config")
//   - outcome: "acked", "timeout", or "error"
//   - duration: Time from publish to acknowledgment (or timeout)
//
// Example:
//
//	client.WriteExchange("AA:BB:CC:DD:EE:FF", "light", "acked", 42*time.Millisecond)
func (c *Client) WriteExchange(deviceAddress, class, outcome string, duration time.Duration) {
	c.writePoint(
		"exchange",
		map[string]string{
			"device":  deviceAddress,
			"class":   class,
			"outcome": outcome,
		},
		map[string]interface{}{
			"duration_ms": float64(duration.Milliseconds()),
		},
	)
}

// WriteDeviceStatus records a controller liveness transition.
//
// Parameters:
//   - deviceAddress: Controller MAC address
//   - online: true on registration, false on departure
func (c *Client) WriteDeviceStatus(deviceAddress string, online bool) {
	status := 0.0
	if online {
		status = 1.0
	}

	c.writePoint(
		"device_status",
		map[string]string{
			"device": deviceAddress,
		},
		map[string]interface{}{
			"online": status,
		},
	)
}

// writePoint batches one timestamped point, dropping it when disconnected.
// Telemetry is best-effort; a down sink never blocks an exchange.
func (c *Client) writePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, time.Now()))
}
