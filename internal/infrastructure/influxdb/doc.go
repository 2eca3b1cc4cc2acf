// Package influxdb provides InfluxDB connectivity for Shelfbridge.
//
// It wraps the official influxdb-client-go v2 library with Shelfbridge-specific
// patterns for connection management, metric writing, and health monitoring.
//
// # Purpose
//
// This package handles time-series data storage for:
//   - Acknowledgment exchange latency per controller and command class
//   - Exchange outcomes (acked, timeout, error)
//   - Controller liveness transitions
//
// # Usage
//
//	cfg := config.InfluxDBConfig{
//	    URL:    "http://localhost:8086",
//	    Token:  "your-token",
//	    Org:    "shelfbridge",
//	    Bucket: "telemetry",
//	}
//
//	client, err := influxdb.Connect(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Record an exchange
//	client.WriteExchange("AA:BB:CC:DD:EE:FF", "light", "acked", 42*time.Millisecond)
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are logged via a callback.
// Connection and health check errors are returned directly.
//
// # Performance
//
// Writes are batched according to config.yaml settings (batch_size, flush_interval).
// This reduces network overhead when many pickers hammer the same aisle.
package influxdb
