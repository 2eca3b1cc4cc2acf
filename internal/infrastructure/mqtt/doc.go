// Package mqtt provides MQTT client connectivity for Shelfbridge.
//
// This package manages:
//   - Connection to Mosquitto broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// Shelfbridge uses MQTT to reach the shelf controllers mounted on the
// warehouse racks. The broker (Mosquitto) decouples the bridge from the
// controller fleet, which announces itself on a shared registration topic.
//
//	HTTP clients ↔ Shelfbridge ↔ MQTT Broker ↔ Shelf Controllers
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//   - Message payloads are not encrypted beyond TLS transport
//
// # Performance Characteristics
//
//   - Connection: <1 second to local broker
//   - Publish latency: <10ms for QoS 1 to local broker
//   - Reconnect: Exponential backoff 1s-60s with jitter
//   - Message throughput: Broker-limited (typically 10K+ msg/sec)
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	topics := mqtt.Topics{Prefix: cfg.MQTT.TopicPrefix}
//
//	// Subscribe to all light acknowledgments
//	err = client.Subscribe(topics.AllLightAcks(), 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("Received: %s = %x", topic, payload)
//	        return nil
//	    })
//
//	// Publish command
//	client.Publish(topics.LightAllOn("AA:BB:CC:DD:EE:FF"), payload, 1, false)
package mqtt
