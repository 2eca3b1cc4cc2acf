// Package bridge binds the inbound MQTT surface to the exchange engine and
// the inventory registry.
//
// Controllers publish on five topic families; the bridge subscribes to all
// of them with wildcard patterns and fans each message out to its consumer:
//
//	pbl/+/light/ack      → exchange engine (light class)
//	pbl/+/config/ack     → exchange engine (config class)
//	pbl/register         → inventory registry (liveness announcement)
//	pbl/+/config/offline → inventory registry (LWT departure)
//	pbl/+/config/put     → inventory reconciler (dump items)
//
// The bridge itself holds no state beyond its wiring: correlation lives in
// the exchange engine, the registry in the inventory manager. Handler
// failures are returned to the MQTT client, which logs them; a message the
// system cannot use (malformed topic, undecodable payload, unknown
// controller) is dropped without affecting anything else in flight.
package bridge
