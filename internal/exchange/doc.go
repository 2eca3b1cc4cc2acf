// Package exchange emulates request/reply over MQTT's fire-and-forget
// publish/subscribe model.
//
// Shelf controllers acknowledge each command by echoing a single-byte
// correlation id on a per-class ack topic. This package turns that into a
// blocking call: SendAndAwait prepends a random id byte to the payload,
// publishes, and blocks until the matching acknowledgment arrives or the
// deadline passes.
//
// # Architecture
//
//	caller ──SendAndAwait──▶ Engine ──Publish──▶ broker ──▶ controller
//	                           ▲                              │
//	                           └──HandleReply◀── broker ◀──ack┘
//
// Each acknowledgment class ("light", "config") has an independent waiter
// table keyed by (controller address, correlation id), so one controller can
// have unrelated light and config commands in flight concurrently. Ids are
// drawn randomly from the single-byte space and redrawn on collision; when
// all 256 ids for a controller and class are outstanding, SendAndAwait fails
// fast with ErrIDSpaceExhausted instead of spinning.
//
// The waiter is registered before the payload is published, so an
// acknowledgment can never arrive ahead of its waiter. A reply with no
// registered waiter (late after timeout, or spurious) is logged and dropped.
//
// # Thread Safety
//
// All methods are safe for concurrent use. Waits block on a channel select;
// no polling is involved. Classes use separate locks and proceed fully in
// parallel.
package exchange
