// Package mqttbridge is the broker-facing surface for FanBridge.
//
// # Topics
//
//	fanbridge/state/{serial}    retained JSON state, published on every
//	                            state cache transition
//	fanbridge/command/{serial}  inbound commands (power, speed, oscillate)
//	fanbridge/ack/{serial}      one ack per command, accepted or failed
//
// Commands carry an optional correlation ID; the bridge mints one when
// absent so subscribers can always match acks to commands. A failed
// command (unknown serial, unknown action, malformed value, transport
// failure) produces a failed ack with the error text, never a dropped
// message and never a crash.
//
// State publishes are retained so late subscribers immediately see the
// last-known snapshot of every fan.
package mqttbridge
