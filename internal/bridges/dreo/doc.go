// Package dreo implements the Dreo cloud protocol bridge for FanBridge.
//
// This package contains the state-synchronization core: it reconciles the
// device's small-integer speed-level domain with the 0-100 percent domain
// exposed to consumer surfaces (HomeKit, MQTT, HTTP), while suppressing
// redundant network writes and tolerating partial, out-of-order report
// traffic from the cloud.
//
// # Architecture
//
// One persistent WebSocket channel carries JSON frames for every fan on the
// account. A Mux owns the channel's message callback and routes each frame
// by serial number to the per-device Bridge:
//
//	┌──────────────┐         ┌─────────┐         ┌──────────────────┐
//	│ Dreo cloud   │  frames │   Mux   │ reports │ Bridge (per fan) │
//	│ (websocket)  │────────►│ (demux) │────────►│  state cache +   │
//	│              │◄─────────────────────────────│  sync engine     │
//	└──────────────┘      control messages        └──────────────────┘
//
// # Key Responsibilities
//
//   - Translate Set operations into outbound control frames
//   - Apply inbound report deltas to the in-memory state cache
//   - Scale percent ↔ device-native level (ceil, per-device max level)
//   - Quantize requested levels onto stable slider snap points
//   - Suppress duplicate writes and the illegal level 0
//
// # Write Policies
//
// Speed uses a write-through policy: the cache reflects the requested
// percent immediately after a successful (or suppressed) send, because the
// device does not reliably echo speed changes. Power and oscillation use a
// wait-for-echo policy: the cache changes only when the device reports the
// new value.
//
// # Thread Safety
//
// All exported types are safe for concurrent use from multiple goroutines.
// Each Set operation is atomic with respect to the device's state cache.
package dreo
