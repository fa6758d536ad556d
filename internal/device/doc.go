// Package device holds the device model shared across FanBridge: the
// immutable per-fan Descriptor obtained from the cloud device list, and
// the SQLite-backed state history that records every state cache
// transition with its source (report, command, mqtt).
//
// The package deliberately knows nothing about the wire protocol or the
// accessory surface; both depend on it, never the reverse.
package device
