// Package accessory is the pairing-protocol surface for FanBridge.
//
// Each fan is published as a Fan service with On and RotationSpeed
// characteristics. SwingMode is added only when the device descriptor
// declares an oscillation actuator; fixed-head fans never grow a swing
// toggle in the controller UI.
//
// Controller writes flow into the per-device sync engine's Set
// operations. Device-originated changes flow the other way through
// UpdateFromState, driven by the engine's state change callback. SetValue
// does not re-enter the remote update handlers, so the two directions
// cannot echo into each other.
package accessory
