package dreo

import "errors"

// Domain errors for the Dreo bridge package.
var (
	// ErrChannelRequired is returned when a bridge is created without a
	// message channel.
	ErrChannelRequired = errors.New("dreo: message channel is required")

	// ErrInvalidDescriptor is returned when a device descriptor fails
	// validation (empty serial or non-positive max level).
	ErrInvalidDescriptor = errors.New("dreo: invalid device descriptor")

	// ErrOscillationUnsupported is returned by SetOscillation when the
	// device descriptor does not declare oscillation support.
	ErrOscillationUnsupported = errors.New("dreo: device does not support oscillation")

	// ErrSendFailed is returned when a control message cannot be written
	// to the channel. The state cache is left unchanged.
	ErrSendFailed = errors.New("dreo: control message send failed")

	// ErrInvalidMessage is returned when an inbound frame cannot be parsed.
	ErrInvalidMessage = errors.New("dreo: invalid message")

	// ErrDuplicateSerial is returned when two bridges are registered on one
	// mux with the same serial number.
	ErrDuplicateSerial = errors.New("dreo: serial already registered")
)
