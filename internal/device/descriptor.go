package device

import (
	"errors"
	"fmt"
)

// ErrInvalidDescriptor is returned when a descriptor fails validation.
var ErrInvalidDescriptor = errors.New("device: invalid descriptor")

// Descriptor is the immutable identity and capability record for one fan,
// obtained once from the cloud device list at startup.
type Descriptor struct {
	// Serial is the unique device serial number ("devicesn" on the wire).
	Serial string `json:"serial"`

	// Name is the user-assigned device name.
	Name string `json:"name"`

	// Model is the manufacturer model identifier.
	Model string `json:"model"`

	// MaxLevel is the maximum device-native speed level. Device-specific,
	// positive, read once from the device's control metadata. Level 0 is
	// not a legal device speed.
	MaxLevel int `json:"max_level"`

	// SupportsOscillation indicates whether the device has an oscillation
	// actuator. When false, no oscillation control surface is exposed.
	SupportsOscillation bool `json:"supports_oscillation"`
}

// Validate checks the descriptor invariants.
//
// Returns:
//   - error: ErrInvalidDescriptor (wrapped) describing the first violation,
//     or nil if the descriptor is usable
func (d Descriptor) Validate() error {
	if d.Serial == "" {
		return fmt.Errorf("%w: serial is required", ErrInvalidDescriptor)
	}
	if d.MaxLevel < 1 {
		return fmt.Errorf("%w: max level must be positive, got %d", ErrInvalidDescriptor, d.MaxLevel)
	}
	return nil
}
