package accessory

import "errors"

var (
	// ErrBridgeRequired is returned when a fan accessory is created
	// without a sync engine to drive.
	ErrBridgeRequired = errors.New("accessory: bridge is required")

	// ErrNoAccessories is returned when the server is started with no
	// fans to publish.
	ErrNoAccessories = errors.New("accessory: no accessories to publish")

	// ErrStorageRequired is returned when no pairing storage directory is
	// configured.
	ErrStorageRequired = errors.New("accessory: storage directory is required")
)
