package cloud

import "errors"

// Domain errors for the cloud package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, cloud.ErrNotConnected) {
//	    // handle disconnected channel
//	}
var (
	// ErrAuthFailed is returned when the cloud rejects the login credentials.
	ErrAuthFailed = errors.New("cloud: authentication failed")

	// ErrNotAuthenticated is returned when an API call is made before Login.
	ErrNotAuthenticated = errors.New("cloud: not authenticated")

	// ErrRequestFailed is returned when an API request fails or the cloud
	// responds with a non-zero result code.
	ErrRequestFailed = errors.New("cloud: request failed")

	// ErrConnectionFailed is returned when the websocket channel cannot be
	// established.
	ErrConnectionFailed = errors.New("cloud: connection failed")

	// ErrNotConnected is returned when a send is attempted while the
	// channel is disconnected.
	ErrNotConnected = errors.New("cloud: not connected")

	// ErrSendFailed is returned when writing a frame to the channel fails.
	ErrSendFailed = errors.New("cloud: send failed")

	// ErrInvalidConfig is returned when client or channel configuration is
	// incomplete.
	ErrInvalidConfig = errors.New("cloud: invalid configuration")
)
