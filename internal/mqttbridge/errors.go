package mqttbridge

import "errors"

var (
	// ErrClientRequired is returned when no broker client is supplied.
	ErrClientRequired = errors.New("mqttbridge: client is required")

	// ErrMuxRequired is returned when no device mux is supplied.
	ErrMuxRequired = errors.New("mqttbridge: mux is required")

	// ErrUnknownSerial is returned when a command targets a serial no
	// registered device matches.
	ErrUnknownSerial = errors.New("mqttbridge: unknown device serial")

	// ErrUnknownAction is returned when a command names an action the
	// bridge does not implement.
	ErrUnknownAction = errors.New("mqttbridge: unknown action")

	// ErrInvalidCommand is returned when a command payload fails to parse.
	ErrInvalidCommand = errors.New("mqttbridge: invalid command")
)
