package influxdb

import "errors"

var (
	// ErrDisabled signals the config section has telemetry switched off.
	// The caller skips the InfluxDB leg entirely rather than failing.
	ErrDisabled = errors.New("influxdb: disabled in configuration")

	// ErrConnectionFailed wraps the reason the startup ping failed.
	ErrConnectionFailed = errors.New("influxdb: connection failed")

	// ErrNotConnected is returned by HealthCheck after Close.
	ErrNotConnected = errors.New("influxdb: not connected")
)
