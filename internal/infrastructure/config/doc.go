// Package config loads the YAML configuration file, layers FANBRIDGE_*
// environment overrides on top, fills defaults, and validates the result.
// Loading happens once at startup; the returned Config is treated as
// read-only after that.
//
// Secrets (cloud password, MQTT password, InfluxDB token) belong in the
// environment rather than the file, and the file itself should be 0600.
//
//	cfg, err := config.Load("configs/config.yaml")
package config
