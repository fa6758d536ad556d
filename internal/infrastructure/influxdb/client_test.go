package influxdb_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fanbridge/fanbridge/internal/infrastructure/config"
	"github.com/fanbridge/fanbridge/internal/infrastructure/influxdb"
)

func testConfig() config.InfluxDBConfig {
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           "http://127.0.0.1:8086",
		Token:         "fanbridge-dev-token",
		Org:           "fanbridge",
		Bucket:        "metrics",
		BatchSize:     100,
		FlushInterval: 1,
	}
}

// connectOrSkip dials the local dev InfluxDB, skipping the test when no
// instance is listening. Everything beyond config validation needs a
// live server.
func connectOrSkip(t *testing.T) *influxdb.Client {
	t.Helper()

	client, err := influxdb.Connect(testConfig())
	if err != nil {
		t.Skipf("InfluxDB not available: %v", err)
	}
	t.Cleanup(func() { client.Close() }) //nolint:errcheck // test cleanup
	return client
}

// collectWriteErrors wires SetOnError to a mutex-guarded slot and returns
// a getter for the most recent async failure.
func collectWriteErrors(t *testing.T, client *influxdb.Client) func() error {
	t.Helper()

	var mu sync.Mutex
	var last error
	client.SetOnError(func(err error) {
		mu.Lock()
		last = err
		mu.Unlock()
	})
	return func() error {
		mu.Lock()
		defer mu.Unlock()
		return last
	}
}

func TestConnectDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false

	if _, err := influxdb.Connect(cfg); !errors.Is(err, influxdb.ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnectUnreachable(t *testing.T) {
	cfg := testConfig()
	cfg.URL = "http://127.0.0.1:59999"

	if _, err := influxdb.Connect(cfg); !errors.Is(err, influxdb.ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestConnectAndHealthCheck(t *testing.T) {
	client := connectOrSkip(t)

	if !client.IsConnected() {
		t.Error("IsConnected() = false after Connect()")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.HealthCheck(ctx); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestConnectZeroBatchSettings(t *testing.T) {
	cfg := testConfig()
	cfg.BatchSize = 0
	cfg.FlushInterval = 0

	client, err := influxdb.Connect(cfg)
	if err != nil {
		t.Skipf("InfluxDB not available: %v", err)
	}
	defer client.Close() //nolint:errcheck // test cleanup

	if !client.IsConnected() {
		t.Error("IsConnected() = false with defaulted batch settings")
	}
}

func TestWriteFanState(t *testing.T) {
	client := connectOrSkip(t)
	lastErr := collectWriteErrors(t, client)

	client.WriteFanState("FAN-TEST-001", true, 50, false, "report")
	client.WriteFanState("FAN-TEST-001", false, 0, false, "command")
	client.WriteFanState("FAN-TEST-002", true, 100, true, "report")
	client.Flush()

	time.Sleep(100 * time.Millisecond)
	if err := lastErr(); err != nil {
		t.Errorf("async write error = %v", err)
	}
}

func TestCloseDisconnects(t *testing.T) {
	client := connectOrSkip(t)

	client.WriteFanState("FAN-CLOSE-TEST", true, 75, true, "report")

	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if client.IsConnected() {
		t.Error("IsConnected() = true after Close()")
	}

	// Writes after close are dropped, not panics.
	client.WriteFanState("FAN-CLOSE-TEST", false, 0, false, "report")
}
