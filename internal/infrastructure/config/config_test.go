package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_ValidConfig(t *testing.T) {
	// Create a temporary config file
	content := `
cloud:
  email: "fan@example.com"
  password: "hunter2"
  server: "app-api-eu.dreo-cloud.com"
homekit:
  pin: "31415926"
  storage_dir: "/tmp/hk"
database:
  path: "/tmp/test.db"
  wal_mode: true
  busy_timeout: 5
mqtt:
  enabled: true
  broker:
    host: "localhost"
    port: 1883
    client_id: "test-client"
  qos: 1
api:
  host: "0.0.0.0"
  port: 8321
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Cloud.Email != "fan@example.com" {
		t.Errorf("Cloud.Email = %q, want %q", cfg.Cloud.Email, "fan@example.com")
	}

	if cfg.Cloud.Server != "app-api-eu.dreo-cloud.com" {
		t.Errorf("Cloud.Server = %q, want %q", cfg.Cloud.Server, "app-api-eu.dreo-cloud.com")
	}

	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/tmp/test.db")
	}

	if cfg.MQTT.Broker.Host != "localhost" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "localhost")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("invalid: [yaml: content"), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	// No cloud credentials at all
	content := `
database:
  path: "/tmp/test.db"
api:
  port: 8321
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected validation error for missing cloud credentials, got nil")
	}
}

func TestConfig_Validate(t *testing.T) {
	// validBase returns a config that passes validation; each case mutates it.
	validBase := func() *Config {
		return &Config{
			Cloud: CloudConfig{
				Email:    "fan@example.com",
				Password: "hunter2",
				Server:   "app-api-us.dreo-cloud.com",
			},
			HomeKit: HomeKitConfig{
				Pin:        "00102003",
				StorageDir: "/data/homekit",
			},
			Database: DatabaseConfig{
				Path: "/data/fanbridge.db",
			},
			MQTT: MQTTConfig{
				Enabled: true,
				Broker:  MQTTBrokerConfig{Host: "localhost"},
				QoS:     1,
			},
			API: APIConfig{
				Enabled: true,
				Port:    8321,
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid config",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "missing cloud email",
			mutate:  func(c *Config) { c.Cloud.Email = "" },
			wantErr: true,
		},
		{
			name:    "missing cloud password",
			mutate:  func(c *Config) { c.Cloud.Password = "" },
			wantErr: true,
		},
		{
			name:    "missing cloud server",
			mutate:  func(c *Config) { c.Cloud.Server = "" },
			wantErr: true,
		},
		{
			name:    "pin too short",
			mutate:  func(c *Config) { c.HomeKit.Pin = "1234" },
			wantErr: true,
		},
		{
			name:    "pin not numeric",
			mutate:  func(c *Config) { c.HomeKit.Pin = "0010200a" },
			wantErr: true,
		},
		{
			name:    "missing database path",
			mutate:  func(c *Config) { c.Database.Path = "" },
			wantErr: true,
		},
		{
			name:    "invalid QoS",
			mutate:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: true,
		},
		{
			name: "invalid QoS ignored when mqtt disabled",
			mutate: func(c *Config) {
				c.MQTT.Enabled = false
				c.MQTT.QoS = 3
			},
			wantErr: false,
		},
		{
			name:    "invalid port low",
			mutate:  func(c *Config) { c.API.Port = 0 },
			wantErr: true,
		},
		{
			name:    "invalid port high",
			mutate:  func(c *Config) { c.API.Port = 70000 },
			wantErr: true,
		},
		{
			name: "influxdb enabled without url",
			mutate: func(c *Config) {
				c.InfluxDB.Enabled = true
				c.InfluxDB.Token = "token"
			},
			wantErr: true,
		},
		{
			name: "influxdb enabled without token",
			mutate: func(c *Config) {
				c.InfluxDB.Enabled = true
				c.InfluxDB.URL = "http://localhost:8086"
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validBase()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_GetTimeouts(t *testing.T) {
	cfg := &Config{
		API: APIConfig{
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 45,
				Idle:  60,
			},
		},
	}

	if got := cfg.API.GetReadTimeout().Seconds(); got != 30 {
		t.Errorf("GetReadTimeout() = %v, want 30", got)
	}

	if got := cfg.API.GetWriteTimeout().Seconds(); got != 45 {
		t.Errorf("GetWriteTimeout() = %v, want 45", got)
	}

	if got := cfg.API.GetIdleTimeout().Seconds(); got != 60 {
		t.Errorf("GetIdleTimeout() = %v, want 60", got)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	// Set environment variables
	t.Setenv("FANBRIDGE_CLOUD_EMAIL", "env@example.com")
	t.Setenv("FANBRIDGE_CLOUD_PASSWORD", "env-pass")
	t.Setenv("FANBRIDGE_CLOUD_SERVER", "app-api-eu.dreo-cloud.com")
	t.Setenv("FANBRIDGE_DATABASE_PATH", "/custom/path.db")
	t.Setenv("FANBRIDGE_MQTT_HOST", "mqtt.example.com")
	t.Setenv("FANBRIDGE_MQTT_PORT", "8883")
	t.Setenv("FANBRIDGE_MQTT_USERNAME", "testuser")
	t.Setenv("FANBRIDGE_MQTT_PASSWORD", "testpass")
	t.Setenv("FANBRIDGE_INFLUXDB_TOKEN", "secret-token")

	applyEnvOverrides(cfg)

	if cfg.Cloud.Email != "env@example.com" {
		t.Errorf("Cloud.Email = %q, want %q", cfg.Cloud.Email, "env@example.com")
	}

	if cfg.Cloud.Password != "env-pass" {
		t.Errorf("Cloud.Password = %q, want %q", cfg.Cloud.Password, "env-pass")
	}

	if cfg.Cloud.Server != "app-api-eu.dreo-cloud.com" {
		t.Errorf("Cloud.Server = %q, want %q", cfg.Cloud.Server, "app-api-eu.dreo-cloud.com")
	}

	if cfg.Database.Path != "/custom/path.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/custom/path.db")
	}

	if cfg.MQTT.Broker.Host != "mqtt.example.com" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "mqtt.example.com")
	}

	if cfg.MQTT.Broker.Port != 8883 {
		t.Errorf("MQTT.Broker.Port = %d, want 8883", cfg.MQTT.Broker.Port)
	}

	if cfg.MQTT.Auth.Username != "testuser" {
		t.Errorf("MQTT.Auth.Username = %q, want %q", cfg.MQTT.Auth.Username, "testuser")
	}

	if cfg.MQTT.Auth.Password != "testpass" {
		t.Errorf("MQTT.Auth.Password = %q, want %q", cfg.MQTT.Auth.Password, "testpass")
	}

	if cfg.InfluxDB.Token != "secret-token" {
		t.Errorf("InfluxDB.Token = %q, want %q", cfg.InfluxDB.Token, "secret-token")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Cloud.Server == "" {
		t.Error("defaultConfig should have non-empty Cloud.Server")
	}

	if cfg.Database.Path == "" {
		t.Error("defaultConfig should have non-empty Database.Path")
	}

	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("defaultConfig MQTT.Broker.Port = %d, want 1883", cfg.MQTT.Broker.Port)
	}

	if cfg.API.Port != 8321 {
		t.Errorf("defaultConfig API.Port = %d, want 8321", cfg.API.Port)
	}

	if cfg.Logging.Level != "info" {
		t.Errorf("defaultConfig Logging.Level = %q, want %q", cfg.Logging.Level, "info")
	}
}
