package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/fanbridge/fanbridge/internal/infrastructure/config"
)

// testConfig returns a valid MQTT configuration for testing.
func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "fanbridge-test",
			TLS:      false,
		},
		Auth: config.MQTTAuthConfig{
			Username: "",
			Password: "",
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

// =============================================================================
// Topic Builder Tests
// =============================================================================

func TestTopicBuilders(t *testing.T) {
	serial := "1582290600a34f40"

	tests := []struct {
		name     string
		builder  func() string
		expected string
	}{
		{
			name:     "FanState",
			builder:  func() string { return Topics{}.FanState(serial) },
			expected: "fanbridge/state/1582290600a34f40",
		},
		{
			name:     "FanCommand",
			builder:  func() string { return Topics{}.FanCommand(serial) },
			expected: "fanbridge/command/1582290600a34f40",
		},
		{
			name:     "FanAck",
			builder:  func() string { return Topics{}.FanAck(serial) },
			expected: "fanbridge/ack/1582290600a34f40",
		},
		{
			name:     "SystemStatus",
			builder:  func() string { return Topics{}.SystemStatus() },
			expected: "fanbridge/system/status",
		},
		{
			name:     "AllFanCommands",
			builder:  func() string { return Topics{}.AllFanCommands() },
			expected: "fanbridge/command/+",
		},
		{
			name:     "AllFanStates",
			builder:  func() string { return Topics{}.AllFanStates() },
			expected: "fanbridge/state/+",
		},
		{
			name:     "AllTopics",
			builder:  func() string { return Topics{}.AllTopics() },
			expected: "fanbridge/#",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.builder()
			if result != tt.expected {
				t.Errorf("%s() = %q, want %q", tt.name, result, tt.expected)
			}
		})
	}
}

// =============================================================================
// Options Tests
// =============================================================================

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.Username = "bridge"
	cfg.Auth.Password = "secret"

	opts := brokerOptions(cfg)

	if len(opts.Servers) != 1 {
		t.Fatalf("expected 1 broker URL, got %d", len(opts.Servers))
	}
	if got := opts.Servers[0].String(); got != "tcp://127.0.0.1:1883" {
		t.Errorf("broker URL = %q, want %q", got, "tcp://127.0.0.1:1883")
	}
	if opts.ClientID != "fanbridge-test" {
		t.Errorf("ClientID = %q, want %q", opts.ClientID, "fanbridge-test")
	}
	if opts.Username != "bridge" {
		t.Errorf("Username = %q, want %q", opts.Username, "bridge")
	}
}

func TestBuildClientOptions_TLS(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.TLS = true
	cfg.Broker.Port = 8883

	opts := brokerOptions(cfg)

	if got := opts.Servers[0].Scheme; got != "ssl" {
		t.Errorf("broker scheme = %q, want %q", got, "ssl")
	}
	if opts.TLSConfig == nil {
		t.Fatal("expected TLS config to be set")
	}
}

func TestStatusPayloads(t *testing.T) {
	for name, payload := range map[string][]byte{
		"online":  statusPayload(statusOnline, "fanbridge-test", ""),
		"offline": statusPayload(statusOffline, "fanbridge-test", reasonShutdown),
	} {
		var decoded map[string]string
		if err := json.Unmarshal(payload, &decoded); err != nil {
			t.Fatalf("%s payload is not valid JSON: %v", name, err)
		}
		if decoded["status"] != name {
			t.Errorf("%s payload status = %q, want %q", name, decoded["status"], name)
		}
		if decoded["client_id"] != "fanbridge-test" {
			t.Errorf("%s payload client_id = %q, want %q", name, decoded["client_id"], "fanbridge-test")
		}
		if decoded["timestamp"] == "" {
			t.Errorf("%s payload missing timestamp", name)
		}
	}

	if online := statusPayload(statusOnline, "x", ""); strings.Contains(string(online), "reason") {
		t.Error("online payload should omit the reason field")
	}
	if offline := statusPayload(statusOffline, "x", reasonShutdown); !strings.Contains(string(offline), "graceful_shutdown") {
		t.Error("graceful offline payload should carry a graceful_shutdown reason")
	}
}

// =============================================================================
// Disconnected Client Tests
// =============================================================================

func TestCloseNil(t *testing.T) {
	client := &Client{}
	if err := client.Close(); err != nil {
		t.Errorf("Close() on nil client error = %v, want nil", err)
	}
}

func TestIsConnected_InitialState(t *testing.T) {
	client := &Client{}

	if client.IsConnected() {
		t.Error("IsConnected() should be false for uninitialised client")
	}
}

func TestHealthCheckCancelled(t *testing.T) {
	client := &Client{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Cancel immediately

	if err := client.HealthCheck(ctx); err == nil {
		t.Error("HealthCheck() expected error for cancelled context")
	}
}

func TestHealthCheckDisconnected(t *testing.T) {
	client := &Client{}

	err := client.HealthCheck(context.Background())
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
}

func TestPublishValidation(t *testing.T) {
	client := &Client{cfg: testConfig()}

	tests := []struct {
		name    string
		topic   string
		payload []byte
		qos     byte
		wantErr error
	}{
		{
			name:    "empty topic",
			topic:   "",
			payload: []byte("x"),
			qos:     1,
			wantErr: ErrInvalidTopic,
		},
		{
			name:    "invalid qos",
			topic:   "fanbridge/state/FAN-001",
			payload: []byte("x"),
			qos:     3,
			wantErr: ErrInvalidQoS,
		},
		{
			name:    "oversized payload",
			topic:   "fanbridge/state/FAN-001",
			payload: make([]byte, maxPayloadSize+1),
			qos:     1,
			wantErr: ErrPublishFailed,
		},
		{
			name:    "not connected",
			topic:   "fanbridge/state/FAN-001",
			payload: []byte("x"),
			qos:     1,
			wantErr: ErrNotConnected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := client.Publish(tt.topic, tt.payload, tt.qos, false)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Publish() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSubscribeValidation(t *testing.T) {
	client := &Client{
		cfg:           testConfig(),
		subs: make(map[string]sub),
	}
	handler := func(string, []byte) error { return nil }

	if err := client.Subscribe("", 1, handler); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Subscribe() empty topic error = %v, want ErrInvalidTopic", err)
	}
	if err := client.Subscribe("fanbridge/command/+", 3, handler); !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("Subscribe() invalid qos error = %v, want ErrInvalidQoS", err)
	}
	if err := client.Subscribe("fanbridge/command/+", 1, nil); !errors.Is(err, ErrSubscribeFailed) {
		t.Errorf("Subscribe() nil handler error = %v, want ErrSubscribeFailed", err)
	}
	if err := client.Subscribe("fanbridge/command/+", 1, handler); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Subscribe() disconnected error = %v, want ErrNotConnected", err)
	}
}

func TestUnsubscribeValidation(t *testing.T) {
	client := &Client{
		cfg:           testConfig(),
		subs: make(map[string]sub),
	}

	if err := client.Unsubscribe(""); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Unsubscribe() empty topic error = %v, want ErrInvalidTopic", err)
	}
	if err := client.Unsubscribe("fanbridge/command/+"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Unsubscribe() disconnected error = %v, want ErrNotConnected", err)
	}
}

func TestSubscriptionTracking_Empty(t *testing.T) {
	client := &Client{}

	if client.SubscriptionCount() != 0 {
		t.Errorf("SubscriptionCount() = %d, want 0", client.SubscriptionCount())
	}
	if client.HasSubscription("nonexistent/topic") {
		t.Error("HasSubscription() should be false for unsubscribed topic")
	}
}

// =============================================================================
// Logger Tests
// =============================================================================

func TestSetLogger(t *testing.T) {
	client := &Client{}

	logger := &mockLogger{}
	client.SetLogger(logger)

	if client.getLogger() == nil {
		t.Error("getLogger() = nil after SetLogger()")
	}

	client.SetLogger(nil)

	if client.getLogger() != nil {
		t.Error("getLogger() should be nil after SetLogger(nil)")
	}
}

func TestWrapHandler_PanicRecovery(t *testing.T) {
	client := &Client{}
	logger := &mockLogger{}
	client.SetLogger(logger)

	wrapped := client.recoverHandler(func(string, []byte) error {
		panic("handler exploded")
	})

	// Must not propagate the panic
	wrapped(nil, &fakeMessage{topic: "fanbridge/command/FAN-001", payload: []byte("{}")})

	logger.mu.Lock()
	defer logger.mu.Unlock()
	if len(logger.errors) != 1 {
		t.Errorf("expected 1 logged error after panic, got %d", len(logger.errors))
	}
}

func TestWrapHandler_ErrorLogged(t *testing.T) {
	client := &Client{}
	logger := &mockLogger{}
	client.SetLogger(logger)

	wrapped := client.recoverHandler(func(string, []byte) error {
		return errors.New("bad payload")
	})

	wrapped(nil, &fakeMessage{topic: "fanbridge/command/FAN-001", payload: []byte("{}")})

	logger.mu.Lock()
	defer logger.mu.Unlock()
	if len(logger.warns) != 1 {
		t.Errorf("expected 1 logged warning for handler error, got %d", len(logger.warns))
	}
}

// mockLogger implements Logger interface for testing.
type mockLogger struct {
	errors []string
	warns  []string
	mu     sync.Mutex
}

func (l *mockLogger) Error(msg string, args ...any) {
	l.mu.Lock()
	l.errors = append(l.errors, msg)
	l.mu.Unlock()
}

func (l *mockLogger) Warn(msg string, args ...any) {
	l.mu.Lock()
	l.warns = append(l.warns, msg)
	l.mu.Unlock()
}

// fakeMessage implements the subset of paho's Message used by recoverHandler.
type fakeMessage struct {
	topic   string
	payload []byte
}

func (m *fakeMessage) Duplicate() bool   { return false }
func (m *fakeMessage) Qos() byte         { return 1 }
func (m *fakeMessage) Retained() bool    { return false }
func (m *fakeMessage) Topic() string     { return m.topic }
func (m *fakeMessage) MessageID() uint16 { return 0 }
func (m *fakeMessage) Payload() []byte   { return m.payload }
func (m *fakeMessage) Ack()              {}
