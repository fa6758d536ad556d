package mqtt

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/fanbridge/fanbridge/internal/infrastructure/config"
)

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
	keepAlive      = 60 * time.Second

	// disconnectQuiesceMs gives in-flight messages a moment to drain
	// before the socket closes.
	disconnectQuiesceMs = 1000

	maxQoS = 2
)

// Status values published on the system topic.
const (
	statusOnline  = "online"
	statusOffline = "offline"

	reasonShutdown = "graceful_shutdown"
	reasonLWT      = "connection_lost"
)

// brokerOptions translates the MQTT section of the config file into paho
// client options. Reconnection is delegated to paho: it retries with
// backoff between the configured initial and max delays, and the
// OnConnect handler restores our session state each time it succeeds.
func brokerOptions(cfg config.MQTTConfig) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()

	scheme := "tcp"
	if cfg.Broker.TLS {
		scheme = "ssl"
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}
	opts.AddBroker(fmt.Sprintf("%s://%s:%d", scheme, cfg.Broker.Host, cfg.Broker.Port))
	opts.SetClientID(cfg.Broker.ClientID)

	if cfg.Auth.Username != "" {
		opts.SetUsername(cfg.Auth.Username)
		opts.SetPassword(cfg.Auth.Password)
	}

	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(time.Duration(cfg.Reconnect.InitialDelay) * time.Second)
	opts.SetMaxReconnectInterval(time.Duration(cfg.Reconnect.MaxDelay) * time.Second)
	opts.SetConnectTimeout(connectTimeout)
	opts.SetKeepAlive(keepAlive)

	// The LWT is the broker's side of offline detection: if we vanish
	// without a DISCONNECT, subscribers still learn about it.
	opts.SetWill(Topics{}.SystemStatus(), string(statusPayload(statusOffline, cfg.Broker.ClientID, reasonLWT)), 1, true)

	return opts
}

// statusPayload builds the JSON body for system status messages. The
// reason field is empty for online announcements.
func statusPayload(status, clientID, reason string) []byte {
	body := struct {
		Status    string `json:"status"`
		ClientID  string `json:"client_id"`
		Reason    string `json:"reason,omitempty"`
		Timestamp string `json:"timestamp"`
	}{
		Status:    status,
		ClientID:  clientID,
		Reason:    reason,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return []byte(`{"status":"` + status + `"}`)
	}
	return payload
}
