// FanBridge - cloud fan to smart home bridge
//
// FanBridge connects Dreo cloud fans to a local smart home: each fan is
// published as a pairing accessory, mirrored onto MQTT topics, and
// recorded into a local state history. One websocket channel to the
// vendor cloud carries control and report traffic for every fan on the
// account.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/fanbridge/fanbridge/migrations"

	"github.com/fanbridge/fanbridge/internal/accessory"
	"github.com/fanbridge/fanbridge/internal/api"
	"github.com/fanbridge/fanbridge/internal/bridges/dreo"
	"github.com/fanbridge/fanbridge/internal/cloud"
	"github.com/fanbridge/fanbridge/internal/device"
	"github.com/fanbridge/fanbridge/internal/infrastructure/config"
	"github.com/fanbridge/fanbridge/internal/infrastructure/database"
	"github.com/fanbridge/fanbridge/internal/infrastructure/influxdb"
	"github.com/fanbridge/fanbridge/internal/infrastructure/logging"
	"github.com/fanbridge/fanbridge/internal/infrastructure/mqtt"
	"github.com/fanbridge/fanbridge/internal/mqttbridge"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// historyPruneInterval is how often expired state history rows are removed.
const historyPruneInterval = time.Hour

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting FanBridge",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	history := device.NewSQLiteStateHistoryRepository(db.DB)

	// Authenticate against the cloud and enumerate fans
	cloudClient, err := cloud.NewClient(cloud.Config{
		Email:    cfg.Cloud.Email,
		Password: cfg.Cloud.Password,
		Server:   cfg.Cloud.Server,
	})
	if err != nil {
		return fmt.Errorf("creating cloud client: %w", err)
	}
	if err := cloudClient.Login(ctx); err != nil {
		return fmt.Errorf("cloud login: %w", err)
	}
	log.Info("cloud login successful", "server", cfg.Cloud.Server)

	fans, err := cloudClient.ListFans(ctx)
	if err != nil {
		return fmt.Errorf("enumerating devices: %w", err)
	}
	if len(fans) == 0 {
		return fmt.Errorf("no usable fans on account")
	}
	log.Info("devices enumerated", "fans", len(fans))

	// Open the websocket channel. The mux owns the channel's single
	// message callback for the channel's whole lifetime; reconnects
	// happen inside the channel and bridges are never re-registered.
	channel, err := cloud.DialChannel(ctx, cloud.ChannelConfig{
		Server:               cfg.Cloud.Server,
		TokenSource:          cloudClient.Token,
		ReconnectInterval:    time.Duration(cfg.Cloud.Reconnect.InitialDelay) * time.Second,
		MaxReconnectInterval: time.Duration(cfg.Cloud.Reconnect.MaxDelay) * time.Second,
	})
	if err != nil {
		return fmt.Errorf("opening cloud channel: %w", err)
	}
	defer func() {
		log.Info("closing cloud channel")
		if closeErr := channel.Close(); closeErr != nil {
			log.Error("error closing channel", "error", closeErr)
		}
	}()
	channel.SetLogger(log)
	log.Info("cloud channel connected")

	// Per-device sync engines behind a serial-routing mux
	mux := dreo.NewMux(log)
	channel.SetOnMessage(mux.HandleMessage)

	hkFans := make([]*accessory.Fan, 0, len(fans))
	for _, fan := range fans {
		bridge, bridgeErr := dreo.NewBridge(dreo.Options{
			Descriptor: fan.Descriptor,
			Channel:    channel,
			Initial:    fan.Initial,
			Logger:     log,
		})
		if bridgeErr != nil {
			return fmt.Errorf("creating bridge for %s: %w", fan.Descriptor.Serial, bridgeErr)
		}
		defer bridge.Close()

		if regErr := mux.Register(bridge); regErr != nil {
			return fmt.Errorf("registering %s: %w", fan.Descriptor.Serial, regErr)
		}

		hkFan, hkErr := accessory.NewFan(bridge, log)
		if hkErr != nil {
			return fmt.Errorf("creating accessory for %s: %w", fan.Descriptor.Serial, hkErr)
		}
		hkFans = append(hkFans, hkFan)

		log.Info("fan registered",
			"serial", fan.Descriptor.Serial,
			"name", fan.Descriptor.Name,
			"max_level", fan.Descriptor.MaxLevel,
			"oscillation", fan.Descriptor.SupportsOscillation,
		)
	}

	// Connect to MQTT broker (optional)
	var mqttClient *mqtt.Client
	var mqttSurface *mqttbridge.Bridge
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log)
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		mqttSurface, err = mqttbridge.New(mqttbridge.Options{
			Client: mqttClient,
			Mux:    mux,
			QoS:    byte(cfg.MQTT.QoS),
			Logger: log,
		})
		if err != nil {
			return fmt.Errorf("creating MQTT surface: %w", err)
		}
		if err := mqttSurface.Start(); err != nil {
			return fmt.Errorf("starting MQTT surface: %w", err)
		}
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Fan out state cache transitions to every observer. Registered once
	// per bridge; callbacks fire outside the engine's operation lock.
	fansBySerial := make(map[string]*accessory.Fan, len(hkFans))
	for _, f := range hkFans {
		fansBySerial[f.Serial()] = f
	}
	for _, bridge := range mux.Bridges() {
		bridge.SetOnStateChange(stateChangeFanout(ctx, fansBySerial, mqttSurface, history, influxClient, log))
	}

	// Publish accessories over the pairing protocol
	hkServer, err := accessory.NewServer(accessory.ServerOptions{
		Pin:        cfg.HomeKit.Pin,
		StorageDir: cfg.HomeKit.StorageDir,
		Fans:       hkFans,
		Logger:     log,
	})
	if err != nil {
		return fmt.Errorf("creating accessory server: %w", err)
	}
	go func() {
		if serveErr := hkServer.Run(ctx); serveErr != nil {
			log.Error("accessory server error", "error", serveErr)
		}
	}()
	log.Info("accessory server started", "pin", cfg.HomeKit.Pin)

	// Start status API (optional)
	if cfg.API.Enabled {
		apiServer, apiErr := api.New(api.Deps{
			Config:  cfg.API,
			Logger:  log,
			Mux:     mux,
			History: history,
			Channel: channel,
			Broker:  brokerHealth(mqttClient),
			Version: version,
		})
		if apiErr != nil {
			return fmt.Errorf("creating API server: %w", apiErr)
		}
		if startErr := apiServer.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			if closeErr := apiServer.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
		log.Info("API server started", "host", cfg.API.Host, "port", cfg.API.Port)
	} else {
		log.Info("API server disabled")
	}

	// Prune expired history rows in the background
	if retention := cfg.HistoryRetention(); retention > 0 {
		go pruneHistoryLoop(ctx, history, retention, log)
	}

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, channel, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	log.Info("FanBridge stopped")
	return nil
}

// stateChangeFanout builds the engine's state change callback: mirror to
// the accessory characteristics, the retained MQTT state topic, the
// history table, and telemetry. Each leg is independent; one failing leg
// never blocks the others.
func stateChangeFanout(
	ctx context.Context,
	fans map[string]*accessory.Fan,
	mqttSurface *mqttbridge.Bridge,
	history device.StateHistoryRepository,
	influxClient *influxdb.Client,
	log *logging.Logger,
) func(dreo.StateChange) {
	return func(change dreo.StateChange) {
		if fan, ok := fans[change.Serial]; ok {
			fan.UpdateFromState(change.State)
		}

		if mqttSurface != nil {
			mqttSurface.PublishState(change)
		}

		if history != nil {
			snapshot := device.StateSnapshot{
				Power:        change.State.Power,
				SpeedPercent: change.State.SpeedPercent,
				Oscillating:  change.State.Oscillating,
			}
			if err := history.RecordStateChange(ctx, change.Serial, snapshot, string(change.Source)); err != nil {
				log.Warn("state history write failed", "serial", change.Serial, "error", err)
			}
		}

		if influxClient != nil {
			influxClient.WriteFanState(change.Serial,
				change.State.Power, change.State.SpeedPercent, change.State.Oscillating,
				string(change.Source))
		}
	}
}

// pruneHistoryLoop periodically deletes state history older than the
// configured retention.
func pruneHistoryLoop(ctx context.Context, history *device.SQLiteStateHistoryRepository, retention time.Duration, log *logging.Logger) {
	ticker := time.NewTicker(historyPruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := history.PruneHistory(ctx, retention)
			if err != nil {
				log.Warn("history prune failed", "error", err)
				continue
			}
			if deleted > 0 {
				log.Info("history pruned", "rows", deleted)
			}
		}
	}
}

// brokerHealth adapts the optional MQTT client for the API's health
// endpoint; a nil client stays nil so the endpoint omits the field.
func brokerHealth(client *mqtt.Client) api.HealthChecker {
	if client == nil {
		return nil
	}
	return client
}

// getConfigPath returns the configuration file path.
// Uses FANBRIDGE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("FANBRIDGE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - channel: Cloud channel to check
//   - mqttClient: MQTT client to check (may be nil if disabled)
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, channel *cloud.Channel, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if err := channel.HealthCheck(ctx); err != nil {
		return fmt.Errorf("cloud channel: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
