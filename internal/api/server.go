// Package api provides the read-only HTTP status API for FanBridge.
//
// It exposes the device list with live state snapshots, per-device state
// history, and a health endpoint reporting cloud channel and broker
// connectivity. There are no write endpoints; control flows through the
// pairing protocol and the MQTT command topics.
//
// The server follows the same lifecycle pattern as the other
// infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/fanbridge/fanbridge/internal/bridges/dreo"
	"github.com/fanbridge/fanbridge/internal/device"
	"github.com/fanbridge/fanbridge/internal/infrastructure/config"
	"github.com/fanbridge/fanbridge/internal/infrastructure/logging"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight
// requests to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// HealthChecker reports the connectivity of an upstream collaborator.
type HealthChecker interface {
	IsConnected() bool
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config  config.APIConfig
	Logger  *logging.Logger
	Mux     *dreo.Mux
	History device.StateHistoryRepository

	// Channel reports cloud websocket connectivity for /health. Optional.
	Channel HealthChecker

	// Broker reports MQTT connectivity for /health. Optional; nil when
	// the MQTT surface is disabled.
	Broker HealthChecker

	Version string
}

// Server is the HTTP status API server.
type Server struct {
	cfg     config.APIConfig
	logger  *logging.Logger
	mux     *dreo.Mux
	history device.StateHistoryRepository
	channel HealthChecker
	broker  HealthChecker
	version string
	server  *http.Server
}

// New creates the API server. It does not listen until Start is called.
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("api: logger is required")
	}
	if deps.Mux == nil {
		return nil, fmt.Errorf("api: device mux is required")
	}

	return &Server{
		cfg:     deps.Config,
		logger:  deps.Logger,
		mux:     deps.Mux,
		history: deps.History,
		channel: deps.Channel,
		broker:  deps.Broker,
		version: deps.Version,
	}, nil
}

// Start begins listening for HTTP connections in a background goroutine.
//
// Parameters:
//   - ctx: Context for cancellation (not used for listener lifetime)
//
// Returns:
//   - error: If the server fails to start
func (s *Server) Start(_ context.Context) error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       s.cfg.GetReadTimeout(),
		ReadHeaderTimeout: s.cfg.GetReadTimeout(),
		WriteTimeout:      s.cfg.GetWriteTimeout(),
		IdleTimeout:       s.cfg.GetIdleTimeout(),
	}

	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server, waiting up to 10 seconds
// for in-flight requests.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}
