package api

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fanbridge/fanbridge/internal/bridges/dreo"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
	maxSerialLen        = 64
)

// healthResponse is the /health payload.
type healthResponse struct {
	Status           string `json:"status"`
	Version          string `json:"version"`
	ChannelConnected bool   `json:"channel_connected"`
	MQTTConnected    *bool  `json:"mqtt_connected,omitempty"`
	DeviceCount      int    `json:"device_count"`
}

// deviceResponse is one fan in the device endpoints.
type deviceResponse struct {
	Serial              string     `json:"serial"`
	Name                string     `json:"name"`
	Model               string     `json:"model"`
	MaxLevel            int        `json:"max_level"`
	SupportsOscillation bool       `json:"supports_oscillation"`
	State               dreo.State `json:"state"`
}

// historyEntryResponse is one state history row.
type historyEntryResponse struct {
	Power        bool      `json:"power"`
	SpeedPercent int       `json:"speed_percent"`
	Oscillating  bool      `json:"oscillating"`
	Source       string    `json:"source"`
	RecordedAt   time.Time `json:"recorded_at"`
}

// handleHealth reports process and collaborator health. Degraded
// connectivity reports 200 with status "degraded"; monitoring reads the
// body, not the code.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{
		Status:      "ok",
		Version:     s.version,
		DeviceCount: len(s.mux.Bridges()),
	}

	if s.channel != nil {
		resp.ChannelConnected = s.channel.IsConnected()
		if !resp.ChannelConnected {
			resp.Status = "degraded"
		}
	}
	if s.broker != nil {
		connected := s.broker.IsConnected()
		resp.MQTTConnected = &connected
		if !connected {
			resp.Status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleListDevices returns every registered fan with its current state
// snapshot, in serial order.
func (s *Server) handleListDevices(w http.ResponseWriter, _ *http.Request) {
	bridges := s.mux.Bridges()
	sort.Slice(bridges, func(i, j int) bool {
		return bridges[i].Serial() < bridges[j].Serial()
	})

	devices := make([]deviceResponse, 0, len(bridges))
	for _, b := range bridges {
		devices = append(devices, deviceView(b))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"devices": devices,
		"count":   len(devices),
	})
}

// handleGetDevice returns one fan by serial.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	serial := chi.URLParam(r, "serial")
	if serial == "" || len(serial) > maxSerialLen {
		writeBadRequest(w, "invalid device serial")
		return
	}

	b, ok := s.mux.Lookup(serial)
	if !ok {
		writeNotFound(w, "device not found")
		return
	}

	writeJSON(w, http.StatusOK, deviceView(b))
}

// handleGetDeviceHistory returns state history entries for a fan, newest
// first.
func (s *Server) handleGetDeviceHistory(w http.ResponseWriter, r *http.Request) {
	serial := chi.URLParam(r, "serial")
	if serial == "" || len(serial) > maxSerialLen {
		writeBadRequest(w, "invalid device serial")
		return
	}

	if _, ok := s.mux.Lookup(serial); !ok {
		writeNotFound(w, "device not found")
		return
	}
	if s.history == nil {
		writeJSON(w, http.StatusOK, map[string]any{"entries": []historyEntryResponse{}, "count": 0})
		return
	}

	limit, err := parseHistoryLimit(r.URL.Query().Get("limit"))
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	entries, err := s.history.GetHistory(r.Context(), serial, limit)
	if err != nil {
		s.logger.Error("state history query failed", "serial", serial, "error", err)
		writeInternalError(w, "failed to load history")
		return
	}

	out := make([]historyEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, historyEntryResponse{
			Power:        e.State.Power,
			SpeedPercent: e.State.SpeedPercent,
			Oscillating:  e.State.Oscillating,
			Source:       e.Source,
			RecordedAt:   e.RecordedAt,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"entries": out,
		"count":   len(out),
	})
}

func deviceView(b *dreo.Bridge) deviceResponse {
	desc := b.Descriptor()
	return deviceResponse{
		Serial:              desc.Serial,
		Name:                desc.Name,
		Model:               desc.Model,
		MaxLevel:            desc.MaxLevel,
		SupportsOscillation: desc.SupportsOscillation,
		State:               b.State(),
	}
}

// parseHistoryLimit validates the limit query parameter.
func parseHistoryLimit(raw string) (int, error) {
	if raw == "" {
		return defaultHistoryLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return 0, fmt.Errorf("limit must be a positive integer")
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	return limit, nil
}
