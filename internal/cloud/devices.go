package cloud

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fanbridge/fanbridge/internal/bridges/dreo"
	"github.com/fanbridge/fanbridge/internal/device"
)

// Fan is one enumerated fan: the immutable descriptor plus the state the
// cloud last heard from the device, used to seed the bridge's cache.
type Fan struct {
	Descriptor device.Descriptor
	Initial    dreo.State
}

// deviceRecord is one entry in the device list response.
type deviceRecord struct {
	Serial   string       `json:"devicesn"`
	Name     string       `json:"deviceName"`
	Model    string       `json:"model"`
	Controls controlsConf `json:"controlsConf"`
	State    deviceState  `json:"state"`
}

// controlsConf is the device's control metadata. SpeedLevels is the
// device-native maximum level; Oscillation reports whether the device has
// an oscillation actuator at all.
type controlsConf struct {
	SpeedLevels int  `json:"speedLevels"`
	Oscillation bool `json:"oscillation"`
}

// deviceState is the raw last-reported state, keyed the same way as the
// channel's report frames.
type deviceState struct {
	Power       bool `json:"power"`
	Level       int  `json:"level"`
	Oscillation bool `json:"oscillation"`
}

// deviceListData is the data payload of the device list response.
type deviceListData struct {
	Devices []deviceRecord `json:"list"`
}

// ListFans enumerates the account's fans.
//
// Devices that fail descriptor validation (missing serial, non-positive
// max level) are skipped rather than failing the whole enumeration; the
// caller decides whether an empty result is fatal.
//
// Parameters:
//   - ctx: Context for cancellation and deadline
//
// Returns:
//   - []Fan: Usable fans with initial state snapshots
//   - error: ErrNotAuthenticated before Login, ErrRequestFailed on API failure
func (c *Client) ListFans(ctx context.Context) ([]Fan, error) {
	if c.Token() == "" {
		return nil, ErrNotAuthenticated
	}

	data, err := c.get(ctx, deviceListPath)
	if err != nil {
		return nil, err
	}

	var list deviceListData
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("%w: decode device list: %w", ErrRequestFailed, err)
	}

	fans := make([]Fan, 0, len(list.Devices))
	for _, rec := range list.Devices {
		desc := device.Descriptor{
			Serial:              rec.Serial,
			Name:                rec.Name,
			Model:               rec.Model,
			MaxLevel:            rec.Controls.SpeedLevels,
			SupportsOscillation: rec.Controls.Oscillation,
		}
		if err := desc.Validate(); err != nil {
			continue
		}

		fans = append(fans, Fan{
			Descriptor: desc,
			Initial: dreo.State{
				Power:        rec.State.Power,
				SpeedPercent: dreo.PercentFromLevel(rec.State.Level, desc.MaxLevel),
				Oscillating:  rec.State.Oscillation,
			},
		})
	}

	return fans, nil
}
