package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// measurementFanState is the measurement holding one point per fan state
// transition.
const measurementFanState = "fan_state"

// WriteFanState records a fan state transition. Points are tagged by
// serial and by source ("report" for device-confirmed state, "command"
// for optimistic writes), so dashboards can graph each fan and separate
// what the device said from what the bridge assumed.
//
// Non-blocking: the point joins the current batch and any failure
// surfaces later through the SetOnError callback. Dropped silently when
// the client is closed.
func (c *Client) WriteFanState(serial string, power bool, speedPercent int, oscillating bool, source string) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		measurementFanState,
		map[string]string{
			"serial": serial,
			"source": source,
		},
		map[string]interface{}{
			"power":         power,
			"speed_percent": speedPercent,
			"oscillating":   oscillating,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}
