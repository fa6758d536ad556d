package dreo

import (
	"encoding/json"
	"fmt"
	"time"
)

// Wire methods exchanged on the cloud channel.
// Control flows outbound; the three report methods flow inbound.
const (
	// MethodControl is the outbound partial-update command frame.
	MethodControl = "control"

	// MethodControlReport is an inbound echo of a control the cloud relayed.
	MethodControlReport = "control-report"

	// MethodControlReply is an inbound acknowledgment of a sent control.
	MethodControlReply = "control-reply"

	// MethodReport is an unsolicited inbound state notification.
	MethodReport = "report"
)

// Recognized keys in a report's "reported" mapping. The protocol delivers
// single-key deltas; anything else is logged and dropped.
const (
	KeyPower       = "power"
	KeyLevel       = "level"
	KeyOscillation = "oscillation"
)

// ControlParams is the partial-update body of a control frame. Only fields
// being changed are present on the wire.
type ControlParams struct {
	Power       *bool `json:"power,omitempty"`
	Level       *int  `json:"level,omitempty"`
	Oscillation *bool `json:"oscillation,omitempty"`
}

// ControlMessage is an outbound command frame.
//
// Wire shape:
//
//	{"devicesn":"...","method":"control","params":{"power":true,"level":3},"timestamp":1700000000000}
type ControlMessage struct {
	// Serial is the target device's serial number.
	Serial string `json:"devicesn"`

	// Method is always "control" for outbound frames.
	Method string `json:"method"`

	// Params carries the fields being changed.
	Params ControlParams `json:"params"`

	// Timestamp is the send time in epoch milliseconds.
	Timestamp int64 `json:"timestamp"`
}

// NewControlMessage builds a control frame for the given serial, stamped
// with the current wall clock.
func NewControlMessage(serial string, params ControlParams) ControlMessage {
	return ControlMessage{
		Serial:    serial,
		Method:    MethodControl,
		Params:    params,
		Timestamp: time.Now().UnixMilli(),
	}
}

// ReportMessage is an inbound frame as parsed off the channel. Reported
// values stay raw until the owning bridge inspects them, so unknown keys
// can be logged without failing the frame.
type ReportMessage struct {
	// Serial identifies which device the frame describes. Frames for other
	// serials share the channel and are routed or dropped by the mux.
	Serial string `json:"devicesn"`

	// Method is one of the three report methods, or something unrecognized
	// (in which case the frame is ignored).
	Method string `json:"method"`

	// Reported is the single-key delta mapping.
	Reported map[string]json.RawMessage `json:"reported"`
}

// ParseReportMessage decodes an inbound frame.
//
// Returns:
//   - ReportMessage: the parsed frame
//   - error: ErrInvalidMessage (wrapped) if the payload is not valid JSON
//     or carries no serial
func ParseReportMessage(payload []byte) (ReportMessage, error) {
	var msg ReportMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return ReportMessage{}, fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}
	if msg.Serial == "" {
		return ReportMessage{}, fmt.Errorf("%w: missing devicesn", ErrInvalidMessage)
	}
	return msg, nil
}

// IsReportMethod reports whether the method is one of the three recognized
// inbound report methods.
func IsReportMethod(method string) bool {
	switch method {
	case MethodControlReport, MethodControlReply, MethodReport:
		return true
	default:
		return false
	}
}
