package accessory

import (
	"github.com/brutella/hap/accessory"
	"github.com/brutella/hap/characteristic"
	"github.com/brutella/hap/service"

	"github.com/fanbridge/fanbridge/internal/bridges/dreo"
)

// firmwareRevision is reported to the pairing controller.
const firmwareRevision = "1.0.0"

// Logger is the minimal logging interface the accessory layer needs.
// May be nil.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

// fanService is the Fan service with its characteristic set. SwingMode is
// present only on devices with an oscillation actuator; on everything else
// the characteristic does not exist, so controllers never show the toggle.
type fanService struct {
	*service.S

	On            *characteristic.On
	RotationSpeed *characteristic.RotationSpeed
	SwingMode     *characteristic.SwingMode
}

func newFanService(withSwing bool) *fanService {
	s := fanService{}
	s.S = service.New(service.TypeFan)

	s.On = characteristic.NewOn()
	s.AddC(s.On.C)

	s.RotationSpeed = characteristic.NewRotationSpeed()
	s.AddC(s.RotationSpeed.C)

	if withSwing {
		s.SwingMode = characteristic.NewSwingMode()
		s.AddC(s.SwingMode.C)
	}

	return &s
}

// Fan publishes one fan as a pairing accessory and wires its
// characteristics to the device's sync engine.
//
// Characteristic writes from a controller call into the engine's Set
// operations; inbound device changes flow back through UpdateFromState.
type Fan struct {
	// A is the accessory for server registration.
	A *accessory.A

	svc    *fanService
	bridge *dreo.Bridge
	logger Logger
}

// NewFan creates the accessory for one fan, seeded from the engine's
// current state snapshot.
//
// Returns:
//   - *Fan: Accessory ready for server registration
//   - error: ErrBridgeRequired if bridge is nil
func NewFan(bridge *dreo.Bridge, logger Logger) (*Fan, error) {
	if bridge == nil {
		return nil, ErrBridgeRequired
	}

	desc := bridge.Descriptor()
	a := accessory.New(accessory.Info{
		Name:         desc.Name,
		SerialNumber: desc.Serial,
		Manufacturer: "Dreo",
		Model:        desc.Model,
		Firmware:     firmwareRevision,
	}, accessory.TypeFan)

	svc := newFanService(desc.SupportsOscillation)
	a.AddS(svc.S)

	f := &Fan{
		A:      a,
		svc:    svc,
		bridge: bridge,
		logger: logger,
	}

	f.seed(bridge.State())
	f.wireHandlers()
	return f, nil
}

// Serial returns the device serial this accessory fronts.
func (f *Fan) Serial() string {
	return f.bridge.Serial()
}

// seed pushes the engine's snapshot into the characteristics so the
// controller sees real values immediately after pairing.
func (f *Fan) seed(state dreo.State) {
	f.svc.On.SetValue(state.Power)
	f.svc.RotationSpeed.SetValue(float64(state.SpeedPercent))
	if f.svc.SwingMode != nil {
		f.svc.SwingMode.SetValue(swingModeValue(state.Oscillating))
	}
}

// wireHandlers connects remote characteristic writes to the sync engine.
// Failures are logged and swallowed; a controller write must never crash
// the process, and the cache read-back will correct any drift.
func (f *Fan) wireHandlers() {
	f.svc.On.OnValueRemoteUpdate(func(on bool) {
		if err := f.bridge.SetPower(on); err != nil {
			f.logWarn("set power failed", "serial", f.bridge.Serial(), "error", err)
		}
	})

	f.svc.RotationSpeed.OnValueRemoteUpdate(func(percent float64) {
		if err := f.bridge.SetSpeed(int(percent)); err != nil {
			f.logWarn("set speed failed", "serial", f.bridge.Serial(), "error", err)
		}
	})

	if f.svc.SwingMode != nil {
		f.svc.SwingMode.OnValueRemoteUpdate(func(mode int) {
			on := mode == characteristic.SwingModeSwingEnabled
			if err := f.bridge.SetOscillation(on); err != nil {
				f.logWarn("set oscillation failed", "serial", f.bridge.Serial(), "error", err)
			}
		})
	}
}

// UpdateFromState pushes a state cache transition into the
// characteristics. SetValue updates the published value and notifies
// subscribed controllers without re-entering the remote update handlers,
// so there is no echo loop back into the engine.
func (f *Fan) UpdateFromState(state dreo.State) {
	f.svc.On.SetValue(state.Power)
	f.svc.RotationSpeed.SetValue(float64(state.SpeedPercent))
	if f.svc.SwingMode != nil {
		f.svc.SwingMode.SetValue(swingModeValue(state.Oscillating))
	}
}

func swingModeValue(oscillating bool) int {
	if oscillating {
		return characteristic.SwingModeSwingEnabled
	}
	return characteristic.SwingModeSwingDisabled
}

func (f *Fan) logWarn(msg string, args ...any) {
	if f.logger != nil {
		f.logger.Warn(msg, args...)
	}
}
