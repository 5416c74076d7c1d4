//go:build rp2040 || rp2350

package pio

import (
	"machine"

	"tinygo.org/x/drivers/easystepper"
)

// Step count and speed handed to easystepper. The ramp decides when steps
// happen; these only make the driver's own wait between coil phases about
// a microsecond.
const (
	unipolarStepCount = 2048
	unipolarRPM       = 60_000_000 / unipolarStepCount
)

// UnipolarBackend drives a 4-coil motor such as the 28BYJ-48. Coils sit on
// four consecutive pins starting at the step pin; the direction pin is
// unused.
//
// easystepper sleeps between coil phases, so Step must not be called from
// an interrupt handler. The board loops dispatch timers from the main loop
// (core.ProcessTimers), which is the only supported way to run it.
type UnipolarBackend struct {
	dev       *easystepper.Device
	reverse   bool
	invertDir bool
}

func NewUnipolarBackend() *UnipolarBackend {
	return &UnipolarBackend{}
}

func (b *UnipolarBackend) Init(stepPin, dirPin uint8, invertStep, invertDir bool) error {
	dev, err := easystepper.New(easystepper.DeviceConfig{
		Pin1:      machine.Pin(stepPin),
		Pin2:      machine.Pin(stepPin + 1),
		Pin3:      machine.Pin(stepPin + 2),
		Pin4:      machine.Pin(stepPin + 3),
		StepCount: unipolarStepCount,
		RPM:       unipolarRPM,
	})
	if err != nil {
		return err
	}
	dev.Configure()
	b.dev = dev
	b.invertDir = invertDir
	return nil
}

// Step advances the coil sequence by one phase.
func (b *UnipolarBackend) Step() {
	if b.reverse {
		b.dev.Move(-1)
	} else {
		b.dev.Move(1)
	}
}

func (b *UnipolarBackend) SetDirection(dir bool) {
	b.reverse = dir != b.invertDir
}

// Stop de-energizes the coils.
func (b *UnipolarBackend) Stop() {
	if b.dev != nil {
		b.dev.Off()
	}
}

func (b *UnipolarBackend) Name() string { return "unipolar" }
