//go:build rp2040 || rp2350

package pio

import (
	"device/arm"
	"device/rp"
	"machine"
	"runtime/volatile"
)

// GPIOStepperBackend drives step and direction through the SIO set and
// clear registers from the step timer. It needs no PIO resources.
type GPIOStepperBackend struct {
	stepPin machine.Pin
	dirPin  machine.Pin

	// With inversion the set and clear registers swap roles.
	stepOn  *volatile.Register32
	stepOff *volatile.Register32
	dirFwd  *volatile.Register32
	dirRev  *volatile.Register32

	stepMask uint32
	dirMask  uint32
}

func NewGPIOStepperBackend() *GPIOStepperBackend {
	return &GPIOStepperBackend{}
}

func (b *GPIOStepperBackend) Init(stepPin, dirPin uint8, invertStep, invertDir bool) error {
	b.stepPin = machine.Pin(stepPin)
	b.dirPin = machine.Pin(dirPin)
	b.stepMask = 1 << stepPin
	b.dirMask = 1 << dirPin

	set, clr := &rp.SIO.GPIO_OUT_SET, &rp.SIO.GPIO_OUT_CLR
	b.stepOn, b.stepOff = set, clr
	if invertStep {
		b.stepOn, b.stepOff = clr, set
	}
	b.dirRev, b.dirFwd = set, clr
	if invertDir {
		b.dirRev, b.dirFwd = clr, set
	}

	b.stepPin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	b.dirPin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	b.stepOff.Set(b.stepMask)
	b.dirFwd.Set(b.dirMask)
	return nil
}

// Step emits one pulse of about 100ns, the minimum Trinamic drivers need.
func (b *GPIOStepperBackend) Step() {
	b.stepOn.Set(b.stepMask)
	// 13 NOPs at 125MHz
	arm.Asm("nop\nnop\nnop\nnop\nnop\nnop\nnop\nnop\nnop\nnop\nnop\nnop\nnop")
	b.stepOff.Set(b.stepMask)
}

// SetDirection includes the dir-to-step setup time.
func (b *GPIOStepperBackend) SetDirection(dir bool) {
	if dir {
		b.dirRev.Set(b.dirMask)
	} else {
		b.dirFwd.Set(b.dirMask)
	}
	// 20ns minimum for TMC2209
	arm.Asm("nop\nnop\nnop")
}

// Stop leaves the step output idle.
func (b *GPIOStepperBackend) Stop() {
	b.stepOff.Set(b.stepMask)
}

func (b *GPIOStepperBackend) Name() string { return "GPIO" }
