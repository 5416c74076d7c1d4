//go:build rp2040 || rp2350

package main

// Ramp scope test: runs fixed moves back and forth without a host.
// Watch step and dir on an oscilloscope; each move should show the pulse
// rate climbing, holding, then falling.

import (
	"machine"
	"time"

	"stepgen/core"
	"stepgen/ramp"
	piostepper "stepgen/targets/pio"
)

const (
	stepPin = machine.GPIO2
	dirPin  = machine.GPIO3
)

var moves = []struct {
	name string
	req  ramp.Request
}{
	{"trapezoid 600rpm", ramp.Request{
		TargetSpeed: 600, Acceleration: 3000, StepsPerRevolution: 200,
		Target: ramp.Steps(4000), Profile: ramp.Trapezoid(),
	}},
	{"sigmoid 600rpm", ramp.Request{
		TargetSpeed: 600, Acceleration: 3000, StepsPerRevolution: 200,
		Target: ramp.Steps(4000), Profile: ramp.SigmoidTolerance(core.DefaultSigmoidTolerance),
	}},
	{"timed 2s", ramp.Request{
		TargetSpeed: 300, Acceleration: 1500, StepsPerRevolution: 200,
		Target: ramp.Duration(2_000_000), Profile: ramp.Trapezoid(),
	}},
}

func main() {
	time.Sleep(3 * time.Second)

	led := machine.LED
	led.Configure(machine.PinConfig{Mode: machine.PinOutput})

	println("=== Ramp Scope Test ===")
	println("Step: GP2, Dir: GP3")

	core.SetTimerFrequency(1_000_000)
	backend := piostepper.NewPIOStepperBackend(0, 0)
	stepper, err := core.NewRampStepper(0, uint8(stepPin), uint8(dirPin), false, backend)
	if err != nil {
		println("Init error:", err.Error())
		for {
			led.High()
			time.Sleep(100 * time.Millisecond)
			led.Low()
			time.Sleep(100 * time.Millisecond)
		}
	}
	println("Init OK!")

	start := time.Now()
	reverse := false
	for cycle := 1; ; cycle++ {
		println("\n=== Cycle", cycle, "===")
		for _, m := range moves {
			println(m.name)
			led.High()
			core.SetTime(uint64(time.Since(start).Microseconds()))
			if err := stepper.Start(m.req, reverse); err != nil {
				println("  start failed:", err.Error())
				continue
			}
			for stepper.IsActive() {
				core.SetTime(uint64(time.Since(start).Microseconds()))
				core.ProcessTimers()
			}
			led.Low()
			st := stepper.Status()
			println("  steps:", st.Step, "accel steps:", st.AccelSteps, "position:", stepper.Position())
			reverse = !reverse
			time.Sleep(500 * time.Millisecond)
		}
	}
}
