package core

// StepperBackend drives the step and direction outputs of one motor.
// Implementations use GPIO, PIO or a coil sequencer.
type StepperBackend interface {
	Init(stepPin, dirPin uint8, invertStep, invertDir bool) error

	// Step emits one pulse. Called from the step timer, so it must be
	// fast; timers run from ProcessTimers in the main loop, not from an
	// interrupt.
	Step()

	// SetDirection selects reverse when dir is true.
	SetDirection(dir bool)

	// Stop halts any pulse in flight and releases the outputs.
	Stop()

	Name() string
}

var stepperBackendFactory func() StepperBackend

// SetStepperBackendFactory sets how ConfigRampStepper creates backends.
// Board code calls it during init.
func SetStepperBackendFactory(factory func() StepperBackend) {
	stepperBackendFactory = factory
}
