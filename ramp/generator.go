package ramp

import "stepgen/fixed"

// Generator yields the delay before each step pulse of one move. It is
// owned by a single caller: Next, NextAt and the retarget methods must not
// run concurrently. Next and NextAt do not allocate.
type Generator[T fixed.Num[T]] struct {
	mode    Mode
	profile ProfileKind

	currentStep uint32
	targetStep  uint32
	accelSteps  uint32

	currentDelay T
	firstDelay   T
	targetDelay  T

	// Cruise lock: the cruise delay in ticks, valid while cruising.
	cruiseTicks uint32
	cruising    bool

	started       bool
	startTime     uint64
	duration      uint64
	accelDuration uint64

	accelDone bool
	done      bool

	// Sigmoid profile.
	alpha     float64
	rampTicks float64
	elapsed   float64

	// Set when built from a Request; SetTargetSpeed needs both.
	timerFreq   uint32
	stepsPerRev uint32
}

// Next returns the delay in ticks before the next step, or ok == false once
// the move is complete. A duration-mode generator has no clock here and
// aborts.
func (g *Generator[T]) Next() (delay uint32, ok bool) {
	if g.done {
		return 0, false
	}
	if g.mode == DurationMode {
		return g.stop()
	}
	return g.nextStep()
}

// NextAt is Next with a clock reading, which duration mode requires. Step
// mode ignores now.
func (g *Generator[T]) NextAt(now uint64) (delay uint32, ok bool) {
	if g.done {
		return 0, false
	}
	if g.mode == StepMode {
		return g.nextStep()
	}
	return g.nextDuration(now)
}

// SetStepTarget moves the end of the move. A target at or behind the
// current step stops the motor as soon as the ramp allows.
func (g *Generator[T]) SetStepTarget(n uint32) error {
	if g.mode == DurationMode {
		return ErrDurationMode
	}
	g.targetStep = n
	g.cruising = false
	return nil
}

// SoftStop retargets to the nearest step at which the ramp comes to rest.
// Before the first step it ends the move outright.
func (g *Generator[T]) SoftStop() error {
	if g.mode == DurationMode {
		return ErrDurationMode
	}
	if g.currentStep == 0 {
		g.targetStep = 0
		g.done = true
		return nil
	}
	stopAt := uint64(g.currentStep) + uint64(g.accelSteps)
	if stopAt < uint64(g.targetStep) {
		g.targetStep = uint32(stopAt)
	}
	g.cruising = false
	return nil
}

// SetTargetSpeed changes the cruise speed of a move built from a Request.
func (g *Generator[T]) SetTargetSpeed(rpm uint32) error {
	if g.mode == DurationMode {
		return ErrDurationMode
	}
	if rpm == 0 {
		return ErrZeroTargetSpeed
	}
	if g.stepsPerRev == 0 || g.timerFreq == 0 {
		return ErrZeroStepsPerRevolution
	}
	return g.retargetDelay(cruiseDelay(g.timerFreq, g.stepsPerRev, rpm))
}

// SetTargetDelay changes the cruise delay, in ticks.
func (g *Generator[T]) SetTargetDelay(ticks uint32) error {
	if g.mode == DurationMode {
		return ErrDurationMode
	}
	if ticks == 0 {
		return ErrZeroTargetSpeed
	}
	return g.retargetDelay(fixed.WideInt(ticks))
}

func (g *Generator[T]) retargetDelay(w fixed.Wide) error {
	var z T
	if w.Float() > z.Max() {
		return ErrDelayOutOfRange
	}
	g.targetDelay = z.FromWide(w)
	if g.firstDelay.Less(g.targetDelay) {
		g.firstDelay = g.targetDelay
	}
	g.cruising = false
	return nil
}

// CurrentStep is the number of delays emitted so far.
func (g *Generator[T]) CurrentStep() uint32 { return g.currentStep }

// TargetStep is the step count the move ends at. Zero in duration mode.
func (g *Generator[T]) TargetStep() uint32 { return g.targetStep }

func (g *Generator[T]) IsCruising() bool { return g.cruising }

// AccelerationSteps is the recurrence index: the number of steps the
// motor needs to come to rest from its current speed.
func (g *Generator[T]) AccelerationSteps() uint32 { return g.accelSteps }

// AccelerationDuration is the clock time spent accelerating, duration mode only.
func (g *Generator[T]) AccelerationDuration() uint64 { return g.accelDuration }

func (g *Generator[T]) IsAccelerationDone() bool { return g.accelDone }

func (g *Generator[T]) CurrentDelay() T { return g.currentDelay }
func (g *Generator[T]) FirstDelay() T   { return g.firstDelay }
func (g *Generator[T]) TargetDelay() T  { return g.targetDelay }
func (g *Generator[T]) Mode() Mode      { return g.mode }

// Profile is the ramp shape and, for sigmoid ramps, the alpha in use.
func (g *Generator[T]) Profile() Profile {
	return Profile{Kind: g.profile, Alpha: g.alpha}
}

// Done reports whether the move has ended. It never resets.
func (g *Generator[T]) Done() bool { return g.done }
