package ramp

import (
	"math"

	"stepgen/fixed"
)

// New validates req, derives the ramp bounds and returns a generator ready
// to emit its first delay.
func New[T fixed.Num[T]](req Request) (*Generator[T], error) {
	switch {
	case req.Acceleration == 0:
		return nil, ErrZeroAcceleration
	case req.TargetSpeed == 0:
		return nil, ErrZeroTargetSpeed
	case req.StepsPerRevolution == 0:
		return nil, ErrZeroStepsPerRevolution
	case req.TimerFrequency == 0:
		return nil, ErrZeroTimerFrequency
	}
	mode, err := req.Target.mode()
	if err != nil {
		return nil, err
	}

	target := cruiseDelay(req.TimerFrequency, req.StepsPerRevolution, req.TargetSpeed)
	first := firstDelay(req)

	g, err := newGenerator[T](first, target, mode, req.Target, req.Profile)
	if err != nil {
		return nil, err
	}
	g.timerFreq = req.TimerFrequency
	g.stepsPerRev = req.StepsPerRevolution
	return g, nil
}

// NewWithBounds returns a generator ramping between two known delays.
func NewWithBounds[T fixed.Num[T]](b Bounds, target Target, profile Profile) (*Generator[T], error) {
	if b.Target == 0 {
		return nil, ErrZeroTargetSpeed
	}
	mode, err := target.mode()
	if err != nil {
		return nil, err
	}
	return newGenerator[T](fixed.WideInt(b.First), fixed.WideInt(b.Target), mode, target, profile)
}

// cruiseDelay is 60*f/(spr*rpm), the ticks between steps at cruise speed.
func cruiseDelay(freq, spr, rpm uint32) fixed.Wide {
	return fixed.Ratio(60*uint64(freq), uint64(spr)*uint64(rpm))
}

// firstDelay is f*0.676*sqrt(2θ/α) with θ = 2π/spr and α = accel*2π/60,
// which reduces to f*0.676*sqrt(120/(spr*accel)).
func firstDelay(req Request) fixed.Wide {
	mul := uint64(req.TimerFrequency) * firstStepCorrectionMilli
	if req.LegacyDivisor > 0 {
		hundredths := uint64(math.Round(req.LegacyDivisor * 100))
		return fixed.ScaledSqrt(200, uint64(req.Acceleration)*hundredths, mul, 1000)
	}
	return fixed.ScaledSqrt(120, uint64(req.StepsPerRevolution)*uint64(req.Acceleration), mul, 1000)
}

func newGenerator[T fixed.Num[T]](first, target fixed.Wide, mode Mode, t Target, p Profile) (*Generator[T], error) {
	var zero T
	if first.Float() > zero.Max() || target.Float() > zero.Max() {
		return nil, ErrDelayOutOfRange
	}
	if first < target {
		first = target
	}

	g := &Generator[T]{
		mode:        mode,
		targetStep:  t.Steps,
		duration:    t.Duration,
		firstDelay:  zero.FromWide(first),
		targetDelay: zero.FromWide(target),
		profile:     p.Kind,
	}
	if g.firstDelay.Less(g.targetDelay) {
		g.firstDelay = g.targetDelay
	}
	// A timed move measures elapsed time in emitted delays; at zero ticks
	// the clock of a timer-driven caller would never advance.
	if mode == DurationMode && g.targetDelay.Ticks() == 0 {
		return nil, ErrDelayOutOfRange
	}

	if p.Kind == ProfileSigmoid {
		if g.targetDelay == zero {
			return nil, ErrDelayOutOfRange
		}
		start, end := g.firstDelay.Float(), g.targetDelay.Float()
		g.rampTicks = RampTicks(start, end)
		alpha := p.Alpha
		if alpha == 0 && p.Tolerance > 0 {
			var err error
			alpha, err = CalibrateAlpha(start, end, g.rampTicks, p.Tolerance)
			if err != nil {
				return nil, err
			}
		}
		if !(alpha > 0) || alpha > AlphaMax {
			return nil, ErrAlphaOutOfRange
		}
		if p.Alpha != 0 && !reachesEnds(start, end, alpha, g.rampTicks) {
			return nil, ErrAlphaOutOfRange
		}
		g.alpha = alpha
	}
	return g, nil
}

// reachesEnds reports whether the curve starts and ends within
// AlphaTolerance ticks of the ramp bounds, so the first step and the hand
// over to cruise do not jump.
func reachesEnds(start, end, alpha, duration float64) bool {
	return math.Abs(SigmoidDelay(start, end, alpha, duration, 0)-start) < AlphaTolerance &&
		math.Abs(SigmoidDelay(start, end, alpha, duration, duration)-end) < AlphaTolerance
}
