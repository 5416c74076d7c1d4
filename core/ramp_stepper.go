package core

import (
	"errors"

	"stepgen/fixed"
	"stepgen/protocol"
	"stepgen/ramp"
)

const (
	// MaxRampSteppers bounds the OID space.
	MaxRampSteppers = 8

	// DefaultSigmoidTolerance is the calibration tolerance, in ticks, of a
	// sigmoid move that does not carry its own alpha.
	DefaultSigmoidTolerance = 0.5
)

var (
	ErrOIDRange      = errors.New("ramp stepper OID exceeds maximum")
	ErrStepperExists = errors.New("ramp stepper OID already configured")
	ErrNoStepper     = errors.New("ramp stepper not configured")
	ErrNoBackend     = errors.New("no stepper backend available")
	ErrBusy          = errors.New("ramp stepper is moving")
	ErrNoMove        = errors.New("ramp stepper has no move")
)

// RampStepper runs one motor from a ramp generator: every timer event
// emits a pulse and schedules the next one after the generated delay.
type RampStepper struct {
	OID        uint8
	StepPin    uint8
	DirPin     uint8
	InvertStep bool

	position  int64
	reverse   bool
	active    bool
	reported  bool
	lastDelay uint32

	gen     *ramp.Generator[fixed.Q32F32]
	timer   Timer
	backend StepperBackend
}

var (
	rampSteppers [MaxRampSteppers]*RampStepper
	totalSteps   uint32
)

// ConfigRampStepper creates the stepper for oid with a backend from the
// registered factory.
func ConfigRampStepper(oid, stepPin, dirPin uint8, invertStep bool) (*RampStepper, error) {
	if stepperBackendFactory == nil {
		return nil, ErrNoBackend
	}
	backend := stepperBackendFactory()
	if backend == nil {
		return nil, ErrNoBackend
	}
	return NewRampStepper(oid, stepPin, dirPin, invertStep, backend)
}

// NewRampStepper creates the stepper for oid on backend.
func NewRampStepper(oid, stepPin, dirPin uint8, invertStep bool, backend StepperBackend) (*RampStepper, error) {
	if oid >= MaxRampSteppers {
		return nil, ErrOIDRange
	}
	if rampSteppers[oid] != nil {
		return nil, ErrStepperExists
	}
	if err := backend.Init(stepPin, dirPin, invertStep, false); err != nil {
		return nil, err
	}
	s := &RampStepper{
		OID:        oid,
		StepPin:    stepPin,
		DirPin:     dirPin,
		InvertStep: invertStep,
		backend:    backend,
		reported:   true,
	}
	s.timer.Handler = s.stepEvent
	rampSteppers[oid] = s
	return s, nil
}

// GetRampStepper returns the stepper for oid, or nil.
func GetRampStepper(oid uint8) *RampStepper {
	if oid >= MaxRampSteppers {
		return nil
	}
	return rampSteppers[oid]
}

// ResetRampSteppers halts and forgets every stepper.
func ResetRampSteppers() {
	for i, s := range rampSteppers {
		if s != nil {
			s.Stop()
			DebugPrintln("[RAMP] reset oid=" + utoa(uint32(i)) + " pos=" + itoa(s.position))
			rampSteppers[i] = nil
		}
	}
}

// Start begins a move. The timer frequency of req is taken from the
// firmware clock.
func (s *RampStepper) Start(req ramp.Request, reverse bool) error {
	req.TimerFrequency = TimerFrequency()
	gen, err := ramp.New[fixed.Q32F32](req)
	if err != nil {
		return err
	}

	state := disableInterrupts()
	defer restoreInterrupts(state)

	if s.active {
		return ErrBusy
	}
	s.gen = gen
	s.reverse = reverse
	s.backend.SetDirection(reverse)

	now := GetTime()
	d, ok := gen.NextAt(now)
	if !ok {
		return nil
	}
	s.active = true
	s.reported = false
	s.lastDelay = d
	s.timer.WakeTime = now + uint64(d)
	ScheduleTimer(&s.timer)
	RecordTiming(EvtRampStart, s.OID, uint32(now), d, gen.TargetStep())
	return nil
}

// stepEvent runs from TimerDispatch.
func (s *RampStepper) stepEvent(t *Timer) uint8 {
	s.backend.Step()
	if s.reverse {
		s.position--
	} else {
		s.position++
	}
	totalSteps++

	d, ok := s.gen.NextAt(t.WakeTime)
	if !ok {
		s.active = false
		RecordTiming(EvtRampDone, s.OID, uint32(t.WakeTime), s.gen.CurrentStep(), 0)
		return SF_DONE
	}
	s.lastDelay = d
	if traceSteps {
		RecordTiming(EvtRampStep, s.OID, uint32(t.WakeTime), s.gen.CurrentStep(), d)
	}
	t.WakeTime += uint64(d)
	if now := GetTime(); t.WakeTime < now {
		RecordTiming(EvtTimerPast, s.OID, uint32(now), uint32(t.WakeTime), d)
	}
	return SF_RESCHEDULE
}

// SetTarget moves the end of the current move to step n.
func (s *RampStepper) SetTarget(n uint32) error {
	state := disableInterrupts()
	defer restoreInterrupts(state)
	if s.gen == nil {
		return ErrNoMove
	}
	RecordTiming(EvtRampRetarget, s.OID, uint32(GetTime()), s.gen.CurrentStep(), n)
	return s.gen.SetStepTarget(n)
}

// SoftStop decelerates the current move to rest.
func (s *RampStepper) SoftStop() error {
	state := disableInterrupts()
	defer restoreInterrupts(state)
	if s.gen == nil {
		return ErrNoMove
	}
	if err := s.gen.SoftStop(); err != nil {
		return err
	}
	RecordTiming(EvtRampRetarget, s.OID, uint32(GetTime()), s.gen.CurrentStep(), s.gen.TargetStep())
	return nil
}

// SetTargetSpeed changes the cruise speed of the current move. The
// stepper ramps to the new speed from the next step on.
func (s *RampStepper) SetTargetSpeed(rpm uint32) error {
	state := disableInterrupts()
	defer restoreInterrupts(state)
	if s.gen == nil {
		return ErrNoMove
	}
	return s.gen.SetTargetSpeed(rpm)
}

// Stop halts immediately, without a ramp.
func (s *RampStepper) Stop() {
	state := disableInterrupts()
	defer restoreInterrupts(state)
	CancelTimer(&s.timer)
	s.active = false
	s.backend.Stop()
}

// Position is the signed step count since configuration.
func (s *RampStepper) Position() int64 {
	state := disableInterrupts()
	defer restoreInterrupts(state)
	return s.position
}

// IsActive reports whether a move is in progress.
func (s *RampStepper) IsActive() bool {
	state := disableInterrupts()
	defer restoreInterrupts(state)
	return s.active
}

// Status snapshots the stepper for a ramp_status response.
func (s *RampStepper) Status() protocol.RampStatus {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	st := protocol.RampStatus{OID: s.OID, Delay: s.lastDelay}
	if s.active {
		st.Flags |= protocol.FlagActive
	}
	if s.gen == nil {
		return st
	}
	st.Step = s.gen.CurrentStep()
	st.Target = s.gen.TargetStep()
	st.AccelSteps = s.gen.AccelerationSteps()
	if s.gen.IsCruising() {
		st.Flags |= protocol.FlagCruising
	}
	if s.gen.IsAccelerationDone() {
		st.Flags |= protocol.FlagAccelDone
	}
	if s.gen.Done() {
		st.Flags |= protocol.FlagDone
	}
	if s.gen.Mode() == ramp.DurationMode {
		st.Flags |= protocol.FlagDurationMode
	}
	return st
}

// MoveRequest converts a ramp_move command into a generator request.
func MoveRequest(m *protocol.RampMove) ramp.Request {
	req := ramp.Request{
		TargetSpeed:        m.RPM,
		Acceleration:       m.Accel,
		StepsPerRevolution: m.SPR,
		TimerFrequency:     TimerFrequency(),
		Target: ramp.Target{
			Steps:    m.Steps,
			Duration: TimerFromMS(m.DurationMS),
		},
		Profile:       ramp.Trapezoid(),
		LegacyDivisor: float64(m.LegacyCenti) / 100,
	}
	if m.Profile == protocol.ProfileSigmoid {
		switch {
		case m.AlphaNano != 0:
			req.Profile = ramp.SigmoidAlpha(float64(m.AlphaNano) / 1e9)
		case m.ToleranceMilli != 0:
			req.Profile = ramp.SigmoidTolerance(float64(m.ToleranceMilli) / 1000)
		default:
			req.Profile = ramp.SigmoidTolerance(DefaultSigmoidTolerance)
		}
	}
	return req
}

// GetTotalStepCount returns pulses emitted by all steppers since boot.
func GetTotalStepCount() uint32 { return totalSteps }
