package ramp

// Mode selects what ends a move.
type Mode uint8

const (
	// StepMode runs until a step count is reached.
	StepMode Mode = iota
	// DurationMode runs until a span of caller clock ticks has elapsed.
	DurationMode
)

func (m Mode) String() string {
	switch m {
	case StepMode:
		return "steps"
	case DurationMode:
		return "duration"
	default:
		return "unknown"
	}
}

// Target is where a move ends. A zero field is unset; exactly one field
// must be set.
type Target struct {
	Steps    uint32
	Duration uint64 // in ticks of the clock passed to NextAt
}

// Steps targets a step count.
func Steps(n uint32) Target { return Target{Steps: n} }

// Duration targets a span of clock ticks.
func Duration(ticks uint64) Target { return Target{Duration: ticks} }

func (t Target) mode() (Mode, error) {
	switch {
	case t.Steps != 0 && t.Duration != 0:
		return 0, ErrConflictingTargets
	case t.Steps != 0:
		return StepMode, nil
	case t.Duration != 0:
		return DurationMode, nil
	default:
		return 0, ErrNoTargetSpecified
	}
}

// ProfileKind is the shape of the acceleration ramp.
type ProfileKind uint8

const (
	ProfileTrapezoid ProfileKind = iota
	ProfileSigmoid
)

func (k ProfileKind) String() string {
	switch k {
	case ProfileTrapezoid:
		return "trapezoid"
	case ProfileSigmoid:
		return "sigmoid"
	default:
		return "unknown"
	}
}

// Profile selects the ramp shape. A sigmoid profile either carries its
// alpha or a tolerance from which alpha is calibrated at construction.
type Profile struct {
	Kind      ProfileKind
	Alpha     float64
	Tolerance float64 // ticks
}

// Trapezoid is the constant acceleration ramp.
func Trapezoid() Profile { return Profile{Kind: ProfileTrapezoid} }

// SigmoidAlpha is an S-curve ramp with a fixed steepness.
func SigmoidAlpha(alpha float64) Profile {
	return Profile{Kind: ProfileSigmoid, Alpha: alpha}
}

// SigmoidTolerance is an S-curve ramp whose steepness is the smallest alpha
// that lands within tol ticks of both ramp ends.
func SigmoidTolerance(tol float64) Profile {
	return Profile{Kind: ProfileSigmoid, Tolerance: tol}
}

// Request describes a move in motor units.
type Request struct {
	TargetSpeed        uint32 // RPM
	Acceleration       uint32 // RPM per second
	StepsPerRevolution uint32
	TimerFrequency     uint32 // ticks per second
	Target             Target
	Profile            Profile

	// LegacyDivisor selects the legacy first step derivation when non-zero.
	LegacyDivisor float64
}

// Bounds are ramp delays in whole ticks, for callers that already know them.
type Bounds struct {
	First  uint32
	Target uint32
}
