package ramp

import "errors"

// Construction errors. No generator is returned alongside any of them.
var (
	ErrZeroAcceleration       = errors.New("acceleration must be greater than 0")
	ErrZeroTargetSpeed        = errors.New("target speed must be greater than 0")
	ErrZeroStepsPerRevolution = errors.New("steps per revolution must be greater than 0")
	ErrZeroTimerFrequency     = errors.New("timer frequency must be greater than 0")
	ErrNoTargetSpecified      = errors.New("neither a step target nor a duration was given")
	ErrConflictingTargets     = errors.New("both a step target and a duration were given")
	ErrAlphaOutOfRange        = errors.New("sigmoid alpha out of range")
	ErrDelayOutOfRange        = errors.New("derived delay does not fit the numeric type")
)

// ErrDurationMode is returned by retarget operations on a generator that
// runs against a duration instead of a step count.
var ErrDurationMode = errors.New("operation not supported in duration mode")
