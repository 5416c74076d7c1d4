package ramp

// FirstStepCorrection scales the continuous-time first step delay to make
// up for the error of the discrete recurrence on its first step.
const FirstStepCorrection = 0.676

// The correction in thousandths, as used by the integer derivation.
const firstStepCorrectionMilli = 676

// Legacy first step divisors. Older derivations computed the first delay as
// f*0.676*sqrt(2/(accel*divisor)) and shipped two different divisors for the
// 32-bit and 64-bit builds. They are not equivalent: 3.35 gives a first
// delay about 5% shorter than 3.
const (
	LegacyDivisorQ20F12 = 3.0
	LegacyDivisorQ32F32 = 3.35
)

// Sigmoid alpha search.
const (
	AlphaStart  = 1e-9
	AlphaGrowth = 1.1
	AlphaMax    = 1.0

	// AlphaTolerance is how close, in ticks, a fixed alpha must bring the
	// curve to both ramp bounds.
	AlphaTolerance = 0.5
)
