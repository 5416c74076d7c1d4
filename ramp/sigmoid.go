package ramp

import "math"

// SigmoidDelay evaluates the S-curve ramp from start to end over duration
// ticks, at t ticks into the ramp.
func SigmoidDelay(start, end, alpha, duration, t float64) float64 {
	return start + (end-start)/(1+math.Exp(-alpha*(t-duration/2)))
}

// RampTicks is the acceleration time, in ticks, of a constant acceleration
// ramp whose first delay is first and whose cruise delay is target.
func RampTicks(first, target float64) float64 {
	return first * first / (2 * target * FirstStepCorrection * FirstStepCorrection)
}

// CalibrateAlpha returns the smallest alpha on the AlphaStart*AlphaGrowth^k
// grid for which the curve ends within tol of end. The curve is symmetric,
// so it then also starts within tol of start.
func CalibrateAlpha(start, end, duration, tol float64) (float64, error) {
	if !(tol > 0) || !(duration > 0) || math.IsInf(duration, 0) {
		return 0, ErrAlphaOutOfRange
	}
	for alpha := AlphaStart; alpha <= AlphaMax; alpha *= AlphaGrowth {
		if math.Abs(SigmoidDelay(start, end, alpha, duration, duration)-end) < tol {
			return alpha, nil
		}
	}
	return 0, ErrAlphaOutOfRange
}
