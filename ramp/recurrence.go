package ramp

import (
	"math"

	"stepgen/fixed"
)

// speedUp shortens the delay by one step of the acceleration recurrence
// d -= 2d/(4n+1), never going below the cruise delay.
func (g *Generator[T]) speedUp() {
	if g.profile == ProfileSigmoid {
		g.sigmoidSpeedUp()
		return
	}
	var z T
	n := z.FromInt(g.accelSteps)
	denom := z.FromInt(4).Mul(n).Add(z.FromInt(1))
	g.currentDelay = g.currentDelay.Sub(twiceOver(g.currentDelay, denom))
	if g.currentDelay.Less(g.targetDelay) {
		g.currentDelay = g.targetDelay
	}
	g.incAccelSteps()
}

// slowDown lengthens the delay by one step of the deceleration recurrence
// d += 2d/(4n-1), never going above limit. The index floors at 1.
func (g *Generator[T]) slowDown(limit T) {
	g.decAccelSteps()
	if g.profile == ProfileSigmoid {
		g.sigmoidSlowDown(limit)
		return
	}
	var z T
	n := z.FromInt(g.accelSteps)
	denom := z.FromInt(4).Mul(n).Sub(z.FromInt(1))
	g.currentDelay = g.currentDelay.Add(twiceOver(g.currentDelay, denom))
	if limit.Less(g.currentDelay) {
		g.currentDelay = limit
	}
}

// twiceOver is 2d/denom without forming 2d, which saturates Q20F12 above
// 2^19 ticks. Halving the odd denominator is exact.
func twiceOver[T fixed.Num[T]](d, denom T) T {
	var z T
	return d.Div(denom.Div(z.FromInt(2)))
}

func (g *Generator[T]) incAccelSteps() {
	if g.accelSteps < math.MaxUint32 {
		g.accelSteps++
	}
}

func (g *Generator[T]) decAccelSteps() {
	if g.accelSteps > 1 {
		g.accelSteps--
	} else {
		g.accelSteps = 1
	}
}

// sigmoidSpeedUp moves forward along the S-curve by the delay just spent.
func (g *Generator[T]) sigmoidSpeedUp() {
	g.elapsed += g.currentDelay.Float()
	if g.elapsed >= g.rampTicks {
		g.currentDelay = g.targetDelay
	} else {
		var z T
		d := z.FromFloat(g.sigmoidAt(g.elapsed))
		if d.Less(g.targetDelay) {
			d = g.targetDelay
		}
		if d.Less(g.currentDelay) {
			g.currentDelay = d
		}
	}
	g.incAccelSteps()
}

// sigmoidSlowDown walks back along the S-curve. Delays never shrink while
// slowing down.
func (g *Generator[T]) sigmoidSlowDown(limit T) {
	g.elapsed -= g.currentDelay.Float()
	if g.elapsed < 0 {
		g.elapsed = 0
	}
	var z T
	d := z.FromFloat(g.sigmoidAt(g.elapsed))
	if g.currentDelay.Less(d) {
		g.currentDelay = d
	}
	if limit.Less(g.currentDelay) {
		g.currentDelay = limit
	}
}

func (g *Generator[T]) sigmoidAt(t float64) float64 {
	return SigmoidDelay(g.firstDelay.Float(), g.targetDelay.Float(), g.alpha, g.rampTicks, t)
}
