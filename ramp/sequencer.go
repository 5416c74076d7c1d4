package ramp

import "math"

// begin emits the first delay of a move.
func (g *Generator[T]) begin() uint32 {
	g.currentDelay = g.firstDelay
	g.accelSteps = 1
	g.currentStep = 1
	return g.currentDelay.Ticks()
}

func (g *Generator[T]) advance() {
	if g.currentStep < math.MaxUint32 {
		g.currentStep++
	}
}

func (g *Generator[T]) stop() (uint32, bool) {
	g.done = true
	g.cruising = false
	return 0, false
}

// nextStep runs one tick of a step-count move.
func (g *Generator[T]) nextStep() (uint32, bool) {
	if g.currentStep == 0 {
		return g.begin(), true
	}
	if g.currentStep >= g.targetStep {
		return g.stop()
	}

	// Decelerating now brings the motor to rest accelSteps steps from here.
	if uint64(g.currentStep)+uint64(g.accelSteps) >= uint64(g.targetStep) {
		g.cruising = false
		g.slowDown(g.firstDelay)
		g.advance()
		return g.currentDelay.Ticks(), true
	}

	switch {
	case g.currentDelay == g.targetDelay:
		g.accelDone = true
		if !g.cruising {
			g.cruiseTicks = g.targetDelay.Ticks()
			g.cruising = true
		}
		g.advance()
		return g.cruiseTicks, true
	case g.currentDelay.Less(g.targetDelay):
		// A slower cruise speed was requested mid-move.
		g.slowDown(g.targetDelay)
	default:
		g.speedUp()
	}
	g.advance()
	return g.currentDelay.Ticks(), true
}

// nextDuration runs one tick of a timed move at clock reading now.
func (g *Generator[T]) nextDuration(now uint64) (uint32, bool) {
	if !g.started {
		g.started = true
		g.startTime = now
		return g.begin(), true
	}

	var elapsed uint64
	if now > g.startTime {
		elapsed = now - g.startTime
	}
	if elapsed >= g.duration {
		return g.stop()
	}

	// Time spent accelerating is mirrored into the tail of the move.
	if g.duration-elapsed <= g.accelDuration {
		g.cruising = false
		g.slowDown(g.firstDelay)
	} else if g.currentDelay == g.targetDelay {
		if !g.accelDone {
			g.accelDone = true
			g.accelDuration = elapsed
		}
		g.cruising = true
	} else {
		g.speedUp()
		g.accelDuration = elapsed
	}
	g.advance()
	return g.currentDelay.Ticks(), true
}
