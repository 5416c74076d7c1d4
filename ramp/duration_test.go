package ramp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stepgen/fixed"
)

// runClock drives g with a clock that advances by each emitted delay.
func runClock[T fixed.Num[T]](t *testing.T, g *Generator[T], start uint64) (delays []uint32, end uint64) {
	t.Helper()
	now := start
	for i := 0; i < 1<<20; i++ {
		d, ok := g.NextAt(now)
		if !ok {
			return delays, now
		}
		delays = append(delays, d)
		now += uint64(d)
	}
	t.Fatal("generator did not stop")
	return nil, 0
}

func TestDurationMode(t *testing.T) {
	const duration = 1_000_000
	g, err := NewWithBounds[fixed.Q32F32](refBounds, Duration(duration), Trapezoid())
	require.NoError(t, err)
	assert.Equal(t, DurationMode, g.Mode())

	delays, end := runClock(t, g, 5000)
	assert.GreaterOrEqual(t, end-5000, uint64(duration))
	assert.Less(t, end-5000, uint64(duration+2000))
	assert.True(t, g.Done())
	assert.True(t, g.IsAccelerationDone())
	assert.Zero(t, g.TargetStep())
	assert.Equal(t, uint32(len(delays)), g.CurrentStep())

	assert.Equal(t, uint32(2000), delays[0])
	assert.Contains(t, delays, uint32(150))
	assert.Greater(t, delays[len(delays)-1], uint32(150))
	assertRampShape(t, delays, 150, 2000)

	accel := g.AccelerationDuration()
	assert.Greater(t, accel, uint64(0))
	assert.Less(t, accel, uint64(duration/2))

	_, ok := g.NextAt(end + 1)
	assert.False(t, ok)
}

func TestDurationModeTriangle(t *testing.T) {
	g, err := NewWithBounds[fixed.Q20F12](refBounds, Duration(12000), Trapezoid())
	require.NoError(t, err)
	delays, _ := runClock(t, g, 0)
	assert.False(t, g.IsAccelerationDone())
	assert.NotContains(t, delays, uint32(150))
	assertRampShape(t, delays, 150, 2000)
}

func TestDurationModeWithoutClockAborts(t *testing.T) {
	g, err := NewWithBounds[fixed.Q32F32](refBounds, Duration(1000), Trapezoid())
	require.NoError(t, err)
	_, ok := g.Next()
	assert.False(t, ok)
	assert.True(t, g.Done())

	// Aborted is terminal.
	_, ok = g.NextAt(0)
	assert.False(t, ok)
}

func TestDurationModeRejectsRetarget(t *testing.T) {
	req := motorRequest()
	req.Target = Duration(1000)
	g, err := New[fixed.Q32F32](req)
	require.NoError(t, err)

	assert.ErrorIs(t, g.SetStepTarget(10), ErrDurationMode)
	assert.ErrorIs(t, g.SoftStop(), ErrDurationMode)
	assert.ErrorIs(t, g.SetTargetSpeed(30), ErrDurationMode)
	assert.ErrorIs(t, g.SetTargetDelay(30), ErrDurationMode)
	assert.Equal(t, uint32(5000), g.TargetDelay().Ticks())
}

func TestDurationModeRejectsZeroTickCruise(t *testing.T) {
	req := motorRequest()
	req.TargetSpeed = 1_000_000
	req.Target = Duration(1000)
	_, err := New[fixed.Q32F32](req)
	assert.ErrorIs(t, err, ErrDelayOutOfRange)

	// Step moves count steps, not time, so they may run at zero ticks.
	req.Target = Steps(10)
	g, err := New[fixed.Q32F32](req)
	require.NoError(t, err)
	assert.Zero(t, g.TargetDelay().Ticks())
}
