package ramp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stepgen/fixed"
)

var refBounds = Bounds{First: 2000, Target: 150}

// drain runs g until it stops and returns every delay it emitted.
func drain[T fixed.Num[T]](t *testing.T, g *Generator[T]) []uint32 {
	t.Helper()
	var out []uint32
	for i := 0; i < 1<<20; i++ {
		d, ok := g.Next()
		if !ok {
			return out
		}
		out = append(out, d)
	}
	t.Fatal("generator did not stop")
	return nil
}

// assertRampShape checks that delays fall to a minimum, hold it, then rise,
// all within [lo, hi].
func assertRampShape(t *testing.T, delays []uint32, lo, hi uint32) {
	t.Helper()
	require.NotEmpty(t, delays)
	minIdx, maxIdx := 0, 0
	for i, d := range delays {
		assert.GreaterOrEqual(t, d, lo, "delay %d", i)
		assert.LessOrEqual(t, d, hi, "delay %d", i)
		if d < delays[minIdx] {
			minIdx = i
		}
	}
	for i, d := range delays {
		if d == delays[minIdx] {
			maxIdx = i
		}
	}
	for i := 1; i <= minIdx; i++ {
		assert.LessOrEqual(t, delays[i], delays[i-1], "accelerating at %d", i)
	}
	for i := minIdx; i <= maxIdx; i++ {
		assert.Equal(t, delays[minIdx], delays[i], "cruising at %d", i)
	}
	for i := maxIdx + 1; i < len(delays); i++ {
		assert.GreaterOrEqual(t, delays[i], delays[i-1], "decelerating at %d", i)
	}
}

func testStepCount[T fixed.Num[T]](t *testing.T) {
	for _, n := range []uint32{1, 2, 3, 20, 500, 1001} {
		g, err := NewWithBounds[T](refBounds, Steps(n), Trapezoid())
		require.NoError(t, err)

		delays := drain(t, g)
		assert.Len(t, delays, int(n))
		assert.Equal(t, n, g.CurrentStep())
		assert.Equal(t, uint32(2000), delays[0])
		assertRampShape(t, delays, 150, 2000)

		// Stop is latched.
		for i := 0; i < 3; i++ {
			_, ok := g.Next()
			assert.False(t, ok)
			_, ok = g.NextAt(uint64(i))
			assert.False(t, ok)
		}
		assert.True(t, g.Done())
	}
}

func TestStepCount(t *testing.T) {
	t.Run("Q20F12", testStepCount[fixed.Q20F12])
	t.Run("Q32F32", testStepCount[fixed.Q32F32])
	t.Run("F32", testStepCount[fixed.F32])
}

func TestSymmetricRamp(t *testing.T) {
	g, err := NewWithBounds[fixed.Q32F32](refBounds, Steps(500), Trapezoid())
	require.NoError(t, err)
	delays := drain(t, g)

	first, last := -1, -1
	for i, d := range delays {
		if d == 150 {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	require.GreaterOrEqual(t, first, 0, "never reached cruise")
	accel := first
	decel := len(delays) - 1 - last
	assert.InDelta(t, accel, decel, 1)
	assert.True(t, g.IsAccelerationDone())
}

func TestCruiseLock(t *testing.T) {
	g, err := NewWithBounds[fixed.Q20F12](refBounds, Steps(500), Trapezoid())
	require.NoError(t, err)
	for i := 0; i < 250; i++ {
		_, ok := g.Next()
		require.True(t, ok)
	}
	assert.True(t, g.IsCruising())
	assert.True(t, g.IsAccelerationDone())
	assert.Equal(t, uint32(250), g.CurrentStep())
	assert.Equal(t, uint32(500), g.TargetStep())

	require.NoError(t, g.SetStepTarget(600))
	assert.False(t, g.IsCruising())
	d, ok := g.Next()
	assert.True(t, ok)
	assert.Equal(t, uint32(150), d)
	assert.True(t, g.IsCruising())
}

func TestRetargetShorter(t *testing.T) {
	g, err := NewWithBounds[fixed.Q32F32](refBounds, Steps(500), Trapezoid())
	require.NoError(t, err)
	var delays []uint32
	for i := 0; i < 300; i++ {
		d, ok := g.Next()
		require.True(t, ok)
		delays = append(delays, d)
	}
	require.NoError(t, g.SetStepTarget(400))
	delays = append(delays, drain(t, g)...)

	assert.Len(t, delays, 400)
	assert.Equal(t, uint32(400), g.CurrentStep())
	assertRampShape(t, delays, 150, 2000)
}

func TestRetargetBehind(t *testing.T) {
	g, err := NewWithBounds[fixed.Q32F32](refBounds, Steps(500), Trapezoid())
	require.NoError(t, err)
	for i := 0; i < 300; i++ {
		g.Next()
	}
	require.NoError(t, g.SetStepTarget(100))
	_, ok := g.Next()
	assert.False(t, ok)
	assert.Equal(t, uint32(300), g.CurrentStep())
}

func TestSoftStop(t *testing.T) {
	g, err := NewWithBounds[fixed.Q32F32](refBounds, Steps(500), Trapezoid())
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		g.Next()
	}
	want := g.CurrentStep() + g.AccelerationSteps()
	require.NoError(t, g.SoftStop())
	assert.Equal(t, want, g.TargetStep())

	rest := drain(t, g)
	assert.Len(t, rest, int(want)-10)
	assert.Equal(t, uint32(2000), rest[len(rest)-1])
}

func TestSoftStopBeforeStart(t *testing.T) {
	g, err := NewWithBounds[fixed.Q20F12](refBounds, Steps(500), Trapezoid())
	require.NoError(t, err)
	require.NoError(t, g.SoftStop())
	_, ok := g.Next()
	assert.False(t, ok)
	assert.Zero(t, g.CurrentStep())
}

func TestNextAtIgnoresClockInStepMode(t *testing.T) {
	a, err := NewWithBounds[fixed.Q20F12](refBounds, Steps(50), Trapezoid())
	require.NoError(t, err)
	b, err := NewWithBounds[fixed.Q20F12](refBounds, Steps(50), Trapezoid())
	require.NoError(t, err)

	want := drain(t, a)
	var got []uint32
	for now := uint64(0); ; now += 7 {
		d, ok := b.NextAt(now)
		if !ok {
			break
		}
		got = append(got, d)
	}
	assert.Equal(t, want, got)
}

func motorRequest() Request {
	return Request{
		TargetSpeed:        60,
		Acceleration:       1000,
		StepsPerRevolution: 200,
		TimerFrequency:     1_000_000,
		Target:             Steps(2000),
		Profile:            Trapezoid(),
	}
}

func TestNewDerivesDelays(t *testing.T) {
	g, err := New[fixed.Q32F32](motorRequest())
	require.NoError(t, err)

	assert.Equal(t, uint32(5000), g.TargetDelay().Ticks())
	assert.Equal(t, uint32(16559), g.FirstDelay().Ticks())

	// The angular form: θ = 2π/spr, α = accel·2π/60.
	theta := 2 * math.Pi / 200
	alpha := 1000 * 2 * math.Pi / 60
	want := 1e6 * FirstStepCorrection * math.Sqrt(2*theta/alpha)
	assert.InDelta(t, want, g.FirstDelay().Float(), 1e-3)
	assert.Equal(t, StepMode, g.Mode())
}

func TestNewLegacyDivisor(t *testing.T) {
	for _, div := range []float64{LegacyDivisorQ20F12, LegacyDivisorQ32F32} {
		req := motorRequest()
		req.LegacyDivisor = div
		g, err := New[fixed.Q32F32](req)
		require.NoError(t, err)
		want := 1e6 * FirstStepCorrection * math.Sqrt(2/(1000*div))
		assert.InDelta(t, want, g.FirstDelay().Float(), 1e-3, "divisor %v", div)
	}
}

func TestNewClampsFirstDelay(t *testing.T) {
	req := motorRequest()
	req.TargetSpeed = 1
	req.Target = Steps(10)
	g, err := New[fixed.Q20F12](req)
	require.NoError(t, err)
	assert.Equal(t, g.TargetDelay(), g.FirstDelay())

	for _, d := range drain(t, g) {
		assert.Equal(t, uint32(300000), d)
	}
}

func TestNewErrors(t *testing.T) {
	tests := []struct {
		name string
		edit func(*Request)
		want error
	}{
		{"zero acceleration", func(r *Request) { r.Acceleration = 0 }, ErrZeroAcceleration},
		{"zero speed", func(r *Request) { r.TargetSpeed = 0 }, ErrZeroTargetSpeed},
		{"zero speed and acceleration", func(r *Request) { r.TargetSpeed, r.Acceleration = 0, 0 }, ErrZeroAcceleration},
		{"zero steps per revolution", func(r *Request) { r.StepsPerRevolution = 0 }, ErrZeroStepsPerRevolution},
		{"zero timer", func(r *Request) { r.TimerFrequency = 0 }, ErrZeroTimerFrequency},
		{"no target", func(r *Request) { r.Target = Target{} }, ErrNoTargetSpecified},
		{"both targets", func(r *Request) { r.Target = Target{Steps: 10, Duration: 10} }, ErrConflictingTargets},
		{"too slow for 20.12", func(r *Request) { r.TargetSpeed, r.StepsPerRevolution = 1, 1 }, ErrDelayOutOfRange},
		{"alpha too large", func(r *Request) { r.Profile = SigmoidAlpha(2) }, ErrAlphaOutOfRange},
		{"negative alpha", func(r *Request) { r.Profile = SigmoidAlpha(-1) }, ErrAlphaOutOfRange},
		{"no alpha nor tolerance", func(r *Request) { r.Profile = Profile{Kind: ProfileSigmoid} }, ErrAlphaOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := motorRequest()
			tt.edit(&req)
			g, err := New[fixed.Q20F12](req)
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, g)
		})
	}
}

func TestNewWithBoundsErrors(t *testing.T) {
	_, err := NewWithBounds[fixed.Q20F12](Bounds{First: 2000}, Steps(10), Trapezoid())
	assert.ErrorIs(t, err, ErrZeroTargetSpeed)
	_, err = NewWithBounds[fixed.Q20F12](refBounds, Target{}, Trapezoid())
	assert.ErrorIs(t, err, ErrNoTargetSpecified)
	_, err = NewWithBounds[fixed.Q20F12](Bounds{First: 2000, Target: 1 << 21}, Steps(10), Trapezoid())
	assert.ErrorIs(t, err, ErrDelayOutOfRange)
}

func TestSetTargetSpeedSlower(t *testing.T) {
	g, err := New[fixed.Q32F32](motorRequest())
	require.NoError(t, err)
	for i := 0; i < 500; i++ {
		g.Next()
	}
	require.True(t, g.IsCruising())

	require.NoError(t, g.SetTargetSpeed(30))
	assert.False(t, g.IsCruising())
	assert.Equal(t, uint32(10000), g.TargetDelay().Ticks())

	rest := drain(t, g)
	assert.Len(t, rest, 1500)
	assert.Equal(t, []uint32{5435, 6007, 6808, 8046, 10000}, rest[:5])
	assertRampShape(t, rest[4:], 10000, 16559)
	for i := 1; i < 5; i++ {
		assert.Greater(t, rest[i], rest[i-1])
	}
}

func TestSetTargetSpeedFaster(t *testing.T) {
	g, err := New[fixed.Q32F32](motorRequest())
	require.NoError(t, err)
	head := make([]uint32, 0, 2000)
	for i := 0; i < 500; i++ {
		d, _ := g.Next()
		head = append(head, d)
	}
	require.NoError(t, g.SetTargetSpeed(120))
	all := append(head, drain(t, g)...)
	assert.Len(t, all, 2000)
	assertRampShape(t, all, 2500, 16559)
	assert.Contains(t, all, uint32(2500))
}

func TestSetTargetSpeedErrors(t *testing.T) {
	g, err := New[fixed.Q32F32](motorRequest())
	require.NoError(t, err)
	assert.ErrorIs(t, g.SetTargetSpeed(0), ErrZeroTargetSpeed)

	b, err := NewWithBounds[fixed.Q32F32](refBounds, Steps(10), Trapezoid())
	require.NoError(t, err)
	assert.ErrorIs(t, b.SetTargetSpeed(60), ErrZeroStepsPerRevolution)
	assert.ErrorIs(t, b.SetTargetDelay(0), ErrZeroTargetSpeed)

	require.NoError(t, b.SetTargetDelay(3000))
	assert.Equal(t, uint32(3000), b.TargetDelay().Ticks())
	assert.Equal(t, uint32(3000), b.FirstDelay().Ticks())
}

func TestLargeDelaysMatchAcrossStrategies(t *testing.T) {
	b := Bounds{First: 1_000_000, Target: 1000}
	q20, err := NewWithBounds[fixed.Q20F12](b, Steps(10), Trapezoid())
	require.NoError(t, err)
	q32, err := NewWithBounds[fixed.Q32F32](b, Steps(10), Trapezoid())
	require.NoError(t, err)

	want := []uint32{1_000_000, 600_000, 466_667}
	for i := 0; i < 10; i++ {
		d20, ok20 := q20.Next()
		d32, ok32 := q32.Next()
		require.True(t, ok20)
		require.True(t, ok32)
		if i < len(want) {
			assert.Equal(t, want[i], d32, "q32 delay %d", i)
		}
		assert.InDelta(t, d32, d20, 1, "delay %d", i)
	}
}
