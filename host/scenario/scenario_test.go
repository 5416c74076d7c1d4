package scenario

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stepgen/core"
	"stepgen/fixture"
	"stepgen/protocol"
	"stepgen/ramp"
)

func TestRenderMatchesReferenceSequence(t *testing.T) {
	s, err := Load(filepath.Join("testdata", "reference.yaml"))
	require.NoError(t, err)

	got, err := s.Render()
	require.NoError(t, err)
	want, err := fixture.Load(filepath.Join("..", "..", "ramp", "testdata", "500_1_250"))
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("sequence mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	s, err := Load(filepath.Join("testdata", "motor.yaml"))
	require.NoError(t, err)

	assert.EqualValues(t, DefaultTimerFrequency, s.TimerFrequency)
	assert.Equal(t, DefaultNumeric, s.Numeric)
	assert.Equal(t, DefaultTolerance, s.Profile.Tolerance)

	req, err := s.Request()
	require.NoError(t, err)
	assert.Equal(t, ramp.Request{
		TargetSpeed:        60,
		Acceleration:       1000,
		StepsPerRevolution: 200,
		TimerFrequency:     DefaultTimerFrequency,
		Target:             ramp.Steps(2000),
		Profile:            ramp.SigmoidTolerance(DefaultTolerance),
	}, req)
}

func TestMoveCommand(t *testing.T) {
	s, err := Load(filepath.Join("testdata", "motor.yaml"))
	require.NoError(t, err)

	m, err := s.Move()
	require.NoError(t, err)
	assert.Equal(t, protocol.RampMove{
		OID:     2,
		Dir:     1,
		RPM:     60,
		Accel:   1000,
		SPR:     200,
		Steps:   2000,
		Profile: protocol.ProfileSigmoid,

		ToleranceMilli: 500,
	}, m)

	s.Profile.Alpha = 0.0025
	s.Motor.LegacyDivisor = ramp.LegacyDivisorQ32F32
	m, err = s.Move()
	require.NoError(t, err)
	assert.EqualValues(t, 2_500_000, m.AlphaNano)
	assert.Zero(t, m.ToleranceMilli)
	assert.EqualValues(t, 335, m.LegacyCenti)

	// The firmware must derive the same request the host renders with.
	req, err := s.Request()
	require.NoError(t, err)
	assert.Equal(t, req.Profile, core.MoveRequest(&m).Profile)
	assert.Equal(t, req.LegacyDivisor, core.MoveRequest(&m).LegacyDivisor)

	s.Profile.Alpha = 1e-10
	_, err = s.Move()
	assert.ErrorIs(t, err, ErrNotSendable)

	s.Profile.Alpha = 0
	s.Profile.Tolerance = 0.0001
	_, err = s.Move()
	assert.ErrorIs(t, err, ErrNotSendable)

	s.Profile.Tolerance = DefaultTolerance
	s.Motor.LegacyDivisor = 3.333
	_, err = s.Move()
	assert.ErrorIs(t, err, ErrNotSendable)

	b, err := Parse([]byte("bounds: {first: 2000, target: 150}\nsteps: 10\n"))
	require.NoError(t, err)
	_, err = b.Move()
	assert.ErrorIs(t, err, ErrNeedsMotor)
}

func TestRenderRetarget(t *testing.T) {
	s, err := Parse([]byte(`
bounds: {first: 2000, target: 150}
steps: 500
events:
  - {at: 300, steps: 400}
`))
	require.NoError(t, err)

	lines, err := s.Render()
	require.NoError(t, err)
	delays, err := fixture.Delays(lines)
	require.NoError(t, err)
	assert.Len(t, delays, 400)
	assert.Equal(t, fixture.EndMarker, lines[len(lines)-1])
}

func TestRenderDurationMove(t *testing.T) {
	s, err := Parse([]byte(`
numeric: q32
bounds: {first: 2000, target: 150}
duration_ms: 100
`))
	require.NoError(t, err)

	lines, err := s.Render()
	require.NoError(t, err)
	delays, err := fixture.Delays(lines)
	require.NoError(t, err)

	var total uint64
	for _, d := range delays[:len(delays)-1] {
		total += uint64(d)
	}
	// Every delay but the last starts inside the window.
	assert.Less(t, total, uint64(100_000))
	assert.GreaterOrEqual(t, total+uint64(delays[len(delays)-1]), uint64(100_000))
}

func TestValidate(t *testing.T) {
	cases := map[string]struct {
		yaml string
		err  error
	}{
		"no source":    {"steps: 10\n", ErrNoSource},
		"both sources": {"steps: 10\nbounds: {first: 2, target: 1}\nmotor: {rpm: 1}\n", ErrBothSources},
		"numeric":      {"numeric: q16\nbounds: {first: 2, target: 1}\n", ErrUnknownNumeric},
		"profile":      {"profile: {kind: sine}\nbounds: {first: 2, target: 1}\n", ErrUnknownProfile},
		"empty event":  {"bounds: {first: 2, target: 1}\nevents: [{at: 3}]\n", ErrBadEvent},
		"negative at":  {"bounds: {first: 2, target: 1}\nevents: [{at: -1, soft_stop: true}]\n", ErrBadEvent},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(tc.yaml))
			assert.ErrorIs(t, err, tc.err)
		})
	}
}

func TestBuildSurfacesRampErrors(t *testing.T) {
	s, err := Parse([]byte("bounds: {first: 2000, target: 150}\n"))
	require.NoError(t, err)
	_, err = s.Build()
	assert.ErrorIs(t, err, ramp.ErrNoTargetSpecified)

	s, err = Parse([]byte("motor: {steps_per_revolution: 200, rpm: 60}\nsteps: 10\n"))
	require.NoError(t, err)
	_, err = s.Render()
	assert.ErrorIs(t, err, ramp.ErrZeroAcceleration)
}

func TestEventsAreSorted(t *testing.T) {
	s, err := Parse([]byte(`
bounds: {first: 2000, target: 150}
steps: 100
events:
  - {at: 40, soft_stop: true}
  - {at: 10, delay: 300}
`))
	require.NoError(t, err)
	assert.Equal(t, 10, s.Events[0].At)

	lines, err := s.Render()
	require.NoError(t, err)
	assert.Contains(t, lines, fixture.StopMarker)
}
