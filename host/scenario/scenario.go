// Package scenario loads ramp moves described in YAML, renders them on the
// host and converts them to firmware commands.
package scenario

import (
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"

	"stepgen/fixed"
	"stepgen/fixture"
	"stepgen/protocol"
	"stepgen/ramp"
)

// Defaults applied by Load.
const (
	DefaultTimerFrequency = 1_000_000
	DefaultNumeric        = "q32"
	DefaultTolerance      = 0.5
)

var (
	ErrNoSource       = errors.New("scenario: needs either motor or bounds")
	ErrBothSources    = errors.New("scenario: motor and bounds are exclusive")
	ErrUnknownNumeric = errors.New("scenario: unknown numeric type")
	ErrUnknownProfile = errors.New("scenario: unknown profile")
	ErrBadEvent       = errors.New("scenario: bad event")
	ErrNeedsMotor     = errors.New("scenario: firmware moves need a motor section")
	ErrNotSendable    = errors.New("scenario: value has no exact firmware encoding")
)

// Scenario is one move plus the retargets applied while it runs.
type Scenario struct {
	Name           string  `yaml:"name"`
	OID            uint8   `yaml:"oid"`
	Reverse        bool    `yaml:"reverse"`
	TimerFrequency uint32  `yaml:"timer_frequency"`
	Numeric        string  `yaml:"numeric"`
	Motor          *Motor  `yaml:"motor"`
	Bounds         *Bounds `yaml:"bounds"`
	Steps          uint32  `yaml:"steps"`
	DurationMS     uint32  `yaml:"duration_ms"`
	Profile        Profile `yaml:"profile"`
	Events         []Event `yaml:"events"`
}

// Motor derives the ramp from physical units.
type Motor struct {
	StepsPerRevolution uint32  `yaml:"steps_per_revolution"`
	RPM                uint32  `yaml:"rpm"`
	Acceleration       uint32  `yaml:"acceleration"`
	LegacyDivisor      float64 `yaml:"legacy_divisor"`
}

// Bounds gives the first and cruise delays in ticks directly.
type Bounds struct {
	First  uint32 `yaml:"first"`
	Target uint32 `yaml:"target"`
}

type Profile struct {
	Kind      string  `yaml:"kind"`
	Alpha     float64 `yaml:"alpha"`
	Tolerance float64 `yaml:"tolerance"`
}

// Event changes the move before the delay with index At. Several changes
// may share one event.
type Event struct {
	At       int    `yaml:"at"`
	SoftStop bool   `yaml:"soft_stop"`
	Steps    uint32 `yaml:"steps"`
	RPM      uint32 `yaml:"rpm"`
	Delay    uint32 `yaml:"delay"`
}

func (e Event) empty() bool {
	return !e.SoftStop && e.Steps == 0 && e.RPM == 0 && e.Delay == 0
}

// Load reads and validates the scenario at path.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Parse decodes, defaults and validates a scenario.
func Parse(data []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	s.applyDefaults()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Scenario) applyDefaults() {
	if s.TimerFrequency == 0 {
		s.TimerFrequency = DefaultTimerFrequency
	}
	if s.Numeric == "" {
		s.Numeric = DefaultNumeric
	}
	if s.Profile.Kind == "" {
		s.Profile.Kind = ramp.ProfileTrapezoid.String()
	}
	if s.Profile.Kind == ramp.ProfileSigmoid.String() && s.Profile.Alpha == 0 && s.Profile.Tolerance == 0 {
		s.Profile.Tolerance = DefaultTolerance
	}
	sort.SliceStable(s.Events, func(i, j int) bool { return s.Events[i].At < s.Events[j].At })
}

// Validate checks what the ramp constructors do not.
func (s *Scenario) Validate() error {
	switch {
	case s.Motor == nil && s.Bounds == nil:
		return ErrNoSource
	case s.Motor != nil && s.Bounds != nil:
		return ErrBothSources
	}
	switch s.Numeric {
	case "q20", "q32", "f32":
	default:
		return fmt.Errorf("%w: %q", ErrUnknownNumeric, s.Numeric)
	}
	if _, err := s.RampProfile(); err != nil {
		return err
	}
	for i, e := range s.Events {
		if e.At < 0 || e.empty() {
			return fmt.Errorf("%w: #%d", ErrBadEvent, i)
		}
	}
	return nil
}

// Target is the step count or duration of the move.
func (s *Scenario) Target() ramp.Target {
	return ramp.Target{
		Steps:    s.Steps,
		Duration: uint64(s.DurationMS) * uint64(s.TimerFrequency) / 1000,
	}
}

// RampProfile converts the profile section.
func (s *Scenario) RampProfile() (ramp.Profile, error) {
	switch s.Profile.Kind {
	case ramp.ProfileTrapezoid.String():
		return ramp.Trapezoid(), nil
	case ramp.ProfileSigmoid.String():
		if s.Profile.Alpha > 0 {
			return ramp.SigmoidAlpha(s.Profile.Alpha), nil
		}
		return ramp.SigmoidTolerance(s.Profile.Tolerance), nil
	}
	return ramp.Profile{}, fmt.Errorf("%w: %q", ErrUnknownProfile, s.Profile.Kind)
}

// Request builds the generator request of a motor scenario.
func (s *Scenario) Request() (ramp.Request, error) {
	if s.Motor == nil {
		return ramp.Request{}, ErrNeedsMotor
	}
	p, err := s.RampProfile()
	if err != nil {
		return ramp.Request{}, err
	}
	return ramp.Request{
		TargetSpeed:        s.Motor.RPM,
		Acceleration:       s.Motor.Acceleration,
		StepsPerRevolution: s.Motor.StepsPerRevolution,
		TimerFrequency:     s.TimerFrequency,
		Target:             s.Target(),
		Profile:            p,
		LegacyDivisor:      s.Motor.LegacyDivisor,
	}, nil
}

// Generator is the part of a ramp generator a scenario drives.
type Generator interface {
	fixture.Stepper
	NextAt(now uint64) (uint32, bool)
	SetStepTarget(n uint32) error
	SetTargetSpeed(rpm uint32) error
	SetTargetDelay(ticks uint32) error
	Mode() ramp.Mode
}

// Build constructs the generator on the scenario's numeric type.
func (s *Scenario) Build() (Generator, error) {
	switch s.Numeric {
	case "q20":
		return build[fixed.Q20F12](s)
	case "q32":
		return build[fixed.Q32F32](s)
	case "f32":
		return build[fixed.F32](s)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownNumeric, s.Numeric)
}

func build[T fixed.Num[T]](s *Scenario) (Generator, error) {
	var (
		g   *ramp.Generator[T]
		err error
	)
	if s.Bounds != nil {
		p, perr := s.RampProfile()
		if perr != nil {
			return nil, perr
		}
		g, err = ramp.NewWithBounds[T](ramp.Bounds{First: s.Bounds.First, Target: s.Bounds.Target}, s.Target(), p)
	} else {
		req, rerr := s.Request()
		if rerr != nil {
			return nil, rerr
		}
		g, err = ramp.New[T](req)
	}
	if err != nil {
		return nil, err
	}
	return g, nil
}

// Render runs the move to the end on a simulated clock and returns it in
// reference sequence form. Soft stops show as the stop marker.
func (s *Scenario) Render() ([]string, error) {
	g, err := s.Build()
	if err != nil {
		return nil, err
	}
	var (
		lines []string
		clock uint64
		next  int
	)
	for tick := 0; tick < fixture.MaxLines; tick++ {
		for ; next < len(s.Events) && s.Events[next].At == tick; next++ {
			e := s.Events[next]
			if e.SoftStop {
				lines = append(lines, fixture.StopMarker)
			}
			if err := apply(g, e); err != nil {
				return nil, fmt.Errorf("event at %d: %w", tick, err)
			}
		}
		d, ok := g.NextAt(clock)
		if !ok {
			return append(lines, fixture.EndMarker), nil
		}
		clock += uint64(d)
		lines = append(lines, strconv.FormatUint(uint64(d), 10))
	}
	return nil, fixture.ErrRunaway
}

func apply(g Generator, e Event) error {
	if e.Delay != 0 {
		if err := g.SetTargetDelay(e.Delay); err != nil {
			return err
		}
	}
	if e.RPM != 0 {
		if err := g.SetTargetSpeed(e.RPM); err != nil {
			return err
		}
	}
	if e.Steps != 0 {
		if err := g.SetStepTarget(e.Steps); err != nil {
			return err
		}
	}
	if e.SoftStop {
		return g.SoftStop()
	}
	return nil
}

// Config is the config_ramp command for the scenario's stepper.
func (s *Scenario) Config(stepPin, dirPin uint8, invertStep bool) protocol.ConfigRamp {
	return protocol.ConfigRamp{OID: s.OID, StepPin: stepPin, DirPin: dirPin, InvertStep: invertStep}
}

// Move is the ramp_move command that runs the scenario on the firmware.
// The firmware brings its own timer frequency. Values the command cannot
// carry exactly are rejected, so the board runs the move Render shows.
func (s *Scenario) Move() (protocol.RampMove, error) {
	if s.Motor == nil {
		return protocol.RampMove{}, ErrNeedsMotor
	}
	m := protocol.RampMove{
		OID:        s.OID,
		RPM:        s.Motor.RPM,
		Accel:      s.Motor.Acceleration,
		SPR:        s.Motor.StepsPerRevolution,
		Steps:      s.Steps,
		DurationMS: s.DurationMS,
		Profile:    protocol.ProfileTrapezoid,
	}
	if s.Reverse {
		m.Dir = 1
	}
	var err error
	if m.LegacyCenti, err = fixedPoint("legacy_divisor", s.Motor.LegacyDivisor, 100); err != nil {
		return protocol.RampMove{}, err
	}
	if s.Profile.Kind == ramp.ProfileSigmoid.String() {
		m.Profile = protocol.ProfileSigmoid
		if s.Profile.Alpha > 0 {
			m.AlphaNano, err = fixedPoint("alpha", s.Profile.Alpha, 1e9)
		} else {
			m.ToleranceMilli, err = fixedPoint("tolerance", s.Profile.Tolerance, 1000)
		}
		if err != nil {
			return protocol.RampMove{}, err
		}
	}
	return m, nil
}

// fixedPoint scales v to an integer that converts back to exactly v.
func fixedPoint(name string, v, scale float64) (uint32, error) {
	n := math.Round(v * scale)
	if n < 0 || n > math.MaxUint32 || n/scale != v {
		return 0, fmt.Errorf("%w: %s %v", ErrNotSendable, name, v)
	}
	return uint32(n), nil
}
