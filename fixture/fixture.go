// Package fixture reads, writes and renders reference delay sequences.
//
// A sequence file holds one rounded tick value per line. A "Stopping" line
// marks where a soft stop was requested and a final "stop" line stands for
// the terminal result. Files are named <steps>[_<microsteps>[_<stop_at>]].
package fixture

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"stepgen/ramp"
)

const (
	StopMarker = "Stopping"
	EndMarker  = "stop"
)

// Reference ramp bounds in ticks at full stepping.
const (
	FullStepFirst  = 2000
	FullStepTarget = 150
)

// MaxLines bounds Render for generators that never stop.
const MaxLines = 1 << 20

var (
	ErrBadName    = errors.New("fixture: bad scenario name")
	ErrNoTerminal = errors.New("fixture: sequence has no terminal line")
	ErrRunaway    = errors.New("fixture: generator did not stop")
)

var nameRE = regexp.MustCompile(`^(\d+)(?:_(\d+)(?:_(\d+))?)?$`)

// Scenario is a reference move decoded from a fixture name.
type Scenario struct {
	Steps      uint32
	Microsteps uint32
	// StopAt is the tick index before which a soft stop is requested, or
	// -1 for none.
	StopAt int
}

// ParseName decodes a fixture file name.
func ParseName(name string) (Scenario, error) {
	m := nameRE.FindStringSubmatch(name)
	if m == nil {
		return Scenario{}, fmt.Errorf("%w: %q", ErrBadName, name)
	}
	s := Scenario{Microsteps: 1, StopAt: -1}
	steps, err := strconv.ParseUint(m[1], 10, 32)
	if err != nil || steps == 0 {
		return Scenario{}, fmt.Errorf("%w: %q", ErrBadName, name)
	}
	s.Steps = uint32(steps)
	if m[2] != "" {
		micro, err := strconv.ParseUint(m[2], 10, 32)
		if err != nil || micro == 0 {
			return Scenario{}, fmt.Errorf("%w: %q", ErrBadName, name)
		}
		s.Microsteps = uint32(micro)
	}
	if m[3] != "" {
		at, err := strconv.Atoi(m[3])
		if err != nil {
			return Scenario{}, fmt.Errorf("%w: %q", ErrBadName, name)
		}
		s.StopAt = at
	}
	return s, nil
}

// Name is the inverse of ParseName.
func (s Scenario) Name() string {
	name := strconv.FormatUint(uint64(s.Steps), 10)
	if s.Microsteps > 1 || s.StopAt >= 0 {
		name += "_" + strconv.FormatUint(uint64(s.Microsteps), 10)
	}
	if s.StopAt >= 0 {
		name += "_" + strconv.Itoa(s.StopAt)
	}
	return name
}

// Bounds are the reference delays scaled down by the microstep factor.
func (s Scenario) Bounds() ramp.Bounds {
	m := s.Microsteps
	if m == 0 {
		m = 1
	}
	return ramp.Bounds{First: FullStepFirst / m, Target: FullStepTarget / m}
}

func (s Scenario) Target() ramp.Target { return ramp.Steps(s.Steps) }

// Stepper is the part of a generator Render drives.
type Stepper interface {
	Next() (uint32, bool)
	SoftStop() error
}

// Render runs g to completion. When stopAt is not negative a soft stop is
// requested before the delay with that index.
func Render(g Stepper, stopAt int) ([]string, error) {
	var lines []string
	for tick := 0; tick < MaxLines; tick++ {
		if tick == stopAt {
			lines = append(lines, StopMarker)
			if err := g.SoftStop(); err != nil {
				return nil, fmt.Errorf("soft stop at %d: %w", tick, err)
			}
		}
		d, ok := g.Next()
		if !ok {
			return append(lines, EndMarker), nil
		}
		lines = append(lines, strconv.FormatUint(uint64(d), 10))
	}
	return nil, ErrRunaway
}

// Delays extracts the numeric lines of a sequence.
func Delays(lines []string) ([]uint32, error) {
	out := make([]uint32, 0, len(lines))
	for i, l := range lines {
		if l == StopMarker || l == EndMarker {
			continue
		}
		v, err := strconv.ParseUint(l, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		out = append(out, uint32(v))
	}
	return out, nil
}

// Read parses a sequence. It must end with the terminal line.
func Read(r io.Reader) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		l := strings.TrimSpace(sc.Text())
		if l == "" {
			continue
		}
		lines = append(lines, l)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(lines) == 0 || lines[len(lines)-1] != EndMarker {
		return nil, ErrNoTerminal
	}
	if _, err := Delays(lines); err != nil {
		return nil, err
	}
	return lines, nil
}

// Load reads the sequence file at path.
func Load(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	lines, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return lines, nil
}

// Write emits lines one per line.
func Write(w io.Writer, lines []string) error {
	bw := bufio.NewWriter(w)
	for _, l := range lines {
		if _, err := bw.WriteString(l); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}
