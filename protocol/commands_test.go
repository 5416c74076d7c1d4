package protocol

import (
	"reflect"
	"strings"
	"testing"
)

func TestCommandTableOrder(t *testing.T) {
	for i, c := range Commands() {
		if int(c.ID) != i {
			t.Errorf("entry %d has ID %d", i, c.ID)
		}
		got, ok := LookupCommand(c.ID)
		if !ok || got.Name != c.Name {
			t.Errorf("LookupCommand(%d) = %+v, %v", c.ID, got, ok)
		}
	}
	if _, ok := LookupCommand(99); ok {
		t.Error("LookupCommand accepted an unknown ID")
	}
}

func TestMessageRoundTrip(t *testing.T) {
	messages := []Message{
		&ConfigRamp{OID: 1, StepPin: 2, DirPin: 3, InvertStep: true},
		&RampMove{OID: 1, Dir: 1, RPM: 60, Accel: 1000, SPR: 200, Steps: 5000, Profile: ProfileSigmoid, AlphaNano: 750_000},
		&RampMove{OID: 2, RPM: 60, Accel: 1000, SPR: 200, Steps: 5000, Profile: ProfileSigmoid, ToleranceMilli: 250, LegacyCenti: 335},
		&RampMove{OID: 3, Dir: 1, RPM: 1 << 31, Accel: 1 << 31, SPR: 1 << 31, Steps: 1 << 31, Profile: ProfileSigmoid,
			AlphaNano: 1 << 31, ToleranceMilli: 1 << 31, LegacyCenti: 1 << 31},
		&RampMove{OID: 0, RPM: 600, Accel: 20000, SPR: 3200, DurationMS: 10000},
		&RampSetTarget{OID: 1, Steps: 1 << 31},
		&RampSoftStop{OID: 7},
		&RampQuery{OID: 7},
		&RampSetSpeed{OID: 2, RPM: 450},
		&RampStatus{OID: 1, Step: 100, Target: 500, AccelSteps: 98, Delay: 150, Flags: FlagActive | FlagCruising},
	}
	for _, m := range messages {
		buf := AppendMessage(nil, m)
		if len(buf)+MessageLengthMin > MessageLengthMax {
			t.Errorf("%T does not fit a frame", m)
		}
		got, err := DecodeMessage(&buf)
		if err != nil {
			t.Errorf("%T: %v", m, err)
			continue
		}
		if !reflect.DeepEqual(got, m) {
			t.Errorf("round trip: got %+v, want %+v", got, m)
		}
		if len(buf) != 0 {
			t.Errorf("%T left %d bytes", m, len(buf))
		}
	}
}

func TestDecodeMessageErrors(t *testing.T) {
	buf := AppendVLQUint(nil, 42)
	if _, err := DecodeMessage(&buf); err != ErrUnknownCommand {
		t.Errorf("unknown ID: %v", err)
	}
	buf = AppendVLQUint(nil, uint32(CmdRampMove))
	if _, err := DecodeMessage(&buf); err != ErrBufferTooSmall {
		t.Errorf("truncated: %v", err)
	}
}

func TestDictionary(t *testing.T) {
	dict := Dictionary()
	lines := strings.Split(strings.TrimSpace(dict), "\n")
	if len(lines) != len(Commands()) {
		t.Fatalf("dictionary has %d lines", len(lines))
	}
	if lines[CmdRampSetTarget] != "ramp_set_target oid=%c steps=%u" {
		t.Errorf("line = %q", lines[CmdRampSetTarget])
	}
	if lines[CmdRampSetSpeed] != "ramp_set_speed oid=%c rpm=%u" {
		t.Errorf("line = %q", lines[CmdRampSetSpeed])
	}
}
