package protocol

import "errors"

// Command IDs. The table is fixed and shared by the firmware and the host,
// so no identify handshake is needed.
const (
	CmdRampStatus uint16 = iota
	CmdConfigRamp
	CmdRampMove
	CmdRampSetTarget
	CmdRampSoftStop
	CmdRampQuery
	CmdRampSetSpeed
)

// ErrUnknownCommand is returned for an ID outside the table.
var ErrUnknownCommand = errors.New("unknown command ID")

// CommandInfo describes one entry of the command table.
type CommandInfo struct {
	ID     uint16
	Name   string
	Format string
	// Response marks messages sent by the firmware.
	Response bool
}

var commandTable = [...]CommandInfo{
	{CmdRampStatus, "ramp_status", "oid=%c step=%u target=%u accel_steps=%u delay=%u flags=%c", true},
	{CmdConfigRamp, "config_ramp", "oid=%c step_pin=%c dir_pin=%c invert_step=%c", false},
	{CmdRampMove, "ramp_move", "oid=%c dir=%c rpm=%u accel=%u spr=%u steps=%u duration=%u profile=%c alpha_nano=%u tolerance_milli=%u legacy_centi=%u", false},
	{CmdRampSetTarget, "ramp_set_target", "oid=%c steps=%u", false},
	{CmdRampSoftStop, "ramp_soft_stop", "oid=%c", false},
	{CmdRampQuery, "ramp_query", "oid=%c", false},
	{CmdRampSetSpeed, "ramp_set_speed", "oid=%c rpm=%u", false},
}

// Commands returns the command table in ID order.
func Commands() []CommandInfo {
	return commandTable[:]
}

// LookupCommand returns the table entry for id.
func LookupCommand(id uint16) (CommandInfo, bool) {
	if int(id) >= len(commandTable) {
		return CommandInfo{}, false
	}
	return commandTable[id], true
}

// Message is a command or response with a fixed argument layout.
type Message interface {
	CommandID() uint16
	// Encode writes the arguments, not the ID.
	Encode(out OutputBuffer)
	// Decode reads the arguments, not the ID.
	Decode(data *[]byte) error
}

// AppendMessage appends the ID and arguments of m.
func AppendMessage(dst []byte, m Message) []byte {
	out := &SliceOutput{Buf: AppendVLQUint(dst, uint32(m.CommandID()))}
	m.Encode(out)
	return out.Buf
}

// DecodeMessage reads one command ID and returns the matching message with
// its arguments decoded.
func DecodeMessage(data *[]byte) (Message, error) {
	id, err := DecodeVLQUint(data)
	if err != nil {
		return nil, err
	}
	var m Message
	switch uint16(id) {
	case CmdRampStatus:
		m = &RampStatus{}
	case CmdConfigRamp:
		m = &ConfigRamp{}
	case CmdRampMove:
		m = &RampMove{}
	case CmdRampSetTarget:
		m = &RampSetTarget{}
	case CmdRampSoftStop:
		m = &RampSoftStop{}
	case CmdRampQuery:
		m = &RampQuery{}
	case CmdRampSetSpeed:
		m = &RampSetSpeed{}
	default:
		return nil, ErrUnknownCommand
	}
	if err := m.Decode(data); err != nil {
		return nil, err
	}
	return m, nil
}

func decodeByte(data *[]byte, dst *uint8) error {
	v, err := DecodeVLQUint(data)
	*dst = uint8(v)
	return err
}

func decodeUints(data *[]byte, dsts ...*uint32) error {
	for _, d := range dsts {
		v, err := DecodeVLQUint(data)
		if err != nil {
			return err
		}
		*d = v
	}
	return nil
}

func boolByte(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

// Status flags carried by RampStatus.
const (
	FlagActive uint8 = 1 << iota
	FlagCruising
	FlagAccelDone
	FlagDone
	FlagDurationMode
)

// Profiles carried by RampMove.
const (
	ProfileTrapezoid uint8 = 0
	ProfileSigmoid   uint8 = 1
)

type ConfigRamp struct {
	OID        uint8
	StepPin    uint8
	DirPin     uint8
	InvertStep bool
}

func (*ConfigRamp) CommandID() uint16 { return CmdConfigRamp }

func (m *ConfigRamp) Encode(out OutputBuffer) {
	EncodeVLQUint(out, uint32(m.OID))
	EncodeVLQUint(out, uint32(m.StepPin))
	EncodeVLQUint(out, uint32(m.DirPin))
	EncodeVLQUint(out, boolByte(m.InvertStep))
}

func (m *ConfigRamp) Decode(data *[]byte) error {
	var invert uint8
	for _, d := range []*uint8{&m.OID, &m.StepPin, &m.DirPin, &invert} {
		if err := decodeByte(data, d); err != nil {
			return err
		}
	}
	m.InvertStep = invert != 0
	return nil
}

// RampMove starts a move. Exactly one of Steps and DurationMS is non-zero.
// AlphaNano is the sigmoid alpha times 1e9; zero asks the firmware to
// calibrate it to ToleranceMilli thousandths of a tick, or to its default
// tolerance when that is zero too. A non-zero LegacyCenti selects the
// legacy first step derivation with that divisor times 100.
type RampMove struct {
	OID        uint8
	Dir        uint8
	RPM        uint32
	Accel      uint32
	SPR        uint32
	Steps      uint32
	DurationMS uint32
	Profile    uint8
	AlphaNano  uint32

	ToleranceMilli uint32
	LegacyCenti    uint32
}

func (*RampMove) CommandID() uint16 { return CmdRampMove }

func (m *RampMove) Encode(out OutputBuffer) {
	EncodeVLQUint(out, uint32(m.OID))
	EncodeVLQUint(out, uint32(m.Dir))
	for _, v := range []uint32{m.RPM, m.Accel, m.SPR, m.Steps, m.DurationMS} {
		EncodeVLQUint(out, v)
	}
	EncodeVLQUint(out, uint32(m.Profile))
	for _, v := range []uint32{m.AlphaNano, m.ToleranceMilli, m.LegacyCenti} {
		EncodeVLQUint(out, v)
	}
}

func (m *RampMove) Decode(data *[]byte) error {
	if err := decodeByte(data, &m.OID); err != nil {
		return err
	}
	if err := decodeByte(data, &m.Dir); err != nil {
		return err
	}
	if err := decodeUints(data, &m.RPM, &m.Accel, &m.SPR, &m.Steps, &m.DurationMS); err != nil {
		return err
	}
	if err := decodeByte(data, &m.Profile); err != nil {
		return err
	}
	return decodeUints(data, &m.AlphaNano, &m.ToleranceMilli, &m.LegacyCenti)
}

type RampSetTarget struct {
	OID   uint8
	Steps uint32
}

func (*RampSetTarget) CommandID() uint16 { return CmdRampSetTarget }

func (m *RampSetTarget) Encode(out OutputBuffer) {
	EncodeVLQUint(out, uint32(m.OID))
	EncodeVLQUint(out, m.Steps)
}

func (m *RampSetTarget) Decode(data *[]byte) error {
	if err := decodeByte(data, &m.OID); err != nil {
		return err
	}
	return decodeUints(data, &m.Steps)
}

type RampSoftStop struct {
	OID uint8
}

func (*RampSoftStop) CommandID() uint16 { return CmdRampSoftStop }

func (m *RampSoftStop) Encode(out OutputBuffer) { EncodeVLQUint(out, uint32(m.OID)) }

func (m *RampSoftStop) Decode(data *[]byte) error { return decodeByte(data, &m.OID) }

type RampQuery struct {
	OID uint8
}

func (*RampQuery) CommandID() uint16 { return CmdRampQuery }

func (m *RampQuery) Encode(out OutputBuffer) { EncodeVLQUint(out, uint32(m.OID)) }

func (m *RampQuery) Decode(data *[]byte) error { return decodeByte(data, &m.OID) }

// RampSetSpeed changes the cruise speed of the running move.
type RampSetSpeed struct {
	OID uint8
	RPM uint32
}

func (*RampSetSpeed) CommandID() uint16 { return CmdRampSetSpeed }

func (m *RampSetSpeed) Encode(out OutputBuffer) {
	EncodeVLQUint(out, uint32(m.OID))
	EncodeVLQUint(out, m.RPM)
}

func (m *RampSetSpeed) Decode(data *[]byte) error {
	if err := decodeByte(data, &m.OID); err != nil {
		return err
	}
	return decodeUints(data, &m.RPM)
}

// RampStatus reports the state of one ramp stepper.
type RampStatus struct {
	OID        uint8
	Step       uint32
	Target     uint32
	AccelSteps uint32
	Delay      uint32
	Flags      uint8
}

func (*RampStatus) CommandID() uint16 { return CmdRampStatus }

func (m *RampStatus) Encode(out OutputBuffer) {
	EncodeVLQUint(out, uint32(m.OID))
	for _, v := range []uint32{m.Step, m.Target, m.AccelSteps, m.Delay} {
		EncodeVLQUint(out, v)
	}
	EncodeVLQUint(out, uint32(m.Flags))
}

func (m *RampStatus) Decode(data *[]byte) error {
	if err := decodeByte(data, &m.OID); err != nil {
		return err
	}
	if err := decodeUints(data, &m.Step, &m.Target, &m.AccelSteps, &m.Delay); err != nil {
		return err
	}
	return decodeByte(data, &m.Flags)
}

// Dictionary lists the command table, one "name format" line per entry.
func Dictionary() string {
	var s []byte
	for _, c := range commandTable {
		s = append(s, c.Name...)
		if c.Format != "" {
			s = append(s, ' ')
			s = append(s, c.Format...)
		}
		s = append(s, '\n')
	}
	return string(s)
}
