package core

import "stepgen/protocol"

// RegisterRampCommands binds the protocol command table to the ramp
// stepper handlers. Entries already bound are left alone.
func RegisterRampCommands() error {
	for _, c := range protocol.Commands() {
		var h CommandHandler
		switch c.ID {
		case protocol.CmdConfigRamp:
			h = cmdConfigRamp
		case protocol.CmdRampMove:
			h = cmdRampMove
		case protocol.CmdRampSetTarget:
			h = cmdRampSetTarget
		case protocol.CmdRampSoftStop:
			h = cmdRampSoftStop
		case protocol.CmdRampQuery:
			h = cmdRampQuery
		case protocol.CmdRampSetSpeed:
			h = cmdRampSetSpeed
		}
		if _, ok := globalRegistry.GetCommand(c.ID); ok {
			continue
		}
		if err := globalRegistry.Register(c.ID, c.Name, c.Format, h); err != nil {
			DebugPrintln("[CMD] cannot register " + c.Name + ": " + err.Error())
			return err
		}
	}
	return nil
}

func cmdConfigRamp(data *[]byte) error {
	var m protocol.ConfigRamp
	if err := m.Decode(data); err != nil {
		return err
	}
	_, err := ConfigRampStepper(m.OID, m.StepPin, m.DirPin, m.InvertStep)
	return err
}

func cmdRampMove(data *[]byte) error {
	var m protocol.RampMove
	if err := m.Decode(data); err != nil {
		return err
	}
	s := GetRampStepper(m.OID)
	if s == nil {
		return ErrNoStepper
	}
	return s.Start(MoveRequest(&m), m.Dir != 0)
}

func cmdRampSetTarget(data *[]byte) error {
	var m protocol.RampSetTarget
	if err := m.Decode(data); err != nil {
		return err
	}
	s := GetRampStepper(m.OID)
	if s == nil {
		return ErrNoStepper
	}
	return s.SetTarget(m.Steps)
}

func cmdRampSoftStop(data *[]byte) error {
	var m protocol.RampSoftStop
	if err := m.Decode(data); err != nil {
		return err
	}
	s := GetRampStepper(m.OID)
	if s == nil {
		return ErrNoStepper
	}
	return s.SoftStop()
}

func cmdRampSetSpeed(data *[]byte) error {
	var m protocol.RampSetSpeed
	if err := m.Decode(data); err != nil {
		return err
	}
	s := GetRampStepper(m.OID)
	if s == nil {
		return ErrNoStepper
	}
	return s.SetTargetSpeed(m.RPM)
}

func cmdRampQuery(data *[]byte) error {
	var m protocol.RampQuery
	if err := m.Decode(data); err != nil {
		return err
	}
	s := GetRampStepper(m.OID)
	if s == nil {
		return ErrNoStepper
	}
	st := s.Status()
	return SendResponse(&st)
}

// ReportFinishedMoves sends one ramp_status for every move that ended
// since the last call. Run from the main loop.
func ReportFinishedMoves() {
	for _, s := range rampSteppers {
		if s == nil {
			continue
		}
		state := disableInterrupts()
		due := !s.active && !s.reported
		s.reported = s.reported || due
		restoreInterrupts(state)
		if due {
			st := s.Status()
			_ = SendResponse(&st)
		}
	}
}
