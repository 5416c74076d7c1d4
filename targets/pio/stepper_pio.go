//go:build rp2040 || rp2350

package pio

import (
	"errors"
	"machine"

	rp2pio "github.com/tinygo-org/pio/rp2-pio"
)

// Command word, shifted out right:
//
//	Bits 0-15:  pulse count minus one
//	Bits 16-23: delay loops after each pulse
//	Bit 24:     direction level
const (
	cmdCountShift = 0
	cmdDelayShift = 16
	cmdDirBit     = 1 << 24
)

// pioClkDiv runs the state machine at 4MHz, which makes the 8 cycle high
// phase a 2us pulse.
const (
	pioClkDivInt  = 31
	pioClkDivFrac = 64
)

// ErrInvertStep is returned for active low step inputs, which the pulse
// program does not produce. Use the GPIO backend for those.
var ErrInvertStep = errors.New("pio: inverted step output not supported")

// buildStepperProgram assembles the pulse program.
func buildStepperProgram() []uint16 {
	asm := rp2pio.AssemblerV0{SidesetBits: 0}
	return []uint16{
		// .wrap_target
		asm.Pull(false, true).Encode(),          // 0: pull block
		asm.Out(rp2pio.OutDestX, 16).Encode(),   // 1: out x, 16
		asm.Out(rp2pio.OutDestY, 8).Encode(),    // 2: out y, 8
		asm.Out(rp2pio.OutDestPins, 1).Encode(), // 3: out pins, 1
		// step_loop:
		asm.Set(rp2pio.SetDestPins, 1).Delay(7).Encode(), // 4: set pins, 1 [7]
		asm.Set(rp2pio.SetDestPins, 0).Encode(),          // 5: set pins, 0
		// delay_loop:
		asm.Jmp(6, rp2pio.JmpYNZeroDec).Encode(), // 6: jmp y--, 6
		asm.Jmp(4, rp2pio.JmpXNZeroDec).Encode(), // 7: jmp x--, 4
		// .wrap
	}
}

// Jump targets are absolute, so the program lives at offset 0 and is
// loaded once per block.
const stepperPIOOrigin = 0

var programLoaded [2]bool

// PIOStepperBackend emits each pulse from a PIO state machine, so pulse
// width does not depend on interrupt latency.
type PIOStepperBackend struct {
	pio       *rp2pio.PIO
	sm        rp2pio.StateMachine
	stepPin   machine.Pin
	dirPin    machine.Pin
	dirLevel  uint32
	invertDir bool
	pioNum    uint8
	smNum     uint8
}

// NewPIOStepperBackend binds state machine smNum of block pioNum.
func NewPIOStepperBackend(pioNum, smNum uint8) *PIOStepperBackend {
	pioHW := rp2pio.PIO0
	if pioNum != 0 {
		pioHW = rp2pio.PIO1
	}
	return &PIOStepperBackend{
		pio:    pioHW,
		sm:     pioHW.StateMachine(smNum),
		pioNum: pioNum,
		smNum:  smNum,
	}
}

func (b *PIOStepperBackend) Init(stepPin, dirPin uint8, invertStep, invertDir bool) error {
	b.stepPin = machine.Pin(stepPin)
	b.dirPin = machine.Pin(dirPin)
	b.invertDir = invertDir
	if invertStep {
		releasePIO(b.pioNum, b.smNum)
		return ErrInvertStep
	}

	b.sm.TryClaim()

	program := buildStepperProgram()
	offset := uint8(stepperPIOOrigin)
	if !programLoaded[b.pioNum] {
		var err error
		offset, err = b.pio.AddProgram(program, stepperPIOOrigin)
		if err != nil {
			releasePIO(b.pioNum, b.smNum)
			return err
		}
		programLoaded[b.pioNum] = true
	}

	b.stepPin.Configure(machine.PinConfig{Mode: b.pio.PinMode()})
	b.dirPin.Configure(machine.PinConfig{Mode: b.pio.PinMode()})

	cfg := rp2pio.DefaultStateMachineConfig()
	cfg.SetSetPins(b.stepPin, 1)
	cfg.SetOutPins(b.dirPin, 1)
	cfg.SetOutShift(true, false, 32)
	cfg.SetWrap(offset+uint8(len(program))-1, offset)
	cfg.SetClkDivIntFrac(pioClkDivInt, pioClkDivFrac)

	// Pin directions only stick after Init.
	b.sm.Init(offset, cfg)
	b.sm.SetPindirsConsecutive(b.stepPin, 1, true)
	b.sm.SetPindirsConsecutive(b.dirPin, 1, true)
	b.sm.SetPinsConsecutive(b.stepPin, 1, false)
	b.sm.SetPinsConsecutive(b.dirPin, 1, invertDir)

	b.SetDirection(false)
	b.sm.SetEnabled(true)
	return nil
}

// Step queues one pulse. The FIFO holds four, far more than one step
// period needs.
func (b *PIOStepperBackend) Step() {
	cmd := uint32(0)<<cmdCountShift | uint32(1)<<cmdDelayShift | b.dirLevel
	for b.sm.IsTxFIFOFull() {
	}
	b.sm.TxPut(cmd)
}

// SetDirection takes effect with the next pulse.
func (b *PIOStepperBackend) SetDirection(dir bool) {
	b.dirLevel = 0
	if dir != b.invertDir {
		b.dirLevel = cmdDirBit
	}
}

// Stop drops queued pulses.
func (b *PIOStepperBackend) Stop() {
	b.sm.SetEnabled(false)
	b.sm.ClearFIFOs()
	b.sm.Restart()
	b.sm.SetEnabled(true)
}

func (b *PIOStepperBackend) Name() string { return "PIO" }
