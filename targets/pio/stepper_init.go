//go:build rp2040 || rp2350

package pio

import "stepgen/core"

// BackendKind selects how ramp steppers drive their outputs.
type BackendKind uint8

const (
	// BackendPIO times each pulse in a PIO state machine.
	BackendPIO BackendKind = iota
	// BackendGPIO toggles SIO registers from the step timer.
	BackendGPIO
	// BackendUnipolar drives a 4-coil motor through a ULN2003 style board.
	BackendUnipolar
)

var (
	// RP2040/RP2350 have 2 PIO blocks with 4 state machines each.
	pioAllocations = [2][4]bool{}
	nextPIONum     = uint8(0)
	nextSMNum      = uint8(0)
)

// InitSteppers registers the ramp commands and the backend factory used by
// config_ramp.
func InitSteppers(kind BackendKind) error {
	if err := core.RegisterRampCommands(); err != nil {
		return err
	}

	switch kind {
	case BackendGPIO:
		core.SetStepperBackendFactory(func() core.StepperBackend { return NewGPIOStepperBackend() })
	case BackendUnipolar:
		core.SetStepperBackendFactory(func() core.StepperBackend { return NewUnipolarBackend() })
	default:
		core.SetStepperBackendFactory(createPIOBackend)
	}
	return nil
}

// createPIOBackend returns nil when every state machine is taken.
func createPIOBackend() core.StepperBackend {
	pioNum, smNum, ok := allocatePIO()
	if !ok {
		return nil
	}
	return NewPIOStepperBackend(pioNum, smNum)
}

// allocatePIO hands out state machines round-robin across both blocks.
func allocatePIO() (uint8, uint8, bool) {
	for i := 0; i < 8; i++ {
		pioNum := nextPIONum
		smNum := nextSMNum

		nextSMNum++
		if nextSMNum >= 4 {
			nextSMNum = 0
			nextPIONum = (nextPIONum + 1) % 2
		}

		if !pioAllocations[pioNum][smNum] {
			pioAllocations[pioNum][smNum] = true
			return pioNum, smNum, true
		}
	}
	return 0, 0, false
}

func releasePIO(pioNum, smNum uint8) {
	pioAllocations[pioNum][smNum] = false
}

// GetPIOAllocationStatus returns which state machines are in use.
func GetPIOAllocationStatus() [2][4]bool {
	return pioAllocations
}

// ResetPIOAllocations frees every state machine.
func ResetPIOAllocations() {
	pioAllocations = [2][4]bool{}
	nextPIONum = 0
	nextSMNum = 0
}
