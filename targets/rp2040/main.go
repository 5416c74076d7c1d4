//go:build rp2040 || rp2350

package main

import (
	"machine"
	"time"

	"stepgen/core"
	"stepgen/protocol"
	piostepper "stepgen/targets/pio"
)

// stepperBackend is fixed at build time; boards with ULN2003 carriers
// switch it to BackendUnipolar.
const stepperBackend = piostepper.BackendPIO

const (
	debugTX = machine.GPIO4
	debugRX = machine.GPIO5
)

var (
	inputBuf  [256]byte
	inputLen  int
	transport *protocol.Transport

	msgerrors                uint32
	consecutiveWriteFailures uint32
)

func main() {
	// A watchdog left armed by a previous image would reset us mid-move.
	if err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0}); err != nil {
		return
	}

	InitUSB()
	InitDebugUART(debugTX, debugRX)
	InitClock()

	if err := piostepper.InitSteppers(stepperBackend); err != nil {
		println("stepper init failed:", err.Error())
	}
	transport = core.InitTransport(writeUSB)

	for {
		// Recover so one bad frame cannot take the board down.
		func() {
			defer func() {
				if r := recover(); r != nil {
					msgerrors++
					inputLen = 0
					core.DumpTimingRing()
				}
			}()

			UpdateSystemTime()

			inputLen += USBRead(inputBuf[inputLen:])
			if inputLen > 0 {
				used := core.HandleInput(inputBuf[:inputLen])
				copy(inputBuf[:], inputBuf[used:inputLen])
				inputLen -= used
				// A full buffer with no complete block is garbage.
				if inputLen == len(inputBuf) {
					msgerrors++
					inputLen = 0
				}
			}

			UpdateSystemTime()
			core.ProcessTimers()
			core.ReportFinishedMoves()
		}()

		// Yield to the USB stack.
		time.Sleep(10 * time.Microsecond)
	}
}

// writeUSB sends one block. After repeated failures the host is assumed
// gone and the link starts over.
func writeUSB(data []byte) {
	written := 0
	for written < len(data) {
		n, err := USBWriteBytes(data[written:])
		if err != nil || n == 0 {
			consecutiveWriteFailures++
			if consecutiveWriteFailures > 10 {
				consecutiveWriteFailures = 0
				inputLen = 0
				transport.Reset()
			}
			return
		}
		written += n
	}
	consecutiveWriteFailures = 0
}
