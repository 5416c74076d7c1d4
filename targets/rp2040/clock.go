//go:build rp2040 || rp2350

package main

import (
	"runtime/volatile"
	"unsafe"

	"stepgen/core"
)

// Timer peripheral, a free running 1MHz 64-bit counter. The raw registers
// do not latch, unlike TIMEHR/TIMELR.
const (
	timerTIMERAWH = timerBase + 0x24
	timerTIMERAWL = timerBase + 0x28

	timerFrequency = 1_000_000
)

var (
	timerRAWH = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTIMERAWH)))
	timerRAWL = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTIMERAWL)))
)

// InitClock tells the core how fast the counter runs.
func InitClock() {
	core.SetTimerFrequency(timerFrequency)
	UpdateSystemTime()
}

// GetHardwareUptime reads the 64-bit counter. The high word is read twice
// to catch a carry between the two halves.
func GetHardwareUptime() uint64 {
	for {
		high1 := timerRAWH.Get()
		low := timerRAWL.Get()
		high2 := timerRAWH.Get()
		if high1 == high2 {
			return uint64(high1)<<32 | uint64(low)
		}
	}
}

// UpdateSystemTime mirrors the counter into the core clock.
func UpdateSystemTime() {
	core.SetTime(GetHardwareUptime())
}
