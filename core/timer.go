package core

// DefaultTimerFreq is the RP2040 timer rate.
const DefaultTimerFreq = 1_000_000

var timerFreq uint32 = DefaultTimerFreq

// SetTimerFrequency sets the tick rate of the clock behind GetTime.
// Zero is ignored.
func SetTimerFrequency(hz uint32) {
	if hz != 0 {
		timerFreq = hz
	}
}

// TimerFrequency returns ticks per second.
func TimerFrequency() uint32 { return timerFreq }

// GetTime returns the 64-bit uptime in timer ticks.
func GetTime() uint64 { return getSystemTicks() }

// SetTime sets the clock, for targets that mirror a hardware counter and
// for tests.
func SetTime(ticks uint64) { setSystemTicks(ticks) }

// TimerFromMS converts milliseconds to ticks.
func TimerFromMS(ms uint32) uint64 {
	return uint64(ms) * uint64(timerFreq) / 1000
}

// TimerToUS converts ticks to microseconds.
func TimerToUS(ticks uint64) uint64 {
	return ticks * 1_000_000 / uint64(timerFreq)
}

// ProcessTimers runs all due timers. Called from the main loop.
func ProcessTimers() {
	TimerDispatch(GetTime())
}
