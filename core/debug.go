package core

// DebugWriter receives one line of debug output.
type DebugWriter func(string)

// TimingEvent is one entry of the post-mortem ring.
type TimingEvent struct {
	EventType uint8
	OID       uint8
	Clock     uint32
	Value1    uint32
	Value2    uint32
}

// Event type codes. Value1 and Value2 depend on the event.
const (
	EvtRampStart    = 1 // v1=first delay v2=target step
	EvtRampStep     = 2 // v1=step v2=delay
	EvtRampDone     = 3 // v1=final step
	EvtRampRetarget = 4 // v1=current step v2=new target
	EvtTimerPast    = 5 // v1=wake time v2=delay
)

const TimingRingSize = 32

var (
	debugPrintln DebugWriter = func(string) {}
	debugEnabled bool

	timingRing     [TimingRingSize]TimingEvent
	timingRingHead uint8
	timingEnabled  = true
	traceSteps     bool
)

// SetDebugWriter sets the platform output for debug lines.
func SetDebugWriter(writer DebugWriter) {
	debugPrintln = writer
}

// SetDebugEnabled gates DebugPrintln. Off by default.
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

func IsDebugEnabled() bool {
	return debugEnabled
}

// SetStepTracing records an EvtRampStep for every pulse. The ring then
// holds only the last few steps, so leave it off unless chasing jitter.
func SetStepTracing(enabled bool) {
	traceSteps = enabled
}

func DebugPrintln(msg string) {
	if debugEnabled && debugPrintln != nil {
		debugPrintln(msg)
	}
}

// RecordTiming captures an event. Safe in timer context.
func RecordTiming(eventType, oid uint8, clock, value1, value2 uint32) {
	if !timingEnabled {
		return
	}
	idx := timingRingHead
	timingRing[idx] = TimingEvent{
		EventType: eventType,
		OID:       oid,
		Clock:     clock,
		Value1:    value1,
		Value2:    value2,
	}
	timingRingHead = (idx + 1) % TimingRingSize
}

// TimingEvents returns the ring contents, oldest first.
func TimingEvents() []TimingEvent {
	var out []TimingEvent
	for i := uint8(0); i < TimingRingSize; i++ {
		evt := timingRing[(timingRingHead+i)%TimingRingSize]
		if evt.EventType != 0 {
			out = append(out, evt)
		}
	}
	return out
}

func eventName(t uint8) string {
	switch t {
	case EvtRampStart:
		return "RAMP_START"
	case EvtRampStep:
		return "RAMP_STEP"
	case EvtRampDone:
		return "RAMP_DONE"
	case EvtRampRetarget:
		return "RETARGET"
	case EvtTimerPast:
		return "TIMER_PAST!"
	}
	return "UNKNOWN"
}

// DumpTimingRing writes the ring to the debug writer, oldest first.
func DumpTimingRing() {
	if debugPrintln == nil {
		return
	}
	debugPrintln("[TIMING] === Timing Ring Dump ===")
	debugPrintln("[TIMING] Total steps executed: " + utoa(GetTotalStepCount()))
	for _, evt := range TimingEvents() {
		debugPrintln("[TIMING] " + eventName(evt.EventType) +
			" oid=" + utoa(uint32(evt.OID)) +
			" clock=" + utoa(evt.Clock) +
			" v1=" + utoa(evt.Value1) +
			" v2=" + utoa(evt.Value2))
	}
	debugPrintln("[TIMING] === End Dump ===")
}

func ClearTimingRing() {
	for i := range timingRing {
		timingRing[i] = TimingEvent{}
	}
	timingRingHead = 0
}
