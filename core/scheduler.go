package core

// Timer is a scheduled event on the 64-bit tick clock.
type Timer struct {
	WakeTime uint64
	Handler  func(*Timer) uint8
	Next     *Timer
}

// Timer handler results.
const (
	SF_DONE       = 0
	SF_RESCHEDULE = 1
)

// Scheduler keeps timers sorted by wake time.
type Scheduler struct {
	head *Timer
}

var scheduler Scheduler

// ScheduleTimer adds t to the global schedule.
func ScheduleTimer(t *Timer) {
	state := disableInterrupts()
	defer restoreInterrupts(state)
	scheduler.insert(t)
}

// CancelTimer removes t from the global schedule if it is pending.
func CancelTimer(t *Timer) {
	state := disableInterrupts()
	defer restoreInterrupts(state)
	scheduler.remove(t)
}

// TimerDispatch runs every timer due at or before now.
func TimerDispatch(now uint64) {
	state := disableInterrupts()
	defer restoreInterrupts(state)
	scheduler.dispatch(now)
}

// insert keeps equal wake times in insertion order.
func (s *Scheduler) insert(t *Timer) {
	if s.head == nil || t.WakeTime < s.head.WakeTime {
		t.Next = s.head
		s.head = t
		return
	}
	cur := s.head
	for cur.Next != nil && cur.Next.WakeTime <= t.WakeTime {
		cur = cur.Next
	}
	t.Next = cur.Next
	cur.Next = t
}

func (s *Scheduler) remove(t *Timer) bool {
	for p := &s.head; *p != nil; p = &(*p).Next {
		if *p == t {
			*p = t.Next
			t.Next = nil
			return true
		}
	}
	return false
}

func (s *Scheduler) dispatch(now uint64) {
	for s.head != nil && s.head.WakeTime <= now {
		t := s.head
		s.head = t.Next
		t.Next = nil
		if t.Handler(t) == SF_RESCHEDULE {
			s.insert(t)
		}
	}
}

// Pending reports whether t is scheduled.
func (s *Scheduler) Pending(t *Timer) bool {
	for cur := s.head; cur != nil; cur = cur.Next {
		if cur == t {
			return true
		}
	}
	return false
}

// NextWake returns the earliest wake time, if any timer is pending.
func (s *Scheduler) NextWake() (uint64, bool) {
	if s.head == nil {
		return 0, false
	}
	return s.head.WakeTime, true
}
