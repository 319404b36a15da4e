package suggest

import "time"

// Timer represents a scheduled callback that can be stopped.
type Timer interface {
	Stop() bool
}

// Clock provides time-related operations. Tests swap it for a manual clock.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
	Now() time.Time
}

// SystemClock is the default Clock backed by the time package.
var SystemClock Clock = systemClock{}

type systemClock struct{}

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

func (systemClock) Now() time.Time {
	return time.Now()
}

// timerSlot holds at most one outstanding debounce timer.
// Arming stops and replaces the previous timer; a fire is honoured only for the latest arm.
type timerSlot struct {
	timer Timer
	seq   uint64
}

func (s *timerSlot) arm(clock Clock, d time.Duration, fire func(seq uint64)) {
	s.stop()
	s.seq++
	seq := s.seq
	s.timer = clock.AfterFunc(d, func() { fire(seq) })
}

func (s *timerSlot) stop() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// consume clears the slot if seq belongs to the armed timer.
func (s *timerSlot) consume(seq uint64) bool {
	if s.timer == nil || seq != s.seq {
		return false
	}
	s.timer = nil
	return true
}

func (s *timerSlot) armed() bool { return s.timer != nil }
