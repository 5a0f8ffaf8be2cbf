package batchpipe

import "time"

// idleTimer is a resettable one-shot timer owned by the intake goroutine.
//
// Every Arm replaces the underlying timer, so a firing that was already in
// flight lands on a channel nobody selects on anymore. Ticks that do reach
// the intake loop are still checked against the deadline of the latest Arm
// before anything is flushed.
type idleTimer struct {
	clock    Clock
	timer    Timer
	interval time.Duration
	deadline time.Time
}

func newIdleTimer(clock Clock, interval time.Duration) *idleTimer {
	return &idleTimer{
		clock:    clock,
		interval: interval,
	}
}

// C returns the channel of the current timer, or nil when disarmed so the
// select case never fires.
func (t *idleTimer) C() <-chan time.Time {
	if t.timer == nil {
		return nil
	}
	return t.timer.C()
}

// Arm cancels any scheduled firing and schedules a new one interval from now.
func (t *idleTimer) Arm() {
	if t.timer != nil {
		t.timer.Stop()
	}
	// Deadline is taken before the timer starts so it never lands after
	// the firing time.
	t.deadline = t.clock.Now().Add(t.interval)
	t.timer = t.clock.NewTimer(t.interval)
}

// Disarm cancels any scheduled firing. Safe when nothing is scheduled.
func (t *idleTimer) Disarm() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.deadline = time.Time{}
}

// Armed reports whether a firing is scheduled.
func (t *idleTimer) Armed() bool {
	return t.timer != nil
}

// Expired reports whether tick belongs to the current arming, and disarms
// the timer if so. A tick read from C() before the deadline has used up the
// current timer, so the remainder is scheduled on a fresh one.
func (t *idleTimer) Expired(tick time.Time) bool {
	if t.timer == nil {
		return false
	}
	if tick.Before(t.deadline) {
		remaining := t.deadline.Sub(t.clock.Now())
		if remaining > 0 {
			t.timer.Stop()
			t.timer = t.clock.NewTimer(remaining)
			return false
		}
	}
	t.timer = nil
	t.deadline = time.Time{}
	return true
}
