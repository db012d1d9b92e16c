package search

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Debouncer collapses bursts of triggers into a single delayed call.
// Each Trigger replaces the pending function and restarts the delay.
type Debouncer struct {
	clock clockwork.Clock
	delay time.Duration

	mu    sync.Mutex
	timer clockwork.Timer
	fn    func()
	gen   uint64
}

// NewDebouncer creates a debouncer. A nil clock means the real clock.
func NewDebouncer(delay time.Duration, clock clockwork.Clock) *Debouncer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Debouncer{clock: clock, delay: delay}
}

// Trigger schedules fn to run once the delay passes without another Trigger.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopLocked()
	d.gen++
	gen := d.gen
	d.fn = fn
	d.timer = d.clock.AfterFunc(d.delay, func() { d.fire(gen) })
}

// Flush runs the pending function immediately, on the calling goroutine.
// It reports whether there was one.
func (d *Debouncer) Flush() bool {
	d.mu.Lock()
	fn := d.takeLocked()
	d.mu.Unlock()

	if fn == nil {
		return false
	}
	fn()
	return true
}

// Cancel drops the pending function. It reports whether there was one.
func (d *Debouncer) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.takeLocked() != nil
}

// Pending reports whether a function is waiting to run.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fn != nil
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen || d.fn == nil {
		// Superseded, flushed or cancelled while the timer was firing.
		d.mu.Unlock()
		return
	}
	fn := d.fn
	d.fn = nil
	d.timer = nil
	d.mu.Unlock()

	fn()
}

func (d *Debouncer) takeLocked() func() {
	d.stopLocked()
	fn := d.fn
	d.fn = nil
	d.gen++
	return fn
}

func (d *Debouncer) stopLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
