package app

import (
	"sync"
	"time"
)

// Debouncer coalesces rapid input changes into a single deferred run
// and stamps each run with a monotonically increasing generation. A
// run whose generation is no longer current must discard its result.
type Debouncer struct {
	mu    sync.Mutex
	timer *time.Timer
	gen   uint64
}

func NewDebouncer() *Debouncer {
	return &Debouncer{}
}

// Trigger cancels any pending run, advances the generation and
// schedules fn after delay. A zero delay still goes through the timer
// so fn never runs on the caller's goroutine. Returns the generation
// assigned to this run.
func (d *Debouncer) Trigger(delay time.Duration, fn func(gen uint64)) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.timer = time.AfterFunc(delay, func() { fn(gen) })
	return gen
}

// Generation returns the latest assigned generation.
func (d *Debouncer) Generation() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gen
}

// Current reports whether gen is still the latest generation.
func (d *Debouncer) Current(gen uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return gen == d.gen
}

// Cancel stops any pending run and invalidates outstanding
// generations without scheduling a new one.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
}
