package tablestore

import (
	"sync"
	"time"
)

// DefaultDebounce is the coalescing window for keystroke-driven filter
// changes. A burst of updates inside the window costs one re-filter pass,
// using only the last state seen.
const DefaultDebounce = 200 * time.Millisecond

// Debouncer coalesces rapid FilterState updates. Set may be called from any
// goroutine; apply fires on the debouncer's timer goroutine once the window
// has been quiet, carrying the most recent state. Callers that own the view
// on a scheduler context must route apply back onto that context (the
// dashboard does this with a Bubble Tea message).
type Debouncer struct {
	mu      sync.Mutex
	window  time.Duration
	timer   *time.Timer
	pending FilterState
	apply   func(FilterState)
	stopped bool

	// gen invalidates in-flight fires: an expired timer callback that lost
	// the race against a concurrent Set or Flush carries a stale generation
	// and must not apply.
	gen uint64
}

// NewDebouncer creates a debouncer with the given quiet window. A
// non-positive window falls back to DefaultDebounce.
func NewDebouncer(window time.Duration, apply func(FilterState)) *Debouncer {
	if window <= 0 {
		window = DefaultDebounce
	}
	return &Debouncer{window: window, apply: apply}
}

// Set records the latest desired filter state and (re)starts the quiet
// window. Only the state present when the window elapses is applied, and a
// burst of Sets yields exactly one apply: each Set advances the generation,
// so a timer callback that already expired mid-burst bails out instead of
// applying a second time.
func (d *Debouncer) Set(state FilterState) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.pending = state.clone()
	d.gen++
	gen := d.gen
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, func() { d.fire(gen) })
}

// Flush applies any pending state immediately, cancelling the timer.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	if d.stopped || d.timer == nil {
		d.mu.Unlock()
		return
	}
	d.timer.Stop()
	d.timer = nil
	d.gen++
	state := d.pending
	d.mu.Unlock()
	d.apply(state)
}

// Stop cancels any pending apply. The debouncer cannot be reused.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// fire applies the pending state when the quiet window elapses. gen is the
// generation recorded at scheduling time; a mismatch means a newer Set or a
// Flush superseded this fire.
func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if d.stopped || gen != d.gen {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	state := d.pending
	d.mu.Unlock()
	d.apply(state)
}
