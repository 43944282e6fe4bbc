package tablestore

import (
	"testing"
	"time"
)

// A timer callback can expire concurrently with a Set that reschedules the
// window. The callback then holds a generation older than the reschedule
// and must not apply; only the rescheduled fire delivers, exactly once.
func TestDebouncerStaleFireDoesNotApply(t *testing.T) {
	t.Parallel()

	applies := make(chan FilterState, 4)
	d := NewDebouncer(20*time.Millisecond, func(s FilterState) { applies <- s })
	defer d.Stop()

	d.Set(FilterState{Search: "mid-burst"})
	d.mu.Lock()
	stale := d.gen
	d.mu.Unlock()
	d.Set(FilterState{Search: "final"})

	// Deliver the first window's expiry by hand, as if its callback had
	// already left AfterFunc before the second Set stopped the timer.
	d.fire(stale)

	select {
	case s := <-applies:
		t.Fatalf("stale fire applied %q", s.Search)
	case <-time.After(5 * time.Millisecond):
	}

	select {
	case s := <-applies:
		if s.Search != "final" {
			t.Fatalf("applied %q, want %q", s.Search, "final")
		}
	case <-time.After(time.Second):
		t.Fatal("rescheduled fire never applied")
	}

	select {
	case s := <-applies:
		t.Fatalf("second apply %q for one burst", s.Search)
	case <-time.After(60 * time.Millisecond):
	}
}
