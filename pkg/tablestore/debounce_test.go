package tablestore_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"runtab/pkg/tablestore"
)

// TestDebouncer_CoalescesBurstToOneApply verifies that N rapid updates
// within the window produce exactly one apply, carrying the final state.
func TestDebouncer_CoalescesBurstToOneApply(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var applied []tablestore.FilterState

	d := tablestore.NewDebouncer(50*time.Millisecond, func(s tablestore.FilterState) {
		mu.Lock()
		applied = append(applied, s)
		mu.Unlock()
	})
	defer d.Stop()

	for i := 0; i < 10; i++ {
		d.Set(tablestore.FilterState{Search: fmt.Sprintf("query-%d", i)})
	}

	time.Sleep(300 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(applied) != 1 {
		t.Fatalf("apply count = %d, want 1", len(applied))
	}
	if applied[0].Search != "query-9" {
		t.Errorf("applied state = %q, want the final state query-9", applied[0].Search)
	}
}

func TestDebouncer_SeparateBurstsApplySeparately(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var applied []string

	d := tablestore.NewDebouncer(30*time.Millisecond, func(s tablestore.FilterState) {
		mu.Lock()
		applied = append(applied, s.Search)
		mu.Unlock()
	})
	defer d.Stop()

	d.Set(tablestore.FilterState{Search: "first"})
	time.Sleep(200 * time.Millisecond)
	d.Set(tablestore.FilterState{Search: "second"})
	time.Sleep(200 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(applied) != 2 || applied[0] != "first" || applied[1] != "second" {
		t.Errorf("applied = %v, want [first second]", applied)
	}
}

func TestDebouncer_FlushAppliesImmediately(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	count := 0
	var last string

	d := tablestore.NewDebouncer(10*time.Second, func(s tablestore.FilterState) {
		mu.Lock()
		count++
		last = s.Search
		mu.Unlock()
	})
	defer d.Stop()

	d.Set(tablestore.FilterState{Search: "pending"})
	d.Flush()

	mu.Lock()
	defer mu.Unlock()
	if count != 1 || last != "pending" {
		t.Errorf("after Flush: count=%d last=%q", count, last)
	}
}

func TestDebouncer_StopCancelsPendingApply(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	count := 0

	d := tablestore.NewDebouncer(30*time.Millisecond, func(tablestore.FilterState) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	d.Set(tablestore.FilterState{Search: "doomed"})
	d.Stop()
	time.Sleep(150 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if count != 0 {
		t.Errorf("apply ran %d times after Stop, want 0", count)
	}
}
