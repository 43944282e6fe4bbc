// Package controller wires a run together: it drains the executor's line
// channel, folds progress events into a bounded summary, and schedules
// chunked appends of result rows into the table store.
//
// Exactly two execution contexts exist per active run. The executor's
// reader goroutines perform blocking process I/O; the controller's owner
// loop is the single cooperative context that holds and mutates the Store
// and View. External callers reach that state only through Do, which runs a
// closure on the owner loop, so the single-writer invariant cannot be
// broken from outside.
package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"runtab/pkg/executor"
	"runtab/pkg/progress"
	"runtab/pkg/tablestore"
)

// Scheduling defaults. Smaller quanta favor interactivity, larger favor
// throughput; the sync threshold skips chunking entirely for small result
// sets where its overhead exceeds its benefit.
const (
	DefaultChunkSize     = 500
	DefaultQuantum       = 16 * time.Millisecond
	DefaultSyncThreshold = 5000
	DefaultTailLines     = 200
)

// ErrBusy is returned by Start while a run is already active.
var ErrBusy = errors.New("a run is already active")

// ErrClosed is returned once the controller has been closed.
var ErrClosed = errors.New("controller is closed")

// Phase is the controller state machine position.
type Phase int

// Controller phases. Terminal phases (PhaseFailed, PhaseCancelled) and
// PhaseFinalizing surface their result and then return to PhaseIdle; no
// phase is re-entered without a fresh Start.
const (
	PhaseIdle Phase = iota
	PhaseStarting
	PhaseStreaming
	PhaseFinalizing
	PhaseFailed
	PhaseCancelled
)

// String returns the lowercase phase name.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseStarting:
		return "starting"
	case PhaseStreaming:
		return "streaming"
	case PhaseFinalizing:
		return "finalizing"
	case PhaseFailed:
		return "failed"
	case PhaseCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Summary is the bounded latest-progress view: only the most recent event
// of each kind is retained, older ones are discarded.
type Summary struct {
	Step       *progress.Step
	Item       *progress.Item
	Status     *progress.Status
	Completion *progress.Completion
}

// Result records the outcome of one finished run.
type Result struct {
	RunID       string
	Spec        executor.Spec
	State       executor.State
	ExitCode    int
	RowsLoaded  int
	RowsDropped int
	Started     time.Time
	Ended       time.Time
	// Partial marks a store left mid-load by a failed or cancelled run.
	// The rows are never rolled back.
	Partial bool
}

// Snapshot is a point-in-time copy of the controller's observable state.
type Snapshot struct {
	Phase      Phase
	RunID      string
	RunState   executor.State
	Summary    Summary
	RowsLoaded int
	Partial    bool
	Tail       []string
	LastResult *Result
}

// Config tunes a Controller. Zero values select the defaults.
type Config struct {
	ChunkSize     int
	Quantum       time.Duration
	SyncThreshold int
	TailLines     int

	// SearchFields names the row fields the view's free-text dimension
	// scans.
	SearchFields []string

	// Executor options.
	ChannelCapacity int
	GracePeriod     time.Duration

	// OnFinish, when set, is called with the result of every finished run
	// (on the owner loop, before the phase returns to idle).
	OnFinish func(Result)

	// OnPhase, when set, observes every phase transition (on the owner
	// loop).
	OnPhase func(Phase)
}

func (c Config) withDefaults() Config {
	if c.ChunkSize <= 0 {
		c.ChunkSize = DefaultChunkSize
	}
	if c.Quantum <= 0 {
		c.Quantum = DefaultQuantum
	}
	if c.SyncThreshold <= 0 {
		c.SyncThreshold = DefaultSyncThreshold
	}
	if c.TailLines <= 0 {
		c.TailLines = DefaultTailLines
	}
	return c
}

// Controller owns the table store and view and runs at most one wrapped
// command at a time.
type Controller struct {
	cfg  Config
	exec *executor.Executor

	store *tablestore.Store
	view  *tablestore.View

	req     chan ownerReq
	updates chan struct{}
	closed  chan struct{}

	// mu guards the fields below, which Snapshot and Cancel read from
	// arbitrary goroutines while the owner loop writes them.
	mu         sync.Mutex
	phase      Phase
	handle     *executor.Handle
	summary    Summary
	rowsLoaded int
	partial    bool
	lastResult *Result

	// owner-loop-only state (tail is additionally copied by Snapshot and
	// therefore guarded by mu)
	tail       *tailBuffer
	pending    []tablestore.Row
	dropped    int
	cancelSeen bool
}

type ownerReq struct {
	fn   func()
	done chan struct{}
}

// New creates a Controller and starts its owner loop.
func New(cfg Config) *Controller {
	cfg = cfg.withDefaults()
	store := tablestore.NewStore()
	c := &Controller{
		cfg:     cfg,
		exec:    executor.New(executor.Options{ChannelCapacity: cfg.ChannelCapacity, GracePeriod: cfg.GracePeriod}),
		store:   store,
		view:    tablestore.NewView(store, cfg.SearchFields),
		req:     make(chan ownerReq),
		updates: make(chan struct{}, 1),
		closed:  make(chan struct{}),
		tail:    newTailBuffer(cfg.TailLines),
	}
	go c.ownerLoop()
	return c
}

// Close stops the owner loop. Any active run keeps its process; callers
// should Cancel first.
func (c *Controller) Close() {
	select {
	case <-c.closed:
	default:
		close(c.closed)
	}
}

// Updates returns a coalescing wakeup channel: it receives (at least) one
// value after any batch of observable changes. Consumers poll Snapshot/Do
// when woken.
func (c *Controller) Updates() <-chan struct{} { return c.updates }

// Do runs fn on the owner loop with exclusive access to the store and view,
// and waits for it to finish. This is the only supported way to read or
// mutate them from outside the controller.
func (c *Controller) Do(fn func(store *tablestore.Store, view *tablestore.View)) error {
	r := ownerReq{fn: func() { fn(c.store, c.view) }, done: make(chan struct{})}
	select {
	case c.req <- r:
	case <-c.closed:
		return ErrClosed
	}
	select {
	case <-r.done:
		return nil
	case <-c.closed:
		return ErrClosed
	}
}

// SetFilter replaces the view's filter state on the owner loop. Callers
// coalescing keystrokes should front this with a tablestore.Debouncer.
func (c *Controller) SetFilter(state tablestore.FilterState) error {
	return c.Do(func(_ *tablestore.Store, view *tablestore.View) {
		view.SetFilter(state)
	})
}

// Start launches spec. It fails with ErrBusy while a run is active; a
// launch error surfaces immediately and leaves the controller idle.
func (c *Controller) Start(spec executor.Spec) (string, error) {
	var runID string
	var startErr error
	err := c.Do(func(store *tablestore.Store, _ *tablestore.View) {
		c.mu.Lock()
		if c.phase != PhaseIdle {
			c.mu.Unlock()
			startErr = ErrBusy
			return
		}
		c.setPhaseLocked(PhaseStarting)
		c.mu.Unlock()

		h, err := c.exec.Start(context.Background(), spec)
		if err != nil {
			c.mu.Lock()
			c.setPhaseLocked(PhaseIdle)
			c.mu.Unlock()
			startErr = fmt.Errorf("start run: %w", err)
			return
		}

		store.ResetAndStartStreaming(0)
		c.pending = c.pending[:0]
		c.dropped = 0
		c.cancelSeen = false

		c.mu.Lock()
		c.tail.Reset()
		c.handle = h
		c.summary = Summary{}
		c.rowsLoaded = 0
		c.partial = false
		c.setPhaseLocked(PhaseStreaming)
		c.mu.Unlock()
		runID = h.ID
	})
	if err != nil {
		return "", err
	}
	if startErr != nil {
		return "", startErr
	}
	c.notify()
	return runID, nil
}

// Cancel requests cancellation of the active run. Idempotent; a no-op when
// no run is active or the run already reached a terminal state.
func (c *Controller) Cancel() {
	c.mu.Lock()
	h := c.handle
	c.mu.Unlock()
	if h != nil {
		h.Cancel()
	}
}

// Snapshot returns a copy of the observable state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := Snapshot{
		Phase:      c.phase,
		Summary:    c.summary,
		RowsLoaded: c.rowsLoaded,
		Partial:    c.partial,
		LastResult: c.lastResult,
	}
	if c.handle != nil {
		snap.RunID = c.handle.ID
		snap.RunState = c.handle.State()
	} else if c.lastResult != nil {
		snap.RunID = c.lastResult.RunID
		snap.RunState = c.lastResult.State
	}
	snap.Tail = c.tail.Snapshot()
	return snap
}

// setPhaseLocked records a phase transition. Caller holds c.mu.
func (c *Controller) setPhaseLocked(p Phase) {
	c.phase = p
	if c.cfg.OnPhase != nil {
		c.cfg.OnPhase(p)
	}
}

// notify pokes the coalescing update channel.
func (c *Controller) notify() {
	select {
	case c.updates <- struct{}{}:
	default:
	}
}

// ownerLoop services external requests and, when a run is active, drains
// its lines and schedules chunk appends.
func (c *Controller) ownerLoop() {
	for {
		c.mu.Lock()
		h := c.handle
		c.mu.Unlock()

		if h == nil {
			select {
			case r := <-c.req:
				r.fn()
				close(r.done)
			case <-c.closed:
				return
			}
			continue
		}

		if !c.runLoop(h) {
			return
		}
	}
}

// runLoop drains one run. It returns false only when the controller is
// closed. The quantum ticker is the cooperative yield point: at most one
// chunk is appended per tick, and between ticks pending requests and
// freshly produced lines are serviced.
func (c *Controller) runLoop(h *executor.Handle) bool {
	ticker := time.NewTicker(c.cfg.Quantum)
	defer ticker.Stop()

	lines := h.Lines()
	for {
		select {
		case r := <-c.req:
			r.fn()
			close(r.done)

		case line, ok := <-lines:
			if !ok {
				c.finishRun(h)
				return true
			}
			c.handleLine(line)

		case <-ticker.C:
			c.appendQuantum()

		case <-c.closed:
			return false
		}
	}
}

// handleLine routes one output line: result row, progress event, or raw
// log text. Unmatched lines are kept verbatim in the tail buffer; they are
// never an error.
func (c *Controller) handleLine(line executor.Line) {
	row, isRow, err := tablestore.ParseRowLine(line.Text)
	if isRow {
		if err != nil {
			c.addTail(line.Text)
			return
		}
		c.pending = append(c.pending, row)
		return
	}

	if ev, ok := progress.Extract(line.Text); ok {
		c.mu.Lock()
		switch e := ev.(type) {
		case progress.Step:
			c.summary.Step = &e
		case progress.Item:
			c.summary.Item = &e
		case progress.Status:
			c.summary.Status = &e
		case progress.Completion:
			c.summary.Completion = &e
		}
		c.mu.Unlock()
		c.notify()
		return
	}

	c.addTail(line.Text)
	c.notify()
}

// addTail appends raw log text under the snapshot mutex; Snapshot copies
// the tail from other goroutines.
func (c *Controller) addTail(text string) {
	c.mu.Lock()
	c.tail.Add(text)
	c.mu.Unlock()
}

// appendQuantum appends at most one chunk of pending rows. As soon as a
// cancel request is observed, no further quanta are scheduled for this run;
// rows already appended stay.
func (c *Controller) appendQuantum() {
	if c.cancelSeen {
		return
	}
	c.mu.Lock()
	h := c.handle
	c.mu.Unlock()
	if h != nil {
		if s := h.State(); s == executor.Cancelling || s == executor.Cancelled {
			c.cancelSeen = true
			return
		}
	}
	if len(c.pending) < c.cfg.ChunkSize {
		return
	}
	c.appendChunk(c.cfg.ChunkSize)
}

// appendChunk moves up to n rows from pending into the store as one atomic
// append.
func (c *Controller) appendChunk(n int) {
	if n > len(c.pending) {
		n = len(c.pending)
	}
	if n == 0 {
		return
	}
	chunk := c.pending[:n]
	_, dropped := c.store.Append(chunk)
	c.pending = c.pending[n:]
	c.dropped += dropped

	c.mu.Lock()
	c.rowsLoaded = c.store.Len()
	c.mu.Unlock()
	c.notify()
}

// finishRun runs after the line channel closes: it waits for the terminal
// state, drains or discards pending rows, completes streaming, records the
// result, and returns the controller to idle.
func (c *Controller) finishRun(h *executor.Handle) {
	<-h.Done()
	state := h.State()

	switch state {
	case executor.Completed:
		c.mu.Lock()
		c.setPhaseLocked(PhaseFinalizing)
		c.mu.Unlock()
		c.notify()
		c.drainPending()
	case executor.Failed:
		c.mu.Lock()
		c.setPhaseLocked(PhaseFailed)
		c.partial = true
		c.mu.Unlock()
		c.notify()
		// Rows fully delivered before the failure stay visible.
		c.drainPending()
	default: // Cancelled
		c.mu.Lock()
		c.setPhaseLocked(PhaseCancelled)
		c.partial = true
		c.mu.Unlock()
		c.notify()
		// Pending rows are discarded; appended rows are never rolled back.
		c.pending = c.pending[:0]
	}

	c.store.CompleteStreaming()

	result := Result{
		RunID:       h.ID,
		Spec:        h.Spec,
		State:       state,
		ExitCode:    h.ExitCode(),
		RowsLoaded:  c.store.Len(),
		RowsDropped: c.dropped,
		Started:     h.StartedAt(),
		Ended:       h.EndedAt(),
		Partial:     state != executor.Completed,
	}
	if c.cfg.OnFinish != nil {
		c.cfg.OnFinish(result)
	}

	c.mu.Lock()
	c.handle = nil
	c.lastResult = &result
	c.rowsLoaded = c.store.Len()
	c.partial = result.Partial
	c.setPhaseLocked(PhaseIdle)
	c.mu.Unlock()
	c.notify()
}

// drainPending loads the rows still pending at stream end. A small
// remainder on an otherwise-empty store loads synchronously (the chunking
// bypass); anything larger keeps the one-chunk-per-quantum cadence, still
// servicing owner requests between quanta.
func (c *Controller) drainPending() {
	if len(c.pending) == 0 {
		return
	}
	if c.store.Len() == 0 && len(c.pending) <= c.cfg.SyncThreshold {
		c.appendChunk(len(c.pending))
		return
	}
	for len(c.pending) > 0 {
		c.appendChunk(c.cfg.ChunkSize)
		if len(c.pending) == 0 {
			return
		}
		timer := time.NewTimer(c.cfg.Quantum)
		for waiting := true; waiting; {
			select {
			case r := <-c.req:
				r.fn()
				close(r.done)
			case <-timer.C:
				waiting = false
			case <-c.closed:
				timer.Stop()
				return
			}
		}
	}
}
