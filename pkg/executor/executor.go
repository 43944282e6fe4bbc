// Package executor runs a wrapped external command and streams its output
// one decoded line at a time over a bounded channel. The channel bound is
// the backpressure mechanism: a slow consumer blocks the reader goroutines
// rather than dropping or buffering lines without limit.
package executor

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
)

// DefaultChannelCapacity bounds the line delivery channel. When the
// consumer lags by more than this many lines, the producer blocks.
const DefaultChannelCapacity = 256

// DefaultGracePeriod is how long Cancel waits after SIGTERM before
// escalating to SIGKILL.
const DefaultGracePeriod = 3 * time.Second

// maxLineBytes caps a single output line. Lines beyond this are split by
// the scanner rather than aborting the run.
const maxLineBytes = 1 << 20

// Stream identifies which pipe a line came from.
type Stream string

// Stream values.
const (
	Stdout Stream = "stdout"
	Stderr Stream = "stderr"
)

// Line is one decoded output line tagged with its source stream. Invalid
// UTF-8 in the raw bytes is replaced, never dropped and never an error.
//
// Lines are delivered in exact per-stream order. The interleaving between
// stdout and stderr is best-effort only: the two pipes are read by
// independent goroutines and no total order across them is defined.
type Line struct {
	Stream Stream
	Text   string
	Time   time.Time
}

// State is the lifecycle state of a run. Transitions are monotonic; no
// state is reachable after a terminal one.
type State int

// Run states.
const (
	Pending State = iota
	Running
	Cancelling
	Completed
	Failed
	Cancelled
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Cancelling:
		return "cancelling"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	case Cancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether the state is Completed, Failed, or Cancelled.
func (s State) Terminal() bool {
	return s == Completed || s == Failed || s == Cancelled
}

// Spec describes the command to run.
type Spec struct {
	Command string
	Args    []string
	Dir     string
	Env     []string // appended to the parent environment
}

// String renders the spec as a shell-like command line for display.
func (s Spec) String() string {
	if len(s.Args) == 0 {
		return s.Command
	}
	return s.Command + " " + strings.Join(s.Args, " ")
}

// Options tunes an Executor. Zero values select the defaults.
type Options struct {
	ChannelCapacity int
	GracePeriod     time.Duration
}

// Executor launches runs. The zero value is usable with defaults.
type Executor struct {
	opts Options
}

// New creates an Executor with the given options.
func New(opts Options) *Executor {
	if opts.ChannelCapacity <= 0 {
		opts.ChannelCapacity = DefaultChannelCapacity
	}
	if opts.GracePeriod <= 0 {
		opts.GracePeriod = DefaultGracePeriod
	}
	return &Executor{opts: opts}
}

// Handle is the live state of one run. The state field and the cancel flag
// are the only state shared between the reader/waiter goroutines and the
// caller; both are guarded by the mutex so a cancel request can never race
// a natural-exit detection into two terminal states.
type Handle struct {
	ID   string
	Spec Spec

	mu        sync.Mutex
	state     State
	cancelled bool // cancel requested before natural exit was observed
	exitCode  int
	started   time.Time
	ended     time.Time

	pgid  int
	grace time.Duration
	lines chan Line
	done  chan struct{}
}

// Lines returns the delivery channel. It is closed after the final line,
// before Done is closed. Partial output already delivered is never
// retracted, whatever the terminal state.
func (h *Handle) Lines() <-chan Line { return h.lines }

// Done is closed once the terminal state is recorded.
func (h *Handle) Done() <-chan struct{} { return h.done }

// State returns the current run state.
func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// ExitCode returns the recorded exit code. Meaningful only for Failed;
// a Cancelled run reports whatever the OS said about the killed process,
// which the state classification deliberately ignores.
func (h *Handle) ExitCode() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.exitCode
}

// StartedAt returns the launch timestamp.
func (h *Handle) StartedAt() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.started
}

// EndedAt returns the terminal timestamp, zero while the run is live.
func (h *Handle) EndedAt() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.ended
}

// Start launches the command and begins streaming its output. A launch
// failure (missing or unauthorized executable) is returned immediately;
// no handle exists and nothing was delivered. Cancelling ctx after a
// successful launch requests graceful termination, same as Handle.Cancel.
func (e *Executor) Start(ctx context.Context, spec Spec) (*Handle, error) {
	//nolint:gosec // wrapping an arbitrary caller-supplied command is the point
	cmd := exec.Command(spec.Command, spec.Args...)
	cmd.Dir = spec.Dir
	if len(spec.Env) > 0 {
		cmd.Env = append(cmd.Environ(), spec.Env...)
	}
	// Own process group so Cancel can signal the whole tree.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}

	h := &Handle{
		ID:    uuid.NewString(),
		Spec:  spec,
		state: Pending,
		grace: e.opts.GracePeriod,
		lines: make(chan Line, e.opts.ChannelCapacity),
		done:  make(chan struct{}),
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("launch %s: %w", spec.Command, err)
	}

	h.mu.Lock()
	h.state = Running
	h.started = time.Now()
	h.pgid = cmd.Process.Pid
	h.mu.Unlock()

	var readers sync.WaitGroup
	readers.Add(2)
	go h.readStream(&readers, Stdout, stdout)
	go h.readStream(&readers, Stderr, stderr)

	go func() {
		// Readers must finish before Wait closes the pipes under them.
		readers.Wait()
		close(h.lines)
		err := cmd.Wait()
		h.finish(exitCodeOf(err))
	}()

	go func() {
		select {
		case <-ctx.Done():
			h.Cancel()
		case <-h.done:
		}
	}()

	return h, nil
}

// readStream delivers decoded lines from one pipe. The send into h.lines
// blocks when the channel is full; this is the producer-side suspension
// point that guarantees no line is ever dropped.
func (h *Handle) readStream(wg *sync.WaitGroup, stream Stream, r io.Reader) {
	defer wg.Done()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	for scanner.Scan() {
		h.lines <- Line{
			Stream: stream,
			Text:   strings.ToValidUTF8(scanner.Text(), "�"),
			Time:   time.Now(),
		}
	}
	// Scanner errors mean the pipe broke (process died mid-line); the
	// waiter goroutine will classify the exit, nothing to do here.
}

// finish records the terminal state exactly once. A cancel request observed
// before natural exit wins over the raw exit code; otherwise 0 maps to
// Completed and anything else to Failed.
func (h *Handle) finish(exitCode int) {
	h.mu.Lock()
	switch {
	case h.cancelled:
		h.state = Cancelled
	case exitCode == 0:
		h.state = Completed
	default:
		h.state = Failed
	}
	h.exitCode = exitCode
	h.ended = time.Now()
	h.mu.Unlock()
	close(h.done)
}

// Cancel requests termination. On a live run it flips the state to
// Cancelling, SIGTERMs the process group, and escalates to SIGKILL if the
// process outlives the grace period. On a run that already reached a
// terminal state it is an idempotent no-op: the previously detected state
// stands.
func (h *Handle) Cancel() {
	h.mu.Lock()
	if h.state.Terminal() || h.cancelled {
		h.mu.Unlock()
		return
	}
	h.cancelled = true
	h.state = Cancelling
	pgid := h.pgid
	grace := h.grace
	h.mu.Unlock()

	_ = syscall.Kill(-pgid, syscall.SIGTERM)

	go func() {
		select {
		case <-h.done:
			// Exited within the grace period.
		case <-time.After(grace):
			_ = syscall.Kill(-pgid, syscall.SIGKILL)
		}
	}()
}

// exitCodeOf maps cmd.Wait's error to a numeric exit code. A signal death
// surfaces as the conventional nonzero ExitCode; classification of a
// cancelled run ignores it anyway.
func exitCodeOf(err error) int {
	if err == nil {
		return 0
	}
	var exit *exec.ExitError
	if errors.As(err, &exit) {
		return exit.ExitCode()
	}
	return -1
}
