package controller

// tailBuffer is a bounded FIFO of raw log lines. When full, the oldest
// lines are evicted to make room for new ones; the dashboard only ever
// shows the most recent output.
type tailBuffer struct {
	lines []string
	cap   int
}

func newTailBuffer(capacity int) *tailBuffer {
	return &tailBuffer{
		lines: make([]string, 0, capacity),
		cap:   capacity,
	}
}

// Add appends a line, evicting the oldest when the buffer is full.
func (b *tailBuffer) Add(line string) {
	if len(b.lines) >= b.cap {
		copy(b.lines, b.lines[1:])
		b.lines[len(b.lines)-1] = line
		return
	}
	b.lines = append(b.lines, line)
}

// Snapshot returns a copy of the buffered lines, oldest first.
func (b *tailBuffer) Snapshot() []string {
	if len(b.lines) == 0 {
		return nil
	}
	out := make([]string, len(b.lines))
	copy(out, b.lines)
	return out
}

// Reset clears the buffer.
func (b *tailBuffer) Reset() {
	b.lines = b.lines[:0]
}
