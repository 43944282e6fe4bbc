// Package tablestore implements the in-memory row store behind the runtab
// dashboard: an ordered, append-only collection of rows that is loaded in
// chunks while a command is still running, plus a filtered view over it.
//
// A Store is not safe for concurrent use. It is owned by a single scheduler
// context (the controller loop, or the Bubble Tea update loop in the
// dashboard); all mutation and all notification callbacks happen on that
// context.
package tablestore

import "fmt"

// Field is one named scalar cell of a row. Values are strings, numbers
// (int64 or float64), bools, or nil.
type Field struct {
	Name  string
	Value any
}

// Row is an ordered set of fields plus a caller-supplied identity key.
// Keys are unique within a Store; the upstream producer is responsible for
// supplying them.
type Row struct {
	Key    string
	Fields []Field
}

// Field returns the value of the named field and whether it exists.
func (r Row) Field(name string) (any, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Range is a contiguous, inclusive index range [Start, End] within a Store.
type Range struct {
	Start int
	End   int
}

// Len returns the number of indices covered by the range.
func (r Range) Len() int { return r.End - r.Start + 1 }

// Store is an ordered, append-only sequence of rows with a version counter
// and a streaming flag. Rows are only ever inserted at the tail; consumers
// holding derived indices therefore never need to shift them on append, but
// the insert notification still carries the exact mutated range so that the
// contract holds even if insertion positions ever generalize: any cached
// index >= Range.Start must be shifted up by Range.Len().
type Store struct {
	rows      []Row
	keys      map[string]struct{}
	version   uint64
	streaming bool
	expected  int

	onInsert []func(Range)
	onReset  []func()
	onFinish []func()
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{keys: make(map[string]struct{})}
}

// Len returns the number of rows.
func (s *Store) Len() int { return len(s.rows) }

// Version returns the structural version counter. It increments on every
// reset and on every append that inserts at least one row.
func (s *Store) Version() uint64 { return s.version }

// Streaming reports whether the store is between ResetAndStartStreaming and
// CompleteStreaming. Consumers use this to suspend expensive derived work
// (stable sorts, column-width computation) until the stream finishes.
func (s *Store) Streaming() bool { return s.streaming }

// ExpectedTotal returns the row count announced at stream start, or 0 when
// unknown.
func (s *Store) ExpectedTotal() int { return s.expected }

// At returns the row at index i.
func (s *Store) At(i int) Row { return s.rows[i] }

// Rows returns the underlying row slice. The slice is shared; callers must
// treat it as read-only.
func (s *Store) Rows() []Row { return s.rows }

// OnInsert registers a callback invoked after each append with the exact
// inserted index range.
func (s *Store) OnInsert(fn func(Range)) { s.onInsert = append(s.onInsert, fn) }

// OnReset registers a callback invoked after the store has been cleared.
func (s *Store) OnReset(fn func()) { s.onReset = append(s.onReset, fn) }

// OnFinish registers a callback invoked when streaming completes. This is
// the resume signal for derived work suspended during streaming.
func (s *Store) OnFinish(fn func()) { s.onFinish = append(s.onFinish, fn) }

// ResetAndStartStreaming clears the store, bumps the version, records the
// expected total (0 = unknown), and enters streaming mode.
func (s *Store) ResetAndStartStreaming(expectedTotal int) {
	s.rows = s.rows[:0]
	s.keys = make(map[string]struct{})
	s.version++
	s.streaming = true
	s.expected = expectedTotal
	for _, fn := range s.onReset {
		fn()
	}
}

// Append inserts a chunk of rows at the tail and notifies insert subscribers
// with the contiguous range actually inserted. Rows whose key already exists
// in the store are dropped; the dropped count is returned alongside the
// range. An append that inserts nothing does not bump the version and does
// not notify.
func (s *Store) Append(chunk []Row) (Range, int) {
	start := len(s.rows)
	dropped := 0
	for _, row := range chunk {
		if _, dup := s.keys[row.Key]; dup {
			dropped++
			continue
		}
		s.keys[row.Key] = struct{}{}
		s.rows = append(s.rows, row)
	}
	inserted := len(s.rows) - start
	if inserted == 0 {
		return Range{Start: start, End: start - 1}, dropped
	}
	s.version++
	rng := Range{Start: start, End: start + inserted - 1}
	for _, fn := range s.onInsert {
		fn(rng)
	}
	return rng, dropped
}

// CompleteStreaming leaves streaming mode and notifies finish subscribers.
// Calling it on a store that is not streaming is a no-op.
func (s *Store) CompleteStreaming() {
	if !s.streaming {
		return
	}
	s.streaming = false
	for _, fn := range s.onFinish {
		fn()
	}
}

// valueString renders a stored scalar for display and free-text search.
// It formats the stored value as-is; it never re-derives or reformats
// domain data.
func valueString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	default:
		return fmt.Sprintf("%v", x)
	}
}
