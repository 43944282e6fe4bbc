package tablestore

import "strings"

// NumRange is a numeric interval constraint. A nil bound is open.
type NumRange struct {
	Min *float64
	Max *float64
}

// FilterState holds one optional constraint per filter dimension. A zero
// FilterState (no constraints) is the identity filter and accepts every row.
type FilterState struct {
	// Equals maps a field name to a required categorical value.
	Equals map[string]string

	// Ranges maps a field name to a required numeric interval.
	Ranges map[string]NumRange

	// Search is a free-text query matched case-insensitively as a
	// substring across the view's configured searchable fields.
	Search string
}

// Empty reports whether every dimension is absent.
func (f FilterState) Empty() bool {
	return len(f.Equals) == 0 && len(f.Ranges) == 0 && f.Search == ""
}

// clone returns a deep copy so a held FilterState cannot be mutated behind
// the view's back.
func (f FilterState) clone() FilterState {
	out := FilterState{Search: f.Search}
	if len(f.Equals) > 0 {
		out.Equals = make(map[string]string, len(f.Equals))
		for k, v := range f.Equals {
			out.Equals[k] = v
		}
	}
	if len(f.Ranges) > 0 {
		out.Ranges = make(map[string]NumRange, len(f.Ranges))
		for k, v := range f.Ranges {
			out.Ranges[k] = v
		}
	}
	return out
}

// View is a filtered subset of a Store, materialized as store indices in
// store order. Like the Store it is owned by a single scheduler context.
//
// The view keeps itself current incrementally: it subscribes to the store
// and evaluates only newly inserted rows on append, recomputing from scratch
// only when the filter itself changes.
type View struct {
	store        *Store
	state        FilterState
	searchFields []string
	indices      []int
}

// NewView creates a view over store with the identity filter active.
// searchFields names the textual fields the free-text dimension scans; it is
// fixed for the lifetime of the view.
func NewView(store *Store, searchFields []string) *View {
	v := &View{store: store, searchFields: searchFields}
	store.OnInsert(v.onInsert)
	store.OnReset(func() { v.indices = v.indices[:0] })
	v.Recompute()
	return v
}

// SetFilter replaces the filter state and recomputes the view in one pass.
// Callers coalescing keystroke bursts should route through a Debouncer
// rather than calling SetFilter per keystroke.
func (v *View) SetFilter(state FilterState) {
	v.state = state.clone()
	v.Recompute()
}

// Filter returns a copy of the current filter state.
func (v *View) Filter() FilterState { return v.state.clone() }

// Len returns the number of rows the view currently accepts.
func (v *View) Len() int { return len(v.indices) }

// Indices returns the accepted store indices in store order. The slice is
// shared; callers must treat it as read-only.
func (v *View) Indices() []int { return v.indices }

// RowAt returns the i-th visible row.
func (v *View) RowAt(i int) Row { return v.store.At(v.indices[i]) }

// Accepts evaluates the view's filter against a single row.
//
// The all-absent fast path returns true without reading any field: the
// identity filter is defined to accept every row, so skipping evaluation
// preserves the semantics exactly. Active dimensions are combined with AND;
// evaluation reads only the row's stored fields and is side-effect-free, so
// the order across dimensions does not matter.
func (v *View) Accepts(row Row) bool {
	if v.state.Empty() {
		return true
	}
	for name, want := range v.state.Equals {
		got, ok := row.Field(name)
		if !ok {
			return false
		}
		s, isStr := got.(string)
		if !isStr || s != want {
			return false
		}
	}
	for name, rng := range v.state.Ranges {
		got, ok := row.Field(name)
		if !ok {
			return false
		}
		n, isNum := asFloat(got)
		if !isNum {
			return false
		}
		if rng.Min != nil && n < *rng.Min {
			return false
		}
		if rng.Max != nil && n > *rng.Max {
			return false
		}
	}
	if v.state.Search != "" && !v.matchesSearch(row) {
		return false
	}
	return true
}

// matchesSearch ORs a case-insensitive substring match across the
// configured searchable fields.
func (v *View) matchesSearch(row Row) bool {
	query := strings.ToLower(v.state.Search)
	for _, name := range v.searchFields {
		got, ok := row.Field(name)
		if !ok {
			continue
		}
		if strings.Contains(strings.ToLower(valueString(got)), query) {
			return true
		}
	}
	return false
}

// Recompute rebuilds the visible index set with a full pass over the store.
func (v *View) Recompute() {
	v.indices = v.indices[:0]
	if v.state.Empty() {
		for i := 0; i < v.store.Len(); i++ {
			v.indices = append(v.indices, i)
		}
		return
	}
	for i := 0; i < v.store.Len(); i++ {
		if v.Accepts(v.store.At(i)) {
			v.indices = append(v.indices, i)
		}
	}
}

// onInsert extends the view with only the newly inserted rows. Appends are
// tail-inserts, so existing cached indices never shift.
func (v *View) onInsert(rng Range) {
	for i := rng.Start; i <= rng.End; i++ {
		if v.Accepts(v.store.At(i)) {
			v.indices = append(v.indices, i)
		}
	}
}

// asFloat widens a stored numeric scalar for range comparison.
func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case int:
		return float64(x), true
	case float64:
		return x, true
	default:
		return 0, false
	}
}
