package tablestore_test

import (
	"testing"

	"runtab/pkg/tablestore"
)

func fptr(f float64) *float64 { return &f }

func seedStore() *tablestore.Store {
	s := tablestore.NewStore()
	s.ResetAndStartStreaming(0)
	s.Append([]tablestore.Row{
		row("r1",
			tablestore.Field{Name: "name", Value: "alpha"},
			tablestore.Field{Name: "status", Value: "ok"},
			tablestore.Field{Name: "size", Value: int64(100)}),
		row("r2",
			tablestore.Field{Name: "name", Value: "beta"},
			tablestore.Field{Name: "status", Value: "failed"},
			tablestore.Field{Name: "size", Value: int64(250)}),
		row("r3",
			tablestore.Field{Name: "name", Value: "Gamma ALPHA"},
			tablestore.Field{Name: "status", Value: "ok"},
			tablestore.Field{Name: "size", Value: 17.5}),
	})
	return s
}

func TestView_IdentityFilterAcceptsEverything(t *testing.T) {
	t.Parallel()

	s := seedStore()
	v := tablestore.NewView(s, []string{"name"})

	if v.Len() != s.Len() {
		t.Fatalf("view Len = %d, want %d", v.Len(), s.Len())
	}
	for i := 0; i < s.Len(); i++ {
		if !v.Accepts(s.At(i)) {
			t.Errorf("identity filter rejected row %d", i)
		}
	}
	// Rows with no fields at all are accepted too: the fast path never
	// reads a field.
	if !v.Accepts(tablestore.Row{Key: "empty"}) {
		t.Error("identity filter rejected a fieldless row")
	}
}

func TestView_Constraints(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		state    tablestore.FilterState
		wantKeys []string
	}{
		{
			name:     "categorical_equality",
			state:    tablestore.FilterState{Equals: map[string]string{"status": "ok"}},
			wantKeys: []string{"r1", "r3"},
		},
		{
			name:     "categorical_no_match",
			state:    tablestore.FilterState{Equals: map[string]string{"status": "pending"}},
			wantKeys: nil,
		},
		{
			name:     "categorical_missing_field_rejects",
			state:    tablestore.FilterState{Equals: map[string]string{"owner": "x"}},
			wantKeys: nil,
		},
		{
			name:     "numeric_range_closed",
			state:    tablestore.FilterState{Ranges: map[string]tablestore.NumRange{"size": {Min: fptr(50), Max: fptr(200)}}},
			wantKeys: []string{"r1", "r3"},
		},
		{
			name:     "numeric_range_open_min",
			state:    tablestore.FilterState{Ranges: map[string]tablestore.NumRange{"size": {Min: fptr(200)}}},
			wantKeys: []string{"r2"},
		},
		{
			name:     "search_case_insensitive_substring",
			state:    tablestore.FilterState{Search: "alpha"},
			wantKeys: []string{"r1", "r3"},
		},
		{
			name: "search_anded_with_equality",
			state: tablestore.FilterState{
				Search: "alpha",
				Equals: map[string]string{"status": "ok"},
			},
			wantKeys: []string{"r1", "r3"},
		},
		{
			name: "all_dimensions_combined",
			state: tablestore.FilterState{
				Search: "alpha",
				Equals: map[string]string{"status": "ok"},
				Ranges: map[string]tablestore.NumRange{"size": {Max: fptr(50)}},
			},
			wantKeys: []string{"r3"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := seedStore()
			v := tablestore.NewView(s, []string{"name"})
			v.SetFilter(tt.state)

			var got []string
			for i := 0; i < v.Len(); i++ {
				got = append(got, v.RowAt(i).Key)
			}
			if len(got) != len(tt.wantKeys) {
				t.Fatalf("visible keys = %v, want %v", got, tt.wantKeys)
			}
			for i := range got {
				if got[i] != tt.wantKeys[i] {
					t.Fatalf("visible keys = %v, want %v", got, tt.wantKeys)
				}
			}
		})
	}
}

func TestView_SearchScansOnlyConfiguredFields(t *testing.T) {
	t.Parallel()

	s := seedStore()
	// "ok" appears in the status field, but only name is searchable here.
	v := tablestore.NewView(s, []string{"name"})
	v.SetFilter(tablestore.FilterState{Search: "ok"})
	if v.Len() != 0 {
		t.Errorf("search over name matched %d rows, want 0", v.Len())
	}

	v2 := tablestore.NewView(s, []string{"name", "status"})
	v2.SetFilter(tablestore.FilterState{Search: "ok"})
	if v2.Len() != 2 {
		t.Errorf("search over name+status matched %d rows, want 2", v2.Len())
	}
}

func TestView_IncrementalAppendKeepsViewCurrent(t *testing.T) {
	t.Parallel()

	s := tablestore.NewStore()
	s.ResetAndStartStreaming(0)
	v := tablestore.NewView(s, nil)
	v.SetFilter(tablestore.FilterState{Equals: map[string]string{"status": "ok"}})

	s.Append([]tablestore.Row{
		row("a", tablestore.Field{Name: "status", Value: "ok"}),
		row("b", tablestore.Field{Name: "status", Value: "failed"}),
	})
	s.Append([]tablestore.Row{
		row("c", tablestore.Field{Name: "status", Value: "ok"}),
	})

	want := []int{0, 2}
	got := v.Indices()
	if len(got) != len(want) {
		t.Fatalf("indices = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("indices = %v, want %v", got, want)
		}
	}

	// Reset empties the view.
	s.ResetAndStartStreaming(0)
	if v.Len() != 0 {
		t.Errorf("view Len after reset = %d, want 0", v.Len())
	}
}

func TestView_NumericConstraintRejectsNonNumeric(t *testing.T) {
	t.Parallel()

	s := tablestore.NewStore()
	s.ResetAndStartStreaming(0)
	s.Append([]tablestore.Row{
		row("str", tablestore.Field{Name: "size", Value: "big"}),
		row("num", tablestore.Field{Name: "size", Value: int64(3)}),
	})
	v := tablestore.NewView(s, nil)
	v.SetFilter(tablestore.FilterState{Ranges: map[string]tablestore.NumRange{"size": {Min: fptr(0)}}})

	if v.Len() != 1 || v.RowAt(0).Key != "num" {
		t.Errorf("numeric constraint over mixed types: %d visible", v.Len())
	}
}
