package dash

import (
	"os"
	"path/filepath"
	"testing"

	"runtab/pkg/tablestore"
)

func TestCellString(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, ""},
		{"string", "build", "build"},
		{"int64", int64(42), "42"},
		{"float", 1.5, "1.5"},
		{"bool", true, "true"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cellString(tt.in); got != tt.want {
				t.Errorf("cellString(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestShortID(t *testing.T) {
	if got := shortID("0123456789abcdef"); got != "01234567" {
		t.Errorf("shortID = %q, want %q", got, "01234567")
	}
	if got := shortID("abc"); got != "abc" {
		t.Errorf("shortID = %q, want %q", got, "abc")
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name  string
		line  string
		width int
		want  string
	}{
		{"no width known", "long line here", 0, "long line here"},
		{"fits", "short", 10, "short"},
		{"clipped", "abcdefghij", 5, "abcd…"},
		{"multibyte", "héllo wörld", 6, "héllo…"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := truncate(tt.line, tt.width); got != tt.want {
				t.Errorf("truncate(%q, %d) = %q, want %q", tt.line, tt.width, got, tt.want)
			}
		})
	}
}

func TestColumnWidthsStreamingStaysFixed(t *testing.T) {
	m := &Model{
		streaming: true,
		visible: []tablestore.Row{
			{Key: "a-very-long-key-that-would-widen-the-column", Fields: []tablestore.Field{
				{Name: "name", Value: "also quite a long value in this cell"},
			}},
		},
	}
	widths := m.columnWidths([]string{"key", "name"})
	for i, w := range widths {
		if w != 16 {
			t.Errorf("column %d width = %d during streaming, want fixed 16", i, w)
		}
	}
}

func TestColumnWidthsFittedAfterFinish(t *testing.T) {
	m := &Model{
		streaming: false,
		visible: []tablestore.Row{
			{Key: "row-1", Fields: []tablestore.Field{{Name: "name", Value: "alpha"}}},
			{Key: "row-2", Fields: []tablestore.Field{{Name: "name", Value: "a longer value"}}},
		},
	}
	widths := m.columnWidths([]string{"key", "name"})
	if widths[0] != len("row-1") {
		t.Errorf("key width = %d, want %d", widths[0], len("row-1"))
	}
	if widths[1] != len("a longer value") {
		t.Errorf("name width = %d, want %d", widths[1], len("a longer value"))
	}
}

func TestColumnWidthsCapped(t *testing.T) {
	long := make([]byte, 100)
	for i := range long {
		long[i] = 'x'
	}
	m := &Model{
		visible: []tablestore.Row{
			{Key: string(long), Fields: nil},
		},
	}
	widths := m.columnWidths([]string{"key"})
	if widths[0] != 40 {
		t.Errorf("width = %d, want cap 40", widths[0])
	}
}

func TestReloadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("debounce_ms = 150\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	m := &Model{
		filterCh:   make(chan tablestore.FilterState, 4),
		configPath: path,
	}
	m.deb = tablestore.NewDebouncer(0, m.queueFilter)
	defer m.deb.Stop()

	m.reloadConfig()
	if m.configNote != "config reloaded" {
		t.Errorf("configNote = %q after valid reload", m.configNote)
	}

	if err := os.WriteFile(path, []byte("debounce_ms = {{{"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	m.reloadConfig()
	if m.configNote != "config reload failed" {
		t.Errorf("configNote = %q after broken reload", m.configNote)
	}
}

func TestQueueFilterKeepsNewest(t *testing.T) {
	m := &Model{filterCh: make(chan tablestore.FilterState, 1)}
	m.queueFilter(tablestore.FilterState{Search: "old"})
	m.queueFilter(tablestore.FilterState{Search: "new"})

	got := <-m.filterCh
	if got.Search != "new" {
		t.Errorf("queued search = %q, want %q", got.Search, "new")
	}
	select {
	case extra := <-m.filterCh:
		t.Errorf("unexpected extra state queued: %+v", extra)
	default:
	}
}
