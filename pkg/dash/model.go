// Package dash implements the interactive runtab dashboard: a live table of
// result rows with progress readout, free-text search, and run control,
// rendered with Bubble Tea.
package dash

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/fsnotify/fsnotify"

	"runtab/pkg/config"
	"runtab/pkg/controller"
	"runtab/pkg/tablestore"
)

// wakeMsg is sent when the controller reports observable changes.
type wakeMsg struct{}

// tickMsg drives the fallback 1-second refresh poll.
type tickMsg time.Time

// filterAppliedMsg carries a debounced filter state ready to apply.
type filterAppliedMsg tablestore.FilterState

// Options configures the dashboard.
type Options struct {
	Controller *controller.Controller

	// Debounce is the search coalescing window.
	Debounce time.Duration

	// ConfigPath, when set, is watched so on-disk config edits are
	// picked up live.
	ConfigPath string
}

// Model is the Bubble Tea model for the runtab dashboard.
type Model struct {
	ctrl       *controller.Controller
	deb        *tablestore.Debouncer
	filterCh   chan tablestore.FilterState
	configPath string

	tbl    table.Model
	search textinput.Model
	bar    progress.Model
	spin   spinner.Model
	theme  Theme

	snap      controller.Snapshot
	visible   []tablestore.Row
	total     int
	streaming bool

	watcher    *fsnotify.Watcher
	watchBase  string
	configNote string

	searching bool
	width     int
	height    int
}

// New creates a dashboard model bound to ctrl.
func New(opts Options) *Model {
	theme := DefaultTheme()

	search := textinput.New()
	search.Placeholder = "search rows"
	search.Prompt = "/ "
	search.CharLimit = 128

	tbl := table.New(table.WithFocused(true), table.WithHeight(12))

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := &Model{
		ctrl:       opts.Controller,
		filterCh:   make(chan tablestore.FilterState, 4),
		configPath: opts.ConfigPath,
		tbl:        tbl,
		search:     search,
		bar:        progress.New(progress.WithDefaultGradient()),
		spin:       sp,
		theme:      theme,
	}
	m.deb = tablestore.NewDebouncer(opts.Debounce, m.queueFilter)
	m.watcher, m.watchBase = watchConfig(opts.ConfigPath)
	m.refresh()
	return m
}

// queueFilter hands a debounced filter state to the update loop. Runs on
// the debouncer's timer goroutine; the channel crossing puts the actual
// SetFilter back on the owning context.
func (m *Model) queueFilter(state tablestore.FilterState) {
	for {
		select {
		case m.filterCh <- state:
			return
		default:
			// Full: drop the oldest queued state, the newest wins.
			select {
			case <-m.filterCh:
			default:
			}
		}
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.listenUpdates(), m.waitFilter(), tickCmd(), m.spin.Tick}
	if m.watcher != nil {
		cmds = append(cmds, runWatcher(m.watcher, m.watchBase))
	}
	return tea.Batch(cmds...)
}

// listenUpdates blocks until the controller signals a change.
func (m *Model) listenUpdates() tea.Cmd {
	return func() tea.Msg {
		<-m.ctrl.Updates()
		return wakeMsg{}
	}
}

// waitFilter blocks until the debouncer emits a coalesced filter state.
func (m *Model) waitFilter() tea.Cmd {
	return func() tea.Msg {
		return filterAppliedMsg(<-m.filterCh)
	}
}

// tickCmd is the fallback refresh poll.
func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()

	case wakeMsg:
		m.refresh()
		return m, m.listenUpdates()

	case tickMsg:
		m.refresh()
		return m, tickCmd()

	case filterAppliedMsg:
		_ = m.ctrl.SetFilter(tablestore.FilterState(msg))
		m.refresh()
		return m, m.waitFilter()

	case configChangedMsg:
		m.reloadConfig()
		if m.watcher != nil {
			return m, runWatcher(m.watcher, m.watchBase)
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	return m, nil
}

// handleKey processes keyboard input.
func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if m.searching {
		switch key {
		case "esc":
			m.searching = false
			m.search.Blur()
			m.search.SetValue("")
			m.deb.Set(tablestore.FilterState{})
			m.deb.Flush()
		case "enter":
			m.searching = false
			m.search.Blur()
			m.deb.Flush()
		default:
			var cmd tea.Cmd
			m.search, cmd = m.search.Update(msg)
			m.deb.Set(tablestore.FilterState{Search: m.search.Value()})
			return m, cmd
		}
		return m, nil
	}

	switch key {
	case "ctrl+c", "q":
		m.ctrl.Cancel()
		m.deb.Stop()
		if m.watcher != nil {
			_ = m.watcher.Close()
		}
		return m, tea.Quit
	case "/":
		m.searching = true
		m.search.Focus()
		return m, textinput.Blink
	case "c":
		m.ctrl.Cancel()
	default:
		var cmd tea.Cmd
		m.tbl, cmd = m.tbl.Update(msg)
		return m, cmd
	}
	return m, nil
}

// reloadConfig re-reads the config file after an on-disk change. Only the
// search debounce window is dashboard-scope; the loading pipeline settings
// were fixed when the run's controller was built and apply to the next run.
func (m *Model) reloadConfig() {
	settings, err := config.Load(m.configPath)
	if err != nil {
		m.configNote = "config reload failed"
		return
	}
	m.deb.Stop()
	m.deb = tablestore.NewDebouncer(settings.Debounce(), m.queueFilter)
	m.configNote = "config reloaded"
}

// refresh copies the controller's observable state into the model. Row and
// view reads go through Do so they happen on the store's owning context.
func (m *Model) refresh() {
	m.snap = m.ctrl.Snapshot()

	var visible []tablestore.Row
	var total int
	var streaming bool
	err := m.ctrl.Do(func(store *tablestore.Store, view *tablestore.View) {
		total = store.Len()
		streaming = store.Streaming()
		visible = make([]tablestore.Row, view.Len())
		for i := range visible {
			visible[i] = view.RowAt(i)
		}
	})
	if err != nil {
		return
	}

	m.visible = visible
	m.total = total
	m.streaming = streaming
	m.rebuildTable()
}

// rebuildTable refits the bubbles table to the visible rows. Column widths
// are the expensive derived computation: while the store is streaming they
// stay at a cheap fixed width, and the full width scan runs once streaming
// has finished.
func (m *Model) rebuildTable() {
	if len(m.visible) == 0 {
		m.tbl.SetRows(nil)
		return
	}

	first := m.visible[0]
	names := make([]string, 0, len(first.Fields)+1)
	names = append(names, "key")
	for _, f := range first.Fields {
		names = append(names, f.Name)
	}

	widths := m.columnWidths(names)
	cols := make([]table.Column, len(names))
	for i, name := range names {
		cols[i] = table.Column{Title: name, Width: widths[i]}
	}

	rows := make([]table.Row, len(m.visible))
	for i, r := range m.visible {
		cells := make([]string, 0, len(names))
		cells = append(cells, r.Key)
		for _, f := range first.Fields {
			v, _ := r.Field(f.Name)
			cells = append(cells, cellString(v))
		}
		rows[i] = cells
	}

	m.tbl.SetColumns(cols)
	m.tbl.SetRows(rows)
}

// columnWidths returns per-column widths: fixed while streaming, fitted to
// the data once the stream has finished.
func (m *Model) columnWidths(names []string) []int {
	const fixed = 16
	widths := make([]int, len(names))
	if m.streaming {
		for i := range widths {
			widths[i] = fixed
		}
		return widths
	}
	for i, name := range names {
		widths[i] = len(name)
	}
	for _, r := range m.visible {
		if w := len(r.Key); w > widths[0] {
			widths[0] = w
		}
		for i, name := range names[1:] {
			v, _ := r.Field(name)
			if w := len(cellString(v)); w > widths[i+1] {
				widths[i+1] = w
			}
		}
	}
	const maxWidth = 40
	for i := range widths {
		if widths[i] > maxWidth {
			widths[i] = maxWidth
		}
	}
	return widths
}

// layout adapts component sizes to the terminal.
func (m *Model) layout() {
	if m.width > 4 {
		m.bar.Width = m.width - 4
		if m.bar.Width > 60 {
			m.bar.Width = 60
		}
	}
	if m.height > 14 {
		m.tbl.SetHeight(m.height - 12)
	}
}

// Run starts the dashboard program and blocks until it exits.
func Run(opts Options) error {
	p := tea.NewProgram(New(opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// cellString renders a scalar cell value.
func cellString(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
