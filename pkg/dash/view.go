package dash

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// View implements tea.Model.
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	if p := m.renderProgress(); p != "" {
		b.WriteString(p)
		b.WriteString("\n")
	}
	b.WriteString(m.tbl.View())
	b.WriteString("\n")
	if tail := m.renderTail(); tail != "" {
		b.WriteString(tail)
		b.WriteString("\n")
	}
	if m.searching {
		b.WriteString(m.search.View())
		b.WriteString("\n")
	}
	b.WriteString(m.renderHelp())

	return b.String()
}

// renderHeader renders the title line: app name, run phase, row counts.
func (m *Model) renderHeader() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(m.theme.Primary)
	mutedStyle := lipgloss.NewStyle().Foreground(m.theme.Muted)

	phase := m.snap.Phase.String()
	phaseStyle := lipgloss.NewStyle().Bold(true).Foreground(m.theme.phaseColor(phase))

	parts := []string{titleStyle.Render("runtab")}
	label := phase
	if m.streaming {
		label = m.spin.View() + phase
	}
	parts = append(parts, phaseStyle.Render(label))

	if m.snap.RunID != "" {
		parts = append(parts, mutedStyle.Render("run "+shortID(m.snap.RunID)))
	}

	rows := fmt.Sprintf("%d rows", m.total)
	if len(m.visible) != m.total {
		rows = fmt.Sprintf("%d/%d rows", len(m.visible), m.total)
	}
	if m.snap.Partial {
		rows += " (partial)"
	}
	parts = append(parts, mutedStyle.Render(rows))

	if m.configNote != "" {
		warn := lipgloss.NewStyle().Foreground(m.theme.Warning)
		parts = append(parts, warn.Render(m.configNote))
	}

	return strings.Join(parts, mutedStyle.Render(" │ "))
}

// renderProgress renders the latest progress events: item bar, current
// step, last status and completion lines.
func (m *Model) renderProgress() string {
	s := m.snap.Summary
	mutedStyle := lipgloss.NewStyle().Foreground(m.theme.Muted)

	var lines []string
	if s.Item != nil {
		bar := m.bar.ViewAs(float64(s.Item.Percent) / 100)
		lines = append(lines, fmt.Sprintf("%s %d/%d items", bar, s.Item.Index, s.Item.Total))
	}
	if s.Step != nil {
		lines = append(lines, fmt.Sprintf("[%d/%d] %s", s.Step.Index, s.Step.Total, s.Step.Label))
	}
	if s.Status != nil {
		lines = append(lines, mutedStyle.Render("• "+s.Status.Text))
	}
	if s.Completion != nil {
		done := lipgloss.NewStyle().Foreground(m.theme.Success)
		lines = append(lines, done.Render(fmt.Sprintf("✓ %s (%.1fs)", s.Completion.Operation, s.Completion.Seconds)))
	}
	return strings.Join(lines, "\n")
}

// renderTail renders the last few raw output lines.
func (m *Model) renderTail() string {
	const shown = 5
	tail := m.snap.Tail
	if len(tail) == 0 {
		return ""
	}
	if len(tail) > shown {
		tail = tail[len(tail)-shown:]
	}
	style := lipgloss.NewStyle().Foreground(m.theme.Muted)
	out := make([]string, len(tail))
	for i, line := range tail {
		out[i] = style.Render(truncate(line, m.width))
	}
	return strings.Join(out, "\n")
}

// renderHelp renders the key binding hints.
func (m *Model) renderHelp() string {
	style := lipgloss.NewStyle().Foreground(m.theme.Muted)
	if m.searching {
		return style.Render("enter apply · esc clear")
	}
	return style.Render("/ search · c cancel · ↑/↓ scroll · q quit")
}

// shortID abbreviates a run id for the header.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// truncate clips line to width terminal cells, when width is known.
func truncate(line string, width int) string {
	if width <= 0 {
		return line
	}
	r := []rune(line)
	if len(r) <= width {
		return line
	}
	return string(r[:width-1]) + "…"
}
