package dash

import "github.com/charmbracelet/lipgloss"

// Theme defines the visual styling for the runtab dashboard.
type Theme struct {
	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Success   lipgloss.Color
	Warning   lipgloss.Color
	Error     lipgloss.Color
	Muted     lipgloss.Color
}

// DefaultTheme returns the default dashboard theme.
func DefaultTheme() Theme {
	return Theme{
		Primary:   lipgloss.Color("12"),  // Blue
		Secondary: lipgloss.Color("14"),  // Cyan
		Success:   lipgloss.Color("10"),  // Green
		Warning:   lipgloss.Color("11"),  // Yellow
		Error:     lipgloss.Color("9"),   // Red
		Muted:     lipgloss.Color("240"), // Gray
	}
}

// phaseColor maps a run phase label to its status color.
func (t Theme) phaseColor(phase string) lipgloss.Color {
	switch phase {
	case "streaming", "finalizing":
		return t.Secondary
	case "failed":
		return t.Error
	case "cancelled":
		return t.Warning
	default:
		return t.Muted
	}
}
