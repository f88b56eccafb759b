package tui

import "github.com/charmbracelet/lipgloss"

var (
	// TitleStyle styles the line above a progress table.
	TitleStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	// HeaderStyle styles the column header row.
	HeaderStyle = lipgloss.NewStyle().Bold(true)

	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	activeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	pendingStyle = lipgloss.NewStyle().Faint(true)

	statusStyles = map[string]lipgloss.Style{
		"synced":      okStyle,
		"installed":   okStyle,
		"up-to-date":  okStyle,
		"downloading": activeStyle,
		"resolving":   activeStyle,
		"verifying":   activeStyle,
		"extracting":  activeStyle,
		"upgrade":     warnStyle,
		"withdrawn":   warnStyle,
		"failed":      errorStyle,
		"pending":     pendingStyle,
	}

	finalStatuses = map[string]bool{
		"synced":    true,
		"installed": true,
		"failed":    true,
	}
)

// StatusStyle returns the style of a status value.
func StatusStyle(status string) lipgloss.Style {
	if s, ok := statusStyles[status]; ok {
		return s
	}
	return lipgloss.NewStyle()
}

func isFinalStatus(status string) bool {
	return finalStatuses[status]
}
