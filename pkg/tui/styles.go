package tui

import "github.com/charmbracelet/lipgloss"

// --- Styles ---
var (
	subtleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	titleStyle  = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1).
			Bold(true)
	tabStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Padding(0, 1)
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575"))
	errStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000"))
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F5A623"))
	boxStyle     = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#874BFD")).
			Padding(0, 1)
	tableHeaderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FAFAFA")).
				Bold(true).
				Padding(0, 1)
	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#3C3C5A"))
	buttonStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#04B575")).
			Padding(0, 2).
			Bold(true)
	buttonDisabledStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#AAAAAA")).
				Background(lipgloss.Color("#444444")).
				Padding(0, 2)
)
