package output

import "github.com/charmbracelet/lipgloss"

// Color constants using ANSI 256-color palette.
const (
	ColorPrimary = lipgloss.Color("39")
	ColorSuccess = lipgloss.Color("42")
	ColorGold    = lipgloss.Color("220")
	ColorMuted   = lipgloss.Color("245")
)

var (
	// HeaderBox frames the game title and progress.
	HeaderBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorPrimary).
			Padding(0, 1).
			MarginBottom(1)

	// FooterBox frames the summary line.
	FooterBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorMuted).
			Padding(0, 1).
			MarginTop(1)
)

var (
	TitleStyle    = lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary)
	LabelStyle    = lipgloss.NewStyle().Foreground(ColorMuted)
	ValueStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	UnlockedStyle = lipgloss.NewStyle().Foreground(ColorGold).Bold(true)
	SuccessStyle  = lipgloss.NewStyle().Foreground(ColorSuccess)
	MutedStyle    = lipgloss.NewStyle().Foreground(ColorMuted)
)
