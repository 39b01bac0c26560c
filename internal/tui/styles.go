package tui

import "github.com/charmbracelet/lipgloss"

// Color palette
var (
	PrimaryColor = lipgloss.Color("#FF8C42") // Warm orange
	HeatColor    = lipgloss.Color("#FF5F5F") // Red
	EcoColor     = lipgloss.Color("#43BF6D") // Green
	CoolColor    = lipgloss.Color("#5FAFFF") // Blue
	WarningColor = lipgloss.Color("#FFA500") // Orange
	ErrorColor   = lipgloss.Color("#FF0000") // Red
	TextColor    = lipgloss.Color("#FFFFFF") // White
	SubtleColor  = lipgloss.Color("#626262") // Gray
)

var (
	CardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(PrimaryColor).
			Padding(1, 2)

	TitleStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor).
			Bold(true)

	PrimaryReadoutStyle = lipgloss.NewStyle().
				Foreground(TextColor).
				Bold(true)

	SecondaryReadoutStyle = lipgloss.NewStyle().
				Foreground(SubtleColor)

	PlaceholderStyle = lipgloss.NewStyle().
				Foreground(SubtleColor).
				Italic(true)

	ModeStyle = lipgloss.NewStyle().
			Foreground(SubtleColor).
			Padding(0, 1)

	SelectedModeStyle = lipgloss.NewStyle().
				Foreground(TextColor).
				Background(PrimaryColor).
				Bold(true).
				Padding(0, 1)

	IndicatorStyle = lipgloss.NewStyle().
			Foreground(SubtleColor)

	ActiveIndicatorStyle = lipgloss.NewStyle().
				Foreground(CoolColor).
				Bold(true)

	HeatingStyle = lipgloss.NewStyle().
			Foreground(HeatColor).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(WarningColor).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Bold(true)

	PanelStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(SubtleColor).
			Padding(0, 1)

	HelpStyle = lipgloss.NewStyle().
			Foreground(SubtleColor).
			Padding(1, 0, 0, 0)
)

// containerColor tints the card border by mode like the dial's container class
func containerColor(class string) lipgloss.Color {
	switch class {
	case "heat", "heat_cool", "auto":
		return HeatColor
	case "cool":
		return CoolColor
	case "off":
		return SubtleColor
	}
	return PrimaryColor
}
