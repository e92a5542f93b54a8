package ui

import "github.com/charmbracelet/lipgloss"

// Color palette, asitop-inspired lime green theme: a single accent color
// plus grays for secondary text and borders.
const (
	ColorLime     = "154"
	ColorLimeDim  = "106"
	ColorWhite    = "255"
	ColorGray     = "245"
	ColorDarkGray = "238"
	ColorRed      = "196"
	ColorYellow   = "220"
)

// Styles holds the styled components used by the status dashboard.
type Styles struct {
	Header  lipgloss.Style
	Label   lipgloss.Style
	Value   lipgloss.Style
	Healthy lipgloss.Style
	Warning lipgloss.Style
	Danger  lipgloss.Style
	Dim     lipgloss.Style
	Panel   lipgloss.Style
	Bar     lipgloss.Style
}

// DefaultStyles returns the colored style set for TTY output.
func DefaultStyles() Styles {
	return Styles{
		Header:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorWhite)),
		Label:   lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGray)),
		Value:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorLime)),
		Healthy: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorLime)),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorYellow)),
		Danger:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorRed)),
		Dim:     lipgloss.NewStyle().Foreground(lipgloss.Color(ColorDarkGray)),
		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(ColorDarkGray)).
			Padding(0, 1),
		Bar: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorLime)),
	}
}

// NoColorStyles returns an unstyled set, used for --no-color or non-TTY output.
func NoColorStyles() Styles {
	return Styles{
		Header:  lipgloss.NewStyle(),
		Label:   lipgloss.NewStyle(),
		Value:   lipgloss.NewStyle(),
		Healthy: lipgloss.NewStyle(),
		Warning: lipgloss.NewStyle(),
		Danger:  lipgloss.NewStyle(),
		Dim:     lipgloss.NewStyle(),
		Panel:   lipgloss.NewStyle(),
		Bar:     lipgloss.NewStyle(),
	}
}

// GetStyles picks colored or plain styles based on the no-color preference.
func GetStyles(noColor bool) Styles {
	if noColor {
		return NoColorStyles()
	}
	return DefaultStyles()
}
