package ui

import "github.com/charmbracelet/lipgloss"

// Styles collects every lipgloss style the dashboard renders with.
type Styles struct {
	Logo         lipgloss.Style
	Header       lipgloss.Style
	ColumnTitle  lipgloss.Style
	Selected     lipgloss.Style
	CurrentMark  lipgloss.Style
	FavoriteMark lipgloss.Style
	Healthy      lipgloss.Style
	Degraded     lipgloss.Style
	Offline      lipgloss.Style
	Unknown      lipgloss.Style
	Checking     lipgloss.Style
	PaneTitle    lipgloss.Style
	StatusInfo   lipgloss.Style
	StatusError  lipgloss.Style
	FilterPrompt lipgloss.Style
	Subtle       lipgloss.Style
}

// DefaultStyles returns the dashboard styles, adaptive to light and dark
// backgrounds.
func DefaultStyles() Styles {
	subtle := lipgloss.AdaptiveColor{Light: "#9B9B9B", Dark: "#5C5C5C"}
	highlight := lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}

	return Styles{
		Logo: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(highlight).
			Bold(true).
			Padding(0, 1),
		Header: lipgloss.NewStyle().
			Foreground(subtle),
		ColumnTitle: lipgloss.NewStyle().
			Foreground(subtle).
			Bold(true),
		Selected: lipgloss.NewStyle().
			Foreground(highlight).
			Bold(true),
		CurrentMark: lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#03BF87", Dark: "#00D7AF"}).
			Bold(true),
		FavoriteMark: lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#D7A400", Dark: "#FFD700"}),
		Healthy: lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#03BF87", Dark: "#00D7AF"}),
		Degraded: lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#D7A400", Dark: "#FFD700"}),
		Offline: lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#D70000", Dark: "#FF5F5F"}),
		Unknown: lipgloss.NewStyle().
			Foreground(subtle),
		Checking: lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#0087D7", Dark: "#5FAFFF"}),
		PaneTitle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(highlight).
			Padding(0, 1),
		StatusInfo: lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#03BF87", Dark: "#00D7AF"}),
		StatusError: lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#D70000", Dark: "#FF5F5F"}),
		FilterPrompt: lipgloss.NewStyle().
			Foreground(highlight),
		Subtle: lipgloss.NewStyle().
			Foreground(subtle),
	}
}

// healthStyle maps a health label to its display style.
func (s Styles) healthStyle(label string) lipgloss.Style {
	switch label {
	case "Healthy":
		return s.Healthy
	case "Degraded":
		return s.Degraded
	case "Offline":
		return s.Offline
	default:
		return s.Unknown
	}
}
