package ansis

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Lipgloss converts the style into a lipgloss style for rendering.
func (s Style) Lipgloss() lipgloss.Style {
	style := lipgloss.NewStyle()

	if s.Bold {
		style = style.Bold(true)
	}

	if s.Faint {
		style = style.Faint(true)
	}

	if s.Italic {
		style = style.Italic(true)
	}

	if s.Underline {
		style = style.Underline(true)
	}

	if s.Foreground != "" {
		style = style.Foreground(lipgloss.Color(s.Foreground))
	}

	if s.Background != "" {
		style = style.Background(lipgloss.Color(s.Background))
	}

	return style
}

// Render re-emits segments as terminal output with their styles applied.
func Render(segments []Segment) string {
	var sb strings.Builder

	for _, seg := range segments {
		if seg.Style.IsZero() {
			sb.WriteString(seg.Text)

			continue
		}

		sb.WriteString(seg.Style.Lipgloss().Render(seg.Text))
	}

	return sb.String()
}
