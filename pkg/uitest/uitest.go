// Package uitest provides helpers for testing the Bubble Tea dashboard:
// deterministic color profiles, terminal sizes, and wrappers around
// [teatest] that capture output at interesting moments.
package uitest

import (
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/charmbracelet/x/exp/teatest"
	"github.com/muesli/termenv"

	tea "github.com/charmbracelet/bubbletea"
)

// Size represents terminal dimensions.
type Size struct {
	Width  int
	Height int
}

// Predefined terminal sizes for consistent testing.
var (
	// Compact is the classic 80x24 terminal.
	Compact = Size{Width: 80, Height: 24}
	// Standard is a typical modern terminal.
	Standard = Size{Width: 120, Height: 40}
)

// SetupColorProfile pins lipgloss to TrueColor so styled output does not
// depend on the environment running the tests.
func SetupColorProfile() {
	lipgloss.SetColorProfile(termenv.TrueColor)
}

// NewTestModel creates a test model with the given terminal size.
func NewTestModel(tb testing.TB, m tea.Model, size Size) *teatest.TestModel {
	tb.Helper()

	return teatest.NewTestModel(
		tb, m,
		teatest.WithInitialTermSize(size.Width, size.Height),
	)
}

// WaitForCapture waits for a condition to be met and returns the output at
// the moment the condition was satisfied. Since Bubble Tea renders complete
// views, the returned bytes contain the full view at that moment.
func WaitForCapture(
	tb testing.TB,
	r io.Reader,
	condition func([]byte) bool,
	opts ...teatest.WaitForOption,
) string {
	tb.Helper()

	var captured []byte

	teatest.WaitFor(tb, r, func(b []byte) bool {
		if condition(b) {
			captured = make([]byte, len(b))
			copy(captured, b)

			return true
		}

		return false
	}, opts...)

	return string(captured)
}

// GetFinalOutput reads all output after the program finishes.
func GetFinalOutput(tb testing.TB, tm *teatest.TestModel, timeout time.Duration) string {
	tb.Helper()

	b, err := io.ReadAll(tm.FinalOutput(tb, teatest.WithFinalTimeout(timeout)))
	if err != nil {
		tb.Fatal(err)
	}

	return string(b)
}

// PlainText strips ANSI sequences from captured output, leaving the text
// the terminal would show.
func PlainText(s string) string {
	return ansi.Strip(s)
}
