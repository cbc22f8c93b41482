package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/lipgloss"
)

// ErrorHandler renders command errors through fang's styles and appends a
// --help hint for usage mistakes.
func ErrorHandler(w io.Writer, styles fang.Styles, err error) {
	mustN(fmt.Fprintln(w, styles.ErrorHeader.String()))
	mustN(fmt.Fprintln(w, lipgloss.NewStyle().MarginLeft(2).Render(err.Error())))
	mustN(fmt.Fprintln(w))

	if !isUsageError(err) {
		return
	}

	hint := lipgloss.JoinHorizontal(
		lipgloss.Left,
		styles.ErrorText.UnsetWidth().Render("Try"),
		styles.Program.Flag.Render("--help"),
		styles.ErrorText.UnsetWidth().UnsetMargins().UnsetTransform().PaddingLeft(1).Render("for usage."),
	)
	mustN(fmt.Fprintln(w, hint))
	mustN(fmt.Fprintln(w))
}

// Cobra gives no typed error for usage mistakes, so match known message
// prefixes. See https://github.com/spf13/cobra/pull/2266.
var usagePrefixes = []string{
	"flag needs an argument:",
	"unknown flag:",
	"unknown shorthand flag:",
	"unknown command",
	"invalid argument",
	"accepts",
	"requires at least",
}

func isUsageError(err error) bool {
	msg := err.Error()
	for _, prefix := range usagePrefixes {
		if strings.HasPrefix(msg, prefix) {
			return true
		}
	}

	return false
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

func mustN(_ int, err error) {
	must(err)
}
