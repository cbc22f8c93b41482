package yaml

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/goccy/go-yaml"
	"github.com/goccy/go-yaml/ast"
	"github.com/goccy/go-yaml/parser"
	"github.com/goccy/go-yaml/token"
)

// NewPathBuilder creates a builder for YAML paths ("$.fleet.clusters[0]").
func NewPathBuilder() *yaml.PathBuilder {
	return &yaml.PathBuilder{}
}

// ErrorWrapper attaches a fixed set of options to every [Error] passing
// through it, so one place can hold the source document while errors are
// raised elsewhere.
type ErrorWrapper struct {
	Opts []ErrorOpt
}

func NewErrorWrapper(opts ...ErrorOpt) *ErrorWrapper {
	return &ErrorWrapper{
		Opts: opts,
	}
}

// Wrap applies the wrapper's options to err when it is an [Error]. Any other
// error is returned unmodified.
func (ew *ErrorWrapper) Wrap(err error, opts ...ErrorOpt) error {
	if err == nil {
		return nil
	}

	var yamlErr *Error
	if !errors.As(err, &yamlErr) {
		return err
	}

	for _, opt := range slices.Concat(ew.Opts, opts) {
		opt(yamlErr)
	}

	return yamlErr
}

// Error is a YAML error bound to a location in the source document, either
// directly by token or indirectly by path.
type Error struct {
	Err         error
	Path        *yaml.Path
	Token       *token.Token
	Source      []byte
	SourceLines int // Number of lines to show around the error in the source.
}

func NewError(err error, opts ...ErrorOpt) *Error {
	e := &Error{
		Err:         err,
		SourceLines: 4,
	}
	for _, opt := range opts {
		opt(e)
	}

	return e
}

type ErrorOpt func(e *Error)

func WithSourceLines(lines int) ErrorOpt {
	return func(e *Error) {
		e.SourceLines = lines
	}
}

func WithPath(path *yaml.Path) ErrorOpt {
	return func(e *Error) {
		e.Path = path
	}
}

func WithToken(tk *token.Token) ErrorOpt {
	return func(e *Error) {
		e.Token = tk
	}
}

func WithSource(source []byte) ErrorOpt {
	return func(e *Error) {
		e.Source = source
	}
}

func (e Error) Error() string {
	if e.Err == nil {
		return ""
	}
	if e.Path == nil && e.Token == nil {
		return e.Err.Error()
	}

	errMsg, srcErr := e.annotateSource(e.Source, e.Path)
	if srcErr != nil {
		slog.Warn("could not annotate source",
			slog.String("path", e.Path.String()),
			slog.Any("error", srcErr),
		)
		// Without an annotated window the location still helps.
		return fmt.Sprintf("error at %s: %v", e.Path.String(), e.Err)
	}

	return errMsg
}

var (
	gutterStyle    = lipgloss.NewStyle().Faint(true)
	errMarkerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
)

// Replaces [github.com/goccy/go-yaml.Path.AnnotateSource] so the annotated
// window carries a marked gutter instead of goccy's inline carets.
func (e Error) annotateSource(source []byte, path *yaml.Path) (string, error) {
	var (
		tk  = e.Token
		err error
	)
	if e.Token == nil {
		tk, err = locateToken(source, path)
		if err != nil {
			return "", err
		}
	}

	errLine, errCol := getTokenPosition(tk)
	errMsg := fmt.Sprintf("[%d:%d] %v:", errLine, errCol, e.Err)

	var pp Printer

	content, firstLine := pp.PrintErrorToken(tk.Clone(), e.SourceLines)

	errSource := renderGutter(content, firstLine, errLine)
	errSource = lipgloss.NewStyle().
		PaddingTop(1).
		Render(errSource)

	return fmt.Sprintf("%s\n%s", errMsg, errSource), nil
}

// renderGutter prefixes every line in the window with its source line number
// and marks the error line.
func renderGutter(content string, firstLine, errLine int) string {
	lines := strings.Split(content, "\n")
	width := len(strconv.Itoa(firstLine + len(lines) - 1))

	out := make([]string, 0, len(lines))

	for i, line := range lines {
		n := firstLine + i
		gutter := fmt.Sprintf("%*d | ", width, n)

		if n == errLine {
			out = append(out, errMarkerStyle.Render(">")+" "+gutterStyle.Render(gutter)+line)
		} else {
			out = append(out, "  "+gutterStyle.Render(gutter)+line)
		}
	}

	return strings.Join(out, "\n")
}

// locateToken resolves path to a token in source. Paths resolve to VALUE
// nodes, but error reports read better pointing at the KEY, so the parent
// mapping is consulted first.
func locateToken(source []byte, path *yaml.Path) (*token.Token, error) {
	file, err := parser.ParseBytes(source, 0)
	if err != nil {
		return nil, fmt.Errorf("parse source: %w", err)
	}

	node, err := path.FilterFile(file)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path.String(), err)
	}

	if keyToken := findKeyToken(file, path); keyToken != nil {
		return keyToken, nil
	}

	return node.GetToken(), nil
}

// findKeyToken returns the KEY token matching the final path segment, or nil
// when the path ends in an array index or has no parent.
func findKeyToken(file *ast.File, path *yaml.Path) *token.Token {
	raw := path.String()

	lastDot := strings.LastIndex(raw, ".")
	if lastDot <= strings.LastIndex(raw, "[") {
		return nil
	}

	parentPath, err := yaml.PathString(raw[:lastDot])
	if err != nil {
		return nil
	}

	parentNode, err := parentPath.FilterFile(file)
	if err != nil {
		return nil
	}

	mapping, ok := parentNode.(*ast.MappingNode)
	if !ok {
		return nil
	}

	key := raw[lastDot+1:]
	for _, val := range mapping.Values {
		if val.Key.String() == key {
			return val.Key.GetToken()
		}
	}

	return nil
}

// getTokenPosition returns the one-based line and column where the token
// starts.
func getTokenPosition(tk *token.Token) (line, col int) {
	if tk == nil {
		return 0, 0
	}

	return tk.Position.Line, tk.Position.Column
}
