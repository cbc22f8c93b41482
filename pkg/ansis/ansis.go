package ansis

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/x/ansi"
)

// Style describes the rendition applied to a run of text. Colors are either
// a palette index ("1" through "255") or a "#RRGGBB" value; the empty string
// means the terminal default.
type Style struct {
	Foreground string
	Background string
	Bold       bool
	Faint      bool
	Italic     bool
	Underline  bool
}

// IsZero reports whether the style carries no rendition at all.
func (s Style) IsZero() bool {
	return s == Style{}
}

// Segment is a run of text sharing one style.
type Segment struct {
	Text  string
	Style Style
}

// Parse maps a raw terminal byte stream to styled segments. SGR sequences
// become [Style] changes, other escape sequences are dropped wholesale, and
// carriage-return and backspace overwrites are resolved so that only the
// final visual state of each line survives. Input that is not valid UTF-8
// yields an empty result.
func Parse(raw []byte) []Segment {
	if len(raw) == 0 || !utf8.Valid(raw) {
		return nil
	}

	var (
		builder textBuilder
		style   Style
		state   byte
	)

	p := ansi.GetParser()
	defer ansi.PutParser(p)

	input := raw
	for len(input) > 0 {
		seq, width, n, newState := ansi.DecodeSequence(input, state, p)

		switch {
		case ansi.HasCsiPrefix(seq):
			if seq[len(seq)-1] == 'm' {
				style = applySGR(p, style)
			}
			// Cursor movement, erase, and private-mode toggles are dropped.
		case width > 0:
			builder.write(string(seq), style)
		case len(seq) == 1:
			switch seq[0] {
			case '\n':
				builder.newline(style)
			case '\r':
				builder.carriageReturn()
			case '\b':
				builder.backspace()
			case '\t':
				builder.write("\t", style)
			}
			// Any other control byte is stripped.
		default:
			// OSC, DCS, and single-character escapes are discarded
			// wholesale, terminators included.
		}

		input = input[n:]
		state = newState
	}

	return builder.segments()
}

// Text returns the unstyled text of segments, concatenated in order.
func Text(segments []Segment) string {
	var sb strings.Builder
	for _, seg := range segments {
		sb.WriteString(seg.Text)
	}

	return sb.String()
}

// Plain is shorthand for Text(Parse(raw)).
func Plain(raw []byte) string {
	return Text(Parse(raw))
}

// cell is one backspace-deletable unit of emitted text, a grapheme cluster
// with the style that was active when it was written.
type cell struct {
	text  string
	style Style
}

// textBuilder accumulates cells line by line. A carriage return does not
// erase anything by itself; it arms an overwrite that the next write on the
// same line triggers, so a trailing CR leaves the line intact.
type textBuilder struct {
	done      []cell
	line      []cell
	overwrite bool
}

func (b *textBuilder) write(text string, style Style) {
	if b.overwrite {
		b.line = b.line[:0]
		b.overwrite = false
	}

	b.line = append(b.line, cell{text: text, style: style})
}

func (b *textBuilder) newline(style Style) {
	b.done = append(b.done, b.line...)
	b.done = append(b.done, cell{text: "\n", style: style})
	b.line = b.line[:0]
	b.overwrite = false
}

func (b *textBuilder) carriageReturn() {
	b.overwrite = true
}

func (b *textBuilder) backspace() {
	if b.overwrite || len(b.line) == 0 {
		return
	}

	b.line = b.line[:len(b.line)-1]
}

// segments merges adjacent cells with equal styles into the final output.
func (b *textBuilder) segments() []Segment {
	cells := make([]cell, 0, len(b.done)+len(b.line))
	cells = append(cells, b.done...)
	cells = append(cells, b.line...)

	if len(cells) == 0 {
		return nil
	}

	var (
		segs []Segment
		text strings.Builder
	)

	current := cells[0].style
	for _, c := range cells {
		if c.style != current {
			segs = append(segs, Segment{Text: text.String(), Style: current})
			text.Reset()
			current = c.style
		}

		text.WriteString(c.text)
	}

	return append(segs, Segment{Text: text.String(), Style: current})
}

// applySGR folds the parameters of one SGR sequence into the current style.
func applySGR(p *ansi.Parser, current Style) Style {
	style := current

	params := p.Params()
	if len(params) == 0 {
		return Style{}
	}

	for i := 0; i < len(params); i++ {
		param := params[i].Param(0)

		switch param {
		case 0: // Reset.
			style = Style{}
		case 1: // Bold.
			style.Bold = true
		case 2: // Faint.
			style.Faint = true
		case 3: // Italic.
			style.Italic = true
		case 4: // Underline.
			style.Underline = true
		case 22: // Normal intensity.
			style.Bold = false
			style.Faint = false
		case 23: // Not italic.
			style.Italic = false
		case 24: // Not underlined.
			style.Underline = false
		case 39: // Default foreground.
			style.Foreground = ""
		case 49: // Default background.
			style.Background = ""
		case 38: // Extended foreground color.
			var color string

			color, i = extendedColor(params, i)
			if color != "" {
				style.Foreground = color
			}
		case 48: // Extended background color.
			var color string

			color, i = extendedColor(params, i)
			if color != "" {
				style.Background = color
			}
		default:
			switch {
			case param >= 30 && param <= 37: // Standard foreground colors.
				style.Foreground = strconv.Itoa(param - 30)
			case param >= 40 && param <= 47: // Standard background colors.
				style.Background = strconv.Itoa(param - 40)
			case param >= 90 && param <= 97: // Bright foreground colors.
				style.Foreground = strconv.Itoa(param - 90 + 8)
			case param >= 100 && param <= 107: // Bright background colors.
				style.Background = strconv.Itoa(param - 100 + 8)
			}
		}
	}

	return style
}

// extendedColor decodes the 256-color (5;n) and RGB (2;r;g;b) forms that
// follow SGR parameter 38 or 48, returning the color and the last parameter
// index consumed.
func extendedColor(params []ansi.Param, i int) (string, int) {
	if i+1 >= len(params) {
		return "", i
	}

	switch params[i+1].Param(0) {
	case 5:
		if i+2 < len(params) {
			return strconv.Itoa(params[i+2].Param(0)), i + 2
		}
	case 2:
		if i+4 < len(params) {
			r := params[i+2].Param(0)
			g := params[i+3].Param(0)
			b := params[i+4].Param(0)

			return fmt.Sprintf("#%02X%02X%02X", r, g, b), i + 4
		}
	}

	return "", i + 1
}
