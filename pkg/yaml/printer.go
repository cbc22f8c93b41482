package yaml

import (
	"fmt"
	"math"
	"strings"

	"github.com/goccy/go-yaml/token"
)

// Adapted from https://github.com/goccy/go-yaml
// MIT License.
// Copyright (c) 2019 Masaaki Goshima.

// Printer reassembles source text from a lexed token stream. It is a
// stripped down take on [github.com/goccy/go-yaml/printer.Printer] without
// the styling hooks, which error rendering here never configures.
type Printer struct{}

// PrintTokens joins the raw origin of every token back into source text.
func (p *Printer) PrintTokens(tokens token.Tokens) string {
	if len(tokens) == 0 {
		return ""
	}

	texts := []string{}

	for _, tk := range tokens {
		for idx, line := range strings.Split(tk.Origin, "\n") {
			if idx == 0 && len(texts) > 0 {
				texts[len(texts)-1] += line

				continue
			}

			texts = append(texts, line)
		}
	}

	return strings.Join(texts, "\n")
}

// PrintErrorToken renders the source window around tk with the given number
// of context lines on each side, and returns the window together with the
// line number of its first line.
func (p *Printer) PrintErrorToken(tk *token.Token, lines int) (string, int) {
	curLine := tk.Position.Line

	curExtLine := curLine + countLineBreaks(trimLeadingBreaks(tk.Origin))
	if endsWithBreak(tk.Origin) {
		// A trailing newline on the token itself is not an extra source line.
		curExtLine--
	}

	minLine := int(math.Max(float64(curLine-lines), 1))
	maxLine := curExtLine + lines

	beforeTokens := p.tokensBefore(tk, minLine, curExtLine)
	lastTk := beforeTokens[len(beforeTokens)-1]
	afterTokens := p.tokensAfter(lastTk.Next, maxLine)

	return fmt.Sprintf("%s\n%s", p.PrintTokens(beforeTokens), p.PrintTokens(afterTokens)), minLine
}

// tokensBefore collects cloned tokens from the first token at or after
// minLine through extLine, preserving the indentation carried by the
// preceding token's trailing spaces.
func (p *Printer) tokensBefore(tk *token.Token, minLine, extLine int) token.Tokens {
	for tk.Prev != nil {
		if tk.Prev.Position.Line < minLine {
			break
		}

		tk = tk.Prev
	}

	minTk := tk.Clone()
	if minTk.Prev != nil {
		prev := minTk.Prev
		indent := len(prev.Origin) - len(strings.TrimRight(prev.Origin, " "))
		minTk.Origin = strings.Repeat(" ", indent) + minTk.Origin
	}

	minTk.Origin = trimLeadingBreaks(minTk.Origin)
	tokens := token.Tokens{minTk}

	tk = minTk.Next
	for tk != nil && tk.Position.Line <= extLine {
		clonedTk := tk.Clone()
		tokens.Add(clonedTk)

		tk = clonedTk.Next
	}

	lastTk := tokens[len(tokens)-1]
	trimmedOrigin := trimTrailingSpace(lastTk.Origin)
	suffix := lastTk.Origin[len(trimmedOrigin):]
	lastTk.Origin = trimmedOrigin

	if lastTk.Next != nil && len(suffix) > 1 {
		// Carry the trimmed whitespace over to the following token so the
		// after window starts on the right line.
		next := lastTk.Next.Clone()
		if suffix[0] == '\n' || suffix[0] == '\r' {
			suffix = suffix[1:]
		}

		next.Origin = suffix + next.Origin
		lastTk.Next = next
	}

	return tokens
}

// tokensAfter collects cloned tokens from tk through maxLine.
func (p *Printer) tokensAfter(tk *token.Token, maxLine int) token.Tokens {
	tokens := token.Tokens{}
	if tk == nil || tk.Position.Line > maxLine {
		return tokens
	}

	minTk := tk.Clone()
	minTk.Origin = trimLeadingBreaks(minTk.Origin)
	tokens.Add(minTk)

	tk = minTk.Next
	for tk != nil && tk.Position.Line <= maxLine {
		clonedTk := tk.Clone()
		tokens.Add(clonedTk)

		tk = clonedTk.Next
	}

	return tokens
}

func trimLeadingBreaks(src string) string {
	return strings.TrimLeft(src, "\r\n")
}

// trimTrailingSpace drops trailing spaces first and trailing line breaks
// second, leaving interior whitespace intact.
func trimTrailingSpace(src string) string {
	return strings.TrimRight(strings.TrimRight(src, " "), "\r\n")
}

// countLineBreaks counts line breaks in s, treating \r\n as a single break.
func countLineBreaks(s string) int {
	src := []rune(s)
	size := len(src)

	cnt := 0

	for i := 0; i < size; i++ {
		switch src[i] {
		case '\r':
			if i+1 < size && src[i+1] == '\n' {
				i++
			}

			cnt++

		case '\n':
			cnt++
		}
	}

	return cnt
}

// endsWithBreak reports whether the last character of s, ignoring trailing
// spaces, is a line break.
func endsWithBreak(s string) bool {
	for i := len(s) - 1; i > 0; i-- {
		switch s[i] {
		case ' ':
			continue
		case '\n', '\r':
			return true
		}

		break
	}

	return false
}
