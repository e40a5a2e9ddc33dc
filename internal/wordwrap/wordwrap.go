// Package wordwrap breaks translated paragraph text into display lines.
package wordwrap

import (
	"strings"
	"unicode/utf8"

	"vnsheet/internal/settings"
)

// Lines splits text according to the configured wrap mode. With wrapping
// disabled the whole text stays on a single line.
func Lines(text string, s *settings.Settings) []string {
	if text == "" {
		return nil
	}
	if s.WordWrapMode == settings.WrapDisabled {
		return []string{text}
	}
	return Wrap(text, s.WordWrap)
}

// Wrap greedily packs whitespace-separated tokens into lines of at most
// width characters, counted in runes. A token wider than the whole line
// gets a line of its own and overflows it; tokens are never split.
func Wrap(text string, width int) []string {
	var lines []string
	var b strings.Builder
	length := 0
	for _, tok := range strings.Fields(text) {
		tlen := utf8.RuneCountInString(tok)
		switch {
		case length == 0:
			b.WriteString(tok)
			length = tlen
		case length+1+tlen <= width:
			b.WriteByte(' ')
			b.WriteString(tok)
			length += 1 + tlen
		default:
			lines = append(lines, b.String())
			b.Reset()
			b.WriteString(tok)
			length = tlen
		}
	}
	if length > 0 {
		lines = append(lines, b.String())
	}
	return lines
}
