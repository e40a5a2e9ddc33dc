// Package codes pulls bracket-delimited control tokens out of script text
// before translation and puts them back afterwards.
package codes

import (
	"strings"
	"unicode/utf8"

	"vnsheet/internal/settings"
)

// Anchor records where a code sat in its line.
type Anchor string

const (
	AnchorStart  Anchor = "start"
	AnchorInline Anchor = "inline"
	AnchorEnd    Anchor = "end"
)

// Code is one extracted control token. Pos is a rune offset into the clean
// text as it stood when the token was removed; reinserting codes in reverse
// order at their offsets reproduces the original text exactly.
type Code struct {
	Raw    string
	Pos    int
	Anchor Anchor
	Line   int // paragraph-relative source line, set by the assembler
}

// Extract scans text left to right for [...] tokens, removes each from the
// returned clean text and records it with its position. Unmatched brackets
// are left in place and never fail.
func Extract(text string) (string, []Code) {
	clean := text
	var out []Code
	for {
		i := strings.Index(clean, "[")
		if i < 0 {
			break
		}
		rest := strings.Index(clean[i:], "]")
		if rest < 0 {
			break
		}
		end := i + rest + 1

		raw := clean[i:end]
		clean = clean[:i] + clean[end:]

		anchor := AnchorInline
		switch {
		case i == 0:
			anchor = AnchorStart
		case i == len(clean):
			anchor = AnchorEnd
		}
		out = append(out, Code{
			Raw:    raw,
			Pos:    utf8.RuneCountInString(clean[:i]),
			Anchor: anchor,
		})
	}
	return clean, out
}

// Restore reinserts codes into text at their recorded offsets, newest
// first so earlier offsets stay valid. Restore(Extract(s)) == s.
func Restore(text string, cs []Code) string {
	for i := len(cs) - 1; i >= 0; i-- {
		text = insertAt(text, cs[i].Raw, cs[i].Pos)
	}
	return text
}

// Reattach places codes onto a translated line by anchor: start codes are
// prepended, end codes appended, inline codes inserted at their recorded
// offset. An offset beyond the new text appends instead; extracted tokens
// are never dropped.
func Reattach(text string, cs []Code) string {
	for i := len(cs) - 1; i >= 0; i-- {
		c := cs[i]
		switch c.Anchor {
		case AnchorStart:
			text = c.Raw + text
		case AnchorEnd:
			text = text + c.Raw
		default:
			text = insertAt(text, c.Raw, c.Pos)
		}
	}
	return text
}

// StripForTranslation applies the manual delete-before-translation keys.
// It is the manual-mode replacement for Extract: no codes are recorded and
// nothing is reattached automatically afterwards.
func StripForTranslation(text string, s *settings.Settings) string {
	for _, del := range s.DeleteBeforeTranslation {
		text = strings.ReplaceAll(text, del, "")
	}
	if s.DeleteStringBeforeTranslation != "" {
		text = strings.ReplaceAll(text, s.DeleteStringBeforeTranslation, "")
	}
	return text
}

// insertAt splices raw into text at a rune offset, clamped to the end.
func insertAt(text, raw string, runePos int) string {
	if runePos <= 0 {
		return raw + text
	}
	byteAt := len(text)
	count := 0
	for i := range text {
		if count == runePos {
			byteAt = i
			break
		}
		count++
	}
	return text[:byteAt] + raw + text[byteAt:]
}
