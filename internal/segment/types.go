// Package segment turns raw script lines into classified lines and
// translatable paragraph units.
package segment

import (
	"strings"

	"vnsheet/internal/codes"
)

// Role is the structural role of one raw line.
type Role int

const (
	RoleDialogue Role = iota
	RoleName
	RoleIgnored
	RoleBlank
)

func (r Role) String() string {
	switch r {
	case RoleDialogue:
		return "dialogue"
	case RoleName:
		return "name"
	case RoleIgnored:
		return "ignored"
	case RoleBlank:
		return "blank"
	}
	return "unknown"
}

// RawLine is one line of the source file, newline excluded but remembered
// so reconstruction can reproduce the original byte layout.
type RawLine struct {
	Index   int    // 0-based position in the file
	Text    string // content without its line terminator
	Newline string // "\n", "\r\n", or "" on an unterminated final line
}

// ClassifiedLine is a RawLine plus its detected role. Body is the text
// after whitespace and configured skip trimming; LeadingSkip and
// TrailingSkip hold what was trimmed so placement can restore it.
type ClassifiedLine struct {
	RawLine
	Role         Role
	Name         string // extracted speaker, RoleName only
	Body         string
	LeadingSkip  string
	TrailingSkip string
}

// Paragraph is one translatable unit: consecutive dialogue lines, their
// extracted control codes, and the speaker attached from a nearby name
// line when one was found.
type Paragraph struct {
	Speaker  string
	NameLine *ClassifiedLine // nil when no name line is attached
	Lines    []ClassifiedLine
	Codes    []codes.Code
	Text     string // clean joined text handed to translation
}

// StartIndex returns the file index of the first dialogue line.
func (p *Paragraph) StartIndex() int {
	if len(p.Lines) == 0 {
		return -1
	}
	return p.Lines[0].Index
}

// EndIndex returns the file index of the last dialogue line.
func (p *Paragraph) EndIndex() int {
	if len(p.Lines) == 0 {
		return -1
	}
	return p.Lines[len(p.Lines)-1].Index
}

// SplitLines breaks file content into RawLines, keeping each line's
// terminator kind. JoinLines(SplitLines(s)) == s for any input.
func SplitLines(content string) []RawLine {
	var lines []RawLine
	rest := content
	for index := 0; len(rest) > 0; index++ {
		nl := strings.IndexByte(rest, '\n')
		if nl < 0 {
			lines = append(lines, RawLine{Index: index, Text: rest})
			break
		}
		text, newline := rest[:nl], "\n"
		if strings.HasSuffix(text, "\r") {
			text, newline = text[:len(text)-1], "\r\n"
		}
		lines = append(lines, RawLine{Index: index, Text: text, Newline: newline})
		rest = rest[nl+1:]
	}
	return lines
}

// JoinLines reassembles file content from lines and their terminators.
func JoinLines(lines []RawLine) string {
	var b strings.Builder
	for _, line := range lines {
		b.WriteString(line.Text)
		b.WriteString(line.Newline)
	}
	return b.String()
}
