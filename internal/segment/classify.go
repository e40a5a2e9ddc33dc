package segment

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"vnsheet/internal/settings"
)

// Classify assigns a role to a single line. It never fails: anything the
// rules cannot account for, unmatched name delimiters included, stays
// dialogue.
func Classify(line RawLine, s *settings.Settings) ClassifiedLine {
	cl := ClassifiedLine{RawLine: line, Role: RoleDialogue}
	cl.Body, cl.LeadingSkip, cl.TrailingSkip = trimAffixes(line.Text, s)

	name, isName := detectName(cl.Body, s)

	// A line that parses as a name line keeps that role even when its
	// first character is on the start-ignore list. The delimiters are
	// the stronger signal.
	if !isName && cl.Body != "" && len(s.IgnoreLinesThatStartWith) > 0 {
		first, _ := utf8.DecodeRuneInString(cl.Body)
		for _, c := range s.IgnoreLinesThatStartWith {
			if string(first) == c {
				cl.Role = RoleIgnored
				return cl
			}
		}
	}
	for _, sub := range s.DoNotProcessLinesThatHave {
		if strings.Contains(line.Text, sub) {
			cl.Role = RoleIgnored
			return cl
		}
	}
	if cl.Body == "" {
		cl.Role = RoleBlank
		return cl
	}
	if isName {
		cl.Role = RoleName
		cl.Name = name
	}
	return cl
}

// ClassifyAll classifies every line of a file.
func ClassifyAll(lines []RawLine, s *settings.Settings) []ClassifiedLine {
	classified := make([]ClassifiedLine, len(lines))
	for i, line := range lines {
		classified[i] = Classify(line, s)
	}
	return classified
}

// detectName extracts a speaker from a line according to the configured
// delimiters. With both delimiters set the line must carry both; with one
// set, the delimiter splits the line and the rest is the name. A line
// that is nothing but its delimiters carries no name. The positional case
// (within mode, no delimiters) is resolved per block by Assemble, not
// per line.
func detectName(body string, s *settings.Settings) (string, bool) {
	if s.NameMode == settings.NameNone {
		return "", false
	}
	begins, ends := s.NameBeginsWith, s.NameEndsWith
	switch {
	case begins != "" && ends != "":
		if strings.HasPrefix(body, begins) && strings.HasSuffix(body, ends) && len(body) > len(begins)+len(ends) {
			return strings.TrimSpace(body[len(begins) : len(body)-len(ends)]), true
		}
	case begins != "":
		if strings.HasPrefix(body, begins) && len(body) > len(begins) {
			return strings.TrimSpace(body[len(begins):]), true
		}
	case ends != "":
		if strings.HasSuffix(body, ends) && len(body) > len(ends) {
			return strings.TrimSpace(body[:len(body)-len(ends)]), true
		}
	}
	return "", false
}

// trimAffixes strips surrounding whitespace and, when the skip gate
// matches, the configured number of leading and trailing characters.
// Whatever comes off is returned so it can be put back on output.
func trimAffixes(text string, s *settings.Settings) (body, leading, trailing string) {
	body = strings.TrimLeftFunc(text, unicode.IsSpace)
	leading = text[:len(text)-len(body)]
	trimmed := strings.TrimRightFunc(body, unicode.IsSpace)
	trailing = body[len(trimmed):]
	body = trimmed

	if (s.SkipFront > 0 || s.SkipBack > 0) && skipGateOpen(body, s.OnlySkipIfLineBeginsWith) {
		front := cutRunes(body, s.SkipFront)
		leading += body[:len(body)-len(front)]
		body = front
		kept := keepRunesFront(body, utf8.RuneCountInString(body)-s.SkipBack)
		trailing = body[len(kept):] + trailing
		body = kept
	}
	return body, leading, trailing
}

func skipGateOpen(body string, prefixes []string) bool {
	if len(prefixes) == 0 {
		return true
	}
	for _, p := range prefixes {
		if strings.HasPrefix(body, p) {
			return true
		}
	}
	return false
}

// cutRunes drops the first n runes of s.
func cutRunes(s string, n int) string {
	for i := range s {
		if n == 0 {
			return s[i:]
		}
		n--
	}
	return ""
}

// keepRunesFront keeps the first n runes of s.
func keepRunesFront(s string, n int) string {
	if n <= 0 {
		return ""
	}
	for i := range s {
		if n == 0 {
			return s[:i]
		}
		n--
	}
	return s
}
