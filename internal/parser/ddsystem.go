package parser

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"vnsheet/internal/segment"
	"vnsheet/internal/textenc"
)

// speakerOpeners are the quote marks that begin spoken dialogue. When a
// ddsystem line break marker is followed by one of these, the text before
// the marker is the speaker's name.
var speakerOpeners = []string{"「", "『", "（"}

// lineBreakMarker is the literal two-character sequence ddsystem scripts
// use for an in-message line break.
const lineBreakMarker = `\n`

// DDSystemParser handles ddsystem scenario dumps: every message line is
// `◆address◆text`, with ◇ lines and various asset references mixed in
// between.
type DDSystemParser struct {
	names map[string]string

	// Encoding tags the on-disk encoding of the dumps, empty means
	// utf-8.
	Encoding string
}

// NewDDSystemParser builds the parser. names maps source speakers to
// their translated forms and may be nil.
func NewDDSystemParser(names map[string]string) *DDSystemParser {
	return &DDSystemParser{names: names}
}

func (p *DDSystemParser) Name() string { return "ddsystem" }

func (p *DDSystemParser) CanParse(ext string) bool {
	return ext == ".ddsystem"
}

func (p *DDSystemParser) Parse(filePath string) (*ParseResult, error) {
	content, err := textenc.ReadFile(filePath, p.Encoding)
	if err != nil {
		return nil, err
	}

	lines := segment.SplitLines(string(content))
	result := &ParseResult{
		FilePath: filePath,
		FileType: "ddsystem",
		Lines:    lines,
	}
	for _, line := range lines {
		trimmed := strings.TrimSpace(line.Text)
		if !translatableMessage(trimmed) {
			continue
		}

		rest := trimmed[len("◆"):]
		sep := strings.Index(rest, "◆")
		if sep < 0 {
			continue
		}
		code, text := rest[:sep], rest[sep+len("◆"):]
		if text == "black" {
			continue
		}

		meta := map[string]string{"code": code}
		if strings.HasPrefix(text, lineBreakMarker) {
			text = text[len(lineBreakMarker):]
			meta["leadingBreak"] = "1"
		}

		speaker := ""
		if i := strings.Index(text, lineBreakMarker); i >= 0 {
			after := text[i+len(lineBreakMarker):]
			for _, opener := range speakerOpeners {
				if strings.HasPrefix(after, opener) {
					speaker = strings.TrimSpace(text[:i])
					text = strings.TrimSpace(after)
					break
				}
			}
		}

		result.Units = append(result.Units, Unit{
			Speaker: speaker,
			Text:    text,
			File:    filePath,
			Line:    line.Index + 1,
			Meta:    meta,
		})
	}
	return result, nil
}

// translatableMessage reports whether a trimmed line is a ◆ message line
// rather than scene bookkeeping. Lines referencing assets (@ and _
// syntaxes, trailing digits, .dat names) carry no prose.
func translatableMessage(trimmed string) bool {
	if trimmed == "" || strings.HasPrefix(trimmed, "◇") || !strings.HasPrefix(trimmed, "◆") {
		return false
	}
	if strings.ContainsAny(trimmed, "@_") {
		return false
	}
	last, size := utf8.DecodeLastRuneInString(trimmed)
	if unicode.IsDigit(last) {
		return false
	}
	if prev, _ := utf8.DecodeLastRuneInString(trimmed[:len(trimmed)-size]); unicode.IsDigit(prev) {
		return false
	}
	if strings.HasSuffix(strings.ToLower(trimmed), "dat") {
		return false
	}
	return true
}

func (p *DDSystemParser) Reconstruct(result *ParseResult, translations map[string]string) (*Output, error) {
	rebuilt := make([]segment.RawLine, len(result.Lines))
	copy(rebuilt, result.Lines)

	out := &Output{}
	for _, unit := range result.Units {
		translated, ok := translations[unit.Text]
		if !ok || translated == "" {
			out.Skipped++
			continue
		}

		var b strings.Builder
		b.WriteString("◆")
		b.WriteString(unit.Meta["code"])
		b.WriteString("◆")
		if unit.Meta["leadingBreak"] != "" {
			b.WriteString(lineBreakMarker)
		}
		if unit.Speaker != "" {
			speaker := unit.Speaker
			if mapped, ok := p.names[unit.Speaker]; ok {
				speaker = mapped
			}
			b.WriteString(speaker)
			b.WriteString(lineBreakMarker)
		}
		b.WriteString(translated)

		rebuilt[unit.Line-1].Text = b.String()
		out.Translated++
	}

	encoded, err := textenc.Encode([]byte(segment.JoinLines(rebuilt)), p.Encoding)
	if err != nil {
		return nil, fmt.Errorf("encode output: %w", err)
	}
	out.Content = encoded
	return out, nil
}
