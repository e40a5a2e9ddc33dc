package parser

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"vnsheet/internal/segment"
	"vnsheet/internal/textutil"
)

// genericSpeaker numbers the voices of a multi-speaker subtitle entry:
// speaker0, speaker1 and so on. SubRip has no real speaker field.
const genericSpeaker = "speaker"

// SRTParser handles SubRip subtitle files. Formatting tags are stripped
// for translation and inferred back onto the translated text.
type SRTParser struct{}

func NewSRTParser() *SRTParser { return &SRTParser{} }

func (p *SRTParser) Name() string { return "srt" }

func (p *SRTParser) CanParse(ext string) bool {
	return ext == ".srt"
}

func (p *SRTParser) Parse(filePath string) (*ParseResult, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read srt file: %w", err)
	}

	result := &ParseResult{FilePath: filePath, FileType: "srt"}
	result.Blocks = scanBlocks(string(content))

	for i, block := range result.Blocks {
		if block.Timing == "" || strings.TrimSpace(block.Text) == "" {
			continue
		}
		text := block.Text
		if strings.ContainsAny(text, "{<") {
			text = stripFormatting(text)
		}
		meta := map[string]string{"block": strconv.Itoa(i)}
		if parts, multi := splitSpeakers(text); multi {
			for j, part := range parts {
				result.Units = append(result.Units, Unit{
					Speaker: genericSpeaker + strconv.Itoa(j),
					Text:    part,
					File:    filePath,
					Line:    block.Line,
					Meta:    meta,
				})
			}
		} else {
			result.Units = append(result.Units, Unit{
				Text: text,
				File: filePath,
				Line: block.Line,
				Meta: meta,
			})
		}
	}
	return result, nil
}

// scanBlocks splits subtitle content on blank lines. A block whose second
// line is not a timing line is kept verbatim in Index so nothing is lost
// on reconstruction.
func scanBlocks(content string) []Block {
	var blocks []Block
	var acc []string
	start := 0
	flush := func() {
		if len(acc) == 0 {
			return
		}
		b := Block{Line: start + 1}
		if len(acc) >= 2 && strings.Contains(acc[1], "-->") {
			b.Index = acc[0]
			b.Timing = acc[1]
			b.Text = strings.Join(acc[2:], "\n")
		} else {
			b.Index = strings.Join(acc, "\n")
		}
		blocks = append(blocks, b)
		acc = nil
	}
	for _, line := range segment.SplitLines(content) {
		if strings.TrimSpace(line.Text) == "" {
			flush()
			continue
		}
		if len(acc) == 0 {
			start = line.Index
		}
		acc = append(acc, line.Text)
	}
	flush()
	return blocks
}

// stripFormatting removes a leading {override} and every <tag> segment.
func stripFormatting(text string) string {
	if strings.HasPrefix(text, "{") {
		if i := strings.Index(text, "}"); i >= 0 {
			text = strings.TrimSpace(strings.ReplaceAll(text, text[:i+1], ""))
		}
	}
	for strings.Contains(text, "<") && strings.Contains(text, ">") {
		lt, gt := strings.Index(text, "<"), strings.Index(text, ">")
		if gt < lt {
			break
		}
		text = strings.TrimSpace(strings.ReplaceAll(text, text[lt:gt+1], ""))
	}
	return text
}

// splitSpeakers breaks a `- line` per voice entry into its parts. The
// multi-speaker form needs a dash at the start and at least one more
// dash on a later line.
func splitSpeakers(text string) ([]string, bool) {
	if !strings.Contains(text, "\n") || !strings.HasPrefix(text, "-") || !strings.Contains(text[1:], "-") {
		return nil, false
	}
	var parts []string
	rest := text
	for strings.HasPrefix(rest, "-") {
		line := rest
		if i := strings.IndexByte(rest, '\n'); i >= 0 {
			line = rest[:i]
			rest = strings.TrimSpace(rest[i+1:])
		} else {
			rest = ""
		}
		parts = append(parts, strings.TrimSpace(strings.TrimPrefix(line, "-")))
	}
	if rest != "" {
		// a trailing undashed line still belongs to the entry
		parts = append(parts, rest)
	}
	return parts, true
}

// inferFormatting puts the original entry's formatting back around the
// translated text: a {override} prefix verbatim, and with exactly two
// <tag> pairs one on each side. Any other tag layout is left off with a
// warning.
func inferFormatting(original, translated string) string {
	if !strings.ContainsAny(original, "{<") {
		return translated
	}
	if strings.HasPrefix(original, "{") {
		if i := strings.Index(original, "}"); i >= 0 {
			translated = original[:i+1] + translated
		}
	}
	if !strings.Contains(original, "<") {
		return translated
	}

	pairs := 0
	rest := original
	for strings.Contains(rest, "<") && strings.Contains(rest, ">") {
		pairs++
		rest = rest[strings.Index(rest, ">")+1:]
	}
	if pairs != 2 {
		log.Warn().Int("pairs", pairs).Str("entry", textutil.Truncate(original, 60)).Msg("unsupported tag formatting, leaving tags off")
		return translated
	}
	first := original[strings.Index(original, "<") : strings.Index(original, ">")+1]
	rest = original[strings.Index(original, ">")+1:]
	second := rest[strings.Index(rest, "<") : strings.Index(rest, ">")+1]
	return first + translated + second
}

func (p *SRTParser) Reconstruct(result *ParseResult, translations map[string]string) (*Output, error) {
	blocks := make([]Block, len(result.Blocks))
	copy(blocks, result.Blocks)

	byBlock := make(map[int][]Unit)
	for _, unit := range result.Units {
		i, err := strconv.Atoi(unit.Meta["block"])
		if err != nil {
			continue
		}
		byBlock[i] = append(byBlock[i], unit)
	}

	out := &Output{}
	for i := range blocks {
		units := byBlock[i]
		if len(units) == 0 {
			continue
		}
		found := 0
		texts := make([]string, len(units))
		for j, unit := range units {
			if tr, ok := translations[unit.Text]; ok && tr != "" {
				texts[j] = strings.TrimSpace(tr)
				found++
			} else {
				texts[j] = unit.Text
			}
		}
		if found == 0 {
			out.Skipped += len(units)
			continue
		}
		out.Translated += found
		out.Skipped += len(units) - found

		var merged string
		if len(units) > 1 || units[0].Speaker != "" {
			var b strings.Builder
			for j, text := range texts {
				if j > 0 {
					b.WriteByte('\n')
				}
				b.WriteString("- ")
				b.WriteString(text)
			}
			merged = b.String()
		} else {
			merged = texts[0]
		}
		blocks[i].Text = inferFormatting(result.Blocks[i].Text, merged)
	}

	var b strings.Builder
	for _, block := range blocks {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		if block.Timing == "" {
			b.WriteString(block.Index)
			continue
		}
		b.WriteString(block.Index)
		b.WriteByte('\n')
		b.WriteString(block.Timing)
		b.WriteByte('\n')
		b.WriteString(block.Text)
	}
	content := strings.TrimSpace(b.String()) + "\n"
	out.Content = []byte(content)
	return out, nil
}
