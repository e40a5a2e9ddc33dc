package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// VNTParser handles VNTranslationTools JSON scripts: a flat array of
// entries with a message and an optional speaker name.
type VNTParser struct {
	names map[string]string
}

// NewVNTParser builds the parser. names maps source speakers to their
// translated forms and may be nil.
func NewVNTParser(names map[string]string) *VNTParser {
	return &VNTParser{names: names}
}

func (p *VNTParser) Name() string { return "vnt" }

func (p *VNTParser) CanParse(ext string) bool {
	return ext == ".json"
}

func (p *VNTParser) Parse(filePath string) (*ParseResult, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read vnt file: %w", err)
	}

	var entries []VNTEntry
	if err := json.Unmarshal(content, &entries); err != nil {
		return nil, fmt.Errorf("decode vnt json: %w", err)
	}

	result := &ParseResult{
		FilePath: filePath,
		FileType: "vnt",
		Entries:  entries,
	}
	for i, entry := range entries {
		if entry.Message == "" {
			continue
		}
		result.Units = append(result.Units, Unit{
			Speaker: entry.Name,
			Text:    entry.Message,
			File:    filePath,
			Line:    i + 1,
			Meta:    map[string]string{"entry": strconv.Itoa(i)},
		})
	}
	return result, nil
}

func (p *VNTParser) Reconstruct(result *ParseResult, translations map[string]string) (*Output, error) {
	entries := make([]VNTEntry, len(result.Entries))
	copy(entries, result.Entries)

	out := &Output{}
	for _, unit := range result.Units {
		i, err := strconv.Atoi(unit.Meta["entry"])
		if err != nil || i < 0 || i >= len(entries) {
			continue
		}
		translated, ok := translations[unit.Text]
		if !ok || strings.TrimSpace(translated) == "" {
			out.Skipped++
			continue
		}
		// the engine wants literal \r\n markers, not real line breaks
		translated = strings.TrimSpace(translated)
		translated = strings.ReplaceAll(translated, "\r\n", "\n")
		translated = strings.ReplaceAll(translated, "\n", `\r\n`)
		entries[i].Message = translated
		out.Translated++
	}
	for i := range entries {
		if entries[i].Name == "" {
			continue
		}
		if mapped, ok := p.names[entries[i].Name]; ok {
			entries[i].Name = mapped
		} else if len(p.names) > 0 {
			log.Warn().Str("speaker", entries[i].Name).Msg("speaker missing from name mapping")
		}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(entries); err != nil {
		return nil, fmt.Errorf("encode vnt json: %w", err)
	}
	out.Content = buf.Bytes()
	return out, nil
}
