package parser

import (
	"fmt"

	"vnsheet/internal/reconcile"
	"vnsheet/internal/segment"
	"vnsheet/internal/settings"
	"vnsheet/internal/textenc"
)

// ScriptParser is the settings-driven engine for line-oriented game
// scripts. One settings profile covers one script dialect: the profile
// says which lines to skip, where speaker names sit and how paragraphs
// are delimited, and the parser does the rest.
type ScriptParser struct {
	settings *settings.Settings
	names    map[string]string

	// Encoding tags the on-disk encoding of the scripts, empty means
	// utf-8.
	Encoding string
}

// NewScriptParser builds the engine for one settings profile. names maps
// source speakers to their translated forms and may be nil.
func NewScriptParser(s *settings.Settings, names map[string]string) *ScriptParser {
	return &ScriptParser{settings: s, names: names}
}

func (p *ScriptParser) Name() string { return "script" }

func (p *ScriptParser) CanParse(ext string) bool {
	switch ext {
	case ".txt", ".ks", ".text":
		return true
	}
	return false
}

func (p *ScriptParser) Parse(filePath string) (*ParseResult, error) {
	content, err := textenc.ReadFile(filePath, p.Encoding)
	if err != nil {
		return nil, err
	}

	lines := segment.SplitLines(string(content))
	paras := segment.Assemble(segment.ClassifyAll(lines, p.settings), p.settings)

	result := &ParseResult{
		FilePath:   filePath,
		FileType:   "script",
		Lines:      lines,
		Paragraphs: paras,
	}
	for _, pa := range paras {
		if pa.Text == "" {
			// nothing translatable, the line was all control codes
			continue
		}
		result.Units = append(result.Units, Unit{
			Speaker: pa.Speaker,
			Text:    pa.Text,
			File:    filePath,
			Line:    pa.StartIndex() + 1,
			EndLine: pa.EndIndex() + 1,
		})
	}
	return result, nil
}

func (p *ScriptParser) Reconstruct(result *ParseResult, translations map[string]string) (*Output, error) {
	buf := make([]string, len(result.Lines))
	for i, line := range result.Lines {
		buf[i] = line.Text
	}

	placer := &reconcile.Placer{Settings: p.settings, Names: p.names}
	out := &Output{}
	for _, pa := range result.Paragraphs {
		if pa.Text == "" {
			continue
		}
		translated, ok := translations[pa.Text]
		if !ok || translated == "" {
			out.Skipped++
			continue
		}
		if m := placer.Place(buf, pa, translated); m != nil {
			out.Mismatches = append(out.Mismatches, *m)
		} else {
			out.Translated++
		}
	}

	rebuilt := make([]segment.RawLine, len(result.Lines))
	copy(rebuilt, result.Lines)
	for i := range rebuilt {
		rebuilt[i].Text = buf[i]
	}

	encoded, err := textenc.Encode([]byte(segment.JoinLines(rebuilt)), p.Encoding)
	if err != nil {
		return nil, fmt.Errorf("encode output: %w", err)
	}
	out.Content = encoded
	return out, nil
}
