package parser

import (
	"path/filepath"
	"strings"

	"vnsheet/internal/reconcile"
	"vnsheet/internal/segment"
)

// Unit represents one translatable paragraph extracted from a script file.
type Unit struct {
	// Speaker is the character the text belongs to, empty when unknown.
	Speaker string
	// Text is the clean untranslated text handed to translation.
	Text string
	// File is the source file path.
	File string
	// Line is the 1-based line number of the first source line.
	Line int
	// EndLine is the last source line of a multi-line unit, zero when
	// the unit sits on a single line.
	EndLine int
	// Meta holds format details needed at reinsertion (codes, flags).
	Meta map[string]string
}

// Block is one subtitle entry: index line, timing line, text lines.
// A block without a timing line is carried through untouched.
type Block struct {
	Index  string
	Timing string
	Text   string
	Line   int
}

// VNTEntry is one record of a VNTranslationTools JSON script.
type VNTEntry struct {
	Name    string `json:"name,omitempty"`
	Message string `json:"message"`
}

// ParseResult holds the extraction output for a single file. Which fields
// beyond Units are populated depends on the file type.
type ParseResult struct {
	// FilePath is the path to the parsed file.
	FilePath string
	// FileType is the detected type (script, ddsystem, srt, vnt, epub).
	FileType string
	// Units are the extracted translatable paragraphs.
	Units []Unit
	// Lines preserves the original content for line-grid reinsertion.
	Lines []segment.RawLine
	// Paragraphs carries the assembled units for the script engine.
	Paragraphs []*segment.Paragraph
	// Blocks carries subtitle entries for srt files.
	Blocks []Block
	// Entries carries the decoded records of a VNT JSON script.
	Entries []VNTEntry
}

// Output is the reinsertion product for one file.
type Output struct {
	// Content is the rebuilt file.
	Content []byte
	// Mismatches lists paragraphs strict wrapping refused to place.
	Mismatches []reconcile.Mismatch
	// Translated counts units whose translation was written.
	Translated int
	// Skipped counts units left untouched for lack of a translation.
	Skipped int
}

// Parser is the interface for all file format parsers.
type Parser interface {
	// Name identifies the parser for logging and format overrides.
	Name() string
	// CanParse returns true if this parser handles the given file extension.
	CanParse(ext string) bool
	// Parse extracts translatable paragraphs from a file.
	Parse(filePath string) (*ParseResult, error)
	// Reconstruct rebuilds the file with translated paragraphs.
	Reconstruct(result *ParseResult, translations map[string]string) (*Output, error)
}

// Select picks the first parser that accepts the path's extension, nil
// when none does.
func Select(parsers []Parser, path string) Parser {
	ext := strings.ToLower(filepath.Ext(path))
	for _, p := range parsers {
		if p.CanParse(ext) {
			return p
		}
	}
	return nil
}

// ByName returns the parser with the given name, nil when absent.
func ByName(parsers []Parser, name string) Parser {
	for _, p := range parsers {
		if p.Name() == name {
			return p
		}
	}
	return nil
}
