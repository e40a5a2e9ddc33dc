// Package settings loads and validates the per-format parse settings that
// drive line classification, paragraph assembly and reinsertion.
package settings

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
)

// Disabled is the sentinel a settings file uses to turn a key off.
// It is case-sensitive.
const Disabled = "None"

type Delimiter string

const (
	DelimiterEmptyLine Delimiter = "emptyLine"
	DelimiterNewLine   Delimiter = "newLine"
)

type WrapMode string

const (
	WrapDisabled WrapMode = "disableWordWrap"
	WrapStrict   WrapMode = "strict"
	WrapDynamic  WrapMode = "dynamic"
)

// NameMode says where speaker-name lines sit relative to their dialogue.
type NameMode string

const (
	NameNone   NameMode = "None"
	NameBefore NameMode = "before"
	NameAfter  NameMode = "after"
	NameWithin NameMode = "within"
)

// Settings is the immutable configuration for one script format. Zero
// values mean the corresponding key is disabled.
type Settings struct {
	IgnoreLinesThatStartWith  []string
	DoNotProcessLinesThatHave []string

	ParagraphDelimiter   Delimiter
	MaxLinesPerParagraph int

	WordWrap     int
	WordWrapMode WrapMode

	NameMode       NameMode
	NameBeginsWith string
	NameEndsWith   string

	DeleteBeforeTranslation       []string
	DeleteStringBeforeTranslation string
	DeleteAfterTranslation        string
	AddAtLineStart                string
	AddAtLineEnd                  string
	AddIfNotParagraphEnd          string
	AddAtParagraphEnd             string

	SkipFront                int
	SkipBack                 int
	OnlySkipIfLineBeginsWith []string
}

// Default returns the line-per-entry profile: every non-blank line is its
// own paragraph, no wrapping, no speaker detection.
func Default() *Settings {
	return &Settings{
		ParagraphDelimiter:   DelimiterNewLine,
		MaxLinesPerParagraph: 1,
		WordWrapMode:         WrapDisabled,
		NameMode:             NameNone,
	}
}

// Load reads and validates a settings file. Any validation failure is fatal
// for the run; nothing downstream re-checks configuration.
func Load(path string) (*Settings, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open settings file: %w", err)
	}
	defer f.Close()

	s, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("validate %s: %w", path, err)
	}
	return s, nil
}

// Parse reads the flat key=value format: one setting per line, # starts a
// comment, blank lines are skipped, the literal None disables a key.
func Parse(r io.Reader) (*Settings, error) {
	s := Default()

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, found := strings.Cut(line, "=")
		if !found {
			return nil, fmt.Errorf("line %d: missing '=' in %q", lineNo, line)
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		if value == "" {
			log.Warn().Int("line", lineNo).Str("key", key).Msg("Empty value, treating key as disabled")
			continue
		}
		if value == Disabled {
			continue
		}

		if err := s.apply(key, value); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}
	return s, nil
}

func (s *Settings) apply(key, value string) error {
	switch key {
	case "ignoreLinesThatStartWith":
		s.IgnoreLinesThatStartWith = splitList(value, " ")
	case "doNotProcessLinesThatHave":
		s.DoNotProcessLinesThatHave = splitList(value, "_")
	case "paragraphDelimiter":
		s.ParagraphDelimiter = Delimiter(value)
	case "maximumNumberOfLinesPerParagraph":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("maximumNumberOfLinesPerParagraph: %w", err)
		}
		s.MaxLinesPerParagraph = n
	case "wordWrap":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("wordWrap: %w", err)
		}
		s.WordWrap = n
	case "wordWrapMode":
		s.WordWrapMode = WrapMode(value)
	case "characterNamesAppearBeforeOrAfterDialogue":
		s.NameMode = NameMode(value)
	case "theCharacterNameAlwaysBeginsWith":
		s.NameBeginsWith = value
	case "theCharacterNameAlwaysEndsWith":
		s.NameEndsWith = value
	case "alwaysDeleteTheseBeforeTranslation":
		s.DeleteBeforeTranslation = splitList(value, " ")
	case "alwaysDeleteThisStringBeforeTranslation":
		s.DeleteStringBeforeTranslation = value
	case "alwaysDeleteAfterTranslation":
		s.DeleteAfterTranslation = value
	case "alwaysAddAfterTranslationAtStartOfLine":
		s.AddAtLineStart = value
	case "alwaysAddAfterTranslationAtEndOfLine":
		s.AddAtLineEnd = value
	case "addAfterTranslationIfNotEndOfParagraph":
		s.AddIfNotParagraphEnd = value
	case "addAfterTranslationAtEndOfParagraph":
		s.AddAtParagraphEnd = value
	case "charactersToSkipFront":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("charactersToSkipFront: %w", err)
		}
		s.SkipFront = n
	case "charactersToSkipBack":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("charactersToSkipBack: %w", err)
		}
		s.SkipBack = n
	case "onlySkipIfTheLineBeginsWith":
		s.OnlySkipIfLineBeginsWith = splitList(value, " ")
	default:
		log.Warn().Str("key", key).Msg("Unknown settings key, ignoring")
	}
	return nil
}

// Validate reports the first configuration error. Called once by Load;
// callers building Settings in code should call it themselves.
func (s *Settings) Validate() error {
	switch s.ParagraphDelimiter {
	case DelimiterEmptyLine, DelimiterNewLine:
	default:
		return fmt.Errorf("paragraphDelimiter: unknown value %q", s.ParagraphDelimiter)
	}

	switch s.WordWrapMode {
	case WrapDisabled, WrapStrict, WrapDynamic:
	default:
		return fmt.Errorf("wordWrapMode: unknown value %q", s.WordWrapMode)
	}

	switch s.NameMode {
	case NameNone, NameBefore, NameAfter, NameWithin:
	default:
		return fmt.Errorf("characterNamesAppearBeforeOrAfterDialogue: unknown value %q", s.NameMode)
	}

	if s.MaxLinesPerParagraph < 1 {
		return fmt.Errorf("maximumNumberOfLinesPerParagraph: must be at least 1, got %d", s.MaxLinesPerParagraph)
	}
	if s.WordWrapMode != WrapDisabled && s.WordWrap < 1 {
		return fmt.Errorf("wordWrap: width must be at least 1 when wordWrapMode=%s", s.WordWrapMode)
	}
	if s.SkipFront < 0 || s.SkipBack < 0 {
		return fmt.Errorf("charactersToSkip: counts cannot be negative")
	}

	// Start-of-line ignore matching is single-character only. Reject wider
	// entries instead of silently matching their first rune.
	for _, c := range s.IgnoreLinesThatStartWith {
		if utf8.RuneCountInString(c) != 1 {
			return fmt.Errorf("ignoreLinesThatStartWith: %q is not a single character", c)
		}
	}
	return nil
}

// ManualCodeHandling reports whether any add/delete decoration key is set.
// When true, automatic bracket-code extraction and reattachment are
// disabled; the configured literals are used instead.
func (s *Settings) ManualCodeHandling() bool {
	return len(s.DeleteBeforeTranslation) > 0 ||
		s.DeleteStringBeforeTranslation != "" ||
		s.DeleteAfterTranslation != "" ||
		s.AddAtLineStart != "" ||
		s.AddAtLineEnd != "" ||
		s.AddIfNotParagraphEnd != "" ||
		s.AddAtParagraphEnd != ""
}

// FindFor looks for a settings file next to an input path: first
// <dir>/<stem>.ini, then <path>.ini, then <dir>/script.ini for directories.
// Returns "" when none exists.
func FindFor(inputPath string) string {
	info, err := os.Stat(inputPath)
	if err == nil && info.IsDir() {
		candidate := filepath.Join(inputPath, "script.ini")
		if fileExists(candidate) {
			return candidate
		}
		return ""
	}

	ext := filepath.Ext(inputPath)
	stem := strings.TrimSuffix(inputPath, ext)
	if candidate := stem + ".ini"; ext != ".ini" && fileExists(candidate) {
		return candidate
	}
	if candidate := inputPath + ".ini"; fileExists(candidate) {
		return candidate
	}
	return ""
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func splitList(value, sep string) []string {
	var out []string
	for _, item := range strings.Split(value, sep) {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
