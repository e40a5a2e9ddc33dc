// Package sheet reads and writes translation sheets, the tabular files
// that carry extracted paragraphs out to translators and completed
// translations back in.
package sheet

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"vnsheet/internal/reconcile"

	"github.com/rs/zerolog/log"
)

// Record is one row of a translation sheet: a single extracted
// paragraph and, once the sheet comes back, its translation.
type Record struct {
	File        string `json:"file"`
	StartLine   int    `json:"start_line"`
	EndLine     int    `json:"end_line"`
	Speaker     string `json:"speaker,omitempty"`
	Source      string `json:"source"`
	Translation string `json:"translation,omitempty"`
}

// MismatchRow ties a reconciliation mismatch to the file it came from
// for the inject report.
type MismatchRow struct {
	File string
	reconcile.Mismatch
}

const tsvHeader = "file\tlines\tspeaker\tsource\ttranslation"

// Write writes records to path, choosing TSV or JSON by extension.
func Write(path string, records []Record) error {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return WriteJSON(path, records)
	}
	return WriteTSV(path, records)
}

// Read loads a sheet from path, choosing TSV or JSON by extension.
func Read(path string) ([]Record, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return ReadJSON(path)
	}
	return ReadTSV(path)
}

// WriteTSV writes records as tab-separated rows with a header line.
func WriteTSV(path string, records []Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	defer f.Close()

	fmt.Fprintln(f, tsvHeader)
	for _, r := range records {
		fmt.Fprintf(f, "%s\t%s\t%s\t%s\t%s\n",
			r.File,
			formatLineSpan(r.StartLine, r.EndLine),
			escapeTSV(r.Speaker),
			escapeTSV(r.Source),
			escapeTSV(r.Translation),
		)
	}

	log.Info().Str("path", path).Int("records", len(records)).Msg("Wrote translation sheet")
	return nil
}

// ReadTSV loads a tab-separated sheet written by WriteTSV. Rows with
// fewer than five columns are skipped with a warning.
func ReadTSV(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sheet: %w", err)
	}
	defer f.Close()

	var records []Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if lineNo == 1 && line == tsvHeader {
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		cols := strings.Split(line, "\t")
		if len(cols) < 5 {
			log.Warn().Int("line", lineNo).Int("columns", len(cols)).Msg("Sheet row has too few columns, skipping")
			continue
		}
		start, end := parseLineSpan(cols[1])
		records = append(records, Record{
			File:      cols[0],
			StartLine: start,
			EndLine:   end,
			Speaker:   unescapeTSV(cols[2]),
			Source:    unescapeTSV(cols[3]),
			// translators paste raw tabs into the last column,
			// keep everything after the fourth separator
			Translation: unescapeTSV(strings.Join(cols[4:], "\t")),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan sheet: %w", err)
	}

	return records, nil
}

// WriteJSON writes records as an indented JSON array.
func WriteJSON(path string, records []Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(records); err != nil {
		return fmt.Errorf("encode sheet: %w", err)
	}

	log.Info().Str("path", path).Int("records", len(records)).Msg("Wrote translation sheet")
	return nil
}

// ReadJSON loads a sheet written by WriteJSON.
func ReadJSON(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sheet: %w", err)
	}
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode sheet: %w", err)
	}
	return records, nil
}

// TranslationMap builds a source→translation map from completed rows.
// Rows whose translation is empty are skipped; when the same source
// text appears twice the later row wins.
func TranslationMap(records []Record) map[string]string {
	m := make(map[string]string, len(records))
	for _, r := range records {
		if strings.TrimSpace(r.Translation) == "" {
			continue
		}
		m[r.Source] = r.Translation
	}
	return m
}

// WriteMismatchTSV writes the strict-mode mismatch report.
func WriteMismatchTSV(path string, rows []MismatchRow) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create mismatch report: %w", err)
	}
	defer f.Close()

	fmt.Fprintln(f, "file\tlines\tspeaker\tsource_lines\twrapped_lines\tsource\ttranslation")
	for _, r := range rows {
		fmt.Fprintf(f, "%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			r.File,
			formatLineSpan(r.StartLine, r.EndLine),
			escapeTSV(r.Speaker),
			r.SourceLines,
			r.WrappedLines,
			escapeTSV(r.SourceText),
			escapeTSV(r.Translated),
		)
	}

	log.Info().Str("path", path).Int("mismatches", len(rows)).Msg("Wrote mismatch report")
	return nil
}

// formatLineSpan renders "12" for single lines and "12-14" for spans.
func formatLineSpan(start, end int) string {
	if end > start {
		return strconv.Itoa(start) + "-" + strconv.Itoa(end)
	}
	return strconv.Itoa(start)
}

// parseLineSpan is the inverse of formatLineSpan. Malformed numbers
// come back as zero.
func parseLineSpan(s string) (int, int) {
	first, last, found := strings.Cut(s, "-")
	start, _ := strconv.Atoi(strings.TrimSpace(first))
	if !found {
		return start, start
	}
	end, _ := strconv.Atoi(strings.TrimSpace(last))
	return start, end
}

// escapeTSV replaces tabs and newlines in a string for TSV safety.
func escapeTSV(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\t", "\\t")
	s = strings.ReplaceAll(s, "\n", "\\n")
	s = strings.ReplaceAll(s, "\r", "\\r")
	return s
}

// unescapeTSV reverses escapeTSV.
func unescapeTSV(s string) string {
	if !strings.Contains(s, "\\") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 == len(s) {
			b.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case 't':
			b.WriteByte('\t')
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case '\\':
			b.WriteByte('\\')
		default:
			b.WriteByte('\\')
			b.WriteByte(s[i])
		}
	}
	return b.String()
}
