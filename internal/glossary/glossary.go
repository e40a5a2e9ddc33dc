// Package glossary manages the character-name dictionary: which names
// appear in a script and what each one becomes in the target language.
package glossary

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
)

// Entry is one dictionary row. An empty Translation means the name has
// not been decided yet; Map leaves such names alone.
type Entry struct {
	Name        string
	Translation string
	Note        string
}

// LoadCSV reads a character dictionary. The first row is a header and
// is always skipped; rows are name, translation, optional note.
func LoadCSV(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open glossary: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse glossary: %w", err)
	}

	var entries []Entry
	for i, row := range rows {
		if i == 0 {
			continue
		}
		if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			continue
		}
		e := Entry{Name: strings.TrimSpace(row[0])}
		if len(row) > 1 {
			e.Translation = strings.TrimSpace(row[1])
		}
		if len(row) > 2 {
			e.Note = strings.TrimSpace(row[2])
		}
		entries = append(entries, e)
	}

	log.Info().Str("path", path).Int("entries", len(entries)).Msg("Loaded glossary")
	return entries, nil
}

// SaveCSV writes the dictionary with a header row.
func SaveCSV(path string, entries []Entry) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create glossary: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"name", "translation", "note"}); err != nil {
		return fmt.Errorf("write glossary header: %w", err)
	}
	for _, e := range entries {
		if err := w.Write([]string{e.Name, e.Translation, e.Note}); err != nil {
			return fmt.Errorf("write glossary row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush glossary: %w", err)
	}

	log.Info().Str("path", path).Int("entries", len(entries)).Msg("Saved glossary")
	return nil
}

// Map builds the name substitution mapping, skipping undecided names.
func Map(entries []Entry) map[string]string {
	m := make(map[string]string, len(entries))
	for _, e := range entries {
		if e.Translation == "" {
			continue
		}
		m[e.Name] = e.Translation
	}
	return m
}
