// Package filewalker discovers input files and pairs each one with the
// parser that claims it.
package filewalker

import (
	"fmt"
	"os"
	"path/filepath"

	"vnsheet/internal/parser"

	"github.com/rs/zerolog/log"
)

// FileEntry represents a discovered file ready for processing.
type FileEntry struct {
	Path string
	// Rel is the path relative to the walk root, used to mirror the
	// input layout under an output directory.
	Rel    string
	Parser parser.Parser
}

// Walker traverses a file or directory and dispatches each file to the
// correct parser.
type Walker struct {
	parsers []parser.Parser

	// Force routes every file to one parser regardless of extension.
	Force parser.Parser
}

// NewWalker creates a Walker over the given parsers.
func NewWalker(parsers []parser.Parser) *Walker {
	return &Walker{parsers: parsers}
}

// Walk discovers all claimed files under root. A root that is itself a
// file yields exactly one entry and fails when nothing claims it.
func (w *Walker) Walk(root string) ([]FileEntry, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root path: %w", err)
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		p := w.pick(root)
		if p == nil {
			return nil, fmt.Errorf("no parser claims %s", root)
		}
		return []FileEntry{{Path: root, Rel: filepath.Base(root), Parser: p}}, nil
	}

	var entries []FileEntry
	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Error walking path")
			return nil
		}
		if info.IsDir() {
			return nil
		}

		p := w.pick(path)
		if p == nil {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = filepath.Base(path)
		}
		entries = append(entries, FileEntry{Path: path, Rel: rel, Parser: p})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}

	log.Info().Int("count", len(entries)).Str("root", root).Msg("Discovered files")
	return entries, nil
}

func (w *Walker) pick(path string) parser.Parser {
	if w.Force != nil {
		return w.Force
	}
	return parser.Select(w.parsers, path)
}
