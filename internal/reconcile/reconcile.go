// Package reconcile writes translated paragraphs back onto the source
// line grid they came from.
package reconcile

import (
	"strings"

	"vnsheet/internal/codes"
	"vnsheet/internal/segment"
	"vnsheet/internal/settings"
	"vnsheet/internal/wordwrap"
)

// Mismatch records a strict-mode paragraph whose wrapped translation did
// not produce the source line count. The paragraph's lines stay untouched
// so the output file remains playable.
type Mismatch struct {
	StartLine    int // 1-based first source line of the paragraph
	EndLine      int // 1-based last source line
	Speaker      string
	SourceLines  int
	WrappedLines int
	SourceText   string
	Translated   string
}

// Placer applies translated text back onto source lines. Names maps a
// source speaker to its translated form for name-line rewriting.
type Placer struct {
	Settings *settings.Settings
	Names    map[string]string
}

// Place wraps translated and distributes it over the paragraph's line
// slots in buf, which is indexed by file line. Control codes are
// reattached at their recorded anchors and trimmed affixes are restored.
// A strict-mode line-count mismatch leaves buf untouched and is returned
// instead; every other outcome is nil.
func (pl *Placer) Place(buf []string, p *segment.Paragraph, translated string) *Mismatch {
	s := pl.Settings
	if len(p.Lines) == 0 || strings.TrimSpace(translated) == "" {
		return nil
	}
	if s.DeleteAfterTranslation != "" {
		translated = strings.ReplaceAll(translated, s.DeleteAfterTranslation, "")
	}

	n := len(p.Lines)
	wrapped := wordwrap.Lines(translated, s)
	if s.WordWrapMode == settings.WrapStrict && len(wrapped) != n {
		return &Mismatch{
			StartLine:    p.StartIndex() + 1,
			EndLine:      p.EndIndex() + 1,
			Speaker:      p.Speaker,
			SourceLines:  n,
			WrappedLines: len(wrapped),
			SourceText:   p.Text,
			Translated:   translated,
		}
	}

	slots := make([]string, n)
	if len(wrapped) <= n {
		copy(slots, wrapped)
	} else {
		// the last slot absorbs everything the grid has no room for
		copy(slots, wrapped[:n-1])
		slots[n-1] = strings.Join(wrapped[n-1:], " ")
	}

	pl.decorate(slots)

	byLine := make(map[int][]codes.Code, len(p.Codes))
	for _, c := range p.Codes {
		byLine[c.Line] = append(byLine[c.Line], c)
	}
	for k, line := range p.Lines {
		text := codes.Reattach(slots[k], byLine[k])
		buf[line.Index] = line.LeadingSkip + text + line.TrailingSkip
	}
	pl.rewriteName(buf, p)
	return nil
}

// decorate applies the configured manual additions to each non-empty
// slot. The last non-empty slot takes the paragraph-end marker, all
// earlier ones the continuation marker.
func (pl *Placer) decorate(slots []string) {
	s := pl.Settings
	if s.AddAtLineStart == "" && s.AddAtLineEnd == "" && s.AddIfNotParagraphEnd == "" && s.AddAtParagraphEnd == "" {
		return
	}
	last := -1
	for i, slot := range slots {
		if slot != "" {
			last = i
		}
	}
	for i, slot := range slots {
		if slot == "" {
			continue
		}
		slot = s.AddAtLineStart + slot + s.AddAtLineEnd
		if i == last {
			slot += s.AddAtParagraphEnd
		} else {
			slot += s.AddIfNotParagraphEnd
		}
		slots[i] = slot
	}
}

// rewriteName swaps the attached name line's speaker for its translation
// when the mapping knows one.
func (pl *Placer) rewriteName(buf []string, p *segment.Paragraph) {
	if p.NameLine == nil || p.Speaker == "" {
		return
	}
	translated, ok := pl.Names[p.Speaker]
	if !ok || translated == p.Speaker {
		return
	}
	buf[p.NameLine.Index] = strings.Replace(p.NameLine.Text, p.Speaker, translated, 1)
}
