package segment

import (
	"strings"

	"vnsheet/internal/codes"
	"vnsheet/internal/settings"
)

// nameWindow is how far, in raw lines, a name line may sit from the
// dialogue it labels. Anything further apart is unrelated.
const nameWindow = 2

// Assemble groups classified lines into paragraphs. A paragraph closes on
// a blank line (emptyLine delimiter), after every line (newLine
// delimiter), at the configured line cap, or when an ignored or name line
// interrupts the run. Name lines are consumed by the paragraph they
// label and never appear in its text.
func Assemble(classified []ClassifiedLine, s *settings.Settings) []*Paragraph {
	resolved := make([]ClassifiedLine, len(classified))
	copy(resolved, classified)
	markPositionalNames(resolved, s)
	demoteLoneNames(resolved, s)

	var paras []*Paragraph
	var cur *Paragraph
	var pending *ClassifiedLine

	flush := func() {
		if cur != nil && len(cur.Lines) > 0 {
			finalize(cur, s)
			paras = append(paras, cur)
		}
		cur = nil
	}

	for i := range resolved {
		cl := resolved[i]
		switch cl.Role {
		case RoleBlank:
			if s.ParagraphDelimiter == settings.DelimiterEmptyLine {
				flush()
			}
		case RoleIgnored:
			flush()
		case RoleName:
			flush()
			if s.NameMode == settings.NameAfter {
				attachTrailingName(paras, &resolved[i])
			} else {
				pending = &resolved[i]
			}
		case RoleDialogue:
			if cur == nil {
				cur = &Paragraph{}
				if pending != nil && cl.Index-pending.Index <= nameWindow {
					cur.Speaker = pending.Name
					cur.NameLine = pending
				}
				pending = nil
			}
			cur.Lines = append(cur.Lines, cl)
			if s.ParagraphDelimiter == settings.DelimiterNewLine || len(cur.Lines) >= s.MaxLinesPerParagraph {
				flush()
			}
		}
	}
	flush()
	return paras
}

// markPositionalNames handles within mode with both delimiters disabled:
// the first line of a multi-line block is the speaker. Single-line blocks
// keep their one line as dialogue, so no empty paragraph can result.
func markPositionalNames(resolved []ClassifiedLine, s *settings.Settings) {
	if s.NameMode != settings.NameWithin || s.NameBeginsWith != "" || s.NameEndsWith != "" {
		return
	}
	blockStart := true
	for i := range resolved {
		switch resolved[i].Role {
		case RoleBlank, RoleIgnored:
			blockStart = true
		case RoleDialogue:
			if blockStart && i+1 < len(resolved) && resolved[i+1].Role == RoleDialogue {
				resolved[i].Role = RoleName
				resolved[i].Name = resolved[i].Body
			}
			blockStart = false
		default:
			blockStart = false
		}
	}
}

// demoteLoneNames turns name lines with no dialogue inside the window
// back into plain dialogue, so the state machine only ever sees names it
// can attach.
func demoteLoneNames(resolved []ClassifiedLine, s *settings.Settings) {
	for i := range resolved {
		if resolved[i].Role != RoleName {
			continue
		}
		if !nameHasDialogue(resolved, i, s.NameMode) {
			resolved[i].Role = RoleDialogue
			resolved[i].Name = ""
		}
	}
}

func nameHasDialogue(lines []ClassifiedLine, i int, mode settings.NameMode) bool {
	lo, hi := i+1, i+nameWindow
	if mode == settings.NameAfter {
		lo, hi = i-nameWindow, i-1
	}
	for j := lo; j <= hi; j++ {
		if j >= 0 && j < len(lines) && lines[j].Role == RoleDialogue {
			return true
		}
	}
	return false
}

func attachTrailingName(paras []*Paragraph, name *ClassifiedLine) {
	if len(paras) == 0 {
		return
	}
	last := paras[len(paras)-1]
	if last.Speaker == "" && last.NameLine == nil && name.Index-last.EndIndex() <= nameWindow {
		last.Speaker = name.Name
		last.NameLine = name
	}
}

// finalize pulls control codes out of each line and joins what remains
// into the paragraph's translatable text. When the settings carry manual
// code rules, bracket extraction stays off and only the configured
// delete-before-translation strings are removed.
func finalize(p *Paragraph, s *settings.Settings) {
	manual := s.ManualCodeHandling()
	parts := make([]string, 0, len(p.Lines))
	for k := range p.Lines {
		clean := p.Lines[k].Body
		if manual {
			clean = codes.StripForTranslation(clean, s)
		} else {
			var cs []codes.Code
			clean, cs = codes.Extract(clean)
			for _, c := range cs {
				c.Line = k
				p.Codes = append(p.Codes, c)
			}
		}
		if trimmed := strings.TrimSpace(clean); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	p.Text = strings.Join(parts, " ")
}
