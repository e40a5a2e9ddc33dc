package segment

import (
	"strings"
	"testing"

	"vnsheet/internal/codes"
	"vnsheet/internal/settings"
)

func kirikiriSettings() *settings.Settings {
	s := settings.Default()
	s.ParagraphDelimiter = settings.DelimiterEmptyLine
	s.MaxLinesPerParagraph = 8
	s.NameMode = settings.NameBefore
	s.NameBeginsWith = "【"
	s.NameEndsWith = "】"
	return s
}

func TestSplitLines_RoundTrip(t *testing.T) {
	cases := []string{
		"one\ntwo\nthree\n",
		"one\r\ntwo\r\n",
		"mixed\r\nendings\nhere",
		"no newline at all",
		"\n\n\n",
		"",
	}
	for _, content := range cases {
		lines := SplitLines(content)
		if got := JoinLines(lines); got != content {
			t.Errorf("JoinLines(SplitLines(%q)) = %q", content, got)
		}
	}
}

func TestSplitLines_Terminators(t *testing.T) {
	lines := SplitLines("a\r\nb\nc")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3", len(lines))
	}
	want := []struct{ text, newline string }{
		{"a", "\r\n"},
		{"b", "\n"},
		{"c", ""},
	}
	for i, w := range want {
		if lines[i].Text != w.text || lines[i].Newline != w.newline {
			t.Errorf("line %d = %q + %q, want %q + %q", i, lines[i].Text, lines[i].Newline, w.text, w.newline)
		}
	}
}

func TestClassify_Roles(t *testing.T) {
	s := kirikiriSettings()
	s.IgnoreLinesThatStartWith = []string{"*", ";"}
	s.DoNotProcessLinesThatHave = []string{"@end"}

	cases := []struct {
		name string
		text string
		want Role
	}{
		{"dialogue", "「For Queen and country.」", RoleDialogue},
		{"name line", "【Chloe】", RoleName},
		{"ignored by start", "*page34|", RoleIgnored},
		{"ignored by content", "middle @end marker", RoleIgnored},
		{"blank", "", RoleBlank},
		{"whitespace only", "   \t", RoleBlank},
		{"unmatched name delimiter", "【Chloe speaks", RoleDialogue},
		{"empty name", "【】", RoleDialogue},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(RawLine{Text: tc.text}, s)
			if got.Role != tc.want {
				t.Errorf("Classify(%q).Role = %s, want %s", tc.text, got.Role, tc.want)
			}
		})
	}
}

func TestClassify_NameBeatsStartIgnore(t *testing.T) {
	s := kirikiriSettings()
	s.NameBeginsWith = "*"
	s.NameEndsWith = "*"
	s.IgnoreLinesThatStartWith = []string{"*"}

	got := Classify(RawLine{Text: "*Chloe*"}, s)
	if got.Role != RoleName || got.Name != "Chloe" {
		t.Errorf("got role %s name %q, want name line for Chloe", got.Role, got.Name)
	}
	if got := Classify(RawLine{Text: "*just a comment"}, s); got.Role != RoleIgnored {
		t.Errorf("got role %s, want ignored", got.Role)
	}
}

func TestClassify_NameModes(t *testing.T) {
	cases := []struct {
		name   string
		begins string
		ends   string
		text   string
		want   string
	}{
		{"both delimiters", "【", "】", "【Chloe】", "Chloe"},
		{"begins only", "【", "", "【Chloe", "Chloe"},
		{"ends only", "", "：", "Chloe：", "Chloe"},
		{"inner spaces trimmed", "【", "】", "【 Chloe 】", "Chloe"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := settings.Default()
			s.NameMode = settings.NameBefore
			s.NameBeginsWith = tc.begins
			s.NameEndsWith = tc.ends
			got := Classify(RawLine{Text: tc.text}, s)
			if got.Role != RoleName || got.Name != tc.want {
				t.Errorf("Classify(%q) = role %s name %q, want name %q", tc.text, got.Role, got.Name, tc.want)
			}
		})
	}
}

func TestClassify_SkipAffixes(t *testing.T) {
	s := settings.Default()
	s.SkipFront = 1
	s.SkipBack = 1
	s.OnlySkipIfLineBeginsWith = []string{"◇"}

	got := Classify(RawLine{Text: "  ◇dialogue text_ "}, s)
	if got.Body != "dialogue text" {
		t.Errorf("Body = %q, want %q", got.Body, "dialogue text")
	}
	if got.LeadingSkip != "  ◇" || got.TrailingSkip != "_ " {
		t.Errorf("affixes = %q / %q, want %q / %q", got.LeadingSkip, got.TrailingSkip, "  ◇", "_ ")
	}
	if rebuilt := got.LeadingSkip + got.Body + got.TrailingSkip; rebuilt != "  ◇dialogue text_ " {
		t.Errorf("affixes do not rebuild the line: %q", rebuilt)
	}

	// gate closed: skips stay off, only whitespace comes away
	got = Classify(RawLine{Text: "plain text_"}, s)
	if got.Body != "plain text_" {
		t.Errorf("gated Body = %q, want untouched %q", got.Body, "plain text_")
	}
}

func TestAssemble_NameBefore(t *testing.T) {
	s := kirikiriSettings()
	lines := SplitLines("【Chloe】\n「For Queen and country.」\n")
	paras := Assemble(ClassifyAll(lines, s), s)

	if len(paras) != 1 {
		t.Fatalf("got %d paragraphs, want 1", len(paras))
	}
	p := paras[0]
	if p.Speaker != "Chloe" {
		t.Errorf("Speaker = %q, want %q", p.Speaker, "Chloe")
	}
	if p.Text != "「For Queen and country.」" {
		t.Errorf("Text = %q, want %q", p.Text, "「For Queen and country.」")
	}
	if len(p.Lines) != 1 {
		t.Errorf("got %d dialogue lines, want 1 (name line must be consumed)", len(p.Lines))
	}
}

func TestAssemble_LineCap(t *testing.T) {
	s := settings.Default()
	s.ParagraphDelimiter = settings.DelimiterEmptyLine
	s.MaxLinesPerParagraph = 2

	lines := SplitLines("a\nb\nc\nd\ne\n")
	paras := Assemble(ClassifyAll(lines, s), s)

	want := []string{"a b", "c d", "e"}
	if len(paras) != len(want) {
		t.Fatalf("got %d paragraphs, want %d", len(paras), len(want))
	}
	for i, p := range paras {
		if p.Text != want[i] {
			t.Errorf("paragraph %d = %q, want %q", i, p.Text, want[i])
		}
		if len(p.Lines) > s.MaxLinesPerParagraph {
			t.Errorf("paragraph %d has %d lines, cap is %d", i, len(p.Lines), s.MaxLinesPerParagraph)
		}
	}
}

func TestAssemble_NewLineDelimiter(t *testing.T) {
	s := settings.Default()
	s.ParagraphDelimiter = settings.DelimiterNewLine
	s.MaxLinesPerParagraph = 8

	lines := SplitLines("first\nsecond\nthird\n")
	paras := Assemble(ClassifyAll(lines, s), s)

	if len(paras) != 3 {
		t.Fatalf("got %d paragraphs, want 3", len(paras))
	}
	for i, p := range paras {
		if len(p.Lines) != 1 {
			t.Errorf("paragraph %d has %d lines, want exactly 1", i, len(p.Lines))
		}
	}
}

func TestAssemble_EmptyLineBlocks(t *testing.T) {
	s := settings.Default()
	s.ParagraphDelimiter = settings.DelimiterEmptyLine
	s.MaxLinesPerParagraph = 8

	lines := SplitLines("one\ntwo\n\nthree\n\n\nfour\n")
	paras := Assemble(ClassifyAll(lines, s), s)

	want := []string{"one two", "three", "four"}
	if len(paras) != len(want) {
		t.Fatalf("got %d paragraphs, want %d", len(paras), len(want))
	}
	for i, p := range paras {
		if p.Text != want[i] {
			t.Errorf("paragraph %d = %q, want %q", i, p.Text, want[i])
		}
	}
}

func TestAssemble_IgnoredBreaksParagraph(t *testing.T) {
	s := settings.Default()
	s.ParagraphDelimiter = settings.DelimiterEmptyLine
	s.MaxLinesPerParagraph = 8
	s.IgnoreLinesThatStartWith = []string{"*"}

	lines := SplitLines("one\n*label\ntwo\n")
	paras := Assemble(ClassifyAll(lines, s), s)

	if len(paras) != 2 {
		t.Fatalf("got %d paragraphs, want 2", len(paras))
	}
	if paras[0].Text != "one" || paras[1].Text != "two" {
		t.Errorf("got %q and %q, want %q and %q", paras[0].Text, paras[1].Text, "one", "two")
	}
}

func TestAssemble_NameInterruptsParagraph(t *testing.T) {
	s := kirikiriSettings()
	lines := SplitLines("【Chloe】\nfirst\n【Maria】\nsecond\n")
	paras := Assemble(ClassifyAll(lines, s), s)

	if len(paras) != 2 {
		t.Fatalf("got %d paragraphs, want 2", len(paras))
	}
	if paras[0].Speaker != "Chloe" || paras[1].Speaker != "Maria" {
		t.Errorf("speakers = %q, %q, want Chloe, Maria", paras[0].Speaker, paras[1].Speaker)
	}
}

func TestAssemble_NameAfter(t *testing.T) {
	s := settings.Default()
	s.ParagraphDelimiter = settings.DelimiterEmptyLine
	s.MaxLinesPerParagraph = 8
	s.NameMode = settings.NameAfter
	s.NameBeginsWith = "【"
	s.NameEndsWith = "】"

	lines := SplitLines("a long reply\n【Chloe】\n\nno name here\n")
	paras := Assemble(ClassifyAll(lines, s), s)

	if len(paras) != 2 {
		t.Fatalf("got %d paragraphs, want 2", len(paras))
	}
	if paras[0].Speaker != "Chloe" {
		t.Errorf("Speaker = %q, want %q", paras[0].Speaker, "Chloe")
	}
	if paras[1].Speaker != "" {
		t.Errorf("Speaker = %q, want empty", paras[1].Speaker)
	}
}

func TestAssemble_WithinDelimited(t *testing.T) {
	s := settings.Default()
	s.ParagraphDelimiter = settings.DelimiterEmptyLine
	s.MaxLinesPerParagraph = 8
	s.NameMode = settings.NameWithin
	s.NameBeginsWith = "【"
	s.NameEndsWith = "】"

	lines := SplitLines("【Chloe】\nline one\nline two\n")
	paras := Assemble(ClassifyAll(lines, s), s)

	if len(paras) != 1 {
		t.Fatalf("got %d paragraphs, want 1", len(paras))
	}
	p := paras[0]
	if p.Speaker != "Chloe" || p.Text != "line one line two" {
		t.Errorf("got speaker %q text %q", p.Speaker, p.Text)
	}
}

func TestAssemble_WithinPositional(t *testing.T) {
	s := settings.Default()
	s.ParagraphDelimiter = settings.DelimiterEmptyLine
	s.MaxLinesPerParagraph = 8
	s.NameMode = settings.NameWithin

	lines := SplitLines("Chloe\nthe actual words\n\nlone line\n")
	paras := Assemble(ClassifyAll(lines, s), s)

	if len(paras) != 2 {
		t.Fatalf("got %d paragraphs, want 2", len(paras))
	}
	if paras[0].Speaker != "Chloe" || paras[0].Text != "the actual words" {
		t.Errorf("got speaker %q text %q", paras[0].Speaker, paras[0].Text)
	}
	// single-line block keeps its line as dialogue rather than producing
	// an empty paragraph
	if paras[1].Speaker != "" || paras[1].Text != "lone line" {
		t.Errorf("got speaker %q text %q, want unlabeled %q", paras[1].Speaker, paras[1].Text, "lone line")
	}
}

func TestAssemble_LoneNameBecomesDialogue(t *testing.T) {
	s := kirikiriSettings()
	lines := SplitLines("【Chloe】\n\n\n\nfar away dialogue\n")
	paras := Assemble(ClassifyAll(lines, s), s)

	if len(paras) != 2 {
		t.Fatalf("got %d paragraphs, want 2", len(paras))
	}
	if paras[0].Text != "【Chloe】" {
		t.Errorf("paragraph 0 = %q, want the demoted name line", paras[0].Text)
	}
	if paras[1].Speaker != "" {
		t.Errorf("Speaker = %q, want empty", paras[1].Speaker)
	}
}

func TestAssemble_ExtractsCodes(t *testing.T) {
	s := settings.Default()
	s.ParagraphDelimiter = settings.DelimiterEmptyLine
	s.MaxLinesPerParagraph = 8

	lines := SplitLines("[audio Chloe_1B]Hello, Sergeant.\nsecond[r]\n")
	paras := Assemble(ClassifyAll(lines, s), s)

	if len(paras) != 1 {
		t.Fatalf("got %d paragraphs, want 1", len(paras))
	}
	p := paras[0]
	if p.Text != "Hello, Sergeant. second" {
		t.Errorf("Text = %q, want %q", p.Text, "Hello, Sergeant. second")
	}
	if len(p.Codes) != 2 {
		t.Fatalf("got %d codes, want 2", len(p.Codes))
	}
	if p.Codes[0].Raw != "[audio Chloe_1B]" || p.Codes[0].Anchor != codes.AnchorStart || p.Codes[0].Line != 0 {
		t.Errorf("code 0 = %+v, want start anchor on line 0", p.Codes[0])
	}
	if p.Codes[1].Raw != "[r]" || p.Codes[1].Anchor != codes.AnchorEnd || p.Codes[1].Line != 1 {
		t.Errorf("code 1 = %+v, want end anchor on line 1", p.Codes[1])
	}
}

func TestAssemble_ManualCodeHandling(t *testing.T) {
	s := settings.Default()
	s.ParagraphDelimiter = settings.DelimiterEmptyLine
	s.MaxLinesPerParagraph = 8
	s.DeleteBeforeTranslation = []string{"[r]"}

	lines := SplitLines("[audio x]Hello[r]\n")
	paras := Assemble(ClassifyAll(lines, s), s)

	if len(paras) != 1 {
		t.Fatalf("got %d paragraphs, want 1", len(paras))
	}
	p := paras[0]
	if len(p.Codes) != 0 {
		t.Errorf("got %d codes, want none under manual code handling", len(p.Codes))
	}
	if p.Text != "[audio x]Hello" {
		t.Errorf("Text = %q, want %q", p.Text, "[audio x]Hello")
	}
}

func TestAssemble_NoEmptyParagraphs(t *testing.T) {
	s := settings.Default()
	s.ParagraphDelimiter = settings.DelimiterEmptyLine
	s.MaxLinesPerParagraph = 8
	s.IgnoreLinesThatStartWith = []string{";"}

	lines := SplitLines("\n\n;comment\n;another\n\n")
	paras := Assemble(ClassifyAll(lines, s), s)
	if len(paras) != 0 {
		t.Fatalf("got %d paragraphs from blank and ignored input, want 0", len(paras))
	}
}

func TestAssemble_CapProperty(t *testing.T) {
	s := settings.Default()
	s.ParagraphDelimiter = settings.DelimiterEmptyLine
	for _, limit := range []int{1, 2, 3, 5} {
		s.MaxLinesPerParagraph = limit
		var sb strings.Builder
		for i := 0; i < 17; i++ {
			sb.WriteString("line\n")
		}
		paras := Assemble(ClassifyAll(SplitLines(sb.String()), s), s)
		total := 0
		for _, p := range paras {
			if len(p.Lines) == 0 || len(p.Lines) > limit {
				t.Errorf("cap %d: paragraph with %d lines", limit, len(p.Lines))
			}
			total += len(p.Lines)
		}
		if total != 17 {
			t.Errorf("cap %d: %d lines across paragraphs, want 17", limit, total)
		}
	}
}
