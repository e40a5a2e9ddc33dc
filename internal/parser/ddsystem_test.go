package parser

import (
	"strings"
	"testing"
)

const ddsystemFixture = `◇前のページの内容
◆scn001◆宮子\n「こんにちは」
◆voice99
◆cg12b
◆chara@stand_smile
◆title.dat
◆scn002◆black
◆scn003◆\nそして物語は続く
◆scn004◆地の文テキスト
`

func TestDDSystemParser_Parse(t *testing.T) {
	path := writeFixture(t, "scenario.ddsystem", ddsystemFixture)
	p := NewDDSystemParser(nil)

	result, err := p.Parse(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Units) != 3 {
		t.Fatalf("got %d units, want 3: %+v", len(result.Units), result.Units)
	}

	first := result.Units[0]
	if first.Speaker != "宮子" || first.Text != "「こんにちは」" {
		t.Errorf("unit 0 = %q by %q", first.Text, first.Speaker)
	}
	if first.Meta["code"] != "scn001" {
		t.Errorf("code = %q, want scn001", first.Meta["code"])
	}

	second := result.Units[1]
	if second.Text != "そして物語は続く" || second.Speaker != "" {
		t.Errorf("unit 1 = %q by %q", second.Text, second.Speaker)
	}
	if second.Meta["leadingBreak"] == "" {
		t.Error("unit 1 lost its leading break marker")
	}

	if result.Units[2].Text != "地の文テキスト" {
		t.Errorf("unit 2 = %q", result.Units[2].Text)
	}
}

func TestDDSystemParser_SkipsBookkeeping(t *testing.T) {
	cases := []struct {
		name string
		line string
	}{
		{"other page marker", "◇なにか"},
		{"trailing digit", "◆voice99"},
		{"second to last digit", "◆cg12b"},
		{"at syntax", "◆chara@stand_smile"},
		{"underscore syntax", "◆pose_a"},
		{"dat reference", "◆title.dat"},
		{"black screen", "◆scn◆black"},
		{"no closing marker", "◆lonely"},
	}
	p := NewDDSystemParser(nil)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeFixture(t, "s.ddsystem", tc.line+"\n")
			result, err := p.Parse(path)
			if err != nil {
				t.Fatal(err)
			}
			if len(result.Units) != 0 {
				t.Errorf("line %q produced %d units, want 0", tc.line, len(result.Units))
			}
		})
	}
}

func TestDDSystemParser_Reconstruct(t *testing.T) {
	path := writeFixture(t, "scenario.ddsystem", ddsystemFixture)
	p := NewDDSystemParser(map[string]string{"宮子": "Miyako"})

	result, err := p.Parse(path)
	if err != nil {
		t.Fatal(err)
	}
	out, err := p.Reconstruct(result, map[string]string{
		"「こんにちは」": "\"Hello.\"",
		"地の文テキスト": "Plain narration.",
	})
	if err != nil {
		t.Fatal(err)
	}
	if out.Translated != 2 || out.Skipped != 1 {
		t.Errorf("counts = %d translated, %d skipped, want 2 and 1", out.Translated, out.Skipped)
	}

	content := string(out.Content)
	if !strings.Contains(content, `◆scn001◆Miyako\n"Hello."`) {
		t.Errorf("speaker line not rebuilt: %q", content)
	}
	if !strings.Contains(content, "◆scn004◆Plain narration.") {
		t.Errorf("narration line not rebuilt: %q", content)
	}
	// untranslated and bookkeeping lines stay byte for byte
	for _, kept := range []string{"◇前のページの内容", "◆voice99", "◆cg12b", "◆scn002◆black", `◆scn003◆\nそして物語は続く`} {
		if !strings.Contains(content, kept+"\n") {
			t.Errorf("line %q not preserved in %q", kept, content)
		}
	}
}

func TestDDSystemParser_ReconstructNoTranslationsIsIdentity(t *testing.T) {
	path := writeFixture(t, "scenario.ddsystem", ddsystemFixture)
	p := NewDDSystemParser(nil)

	result, err := p.Parse(path)
	if err != nil {
		t.Fatal(err)
	}
	out, err := p.Reconstruct(result, nil)
	if err != nil {
		t.Fatal(err)
	}
	if string(out.Content) != ddsystemFixture {
		t.Errorf("content changed without translations:\n%q", out.Content)
	}
}
