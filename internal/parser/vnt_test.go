package parser

import (
	"encoding/json"
	"strings"
	"testing"
)

const vntFixture = `[
  {
    "name": "宮子",
    "message": "「こんにちは」"
  },
  {
    "message": "地の文。"
  }
]
`

func TestVNTParser_Parse(t *testing.T) {
	path := writeFixture(t, "script.json", vntFixture)
	p := NewVNTParser(nil)

	result, err := p.Parse(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Units) != 2 {
		t.Fatalf("got %d units, want 2", len(result.Units))
	}
	if result.Units[0].Speaker != "宮子" || result.Units[0].Text != "「こんにちは」" {
		t.Errorf("unit 0 = %q by %q", result.Units[0].Text, result.Units[0].Speaker)
	}
	if result.Units[1].Speaker != "" || result.Units[1].Text != "地の文。" {
		t.Errorf("unit 1 = %q by %q", result.Units[1].Text, result.Units[1].Speaker)
	}
}

func TestVNTParser_Reconstruct(t *testing.T) {
	path := writeFixture(t, "script.json", vntFixture)
	p := NewVNTParser(map[string]string{"宮子": "Miyako"})

	result, err := p.Parse(path)
	if err != nil {
		t.Fatal(err)
	}
	out, err := p.Reconstruct(result, map[string]string{
		"「こんにちは」": "\"Hello.\"",
		"地の文。":    "First line.\nSecond line.",
	})
	if err != nil {
		t.Fatal(err)
	}
	if out.Translated != 2 {
		t.Errorf("translated = %d, want 2", out.Translated)
	}

	var entries []VNTEntry
	if err := json.Unmarshal(out.Content, &entries); err != nil {
		t.Fatalf("output is not valid json: %v\n%s", err, out.Content)
	}
	if entries[0].Name != "Miyako" {
		t.Errorf("name = %q, want %q", entries[0].Name, "Miyako")
	}
	if entries[0].Message != "\"Hello.\"" {
		t.Errorf("message 0 = %q", entries[0].Message)
	}
	// real line breaks become the engine's literal \r\n marker
	if entries[1].Message != `First line.\r\nSecond line.` {
		t.Errorf("message 1 = %q", entries[1].Message)
	}

	content := string(out.Content)
	if strings.Contains(content, `<`) || strings.Contains(content, `&`) {
		t.Errorf("output must not escape html characters: %q", content)
	}
	if !strings.Contains(content, "\n  {") {
		t.Errorf("output should be indented with two spaces: %q", content)
	}
}

func TestVNTParser_ReconstructKeepsUntranslated(t *testing.T) {
	path := writeFixture(t, "script.json", vntFixture)
	p := NewVNTParser(nil)

	result, err := p.Parse(path)
	if err != nil {
		t.Fatal(err)
	}
	out, err := p.Reconstruct(result, map[string]string{"地の文。": "Narration."})
	if err != nil {
		t.Fatal(err)
	}
	if out.Translated != 1 || out.Skipped != 1 {
		t.Errorf("counts = %d translated, %d skipped, want 1 and 1", out.Translated, out.Skipped)
	}

	var entries []VNTEntry
	if err := json.Unmarshal(out.Content, &entries); err != nil {
		t.Fatal(err)
	}
	if entries[0].Message != "「こんにちは」" {
		t.Errorf("untranslated message = %q, want it kept", entries[0].Message)
	}
	if entries[0].Name != "宮子" {
		t.Errorf("name = %q, want it kept without a mapping", entries[0].Name)
	}
	if entries[1].Message != "Narration." {
		t.Errorf("translated message = %q", entries[1].Message)
	}
}
