package textenc

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		tag  string
		want string
		ok   bool
	}{
		{"", "utf-8", true},
		{"UTF-8", "utf-8", true},
		{"utf8", "utf-8", true},
		{"sjis", "shift-jis", true},
		{"Shift_JIS", "shift-jis", true},
		{"CP932", "shift-jis", true},
		{"windows-31j", "shift-jis", true},
		{"euc-jp", "", false},
		{"latin1", "", false},
	}
	for _, tc := range cases {
		got, err := Normalize(tc.tag)
		if tc.ok && (err != nil || got != tc.want) {
			t.Errorf("Normalize(%q) = %q, %v; want %q", tc.tag, got, err, tc.want)
		}
		if !tc.ok && err == nil {
			t.Errorf("Normalize(%q) accepted an unsupported tag", tc.tag)
		}
	}
}

func TestShiftJIS_RoundTrip(t *testing.T) {
	original := "◆scn001◆宮子\\n「こんにちは、世界。」\n"

	encoded, err := Encode([]byte(original), "sjis")
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(encoded, []byte(original)) {
		t.Fatal("encoding changed nothing, text cannot have been shift-jis encoded")
	}
	decoded, err := Decode(encoded, "sjis")
	if err != nil {
		t.Fatal(err)
	}
	if string(decoded) != original {
		t.Errorf("round trip = %q, want %q", decoded, original)
	}
}

func TestDecode_UTF8StripsBOM(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("こんにちは")...)
	got, err := Decode(data, "")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "こんにちは" {
		t.Errorf("got %q", got)
	}
}

func TestEncode_UTF8Passthrough(t *testing.T) {
	data := []byte("anything at all, even 😀")
	got, err := Encode(data, "utf-8")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("utf-8 encode changed bytes: %q", got)
	}
}

func TestSanitize_DropsUnencodableRunes(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"こんにちは", "こんにちは"},
		{"plain ascii", "plain ascii"},
		{"愛してる😀よ", "愛してるよ"},
		{"price: 10€", "price: 10"},
	}
	for _, tc := range cases {
		if got := Sanitize(tc.in); got != tc.want {
			t.Errorf("Sanitize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestReadFile_DecodesTaggedContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.txt")
	encoded, err := Encode([]byte("◇シーン開始\n地の文。\n"), "cp932")
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := ReadFile(path, "cp932")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "◇シーン開始\n地の文。\n" {
		t.Errorf("got %q", got)
	}
}
