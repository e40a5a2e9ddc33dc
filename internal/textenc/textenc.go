// Package textenc converts file content between utf-8 and the legacy
// encodings game engines still ship with. The encoding is always an
// explicit per-run tag, never guessed from the bytes.
package textenc

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/encoding/japanese"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Normalize maps the accepted tag spellings onto "utf-8" or
// "shift-jis". The empty tag means utf-8. Unknown tags are a
// configuration error.
func Normalize(tag string) (string, error) {
	switch strings.ToLower(tag) {
	case "", "utf8", "utf-8":
		return "utf-8", nil
	case "sjis", "shiftjis", "shift-jis", "shift_jis", "cp932", "ms932", "windows-31j":
		return "shift-jis", nil
	}
	return "", fmt.Errorf("unsupported encoding %q", tag)
}

// Decode converts file bytes in the tagged encoding to utf-8. A utf-8
// byte order mark is stripped and not restored on encode.
func Decode(data []byte, tag string) ([]byte, error) {
	enc, err := Normalize(tag)
	if err != nil {
		return nil, err
	}
	if enc == "utf-8" {
		return bytes.TrimPrefix(data, utf8BOM), nil
	}
	decoded, err := japanese.ShiftJIS.NewDecoder().Bytes(data)
	if err != nil {
		return nil, fmt.Errorf("decode shift-jis: %w", err)
	}
	return decoded, nil
}

// Encode converts utf-8 bytes to the tagged encoding. Runes the target
// cannot carry are dropped with a warning before encoding.
func Encode(data []byte, tag string) ([]byte, error) {
	enc, err := Normalize(tag)
	if err != nil {
		return nil, err
	}
	if enc == "utf-8" {
		return data, nil
	}
	encoded, err := japanese.ShiftJIS.NewEncoder().Bytes([]byte(Sanitize(string(data))))
	if err != nil {
		return nil, fmt.Errorf("encode shift-jis: %w", err)
	}
	return encoded, nil
}

// ReadFile reads path and decodes it to utf-8.
func ReadFile(path, tag string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	decoded, err := Decode(data, tag)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return decoded, nil
}

// Sanitize drops every rune cp932 cannot represent, one warning per
// dropped rune. Strings that already encode cleanly pass through
// untouched.
func Sanitize(s string) string {
	enc := japanese.ShiftJIS.NewEncoder()
	if _, err := enc.Bytes([]byte(s)); err == nil {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if _, err := enc.Bytes([]byte(string(r))); err != nil {
			log.Warn().Str("rune", string(r)).Msg("Dropping character the target encoding cannot carry")
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
