package textutil

import (
	"crypto/sha256"
	"encoding/hex"
	"unicode"
)

// ContainsJapanese checks if a string contains Japanese characters
// (kana or kanji).
func ContainsJapanese(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Hiragana, r) ||
			unicode.Is(unicode.Katakana, r) ||
			unicode.Is(unicode.Han, r) {
			return true
		}
	}
	return false
}

// Hash computes a SHA-256 hex hash of a string for deduplication.
func Hash(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}

// Truncate shortens a string to at most max runes, appending "..." when
// something was cut.
func Truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
