package project

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// deaccent decomposes unicode text and strips combining marks, so
// "Projekt Über" slugifies the same as "Projekt Uber".
var deaccent = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Slugify converts a caller-supplied name into a deterministic,
// filesystem-safe slug: transliterated to ASCII, lowercased, with every run
// of non-alphanumeric characters collapsed to a single hyphen. The same
// input always yields the same slug. Empty or fully-stripped input becomes
// "untitled".
func Slugify(text string) string {
	if flat, _, err := transform.String(deaccent, text); err == nil {
		text = flat
	}
	text = strings.ToLower(text)

	var b strings.Builder
	lastHyphen := true // suppress a leading hyphen
	for _, r := range text {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}

	out := strings.TrimSuffix(b.String(), "-")
	if out == "" {
		return "untitled"
	}
	return out
}
