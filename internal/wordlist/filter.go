// Package wordlist provides token normalisation and lexicon word lists.
package wordlist

import (
	"strings"
	"unicode/utf8"
)

// NormalizeFunc turns a raw transcript token into a comparable form.
// An empty result means the token is dropped.
type NormalizeFunc func(string) string

// NormalizerForLang returns a language-specific token normaliser.
func NormalizerForLang(lang string) NormalizeFunc {
	switch strings.ToLower(strings.TrimSpace(lang)) {
	case "", "it":
		return normalizeItalian
	default:
		return normalizeLower
	}
}

// normalizeItalian keeps lowercase Latin letters, the à..ù block and
// apostrophes; everything else (digits, punctuation, capitals) is removed.
func normalizeItalian(token string) string {
	var b strings.Builder
	b.Grow(len(token))
	for _, r := range token {
		if keepItalian(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func keepItalian(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return true
	case r >= 'à' && r <= 'ù':
		return true
	case r == '’' || r == '\'':
		return true
	}
	return false
}

func normalizeLower(token string) string {
	token = strings.ToLower(strings.TrimSpace(token))
	if !utf8.ValidString(token) {
		return ""
	}
	return strings.Trim(token, ".,;:!?\"()[]{}")
}
