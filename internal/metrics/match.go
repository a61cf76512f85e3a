package metrics

import (
	"strings"
	"unicode"
)

// phrase is text split into word runs and the separators before each run.
// seps[i] precedes words[i]; seps[0] is the leading text.
type phrase struct {
	words []string
	seps  []string
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r)
}

func splitPhrase(text string) phrase {
	var p phrase
	var word, sep strings.Builder
	for _, r := range text {
		if isWordRune(r) {
			if word.Len() == 0 {
				p.seps = append(p.seps, sep.String())
				sep.Reset()
			}
			word.WriteRune(r)
			continue
		}
		if word.Len() > 0 {
			p.words = append(p.words, word.String())
			word.Reset()
		}
		sep.WriteRune(r)
	}
	if word.Len() > 0 {
		p.words = append(p.words, word.String())
	}
	return p
}

// countMatches counts non-overlapping whole-word occurrences of marker in
// text. Whitespace inside the marker matches any run of whitespace; other
// separators (apostrophes) must match exactly.
func countMatches(text phrase, marker string) int {
	m := splitPhrase(strings.ToLower(marker))
	if len(m.words) == 0 {
		return 0
	}
	count := 0
	for i := 0; i+len(m.words) <= len(text.words); {
		if matchesAt(text, m, i) {
			count++
			i += len(m.words)
			continue
		}
		i++
	}
	return count
}

func matchesAt(text, m phrase, i int) bool {
	for j, w := range m.words {
		if text.words[i+j] != w {
			return false
		}
		if j > 0 && !sepMatches(text.seps[i+j], m.seps[j]) {
			return false
		}
	}
	return true
}

func sepMatches(got, want string) bool {
	if isBlank(want) {
		return got != "" && isBlank(got)
	}
	return got == want
}

func isBlank(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}
