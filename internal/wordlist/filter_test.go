package wordlist

import "testing"

func TestNormalizeItalian(t *testing.T) {
	norm := NormalizerForLang("it")
	cases := map[string]string{
		"ciao,":      "ciao",
		"perché":     "perché",
		"dall’altro": "dall’altro",
		"l'ho":       "l'ho",
		"Roma":       "oma",
		"2024":       "",
		"...":        "",
		"città!":     "città",
	}
	for in, want := range cases {
		if got := norm(in); got != want {
			t.Fatalf("normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizerDefaultsToItalian(t *testing.T) {
	if got := NormalizerForLang("")("eh..."); got != "eh" {
		t.Fatalf("expected italian normaliser by default, got %q", got)
	}
}

func TestNormalizeLowerForOtherLanguages(t *testing.T) {
	if got := NormalizerForLang("en")(" Hello, "); got != "hello" {
		t.Fatalf("unexpected normalisation: %q", got)
	}
}
