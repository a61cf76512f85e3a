// Package metrics derives objective speaking measures from a transcript
// and the detected pauses.
package metrics

import (
	"math"
	"strings"

	"github.com/Icosa2050/assess-speaking/internal/model"
	"github.com/Icosa2050/assess-speaking/internal/pause"
	"github.com/Icosa2050/assess-speaking/internal/wordlist"
)

// MinSpeakingTime keeps the rate computation finite when pauses cover the whole sample.
const MinSpeakingTime = 0.001

// Compute derives metrics with the Italian lexicon.
func Compute(words []model.WordToken, pauses []model.SilenceInterval, durationSec float64) model.SpeakingMetrics {
	return ComputeWith(Italian(), words, pauses, durationSec)
}

// ComputeWith derives metrics using the given lexicon. It is pure: the same
// input always yields the same value.
func ComputeWith(lex Lexicon, words []model.WordToken, pauses []model.SilenceInterval, durationSec float64) model.SpeakingMetrics {
	if math.IsNaN(durationSec) || math.IsInf(durationSec, 0) || durationSec < 0 {
		durationSec = 0
	}
	pauseTotal := pause.Total(pauses)
	speaking := math.Max(MinSpeakingTime, durationSec-pauseTotal)

	tokens := Tokens(lex.Lang, words)
	wpm := float64(len(tokens)) / (speaking / 60.0)

	fillers := 0
	for _, tok := range tokens {
		if _, ok := lex.Fillers[tok]; ok {
			fillers++
		}
	}

	text := splitPhrase(" " + strings.Join(tokens, " ") + " ")
	cohesion := 0
	for _, m := range lex.Cohesion {
		cohesion += countMatches(text, m)
	}
	complexity := 0
	for _, m := range lex.Complexity {
		complexity += countMatches(text, m)
	}

	return model.SpeakingMetrics{
		DurationSec:     round(durationSec, 2),
		PauseCount:      len(pauses),
		PauseTotalSec:   round(pauseTotal, 2),
		SpeakingTimeSec: round(speaking, 2),
		WordCount:       len(tokens),
		WPM:             round(wpm, 1),
		Fillers:         fillers,
		CohesionMarkers: cohesion,
		ComplexityIndex: complexity,
	}
}

// Tokens normalises the transcript words and drops the ones left empty.
func Tokens(lang string, words []model.WordToken) []string {
	norm := wordlist.NormalizerForLang(lang)
	out := make([]string, 0, len(words))
	for _, w := range words {
		if tok := norm(w.Text); tok != "" {
			out = append(out, tok)
		}
	}
	return out
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
