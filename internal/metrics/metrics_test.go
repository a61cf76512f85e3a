package metrics

import (
	"math"
	"reflect"
	"testing"

	"github.com/Icosa2050/assess-speaking/internal/model"
)

func tokens(texts ...string) []model.WordToken {
	out := make([]model.WordToken, len(texts))
	for i, text := range texts {
		out[i] = model.WordToken{Start: float64(i), End: float64(i) + 0.5, Text: text}
	}
	return out
}

func TestComputeBasicSample(t *testing.T) {
	words := tokens("ciao", "eh", "parlo", "per", "quanto", "riguarda")
	pauses := []model.SilenceInterval{
		{Start: 1.0, End: 1.6, Duration: 0.6},
		{Start: 4.0, End: 4.4, Duration: 0.4},
	}
	got := Compute(words, pauses, 10.0)
	want := model.SpeakingMetrics{
		DurationSec:     10.0,
		PauseCount:      2,
		PauseTotalSec:   1.0,
		SpeakingTimeSec: 9.0,
		WordCount:       6,
		WPM:             40.0,
		Fillers:         1,
		CohesionMarkers: 1,
		ComplexityIndex: 0,
	}
	if got != want {
		t.Fatalf("unexpected metrics:\n got  %+v\n want %+v", got, want)
	}
}

func TestComputeEmptyInput(t *testing.T) {
	got := Compute(nil, nil, 0)
	if got.WordCount != 0 || got.WPM != 0 {
		t.Fatalf("expected zero words and rate, got %+v", got)
	}
	if got.PauseCount != 0 || got.PauseTotalSec != 0 {
		t.Fatalf("expected no pauses, got %+v", got)
	}
	if got.SpeakingTimeSec != 0 {
		t.Fatalf("expected speaking time to round to 0.00, got %v", got.SpeakingTimeSec)
	}
}

func TestComputeSpeakingTimeFloor(t *testing.T) {
	pauses := []model.SilenceInterval{{Start: 0, End: 5, Duration: 5}}
	got := Compute(tokens("ciao", "ciao"), pauses, 5)
	if math.IsInf(got.WPM, 0) || math.IsNaN(got.WPM) || got.WPM < 0 {
		t.Fatalf("expected finite non-negative wpm, got %v", got.WPM)
	}
	if got.WPM != 120000 {
		t.Fatalf("expected rate over the epsilon floor, got %v", got.WPM)
	}
}

func TestComputeIsIdempotent(t *testing.T) {
	words := tokens("allora", "se", "fosse", "vero", "tuttavia", "non", "so", "cioè")
	pauses := []model.SilenceInterval{{Start: 2, End: 2.75, Duration: 0.75}}
	a := Compute(words, pauses, 7.3)
	b := Compute(words, pauses, 7.3)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("expected identical results: %+v vs %+v", a, b)
	}
}

func TestComputeDropsNonLetterTokens(t *testing.T) {
	got := Compute(tokens("ciao!", "123", "...", "città"), nil, 60)
	if got.WordCount != 2 {
		t.Fatalf("expected 2 words, got %d", got.WordCount)
	}
	if got.WPM != 2 {
		t.Fatalf("expected 2 wpm, got %v", got.WPM)
	}
}

func TestCohesionAndComplexityMarkers(t *testing.T) {
	words := tokens(
		"da", "un", "lato", "mi", "piace", "dall’altro", "no",
		"la", "casa", "nella", "quale", "vivo", "che", "è", "grande",
		"se", "piove", "qualora", "serve", "comunque", "inoltre",
	)
	got := Compute(words, nil, 30)
	// da un lato, dall’altro, comunque, inoltre
	if got.CohesionMarkers != 4 {
		t.Fatalf("expected 4 cohesion markers, got %d", got.CohesionMarkers)
	}
	// nella quale, che, se, qualora ("serve" must not count as "se")
	if got.ComplexityIndex != 4 {
		t.Fatalf("expected complexity 4, got %d", got.ComplexityIndex)
	}
}

func TestMarkersRespectWordBoundaries(t *testing.T) {
	got := Compute(tokens("perché", "checché", "quindicina", "cuiabá"), nil, 10)
	if got.ComplexityIndex != 0 {
		t.Fatalf("expected no complexity markers inside words, got %d", got.ComplexityIndex)
	}
	if got.CohesionMarkers != 0 {
		t.Fatalf("expected no cohesion markers inside words, got %d", got.CohesionMarkers)
	}
}

func TestLexiconExtend(t *testing.T) {
	lex := Italian().Extend([]string{"Beh"}, []string{"in  conclusione", "quindi"})
	got := ComputeWith(lex, tokens("beh", "in", "conclusione", "quindi"), nil, 10)
	if got.Fillers != 1 {
		t.Fatalf("expected extended filler to count, got %d", got.Fillers)
	}
	if got.CohesionMarkers != 2 {
		t.Fatalf("expected 2 cohesion markers, got %d", got.CohesionMarkers)
	}
	if _, ok := Italian().Fillers["beh"]; ok {
		t.Fatalf("extend must not modify the base lexicon")
	}
}

func TestCountMatchesFlexibleWhitespace(t *testing.T) {
	text := splitPhrase(" per   quanto\triguarda il tema ")
	if n := countMatches(text, "per quanto riguarda"); n != 1 {
		t.Fatalf("expected 1 match, got %d", n)
	}
	if n := countMatches(splitPhrase(" dall altro "), "dall’altro"); n != 0 {
		t.Fatalf("apostrophe marker must not match a space, got %d", n)
	}
}
