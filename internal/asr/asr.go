// Package asr adapts speech recognisers to word-level transcripts.
package asr

import (
	"context"
	"strings"

	"github.com/Icosa2050/assess-speaking/internal/model"
)

// Transcriber turns a WAV file into a transcript with word timings.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (model.Transcript, error)
}

// rawWord accepts both the stored transcript layout (t0/t1/text) and the
// OpenAI verbose_json layout (start/end/word).
type rawWord struct {
	T0    *float64 `json:"t0"`
	T1    *float64 `json:"t1"`
	Start *float64 `json:"start"`
	End   *float64 `json:"end"`
	Text  string   `json:"text"`
	Word  string   `json:"word"`
}

type rawSegment struct {
	Text  string    `json:"text"`
	Words []rawWord `json:"words"`
}

type rawTranscript struct {
	Text     string       `json:"text"`
	Language string       `json:"language"`
	Words    []rawWord    `json:"words"`
	Segments []rawSegment `json:"segments"`
}

func (r rawTranscript) normalize() model.Transcript {
	words := r.Words
	if len(words) == 0 {
		for _, s := range r.Segments {
			words = append(words, s.Words...)
		}
	}
	text := strings.TrimSpace(r.Text)
	if text == "" && len(r.Segments) > 0 {
		parts := make([]string, 0, len(r.Segments))
		for _, s := range r.Segments {
			if p := strings.TrimSpace(s.Text); p != "" {
				parts = append(parts, p)
			}
		}
		text = strings.Join(parts, " ")
	}
	return model.Transcript{Text: text, Words: tokens(words), Language: r.Language}
}

// tokens lower-cases and trims each word and drops empty ones.
func tokens(words []rawWord) []model.WordToken {
	out := make([]model.WordToken, 0, len(words))
	for _, w := range words {
		text := w.Text
		if text == "" {
			text = w.Word
		}
		text = strings.ToLower(strings.TrimSpace(text))
		if text == "" {
			continue
		}
		out = append(out, model.WordToken{Start: first(w.T0, w.Start), End: first(w.T1, w.End), Text: text})
	}
	return out
}

func first(a, b *float64) float64 {
	if a != nil {
		return *a
	}
	if b != nil {
		return *b
	}
	return 0
}
