// Package rubric builds grading requests for the LLM examiner and parses
// its free-text answers.
package rubric

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Icosa2050/assess-speaking/internal/model"
)

// Keys lists the JSON keys the examiner is asked to return.
var Keys = []string{
	"fluency", "cohesion", "accuracy", "range", "overall",
	"comments_fluency", "comments_cohesion", "comments_accuracy", "comments_range", "overall_comment",
}

// BuildPrompt renders the examiner request for a transcript and its metrics.
func BuildPrompt(transcript string, m model.SpeakingMetrics) string {
	var b strings.Builder
	b.WriteString("\nSei un esaminatore CEFR per l'italiano. Valuta SOLO la competenza orale in base al trascritto (possono esserci errori di trascrizione automatica).\n")
	b.WriteString("Assegna punteggi 1–5 per: 1) Fluidità, 2) Coerenza/Coesione, 3) Correttezza grammaticale, 4) Ampiezza lessicale.\n")
	b.WriteString("Per ogni criterio indica 2 esempi concreti da migliorare e dai un voto complessivo (media).\n\n")

	b.WriteString("METRICHE OGGETTIVE:\n")
	fmt.Fprintf(&b, "- Durata: %s s; Tempo di parola: %s s; Pausa totale: %s s; Numero di pause: %d\n",
		formatNumber(m.DurationSec), formatNumber(m.SpeakingTimeSec), formatNumber(m.PauseTotalSec), m.PauseCount)
	fmt.Fprintf(&b, "- Parole: %d → WPM: %s\n", m.WordCount, formatNumber(m.WPM))
	fmt.Fprintf(&b, "- Filler: %d ; Marcatori di coesione rilevati: %d\n", m.Fillers, m.CohesionMarkers)
	fmt.Fprintf(&b, "- Indice di complessità (relative/periodi ipotetici, euristico): %d\n\n", m.ComplexityIndex)

	b.WriteString("TRASCRITTO:\n")
	fmt.Fprintf(&b, "\"\"\"%s\"\"\"\n\n", strings.TrimSpace(transcript))

	b.WriteString("RISPONDI IN JSON con le chiavi:\n")
	b.WriteString(strings.Join(Keys, ", "))
	b.WriteString(".\n")
	return b.String()
}

// SelfTestPrompt is a tiny request used to check that the grader answers at all.
const SelfTestPrompt = "Valuta brevemente (JSON) un testo fittizio: 'Oggi parlo dell'efficienza energetica nelle case.' " +
	"Dai punteggi CEFR 1–5 per fluency, cohesion, accuracy, range e un commento."

// formatNumber prints whole numbers with one decimal ("10.0") and keeps
// the shortest exact form otherwise ("12.3").
func formatNumber(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
