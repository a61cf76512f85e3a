// Package stats summarises assessment history and renders it for the terminal.
package stats

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/Icosa2050/assess-speaking/internal/model"
)

const (
	sparkChars          = " .:-=+*#%@"
	terminalWidthBackup = 80
)

// Summary aggregates a set of assessments. Averages are nil when no
// assessment carries the value.
type Summary struct {
	Count       int
	AvgWPM      *float64
	AvgOverall  *float64
	BestOverall *float64
	Latest      *model.AssessmentRecord
}

// Summarise computes run count, mean WPM, mean and best overall score.
func Summarise(records []model.AssessmentRecord) Summary {
	s := Summary{Count: len(records)}
	if len(records) == 0 {
		return s
	}
	latest := records[len(records)-1]
	s.Latest = &latest

	wpmSum := 0.0
	overallSum := 0.0
	graded := 0
	best := math.Inf(-1)
	for _, r := range records {
		wpmSum += r.Metrics.WPM
		if r.Overall != nil {
			overallSum += *r.Overall
			graded++
			if *r.Overall > best {
				best = *r.Overall
			}
		}
	}
	avgWPM := round(wpmSum/float64(len(records)), 1)
	s.AvgWPM = &avgWPM
	if graded > 0 {
		avg := round(overallSum/float64(graded), 2)
		s.AvgOverall = &avg
		s.BestOverall = &best
	}
	return s
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	if window <= 1 {
		copy(out, values)
		return out
	}
	var sum float64
	for i, v := range values {
		sum += v
		n := i + 1
		if i >= window {
			sum -= values[i-window]
			n = window
		}
		out[i] = sum / float64(n)
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if hi-lo < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	last := len(sparkChars) - 1
	for _, v := range values {
		idx := int(math.Round((v - lo) / (hi - lo) * float64(last)))
		b.WriteByte(sparkChars[max(0, min(idx, last))])
	}
	return b.String()
}

// RenderSummary prints the one-line run summary.
func RenderSummary(w io.Writer, s Summary) error {
	if s.Count == 0 {
		_, err := fmt.Fprintln(w, "No assessments found.")
		return err
	}
	parts := []string{fmt.Sprintf("Runs: %d", s.Count)}
	if s.AvgWPM != nil {
		parts = append(parts, fmt.Sprintf("Avg WPM: %.1f", *s.AvgWPM))
	}
	if s.AvgOverall != nil {
		parts = append(parts, fmt.Sprintf("Avg overall: %.2f", *s.AvgOverall))
	}
	if s.BestOverall != nil {
		parts = append(parts, fmt.Sprintf("Best overall: %.2f", *s.BestOverall))
	}
	_, err := fmt.Fprintf(w, "• %s\n\n", strings.Join(parts, " | "))
	return err
}

// RenderTrend prints smoothed WPM and overall sparklines.
func RenderTrend(w io.Writer, records []model.AssessmentRecord, window int) error {
	if len(records) < 2 {
		return nil
	}
	wpms := make([]float64, 0, len(records))
	var overall []float64
	for _, r := range records {
		wpms = append(wpms, r.Metrics.WPM)
		if r.Overall != nil {
			overall = append(overall, *r.Overall)
		}
	}
	if _, err := fmt.Fprintln(w, "Trend"); err != nil {
		return err
	}
	if err := trendLine(w, "WPM", MovingAverage(wpms, window), "%.1f"); err != nil {
		return err
	}
	if len(overall) >= 2 {
		if err := trendLine(w, "Overall", MovingAverage(overall, window), "%.2f"); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

func trendLine(w io.Writer, name string, values []float64, format string) error {
	first := fmt.Sprintf(format, values[0])
	last := fmt.Sprintf(format, values[len(values)-1])
	_, err := fmt.Fprintf(w, "%-8s %s  %s → %s\n", name, Sparkline(values), first, last)
	return err
}

// TerminalWidth returns the stdout width, or 80 when it is not a terminal.
func TerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return terminalWidthBackup
	}
	return width
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
