// Package baseline compares speaking metrics with per-CEFR-level expectations.
package baseline

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/Icosa2050/assess-speaking/internal/model"
)

// Rule is the comparison applied to a metric.
type Rule string

const (
	// AtLeast requires actual >= threshold.
	AtLeast Rule = "min"
	// AtMost requires actual <= threshold.
	AtMost Rule = "max"
)

// Metric names used in targets and results.
const (
	MetricWPM        = "wpm"
	MetricFillers    = "fillers"
	MetricCohesion   = "cohesion_markers"
	MetricComplexity = "complexity_index"
)

// MetricOrder is the display order of the checked metrics.
var MetricOrder = []string{MetricWPM, MetricFillers, MetricCohesion, MetricComplexity}

// Target is the expectation for one metric at one level.
type Target struct {
	Metric    string
	Rule      Rule
	Threshold float64
}

// Expected renders the target as a short human-readable rule.
func (t Target) Expected() string {
	op := "≥"
	if t.Rule == AtMost {
		op = "≤"
	}
	return op + " " + strconv.FormatFloat(t.Threshold, 'f', -1, 64)
}

func (t Target) ok(actual float64) bool {
	if t.Rule == AtMost {
		return actual <= t.Threshold
	}
	return actual >= t.Threshold
}

// Check is the outcome of one target.
type Check struct {
	Expected string  `json:"expected"`
	Actual   float64 `json:"actual"`
	OK       bool    `json:"ok"`
}

// Result is the comparison of a metrics set against one level.
type Result struct {
	Level   string           `json:"level"`
	Passed  bool             `json:"passed"`
	Targets map[string]Check `json:"targets"`
	Comment string           `json:"comment"`
}

// Failed returns the metrics whose check failed, in display order.
func (r Result) Failed() []string {
	var out []string
	for _, name := range MetricOrder {
		if c, ok := r.Targets[name]; ok && !c.OK {
			out = append(out, name)
		}
	}
	return out
}

func targets(wpm, fillers, cohesion, complexity float64) []Target {
	return []Target{
		{Metric: MetricWPM, Rule: AtLeast, Threshold: wpm},
		{Metric: MetricFillers, Rule: AtMost, Threshold: fillers},
		{Metric: MetricCohesion, Rule: AtLeast, Threshold: cohesion},
		{Metric: MetricComplexity, Rule: AtLeast, Threshold: complexity},
	}
}

var table = map[string][]Target{
	"A2": targets(60, 8, 0, 0),
	"B1": targets(75, 6, 1, 0),
	"B2": targets(90, 5, 1, 1),
	"C1": targets(110, 3, 2, 2),
	"C2": targets(120, 2, 3, 3),
}

// Levels returns the recognised levels in ascending order.
func Levels() []string {
	out := make([]string, 0, len(table))
	for level := range table {
		out = append(out, level)
	}
	sort.Strings(out)
	return out
}

// Targets returns the expectations for a level.
func Targets(level string) ([]Target, bool) {
	ts, ok := table[normalizeLevel(level)]
	if !ok {
		return nil, false
	}
	return append([]Target(nil), ts...), true
}

// Evaluate compares metrics with the targets for level. The second return
// value is false when the level is not recognised; that is not an error,
// there is simply nothing to compare against.
func Evaluate(level string, m model.SpeakingMetrics) (Result, bool) {
	key := normalizeLevel(level)
	ts, ok := table[key]
	if !ok {
		return Result{}, false
	}
	res := Result{Level: key, Passed: true, Targets: make(map[string]Check, len(ts))}
	for _, t := range ts {
		actual := metricValue(m, t.Metric)
		check := Check{Expected: t.Expected(), Actual: actual, OK: t.ok(actual)}
		res.Targets[t.Metric] = check
		res.Passed = res.Passed && check.OK
	}
	res.Comment = comment(res)
	return res, true
}

func metricValue(m model.SpeakingMetrics, metric string) float64 {
	switch metric {
	case MetricWPM:
		return m.WPM
	case MetricFillers:
		return float64(m.Fillers)
	case MetricCohesion:
		return float64(m.CohesionMarkers)
	case MetricComplexity:
		return float64(m.ComplexityIndex)
	}
	return 0
}

func comment(r Result) string {
	if r.Passed {
		return fmt.Sprintf("All %s targets met.", r.Level)
	}
	failed := r.Failed()
	return fmt.Sprintf("%d of %d %s targets missed: %s.", len(failed), len(r.Targets), r.Level, strings.Join(failed, ", "))
}

func normalizeLevel(level string) string {
	return strings.ToUpper(strings.TrimSpace(level))
}
