package stats

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/Icosa2050/assess-speaking/internal/model"
)

func ptr(v float64) *float64 { return &v }

func sampleRecords() []model.AssessmentRecord {
	base := time.Date(2025, 10, 6, 14, 58, 1, 0, time.UTC)
	return []model.AssessmentRecord{
		{CreatedAt: base, Audio: "demo.m4a", Label: "baseline", Metrics: model.SpeakingMetrics{WPM: 95.9}, Overall: ptr(3.5)},
		{CreatedAt: base.Add(18 * time.Hour), Audio: "week2.m4a", Label: "week2", Metrics: model.SpeakingMetrics{WPM: 110.2}, Overall: ptr(3.8)},
	}
}

func TestSummariseComputesMeans(t *testing.T) {
	s := Summarise(sampleRecords())
	if s.Count != 2 {
		t.Fatalf("expected 2 runs, got %d", s.Count)
	}
	if s.AvgWPM == nil || *s.AvgWPM != 103.1 {
		t.Fatalf("unexpected avg wpm %v", s.AvgWPM)
	}
	if s.AvgOverall == nil || *s.AvgOverall != 3.65 {
		t.Fatalf("unexpected avg overall %v", s.AvgOverall)
	}
	if s.BestOverall == nil || *s.BestOverall != 3.8 {
		t.Fatalf("unexpected best overall %v", s.BestOverall)
	}
	if s.Latest == nil || s.Latest.Label != "week2" {
		t.Fatalf("unexpected latest %+v", s.Latest)
	}
}

func TestSummariseUngraded(t *testing.T) {
	s := Summarise([]model.AssessmentRecord{{Metrics: model.SpeakingMetrics{WPM: 80}}})
	if s.AvgOverall != nil || s.BestOverall != nil {
		t.Fatalf("expected no overall values")
	}
	if empty := Summarise(nil); empty.Count != 0 || empty.AvgWPM != nil {
		t.Fatalf("unexpected empty summary %+v", empty)
	}
}

func TestMovingAverage(t *testing.T) {
	got := MovingAverage([]float64{2, 4, 6, 8}, 2)
	want := []float64{2, 3, 5, 7}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("index %d: got %v want %v", i, got[i], want[i])
		}
	}
	if out := MovingAverage([]float64{1, 2}, 0); out[1] != 2 {
		t.Fatalf("window <= 1 should copy values")
	}
}

func TestSparkline(t *testing.T) {
	if got := Sparkline([]float64{0, 5, 10}); got != " +@" {
		t.Fatalf("unexpected sparkline %q", got)
	}
	if got := Sparkline([]float64{3, 3}); got != "++" {
		t.Fatalf("unexpected flat sparkline %q", got)
	}
	if Sparkline(nil) != "" {
		t.Fatalf("expected empty sparkline")
	}
}

func TestRenderSummaryAndTrend(t *testing.T) {
	records := sampleRecords()
	var buf bytes.Buffer
	if err := RenderSummary(&buf, Summarise(records)); err != nil {
		t.Fatalf("summary: %v", err)
	}
	if err := RenderTrend(&buf, records, 1); err != nil {
		t.Fatalf("trend: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Runs: 2", "Avg WPM: 103.1", "Best overall: 3.80", "95.9 → 110.2", "3.50 → 3.80"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}

func TestRenderSummaryEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderSummary(&buf, Summary{}); err != nil {
		t.Fatalf("summary: %v", err)
	}
	if !strings.Contains(buf.String(), "No assessments found.") {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestRenderHTMLContainsRows(t *testing.T) {
	records := sampleRecords()
	records[1].Label = "<script>"
	var buf bytes.Buffer
	if err := RenderHTML(&buf, records, Summarise(records), time.Now()); err != nil {
		t.Fatalf("html: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Assess Speaking") || !strings.Contains(out, "week2.m4a") {
		t.Fatalf("missing content:\n%s", out)
	}
	if strings.Contains(out, "<script>") {
		t.Fatalf("label was not escaped")
	}
}

func TestSelectWeakTargets(t *testing.T) {
	aggs := []model.TargetAggregate{
		{Metric: "wpm", Checks: 4, Failures: 1},
		{Metric: "fillers", Checks: 4, Failures: 3},
		{Metric: "cohesion_markers", Checks: 4, Failures: 0},
		{Metric: "complexity_index", Checks: 2, Failures: 1},
	}
	got := SelectWeakTargets(aggs, 2)
	if len(got) != 2 || got[0].Metric != "fillers" || got[1].Metric != "complexity_index" {
		t.Fatalf("unexpected weak targets %+v", got)
	}
	var buf bytes.Buffer
	if err := RenderWeakTargets(&buf, aggs); err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(buf.String(), "cohesion_markers") {
		t.Fatalf("targets never missed should be omitted")
	}
}
