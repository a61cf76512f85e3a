package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Icosa2050/assess-speaking/internal/baseline"
	"github.com/Icosa2050/assess-speaking/internal/model"
	"github.com/Icosa2050/assess-speaking/internal/rubric"
)

func sampleReport() Report {
	overall := 3.5
	return Report{
		Meta: Meta{
			Timestamp: time.Date(2026, 3, 4, 10, 20, 30, 0, time.UTC),
			Audio:     "/tmp/take.wav",
			Whisper:   "large-v3",
			LLM:       "llama3.1",
			Label:     "prompt:energia case",
		},
		Metrics: model.SpeakingMetrics{
			DurationSec: 60, SpeakingTimeSec: 50, WordCount: 90, WPM: 108,
			PauseCount: 4, PauseTotalSec: 10, Fillers: 2, CohesionMarkers: 3,
		},
		TranscriptPreview: "allora, secondo me è città",
		LLMRubric:         map[string]any{"overall": 3.5, "extra": "kept"},
		Rubric:            &rubric.Rubric{Overall: &overall},
		Baseline: &baseline.Result{
			Level:  "B1",
			Passed: false,
			Targets: map[string]baseline.Check{
				baseline.MetricWPM:     {Expected: "≥ 90", Actual: 108, OK: true},
				baseline.MetricFillers: {Expected: "≤ 1", Actual: 2, OK: false},
			},
		},
	}
}

func TestPreviewTruncatesRunes(t *testing.T) {
	long := strings.Repeat("è", PreviewRunes+20)
	got := Preview(long)
	if n := len([]rune(got)); n != PreviewRunes {
		t.Fatalf("expected %d runes, got %d", PreviewRunes, n)
	}
	if Preview("  ciao  ") != "ciao" {
		t.Fatalf("expected trimmed short preview")
	}
}

func TestWriteJSONKeys(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, sampleReport()); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	for _, key := range []string{"meta", "metrics", "transcript_preview", "llm_rubric", "baseline_comparison"} {
		if _, ok := decoded[key]; !ok {
			t.Fatalf("missing key %q in %s", key, buf.String())
		}
	}
	if _, ok := decoded["grading_error"]; ok {
		t.Fatalf("grading_error should be omitted when grading succeeded")
	}
	if !strings.Contains(buf.String(), "città") || !strings.Contains(buf.String(), "≥ 90") {
		t.Fatalf("expected unescaped unicode, got %s", buf.String())
	}
	rub := decoded["llm_rubric"].(map[string]any)
	if rub["extra"] != "kept" {
		t.Fatalf("expected unknown rubric keys to survive, got %v", rub)
	}
}

func TestWriteJSONGradingError(t *testing.T) {
	r := sampleReport()
	r.Rubric = nil
	r.LLMRubric = nil
	r.GradingError = &rubric.GradingError{Kind: rubric.KindUnavailable, Detail: "connection refused"}
	var buf bytes.Buffer
	if err := WriteJSON(&buf, r); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	if !strings.Contains(buf.String(), `"error": "ollama_not_running_or_model_missing"`) {
		t.Fatalf("expected grading error kind, got %s", buf.String())
	}
}

func TestChecksFollowMetricOrder(t *testing.T) {
	checks := sampleReport().Checks()
	if len(checks) != 2 {
		t.Fatalf("expected 2 checks, got %+v", checks)
	}
	pos := map[string]int{}
	for i, m := range baseline.MetricOrder {
		pos[m] = i
	}
	if pos[checks[0].Metric] > pos[checks[1].Metric] {
		t.Fatalf("checks out of order: %+v", checks)
	}
	if (Report{}).Checks() != nil {
		t.Fatalf("expected no checks without a baseline")
	}
}

func TestRecordCarriesResult(t *testing.T) {
	rec := sampleReport().Record("/logs/reports/x.json")
	if rec.Overall == nil || *rec.Overall != 3.5 {
		t.Fatalf("expected overall 3.5, got %v", rec.Overall)
	}
	if rec.BaselinePassed == nil || *rec.BaselinePassed {
		t.Fatalf("expected baseline failed, got %v", rec.BaselinePassed)
	}
	if len(rec.Targets) != 2 || rec.ReportPath != "/logs/reports/x.json" {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestSaveWritesUnderReports(t *testing.T) {
	dir := t.TempDir()
	path, err := Save(dir, sampleReport())
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	want := filepath.Join(dir, "reports", "20260304T102030_prompt-energia-case.json")
	if path != want {
		t.Fatalf("expected %s, got %s", want, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !json.Valid(data) {
		t.Fatalf("saved report is not valid json")
	}
}

func TestFileNameFallsBackWithoutLabel(t *testing.T) {
	r := sampleReport()
	r.Meta.Label = "  "
	if got := FileName(r); got != "20260304T102030_assessment.json" {
		t.Fatalf("unexpected name %q", got)
	}
}

func TestRenderText(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderText(&buf, sampleReport()); err != nil {
		t.Fatalf("RenderText: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"WPM", "108.0", "Baseline B1", "fillers", "Overall", "3.5", "città"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestRenderTextGradingError(t *testing.T) {
	r := sampleReport()
	r.Rubric = nil
	r.GradingError = &rubric.GradingError{Kind: rubric.KindMalformed}
	var buf bytes.Buffer
	if err := RenderText(&buf, r); err != nil {
		t.Fatalf("RenderText: %v", err)
	}
	if !strings.Contains(buf.String(), "malformed_response") {
		t.Fatalf("expected grading error in output:\n%s", buf.String())
	}
}
