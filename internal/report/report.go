// Package report assembles the assessment output and writes it as JSON or
// styled text.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/Icosa2050/assess-speaking/internal/baseline"
	"github.com/Icosa2050/assess-speaking/internal/model"
	"github.com/Icosa2050/assess-speaking/internal/rubric"
)

// PreviewRunes is the transcript length kept in reports.
const PreviewRunes = 400

// Meta describes how an assessment was produced.
type Meta struct {
	Timestamp  time.Time `json:"timestamp"`
	Audio      string    `json:"audio"`
	Whisper    string    `json:"whisper"`
	LLM        string    `json:"llm"`
	Label      string    `json:"label,omitempty"`
	Notes      string    `json:"notes,omitempty"`
	TargetCEFR string    `json:"target_cefr,omitempty"`
	PromptID   string    `json:"prompt_id,omitempty"`
}

// Report is the result of one assessment.
type Report struct {
	Meta              Meta                    `json:"meta"`
	Metrics           model.SpeakingMetrics   `json:"metrics"`
	Pauses            []model.SilenceInterval `json:"pauses,omitempty"`
	TranscriptPreview string                  `json:"transcript_preview"`
	LLMRubric         map[string]any          `json:"llm_rubric,omitempty"`
	LLMRaw            string                  `json:"llm_raw,omitempty"`
	GradingError      *rubric.GradingError    `json:"grading_error,omitempty"`
	Baseline          *baseline.Result        `json:"baseline_comparison,omitempty"`

	Rubric *rubric.Rubric `json:"-"`
}

// Preview returns at most PreviewRunes runes of the transcript.
func Preview(text string) string {
	r := []rune(strings.TrimSpace(text))
	if len(r) <= PreviewRunes {
		return string(r)
	}
	return string(r[:PreviewRunes])
}

// Overall returns the examiner's overall score, if any.
func (r Report) Overall() *float64 {
	if r.Rubric == nil {
		return nil
	}
	return r.Rubric.Overall
}

// Checks flattens the baseline comparison in display order.
func (r Report) Checks() []model.TargetCheck {
	if r.Baseline == nil {
		return nil
	}
	out := make([]model.TargetCheck, 0, len(r.Baseline.Targets))
	for _, metric := range baseline.MetricOrder {
		c, ok := r.Baseline.Targets[metric]
		if !ok {
			continue
		}
		out = append(out, model.TargetCheck{Metric: metric, Expected: c.Expected, Actual: c.Actual, OK: c.OK})
	}
	return out
}

// Record converts the report into a history row.
func (r Report) Record(reportPath string) model.AssessmentRecord {
	rec := model.AssessmentRecord{
		CreatedAt:  r.Meta.Timestamp,
		Label:      r.Meta.Label,
		Audio:      r.Meta.Audio,
		Whisper:    r.Meta.Whisper,
		LLM:        r.Meta.LLM,
		Notes:      r.Meta.Notes,
		TargetCEFR: r.Meta.TargetCEFR,
		Metrics:    r.Metrics,
		Overall:    r.Overall(),
		Targets:    r.Checks(),
		ReportPath: reportPath,
	}
	if r.Baseline != nil {
		passed := r.Baseline.Passed
		rec.BaselinePassed = &passed
	}
	return rec
}

// WriteJSON writes the report indented, without escaping non-ASCII text.
func WriteJSON(w io.Writer, r Report) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// FileName is <timestamp>_<label>.json.
func FileName(r Report) string {
	label := unsafeName.ReplaceAllString(strings.TrimSpace(r.Meta.Label), "-")
	label = strings.Trim(label, "-")
	if label == "" {
		label = "assessment"
	}
	return fmt.Sprintf("%s_%s.json", r.Meta.Timestamp.Format("20060102T150405"), label)
}

// Save writes the report to dir/reports and returns the file path.
func Save(dir string, r Report) (string, error) {
	reportsDir := filepath.Join(dir, "reports")
	if err := os.MkdirAll(reportsDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create reports dir: %w", err)
	}
	path := filepath.Join(reportsDir, FileName(r))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create report: %w", err)
	}
	if err := WriteJSON(f, r); err != nil {
		if cerr := f.Close(); cerr != nil {
			_ = cerr
		}
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return path, nil
}
