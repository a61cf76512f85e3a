// Package assess runs one speaking assessment from audio file to report.
package assess

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Icosa2050/assess-speaking/internal/asr"
	"github.com/Icosa2050/assess-speaking/internal/audio"
	"github.com/Icosa2050/assess-speaking/internal/baseline"
	"github.com/Icosa2050/assess-speaking/internal/grader"
	"github.com/Icosa2050/assess-speaking/internal/metrics"
	"github.com/Icosa2050/assess-speaking/internal/model"
	"github.com/Icosa2050/assess-speaking/internal/pause"
	"github.com/Icosa2050/assess-speaking/internal/report"
	"github.com/Icosa2050/assess-speaking/internal/rubric"
)

// Grader scores a transcript. Failures should be *rubric.GradingError.
type Grader interface {
	Grade(ctx context.Context, transcript string, m model.SpeakingMetrics) (grader.Grading, error)
}

// History persists finished assessments.
type History interface {
	InsertAssessment(ctx context.Context, rec model.AssessmentRecord) (int64, error)
}

// Pipeline holds the collaborators of an assessment. Grader and History
// are optional.
type Pipeline struct {
	Transcriber asr.Transcriber
	Grader      Grader
	History     History
	Lexicon     metrics.Lexicon
	Pauses      pause.Params
	TempDir     string
	Now         func() time.Time
}

// Request describes one run.
type Request struct {
	Audio    string
	Config   model.AssessConfig
	PromptID string
}

// Result is the outcome of Run.
type Result struct {
	Report       report.Report
	ReportPath   string
	AssessmentID int64
}

// Run converts the audio, detects pauses, transcribes, computes metrics,
// compares them with the target level and asks the grader for a rubric.
// Grading failures end up in the report, not in the returned error.
func (p *Pipeline) Run(ctx context.Context, req Request) (Result, error) {
	if p.Transcriber == nil {
		return Result{}, errors.New("no transcriber configured")
	}
	wavPath, cleanup, err := audio.ConvertToWAV(ctx, req.Audio, p.TempDir)
	if err != nil {
		return Result{}, err
	}
	defer cleanup()

	contour, err := audio.IntensityFromWAV(wavPath)
	if err != nil {
		return Result{}, fmt.Errorf("failed to analyse audio: %w", err)
	}
	pauses := pause.Segment(contour, p.Pauses)

	transcript, err := p.Transcriber.Transcribe(ctx, wavPath)
	if err != nil {
		return Result{}, fmt.Errorf("failed to transcribe: %w", err)
	}

	lex := p.Lexicon
	if lex.Fillers == nil {
		lex = metrics.Italian()
	}
	m := metrics.ComputeWith(lex, transcript.Words, pauses, contour.Duration())
	text := transcriptText(transcript)

	cfg := req.Config
	rep := report.Report{
		Meta: report.Meta{
			Timestamp:  p.now(),
			Audio:      req.Audio,
			Whisper:    cfg.Whisper,
			LLM:        cfg.LLM,
			Label:      cfg.Label,
			Notes:      cfg.Notes,
			TargetCEFR: strings.ToUpper(strings.TrimSpace(cfg.TargetCEFR)),
			PromptID:   req.PromptID,
		},
		Metrics:           m,
		Pauses:            pauses,
		TranscriptPreview: report.Preview(text),
	}
	if res, ok := baseline.Evaluate(cfg.TargetCEFR, m); ok {
		rep.Baseline = &res
	}
	if !cfg.NoGrade && p.Grader != nil {
		p.grade(ctx, &rep, text, m)
	}

	out := Result{Report: rep}
	if cfg.LogDir != "" {
		path, err := report.Save(cfg.LogDir, rep)
		if err != nil {
			return out, err
		}
		out.ReportPath = path
	}
	if p.History != nil {
		id, err := p.History.InsertAssessment(ctx, rep.Record(out.ReportPath))
		if err != nil {
			return out, fmt.Errorf("failed to record assessment: %w", err)
		}
		out.AssessmentID = id
	}
	return out, nil
}

func (p *Pipeline) grade(ctx context.Context, rep *report.Report, text string, m model.SpeakingMetrics) {
	g, err := p.Grader.Grade(ctx, text, m)
	rep.LLMRaw = g.Raw
	if err != nil {
		var gerr *rubric.GradingError
		if !errors.As(err, &gerr) {
			gerr = &rubric.GradingError{Kind: rubric.KindUnavailable, Detail: err.Error()}
		}
		rep.GradingError = gerr
		return
	}
	r := g.Rubric
	rep.Rubric = &r
	rep.LLMRubric = r.Raw
}

func (p *Pipeline) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func transcriptText(t model.Transcript) string {
	if s := strings.TrimSpace(t.Text); s != "" {
		return s
	}
	parts := make([]string, 0, len(t.Words))
	for _, w := range t.Words {
		parts = append(parts, w.Text)
	}
	return strings.Join(parts, " ")
}
