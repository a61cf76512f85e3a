package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Icosa2050/assess-speaking/internal/baseline"
	"github.com/Icosa2050/assess-speaking/internal/rubric"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
)

// RenderText prints a human-readable summary of the report.
func RenderText(w io.Writer, r Report) error {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Speaking assessment"))
	b.WriteString("\n\n")

	m := r.Metrics
	rows := [][2]string{
		{"Duration", fmt.Sprintf("%.2f s", m.DurationSec)},
		{"Speaking time", fmt.Sprintf("%.2f s", m.SpeakingTimeSec)},
		{"Pauses", fmt.Sprintf("%d (%.2f s)", m.PauseCount, m.PauseTotalSec)},
		{"Words", fmt.Sprintf("%d", m.WordCount)},
		{"WPM", fmt.Sprintf("%.1f", m.WPM)},
		{"Fillers", fmt.Sprintf("%d", m.Fillers)},
		{"Cohesion markers", fmt.Sprintf("%d", m.CohesionMarkers)},
		{"Complexity (heuristic)", fmt.Sprintf("%d", m.ComplexityIndex)},
	}
	for _, row := range rows {
		fmt.Fprintf(&b, "%s %s\n", labelStyle.Render(fmt.Sprintf("%-23s", row[0])), row[1])
	}

	if r.Baseline != nil {
		b.WriteString("\n")
		b.WriteString(renderBaseline(*r.Baseline))
	}

	b.WriteString("\n")
	switch {
	case r.GradingError != nil:
		b.WriteString(errStyle.Render("Grading failed: " + r.GradingError.Error()))
		b.WriteString("\n")
	case r.Rubric != nil:
		b.WriteString(renderRubric(*r.Rubric))
	default:
		b.WriteString(labelStyle.Render("Not graded."))
		b.WriteString("\n")
	}

	if r.TranscriptPreview != "" {
		b.WriteString("\n")
		b.WriteString(labelStyle.Render("Transcript"))
		b.WriteString("\n")
		b.WriteString(r.TranscriptPreview)
		b.WriteString("\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func renderBaseline(res baseline.Result) string {
	var b strings.Builder
	verdict := okStyle.Render("passed")
	if !res.Passed {
		verdict = warnStyle.Render("missed")
	}
	fmt.Fprintf(&b, "Baseline %s: %s\n", res.Level, verdict)
	for _, metric := range baseline.MetricOrder {
		c, ok := res.Targets[metric]
		if !ok {
			continue
		}
		mark := okStyle.Render("ok")
		if !c.OK {
			mark = warnStyle.Render("!!")
		}
		fmt.Fprintf(&b, "  %s %-17s %-6s actual %g\n", mark, metric, c.Expected, c.Actual)
	}
	if res.Comment != "" {
		b.WriteString("  ")
		b.WriteString(labelStyle.Render(res.Comment))
		b.WriteString("\n")
	}
	return b.String()
}

func renderRubric(r rubric.Rubric) string {
	var b strings.Builder
	b.WriteString("Rubric\n")
	scores := []struct {
		name    string
		score   *float64
		comment string
	}{
		{"Fluency", r.Fluency, r.CommentsFluency},
		{"Cohesion", r.Cohesion, r.CommentsCohesion},
		{"Accuracy", r.Accuracy, r.CommentsAccuracy},
		{"Range", r.Range, r.CommentsRange},
		{"Overall", r.Overall, r.OverallComment},
	}
	for _, s := range scores {
		value := "–"
		if s.score != nil {
			value = fmt.Sprintf("%.1f", *s.score)
		}
		fmt.Fprintf(&b, "  %-9s %s", s.name, value)
		if s.comment != "" {
			fmt.Fprintf(&b, "  %s", labelStyle.Render(s.comment))
		}
		b.WriteString("\n")
	}
	return b.String()
}
