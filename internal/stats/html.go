package stats

import (
	"html/template"
	"io"
	"time"

	"github.com/Icosa2050/assess-speaking/internal/model"
)

var htmlTemplate = template.Must(template.New("history").Funcs(template.FuncMap{
	"inc":      func(i int) int { return i + 1 },
	"date":     func(t time.Time) string { return t.Local().Format("2006-01-02 15:04") },
	"wpm":      func(v float64) string { return formatOptional(&v, "%.1f") },
	"overall":  func(v *float64) string { return formatOptional(v, "%.2f") },
	"label":    orPlaceholder,
	"baseline": baselineCell,
	"oneDec":   func(v *float64) string { return formatOptional(v, "%.1f") },
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8" />
<title>Assess Speaking – History</title>
<style>
 body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', sans-serif; margin: 2rem; background: #f8f9fb; color: #222; }
 .meta { margin-bottom: 1.5rem; font-size: 0.95rem; color: #444; }
 table { border-collapse: collapse; width: 100%; background: #fff; box-shadow: 0 1px 3px rgba(0,0,0,0.1); }
 th, td { padding: 0.6rem 0.8rem; border-bottom: 1px solid #e6e8eb; text-align: left; }
 th { background: #eef1f7; font-weight: 600; }
 .footer { margin-top: 2rem; font-size: 0.85rem; color: #666; }
</style>
</head>
<body>
<h1>Assess Speaking – History</h1>
<div class="meta">{{if .Summary.Count}}<strong>Runs:</strong> {{.Summary.Count}}{{if .Summary.AvgWPM}} &nbsp;|&nbsp; <strong>Avg WPM:</strong> {{oneDec .Summary.AvgWPM}}{{end}}{{if .Summary.AvgOverall}} &nbsp;|&nbsp; <strong>Avg overall:</strong> {{overall .Summary.AvgOverall}}{{end}}{{if .Summary.BestOverall}} &nbsp;|&nbsp; <strong>Best overall:</strong> {{overall .Summary.BestOverall}}{{end}}{{else}}No data.{{end}}</div>
<table>
<thead>
<tr><th>#</th><th>Date</th><th>Label</th><th>Audio</th><th>WPM</th><th>Overall</th><th>Baseline</th><th>Whisper</th><th>LLM</th><th>Report</th></tr>
</thead>
<tbody>
{{range $i, $r := .Records}}<tr><td>{{inc $i}}</td><td>{{date $r.CreatedAt}}</td><td>{{label $r.Label}}</td><td>{{$r.Audio}}</td><td>{{wpm $r.Metrics.WPM}}</td><td>{{overall $r.Overall}}</td><td>{{baseline $r}}</td><td>{{$r.Whisper}}</td><td>{{$r.LLM}}</td><td>{{if $r.ReportPath}}<a href="{{$r.ReportPath}}">JSON</a>{{end}}</td></tr>
{{end}}</tbody>
</table>
<div class="footer">Generated: {{date .Generated}}</div>
</body>
</html>
`))

// RenderHTML writes a static history page.
func RenderHTML(w io.Writer, records []model.AssessmentRecord, summary Summary, generated time.Time) error {
	return htmlTemplate.Execute(w, struct {
		Records   []model.AssessmentRecord
		Summary   Summary
		Generated time.Time
	}{records, summary, generated})
}
