package stats

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/Icosa2050/assess-speaking/internal/model"
)

const placeholder = "–"

// RenderHistoryTable prints one row per assessment. The audio column is
// shortened when the table would be wider than width.
func RenderHistoryTable(w io.Writer, records []model.AssessmentRecord, width int) error {
	if len(records) == 0 {
		return nil
	}
	headers := []string{"#", "Date", "Label", "Audio", "WPM", "Overall", "Baseline", "Whisper", "LLM"}
	rows := make([][]string, 0, len(records))
	for i, r := range records {
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
			orPlaceholder(r.Label),
			r.Audio,
			fmt.Sprintf("%.1f", r.Metrics.WPM),
			formatOptional(r.Overall, "%.2f"),
			baselineCell(r),
			r.Whisper,
			r.LLM,
		})
	}
	rightAlign := map[int]bool{0: true, 4: true, 5: true}
	lines := formatTable(headers, fitColumn(headers, rows, 3, width), rightAlign)
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

func baselineCell(r model.AssessmentRecord) string {
	if r.BaselinePassed == nil {
		return placeholder
	}
	verdict := "missed"
	if *r.BaselinePassed {
		verdict = "passed"
	}
	if r.TargetCEFR == "" {
		return verdict
	}
	return r.TargetCEFR + " " + verdict
}

func orPlaceholder(s string) string {
	if strings.TrimSpace(s) == "" {
		return placeholder
	}
	return s
}

func formatOptional(v *float64, format string) string {
	if v == nil {
		return placeholder
	}
	return fmt.Sprintf(format, *v)
}

// fitColumn truncates column col so the rendered table fits in width.
func fitColumn(headers []string, rows [][]string, col, width int) [][]string {
	if width <= 0 {
		return rows
	}
	total := 0
	for _, cw := range columnWidths(headers, rows) {
		total += cw + 1
	}
	over := total - 1 - width
	if over <= 0 {
		return rows
	}
	colWidth := columnWidths(headers, rows)[col]
	limit := max(colWidth-over, runewidth.StringWidth(headers[col]), 8)
	out := make([][]string, len(rows))
	for i, row := range rows {
		out[i] = append([]string(nil), row...)
		if col < len(row) && runewidth.StringWidth(row[col]) > limit {
			out[i][col] = runewidth.TruncateLeft(row[col], runewidth.StringWidth(row[col])-limit+1, "…")
		}
	}
	return out
}

func columnWidths(headers []string, rows [][]string) []int {
	colCount := len(headers)
	for _, row := range rows {
		colCount = max(colCount, len(row))
	}
	widths := make([]int, colCount)
	for i, header := range headers {
		widths[i] = displayWidth(header)
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], displayWidth(cell))
		}
	}
	return widths
}

func formatTable(headers []string, rows [][]string, rightAlignCols map[int]bool) []string {
	widths := columnWidths(headers, rows)
	if len(widths) == 0 {
		return nil
	}
	lines := make([]string, 0, len(rows)+1)
	if len(headers) > 0 {
		lines = append(lines, formatRow(headers, widths, rightAlignCols))
	}
	for _, row := range rows {
		lines = append(lines, formatRow(row, widths, rightAlignCols))
	}
	return lines
}

func formatRow(row []string, widths []int, rightAlignCols map[int]bool) string {
	var b strings.Builder
	for i, width := range widths {
		cell := ""
		if i < len(row) {
			cell = row[i]
		}
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(padCell(cell, width, rightAlignCols[i]))
	}
	return strings.TrimRight(b.String(), " ")
}

func padCell(value string, width int, rightAlign bool) string {
	padding := width - displayWidth(value)
	if padding <= 0 {
		return value
	}
	if rightAlign {
		return strings.Repeat(" ", padding) + value
	}
	return value + strings.Repeat(" ", padding)
}

func displayWidth(value string) int {
	return runewidth.StringWidth(value)
}
