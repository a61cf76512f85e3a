// Package tui provides the Bubble Tea prompt trainer.
package tui

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// wrapText breaks text on spaces so no line is wider than width cells.
// Words longer than a line are split. Existing newlines are kept.
func wrapText(text string, width int) string {
	if width <= 0 {
		return text
	}
	paragraphs := strings.Split(text, "\n")
	out := make([]string, 0, len(paragraphs))
	for _, p := range paragraphs {
		out = append(out, wrapParagraph(p, width)...)
	}
	return strings.Join(out, "\n")
}

func wrapParagraph(text string, width int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{""}
	}
	var lines []string
	var line strings.Builder
	lineWidth := 0
	flush := func() {
		lines = append(lines, line.String())
		line.Reset()
		lineWidth = 0
	}
	for _, word := range words {
		for _, piece := range splitWord(word, width) {
			w := runewidth.StringWidth(piece)
			if lineWidth > 0 && lineWidth+1+w > width {
				flush()
			}
			if lineWidth > 0 {
				line.WriteByte(' ')
				lineWidth++
			}
			line.WriteString(piece)
			lineWidth += w
		}
	}
	if lineWidth > 0 {
		flush()
	}
	return lines
}

// splitWord cuts a word into pieces of at most width cells.
func splitWord(word string, width int) []string {
	if runewidth.StringWidth(word) <= width {
		return []string{word}
	}
	var pieces []string
	var cur strings.Builder
	curWidth := 0
	for _, r := range word {
		rw := runewidth.RuneWidth(r)
		if curWidth+rw > width && curWidth > 0 {
			pieces = append(pieces, cur.String())
			cur.Reset()
			curWidth = 0
		}
		cur.WriteRune(r)
		curWidth += rw
	}
	if curWidth > 0 {
		pieces = append(pieces, cur.String())
	}
	return pieces
}
