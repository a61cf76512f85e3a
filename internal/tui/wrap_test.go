package tui

import (
	"strings"
	"testing"

	"github.com/mattn/go-runewidth"
)

func TestWrapTextBreaksOnSpaces(t *testing.T) {
	got := wrapText("parla della tua città preferita", 12)
	want := "parla della\ntua città\npreferita"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestWrapTextKeepsLinesWithinWidth(t *testing.T) {
	text := "Descrivi un viaggio che hai fatto e spiega perché è stato importante per te"
	for _, width := range []int{8, 15, 30} {
		for _, line := range strings.Split(wrapText(text, width), "\n") {
			if runewidth.StringWidth(line) > width {
				t.Fatalf("line %q wider than %d", line, width)
			}
		}
	}
}

func TestWrapTextSplitsLongWords(t *testing.T) {
	got := wrapText("precipitevolissimevolmente", 10)
	want := "precipitev\nolissimevo\nlmente"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestWrapTextWideRunes(t *testing.T) {
	got := wrapText("日本語 テスト", 6)
	if got != "日本語\nテスト" {
		t.Fatalf("unexpected wrap %q", got)
	}
}

func TestWrapTextKeepsParagraphs(t *testing.T) {
	got := wrapText("uno due\n\ntre", 20)
	if got != "uno due\n\ntre" {
		t.Fatalf("unexpected wrap %q", got)
	}
}

func TestWrapTextNoWidth(t *testing.T) {
	if got := wrapText("a b", 0); got != "a b" {
		t.Fatalf("expected input unchanged, got %q", got)
	}
}
