package wordlist

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadWords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fillers.txt")
	content := "# fillers\nEh\n\n  per   quanto  riguarda \nmmm\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write list: %v", err)
	}
	words, err := LoadWords(path)
	if err != nil {
		t.Fatalf("load words: %v", err)
	}
	want := []string{"eh", "per quanto riguarda", "mmm"}
	if len(words) != len(want) {
		t.Fatalf("expected %d words, got %v", len(want), words)
	}
	for i := range want {
		if words[i] != want[i] {
			t.Fatalf("word %d = %q, want %q", i, words[i], want[i])
		}
	}
}

func TestLoadWordsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.txt")
	if err := os.WriteFile(path, []byte("# nothing\n\n"), 0o644); err != nil {
		t.Fatalf("write list: %v", err)
	}
	if _, err := LoadWords(path); err == nil {
		t.Fatalf("expected error for empty list")
	}
}
