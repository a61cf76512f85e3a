package main

import (
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/Icosa2050/assess-speaking/internal/asr"
	"github.com/Icosa2050/assess-speaking/internal/config"
)

func TestApplyConfigRespectsChangedFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "x"}
	var llm, whisper string
	cmd.Flags().StringVar(&llm, "llm", defaultLLM, "")
	cmd.Flags().StringVar(&whisper, "whisper", defaultWhisper, "")
	if err := cmd.Flags().Set("llm", "mistral"); err != nil {
		t.Fatalf("set flag: %v", err)
	}
	fromFile := "qwen2.5"
	fileWhisper := "medium"
	applyStringConfig(cmd, "llm", &llm, &fromFile)
	applyStringConfig(cmd, "whisper", &whisper, &fileWhisper)
	if llm != "mistral" {
		t.Fatalf("explicit flag should win, got %s", llm)
	}
	if whisper != "medium" {
		t.Fatalf("config should fill unset flag, got %s", whisper)
	}
	applyStringConfig(cmd, "whisper", &whisper, nil)
	if whisper != "medium" {
		t.Fatalf("nil config value should be ignored")
	}
}

func TestDefaultConfigTemplateDecodes(t *testing.T) {
	var cfg config.FileConfig
	if _, err := toml.Decode(defaultConfigTemplate(), &cfg); err != nil {
		t.Fatalf("template is not valid TOML: %v", err)
	}
	if cfg.Grader.Model != nil || cfg.Pauses.MinPause != nil {
		t.Fatalf("template values should all be commented out")
	}
}

func TestSettingsTranscriberSelection(t *testing.T) {
	url := "http://asr.local:9000"
	s := settings{file: config.FileConfig{ASR: config.ASRConfig{URL: &url}}}
	if _, ok := s.transcriber("large-v3", "words.json").(asr.FileTranscriber); !ok {
		t.Fatalf("expected file transcriber when a transcript is given")
	}
	client, ok := s.transcriber("large-v3", "").(*asr.OpenAIClient)
	if !ok {
		t.Fatalf("expected HTTP transcriber")
	}
	if client.BaseURL != url || client.Model != "large-v3" || client.Language != defaultLanguage {
		t.Fatalf("unexpected client %+v", client)
	}
}

func TestSettingsPauseParams(t *testing.T) {
	offset := 6.0
	s := settings{file: config.FileConfig{Pauses: config.PauseConfig{ThresholdOffsetDB: &offset}}}
	p := s.pauseParams()
	if p.ThresholdOffsetDB != 6 || p.MinPause != 0.3 {
		t.Fatalf("unexpected params %+v", p)
	}
}

func TestRootCommandWiring(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"train", "history", "prompts", "config"} {
		if c, _, err := root.Find([]string{name}); err != nil || c.Name() != name {
			t.Fatalf("missing subcommand %s", name)
		}
	}
	for _, flag := range []string{"whisper", "llm", "list-ollama", "selftest", "log-dir", "label", "notes", "target-cefr", "transcript", "no-grade"} {
		if root.Flags().Lookup(flag) == nil {
			t.Fatalf("missing flag --%s", flag)
		}
	}
}
