// Package main provides the CLI entrypoint for assess-speaking.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Icosa2050/assess-speaking/internal/assess"
	"github.com/Icosa2050/assess-speaking/internal/asr"
	"github.com/Icosa2050/assess-speaking/internal/config"
	"github.com/Icosa2050/assess-speaking/internal/grader"
	"github.com/Icosa2050/assess-speaking/internal/metrics"
	"github.com/Icosa2050/assess-speaking/internal/model"
	"github.com/Icosa2050/assess-speaking/internal/pause"
	"github.com/Icosa2050/assess-speaking/internal/report"
	"github.com/Icosa2050/assess-speaking/internal/store"
	"github.com/Icosa2050/assess-speaking/internal/wordlist"
)

const (
	defaultWhisper     = "large-v3"
	defaultLLM         = "llama3.1"
	defaultLanguage    = "it"
	defaultCurveWindow = 5
	defaultWeakWindow  = 10
	defaultWeakTop     = 3
)

var (
	assessWhisper    string
	assessLLM        string
	assessListOllama bool
	assessSelfTest   bool
	assessLogDir     string
	assessLabel      string
	assessNotes      string
	assessTargetCEFR string
	assessTranscript string
	assessNoGrade    bool
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "assess-speaking [audio]",
		Short:         "Assess an Italian speaking sample",
		SilenceUsage:  true,
		SilenceErrors: false,
		Args:          cobra.MaximumNArgs(1),
		RunE:          runAssessCmd,
	}

	rootCmd.Flags().StringVar(&assessWhisper, "whisper", defaultWhisper, "speech recognition model")
	rootCmd.Flags().StringVar(&assessLLM, "llm", defaultLLM, "Ollama model used for grading")
	rootCmd.Flags().BoolVar(&assessListOllama, "list-ollama", false, "list local Ollama models and exit")
	rootCmd.Flags().BoolVar(&assessSelfTest, "selftest", false, "check that the grading model answers and exit")
	rootCmd.Flags().StringVar(&assessLogDir, "log-dir", config.DefaultLogDir(), "directory for JSON reports")
	rootCmd.Flags().StringVar(&assessLabel, "label", "", "label stored with the assessment")
	rootCmd.Flags().StringVar(&assessNotes, "notes", "", "free-form notes stored with the assessment")
	rootCmd.Flags().StringVar(&assessTargetCEFR, "target-cefr", "", "compare metrics with a CEFR baseline (A2-C2)")
	rootCmd.Flags().StringVar(&assessTranscript, "transcript", "", "read words from a transcript JSON file instead of running ASR")
	rootCmd.Flags().BoolVar(&assessNoGrade, "no-grade", false, "skip the LLM rubric")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newTrainCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newPromptsCmd())

	return rootCmd
}

// settings holds the resolved file and environment configuration.
type settings struct {
	file config.FileConfig
}

func loadSettings() (settings, error) {
	if err := config.LoadEnv(); err != nil {
		logErrf("failed to load .env: %v\n", err)
	}
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return settings{}, fmt.Errorf("failed to load config: %w", err)
	}
	fileCfg.ApplyEnv()
	return settings{file: fileCfg}, nil
}

func (s settings) graderClient(llm string) *grader.Client {
	return grader.NewClient(stringOr(s.file.Grader.Host, grader.DefaultHost), llm)
}

func (s settings) transcriber(whisper, transcriptPath string) asr.Transcriber {
	if transcriptPath != "" {
		return asr.FileTranscriber{Path: transcriptPath}
	}
	client := asr.NewOpenAIClient(
		stringOr(s.file.ASR.URL, asr.DefaultURL),
		stringOr(s.file.ASR.APIKey, ""),
		whisper,
	)
	client.Language = stringOr(s.file.ASR.Language, defaultLanguage)
	return client
}

func (s settings) lexicon() (metrics.Lexicon, error) {
	var fillers, cohesion []string
	if path := stringOr(s.file.Assess.FillersFile, ""); path != "" {
		words, err := wordlist.LoadWords(path)
		if err != nil {
			return metrics.Lexicon{}, fmt.Errorf("failed to load fillers: %w", err)
		}
		fillers = words
	}
	if path := stringOr(s.file.Assess.CohesionFile, ""); path != "" {
		words, err := wordlist.LoadWords(path)
		if err != nil {
			return metrics.Lexicon{}, fmt.Errorf("failed to load cohesion markers: %w", err)
		}
		cohesion = words
	}
	return metrics.Italian().Extend(fillers, cohesion), nil
}

func (s settings) pauseParams() pause.Params {
	p := pause.DefaultParams()
	if v := s.file.Pauses.ThresholdOffsetDB; v != nil {
		p.ThresholdOffsetDB = *v
	}
	if v := s.file.Pauses.MinPause; v != nil {
		p.MinPause = *v
	}
	return p
}

func (s settings) pipeline(whisper, llm, transcriptPath string, st *store.Store) (*assess.Pipeline, error) {
	lex, err := s.lexicon()
	if err != nil {
		return nil, err
	}
	p := &assess.Pipeline{
		Transcriber: s.transcriber(whisper, transcriptPath),
		Grader:      s.graderClient(llm),
		Lexicon:     lex,
		Pauses:      s.pauseParams(),
	}
	if st != nil {
		p.History = st
	}
	return p, nil
}

func runAssessCmd(cmd *cobra.Command, args []string) error {
	s, err := loadSettings()
	if err != nil {
		return err
	}
	applyStringConfig(cmd, "llm", &assessLLM, s.file.Grader.Model)
	applyStringConfig(cmd, "whisper", &assessWhisper, s.file.ASR.Model)
	applyStringConfig(cmd, "log-dir", &assessLogDir, s.file.Assess.LogDir)
	applyStringConfig(cmd, "label", &assessLabel, s.file.Assess.Label)
	applyStringConfig(cmd, "target-cefr", &assessTargetCEFR, s.file.Assess.TargetCEFR)
	applyBoolConfig(cmd, "no-grade", &assessNoGrade, s.file.Assess.NoGrade)

	ctx := context.Background()
	out := cmd.OutOrStdout()

	if assessListOllama {
		names, err := s.graderClient(assessLLM).ListModels(ctx)
		if err != nil {
			return fmt.Errorf("failed to list Ollama models: %w", err)
		}
		for _, name := range names {
			if _, err := fmt.Fprintln(out, name); err != nil {
				return fmt.Errorf("failed to write output: %w", err)
			}
		}
		return nil
	}
	if assessSelfTest {
		answer, err := s.graderClient(assessLLM).SelfTest(ctx)
		if err != nil {
			return fmt.Errorf("self-test failed: %w", err)
		}
		_, err = fmt.Fprintf(out, "%s: %s\n", assessLLM, answer)
		return err
	}
	if len(args) == 0 {
		return errors.New("an audio file is required")
	}

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	p, err := s.pipeline(assessWhisper, assessLLM, assessTranscript, st)
	if err != nil {
		return err
	}
	res, err := p.Run(ctx, assess.Request{
		Audio: args[0],
		Config: model.AssessConfig{
			Whisper:    assessWhisper,
			LLM:        assessLLM,
			LogDir:     assessLogDir,
			Label:      assessLabel,
			Notes:      assessNotes,
			TargetCEFR: assessTargetCEFR,
			NoGrade:    assessNoGrade,
		},
	})
	if err != nil {
		return err
	}
	if err := report.RenderText(out, res.Report); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if res.ReportPath != "" {
		logErrf("Report saved to %s\n", res.ReportPath)
	}
	return nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func defaultConfigTemplate() string {
	p := pause.DefaultParams()
	return fmt.Sprintf(`# assess-speaking configuration
# Uncomment a value to enable it. CLI flags override config values;
# OLLAMA_HOST, ASSESS_ASR_URL and ASSESS_ASR_API_KEY override the endpoints.

[assess]
# log-dir = %q
# target-cefr = "B1"       # Baseline level, A2 to C2
# label = ""
# no-grade = false
# fillers-file = ""        # Extra fillers, one per line
# cohesion-file = ""       # Extra cohesion markers, one per line

[grader]
# host = %q
# model = %q

[asr]
# url = %q
# api-key = ""
# model = %q
# language = %q

[pauses]
# threshold-offset-db = %.1f   # Silence is this far below the mean level
# min-pause = %.2f             # Shortest pause counted, seconds

[trainer]
# prompts = %q
# focus-weak = false       # Favour levels whose targets were missed recently
# weak-window = %d
`,
		config.DefaultLogDir(),
		grader.DefaultHost,
		defaultLLM,
		asr.DefaultURL,
		defaultWhisper,
		defaultLanguage,
		p.ThresholdOffsetDB,
		p.MinPause,
		config.DefaultPromptsPath(),
		defaultWeakWindow,
	)
}

func stringOr(v *string, fallback string) string {
	if v == nil || strings.TrimSpace(*v) == "" {
		return fallback
	}
	return *v
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
