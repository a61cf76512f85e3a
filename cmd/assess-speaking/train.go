package main

import (
	"context"
	"fmt"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/Icosa2050/assess-speaking/internal/audio"
	"github.com/Icosa2050/assess-speaking/internal/config"
	"github.com/Icosa2050/assess-speaking/internal/model"
	"github.com/Icosa2050/assess-speaking/internal/picker"
	"github.com/Icosa2050/assess-speaking/internal/prompts"
	"github.com/Icosa2050/assess-speaking/internal/store"
	"github.com/Icosa2050/assess-speaking/internal/tui"
)

var (
	trainPrompts    string
	trainWhisper    string
	trainLLM        string
	trainLogDir     string
	trainNoGrade    bool
	trainFocusWeak  bool
	trainWeakWindow int
)

func newTrainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Timed prompt trainer",
		Args:  cobra.NoArgs,
		RunE:  runTrainCmd,
	}
	cmd.Flags().StringVar(&trainPrompts, "prompts", config.DefaultPromptsPath(), "prompt catalog (YAML or JSON)")
	cmd.Flags().StringVar(&trainWhisper, "whisper", defaultWhisper, "speech recognition model")
	cmd.Flags().StringVar(&trainLLM, "llm", defaultLLM, "Ollama model used for grading")
	cmd.Flags().StringVar(&trainLogDir, "log-dir", config.DefaultLogDir(), "directory for responses and reports")
	cmd.Flags().BoolVar(&trainNoGrade, "no-grade", false, "skip the LLM rubric")
	cmd.Flags().BoolVar(&trainFocusWeak, "focus-weak", false, "favour levels whose targets were missed recently")
	cmd.Flags().IntVar(&trainWeakWindow, "weak-window", defaultWeakWindow, "number of recent assessments per level to weigh")
	return cmd
}

func runTrainCmd(cmd *cobra.Command, _ []string) error {
	s, err := loadSettings()
	if err != nil {
		return err
	}
	applyStringConfig(cmd, "prompts", &trainPrompts, s.file.Trainer.Prompts)
	applyStringConfig(cmd, "whisper", &trainWhisper, s.file.ASR.Model)
	applyStringConfig(cmd, "llm", &trainLLM, s.file.Grader.Model)
	applyStringConfig(cmd, "log-dir", &trainLogDir, s.file.Assess.LogDir)
	applyBoolConfig(cmd, "no-grade", &trainNoGrade, s.file.Assess.NoGrade)
	applyBoolConfig(cmd, "focus-weak", &trainFocusWeak, s.file.Trainer.FocusWeak)
	applyIntConfig(cmd, "weak-window", &trainWeakWindow, s.file.Trainer.WeakWindow)
	if trainWeakWindow < 0 {
		return fmt.Errorf("--weak-window must be >= 0")
	}

	catalog, err := prompts.Load(trainPrompts)
	if err != nil {
		return fmt.Errorf("failed to load prompts: %w", err)
	}
	if len(catalog) == 0 {
		return fmt.Errorf("no prompts found at %s", trainPrompts)
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

	var weakness map[string]float64
	if trainFocusWeak {
		weakness, err = picker.LevelWeakness(context.Background(), st, catalog, trainWeakWindow)
		if err != nil {
			logErrf("failed to load weak levels: %v\n", err)
		} else if !anyWeak(weakness) {
			logErrln("no missed targets recorded yet; picking prompts uniformly")
		}
	}

	p, err := s.pipeline(trainWhisper, trainLLM, "", st)
	if err != nil {
		return err
	}
	m := tui.NewModel(tui.Options{
		Prompts:      catalog,
		ResponsesDir: filepath.Join(trainLogDir, "prompt_responses"),
		Assess: model.AssessConfig{
			Whisper: trainWhisper,
			LLM:     trainLLM,
			LogDir:  trainLogDir,
			NoGrade: trainNoGrade,
		},
		Assessor: p,
		Capturer: audio.DefaultRecorder(audio.DefaultFormat()),
		Player:   audio.DefaultPlayer(),
		Log:      st,
		Weakness: weakness,
	})
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

func anyWeak(weakness map[string]float64) bool {
	for _, v := range weakness {
		if v > 0 {
			return true
		}
	}
	return false
}
