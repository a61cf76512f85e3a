package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Icosa2050/assess-speaking/internal/config"
	"github.com/Icosa2050/assess-speaking/internal/model"
	"github.com/Icosa2050/assess-speaking/internal/prompts"
	"github.com/Icosa2050/assess-speaking/internal/stats"
	"github.com/Icosa2050/assess-speaking/internal/store"
)

var (
	historyLabel      string
	historySince      string
	historyLast       int
	historyWindow     int
	historyWeakTop    int
	historyExportHTML string
)

var promptsPath string

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show assessment history",
		Args:  cobra.NoArgs,
		RunE:  runHistoryCmd,
	}
	cmd.Flags().StringVar(&historyLabel, "label", "", "label filter")
	cmd.Flags().StringVar(&historySince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&historyLast, "last", 0, "limit to last N assessments")
	cmd.Flags().IntVar(&historyWindow, "window", defaultCurveWindow, "moving average window and weak-target window")
	cmd.Flags().IntVar(&historyWeakTop, "weak-top", defaultWeakTop, "number of weak targets to show")
	cmd.Flags().StringVar(&historyExportHTML, "export-html", "", "write an HTML dashboard to this path")
	return cmd
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	var sinceTime *time.Time
	if historySince != "" {
		parsed, err := time.ParseInLocation("2006-01-02", historySince, time.Local)
		if err != nil {
			return fmt.Errorf("invalid --since value: %w", err)
		}
		sinceTime = &parsed
	}
	if historyLast < 0 || historyWindow < 0 || historyWeakTop < 0 {
		return fmt.Errorf("--last, --window and --weak-top must be >= 0")
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

	rep, err := stats.BuildReport(context.Background(), st, model.HistoryFilter{
		Label:       historyLabel,
		Since:       sinceTime,
		Last:        historyLast,
		CurveWindow: historyWindow,
	})
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(rep.Records) == 0 {
		_, err := fmt.Fprintln(out, "No assessments recorded yet.")
		return err
	}
	if err := stats.RenderSummary(out, rep.Summary); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(out); err != nil {
		return err
	}
	if err := stats.RenderHistoryTable(out, rep.Records, stats.TerminalWidth()); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(out); err != nil {
		return err
	}
	if err := stats.RenderTrend(out, rep.Records, historyWindow); err != nil {
		return err
	}
	if weak := stats.SelectWeakTargets(rep.TargetsWindow, historyWeakTop); len(weak) > 0 {
		if _, err := fmt.Fprintln(out); err != nil {
			return err
		}
		if err := stats.RenderWeakTargets(out, weak); err != nil {
			return err
		}
	}

	if historyExportHTML != "" {
		if err := exportHTML(historyExportHTML, rep); err != nil {
			return err
		}
		logErrf("Dashboard written to %s\n", historyExportHTML)
	}
	return nil
}

func exportHTML(path string, rep stats.Report) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	if err := stats.RenderHTML(f, rep.Records, rep.Summary, time.Now()); err != nil {
		return fmt.Errorf("failed to render dashboard: %w", err)
	}
	return nil
}

func newPromptsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prompts",
		Short: "List the prompt catalog",
		Args:  cobra.NoArgs,
		RunE:  runPromptsCmd,
	}
	cmd.Flags().StringVar(&promptsPath, "prompts", config.DefaultPromptsPath(), "prompt catalog (YAML or JSON)")
	return cmd
}

func runPromptsCmd(cmd *cobra.Command, _ []string) error {
	s, err := loadSettings()
	if err != nil {
		return err
	}
	applyStringConfig(cmd, "prompts", &promptsPath, s.file.Trainer.Prompts)
	catalog, err := prompts.Load(promptsPath)
	if err != nil {
		return fmt.Errorf("failed to load prompts: %w", err)
	}
	if len(catalog) == 0 {
		logErrf("No prompts found at %s\n", promptsPath)
		return nil
	}
	out := cmd.OutOrStdout()
	for _, p := range catalog {
		audioNote := "no audio"
		if p.AudioPath != "" {
			audioNote = fmt.Sprintf("audio, %d plays", p.MaxPlaybacks)
		}
		if _, err := fmt.Fprintf(out, "%s\t%s\t%s\t%ds\t%s\n", p.ID, p.CEFRTarget, p.Title, p.ResponseSeconds, audioNote); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}
