package main

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/kailas-cloud/semsearch/internal/logger"
	"github.com/kailas-cloud/semsearch/internal/tui"
)

var queryTimeout time.Duration

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Browse and search the corpus in the terminal",
	Long: `Opens an interactive terminal UI: a preview of the corpus, a query box,
a space selector (tab) and the top results with a simulated word contribution chart.
Logs go to logging.tui_file while the UI owns the terminal.`,
	RunE: runTUI,
}

func init() {
	tuiCmd.Flags().DurationVar(&queryTimeout, "query-timeout", 5*time.Minute,
		"maximum time for one search, including a first-use model load")
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(_ *cobra.Command, _ []string) error {
	cfg := globalConfig
	log, err := logger.NewLogger(globalEnv,
		logger.WithLevel(cfg.Logging.Level),
		logger.WithOutputPaths(cfg.Logging.TUIFile),
	)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	ctx := context.Background()
	a := buildApp(ctx, cfg, log)
	defer a.close()
	go a.warmup(ctx)

	model := tui.New(a.search, tui.Options{
		K:            cfg.Search.DefaultK,
		PreviewRows:  cfg.Search.PreviewLimit,
		QueryTimeout: queryTimeout,
	})
	if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
