package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"covimpact/internal/analyzer"
	"covimpact/internal/callgraph"
	"covimpact/internal/output"
	"covimpact/internal/watch"
)

var debounceFlag time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-run the analysis whenever source files change",
	Long: `Watch the source tree and re-run the full analysis after each change,
printing the updated ranking. Stops on Ctrl-C.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&languageFlag, "language", "", "Source language: python, go, or javascript")
	watchCmd.Flags().StringVar(&coverageFlag, "coverage", "", "Coverage report (JSON or YAML)")
	watchCmd.Flags().StringVar(&modelFlag, "model", "", "Model artifact file or models directory")
	watchCmd.Flags().IntVarP(&topFlag, "top", "n", 10, "Show only the top N entries")
	watchCmd.Flags().DurationVar(&debounceFlag, "debounce", 500*time.Millisecond, "Quiet window before re-running")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyAnalyzeFlags(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := newLogger(cfg)

	if !callgraph.IsAvailable() {
		return fmt.Errorf("this build has no parser support (CGO disabled)")
	}

	opts, err := analyzerOptions(cfg)
	if err != nil {
		return err
	}

	runOnce := func() {
		result, err := analyzer.New(opts, logger).Run(cmd.Context())
		if err != nil {
			logger.Error("analysis failed", map[string]interface{}{"error": err.Error()})
			return
		}
		if err := output.Render(os.Stdout, result, output.FormatHuman, topFlag); err != nil {
			logger.Error("render failed", map[string]interface{}{"error": err.Error()})
		}
	}

	runOnce()

	w, err := watch.New(watch.Config{
		Root:     cfg.Root,
		Language: opts.Language,
		Debounce: debounceFlag,
	}, logger)
	if err != nil {
		return err
	}
	defer w.Close()

	logger.Info("watching for changes", map[string]interface{}{"root": cfg.Root})
	return w.Run(cmd.Context(), runOnce)
}
