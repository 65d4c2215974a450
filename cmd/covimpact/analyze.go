package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"covimpact/internal/analyzer"
	"covimpact/internal/callgraph"
	"covimpact/internal/config"
	"covimpact/internal/estimator"
	"covimpact/internal/history"
	"covimpact/internal/logging"
	"covimpact/internal/output"
)

var (
	languageFlag   string
	includeFlag    []string
	excludeFlag    []string
	coverageFlag   string
	modelFlag      string
	depthFlag      int
	workersFlag    int
	topFlag        int
	formatFlag     string
	saveRunFlag    bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Rank functions by test priority",
	Long: `Build the call graph, fuse coverage, estimate complexity, and print
the ranked list.

Examples:
  covimpact analyze --coverage coverage.json
  covimpact analyze --root ./src --language go --top 20
  covimpact analyze --model models/ --format json > ranking.json`,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&languageFlag, "language", "", "Source language: python, go, or javascript")
	analyzeCmd.Flags().StringSliceVar(&includeFlag, "include", nil, "Glob patterns of files to analyze")
	analyzeCmd.Flags().StringSliceVar(&excludeFlag, "exclude", nil, "Glob patterns of files to skip")
	analyzeCmd.Flags().StringVar(&coverageFlag, "coverage", "", "Coverage report (JSON or YAML)")
	analyzeCmd.Flags().StringVar(&modelFlag, "model", "", "Model artifact file or models directory")
	analyzeCmd.Flags().IntVar(&depthFlag, "depth", 0, "Transitive caller depth (0 = direct callers only)")
	analyzeCmd.Flags().IntVar(&workersFlag, "workers", 0, "Parse workers (0 = all CPUs)")
	analyzeCmd.Flags().IntVarP(&topFlag, "top", "n", 0, "Show only the top N entries (0 = all)")
	analyzeCmd.Flags().StringVarP(&formatFlag, "format", "f", "human", "Output format: human or json")
	analyzeCmd.Flags().BoolVar(&saveRunFlag, "save", false, "Persist this run to the history store")
	rootCmd.AddCommand(analyzeCmd)
}

// applyAnalyzeFlags folds the analyze command's flags into the loaded
// configuration.
func applyAnalyzeFlags(cfg *config.Config) {
	if languageFlag != "" {
		cfg.Language = languageFlag
	}
	if len(includeFlag) > 0 {
		cfg.Include = includeFlag
	}
	if len(excludeFlag) > 0 {
		cfg.Exclude = excludeFlag
	}
	if coverageFlag != "" {
		cfg.Coverage.Report = coverageFlag
	}
	if modelFlag != "" {
		cfg.Model.Path = modelFlag
	}
	if depthFlag > 0 {
		cfg.Impact.TransitiveDepth = depthFlag
	}
	if workersFlag > 0 {
		cfg.Workers = workersFlag
	}
	if saveRunFlag {
		cfg.History.Enabled = true
	}
}

func analyzerOptions(cfg *config.Config) (analyzer.Options, error) {
	lang, ok := callgraph.LanguageFromName(cfg.Language)
	if !ok {
		return analyzer.Options{}, fmt.Errorf("unsupported language %q", cfg.Language)
	}
	return analyzer.Options{
		Root:            cfg.Root,
		Language:        lang,
		Include:         cfg.Include,
		Exclude:         cfg.Exclude,
		Workers:         cfg.Workers,
		CoveragePath:    cfg.Coverage.Report,
		ModelPath:       cfg.Model.Path,
		TransitiveDepth: cfg.Impact.TransitiveDepth,
		Decay:           cfg.Impact.Decay,
		Estimator: estimator.Options{
			ConfidenceFloor:  cfg.Model.ConfidenceFloor,
			ExtrapolationCap: cfg.Model.ExtrapolationCap,
		},
	}, nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
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

	result, err := analyzer.New(opts, logger).Run(cmd.Context())
	if err != nil {
		return err
	}

	if cfg.History.Enabled {
		saveRun(cfg, logger, result)
	}

	format := output.FormatHuman
	if formatFlag == "json" {
		format = output.FormatJSON
	}
	return output.Render(os.Stdout, result, format, topFlag)
}

// saveRun persists the snapshot; history failures never block reporting.
func saveRun(cfg *config.Config, logger *logging.Logger, result *analyzer.Result) {
	store, err := history.Open(cfg.Root, logger)
	if err != nil {
		logger.Warn("history store unavailable", map[string]interface{}{"error": err.Error()})
		return
	}
	defer store.Close()

	runID, err := store.SaveRun(cfg.Root, cfg.Language, result)
	if err != nil {
		logger.Warn("failed to save run", map[string]interface{}{"error": err.Error()})
		return
	}
	logger.Info("run saved", map[string]interface{}{"runId": runID})
}
