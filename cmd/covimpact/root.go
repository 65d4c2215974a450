package main

import (
	"github.com/spf13/cobra"

	"covimpact/internal/config"
	"covimpact/internal/logging"
	"covimpact/internal/version"
)

var (
	// Persistent flags shared by every command.
	rootFlag      string
	configFlag    string
	logLevelFlag  string
	logFormatFlag string
)

var rootCmd = &cobra.Command{
	Use:   "covimpact",
	Short: "covimpact - test-priority ranking from call graphs and coverage",
	Long: `covimpact ranks the functions of a codebase by how valuable they are to
test next: functions that are called often, are poorly covered, and are
not too costly to test come first. It builds a static call graph from
source text, fuses it with an external coverage report, estimates
testing effort with a trained model, and emits a deterministic ranking.`,
	Version: version.Version,
}

func init() {
	rootCmd.SetVersionTemplate("covimpact version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&rootFlag, "root", ".", "Source tree root to analyze")
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Config file (default: <root>/.covimpact/config.json)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormatFlag, "log-format", "", "Log format: human or json")
}

// loadConfig resolves the effective configuration: flags override env
// vars, which override the config file, which overrides defaults.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(rootFlag, configFlag)
	if err != nil {
		return nil, err
	}
	if rootFlag != "" {
		cfg.Root = rootFlag
	}
	if logLevelFlag != "" {
		cfg.Logging.Level = logLevelFlag
	}
	if logFormatFlag != "" {
		cfg.Logging.Format = logFormatFlag
	}
	return cfg, nil
}

// newLogger builds the run logger from the effective configuration.
func newLogger(cfg *config.Config) *logging.Logger {
	format := logging.HumanFormat
	if cfg.Logging.Format == "json" {
		format = logging.JSONFormat
	}
	return logging.NewLogger(logging.Config{
		Format: format,
		Level:  logging.ParseLevel(cfg.Logging.Level),
	})
}
