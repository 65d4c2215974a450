// Package config loads the analysis configuration from defaults, an
// optional config file, and COVIMPACT_* environment variables, in
// ascending precedence. Command-line flags override all three.
package config

import (
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"covimpact/internal/errors"
)

// Config is the complete analysis configuration.
type Config struct {
	// Root is the source tree to analyze
	Root string `json:"root" mapstructure:"root"`

	// Language selects the grammar: python, go, or javascript
	Language string `json:"language" mapstructure:"language"`

	// Include and Exclude are glob sets applied during file discovery
	Include []string `json:"include" mapstructure:"include"`
	Exclude []string `json:"exclude" mapstructure:"exclude"`

	// Workers bounds the parse worker pool; 0 uses all CPUs
	Workers int `json:"workers" mapstructure:"workers"`

	Coverage CoverageConfig `json:"coverage" mapstructure:"coverage"`
	Model    ModelConfig    `json:"model" mapstructure:"model"`
	Impact   ImpactConfig   `json:"impact" mapstructure:"impact"`
	History  HistoryConfig  `json:"history" mapstructure:"history"`
	Logging  LoggingConfig  `json:"logging" mapstructure:"logging"`
}

// CoverageConfig locates the external coverage report.
type CoverageConfig struct {
	// Report is the coverage file path; empty treats everything as
	// uncovered
	Report string `json:"report" mapstructure:"report"`
}

// ModelConfig locates and tunes the complexity estimator.
type ModelConfig struct {
	// Path is an artifact file or a models directory with a manifest
	Path string `json:"path" mapstructure:"path"`

	// ConfidenceFloor keeps confidence strictly positive
	ConfidenceFloor float64 `json:"confidenceFloor" mapstructure:"confidenceFloor"`

	// ExtrapolationCap bounds confidence for out-of-distribution inputs
	ExtrapolationCap float64 `json:"extrapolationCap" mapstructure:"extrapolationCap"`
}

// ImpactConfig tunes the frequency computation.
type ImpactConfig struct {
	// TransitiveDepth includes callers up to this many hops; 0 or 1
	// counts direct callers only
	TransitiveDepth int `json:"transitiveDepth" mapstructure:"transitiveDepth"`

	// Decay is the per-hop weight multiplier for indirect callers
	Decay float64 `json:"decay" mapstructure:"decay"`
}

// HistoryConfig controls run-snapshot persistence.
type HistoryConfig struct {
	Enabled bool `json:"enabled" mapstructure:"enabled"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `json:"level" mapstructure:"level"`
	Format string `json:"format" mapstructure:"format"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Root:     ".",
		Language: "python",
		Exclude:  []string{"vendor", "node_modules", ".git", "__pycache__"},
		Model: ModelConfig{
			ConfidenceFloor:  0.05,
			ExtrapolationCap: 0.6,
		},
		Impact: ImpactConfig{
			Decay: 0.5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "human",
		},
	}
}

// Load reads configuration for the given root. An explicit configFile
// path is used verbatim; otherwise .covimpact/config.json under the root
// is tried and its absence is not an error.
func Load(root, configFile string) (*Config, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("root", root)
	v.SetDefault("language", defaults.Language)
	v.SetDefault("exclude", defaults.Exclude)
	v.SetDefault("model.confidenceFloor", defaults.Model.ConfidenceFloor)
	v.SetDefault("model.extrapolationCap", defaults.Model.ExtrapolationCap)
	v.SetDefault("impact.decay", defaults.Impact.Decay)
	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.format", defaults.Logging.Format)

	v.SetEnvPrefix("COVIMPACT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.New(errors.ConfigInvalid, "failed to read config file", err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("json")
		v.AddConfigPath(filepath.Join(root, ".covimpact"))
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, errors.New(errors.ConfigInvalid, "failed to read config file", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.New(errors.ConfigInvalid, "failed to decode configuration", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	switch c.Language {
	case "python", "go", "javascript":
	default:
		return errors.New(errors.ConfigInvalid,
			"language must be python, go, or javascript", nil).
			WithDetails(map[string]interface{}{"language": c.Language})
	}

	if c.Model.ConfidenceFloor <= 0 || c.Model.ConfidenceFloor > 1 {
		return errors.New(errors.ConfigInvalid, "model.confidenceFloor must be in (0,1]", nil)
	}
	if c.Model.ExtrapolationCap <= 0 || c.Model.ExtrapolationCap >= 1 {
		return errors.New(errors.ConfigInvalid, "model.extrapolationCap must be in (0,1)", nil)
	}
	if c.Impact.TransitiveDepth < 0 {
		return errors.New(errors.ConfigInvalid, "impact.transitiveDepth must be >= 0", nil)
	}
	if c.Impact.TransitiveDepth > 1 && (c.Impact.Decay <= 0 || c.Impact.Decay > 1) {
		return errors.New(errors.ConfigInvalid, "impact.decay must be in (0,1] when transitive weighting is on", nil)
	}
	if c.Workers < 0 {
		return errors.New(errors.ConfigInvalid, "workers must be >= 0", nil)
	}
	return nil
}
