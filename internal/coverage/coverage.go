// Package coverage loads external line-coverage reports and fuses them
// with the call graph to produce a per-function covered fraction.
package coverage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"covimpact/internal/errors"
)

// Report is the interchange format produced by external coverage tools:
// a per-file line-hit table.
type Report struct {
	Files map[string]FileCoverage `json:"files" yaml:"files"`
}

// FileCoverage lists the executable lines of one file, split into lines
// that ran and lines that did not. Lines absent from both sets are not
// executable (blanks, comments, declarations the tool does not track).
type FileCoverage struct {
	ExecutedLines []int   `json:"executed_lines" yaml:"executed_lines"`
	MissingLines  []int   `json:"missing_lines" yaml:"missing_lines"`
	Summary       Summary `json:"summary" yaml:"summary"`
}

// Summary carries the tool's own per-file totals. The fuser recomputes
// fractions per function and uses these only for reporting.
type Summary struct {
	CoveredLines   int     `json:"covered_lines" yaml:"covered_lines"`
	NumStatements  int     `json:"num_statements" yaml:"num_statements"`
	PercentCovered float64 `json:"percent_covered" yaml:"percent_covered"`
	MissingLines   int     `json:"missing_lines" yaml:"missing_lines"`
}

// Load reads a coverage report from disk. JSON is the default; files
// ending in .yaml or .yml are parsed as YAML.
func Load(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(errors.CoverageInvalid, "failed to read coverage report", err)
	}

	var report Report
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &report); err != nil {
			return nil, errors.New(errors.CoverageInvalid, "failed to parse YAML coverage report", err)
		}
	default:
		if err := json.Unmarshal(data, &report); err != nil {
			return nil, errors.New(errors.CoverageInvalid, "failed to parse JSON coverage report", err)
		}
	}

	if report.Files == nil {
		return nil, errors.New(errors.CoverageInvalid, "coverage report has no files section", nil)
	}
	return &report, nil
}
