// Package analyzer orchestrates the pipeline: call graph build, coverage
// fusion, impact scoring, complexity estimation, and prioritization.
package analyzer

import (
	"context"

	"covimpact/internal/callgraph"
	"covimpact/internal/coverage"
	"covimpact/internal/diag"
	"covimpact/internal/errors"
	"covimpact/internal/estimator"
	"covimpact/internal/impact"
	"covimpact/internal/logging"
	"covimpact/internal/model"
	"covimpact/internal/prioritize"
)

// Options configures one analysis run.
type Options struct {
	Root     string
	Language callgraph.Language
	Include  []string
	Exclude  []string
	Workers  int

	// CoveragePath is the external coverage report. Empty means no
	// coverage data: every function counts as fully uncovered.
	CoveragePath string

	// ModelPath is an artifact file or a models directory with a
	// manifest. Empty or unloadable falls back to neutral complexity.
	ModelPath string

	// TransitiveDepth and Decay tune the impact frequency computation.
	TransitiveDepth int
	Decay           float64

	Estimator estimator.Options
}

// Stats summarizes a run for reporting and history.
type Stats struct {
	Functions       int    `json:"functions"`
	Edges           int    `json:"edges"`
	UnresolvedCalls int    `json:"unresolvedCalls"`
	SkippedFiles    int    `json:"skippedFiles"`
	ModelVersion    string `json:"modelVersion,omitempty"`
	NeutralFallback bool   `json:"neutralFallback,omitempty"`
}

// Result is the complete output of a run: the full ranked list plus the
// diagnostics collected along the way.
type Result struct {
	Entries     []prioritize.Entry `json:"entries"`
	Diagnostics []diag.Diagnostic  `json:"diagnostics,omitempty"`
	Stats       Stats              `json:"stats"`
}

// ComplexityEstimator is the estimation seam. The production
// implementation wraps the loaded ensemble; tests substitute
// deterministic fakes.
type ComplexityEstimator interface {
	Estimate(fn *callgraph.FunctionNode) (estimator.Estimate, error)
}

type ensembleEstimator struct {
	inner *estimator.Estimator
}

func (e ensembleEstimator) Estimate(fn *callgraph.FunctionNode) (estimator.Estimate, error) {
	return e.inner.Estimate(fn), nil
}

// NeutralEstimator is the documented ModelUnavailable fallback: every
// function gets mid-scale complexity at low confidence.
type NeutralEstimator struct{}

func (NeutralEstimator) Estimate(fn *callgraph.FunctionNode) (estimator.Estimate, error) {
	return estimator.Neutral(fn.ID), nil
}

// Analyzer runs the pipeline. The zero value is not usable; construct
// with New.
type Analyzer struct {
	opts   Options
	logger *logging.Logger

	// estimatorOverride, when set, replaces model loading entirely.
	estimatorOverride ComplexityEstimator
}

// New creates an analyzer.
func New(opts Options, logger *logging.Logger) *Analyzer {
	return &Analyzer{opts: opts, logger: logger}
}

// WithEstimator substitutes the complexity estimation stage.
func (a *Analyzer) WithEstimator(ce ComplexityEstimator) *Analyzer {
	a.estimatorOverride = ce
	return a
}

// Run executes the full pipeline. Per-file and per-function problems
// come back as diagnostics inside the result; the returned error is
// reserved for conditions that invalidate the whole run, EmptyAnalysis
// and an undecodable coverage report among them.
func (a *Analyzer) Run(ctx context.Context) (*Result, error) {
	graph, diagnostics, err := callgraph.Build(ctx, callgraph.BuildOptions{
		Root:     a.opts.Root,
		Language: a.opts.Language,
		Include:  a.opts.Include,
		Exclude:  a.opts.Exclude,
		Workers:  a.opts.Workers,
	}, a.logger)
	if err != nil {
		return nil, err
	}

	if graph.Size() == 0 {
		// Distinct from an empty ranked list after filtering: nothing was
		// discovered at all, which points at a wrong root or grammar.
		return nil, errors.New(errors.EmptyAnalysis,
			"no functions discovered; check the root path, language, and include patterns", nil).
			WithDetails(map[string]interface{}{
				"root":     a.opts.Root,
				"language": string(a.opts.Language),
			})
	}

	cov, err := a.loadCoverage(graph)
	if err != nil {
		return nil, err
	}

	scores := impact.Compute(graph, cov, impact.Options{
		TransitiveDepth: a.opts.TransitiveDepth,
		Decay:           a.opts.Decay,
	})

	ce, modelVersion, fallback := a.selectEstimator(&diagnostics)

	estimates := make(map[string]estimator.Estimate, graph.Size())
	for _, fn := range graph.Functions() {
		est, err := ce.Estimate(fn)
		if err != nil {
			// Isolated to this function: excluded from the ranking, the
			// run continues.
			diagnostics = append(diagnostics, diag.Diagnostic{
				Path:   fn.ID,
				Reason: "estimation failed: " + err.Error(),
				Code:   errors.InternalError,
			})
			continue
		}
		estimates[fn.ID] = est
	}

	entries := prioritize.Rank(scores, estimates)

	result := &Result{
		Entries:     entries,
		Diagnostics: diagnostics,
		Stats: Stats{
			Functions:       graph.Size(),
			Edges:           graph.EdgeCount(),
			UnresolvedCalls: graph.TotalUnresolved(),
			SkippedFiles:    countParseFailures(diagnostics),
			ModelVersion:    modelVersion,
			NeutralFallback: fallback,
		},
	}

	a.logger.Info("analysis complete", map[string]interface{}{
		"functions":   result.Stats.Functions,
		"edges":       result.Stats.Edges,
		"unresolved":  result.Stats.UnresolvedCalls,
		"skipped":     result.Stats.SkippedFiles,
		"ranked":      len(entries),
		"diagnostics": len(diagnostics),
	})
	return result, nil
}

// loadCoverage fuses the external report when one is configured. Without
// a report every function is fully uncovered, which still yields a
// useful call-frequency ranking.
func (a *Analyzer) loadCoverage(graph *callgraph.Graph) (map[string]float64, error) {
	if a.opts.CoveragePath == "" {
		a.logger.Warn("no coverage report configured; treating all functions as uncovered", nil)
		return map[string]float64{}, nil
	}

	report, err := coverage.Load(a.opts.CoveragePath)
	if err != nil {
		return nil, err
	}
	return coverage.NewFuser(report).Fuse(graph), nil
}

// selectEstimator loads the configured model, degrading to the neutral
// fallback with a prominent diagnostic when the artifact is missing or
// malformed.
func (a *Analyzer) selectEstimator(diagnostics *[]diag.Diagnostic) (ComplexityEstimator, string, bool) {
	if a.estimatorOverride != nil {
		return a.estimatorOverride, "", false
	}

	if a.opts.ModelPath == "" {
		*diagnostics = append(*diagnostics,
			diag.ModelUnavailable("", "no model configured; using neutral complexity fallback"))
		return NeutralEstimator{}, "", true
	}

	artifactPath, err := model.Resolve(a.opts.ModelPath)
	if err == nil {
		var forest *model.Forest
		if forest, err = model.Load(artifactPath); err == nil {
			return ensembleEstimator{inner: estimator.New(forest, a.opts.Estimator)}, forest.Version, false
		}
	}

	a.logger.Warn("model unavailable, using neutral complexity fallback", map[string]interface{}{
		"path":  a.opts.ModelPath,
		"error": err.Error(),
	})
	*diagnostics = append(*diagnostics, diag.ModelUnavailable(a.opts.ModelPath, err.Error()))
	return NeutralEstimator{}, "", true
}

func countParseFailures(diagnostics []diag.Diagnostic) int {
	count := 0
	for _, d := range diagnostics {
		if d.Code == errors.ParseFailure {
			count++
		}
	}
	return count
}
