// Package estimator predicts relative testing effort per function by
// querying the trained ensemble, propagating ensemble disagreement into
// an interval and a confidence value instead of discarding it.
package estimator

import (
	"math"

	"covimpact/internal/callgraph"
	"covimpact/internal/model"
)

// Estimate is the per-function complexity prediction.
type Estimate struct {
	// ID is the function's qualified identity
	ID string `json:"id"`

	// Value is the point estimate, clamped to [0,1]
	Value float64 `json:"value"`

	// HalfWidth is the confidence-interval half-width, >= 0
	HalfWidth float64 `json:"halfWidth"`

	// Confidence is in (0,1]; higher ensemble agreement means higher
	// confidence, never lower
	Confidence float64 `json:"confidence"`

	// Extrapolated marks feature vectors outside the training range
	Extrapolated bool `json:"extrapolated,omitempty"`
}

// Options tunes the confidence mapping.
type Options struct {
	// ConfidenceFloor keeps confidence strictly positive. Default 0.05.
	ConfidenceFloor float64

	// ExtrapolationCap bounds confidence for inputs outside the training
	// distribution. Must be below 1. Default 0.6.
	ExtrapolationCap float64
}

const (
	defaultConfidenceFloor  = 0.05
	defaultExtrapolationCap = 0.6

	// NeutralComplexity is the documented fallback estimate used when no
	// model is available.
	NeutralComplexity = 0.5

	// NeutralConfidence marks fallback estimates as low-confidence.
	NeutralConfidence = 0.1
)

// Estimator wraps a loaded ensemble. The forest handle is read-only and
// safe for concurrent Estimate calls.
type Estimator struct {
	forest *model.Forest
	opts   Options
}

// New builds an estimator over a validated forest.
func New(forest *model.Forest, opts Options) *Estimator {
	if opts.ConfidenceFloor <= 0 {
		opts.ConfidenceFloor = defaultConfidenceFloor
	}
	if opts.ExtrapolationCap <= 0 || opts.ExtrapolationCap >= 1 {
		opts.ExtrapolationCap = defaultExtrapolationCap
	}
	return &Estimator{forest: forest, opts: opts}
}

// Estimate predicts testing effort for one function.
func (e *Estimator) Estimate(fn *callgraph.FunctionNode) Estimate {
	features := e.featureVector(fn.Features)
	mean, perTree := e.forest.Predict(features)

	sigma := stddev(perTree, mean)
	confidence := clamp(1.0-2.0*sigma, e.opts.ConfidenceFloor, 1.0)

	extrapolated := e.outOfRange(features)
	if extrapolated && confidence > e.opts.ExtrapolationCap {
		confidence = e.opts.ExtrapolationCap
	}

	return Estimate{
		ID:           fn.ID,
		Value:        clamp(mean, 0.0, 1.0),
		HalfWidth:    2.0 * sigma,
		Confidence:   confidence,
		Extrapolated: extrapolated,
	}
}

// Neutral is the documented fallback when the model is unavailable:
// mid-scale complexity, maximal interval, low confidence.
func Neutral(id string) Estimate {
	return Estimate{
		ID:         id,
		Value:      NeutralComplexity,
		HalfWidth:  NeutralComplexity,
		Confidence: NeutralConfidence,
	}
}

// featureVector lays the static snapshot out in the order the artifact
// was trained with. Features the artifact does not know stay out; names
// it expects but the snapshot lacks become 0.
func (e *Estimator) featureVector(f callgraph.Features) []float64 {
	out := make([]float64, len(e.forest.FeatureNames))
	for i, name := range e.forest.FeatureNames {
		switch name {
		case "lines":
			out[i] = float64(f.Lines)
		case "branches":
			out[i] = float64(f.Branches)
		case "parameters":
			out[i] = float64(f.Parameters)
		case "nesting_depth":
			out[i] = float64(f.NestingDepth)
		case "has_docstring":
			if f.HasDocstring {
				out[i] = 1.0
			}
		}
	}
	return out
}

// outOfRange reports whether any feature falls outside the training
// range recorded in the artifact. Artifacts without ranges never flag.
func (e *Estimator) outOfRange(features []float64) bool {
	if len(e.forest.FeatureRanges) != len(features) {
		return false
	}
	for i, v := range features {
		r := e.forest.FeatureRanges[i]
		if v < r[0] || v > r[1] {
			return true
		}
	}
	return false
}

func stddev(values []float64, mean float64) float64 {
	if len(values) < 2 {
		return 0.0
	}
	sum := 0.0
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
