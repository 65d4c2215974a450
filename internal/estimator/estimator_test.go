package estimator

import (
	"math/rand"
	"testing"

	"covimpact/internal/callgraph"
	"covimpact/internal/model"
)

// leafForest builds an ensemble of constant trees, one per value, so the
// dispersion is fully controlled by the test.
func leafForest(values ...float64) *model.Forest {
	trees := make([]model.Tree, len(values))
	for i, v := range values {
		trees[i] = model.Tree{Nodes: []model.TreeNode{{Feature: -1, Left: -1, Right: -1, Value: v}}}
	}
	return &model.Forest{
		Version:      "test",
		FeatureNames: []string{"lines", "branches", "parameters", "nesting_depth", "has_docstring"},
		Trees:        trees,
	}
}

func someFunc() *callgraph.FunctionNode {
	return &callgraph.FunctionNode{
		ID:   "app.py::f",
		Name: "f",
		Features: callgraph.Features{
			Lines: 12, Branches: 3, Parameters: 2, NestingDepth: 1, HasDocstring: true,
		},
	}
}

func TestEstimateAgreementGivesFullConfidence(t *testing.T) {
	est := New(leafForest(0.4, 0.4, 0.4), Options{})
	got := est.Estimate(someFunc())

	if got.Value != 0.4 {
		t.Errorf("expected point estimate 0.4, got %v", got.Value)
	}
	if got.Confidence != 1.0 {
		t.Errorf("zero dispersion must give confidence 1.0, got %v", got.Confidence)
	}
	if got.HalfWidth != 0.0 {
		t.Errorf("zero dispersion must give zero half-width, got %v", got.HalfWidth)
	}
}

func TestEstimateBounds(t *testing.T) {
	// Constant trees outside [0,1] simulate a degenerate artifact.
	est := New(leafForest(1.7, 1.9), Options{})
	got := est.Estimate(someFunc())

	if got.Value < 0.0 || got.Value > 1.0 {
		t.Errorf("point estimate must be clamped to [0,1], got %v", got.Value)
	}
	if got.Confidence <= 0.0 || got.Confidence > 1.0 {
		t.Errorf("confidence must be in (0,1], got %v", got.Confidence)
	}
	if got.HalfWidth < 0.0 {
		t.Errorf("half-width must be >= 0, got %v", got.HalfWidth)
	}
}

// TestConfidenceMonotonicity checks the core property over synthetic
// ensembles: wider estimator disagreement never increases confidence.
func TestConfidenceMonotonicity(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	fn := someFunc()

	for trial := 0; trial < 100; trial++ {
		center := rng.Float64()
		narrow := rng.Float64() * 0.1
		wide := narrow + rng.Float64()*0.4

		spread := func(s float64) []float64 {
			vals := make([]float64, 8)
			for i := range vals {
				offset := s
				if i%2 == 0 {
					offset = -s
				}
				vals[i] = center + offset
			}
			return vals
		}

		cNarrow := New(leafForest(spread(narrow)...), Options{}).Estimate(fn).Confidence
		cWide := New(leafForest(spread(wide)...), Options{}).Estimate(fn).Confidence

		if cWide > cNarrow {
			t.Fatalf("trial %d: wider dispersion %v increased confidence (%v > %v)",
				trial, wide, cWide, cNarrow)
		}
	}
}

func TestConfidenceFloor(t *testing.T) {
	// Extreme disagreement still leaves confidence strictly positive.
	est := New(leafForest(0.0, 1.0, 0.0, 1.0), Options{})
	got := est.Estimate(someFunc())

	if got.Confidence <= 0.0 {
		t.Errorf("confidence must stay in (0,1], got %v", got.Confidence)
	}
}

func TestExtrapolationCapsConfidence(t *testing.T) {
	forest := leafForest(0.4, 0.4, 0.4)
	forest.FeatureRanges = [][2]float64{{1, 50}, {0, 10}, {0, 6}, {0, 4}, {0, 1}}
	est := New(forest, Options{ExtrapolationCap: 0.6})

	fn := someFunc()
	fn.Features.Lines = 5000 // far beyond the training range

	got := est.Estimate(fn)
	if !got.Extrapolated {
		t.Errorf("expected extrapolation flag for out-of-range features")
	}
	if got.Confidence > 0.6 {
		t.Errorf("extrapolation must cap confidence at 0.6, got %v", got.Confidence)
	}
	if got.Value < 0.0 || got.Value > 1.0 {
		t.Errorf("extrapolated estimate must stay clamped, got %v", got.Value)
	}
}

func TestNeutralFallback(t *testing.T) {
	got := Neutral("app.py::f")
	if got.Value != NeutralComplexity {
		t.Errorf("expected neutral complexity %v, got %v", NeutralComplexity, got.Value)
	}
	if got.Confidence != NeutralConfidence {
		t.Errorf("expected neutral confidence %v, got %v", NeutralConfidence, got.Confidence)
	}
	if got.Confidence <= 0 || got.Confidence > 1 {
		t.Errorf("neutral confidence out of (0,1]: %v", got.Confidence)
	}
}

func TestFeatureVectorLayout(t *testing.T) {
	forest := leafForest(0.5)
	forest.FeatureNames = []string{"branches", "lines", "unknown_feature"}
	est := New(forest, Options{})

	got := est.featureVector(callgraph.Features{Lines: 10, Branches: 3})
	want := []float64{3, 10, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("feature %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}
