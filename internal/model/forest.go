// Package model loads and queries the pre-trained complexity ensemble.
// The pipeline is inference-only: training happens offline and ships as
// a versioned artifact.
package model

import (
	"fmt"
)

// TreeNode is one node of a flattened regression tree. Internal nodes
// route on Feature against Threshold; leaves carry Value.
type TreeNode struct {
	// Feature is the feature index tested at this node; -1 marks a leaf
	Feature int `json:"feature"`

	// Threshold splits left (<=) from right (>)
	Threshold float64 `json:"threshold"`

	// Left and Right are child indexes within the tree's node array;
	// -1 for leaves
	Left  int `json:"left"`
	Right int `json:"right"`

	// Value is the leaf prediction
	Value float64 `json:"value"`
}

// Tree is a single regression tree stored as a flat node array with the
// root at index 0. Children always point forward, so traversal is bounded
// by the array length.
type Tree struct {
	Nodes []TreeNode `json:"nodes"`
}

// Predict walks the tree for one feature vector.
func (t *Tree) Predict(features []float64) float64 {
	i := 0
	for {
		n := t.Nodes[i]
		if n.Feature < 0 {
			return n.Value
		}
		v := 0.0
		if n.Feature < len(features) {
			v = features[n.Feature]
		}
		if v <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// Forest is the trained ensemble. The artifact is read-only after load
// and shared across inference calls.
type Forest struct {
	// Version identifies the training run that produced this artifact
	Version string `json:"version"`

	// FeatureNames fixes the feature vector layout. Estimation maps a
	// function's feature snapshot onto this order; unknown names get 0.
	FeatureNames []string `json:"featureNames"`

	// Trees are the ensemble members
	Trees []Tree `json:"trees"`

	// FeatureRanges holds the per-feature [min, max] seen in training,
	// used to detect extrapolation. Same order as FeatureNames.
	FeatureRanges [][2]float64 `json:"featureRanges,omitempty"`
}

// Predict returns the ensemble mean and every member's prediction. The
// per-tree values carry the dispersion the confidence mapping is derived
// from; discarding them discards the uncertainty.
func (f *Forest) Predict(features []float64) (float64, []float64) {
	perTree := make([]float64, len(f.Trees))
	sum := 0.0
	for i := range f.Trees {
		p := f.Trees[i].Predict(features)
		perTree[i] = p
		sum += p
	}
	return sum / float64(len(f.Trees)), perTree
}

// Validate checks structural soundness so Predict can run unguarded:
// non-empty ensemble, leaves and children consistent, children strictly
// forward-pointing (guarantees termination).
func (f *Forest) Validate() error {
	if len(f.Trees) == 0 {
		return fmt.Errorf("ensemble has no trees")
	}
	if len(f.FeatureNames) == 0 {
		return fmt.Errorf("ensemble declares no features")
	}
	if len(f.FeatureRanges) != 0 && len(f.FeatureRanges) != len(f.FeatureNames) {
		return fmt.Errorf("feature ranges count %d does not match %d features",
			len(f.FeatureRanges), len(f.FeatureNames))
	}

	for ti := range f.Trees {
		nodes := f.Trees[ti].Nodes
		if len(nodes) == 0 {
			return fmt.Errorf("tree %d is empty", ti)
		}
		for ni, n := range nodes {
			if n.Feature < 0 {
				continue
			}
			if n.Feature >= len(f.FeatureNames) {
				return fmt.Errorf("tree %d node %d: feature index %d out of range", ti, ni, n.Feature)
			}
			if n.Left <= ni || n.Left >= len(nodes) || n.Right <= ni || n.Right >= len(nodes) {
				return fmt.Errorf("tree %d node %d: child indexes must point forward", ti, ni)
			}
		}
	}
	return nil
}
