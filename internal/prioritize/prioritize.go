// Package prioritize combines impact, complexity, and confidence into
// the final deterministic ranking.
package prioritize

import (
	"math"
	"sort"

	"covimpact/internal/estimator"
	"covimpact/internal/impact"
)

// Entry is one row of the ranked output. It carries every field the
// reporting side needs; truncation to "top N" happens there, not here.
type Entry struct {
	// ID is the function's qualified identity
	ID string `json:"id"`

	// Impact is frequency times uncovered fraction
	Impact float64 `json:"impact"`

	// Complexity is the estimated testing effort in [0,1]
	Complexity float64 `json:"complexity"`

	// Confidence and HalfWidth describe the estimate's certainty
	Confidence float64 `json:"confidence"`
	HalfWidth  float64 `json:"halfWidth"`

	// Effort is the secondary cost multiplier derived from complexity
	Effort float64 `json:"effort"`

	// Priority is the composite score the list is ordered by
	Priority float64 `json:"priority"`

	// Rank is the 1-based position in the final order
	Rank int `json:"rank"`

	// Capped marks entries whose zero denominator was replaced by the
	// run's maximum finite priority
	Capped bool `json:"capped,omitempty"`
}

// effortFor derives the secondary cost multiplier from the complexity
// estimate.
func effortFor(complexity float64) float64 {
	return 1.0 + 2.0*complexity
}

// Rank orders every function that has both an impact score and a
// complexity estimate. priority = (impact * confidence) / (complexity *
// effort). A zero denominator is capped to the run's maximum finite
// priority so the order stays total and reproducible; ties break by
// descending impact, then ascending identity.
func Rank(scores map[string]impact.Score, estimates map[string]estimator.Estimate) []Entry {
	entries := make([]Entry, 0, len(scores))
	var capped []int

	maxFinite := 0.0
	haveFinite := false

	for id, score := range scores {
		est, ok := estimates[id]
		if !ok {
			continue
		}

		e := Entry{
			ID:         id,
			Impact:     score.Impact,
			Complexity: est.Value,
			Confidence: est.Confidence,
			HalfWidth:  est.HalfWidth,
			Effort:     effortFor(est.Value),
		}

		denom := e.Complexity * e.Effort
		if denom == 0 {
			e.Capped = true
			entries = append(entries, e)
			capped = append(capped, len(entries)-1)
			continue
		}

		e.Priority = (e.Impact * e.Confidence) / denom
		if !haveFinite || e.Priority > maxFinite {
			maxFinite = e.Priority
			haveFinite = true
		}
		entries = append(entries, e)
	}

	// Capped entries take the run's maximum finite priority. When every
	// entry is capped there is no finite maximum; the numerator alone
	// then preserves a meaningful relative order.
	for _, i := range capped {
		if haveFinite {
			entries[i].Priority = maxFinite
		} else {
			entries[i].Priority = entries[i].Impact * entries[i].Confidence
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if a.Impact != b.Impact {
			return a.Impact > b.Impact
		}
		return a.ID < b.ID
	})

	for i := range entries {
		entries[i].Rank = i + 1
		// Priority must stay finite for every consumer downstream.
		if math.IsNaN(entries[i].Priority) || math.IsInf(entries[i].Priority, 0) {
			entries[i].Priority = maxFinite
		}
	}
	return entries
}
