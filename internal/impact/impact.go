// Package impact scores how much untested risk flows through each
// function: call frequency weighted by the uncovered fraction.
package impact

import (
	"covimpact/internal/callgraph"
)

// Score is the per-function impact record. Derived each run, never
// persisted.
type Score struct {
	// ID is the function's qualified identity
	ID string `json:"id"`

	// Frequency is the call-site-weighted in-degree. With transitive
	// weighting enabled it also carries decayed indirect-caller weight,
	// so it is fractional in that mode.
	Frequency float64 `json:"frequency"`

	// Coverage is the fused covered fraction in [0,1]
	Coverage float64 `json:"coverage"`

	// Uncovered is 1 - Coverage
	Uncovered float64 `json:"uncovered"`

	// Impact is Frequency * Uncovered
	Impact float64 `json:"impact"`
}

// Options controls the frequency computation.
type Options struct {
	// TransitiveDepth includes callers up to this many hops away; the
	// direct hop is 1. 0 or 1 (the default) counts direct callers only,
	// which is cycle-safe and bounds cost to O(edges).
	TransitiveDepth int

	// Decay is the per-hop weight multiplier for indirect callers.
	// Ignored when TransitiveDepth is 0.
	Decay float64
}

// DefaultDecay halves each additional hop's contribution.
const DefaultDecay = 0.5

// Compute scores every function in the graph. Functions with zero
// inbound edges get impact 0 regardless of coverage: untested-but-uncalled
// code is lower value than untested hot paths.
func Compute(g *callgraph.Graph, cov map[string]float64, opts Options) map[string]Score {
	if opts.TransitiveDepth > 1 && opts.Decay <= 0 {
		opts.Decay = DefaultDecay
	}

	out := make(map[string]Score, g.Size())
	for _, fn := range g.Functions() {
		freq := frequency(g, fn.ID, opts)
		coverage := cov[fn.ID]
		uncovered := 1.0 - coverage

		score := Score{
			ID:        fn.ID,
			Frequency: freq,
			Coverage:  coverage,
			Uncovered: uncovered,
		}
		if freq > 0 {
			score.Impact = freq * uncovered
		}
		out[fn.ID] = score
	}
	return out
}

// frequency sums inbound call-site counts. With a transitive depth it
// adds indirect callers' counts decayed by hop distance; every caller
// contributes at its shortest hop only, which breaks cycles.
func frequency(g *callgraph.Graph, id string, opts Options) float64 {
	total := float64(g.CallFrequency(id))
	if opts.TransitiveDepth <= 1 {
		return total
	}

	visited := map[string]bool{id: true}
	var level []string
	for _, e := range g.CallersOf(id) {
		if !visited[e.Caller] {
			visited[e.Caller] = true
			level = append(level, e.Caller)
		}
	}

	weight := opts.Decay
	for hop := 2; hop <= opts.TransitiveDepth && len(level) > 0; hop++ {
		var next []string
		for _, callee := range level {
			for _, e := range g.CallersOf(callee) {
				if visited[e.Caller] {
					continue
				}
				visited[e.Caller] = true
				total += weight * float64(e.Count)
				next = append(next, e.Caller)
			}
		}
		level = next
		weight *= opts.Decay
	}
	return total
}
