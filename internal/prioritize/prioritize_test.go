package prioritize

import (
	"math"
	"reflect"
	"testing"

	"covimpact/internal/estimator"
	"covimpact/internal/impact"
)

func score(id string, imp float64) impact.Score {
	return impact.Score{ID: id, Impact: imp}
}

func est(id string, value, confidence float64) estimator.Estimate {
	return estimator.Estimate{ID: id, Value: value, Confidence: confidence}
}

func idsOf(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}

func TestRankOrdersByPriority(t *testing.T) {
	scores := map[string]impact.Score{
		"hot":    score("hot", 10.0),
		"warm":   score("warm", 5.0),
		"costly": score("costly", 10.0),
	}
	estimates := map[string]estimator.Estimate{
		"hot":    est("hot", 0.2, 1.0),
		"warm":   est("warm", 0.2, 1.0),
		"costly": est("costly", 0.9, 1.0),
	}

	entries := Rank(scores, estimates)

	want := []string{"hot", "warm", "costly"}
	if got := idsOf(entries); !reflect.DeepEqual(got, want) {
		t.Errorf("expected order %v, got %v", want, got)
	}
	for i, e := range entries {
		if e.Rank != i+1 {
			t.Errorf("entry %d: expected rank %d, got %d", i, i+1, e.Rank)
		}
	}
}

func TestRankZeroDenominatorCapped(t *testing.T) {
	scores := map[string]impact.Score{
		"normal":  score("normal", 4.0),
		"trivial": score("trivial", 1.0),
	}
	estimates := map[string]estimator.Estimate{
		"normal":  est("normal", 0.5, 1.0),
		"trivial": est("trivial", 0.0, 1.0), // zero complexity
	}

	entries := Rank(scores, estimates)

	var trivial Entry
	var normal Entry
	for _, e := range entries {
		switch e.ID {
		case "trivial":
			trivial = e
		case "normal":
			normal = e
		}
	}

	if math.IsInf(trivial.Priority, 0) || math.IsNaN(trivial.Priority) {
		t.Fatalf("zero denominator must never produce Inf/NaN, got %v", trivial.Priority)
	}
	if !trivial.Capped {
		t.Errorf("expected capped flag on zero-denominator entry")
	}
	if trivial.Priority != normal.Priority {
		t.Errorf("capped entry must take the run's max finite priority %v, got %v",
			normal.Priority, trivial.Priority)
	}
}

func TestRankAllCappedFallsBackToNumerator(t *testing.T) {
	scores := map[string]impact.Score{
		"a": score("a", 3.0),
		"b": score("b", 7.0),
	}
	estimates := map[string]estimator.Estimate{
		"a": est("a", 0.0, 1.0),
		"b": est("b", 0.0, 0.5),
	}

	entries := Rank(scores, estimates)
	if entries[0].ID != "b" || entries[0].Priority != 3.5 {
		t.Errorf("expected numerator ordering when no finite priority exists, got %+v", entries)
	}
	for _, e := range entries {
		if math.IsInf(e.Priority, 0) || math.IsNaN(e.Priority) {
			t.Errorf("%s: non-finite priority %v", e.ID, e.Priority)
		}
	}
}

func TestRankDeterministicTieBreaking(t *testing.T) {
	scores := map[string]impact.Score{
		"z": score("z", 2.0),
		"a": score("a", 2.0),
		"m": score("m", 4.0),
	}
	estimates := map[string]estimator.Estimate{
		// z and a tie on priority and impact; m ties on priority via
		// doubled impact against halved confidence.
		"z": est("z", 0.5, 1.0),
		"a": est("a", 0.5, 1.0),
		"m": est("m", 0.5, 0.5),
	}

	want := idsOf(Rank(scores, estimates))
	if want[0] != "m" { // impact tie-break before identity
		t.Errorf("expected higher-impact entry first among equal priorities, got %v", want)
	}
	if want[1] != "a" || want[2] != "z" {
		t.Errorf("expected identity tie-break a before z, got %v", want)
	}

	// Byte-identical reruns: repeated ranking of identical inputs yields
	// the identical sequence.
	for i := 0; i < 20; i++ {
		if got := idsOf(Rank(scores, estimates)); !reflect.DeepEqual(got, want) {
			t.Fatalf("run %d: order changed from %v to %v", i, want, got)
		}
	}
}

func TestRankSkipsFunctionsWithoutEstimates(t *testing.T) {
	scores := map[string]impact.Score{
		"kept":    score("kept", 1.0),
		"dropped": score("dropped", 9.0),
	}
	estimates := map[string]estimator.Estimate{
		"kept": est("kept", 0.5, 1.0),
	}

	entries := Rank(scores, estimates)
	if len(entries) != 1 || entries[0].ID != "kept" {
		t.Errorf("functions without estimates must be excluded, got %v", idsOf(entries))
	}
}

func TestRankConfidencePropagates(t *testing.T) {
	scores := map[string]impact.Score{
		"sure":   score("sure", 5.0),
		"unsure": score("unsure", 5.0),
	}
	estimates := map[string]estimator.Estimate{
		"sure":   est("sure", 0.5, 1.0),
		"unsure": est("unsure", 0.5, 0.2),
	}

	entries := Rank(scores, estimates)
	if entries[0].ID != "sure" {
		t.Errorf("identical impact and complexity must rank the confident estimate first, got %v",
			idsOf(entries))
	}
	if entries[0].Priority <= entries[1].Priority {
		t.Errorf("confidence must scale priority: %v vs %v", entries[0].Priority, entries[1].Priority)
	}
}

func TestEffortMultiplier(t *testing.T) {
	if got := effortFor(0.0); got != 1.0 {
		t.Errorf("zero complexity: expected effort 1.0, got %v", got)
	}
	if got := effortFor(1.0); got != 3.0 {
		t.Errorf("max complexity: expected effort 3.0, got %v", got)
	}
}
