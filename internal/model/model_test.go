package model

import (
	"os"
	"path/filepath"
	"testing"

	"covimpact/internal/errors"
)

// leaf builds a single-leaf tree predicting v.
func leaf(v float64) Tree {
	return Tree{Nodes: []TreeNode{{Feature: -1, Left: -1, Right: -1, Value: v}}}
}

func testForest() *Forest {
	return &Forest{
		Version:      "1.0.0",
		FeatureNames: []string{"lines", "branches"},
		Trees: []Tree{
			{Nodes: []TreeNode{
				{Feature: 0, Threshold: 10, Left: 1, Right: 2},
				{Feature: -1, Left: -1, Right: -1, Value: 0.2},
				{Feature: -1, Left: -1, Right: -1, Value: 0.8},
			}},
			leaf(0.5),
		},
		FeatureRanges: [][2]float64{{1, 200}, {0, 40}},
	}
}

func TestTreePredictRouting(t *testing.T) {
	f := testForest()

	small, _ := f.Predict([]float64{5, 0})
	if small != (0.2+0.5)/2 {
		t.Errorf("expected mean 0.35 for small input, got %v", small)
	}
	large, perTree := f.Predict([]float64{50, 0})
	if large != (0.8+0.5)/2 {
		t.Errorf("expected mean 0.65 for large input, got %v", large)
	}
	if len(perTree) != 2 {
		t.Fatalf("expected per-tree predictions for both members, got %v", perTree)
	}
}

func TestForestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Forest)
	}{
		{"no trees", func(f *Forest) { f.Trees = nil }},
		{"no features", func(f *Forest) { f.FeatureNames = nil }},
		{"empty tree", func(f *Forest) { f.Trees[0].Nodes = nil }},
		{"feature out of range", func(f *Forest) { f.Trees[0].Nodes[0].Feature = 9 }},
		{"backward child", func(f *Forest) { f.Trees[0].Nodes[0].Left = 0 }},
		{"range mismatch", func(f *Forest) { f.FeatureRanges = f.FeatureRanges[:1] }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := testForest()
			tc.mutate(f)
			if f.Validate() == nil {
				t.Errorf("expected validation failure")
			}
		})
	}

	if err := testForest().Validate(); err != nil {
		t.Errorf("sound forest must validate: %v", err)
	}
}

func TestArtifactRoundTrip(t *testing.T) {
	p := filepath.Join(t.TempDir(), "complexity.cimf")
	if err := Write(p, testForest()); err != nil {
		t.Fatalf("Write: %v", err)
	}

	loaded, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Version != "1.0.0" || len(loaded.Trees) != 2 {
		t.Errorf("round trip lost data: %+v", loaded)
	}
	got, _ := loaded.Predict([]float64{50, 0})
	want, _ := testForest().Predict([]float64{50, 0})
	if got != want {
		t.Errorf("predictions diverge after round trip: %v vs %v", got, want)
	}
}

func TestLoadFailuresAreModelUnavailable(t *testing.T) {
	dir := t.TempDir()

	if _, err := Load(filepath.Join(dir, "absent.cimf")); !errors.IsCode(err, errors.ModelUnavailable) {
		t.Errorf("missing artifact: expected ModelUnavailable, got %v", err)
	}

	badMagic := filepath.Join(dir, "bad.cimf")
	if err := os.WriteFile(badMagic, []byte("NOPE\x00\x01garbage"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(badMagic); !errors.IsCode(err, errors.ModelUnavailable) {
		t.Errorf("bad magic: expected ModelUnavailable, got %v", err)
	}

	truncated := filepath.Join(dir, "trunc.cimf")
	if err := os.WriteFile(truncated, []byte("CI"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(truncated); !errors.IsCode(err, errors.ModelUnavailable) {
		t.Errorf("truncated artifact: expected ModelUnavailable, got %v", err)
	}

	corrupt := filepath.Join(dir, "corrupt.cimf")
	if err := os.WriteFile(corrupt, append([]byte("CIMF\x00\x01"), []byte("not zstd")...), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(corrupt); !errors.IsCode(err, errors.ModelUnavailable) {
		t.Errorf("corrupt payload: expected ModelUnavailable, got %v", err)
	}
}

func TestManifestLatestAndResolve(t *testing.T) {
	dir := t.TempDir()
	manifest := `
[[models]]
version = "1.2.0"
file = "complexity-1.2.0.cimf"

[[models]]
version = "1.10.0"
file = "complexity-1.10.0.cimf"

[[models]]
version = "0.9.0"
file = "complexity-0.9.0.cimf"
`
	if err := os.WriteFile(filepath.Join(dir, ManifestName), []byte(manifest), 0o644); err != nil {
		t.Fatal(err)
	}

	m, err := LoadManifest(dir)
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	latest, ok := m.Latest()
	if !ok || latest.Version != "1.10.0" {
		t.Errorf("expected numeric version order to pick 1.10.0, got %+v", latest)
	}

	resolved, err := Resolve(dir)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if filepath.Base(resolved) != "complexity-1.10.0.cimf" {
		t.Errorf("expected latest artifact path, got %s", resolved)
	}
}

func TestResolveDirectFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "model.cimf")
	if err := Write(p, testForest()); err != nil {
		t.Fatal(err)
	}
	resolved, err := Resolve(p)
	if err != nil || resolved != p {
		t.Errorf("expected direct file path back, got %q, %v", resolved, err)
	}
}
