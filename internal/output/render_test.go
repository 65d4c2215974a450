package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"covimpact/internal/analyzer"
	"covimpact/internal/diag"
	"covimpact/internal/prioritize"
)

func sampleResult() *analyzer.Result {
	return &analyzer.Result{
		Entries: []prioritize.Entry{
			{ID: "app.py::b", Impact: 1.0, Complexity: 0.5, Confidence: 1.0, HalfWidth: 0.1,
				Effort: 2.0, Priority: 1.0000000001, Rank: 1},
			{ID: "app.py::a", Impact: 0.0, Complexity: 0.5, Confidence: 1.0,
				Effort: 2.0, Priority: 0.0, Rank: 2},
		},
		Diagnostics: []diag.Diagnostic{diag.ParseFailure("broken.py", "syntax errors in file")},
		Stats:       analyzer.Stats{Functions: 2, Edges: 1, SkippedFiles: 1},
	}
}

func TestFormatFloat(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{1.0, "1"},
		{0.5, "0.5"},
		{1.0000000001, "1"},
		{0.3333333333, "0.333333"},
		{0.0, "0"},
	}
	for _, tc := range cases {
		if got := FormatFloat(tc.in); got != tc.want {
			t.Errorf("FormatFloat(%v): expected %q, got %q", tc.in, tc.want, got)
		}
	}
}

func TestRenderJSONDeterministic(t *testing.T) {
	result := sampleResult()

	var first bytes.Buffer
	if err := Render(&first, result, FormatJSON, 0); err != nil {
		t.Fatalf("Render: %v", err)
	}
	for i := 0; i < 10; i++ {
		var again bytes.Buffer
		if err := Render(&again, result, FormatJSON, 0); err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(first.Bytes(), again.Bytes()) {
			t.Fatalf("run %d: output not byte-identical", i)
		}
	}

	// Output stays valid JSON with the expected shape.
	var decoded map[string]interface{}
	if err := json.Unmarshal(first.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	entries, ok := decoded["entries"].([]interface{})
	if !ok || len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %v", decoded["entries"])
	}
	entry := entries[0].(map[string]interface{})
	if entry["id"] != "app.py::b" || entry["rank"] != float64(1) {
		t.Errorf("unexpected first entry: %v", entry)
	}
	// Float noise is rounded away.
	if entry["priority"] != float64(1) {
		t.Errorf("expected rounded priority 1, got %v", entry["priority"])
	}
}

func TestRenderJSONKeyOrder(t *testing.T) {
	var buf bytes.Buffer
	if err := Render(&buf, sampleResult(), FormatJSON, 0); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if strings.Index(out, `"entries"`) > strings.Index(out, `"stats"`) {
		t.Errorf("expected entries before stats in output")
	}
	if strings.Index(out, `"rank"`) > strings.Index(out, `"id"`) {
		t.Errorf("expected rank before id within an entry")
	}
}

func TestRenderTopN(t *testing.T) {
	var buf bytes.Buffer
	if err := Render(&buf, sampleResult(), FormatJSON, 1); err != nil {
		t.Fatal(err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatal(err)
	}
	if entries := decoded["entries"].([]interface{}); len(entries) != 1 {
		t.Errorf("expected truncation to 1 entry, got %d", len(entries))
	}
	// Stats describe the full run regardless of truncation.
	stats := decoded["stats"].(map[string]interface{})
	if stats["functions"] != float64(2) {
		t.Errorf("stats must not be truncated: %v", stats)
	}
}

func TestRenderHuman(t *testing.T) {
	var buf bytes.Buffer
	if err := Render(&buf, sampleResult(), FormatHuman, 0); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	for _, want := range []string{"RANK", "app.py::b", "2 functions, 1 edges", "broken.py"} {
		if !strings.Contains(out, want) {
			t.Errorf("human output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderHumanFallbackWarning(t *testing.T) {
	result := sampleResult()
	result.Stats.NeutralFallback = true

	var buf bytes.Buffer
	if err := Render(&buf, result, FormatHuman, 0); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "neutral fallback") {
		t.Errorf("expected fallback warning in human output:\n%s", buf.String())
	}
}
