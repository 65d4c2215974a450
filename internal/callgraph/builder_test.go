//go:build cgo

package callgraph

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"testing"

	"covimpact/internal/logging"
)

// buildTree writes the given files under a temp root and builds the graph.
func buildTree(t *testing.T, lang Language, files map[string]string) (*Graph, []string) {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", rel, err)
		}
	}

	g, diags, err := Build(context.Background(), BuildOptions{Root: root, Language: lang}, logging.Nop())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	paths := make([]string, 0, len(diags))
	for _, d := range diags {
		paths = append(paths, d.Path)
	}
	return g, paths
}

func edgeCount(t *testing.T, g *Graph, caller, callee string) int {
	t.Helper()
	for _, e := range g.Edges() {
		if e.Caller == caller && e.Callee == callee {
			return e.Count
		}
	}
	return 0
}

func TestBuildDirectCall(t *testing.T) {
	g, _ := buildTree(t, LangPython, map[string]string{
		"app.py": "def b():\n    return 1\n\ndef a():\n    return b()\n",
	})

	if g.Size() != 2 {
		t.Fatalf("expected 2 functions, got %d", g.Size())
	}
	if got := edgeCount(t, g, "app.py::a", "app.py::b"); got != 1 {
		t.Errorf("expected edge a->b count 1, got %d", got)
	}
	if got := g.CallFrequency("app.py::b"); got != 1 {
		t.Errorf("expected frequency 1 for b, got %d", got)
	}
}

func TestBuildSelfRecursionCountsEverySite(t *testing.T) {
	g, _ := buildTree(t, LangPython, map[string]string{
		"rec.py": `def r(n):
    if n <= 0:
        return 0
    r(n - 1)
    r(n - 2)
    r(n - 3)
    r(n - 4)
    return r(n - 5)
`,
	})

	if got := edgeCount(t, g, "rec.py::r", "rec.py::r"); got != 5 {
		t.Errorf("expected self-loop count 5, got %d", got)
	}
}

func TestBuildShadowedNameIsUnresolved(t *testing.T) {
	g, _ := buildTree(t, LangPython, map[string]string{
		"app.py": `def helper():
    return 1

def caller(cb):
    helper = cb
    return helper()
`,
	})

	if got := g.CallFrequency("app.py::helper"); got != 0 {
		t.Errorf("shadowed call must not resolve, got frequency %d", got)
	}
	if got := g.UnresolvedCalls("app.py::caller"); got != 1 {
		t.Errorf("expected 1 unresolved call in caller, got %d", got)
	}
}

func TestBuildNestedFunctionResolution(t *testing.T) {
	g, _ := buildTree(t, LangPython, map[string]string{
		"app.py": `def outer():
    def inner():
        return 1
    return inner()
`,
	})

	if _, ok := g.Function("app.py::outer.inner"); !ok {
		t.Fatalf("expected nested identity app.py::outer.inner, have %v", ids(g))
	}
	if got := edgeCount(t, g, "app.py::outer", "app.py::outer.inner"); got != 1 {
		t.Errorf("expected edge outer->inner, got count %d", got)
	}
}

func TestBuildSelfMethodCall(t *testing.T) {
	g, _ := buildTree(t, LangPython, map[string]string{
		"greet.py": `class Greeter:
    def greet(self):
        return self.prefix()

    def prefix(self):
        return "hi"
`,
	})

	if got := edgeCount(t, g, "greet.py::Greeter.greet", "greet.py::Greeter.prefix"); got != 1 {
		t.Errorf("expected self method edge, got count %d", got)
	}
	fn, ok := g.Function("greet.py::Greeter.greet")
	if !ok || fn.Kind != KindMethod || fn.ClassName != "Greeter" {
		t.Errorf("expected method of Greeter, got %+v", fn)
	}
}

func TestBuildCrossFileSymbolImport(t *testing.T) {
	g, _ := buildTree(t, LangPython, map[string]string{
		"util.py": "def helper():\n    return 1\n",
		"app.py":  "from util import helper\n\ndef main():\n    return helper()\n",
	})

	if got := edgeCount(t, g, "app.py::main", "util.py::helper"); got != 1 {
		t.Errorf("expected cross-file edge main->helper, got count %d", got)
	}
}

func TestBuildModuleAliasChain(t *testing.T) {
	g, _ := buildTree(t, LangPython, map[string]string{
		"pkg/util.py": "def helper():\n    return 1\n",
		"app.py":      "import pkg.util\n\ndef main():\n    return pkg.util.helper()\n",
	})

	if got := edgeCount(t, g, "app.py::main", "pkg/util.py::helper"); got != 1 {
		t.Errorf("expected module-alias edge, got count %d", got)
	}
}

func TestBuildDynamicTargetUnresolved(t *testing.T) {
	g, _ := buildTree(t, LangPython, map[string]string{
		"app.py": `def main(handlers):
    handlers[0]()
    getattr(main, "x")()
`,
	})

	if g.EdgeCount() != 0 {
		t.Errorf("dynamic targets must not produce edges, got %d", g.EdgeCount())
	}
	if got := g.UnresolvedCalls("app.py::main"); got < 2 {
		t.Errorf("expected at least 2 unresolved calls, got %d", got)
	}
}

func TestBuildParseFailureIsDiagnosticNotFatal(t *testing.T) {
	g, diagPaths := buildTree(t, LangPython, map[string]string{
		"good.py":   "def fine():\n    return 1\n",
		"broken.py": "def broken(:\n",
	})

	if len(diagPaths) != 1 || diagPaths[0] != "broken.py" {
		t.Fatalf("expected one diagnostic for broken.py, got %v", diagPaths)
	}
	if _, ok := g.Function("good.py::fine"); !ok {
		t.Errorf("healthy files must still be analyzed, have %v", ids(g))
	}
}

func TestBuildDiagnosticsOrderIsStable(t *testing.T) {
	files := map[string]string{}
	for i := 0; i < 20; i++ {
		files[fmt.Sprintf("bad%02d.py", i)] = "def broken(:\n"
	}

	var first []string
	for run := 0; run < 5; run++ {
		_, diagPaths := buildTree(t, LangPython, files)
		if len(diagPaths) != len(files) {
			t.Fatalf("run %d: expected %d diagnostics, got %d", run, len(files), len(diagPaths))
		}
		if !sort.StringsAreSorted(diagPaths) {
			t.Fatalf("run %d: diagnostics not sorted by path: %v", run, diagPaths)
		}
		if run == 0 {
			first = diagPaths
			continue
		}
		if !reflect.DeepEqual(diagPaths, first) {
			t.Fatalf("run %d: diagnostic order differs: %v vs %v", run, diagPaths, first)
		}
	}
}

func TestBuildRedefinitionKeepsDistinctIdentities(t *testing.T) {
	g, _ := buildTree(t, LangPython, map[string]string{
		"app.py": "def f():\n    return 1\n\ndef f():\n    return 2\n",
	})

	if g.Size() != 2 {
		t.Fatalf("expected 2 distinct identities for redefinition, got %v", ids(g))
	}
	if _, ok := g.Function("app.py::f@4"); !ok {
		t.Errorf("expected line-suffixed identity app.py::f@4, have %v", ids(g))
	}
}

func TestBuildGoSelectorAndReceiver(t *testing.T) {
	g, _ := buildTree(t, LangGo, map[string]string{
		"main.go": `package main

func helper() int { return 1 }

func caller() int {
	return helper() + helper()
}

type Server struct{}

func (s *Server) Start() {
	s.listen()
}

func (s *Server) listen() {}
`,
	})

	if got := edgeCount(t, g, "main.go::caller", "main.go::helper"); got != 2 {
		t.Errorf("expected two call sites caller->helper, got %d", got)
	}
	if got := edgeCount(t, g, "main.go::Server.Start", "main.go::Server.listen"); got != 1 {
		t.Errorf("expected receiver method edge Start->listen, got %d", got)
	}
	fn, ok := g.Function("main.go::Server.Start")
	if !ok || fn.Kind != KindMethod || fn.ClassName != "Server" {
		t.Errorf("expected Start to be a method of Server, got %+v", fn)
	}
}

func TestBuildJavaScriptArrowDeclaration(t *testing.T) {
	g, _ := buildTree(t, LangJavaScript, map[string]string{
		"app.js": `function greet() { return 1; }
const twice = () => greet() + greet();
`,
	})

	if _, ok := g.Function("app.js::twice"); !ok {
		t.Fatalf("expected declared arrow function identity, have %v", ids(g))
	}
	if got := edgeCount(t, g, "app.js::twice", "app.js::greet"); got != 2 {
		t.Errorf("expected arrow body edges with count 2, got %d", got)
	}
}

func TestBuildFeaturesSnapshot(t *testing.T) {
	g, _ := buildTree(t, LangPython, map[string]string{
		"feat.py": `def scored(a, b, c):
    """Docstring."""
    if a:
        for x in b:
            if x and c:
                return x
    return None
`,
	})

	fn, ok := g.Function("feat.py::scored")
	if !ok {
		t.Fatalf("function not found, have %v", ids(g))
	}
	f := fn.Features
	if f.Parameters != 3 {
		t.Errorf("expected 3 parameters, got %d", f.Parameters)
	}
	if !f.HasDocstring {
		t.Errorf("expected docstring detection")
	}
	// if + for + if + boolean operator
	if f.Branches < 4 {
		t.Errorf("expected at least 4 decision points, got %d", f.Branches)
	}
	if f.NestingDepth < 3 {
		t.Errorf("expected nesting depth >= 3, got %d", f.NestingDepth)
	}
	if f.Lines != 7 {
		t.Errorf("expected 7 lines, got %d", f.Lines)
	}
}

func TestDiscoverFilesFilters(t *testing.T) {
	root := t.TempDir()
	files := map[string]string{
		"app.py":            "",
		"notes.txt":         "",
		"vendor/dep.py":     "",
		"pkg/service.py":    "",
		"pkg/service_x.pyw": "",
	}
	for rel := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	got, err := DiscoverFiles(root, LangPython, nil, []string{"vendor"})
	if err != nil {
		t.Fatalf("DiscoverFiles: %v", err)
	}
	want := []string{"app.py", "pkg/service.py", "pkg/service_x.pyw"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: expected %q, got %q", i, want[i], got[i])
		}
	}

	only, err := DiscoverFiles(root, LangPython, []string{"pkg/*"}, nil)
	if err != nil {
		t.Fatalf("DiscoverFiles include: %v", err)
	}
	if len(only) != 2 {
		t.Errorf("expected include glob to keep 2 files, got %v", only)
	}
}

func ids(g *Graph) []string {
	var out []string
	for _, fn := range g.Functions() {
		out = append(out, fn.ID)
	}
	return out
}
