package coverage

import (
	"path/filepath"
	"sort"
	"strings"

	"covimpact/internal/callgraph"
)

// fileLines is the precomputed line-set view of one file's coverage.
type fileLines struct {
	executed map[int]bool
	reported map[int]bool // executed plus missing: every executable line
}

// Fuser matches coverage entries to functions by file path and line-range
// overlap. Identity matching never goes through bare names: two functions
// in different scopes may share one.
type Fuser struct {
	files map[string]fileLines

	// sortedPaths supports deterministic suffix matching when report
	// paths carry a prefix the analysis root does not (absolute paths,
	// CI workspace prefixes).
	sortedPaths []string
}

// NewFuser indexes a report for per-function lookups.
func NewFuser(report *Report) *Fuser {
	f := &Fuser{files: make(map[string]fileLines, len(report.Files))}
	for p, fc := range report.Files {
		norm := filepath.ToSlash(p)
		lines := fileLines{
			executed: make(map[int]bool, len(fc.ExecutedLines)),
			reported: make(map[int]bool, len(fc.ExecutedLines)+len(fc.MissingLines)),
		}
		for _, n := range fc.ExecutedLines {
			lines.executed[n] = true
			lines.reported[n] = true
		}
		for _, n := range fc.MissingLines {
			lines.reported[n] = true
		}
		f.files[norm] = lines
		f.sortedPaths = append(f.sortedPaths, norm)
	}
	sort.Strings(f.sortedPaths)
	return f
}

// Fuse returns the covered fraction for every function in the graph.
// Functions whose file has no coverage entry get exactly 0.0: untested
// code is the signal this system looks for, so absence is data, not an
// error.
func (f *Fuser) Fuse(g *callgraph.Graph) map[string]float64 {
	out := make(map[string]float64, g.Size())
	for _, fn := range g.Functions() {
		out[fn.ID] = f.fractionFor(fn)
	}
	return out
}

// fractionFor computes covered-lines-in-range / reported-lines-in-range
// for one function. A range with no reported executable lines falls back
// to the start line alone: covered if that line executed, else 0.
func (f *Fuser) fractionFor(fn *callgraph.FunctionNode) float64 {
	lines, ok := f.lookup(fn.File)
	if !ok {
		return 0.0
	}

	covered, reported := 0, 0
	for n := fn.StartLine; n <= fn.EndLine; n++ {
		if !lines.reported[n] {
			continue
		}
		reported++
		if lines.executed[n] {
			covered++
		}
	}

	if reported == 0 {
		if lines.executed[fn.StartLine] {
			return 1.0
		}
		return 0.0
	}
	return float64(covered) / float64(reported)
}

// lookup finds the report entry for an analysis-relative path, first by
// exact match, then by path suffix. Suffix candidates are scanned in
// sorted order so a tie always picks the same entry.
func (f *Fuser) lookup(relPath string) (fileLines, bool) {
	if lines, ok := f.files[relPath]; ok {
		return lines, true
	}
	for _, p := range f.sortedPaths {
		if strings.HasSuffix(p, "/"+relPath) {
			return f.files[p], true
		}
	}
	return fileLines{}, false
}
