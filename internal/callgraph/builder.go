//go:build cgo

package callgraph

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"covimpact/internal/diag"
	"covimpact/internal/logging"
)

// BuildOptions configures a call graph build.
type BuildOptions struct {
	// Root is the source tree root
	Root string

	// Language selects the active grammar for this engine instance
	Language Language

	// Include restricts analysis to files matching any of these globs
	// (matched against the root-relative path and against the base name).
	// Empty means every file with a matching extension.
	Include []string

	// Exclude skips files or directories matching any of these globs.
	Exclude []string

	// Workers bounds the parse worker pool; <= 0 uses GOMAXPROCS.
	Workers int
}

// Build parses every matching file under the root and produces the call
// graph. Parsing runs on a worker pool; cross-file edge resolution starts
// only after all file registries are merged (the parse barrier).
// Per-file parse failures become diagnostics, never fatal errors.
func Build(ctx context.Context, opts BuildOptions, logger *logging.Logger) (*Graph, []diag.Diagnostic, error) {
	files, err := DiscoverFiles(opts.Root, opts.Language, opts.Include, opts.Exclude)
	if err != nil {
		return nil, nil, err
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	var (
		mu          sync.Mutex
		parsed      []*fileSymbols
		diagnostics []diag.Diagnostic
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, relPath := range files {
		// Cooperative stop between parse units.
		if gctx.Err() != nil {
			break
		}

		g.Go(func() error {
			syms, failure := parseOne(gctx, opts.Root, relPath, opts.Language)
			mu.Lock()
			defer mu.Unlock()
			if failure != nil {
				diagnostics = append(diagnostics, *failure)
				return nil
			}
			parsed = append(parsed, syms)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	// Barrier reached: all per-file registries are complete. Goroutines
	// finished in arbitrary order, so restore a stable order before
	// anything downstream sees the results. Merge into one read-only
	// symbol table, then resolve edges across files.
	sort.Slice(parsed, func(i, j int) bool { return parsed[i].path < parsed[j].path })
	sort.Slice(diagnostics, func(i, j int) bool {
		if diagnostics[i].Path != diagnostics[j].Path {
			return diagnostics[i].Path < diagnostics[j].Path
		}
		return diagnostics[i].Reason < diagnostics[j].Reason
	})

	graph := NewGraph()
	for _, syms := range parsed {
		for _, node := range syms.nodes {
			graph.AddFunction(node)
		}
	}

	res := newResolver(parsed)
	for _, syms := range parsed {
		for _, call := range syms.calls {
			if calleeID, ok := res.resolve(syms, call); ok {
				graph.AddEdge(call.caller, calleeID)
			} else {
				graph.AddUnresolved(call.caller)
			}
		}
	}

	logger.Debug("call graph built", map[string]interface{}{
		"files":      len(parsed),
		"functions":  graph.Size(),
		"edges":      graph.EdgeCount(),
		"unresolved": graph.TotalUnresolved(),
		"skipped":    len(diagnostics),
	})

	return graph, diagnostics, nil
}

// parseOne reads and parses a single file. Returns the symbols, or a
// diagnostic when the file is unreadable or syntactically broken.
func parseOne(ctx context.Context, root, relPath string, lang Language) (*fileSymbols, *diag.Diagnostic) {
	source, err := os.ReadFile(filepath.Join(root, relPath))
	if err != nil {
		d := diag.ParseFailure(relPath, "failed to read file: "+err.Error())
		return nil, &d
	}

	parser := NewParser()
	rootNode, err := parser.Parse(ctx, source, lang)
	if err != nil {
		d := diag.ParseFailure(relPath, err.Error())
		return nil, &d
	}
	if rootNode.HasError() {
		d := diag.ParseFailure(relPath, "syntax errors in file")
		return nil, &d
	}

	return extractFile(rootNode, source, relPath, lang), nil
}

// DiscoverFiles walks the root and returns the sorted, root-relative
// paths selected by the language's extensions and the include/exclude
// globs. Globs match against the relative path, the base name, and (for
// excludes) individual path segments, so "vendor" skips whole trees.
func DiscoverFiles(root string, lang Language, include, exclude []string) ([]string, error) {
	extensions := lang.Extensions()

	var files []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable directories are skipped, not fatal.
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel, relErr := filepath.Rel(root, p)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel != "." && matchesAny(exclude, rel, d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}

		if !hasExtension(rel, extensions) {
			return nil
		}
		if matchesAny(exclude, rel, d.Name()) {
			return nil
		}
		if len(include) > 0 && !matchesAny(include, rel, d.Name()) {
			return nil
		}

		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

func hasExtension(path string, extensions []string) bool {
	ext := filepath.Ext(path)
	for _, e := range extensions {
		if ext == e {
			return true
		}
	}
	return false
}

func matchesAny(globs []string, relPath, baseName string) bool {
	for _, g := range globs {
		if ok, _ := filepath.Match(g, relPath); ok {
			return true
		}
		if ok, _ := filepath.Match(g, baseName); ok {
			return true
		}
	}
	return false
}
