//go:build cgo

package callgraph

import (
	"sort"
	"strings"
)

// resolver answers "which function does this call target" against the
// merged symbol table. Resolution is conservative: a target is either
// matched to exactly one known definition or reported unresolved; it is
// never guessed.
type resolver struct {
	// moduleTopLevel merges top-level functions per module. Several files
	// can share a module (Go packages), so entries accumulate.
	moduleTopLevel map[string]map[string]string

	// moduleClasses merges class method tables per module.
	moduleClasses map[string]map[string]map[string]string

	// moduleDirs holds the known module paths sorted longest-first, used
	// to match Go import paths by suffix.
	moduleDirs []string
}

func newResolver(parsed []*fileSymbols) *resolver {
	r := &resolver{
		moduleTopLevel: make(map[string]map[string]string),
		moduleClasses:  make(map[string]map[string]map[string]string),
	}

	for _, syms := range parsed {
		top, ok := r.moduleTopLevel[syms.module]
		if !ok {
			top = make(map[string]string)
			r.moduleTopLevel[syms.module] = top
		}
		for name, id := range syms.topLevel {
			if _, exists := top[name]; !exists {
				top[name] = id
			}
		}

		cls, ok := r.moduleClasses[syms.module]
		if !ok {
			cls = make(map[string]map[string]string)
			r.moduleClasses[syms.module] = cls
		}
		for className, methods := range syms.classes {
			table, ok := cls[className]
			if !ok {
				table = make(map[string]string)
				cls[className] = table
			}
			for name, id := range methods {
				if _, exists := table[name]; !exists {
					table[name] = id
				}
			}
		}
	}

	for dir := range r.moduleTopLevel {
		if dir != "" {
			r.moduleDirs = append(r.moduleDirs, dir)
		}
	}
	// Longest-first so the most specific suffix wins; lexicographic within
	// a length keeps resolution deterministic.
	sort.Slice(r.moduleDirs, func(i, j int) bool {
		if len(r.moduleDirs[i]) != len(r.moduleDirs[j]) {
			return len(r.moduleDirs[i]) > len(r.moduleDirs[j])
		}
		return r.moduleDirs[i] < r.moduleDirs[j]
	})

	return r
}

// resolve maps one recorded call to a function ID. The second return is
// false when the target is dynamic, shadowed, or simply unknown.
func (r *resolver) resolve(fs *fileSymbols, call rawCall) (string, bool) {
	if len(call.parts) == 0 {
		return "", false
	}

	if call.isSelf {
		// self.m() / recv.m(): only direct method calls on the enclosing
		// class resolve; deeper chains go through field values.
		if len(call.parts) != 1 {
			return "", false
		}
		if id, ok := r.moduleClasses[fs.module][call.class][call.parts[0]]; ok {
			return id, true
		}
		return "", false
	}

	if len(call.parts) == 1 {
		return r.resolveName(fs, call.scope, call.parts[0])
	}

	// A local binding in any enclosing scope shadows every other meaning
	// of the chain's head. Shadowed names may hold anything at runtime.
	for _, fnID := range call.scope {
		if fs.locals[fnID][call.parts[0]] {
			return "", false
		}
	}
	return r.resolveChain(fs, call.parts)
}

// resolveName handles bare-identifier calls using the nearest enclosing
// binding: per scope (innermost first) a nested definition resolves and a
// local variable shadows; then the file's module scope, then explicit
// symbol imports.
func (r *resolver) resolveName(fs *fileSymbols, scope []string, name string) (string, bool) {
	for _, fnID := range scope {
		if id, ok := fs.nested[fnID][name]; ok {
			return id, true
		}
		if fs.locals[fnID][name] {
			return "", false
		}
	}

	if id, ok := r.moduleTopLevel[fs.module][name]; ok {
		return id, true
	}

	if sym, ok := fs.imports.symbols[name]; ok {
		if module, ok := r.canonicalModule(sym.module); ok {
			if id, ok := r.moduleTopLevel[module][sym.symbol]; ok {
				return id, true
			}
		}
	}

	return "", false
}

// resolveChain handles dotted calls: module-alias prefixes, same-module
// classes, and imported classes. Anything deeper stays unresolved.
func (r *resolver) resolveChain(fs *fileSymbols, parts []string) (string, bool) {
	// Longest alias prefix first: "import pkg.util" makes pkg.util.f()
	// resolvable even though "pkg" alone means nothing.
	for k := len(parts) - 1; k >= 1; k-- {
		alias := strings.Join(parts[:k], ".")
		imported, ok := fs.imports.modules[alias]
		if !ok {
			continue
		}
		module, ok := r.canonicalModule(imported)
		if !ok {
			return "", false
		}
		rest := parts[k:]
		switch len(rest) {
		case 1: // mod.f()
			if id, ok := r.moduleTopLevel[module][rest[0]]; ok {
				return id, true
			}
		case 2: // mod.Class.method()
			if id, ok := r.moduleClasses[module][rest[0]][rest[1]]; ok {
				return id, true
			}
		}
		return "", false
	}

	if len(parts) != 2 {
		return "", false
	}

	// Class.method() on a class defined in this module.
	if id, ok := r.moduleClasses[fs.module][parts[0]][parts[1]]; ok {
		return id, true
	}

	// Class.method() on an imported class.
	if sym, ok := fs.imports.symbols[parts[0]]; ok {
		if module, ok := r.canonicalModule(sym.module); ok {
			if id, ok := r.moduleClasses[module][sym.symbol][parts[1]]; ok {
				return id, true
			}
		}
	}

	return "", false
}

// canonicalModule maps an imported module path onto a known analyzed
// module. Python and JavaScript paths match exactly; Go import paths
// carry the module prefix, so they match known package directories by
// suffix.
func (r *resolver) canonicalModule(imported string) (string, bool) {
	if _, ok := r.moduleTopLevel[imported]; ok {
		return imported, true
	}
	for _, dir := range r.moduleDirs {
		if strings.HasSuffix(imported, "/"+dir) {
			return dir, true
		}
	}
	return "", false
}
