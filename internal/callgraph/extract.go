//go:build cgo

package callgraph

import (
	"fmt"
	"path"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// rawCall is one call site recorded during the per-file parse phase.
// Targets are resolved against the merged symbol table only after the
// parse barrier, so rawCall carries everything resolution needs.
type rawCall struct {
	caller string   // enclosing function ID
	parts  []string // dotted target chain; nil for fully dynamic targets
	scope  []string // enclosing function IDs, innermost first
	class  string   // enclosing class when the call goes through the self alias
	isSelf bool
}

// importTable records the file's explicit imports.
type importTable struct {
	// modules maps a local alias (or dotted module expression) to a
	// module path, e.g. "import pkg.util as u" -> u: pkg.util
	modules map[string]string

	// symbols maps a local name to (module, symbol),
	// e.g. "from pkg.util import fmt_time" -> fmt_time: (pkg.util, fmt_time)
	symbols map[string]importedSymbol
}

type importedSymbol struct {
	module string
	symbol string
}

// fileSymbols is the complete parse product for a single file. All
// fields are written by one worker and read only after the barrier.
type fileSymbols struct {
	path   string // relative path
	module string // module path used by import resolution

	nodes    []*FunctionNode
	topLevel map[string]string            // top-level function name -> ID
	classes  map[string]map[string]string // class -> method -> ID
	nested   map[string]map[string]string // enclosing fn ID -> name -> ID
	locals   map[string]map[string]bool   // fn ID -> locally bound names
	imports  importTable
	calls    []rawCall

	usedIDs map[string]bool
}

func newFileSymbols(relPath string, lang Language) *fileSymbols {
	return &fileSymbols{
		path:     relPath,
		module:   moduleOf(relPath, lang),
		topLevel: make(map[string]string),
		classes:  make(map[string]map[string]string),
		nested:   make(map[string]map[string]string),
		locals:   make(map[string]map[string]bool),
		imports: importTable{
			modules: make(map[string]string),
			symbols: make(map[string]importedSymbol),
		},
		usedIDs: make(map[string]bool),
	}
}

// moduleOf derives the module path for import resolution. Python and
// JavaScript modules are files; Go modules are package directories.
func moduleOf(relPath string, lang Language) string {
	switch lang {
	case LangPython:
		trimmed := strings.TrimSuffix(relPath, path.Ext(relPath))
		return strings.ReplaceAll(trimmed, "/", ".")
	case LangGo:
		dir := path.Dir(relPath)
		if dir == "." {
			return ""
		}
		return dir
	case LangJavaScript:
		return strings.TrimSuffix(relPath, path.Ext(relPath))
	default:
		return relPath
	}
}

type frameKind int

const (
	frameClass frameKind = iota
	frameFunction
)

type frame struct {
	kind      frameKind
	name      string
	id        string // function frames only
	className string // class frames; for methods, the enclosing class
	selfAlias string // method frames: self / this / receiver name
}

// extractor walks one file's syntax tree and fills a fileSymbols.
type extractor struct {
	source []byte
	lang   Language
	syms   *fileSymbols
	stack  []frame
}

func extractFile(root *sitter.Node, source []byte, relPath string, lang Language) *fileSymbols {
	e := &extractor{
		source: source,
		lang:   lang,
		syms:   newFileSymbols(relPath, lang),
	}
	e.walk(root)
	return e.syms
}

func (e *extractor) text(n *sitter.Node) string {
	return string(e.source[n.StartByte():n.EndByte()])
}

func (e *extractor) walk(node *sitter.Node) {
	if node == nil {
		return
	}

	switch {
	case isClassNode(node.Type(), e.lang):
		e.walkClass(node)
		return
	case isFunctionNode(node.Type(), e.lang):
		e.walkFunction(node)
		return
	case isCallNode(node.Type(), e.lang):
		e.recordCall(node)
		// fall through below: arguments may contain further calls
	case isImportNode(node.Type(), e.lang):
		e.recordImport(node)
		return
	case e.lang == LangJavaScript && node.Type() == "variable_declarator":
		if e.maybeDeclaredFunction(node) {
			return
		}
		e.recordBindings(node)
	default:
		e.recordBindings(node)
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		e.walk(node.Child(i))
	}
}

func (e *extractor) walkClass(node *sitter.Node) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := e.text(nameNode)

	if _, ok := e.syms.classes[name]; !ok {
		e.syms.classes[name] = make(map[string]string)
	}

	e.stack = append(e.stack, frame{kind: frameClass, name: name, className: name})
	if body := node.ChildByFieldName("body"); body != nil {
		for i := 0; i < int(body.ChildCount()); i++ {
			e.walk(body.Child(i))
		}
	}
	e.stack = e.stack[:len(e.stack)-1]
}

func (e *extractor) walkFunction(node *sitter.Node) {
	name := e.functionName(node)
	if name == "" {
		// Anonymous closure: no identity of its own; its call sites are
		// attributed to the enclosing named function.
		e.walkBody(node)
		return
	}

	kind, className := e.classify()
	idName := name
	if e.lang == LangGo && node.Type() == "method_declaration" {
		// Go has no class scopes; the receiver type plays that role.
		kind = KindMethod
		if className = e.goReceiverType(node); className != "" {
			idName = className + "." + name
		}
	}
	startLine := int(node.StartPoint().Row) + 1
	id := e.uniqueID(idName, startLine)

	fn := &FunctionNode{
		ID:        id,
		Name:      name,
		File:      e.syms.path,
		StartLine: startLine,
		EndLine:   int(node.EndPoint().Row) + 1,
		Kind:      kind,
		ClassName: className,
		Features:  e.extractFeatures(node),
	}
	e.syms.nodes = append(e.syms.nodes, fn)
	e.register(fn, kind, className)

	selfAlias := ""
	if kind == KindMethod {
		selfAlias = e.selfAliasFor(node)
	}

	e.stack = append(e.stack, frame{
		kind:      frameFunction,
		name:      name,
		id:        id,
		className: className,
		selfAlias: selfAlias,
	})
	e.syms.locals[id] = make(map[string]bool)
	e.recordParams(node, id)
	e.walkBody(node)
	e.stack = e.stack[:len(e.stack)-1]
}

// walkBody walks a function's body statements. Expression-bodied arrow
// functions have no block node, so the body itself is walked.
func (e *extractor) walkBody(node *sitter.Node) {
	body := node.ChildByFieldName("body")
	if body == nil {
		return
	}
	switch body.Type() {
	case "block", "statement_block":
		for i := 0; i < int(body.ChildCount()); i++ {
			e.walk(body.Child(i))
		}
	default:
		e.walk(body)
	}
}

// classify determines the kind and enclosing class of a definition from
// the current scope stack.
func (e *extractor) classify() (Kind, string) {
	for i := len(e.stack) - 1; i >= 0; i-- {
		switch e.stack[i].kind {
		case frameClass:
			return KindMethod, e.stack[i].className
		case frameFunction:
			return KindNested, e.stack[i].className
		}
	}
	return KindFunction, ""
}

// uniqueID builds the qualified identity and de-duplicates redefinitions
// within the file. Two definitions can only collide inside one file, so
// the line suffix is enough to keep identities globally unique.
func (e *extractor) uniqueID(name string, startLine int) string {
	chain := make([]string, 0, len(e.stack)+1)
	for _, f := range e.stack {
		chain = append(chain, f.name)
	}
	chain = append(chain, name)

	id := e.syms.path + "::" + strings.Join(chain, ".")
	if e.syms.usedIDs[id] {
		id = fmt.Sprintf("%s@%d", id, startLine)
	}
	e.syms.usedIDs[id] = true
	return id
}

func (e *extractor) register(fn *FunctionNode, kind Kind, className string) {
	switch kind {
	case KindFunction:
		e.syms.topLevel[fn.Name] = fn.ID
	case KindMethod:
		if _, ok := e.syms.classes[className]; !ok {
			e.syms.classes[className] = make(map[string]string)
		}
		e.syms.classes[className][fn.Name] = fn.ID
	case KindNested:
		if encl := e.enclosingFunction(); encl != nil {
			if _, ok := e.syms.nested[encl.id]; !ok {
				e.syms.nested[encl.id] = make(map[string]string)
			}
			e.syms.nested[encl.id][fn.Name] = fn.ID
		}
	}
}

func (e *extractor) enclosingFunction() *frame {
	for i := len(e.stack) - 1; i >= 0; i-- {
		if e.stack[i].kind == frameFunction {
			return &e.stack[i]
		}
	}
	return nil
}

func (e *extractor) enclosingMethod() *frame {
	for i := len(e.stack) - 1; i >= 0; i-- {
		if e.stack[i].kind == frameFunction && e.stack[i].selfAlias != "" {
			return &e.stack[i]
		}
	}
	return nil
}

func (e *extractor) scopeIDs() []string {
	var ids []string
	for i := len(e.stack) - 1; i >= 0; i-- {
		if e.stack[i].kind == frameFunction {
			ids = append(ids, e.stack[i].id)
		}
	}
	return ids
}

// recordCall captures a call expression's target chain for resolution
// after the parse barrier.
func (e *extractor) recordCall(node *sitter.Node) {
	encl := e.enclosingFunction()
	if encl == nil {
		// Module-level call: no caller FunctionNode exists for it.
		return
	}

	fnNode := node.ChildByFieldName("function")
	if fnNode == nil {
		return
	}

	call := rawCall{
		caller: encl.id,
		scope:  e.scopeIDs(),
	}
	call.parts = e.targetChain(fnNode)

	if len(call.parts) >= 2 {
		if m := e.enclosingMethod(); m != nil && call.parts[0] == m.selfAlias {
			call.isSelf = true
			call.class = m.className
			call.parts = call.parts[1:]
		}
	}

	e.syms.calls = append(e.syms.calls, call)
}

// targetChain flattens the callee expression into a dotted identifier
// chain. Returns nil when the target is dynamic (subscripts, call
// results, arbitrary expressions); those become unresolved tallies, never
// guessed edges.
func (e *extractor) targetChain(node *sitter.Node) []string {
	switch node.Type() {
	case "identifier", "this":
		return []string{e.text(node)}
	case "attribute": // python: object.attr
		obj := node.ChildByFieldName("object")
		attr := node.ChildByFieldName("attribute")
		if obj == nil || attr == nil {
			return nil
		}
		base := e.targetChain(obj)
		if base == nil {
			return nil
		}
		return append(base, e.text(attr))
	case "selector_expression": // go: operand.field
		operand := node.ChildByFieldName("operand")
		field := node.ChildByFieldName("field")
		if operand == nil || field == nil {
			return nil
		}
		base := e.targetChain(operand)
		if base == nil {
			return nil
		}
		return append(base, e.text(field))
	case "member_expression": // javascript: object.property
		obj := node.ChildByFieldName("object")
		prop := node.ChildByFieldName("property")
		if obj == nil || prop == nil {
			return nil
		}
		base := e.targetChain(obj)
		if base == nil {
			return nil
		}
		return append(base, e.text(prop))
	case "parenthesized_expression":
		if node.NamedChildCount() == 1 {
			return e.targetChain(node.NamedChild(0))
		}
		return nil
	default:
		return nil
	}
}

// recordBindings adds local variable names bound by node to the
// enclosing function scope. Shadowing resolution depends on these: a call
// through a locally rebound name is unresolved, not guessed.
func (e *extractor) recordBindings(node *sitter.Node) {
	encl := e.enclosingFunction()
	if encl == nil {
		return
	}
	locals := e.syms.locals[encl.id]

	switch e.lang {
	case LangPython:
		switch node.Type() {
		case "assignment", "augmented_assignment":
			if left := node.ChildByFieldName("left"); left != nil {
				e.collectIdentifiers(left, locals)
			}
		case "for_statement":
			if left := node.ChildByFieldName("left"); left != nil {
				e.collectIdentifiers(left, locals)
			}
		case "as_pattern_target":
			e.collectIdentifiers(node, locals)
		}
	case LangGo:
		switch node.Type() {
		case "short_var_declaration", "range_clause":
			if left := node.ChildByFieldName("left"); left != nil {
				e.collectIdentifiers(left, locals)
			}
		case "var_spec":
			// Direct identifier children are the declared names; types and
			// initializer expressions sit under their own field nodes.
			for i := 0; i < int(node.NamedChildCount()); i++ {
				if child := node.NamedChild(i); child.Type() == "identifier" {
					locals[e.text(child)] = true
				}
			}
		}
	case LangJavaScript:
		if node.Type() == "variable_declarator" {
			name := node.ChildByFieldName("name")
			if name != nil && name.Type() == "identifier" {
				locals[e.text(name)] = true
			}
		}
	}
}

// maybeDeclaredFunction handles "const f = function() {}" and arrow
// function declarations, which JavaScript uses instead of named nested
// definitions. Returns true when node declared a callable.
func (e *extractor) maybeDeclaredFunction(node *sitter.Node) bool {
	nameNode := node.ChildByFieldName("name")
	fnNode := node.ChildByFieldName("value")
	if nameNode == nil || fnNode == nil || nameNode.Type() != "identifier" ||
		!isFunctionNode(fnNode.Type(), e.lang) {
		return false
	}

	name := e.text(nameNode)
	kind, className := e.classify()
	id := e.uniqueID(name, int(fnNode.StartPoint().Row)+1)

	fn := &FunctionNode{
		ID:        id,
		Name:      name,
		File:      e.syms.path,
		StartLine: int(fnNode.StartPoint().Row) + 1,
		EndLine:   int(fnNode.EndPoint().Row) + 1,
		Kind:      kind,
		ClassName: className,
		Features:  e.extractFeatures(fnNode),
	}
	e.syms.nodes = append(e.syms.nodes, fn)
	e.register(fn, kind, className)

	e.stack = append(e.stack, frame{kind: frameFunction, name: name, id: id, className: className})
	e.syms.locals[id] = make(map[string]bool)
	e.recordParams(fnNode, id)
	e.walkBody(fnNode)
	e.stack = e.stack[:len(e.stack)-1]
	return true
}

// collectIdentifiers gathers identifier leaves under node into out.
func (e *extractor) collectIdentifiers(node *sitter.Node, out map[string]bool) {
	if node == nil {
		return
	}
	if node.Type() == "identifier" {
		out[e.text(node)] = true
		return
	}
	// Do not descend into the right-hand side of nested expressions;
	// binding targets are shallow structures (tuples, lists, exprs).
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child.Type() == "identifier" || child.Type() == "tuple_pattern" ||
			child.Type() == "list_pattern" || child.Type() == "pattern_list" ||
			child.Type() == "expression_list" {
			e.collectIdentifiers(child, out)
		}
	}
}
