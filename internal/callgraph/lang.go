//go:build cgo

package callgraph

import (
	"path"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// isFunctionNode reports whether a node type declares a function for the
// grammar.
func isFunctionNode(nodeType string, lang Language) bool {
	switch lang {
	case LangPython:
		return nodeType == "function_definition"
	case LangGo:
		return nodeType == "function_declaration" || nodeType == "method_declaration" ||
			nodeType == "func_literal"
	case LangJavaScript:
		return nodeType == "function_declaration" || nodeType == "function_expression" ||
			nodeType == "generator_function_declaration" || nodeType == "method_definition" ||
			nodeType == "arrow_function"
	}
	return false
}

func isClassNode(nodeType string, lang Language) bool {
	switch lang {
	case LangPython:
		return nodeType == "class_definition"
	case LangJavaScript:
		return nodeType == "class_declaration"
	}
	return false
}

func isCallNode(nodeType string, lang Language) bool {
	switch lang {
	case LangPython:
		return nodeType == "call"
	case LangGo, LangJavaScript:
		return nodeType == "call_expression"
	}
	return false
}

func isImportNode(nodeType string, lang Language) bool {
	switch lang {
	case LangPython:
		return nodeType == "import_statement" || nodeType == "import_from_statement"
	case LangGo:
		return nodeType == "import_declaration"
	case LangJavaScript:
		return nodeType == "import_statement"
	}
	return false
}

// decisionNodeTypes returns the node types counted as branches.
func decisionNodeTypes(lang Language) []string {
	switch lang {
	case LangPython:
		return []string{
			"if_statement",
			"elif_clause",
			"for_statement",
			"while_statement",
			"except_clause",
			"with_statement",
			"boolean_operator",
			"conditional_expression",
			"list_comprehension",
			"dictionary_comprehension",
			"set_comprehension",
			"generator_expression",
		}
	case LangGo:
		return []string{
			"if_statement",
			"for_statement",
			"expression_case",
			"type_case",
			"communication_case",
			"binary_expression",
		}
	case LangJavaScript:
		return []string{
			"if_statement",
			"for_statement",
			"for_in_statement",
			"while_statement",
			"do_statement",
			"switch_case",
			"catch_clause",
			"ternary_expression",
			"binary_expression",
		}
	}
	return nil
}

// nestingNodeTypes returns node types that increase nesting depth.
func nestingNodeTypes(lang Language) []string {
	switch lang {
	case LangPython:
		return []string{
			"if_statement",
			"for_statement",
			"while_statement",
			"try_statement",
			"with_statement",
		}
	case LangGo:
		return []string{
			"if_statement",
			"for_statement",
			"select_statement",
			"type_switch_statement",
			"expression_switch_statement",
		}
	case LangJavaScript:
		return []string{
			"if_statement",
			"for_statement",
			"for_in_statement",
			"while_statement",
			"do_statement",
			"switch_statement",
			"try_statement",
		}
	}
	return nil
}

// isBooleanOperator checks whether a binary expression node is && or ||
// (or Python's and/or), which count toward branch totals.
func isBooleanOperator(node *sitter.Node, source []byte, lang Language) bool {
	if node.Type() != "binary_expression" && node.Type() != "boolean_operator" {
		return false
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		switch lang {
		case LangPython:
			if child.Type() == "and" || child.Type() == "or" {
				return true
			}
		default:
			content := string(source[child.StartByte():child.EndByte()])
			if content == "&&" || content == "||" {
				return true
			}
		}
	}
	return false
}

// functionName extracts the declared name from a function node. Returns
// "" for anonymous closures.
func (e *extractor) functionName(node *sitter.Node) string {
	if nameNode := node.ChildByFieldName("name"); nameNode != nil {
		return e.text(nameNode)
	}
	return ""
}

// selfAliasFor returns the receiver/self identifier of a method so that
// calls through it resolve within the enclosing class.
func (e *extractor) selfAliasFor(node *sitter.Node) string {
	switch e.lang {
	case LangPython:
		params := node.ChildByFieldName("parameters")
		if params == nil {
			return ""
		}
		for i := 0; i < int(params.NamedChildCount()); i++ {
			child := params.NamedChild(i)
			if child.Type() == "identifier" {
				return e.text(child)
			}
			break
		}
		return ""
	case LangGo:
		recv := node.ChildByFieldName("receiver")
		if recv == nil {
			return ""
		}
		for i := 0; i < int(recv.NamedChildCount()); i++ {
			decl := recv.NamedChild(i)
			if decl.Type() == "parameter_declaration" {
				if name := decl.ChildByFieldName("name"); name != nil {
					return e.text(name)
				}
			}
		}
		return ""
	case LangJavaScript:
		return "this"
	}
	return ""
}

// goReceiverType returns the receiver's type name for a Go method
// declaration, stripping any pointer.
func (e *extractor) goReceiverType(node *sitter.Node) string {
	recv := node.ChildByFieldName("receiver")
	if recv == nil {
		return ""
	}
	for i := 0; i < int(recv.NamedChildCount()); i++ {
		decl := recv.NamedChild(i)
		if decl.Type() != "parameter_declaration" {
			continue
		}
		typeNode := decl.ChildByFieldName("type")
		if typeNode == nil {
			continue
		}
		if typeNode.Type() == "pointer_type" && typeNode.NamedChildCount() > 0 {
			typeNode = typeNode.NamedChild(0)
		}
		return e.text(typeNode)
	}
	return ""
}

// paramNames lists the declared parameter identifiers of a function node.
func (e *extractor) paramNames(node *sitter.Node) []string {
	params := node.ChildByFieldName("parameters")
	if params == nil {
		return nil
	}

	var names []string
	for i := 0; i < int(params.NamedChildCount()); i++ {
		child := params.NamedChild(i)
		switch child.Type() {
		case "identifier":
			names = append(names, e.text(child))
		case "typed_parameter", "list_splat_pattern", "dictionary_splat_pattern", "rest_pattern":
			for j := 0; j < int(child.NamedChildCount()); j++ {
				if inner := child.NamedChild(j); inner.Type() == "identifier" {
					names = append(names, e.text(inner))
					break
				}
			}
		case "default_parameter", "typed_default_parameter":
			if name := child.ChildByFieldName("name"); name != nil {
				names = append(names, e.text(name))
			}
		case "assignment_pattern": // javascript default parameter
			if left := child.ChildByFieldName("left"); left != nil && left.Type() == "identifier" {
				names = append(names, e.text(left))
			}
		case "parameter_declaration", "variadic_parameter_declaration": // go
			for j := 0; j < int(child.NamedChildCount()); j++ {
				if inner := child.NamedChild(j); inner.Type() == "identifier" {
					names = append(names, e.text(inner))
				}
			}
		}
	}
	return names
}

// recordParams binds parameter names into the function's local scope.
func (e *extractor) recordParams(node *sitter.Node, id string) {
	for _, name := range e.paramNames(node) {
		e.syms.locals[id][name] = true
	}
}

// extractFeatures takes the static feature snapshot for a definition.
// Counts cover the whole subtree, nested closures included, matching how
// the estimator's training features were produced.
func (e *extractor) extractFeatures(node *sitter.Node) Features {
	startLine := int(node.StartPoint().Row) + 1
	endLine := int(node.EndPoint().Row) + 1

	return Features{
		Lines:        endLine - startLine + 1,
		Branches:     e.countBranches(node),
		Parameters:   len(e.paramNames(node)),
		NestingDepth: e.maxNesting(node, 0),
		HasDocstring: e.hasDocstring(node),
	}
}

func (e *extractor) countBranches(node *sitter.Node) int {
	types := decisionNodeTypes(e.lang)
	count := 0

	var walk func(*sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}
		nodeType := n.Type()
		if containsType(types, nodeType) {
			if nodeType == "binary_expression" || nodeType == "boolean_operator" {
				if isBooleanOperator(n, e.source, e.lang) {
					count++
				}
			} else {
				count++
			}
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(node)
	return count
}

func (e *extractor) maxNesting(node *sitter.Node, depth int) int {
	types := nestingNodeTypes(e.lang)
	deepest := depth

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		childDepth := depth
		if containsType(types, child.Type()) {
			childDepth++
		}
		if d := e.maxNesting(child, childDepth); d > deepest {
			deepest = d
		}
	}
	return deepest
}

func (e *extractor) hasDocstring(node *sitter.Node) bool {
	switch e.lang {
	case LangPython:
		body := node.ChildByFieldName("body")
		if body == nil || body.NamedChildCount() == 0 {
			return false
		}
		first := body.NamedChild(0)
		if first.Type() != "expression_statement" || first.NamedChildCount() == 0 {
			return false
		}
		return first.NamedChild(0).Type() == "string"
	default:
		prev := node.PrevNamedSibling()
		return prev != nil && prev.Type() == "comment"
	}
}

// recordImport populates the file's import table from an import
// statement node.
func (e *extractor) recordImport(node *sitter.Node) {
	switch e.lang {
	case LangPython:
		e.recordPythonImport(node)
	case LangGo:
		e.recordGoImport(node)
	case LangJavaScript:
		e.recordJSImport(node)
	}
}

func (e *extractor) recordPythonImport(node *sitter.Node) {
	if node.Type() == "import_statement" {
		// import a.b [as c]
		for i := 0; i < int(node.NamedChildCount()); i++ {
			child := node.NamedChild(i)
			switch child.Type() {
			case "dotted_name":
				name := e.text(child)
				e.syms.imports.modules[name] = name
			case "aliased_import":
				name := child.ChildByFieldName("name")
				alias := child.ChildByFieldName("alias")
				if name != nil && alias != nil {
					e.syms.imports.modules[e.text(alias)] = e.text(name)
				}
			}
		}
		return
	}

	// from M import a [as b], c
	moduleNode := node.ChildByFieldName("module_name")
	if moduleNode == nil {
		return
	}
	module := e.resolveRelativeModule(e.text(moduleNode))

	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child == moduleNode {
			continue
		}
		switch child.Type() {
		case "dotted_name":
			symbol := e.text(child)
			e.syms.imports.symbols[symbol] = importedSymbol{module: module, symbol: symbol}
		case "aliased_import":
			name := child.ChildByFieldName("name")
			alias := child.ChildByFieldName("alias")
			if name != nil && alias != nil {
				e.syms.imports.symbols[e.text(alias)] = importedSymbol{module: module, symbol: e.text(name)}
			}
		case "wildcard_import":
			// from M import *: unqualified names may come from M; recorded
			// as a module fallback under its own name.
			e.syms.imports.modules[module] = module
		}
	}
}

// resolveRelativeModule converts "from ." / "from ..pkg" prefixes to
// absolute module paths relative to the current file's package.
func (e *extractor) resolveRelativeModule(name string) string {
	if !strings.HasPrefix(name, ".") {
		return name
	}

	dots := 0
	for dots < len(name) && name[dots] == '.' {
		dots++
	}
	rest := name[dots:]

	// Package of the current module: module path minus the file segment.
	pkg := e.syms.module
	for i := 0; i < dots; i++ {
		idx := strings.LastIndex(pkg, ".")
		if idx < 0 {
			pkg = ""
			break
		}
		pkg = pkg[:idx]
	}

	switch {
	case pkg == "":
		return rest
	case rest == "":
		return pkg
	default:
		return pkg + "." + rest
	}
}

func (e *extractor) recordGoImport(node *sitter.Node) {
	var walk func(*sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}
		if n.Type() == "import_spec" {
			pathNode := n.ChildByFieldName("path")
			if pathNode == nil {
				return
			}
			importPath := strings.Trim(e.text(pathNode), `"`)
			alias := path.Base(importPath)
			if nameNode := n.ChildByFieldName("name"); nameNode != nil {
				alias = e.text(nameNode)
			}
			e.syms.imports.modules[alias] = importPath
			return
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(node)
}

func (e *extractor) recordJSImport(node *sitter.Node) {
	sourceNode := node.ChildByFieldName("source")
	if sourceNode == nil {
		return
	}
	module := e.resolveJSModule(strings.Trim(e.text(sourceNode), `'"`))

	var walk func(*sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}
		switch n.Type() {
		case "import_specifier":
			name := n.ChildByFieldName("name")
			alias := n.ChildByFieldName("alias")
			if name == nil {
				return
			}
			local := e.text(name)
			if alias != nil {
				local = e.text(alias)
			}
			e.syms.imports.symbols[local] = importedSymbol{module: module, symbol: e.text(name)}
			return
		case "namespace_import":
			for i := 0; i < int(n.NamedChildCount()); i++ {
				if child := n.NamedChild(i); child.Type() == "identifier" {
					e.syms.imports.modules[e.text(child)] = module
				}
			}
			return
		case "identifier":
			// Default import: treat like a namespace binding.
			e.syms.imports.modules[e.text(n)] = module
			return
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			walk(n.NamedChild(i))
		}
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child != sourceNode {
			walk(child)
		}
	}
}

// resolveJSModule maps a relative import specifier to the module path of
// the target file.
func (e *extractor) resolveJSModule(spec string) string {
	if !strings.HasPrefix(spec, ".") {
		return spec
	}
	dir := path.Dir(e.syms.path)
	resolved := path.Join(dir, spec)
	return strings.TrimSuffix(resolved, path.Ext(resolved))
}

func containsType(types []string, t string) bool {
	for _, s := range types {
		if s == t {
			return true
		}
	}
	return false
}
