// Package callgraph builds a whole-program static call graph from source
// text via tree-sitter. One grammar is active per engine instance.
package callgraph

// Language represents a supported source grammar.
type Language string

const (
	LangPython     Language = "python"
	LangGo         Language = "go"
	LangJavaScript Language = "javascript"
)

// LanguageFromName returns the Language for a configuration name.
func LanguageFromName(name string) (Language, bool) {
	switch Language(name) {
	case LangPython, LangGo, LangJavaScript:
		return Language(name), true
	default:
		return "", false
	}
}

// Extensions returns the file extensions scanned for a language.
func (l Language) Extensions() []string {
	switch l {
	case LangPython:
		return []string{".py", ".pyw"}
	case LangGo:
		return []string{".go"}
	case LangJavaScript:
		return []string{".js", ".mjs", ".cjs", ".jsx"}
	default:
		return nil
	}
}

// Kind classifies a function definition.
type Kind string

const (
	// KindFunction is a top-level function
	KindFunction Kind = "function"
	// KindMethod is a function defined inside a class
	KindMethod Kind = "method"
	// KindNested is a function defined inside another function
	KindNested Kind = "nested"
)

// Features is the static feature snapshot taken once at parse time.
// It feeds the complexity estimator and is never recomputed.
type Features struct {
	// Lines is the number of source lines the definition spans
	Lines int `json:"lines"`

	// Branches is the number of decision points in the body
	Branches int `json:"branches"`

	// Parameters is the declared parameter count
	Parameters int `json:"parameters"`

	// NestingDepth is the maximum nesting depth of control structures
	NestingDepth int `json:"nestingDepth"`

	// HasDocstring reports whether the definition carries a doc comment
	HasDocstring bool `json:"hasDocstring"`
}

// FunctionNode is one function or method discovered during graph build.
// Nodes are immutable once registered; downstream stages reference them
// by ID and never copy or mutate them.
type FunctionNode struct {
	// ID is the globally unique qualified identity:
	// relative path + "::" + enclosing scope chain + name.
	ID string `json:"id"`

	// Name is the bare function name
	Name string `json:"name"`

	// File is the path relative to the analysis root
	File string `json:"file"`

	// StartLine and EndLine delimit the definition (1-based, inclusive)
	StartLine int `json:"startLine"`
	EndLine   int `json:"endLine"`

	// Kind is function, method, or nested function
	Kind Kind `json:"kind"`

	// ClassName is the enclosing class for methods, empty otherwise
	ClassName string `json:"className,omitempty"`

	// Features is the static feature snapshot
	Features Features `json:"features"`
}

// CallEdge is an aggregated caller -> callee relationship. Multiple call
// sites between the same pair collapse into one edge with a count.
type CallEdge struct {
	Caller string `json:"caller"`
	Callee string `json:"callee"`
	Count  int    `json:"count"`
}
