package callgraph

import (
	"fmt"
	"sort"
)

// Graph holds the FunctionNode registry and the aggregated CallEdge set.
// It is populated during the build phase and read-only afterwards.
type Graph struct {
	nodes map[string]*FunctionNode

	// edges aggregates call sites per (caller, callee) pair
	edges map[edgeKey]*CallEdge

	// callersOf indexes edges by callee for frequency lookups
	callersOf map[string][]*CallEdge

	// unresolved tallies call sites per caller that could not be matched
	// to a known FunctionNode
	unresolved map[string]int
}

type edgeKey struct {
	caller string
	callee string
}

// NewGraph creates an empty call graph.
func NewGraph() *Graph {
	return &Graph{
		nodes:      make(map[string]*FunctionNode),
		edges:      make(map[edgeKey]*CallEdge),
		callersOf:  make(map[string][]*CallEdge),
		unresolved: make(map[string]int),
	}
}

// AddFunction registers a FunctionNode. When the qualified identity is
// already taken (the same name redefined in the same scope) the node is
// re-keyed with an "@<line>" suffix so distinct definitions never collapse.
// Returns the ID under which the node was registered.
func (g *Graph) AddFunction(node *FunctionNode) string {
	if _, exists := g.nodes[node.ID]; exists {
		node.ID = fmt.Sprintf("%s@%d", node.ID, node.StartLine)
	}
	g.nodes[node.ID] = node
	return node.ID
}

// AddEdge records one call site from caller to callee. Both must already
// be registered. Self-loops are permitted.
func (g *Graph) AddEdge(caller, callee string) {
	key := edgeKey{caller: caller, callee: callee}
	if e, ok := g.edges[key]; ok {
		e.Count++
		return
	}
	e := &CallEdge{Caller: caller, Callee: callee, Count: 1}
	g.edges[key] = e
	g.callersOf[callee] = append(g.callersOf[callee], e)
}

// AddUnresolved tallies a call site within caller whose target could not
// be statically resolved. These never become edges but stay countable.
func (g *Graph) AddUnresolved(caller string) {
	g.unresolved[caller]++
}

// Function returns the node registered under id.
func (g *Graph) Function(id string) (*FunctionNode, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Functions returns all registered nodes sorted by ID for deterministic
// iteration.
func (g *Graph) Functions() []*FunctionNode {
	out := make([]*FunctionNode, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Edges returns all aggregated edges sorted by (caller, callee).
func (g *Graph) Edges() []*CallEdge {
	out := make([]*CallEdge, 0, len(g.edges))
	for _, e := range g.edges {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Caller != out[j].Caller {
			return out[i].Caller < out[j].Caller
		}
		return out[i].Callee < out[j].Callee
	})
	return out
}

// CallersOf returns the edges whose callee is id.
func (g *Graph) CallersOf(id string) []*CallEdge {
	return g.callersOf[id]
}

// CallFrequency returns the call-site-weighted in-degree of id: the sum
// of counts over all edges targeting it.
func (g *Graph) CallFrequency(id string) int {
	total := 0
	for _, e := range g.callersOf[id] {
		total += e.Count
	}
	return total
}

// UnresolvedCalls returns the unresolved-call tally for a caller.
func (g *Graph) UnresolvedCalls(caller string) int {
	return g.unresolved[caller]
}

// TotalUnresolved returns the run-wide unresolved-call tally.
func (g *Graph) TotalUnresolved() int {
	total := 0
	for _, n := range g.unresolved {
		total += n
	}
	return total
}

// Size returns the number of registered functions.
func (g *Graph) Size() int {
	return len(g.nodes)
}

// EdgeCount returns the number of aggregated edges.
func (g *Graph) EdgeCount() int {
	return len(g.edges)
}
