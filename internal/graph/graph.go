// Package graph builds the per-bundle dependency graph of inter-entry
// references (spec §4.3) and enumerates its simple cycles. Nodes are
// fully-qualified entry ids ("msg:foo", "term:-bar"); edges run from
// referrer to referee, with attribute references contributing edges to
// the owning entry's node (the attribute name itself never becomes a
// node — only the entry that owns it does).
package graph

import (
	"sort"
	"strings"

	"github.com/opal-lang/fluentcore/internal/ast"
)

// DefaultCycleBudget bounds simple-cycle enumeration per bundle (spec §6),
// guarding against exponential blowup on densely connected graphs.
const DefaultCycleBudget = 10_000

// Graph is an arena of nodes addressed by dense integer ids, built once
// per bundle and never mutated afterwards.
type Graph struct {
	Nodes []string
	index map[string]int
	adj   [][]int
}

// NodeIndex returns the dense id for a fully-qualified node name, or
// (-1, false) if it isn't present (e.g. an undefined reference).
func (g *Graph) NodeIndex(name string) (int, bool) {
	i, ok := g.index[name]
	if !ok {
		return -1, false
	}
	return i, true
}

// Edges returns the outgoing edge target node indices for node i.
func (g *Graph) Edges(i int) []int { return g.adj[i] }

// Build walks every entry's pattern (value and attributes) and collects
// MessageReference/TermReference/FunctionReference-argument/SelectExpression
// targets into edges. entries is keyed by the fully-qualified node name
// the Bundle assigns each Message ("msg:"+ID) and Term ("term:-"+ID).
func Build(entries map[string]ast.Entry) *Graph {
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)

	g := &Graph{
		Nodes: names,
		index: make(map[string]int, len(names)),
		adj:   make([][]int, len(names)),
	}
	for i, name := range names {
		g.index[name] = i
	}

	for i, name := range names {
		var targets []string
		switch e := entries[name].(type) {
		case *ast.Message:
			collectPattern(e.Value, &targets)
			for _, a := range e.Attributes {
				collectPattern(a.Value, &targets)
			}
		case *ast.Term:
			collectPattern(e.Value, &targets)
			for _, a := range e.Attributes {
				collectPattern(a.Value, &targets)
			}
		}
		for _, t := range targets {
			if j, ok := g.index[t]; ok {
				g.adj[i] = append(g.adj[i], j)
			}
		}
	}
	return g
}

func collectPattern(pat *ast.Pattern, out *[]string) {
	if pat == nil {
		return
	}
	for _, el := range pat.Elements {
		if pl, ok := el.(*ast.Placeable); ok {
			collectExpr(pl.Expression, out)
		}
	}
}

func collectExpr(e ast.Expression, out *[]string) {
	switch v := e.(type) {
	case *ast.MessageReference:
		*out = append(*out, "msg:"+v.ID)
	case *ast.TermReference:
		*out = append(*out, "term:-"+v.ID)
		collectArgs(v.Args, out)
	case *ast.FunctionReference:
		collectArgs(v.Args, out)
	case *ast.SelectExpression:
		collectExpr(v.Selector, out)
		for _, variant := range v.Variants {
			collectPattern(variant.Value, out)
		}
	}
}

func collectArgs(a *ast.CallArguments, out *[]string) {
	if a == nil {
		return
	}
	for _, p := range a.Positional {
		collectExpr(p, out)
	}
	for _, n := range a.Named {
		collectExpr(n.Value, out)
	}
}

// Cycle is one simple cycle found by DetectCycles, with its canonical
// rotation-invariant key (spec §4.3 "Cycle canonicalization").
type Cycle struct {
	Nodes []string // in traversal order, starting at the canonical node
	Key   string
}

// Canonicalize rotates a simple cycle (given as a closed walk v0, v1, ...,
// v0 represented without the repeated trailing v0) to start at its
// lexicographically smallest node, preserving direction, then joins the
// rotated sequence with U+241F to form a stable key. Applying it twice is
// idempotent.
func Canonicalize(nodes []string) ([]string, string) {
	if len(nodes) == 0 {
		return nil, ""
	}
	minIdx := 0
	for i, n := range nodes {
		if n < nodes[minIdx] {
			minIdx = i
		}
	}
	rotated := make([]string, len(nodes))
	for i := range nodes {
		rotated[i] = nodes[(minIdx+i)%len(nodes)]
	}
	return rotated, strings.Join(rotated, "␟")
}

// DetectCycles enumerates all simple cycles in g via Tarjan's SCC
// decomposition followed by per-SCC Johnson's-algorithm enumeration,
// stopping once budget simple cycles have been found. truncated reports
// whether the budget was hit before enumeration completed.
func DetectCycles(g *Graph, budget int) (cycles []Cycle, truncated bool) {
	if budget <= 0 {
		budget = DefaultCycleBudget
	}
	n := len(g.Nodes)
	live := make([]bool, n)
	for i := range live {
		live[i] = true
	}

	j := &johnson{g: g, budget: budget}
	for s := 0; s < n; s++ {
		if !live[s] {
			continue
		}
		scc := tarjanFrom(g, live, s)
		if len(scc) == 0 {
			live[s] = false
			continue
		}
		inSCC := make(map[int]bool, len(scc))
		least := scc[0]
		for _, v := range scc {
			inSCC[v] = true
			if v < least {
				least = v
			}
		}
		if least != s {
			// s isn't the least vertex of its own SCC under this live
			// set; defer to when the outer loop reaches `least`.
			continue
		}
		j.blocked = make(map[int]bool, len(scc))
		j.B = make(map[int]map[int]bool, len(scc))
		j.stack = j.stack[:0]
		j.inSCC = inSCC
		j.start = s
		j.circuit(s)
		if j.truncated {
			return j.cycles, true
		}
		live[s] = false
	}
	return j.cycles, false
}

type johnson struct {
	g         *Graph
	budget    int
	cycles    []Cycle
	truncated bool

	blocked map[int]bool
	B       map[int]map[int]bool
	stack   []int
	inSCC   map[int]bool
	start   int
}

func (j *johnson) circuit(v int) bool {
	found := false
	j.stack = append(j.stack, v)
	j.blocked[v] = true

	for _, w := range j.g.Edges(v) {
		if !j.inSCC[w] {
			continue
		}
		if w == j.start {
			names := make([]string, len(j.stack))
			for i, idx := range j.stack {
				names[i] = j.g.Nodes[idx]
			}
			rotated, key := Canonicalize(names)
			j.cycles = append(j.cycles, Cycle{Nodes: rotated, Key: key})
			found = true
			if len(j.cycles) >= j.budget {
				j.truncated = true
				j.stack = j.stack[:len(j.stack)-1]
				return true
			}
		} else if !j.blocked[w] {
			if j.circuit(w) {
				found = true
			}
			if j.truncated {
				j.stack = j.stack[:len(j.stack)-1]
				return true
			}
		}
	}

	if found {
		j.unblock(v)
	} else {
		for _, w := range j.g.Edges(v) {
			if !j.inSCC[w] {
				continue
			}
			if j.B[w] == nil {
				j.B[w] = make(map[int]bool)
			}
			j.B[w][v] = true
		}
	}
	j.stack = j.stack[:len(j.stack)-1]
	return found
}

func (j *johnson) unblock(v int) {
	delete(j.blocked, v)
	for w := range j.B[v] {
		delete(j.B[v], w)
		if j.blocked[w] {
			j.unblock(w)
		}
	}
}

// tarjanFrom computes the strongly connected component containing s
// within the subgraph induced by live vertices with index >= s (the
// restriction Johnson's algorithm requires: earlier-processed vertices
// are excluded so that their cycles aren't re-enumerated).
func tarjanFrom(g *Graph, live []bool, s int) []int {
	n := len(g.Nodes)
	index := make([]int, n)
	lowlink := make([]int, n)
	onStack := make([]bool, n)
	for i := range index {
		index[i] = -1
	}
	var stack []int
	counter := 0
	var sccOfS []int

	var strongconnect func(v int)
	strongconnect = func(v int) {
		index[v] = counter
		lowlink[v] = counter
		counter++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range g.Edges(v) {
			if !live[w] || w < s {
				continue
			}
			if index[w] == -1 {
				strongconnect(w)
				if lowlink[w] < lowlink[v] {
					lowlink[v] = lowlink[w]
				}
			} else if onStack[w] {
				if index[w] < lowlink[v] {
					lowlink[v] = index[w]
				}
			}
		}

		if lowlink[v] == index[v] {
			var comp []int
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				comp = append(comp, w)
				if w == v {
					break
				}
			}
			if sccOfS == nil {
				for _, c := range comp {
					if c == s {
						sccOfS = comp
						return
					}
				}
			}
		}
	}

	for v := s; v < n; v++ {
		if !live[v] || v < s {
			continue
		}
		if index[v] == -1 && sccOfS == nil {
			strongconnect(v)
		}
		if sccOfS != nil {
			break
		}
	}
	return sccOfS
}
