package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opal-lang/fluentcore/internal/ast"
	"github.com/opal-lang/fluentcore/internal/parser"
)

func buildFrom(t *testing.T, src string) *Graph {
	t.Helper()
	res, perrs := parser.ParseDefault(src)
	require.Empty(t, perrs)
	idx := make(map[string]ast.Entry, len(res.Entries))
	for _, e := range res.Entries {
		switch v := e.(type) {
		case *ast.Message:
			idx["msg:"+v.ID] = v
		case *ast.Term:
			idx["term:-"+v.ID] = v
		}
	}
	return Build(idx)
}

func TestCanonicalizeRotationInvariant(t *testing.T) {
	_, k1 := Canonicalize([]string{"a", "b", "c"})
	_, k2 := Canonicalize([]string{"b", "c", "a"})
	assert.Equal(t, k1, k2)
}

func TestCanonicalizeIdempotent(t *testing.T) {
	rotated, key1 := Canonicalize([]string{"c", "a", "b"})
	_, key2 := Canonicalize(rotated)
	assert.Equal(t, key1, key2)
}

func TestDetectCyclesFindsSimpleCycle(t *testing.T) {
	g := buildFrom(t, "a = { b }\nb = { a }\n")
	cycles, truncated := DetectCycles(g, DefaultCycleBudget)
	assert.False(t, truncated)
	require.NotEmpty(t, cycles)
}

func TestDetectCyclesAcyclicGraph(t *testing.T) {
	g := buildFrom(t, "a = Hi\nb = { a }\nc = { b }\n")
	cycles, _ := DetectCycles(g, DefaultCycleBudget)
	assert.Empty(t, cycles)
}

func TestNodeIndexMissingReference(t *testing.T) {
	g := buildFrom(t, "a = { missing }\n")
	_, ok := g.NodeIndex("msg:missing")
	assert.False(t, ok)
	i, ok := g.NodeIndex("msg:a")
	assert.True(t, ok)
	assert.Empty(t, g.Edges(i), "an edge to an undefined target is not recorded")
}
