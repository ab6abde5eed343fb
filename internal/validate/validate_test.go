package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opal-lang/fluentcore/internal/ast"
	"github.com/opal-lang/fluentcore/internal/parser"
)

func parseOK(t *testing.T, src string) *ast.Resource {
	t.Helper()
	res, perrs := parser.ParseDefault(src)
	require.Empty(t, perrs, "fixture must parse cleanly")
	return res
}

func TestResourceNoErrorsOnCleanInput(t *testing.T) {
	res := parseOK(t, "hello = Hello, { $name }!\n")
	errs := Resource(res, nil)
	assert.Empty(t, errs)
}

func TestResourceDetectsUndefinedReference(t *testing.T) {
	res := parseOK(t, "hello = Hi { missing }\n")
	errs := Resource(res, nil)
	require.Len(t, errs, 1)
	assert.Equal(t, UndefinedReference, errs[0].Kind)
}

func TestResourceSuggestsCloseMatch(t *testing.T) {
	res := parseOK(t, "greeting = hi\nhello = Hi { greting }\n")
	errs := Resource(res, nil)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Message, "did you mean")
}

func TestResourceDetectsDuplicateId(t *testing.T) {
	res := parseOK(t, "hello = A\nhello = B\n")
	var found bool
	for _, e := range Resource(res, nil) {
		if e.Kind == DuplicateId {
			found = true
		}
	}
	assert.True(t, found)
}

func TestResourceDetectsDuplicateAcrossCrossResourceIndex(t *testing.T) {
	first := parseOK(t, "hello = A\n")
	idx := make(Index)
	for _, e := range first.Entries {
		if m, ok := e.(*ast.Message); ok {
			idx["msg:"+m.ID] = m
		}
	}
	second := parseOK(t, "hello = B\n")
	var found bool
	for _, e := range Resource(second, idx) {
		if e.Kind == DuplicateId {
			found = true
		}
	}
	assert.True(t, found)
}

func TestResourceDetectsCycle(t *testing.T) {
	res := parseOK(t, "a = { b }\nb = { a }\n")
	var found bool
	for _, e := range Resource(res, nil) {
		if e.Kind == CyclicDependency {
			found = true
		}
	}
	assert.True(t, found)
}

func TestResourceCrossResourceReferenceResolves(t *testing.T) {
	first := parseOK(t, "greeting = Hi\n")
	idx := make(Index)
	for _, e := range first.Entries {
		if m, ok := e.(*ast.Message); ok {
			idx["msg:"+m.ID] = m
		}
	}
	second := parseOK(t, "hello = { greeting }\n")
	errs := Resource(second, idx)
	assert.Empty(t, errs)
}
