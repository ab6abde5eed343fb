package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opal-lang/fluentcore/internal/ast"
)

func TestParseSimpleMessage(t *testing.T) {
	res, errs := ParseDefault("hello = Hello, World!\n")
	require.Empty(t, errs)
	require.Len(t, res.Entries, 1)
	msg, ok := res.Entries[0].(*ast.Message)
	require.True(t, ok)
	assert.Equal(t, "hello", msg.ID)
}

func TestParseRecoversIntoJunk(t *testing.T) {
	res, _ := ParseDefault("hello = Hi\n===not valid===\n\nbye = Bye\n")
	var hasJunk, hasBye bool
	for _, e := range res.Entries {
		switch v := e.(type) {
		case *ast.Junk:
			hasJunk = true
			assert.NotEmpty(t, v.Annotations)
		case *ast.Message:
			if v.ID == "bye" {
				hasBye = true
			}
		}
	}
	assert.True(t, hasJunk, "invalid syntax must recover into Junk, not abort the whole parse")
	assert.True(t, hasBye, "parsing must continue past the Junk entry")
}

func TestParseSelectExpressionRequiresDefault(t *testing.T) {
	_, errs := ParseDefault("count = { $n ->\n    [one] one\n}\n")
	assert.NotEmpty(t, errs)
}

// TestParseMaxPlaceableDepthBoundsNesting builds a chain of nested select
// expressions (the only construct that actually grows placeable depth)
// deep enough to exceed a tight MaxPlaceableDepth, and checks the parser
// rejects it with a diagnostic rather than recursing unboundedly.
func TestParseMaxPlaceableDepthBoundsNesting(t *testing.T) {
	depth := 10
	var open, close string
	for i := 0; i < depth; i++ {
		open += "{ $n ->\n   *[other] "
		close += "\n}"
	}
	src := "deep = " + open + "x" + close + "\n"

	_, errs := Parse(src, Options{MaxPlaceableDepth: 3, MaxEntriesPerResource: 100, MaxPatternBytes: 1 << 10})
	assert.NotEmpty(t, errs, "nesting beyond MaxPlaceableDepth must be rejected, not overflow the stack")
}

func TestParseMaxEntriesPerResource(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 10; i++ {
		sb.WriteString("m")
		sb.WriteString(strings.Repeat("x", i+1))
		sb.WriteString(" = v\n")
	}
	res, errs := Parse(sb.String(), Options{MaxPlaceableDepth: 10, MaxEntriesPerResource: 3, MaxPatternBytes: 1 << 10})
	assert.NotEmpty(t, errs)
	assert.LessOrEqual(t, len(res.Entries), 10)
}
