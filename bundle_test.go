package fluentcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBundleFormatPatternBasic(t *testing.T) {
	b, err := NewDefault([]string{"en"})
	require.NoError(t, err)

	_, perrs, verrs, err := b.AddResource("hello = Hello, { $name }!\n")
	require.NoError(t, err)
	assert.Empty(t, perrs)
	assert.Empty(t, verrs)

	text, rerrs := b.FormatPattern("hello", "", map[string]Value{"name": String("World")})
	assert.Empty(t, rerrs)
	assert.Equal(t, "Hello, World!", text)
}

func TestBundleFormatPatternCacheHitReturnsSameErrors(t *testing.T) {
	b, err := NewDefault([]string{"en"})
	require.NoError(t, err)

	_, _, _, err = b.AddResource("hello = Hi { $name }\n")
	require.NoError(t, err)

	args := map[string]Value{}
	_, errs1 := b.FormatPattern("hello", "", args)
	_, errs2 := b.FormatPattern("hello", "", args)
	require.Len(t, errs1, 1)
	require.Len(t, errs2, 1)
	assert.Equal(t, errs1[0].Kind, errs2[0].Kind)
	assert.Equal(t, errs1[0].Message, errs2[0].Message)
}

func TestBundleFreezeRejectsFurtherMutation(t *testing.T) {
	b, err := NewDefault([]string{"en"})
	require.NoError(t, err)
	require.NoError(t, b.Freeze())

	_, _, _, err = b.AddResource("hello = Hi\n")
	assert.ErrorIs(t, err, ErrFrozen)
}

func TestBundleAddResourceBumpsGenerationAndClearsCache(t *testing.T) {
	b, err := NewDefault([]string{"en"})
	require.NoError(t, err)

	_, _, _, err = b.AddResource("hello = Hi\n")
	require.NoError(t, err)
	g1 := b.Generation()

	b.FormatPattern("hello", "", nil)
	require.Equal(t, 1, b.cache.Len())

	_, _, _, err = b.AddResource("bye = Bye\n")
	require.NoError(t, err)
	g2 := b.Generation()
	assert.Greater(t, g2, g1)
	assert.Equal(t, 0, b.cache.Len())
}

func TestBundleValidationCatchesUndefinedReference(t *testing.T) {
	b, err := NewDefault([]string{"en"})
	require.NoError(t, err)
	_, _, verrs, err := b.AddResource("hello = Hi { missing }\n")
	require.NoError(t, err)
	require.Len(t, verrs, 1)
}

func TestBundleDiagnosticsRecordsCalls(t *testing.T) {
	b, err := NewDefault([]string{"en"})
	require.NoError(t, err)
	_, _, _, err = b.AddResource("hello = Hi\n")
	require.NoError(t, err)

	rec := NewDiagnosticsRecorder()
	b.EnableDiagnostics(rec)
	b.FormatPattern("hello", "", nil)
	b.FormatPattern("hello", "", nil)

	rep := rec.Snapshot()
	assert.Equal(t, uint64(2), rep.Iterations)
}

func TestDependencyGraphReflectsResources(t *testing.T) {
	b, err := NewDefault([]string{"en"})
	require.NoError(t, err)
	_, _, _, err = b.AddResource("a = { b }\nb = Hi\n")
	require.NoError(t, err)

	g := b.DependencyGraph()
	_, ok := g.NodeIndex("msg:a")
	assert.True(t, ok)
}
