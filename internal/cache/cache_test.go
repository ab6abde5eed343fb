package cache

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opal-lang/fluentcore/internal/rwlock"
)

func strKey(s string) Key {
	var k Key
	copy(k[:], s)
	return k
}

func TestGetOrComputeMissThenHit(t *testing.T) {
	c := New[StringResult](10, 1<<20)
	calls := 0
	compute := func() (StringResult, error) {
		calls++
		return StringResult{Text: "hello"}, nil
	}

	v1, err := c.GetOrCompute(strKey("k1"), compute)
	require.NoError(t, err)
	assert.Equal(t, "hello", v1.Text)

	v2, err := c.GetOrCompute(strKey("k1"), compute)
	require.NoError(t, err)
	assert.Equal(t, "hello", v2.Text)
	assert.Equal(t, 1, calls, "compute must run once per key")
}

func TestGetOrComputePropagatesComputeError(t *testing.T) {
	c := New[StringResult](10, 1<<20)
	wantErr := errors.New("boom")
	_, err := c.GetOrCompute(strKey("k1"), func() (StringResult, error) {
		return StringResult{}, wantErr
	})
	assert.ErrorIs(t, err, wantErr)
	assert.Equal(t, 0, c.Len(), "a failed compute must not populate the cache")
}

func TestGetOrComputeDetectsCorruption(t *testing.T) {
	c := New[StringResult](10, 1<<20)
	key := strKey("k1")
	c.insertLocked(key, StringResult{Text: "first"}, 5)

	_, err := c.GetOrCompute(key, func() (StringResult, error) {
		t.Fatal("compute must not run on a cache hit")
		return StringResult{}, nil
	})
	require.NoError(t, err)

	// The stored bytes differ from a divergent recomputation.
	tok := rwlock.NewToken()
	_ = c.lock.Lock(tok)
	existing := c.entries[key].val
	c.lock.Unlock(tok)
	assert.False(t, bytesEqual(existing.Bytes(), StringResult{Text: "different"}.Bytes()))

	// Drive the slow path's disagreement branch: compute runs on a miss,
	// and while it runs another writer populates the same key with a
	// different value, so the write-locked re-check finds a divergent entry.
	key2 := strKey("k2")
	got, err := c.GetOrCompute(key2, func() (StringResult, error) {
		wtok := rwlock.NewToken()
		_ = c.lock.Lock(wtok)
		c.insertLocked(key2, StringResult{Text: "first"}, 5)
		c.lock.Unlock(wtok)
		return StringResult{Text: "different"}, nil
	})
	assert.ErrorIs(t, err, ErrCacheCorruption)
	assert.Equal(t, "first", got.Text)
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestConcurrentGetOrComputeSameKeyAgrees(t *testing.T) {
	c := New[StringResult](10, 1<<20)
	key := strKey("k2")
	var wg sync.WaitGroup
	results := make([]StringResult, 4)
	errs := make([]error, 4)
	wg.Add(4)
	for i := 0; i < 4; i++ {
		i := i
		go func() {
			defer wg.Done()
			results[i], errs[i] = c.GetOrCompute(key, func() (StringResult, error) {
				return StringResult{Text: "A"}, nil
			})
		}()
	}
	wg.Wait()
	for i := 0; i < 4; i++ {
		assert.NoError(t, errs[i])
		assert.Equal(t, "A", results[i].Text)
	}
}

func TestEvictionRespectsMaxEntries(t *testing.T) {
	c := New[StringResult](2, 0)
	for _, k := range []string{"a", "b", "c"} {
		_, err := c.GetOrCompute(strKey(k), func() (StringResult, error) {
			return StringResult{Text: k}, nil
		})
		require.NoError(t, err)
	}
	assert.LessOrEqual(t, c.Len(), 2)
}

func TestBumpGenerationClearsEntries(t *testing.T) {
	c := New[StringResult](10, 1<<20)
	_, err := c.GetOrCompute(strKey("k1"), func() (StringResult, error) {
		return StringResult{Text: "x"}, nil
	})
	require.NoError(t, err)
	require.Equal(t, 1, c.Len())

	gen := c.BumpGeneration()
	assert.Equal(t, uint64(1), gen)
	assert.Equal(t, 0, c.Len())
}

func TestPromotionToProtectedOnSecondHit(t *testing.T) {
	c := New[StringResult](10, 1<<20)
	key := strKey("k1")
	_, err := c.GetOrCompute(key, func() (StringResult, error) { return StringResult{Text: "x"}, nil })
	require.NoError(t, err)
	n := c.entries[key]
	require.Equal(t, segProbationary, n.segment)

	_, err = c.GetOrCompute(key, func() (StringResult, error) { return StringResult{Text: "x"}, nil })
	require.NoError(t, err)
	n = c.entries[key]
	require.Equal(t, segProbationary, n.segment, "one hit is not enough")

	_, err = c.GetOrCompute(key, func() (StringResult, error) { return StringResult{Text: "x"}, nil })
	require.NoError(t, err)
	n = c.entries[key]
	assert.Equal(t, segProtected, n.segment)
}
