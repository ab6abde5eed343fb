package fluentcore

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestScenarioSelectFallthrough implements spec §8 scenario 1.
func TestScenarioSelectFallthrough(t *testing.T) {
	b, err := NewDefault([]string{"en"})
	require.NoError(t, err)
	_, _, _, err = b.AddResource(
		"-brand = Fluent\n" +
			"brand-description = { $platform ->\n" +
			"    [web] Visit { -brand } Online\n" +
			"   *[other] Desktop { -brand }\n" +
			"}\n")
	require.NoError(t, err)

	text, errs := b.FormatPattern("brand-description", "", map[string]Value{"platform": String("linux")})
	assert.Empty(t, errs)
	assert.Equal(t, "Desktop Fluent", text)
}

// TestScenarioTermIsolation implements spec §8 scenario 2: a term's own
// call arguments, not the calling message's, are what the term resolves
// variable references against.
func TestScenarioTermIsolation(t *testing.T) {
	b, err := NewDefault([]string{"en"})
	require.NoError(t, err)
	_, _, _, err = b.AddResource(
		"-greet = Hi { $name }\n" +
			"hello = { -greet(name: \"Ada\") } and also { $name }\n")
	require.NoError(t, err)

	text, errs := b.FormatPattern("hello", "", map[string]Value{"name": String("Bob")})
	assert.Empty(t, errs)
	assert.Equal(t, "Hi Ada and also Bob", text)
}

// TestScenarioCycleFallback implements spec §8 scenario 3.
func TestScenarioCycleFallback(t *testing.T) {
	b, err := NewDefault([]string{"en"})
	require.NoError(t, err)
	_, _, _, err = b.AddResource("a = { b }\nb = { a }\n")
	require.NoError(t, err)

	_, errs := b.FormatPattern("a", "", nil)
	require.Len(t, errs, 1)
	assert.Equal(t, "CyclicDependency", string(errs[0].Kind))
}

// TestScenarioBillionLaughsBudget implements spec §8 scenario 4: an
// exponentially self-referencing chain of messages is caught by the
// expansion-byte budget rather than exhausting memory.
func TestScenarioBillionLaughsBudget(t *testing.T) {
	b, err := New([]string{"en"}, Config{
		MaxPlaceableDepth:     100,
		MaxEntriesPerResource: 1000,
		MaxPatternBytes:       1 << 20,
		MaxResolutionDepth:    100,
		MaxExpansionBytes:     1 << 16,
		CacheMaxEntries:       1000,
		CacheMaxBytes:         1 << 20,
		HashNodeBudget:        10_000,
	})
	require.NoError(t, err)

	var sb strings.Builder
	sb.WriteString("l0 = .\n")
	for i := 1; i <= 30; i++ {
		fmt.Fprintf(&sb, "l%d = { l%d }{ l%d }\n", i, i-1, i-1)
	}
	_, _, _, err = b.AddResource(sb.String())
	require.NoError(t, err)

	_, errs := b.FormatPattern("l30", "", nil)
	require.NotEmpty(t, errs)
	var found bool
	for _, e := range errs {
		if string(e.Kind) == "ExpansionBudgetExceeded" {
			found = true
		}
	}
	assert.True(t, found)
}

// TestScenarioConcurrentFormat implements spec §8 scenario 5, scaled
// down from 8×10000 to keep the test fast while still exercising
// concurrent cache hits. It checks every call's text and error list; the
// cache hit ratio itself is not measured.
func TestScenarioConcurrentFormat(t *testing.T) {
	b, err := NewDefault([]string{"en"})
	require.NoError(t, err)
	_, _, _, err = b.AddResource("greet = Hello { $name }\n")
	require.NoError(t, err)

	const goroutines = 8
	const iterations = 500
	var wg sync.WaitGroup
	errCount := make([]int, goroutines)
	wg.Add(goroutines)
	for g := 0; g < goroutines; g++ {
		g := g
		go func() {
			defer wg.Done()
			for i := 0; i < iterations; i++ {
				text, errs := b.FormatPattern("greet", "", map[string]Value{"name": String("X")})
				if text != "Hello X" {
					errCount[g]++
				}
				errCount[g] += len(errs)
			}
		}()
	}
	wg.Wait()

	for _, c := range errCount {
		assert.Zero(t, c)
	}
}

// TestConcurrentAddResourceAndFormatPatternDoNotRace exercises a
// genuinely concurrent writer (AddResource) and reader (FormatPattern)
// against the same Bundle. Each call mints its own rwlock.Token, so
// neither is ever mistaken for the other's reentrant owner — the race
// detector, run with -race, is the actual judge of this test.
func TestConcurrentAddResourceAndFormatPatternDoNotRace(t *testing.T) {
	b, err := NewDefault([]string{"en"})
	require.NoError(t, err)
	_, _, _, err = b.AddResource("greet = Hello\n")
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			_, _, _, _ = b.AddResource(fmt.Sprintf("extra%d = value %d\n", i, i))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			_, _ = b.FormatPattern("greet", "", nil)
		}
	}()
	wg.Wait()
}

// TestConcurrentAddResourceCallsDoNotRace exercises two concurrent
// writers. Before each call minted its own token, both would have been
// granted the write lock simultaneously via tryLockLocked's reentrant
// "writer == tok" branch, corrupting the bundle's index/generation/cache
// under unsynchronized concurrent writes.
func TestConcurrentAddResourceCallsDoNotRace(t *testing.T) {
	b, err := NewDefault([]string{"en"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			_, _, _, _ = b.AddResource(fmt.Sprintf("a%d = value %d\n", i, i))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			_, _, _, _ = b.AddResource(fmt.Sprintf("b%d = value %d\n", i, i))
		}
	}()
	wg.Wait()

	assert.Equal(t, uint64(100), b.Generation())
}

// TestScenarioConcurrentReadersAfterWrite checks at the Bundle level
// that two readers started after AddResource completes (which itself
// takes and releases the write lock) both get the formatted text. The
// Bundle has no downgrade operation; write→read downgrade is covered by
// the rwlock package's own tests.
func TestScenarioConcurrentReadersAfterWrite(t *testing.T) {
	b, err := NewDefault([]string{"en"})
	require.NoError(t, err)
	_, _, _, err = b.AddResource("hello = Hi\n")
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(2)
	for i := 0; i < 2; i++ {
		go func() {
			defer wg.Done()
			text, errs := b.FormatPattern("hello", "", nil)
			assert.Empty(t, errs)
			assert.Equal(t, "Hi", text)
		}()
	}
	wg.Wait()
}
