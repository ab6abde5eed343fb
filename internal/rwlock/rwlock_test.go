package rwlock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReentrantReadLock(t *testing.T) {
	l := New()
	tok := NewToken()
	l.RLock(tok)
	l.RLock(tok)
	l.RUnlock(tok)
	l.RUnlock(tok)
	// a third RUnlock for a token with no remaining hold is a no-op, not
	// a panic
	l.RUnlock(tok)
}

func TestReentrantWriteLock(t *testing.T) {
	l := New()
	tok := NewToken()
	require.NoError(t, l.Lock(tok))
	require.NoError(t, l.Lock(tok))
	require.NoError(t, l.Unlock(tok))
	require.NoError(t, l.Unlock(tok))
}

func TestReadToWriteUpgradeRejected(t *testing.T) {
	l := New()
	tok := NewToken()
	l.RLock(tok)
	defer l.RUnlock(tok)

	err := l.Lock(tok)
	assert.ErrorIs(t, err, ErrUpgradeRejected)
}

func TestDowngradeKeepsLockHeld(t *testing.T) {
	l := New()
	tok := NewToken()
	require.NoError(t, l.Lock(tok))
	require.NoError(t, l.Downgrade(tok))

	other := NewToken()
	done := make(chan struct{})
	go func() {
		l.RLock(other)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(200 * time.Millisecond):
		t.Fatal("a reader should be able to join after a downgrade")
	}
	l.RUnlock(tok)
	l.RUnlock(other)
}

func TestWriterPreferenceBlocksNewReaders(t *testing.T) {
	l := New()
	reader := NewToken()
	writer := NewToken()

	l.RLock(reader)

	writerAcquired := make(chan struct{})
	go func() {
		require.NoError(t, l.Lock(writer))
		close(writerAcquired)
	}()
	time.Sleep(20 * time.Millisecond) // let the writer register as waiting

	lateReader := NewToken()
	lateAcquired := make(chan struct{})
	go func() {
		l.RLock(lateReader)
		close(lateAcquired)
	}()

	select {
	case <-lateAcquired:
		t.Fatal("a new reader must not jump ahead of a waiting writer")
	case <-time.After(50 * time.Millisecond):
	}

	l.RUnlock(reader)
	<-writerAcquired
	l.Unlock(writer)
	<-lateAcquired
	l.RUnlock(lateReader)
}

func TestUnlockByNonOwnerRejected(t *testing.T) {
	l := New()
	tok := NewToken()
	other := NewToken()
	require.NoError(t, l.Lock(tok))
	assert.ErrorIs(t, l.Unlock(other), ErrNotOwner)
	require.NoError(t, l.Unlock(tok))
}

func TestTryLockTimedTimesOut(t *testing.T) {
	l := New()
	holder := NewToken()
	require.NoError(t, l.Lock(holder))
	defer l.Unlock(holder)

	err := l.TryLockTimed(NewToken(), 20*time.Millisecond)
	assert.ErrorIs(t, err, ErrTimeout)
}
