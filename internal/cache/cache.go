package cache

import (
	"bytes"
	"container/list"
	"errors"

	"github.com/opal-lang/fluentcore/internal/rwlock"
)

// ErrCacheCorruption is returned when two concurrent writers compute
// different bytes for the same fingerprint key (spec §4.5 "write-once"
// invariant: a key's value, once observed, must never silently change).
var ErrCacheCorruption = errors.New("cache: concurrent writers disagree on value for the same key")

// Result is the contract a cached value must satisfy: a canonical byte
// representation, used both to size the entry for eviction accounting
// and to detect a corrupted write-once violation.
type Result interface {
	Bytes() []byte
}

// ErrorRecord is a cache-layer-agnostic copy of a resolution diagnostic,
// enough to reconstruct the caller's error type on both a cache miss and
// a later cache hit.
type ErrorRecord struct {
	Kind    string
	Message string
	EntryID string
}

// StringResult is the Result implementation the bundle layer uses to
// cache formatted pattern output together with the errors produced
// alongside it, so a cache hit reports the same diagnostics a fresh
// resolution would have.
type StringResult struct {
	Text   string
	Errors []ErrorRecord
}

func (r StringResult) Bytes() []byte {
	var b bytes.Buffer
	b.WriteString(r.Text)
	b.WriteByte(0)
	for _, e := range r.Errors {
		b.WriteString(e.Kind)
		b.WriteByte(0)
		b.WriteString(e.Message)
		b.WriteByte(0)
		b.WriteString(e.EntryID)
		b.WriteByte(0)
	}
	return b.Bytes()
}

const (
	segProbationary = 0
	segProtected    = 1
)

type node[V Result] struct {
	key     Key
	val     V
	weight  int
	hits    int
	segment int
	elem    *list.Element
}

// Cache is a bounded, segmented-LRU (probationary + protected tiers)
// write-once memoization table, guarded by an internal/rwlock.RWLock so
// that plain lookups run concurrently with each other while recency
// bookkeeping and insertion serialize briefly under the exclusive path
// (spec §4.5 "reads proceed under a shared lock; structural mutation —
// insertion, eviction, promotion — takes the exclusive path").
type Cache[V Result] struct {
	lock *rwlock.RWLock

	maxEntries   int
	maxBytes     int
	protectedCap int

	entries      map[Key]*node[V]
	protected    *list.List
	probationary *list.List
	totalBytes   int
	generation   uint64
}

// New builds a Cache bounded by maxEntries and maxBytes. The protected
// tier holds up to 80% of maxEntries; newly-inserted or single-hit
// entries live in the probationary tier and are promoted on a second
// hit, per the classic segmented-LRU admission policy.
func New[V Result](maxEntries, maxBytes int) *Cache[V] {
	protectedCap := maxEntries * 4 / 5
	if protectedCap < 1 {
		protectedCap = 1
	}
	return &Cache[V]{
		lock:         rwlock.New(),
		maxEntries:   maxEntries,
		maxBytes:     maxBytes,
		protectedCap: protectedCap,
		entries:      make(map[Key]*node[V]),
		protected:    list.New(),
		probationary: list.New(),
	}
}

// GetOrCompute returns the memoized result for key, computing and
// inserting it via compute if absent. The entry's eviction weight is
// its own Bytes() length, charged against maxBytes once compute returns
// — the size is never known before the value exists. If a concurrent
// writer already inserted a different value for the same key,
// ErrCacheCorruption is returned together with the value that is
// actually stored (the first writer wins).
func (c *Cache[V]) GetOrCompute(key Key, compute func() (V, error)) (V, error) {
	readTok := rwlock.NewToken()
	c.lock.RLock(readTok)
	n, ok := c.entries[key]
	var existing V
	if ok {
		existing = n.val
	}
	c.lock.RUnlock(readTok)
	if ok {
		c.recordHit(key)
		return existing, nil
	}

	computed, err := compute()
	if err != nil {
		var zero V
		return zero, err
	}

	// A fresh token per call means two concurrent GetOrCompute calls for
	// the same key are never mistaken for one reentrant owner: this Lock
	// genuinely contends with any other caller's write, rather than being
	// silently granted as a "re-entry".
	writeTok := rwlock.NewToken()
	_ = c.lock.Lock(writeTok)
	defer c.lock.Unlock(writeTok)

	if n, ok := c.entries[key]; ok {
		if !bytes.Equal(n.val.Bytes(), computed.Bytes()) {
			return n.val, ErrCacheCorruption
		}
		return n.val, nil
	}
	c.insertLocked(key, computed, len(computed.Bytes()))
	return computed, nil
}

// recordHit promotes key to the protected tier on its second observed
// hit and refreshes its recency, under a short exclusive section
// separate from the lookup itself.
func (c *Cache[V]) recordHit(key Key) {
	tok := rwlock.NewToken()
	_ = c.lock.Lock(tok)
	defer c.lock.Unlock(tok)

	n, ok := c.entries[key]
	if !ok {
		return
	}
	n.hits++
	switch n.segment {
	case segProtected:
		c.protected.MoveToFront(n.elem)
	case segProbationary:
		if n.hits >= 2 {
			c.promoteLocked(n)
		} else {
			c.probationary.MoveToFront(n.elem)
		}
	}
}

func (c *Cache[V]) promoteLocked(n *node[V]) {
	c.probationary.Remove(n.elem)
	if c.protected.Len() >= c.protectedCap {
		c.demoteOldestProtectedLocked()
	}
	n.segment = segProtected
	n.elem = c.protected.PushFront(n)
}

func (c *Cache[V]) demoteOldestProtectedLocked() {
	back := c.protected.Back()
	if back == nil {
		return
	}
	demoted := back.Value.(*node[V])
	c.protected.Remove(back)
	demoted.segment = segProbationary
	demoted.elem = c.probationary.PushFront(demoted)
}

func (c *Cache[V]) insertLocked(key Key, val V, weight int) {
	n := &node[V]{key: key, val: val, weight: weight, segment: segProbationary}
	n.elem = c.probationary.PushFront(n)
	c.entries[key] = n
	c.totalBytes += weight
	c.evictLocked()
}

func (c *Cache[V]) evictLocked() {
	for (c.maxEntries > 0 && len(c.entries) > c.maxEntries) || (c.maxBytes > 0 && c.totalBytes > c.maxBytes) {
		var victim *node[V]
		if back := c.probationary.Back(); back != nil {
			victim = back.Value.(*node[V])
			c.probationary.Remove(back)
		} else if back := c.protected.Back(); back != nil {
			victim = back.Value.(*node[V])
			c.protected.Remove(back)
		} else {
			return
		}
		delete(c.entries, victim.key)
		c.totalBytes -= victim.weight
	}
}

// Len reports the number of cached entries.
func (c *Cache[V]) Len() int {
	tok := rwlock.NewToken()
	c.lock.RLock(tok)
	defer c.lock.RUnlock(tok)
	return len(c.entries)
}

// Generation reports the cache's current generation counter.
func (c *Cache[V]) Generation() uint64 {
	tok := rwlock.NewToken()
	c.lock.RLock(tok)
	defer c.lock.RUnlock(tok)
	return c.generation
}

// BumpGeneration atomically discards every entry and advances the
// generation counter, so that any fingerprint computed against the new
// generation (spec §4.5 "a resource reload invalidates every outstanding
// key") can never collide with one computed before the bump.
func (c *Cache[V]) BumpGeneration() uint64 {
	tok := rwlock.NewToken()
	_ = c.lock.Lock(tok)
	defer c.lock.Unlock(tok)
	c.generation++
	c.entries = make(map[Key]*node[V])
	c.protected = list.New()
	c.probationary = list.New()
	c.totalBytes = 0
	return c.generation
}
