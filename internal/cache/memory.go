package cache

import (
	"container/list"
	"sync"
	"time"

	"github.com/vietddude/placefinder/internal/core/domain"
)

// memoryTier is the in-process tier: a mutex-guarded map with per-entry
// expiry and least-recently-used eviction once maxEntries is reached.
//
// Promotions from the remote tier are guarded by per-key generations. A
// reader takes the generation before its remote read and the promoted copy
// is only stored if no set or delete touched the key in the meantime.
type memoryTier struct {
	mu         sync.Mutex
	maxEntries int
	items      map[string]*list.Element
	order      *list.List // front = most recently used

	seq     uint64
	gens    map[string]uint64 // only populated while reads are pending
	pending int
}

func newMemoryTier(maxEntries int) *memoryTier {
	return &memoryTier{
		maxEntries: maxEntries,
		items:      make(map[string]*list.Element),
		order:      list.New(),
		gens:       make(map[string]uint64),
	}
}

func (t *memoryTier) get(key string, now time.Time) (domain.CacheEntry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	el, ok := t.items[key]
	if !ok {
		return domain.CacheEntry{}, false
	}
	entry := el.Value.(domain.CacheEntry)
	if !now.Before(entry.ExpiresAt()) {
		t.removeElement(el)
		return domain.CacheEntry{}, false
	}
	t.order.MoveToFront(el)
	return entry, true
}

func (t *memoryTier) set(entry domain.CacheEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.bump(entry.Key)
	t.store(entry)
}

func (t *memoryTier) delete(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.bump(key)
	if el, ok := t.items[key]; ok {
		t.removeElement(el)
	}
}

// generation starts a pending read of key. Every call must be followed by
// exactly one setIfGeneration or release.
func (t *memoryTier) generation(key string) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.pending++
	return t.gens[key]
}

// setIfGeneration stores entry unless key was set or deleted after gen was
// taken. It reports whether the entry was stored.
func (t *memoryTier) setIfGeneration(entry domain.CacheEntry, gen uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	current := t.gens[entry.Key]
	t.done()
	if current != gen {
		return false
	}
	t.store(entry)
	return true
}

// release ends a pending read that produced nothing to store.
func (t *memoryTier) release() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.done()
}

func (t *memoryTier) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.order.Len()
}

// caller holds mu
func (t *memoryTier) bump(key string) {
	if t.pending == 0 {
		return
	}
	t.seq++
	t.gens[key] = t.seq
}

// caller holds mu
func (t *memoryTier) done() {
	t.pending--
	if t.pending == 0 {
		clear(t.gens)
	}
}

// caller holds mu
func (t *memoryTier) store(entry domain.CacheEntry) {
	if el, ok := t.items[entry.Key]; ok {
		el.Value = entry
		t.order.MoveToFront(el)
		return
	}

	t.items[entry.Key] = t.order.PushFront(entry)
	for t.maxEntries > 0 && t.order.Len() > t.maxEntries {
		t.removeElement(t.order.Back())
	}
}

// caller holds mu
func (t *memoryTier) removeElement(el *list.Element) {
	t.order.Remove(el)
	delete(t.items, el.Value.(domain.CacheEntry).Key)
}
