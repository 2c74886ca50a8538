// Package handles maps small integer handles to host-owned values so they
// can be passed across boundaries that only carry integers.
package handles

import (
	"sync"
)

const maxEntries = 1<<31 - 1

// Table is a thread-safe handle table for values of type T. Handle 0 is
// never issued.
type Table[T any] struct {
	mu      sync.RWMutex
	entries map[uint32]T
	nextID  uint32
	destroy func(T)
	closed  bool
}

// New creates a table. destroy, if not nil, is called for a value when it is
// removed or when the table is closed.
func New[T any](destroy func(T)) *Table[T] {
	return &Table[T]{
		entries: make(map[uint32]T),
		destroy: destroy,
	}
}

// Add stores v and returns its handle. It returns 0 once the table is closed
// or the handle space is exhausted; v is then destroyed.
func (t *Table[T]) Add(v T) uint32 {
	t.mu.Lock()
	if t.closed || len(t.entries) >= maxEntries {
		t.mu.Unlock()
		t.release(v)
		return 0
	}
	for {
		t.nextID++
		if t.nextID == 0 {
			continue
		}
		if _, taken := t.entries[t.nextID]; !taken {
			break
		}
	}
	h := t.nextID
	t.entries[h] = v
	t.mu.Unlock()
	return h
}

// Get looks up a handle.
func (t *Table[T]) Get(h uint32) (T, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.entries[h]
	return v, ok
}

// Remove deletes the handle and destroys its value. It reports whether the
// handle existed.
func (t *Table[T]) Remove(h uint32) bool {
	t.mu.Lock()
	v, ok := t.entries[h]
	if ok {
		delete(t.entries, h)
	}
	t.mu.Unlock()
	if ok {
		t.release(v)
	}
	return ok
}

// Len returns the number of live handles.
func (t *Table[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Range calls f for each entry until f returns false. f must not modify the
// table.
func (t *Table[T]) Range(f func(h uint32, v T) bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for h, v := range t.entries {
		if !f(h, v) {
			break
		}
	}
}

// Close destroys every remaining value. Later Adds are rejected.
func (t *Table[T]) Close() {
	t.mu.Lock()
	entries := t.entries
	t.entries = make(map[uint32]T)
	t.closed = true
	t.mu.Unlock()

	for _, v := range entries {
		t.release(v)
	}
}

func (t *Table[T]) release(v T) {
	if t.destroy != nil {
		t.destroy(v)
	}
}
