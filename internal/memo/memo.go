// Package memo provides a keyed compute-once cache.
//
// Values are loaded at most once per key, even when several goroutines ask
// for the same key concurrently. Load failures are cached alongside values so
// an expensive broken artifact is not retried on every call.
package memo

import (
	"fmt"
	"sync"
	"sync/atomic"
)

type entry[V any] struct {
	once  sync.Once
	done  atomic.Bool
	value V
	err   error
}

// Map memoizes the result of a load function per key. The zero value is ready
// to use.
type Map[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]*entry[V]
}

// Get returns the cached value for key, running load exactly once if the key
// has not been requested before. Concurrent callers for the same key block
// until the first load finishes and then share its result. A load that
// panics is cached as an error.
func (m *Map[K, V]) Get(key K, load func() (V, error)) (V, error) {
	e := m.lookup(key)
	if e == nil {
		e = m.insert(key)
	}

	e.once.Do(func() {
		defer func() {
			if r := recover(); r != nil {
				var zero V
				e.value, e.err = zero, fmt.Errorf("memo: load panicked: %v", r)
			}

			e.done.Store(true)
		}()

		e.value, e.err = load()
	})

	return e.value, e.err
}

// Range calls fn for every successfully loaded value. Iteration order is
// unspecified. Entries still loading are skipped.
func (m *Map[K, V]) Range(fn func(K, V)) {
	m.mu.RLock()
	snapshot := make(map[K]*entry[V], len(m.entries))
	for k, e := range m.entries {
		snapshot[k] = e
	}
	m.mu.RUnlock()

	for k, e := range snapshot {
		if e.done.Load() && e.err == nil {
			fn(k, e.value)
		}
	}
}

func (m *Map[K, V]) lookup(key K) *entry[V] {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.entries[key]
}

func (m *Map[K, V]) insert(key K) *entry[V] {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.entries[key]; ok {
		return e
	}

	if m.entries == nil {
		m.entries = make(map[K]*entry[V])
	}

	e := &entry[V]{}
	m.entries[key] = e

	return e
}
