package lock

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

type memoryEntry struct {
	sem  *semaphore.Weighted
	refs int
}

// Memory is an in-process Locker. Entries are dropped once no caller holds
// or waits on them.
type Memory struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[string]*memoryEntry)}
}

func (m *Memory) Acquire(ctx context.Context, keys []string) (func(), error) {
	keys = sortedUnique(keys)
	held := make([]string, 0, len(keys))

	for _, key := range keys {
		entry := m.ref(key)
		if err := entry.sem.Acquire(ctx, 1); err != nil {
			m.unref(key)
			m.releaseAll(held)
			return nil, err
		}
		held = append(held, key)
	}

	var once sync.Once
	return func() {
		once.Do(func() { m.releaseAll(held) })
	}, nil
}

func (m *Memory) ref(key string) *memoryEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[key]
	if !ok {
		entry = &memoryEntry{sem: semaphore.NewWeighted(1)}
		m.entries[key] = entry
	}
	entry.refs++
	return entry
}

func (m *Memory) unref(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[key]
	if !ok {
		return
	}
	entry.refs--
	if entry.refs == 0 {
		delete(m.entries, key)
	}
}

func (m *Memory) releaseAll(keys []string) {
	for i := len(keys) - 1; i >= 0; i-- {
		m.mu.Lock()
		entry := m.entries[keys[i]]
		m.mu.Unlock()
		if entry != nil {
			entry.sem.Release(1)
		}
		m.unref(keys[i])
	}
}

// size reports how many keys are tracked.
func (m *Memory) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
