package usecase

import (
	"sync"

	"github.com/google/uuid"
)

// keyedMutex serializes operations per subject while letting different
// subjects proceed fully in parallel. Entries are reference counted and
// removed when the last holder unlocks, so the map does not grow with the
// number of subjects ever seen.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[uuid.UUID]*lockEntry)}
}

// Lock acquires the mutex for the key, creating it on first use.
func (k *keyedMutex) Lock(key uuid.UUID) {
	k.mu.Lock()
	entry, ok := k.locks[key]
	if !ok {
		entry = &lockEntry{}
		k.locks[key] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.mu.Lock()
}

// Unlock releases the mutex for the key, dropping the entry when no other
// goroutine is waiting on it.
func (k *keyedMutex) Unlock(key uuid.UUID) {
	k.mu.Lock()
	entry := k.locks[key]
	entry.refs--
	if entry.refs == 0 {
		delete(k.locks, key)
	}
	k.mu.Unlock()

	entry.mu.Unlock()
}
