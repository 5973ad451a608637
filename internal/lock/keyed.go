// internal/lock/keyed.go
package lock

import "sync"

// Keyed hands out one mutex per key. Holders of different keys never block
// each other, and a key's mutex is released from the map once nobody holds
// or waits on it.
type Keyed[K comparable] struct {
	mu    sync.Mutex
	locks map[K]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

// NewKeyed creates an empty lock set.
func NewKeyed[K comparable]() *Keyed[K] {
	return &Keyed[K]{locks: map[K]*entry{}}
}

// Lock blocks until key is free and returns the function that frees it.
func (k *Keyed[K]) Lock(key K) (unlock func()) {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &entry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Unlock()
			k.mu.Lock()
			e.refs--
			if e.refs == 0 {
				delete(k.locks, key)
			}
			k.mu.Unlock()
		})
	}
}

// Len reports how many keys are currently held or awaited.
func (k *Keyed[K]) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
