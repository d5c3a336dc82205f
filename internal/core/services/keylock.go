package services

import "sync"

// keyLock provides per-canonical-key mutual exclusion so a scoped pass
// and a full pass never write the same record concurrently.
type keyLock struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyLock() *keyLock {
	return &keyLock{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for key, creating it on first use.
// The map grows with the number of distinct posts, which is bounded.
func (k *keyLock) Lock(key string) {
	k.mu.Lock()
	lock, ok := k.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		k.locks[key] = lock
	}
	k.mu.Unlock()

	lock.Lock()
}

// Unlock releases the mutex for key.
func (k *keyLock) Unlock(key string) {
	k.mu.Lock()
	lock := k.locks[key]
	k.mu.Unlock()

	if lock != nil {
		lock.Unlock()
	}
}
