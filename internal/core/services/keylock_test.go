package services

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKeyLock_SerialisesSameKey(t *testing.T) {
	locks := newKeyLock()

	const workers = 8
	var mu sync.Mutex
	var inCritical, maxConcurrent int
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			locks.Lock("same")
			defer locks.Unlock("same")

			mu.Lock()
			inCritical++
			if inCritical > maxConcurrent {
				maxConcurrent = inCritical
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inCritical--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxConcurrent, "holders of the same key must not overlap")
}

func TestKeyLock_DistinctKeysIndependent(t *testing.T) {
	locks := newKeyLock()
	locks.Lock("a")
	defer locks.Unlock("a")

	done := make(chan struct{})
	go func() {
		locks.Lock("b")
		locks.Unlock("b")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("locking a distinct key blocked")
	}
}
