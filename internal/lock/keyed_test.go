// internal/lock/keyed_test.go
package lock

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKeyedSerializesSameKey(t *testing.T) {
	locks := NewKeyed[string]()
	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock("acct")
			defer unlock()
			v := counter
			time.Sleep(time.Microsecond)
			counter = v + 1
		}()
	}
	wg.Wait()
	assert.Equal(t, 200, counter)
	assert.Equal(t, 0, locks.Len())
}

func TestKeyedDifferentKeysDoNotBlock(t *testing.T) {
	locks := NewKeyed[int]()
	unlockA := locks.Lock(1)
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlock := locks.Lock(2)
		unlock()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on a different key blocked")
	}
}

func TestKeyedUnlockIsIdempotent(t *testing.T) {
	locks := NewKeyed[string]()
	unlock := locks.Lock("a")
	unlock()
	unlock()
	assert.Equal(t, 0, locks.Len())
}
