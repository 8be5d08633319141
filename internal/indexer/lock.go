package indexer

import (
	"context"
	"sync"
)

// keyedLock serializes work per key while letting different keys proceed in
// parallel. Entries are reference counted and removed once no goroutine holds
// or waits on them.
type keyedLock struct {
	mu    sync.Mutex
	locks map[string]*keyEntry
}

type keyEntry struct {
	sem  chan struct{} // capacity 1; a token in the channel means held
	refs int
}

func newKeyedLock() *keyedLock {
	return &keyedLock{locks: make(map[string]*keyEntry)}
}

// Lock blocks until key is free or ctx is done. On success the returned
// function releases the key and must be called exactly once.
func (k *keyedLock) Lock(ctx context.Context, key string) (func(), error) {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &keyEntry{sem: make(chan struct{}, 1)}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		k.drop(key, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.sem
			k.drop(key, e)
		})
	}, nil
}

func (k *keyedLock) drop(key string, e *keyEntry) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(k.locks, key)
	}
}

// size reports the number of live keys
func (k *keyedLock) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
