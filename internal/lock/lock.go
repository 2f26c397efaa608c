// Package lock serializes session mutations per account so that the
// read-decide-write of login, refresh and logout cannot interleave.
package lock

import (
	"context"
	"sync"
)

// Locker acquires an exclusive lock for key. The returned function releases it.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

type keyedEntry struct {
	mu   sync.Mutex
	refs int
}

// KeyedMutex is an in-process Locker holding one mutex per active key.
type KeyedMutex struct {
	mu      sync.Mutex
	entries map[string]*keyedEntry
}

// NewKeyedMutex returns an empty KeyedMutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{entries: make(map[string]*keyedEntry)}
}

// Lock blocks until key is free or ctx is done.
func (k *KeyedMutex) Lock(ctx context.Context, key string) (func(), error) {
	k.mu.Lock()
	entry, ok := k.entries[key]
	if !ok {
		entry = &keyedEntry{}
		k.entries[key] = entry
	}
	entry.refs++
	k.mu.Unlock()

	acquired := make(chan struct{})
	go func() {
		entry.mu.Lock()
		close(acquired)
	}()

	select {
	case <-acquired:
		return func() { k.release(key, entry) }, nil
	case <-ctx.Done():
		// the goroutine still takes the mutex; hand it straight back
		go func() {
			<-acquired
			k.release(key, entry)
		}()
		return nil, ctx.Err()
	}
}

func (k *KeyedMutex) release(key string, entry *keyedEntry) {
	entry.mu.Unlock()
	k.mu.Lock()
	entry.refs--
	if entry.refs == 0 {
		delete(k.entries, key)
	}
	k.mu.Unlock()
}

// Active returns the number of keys currently held or waited on.
func (k *KeyedMutex) Active() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}
