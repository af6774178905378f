package store

import (
	"sync"
)

// KeyedMutex hands out one mutex per account id. The store serializes
// individual calls; this lock scopes a whole read-decide-write sequence so
// two units of work on the same account cannot interleave between the read
// and the write.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[int64]*accountLock
}

type accountLock struct {
	sync.Mutex
	refs int
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[int64]*accountLock)}
}

func (k *KeyedMutex) Lock(id int64) {
	k.mu.Lock()
	l, ok := k.locks[id]
	if !ok {
		l = &accountLock{}
		k.locks[id] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Mutex.Lock()
}

func (k *KeyedMutex) Unlock(id int64) {
	k.mu.Lock()
	l := k.locks[id]
	l.refs--
	if l.refs == 0 {
		delete(k.locks, id)
	}
	k.mu.Unlock()

	l.Mutex.Unlock()
}
