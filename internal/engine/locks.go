package engine

import "sync"

// lockTable hands out one mutex per queue id so that mutations on the
// same queue serialize while different queues never contend. Mutexes
// are created lazily and never removed; the set of live queues is small
// and a stale mutex for a closed queue is harmless.
type lockTable struct {
    mu    sync.Mutex
    locks map[string]*sync.Mutex
}

func newLockTable() *lockTable {
    return &lockTable{locks: make(map[string]*sync.Mutex)}
}

// forQueue returns the mutex dedicated to the given queue id.
func (t *lockTable) forQueue(id string) *sync.Mutex {
    t.mu.Lock()
    defer t.mu.Unlock()
    l, ok := t.locks[id]
    if !ok {
        l = &sync.Mutex{}
        t.locks[id] = l
    }
    return l
}
