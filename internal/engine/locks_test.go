package engine

import (
    "sync"
    "testing"

    "github.com/stretchr/testify/assert"
)

func TestLockTableSameQueueSameMutex(t *testing.T) {
    lt := newLockTable()
    assert.Same(t, lt.forQueue("a"), lt.forQueue("a"))
    assert.NotSame(t, lt.forQueue("a"), lt.forQueue("b"))
}

func TestLockTableConcurrentAccess(t *testing.T) {
    lt := newLockTable()
    var wg sync.WaitGroup
    found := make([]*sync.Mutex, 50)
    for i := range found {
        wg.Add(1)
        go func(i int) {
            defer wg.Done()
            found[i] = lt.forQueue("shared")
        }(i)
    }
    wg.Wait()
    for _, m := range found {
        assert.Same(t, found[0], m)
    }
}
