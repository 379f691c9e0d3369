package repository

import (
    "context"
    "sort"
    "sync"
)

// MemoryOrderedStore is an in-process OrderedStore used by unit tests and
// by local development without a Redis server.  Semantics match the Redis
// implementation: ascending score order with lexicographic member order
// breaking score ties, and ErrMemberNotFound for absent members.
type MemoryOrderedStore struct {
    mu   sync.RWMutex
    sets map[string]map[string]float64 // key -> member -> score

    // Fail, when set, makes every operation return ErrStoreUnavailable.
    // Tests use it to exercise degraded-store behavior.
    Fail bool
}

// NewMemoryOrderedStore returns an empty in-memory store.
func NewMemoryOrderedStore() *MemoryOrderedStore {
    return &MemoryOrderedStore{sets: make(map[string]map[string]float64)}
}

func (s *MemoryOrderedStore) Insert(ctx context.Context, key string, score float64, member string) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    if s.Fail {
        return ErrStoreUnavailable
    }
    set, ok := s.sets[key]
    if !ok {
        set = make(map[string]float64)
        s.sets[key] = set
    }
    set[member] = score
    return nil
}

func (s *MemoryOrderedStore) InsertAll(ctx context.Context, key string, members []ScoredMember) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    if s.Fail {
        return ErrStoreUnavailable
    }
    set, ok := s.sets[key]
    if !ok {
        set = make(map[string]float64)
        s.sets[key] = set
    }
    for _, m := range members {
        set[m.Member] = m.Score
    }
    return nil
}

func (s *MemoryOrderedStore) Remove(ctx context.Context, key, member string) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    if s.Fail {
        return ErrStoreUnavailable
    }
    set := s.sets[key]
    if _, ok := set[member]; !ok {
        return ErrMemberNotFound
    }
    delete(set, member)
    return nil
}

func (s *MemoryOrderedStore) RankOf(ctx context.Context, key, member string) (int64, error) {
    s.mu.RLock()
    defer s.mu.RUnlock()
    if s.Fail {
        return 0, ErrStoreUnavailable
    }
    ordered := s.ordered(key)
    for i, m := range ordered {
        if m.Member == member {
            return int64(i), nil
        }
    }
    return 0, ErrMemberNotFound
}

func (s *MemoryOrderedStore) Range(ctx context.Context, key string, start, stop int64) ([]ScoredMember, error) {
    s.mu.RLock()
    defer s.mu.RUnlock()
    if s.Fail {
        return nil, ErrStoreUnavailable
    }
    ordered := s.ordered(key)
    n := int64(len(ordered))
    if stop == -1 || stop >= n {
        stop = n - 1
    }
    if start < 0 {
        start = 0
    }
    if start > stop {
        return []ScoredMember{}, nil
    }
    out := make([]ScoredMember, stop-start+1)
    copy(out, ordered[start:stop+1])
    return out, nil
}

func (s *MemoryOrderedStore) Cardinality(ctx context.Context, key string) (int64, error) {
    s.mu.RLock()
    defer s.mu.RUnlock()
    if s.Fail {
        return 0, ErrStoreUnavailable
    }
    return int64(len(s.sets[key])), nil
}

func (s *MemoryOrderedStore) DeleteAll(ctx context.Context, key string) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    if s.Fail {
        return ErrStoreUnavailable
    }
    delete(s.sets, key)
    return nil
}

// ordered materializes the set under key sorted by (score, member).
// Callers must hold at least the read lock.
func (s *MemoryOrderedStore) ordered(key string) []ScoredMember {
    set := s.sets[key]
    out := make([]ScoredMember, 0, len(set))
    for m, sc := range set {
        out = append(out, ScoredMember{Member: m, Score: sc})
    }
    sort.Slice(out, func(i, j int) bool {
        if out[i].Score != out[j].Score {
            return out[i].Score < out[j].Score
        }
        return out[i].Member < out[j].Member
    })
    return out
}
