// This file defines the queue metadata cache: a small per-queue hash
// kept next to the ordering so that hot-path validation (status, limits,
// pricing) does not take a relational round trip.  The engine owns the
// read-through: on a miss it loads the durable record, repopulates the
// cache and only then proceeds.
package repository

import (
    "context"
    "strconv"
    "sync"
    "time"

    "github.com/redis/go-redis/v9"

    "github.com/quepass/quepass/internal/model"
)

// MetadataCache caches queue metadata records.  Get returns ErrCacheMiss
// when nothing is cached; Set upserts the full record; Invalidate drops
// it.  A cache that cannot be reached reports ErrStoreUnavailable.
type MetadataCache interface {
    Get(ctx context.Context, queueID string) (*model.Queue, error)
    Set(ctx context.Context, q *model.Queue) error
    Invalidate(ctx context.Context, queueID string) error
}

// RedisMetadataCache stores one Redis hash per queue under
// queue:{id}:meta.  The hash shares its lifetime with the ordering:
// OrderedStore.DeleteAll removes both.
type RedisMetadataCache struct {
    rdb *redis.Client
}

// NewRedisMetadataCache returns a cache bound to the provided client.
func NewRedisMetadataCache(rdb *redis.Client) *RedisMetadataCache {
    return &RedisMetadataCache{rdb: rdb}
}

func (c *RedisMetadataCache) Get(ctx context.Context, queueID string) (*model.Queue, error) {
    vals, err := c.rdb.HGetAll(ctx, metaKey(queueID)).Result()
    if err != nil {
        return nil, storeErr("hgetall", err)
    }
    // HGETALL returns an empty map, not redis.Nil, for a missing key.
    if len(vals) == 0 {
        return nil, ErrCacheMiss
    }
    q := &model.Queue{
        ID:          queueID,
        Name:        vals["name"],
        Description: vals["description"],
        Status:      vals["status"],
    }
    q.EstablishmentID, _ = strconv.ParseUint(vals["establishment_id"], 10, 64)
    q.MaxAdvance, _ = strconv.Atoi(vals["max_advance"])
    if p, err := strconv.ParseUint(vals["advance_price_cents"], 10, 32); err == nil {
        q.AdvancePriceCents = uint32(p)
    }
    q.MinutesPerPosition, _ = strconv.Atoi(vals["minutes_per_position"])
    q.CreatedAt, _ = time.Parse(time.RFC3339, vals["created_at"])
    q.UpdatedAt, _ = time.Parse(time.RFC3339, vals["updated_at"])
    return q, nil
}

func (c *RedisMetadataCache) Set(ctx context.Context, q *model.Queue) error {
    fields := map[string]interface{}{
        "establishment_id":     strconv.FormatUint(q.EstablishmentID, 10),
        "name":                 q.Name,
        "description":          q.Description,
        "status":               q.Status,
        "max_advance":          strconv.Itoa(q.MaxAdvance),
        "advance_price_cents":  strconv.FormatUint(uint64(q.AdvancePriceCents), 10),
        "minutes_per_position": strconv.Itoa(q.MinutesPerPosition),
        "created_at":           q.CreatedAt.UTC().Format(time.RFC3339),
        "updated_at":           q.UpdatedAt.UTC().Format(time.RFC3339),
    }
    if err := c.rdb.HSet(ctx, metaKey(q.ID), fields).Err(); err != nil {
        return storeErr("hset", err)
    }
    return nil
}

func (c *RedisMetadataCache) Invalidate(ctx context.Context, queueID string) error {
    if err := c.rdb.Del(ctx, metaKey(queueID)).Err(); err != nil {
        return storeErr("del", err)
    }
    return nil
}

// MemoryMetadataCache is the in-process MetadataCache counterpart of
// MemoryOrderedStore, used in tests.
type MemoryMetadataCache struct {
    mu    sync.RWMutex
    items map[string]model.Queue
}

// NewMemoryMetadataCache returns an empty in-memory cache.
func NewMemoryMetadataCache() *MemoryMetadataCache {
    return &MemoryMetadataCache{items: make(map[string]model.Queue)}
}

func (c *MemoryMetadataCache) Get(ctx context.Context, queueID string) (*model.Queue, error) {
    c.mu.RLock()
    defer c.mu.RUnlock()
    q, ok := c.items[queueID]
    if !ok {
        return nil, ErrCacheMiss
    }
    cp := q
    return &cp, nil
}

func (c *MemoryMetadataCache) Set(ctx context.Context, q *model.Queue) error {
    c.mu.Lock()
    defer c.mu.Unlock()
    c.items[q.ID] = *q
    return nil
}

func (c *MemoryMetadataCache) Invalidate(ctx context.Context, queueID string) error {
    c.mu.Lock()
    defer c.mu.Unlock()
    delete(c.items, queueID)
    return nil
}
