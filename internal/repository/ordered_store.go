// Package repository contains data access logic separated from HTTP
// handlers and from the queue engine. This file defines the ordered
// store: a keyed, score-ordered collection holding the live client
// ordering of every queue. Lower score means earlier position.
package repository

import (
    "context"
    "errors"
    "fmt"

    "github.com/redis/go-redis/v9"
)

// ScoredMember pairs an ordered-set member with its score.  Members are
// JSON-encoded queue entries; scores are dense integers 1..N maintained
// by the engine.
type ScoredMember struct {
    Member string
    Score  float64
}

// OrderedStore is the substrate the queue engine mutates.  One logical
// ordered set exists per queue key.  Every method either succeeds, reports
// ErrMemberNotFound, or wraps ErrStoreUnavailable when the backing store
// cannot be reached; implementations never return partial results.
type OrderedStore interface {
    // Insert adds member with the given score, or re-scores it when the
    // exact member already exists.
    Insert(ctx context.Context, key string, score float64, member string) error
    // InsertAll adds or re-scores several members as one atomic
    // operation, so readers never observe a half-applied rewrite.
    InsertAll(ctx context.Context, key string, members []ScoredMember) error
    // Remove deletes one exact member. ErrMemberNotFound when absent.
    Remove(ctx context.Context, key, member string) error
    // RankOf returns the zero-based rank of the exact member ordered by
    // ascending score. ErrMemberNotFound when absent.
    RankOf(ctx context.Context, key, member string) (int64, error)
    // Range lists members between the 0-based inclusive ranks start and
    // stop; stop = -1 means "to the end".
    Range(ctx context.Context, key string, start, stop int64) ([]ScoredMember, error)
    // Cardinality returns the number of members under key.
    Cardinality(ctx context.Context, key string) (int64, error)
    // DeleteAll drops the ordered set and any associated metadata keys.
    DeleteAll(ctx context.Context, key string) error
}

// RedisOrderedStore implements OrderedStore on a Redis sorted set per
// queue.  Single commands are atomic on the Redis side, so concurrent
// readers never observe a half-applied mutation of one command; multi-key
// rewrites are serialized by the engine's per-queue lock.
type RedisOrderedStore struct {
    rdb *redis.Client
}

// NewRedisOrderedStore returns a store bound to the provided client.
func NewRedisOrderedStore(rdb *redis.Client) *RedisOrderedStore {
    return &RedisOrderedStore{rdb: rdb}
}

// entriesKey namespaces the sorted set holding a queue's live ordering.
func entriesKey(key string) string { return "queue:" + key + ":entries" }

// metaKey namespaces the hash holding a queue's cached metadata.  It is
// defined here because DeleteAll must drop it together with the ordering.
func metaKey(key string) string { return "queue:" + key + ":meta" }

func (s *RedisOrderedStore) Insert(ctx context.Context, key string, score float64, member string) error {
    if err := s.rdb.ZAdd(ctx, entriesKey(key), redis.Z{Score: score, Member: member}).Err(); err != nil {
        return storeErr("zadd", err)
    }
    return nil
}

func (s *RedisOrderedStore) InsertAll(ctx context.Context, key string, members []ScoredMember) error {
    if len(members) == 0 {
        return nil
    }
    zs := make([]redis.Z, len(members))
    for i, m := range members {
        zs[i] = redis.Z{Score: m.Score, Member: m.Member}
    }
    // One ZADD with every member; Redis applies it atomically.
    if err := s.rdb.ZAdd(ctx, entriesKey(key), zs...).Err(); err != nil {
        return storeErr("zadd", err)
    }
    return nil
}

func (s *RedisOrderedStore) Remove(ctx context.Context, key, member string) error {
    n, err := s.rdb.ZRem(ctx, entriesKey(key), member).Result()
    if err != nil {
        return storeErr("zrem", err)
    }
    if n == 0 {
        return ErrMemberNotFound
    }
    return nil
}

func (s *RedisOrderedStore) RankOf(ctx context.Context, key, member string) (int64, error) {
    rank, err := s.rdb.ZRank(ctx, entriesKey(key), member).Result()
    if err != nil {
        if errors.Is(err, redis.Nil) {
            return 0, ErrMemberNotFound
        }
        return 0, storeErr("zrank", err)
    }
    return rank, nil
}

func (s *RedisOrderedStore) Range(ctx context.Context, key string, start, stop int64) ([]ScoredMember, error) {
    zs, err := s.rdb.ZRangeWithScores(ctx, entriesKey(key), start, stop).Result()
    if err != nil {
        return nil, storeErr("zrange", err)
    }
    out := make([]ScoredMember, 0, len(zs))
    for _, z := range zs {
        m, _ := z.Member.(string)
        out = append(out, ScoredMember{Member: m, Score: z.Score})
    }
    return out, nil
}

func (s *RedisOrderedStore) Cardinality(ctx context.Context, key string) (int64, error) {
    n, err := s.rdb.ZCard(ctx, entriesKey(key)).Result()
    if err != nil {
        return 0, storeErr("zcard", err)
    }
    return n, nil
}

func (s *RedisOrderedStore) DeleteAll(ctx context.Context, key string) error {
    if err := s.rdb.Del(ctx, entriesKey(key), metaKey(key)).Err(); err != nil {
        return storeErr("del", err)
    }
    return nil
}

// storeErr wraps transport failures so callers can match
// errors.Is(err, ErrStoreUnavailable) without caring which Redis command
// failed.
func storeErr(op string, err error) error {
    return fmt.Errorf("%w: %s: %v", ErrStoreUnavailable, op, err)
}
