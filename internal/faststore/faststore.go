// Package faststore wraps the shared Redis client with the typed
// primitives the rest of the service is allowed to use: sorted sets,
// expiring presence markers, hash counters, id sets and approximate
// distinct counts. All mutations are single atomic commands (or one
// pipeline where Redis guarantees per-command atomicity); there is no
// read-modify-write at this layer.
package faststore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store is the typed adapter. Construct one per process and inject it;
// components never reach for a global client.
type Store struct {
	rdb *redis.Client
}

func New(rdb *redis.Client) *Store { return &Store{rdb: rdb} }

// Ping reports fast-store reachability.
func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// ZAddTrim adds member with the given score and trims the set to at most
// maxLen entries, dropping the lowest-scored (oldest) ones. maxLen <= 0
// disables trimming.
func (s *Store) ZAddTrim(ctx context.Context, key string, score float64, member string, maxLen int64) error {
	pipe := s.rdb.Pipeline()
	pipe.ZAdd(ctx, key, redis.Z{Score: score, Member: member})
	if maxLen > 0 {
		pipe.ZRemRangeByRank(ctx, key, 0, -(maxLen + 1))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("faststore: zadd %s: %w", key, err)
	}
	return nil
}

// ZRem removes member; a missing member is a successful no-op.
func (s *Store) ZRem(ctx context.Context, key, member string) error {
	if err := s.rdb.ZRem(ctx, key, member).Err(); err != nil {
		return fmt.Errorf("faststore: zrem %s: %w", key, err)
	}
	return nil
}

// ZRevRangeByScoreInt64 returns up to limit int64 members with score
// strictly below maxExclusive, highest first. maxExclusive <= 0 means
// unbounded.
func (s *Store) ZRevRangeByScoreInt64(ctx context.Context, key string, maxExclusive int64, limit int64) ([]int64, error) {
	max := "+inf"
	if maxExclusive > 0 {
		max = "(" + strconv.FormatInt(maxExclusive, 10)
	}
	vals, err := s.rdb.ZRevRangeByScore(ctx, key, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   max,
		Count: limit,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("faststore: zrevrangebyscore %s: %w", key, err)
	}
	out := make([]int64, 0, len(vals))
	for _, v := range vals {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, id)
	}
	return out, nil
}

// ZAdd sets member's score without trimming.
func (s *Store) ZAdd(ctx context.Context, key string, score float64, member string) error {
	if err := s.rdb.ZAdd(ctx, key, redis.Z{Score: score, Member: member}).Err(); err != nil {
		return fmt.Errorf("faststore: zadd %s: %w", key, err)
	}
	return nil
}

// ZRevRank returns the 0-based descending rank of member. ok is false
// when the member is not in the set.
func (s *Store) ZRevRank(ctx context.Context, key, member string) (int64, bool, error) {
	rank, err := s.rdb.ZRevRank(ctx, key, member).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("faststore: zrevrank %s: %w", key, err)
	}
	return rank, true, nil
}

// ZRevRangeWithScores returns the top limit members by descending
// score; limit <= 0 returns the whole set.
func (s *Store) ZRevRangeWithScores(ctx context.Context, key string, limit int64) ([]redis.Z, error) {
	stop := limit - 1
	if limit <= 0 {
		stop = -1
	}
	zs, err := s.rdb.ZRevRangeWithScores(ctx, key, 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("faststore: zrevrange %s: %w", key, err)
	}
	return zs, nil
}

// ZCard returns the cardinality of a sorted set.
func (s *Store) ZCard(ctx context.Context, key string) (int64, error) {
	n, err := s.rdb.ZCard(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("faststore: zcard %s: %w", key, err)
	}
	return n, nil
}

// SetMarker sets an expiring presence flag.
func (s *Store) SetMarker(ctx context.Context, key string, ttl time.Duration) error {
	if err := s.rdb.Set(ctx, key, "1", ttl).Err(); err != nil {
		return fmt.Errorf("faststore: set %s: %w", key, err)
	}
	return nil
}

// ClearMarker deletes a presence flag; absent keys are a no-op.
func (s *Store) ClearMarker(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("faststore: del %s: %w", key, err)
	}
	return nil
}

// MarkerSet reports whether the presence flag exists.
func (s *Store) MarkerSet(ctx context.Context, key string) (bool, error) {
	n, err := s.rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("faststore: exists %s: %w", key, err)
	}
	return n > 0, nil
}

// HIncrBy atomically adjusts a hash counter and returns the new value.
func (s *Store) HIncrBy(ctx context.Context, key, field string, delta int64) (int64, error) {
	n, err := s.rdb.HIncrBy(ctx, key, field, delta).Result()
	if err != nil {
		return 0, fmt.Errorf("faststore: hincrby %s.%s: %w", key, field, err)
	}
	return n, nil
}

// HGetInt64 reads a hash counter; a missing field reads as zero.
func (s *Store) HGetInt64(ctx context.Context, key, field string) (int64, error) {
	v, err := s.rdb.HGet(ctx, key, field).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("faststore: hget %s.%s: %w", key, field, err)
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("faststore: hget %s.%s: %w", key, field, err)
	}
	return n, nil
}

// HSet writes hash fields.
func (s *Store) HSet(ctx context.Context, key string, values ...interface{}) error {
	if err := s.rdb.HSet(ctx, key, values...).Err(); err != nil {
		return fmt.Errorf("faststore: hset %s: %w", key, err)
	}
	return nil
}

// HGet reads a string hash field; ok is false when the field is absent.
func (s *Store) HGet(ctx context.Context, key, field string) (string, bool, error) {
	v, err := s.rdb.HGet(ctx, key, field).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("faststore: hget %s.%s: %w", key, field, err)
	}
	return v, true, nil
}

// Exists reports whether a key exists at all.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("faststore: exists %s: %w", key, err)
	}
	return n > 0, nil
}

// SAdd registers members into a set and returns how many were actually
// new, so callers keeping counters alongside the set stay in sync when
// a member is registered twice.
func (s *Store) SAdd(ctx context.Context, key string, members ...string) (int64, error) {
	args := make([]interface{}, len(members))
	for i, m := range members {
		args[i] = m
	}
	n, err := s.rdb.SAdd(ctx, key, args...).Result()
	if err != nil {
		return 0, fmt.Errorf("faststore: sadd %s: %w", key, err)
	}
	return n, nil
}

// SRem removes a member and returns how many were actually removed, so
// callers can tell a lost race (0) from a real removal (1).
func (s *Store) SRem(ctx context.Context, key, member string) (int64, error) {
	n, err := s.rdb.SRem(ctx, key, member).Result()
	if err != nil {
		return 0, fmt.Errorf("faststore: srem %s: %w", key, err)
	}
	return n, nil
}

// SMembers lists the members of a set.
func (s *Store) SMembers(ctx context.Context, key string) ([]string, error) {
	vals, err := s.rdb.SMembers(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("faststore: smembers %s: %w", key, err)
	}
	return vals, nil
}

// SCard returns the cardinality of a set.
func (s *Store) SCard(ctx context.Context, key string) (int64, error) {
	n, err := s.rdb.SCard(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("faststore: scard %s: %w", key, err)
	}
	return n, nil
}

// Expire refreshes a key's time to live.
func (s *Store) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if err := s.rdb.Expire(ctx, key, ttl).Err(); err != nil {
		return fmt.Errorf("faststore: expire %s: %w", key, err)
	}
	return nil
}

// GetInt64 reads an integer key; ok is false when the key is absent.
func (s *Store) GetInt64(ctx context.Context, key string) (int64, bool, error) {
	v, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("faststore: get %s: %w", key, err)
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("faststore: get %s: %w", key, err)
	}
	return n, true, nil
}

// SetInt64 writes an integer key without expiry.
func (s *Store) SetInt64(ctx context.Context, key string, value int64) error {
	if err := s.rdb.Set(ctx, key, strconv.FormatInt(value, 10), 0).Err(); err != nil {
		return fmt.Errorf("faststore: set %s: %w", key, err)
	}
	return nil
}

// Del removes a key; absent keys are a no-op.
func (s *Store) Del(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("faststore: del %s: %w", key, err)
	}
	return nil
}

// PFAdd records a member into an approximate distinct counter and
// refreshes the bucket's expiry.
func (s *Store) PFAdd(ctx context.Context, key, member string, ttl time.Duration) error {
	pipe := s.rdb.Pipeline()
	pipe.PFAdd(ctx, key, member)
	if ttl > 0 {
		pipe.Expire(ctx, key, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("faststore: pfadd %s: %w", key, err)
	}
	return nil
}

// PFCount estimates the distinct count of a bucket. Missing buckets
// count as zero.
func (s *Store) PFCount(ctx context.Context, key string) (int64, error) {
	n, err := s.rdb.PFCount(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("faststore: pfcount %s: %w", key, err)
	}
	return n, nil
}
