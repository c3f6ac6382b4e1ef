package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a sliding-window limiter backed by one sorted set per key.
// Every call is recorded, including rejected ones.
type Redis struct {
	client *redis.Client
	prefix string
	limit  int
	window time.Duration
	now    func() time.Time
	seq    atomic.Uint64
}

// NewRedis returns a Limiter allowing limit calls per key within window.
// A non-positive limit or window yields a limiter that allows everything.
func NewRedis(client *redis.Client, prefix string, limit int, window time.Duration) Limiter {
	if limit <= 0 || window <= 0 {
		return None()
	}
	return &Redis{
		client: client,
		prefix: prefix,
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

// NewRedisClient parses a redis:// URL into a client.
func NewRedisClient(rawURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	return redis.NewClient(opts), nil
}

// Allow records the call and reports whether the window still has room.
func (r *Redis) Allow(ctx context.Context, key string) (Decision, error) {
	now := r.now()
	start := now.Add(-r.window)
	setKey := r.prefix + key
	member := strconv.FormatInt(now.UnixMicro(), 10) + "-" + strconv.FormatUint(r.seq.Add(1), 10)

	pipeline := r.client.TxPipeline()
	pipeline.ZRemRangeByScore(ctx, setKey, "0", strconv.FormatInt(start.UnixMicro(), 10))
	pipeline.ZAdd(ctx, setKey, redis.Z{Score: float64(now.UnixMicro()), Member: member})
	pipeline.Expire(ctx, setKey, r.window)
	scores := pipeline.ZRangeWithScores(ctx, setKey, 0, -1)

	if _, err := pipeline.Exec(ctx); err != nil {
		return Decision{}, fmt.Errorf("rate limit %s: %w", setKey, err)
	}

	entries := scores.Val()
	if len(entries) <= r.limit {
		return Decision{Allowed: true}, nil
	}

	oldest := time.UnixMicro(int64(entries[0].Score))
	wait := oldest.Add(r.window).Sub(now)
	if wait < 0 {
		wait = 0
	}
	return Decision{RetryAfter: wait}, nil
}
