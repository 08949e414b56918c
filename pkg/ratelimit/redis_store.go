package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Sliding window over a sorted set scored by unix milliseconds.
// KEYS[1] = bucket key
// ARGV[1] = max requests
// ARGV[2] = window in ms
// ARGV[3] = now in ms
// ARGV[4] = unique member for this request
// Returns: 1 if allowed, 0 if denied
var slidingWindowScript = goredis.NewScript(`
local key = KEYS[1]
local limit = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, 0, now - window)

local count = redis.call('ZCARD', key)
if count >= limit then
    return 0
end

redis.call('ZADD', key, now, ARGV[4])
redis.call('PEXPIRE', key, window)
return 1
`)

// RedisStore is a Limiter whose state lives in Redis so several instances share one budget.
// When Redis is unreachable it fails open onto an in-memory Ledger.
type RedisStore struct {
	client    goredis.Scripter
	cfg       Config
	keyPrefix string
	fallback  *Ledger
	logger    *zap.Logger
	now       func() time.Time
}

// NewRedisStore creates a Redis-backed limiter. The fallback ledger uses the same config.
func NewRedisStore(client goredis.Scripter, cfg Config, logger *zap.Logger) *RedisStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg = cfg.withDefaults()
	return &RedisStore{
		client:    client,
		cfg:       cfg,
		keyPrefix: "rl:contact:",
		fallback:  NewLedger(cfg),
		logger:    logger,
		now:       time.Now,
	}
}

// Fallback exposes the in-memory ledger so it can be swept.
func (s *RedisStore) Fallback() *Ledger {
	return s.fallback
}

// Allow implements Limiter.
func (s *RedisStore) Allow(ctx context.Context, key string) bool {
	allowed, err := s.allow(ctx, key)
	if err != nil {
		s.logger.Warn("redis rate limit unavailable, using in-memory fallback",
			zap.String("key", key),
			zap.Error(err),
		)
		return s.fallback.Allow(ctx, key)
	}
	return allowed
}

func (s *RedisStore) allow(ctx context.Context, key string) (bool, error) {
	now := s.now().UnixMilli()
	res, err := slidingWindowScript.Run(ctx, s.client, []string{s.keyPrefix + key},
		s.cfg.MaxRequests,
		s.cfg.Window.Milliseconds(),
		now,
		fmt.Sprintf("%d-%s", now, uuid.NewString()),
	).Int64()
	if err != nil {
		return false, fmt.Errorf("redis sliding window eval failed: %w", err)
	}
	return res == 1, nil
}
