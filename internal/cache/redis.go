package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"geohash-signature/internal/logger"

	"github.com/redis/go-redis/v9"
)

// Redis：以 JSON 存储条目的共享缓存层
// 约束：Redis 故障只记录日志并视为未命中，不影响生成流程。
type Redis struct {
	rc  *redis.Client
	ttl time.Duration
}

func NewRedis(rc *redis.Client, ttl time.Duration) *Redis {
	return &Redis{rc: rc, ttl: ttl}
}

func (r *Redis) Name() string { return "redis" }

func (r *Redis) Get(ctx context.Context, key string) (Entry, bool) {
	b, err := r.rc.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.L().Warn("signature_cache_redis_get_error", "key", key, "err", err)
		}
		return Entry{}, false
	}
	var e Entry
	if err := json.Unmarshal(b, &e); err != nil {
		logger.L().Warn("signature_cache_redis_decode_error", "key", key, "err", err)
		return Entry{}, false
	}
	return e, true
}

func (r *Redis) Set(ctx context.Context, key string, e Entry) {
	b, err := json.Marshal(e)
	if err != nil {
		return
	}
	if err := r.rc.Set(ctx, key, b, r.ttl).Err(); err != nil {
		logger.L().Warn("signature_cache_redis_set_error", "key", key, "err", err)
	}
}
