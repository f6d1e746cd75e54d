package utils

import (
	"context"
	"time"

	"geohash-signature/internal/logger"

	"github.com/redis/go-redis/v9"
)

// OpenRedis：按地址与密码打开客户端；地址为空返回 nil
func OpenRedis(addr, pass string) *redis.Client {
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{Addr: addr, Password: pass})
}

// OpenRedisFromEnv：REDIS_HOST/REDIS_PORT/REDIS_PASS/REDIS_DB；Ping 失败时关闭客户端并返回错误
func OpenRedisFromEnv(ctx context.Context) (*redis.Client, error) {
	addr := envStr("REDIS_HOST", "127.0.0.1") + ":" + envStr("REDIS_PORT", "6379")
	db := envInt("REDIS_DB", 0)
	rc := redis.NewClient(&redis.Options{Addr: addr, Password: envStr("REDIS_PASS", ""), DB: db})
	pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rc.Ping(pctx).Err(); err != nil {
		_ = rc.Close()
		return nil, err
	}
	logger.L().Debug("redis_open", "addr", addr, "db", db)
	return rc, nil
}
