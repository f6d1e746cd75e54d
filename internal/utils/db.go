// 包 utils：PostgreSQL / Redis 连接工具，统一环境变量读取
package utils

import (
	"context"
	"database/sql"
	"os"
	"strconv"
	"time"

	"geohash-signature/internal/logger"

	_ "github.com/lib/pq"
)

// OpenPostgres：按 DSN 打开连接池（不建立连接）
func OpenPostgres(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(envInt("PG_MAX_OPEN_CONNS", 20))
	db.SetMaxIdleConns(envInt("PG_MAX_IDLE_CONNS", 10))
	db.SetConnMaxIdleTime(5 * time.Minute)
	return db, nil
}

// BuildPostgresDSNFromEnv：PG_HOST/PG_PORT/PG_USER/PG_PASSWORD/PG_DB/PG_SSLMODE；PG_DSN 非空时直接使用
func BuildPostgresDSNFromEnv() string {
	if dsn := os.Getenv("PG_DSN"); dsn != "" {
		return dsn
	}
	dsn := "postgres://" + envStr("PG_USER", "postgres")
	if pass := os.Getenv("PG_PASSWORD"); pass != "" {
		dsn += ":" + pass
	}
	dsn += "@" + envStr("PG_HOST", "localhost") + ":" + envStr("PG_PORT", "5432") +
		"/" + envStr("PG_DB", "geosig") + "?sslmode=" + envStr("PG_SSLMODE", "disable")
	return dsn
}

// OpenPostgresFromEnv：打开并在超时内 Ping，失败时关闭连接池
func OpenPostgresFromEnv(ctx context.Context) (*sql.DB, error) {
	db, err := OpenPostgres(BuildPostgresDSNFromEnv())
	if err != nil {
		return nil, err
	}
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.L().Debug("db_open", "host", envStr("PG_HOST", "localhost"), "db", envStr("PG_DB", "geosig"))
	return db, nil
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return def
}
