// 包 config：服务与命令行共享的环境变量配置
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// Config：进程级配置；数值非法时回退到默认值
type Config struct {
	Workers      int
	DefaultLevel int
	MaxLevel     int
	MaxCells     int
	TileSize     float64

	Addr    string
	APIBase string

	CacheSize int
	CacheTTL  time.Duration

	RateLimitEnabled bool
	RateLimitQPS     float64

	GeoIPDBPath  string
	PGEnabled    bool
	RedisEnabled bool

	TLSEnabled  bool
	TLSCertPath string
	TLSKeyPath  string
}

// FromEnv：读取 GEOSIG_* 与服务相关环境变量
// 约束：MaxLevel 被限制在 1..12；DefaultLevel 超出 MaxLevel 时取 MaxLevel。
func FromEnv() Config {
	c := Config{
		Workers:          intEnv("GEOSIG_WORKERS", runtime.GOMAXPROCS(0)),
		DefaultLevel:     intEnv("GEOSIG_DEFAULT_LEVEL", 10),
		MaxLevel:         intEnv("GEOSIG_MAX_LEVEL", 12),
		MaxCells:         intEnv("GEOSIG_MAX_CELLS", 5_000_000),
		TileSize:         floatEnv("GEOSIG_TILE_SIZE", 0.05),
		Addr:             strEnv("ADDR", ":8080"),
		APIBase:          strings.TrimRight(strEnv("API_BASE", "/api"), "/"),
		CacheSize:        intEnv("SIGNATURE_CACHE_SIZE", 1024),
		CacheTTL:         time.Duration(intEnv("SIGNATURE_CACHE_TTL_S", 3600)) * time.Second,
		RateLimitEnabled: boolEnv("RATE_LIMIT_ENABLED", false),
		RateLimitQPS:     floatEnv("RATE_LIMIT_QPS", 50),
		GeoIPDBPath:      os.Getenv("GEOIP_DB_PATH"),
		PGEnabled:        boolEnv("PG_ENABLED", false),
		RedisEnabled:     boolEnv("REDIS_ENABLED", false),
		TLSEnabled:       boolEnv("TLS_ENABLE", false),
		TLSCertPath:      strEnv("TLS_CERT_PATH", filepath.Join("data", "certs", "server.crt")),
		TLSKeyPath:       strEnv("TLS_KEY_PATH", filepath.Join("data", "certs", "server.key")),
	}
	if c.MaxLevel < 1 || c.MaxLevel > 12 {
		c.MaxLevel = 12
	}
	if c.DefaultLevel < 1 {
		c.DefaultLevel = 10
	}
	if c.DefaultLevel > c.MaxLevel {
		c.DefaultLevel = c.MaxLevel
	}
	return c
}

func strEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func intEnv(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func floatEnv(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil && f > 0 {
			return f
		}
	}
	return def
}

func boolEnv(key string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return def
}
