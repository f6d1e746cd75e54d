package middleware

import (
	"encoding/json"
	"log/slog"
	"math"
	"net/http"

	"geohash-signature/internal/config"
	"geohash-signature/internal/logger"

	"golang.org/x/time/rate"
)

// 文档注释：全局令牌桶限流（每秒）
// 背景：签名生成按面积消耗 CPU，入口限速防止突发请求占满 worker；超限直接返回 429，不排队。
func RateLimit(qps float64) func(http.Handler) http.Handler {
	burst := int(math.Ceil(qps))
	if burst < 1 {
		burst = 1
	}
	lim := rate.NewLimiter(rate.Limit(qps), burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !lim.Allow() {
				logger.L().Debug("rate_limited", "path", r.URL.Path, "ip", r.RemoteAddr)
				w.Header().Set("content-type", "application/json; charset=utf-8")
				w.Header().Set("retry-after", "1")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "rate limited"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Wrap：按配置组合来源白名单与限流；白名单在外层
func Wrap(next http.Handler, cfg config.Config, l *slog.Logger) http.Handler {
	h := next
	if cfg.RateLimitEnabled {
		h = RateLimit(cfg.RateLimitQPS)(h)
	}
	return AllowlistFromEnv(l).Wrap(h)
}
