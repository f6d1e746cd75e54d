// 程序入口：仅负责读取配置、初始化依赖并启动服务；API 注册在 internal/api 以便扩展
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"geohash-signature/internal/api"
	"geohash-signature/internal/cache"
	"geohash-signature/internal/config"
	"geohash-signature/internal/grid"
	"geohash-signature/internal/ipgeo"
	"geohash-signature/internal/logger"
	"geohash-signature/internal/metrics"
	"geohash-signature/internal/middleware"
	"geohash-signature/internal/migrate"
	"geohash-signature/internal/store"
	"geohash-signature/internal/traverse"
	"geohash-signature/internal/utils"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join("data", "env", ".env"))
	// 日志初始化
	l := logger.Setup()
	l.Debug("log_init_ok")
	cfg := config.FromEnv()
	l.Debug("config_loaded",
		"base", cfg.APIBase,
		"workers", cfg.Workers,
		"default_level", cfg.DefaultLevel,
		"max_level", cfg.MaxLevel,
		"max_cells", cfg.MaxCells,
		"tile_size", cfg.TileSize,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine := traverse.New(grid.NewGeohash(), cfg.Workers)
	layers := []cache.Layer{cache.NewLRU(cfg.CacheSize, cfg.CacheTTL)}

	// 文档注释：可选 Redis 二级缓存
	// 背景：多实例部署时共享签名结果；不可用时仅记录日志，服务退化为进程内缓存。
	if cfg.RedisEnabled {
		rc, err := utils.OpenRedisFromEnv(ctx)
		switch {
		case err != nil:
			l.Error("redis_ping_error", "err", err)
		case rc == nil:
			l.Info("redis_disabled", "reason", "no_addr")
		default:
			defer rc.Close()
			layers = append(layers, cache.NewRedis(rc, cfg.CacheTTL))
			l.Info("redis_ping_ok")
		}
	} else {
		l.Info("redis_disabled")
	}

	svc := api.NewService(cfg, engine, cache.NewChain(layers...))

	// 文档注释：可选 PostgreSQL 签名存储
	// 背景：建表失败视为配置错误，直接退出。
	if cfg.PGEnabled {
		db, err := utils.OpenPostgresFromEnv(ctx)
		if err != nil {
			l.Error("db_open_error", "err", err)
			os.Exit(1)
		}
		st := store.AttachDB(db)
		defer st.Close()
		l.Info("db_open_ok")
		if err := migrate.EnsureSchema(ctx, db); err != nil {
			l.Error("schema_error", "err", err)
			os.Exit(1)
		}
		svc.Records = st
	} else {
		l.Info("db_disabled")
	}

	if cfg.GeoIPDBPath != "" {
		loc, err := ipgeo.Open(cfg.GeoIPDBPath)
		if err != nil {
			l.Error("geoip_open_error", "path", cfg.GeoIPDBPath, "err", err)
		} else {
			defer loc.Close()
			info := loc.Info()
			l.Info("geoip_ready", "type", info.DatabaseType, "build", info.BuildTime)
			svc.Geo = loc
		}
	} else {
		l.Info("geoip_disabled")
	}

	mux := http.NewServeMux()
	svc.Register(mux, cfg.APIBase)
	mux.Handle("GET "+cfg.APIBase+"/metrics", metrics.Handler())

	handler := logger.AccessMiddleware(l)(mux)
	handler = middleware.Wrap(handler, cfg, l)
	s := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		l.Info("shutdown_begin")
		sctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := s.Shutdown(sctx); err != nil {
			l.Error("shutdown_error", "err", err)
		}
	}()

	var err error
	if cfg.TLSEnabled {
		if cerr := utils.EnsureSelfSignedCert(cfg.TLSCertPath, cfg.TLSKeyPath, "geohash-signature.local", 365*24*time.Hour); cerr != nil {
			l.Error("tls_cert_error", "err", cerr)
			os.Exit(1)
		}
		// 可选：启动HTTP重定向到HTTPS（不改变HTTPS运行端口）
		if os.Getenv("TLS_REDIRECT_ENABLE") == "true" {
			go serveRedirect(l, cfg.Addr)
		}
		l.Info("listening_tls", "addr", cfg.Addr, "cert", cfg.TLSCertPath)
		err = s.ListenAndServeTLS(cfg.TLSCertPath, cfg.TLSKeyPath)
	} else {
		l.Info("listening", "addr", cfg.Addr)
		err = s.ListenAndServe()
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		l.Error("server_error", "err", err)
		os.Exit(1)
	}
	l.Info("shutdown_done")
}

func serveRedirect(l *slog.Logger, httpsAddr string) {
	redirAddr := os.Getenv("TLS_REDIRECT_ADDR")
	if redirAddr == "" {
		redirAddr = ":80"
	}
	httpsPort := strings.TrimPrefix(httpsAddr, ":")
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host := r.Host
		if i := strings.LastIndex(host, ":"); i != -1 {
			host = host[:i]
		}
		if httpsPort != "" {
			host = host + ":" + httpsPort
		}
		target := "https://" + host + r.URL.RequestURI()
		http.Redirect(w, r, target, http.StatusMovedPermanently)
		l.Debug("http_redirect", "from", r.Host, "to", target)
	})
	l.Info("http_redirect_listening", "addr", redirAddr, "to", "https"+httpsAddr)
	_ = http.ListenAndServe(redirAddr, h)
}
