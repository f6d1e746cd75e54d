// 包 api：签名服务的 HTTP 路由，挂载在 API_BASE 之下
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"geohash-signature/internal/cache"
	"geohash-signature/internal/config"
	"geohash-signature/internal/fishnet"
	"geohash-signature/internal/geometry"
	"geohash-signature/internal/grid"
	"geohash-signature/internal/ipgeo"
	"geohash-signature/internal/logger"
	"geohash-signature/internal/store"
	"geohash-signature/internal/traverse"

	"github.com/google/uuid"
)

const maxBodyBytes = 32 << 20

var (
	errBadRequest   = errors.New("bad request")
	errTooManyCells = errors.New("signature would exceed the cell limit")
	errUnavailable  = errors.New("not available")
)

// Recorder：签名持久化（*store.Store 实现）
type Recorder interface {
	Save(ctx context.Context, r *store.Record) error
	Get(ctx context.Context, id uuid.UUID) (*store.Record, error)
	FindLatest(ctx context.Context, shapeKey string, level int, relations []string) (*store.Record, error)
}

// Locator：IP 定位（*ipgeo.Locator 实现）
type Locator interface {
	Lookup(ip string) (ipgeo.Area, error)
}

// Service：路由依赖；Records / Geo 可为空，对应接口返回 404
type Service struct {
	Config  config.Config
	Engine  *traverse.Engine
	Cache   *cache.Chain
	Records Recorder
	Geo     Locator

	orch *fishnet.Orchestrator
}

func NewService(cfg config.Config, engine *traverse.Engine, c *cache.Chain) *Service {
	if c == nil {
		c = cache.NewChain()
	}
	return &Service{Config: cfg, Engine: engine, Cache: c, orch: fishnet.NewOrchestrator(engine)}
}

// Register：在 mux 上注册 base 前缀下的全部路由
func (s *Service) Register(mux *http.ServeMux, base string) {
	mux.HandleFunc("POST "+base+"/signature", s.handleSignature)
	mux.HandleFunc("GET "+base+"/signature/{id}", s.handleGetSignature)
	mux.HandleFunc("POST "+base+"/partition", s.handlePartition)
	mux.HandleFunc("GET "+base+"/ip-area", s.handleIPArea)
	mux.HandleFunc("GET "+base+"/health", s.handleHealth)
}

// statusFor：错误到状态码；输入类错误 400，其余 500
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, geometry.ErrInvalidShapeKind),
		errors.Is(err, grid.ErrInvalidLevel),
		errors.Is(err, grid.ErrInvalidCell),
		errors.Is(err, fishnet.ErrInvalidTileSize),
		errors.Is(err, ipgeo.ErrInvalidIP):
		return http.StatusBadRequest
	case errors.Is(err, errTooManyCells):
		return http.StatusUnprocessableEntity
	case errors.Is(err, store.ErrNotFound), errors.Is(err, ipgeo.ErrNoLocation), errors.Is(err, errUnavailable):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.Header().Set("cache-control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.L().Error("api_error", "path", r.URL.Path, "err", err)
	} else {
		logger.L().Debug("api_reject", "path", r.URL.Path, "status", status, "err", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}
