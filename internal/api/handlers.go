package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"geohash-signature/internal/cache"
	"geohash-signature/internal/fishnet"
	"geohash-signature/internal/geometry"
	"geohash-signature/internal/grid"
	"geohash-signature/internal/ipgeo"
	"geohash-signature/internal/logger"
	"geohash-signature/internal/metrics"
	"geohash-signature/internal/signature"
	"geohash-signature/internal/store"

	"github.com/google/uuid"
)

// ipAreaDefaultLevel 定位精度圆通常为数公里到数百公里，默认级别较粗
const ipAreaDefaultLevel = 6

// 文档注释：POST /signature
// 背景：结果按（形状 WKB、级别、关系、是否分片）缓存；缓存未命中时先查存储中同一形状、级别与关系的最新记录；配置了存储时新生成的结果会持久化并返回记录 id。
// 约束：级别不得超过 GEOSIG_MAX_LEVEL；按外包矩形估算的单元数超过 GEOSIG_MAX_CELLS 时返回 422，不开始遍历。
func (s *Service) handleSignature(w http.ResponseWriter, r *http.Request) {
	var req signatureRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	shape, err := geometry.ParseGeoJSON(req.Shape)
	if err != nil {
		writeError(w, r, err)
		return
	}
	level := s.Config.DefaultLevel
	if req.Level != nil {
		level = *req.Level
	}
	if err := s.checkLevel(level); err != nil {
		writeError(w, r, err)
		return
	}
	rels, err := geometry.ParseRelations(req.Conditions)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.checkSize(shape, level); err != nil {
		writeError(w, r, err)
		return
	}
	tileSize := req.TileSize
	if req.Partition {
		if tileSize == 0 {
			tileSize = s.Config.TileSize
		}
		if err := s.checkTiles(shape, tileSize); err != nil {
			writeError(w, r, err)
			return
		}
	}
	names := geometry.RelationNames(rels)
	ctx := r.Context()
	key := cache.Key(shape.WKB(), level, names, req.Partition)
	if e, ok := s.Cache.Get(ctx, key); ok {
		metrics.SignaturesTotal.WithLabelValues("cached").Inc()
		logger.L().Debug("signature_cache_hit", "key", key)
		writeJSON(w, http.StatusOK, render(e, req.Compress, true))
		return
	}

	shapeKey := cache.ShapeKey(shape.WKB())
	if e, ok := s.findRecord(r, shapeKey, level, names); ok {
		s.Cache.Set(ctx, key, e)
		metrics.SignaturesTotal.WithLabelValues("stored").Inc()
		writeJSON(w, http.StatusOK, render(e, req.Compress, true))
		return
	}

	start := time.Now()
	var cells grid.CellSet
	if req.Partition {
		cells, err = s.orch.Generate(ctx, shape, level, rels, tileSize)
	} else {
		cells, err = s.Engine.Generate(shape, level, rels)
	}
	metrics.GenerateDurationMs.Observe(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.SignaturesTotal.WithLabelValues("error").Inc()
		writeError(w, r, err)
		return
	}
	metrics.SignaturesTotal.WithLabelValues("ok").Inc()
	logger.L().Info("signature_generated",
		"level", level,
		"conditions", names,
		"partition", req.Partition,
		"cells", cells.Len(),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	e := cache.Entry{Level: level, Relations: names, Signature: signature.CompressSet(cells)}
	if s.Records != nil {
		rec := &store.Record{
			ShapeKey:    shapeKey,
			Level:       level,
			Relations:   names,
			Partitioned: req.Partition,
			Signature:   e.Signature,
		}
		if err := s.Records.Save(ctx, rec); err != nil {
			logger.L().Warn("db_signature_save_error", "err", err)
		} else {
			e.ID = rec.ID.String()
		}
	}
	s.Cache.Set(ctx, key, e)
	writeJSON(w, http.StatusOK, render(e, req.Compress, false))
}

// findRecord：缓存未命中时查找已持久化的同一签名；分片与否结果相同，不区分
func (s *Service) findRecord(r *http.Request, shapeKey string, level int, names []string) (cache.Entry, bool) {
	if s.Records == nil {
		return cache.Entry{}, false
	}
	rec, err := s.Records.FindLatest(r.Context(), shapeKey, level, names)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			logger.L().Warn("db_signature_find_error", "err", err)
		}
		return cache.Entry{}, false
	}
	logger.L().Debug("signature_store_hit", "id", rec.ID.String())
	return cache.Entry{ID: rec.ID.String(), Level: rec.Level, Relations: rec.Relations, Signature: rec.Signature}, true
}

// GET /signature/{id}
func (s *Service) handleGetSignature(w http.ResponseWriter, r *http.Request) {
	if s.Records == nil {
		writeError(w, r, fmt.Errorf("signature store: %w", errUnavailable))
		return
	}
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	rec, err := s.Records.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	compress, _ := strconv.ParseBool(r.URL.Query().Get("compress"))
	e := cache.Entry{ID: rec.ID.String(), Level: rec.Level, Relations: rec.Relations, Signature: rec.Signature}
	writeJSON(w, http.StatusOK, recordResponse{
		signatureResponse: render(e, compress, false),
		ShapeKey:          rec.ShapeKey,
		Partitioned:       rec.Partitioned,
		CreatedAt:         rec.CreatedAt,
	})
}

// POST /partition：返回各分片组成的 FeatureCollection
func (s *Service) handlePartition(w http.ResponseWriter, r *http.Request) {
	var req partitionRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	shape, err := geometry.ParseGeoJSON(req.Shape)
	if err != nil {
		writeError(w, r, err)
		return
	}
	tileSize := req.TileSize
	if tileSize == 0 {
		tileSize = s.Config.TileSize
	}
	if err := s.checkTiles(shape, tileSize); err != nil {
		writeError(w, r, err)
		return
	}
	parts, err := fishnet.Partition(shape, tileSize)
	if err != nil {
		writeError(w, r, err)
		return
	}
	type feature struct {
		Type       string          `json:"type"`
		Properties map[string]any  `json:"properties"`
		Geometry   json.RawMessage `json:"geometry"`
	}
	features := make([]feature, 0, len(parts))
	for i, p := range parts {
		features = append(features, feature{
			Type:       "Feature",
			Properties: map[string]any{"part": i, "area": p.Area()},
			Geometry:   json.RawMessage(p.ToGeoJSON()),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"type": "FeatureCollection", "features": features})
}

// GET /ip-area?ip=&level=
func (s *Service) handleIPArea(w http.ResponseWriter, r *http.Request) {
	if s.Geo == nil {
		writeError(w, r, fmt.Errorf("geoip database: %w", errUnavailable))
		return
	}
	level := ipAreaDefaultLevel
	if v := r.URL.Query().Get("level"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: level %q", errBadRequest, v))
			return
		}
		level = n
	}
	if err := s.checkLevel(level); err != nil {
		writeError(w, r, err)
		return
	}
	area, err := s.Geo.Lookup(getClientIP(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	shape, err := area.Shape(ipgeo.DefaultSegments)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.checkSize(shape, level); err != nil {
		writeError(w, r, err)
		return
	}
	cells, err := s.Engine.Generate(shape, level, []geometry.Relation{geometry.Intersects})
	if err != nil {
		writeError(w, r, err)
		return
	}
	c := signature.CompressSet(cells)
	writeJSON(w, http.StatusOK, ipAreaResponse{
		IP:       area.IP,
		Country:  area.Country,
		City:     area.City,
		Lat:      area.Lat,
		Lon:      area.Lon,
		RadiusKm: area.RadiusKm,
		Level:    level,
		Count:    c.Len(),
		Prefix:   c.Prefix,
		Suffixes: c.Suffixes,
	})
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"workers":      s.Engine.Workers(),
		"max_level":    s.Config.MaxLevel,
		"cache_layers": s.Cache.Len(),
		"store":        s.Records != nil,
		"geoip":        s.Geo != nil,
	})
}

func (s *Service) checkLevel(level int) error {
	if err := grid.ValidateLevel(level); err != nil {
		return err
	}
	if level > s.Config.MaxLevel {
		return fmt.Errorf("%w: %d exceeds the configured maximum %d", grid.ErrInvalidLevel, level, s.Config.MaxLevel)
	}
	return nil
}

// checkSize：按外包矩形估算单元数
func (s *Service) checkSize(shape *geometry.Shape, level int) error {
	b, ok := shape.Bounds()
	if !ok || s.Config.MaxCells <= 0 {
		return nil
	}
	if n := grid.EstimateCells(b, level); n > float64(s.Config.MaxCells) {
		return fmt.Errorf("%w: about %.0f cells at level %d, limit %d", errTooManyCells, n, level, s.Config.MaxCells)
	}
	return nil
}

// checkTiles：瓦片数量同样受 GEOSIG_MAX_CELLS 限制
func (s *Service) checkTiles(shape *geometry.Shape, tileSize float64) error {
	if !(tileSize > 0) || math.IsInf(tileSize, 0) {
		return fmt.Errorf("%w: %v", fishnet.ErrInvalidTileSize, tileSize)
	}
	b, ok := shape.Bounds()
	if !ok || s.Config.MaxCells <= 0 {
		return nil
	}
	if n := (math.Floor(b.Width()/tileSize) + 2) * (math.Floor(b.Height()/tileSize) + 2); n > float64(s.Config.MaxCells) {
		return fmt.Errorf("%w: about %.0f tiles, limit %d", errTooManyCells, n, s.Config.MaxCells)
	}
	return nil
}

func render(e cache.Entry, compress, cached bool) signatureResponse {
	out := signatureResponse{
		ID:         e.ID,
		Level:      e.Level,
		Conditions: e.Relations,
		Count:      e.Signature.Len(),
		Cached:     cached,
	}
	if compress {
		prefix := e.Signature.Prefix
		out.Prefix = &prefix
		out.Suffixes = e.Signature.Suffixes
		return out
	}
	cells := signature.Expand(e.Signature)
	out.Cells = make([]string, len(cells))
	for i, c := range cells {
		out.Cells[i] = string(c)
	}
	return out
}
