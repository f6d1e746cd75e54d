// 包 geosig：geohash 签名的对外入口
//
// 签名是与形状满足给定关系（默认 intersects）的全部 geohash 单元。
// 包级函数使用默认并发度（GOMAXPROCS）；需要固定并发度时使用 Generator。
package geosig

import (
	"context"
	"time"

	"geohash-signature/internal/fishnet"
	"geohash-signature/internal/geometry"
	"geohash-signature/internal/grid"
	"geohash-signature/internal/metrics"
	"geohash-signature/internal/signature"
	"geohash-signature/internal/traverse"
)

type (
	Shape      = geometry.Shape
	Relation   = geometry.Relation
	Compressed = signature.Compressed
)

const DefaultLevel = 10

// DefaultTileSize 分片瓦片边长（度）
const DefaultTileSize = 0.05

var (
	ErrInvalidShapeKind = geometry.ErrInvalidShapeKind
	ErrUnknownRelation  = geometry.ErrUnknownRelation
	ErrInvalidLevel     = grid.ErrInvalidLevel
	ErrInvalidTileSize  = fishnet.ErrInvalidTileSize
)

func ParseGeoJSON(data []byte) (*Shape, error) { return geometry.ParseGeoJSON(data) }

func LoadGeoJSONFile(path string) (*Shape, error) { return geometry.LoadGeoJSONFile(path) }

// NewPolygon 由 (lon, lat) 环构造多边形，首环为外环
func NewPolygon(rings [][][]float64) (*Shape, error) { return geometry.NewPolygon(rings) }

// Generator 固定并发度的签名生成器，可并发使用
type Generator struct {
	engine *traverse.Engine
	orch   *fishnet.Orchestrator
}

// New：workers<=0 使用 GOMAXPROCS
func New(workers int) *Generator {
	e := traverse.New(grid.NewGeohash(), workers)
	return &Generator{engine: e, orch: fishnet.NewOrchestrator(e)}
}

func (g *Generator) Workers() int { return g.engine.Workers() }

// Generate：满足任一条件的单元，按字典序返回；conditions 为空时为 intersects
func (g *Generator) Generate(shape *Shape, level int, conditions ...string) ([]string, error) {
	rels, err := geometry.ParseRelations(conditions)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	cells, err := g.engine.Generate(shape, level, rels)
	observe(start, err)
	if err != nil {
		return nil, err
	}
	return cells.Strings(), nil
}

// GeneratePartitioned：先按 tileSize 切分再并行遍历，结果与 Generate 相同
func (g *Generator) GeneratePartitioned(ctx context.Context, shape *Shape, level int, tileSize float64, conditions ...string) ([]string, error) {
	rels, err := geometry.ParseRelations(conditions)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	cells, err := g.orch.Generate(ctx, shape, level, rels, tileSize)
	observe(start, err)
	if err != nil {
		return nil, err
	}
	return cells.Strings(), nil
}

func observe(start time.Time, err error) {
	metrics.GenerateDurationMs.Observe(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.SignaturesTotal.WithLabelValues("error").Inc()
		return
	}
	metrics.SignaturesTotal.WithLabelValues("ok").Inc()
}

// GenerateIntersecting 与形状相交的单元
func GenerateIntersecting(shape *Shape, level int) ([]string, error) {
	return New(0).Generate(shape, level, "intersects")
}

// GenerateWithin 完全位于形状内的单元
func GenerateWithin(shape *Shape, level int) ([]string, error) {
	return New(0).Generate(shape, level, "within")
}

func Generate(shape *Shape, level int, conditions []string) ([]string, error) {
	return New(0).Generate(shape, level, conditions...)
}

func GeneratePartitioned(shape *Shape, level int, conditions []string, tileSize float64) ([]string, error) {
	return New(0).GeneratePartitioned(context.Background(), shape, level, tileSize, conditions...)
}

func PartitionForParallelTraversal(shape *Shape, tileSize float64) ([]*Shape, error) {
	return fishnet.Partition(shape, tileSize)
}

// Compress 公共前缀压缩；Expand 为其逆运算
func Compress(cells []string) Compressed {
	cs := make([]grid.Cell, len(cells))
	for i, c := range cells {
		cs[i] = grid.Cell(c)
	}
	return signature.Compress(cs)
}

func Expand(c Compressed) []string {
	cells := signature.Expand(c)
	out := make([]string, len(cells))
	for i, cell := range cells {
		out[i] = string(cell)
	}
	return out
}

// WriteFeatureCollection 把单元矩形导出为 GeoJSON 文件
func WriteFeatureCollection(path string, cells []string) error {
	cs := make([]grid.Cell, len(cells))
	for i, c := range cells {
		cs[i] = grid.Cell(c)
	}
	return signature.WriteFeatureCollection(path, cs, grid.NewGeohash())
}
