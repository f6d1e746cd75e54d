package geometry

import (
	"fmt"

	"geohash-signature/internal/grid"

	"github.com/twpayne/go-geos"
)

// 文档注释：输入形状（只读）
// 背景：包装 GEOS 几何并缓存其 WKB；worker 通过 WKB 在各自的 GEOS 上下文中重建副本，避免跨协程共享句柄。
// 约束：仅接受 Polygon/MultiPolygon；空几何允许存在（遍历结果为空签名），其余类型返回 ErrInvalidShapeKind。
type Shape struct {
	geom *geos.Geom
	wkb  []byte
}

// NewShape：校验几何类型并构造 Shape
func NewShape(g *geos.Geom) (*Shape, error) {
	if g == nil {
		return nil, fmt.Errorf("%w: nil geometry", ErrInvalidShapeKind)
	}
	switch g.TypeID() {
	case geos.TypeIDPolygon, geos.TypeIDMultiPolygon:
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidShapeKind, g.Type())
	}
	return &Shape{geom: g, wkb: g.ToWKB()}, nil
}

// NewPolygon：由外环与洞（lon, lat 坐标）构造多边形；未闭合的环自动闭合
func NewPolygon(rings [][][]float64) (s *Shape, err error) {
	if len(rings) == 0 {
		return nil, fmt.Errorf("%w: polygon without rings", ErrInvalidShapeKind)
	}
	closed := make([][][]float64, 0, len(rings))
	for i, r := range rings {
		rr := closeRing(r)
		if len(rr) < 4 {
			return nil, fmt.Errorf("%w: ring %d has %d points", ErrInvalidShapeKind, i, len(rr))
		}
		closed = append(closed, rr)
	}
	// GEOS 在构造失败时 panic，这里转为错误返回
	defer func() {
		if r := recover(); r != nil {
			s = nil
			err = fmt.Errorf("%w: %v", ErrInvalidShapeKind, r)
		}
	}()
	return NewShape(geos.NewPolygon(closed))
}

// FromBox：单元包围盒构造的矩形形状
func FromBox(b grid.Box) (*Shape, error) {
	return NewPolygon([][][]float64{b.Ring()})
}

func closeRing(r [][]float64) [][]float64 {
	out := make([][]float64, 0, len(r)+1)
	for _, p := range r {
		if len(p) < 2 {
			continue
		}
		out = append(out, []float64{p[0], p[1]})
	}
	if n := len(out); n > 0 && (out[0][0] != out[n-1][0] || out[0][1] != out[n-1][1]) {
		out = append(out, []float64{out[0][0], out[0][1]})
	}
	return out
}

func (s *Shape) Geom() *geos.Geom { return s.geom }

// WKB：只读 WKB 快照，调用方不得修改
func (s *Shape) WKB() []byte { return s.wkb }

func (s *Shape) IsEmpty() bool { return s.geom.IsEmpty() }

// Kind：几何类型名（Polygon / MultiPolygon）
func (s *Shape) Kind() string { return s.geom.Type() }

func (s *Shape) Area() float64 { return s.geom.Area() }

// RepresentativePoint：保证位于形状内部或边界上的点（GEOS PointOnSurface）
// 返回：lat, lon 与是否存在；空形状返回 false。
func (s *Shape) RepresentativePoint() (float64, float64, bool) {
	if s.geom.IsEmpty() {
		return 0, 0, false
	}
	p := s.geom.PointOnSurface()
	if p == nil || p.IsEmpty() {
		return 0, 0, false
	}
	return p.Y(), p.X(), true
}

// Bounds：外包矩形；空形状返回 false
func (s *Shape) Bounds() (grid.Box, bool) {
	if s.geom.IsEmpty() {
		return grid.Box{}, false
	}
	b := s.geom.Bounds()
	return grid.Box{West: b.MinX, South: b.MinY, East: b.MaxX, North: b.MaxY}, true
}

// Relate：在默认上下文中判定 关系(形状, 单元矩形)，用于单次判定与测试
func (s *Shape) Relate(b grid.Box, r Relation) bool {
	cell := geos.NewPolygon([][][]float64{b.Ring()})
	defer cell.Destroy()
	return r.holds(s.geom, cell)
}

// Parts：多面拆分为单个多边形；单个多边形返回自身
func (s *Shape) Parts() ([]*Shape, error) {
	if s.geom.TypeID() != geos.TypeIDMultiPolygon {
		return []*Shape{s}, nil
	}
	n := s.geom.NumGeometries()
	out := make([]*Shape, 0, n)
	for i := 0; i < n; i++ {
		part, err := NewShape(s.geom.Geometry(i).Clone())
		if err != nil {
			return nil, err
		}
		if part.IsEmpty() {
			continue
		}
		out = append(out, part)
	}
	return out, nil
}

// ToGeoJSON：输出 GeoJSON 几何对象
func (s *Shape) ToGeoJSON() string { return s.geom.ToGeoJSON(0) }
