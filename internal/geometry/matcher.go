package geometry

import (
	"fmt"

	"geohash-signature/internal/grid"

	"github.com/twpayne/go-geos"
)

// 文档注释：单 worker 的判定器
// 背景：GEOS 上下文非线程安全，每个 worker 持有独立上下文与形状副本，判定期间不跨协程共享任何几何句柄。
// 约束：关系按顺序判定，任一成立即接受（逻辑或，首个成立即短路）；region 非空时单元还需与 region 相交。
type Matcher struct {
	ctx    *geos.Context
	shape  *geos.Geom
	region *geos.Geom
	rels   []Relation
	codec  grid.Codec
}

// NewMatcher：在新的 GEOS 上下文中重建 shape（与可选 region）
func NewMatcher(shape, region *Shape, rels []Relation, codec grid.Codec) (*Matcher, error) {
	if shape == nil {
		return nil, fmt.Errorf("%w: nil shape", ErrInvalidShapeKind)
	}
	if len(rels) == 0 {
		rels = []Relation{Intersects}
	}
	ctx := geos.NewContext()
	g, err := ctx.NewGeomFromWKB(shape.WKB())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidShapeKind, err)
	}
	m := &Matcher{ctx: ctx, shape: g, rels: append([]Relation(nil), rels...), codec: codec}
	if region != nil {
		rg, err := ctx.NewGeomFromWKB(region.WKB())
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidShapeKind, err)
		}
		m.region = rg
	}
	return m, nil
}

// Match：单元包围盒是否满足任一关系
func (m *Matcher) Match(c grid.Cell) (bool, error) {
	b, err := m.codec.Bounds(c)
	if err != nil {
		return false, err
	}
	cell := m.ctx.NewPolygon([][][]float64{b.Ring()})
	defer cell.Destroy()
	if m.region != nil && !m.region.Intersects(cell) {
		return false, nil
	}
	for _, r := range m.rels {
		if r.holds(m.shape, cell) {
			return true, nil
		}
	}
	return false, nil
}

// Close：释放上下文内的几何
func (m *Matcher) Close() {
	if m.region != nil {
		m.region.Destroy()
		m.region = nil
	}
	if m.shape != nil {
		m.shape.Destroy()
		m.shape = nil
	}
}
