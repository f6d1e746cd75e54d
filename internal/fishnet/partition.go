package fishnet

import (
	"errors"
	"fmt"
	"math"

	"geohash-signature/internal/geometry"
	"geohash-signature/internal/grid"
	"geohash-signature/internal/metrics"

	"github.com/twpayne/go-geos"
)

var ErrInvalidTileSize = errors.New("tile size must be positive")

// 文档注释：按固定网格切分形状
// 背景：瓦片对齐到 tileSize 的整数倍，覆盖形状外包矩形；瓦片与形状求交，交集按面拆分，供独立遍历。
// 约束：
// - 空交集或非面交集（线、点）直接跳过，不视为错误；
// - 输出按行优先（南到北、西到东），同一瓦片内按交集的组成顺序；
// - 形状为空时返回空切片。
func Partition(shape *geometry.Shape, tileSize float64) (parts []*geometry.Shape, err error) {
	if !(tileSize > 0) || math.IsInf(tileSize, 0) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTileSize, tileSize)
	}
	if shape == nil {
		return nil, fmt.Errorf("%w: nil shape", geometry.ErrInvalidShapeKind)
	}
	b, ok := shape.Bounds()
	if !ok {
		return nil, nil
	}
	// 拓扑异常时 GEOS panic
	defer func() {
		if r := recover(); r != nil {
			parts = nil
			err = fmt.Errorf("%w: partition: %v", geometry.ErrInvalidShapeKind, r)
		}
	}()
	x0 := int64(math.Floor(b.West / tileSize))
	y0 := int64(math.Floor(b.South / tileSize))
	for j := y0; float64(j)*tileSize < b.North; j++ {
		for i := x0; float64(i)*tileSize < b.East; i++ {
			tile := grid.Box{
				West:  float64(i) * tileSize,
				South: float64(j) * tileSize,
				East:  float64(i+1) * tileSize,
				North: float64(j+1) * tileSize,
			}
			got, err := clip(shape.Geom(), tile)
			if err != nil {
				return nil, err
			}
			parts = append(parts, got...)
		}
	}
	metrics.PartitionPartsTotal.Add(float64(len(parts)))
	return parts, nil
}

// clip：瓦片与形状的交集中的全部面
func clip(shape *geos.Geom, tile grid.Box) ([]*geometry.Shape, error) {
	t := geos.NewPolygon([][][]float64{tile.Ring()})
	defer t.Destroy()
	if !shape.Intersects(t) {
		return nil, nil
	}
	inter := shape.Intersection(t)
	if inter == nil || inter.IsEmpty() {
		return nil, nil
	}
	var out []*geometry.Shape
	for _, g := range polygons(inter) {
		if g.IsEmpty() || g.Area() <= 0 {
			continue
		}
		s, err := geometry.NewShape(g)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// polygons：展开 MultiPolygon / GeometryCollection 中的面
func polygons(g *geos.Geom) []*geos.Geom {
	switch g.TypeID() {
	case geos.TypeIDPolygon:
		return []*geos.Geom{g}
	case geos.TypeIDMultiPolygon, geos.TypeIDGeometryCollection:
		var out []*geos.Geom
		for i := 0; i < g.NumGeometries(); i++ {
			out = append(out, polygons(g.Geometry(i).Clone())...)
		}
		return out
	}
	return nil
}
