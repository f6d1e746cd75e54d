// 包 geometry：形状与关系判定能力（基于 GEOS），为遍历与分片提供只读的几何协作者
package geometry

import (
	"errors"
	"fmt"
	"strings"

	"github.com/twpayne/go-geos"
)

var (
	// ErrInvalidShapeKind：输入不是可识别的面状几何（Polygon/MultiPolygon）
	ErrInvalidShapeKind = errors.New("invalid shape kind")
	// ErrUnknownRelation：关系名无法识别，属于配置期的形状类错误
	ErrUnknownRelation = fmt.Errorf("%w: unknown relation", ErrInvalidShapeKind)
)

// Relation：单元与形状之间的关系种类
type Relation int

const (
	Intersects Relation = iota + 1
	Within
	Contains
	Covers
	Crosses
	Disjoint
	Equals
	Overlaps
	Touches
)

var relationNames = map[Relation]string{
	Intersects: "intersects",
	Within:     "within",
	Contains:   "contains",
	Covers:     "covers",
	Crosses:    "crosses",
	Disjoint:   "disjoint",
	Equals:     "equals",
	Overlaps:   "overlaps",
	Touches:    "touches",
}

func (r Relation) String() string {
	if s, ok := relationNames[r]; ok {
		return s
	}
	return fmt.Sprintf("relation(%d)", int(r))
}

// ParseRelation：关系名 → 枚举（大小写不敏感）
func ParseRelation(name string) (Relation, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for r, s := range relationNames {
		if s == n {
			return r, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownRelation, name)
}

// ParseRelations：按顺序解析；空列表回退为 [intersects]
func ParseRelations(names []string) ([]Relation, error) {
	if len(names) == 0 {
		return []Relation{Intersects}, nil
	}
	out := make([]Relation, 0, len(names))
	for _, n := range names {
		r, err := ParseRelation(n)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// RelationNames：用于日志、缓存键与持久化的稳定字符串
func RelationNames(rs []Relation) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.String()
	}
	return out
}

// holds：关系判定
// 约束：within 按 “单元 within 形状” 计算，其余按 “形状 关系 单元” 计算（非交换）。
func (r Relation) holds(shape, cell *geos.Geom) bool {
	switch r {
	case Intersects:
		return shape.Intersects(cell)
	case Within:
		return cell.Within(shape)
	case Contains:
		return shape.Contains(cell)
	case Covers:
		return shape.Covers(cell)
	case Crosses:
		return shape.Crosses(cell)
	case Disjoint:
		return shape.Disjoint(cell)
	case Equals:
		return shape.Equals(cell)
	case Overlaps:
		return shape.Overlaps(cell)
	case Touches:
		return shape.Touches(cell)
	}
	return false
}
