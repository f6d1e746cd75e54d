// 包 grid：geohash 网格能力（编码、邻接、包围盒）与网格单元集合
package grid

import "sort"

// Cell：固定精度的网格编码（geohash 字符串），编码相同即为同一单元
type Cell string

// CellSet：无序去重集合，用于遍历过程中的 visited/frontier/accepted 三种角色
type CellSet map[Cell]struct{}

func NewCellSet(cells ...Cell) CellSet {
	s := make(CellSet, len(cells))
	for _, c := range cells {
		s[c] = struct{}{}
	}
	return s
}

func (s CellSet) Add(c Cell)    { s[c] = struct{}{} }
func (s CellSet) Len() int      { return len(s) }
func (s CellSet) Remove(c Cell) { delete(s, c) }

func (s CellSet) Has(c Cell) bool {
	_, ok := s[c]
	return ok
}

// AddAll：并入多个单元，返回新增数量（已存在的不计）
func (s CellSet) AddAll(cells []Cell) int {
	added := 0
	for _, c := range cells {
		if _, ok := s[c]; ok {
			continue
		}
		s[c] = struct{}{}
		added++
	}
	return added
}

// Union：并入另一个集合（原地修改 s）
func (s CellSet) Union(o CellSet) {
	for c := range o {
		s[c] = struct{}{}
	}
}

// Sorted：按字典序输出，作为集合的确定性顺序
func (s CellSet) Sorted() []Cell {
	out := make([]Cell, 0, len(s))
	for c := range s {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Strings：排序后的字符串形式，便于序列化与压缩
func (s CellSet) Strings() []string {
	cs := s.Sorted()
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = string(c)
	}
	return out
}

// SubsetOf：s 的每个单元都在 o 中
func (s CellSet) SubsetOf(o CellSet) bool {
	for c := range s {
		if !o.Has(c) {
			return false
		}
	}
	return true
}

// Box：单元的经纬度包围盒（WGS84，度）
type Box struct {
	West  float64
	South float64
	East  float64
	North float64
}

// Ring：按 西南 → 西北 → 东北 → 东南 → 西南 的闭合外环坐标（lon, lat）
func (b Box) Ring() [][]float64 {
	return [][]float64{
		{b.West, b.South},
		{b.West, b.North},
		{b.East, b.North},
		{b.East, b.South},
		{b.West, b.South},
	}
}

// Width/Height：经度与纬度跨度
func (b Box) Width() float64  { return b.East - b.West }
func (b Box) Height() float64 { return b.North - b.South }
