package signature

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"geohash-signature/internal/grid"
)

// Compressed 公共前缀 + 有序后缀；prefix+suffix 逐一还原原签名
type Compressed struct {
	Prefix   string   `json:"prefix"`
	Suffixes []string `json:"suffixes"`
}

// Len 还原后的单元数
func (c Compressed) Len() int { return len(c.Suffixes) }

// 文档注释：前缀压缩
// 背景：签名内单元通常共享较长前缀，压缩后按“前缀 + 后缀列表”存储与传输。
// 约束：纯函数，不修改入参；先排序再取首尾最长公共前缀，仅剥离开头的前缀（不做子串替换）；空签名得到空前缀与空后缀列表。
func Compress(cells []grid.Cell) Compressed {
	if len(cells) == 0 {
		return Compressed{Suffixes: []string{}}
	}
	sorted := make([]string, len(cells))
	for i, c := range cells {
		sorted[i] = string(c)
	}
	sort.Strings(sorted)
	prefix := commonPrefix(sorted[0], sorted[len(sorted)-1])
	suffixes := make([]string, 0, len(sorted))
	for i, s := range sorted {
		if i > 0 && s == sorted[i-1] {
			continue
		}
		suffixes = append(suffixes, strings.TrimPrefix(s, prefix))
	}
	return Compressed{Prefix: prefix, Suffixes: suffixes}
}

// CompressSet：集合形式的签名
func CompressSet(s grid.CellSet) Compressed { return Compress(s.Sorted()) }

// Expand：压缩的逆运算，结果有序
func Expand(c Compressed) []grid.Cell {
	out := make([]grid.Cell, 0, len(c.Suffixes))
	for _, s := range c.Suffixes {
		out = append(out, grid.Cell(c.Prefix+s))
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func commonPrefix(a, b string) string {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return a[:i]
}

type featureCollection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

type feature struct {
	Type       string            `json:"type"`
	Properties map[string]string `json:"properties"`
	Geometry   polygon           `json:"geometry"`
}

type polygon struct {
	Type        string        `json:"type"`
	Coordinates [][][]float64 `json:"coordinates"`
}

// FeatureCollection：按排序输出每个单元的矩形，properties.geohash 为单元编码
func FeatureCollection(cells []grid.Cell, codec grid.Codec) ([]byte, error) {
	sorted := append([]grid.Cell(nil), cells...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	fc := featureCollection{Type: "FeatureCollection", Features: make([]feature, 0, len(sorted))}
	for _, c := range sorted {
		b, err := codec.Bounds(c)
		if err != nil {
			return nil, err
		}
		fc.Features = append(fc.Features, feature{
			Type:       "Feature",
			Properties: map[string]string{"geohash": string(c)},
			Geometry:   polygon{Type: "Polygon", Coordinates: [][][]float64{b.Ring()}},
		})
	}
	return json.Marshal(fc)
}

// WriteFeatureCollection：写入 GeoJSON 文件，必要时创建父目录
func WriteFeatureCollection(path string, cells []grid.Cell, codec grid.Codec) error {
	data, err := FeatureCollection(cells, codec)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}
