package grid

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/mmcloughlin/geohash"
)

// MaxLevel：geohash 最大精度（12 字符 = 60 bit，受 uint64 编码限制）
const MaxLevel = 12

var (
	ErrInvalidLevel = errors.New("invalid geohash level")
	ErrInvalidCell  = errors.New("invalid geohash cell")
)

// 文档注释：网格编解码能力（外部协作者）
// 背景：遍历引擎只依赖三个操作：坐标编码、邻接单元、单元包围盒；具体算法可替换。
// 约束：Neighbors 返回至多 8 个单元（极区附近可能更少），不含自身。
type Codec interface {
	Encode(lat, lon float64, level int) (Cell, error)
	Neighbors(c Cell) ([]Cell, error)
	Bounds(c Cell) (Box, error)
}

// base32 字母表，用于快速校验单元编码
const base32 = "0123456789bcdefghjkmnpqrstuvwxyz"

// Geohash：基于 base32 geohash 的 Codec 实现
// 背景：无状态，可在多个 worker 间共享。
type Geohash struct{}

func NewGeohash() Geohash { return Geohash{} }

// ValidateLevel：精度必须在 1..MaxLevel
func ValidateLevel(level int) error {
	if level < 1 || level > MaxLevel {
		return fmt.Errorf("%w: %d (want 1..%d)", ErrInvalidLevel, level, MaxLevel)
	}
	return nil
}

// ValidateCell：非空、长度不超过 MaxLevel、仅含 base32 字符
func ValidateCell(c Cell) error {
	s := string(c)
	if s == "" || len(s) > MaxLevel {
		return fmt.Errorf("%w: %q", ErrInvalidCell, s)
	}
	for i := 0; i < len(s); i++ {
		if strings.IndexByte(base32, s[i]) < 0 {
			return fmt.Errorf("%w: %q", ErrInvalidCell, s)
		}
	}
	return nil
}

// Encode：经纬度编码为指定精度的单元
// 约束：纬度 [-90,90]、经度 [-180,180]，越界视为错误而不是静默截断。
func (Geohash) Encode(lat, lon float64, level int) (Cell, error) {
	if err := ValidateLevel(level); err != nil {
		return "", err
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return "", fmt.Errorf("%w: coordinate out of range (lat=%v lon=%v)", ErrInvalidCell, lat, lon)
	}
	return Cell(geohash.EncodeWithPrecision(lat, lon, uint(level))), nil
}

// Neighbors：8 邻域单元（N, NE, E, SE, S, SW, W, NW），去除与自身相同或重复的编码
func (Geohash) Neighbors(c Cell) ([]Cell, error) {
	if err := ValidateCell(c); err != nil {
		return nil, err
	}
	raw := geohash.Neighbors(string(c))
	out := make([]Cell, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, n := range raw {
		if n == string(c) {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, Cell(n))
	}
	return out, nil
}

// CellSize：指定精度下单元的经度宽度与纬度高度（度）
// 背景：奇数位给经度，偶数位给纬度，因此经度 bit 数向上取整。
func CellSize(level int) (float64, float64) {
	bits := 5 * level
	lonBits := (bits + 1) / 2
	latBits := bits / 2
	return 360 / math.Exp2(float64(lonBits)), 180 / math.Exp2(float64(latBits))
}

// EstimateCells：包围盒在指定精度下覆盖的单元数量上界估计
// 用途：调用方在 generate 之前按面积限流，核心遍历本身不设上限。
func EstimateCells(b Box, level int) float64 {
	w, h := CellSize(level)
	cols := math.Floor(b.Width()/w) + 2
	rows := math.Floor(b.Height()/h) + 2
	return cols * rows
}

// Bounds：单元包围盒
func (Geohash) Bounds(c Cell) (Box, error) {
	if err := ValidateCell(c); err != nil {
		return Box{}, err
	}
	b := geohash.BoundingBox(string(c))
	return Box{West: b.MinLng, South: b.MinLat, East: b.MaxLng, North: b.MaxLat}, nil
}
