package api

import (
	"encoding/json"
	"time"
)

// signatureRequest：POST /signature 请求体
// 约束：level 缺省使用 GEOSIG_DEFAULT_LEVEL；conditions 为空即 intersects；partition=true 且 tile_size 为 0 时使用 GEOSIG_TILE_SIZE，负数视为非法。
type signatureRequest struct {
	Shape      json.RawMessage `json:"shape"`
	Level      *int            `json:"level"`
	Conditions []string        `json:"conditions"`
	Compress   bool            `json:"compress"`
	Partition  bool            `json:"partition"`
	TileSize   float64         `json:"tile_size"`
}

// signatureResponse：cells 与 prefix/suffixes 二选一
type signatureResponse struct {
	ID         string   `json:"id,omitempty"`
	Level      int      `json:"level"`
	Conditions []string `json:"conditions"`
	Count      int      `json:"count"`
	Cells      []string `json:"cells,omitempty"`
	Prefix     *string  `json:"prefix,omitempty"`
	Suffixes   []string `json:"suffixes,omitempty"`
	Cached     bool     `json:"cached"`
}

type recordResponse struct {
	signatureResponse
	ShapeKey    string    `json:"shape_key"`
	Partitioned bool      `json:"partitioned"`
	CreatedAt   time.Time `json:"created_at"`
}

type partitionRequest struct {
	Shape    json.RawMessage `json:"shape"`
	TileSize float64         `json:"tile_size"`
}

type ipAreaResponse struct {
	IP       string   `json:"ip"`
	Country  string   `json:"country"`
	City     string   `json:"city"`
	Lat      float64  `json:"lat"`
	Lon      float64  `json:"lon"`
	RadiusKm float64  `json:"radius_km"`
	Level    int      `json:"level"`
	Count    int      `json:"count"`
	Prefix   string   `json:"prefix"`
	Suffixes []string `json:"suffixes"`
}

type errorResponse struct {
	Error string `json:"error"`
}
