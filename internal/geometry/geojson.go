package geometry

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/twpayne/go-geos"
)

type geoJSONObject struct {
	Type        string            `json:"type"`
	Geometry    json.RawMessage   `json:"geometry"`
	Features    []json.RawMessage `json:"features"`
	Coordinates json.RawMessage   `json:"coordinates"`
}

// 文档注释：解析 GeoJSON 为 Shape
// 背景：支持 Geometry（Polygon/MultiPolygon）、Feature 与 FeatureCollection；FeatureCollection 的多个面合并为 MultiPolygon。
// 约束：非面状几何与空 FeatureCollection 返回 ErrInvalidShapeKind；不做拓扑修复。
func ParseGeoJSON(data []byte) (*Shape, error) {
	geom, err := geometryJSON(data)
	if err != nil {
		return nil, err
	}
	g, err := geos.NewGeomFromGeoJSON(string(geom))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidShapeKind, err)
	}
	return NewShape(g)
}

// LoadGeoJSONFile：从文件读取形状
func LoadGeoJSONFile(path string) (*Shape, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := ParseGeoJSON(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// geometryJSON：剥离 Feature/FeatureCollection 外壳，返回单一几何对象的 JSON
func geometryJSON(data []byte) ([]byte, error) {
	var obj geoJSONObject
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidShapeKind, err)
	}
	switch strings.ToLower(obj.Type) {
	case "polygon", "multipolygon":
		return data, nil
	case "feature":
		if len(obj.Geometry) == 0 || string(obj.Geometry) == "null" {
			return nil, fmt.Errorf("%w: feature without geometry", ErrInvalidShapeKind)
		}
		return geometryJSON(obj.Geometry)
	case "featurecollection":
		return mergeFeatures(obj.Features)
	case "":
		return nil, fmt.Errorf("%w: missing type", ErrInvalidShapeKind)
	}
	return nil, fmt.Errorf("%w: %s", ErrInvalidShapeKind, obj.Type)
}

// mergeFeatures：把各要素的面坐标拼接为一个 MultiPolygon
func mergeFeatures(features []json.RawMessage) ([]byte, error) {
	if len(features) == 0 {
		return nil, fmt.Errorf("%w: empty feature collection", ErrInvalidShapeKind)
	}
	if len(features) == 1 {
		return geometryJSON(features[0])
	}
	var polys []json.RawMessage
	for i, f := range features {
		g, err := geometryJSON(f)
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}
		var obj geoJSONObject
		if err := json.Unmarshal(g, &obj); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidShapeKind, err)
		}
		if strings.EqualFold(obj.Type, "polygon") {
			polys = append(polys, obj.Coordinates)
			continue
		}
		var parts []json.RawMessage
		if err := json.Unmarshal(obj.Coordinates, &parts); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidShapeKind, err)
		}
		polys = append(polys, parts...)
	}
	return json.Marshal(map[string]any{"type": "MultiPolygon", "coordinates": polys})
}
