// Package testutil provides shared shape fixtures for tests.
//
// Fixtures are plain coordinates and GeoJSON text so that any package,
// including internal/geometry itself, can use them without import cycles.
package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

// ReferenceRing is a small block in lower Manhattan (lon, lat), the same ring
// used for the published signature counts: intersects L10=821, L11=24448,
// within L10=683, L11=23634, compressed prefix "dr5rspj".
var ReferenceRing = [][]float64{
	{-73.99603330, 40.73283237},
	{-73.99610310, 40.73287904},
	{-73.99604151, 40.73295838},
	{-73.99596555, 40.73293815},
	{-73.99578489, 40.73290082},
	{-73.99578489, 40.73290082},
	{-73.99576436, 40.73283704},
	{-73.99582184, 40.73275458},
	{-73.99591423, 40.73275147},
}

// SliverRing is a thin diagonal quadrilateral in Brooklyn (lon, lat).
var SliverRing = [][]float64{
	{-73.96015129, 40.71760539},
	{-73.96010271, 40.71757684},
	{-73.95967347, 40.71797882},
	{-73.95972105, 40.71800437},
}

// Reference signature sizes.
const (
	ReferenceIntersectsL10 = 821
	ReferenceIntersectsL11 = 24448
	ReferenceWithinL10     = 683
	ReferenceWithinL11     = 23634
	ReferencePrefix        = "dr5rspj"
)

// Rings wraps a single exterior ring as polygon rings.
func Rings(ring [][]float64) [][][]float64 {
	return [][][]float64{ring}
}

// PolygonGeoJSON renders a polygon geometry for the given exterior ring.
func PolygonGeoJSON(t testing.TB, ring [][]float64) []byte {
	t.Helper()
	closed := append([][]float64{}, ring...)
	if first, last := closed[0], closed[len(closed)-1]; first[0] != last[0] || first[1] != last[1] {
		closed = append(closed, first)
	}
	b, err := json.Marshal(map[string]any{
		"type":        "Polygon",
		"coordinates": [][][]float64{closed},
	})
	if err != nil {
		t.Fatalf("marshal polygon: %v", err)
	}
	return b
}

// FeatureGeoJSON wraps a geometry into a Feature.
func FeatureGeoJSON(t testing.TB, geometry []byte) []byte {
	t.Helper()
	b, err := json.Marshal(map[string]any{
		"type":       "Feature",
		"properties": map[string]any{},
		"geometry":   json.RawMessage(geometry),
	})
	if err != nil {
		t.Fatalf("marshal feature: %v", err)
	}
	return b
}

// Square returns a closed axis-aligned square ring of side d (degrees)
// with its south-west corner at (lon, lat).
func Square(lon, lat, d float64) [][]float64 {
	return [][]float64{
		{lon, lat},
		{lon + d, lat},
		{lon + d, lat + d},
		{lon, lat + d},
		{lon, lat},
	}
}

// WriteFile writes data under t.TempDir() and returns the path.
func WriteFile(t testing.TB, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}
