package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"geohash-signature/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) ([]result, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	var rs []result
	sc := bufio.NewScanner(&out)
	sc.Buffer(make([]byte, 1<<20), 16<<20)
	for sc.Scan() {
		var r result
		require.NoError(t, json.Unmarshal(sc.Bytes(), &r))
		rs = append(rs, r)
	}
	return rs, err
}

func shapeFile(t *testing.T) string {
	return testutil.WriteFile(t, "shape.geojson", testutil.FeatureGeoJSON(t, testutil.PolygonGeoJSON(t, testutil.ReferenceRing)))
}

func TestRelationCommands(t *testing.T) {
	p := shapeFile(t)

	rs, err := run(t, "intersects", p)
	require.NoError(t, err)
	require.Len(t, rs, 1)
	assert.Equal(t, testutil.ReferenceIntersectsL10, rs[0].Count)
	assert.Len(t, rs[0].Cells, testutil.ReferenceIntersectsL10)
	assert.Equal(t, []string{"intersects"}, rs[0].Conditions)

	out := filepath.Join(t.TempDir(), "within.geojson")
	rs, err = run(t, "within", p, "--compress", "--workers", "2", "--out", out)
	require.NoError(t, err)
	require.Len(t, rs, 1)
	assert.Equal(t, testutil.ReferenceWithinL10, rs[0].Count)
	require.NotNil(t, rs[0].Prefix)
	assert.Equal(t, testutil.ReferencePrefix, *rs[0].Prefix)
	assert.Empty(t, rs[0].Cells)
	assert.FileExists(t, out)
}

func TestRelationCommands_Errors(t *testing.T) {
	p := shapeFile(t)
	_, err := run(t, "intersects", p, "--level", "13")
	assert.Error(t, err)
	_, err = run(t, "within", filepath.Join(t.TempDir(), "missing.geojson"))
	assert.Error(t, err)
	_, err = run(t, "intersects")
	assert.Error(t, err)
}

func TestPartitionCommand(t *testing.T) {
	p := shapeFile(t)
	direct, err := run(t, "intersects", p, "--level", "9")
	require.NoError(t, err)
	split, err := run(t, "partition", p, "--level", "9", "--tile-size", "0.0002")
	require.NoError(t, err)
	require.Len(t, split, 1)
	assert.Equal(t, direct[0].Cells, split[0].Cells)

	_, err = run(t, "partition", p, "--tile-size", "0")
	assert.Error(t, err)
	_, err = run(t, "partition", p, "--conditions", "near")
	assert.Error(t, err)
}

func TestBatchCommand(t *testing.T) {
	dir := t.TempDir()
	shape := testutil.FeatureGeoJSON(t, testutil.PolygonGeoJSON(t, testutil.ReferenceRing))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "block.geojson"), shape, 0o644))
	manifest := `
jobs:
  - name: block-within
    shape_file: block.geojson
    conditions: [within]
    compress: true
    out: out/within.geojson
  - name: block-coarse
    shape_file: block.geojson
    level: 8
    tile_size: 0.001
`
	mp := filepath.Join(dir, "jobs.yaml")
	require.NoError(t, os.WriteFile(mp, []byte(manifest), 0o644))

	rs, err := run(t, "batch", mp)
	require.NoError(t, err)
	require.Len(t, rs, 2)
	assert.Equal(t, "block-within", rs[0].Name)
	assert.Equal(t, testutil.ReferenceWithinL10, rs[0].Count)
	assert.Equal(t, testutil.ReferencePrefix, *rs[0].Prefix)
	assert.FileExists(t, filepath.Join(dir, "out", "within.geojson"))

	assert.Equal(t, "block-coarse", rs[1].Name)
	assert.Equal(t, 8, rs[1].Level)
	assert.Equal(t, []string{"intersects"}, rs[1].Conditions)
	assert.NotEmpty(t, rs[1].Cells)
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	write := func(body string) string {
		p := filepath.Join(dir, "m.yaml")
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
		return p
	}

	m, err := loadManifest(write("jobs:\n  - name: a\n    shape_file: a.geojson\n    out: /tmp/a.geojson\n"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "a.geojson"), m.Jobs[0].ShapeFile)
	assert.Equal(t, "/tmp/a.geojson", m.Jobs[0].Out)

	for name, body := range map[string]string{
		"empty":         "jobs: []\n",
		"no name":       "jobs:\n  - shape_file: a.geojson\n",
		"no shape":      "jobs:\n  - name: a\n",
		"duplicate":     "jobs:\n  - {name: a, shape_file: a.geojson}\n  - {name: a, shape_file: b.geojson}\n",
		"unknown field": "jobs:\n  - {name: a, shape_file: a.geojson, colour: red}\n",
		"negative tile": "jobs:\n  - {name: a, shape_file: a.geojson, tile_size: -1}\n",
	} {
		_, err := loadManifest(write(body))
		assert.Error(t, err, name)
	}
}
