package traverse

import (
	"errors"
	"testing"

	"geohash-signature/internal/evaluate"
	"geohash-signature/internal/geometry"
	"geohash-signature/internal/grid"
	"geohash-signature/internal/testutil"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func reference(t *testing.T) *geometry.Shape {
	t.Helper()
	s, err := geometry.NewPolygon(testutil.Rings(testutil.ReferenceRing))
	require.NoError(t, err)
	return s
}

// boxMatcher accepts cells whose bounds overlap a fixed box; no GEOS involved.
type boxMatcher struct {
	codec grid.Codec
	box   grid.Box
}

func (m boxMatcher) Match(c grid.Cell) (bool, error) {
	b, err := m.codec.Bounds(c)
	if err != nil {
		return false, err
	}
	return b.West < m.box.East && b.East > m.box.West && b.South < m.box.North && b.North > m.box.South, nil
}

func (boxMatcher) Close() {}

func TestGenerate_ReferenceCounts(t *testing.T) {
	e := New(grid.NewGeohash(), 4)
	s := reference(t)

	cases := []struct {
		name  string
		level int
		rels  []geometry.Relation
		want  int
		long  bool
	}{
		{"intersects L10", 10, []geometry.Relation{geometry.Intersects}, testutil.ReferenceIntersectsL10, false},
		{"within L10", 10, []geometry.Relation{geometry.Within}, testutil.ReferenceWithinL10, false},
		{"intersects L11", 11, []geometry.Relation{geometry.Intersects}, testutil.ReferenceIntersectsL11, true},
		{"within L11", 11, []geometry.Relation{geometry.Within}, testutil.ReferenceWithinL11, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.long && testing.Short() {
				t.Skip("level 11 traversal skipped in -short mode")
			}
			got, err := e.Generate(s, tc.level, tc.rels)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got.Len())
		})
	}
}

func TestGenerate_DefaultsToIntersects(t *testing.T) {
	e := New(grid.NewGeohash(), 2)
	s := reference(t)
	a, err := e.Generate(s, 9, nil)
	require.NoError(t, err)
	b, err := e.Generate(s, 9, []geometry.Relation{geometry.Intersects})
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(a.Sorted(), b.Sorted()))
}

func TestGenerate_DeterministicAcrossWorkers(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := reference(t)
	base, err := New(grid.NewGeohash(), 1).Generate(s, 10, []geometry.Relation{geometry.Intersects})
	require.NoError(t, err)
	for _, w := range []int{2, 3, 8} {
		got, err := New(grid.NewGeohash(), w).Generate(s, 10, []geometry.Relation{geometry.Intersects})
		require.NoError(t, err)
		if diff := cmp.Diff(base.Sorted(), got.Sorted()); diff != "" {
			t.Fatalf("workers=%d (-want +got):\n%s", w, diff)
		}
	}
}

func TestGenerate_WithinSubsetOfIntersects(t *testing.T) {
	e := New(grid.NewGeohash(), 4)
	s := reference(t)
	in, err := e.Generate(s, 10, []geometry.Relation{geometry.Intersects})
	require.NoError(t, err)
	wi, err := e.Generate(s, 10, []geometry.Relation{geometry.Within})
	require.NoError(t, err)
	assert.True(t, wi.SubsetOf(in))
	assert.Less(t, wi.Len(), in.Len())

	either, err := e.Generate(s, 10, []geometry.Relation{geometry.Within, geometry.Intersects})
	require.NoError(t, err)
	assert.Equal(t, in.Len(), either.Len())
}

func TestGenerate_Idempotent(t *testing.T) {
	e := New(grid.NewGeohash(), 3)
	s := reference(t)
	a, err := e.Generate(s, 9, []geometry.Relation{geometry.Within})
	require.NoError(t, err)
	b, err := e.Generate(s, 9, []geometry.Relation{geometry.Within})
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(a.Sorted(), b.Sorted()))
}

func TestGenerate_AcceptedCellsSatisfyRelation(t *testing.T) {
	codec := grid.NewGeohash()
	e := New(codec, 2)
	s := reference(t)
	got, err := e.Generate(s, 9, []geometry.Relation{geometry.Intersects})
	require.NoError(t, err)
	require.NotZero(t, got.Len())
	for _, c := range got.Sorted() {
		b, err := codec.Bounds(c)
		require.NoError(t, err)
		assert.True(t, s.Relate(b, geometry.Intersects), "cell %s", c)
		assert.Len(t, string(c), 9)
	}
}

func TestGenerate_InvalidInput(t *testing.T) {
	e := New(grid.NewGeohash(), 1)
	_, err := e.Generate(nil, 10, nil)
	assert.True(t, errors.Is(err, geometry.ErrInvalidShapeKind))

	s := reference(t)
	for _, lvl := range []int{0, -1, grid.MaxLevel + 1} {
		_, err = e.Generate(s, lvl, nil)
		assert.True(t, errors.Is(err, grid.ErrInvalidLevel), "level %d", lvl)
	}
}

func TestGenerate_EmptyShape(t *testing.T) {
	s, err := geometry.ParseGeoJSON([]byte(`{"type":"Polygon","coordinates":[]}`))
	require.NoError(t, err)
	got, err := New(grid.NewGeohash(), 2).Generate(s, 10, nil)
	require.NoError(t, err)
	assert.Zero(t, got.Len())
}

func TestGenerate_ThinShapeWithinIsEmpty(t *testing.T) {
	s, err := geometry.NewPolygon(testutil.Rings(testutil.SliverRing))
	require.NoError(t, err)
	e := New(grid.NewGeohash(), 2)
	got, err := e.Generate(s, 6, []geometry.Relation{geometry.Within})
	require.NoError(t, err)
	assert.Zero(t, got.Len(), "a cell far larger than the shape cannot be within it")

	in, err := e.Generate(s, 6, []geometry.Relation{geometry.Intersects})
	require.NoError(t, err)
	assert.NotZero(t, in.Len())
}

func TestRun_BoxMatcher(t *testing.T) {
	defer goleak.VerifyNone(t)

	codec := grid.NewGeohash()
	box := grid.Box{West: 10, South: 10, East: 11, North: 11}
	seed, err := codec.Encode(10.5, 10.5, 5)
	require.NoError(t, err)
	factory := func() (evaluate.Matcher, error) { return boxMatcher{codec: codec, box: box}, nil }

	var prev []grid.Cell
	for _, w := range []int{1, 4} {
		got, err := New(codec, w).run(seed, factory)
		require.NoError(t, err)
		assert.True(t, got.Has(seed))
		for _, c := range got.Sorted() {
			ok, err := boxMatcher{codec: codec, box: box}.Match(c)
			require.NoError(t, err)
			assert.True(t, ok, "cell %s", c)
		}
		// 1x1 degree at level 5 (~0.044 x 0.044) spans 23-24 cells per side
		cw, ch := grid.CellSize(5)
		assert.InDelta(t, grid.EstimateCells(box, 5), float64(got.Len()), (1/cw+1/ch)*4)
		if prev != nil {
			assert.Empty(t, cmp.Diff(prev, got.Sorted()))
		}
		prev = got.Sorted()
	}
}

func TestRun_SeedFailureYieldsEmpty(t *testing.T) {
	codec := grid.NewGeohash()
	seed, err := codec.Encode(-40, -40, 5)
	require.NoError(t, err)
	factory := func() (evaluate.Matcher, error) {
		return boxMatcher{codec: codec, box: grid.Box{West: 10, South: 10, East: 11, North: 11}}, nil
	}
	got, err := New(codec, 2).run(seed, factory)
	require.NoError(t, err)
	assert.Zero(t, got.Len())
}

func TestRun_FactoryError(t *testing.T) {
	codec := grid.NewGeohash()
	_, err := New(codec, 2).run("s0", func() (evaluate.Matcher, error) {
		return nil, errors.New("no geos")
	})
	assert.EqualError(t, err, "no geos")
}
