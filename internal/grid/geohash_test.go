package grid

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode_KnownValue(t *testing.T) {
	c, err := NewGeohash().Encode(57.64911, 10.40744, 11)
	require.NoError(t, err)
	assert.Equal(t, Cell("u4pruydqqvj"), c)
}

func TestEncode_PrefixNesting(t *testing.T) {
	g := NewGeohash()
	c10, err := g.Encode(40.7328, -73.9959, 10)
	require.NoError(t, err)
	c7, err := g.Encode(40.7328, -73.9959, 7)
	require.NoError(t, err)
	assert.Len(t, string(c10), 10)
	assert.Equal(t, string(c7), string(c10)[:7])
	assert.Equal(t, Cell("dr5rspj"), c7)
}

func TestEncode_Invalid(t *testing.T) {
	g := NewGeohash()
	_, err := g.Encode(0, 0, 0)
	assert.True(t, errors.Is(err, ErrInvalidLevel))
	_, err = g.Encode(0, 0, MaxLevel+1)
	assert.True(t, errors.Is(err, ErrInvalidLevel))
	_, err = g.Encode(91, 0, 5)
	assert.True(t, errors.Is(err, ErrInvalidCell))
}

func TestNeighbors_Symmetric(t *testing.T) {
	g := NewGeohash()
	c, err := g.Encode(40.7328, -73.9959, 9)
	require.NoError(t, err)
	ns, err := g.Neighbors(c)
	require.NoError(t, err)
	require.Len(t, ns, 8)
	set := NewCellSet(ns...)
	assert.Equal(t, 8, set.Len())
	assert.False(t, set.Has(c))
	for _, n := range ns {
		assert.Len(t, string(n), 9)
		back, err := g.Neighbors(n)
		require.NoError(t, err)
		assert.Contains(t, back, c, "neighbor %s should list %s", n, c)
	}
}

func TestBounds_ContainsCenter(t *testing.T) {
	g := NewGeohash()
	c := Cell("dr5rspj")
	b, err := g.Bounds(c)
	require.NoError(t, err)
	assert.Less(t, b.West, b.East)
	assert.Less(t, b.South, b.North)
	back, err := g.Encode((b.South+b.North)/2, (b.West+b.East)/2, 7)
	require.NoError(t, err)
	assert.Equal(t, c, back)

	ring := b.Ring()
	require.Len(t, ring, 5)
	assert.Equal(t, ring[0], ring[4])
}

func TestCellSize_MatchesBounds(t *testing.T) {
	g := NewGeohash()
	for _, level := range []int{1, 5, 10, 11} {
		c, err := g.Encode(40.7328, -73.9959, level)
		require.NoError(t, err)
		b, err := g.Bounds(c)
		require.NoError(t, err)
		w, h := CellSize(level)
		assert.InDelta(t, w, b.Width(), 1e-9, "level %d", level)
		assert.InDelta(t, h, b.Height(), 1e-9, "level %d", level)
	}
	w, h := CellSize(1)
	assert.Equal(t, 45.0, w)
	assert.Equal(t, 45.0, h)
}

func TestEstimateCells(t *testing.T) {
	w, h := CellSize(6)
	b := Box{West: 0, South: 0, East: 10 * w, North: 4 * h}
	got := EstimateCells(b, 6)
	assert.GreaterOrEqual(t, got, 40.0)
	assert.LessOrEqual(t, got, 12.0*6.0)
}

func TestValidateCell(t *testing.T) {
	assert.NoError(t, ValidateCell("dr5rspj"))
	assert.Error(t, ValidateCell(""))
	assert.Error(t, ValidateCell("dr5rsa"), "'a' is not in the geohash alphabet")
	assert.Error(t, ValidateCell("0123456789bcd"))
	_, err := NewGeohash().Bounds("ILO")
	assert.True(t, errors.Is(err, ErrInvalidCell))
	_, err = NewGeohash().Neighbors("")
	assert.True(t, errors.Is(err, ErrInvalidCell))
}

func TestCellSet(t *testing.T) {
	s := NewCellSet("b", "a")
	assert.Equal(t, 2, s.AddAll([]Cell{"c", "d", "a"}))
	assert.Equal(t, []Cell{"a", "b", "c", "d"}, s.Sorted())
	assert.Equal(t, []string{"a", "b", "c", "d"}, s.Strings())
	assert.True(t, NewCellSet("a", "c").SubsetOf(s))
	assert.False(t, NewCellSet("a", "z").SubsetOf(s))

	o := NewCellSet("z")
	o.Union(s)
	assert.Equal(t, 5, o.Len())
	o.Remove("z")
	assert.False(t, o.Has("z"))
}
