package cache

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddThenFindOptimalRoundTrips(t *testing.T) {
	c := New()
	c.Add(Entry{Source: []uint8{0xA9, 0x00}, Replacement: []uint8{0xA2, 0x00}, BytesSaved: 0, CyclesSaved: 0})

	e, ok := c.FindOptimal([]uint8{0xA9, 0x00})
	require.True(t, ok)
	require.Equal(t, []uint8{0xA2, 0x00}, e.Replacement)
}

func TestAddKeepsBetterEntryOnStructuralCollision(t *testing.T) {
	c := New()
	c.Add(Entry{Source: []uint8{0xA9, 0x00, 0xE8}, Replacement: []uint8{0xA2, 0x00}, BytesSaved: 1})
	c.Add(Entry{Source: []uint8{0xE8, 0xA9, 0x00}, Replacement: []uint8{0xA2, 0x00, 0x00}, BytesSaved: 3})

	require.Equal(t, 1, c.Len())
	e, ok := c.FindOptimal([]uint8{0xA9, 0x00, 0xE8})
	require.True(t, ok)
	require.Equal(t, 3, e.BytesSaved)
}

func TestFindOptimalMissReturnsFalse(t *testing.T) {
	c := New()
	_, ok := c.FindOptimal([]uint8{0xEA})
	require.False(t, ok)
}

func TestSubstituteReturnsCachedReplacement(t *testing.T) {
	c := New()
	c.Add(Entry{Source: []uint8{0xEA, 0xEA}, Replacement: []uint8{0xEA}, BytesSaved: 1})
	got, ok := c.Substitute([]uint8{0xEA, 0xEA})
	require.True(t, ok)
	require.Equal(t, []uint8{0xEA}, got)
}

func TestClearEmptiesCache(t *testing.T) {
	c := New()
	c.Add(Entry{Source: []uint8{0xEA}, Replacement: []uint8{0xEA}})
	c.Clear()
	require.Equal(t, 0, c.Len())
	_, ok := c.FindOptimal([]uint8{0xEA})
	require.False(t, ok)
}
