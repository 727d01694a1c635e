package book

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVariantsFor(t *testing.T) {
	assert.Equal(t, []Layout{LayoutSingle}, VariantsFor(1))
	assert.Equal(t, []Layout{LayoutTwoHorizontal, LayoutTwoVertical}, VariantsFor(2))
	assert.Equal(t, []Layout{LayoutThreeLeft, LayoutThreeRight, LayoutThreeTop, LayoutThreeBottom}, VariantsFor(3))
	assert.Equal(t, []Layout{LayoutFourGrid}, VariantsFor(4))
	assert.Empty(t, VariantsFor(0))
	assert.Empty(t, VariantsFor(5))
}

func TestDefaultLayout(t *testing.T) {
	assert.Equal(t, LayoutSingle, DefaultLayout(0))
	assert.Equal(t, LayoutSingle, DefaultLayout(1))
	assert.Equal(t, LayoutTwoHorizontal, DefaultLayout(2))
	assert.Equal(t, LayoutThreeLeft, DefaultLayout(3))
	assert.Equal(t, LayoutFourGrid, DefaultLayout(4))
}

func TestResolveGeometry(t *testing.T) {
	g, err := Resolve(3, LayoutThreeLeft)
	require.NoError(t, err)
	assert.Equal(t, []string{"2fr", "1fr"}, g.Columns)
	assert.Equal(t, []string{"1fr", "1fr"}, g.Rows)
	assert.Equal(t, [][]string{{"photo1", "photo2"}, {"photo1", "photo3"}}, g.Areas)

	g, err = Resolve(3, LayoutThreeTop)
	require.NoError(t, err)
	assert.Equal(t, []string{"2fr", "1fr"}, g.Rows)
	assert.Equal(t, [][]string{{"photo1", "photo1"}, {"photo2", "photo3"}}, g.Areas)

	g, err = Resolve(1, LayoutSingle)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"photo1"}}, g.Areas)

	g, err = Resolve(4, LayoutFourGrid)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"photo1", "photo2"}, {"photo3", "photo4"}}, g.Areas)
}

func TestResolveEveryValidPair(t *testing.T) {
	for count := 1; count <= 4; count++ {
		for _, variant := range VariantsFor(count) {
			g, err := Resolve(count, variant)
			require.NoError(t, err, "count=%d variant=%s", count, variant)
			assert.False(t, g.Empty(), "count=%d variant=%s", count, variant)
			// Every photo index up to count must be assigned an area.
			seen := make(map[string]bool)
			for _, row := range g.Areas {
				require.Len(t, row, len(g.Columns))
				for _, area := range row {
					seen[area] = true
				}
			}
			assert.Len(t, seen, count)
			require.Len(t, g.Areas, len(g.Rows))
		}
	}
}

func TestResolveInvalidVariantFailsLoudly(t *testing.T) {
	_, err := Resolve(2, LayoutFourGrid)
	assert.Error(t, err)
	_, err = Resolve(1, LayoutTwoVertical)
	assert.Error(t, err)
}

func TestResolveOutOfRangeCountIsEmpty(t *testing.T) {
	g, err := Resolve(0, LayoutSingle)
	require.NoError(t, err)
	assert.True(t, g.Empty())

	g, err = Resolve(5, LayoutFourGrid)
	require.NoError(t, err)
	assert.True(t, g.Empty())
}
