package layout_test

import (
	"testing"

	"github.com/dargueta/rompatch"
	"github.com/dargueta/rompatch/layout"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeometry__Validate(t *testing.T) {
	assert.NoError(t, layout.Contiguous.Validate())
	assert.NoError(t, layout.Mode2Raw.Validate())

	bad := []layout.Geometry{
		{Period: 0, GapSize: 4},
		{Period: 16, GapSize: 16},
		{Period: 16, GapSize: -1},
		{Period: -16, GapSize: 4},
	}
	for _, g := range bad {
		assert.ErrorIs(t, g.Validate(), rompatch.ErrInvalidArgument, "%+v", g)
	}
}

func TestGeometry__MapContiguous(t *testing.T) {
	region, err := layout.Contiguous.Map(100, 50, 10)
	require.NoError(t, err)
	assert.Equal(t, layout.Region{{Offset: 150, Length: 10}}, region)
}

func TestGeometry__MapSplitsAtGap(t *testing.T) {
	g := layout.Geometry{Period: 1024, GapSize: 4}

	tests := []struct {
		Name     string
		Logical  int64
		Expected layout.Region
	}{
		{"fits", 0, layout.Region{{Offset: 1008, Length: 8}}},
		{"ends on boundary", 4, layout.Region{{Offset: 1012, Length: 8}}},
		{"straddles", 8, layout.Region{{Offset: 1016, Length: 4}, {Offset: 1024, Length: 4}}},
		{"after gap", 16, layout.Region{{Offset: 1028, Length: 8}}},
		{"second window end", 1028, layout.Region{{Offset: 2040, Length: 4}, {Offset: 2048, Length: 4}}},
	}
	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			region, err := g.Map(1008, test.Logical, 8)
			require.NoError(t, err)
			assert.Equal(t, test.Expected, region)
			assert.Equal(t, 8, region.Len())
		})
	}
}

func TestGeometry__MapWithPhase(t *testing.T) {
	region, err := layout.Mode2Raw.Map(24, 2040, 16)
	require.NoError(t, err)
	assert.Equal(t, layout.Region{{Offset: 2064, Length: 8}, {Offset: 2376, Length: 8}}, region)

	assert.True(t, layout.Mode2Raw.InGap(2072))
	assert.True(t, layout.Mode2Raw.InGap(2375))
	assert.False(t, layout.Mode2Raw.InGap(2376))
	assert.True(t, layout.Mode2Raw.InGap(0), "leading sector header")
	assert.False(t, layout.Contiguous.InGap(0))
}

func TestGeometry__MapFromGapFails(t *testing.T) {
	_, err := layout.Mode2Raw.Map(10, 0, 4)
	assert.ErrorIs(t, err, rompatch.ErrInvalidArgument)

	_, err = layout.Mode2Raw.Map(24, -1, 4)
	assert.ErrorIs(t, err, rompatch.ErrInvalidArgument)
}

func TestGeometry__MapNeverTouchesGap(t *testing.T) {
	g := layout.Geometry{Period: 64, GapSize: 12, Phase: 5}
	for logical := int64(0); logical < 300; logical++ {
		for length := 1; length <= 52; length++ {
			region, err := g.Map(17, logical, length)
			require.NoError(t, err)
			require.Equal(t, length, region.Len())
			require.LessOrEqual(t, len(region), 2)
			for _, chunk := range region {
				require.False(t, g.InGap(chunk.Offset), "%v starts in a gap", chunk)
				require.False(t, g.InGap(chunk.End()-1), "%v ends in a gap", chunk)
			}
		}
	}
}
