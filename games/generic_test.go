package games_test

import (
	"bytes"
	"testing"

	"github.com/dargueta/rompatch"
	"github.com/dargueta/rompatch/games"
	"github.com/dargueta/rompatch/layout"
	"github.com/dargueta/rompatch/textcodec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var gappedGeometry = layout.Geometry{Period: 1024, GapSize: 4}

func newGenericTarget(t *testing.T) *games.Generic {
	pool := games.NumberedPool("teams", "T", 4)
	target, err := games.NewGeneric(
		"test",
		pool,
		layout.FixedTable{Base: 1008, Stride: 8, Count: 4, Geometry: gappedGeometry},
		textcodec.ASCIIUpper)
	require.NoError(t, err)

	target, err = target.WithPlayers(
		layout.FixedTable{Base: 4096, Stride: 6, Count: 8, Geometry: gappedGeometry},
		2)
	require.NoError(t, err)
	return target
}

func TestNewGeneric__CountMismatch(t *testing.T) {
	pool := games.NumberedPool("teams", "T", 4)
	_, err := games.NewGeneric(
		"test",
		pool,
		layout.FixedTable{Base: 0, Stride: 8, Count: 5},
		textcodec.ASCIIUpper)
	assert.ErrorIs(t, err, rompatch.ErrInvalidArgument)

	target, err := games.NewGeneric(
		"test",
		pool,
		layout.FixedTable{Base: 0, Stride: 8, Count: 4},
		textcodec.ASCIIUpper)
	require.NoError(t, err)

	_, err = target.WithPlayers(layout.FixedTable{Base: 64, Stride: 8, Count: 7}, 2)
	assert.ErrorIs(t, err, rompatch.ErrInvalidArgument)
}

func TestGeneric__Layout(t *testing.T) {
	target := newGenericTarget(t)

	fields, err := target.Layout(rompatch.SlotID{Pool: "teams", Index: 1})
	require.NoError(t, err)
	require.Len(t, fields, 3)

	assert.Equal(t, "name", fields[0].Label)
	assert.Equal(t, layout.Region{{Offset: 1016, Length: 4}, {Offset: 1024, Length: 4}}, fields[0].Region)
	assert.Equal(t, "player[1].name", fields[2].Label)
	assert.Equal(t, layout.Region{{Offset: 4114, Length: 6}}, fields[2].Region)

	all, err := games.AllFields(target)
	require.NoError(t, err)
	var regions []layout.Region
	for _, slotFields := range all {
		for _, field := range slotFields {
			regions = append(regions, field.Region)
		}
	}
	assert.NoError(t, layout.CheckDisjoint(regions))
}

func TestGeneric__Encode(t *testing.T) {
	target := newGenericTarget(t)
	team := &rompatch.TeamRecord{
		Name:    "Tottenham Hotspur",
		Players: []rompatch.PlayerRecord{{Name: "Kane"}},
	}

	plan, err := target.Encode(rompatch.SlotID{Pool: "teams", Index: 2}, team)
	require.NoError(t, err)
	require.Len(t, plan.Writes, 3)

	assert.Equal(t, []byte("TOTTENH\x00"), plan.Writes[0].Data)
	assert.Equal(t, []byte("KANE\x00\x00"), plan.Writes[1].Data)
	assert.Equal(t, []byte("PLAYE\x00"), plan.Writes[2].Data)
	assert.Equal(t, 20, plan.Bytes())

	require.Len(t, plan.Warnings, 2)
	for _, warning := range plan.Warnings {
		assert.ErrorIs(t, warning, rompatch.ErrEncodingOverflow)
	}
}

func TestGeneric__CheckImage(t *testing.T) {
	target := newGenericTarget(t)

	image := make([]byte, 8192)
	assert.NoError(t, target.CheckImage(bytes.NewReader(image), int64(len(image))))

	err := target.CheckImage(bytes.NewReader(image[:4100]), 4100)
	assert.ErrorIs(t, err, rompatch.ErrMalformedInput)
}

func TestReadSlotNames(t *testing.T) {
	target := newGenericTarget(t)
	image := make([]byte, 8192)
	copy(image[1008:], "ARSENAL\x00")
	copy(image[1016:], "CHEL")
	copy(image[1024:], "SEA\x00")

	names, err := games.ReadSlotNames(target, bytes.NewReader(image), "teams", "name", textcodec.ASCIIUpper)
	require.NoError(t, err)
	assert.Equal(t, []string{"ARSENAL", "CHELSEA", "", ""}, names)

	_, err = games.ReadSlotNames(target, bytes.NewReader(image), "teams", "logo", textcodec.ASCIIUpper)
	assert.ErrorIs(t, err, rompatch.ErrNotFound)
}

func TestByName(t *testing.T) {
	target, err := games.ByName("WE2002")
	require.NoError(t, err)
	assert.Equal(t, "we2002", target.Name())

	_, err = games.ByName("pes6")
	assert.ErrorIs(t, err, rompatch.ErrNotFound)
}
