package roster_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/dargueta/rompatch"
	"github.com/dargueta/rompatch/games"
	"github.com/dargueta/rompatch/roster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `team_name,team_short,pool,kit_home,kit_away,player_name,position,number,age,off,def,spe,appearances,goals
Arsenal,ARS,club,#EF0107,#FFFFFF,Seaman,GK,1,38,2,8,4,30,0
Arsenal,,,,,Henry,FW,14,24,9,3,9,33,24
Chelsea,CHE,,"3,70,148",,,,,,,,,,
Arsenal,,,,,Vieira,MF,4,25,6,7,6,0,0
`

func TestReadCSV(t *testing.T) {
	teams, err := roster.ReadCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	require.Len(t, teams, 2)

	arsenal := teams[0]
	assert.Equal(t, "Arsenal", arsenal.Name)
	assert.Equal(t, "ARS", arsenal.ShortName)
	assert.Equal(t, "club", arsenal.Pool)
	assert.Equal(t, rompatch.Color{R: 0xEF, G: 0x01, B: 0x07}, arsenal.KitHome)
	require.Len(t, arsenal.Players, 3)

	henry := arsenal.Players[1]
	assert.Equal(t, "Henry", henry.Name)
	assert.Equal(t, rompatch.Attacker, henry.Position)
	assert.Equal(t, 14, henry.Number)
	assert.Equal(t, 9, henry.Ratings[rompatch.Offensive])
	assert.Equal(t, 9, henry.Ratings[rompatch.Speed])
	require.NotNil(t, henry.Stats)
	assert.Equal(t, 24, henry.Stats.Goals)

	assert.Nil(t, arsenal.Players[2].Stats, "all-zero statistics should be nil")

	chelsea := teams[1]
	assert.Equal(t, "Chelsea", chelsea.Name)
	assert.Equal(t, rompatch.Color{R: 3, G: 70, B: 148}, chelsea.KitHome)
	assert.Empty(t, chelsea.Players)
}

func TestReadCSV__Malformed(t *testing.T) {
	tests := map[string]string{
		"no team":           "team_name,player_name\n,Henry\n",
		"bad position":      "team_name,player_name,position\nArsenal,Henry,libero\n",
		"bad color":         "team_name,kit_home\nArsenal,#12\n",
		"conflicting short": "team_name,team_short\nArsenal,ARS\nArsenal,AFC\n",
		"not a number":      "team_name,player_name,number\nArsenal,Henry,fourteen\n",
	}
	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := roster.ReadCSV(strings.NewReader(input))
			assert.ErrorIs(t, err, rompatch.ErrMalformedInput)
		})
	}
}

func TestWriteCSV__RoundTrip(t *testing.T) {
	teams, err := roster.ReadCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	var buffer bytes.Buffer
	require.NoError(t, roster.WriteCSV(&buffer, teams))

	reread, err := roster.ReadCSV(&buffer)
	require.NoError(t, err)
	assert.Equal(t, teams, reread)
}

func makePlayers(positions string) []rompatch.PlayerRecord {
	codes := map[rune]rompatch.Position{
		'G': rompatch.Goalkeeper,
		'D': rompatch.Defender,
		'M': rompatch.Midfielder,
		'F': rompatch.Attacker,
	}
	players := make([]rompatch.PlayerRecord, 0, len(positions))
	for i, code := range positions {
		players = append(players, rompatch.PlayerRecord{
			Name:     string(code) + strings.Repeat("x", i),
			Position: codes[code],
		})
	}
	return players
}

func countPositions(players []rompatch.PlayerRecord) map[rompatch.Position]int {
	counts := make(map[rompatch.Position]int)
	for _, player := range players {
		if player.Name != games.PlaceholderName {
			counts[player.Position]++
		}
	}
	return counts
}

func TestQuotas(t *testing.T) {
	assert.Equal(
		t,
		map[rompatch.Position]int{
			rompatch.Goalkeeper: 3,
			rompatch.Defender:   7,
			rompatch.Midfielder: 6,
			rompatch.Attacker:   6,
		},
		roster.Quotas(23))

	for _, size := range []int{1, 5, 14, 15} {
		quotas := roster.Quotas(size)
		assert.GreaterOrEqual(t, quotas[rompatch.Goalkeeper], 1, "size %d has no goalkeeper", size)
	}
}

func TestFit__Oversized(t *testing.T) {
	// 5 GK, 10 DF, 8 MF, 8 FW
	players := makePlayers(strings.Repeat("G", 5) + strings.Repeat("D", 10) +
		strings.Repeat("M", 8) + strings.Repeat("F", 8))

	result := roster.Fit(players, 22)
	require.Len(t, result.Players, 22)
	assert.Len(t, result.Dropped, 9)
	assert.Zero(t, result.Padded)
	assert.Equal(
		t,
		map[rompatch.Position]int{
			rompatch.Goalkeeper: 3,
			rompatch.Defender:   7,
			rompatch.Midfielder: 6,
			rompatch.Attacker:   6,
		},
		countPositions(result.Players))
	assert.Equal(t, rompatch.Goalkeeper, result.Players[0].Position)
	assert.Len(t, result.Warnings("Arsenal"), 9)
}

func TestFit__FillsFromAnyPosition(t *testing.T) {
	// Only one goalkeeper and lots of midfielders.
	players := makePlayers("G" + strings.Repeat("M", 25))

	result := roster.Fit(players, 23)
	require.Len(t, result.Players, 23)
	assert.Equal(t, 1, countPositions(result.Players)[rompatch.Goalkeeper])
	assert.Equal(t, 22, countPositions(result.Players)[rompatch.Midfielder])
	assert.Len(t, result.Dropped, 3)
}

func TestFit__PadsShortRoster(t *testing.T) {
	players := makePlayers("GDDMF")

	result := roster.Fit(players, 14)
	require.Len(t, result.Players, 14)
	assert.Equal(t, 9, result.Padded)
	assert.Empty(t, result.Dropped)
	assert.Equal(t, games.PlaceholderName, result.Players[13].Name)

	warnings := result.Warnings("Arsenal")
	require.Len(t, warnings, 1)
	assert.ErrorIs(t, warnings[0], rompatch.ErrCapacityExceeded)
}
