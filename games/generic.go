package games

import (
	"fmt"
	"io"

	"github.com/dargueta/rompatch"
	"github.com/dargueta/rompatch/attributes"
	"github.com/dargueta/rompatch/layout"
	"github.com/dargueta/rompatch/textcodec"
)

// Generic is a target with a single pool, a table of team names, and
// optionally a table of player names. It's meant for simple tools and for
// images whose layout is known but which have no dedicated target.
type Generic struct {
	name        string
	pool        *Pool
	teamNames   layout.FixedTable
	playerNames *layout.FixedTable
	squadSize   int
	charset     textcodec.Charset
}

// NewGeneric creates a target whose team name table has one record per slot.
// Records are filled with text in the given charset.
func NewGeneric(
	name string,
	pool *Pool,
	teamNames layout.FixedTable,
	charset textcodec.Charset,
) (*Generic, error) {
	if err := teamNames.Validate(); err != nil {
		return nil, fmt.Errorf("team name table: %w", err)
	}
	if teamNames.Count != pool.Size() {
		return nil, rompatch.ErrInvalidArgument.WithMessage(
			fmt.Sprintf(
				"team name table has %d records, pool %q has %d slots",
				teamNames.Count,
				pool.Name,
				pool.Size()))
	}
	return &Generic{name: name, pool: pool, teamNames: teamNames, charset: charset}, nil
}

// WithPlayers adds a player name table. Slot i owns records
// [i*squadSize, (i+1)*squadSize). The table must use the same geometry as the
// team names.
func (g *Generic) WithPlayers(playerNames layout.FixedTable, squadSize int) (*Generic, error) {
	if err := playerNames.Validate(); err != nil {
		return nil, fmt.Errorf("player name table: %w", err)
	}
	if squadSize <= 0 || playerNames.Count != g.pool.Size()*squadSize {
		return nil, rompatch.ErrInvalidArgument.WithMessage(
			fmt.Sprintf(
				"player table has %d records, need %d slots of %d players",
				playerNames.Count,
				g.pool.Size(),
				squadSize))
	}
	if playerNames.Geometry != g.teamNames.Geometry {
		return nil, rompatch.ErrInvalidArgument.WithMessage(
			"player table geometry differs from team table geometry")
	}

	withPlayers := *g
	withPlayers.playerNames = &playerNames
	withPlayers.squadSize = squadSize
	return &withPlayers, nil
}

func (g *Generic) Name() string {
	return g.name
}

func (g *Generic) Geometry() layout.Geometry {
	return g.teamNames.Geometry
}

func (g *Generic) Pools() []*Pool {
	return []*Pool{g.pool}
}

func (g *Generic) Pool(name string) (*Pool, error) {
	return findPool(g.Pools(), name)
}

func (g *Generic) DefaultPool() string {
	return g.pool.Name
}

func (g *Generic) SquadSize(slot rompatch.SlotID) (int, error) {
	if _, err := checkSlot(g.Pools(), slot); err != nil {
		return 0, err
	}
	return g.squadSize, nil
}

func (g *Generic) RatingScale() attributes.Scale {
	return attributes.NineStep
}

func (g *Generic) tables() map[string]layout.Table {
	tables := map[string]layout.Table{"team names": g.teamNames}
	if g.playerNames != nil {
		tables["player names"] = *g.playerNames
	}
	return tables
}

func (g *Generic) CheckImage(image io.ReaderAt, size int64) error {
	return checkExtent(g.name, g.tables(), size)
}

func (g *Generic) Layout(slot rompatch.SlotID) ([]Field, error) {
	if _, err := checkSlot(g.Pools(), slot); err != nil {
		return nil, err
	}

	region, err := g.teamNames.Resolve(slot.Index)
	if err != nil {
		return nil, err
	}
	fields := []Field{{Label: "name", Region: region}}

	for i := 0; i < g.squadSize; i++ {
		region, err = g.playerNames.Resolve(slot.Index*g.squadSize + i)
		if err != nil {
			return nil, err
		}
		fields = append(fields, Field{Label: fmt.Sprintf("player[%d].name", i), Region: region})
	}
	return fields, nil
}

func (g *Generic) Encode(slot rompatch.SlotID, team *rompatch.TeamRecord) (*SlotPlan, error) {
	fields, err := g.Layout(slot)
	if err != nil {
		return nil, err
	}

	plan := &SlotPlan{Slot: slot, Team: team.Name}
	plan.encodeText(fields[0], team.Name, g.charset)
	for i, field := range fields[1:] {
		name := PlaceholderName
		if i < len(team.Players) {
			name = team.Players[i].Name
		}
		plan.encodeText(field, name, g.charset)
	}
	return plan, nil
}
