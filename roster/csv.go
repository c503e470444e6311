package roster

import (
	"fmt"
	"io"
	"strings"

	"github.com/gocarina/gocsv"

	"github.com/dargueta/rompatch"
)

// Row is one line of a roster file: a player, together with the team it plays
// for. Team columns only need to be filled in on a team's first row. A row
// with no player name declares a team without adding a player to it.
type Row struct {
	TeamName  string `csv:"team_name"`
	TeamShort string `csv:"team_short"`
	Pool      string `csv:"pool"`
	KitHome   string `csv:"kit_home"`
	KitAway   string `csv:"kit_away"`

	PlayerName string `csv:"player_name"`
	Position   string `csv:"position"`
	Number     int    `csv:"number"`
	Age        int    `csv:"age"`

	Offensive     int `csv:"off"`
	Defensive     int `csv:"def"`
	BodyBalance   int `csv:"bod"`
	Stamina       int `csv:"sta"`
	Speed         int `csv:"spe"`
	Acceleration  int `csv:"acl"`
	PassAccuracy  int `csv:"pas"`
	ShootPower    int `csv:"spw"`
	ShootAccuracy int `csv:"sac"`
	JumpPower     int `csv:"jmp"`
	Heading       int `csv:"hea"`
	Technique     int `csv:"tec"`
	Dribble       int `csv:"dri"`
	Curve         int `csv:"cur"`
	Aggression    int `csv:"agg"`

	// Raw statistics. All optional.
	Appearances     int     `csv:"appearances"`
	Minutes         int     `csv:"minutes"`
	Goals           int     `csv:"goals"`
	Assists         int     `csv:"assists"`
	ShotsTotal      int     `csv:"shots_total"`
	ShotsOn         int     `csv:"shots_on"`
	PassesAccuracy  float64 `csv:"passes_accuracy"`
	Tackles         int     `csv:"tackles"`
	Interceptions   int     `csv:"interceptions"`
	Blocks          int     `csv:"blocks"`
	DuelsTotal      int     `csv:"duels_total"`
	DuelsWon        int     `csv:"duels_won"`
	DribbleAttempts int     `csv:"dribble_attempts"`
	DribbleSuccess  int     `csv:"dribble_success"`
	FoulsCommitted  int     `csv:"fouls_committed"`
	YellowCards     int     `csv:"yellow_cards"`
	RedCards        int     `csv:"red_cards"`
}

func (row *Row) ratings() rompatch.Ratings {
	return rompatch.Ratings{
		rompatch.Offensive:     row.Offensive,
		rompatch.Defensive:     row.Defensive,
		rompatch.BodyBalance:   row.BodyBalance,
		rompatch.Stamina:       row.Stamina,
		rompatch.Speed:         row.Speed,
		rompatch.Acceleration:  row.Acceleration,
		rompatch.PassAccuracy:  row.PassAccuracy,
		rompatch.ShootPower:    row.ShootPower,
		rompatch.ShootAccuracy: row.ShootAccuracy,
		rompatch.JumpPower:     row.JumpPower,
		rompatch.Heading:       row.Heading,
		rompatch.Technique:     row.Technique,
		rompatch.Dribble:       row.Dribble,
		rompatch.Curve:         row.Curve,
		rompatch.Aggression:    row.Aggression,
	}
}

func (row *Row) setRatings(r rompatch.Ratings) {
	row.Offensive = r[rompatch.Offensive]
	row.Defensive = r[rompatch.Defensive]
	row.BodyBalance = r[rompatch.BodyBalance]
	row.Stamina = r[rompatch.Stamina]
	row.Speed = r[rompatch.Speed]
	row.Acceleration = r[rompatch.Acceleration]
	row.PassAccuracy = r[rompatch.PassAccuracy]
	row.ShootPower = r[rompatch.ShootPower]
	row.ShootAccuracy = r[rompatch.ShootAccuracy]
	row.JumpPower = r[rompatch.JumpPower]
	row.Heading = r[rompatch.Heading]
	row.Technique = r[rompatch.Technique]
	row.Dribble = r[rompatch.Dribble]
	row.Curve = r[rompatch.Curve]
	row.Aggression = r[rompatch.Aggression]
}

// stats gives the row's statistics, or nil if it has none.
func (row *Row) stats() *rompatch.PlayerStats {
	stats := rompatch.PlayerStats{
		Appearances:     row.Appearances,
		Minutes:         row.Minutes,
		Goals:           row.Goals,
		Assists:         row.Assists,
		ShotsTotal:      row.ShotsTotal,
		ShotsOn:         row.ShotsOn,
		PassesAccuracy:  row.PassesAccuracy,
		Tackles:         row.Tackles,
		Interceptions:   row.Interceptions,
		Blocks:          row.Blocks,
		DuelsTotal:      row.DuelsTotal,
		DuelsWon:        row.DuelsWon,
		DribbleAttempts: row.DribbleAttempts,
		DribbleSuccess:  row.DribbleSuccess,
		FoulsCommitted:  row.FoulsCommitted,
		YellowCards:     row.YellowCards,
		RedCards:        row.RedCards,
	}
	if stats == (rompatch.PlayerStats{}) {
		return nil
	}
	return &stats
}

func (row *Row) setStats(stats *rompatch.PlayerStats) {
	if stats == nil {
		return
	}
	row.Appearances = stats.Appearances
	row.Minutes = stats.Minutes
	row.Goals = stats.Goals
	row.Assists = stats.Assists
	row.ShotsTotal = stats.ShotsTotal
	row.ShotsOn = stats.ShotsOn
	row.PassesAccuracy = stats.PassesAccuracy
	row.Tackles = stats.Tackles
	row.Interceptions = stats.Interceptions
	row.Blocks = stats.Blocks
	row.DuelsTotal = stats.DuelsTotal
	row.DuelsWon = stats.DuelsWon
	row.DribbleAttempts = stats.DribbleAttempts
	row.DribbleSuccess = stats.DribbleSuccess
	row.FoulsCommitted = stats.FoulsCommitted
	row.YellowCards = stats.YellowCards
	row.RedCards = stats.RedCards
}

func malformedRow(line int, format string, args ...any) error {
	return rompatch.ErrMalformedInput.WithMessage(
		fmt.Sprintf("row %d: %s", line, fmt.Sprintf(format, args...)))
}

// applyTeamColumns copies the team columns of a row into a team, complaining
// if they contradict what an earlier row said.
func applyTeamColumns(team *rompatch.TeamRecord, row *Row, line int) error {
	merge := func(column string, current *string, value string) error {
		value = strings.TrimSpace(value)
		if value == "" {
			return nil
		}
		if *current != "" && *current != value {
			return malformedRow(line, "%s %q contradicts earlier value %q for team %q",
				column, value, *current, team.Name)
		}
		*current = value
		return nil
	}

	if err := merge("team_short", &team.ShortName, row.TeamShort); err != nil {
		return err
	}
	if err := merge("pool", &team.Pool, row.Pool); err != nil {
		return err
	}

	for _, kit := range []struct {
		column string
		target *rompatch.Color
		value  string
	}{
		{"kit_home", &team.KitHome, row.KitHome},
		{"kit_away", &team.KitAway, row.KitAway},
	} {
		if strings.TrimSpace(kit.value) == "" {
			continue
		}
		color, err := rompatch.ParseColor(kit.value)
		if err != nil {
			return malformedRow(line, "%s: %s", kit.column, err)
		}
		*kit.target = color
	}
	return nil
}

// ReadCSV reads a roster file. Teams are returned in the order they first
// appear; players keep the order of their rows.
func ReadCSV(r io.Reader) ([]rompatch.TeamRecord, error) {
	var rows []*Row
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, rompatch.ErrMalformedInput.Wrap(err)
	}

	var teams []rompatch.TeamRecord
	index := make(map[string]int)
	for i, row := range rows {
		// Row 1 is the header.
		line := i + 2

		name := strings.TrimSpace(row.TeamName)
		if name == "" {
			return nil, malformedRow(line, "team_name is empty")
		}

		teamIndex, exists := index[name]
		if !exists {
			teamIndex = len(teams)
			index[name] = teamIndex
			teams = append(teams, rompatch.TeamRecord{Name: name})
		}
		team := &teams[teamIndex]
		if err := applyTeamColumns(team, row, line); err != nil {
			return nil, err
		}

		playerName := strings.TrimSpace(row.PlayerName)
		if playerName == "" {
			continue
		}

		position := rompatch.Midfielder
		if strings.TrimSpace(row.Position) != "" {
			var err error
			position, err = rompatch.ParsePosition(row.Position)
			if err != nil {
				return nil, malformedRow(line, "%s", err)
			}
		}

		team.Players = append(team.Players, rompatch.PlayerRecord{
			Name:     playerName,
			Position: position,
			Number:   row.Number,
			Age:      row.Age,
			Ratings:  row.ratings(),
			Stats:    row.stats(),
		})
	}
	return teams, nil
}

// WriteCSV writes teams in the format [ReadCSV] reads. Team columns are
// repeated on every row.
func WriteCSV(w io.Writer, teams []rompatch.TeamRecord) error {
	var rows []*Row
	for i := range teams {
		team := &teams[i]
		teamRow := Row{
			TeamName:  team.Name,
			TeamShort: team.ShortName,
			Pool:      team.Pool,
			KitHome:   team.KitHome.String(),
			KitAway:   team.KitAway.String(),
		}

		if len(team.Players) == 0 {
			row := teamRow
			rows = append(rows, &row)
			continue
		}
		for _, player := range team.Players {
			row := teamRow
			row.PlayerName = player.Name
			row.Position = player.Position.Code()
			row.Number = player.Number
			row.Age = player.Age
			row.setRatings(player.Ratings)
			row.setStats(player.Stats)
			rows = append(rows, &row)
		}
	}

	if err := gocsv.Marshal(rows, w); err != nil {
		return rompatch.ErrIOFailed.Wrap(err)
	}
	return nil
}
