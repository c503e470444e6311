// Package roster reads and writes roster files and fits team rosters to the
// fixed squad sizes of a game.
package roster

import (
	"fmt"
	"math"

	"github.com/dargueta/rompatch"
	"github.com/dargueta/rompatch/games"
)

// baseQuotas is the position breakdown of a full 22-man squad.
var baseQuotas = map[rompatch.Position]int{
	rompatch.Goalkeeper: 3,
	rompatch.Defender:   7,
	rompatch.Midfielder: 6,
	rompatch.Attacker:   6,
}

const baseSquadSize = 22

var positionOrder = []rompatch.Position{
	rompatch.Goalkeeper,
	rompatch.Defender,
	rompatch.Midfielder,
	rompatch.Attacker,
}

// Quotas gives how many players of each position a squad of `size` should
// have. Squads of 22 or more use the full quotas; smaller ones scale them down,
// keeping at least one goalkeeper.
func Quotas(size int) map[rompatch.Position]int {
	quotas := make(map[rompatch.Position]int, len(baseQuotas))
	for position, quota := range baseQuotas {
		if size >= baseSquadSize {
			quotas[position] = quota
		} else {
			quotas[position] = int(math.Round(float64(quota*size) / baseSquadSize))
		}
	}
	if size > 0 && quotas[rompatch.Goalkeeper] == 0 {
		quotas[rompatch.Goalkeeper] = 1
	}
	return quotas
}

// FitResult describes how a roster was changed to fit a slot.
type FitResult struct {
	Players []rompatch.PlayerRecord
	// Dropped lists the players that didn't make the squad.
	Dropped []rompatch.PlayerRecord
	// Padded is the number of placeholder players added.
	Padded int
}

// Warnings describes every drop and padding as an error, for reports.
func (result *FitResult) Warnings(team string) []error {
	var warnings []error
	for _, player := range result.Dropped {
		warnings = append(warnings, rompatch.ErrCapacityExceeded.WithMessage(
			fmt.Sprintf("team %q: player %q left out of the squad", team, player.Name)))
	}
	if result.Padded > 0 {
		warnings = append(warnings, rompatch.ErrCapacityExceeded.WithMessage(
			fmt.Sprintf("team %q: %d placeholder players added", team, result.Padded)))
	}
	return warnings
}

// Placeholder is the record used to pad short rosters.
func Placeholder() rompatch.PlayerRecord {
	return rompatch.PlayerRecord{Name: games.PlaceholderName, Position: rompatch.Midfielder}
}

// Fit picks exactly `size` players. Players are chosen by position quota
// first, then in input order. The squad is ordered goalkeepers first, then
// defenders, midfielders, attackers and finally players chosen to fill up.
// Short rosters are padded with placeholders.
func Fit(players []rompatch.PlayerRecord, size int) FitResult {
	quotas := Quotas(size)
	taken := make([]bool, len(players))
	result := FitResult{Players: make([]rompatch.PlayerRecord, 0, size)}

	for _, position := range positionOrder {
		remaining := quotas[position]
		for i, player := range players {
			if remaining == 0 || len(result.Players) == size {
				break
			}
			if player.Position == position {
				result.Players = append(result.Players, player)
				taken[i] = true
				remaining--
			}
		}
	}

	for i, player := range players {
		if taken[i] {
			continue
		}
		if len(result.Players) < size {
			result.Players = append(result.Players, player)
		} else {
			result.Dropped = append(result.Dropped, player)
		}
	}

	for len(result.Players) < size {
		result.Players = append(result.Players, Placeholder())
		result.Padded++
	}
	return result
}
