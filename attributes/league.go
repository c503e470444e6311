package attributes

import (
	"sort"

	"github.com/dargueta/rompatch"
)

// statValue extracts one rankable number from a player's raw statistics.
type statValue func(s *rompatch.PlayerStats) float64

func ratio(numerator, denominator int) float64 {
	if denominator < 1 {
		denominator = 1
	}
	return float64(numerator) / float64(denominator) * 100
}

// The attributes backed by statistics. Everything else is estimated from
// position and age.
var statCategories = map[rompatch.Attribute]statValue{
	rompatch.Offensive: func(s *rompatch.PlayerStats) float64 {
		return float64(s.Goals) + float64(s.Assists)*0.7 + float64(s.ShotsOn)*0.3
	},
	rompatch.Defensive: func(s *rompatch.PlayerStats) float64 {
		return float64(s.Tackles + s.Interceptions + s.Blocks)
	},
	rompatch.BodyBalance: func(s *rompatch.PlayerStats) float64 {
		return ratio(s.DuelsWon, s.DuelsTotal)
	},
	rompatch.Stamina: func(s *rompatch.PlayerStats) float64 {
		return float64(s.Minutes) / float64(max(s.Appearances, 1))
	},
	rompatch.PassAccuracy: func(s *rompatch.PlayerStats) float64 {
		return s.PassesAccuracy
	},
	rompatch.ShootPower: func(s *rompatch.PlayerStats) float64 {
		return float64(s.ShotsTotal + s.Goals)
	},
	rompatch.ShootAccuracy: func(s *rompatch.PlayerStats) float64 {
		return ratio(s.Goals, s.ShotsTotal)
	},
	rompatch.Technique: func(s *rompatch.PlayerStats) float64 {
		return ratio(s.DribbleSuccess, s.DribbleAttempts)
	},
	rompatch.Dribble: func(s *rompatch.PlayerStats) float64 {
		return float64(s.DribbleSuccess)
	},
	rompatch.Aggression: func(s *rompatch.PlayerStats) float64 {
		return float64(s.FoulsCommitted + s.YellowCards*2 + s.RedCards*5)
	},
}

// Percentile gives the percentage of `pool` strictly less than `value`. An
// empty pool gives 50. If every value in the pool is equal, every member of
// the pool gets 0.
func Percentile(value float64, pool []float64) float64 {
	if len(pool) == 0 {
		return 50
	}
	below := 0
	for _, v := range pool {
		if v < value {
			below++
		}
	}
	return float64(below) / float64(len(pool)) * 100
}

// League holds the sorted per-attribute pools every player is ranked against.
// Build one per patch run.
type League struct {
	pools map[rompatch.Attribute][]float64
}

// NewLeague collects the statistics of every player in every team. Players
// without statistics don't contribute.
func NewLeague(teams []rompatch.TeamRecord) *League {
	league := &League{pools: make(map[rompatch.Attribute][]float64)}
	for _, team := range teams {
		for _, player := range team.Players {
			if player.Stats == nil {
				continue
			}
			for attr, extract := range statCategories {
				league.pools[attr] = append(league.pools[attr], extract(player.Stats))
			}
		}
	}

	for _, pool := range league.pools {
		sort.Float64s(pool)
	}
	return league
}

// Size gives the number of players with statistics in the league.
func (l *League) Size() int {
	return len(l.pools[rompatch.Offensive])
}

// Percentile ranks `stats` for one attribute. Same result as [Percentile] on
// the league's pool, in logarithmic time.
func (l *League) Percentile(attr rompatch.Attribute, stats *rompatch.PlayerStats) float64 {
	extract, ok := statCategories[attr]
	if !ok || stats == nil {
		return 50
	}

	pool := l.pools[attr]
	if len(pool) == 0 {
		return 50
	}
	below := sort.SearchFloat64s(pool, extract(stats))
	return float64(below) / float64(len(pool)) * 100
}
