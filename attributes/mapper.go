package attributes

import (
	"math"

	"github.com/dargueta/rompatch"
)

// Default ratings per position, on the 1-9 scale.
var defaultFallback = map[rompatch.Position]rompatch.Ratings{
	rompatch.Goalkeeper: {2, 7, 6, 6, 4, 4, 5, 3, 2, 7, 5, 4, 3, 3, 4},
	rompatch.Defender:   {3, 7, 6, 6, 5, 5, 5, 4, 3, 6, 6, 4, 3, 3, 6},
	rompatch.Midfielder: {5, 5, 5, 7, 5, 5, 7, 5, 5, 5, 5, 6, 6, 5, 5},
	rompatch.Attacker:   {7, 3, 5, 5, 6, 6, 5, 7, 7, 5, 5, 6, 6, 5, 5},
}

// Per-position bases for attributes that no statistic covers, on the 1-9
// scale. Indexed by position.
var (
	speedBase   = [4]int{4, 5, 5, 6}
	jumpBase    = [4]int{7, 6, 5, 5}
	headingBase = [4]int{5, 6, 5, 5}
	curveBase   = [4]int{3, 3, 5, 5}
)

// adjustment changes one attribute by Delta steps; a non-zero Ceiling (on the
// 1-9 scale) caps the result.
type adjustment struct {
	Attribute rompatch.Attribute
	Delta     int
	Ceiling   int
}

var positionAdjustments = map[rompatch.Position][]adjustment{
	rompatch.Goalkeeper: {
		{rompatch.Defensive, 2, 0},
		{rompatch.JumpPower, 2, 0},
		{rompatch.Offensive, 0, 4},
		{rompatch.ShootAccuracy, 0, 3},
	},
	rompatch.Defender: {
		{rompatch.Defensive, 1, 0},
		{rompatch.Heading, 1, 0},
	},
	rompatch.Midfielder: {
		{rompatch.PassAccuracy, 1, 0},
		{rompatch.Technique, 1, 0},
		{rompatch.Stamina, 1, 0},
	},
	rompatch.Attacker: {
		{rompatch.Offensive, 1, 0},
		{rompatch.ShootAccuracy, 1, 0},
		{rompatch.ShootPower, 1, 0},
	},
}

// Mapper produces a full [rompatch.Ratings] for a player on one or more
// scales.
type Mapper struct {
	// Scale applies to every attribute not listed in Overrides.
	Scale     Scale
	Overrides map[rompatch.Attribute]Scale
}

// NewMapper creates a mapper using one scale for all attributes.
func NewMapper(scale Scale) *Mapper {
	return &Mapper{Scale: scale}
}

// ISSMapper uses the International Superstar Soccer scales: odd 1-15 for
// everything, except 1-16 for speed, acceleration and stamina.
func ISSMapper() *Mapper {
	return &Mapper{
		Scale: OddFifteen,
		Overrides: map[rompatch.Attribute]Scale{
			rompatch.Speed:        Sixteen,
			rompatch.Acceleration: Sixteen,
			rompatch.Stamina:      Sixteen,
		},
	}
}

func (m *Mapper) scaleFor(attr rompatch.Attribute) Scale {
	if scale, ok := m.Overrides[attr]; ok {
		return scale
	}
	return m.Scale
}

// ScaleFor exposes the scale used for a given attribute.
func (m *Mapper) ScaleFor(attr rompatch.Attribute) Scale {
	return m.scaleFor(attr)
}

// Clamp forces every rating into its scale.
func (m *Mapper) Clamp(ratings rompatch.Ratings) rompatch.Ratings {
	for attr := rompatch.Attribute(0); attr < rompatch.AttributeCount; attr++ {
		ratings[attr] = m.scaleFor(attr).Clamp(ratings[attr])
	}
	return ratings
}

// MapPlayer derives ratings for a player. League may be nil, in which case
// every stat-backed percentile is 50.
//
// Players with no statistics or no appearances get the position default
// adjusted for age. Either way, position adjustments are applied afterwards
// and everything is clamped last.
func (m *Mapper) MapPlayer(player rompatch.PlayerRecord, league *League) rompatch.Ratings {
	var ratings rompatch.Ratings
	if player.Stats == nil || player.Stats.Appearances == 0 {
		ratings = m.fallback(player)
	} else {
		ratings = m.fromStats(player, league)
	}

	ratings = m.applyPositionAdjustments(ratings, player.Position)
	return m.Clamp(ratings)
}

func positionIndex(p rompatch.Position) int {
	if p < rompatch.Goalkeeper || p > rompatch.Attacker {
		return int(rompatch.Midfielder)
	}
	return int(p)
}

func (m *Mapper) fromStats(player rompatch.PlayerRecord, league *League) rompatch.Ratings {
	var ratings rompatch.Ratings
	for attr := range statCategories {
		percentile := 50.0
		if league != nil {
			percentile = league.Percentile(attr, player.Stats)
		}
		ratings[attr] = m.scaleFor(attr).Rate(percentile)
	}

	pos := positionIndex(player.Position)
	speed := speedBase[pos]
	if player.Age < 25 {
		speed++
	} else if player.Age > 32 {
		speed--
	}

	ratings[rompatch.Speed] = m.scaleFor(rompatch.Speed).FromNine(speed)
	ratings[rompatch.Acceleration] = m.scaleFor(rompatch.Acceleration).FromNine(speed)
	ratings[rompatch.JumpPower] = m.scaleFor(rompatch.JumpPower).FromNine(jumpBase[pos])
	ratings[rompatch.Heading] = m.scaleFor(rompatch.Heading).FromNine(headingBase[pos])
	ratings[rompatch.Curve] = m.scaleFor(rompatch.Curve).FromNine(curveBase[pos])
	return ratings
}

func (m *Mapper) fallback(player rompatch.PlayerRecord) rompatch.Ratings {
	defaults, ok := defaultFallback[player.Position]
	if !ok {
		defaults = defaultFallback[rompatch.Midfielder]
	}

	var ratings rompatch.Ratings
	for attr := rompatch.Attribute(0); attr < rompatch.AttributeCount; attr++ {
		ratings[attr] = m.scaleFor(attr).FromNine(defaults[attr])
	}

	shift := func(attr rompatch.Attribute, steps int) {
		scale := m.scaleFor(attr)
		ratings[attr] = scale.Clamp(ratings[attr] + steps*scale.unit())
	}

	switch {
	case player.Age < 23:
		shift(rompatch.Speed, 1)
		shift(rompatch.Acceleration, 1)
		shift(rompatch.Stamina, 1)
		shift(rompatch.Technique, -1)
	case player.Age >= 31 && player.Age <= 33:
		shift(rompatch.Speed, -1)
		shift(rompatch.Acceleration, -1)
		shift(rompatch.Stamina, -1)
		shift(rompatch.Technique, 1)
	case player.Age > 33:
		shift(rompatch.Speed, -2)
		shift(rompatch.Stamina, -2)
		shift(rompatch.Technique, 1)
	}
	return ratings
}

func (m *Mapper) applyPositionAdjustments(
	ratings rompatch.Ratings, position rompatch.Position,
) rompatch.Ratings {
	for _, adj := range positionAdjustments[position] {
		scale := m.scaleFor(adj.Attribute)
		value := ratings[adj.Attribute] + adj.Delta*scale.unit()
		if adj.Ceiling > 0 {
			ceiling := scale.FromNine(adj.Ceiling)
			if value > ceiling {
				value = ceiling
			}
		}
		ratings[adj.Attribute] = value
	}
	return ratings
}

// ForceBars summarizes a roster into the five 1-8 team strength bars shown on
// the team selection screen: attack, defence, power, speed, technique. Half
// values round to even. An empty roster gets 4 across the board.
func ForceBars(players []rompatch.Ratings) [5]int {
	if len(players) == 0 {
		return [5]int{4, 4, 4, 4, 4}
	}

	var attack, defence, power, speed, technique int
	for _, r := range players {
		attack += r[rompatch.Offensive]
		defence += r[rompatch.Defensive]
		power += r[rompatch.BodyBalance] + r[rompatch.ShootPower]
		speed += r[rompatch.Speed] + r[rompatch.Acceleration]
		technique += r[rompatch.Technique] + r[rompatch.PassAccuracy]
	}

	n := float64(len(players))
	bar := func(total int, divisor float64) int {
		v := int(math.RoundToEven(float64(total) / divisor))
		if v < 1 {
			return 1
		}
		if v > 8 {
			return 8
		}
		return v
	}

	return [5]int{
		bar(attack, n),
		bar(defence, n),
		bar(power, n*2),
		bar(speed, n*2),
		bar(technique, n*2),
	}
}
