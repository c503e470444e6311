// Package attributes translates real-world player statistics into the discrete
// rating scales used by game images.
//
// A player's value for a statistic is ranked against every other player in the
// league (percentile rank: the share of values strictly below it), and the
// rank is looked up in a descending threshold table. Players without any
// appearances get a position-based default instead, nudged by age.
package attributes

// Threshold maps every percentile at or above Percentile to Rating, unless a
// higher threshold matched first.
type Threshold struct {
	Percentile float64
	Rating     int
}

// Scale is a game's discrete rating range. Step is the spacing between legal
// values starting from Min; sparse scales like "odd numbers from 1 to 15" use
// a step of 2.
type Scale struct {
	Name string
	Min  int
	Max  int
	Step int
	// Thresholds must be sorted by Percentile, descending.
	Thresholds []Threshold
}

// NineStep is the 1-9 scale used by Winning Eleven.
var NineStep = Scale{
	Name: "1-9",
	Min:  1,
	Max:  9,
	Step: 1,
	Thresholds: []Threshold{
		{95, 9}, {85, 8}, {70, 7}, {50, 6}, {35, 5}, {20, 4}, {10, 3}, {3, 2}, {0, 1},
	},
}

// OddFifteen is the 1-15 odd-only scale International Superstar Soccer uses
// for shooting and technique.
var OddFifteen = Scale{
	Name: "odd 1-15",
	Min:  1,
	Max:  15,
	Step: 2,
	Thresholds: []Threshold{
		{95, 15}, {85, 13}, {70, 11}, {50, 9}, {35, 7}, {20, 5}, {10, 3}, {0, 1},
	},
}

// Sixteen is the 1-16 scale International Superstar Soccer uses for speed and
// stamina.
var Sixteen = Scale{
	Name: "1-16",
	Min:  1,
	Max:  16,
	Step: 1,
	Thresholds: []Threshold{
		{95, 16}, {88, 14}, {75, 12}, {60, 10}, {45, 8}, {30, 6}, {15, 4}, {5, 2}, {0, 1},
	},
}

// Rate maps a percentile in [0, 100] to a rating.
func (s Scale) Rate(percentile float64) int {
	for _, threshold := range s.Thresholds {
		if percentile >= threshold.Percentile {
			return s.Clamp(threshold.Rating)
		}
	}
	return s.Min
}

// Clamp forces v into [Min, Max] and, on sparse scales, down to the nearest
// legal value.
func (s Scale) Clamp(v int) int {
	if v < s.Min {
		return s.Min
	}
	if v > s.Max {
		v = s.Max
	}
	if s.Step > 1 {
		v = s.Min + ((v-s.Min)/s.Step)*s.Step
	}
	return v
}

// FromNine converts a value expressed on [NineStep] to this scale, keeping its
// relative position in the range.
func (s Scale) FromNine(v int) int {
	if s.Min == NineStep.Min && s.Max == NineStep.Max {
		return s.Clamp(v)
	}
	span := s.Max - s.Min
	scaled := s.Min + ((v-NineStep.Min)*span+(NineStep.Max-NineStep.Min)/2)/(NineStep.Max-NineStep.Min)
	return s.Clamp(scaled)
}

// unit is the size of one adjustment step on this scale.
func (s Scale) unit() int {
	if s.Step < 1 {
		return 1
	}
	return s.Step
}
