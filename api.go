package rompatch

import (
	"fmt"
	"strconv"
	"strings"
)

// Position is a player's on-field role. The numeric values are the ones stored
// in game images, so don't reorder them.
type Position int

const (
	Goalkeeper Position = iota
	Defender
	Midfielder
	Attacker
)

var positionNames = [...]string{"Goalkeeper", "Defender", "Midfielder", "Attacker"}

func (p Position) String() string {
	if p < 0 || int(p) >= len(positionNames) {
		return fmt.Sprintf("Position(%d)", int(p))
	}
	return positionNames[p]
}

// Code gives the two-letter abbreviation used in roster files.
func (p Position) Code() string {
	switch p {
	case Goalkeeper:
		return "GK"
	case Defender:
		return "DF"
	case Midfielder:
		return "MF"
	case Attacker:
		return "FW"
	}
	return "??"
}

// ParsePosition accepts full names ("Defender"), two-letter codes ("DF") and
// single letters ("D"), case-insensitively.
func ParsePosition(s string) (Position, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "GOALKEEPER", "GK", "G":
		return Goalkeeper, nil
	case "DEFENDER", "DF", "D":
		return Defender, nil
	case "MIDFIELDER", "MF", "M":
		return Midfielder, nil
	case "ATTACKER", "FORWARD", "FW", "F", "A":
		return Attacker, nil
	}
	return Midfielder, ErrInvalidArgument.WithMessage(fmt.Sprintf("unknown position %q", s))
}

// Attribute identifies one rating in a player's attribute set.
type Attribute int

const (
	Offensive Attribute = iota
	Defensive
	BodyBalance
	Stamina
	Speed
	Acceleration
	PassAccuracy
	ShootPower
	ShootAccuracy
	JumpPower
	Heading
	Technique
	Dribble
	Curve
	Aggression
	AttributeCount
)

var attributeCodes = [AttributeCount]string{
	"off", "def", "bod", "sta", "spe", "acl", "pas", "spw", "sac", "jmp", "hea",
	"tec", "dri", "cur", "agg",
}

// String returns the short column name used in roster files.
func (a Attribute) String() string {
	if a < 0 || a >= AttributeCount {
		return fmt.Sprintf("Attribute(%d)", int(a))
	}
	return attributeCodes[a]
}

// Ratings holds one value per [Attribute] on a game-specific scale. A zero value
// means "not supplied".
type Ratings [AttributeCount]int

func (r Ratings) IsZero() bool {
	for _, v := range r {
		if v != 0 {
			return false
		}
	}
	return true
}

// Sum adds up the given attributes, or all of them if none are given.
func (r Ratings) Sum(attrs ...Attribute) int {
	total := 0
	if len(attrs) == 0 {
		for _, v := range r {
			total += v
		}
		return total
	}
	for _, a := range attrs {
		total += r[a]
	}
	return total
}

// PlayerStats are raw per-season statistics as supplied by the roster provider.
type PlayerStats struct {
	Appearances     int
	Minutes         int
	Goals           int
	Assists         int
	ShotsTotal      int
	ShotsOn         int
	PassesAccuracy  float64
	Tackles         int
	Interceptions   int
	Blocks          int
	DuelsTotal      int
	DuelsWon        int
	DribbleAttempts int
	DribbleSuccess  int
	FoulsCommitted  int
	YellowCards     int
	RedCards        int
}

type PlayerRecord struct {
	Name     string
	Position Position
	Number   int
	Age      int
	Ratings  Ratings
	// Stats is optional. When Ratings is zero, ratings are derived from Stats,
	// or from position and age if Stats is nil or has no appearances.
	Stats *PlayerStats
}

// Color is a 24-bit RGB color.
type Color struct {
	R, G, B uint8
}

// ParseColor accepts "#RRGGBB", "RRGGBB" or "R,G,B".
func ParseColor(s string) (Color, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Color{}, nil
	}

	if strings.Contains(s, ",") {
		parts := strings.Split(s, ",")
		if len(parts) != 3 {
			return Color{}, ErrInvalidArgument.WithMessage(fmt.Sprintf("bad color %q", s))
		}
		var rgb [3]uint8
		for i, part := range parts {
			v, err := strconv.ParseUint(strings.TrimSpace(part), 10, 8)
			if err != nil {
				return Color{}, ErrInvalidArgument.Wrap(err)
			}
			rgb[i] = uint8(v)
		}
		return Color{rgb[0], rgb[1], rgb[2]}, nil
	}

	v, err := strconv.ParseUint(strings.TrimPrefix(s, "#"), 16, 32)
	if err != nil || len(strings.TrimPrefix(s, "#")) != 6 {
		return Color{}, ErrInvalidArgument.WithMessage(fmt.Sprintf("bad color %q", s))
	}
	return Color{uint8(v >> 16), uint8(v >> 8), uint8(v)}, nil
}

func (c Color) String() string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

// BGR555 converts the color to the 15-bit format used by the PlayStation GPU.
// Bit 15 (semi-transparency) is always clear.
func (c Color) BGR555() uint16 {
	return uint16(c.R>>3) | uint16(c.G>>3)<<5 | uint16(c.B>>3)<<10
}

type TeamRecord struct {
	Name      string
	ShortName string
	// Pool names the slot pool this team should go into. Empty means the
	// target's default pool.
	Pool    string
	KitHome Color
	KitAway Color
	Players []PlayerRecord
}

// Abbreviation gives the short name, or the first three letters of the name if
// none was supplied.
func (t *TeamRecord) Abbreviation() string {
	if t.ShortName != "" {
		return t.ShortName
	}
	name := []rune(strings.ToUpper(strings.TrimSpace(t.Name)))
	if len(name) > 3 {
		name = name[:3]
	}
	return string(name)
}

// SlotID is a fixed position within one of a target's slot pools.
type SlotID struct {
	Pool  string
	Index int
}

func (s SlotID) String() string {
	return fmt.Sprintf("%s:%d", s.Pool, s.Index)
}

// Progress is passed to a [ProgressFunc] between discrete steps of a patch run.
type Progress struct {
	State   string
	Step    int
	Total   int
	Message string
}

// ProgressFunc is invoked synchronously; it must not block for long.
type ProgressFunc func(Progress)
