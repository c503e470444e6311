package games

import (
	"bytes"
	_ "embed"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/gocarina/gocsv"

	"github.com/dargueta/rompatch"
	"github.com/dargueta/rompatch/attributes"
	"github.com/dargueta/rompatch/bittable"
	"github.com/dargueta/rompatch/layout"
	"github.com/dargueta/rompatch/textcodec"
)

// World Soccer Winning Eleven 2002 keeps one entry per team in most of its
// team tables: the 63 national teams first, then the 32 Master League clubs.
// Entry e of the tables below is national team e for e < 63 and club slot
// e-63 otherwise.
const (
	we2002NationalSlots = 63
	we2002ClubSlots     = 32
	we2002Entries       = we2002NationalSlots + we2002ClubSlots

	we2002NationalSquad  = 23
	we2002ClubPlayers    = 462
	we2002NationalPlayer = we2002NationalSlots * we2002NationalSquad

	we2002PlayerNameSize  = 10
	we2002PlayerNameChars = 8
	we2002CharacterSize   = 12
	we2002KitSize         = 64
)

////////////////////////////////////////////////////////////////////////////////
// Name budgets

// we2002BudgetRow gives, for one table entry, the byte budget of each upper
// case name variant, the lower case variant, and the number of dual-byte
// characters of the menu name.
type we2002BudgetRow struct {
	Entry int `csv:"entry"`
	SQ1   int `csv:"sq1"`
	SQ2   int `csv:"sq2"`
	SQ3   int `csv:"sq3"`
	SQ4   int `csv:"sq4"`
	SQ5   int `csv:"sq5"`
	SQ6   int `csv:"sq6"`
	Lower int `csv:"lower"`
	Kanji int `csv:"kanji"`
}

//go:embed we2002_budgets.csv
var we2002BudgetsRawCSV string
var we2002Target *WE2002Target

func init() {
	var rows []*we2002BudgetRow
	if err := gocsv.UnmarshalString(we2002BudgetsRawCSV, &rows); err != nil {
		panic(fmt.Errorf("failed to decode WE2002 name budgets: %w", err))
	}

	budgets := make([]*we2002BudgetRow, we2002Entries)
	for i, row := range rows {
		if row.Entry < 0 || row.Entry >= we2002Entries {
			panic(fmt.Errorf("WE2002 budget row %d: entry %d out of range", i+1, row.Entry))
		}
		if budgets[row.Entry] != nil {
			panic(fmt.Errorf("duplicate WE2002 budget for entry %d found on row %d", row.Entry, i+1))
		}
		budgets[row.Entry] = row
	}
	for entry, row := range budgets {
		if row == nil {
			panic(fmt.Errorf("no WE2002 budget for entry %d", entry))
		}
	}

	we2002Target = newWE2002(budgets)
}

////////////////////////////////////////////////////////////////////////////////
// Table locations

// Name tables are written clubs first, in reverse slot order, then national
// teams. The dual-byte table also stores the national teams backwards.
var (
	we2002NameOrder  = concatRanges(descending(we2002Entries-1, we2002NationalSlots), ascending(0, we2002NationalSlots-1))
	we2002KanjiOrder = concatRanges(descending(we2002Entries-1, we2002NationalSlots), descending(we2002NationalSlots-1, 0))
)

type we2002NameVariant struct {
	Label    string
	Base     int64
	Restarts map[int]int64
	Charset  textcodec.Charset
	Budget   func(row *we2002BudgetRow) int
}

var we2002NameVariants = []we2002NameVariant{
	{
		Label:    "name.sq1",
		Base:     1_012_640,
		Restarts: map[int]int64{40: 1_013_736},
		Charset:  textcodec.ASCIIUpper,
		Budget:   func(row *we2002BudgetRow) int { return row.SQ1 },
	},
	{
		Label:   "name.sq2",
		Base:    1_881_968,
		Charset: textcodec.ASCIIUpper,
		Budget:  func(row *we2002BudgetRow) int { return row.SQ2 },
	},
	{
		Label:   "name.sq3",
		Base:    2_003_996,
		Charset: textcodec.ASCIIUpper,
		Budget:  func(row *we2002BudgetRow) int { return row.SQ3 },
	},
	{
		Label:   "name.sq4",
		Base:    2_830_160,
		Charset: textcodec.ASCIIUpper,
		Budget:  func(row *we2002BudgetRow) int { return row.SQ4 },
	},
	{
		Label:   "name.sq5",
		Base:    4_822_908,
		Charset: textcodec.ASCIIUpper,
		Budget:  func(row *we2002BudgetRow) int { return row.SQ5 },
	},
	{
		Label: "name.sq6",
		Base:  5_651_448,
		// Club slot 16 and national team 0 each start a new run.
		Restarts: map[int]int64{79: 5_651_880, 0: 5_652_364},
		Charset:  textcodec.ASCIIUpper,
		Budget:   func(row *we2002BudgetRow) int { return row.SQ6 },
	},
	{
		Label:   "name.lower",
		Base:    4_598_596,
		Charset: textcodec.ASCIIPreserve,
		Budget:  func(row *we2002BudgetRow) int { return row.Lower },
	},
}

const (
	we2002KanjiBase          = 2_002_316
	we2002BarsBase           = 2_328_184
	we2002KitBase            = 2_671_896
	we2002ClubNamesBase      = 2_006_288
	we2002ClubCharsBase      = 2_204_112
	we2002NationalNamesBase  = 387_792
	we2002NationalCharsBase  = 2_179_492
	we2002AbbreviationStride = 4
	we2002BarsStride         = 5
)

var we2002AbbreviationBases = []int64{2_004_996, 5_651_068, 4_234_484}

// Abbreviations are stored clubs first, reversed, then national teams.
func we2002AbbreviationOrder() []int {
	order := make([]int, we2002Entries)
	for entry := range order {
		if entry < we2002NationalSlots {
			order[entry] = we2002ClubSlots + entry
		} else {
			order[entry] = we2002Entries - 1 - entry
		}
	}
	return order
}

func ascending(from, to int) []int {
	out := make([]int, 0, to-from+1)
	for i := from; i <= to; i++ {
		out = append(out, i)
	}
	return out
}

func descending(from, to int) []int {
	out := make([]int, 0, from-to+1)
	for i := from; i >= to; i-- {
		out = append(out, i)
	}
	return out
}

func concatRanges(parts ...[]int) []int {
	var out []int
	for _, part := range parts {
		out = append(out, part...)
	}
	return out
}

////////////////////////////////////////////////////////////////////////////////
// Player characteristics

// Position codes as stored in the characteristic block.
var we2002PositionCodes = map[rompatch.Position]int{
	rompatch.Goalkeeper: 0,
	rompatch.Defender:   1,
	rompatch.Midfielder: 3,
	rompatch.Attacker:   6,
}

func u(name string, offset, width int) bittable.Field {
	return bittable.Field{Name: name, Kind: bittable.UnsignedInt, BitOffset: offset, BitWidth: width}
}

// we2002CharacterFields is the 12-byte player characteristic block.
var we2002CharacterFields = []bittable.Field{
	u("position", 0, 3),
	u("hair_style", 4, 5),
	u("hair_color", 9, 3),
	u("beard_style", 13, 3),
	u("beard_color", 17, 3),
	u("height", 20, 6),
	u("number", 26, 5),
	u("out_of_position", 31, 1),
	u("skin", 32, 2),
	u("build", 34, 3),
	u("age", 37, 5),
	u("reflexes", 42, 3),
	u("body_balance", 46, 3),
	u("stamina", 49, 3),
	u("dribble", 52, 3),
	u("speed", 55, 3),
	u("acceleration", 58, 3),
	u("offensive", 61, 3),
	u("defensive", 64, 3),
	u("shoot_power", 67, 3),
	u("shoot_accuracy", 70, 3),
	u("pass", 73, 3),
	u("technique", 76, 3),
	u("heading", 79, 3),
	u("jump", 82, 3),
	u("curve", 85, 3),
	u("aggression", 88, 3),
	u("shoes", 91, 3),
	u("foot", 94, 2),
}

var we2002RatingFields = map[string]rompatch.Attribute{
	"reflexes":       rompatch.Defensive,
	"body_balance":   rompatch.BodyBalance,
	"stamina":        rompatch.Stamina,
	"dribble":        rompatch.Dribble,
	"speed":          rompatch.Speed,
	"acceleration":   rompatch.Acceleration,
	"offensive":      rompatch.Offensive,
	"defensive":      rompatch.Defensive,
	"shoot_power":    rompatch.ShootPower,
	"shoot_accuracy": rompatch.ShootAccuracy,
	"pass":           rompatch.PassAccuracy,
	"technique":      rompatch.Technique,
	"heading":        rompatch.Heading,
	"jump":           rompatch.JumpPower,
	"curve":          rompatch.Curve,
	"aggression":     rompatch.Aggression,
}

const (
	we2002DefaultHeight = 178
	we2002MinHeight     = 148
	we2002DefaultAge    = 25
	we2002MinAge        = 15
	we2002DefaultBuild  = 2
)

// we2002StoredRating converts a 1-9 rating to the 3-bit stored value.
//
// Approximate policy table: the game's own 1-9 display is derived from the
// stored value plus hidden modifiers, so rating-1 clamped to 0..7 only
// reproduces the intended rating roughly.
func we2002StoredRating(rating int) int {
	return min(7, max(0, rating-1))
}

// encodeCharacteristics builds the characteristic block of a real player.
// Appearance fields are left at their defaults.
func encodeCharacteristics(player *rompatch.PlayerRecord) ([]byte, error) {
	number := min(32, max(1, player.Number))
	age := player.Age
	if age < we2002MinAge || age > we2002MinAge+31 {
		age = we2002DefaultAge
	}
	position, ok := we2002PositionCodes[player.Position]
	if !ok {
		position = we2002PositionCodes[rompatch.Defender]
	}

	values := bittable.Record{
		"position": position,
		"height":   we2002DefaultHeight - we2002MinHeight,
		"number":   number - 1,
		"build":    we2002DefaultBuild,
		"age":      age - we2002MinAge,
	}
	for field, attr := range we2002RatingFields {
		values[field] = we2002StoredRating(player.Ratings[attr])
	}
	return bittable.PackRecord(we2002CharacterFields, we2002CharacterSize, values)
}

// isPlaceholder reports whether a player is padding rather than a real person.
// Placeholders get an all-zero characteristic block.
func isPlaceholder(player *rompatch.PlayerRecord) bool {
	return player.Name == PlaceholderName && player.Ratings.IsZero()
}

////////////////////////////////////////////////////////////////////////////////
// Kits

// kitPalettes builds the two 16-color CLUTs of a club kit. Entries 0-1 are
// reserved, 2-9 color the shirt and 10-15 the shorts.
func kitPalettes(home, away rompatch.Color) []byte {
	primary := home.BGR555()
	secondary := away.BGR555()

	data := make([]byte, 0, we2002KitSize)
	for _, colors := range [][2]uint16{{primary, secondary}, {secondary, primary}} {
		data = binary.LittleEndian.AppendUint16(data, 0)
		data = binary.LittleEndian.AppendUint16(data, 0)
		for i := 0; i < 8; i++ {
			data = binary.LittleEndian.AppendUint16(data, colors[0])
		}
		for i := 0; i < 6; i++ {
			data = binary.LittleEndian.AppendUint16(data, colors[1])
		}
	}
	return data
}

////////////////////////////////////////////////////////////////////////////////

type we2002PackedName struct {
	we2002NameVariant
	table   layout.PackedTable
	regions []layout.Region
}

// WE2002Target is World Soccer Winning Eleven 2002 for the PlayStation, ripped
// as a raw Mode 2 image. Kit colors are only written for club slots.
type WE2002Target struct {
	club     *Pool
	national *Pool

	names         []we2002PackedName
	kanji         layout.PackedTable
	kanjiRegions  []layout.Region
	abbreviations []layout.FixedTable
	bars          layout.FixedTable
	kits          layout.FixedTable
	clubNames     layout.FixedTable
	clubChars     layout.FixedTable
	nationalNames layout.FixedTable
	nationalChars layout.FixedTable
}

// WE2002 returns the WE2002 target. It's immutable and shared.
func WE2002() *WE2002Target {
	return we2002Target
}

func newWE2002(budgets []*we2002BudgetRow) *WE2002Target {
	geometry := layout.Mode2Raw
	target := &WE2002Target{
		club:     NumberedPool("club", "ML", we2002ClubSlots),
		national: NumberedPool("national", "NT", we2002NationalSlots),
	}

	for _, variant := range we2002NameVariants {
		widths := make([]int, we2002Entries)
		for entry, row := range budgets {
			widths[entry] = variant.Budget(row)
		}
		table := layout.PackedTable{
			Base:     variant.Base,
			Widths:   widths,
			Order:    we2002NameOrder,
			Restarts: variant.Restarts,
			Geometry: geometry,
		}
		regions, err := table.Regions()
		if err != nil {
			panic(fmt.Errorf("WE2002 %s: %w", variant.Label, err))
		}
		target.names = append(target.names, we2002PackedName{variant, table, regions})
	}

	kanjiWidths := make([]int, we2002Entries)
	for entry, row := range budgets {
		kanjiWidths[entry] = row.Kanji * textcodec.ShiftJIS.Width()
	}
	target.kanji = layout.PackedTable{
		Base:     we2002KanjiBase,
		Widths:   kanjiWidths,
		Order:    we2002KanjiOrder,
		Geometry: geometry,
	}
	var err error
	target.kanjiRegions, err = target.kanji.Regions()
	if err != nil {
		panic(fmt.Errorf("WE2002 kanji names: %w", err))
	}

	abbreviationOrder := we2002AbbreviationOrder()
	for _, base := range we2002AbbreviationBases {
		target.abbreviations = append(target.abbreviations, layout.FixedTable{
			Base:     base,
			Stride:   we2002AbbreviationStride,
			Count:    we2002Entries,
			Order:    abbreviationOrder,
			Geometry: geometry,
		})
	}

	target.bars = layout.FixedTable{
		Base: we2002BarsBase, Stride: we2002BarsStride, Count: we2002Entries, Geometry: geometry,
	}
	target.kits = layout.FixedTable{
		Base: we2002KitBase, Stride: we2002KitSize, Count: we2002ClubSlots, Geometry: geometry,
	}
	target.clubNames = layout.FixedTable{
		Base:     we2002ClubNamesBase,
		Stride:   we2002PlayerNameSize,
		Count:    we2002ClubPlayers,
		Geometry: geometry,
	}
	target.clubChars = layout.FixedTable{
		Base:     we2002ClubCharsBase,
		Stride:   we2002CharacterSize,
		Count:    we2002ClubPlayers,
		Geometry: geometry,
	}
	target.nationalNames = layout.FixedTable{
		Base:     we2002NationalNamesBase,
		Stride:   we2002PlayerNameSize,
		Count:    we2002NationalPlayer,
		Geometry: geometry,
	}
	target.nationalChars = layout.FixedTable{
		Base:     we2002NationalCharsBase,
		Stride:   we2002CharacterSize,
		Count:    we2002NationalPlayer,
		Geometry: geometry,
	}

	for label, table := range target.tables() {
		if validator, ok := table.(interface{ Validate() error }); ok {
			if err := validator.Validate(); err != nil {
				panic(fmt.Errorf("WE2002 %s: %w", label, err))
			}
		}
	}
	return target
}

func (t *WE2002Target) tables() map[string]layout.Table {
	tables := map[string]layout.Table{
		"name.kanji":     t.kanji,
		"bars":           t.bars,
		"kit":            t.kits,
		"club players":   t.clubNames,
		"club stats":     t.clubChars,
		"national names": t.nationalNames,
		"national stats": t.nationalChars,
		"abbreviation.1": t.abbreviations[0],
		"abbreviation.2": t.abbreviations[1],
		"abbreviation.3": t.abbreviations[2],
	}
	for _, name := range t.names {
		tables[name.Label] = name.table
	}
	return tables
}

func (t *WE2002Target) Name() string {
	return "we2002"
}

func (t *WE2002Target) Geometry() layout.Geometry {
	return layout.Mode2Raw
}

func (t *WE2002Target) Pools() []*Pool {
	return []*Pool{t.club, t.national}
}

func (t *WE2002Target) Pool(name string) (*Pool, error) {
	return findPool(t.Pools(), name)
}

func (t *WE2002Target) DefaultPool() string {
	return t.club.Name
}

func (t *WE2002Target) RatingScale() attributes.Scale {
	return attributes.NineStep
}

// entry gives the index of a slot in the per-team tables.
func (t *WE2002Target) entry(slot rompatch.SlotID) (int, bool, error) {
	pool, err := checkSlot(t.Pools(), slot)
	if err != nil {
		return 0, false, err
	}
	if pool == t.club {
		return we2002NationalSlots + slot.Index, true, nil
	}
	return slot.Index, false, nil
}

// squad gives the index of the slot's first player and the number of players
// it has. Club squads are stored last slot first; the 14 highest slots hold
// 15 players and the rest 14.
func (t *WE2002Target) squad(slot rompatch.SlotID) (first, count int, isClub bool, err error) {
	_, isClub, err = t.entry(slot)
	if err != nil {
		return 0, 0, false, err
	}
	if !isClub {
		return slot.Index * we2002NationalSquad, we2002NationalSquad, false, nil
	}

	storedAt := we2002ClubSlots - 1 - slot.Index
	if slot.Index >= 18 {
		return storedAt * 15, 15, true, nil
	}
	return 14*15 + (storedAt-14)*14, 14, true, nil
}

func (t *WE2002Target) SquadSize(slot rompatch.SlotID) (int, error) {
	_, count, _, err := t.squad(slot)
	return count, err
}

var mode2Sync = []byte{0x00, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x00}

// CheckImage looks for Mode 2 sync patterns at the start of the first two
// sectors, and makes sure every table lies within the image.
func (t *WE2002Target) CheckImage(image io.ReaderAt, size int64) error {
	sync := make([]byte, len(mode2Sync))
	for _, offset := range []int64{0, layout.Mode2Raw.Period} {
		if offset+int64(len(sync)) > size {
			return rompatch.ErrMalformedInput.WithMessage(
				fmt.Sprintf("image is only %d bytes, not a raw Mode 2 image", size))
		}
		if _, err := image.ReadAt(sync, offset); err != nil {
			return rompatch.ErrIOFailed.Wrap(err)
		}
		if !bytes.Equal(sync, mode2Sync) {
			return rompatch.ErrMalformedInput.WithMessage(
				fmt.Sprintf("no sector sync pattern at offset %d; not a raw 2352-byte image", offset))
		}
	}
	return checkExtent(t.Name(), t.tables(), size)
}

func (t *WE2002Target) Layout(slot rompatch.SlotID) ([]Field, error) {
	entry, isClub, err := t.entry(slot)
	if err != nil {
		return nil, err
	}

	fields := make([]Field, 0, 64)
	for _, name := range t.names {
		fields = append(fields, Field{Label: name.Label, Region: name.regions[entry]})
	}
	fields = append(fields, Field{Label: "name.kanji", Region: t.kanjiRegions[entry]})

	fixed := []struct {
		label string
		table layout.FixedTable
		index int
	}{
		{"abbreviation.1", t.abbreviations[0], entry},
		{"abbreviation.2", t.abbreviations[1], entry},
		{"abbreviation.3", t.abbreviations[2], entry},
		{"bars", t.bars, entry},
	}
	if isClub {
		fixed = append(fixed, struct {
			label string
			table layout.FixedTable
			index int
		}{"kit", t.kits, slot.Index})
	}
	for _, f := range fixed {
		region, err := f.table.Resolve(f.index)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.label, err)
		}
		fields = append(fields, Field{Label: f.label, Region: region})
	}

	first, count, _, err := t.squad(slot)
	if err != nil {
		return nil, err
	}
	names, chars := t.nationalNames, t.nationalChars
	if isClub {
		names, chars = t.clubNames, t.clubChars
	}
	for i := 0; i < count; i++ {
		nameRegion, err := names.Resolve(first + i)
		if err != nil {
			return nil, err
		}
		charRegion, err := chars.Resolve(first + i)
		if err != nil {
			return nil, err
		}
		fields = append(fields,
			Field{Label: fmt.Sprintf("player[%d].name", i), Region: nameRegion},
			Field{Label: fmt.Sprintf("player[%d].stats", i), Region: charRegion})
	}
	return fields, nil
}

func (t *WE2002Target) Encode(slot rompatch.SlotID, team *rompatch.TeamRecord) (*SlotPlan, error) {
	fields, err := t.Layout(slot)
	if err != nil {
		return nil, err
	}

	plan := &SlotPlan{Slot: slot, Team: team.Name}
	charsets := make(map[string]textcodec.Charset, len(t.names))
	for _, name := range t.names {
		charsets[name.Label] = name.Charset
	}

	var ratings []rompatch.Ratings
	for i := range team.Players {
		if !isPlaceholder(&team.Players[i]) {
			ratings = append(ratings, team.Players[i].Ratings)
		}
	}

	abbreviation := team.Abbreviation()
	for _, field := range fields {
		switch {
		case charsets[field.Label] != nil:
			plan.encodeText(field, team.Name, charsets[field.Label])

		case field.Label == "name.kanji":
			plan.encodeText(field, team.Name, textcodec.ShiftJIS)

		case field.Label == "abbreviation.1" ||
			field.Label == "abbreviation.2" ||
			field.Label == "abbreviation.3":
			plan.encodeText(field, abbreviation, textcodec.ASCIIUpper)

		case field.Label == "bars":
			bars := attributes.ForceBars(ratings)
			data := make([]byte, len(bars))
			for i, bar := range bars {
				data[i] = byte(bar)
			}
			plan.add(field, data)

		case field.Label == "kit":
			plan.add(field, kitPalettes(team.KitHome, team.KitAway))

		default:
			var index int
			var kind string
			if _, err := fmt.Sscanf(field.Label, "player[%d].%s", &index, &kind); err != nil {
				return nil, fmt.Errorf("unexpected field %q: %w", field.Label, err)
			}
			encodePlayerField(plan, field, kind, team, index)
		}
	}
	return plan, nil
}

func encodePlayerField(
	plan *SlotPlan,
	field Field,
	kind string,
	team *rompatch.TeamRecord,
	index int,
) {
	var player *rompatch.PlayerRecord
	if index < len(team.Players) && !isPlaceholder(&team.Players[index]) {
		player = &team.Players[index]
	}

	if kind == "name" {
		name := PlaceholderName
		if player != nil {
			name = player.Name
		}
		plan.encodePadded(field, name, we2002PlayerNameChars, textcodec.ASCIIUpper)
		return
	}

	if player == nil {
		plan.add(field, make([]byte, we2002CharacterSize))
		return
	}
	data, err := encodeCharacteristics(player)
	if err != nil {
		plan.warn(fmt.Errorf("%s (%s): %w", field.Label, player.Name, err))
	}
	plan.add(field, data)
}
