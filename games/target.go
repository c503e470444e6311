// Package games describes the binary layouts of the games that can be patched
// and turns team records into the exact bytes to write there.
//
// A [Target] never writes anything itself. For each slot it produces a
// [SlotPlan]: every field of the team's records, with its physical location
// and contents. The orchestrator stages, commits and verifies the plans.
package games

import (
	"fmt"
	"io"
	"strings"

	"github.com/dargueta/rompatch"
	"github.com/dargueta/rompatch/attributes"
	"github.com/dargueta/rompatch/layout"
	"github.com/dargueta/rompatch/textcodec"
)

// PlaceholderName is written for players missing from a roster.
const PlaceholderName = "PLAYER"

type Target interface {
	Name() string
	// Geometry is how the image is divided into sectors. Every table of the
	// target uses it.
	Geometry() layout.Geometry
	Pools() []*Pool
	Pool(name string) (*Pool, error)
	DefaultPool() string
	// SquadSize is the exact number of players a slot holds.
	SquadSize(slot rompatch.SlotID) (int, error)
	// RatingScale is the scale player ratings must be on when passed to
	// [Target.Encode].
	RatingScale() attributes.Scale
	// CheckImage verifies that an image is plausibly one this target can
	// patch, without modifying it.
	CheckImage(image io.ReaderAt, size int64) error
	// Layout lists every field belonging to a slot.
	Layout(slot rompatch.SlotID) ([]Field, error)
	// Encode builds the bytes for every field of a slot. The team's roster
	// must already be fitted to [Target.SquadSize] and rated.
	Encode(slot rompatch.SlotID, team *rompatch.TeamRecord) (*SlotPlan, error)
}

// Field is one record of one table, belonging to a single slot.
type Field struct {
	// Label identifies the field in reports, e.g. "name.sq1" or "player[3].name".
	Label  string
	Region layout.Region
}

// Write is a field together with the bytes that go in it.
type Write struct {
	Field
	Data []byte
}

// SlotPlan is everything that gets written for one slot.
type SlotPlan struct {
	Slot   rompatch.SlotID
	Team   string
	Writes []Write
	// Warnings holds non-fatal problems found while encoding, such as
	// truncated names or clamped values.
	Warnings []error
}

func (plan *SlotPlan) add(field Field, data []byte) {
	plan.Writes = append(plan.Writes, Write{Field: field, Data: data})
}

func (plan *SlotPlan) warn(err error) {
	plan.Warnings = append(plan.Warnings, fmt.Errorf("%s: %w", plan.Slot, err))
}

// Bytes gives the total number of bytes the plan writes.
func (plan *SlotPlan) Bytes() int {
	total := 0
	for _, w := range plan.Writes {
		total += len(w.Data)
	}
	return total
}

// encodeText encodes `text` to fill the field exactly, warning if it had to
// be cut short.
func (plan *SlotPlan) encodeText(field Field, text string, cs textcodec.Charset) {
	data, truncated := textcodec.EncodeFixed(text, field.Region.Len(), cs)
	if truncated {
		plan.warn(rompatch.ErrEncodingOverflow.WithMessage(
			fmt.Sprintf(
				"%s: %q shortened to %q",
				field.Label,
				text,
				textcodec.Decode(data, cs))))
	}
	plan.add(field, data)
}

// encodePadded encodes at most `visible` characters of text followed by a
// terminator, then pads with zero bytes to fill the field.
func (plan *SlotPlan) encodePadded(field Field, text string, visible int, cs textcodec.Charset) {
	data, truncated := textcodec.EncodeFixed(text, (visible+1)*cs.Width(), cs)
	if truncated {
		plan.warn(rompatch.ErrEncodingOverflow.WithMessage(
			fmt.Sprintf(
				"%s: %q shortened to %q",
				field.Label,
				text,
				textcodec.Decode(data, cs))))
	}

	padded := make([]byte, field.Region.Len())
	copy(padded, data)
	plan.add(field, padded)
}

// findPool looks up a pool by name in a list.
func findPool(pools []*Pool, name string) (*Pool, error) {
	for _, pool := range pools {
		if strings.EqualFold(pool.Name, name) {
			return pool, nil
		}
	}

	names := make([]string, len(pools))
	for i, pool := range pools {
		names[i] = pool.Name
	}
	return nil, rompatch.ErrNotFound.WithMessage(
		fmt.Sprintf("no pool named %q; valid pools: %s", name, strings.Join(names, ", ")))
}

// checkSlot verifies that a slot exists in one of the pools and returns the
// pool.
func checkSlot(pools []*Pool, slot rompatch.SlotID) (*Pool, error) {
	pool, err := findPool(pools, slot.Pool)
	if err != nil {
		return nil, err
	}
	if _, err = pool.Slot(slot.Index); err != nil {
		return nil, err
	}
	return pool, nil
}

// checkExtent verifies that every table fits inside an image of the given
// size.
func checkExtent(name string, tables map[string]layout.Table, size int64) error {
	for label, table := range tables {
		regions, err := layout.ResolveAll(table)
		if err != nil {
			return fmt.Errorf("%s: %w", label, err)
		}
		for _, region := range regions {
			if region.End() > size {
				return rompatch.ErrMalformedInput.WithMessage(
					fmt.Sprintf(
						"image is %d bytes, too small for %s table %q, which ends at %d",
						size,
						name,
						label,
						region.End()))
			}
		}
	}
	return nil
}

// AllFields lists the fields of every slot of every pool of a target.
func AllFields(target Target) (map[rompatch.SlotID][]Field, error) {
	fields := make(map[rompatch.SlotID][]Field)
	for _, pool := range target.Pools() {
		for i := 0; i < pool.Size(); i++ {
			slot := rompatch.SlotID{Pool: pool.Name, Index: i}
			slotFields, err := target.Layout(slot)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", slot, err)
			}
			fields[slot] = slotFields
		}
	}
	return fields, nil
}

// ReadSlotNames decodes what's currently stored in one text field of every
// slot in a pool. `label` is a [Field.Label] such as "name".
func ReadSlotNames(
	target Target,
	image io.ReaderAt,
	poolName string,
	label string,
	cs textcodec.Charset,
) ([]string, error) {
	pool, err := target.Pool(poolName)
	if err != nil {
		return nil, err
	}

	names := make([]string, pool.Size())
	for i := range names {
		fields, err := target.Layout(rompatch.SlotID{Pool: pool.Name, Index: i})
		if err != nil {
			return nil, err
		}
		found := false
		for _, field := range fields {
			if field.Label != label {
				continue
			}
			data, err := field.Region.Load(image)
			if err != nil {
				return nil, err
			}
			names[i] = textcodec.Decode(data, cs)
			found = true
			break
		}
		if !found {
			return nil, rompatch.ErrNotFound.WithMessage(
				fmt.Sprintf("%s has no field %q", target.Name(), label))
		}
	}
	return names, nil
}

// ByName returns the built-in target with the given name.
func ByName(name string) (Target, error) {
	switch strings.ToLower(name) {
	case "we2002":
		return WE2002(), nil
	}
	return nil, rompatch.ErrNotFound.WithMessage(fmt.Sprintf("unknown target %q", name))
}
