package layout

import (
	"fmt"

	"github.com/dargueta/rompatch"
)

// Table is an indexed set of records in an image.
type Table interface {
	// Len is the number of addressable records.
	Len() int
	// Resolve gives the physical location of one record.
	Resolve(index int) (Region, error)
}

// ResolveAll resolves every record in a table, in index order.
func ResolveAll(t Table) ([]Region, error) {
	regions := make([]Region, t.Len())
	for i := range regions {
		region, err := t.Resolve(i)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		regions[i] = region
	}
	return regions, nil
}

func checkIndex(index, count int) error {
	if index < 0 || index >= count {
		return rompatch.ErrNotFound.WithMessage(
			fmt.Sprintf("invalid record index %d: not in range [0, %d)", index, count))
	}
	return nil
}

// checkPermutation verifies that `order` uses every index in [0, count) exactly
// once.
func checkPermutation(order []int, count int) error {
	if len(order) != count {
		return rompatch.ErrInvalidArgument.WithMessage(
			fmt.Sprintf("order has %d entries, table has %d", len(order), count))
	}

	seen := make([]bool, count)
	for _, index := range order {
		if index < 0 || index >= count {
			return rompatch.ErrInvalidArgument.WithMessage(
				fmt.Sprintf("order references record %d, not in [0, %d)", index, count))
		}
		if seen[index] {
			return rompatch.ErrInvalidArgument.WithMessage(
				fmt.Sprintf("record %d appears twice in order", index))
		}
		seen[index] = true
	}
	return nil
}

////////////////////////////////////////////////////////////////////////////////

// FixedTable is an array of same-size records. Record i is stored at position
// Order[i] in the array, or at position i if Order is nil.
type FixedTable struct {
	Base     int64
	Stride   int
	Count    int
	Order    []int
	Geometry Geometry
}

func (t FixedTable) Len() int {
	return t.Count
}

// Validate checks that the table can be resolved at all. A record can straddle
// at most one gap, so the stride can't be larger than a data window.
func (t FixedTable) Validate() error {
	if err := t.Geometry.Validate(); err != nil {
		return err
	}
	if t.Stride <= 0 {
		return rompatch.ErrInvalidArgument.WithMessage(
			fmt.Sprintf("stride must be positive, got %d", t.Stride))
	}
	if !t.Geometry.IsContiguous() && int64(t.Stride) > t.Geometry.DataSize() {
		return rompatch.ErrInvalidArgument.WithMessage(
			fmt.Sprintf(
				"stride %d is larger than the %d-byte data window",
				t.Stride,
				t.Geometry.DataSize()))
	}
	if t.Order != nil {
		return checkPermutation(t.Order, t.Count)
	}
	return nil
}

// Position gives where in the array a record is stored.
func (t FixedTable) Position(index int) int {
	if t.Order != nil {
		return t.Order[index]
	}
	return index
}

func (t FixedTable) Resolve(index int) (Region, error) {
	if err := checkIndex(index, t.Count); err != nil {
		return nil, err
	}
	if t.Order != nil && len(t.Order) != t.Count {
		return nil, rompatch.ErrInvalidArgument.WithMessage(
			fmt.Sprintf("order has %d entries, table has %d", len(t.Order), t.Count))
	}
	logical := int64(t.Position(index)) * int64(t.Stride)
	return t.Geometry.Map(t.Base, logical, t.Stride)
}

////////////////////////////////////////////////////////////////////////////////

// PackedTable holds variable-width records written back to back in a fixed
// write order. Some tables aren't one run; Restarts gives, for the records
// that begin a new run, the absolute offset that run starts at.
type PackedTable struct {
	Base int64
	// Widths gives the size in bytes of every record, by record index.
	Widths []int
	// Order lists record indices in the order they appear in the image. Nil
	// means index order.
	Order    []int
	Restarts map[int]int64
	Geometry Geometry
}

func (t PackedTable) Len() int {
	return len(t.Widths)
}

func (t PackedTable) Validate() error {
	if err := t.Geometry.Validate(); err != nil {
		return err
	}
	for i, width := range t.Widths {
		if width < 0 {
			return rompatch.ErrInvalidArgument.WithMessage(
				fmt.Sprintf("record %d has negative width %d", i, width))
		}
	}
	if t.Order != nil {
		if err := checkPermutation(t.Order, len(t.Widths)); err != nil {
			return err
		}
	}
	for index := range t.Restarts {
		if err := checkIndex(index, len(t.Widths)); err != nil {
			return fmt.Errorf("restart: %w", err)
		}
	}
	return nil
}

func (t PackedTable) writeOrder() []int {
	if t.Order != nil {
		return t.Order
	}
	order := make([]int, len(t.Widths))
	for i := range order {
		order[i] = i
	}
	return order
}

// Regions resolves every record at once, by record index. This is linear in
// the size of the table; resolving one record costs the same.
func (t PackedTable) Regions() ([]Region, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}

	regions := make([]Region, len(t.Widths))
	base := t.Base
	logical := int64(0)
	for _, index := range t.writeOrder() {
		if restart, ok := t.Restarts[index]; ok {
			base = restart
			logical = 0
		}

		region, err := t.Geometry.Map(base, logical, t.Widths[index])
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", index, err)
		}
		regions[index] = region
		logical += int64(t.Widths[index])
	}
	return regions, nil
}

func (t PackedTable) Resolve(index int) (Region, error) {
	if err := checkIndex(index, len(t.Widths)); err != nil {
		return nil, err
	}
	regions, err := t.Regions()
	if err != nil {
		return nil, err
	}
	return regions[index], nil
}
