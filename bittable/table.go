package bittable

import (
	"fmt"

	"github.com/dargueta/rompatch"
)

// Header gives the dimensions of a table. Capacity is the number of records
// space is allocated for; Count is how many of them the game considers live.
type Header struct {
	// Stride is the size of one record in bytes.
	Stride   int
	Capacity int
	Count    int
}

// Table is an array of bit-packed records. Reads and writes may touch any
// record up to Capacity, while searches only look at the first Count.
type Table struct {
	Name   string
	Header Header
	Fields []Field
	data   []byte
}

// NewTable creates a table over existing record data, which must hold exactly
// Capacity records. If data is nil, zeroed storage is allocated.
func NewTable(name string, header Header, fields []Field, data []byte) (*Table, error) {
	if header.Stride <= 0 || header.Capacity < 0 {
		return nil, rompatch.ErrInvalidArgument.WithMessage(
			fmt.Sprintf("table %q: bad stride %d or capacity %d", name, header.Stride, header.Capacity))
	}
	if header.Count < 0 || header.Count > header.Capacity {
		return nil, rompatch.ErrInvalidArgument.WithMessage(
			fmt.Sprintf("table %q: count %d not in [0, %d]", name, header.Count, header.Capacity))
	}

	size := header.Stride * header.Capacity
	if data == nil {
		data = make([]byte, size)
	} else if len(data) != size {
		return nil, rompatch.ErrMalformedInput.WithMessage(
			fmt.Sprintf(
				"table %q: expected %d bytes of records, got %d", name, size, len(data)))
	}

	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if err := f.Validate(header.Stride); err != nil {
			return nil, fmt.Errorf("table %q: %w", name, err)
		}
		if seen[f.Name] {
			return nil, rompatch.ErrInvalidArgument.WithMessage(
				fmt.Sprintf("table %q: duplicate field %q", name, f.Name))
		}
		seen[f.Name] = true
	}

	return &Table{Name: name, Header: header, Fields: fields, data: data}, nil
}

// Data gives the table's record storage. It's shared with the table, not
// copied.
func (t *Table) Data() []byte {
	return t.data
}

// Field looks up a field definition by name.
func (t *Table) Field(name string) (Field, error) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f, nil
		}
	}
	return Field{}, rompatch.ErrNotFound.WithMessage(
		fmt.Sprintf("table %q has no field %q", t.Name, name))
}

func (t *Table) record(index int) ([]byte, error) {
	if index < 0 || index >= t.Header.Capacity {
		return nil, rompatch.ErrNotFound.WithMessage(
			fmt.Sprintf(
				"table %q: record %d not in range [0, %d)",
				t.Name,
				index,
				t.Header.Capacity))
	}
	start := index * t.Header.Stride
	return t.data[start : start+t.Header.Stride], nil
}

// Read decodes every field of one record.
func (t *Table) Read(index int) (Record, error) {
	record, err := t.record(index)
	if err != nil {
		return nil, err
	}
	values := make(Record, len(t.Fields))
	for _, f := range t.Fields {
		values[f.Name] = f.get(record)
	}
	return values, nil
}

// Write updates the fields present in `values`; every other field keeps its
// current value. Values naming fields the table doesn't have are an error.
// Clamped or truncated values give [rompatch.ErrEncodingOverflow] after the
// whole record has been written.
func (t *Table) Write(index int, values Record) error {
	record, err := t.record(index)
	if err != nil {
		return err
	}
	for name := range values {
		if _, err := t.Field(name); err != nil {
			return err
		}
	}
	return packInto(record, t.Fields, values)
}

// Append makes one more record live and returns its index. The record's
// existing bytes are left as they are.
func (t *Table) Append() (int, error) {
	if t.Header.Count >= t.Header.Capacity {
		return -1, rompatch.ErrNoSpace.WithMessage(
			fmt.Sprintf("table %q is full (%d records)", t.Name, t.Header.Capacity))
	}
	t.Header.Count++
	return t.Header.Count - 1, nil
}

// FindAll returns the indexes of all live records where the field equals
// `value`.
func (t *Table) FindAll(fieldName string, value any) ([]int, error) {
	f, err := t.Field(fieldName)
	if err != nil {
		return nil, err
	}

	var matches []int
	for i := 0; i < t.Header.Count; i++ {
		record, _ := t.record(i)
		if f.equalValues(f.get(record), value) {
			matches = append(matches, i)
		}
	}
	return matches, nil
}

// Find returns the index of the first live record where the field equals
// `value`.
func (t *Table) Find(fieldName string, value any) (int, error) {
	matches, err := t.FindAll(fieldName, value)
	if err != nil {
		return -1, err
	}
	if len(matches) == 0 {
		return -1, rompatch.ErrNotFound.WithMessage(
			fmt.Sprintf("table %q: no live record with %s = %v", t.Name, fieldName, value))
	}
	return matches[0], nil
}
