package bittable

import (
	"bytes"
	"fmt"
	"math"

	"github.com/dargueta/rompatch"
	"github.com/dargueta/rompatch/textcodec"
)

// Kind is a field's data type. The values are the type codes used in TDB
// files.
type Kind int

const (
	String Kind = iota
	Binary
	SignedInt
	UnsignedInt
	Float
)

var kindNames = [...]string{"string", "binary", "sint", "uint", "float"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Field describes where one value lives in a record. Offsets and widths are in
// bits, even for byte-aligned kinds.
type Field struct {
	Name      string
	Kind      Kind
	BitOffset int
	BitWidth  int
}

// Validate checks that the field fits in a record of `recordSize` bytes and
// that its width makes sense for its kind.
func (f Field) Validate(recordSize int) error {
	fail := func(reason string) error {
		return rompatch.ErrInvalidArgument.WithMessage(
			fmt.Sprintf("field %q (%s at bit %d, %d bits): %s",
				f.Name, f.Kind, f.BitOffset, f.BitWidth, reason))
	}

	if f.BitOffset < 0 || f.BitWidth <= 0 {
		return fail("negative offset or empty width")
	}
	if f.BitOffset+f.BitWidth > recordSize*8 {
		return fail(fmt.Sprintf("doesn't fit in a %d-byte record", recordSize))
	}

	switch f.Kind {
	case String, Binary:
		if f.BitOffset%8 != 0 || f.BitWidth%8 != 0 {
			return fail("must be byte-aligned")
		}
	case SignedInt, UnsignedInt:
		if f.BitWidth > 64 {
			return fail("integers are at most 64 bits")
		}
	case Float:
		if f.BitWidth != 32 {
			return fail("floats must be 32 bits")
		}
	default:
		return fail("unknown kind")
	}
	return nil
}

// Record maps field names to values. Reading gives a string for [String]
// fields, []byte for [Binary], int64 for both integer kinds and float64 for
// [Float]. Writing also accepts any Go integer type, and float32.
type Record map[string]any

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(min(uint64(n), math.MaxInt64)), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(min(n, math.MaxInt64)), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	i, ok := toInt64(v)
	return float64(i), ok
}

// get reads the field's value out of one record's bytes.
func (f Field) get(record []byte) any {
	switch f.Kind {
	case String:
		start := f.BitOffset / 8
		return textcodec.Decode(record[start:start+f.BitWidth/8], textcodec.ASCIIPreserve)
	case Binary:
		start := f.BitOffset / 8
		return bytes.Clone(record[start : start+f.BitWidth/8])
	case SignedInt:
		return signExtend(ReadBits(record, f.BitOffset, f.BitWidth), f.BitWidth)
	case Float:
		return float64(math.Float32frombits(uint32(ReadBits(record, f.BitOffset, 32))))
	default:
		return int64(ReadBits(record, f.BitOffset, f.BitWidth))
	}
}

// set stores a value into one record's bytes. Integers are clamped to what
// the field can hold and strings are truncated, in which case `truncated` is
// true.
func (f Field) set(record []byte, value any) (truncated bool, err error) {
	wrongType := func() error {
		return rompatch.ErrInvalidArgument.WithMessage(
			fmt.Sprintf("can't store %T in %s field %q", value, f.Kind, f.Name))
	}

	switch f.Kind {
	case String:
		text, ok := value.(string)
		if !ok {
			return false, wrongType()
		}
		start := f.BitOffset / 8
		encoded, cut := textcodec.EncodeFixed(text, f.BitWidth/8, textcodec.ASCIIPreserve)
		copy(record[start:], encoded)
		return cut, nil

	case Binary:
		raw, ok := value.([]byte)
		if !ok {
			return false, wrongType()
		}
		start := f.BitOffset / 8
		size := f.BitWidth / 8
		field := record[start : start+size]
		n := copy(field, raw)
		clear(field[n:])
		return len(raw) > size, nil

	case Float:
		v, ok := toFloat64(value)
		if !ok {
			return false, wrongType()
		}
		WriteBits(record, f.BitOffset, 32, uint64(math.Float32bits(float32(v))))
		return false, nil

	case SignedInt:
		v, ok := toInt64(value)
		if !ok {
			return false, wrongType()
		}
		stored := ClampSigned(v, f.BitWidth)
		WriteBits(record, f.BitOffset, f.BitWidth, stored)
		return signExtend(stored, f.BitWidth) != v, nil

	default:
		v, ok := toInt64(value)
		if !ok {
			return false, wrongType()
		}
		stored := ClampUnsigned(v, f.BitWidth)
		WriteBits(record, f.BitOffset, f.BitWidth, stored)
		return v < 0 || uint64(v) != stored, nil
	}
}

// PackRecord encodes values into a standalone record of `size` bytes. Fields
// without a value are left zero. The error is
// [rompatch.ErrEncodingOverflow] if anything had to be clamped or truncated;
// the record is still complete in that case.
func PackRecord(fields []Field, size int, values Record) ([]byte, error) {
	record := make([]byte, size)
	err := packInto(record, fields, values)
	return record, err
}

// UnpackRecord decodes every field of a standalone record.
func UnpackRecord(fields []Field, record []byte) (Record, error) {
	values := make(Record, len(fields))
	for _, f := range fields {
		if err := f.Validate(len(record)); err != nil {
			return nil, err
		}
		values[f.Name] = f.get(record)
	}
	return values, nil
}

func packInto(record []byte, fields []Field, values Record) error {
	var overflowed []string
	for _, f := range fields {
		value, ok := values[f.Name]
		if !ok {
			continue
		}
		if err := f.Validate(len(record)); err != nil {
			return err
		}
		truncated, err := f.set(record, value)
		if err != nil {
			return err
		}
		if truncated {
			overflowed = append(overflowed, f.Name)
		}
	}

	if len(overflowed) > 0 {
		return rompatch.ErrEncodingOverflow.WithMessage(
			fmt.Sprintf("clamped or truncated: %v", overflowed))
	}
	return nil
}

// equalValues compares a value read from a record with one supplied by a
// caller.
func (f Field) equalValues(stored, wanted any) bool {
	switch f.Kind {
	case String:
		s, ok := wanted.(string)
		return ok && stored.(string) == s
	case Binary:
		b, ok := wanted.([]byte)
		return ok && bytes.Equal(stored.([]byte), b)
	case Float:
		v, ok := toFloat64(wanted)
		return ok && stored.(float64) == float64(float32(v))
	default:
		v, ok := toInt64(wanted)
		return ok && stored.(int64) == v
	}
}
