// Package bittable reads and writes records made of bit-packed fields.
//
// Integer fields are stored least significant bit first, starting at an
// arbitrary bit offset and freely crossing byte boundaries. String and binary
// fields are byte-aligned. A [Table] is an array of fixed-size records with a
// live count separate from its allocated capacity, and a [File] is EA's TDB
// database container holding several tables.
package bittable

import (
	"github.com/boljen/go-bitmap"
)

// ReadBits extracts an unsigned integer of `width` bits (at most 64) starting
// at bit `offset` of data. Bit 0 is the least significant bit of data[0].
func ReadBits(data []byte, offset, width int) uint64 {
	value := uint64(0)
	for i := 0; i < width; i++ {
		if bitmap.Get(data, offset+i) {
			value |= 1 << i
		}
	}
	return value
}

// WriteBits stores the low `width` bits of value starting at bit `offset`,
// leaving all other bits alone.
func WriteBits(data []byte, offset, width int, value uint64) {
	for i := 0; i < width; i++ {
		bitmap.Set(data, offset+i, value&(1<<i) != 0)
	}
}

// maxUnsigned gives the largest value representable in `width` bits.
func maxUnsigned(width int) uint64 {
	if width >= 64 {
		return ^uint64(0)
	}
	return 1<<width - 1
}

// ClampUnsigned limits v to what fits in `width` unsigned bits.
func ClampUnsigned(v int64, width int) uint64 {
	if v < 0 {
		return 0
	}
	if uint64(v) > maxUnsigned(width) {
		return maxUnsigned(width)
	}
	return uint64(v)
}

// ClampSigned limits v to what fits in `width` bits of two's complement and
// returns the bit pattern.
func ClampSigned(v int64, width int) uint64 {
	if width <= 0 {
		return 0
	}
	if width >= 64 {
		return uint64(v)
	}
	lowest := -(int64(1) << (width - 1))
	highest := int64(1)<<(width-1) - 1
	v = max(lowest, min(highest, v))
	return uint64(v) & maxUnsigned(width)
}

// signExtend interprets the low `width` bits of raw as two's complement.
func signExtend(raw uint64, width int) int64 {
	if width <= 0 || width >= 64 {
		return int64(raw)
	}
	shift := 64 - width
	return int64(raw<<shift) >> shift
}
