package layout

import (
	"fmt"

	"github.com/dargueta/rompatch"
)

// Geometry describes periodic gaps in an image. Each period starts at an
// absolute offset Phase + k*Period with Period-GapSize bytes of data, followed
// by GapSize bytes that must never be written.
//
// The zero value is contiguous storage with no gaps.
type Geometry struct {
	Period  int64
	GapSize int64
	Phase   int64
}

// Contiguous is storage without any gaps.
var Contiguous = Geometry{}

// Mode2Raw is the layout of a CD-ROM image ripped in Mode 2 with 2352-byte raw
// sectors: 24 bytes of sync and header before 2048 bytes of user data, then
// 280 bytes of EDC/ECC. Seen from the data's point of view the 280 bytes of
// one sector and the 24 of the next form a single 304-byte gap.
var Mode2Raw = Geometry{Period: 2352, GapSize: 304, Phase: 24}

// IsContiguous reports whether the geometry has no gaps at all.
func (g Geometry) IsContiguous() bool {
	return g.Period == 0 || g.GapSize == 0
}

// DataSize gives the number of usable bytes in one period.
func (g Geometry) DataSize() int64 {
	return g.Period - g.GapSize
}

func (g Geometry) Validate() error {
	if g.Period == 0 {
		if g.GapSize != 0 {
			return rompatch.ErrInvalidArgument.WithMessage(
				"a geometry without a period can't have gaps")
		}
		return nil
	}
	if g.Period < 0 || g.GapSize < 0 || g.GapSize >= g.Period {
		return rompatch.ErrInvalidArgument.WithMessage(
			fmt.Sprintf(
				"invalid geometry: period %d, gap %d",
				g.Period,
				g.GapSize))
	}
	return nil
}

// windowOffset gives how far into its data window the absolute offset `at`
// lies. If `at` is inside a gap the result is DataSize() or more.
func (g Geometry) windowOffset(at int64) int64 {
	w := (at - g.Phase) % g.Period
	if w < 0 {
		w += g.Period
	}
	return w
}

// InGap reports whether the byte at absolute offset `at` lies in a gap.
func (g Geometry) InGap(at int64) bool {
	if g.IsContiguous() {
		return false
	}
	return g.windowOffset(at) >= g.DataSize()
}

// Map resolves `length` bytes found `logical` data bytes after `base` into
// the chunks holding them. `base` itself must not be inside a gap.
func (g Geometry) Map(base, logical int64, length int) (Region, error) {
	if logical < 0 || length < 0 {
		return nil, rompatch.ErrInvalidArgument.WithMessage(
			fmt.Sprintf("negative position or length: %d, %d", logical, length))
	}
	if g.IsContiguous() {
		return Region{{Offset: base + logical, Length: length}}, nil
	}

	dataSize := g.DataSize()
	w0 := g.windowOffset(base)
	if w0 >= dataSize {
		return nil, rompatch.ErrInvalidArgument.WithMessage(
			fmt.Sprintf("base offset %d is inside a gap", base))
	}

	windowStart := base - w0
	position := w0 + logical
	window := position / dataSize
	within := position % dataSize

	region := make(Region, 0, 2)
	remaining := int64(length)
	for remaining > 0 {
		chunkSize := dataSize - within
		if chunkSize > remaining {
			chunkSize = remaining
		}
		region = append(region, Chunk{
			Offset: windowStart + window*g.Period + within,
			Length: int(chunkSize),
		})
		remaining -= chunkSize
		window++
		within = 0
	}

	if len(region) == 0 {
		region = append(region, Chunk{Offset: windowStart + window*g.Period + within})
	}
	return region, nil
}
