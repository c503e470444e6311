package layout

import (
	"fmt"
	"io"
	"sort"

	"github.com/dargueta/rompatch"
)

// Chunk is a contiguous run of bytes at an absolute offset in the image.
type Chunk struct {
	Offset int64
	Length int
}

// End gives the offset of the first byte after the chunk.
func (c Chunk) End() int64 {
	return c.Offset + int64(c.Length)
}

func (c Chunk) String() string {
	return fmt.Sprintf("[%d, %d)", c.Offset, c.End())
}

// Region is one logical record. Concatenating its chunks in order gives the
// record's bytes.
type Region []Chunk

// Len is the total size of the record in bytes.
func (r Region) Len() int {
	total := 0
	for _, c := range r {
		total += c.Length
	}
	return total
}

// IsSplit reports whether the record straddles at least one gap.
func (r Region) IsSplit() bool {
	return len(r) > 1
}

// Start gives the absolute offset of the record's first byte.
func (r Region) Start() int64 {
	if len(r) == 0 {
		return 0
	}
	return r[0].Offset
}

// End gives the offset just past the record's last byte.
func (r Region) End() int64 {
	var end int64
	for _, c := range r {
		end = max(end, c.End())
	}
	return end
}

// Load reads the record's bytes from an image that isn't in memory.
func (r Region) Load(src io.ReaderAt) ([]byte, error) {
	out := make([]byte, r.Len())
	position := 0
	for _, c := range r {
		_, err := src.ReadAt(out[position:position+c.Length], c.Offset)
		if err != nil {
			return nil, rompatch.ErrIOFailed.Wrap(err).WithMessage(
				fmt.Sprintf("reading chunk %s", c))
		}
		position += c.Length
	}
	return out, nil
}

// Gather copies the record's bytes out of a full image.
func (r Region) Gather(image []byte) ([]byte, error) {
	out := make([]byte, 0, r.Len())
	for _, c := range r {
		if c.Offset < 0 || c.End() > int64(len(image)) {
			return nil, rompatch.ErrInvalidArgument.WithMessage(
				fmt.Sprintf("chunk %s outside image of %d bytes", c, len(image)))
		}
		out = append(out, image[c.Offset:c.End()]...)
	}
	return out, nil
}

// Scatter splits a record's bytes into one slice per chunk. `data` must be
// exactly [Region.Len] bytes long.
func (r Region) Scatter(data []byte) ([][]byte, error) {
	if len(data) != r.Len() {
		return nil, rompatch.ErrInvalidArgument.WithMessage(
			fmt.Sprintf("record is %d bytes, region holds %d", len(data), r.Len()))
	}

	pieces := make([][]byte, len(r))
	position := 0
	for i, c := range r {
		pieces[i] = data[position : position+c.Length]
		position += c.Length
	}
	return pieces, nil
}

func (r Region) String() string {
	return fmt.Sprint([]Chunk(r))
}

type ownedChunk struct {
	Chunk
	owner int
}

// CheckDisjoint fails if any two regions share a byte. Empty chunks never
// overlap anything.
func CheckDisjoint(regions []Region) error {
	chunks := make([]ownedChunk, 0, len(regions)*2)
	for i, region := range regions {
		for _, c := range region {
			if c.Length > 0 {
				chunks = append(chunks, ownedChunk{c, i})
			}
		}
	}

	sort.Slice(chunks, func(i, j int) bool {
		return chunks[i].Offset < chunks[j].Offset
	})

	for i := 1; i < len(chunks); i++ {
		previous := chunks[i-1]
		current := chunks[i]
		if current.Offset < previous.End() {
			return rompatch.ErrInvalidArgument.WithMessage(
				fmt.Sprintf(
					"region %d chunk %s overlaps region %d chunk %s",
					current.owner,
					current.Chunk,
					previous.owner,
					previous.Chunk))
		}
	}
	return nil
}
