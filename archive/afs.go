package archive

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strconv"

	"github.com/dargueta/rompatch"
)

var afsMagic = []byte("AFS\x00")

// AFS is Konami's archive format: the magic "AFS\0", a little-endian file
// count, then a (offset, size) pair per file. Files have no names, so entries
// are named after their index, zero-padded to five digits.
type AFS struct {
	// Alignment is the boundary each file's data starts on, normally one CD
	// sector.
	Alignment int
}

var DefaultAFS = AFS{Alignment: 2048}

// AFSEntryName gives the name [AFS.Parse] assigns to the file at `index`.
func AFSEntryName(index int) string {
	return fmt.Sprintf("%05d", index)
}

// ParseAFSEntryName is the reverse of [AFSEntryName]. It also accepts indexes
// without leading zeros.
func ParseAFSEntryName(name string) (int, error) {
	index, err := strconv.Atoi(name)
	if err != nil || index < 0 {
		return -1, rompatch.ErrInvalidArgument.WithMessage(
			fmt.Sprintf("%q is not an AFS entry index", name))
	}
	return index, nil
}

func (AFS) Name() string {
	return "afs"
}

func (AFS) Parse(data []byte) ([]Entry, error) {
	if len(data) < 8 || !bytes.HasPrefix(data, afsMagic) {
		return nil, rompatch.ErrMalformedInput.WithMessage("not an AFS archive")
	}

	count := int(binary.LittleEndian.Uint32(data[4:8]))
	if (len(data)-8)/8 < count {
		return nil, rompatch.ErrMalformedInput.WithMessage(
			fmt.Sprintf("table of contents for %d files is truncated", count))
	}

	entries := make([]Entry, count)
	for i := range entries {
		toc := data[8+i*8:]
		entries[i] = Entry{
			Name:   AFSEntryName(i),
			Offset: int(binary.LittleEndian.Uint32(toc[0:4])),
			Size:   int(binary.LittleEndian.Uint32(toc[4:8])),
		}
		if err := checkBounds(entries[i], len(data)); err != nil {
			return nil, err
		}
	}
	return entries, nil
}

// Build lays the files out in the order given, each padded to the alignment.
// Names are only used to find each file's contents.
func (f AFS) Build(entries []Entry, contents map[string][]byte) ([]byte, error) {
	if err := checkBuildInputs(entries, contents); err != nil {
		return nil, err
	}

	out := make([]byte, 0, alignUp(8+8*len(entries), f.Alignment))
	out = append(out, afsMagic...)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(entries)))

	offset := alignUp(8+8*len(entries), f.Alignment)
	for _, entry := range entries {
		size := len(contents[entry.Name])
		out = binary.LittleEndian.AppendUint32(out, uint32(offset))
		out = binary.LittleEndian.AppendUint32(out, uint32(size))
		offset += alignUp(size, f.Alignment)
	}

	out = padTo(out, f.Alignment)
	for _, entry := range entries {
		out = append(out, contents[entry.Name]...)
		out = padTo(out, f.Alignment)
	}
	return out, nil
}
