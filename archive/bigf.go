package archive

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/dargueta/rompatch"
)

var bigfMagic = []byte("BIGF")

const bigfHeaderSize = 16

// BIGF is EA's archive format. The header is the magic "BIGF", the total
// archive size, the number of files and the size of the header plus
// directory. Each directory entry is a big-endian offset and size followed by
// a NUL-terminated name.
//
// The total size is little-endian in the files EA shipped even though every
// other integer is big-endian, and that quirk is preserved here.
type BIGF struct {
	// Alignment is the boundary each file's data starts on.
	Alignment int
}

var DefaultBIGF = BIGF{Alignment: 128}

func (BIGF) Name() string {
	return "bigf"
}

func (BIGF) Parse(data []byte) ([]Entry, error) {
	if len(data) < bigfHeaderSize || !bytes.HasPrefix(data, bigfMagic) {
		return nil, rompatch.ErrMalformedInput.WithMessage("not a BIGF archive")
	}

	count := int(binary.BigEndian.Uint32(data[8:12]))
	entries := make([]Entry, 0, min(count, len(data)/9))
	pos := bigfHeaderSize
	for i := 0; i < count; i++ {
		if pos+8 > len(data) {
			return nil, rompatch.ErrMalformedInput.WithMessage(
				fmt.Sprintf("directory entry %d of %d is truncated", i, count))
		}
		entry := Entry{
			Offset: int(binary.BigEndian.Uint32(data[pos : pos+4])),
			Size:   int(binary.BigEndian.Uint32(data[pos+4 : pos+8])),
		}
		pos += 8

		nameLength := bytes.IndexByte(data[pos:], 0)
		if nameLength < 0 {
			return nil, rompatch.ErrMalformedInput.WithMessage(
				fmt.Sprintf("name of directory entry %d isn't terminated", i))
		}
		entry.Name = string(data[pos : pos+nameLength])
		pos += nameLength + 1

		if err := checkBounds(entry, len(data)); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (f BIGF) Build(entries []Entry, contents map[string][]byte) ([]byte, error) {
	if err := checkBuildInputs(entries, contents); err != nil {
		return nil, err
	}

	headerSize := bigfHeaderSize
	for _, entry := range entries {
		if entry.Name == "" || bytes.IndexByte([]byte(entry.Name), 0) >= 0 {
			return nil, rompatch.ErrInvalidArgument.WithMessage(
				fmt.Sprintf("invalid BIGF file name %q", entry.Name))
		}
		headerSize += 8 + len(entry.Name) + 1
	}

	out := make([]byte, bigfHeaderSize, headerSize)
	copy(out, bigfMagic)
	directory := make([]int, len(entries))
	for i, entry := range entries {
		directory[i] = len(out)
		out = binary.BigEndian.AppendUint32(out, 0)
		out = binary.BigEndian.AppendUint32(out, uint32(len(contents[entry.Name])))
		out = append(out, entry.Name...)
		out = append(out, 0)
	}

	out = padTo(out, f.Alignment)
	for i, entry := range entries {
		binary.BigEndian.PutUint32(out[directory[i]:], uint32(len(out)))
		out = append(out, contents[entry.Name]...)
		if i < len(entries)-1 {
			out = padTo(out, f.Alignment)
		}
	}

	binary.LittleEndian.PutUint32(out[4:8], uint32(len(out)))
	binary.BigEndian.PutUint32(out[8:12], uint32(len(entries)))
	binary.BigEndian.PutUint32(out[12:16], uint32(headerSize))
	return out, nil
}
