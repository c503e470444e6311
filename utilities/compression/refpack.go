package compression

import (
	"fmt"
	"io"

	"github.com/boljen/go-bitmap"
	"github.com/dargueta/rompatch"
)

const (
	refpackHeaderSize = 5
	// MaxRefPackSize is the largest input a RefPack header can describe.
	MaxRefPackSize = 1<<24 - 1

	refpackHashMask    = 0xFFFF
	refpackMaxChain    = 128
	refpackMaxOffset   = 131072
	refpackMaxMatch    = 1028
	refpackMaxLiterals = 112
)

// IsRefPack reports whether data starts with a RefPack header.
func IsRefPack(data []byte) bool {
	return len(data) >= refpackHeaderSize && data[0] == 0x10 && data[1] == 0xFB
}

// RefPackSize gives the decompressed size recorded in a RefPack header.
func RefPackSize(data []byte) (int, error) {
	if !IsRefPack(data) {
		return 0, rompatch.ErrMalformedInput.WithMessage("missing RefPack header 10 FB")
	}
	return int(data[2])<<16 | int(data[3])<<8 | int(data[4]), nil
}

func truncatedCommand(at int) error {
	return rompatch.ErrMalformedInput.WithMessage(
		fmt.Sprintf("RefPack command at offset %d is truncated", at))
}

// DecodeRefPack decompresses a complete RefPack stream. The stream must
// produce at least as many bytes as its header says; anything past that is
// discarded. A missing end marker is tolerated.
func DecodeRefPack(data []byte) ([]byte, error) {
	size, err := RefPackSize(data)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, size)
	pos := refpackHeaderSize
	for pos < len(data) {
		start := pos
		b0 := int(data[pos])
		var literals, length, offset int
		end := false

		switch {
		case b0 < 0x80:
			if pos+2 > len(data) {
				return nil, truncatedCommand(start)
			}
			b1 := int(data[pos+1])
			pos += 2
			literals = b0 & 0x03
			length = ((b0 & 0x1C) >> 2) + 3
			offset = ((b0 & 0x60) << 3) + b1 + 1
		case b0 < 0xC0:
			if pos+3 > len(data) {
				return nil, truncatedCommand(start)
			}
			b1, b2 := int(data[pos+1]), int(data[pos+2])
			pos += 3
			literals = b1 >> 6
			length = (b0 & 0x3F) + 4
			offset = ((b1 & 0x3F) << 8) + b2 + 1
		case b0 < 0xE0:
			if pos+4 > len(data) {
				return nil, truncatedCommand(start)
			}
			b1, b2, b3 := int(data[pos+1]), int(data[pos+2]), int(data[pos+3])
			pos += 4
			literals = b0 & 0x03
			length = ((b0 & 0x0C) << 6) + b3 + 5
			offset = ((b0 & 0x10) << 12) + (b1 << 8) + b2 + 1
		case b0 < 0xFC:
			pos++
			literals = ((b0 & 0x1F) << 2) + 4
		default:
			pos++
			literals = b0 & 0x03
			end = true
		}

		if pos+literals > len(data) {
			return nil, truncatedCommand(start)
		}
		out = append(out, data[pos:pos+literals]...)
		pos += literals

		if length > 0 {
			if offset > len(out) {
				return nil, rompatch.ErrMalformedInput.WithMessage(
					fmt.Sprintf(
						"RefPack command at offset %d refers %d bytes back, only %d decoded",
						start,
						offset,
						len(out)))
			}
			// Byte by byte: the source may overlap what's being written.
			src := len(out) - offset
			for i := 0; i < length; i++ {
				out = append(out, out[src+i])
			}
		}

		if end {
			break
		}
	}

	if len(out) < size {
		return nil, rompatch.ErrMalformedInput.WithMessage(
			fmt.Sprintf("RefPack stream decoded to %d bytes, header says %d", len(out), size))
	}
	return out[:size], nil
}

////////////////////////////////////////////////////////////////////////////////

type refpackEncoder struct {
	data     []byte
	head     []int32
	chain    []int32
	inserted bitmap.Bitmap
	out      []byte
}

func (e *refpackEncoder) hash(p int) int {
	return (int(e.data[p])<<8 ^ int(e.data[p+1])<<4 ^ int(e.data[p+2])) & refpackHashMask
}

func (e *refpackEncoder) insert(p int) {
	if p+2 >= len(e.data) || e.inserted.Get(p) {
		return
	}
	e.inserted.Set(p, true)
	h := e.hash(p)
	e.chain[p] = e.head[h]
	e.head[h] = int32(p)
}

// findMatch gives the longest earlier match for the bytes at p, or a zero
// length if there's nothing of at least 3 bytes.
func (e *refpackEncoder) findMatch(p int) (offset, length int) {
	size := len(e.data)
	if p+2 >= size {
		return 0, 0
	}

	bestLength := 2
	bestOffset := 0
	candidate := int(e.head[e.hash(p)])
	for depth := 0; candidate >= 0 && depth < refpackMaxChain; depth++ {
		distance := p - candidate
		if distance > refpackMaxOffset {
			break
		}

		if distance >= 1 &&
			e.data[candidate] == e.data[p] &&
			e.data[candidate+1] == e.data[p+1] &&
			e.data[candidate+2] == e.data[p+2] {
			limit := min(refpackMaxMatch, size-p)
			matched := 3
			for matched < limit && e.data[candidate+matched] == e.data[p+matched] {
				matched++
			}
			if matched > bestLength {
				bestLength = matched
				bestOffset = distance
				if matched >= refpackMaxMatch {
					break
				}
			}
		}
		candidate = int(e.chain[candidate])
	}

	if bestLength < 3 {
		return 0, 0
	}
	return bestOffset, bestLength
}

func encodableMatch(length, offset int) bool {
	switch {
	case length < 3 || offset < 1:
		return false
	case length <= 10 && offset <= 1024:
		return true
	case length >= 4 && length <= 67 && offset <= 16384:
		return true
	case length >= 5 && length <= refpackMaxMatch && offset <= refpackMaxOffset:
		return true
	}
	return false
}

// flushLiterals writes out pending literals [from, to) in bulk commands until
// at most 3 are left, and returns where the remainder starts.
func (e *refpackEncoder) flushLiterals(from, to int) int {
	for to-from > 3 {
		chunk := min(to-from, refpackMaxLiterals) / 4 * 4
		e.out = append(e.out, byte(0xE0+(chunk-4)>>2))
		e.out = append(e.out, e.data[from:from+chunk]...)
		from += chunk
	}
	return from
}

func (e *refpackEncoder) emitCopy(literals []byte, length, offset int) {
	nl := len(literals)
	o := offset - 1
	switch {
	case length <= 10 && offset <= 1024:
		e.out = append(e.out,
			byte(nl|(length-3)<<2|(o>>3)&0x60),
			byte(o))
	case length <= 67 && offset <= 16384:
		e.out = append(e.out,
			byte(0x80|(length-4)),
			byte(nl<<6|(o>>8)&0x3F),
			byte(o))
	default:
		l := length - 5
		e.out = append(e.out,
			byte(0xC0|nl|(l>>6)&0x0C|(o>>12)&0x10),
			byte(o>>8),
			byte(o),
			byte(l))
	}
	e.out = append(e.out, literals...)
}

// EncodeRefPack compresses data into a RefPack stream. The encoder uses hash
// chains over 3-byte prefixes and one-step lazy matching: a match is put off
// by one byte if the next position has a strictly longer one.
func EncodeRefPack(data []byte) ([]byte, error) {
	size := len(data)
	if size > MaxRefPackSize {
		return nil, rompatch.ErrInvalidArgument.WithMessage(
			fmt.Sprintf("%d bytes is too large for RefPack (max %d)", size, MaxRefPackSize))
	}

	e := &refpackEncoder{
		data: data,
		out:  make([]byte, 0, size/2+16),
	}
	e.out = append(e.out, 0x10, 0xFB, byte(size>>16), byte(size>>8), byte(size))
	if size == 0 {
		return append(e.out, 0xFC), nil
	}

	e.head = make([]int32, refpackHashMask+1)
	for i := range e.head {
		e.head[i] = -1
	}
	e.chain = make([]int32, size)
	e.inserted = bitmap.New(size)

	pos := 0
	literalStart := 0
	for pos < size {
		offset, length := e.findMatch(pos)
		if !encodableMatch(length, offset) {
			e.insert(pos)
			pos++
			continue
		}

		if length < refpackMaxMatch && pos+1 < size-2 {
			e.insert(pos)
			nextOffset, nextLength := e.findMatch(pos + 1)
			if nextLength > length && encodableMatch(nextLength, nextOffset) {
				pos++
				continue
			}
		}

		literalStart = e.flushLiterals(literalStart, pos)
		e.emitCopy(data[literalStart:pos], length, offset)

		for i := pos; i < min(pos+length, size-2); i++ {
			e.insert(i)
		}
		pos += length
		literalStart = pos
	}

	literalStart = e.flushLiterals(literalStart, size)
	e.out = append(e.out, byte(0xFC+size-literalStart))
	e.out = append(e.out, data[literalStart:]...)
	return e.out, nil
}

// CompressRefPack reads `input` to the end and writes it RefPack-compressed to
// `output`. It returns the number of bytes written.
func CompressRefPack(input io.Reader, output io.Writer) (int64, error) {
	data, err := io.ReadAll(input)
	if err != nil {
		return 0, err
	}
	compressed, err := EncodeRefPack(data)
	if err != nil {
		return 0, err
	}
	n, err := output.Write(compressed)
	return int64(n), err
}

// DecompressRefPack reads a RefPack stream from `input` and writes the
// decompressed bytes to `output`. It returns the number of bytes written.
func DecompressRefPack(input io.Reader, output io.Writer) (int64, error) {
	data, err := io.ReadAll(input)
	if err != nil {
		return 0, err
	}
	decompressed, err := DecodeRefPack(data)
	if err != nil {
		return 0, err
	}
	n, err := output.Write(decompressed)
	return int64(n), err
}
