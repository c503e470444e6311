// Package ppf reads, writes and applies PlayStation Patch Format files.
//
// A PPF file is a header followed by records, each giving an absolute offset
// into the disc image and the bytes to write there. Three incompatible
// versions exist:
//
//   - PPF 1.0: 32-bit offsets, no validation.
//   - PPF 2.0: adds the expected image size and a 1 KiB block of the original
//     image used to check the patch is being applied to the right dump.
//   - PPF 3.0: 64-bit offsets, an optional validation block, and optional undo
//     data after every record so a patch can be reverted.
//
// Versions 2 and 3 may end with a FILE_ID.DIZ text blurb, which is not part
// of the patch data.
//
// A patch is always parsed in full before anything is written, so a truncated
// file never leaves an image half patched.
package ppf

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/dargueta/rompatch"
)

type Version int

const (
	Version1 Version = 1
	Version2 Version = 2
	Version3 Version = 3
)

func (v Version) String() string {
	return fmt.Sprintf("PPF%d.0", int(v))
}

// Image types recorded in PPF3 headers. They determine where the validation
// block is taken from.
const (
	ImageBIN byte = 0
	ImageGI  byte = 1
)

const (
	descriptionStart = 6
	descriptionEnd   = 56
	validationSize   = 1024
	// ValidationOffsetBIN is where the validation block comes from in raw BIN
	// images: sector 16, the ISO 9660 primary volume descriptor.
	ValidationOffsetBIN = 0x9320
	// ValidationOffsetGI is the same for PrimoDVD GI images.
	ValidationOffsetGI = 0x80A0

	dizBegin = "@BEGIN_FILE_ID.DIZ"
	dizEnd   = "@END_FILE_ID.DIZ"
)

// Record is one change to the image. Undo, when present, holds the original
// bytes and is the same length as Data.
type Record struct {
	Offset int64
	Data   []byte
	Undo   []byte
}

// End gives the offset of the first byte after the record.
func (r Record) End() int64 {
	return r.Offset + int64(len(r.Data))
}

// Patch is a parsed PPF file.
type Patch struct {
	Version     Version
	Description string
	// ImageType is only stored in PPF3 files.
	ImageType byte
	// ExpectedSize is only stored in PPF2 files. Zero means unknown.
	ExpectedSize int64
	// ValidationBlock is the 1 KiB of the original image that must match
	// before applying, or nil if the patch doesn't check.
	ValidationBlock []byte
	// HasUndo is true if every record carries its original bytes.
	HasUndo bool
	Records []Record
	// FileID is the FILE_ID.DIZ blurb, if any.
	FileID string
}

// ValidationOffset gives where in the image the validation block comes from.
func (p *Patch) ValidationOffset() int64 {
	if p.Version == Version3 && p.ImageType == ImageGI {
		return ValidationOffsetGI
	}
	return ValidationOffsetBIN
}

// Bytes counts the total number of bytes the patch writes.
func (p *Patch) Bytes() int {
	total := 0
	for _, r := range p.Records {
		total += len(r.Data)
	}
	return total
}

func malformed(format string, args ...any) error {
	return rompatch.ErrMalformedInput.WithMessage(fmt.Sprintf(format, args...))
}

// Parse decodes a complete PPF file.
func Parse(data []byte) (*Patch, error) {
	if len(data) < descriptionEnd || !bytes.HasPrefix(data, []byte("PPF")) {
		return nil, malformed("not a PPF file")
	}

	patch := &Patch{
		Description: strings.TrimRight(string(data[descriptionStart:descriptionEnd]), "\x00 "),
	}
	switch string(data[3:5]) {
	case "10":
		patch.Version = Version1
	case "20":
		patch.Version = Version2
	case "30":
		patch.Version = Version3
	default:
		return nil, malformed("unsupported PPF version %q", data[3:5])
	}
	if method := int(data[5]); method != int(patch.Version)-1 {
		return nil, malformed("%s file has encoding method %d", patch.Version, method)
	}

	var recordStart, offsetSize int
	switch patch.Version {
	case Version1:
		recordStart, offsetSize = descriptionEnd, 4

	case Version2:
		data, patch.FileID = stripFileID(data, 4)
		if len(data) < 60+validationSize {
			return nil, malformed("PPF2 header is truncated")
		}
		patch.ExpectedSize = int64(binary.LittleEndian.Uint32(data[56:60]))
		patch.ValidationBlock = bytes.Clone(data[60 : 60+validationSize])
		recordStart, offsetSize = 60+validationSize, 4

	case Version3:
		data, patch.FileID = stripFileID(data, 2)
		if len(data) < 60 {
			return nil, malformed("PPF3 header is truncated")
		}
		patch.ImageType = data[56]
		patch.HasUndo = data[58] != 0
		recordStart, offsetSize = 60, 8
		if data[57] != 0 {
			if len(data) < 60+validationSize {
				return nil, malformed("PPF3 validation block is truncated")
			}
			patch.ValidationBlock = bytes.Clone(data[60 : 60+validationSize])
			recordStart += validationSize
		}
	}

	records, err := parseRecords(data[recordStart:], recordStart, offsetSize, patch.HasUndo)
	if err != nil {
		return nil, err
	}
	patch.Records = records
	return patch, nil
}

// stripFileID removes a trailing FILE_ID.DIZ block, whose length is stored in
// the last `lengthSize` bytes of the file.
func stripFileID(data []byte, lengthSize int) ([]byte, string) {
	suffixEnd := len(data) - lengthSize
	if suffixEnd < len(dizBegin)+len(dizEnd) ||
		!bytes.HasSuffix(data[:suffixEnd], []byte(".DIZ")) {
		return data, ""
	}

	var length int
	if lengthSize == 2 {
		length = int(binary.LittleEndian.Uint16(data[suffixEnd:]))
	} else {
		length = int(binary.LittleEndian.Uint32(data[suffixEnd:]))
	}

	blockSize := len(dizBegin) + length + len(dizEnd) + lengthSize
	start := len(data) - blockSize
	if start < 0 || !bytes.HasPrefix(data[start:], []byte(dizBegin)) {
		return data, ""
	}
	text := data[start+len(dizBegin) : start+len(dizBegin)+length]
	return data[:start], strings.TrimRight(string(text), "\x00")
}

func parseRecords(data []byte, base, offsetSize int, hasUndo bool) ([]Record, error) {
	var records []Record
	pos := 0
	for pos < len(data) {
		if pos+offsetSize+1 > len(data) {
			return nil, malformed("record header at offset %d is truncated", base+pos)
		}

		var offset uint64
		if offsetSize == 8 {
			offset = binary.LittleEndian.Uint64(data[pos:])
		} else {
			offset = uint64(binary.LittleEndian.Uint32(data[pos:]))
		}
		length := int(data[pos+offsetSize])
		pos += offsetSize + 1

		total := length
		if hasUndo {
			total *= 2
		}
		if pos+total > len(data) {
			return nil, malformed(
				"record at offset %d needs %d bytes, only %d left",
				base+pos,
				total,
				len(data)-pos)
		}
		if offset > 1<<62 {
			return nil, malformed("record at offset %d targets offset %d", base+pos, offset)
		}

		record := Record{Offset: int64(offset), Data: bytes.Clone(data[pos : pos+length])}
		pos += length
		if hasUndo {
			record.Undo = bytes.Clone(data[pos : pos+length])
			pos += length
		}
		records = append(records, record)
	}
	return records, nil
}
