package ppf

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/dargueta/rompatch"
)

// maxRecordSize is the most a single record can write; the length is one byte.
const maxRecordSize = 255

// Encode serializes the patch in its own version's format. Records longer
// than 255 bytes are split.
func (p *Patch) Encode() ([]byte, error) {
	if p.Version < Version1 || p.Version > Version3 {
		return nil, rompatch.ErrInvalidArgument.WithMessage(
			fmt.Sprintf("unsupported version %d", int(p.Version)))
	}
	if len(p.Description) > descriptionEnd-descriptionStart {
		return nil, rompatch.ErrEncodingOverflow.WithMessage(
			fmt.Sprintf(
				"description is %d bytes, max is %d",
				len(p.Description),
				descriptionEnd-descriptionStart))
	}
	if p.ValidationBlock != nil && len(p.ValidationBlock) != validationSize {
		return nil, rompatch.ErrInvalidArgument.WithMessage(
			fmt.Sprintf("validation block must be %d bytes", validationSize))
	}

	var out bytes.Buffer
	fmt.Fprintf(&out, "PPF%d0", int(p.Version))
	out.WriteByte(byte(p.Version - 1))
	description := make([]byte, descriptionEnd-descriptionStart)
	copy(description, p.Description)
	for i := len(p.Description); i < len(description); i++ {
		description[i] = ' '
	}
	out.Write(description)

	offsetSize := 4
	switch p.Version {
	case Version2:
		if p.ExpectedSize > 0xFFFFFFFF {
			return nil, rompatch.ErrInvalidArgument.WithMessage("image too large for PPF2")
		}
		binary.Write(&out, binary.LittleEndian, uint32(p.ExpectedSize))
		block := p.ValidationBlock
		if block == nil {
			block = make([]byte, validationSize)
		}
		out.Write(block)

	case Version3:
		offsetSize = 8
		out.WriteByte(p.ImageType)
		out.WriteByte(boolByte(p.ValidationBlock != nil))
		out.WriteByte(boolByte(p.HasUndo))
		out.WriteByte(0)
		if p.ValidationBlock != nil {
			out.Write(p.ValidationBlock)
		}
	}

	for i, r := range p.Records {
		if p.HasUndo && len(r.Undo) != len(r.Data) {
			return nil, rompatch.ErrInvalidArgument.WithMessage(
				fmt.Sprintf("record %d has %d bytes of data but %d of undo", i, len(r.Data), len(r.Undo)))
		}
		if offsetSize == 4 && r.End() > 0xFFFFFFFF {
			return nil, rompatch.ErrInvalidArgument.WithMessage(
				fmt.Sprintf("record %d is past the 4 GiB limit of %s", i, p.Version))
		}
		for _, piece := range splitRecord(r) {
			if offsetSize == 8 {
				binary.Write(&out, binary.LittleEndian, uint64(piece.Offset))
			} else {
				binary.Write(&out, binary.LittleEndian, uint32(piece.Offset))
			}
			out.WriteByte(byte(len(piece.Data)))
			out.Write(piece.Data)
			if p.HasUndo {
				out.Write(piece.Undo)
			}
		}
	}

	if p.FileID != "" && p.Version != Version1 {
		out.WriteString(dizBegin)
		out.WriteString(p.FileID)
		out.WriteString(dizEnd)
		if p.Version == Version2 {
			binary.Write(&out, binary.LittleEndian, uint32(len(p.FileID)))
		} else {
			if len(p.FileID) > 0xFFFF {
				return nil, rompatch.ErrEncodingOverflow.WithMessage("FILE_ID.DIZ is too long")
			}
			binary.Write(&out, binary.LittleEndian, uint16(len(p.FileID)))
		}
	}
	return out.Bytes(), nil
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

func splitRecord(r Record) []Record {
	if len(r.Data) <= maxRecordSize {
		return []Record{r}
	}

	pieces := make([]Record, 0, (len(r.Data)+maxRecordSize-1)/maxRecordSize)
	for start := 0; start < len(r.Data); start += maxRecordSize {
		end := min(start+maxRecordSize, len(r.Data))
		piece := Record{Offset: r.Offset + int64(start), Data: r.Data[start:end]}
		if r.Undo != nil {
			piece.Undo = r.Undo[start:end]
		}
		pieces = append(pieces, piece)
	}
	return pieces
}

type DiffOptions struct {
	Description string
	// Undo stores the original bytes with every record.
	Undo bool
	// BlockCheck embeds the validation block from the original image.
	BlockCheck bool
	ImageType  byte
	FileID     string
}

// Diff builds a PPF3 patch turning `original` into `modified`. Both images must
// be the same size.
func Diff(original, modified []byte, options DiffOptions) (*Patch, error) {
	if len(original) != len(modified) {
		return nil, rompatch.ErrInvalidArgument.WithMessage(
			fmt.Sprintf(
				"images differ in size: %d and %d bytes",
				len(original),
				len(modified)))
	}

	patch := &Patch{
		Version:     Version3,
		Description: options.Description,
		ImageType:   options.ImageType,
		HasUndo:     options.Undo,
		FileID:      options.FileID,
	}
	if options.BlockCheck {
		offset := patch.ValidationOffset()
		if int64(len(original)) < offset+validationSize {
			return nil, rompatch.ErrInvalidArgument.WithMessage(
				"image is too small to hold a validation block")
		}
		patch.ValidationBlock = bytes.Clone(original[offset : offset+validationSize])
	}

	for i := 0; i < len(original); {
		if original[i] == modified[i] {
			i++
			continue
		}
		start := i
		for i < len(original) && original[i] != modified[i] && i-start < maxRecordSize {
			i++
		}
		record := Record{Offset: int64(start), Data: bytes.Clone(modified[start:i])}
		if options.Undo {
			record.Undo = bytes.Clone(original[start:i])
		}
		patch.Records = append(patch.Records, record)
	}
	return patch, nil
}
