package ppf

import (
	"bytes"
	"fmt"
	"io"

	"github.com/dargueta/rompatch"
	"github.com/xaionaro-go/bytesextra"
)

// Target is an image a patch can be applied to.
type Target interface {
	io.ReaderAt
	io.WriterAt
}

type ApplyOptions struct {
	// SkipValidation applies the patch even if the image size or validation
	// block don't match.
	SkipValidation bool
}

// Validate checks that the image is the one the patch was made for. Patches
// that don't carry validation data always pass.
func (p *Patch) Validate(image io.ReaderAt, size int64) error {
	if p.Version == Version2 && p.ExpectedSize != 0 && p.ExpectedSize != size {
		return rompatch.ErrVerificationMismatch.WithMessage(
			fmt.Sprintf("patch expects a %d-byte image, got %d bytes", p.ExpectedSize, size))
	}
	if p.ValidationBlock == nil {
		return nil
	}

	offset := p.ValidationOffset()
	if offset+validationSize > size {
		return rompatch.ErrVerificationMismatch.WithMessage(
			fmt.Sprintf("image is too small to hold the validation block at 0x%X", offset))
	}
	actual := make([]byte, validationSize)
	if _, err := image.ReadAt(actual, offset); err != nil {
		return rompatch.ErrIOFailed.Wrap(err)
	}
	if !bytes.Equal(actual, p.ValidationBlock) {
		return rompatch.ErrVerificationMismatch.WithMessage(
			fmt.Sprintf("validation block at 0x%X doesn't match; wrong image?", offset))
	}
	return nil
}

// CheckBounds fails if any record writes past the end of an image of the
// given size. Patching never grows an image.
func (p *Patch) CheckBounds(size int64) error {
	for i, r := range p.Records {
		if r.End() > size {
			return rompatch.ErrInvalidArgument.WithMessage(
				fmt.Sprintf(
					"record %d writes [%d, %d), past the end of a %d-byte image",
					i,
					r.Offset,
					r.End(),
					size))
		}
	}
	return nil
}

// Apply writes every record to the image in order. Validation and bounds
// checks happen before the first write; a failure partway through leaves the
// records before it applied.
func (p *Patch) Apply(image Target, size int64, options ApplyOptions) error {
	if !options.SkipValidation {
		if err := p.Validate(image, size); err != nil {
			return err
		}
	}
	if err := p.CheckBounds(size); err != nil {
		return err
	}

	for i, r := range p.Records {
		if _, err := image.WriteAt(r.Data, r.Offset); err != nil {
			return rompatch.ErrIOFailed.Wrap(err).WithMessage(
				fmt.Sprintf("record %d at offset %d", i, r.Offset))
		}
	}
	return nil
}

// Revert writes the undo data of every record back to the image, last record
// first.
func (p *Patch) Revert(image Target, size int64) error {
	if !p.HasUndo {
		return rompatch.ErrInvalidArgument.WithMessage("patch has no undo data")
	}
	if err := p.CheckBounds(size); err != nil {
		return err
	}

	for i := len(p.Records) - 1; i >= 0; i-- {
		r := p.Records[i]
		if _, err := image.WriteAt(r.Undo, r.Offset); err != nil {
			return rompatch.ErrIOFailed.Wrap(err)
		}
	}
	return nil
}

// ApplyToBytes applies the patch to a copy of an in-memory image and returns
// the copy. The input is never modified.
func (p *Patch) ApplyToBytes(image []byte, options ApplyOptions) ([]byte, error) {
	output := bytes.Clone(image)
	target := NewStreamTarget(bytesextra.NewReadWriteSeeker(output))
	err := p.Apply(target, int64(len(output)), options)
	if err != nil {
		return nil, err
	}
	return output, nil
}

// streamTarget adapts a plain stream to [Target] by seeking before every
// access. It isn't safe for concurrent use.
type streamTarget struct {
	stream io.ReadWriteSeeker
}

// NewStreamTarget wraps a seekable stream, e.g. an [os.File] opened for
// reading and writing, so a patch can be applied to it.
func NewStreamTarget(stream io.ReadWriteSeeker) Target {
	return &streamTarget{stream: stream}
}

func (t *streamTarget) ReadAt(buffer []byte, offset int64) (int, error) {
	if _, err := t.stream.Seek(offset, io.SeekStart); err != nil {
		return 0, err
	}
	return io.ReadFull(t.stream, buffer)
}

func (t *streamTarget) WriteAt(data []byte, offset int64) (int, error) {
	if _, err := t.stream.Seek(offset, io.SeekStart); err != nil {
		return 0, err
	}
	return t.stream.Write(data)
}
