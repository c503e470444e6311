package ppf

import (
	"bytes"
	"io"
	"os"

	"github.com/dargueta/rompatch"
	"github.com/ulikunitz/xz"
)

var xzMagic = []byte{0xFD, '7', 'z', 'X', 'Z', 0x00}

// Read parses a patch from a stream. Patches distributed xz-compressed are
// decompressed transparently.
func Read(r io.Reader) (*Patch, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, rompatch.ErrIOFailed.Wrap(err)
	}

	if bytes.HasPrefix(data, xzMagic) {
		reader, err := xz.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, rompatch.ErrMalformedInput.Wrap(err)
		}
		data, err = io.ReadAll(reader)
		if err != nil {
			return nil, rompatch.ErrMalformedInput.Wrap(err)
		}
	}
	return Parse(data)
}

// Open reads and parses the patch file at `path`.
func Open(path string) (*Patch, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, rompatch.ErrIOFailed.Wrap(err)
	}
	defer file.Close()
	return Read(file)
}
