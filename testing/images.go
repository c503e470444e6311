package testing

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/dargueta/rompatch/utilities/compression"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"
)

// LoadImage takes a compressed image and returns a stream to access the
// uncompressed data.
//
//   - Writes to the stream do not affect `compressedImageBytes`.
//   - While the stream can be written to, its size is fixed to `size`.
//     Attempting to write past the end of this buffer will trigger an error.
func LoadImage(t *testing.T, compressedImageBytes []byte, size int) io.ReadWriteSeeker {
	compressedBuf := bytes.NewBuffer(compressedImageBytes)
	require.Greater(t, len(compressedImageBytes), 0, "compressed image is empty")

	imageBytes, err := compression.DecompressImageToBytes(compressedBuf)
	require.NoError(t, err)
	require.Equal(t, size, len(imageBytes), "uncompressed image is wrong size")
	return bytesextra.NewReadWriteSeeker(imageBytes)
}

// PackImage compresses an image the way fixtures are stored, so it can be
// given to [LoadImage].
func PackImage(t *testing.T, image []byte) []byte {
	packed, err := compression.CompressImageToBytes(bytes.NewReader(image))
	require.NoError(t, err)
	return packed
}

// WriteTempImage saves an image to a file that's deleted when the test ends,
// and returns its path.
func WriteTempImage(t *testing.T, image []byte) string {
	path := filepath.Join(t.TempDir(), "image.bin")
	require.NoError(t, os.WriteFile(path, image, 0o644), "failed to write temporary image")
	return path
}
