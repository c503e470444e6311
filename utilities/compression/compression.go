package compression

import (
	"bytes"
	"compress/gzip"
	"io"
)

// CompressImage compresses an image using RLE8 and then gzip. It returns the
// number of uncompressed RLE8 bytes handed to gzip, which is only meaningful
// if no error occurred.
func CompressImage(input io.Reader, output io.Writer) (int64, error) {
	// Images are small enough that the best level costs nothing noticeable.
	gzWriter, err := gzip.NewWriterLevel(output, gzip.BestCompression)
	if err != nil {
		return 0, err
	}

	n, err := CompressRLE8(input, gzWriter)
	if err != nil {
		gzWriter.Close()
		return n, err
	}
	return n, gzWriter.Close()
}

// DecompressImage reverses [CompressImage]. It returns the size of the
// decompressed image.
func DecompressImage(input io.Reader, output io.Writer) (int64, error) {
	gzReader, err := gzip.NewReader(input)
	if err != nil {
		return 0, err
	}
	defer gzReader.Close()
	return DecompressRLE8(gzReader, output)
}

// CompressImageToBytes is [CompressImage] returning a new byte slice.
func CompressImageToBytes(input io.Reader) ([]byte, error) {
	var buffer bytes.Buffer
	_, err := CompressImage(input, &buffer)
	if err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

// DecompressImageToBytes is [DecompressImage] returning a new byte slice.
func DecompressImageToBytes(input io.Reader) ([]byte, error) {
	var buffer bytes.Buffer
	_, err := DecompressImage(input, &buffer)
	if err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}
