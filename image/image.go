// Package image manages the output image of a patch run.
//
// An [Image] is a scoped handle: open it, stage writes, commit them at points
// where the image is consistent, and close it on every exit path. Writes are
// held in a sector cache until [Image.Commit], so an error or cancellation
// between commits never leaves a half-written record on disk.
package image

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dargueta/rompatch"
	"github.com/dargueta/rompatch/image/sectorcache"
	"github.com/dargueta/rompatch/layout"
	"github.com/zeebo/blake3"
)

// DefaultSectorSize is the size of a raw CD sector, which is what most
// supported images are made of. It only affects caching granularity.
const DefaultSectorSize = 2352

type Image struct {
	path   string
	stream *SectorStream
	cache  *sectorcache.SectorCache
	closer io.Closer
}

// New creates an image over an already-open stream. If the stream implements
// [io.Closer] it's closed by [Image.Close].
func New(stream io.ReadWriteSeeker, sectorSize uint) (*Image, error) {
	if sectorSize == 0 {
		sectorSize = DefaultSectorSize
	}

	sectors, err := NewSectorStream(stream, sectorSize)
	if err != nil {
		return nil, err
	}

	img := &Image{stream: sectors}
	img.cache = sectorcache.New(sectorSize, sectors.Size, sectors.ReadSector, sectors.WriteSector)
	if closer, ok := stream.(io.Closer); ok {
		img.closer = closer
	}
	return img, nil
}

// Open opens an existing image file for reading and writing.
func Open(path string, sectorSize uint) (*Image, error) {
	file, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, rompatch.ErrIOFailed.Wrap(err)
	}

	img, err := New(file, sectorSize)
	if err != nil {
		file.Close()
		return nil, err
	}
	img.path = path
	return img, nil
}

// SameFile reports whether two paths lead to the same file, whether through
// symlinks, hard links or a spelling like "dir/../dir/x". A path that doesn't
// exist can't be the same file as one that does.
func SameFile(pathA, pathB string) (bool, error) {
	infoA, err := os.Stat(pathA)
	if err != nil {
		return false, rompatch.ErrIOFailed.Wrap(err)
	}
	infoB, err := os.Stat(pathB)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	} else if err != nil {
		return false, rompatch.ErrIOFailed.Wrap(err)
	}
	return os.SameFile(infoA, infoB), nil
}

// CreateCopy copies the source image to `outputPath` and opens the copy. The
// source is only ever opened read-only, and `outputPath` must not lead to it.
// The copy is written to a temporary file next to `outputPath` and renamed
// into place once complete, replacing any existing file.
func CreateCopy(sourcePath, outputPath string, sectorSize uint) (*Image, error) {
	same, err := SameFile(sourcePath, outputPath)
	if err != nil {
		return nil, err
	}
	if same {
		return nil, rompatch.ErrInvalidArgument.WithMessage(
			fmt.Sprintf("output path %q is the source image %q", outputPath, sourcePath))
	}

	source, err := os.Open(sourcePath)
	if err != nil {
		return nil, rompatch.ErrIOFailed.Wrap(err)
	}
	defer source.Close()

	output, err := os.CreateTemp(filepath.Dir(outputPath), "."+filepath.Base(outputPath)+".*")
	if err != nil {
		return nil, rompatch.ErrIOFailed.Wrap(err)
	}
	abandon := func() {
		output.Close()
		os.Remove(output.Name())
	}

	_, err = io.Copy(output, source)
	if err != nil {
		abandon()
		return nil, rompatch.ErrIOFailed.Wrap(err).WithMessage(
			fmt.Sprintf("failed to copy %q to %q", sourcePath, outputPath))
	}
	if err = output.Chmod(0o644); err != nil {
		abandon()
		return nil, rompatch.ErrIOFailed.Wrap(err)
	}
	if err = os.Rename(output.Name(), outputPath); err != nil {
		abandon()
		return nil, rompatch.ErrIOFailed.Wrap(err)
	}

	img, err := New(output, sectorSize)
	if err != nil {
		output.Close()
		return nil, err
	}
	img.path = outputPath
	return img, nil
}

// Path gives the file the image was opened from, or "" if it wraps a stream.
func (img *Image) Path() string {
	return img.path
}

// Size gives the size of the image in bytes. It never changes.
func (img *Image) Size() int64 {
	return img.stream.Size
}

// ReadAt reads from the image. Staged writes are visible.
func (img *Image) ReadAt(buffer []byte, offset int64) (int, error) {
	return img.cache.ReadAt(buffer, offset)
}

// WriteAt stages a write. It reaches storage at the next [Image.Commit].
func (img *Image) WriteAt(data []byte, offset int64) (int, error) {
	return img.cache.WriteAt(data, offset)
}

// ReadRegion gathers the bytes of a region into one buffer.
func (img *Image) ReadRegion(region layout.Region) ([]byte, error) {
	return region.Load(img)
}

// WriteRegion stages `data` across the chunks of a region. `data` must be
// exactly as long as the region.
func (img *Image) WriteRegion(region layout.Region, data []byte) error {
	pieces, err := region.Scatter(data)
	if err != nil {
		return err
	}
	for i, chunk := range region {
		_, err = img.WriteAt(pieces[i], chunk.Offset)
		if err != nil {
			return err
		}
	}
	return nil
}

// Pending reports whether there are staged writes that haven't been committed.
func (img *Image) Pending() bool {
	return img.cache.DirtySectors() > 0
}

// Commit writes every staged change to storage.
func (img *Image) Commit() error {
	err := img.cache.Flush()
	if err != nil {
		return err
	}
	img.cache.Evict()
	return nil
}

// Discard throws away every staged change.
func (img *Image) Discard() {
	img.cache.Discard()
}

// Digest computes the BLAKE3 digest of the image as committed to storage.
func (img *Image) Digest() (string, error) {
	_, err := img.stream.stream.Seek(0, io.SeekStart)
	if err != nil {
		return "", rompatch.ErrIOFailed.Wrap(err)
	}
	return DigestReader(img.stream.stream)
}

// Close discards uncommitted changes and releases the underlying stream. It's
// safe to call more than once.
func (img *Image) Close() error {
	img.cache.Discard()
	if img.closer == nil {
		return nil
	}

	err := img.closer.Close()
	img.closer = nil
	if err != nil {
		return rompatch.ErrIOFailed.Wrap(err)
	}
	return nil
}

// DigestReader computes the hex-encoded BLAKE3 digest of everything in `r`.
func DigestReader(r io.Reader) (string, error) {
	hasher := blake3.New()
	_, err := io.Copy(hasher, r)
	if err != nil {
		return "", rompatch.ErrIOFailed.Wrap(err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// DigestFile computes the BLAKE3 digest of a file without modifying it.
func DigestFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", rompatch.ErrIOFailed.Wrap(err)
	}
	defer file.Close()
	return DigestReader(file)
}

// DigestBytes is [DigestReader] for data already in memory.
func DigestBytes(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}
