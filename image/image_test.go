package image_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/dargueta/rompatch"
	"github.com/dargueta/rompatch/image"
	"github.com/dargueta/rompatch/layout"
	rt "github.com/dargueta/rompatch/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"
)

func TestImage__WriteRegionAndCommit(t *testing.T) {
	storage := make([]byte, 100)
	img, err := image.New(bytesextra.NewReadWriteSeeker(storage), 16)
	require.NoError(t, err)
	defer img.Close()

	assert.EqualValues(t, 100, img.Size())

	region := layout.Region{{Offset: 14, Length: 4}, {Offset: 40, Length: 2}}
	require.NoError(t, img.WriteRegion(region, []byte("ABCDEF")))
	assert.True(t, img.Pending())
	assert.Equal(t, make([]byte, 100), storage, "write reached storage before commit")

	readBack, err := img.ReadRegion(region)
	require.NoError(t, err)
	assert.Equal(t, []byte("ABCDEF"), readBack)

	require.NoError(t, img.Commit())
	assert.False(t, img.Pending())
	assert.Equal(t, []byte("ABCD"), storage[14:18])
	assert.Equal(t, []byte("EF"), storage[40:42])
}

func TestImage__WriteRegionWrongSize(t *testing.T) {
	img, err := image.New(bytesextra.NewReadWriteSeeker(make([]byte, 64)), 16)
	require.NoError(t, err)
	defer img.Close()

	err = img.WriteRegion(layout.Region{{Offset: 0, Length: 4}}, []byte("toolong"))
	assert.ErrorIs(t, err, rompatch.ErrInvalidArgument)
	assert.False(t, img.Pending())
}

func TestImage__CloseDiscardsUncommitted(t *testing.T) {
	storage := make([]byte, 64)
	img, err := image.New(bytesextra.NewReadWriteSeeker(storage), 0)
	require.NoError(t, err)

	_, err = img.WriteAt([]byte{1, 2, 3}, 10)
	require.NoError(t, err)
	require.NoError(t, img.Close())
	assert.Equal(t, make([]byte, 64), storage)
}

func TestImage__Discard(t *testing.T) {
	storage := bytes.Repeat([]byte{7}, 64)
	img, err := image.New(bytesextra.NewReadWriteSeeker(storage), 16)
	require.NoError(t, err)
	defer img.Close()

	_, err = img.WriteAt([]byte{1}, 0)
	require.NoError(t, err)
	img.Discard()

	buffer := make([]byte, 1)
	_, err = img.ReadAt(buffer, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 7, buffer[0])
}

func TestCreateCopy__SourceUntouched(t *testing.T) {
	dir := t.TempDir()
	sourcePath := filepath.Join(dir, "source.bin")
	outputPath := filepath.Join(dir, "output.bin")

	source := bytes.Repeat([]byte("0123456789"), 1000)
	require.NoError(t, os.WriteFile(sourcePath, source, 0o644))
	sourceDigest, err := image.DigestFile(sourcePath)
	require.NoError(t, err)
	assert.Equal(t, image.DigestBytes(source), sourceDigest)

	img, err := image.CreateCopy(sourcePath, outputPath, 0)
	require.NoError(t, err)
	assert.Equal(t, outputPath, img.Path())
	assert.EqualValues(t, len(source), img.Size())

	_, err = img.WriteAt([]byte("patched"), 5000)
	require.NoError(t, err)
	require.NoError(t, img.Commit())

	outputDigest, err := img.Digest()
	require.NoError(t, err)
	require.NoError(t, img.Close())
	assert.NotEqual(t, sourceDigest, outputDigest)

	afterDigest, err := image.DigestFile(sourcePath)
	require.NoError(t, err)
	assert.Equal(t, sourceDigest, afterDigest)

	output, err := os.ReadFile(outputPath)
	require.NoError(t, err)
	assert.Len(t, output, len(source))
	assert.Equal(t, []byte("patched"), output[5000:5007])
	assert.Equal(t, image.DigestBytes(output), outputDigest)
}

// aliases gives paths that all lead to `path` without being spelled like it.
func aliases(t *testing.T, path string) map[string]string {
	dir := filepath.Dir(path)
	symlink := filepath.Join(t.TempDir(), "symlink.bin")
	require.NoError(t, os.Symlink(path, symlink))
	hardLink := filepath.Join(dir, "hardlink.bin")
	require.NoError(t, os.Link(path, hardLink))

	return map[string]string{
		"DotDot":   dir + "/./../" + filepath.Base(dir) + "/" + filepath.Base(path),
		"Symlink":  symlink,
		"HardLink": hardLink,
	}
}

func TestCreateCopy__AliasedOutput(t *testing.T) {
	sourcePath := filepath.Join(t.TempDir(), "source.bin")
	source := bytes.Repeat([]byte("0123456789"), 1000)
	require.NoError(t, os.WriteFile(sourcePath, source, 0o644))

	for name, alias := range aliases(t, sourcePath) {
		t.Run(name, func(t *testing.T) {
			same, err := image.SameFile(sourcePath, alias)
			require.NoError(t, err)
			assert.True(t, same)

			_, err = image.CreateCopy(sourcePath, alias, 0)
			assert.ErrorIs(t, err, rompatch.ErrInvalidArgument)

			after, err := os.ReadFile(sourcePath)
			require.NoError(t, err)
			assert.Equal(t, source, after, "source image was truncated")
		})
	}
}

func TestSameFile__DistinctAndMissing(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first.bin")
	second := filepath.Join(dir, "second.bin")
	require.NoError(t, os.WriteFile(first, []byte("same"), 0o644))
	require.NoError(t, os.WriteFile(second, []byte("same"), 0o644))

	same, err := image.SameFile(first, second)
	require.NoError(t, err)
	assert.False(t, same, "identical contents aren't the same file")

	same, err = image.SameFile(first, filepath.Join(dir, "missing.bin"))
	require.NoError(t, err)
	assert.False(t, same)

	_, err = image.SameFile(filepath.Join(dir, "missing.bin"), first)
	assert.ErrorIs(t, err, rompatch.ErrIOFailed)
}

func TestCreateCopy__ReplacesExistingOutput(t *testing.T) {
	dir := t.TempDir()
	sourcePath := filepath.Join(dir, "source.bin")
	outputPath := filepath.Join(dir, "output.bin")
	require.NoError(t, os.WriteFile(sourcePath, []byte("fresh copy"), 0o644))
	require.NoError(t, os.WriteFile(outputPath, []byte("stale output from an earlier run"), 0o644))

	img, err := image.CreateCopy(sourcePath, outputPath, 0)
	require.NoError(t, err)
	require.NoError(t, img.Close())

	output, err := os.ReadFile(outputPath)
	require.NoError(t, err)
	assert.Equal(t, []byte("fresh copy"), output)

	leftovers, err := filepath.Glob(filepath.Join(dir, ".output.bin.*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers, "temporary copy left behind")
}

func TestOpen__Missing(t *testing.T) {
	_, err := image.Open(filepath.Join(t.TempDir(), "nope.bin"), 0)
	assert.ErrorIs(t, err, rompatch.ErrIOFailed)
}

func TestDigestBytes__Known(t *testing.T) {
	// BLAKE3 of the empty string.
	assert.Equal(t,
		"af1349b9f5f9a1a6a0404dea36dcc9499bcb25c9adc112b7cc9a93cae41f3262",
		image.DigestBytes(nil))
}

func TestImage__PackedFixture(t *testing.T) {
	raw := rt.CreateRawImage(t, 4)
	copy(raw[5000:], rt.CreateRandomImage(t, 100))
	stream := rt.LoadImage(t, rt.PackImage(t, raw), len(raw))

	img, err := image.New(stream, 0)
	require.NoError(t, err)
	defer img.Close()

	assert.EqualValues(t, 4*rt.RawSectorSize, img.Size())
	readBack, err := img.ReadRegion(layout.Region{{Offset: 4990, Length: 120}})
	require.NoError(t, err)
	assert.Equal(t, raw[4990:5110], readBack)

	digest, err := img.Digest()
	require.NoError(t, err)
	assert.Equal(t, image.DigestBytes(raw), digest)
}
