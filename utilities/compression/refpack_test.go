package compression_test

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/dargueta/rompatch"
	c "github.com/dargueta/rompatch/utilities/compression"
	"github.com/noxer/bytewriter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomBytes(seed int64, size int) []byte {
	data := make([]byte, size)
	rand.New(rand.NewSource(seed)).Read(data)
	return data
}

func TestRefPackRoundTrip(t *testing.T) {
	random := randomBytes(1, 20000)
	tests := []struct {
		Name string
		Data []byte
	}{
		{"empty", []byte{}},
		{"one byte", []byte{7}},
		{"three bytes", []byte("abc")},
		{"zeros", make([]byte, 70000)},
		{"repeating pattern", bytes.Repeat([]byte("ABCD"), 5000)},
		{"text", bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog. "), 300)},
		{"random", random},
		{"random twice", append(append([]byte{}, random...), random...)},
		{"random with holes", append(randomBytes(2, 3000), append(make([]byte, 2000), randomBytes(2, 3000)...)...)},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			compressed, err := c.EncodeRefPack(test.Data)
			require.NoError(t, err)
			t.Logf("compressed %d -> %d", len(test.Data), len(compressed))

			size, err := c.RefPackSize(compressed)
			require.NoError(t, err)
			assert.Equal(t, len(test.Data), size)

			decompressed, err := c.DecodeRefPack(compressed)
			require.NoError(t, err)
			assert.Equal(t, test.Data, decompressed)
		})
	}
}

func TestRefPackCompress__Ratio(t *testing.T) {
	pattern := bytes.Repeat([]byte("ABCD"), 5000)
	compressed, err := c.EncodeRefPack(pattern)
	require.NoError(t, err)
	assert.Less(t, len(compressed), 200)

	random := randomBytes(3, 20000)
	twice := append(append([]byte{}, random...), random...)
	compressed, err = c.EncodeRefPack(twice)
	require.NoError(t, err)
	assert.Less(t, len(compressed), 21500, "second copy should be back-references")
}

func TestRefPackCompress__Deterministic(t *testing.T) {
	data := append(randomBytes(4, 5000), bytes.Repeat([]byte("xy"), 500)...)
	first, err := c.EncodeRefPack(data)
	require.NoError(t, err)
	second, err := c.EncodeRefPack(data)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRefPackCompress__ExactOutput(t *testing.T) {
	compressed, err := c.EncodeRefPack(nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x10, 0xFB, 0, 0, 0, 0xFC}, compressed, "empty input")

	compressed, err = c.EncodeRefPack([]byte("abcde"))
	require.NoError(t, err)
	assert.Equal(
		t,
		[]byte{0x10, 0xFB, 0, 0, 5, 0xE0, 'a', 'b', 'c', 'd', 0xFD, 'e'},
		compressed,
		"literals only")
}

func TestRefPackDecompress__Commands(t *testing.T) {
	tests := []struct {
		Name     string
		Stream   []byte
		Expected string
	}{
		{
			"overlapping short copy",
			[]byte{0x10, 0xFB, 0, 0, 8, 0x0E, 0x01, 'a', 'b', 0xFC},
			"abababab",
		},
		{
			"medium copy",
			// 3 literals, then copy 4 from 3 back.
			[]byte{0x10, 0xFB, 0, 0, 7, 0x80, 0xC0, 0x02, 'x', 'y', 'z', 0xFC},
			"xyzxyzx",
		},
		{
			"long copy",
			// 1 literal, then copy 5 from 1 back.
			[]byte{0x10, 0xFB, 0, 0, 6, 0xC1, 0x00, 0x00, 0x00, 'q', 0xFC},
			"qqqqqq",
		},
		{
			"bulk literals and trailer",
			[]byte{0x10, 0xFB, 0, 0, 6, 0xE0, 'a', 'b', 'c', 'd', 0xFE, 'e', 'f'},
			"abcdef",
		},
		{
			"missing end marker",
			[]byte{0x10, 0xFB, 0, 0, 4, 0xE0, 'a', 'b', 'c', 'd'},
			"abcd",
		},
		{
			"excess output discarded",
			[]byte{0x10, 0xFB, 0, 0, 2, 0xE0, 'a', 'b', 'c', 'd', 0xFC},
			"ab",
		},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			result, err := c.DecodeRefPack(test.Stream)
			require.NoError(t, err)
			assert.Equal(t, test.Expected, string(result))
		})
	}
}

func TestRefPackDecompress__Malformed(t *testing.T) {
	tests := []struct {
		Name   string
		Stream []byte
	}{
		{"empty", []byte{}},
		{"bad magic", []byte{0x11, 0xFB, 0, 0, 0, 0xFC}},
		{"short header", []byte{0x10, 0xFB, 0}},
		{"truncated command", []byte{0x10, 0xFB, 0, 0, 8, 0xC1, 0x00}},
		{"truncated literals", []byte{0x10, 0xFB, 0, 0, 8, 0xE0, 'a', 'b'}},
		{"offset before start", []byte{0x10, 0xFB, 0, 0, 8, 0x0D, 0x05, 'a', 0xFC}},
		{"too short", []byte{0x10, 0xFB, 0, 0, 9, 0xFD, 'a'}},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			_, err := c.DecodeRefPack(test.Stream)
			assert.ErrorIs(t, err, rompatch.ErrMalformedInput)
		})
	}
}

func TestRefPackStreams(t *testing.T) {
	original := bytes.Repeat([]byte("stream round trip "), 100)

	compressedBuffer := make([]byte, 4096)
	compressedSize, err := c.CompressRefPack(
		bytes.NewReader(original), bytewriter.New(compressedBuffer))
	require.NoError(t, err)
	assert.True(t, c.IsRefPack(compressedBuffer[:compressedSize]))

	decompressedBuffer := make([]byte, len(original))
	n, err := c.DecompressRefPack(
		bytes.NewReader(compressedBuffer[:compressedSize]),
		bytewriter.New(decompressedBuffer))
	require.NoError(t, err)
	assert.EqualValues(t, len(original), n)
	assert.Equal(t, original, decompressedBuffer)
}
