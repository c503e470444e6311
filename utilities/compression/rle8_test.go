package compression_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/dargueta/rompatch"
	c "github.com/dargueta/rompatch/utilities/compression"
	"github.com/noxer/bytewriter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompressRLE8__Basic(t *testing.T) {
	tests := []struct {
		Name           string
		Input          []byte
		ExpectedOutput []byte
	}{
		{"empty", []byte{}, []byte{}},
		{"run with two only", []byte{4, 4}, []byte{4, 4, 0}},
		{"no runs", []byte{0, 1, 2, 3, 4}, []byte{0, 1, 2, 3, 4}},
		{"two at end", []byte{6, 1, 3, 0, 0}, []byte{6, 1, 3, 0, 0, 0}},
		{"three at end", []byte{6, 1, 0, 0, 0}, []byte{6, 1, 0, 0, 1}},
		{"short run", []byte{9, 5, 5, 5, 5, 5, 3, 7}, []byte{9, 5, 5, 3, 3, 7}},
		{
			"adjacent runs",
			[]byte{9, 5, 5, 5, 5, 5, 5, 3, 3, 3, 3, 7, 2, 6},
			[]byte{9, 5, 5, 4, 3, 3, 2, 7, 2, 6},
		},
		{
			"single long run",
			bytes.Repeat([]byte{5}, 1024),
			[]byte{5, 5, 255, 5, 5, 255, 5, 5, 255, 5, 5, 251},
		},
		{"257", bytes.Repeat([]byte{8}, 257), []byte{8, 8, 255}},
		{"258", bytes.Repeat([]byte{8}, 258), []byte{8, 8, 255, 8}},
		{"259", bytes.Repeat([]byte{8}, 259), []byte{8, 8, 255, 8, 8, 0}},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			output := make([]byte, len(test.ExpectedOutput)*2)
			n, err := c.CompressRLE8(bytes.NewReader(test.Input), bytewriter.New(output))
			require.NoError(t, err)
			assert.EqualValues(t, len(test.ExpectedOutput), n, "wrong number of bytes written")
			assert.Equal(t, test.ExpectedOutput, output[:n])
		})
	}
}

func TestRLE8RoundTrip(t *testing.T) {
	tests := []struct {
		Name string
		Data []byte
	}{
		{"random", randomBytes(1852, 1852)},
		{"nulls", make([]byte, 571)},
		{"non-null run", bytes.Repeat([]byte{182}, 934)},
		{"empty", []byte{}},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			// Random input can grow, hence the oversized buffer.
			compressed := make([]byte, len(test.Data)*2)
			n, err := c.CompressRLE8(bytes.NewReader(test.Data), bytewriter.New(compressed))
			require.NoError(t, err)
			t.Logf("compressed %d to %d", len(test.Data), n)

			output := make([]byte, len(test.Data))
			n, err = c.DecompressRLE8(bytes.NewReader(compressed[:n]), bytewriter.New(output))
			require.NoError(t, err)
			assert.EqualValues(t, len(test.Data), n)
			assert.Equal(t, test.Data, output)
		})
	}
}

func TestRLE8Decompress__MissingRepeatCount(t *testing.T) {
	decompressed := make([]byte, 16)
	_, err := c.DecompressRLE8(bytes.NewReader([]byte{9, 1, 4, 4}), bytewriter.New(decompressed))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.ErrorIs(t, err, rompatch.ErrMalformedInput)
}
