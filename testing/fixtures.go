package testing

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

// RawSectorSize is the size of a raw Mode 2 CD sector.
const RawSectorSize = 2352

var sectorSync = []byte{0x00, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x00}

// CreateRandomImage creates an image of `size` random bytes. It is guaranteed
// to either return a valid slice or fail the test and abort.
func CreateRandomImage(t *testing.T, size int) []byte {
	backingData := make([]byte, size)

	_, err := rand.Read(backingData)
	require.NoErrorf(t, err, "failed to initialize %d random bytes", size)
	return backingData
}

// CreateRawImage creates a zeroed image of `totalSectors` raw sectors, each
// starting with the CD sync pattern. Images smaller than a single sector can't
// be created.
func CreateRawImage(t *testing.T, totalSectors int) []byte {
	require.Greater(t, totalSectors, 0, "image must have at least one sector")

	image := make([]byte, totalSectors*RawSectorSize)
	for i := 0; i < totalSectors; i++ {
		copy(image[i*RawSectorSize:], sectorSync)
	}
	return image
}
