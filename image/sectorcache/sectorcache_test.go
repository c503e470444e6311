package sectorcache_test

import (
	"bytes"
	"testing"

	"github.com/dargueta/rompatch"
	"github.com/dargueta/rompatch/image/sectorcache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryStorage backs a cache with a byte slice and counts accesses.
type memoryStorage struct {
	data    []byte
	fetches []uint
	flushes []uint
}

func (m *memoryStorage) fetch(sectorIndex uint, buffer []byte) error {
	m.fetches = append(m.fetches, sectorIndex)
	copy(buffer, m.data[sectorIndex*8:])
	return nil
}

func (m *memoryStorage) flush(sectorIndex uint, buffer []byte) error {
	m.flushes = append(m.flushes, sectorIndex)
	copy(m.data[sectorIndex*8:], buffer)
	return nil
}

func newCache(size int) (*sectorcache.SectorCache, *memoryStorage) {
	storage := &memoryStorage{data: make([]byte, size)}
	for i := range storage.data {
		storage.data[i] = byte(i)
	}
	return sectorcache.New(8, int64(size), storage.fetch, storage.flush), storage
}

func TestNew__SectorCount(t *testing.T) {
	cache, _ := newCache(20)
	assert.EqualValues(t, 3, cache.TotalSectors())
	assert.EqualValues(t, 8, cache.BytesPerSector())
	assert.EqualValues(t, 20, cache.Size())
}

func TestReadAt__LoadsLazily(t *testing.T) {
	cache, storage := newCache(64)

	buffer := make([]byte, 4)
	_, err := cache.ReadAt(buffer, 14)
	require.NoError(t, err)
	assert.Equal(t, []byte{14, 15, 16, 17}, buffer)
	assert.Equal(t, []uint{1, 2}, storage.fetches)

	_, err = cache.ReadAt(buffer, 16)
	require.NoError(t, err)
	assert.Equal(t, []uint{1, 2}, storage.fetches, "sector 2 should've been cached")
}

func TestWriteAt__StagedUntilFlush(t *testing.T) {
	cache, storage := newCache(64)
	original := bytes.Clone(storage.data)

	_, err := cache.WriteAt([]byte{0xAA, 0xBB, 0xCC}, 7)
	require.NoError(t, err)
	assert.Equal(t, original, storage.data, "storage changed before flush")
	assert.Equal(t, 2, cache.DirtySectors())

	buffer := make([]byte, 5)
	_, err = cache.ReadAt(buffer, 6)
	require.NoError(t, err)
	assert.Equal(t, []byte{6, 0xAA, 0xBB, 0xCC, 10}, buffer, "staged write not visible")

	require.NoError(t, cache.Flush())
	assert.Equal(t, []uint{0, 1}, storage.flushes)
	assert.Equal(t, 0, cache.DirtySectors())
	assert.Equal(t, []byte{6, 0xAA, 0xBB, 0xCC, 10}, storage.data[6:11])
	assert.Equal(t, original[:7], storage.data[:7])
	assert.Equal(t, original[10:], storage.data[10:])
}

func TestFlush__OnlyDirtySectors(t *testing.T) {
	cache, storage := newCache(64)

	_, err := cache.ReadAt(make([]byte, 64), 0)
	require.NoError(t, err)
	_, err = cache.WriteAt([]byte{1}, 40)
	require.NoError(t, err)

	require.NoError(t, cache.Flush())
	assert.Equal(t, []uint{5}, storage.flushes)

	require.NoError(t, cache.Flush())
	assert.Equal(t, []uint{5}, storage.flushes, "clean sector flushed again")
}

func TestFlush__AscendingOverLargeStorage(t *testing.T) {
	storage := &memoryStorage{data: make([]byte, 1<<20)}
	cache := sectorcache.New(8, int64(len(storage.data)), storage.fetch, storage.flush)

	for _, offset := range []int64{1<<20 - 8, 4096, 16, 4100} {
		_, err := cache.WriteAt([]byte{0xFF}, offset)
		require.NoError(t, err)
	}
	_, err := cache.ReadAt(make([]byte, 8), 800)
	require.NoError(t, err)
	assert.Equal(t, 3, cache.DirtySectors(), "4096 and 4100 share a sector")

	require.NoError(t, cache.Flush())
	assert.Equal(t, []uint{2, 512, 131071}, storage.flushes)
	assert.Zero(t, cache.DirtySectors())
	assert.EqualValues(t, 0xFF, storage.data[4100])
}

func TestDiscard(t *testing.T) {
	cache, storage := newCache(64)

	_, err := cache.WriteAt([]byte{0xFF, 0xFF}, 30)
	require.NoError(t, err)
	cache.Discard()
	assert.Equal(t, 0, cache.DirtySectors())

	buffer := make([]byte, 2)
	_, err = cache.ReadAt(buffer, 30)
	require.NoError(t, err)
	assert.Equal(t, []byte{30, 31}, buffer)

	require.NoError(t, cache.Flush())
	assert.Empty(t, storage.flushes)
}

func TestEvict__KeepsDirtySectors(t *testing.T) {
	cache, storage := newCache(64)

	_, err := cache.ReadAt(make([]byte, 8), 0)
	require.NoError(t, err)
	_, err = cache.WriteAt([]byte{9}, 8)
	require.NoError(t, err)

	cache.Evict()
	assert.Equal(t, 1, cache.DirtySectors())

	_, err = cache.ReadAt(make([]byte, 8), 0)
	require.NoError(t, err)
	assert.Equal(t, []uint{0, 1, 0}, storage.fetches)
}

func TestShortLastSector(t *testing.T) {
	cache, storage := newCache(20)

	_, err := cache.WriteAt([]byte{0xEE, 0xEE}, 18)
	require.NoError(t, err)
	require.NoError(t, cache.Flush())
	assert.Equal(t, []byte{16, 17, 0xEE, 0xEE}, storage.data[16:])
}

func TestOutOfBounds(t *testing.T) {
	tests := []struct {
		Name   string
		Offset int64
		Length int
	}{
		{"past end", 62, 4},
		{"negative", -1, 1},
		{"starts at end", 64, 1},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			cache, storage := newCache(64)
			_, err := cache.WriteAt(make([]byte, test.Length), test.Offset)
			assert.ErrorIs(t, err, rompatch.ErrInvalidArgument)
			_, err = cache.ReadAt(make([]byte, test.Length), test.Offset)
			assert.ErrorIs(t, err, rompatch.ErrInvalidArgument)
			assert.Empty(t, storage.fetches)
			assert.Equal(t, 0, cache.DirtySectors())
		})
	}
}
