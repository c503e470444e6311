// Package sectorcache provides a sector-oriented write-back cache used to
// stage changes to an image before committing them to storage.
//
// Only sectors that have been touched are held in memory, so the cache can sit
// in front of a full CD image. All sector indexes begin at 0.
package sectorcache

import (
	"fmt"
	"slices"

	"github.com/boljen/go-bitmap"
	"github.com/dargueta/rompatch"
)

// FetchSectorCallback writes the contents of a single sector from the
// underlying storage into `buffer`. `buffer` is one sector long, except for the
// last sector of an image whose size isn't a multiple of the sector size.
type FetchSectorCallback func(sectorIndex uint, buffer []byte) error

// FlushSectorCallback writes the contents of `buffer` to a sector in the backing
// storage. Sizes follow the same rules as for [FetchSectorCallback].
type FlushSectorCallback func(sectorIndex uint, buffer []byte) error

type SectorCache struct {
	loadedSectors  bitmap.Bitmap
	dirtySectors   bitmap.Bitmap
	sectors        map[uint][]byte
	fetch          FetchSectorCallback
	flush          FlushSectorCallback
	bytesPerSector uint
	totalSectors   uint
	size           int64
}

// New creates a cache over `size` bytes of storage.
func New(
	bytesPerSector uint,
	size int64,
	fetchCb FetchSectorCallback,
	flushCb FlushSectorCallback,
) *SectorCache {
	totalSectors := uint((size + int64(bytesPerSector) - 1) / int64(bytesPerSector))
	return &SectorCache{
		loadedSectors:  bitmap.NewSlice(int(totalSectors)),
		dirtySectors:   bitmap.NewSlice(int(totalSectors)),
		sectors:        make(map[uint][]byte),
		fetch:          fetchCb,
		flush:          flushCb,
		bytesPerSector: bytesPerSector,
		totalSectors:   totalSectors,
		size:           size,
	}
}

func (cache *SectorCache) BytesPerSector() uint {
	return cache.bytesPerSector
}

func (cache *SectorCache) TotalSectors() uint {
	return cache.totalSectors
}

// Size gives the size of the cached storage, in bytes.
func (cache *SectorCache) Size() int64 {
	return cache.size
}

// DirtySectors counts the sectors that have been written but not flushed.
func (cache *SectorCache) DirtySectors() int {
	count := 0
	for index := range cache.sectors {
		if cache.dirtySectors.Get(int(index)) {
			count++
		}
	}
	return count
}

// checkBounds verifies that `length` bytes can be accessed starting at
// `offset`.
func (cache *SectorCache) checkBounds(offset int64, length int) error {
	if offset < 0 || offset+int64(length) > cache.size {
		return rompatch.ErrInvalidArgument.WithMessage(
			fmt.Sprintf(
				"can't access %d bytes at offset %d; range not in [0, %d)",
				length,
				offset,
				cache.size))
	}
	return nil
}

// sectorLength gives the number of valid bytes in a sector; only the last
// sector can be short.
func (cache *SectorCache) sectorLength(sectorIndex uint) int {
	start := int64(sectorIndex) * int64(cache.bytesPerSector)
	return int(min(int64(cache.bytesPerSector), cache.size-start))
}

// loadSector ensures a sector is present in the cache and returns its buffer.
func (cache *SectorCache) loadSector(sectorIndex uint) ([]byte, error) {
	// Dirty sectors are present by definition, so we don't need to check
	// `dirtySectors`.
	if cache.loadedSectors.Get(int(sectorIndex)) {
		return cache.sectors[sectorIndex], nil
	}

	buffer := make([]byte, cache.sectorLength(sectorIndex))
	err := cache.fetch(sectorIndex, buffer)
	if err != nil {
		return nil, rompatch.ErrIOFailed.Wrap(err).WithMessage(
			fmt.Sprintf("failed to load sector %d from storage", sectorIndex))
	}

	cache.sectors[sectorIndex] = buffer
	cache.loadedSectors.Set(int(sectorIndex), true)
	cache.dirtySectors.Set(int(sectorIndex), false)
	return buffer, nil
}

// ReadAt fills `buffer` with data beginning at byte `offset`, loading any
// missing sectors first. Staged writes are visible.
func (cache *SectorCache) ReadAt(buffer []byte, offset int64) (int, error) {
	err := cache.checkBounds(offset, len(buffer))
	if err != nil {
		return 0, err
	}

	done := 0
	for done < len(buffer) {
		position := offset + int64(done)
		sectorIndex := uint(position / int64(cache.bytesPerSector))
		sectorOffset := int(position % int64(cache.bytesPerSector))

		sector, err := cache.loadSector(sectorIndex)
		if err != nil {
			return done, err
		}
		done += copy(buffer[done:], sector[sectorOffset:])
	}
	return done, nil
}

// WriteAt copies `data` into the cache beginning at byte `offset` and marks
// every sector touched as dirty. Partially overwritten sectors are loaded from
// storage first. Nothing reaches storage until [SectorCache.Flush].
//
// Attempting to write past the end of the storage results in an error, and
// the cache is left unmodified.
func (cache *SectorCache) WriteAt(data []byte, offset int64) (int, error) {
	err := cache.checkBounds(offset, len(data))
	if err != nil {
		return 0, err
	}

	done := 0
	for done < len(data) {
		position := offset + int64(done)
		sectorIndex := uint(position / int64(cache.bytesPerSector))
		sectorOffset := int(position % int64(cache.bytesPerSector))

		sector, err := cache.loadSector(sectorIndex)
		if err != nil {
			return done, err
		}
		done += copy(sector[sectorOffset:], data[done:])
		cache.dirtySectors.Set(int(sectorIndex), true)
	}
	return done, nil
}

// Flush writes out all dirty sectors (and only dirty sectors) in ascending
// order and marks them as clean. Only sectors held in memory are visited, so
// the cost doesn't depend on the size of the storage.
func (cache *SectorCache) Flush() error {
	dirty := make([]uint, 0, len(cache.sectors))
	for sectorIndex := range cache.sectors {
		if cache.dirtySectors.Get(int(sectorIndex)) {
			dirty = append(dirty, sectorIndex)
		}
	}
	slices.Sort(dirty)

	for _, sectorIndex := range dirty {
		err := cache.flush(sectorIndex, cache.sectors[sectorIndex])
		if err != nil {
			return rompatch.ErrIOFailed.Wrap(err).WithMessage(
				fmt.Sprintf("failed to flush sector %d to storage", sectorIndex))
		}
		cache.dirtySectors.Set(int(sectorIndex), false)
	}
	return nil
}

// Discard throws away every staged change. Dirty sectors are unloaded so the
// next access fetches them from storage again.
func (cache *SectorCache) Discard() {
	for sectorIndex := range cache.sectors {
		if cache.dirtySectors.Get(int(sectorIndex)) {
			delete(cache.sectors, sectorIndex)
			cache.loadedSectors.Set(int(sectorIndex), false)
			cache.dirtySectors.Set(int(sectorIndex), false)
		}
	}
}

// Evict drops every clean sector from memory. Dirty sectors stay.
func (cache *SectorCache) Evict() {
	for sectorIndex := range cache.sectors {
		if !cache.dirtySectors.Get(int(sectorIndex)) {
			delete(cache.sectors, sectorIndex)
			cache.loadedSectors.Set(int(sectorIndex), false)
		}
	}
}
