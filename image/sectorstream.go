package image

import (
	"fmt"
	"io"

	"github.com/dargueta/rompatch"
)

// SectorStream is an abstraction layer around a seekable stream that makes it
// look like a sequence of fixed-size sectors. The last sector may be short if
// the stream's size isn't a multiple of the sector size.
//
// The exposed fields are for informational purposes only and should never be
// changed.
type SectorStream struct {
	BytesPerSector uint
	TotalSectors   uint
	// Size is the size of the stream in bytes.
	Size   int64
	stream io.ReadWriteSeeker
}

// NewSectorStream wraps `stream`, determining its size by seeking to the end.
func NewSectorStream(stream io.ReadWriteSeeker, bytesPerSector uint) (*SectorStream, error) {
	if bytesPerSector == 0 {
		return nil, rompatch.ErrInvalidArgument.WithMessage("sector size can't be 0")
	}

	size, err := stream.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, rompatch.ErrIOFailed.Wrap(err)
	}

	return &SectorStream{
		BytesPerSector: bytesPerSector,
		TotalSectors:   uint((size + int64(bytesPerSector) - 1) / int64(bytesPerSector)),
		Size:           size,
		stream:         stream,
	}, nil
}

// SectorOffset converts a sector index into a byte offset into the stream.
func (s *SectorStream) SectorOffset(sectorIndex uint) (int64, error) {
	if sectorIndex >= s.TotalSectors {
		return -1,
			rompatch.ErrInvalidArgument.WithMessage(
				fmt.Sprintf(
					"invalid sector %d: not in range [0, %d)",
					sectorIndex,
					s.TotalSectors))
	}
	return int64(sectorIndex) * int64(s.BytesPerSector), nil
}

// CheckIOBounds checks that `dataLength` bytes can be read from or written to
// the stream starting at sector `sectorIndex`.
func (s *SectorStream) CheckIOBounds(sectorIndex uint, dataLength int) error {
	offset, err := s.SectorOffset(sectorIndex)
	if err != nil {
		return err
	}
	if offset+int64(dataLength) > s.Size {
		return rompatch.ErrInvalidArgument.WithMessage(
			fmt.Sprintf(
				"sector %d plus %d bytes of data extends past end of image",
				sectorIndex,
				dataLength))
	}
	return nil
}

func (s *SectorStream) seekToSector(sectorIndex uint) error {
	offset, err := s.SectorOffset(sectorIndex)
	if err != nil {
		return err
	}
	_, err = s.stream.Seek(offset, io.SeekStart)
	if err != nil {
		return rompatch.ErrIOFailed.Wrap(err)
	}
	return nil
}

// ReadSector fills `buffer` starting at the beginning of the given sector.
func (s *SectorStream) ReadSector(sectorIndex uint, buffer []byte) error {
	err := s.CheckIOBounds(sectorIndex, len(buffer))
	if err != nil {
		return err
	}
	err = s.seekToSector(sectorIndex)
	if err != nil {
		return err
	}

	_, err = io.ReadFull(s.stream, buffer)
	if err != nil {
		return rompatch.ErrIOFailed.Wrap(err)
	}
	return nil
}

// WriteSector writes `data` starting at the beginning of the given sector.
func (s *SectorStream) WriteSector(sectorIndex uint, data []byte) error {
	err := s.CheckIOBounds(sectorIndex, len(data))
	if err != nil {
		return err
	}
	err = s.seekToSector(sectorIndex)
	if err != nil {
		return err
	}

	_, err = s.stream.Write(data)
	if err != nil {
		return rompatch.ErrIOFailed.Wrap(err)
	}
	return nil
}
