package compression

import (
	"bufio"
	"io"
)

// ByteRun is a single run of one byte value.
type ByteRun struct {
	Byte byte
	// RunLength is the number of times the byte occurs in the run. It's always
	// at least 1 for a valid run.
	RunLength int
}

// InvalidRLERun is returned by [RLEGrouper.GetNextRun] once the input is
// exhausted or broken.
var InvalidRLERun = ByteRun{}

// RLEGrouper splits a byte stream into runs of identical bytes.
type RLEGrouper struct {
	rd *bufio.Reader
}

func NewRLEGrouper(rd io.Reader) *RLEGrouper {
	return &RLEGrouper{rd: bufio.NewReader(rd)}
}

// GetNextRun returns the next run in the stream. At the end of the stream it
// returns [InvalidRLERun] and [io.EOF].
func (grouper *RLEGrouper) GetNextRun() (ByteRun, error) {
	first, err := grouper.rd.ReadByte()
	if err != nil {
		return InvalidRLERun, err
	}

	run := ByteRun{Byte: first, RunLength: 1}
	for {
		current, err := grouper.rd.ReadByte()
		if err == io.EOF {
			return run, nil
		} else if err != nil {
			return InvalidRLERun, err
		}

		if current != first {
			grouper.rd.UnreadByte()
			return run, nil
		}
		run.RunLength++
	}
}
