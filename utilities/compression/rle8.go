package compression

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/dargueta/rompatch"
)

const maxRLE8Run = 257

// CompressRLE8 run-length encodes everything from `input` until EOF. It returns
// the number of bytes written to `output`.
func CompressRLE8(input io.Reader, output io.Writer) (int64, error) {
	grouper := NewRLEGrouper(input)
	written := int64(0)

	emit := func(chunk ...byte) error {
		n, err := output.Write(chunk)
		written += int64(n)
		return err
	}

	for {
		run, err := grouper.GetNextRun()
		if errors.Is(err, io.EOF) {
			return written, nil
		} else if err != nil {
			return written, err
		}

		for run.RunLength >= 2 {
			repeats := min(run.RunLength, maxRLE8Run)
			if err := emit(run.Byte, run.Byte, byte(repeats-2)); err != nil {
				return written, err
			}
			run.RunLength -= repeats
		}
		if run.RunLength == 1 {
			if err := emit(run.Byte); err != nil {
				return written, err
			}
		}
	}
}

// DecompressRLE8 reverses [CompressRLE8]. A stream ending right after a byte
// pair, without its repeat count, fails with an error wrapping both
// [io.ErrUnexpectedEOF] and [rompatch.ErrMalformedInput].
func DecompressRLE8(input io.Reader, output io.Writer) (int64, error) {
	source := bufio.NewReader(input)
	previous := -1
	written := int64(0)

	for {
		current, err := source.ReadByte()
		if errors.Is(err, io.EOF) {
			return written, nil
		} else if err != nil {
			return written, fmt.Errorf("error reading input: %w", err)
		}

		count := 1
		if int(current) == previous {
			extra, err := source.ReadByte()
			if errors.Is(err, io.EOF) {
				return written, rompatch.ErrMalformedInput.Wrap(
					fmt.Errorf(
						"%w: missing repeat count after two %02x bytes",
						io.ErrUnexpectedEOF,
						current))
			} else if err != nil {
				return written, fmt.Errorf("error reading input: %w", err)
			}

			// The first byte of the pair was already written last time around.
			count = int(extra) + 1
			previous = -1
		} else {
			previous = int(current)
		}

		for i := 0; i < count; i++ {
			if err := writeByte(output, current); err != nil {
				return written, fmt.Errorf("failed to write to output: %w", err)
			}
			written++
		}
	}
}

func writeByte(output io.Writer, b byte) error {
	if bw, ok := output.(io.ByteWriter); ok {
		return bw.WriteByte(b)
	}
	_, err := output.Write([]byte{b})
	return err
}
