// Package archive reads and writes the container formats games pack their
// data files into.
//
// Two formats are supported: EA's BIGF, which stores named files, and Konami's
// AFS, whose entries are only numbered. Both are a directory followed by the
// file data, each file starting on an aligned boundary.
//
// Archives are handled entirely in memory. Rebuilding an archive recomputes
// every offset; replacing a file in place never moves anything, and only works
// if the new data fits in the old file's space.
package archive

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/dargueta/rompatch"
	"github.com/noxer/bytewriter"
)

// Entry describes one file stored in an archive.
type Entry struct {
	Name   string
	Offset int
	Size   int
}

// End gives the offset of the first byte after the file's data.
func (e Entry) End() int {
	return e.Offset + e.Size
}

// Format is one archive container format.
type Format interface {
	Name() string
	// Parse reads the archive's directory. It fails with
	// [rompatch.ErrMalformedInput] if the directory is truncated or points
	// outside of the archive.
	Parse(data []byte) ([]Entry, error)
	// Build creates a new archive holding the given entries in order. The
	// entries' offsets and sizes are ignored; contents are looked up by name.
	Build(entries []Entry, contents map[string][]byte) ([]byte, error)
}

// Detect picks the format of an archive by looking at its magic number.
func Detect(data []byte) (Format, error) {
	switch {
	case bytes.HasPrefix(data, bigfMagic):
		return DefaultBIGF, nil
	case bytes.HasPrefix(data, afsMagic):
		return DefaultAFS, nil
	}
	return nil, rompatch.ErrMalformedInput.WithMessage("unrecognized archive format")
}

// FormatByName returns the default configuration of a format given its name.
func FormatByName(name string) (Format, error) {
	switch strings.ToLower(name) {
	case "bigf", "big", "viv":
		return DefaultBIGF, nil
	case "afs":
		return DefaultAFS, nil
	}
	return nil, rompatch.ErrInvalidArgument.WithMessage(
		fmt.Sprintf("unknown archive format %q", name))
}

// Find returns the index of the entry with the given name, compared
// case-insensitively.
func Find(entries []Entry, name string) (int, error) {
	for i, entry := range entries {
		if strings.EqualFold(entry.Name, name) {
			return i, nil
		}
	}
	return -1, rompatch.ErrNotFound.WithMessage(fmt.Sprintf("no file named %q in archive", name))
}

// Extract returns a copy of one file's data.
func Extract(f Format, data []byte, name string) ([]byte, error) {
	entries, err := f.Parse(data)
	if err != nil {
		return nil, err
	}
	i, err := Find(entries, name)
	if err != nil {
		return nil, err
	}
	return bytes.Clone(data[entries[i].Offset:entries[i].End()]), nil
}

// ExtractAll returns a copy of every file in the archive, keyed by name, and
// the directory in archive order.
func ExtractAll(f Format, data []byte) ([]Entry, map[string][]byte, error) {
	entries, err := f.Parse(data)
	if err != nil {
		return nil, nil, err
	}
	contents := make(map[string][]byte, len(entries))
	for _, entry := range entries {
		contents[entry.Name] = bytes.Clone(data[entry.Offset:entry.End()])
	}
	return entries, contents, nil
}

// Replace rebuilds the archive with one file's data swapped out. All other
// files are carried over byte for byte, though their offsets may change.
func Replace(f Format, data []byte, name string, newData []byte) ([]byte, error) {
	entries, contents, err := ExtractAll(f, data)
	if err != nil {
		return nil, err
	}
	i, err := Find(entries, name)
	if err != nil {
		return nil, err
	}
	contents[entries[i].Name] = newData
	return f.Build(entries, contents)
}

// ReplaceInPlace overwrites a file's data without moving anything. The new
// data must not be larger than the old; the rest of the old space is zeroed.
// The directory is left untouched, so the recorded size stays the same.
//
// On failure `data` is not modified.
func ReplaceInPlace(f Format, data []byte, name string, newData []byte) error {
	entries, err := f.Parse(data)
	if err != nil {
		return err
	}
	i, err := Find(entries, name)
	if err != nil {
		return err
	}

	entry := entries[i]
	if len(newData) > entry.Size {
		return rompatch.ErrNoSpace.WithMessage(
			fmt.Sprintf(
				"%d bytes won't fit in the %d bytes allocated to %q",
				len(newData),
				entry.Size,
				entry.Name))
	}

	writer := bytewriter.New(data[entry.Offset:entry.End()])
	if _, err := writer.Write(newData); err != nil {
		return rompatch.ErrIOFailed.Wrap(err)
	}
	if _, err := writer.Write(make([]byte, entry.Size-len(newData))); err != nil {
		return rompatch.ErrIOFailed.Wrap(err)
	}
	return nil
}

// alignUp rounds `n` up to a multiple of `alignment`.
func alignUp(n, alignment int) int {
	if alignment <= 1 {
		return n
	}
	return (n + alignment - 1) / alignment * alignment
}

func padTo(buffer []byte, alignment int) []byte {
	return append(buffer, make([]byte, alignUp(len(buffer), alignment)-len(buffer))...)
}

func checkBounds(entry Entry, archiveSize int) error {
	if entry.Offset < 0 || entry.Size < 0 || entry.End() > archiveSize {
		return rompatch.ErrMalformedInput.WithMessage(
			fmt.Sprintf(
				"file %q at [%d, %d) extends past end of %d-byte archive",
				entry.Name,
				entry.Offset,
				entry.End(),
				archiveSize))
	}
	return nil
}

// checkBuildInputs makes sure names are unique, ignoring case, and that every
// entry has contents. An empty file needs an explicit empty slice.
func checkBuildInputs(entries []Entry, contents map[string][]byte) error {
	seen := make(map[string]bool, len(entries))
	for _, entry := range entries {
		key := strings.ToLower(entry.Name)
		if seen[key] {
			return rompatch.ErrInvalidArgument.WithMessage(
				fmt.Sprintf("duplicate file name %q", entry.Name))
		}
		seen[key] = true

		if _, ok := contents[entry.Name]; !ok {
			return rompatch.ErrInvalidArgument.WithMessage(
				fmt.Sprintf("no contents given for %q", entry.Name))
		}
	}
	return nil
}
