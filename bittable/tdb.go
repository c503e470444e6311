package bittable

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/dargueta/rompatch"
)

var tdbMagic = []byte("DB\x00\x08")

const (
	tdbHeaderSize         = 20
	tdbDirectoryStart     = 24
	tdbDirectoryEntrySize = 8
	tdbTableHeaderSize    = 20
	tdbRecordInfoSize     = 16
	tdbFieldHashSize      = 4
	tdbFieldSize          = 16
)

type tdbTableLocation struct {
	header int
	data   int
}

// File is an EA TDB database: a directory of named [Table]s.
//
//	 0  magic "DB\0\x08"
//	 8  u32 data size
//	16  u32 table count
//	20  u32 directory hash
//	24  per table: 4-byte name, u32 offset from the end of the directory
//
// Each table is a 20-byte header (record size at 8), a 16-byte record info
// block (u16 capacity, u16 live count, ..., u32 field count at 8), a field
// name hash, 16 bytes per field (u32 kind, u32 bit offset, 4-byte name, u32
// bit width) and then the records. All integers are little-endian.
//
// Bytes this package doesn't understand are kept as they are.
type File struct {
	raw       []byte
	order     []string
	tables    map[string]*Table
	locations map[string]tdbTableLocation
}

func tdbName(raw []byte) string {
	return strings.TrimRight(string(raw), "\x00 ")
}

func truncatedTDB(what string, offset int) error {
	return rompatch.ErrMalformedInput.WithMessage(
		fmt.Sprintf("TDB %s at offset %d is truncated", what, offset))
}

// ParseFile reads a TDB database. The file's bytes are copied, so the caller
// may reuse `data`.
func ParseFile(data []byte) (*File, error) {
	if len(data) < tdbDirectoryStart || !bytes.HasPrefix(data, tdbMagic) {
		return nil, rompatch.ErrMalformedInput.WithMessage("not a TDB database")
	}

	file := &File{
		raw:       bytes.Clone(data),
		tables:    make(map[string]*Table),
		locations: make(map[string]tdbTableLocation),
	}
	le := binary.LittleEndian

	count := int(le.Uint32(data[16:20]))
	directoryEnd := tdbDirectoryStart + count*tdbDirectoryEntrySize
	if count < 0 || directoryEnd > len(data) {
		return nil, truncatedTDB("directory", tdbDirectoryStart)
	}

	for i := 0; i < count; i++ {
		entry := data[tdbDirectoryStart+i*tdbDirectoryEntrySize:]
		name := tdbName(entry[0:4])
		offset := directoryEnd + int(le.Uint32(entry[4:8]))

		table, location, err := file.parseTable(name, offset)
		if err != nil {
			return nil, err
		}
		if _, exists := file.tables[name]; exists {
			return nil, rompatch.ErrMalformedInput.WithMessage(
				fmt.Sprintf("TDB has two tables named %q", name))
		}
		file.order = append(file.order, name)
		file.tables[name] = table
		file.locations[name] = location
	}
	return file, nil
}

func (file *File) parseTable(name string, offset int) (*Table, tdbTableLocation, error) {
	data := file.raw
	le := binary.LittleEndian
	location := tdbTableLocation{header: offset}

	pos := offset
	if pos < 0 || pos+tdbTableHeaderSize+tdbRecordInfoSize+tdbFieldHashSize > len(data) {
		return nil, location, truncatedTDB("table header for "+name, offset)
	}
	stride := int(le.Uint32(data[pos+8 : pos+12]))
	pos += tdbTableHeaderSize

	header := Header{
		Stride:   stride,
		Capacity: int(le.Uint16(data[pos : pos+2])),
		Count:    int(le.Uint16(data[pos+2 : pos+4])),
	}
	// Only the low byte is the field count; the next one is the index count.
	fieldCount := int(data[pos+8])
	pos += tdbRecordInfoSize + tdbFieldHashSize

	fields := make([]Field, fieldCount)
	for i := range fields {
		if pos+tdbFieldSize > len(data) {
			return nil, location, truncatedTDB("field definition for "+name, pos)
		}
		fields[i] = Field{
			Kind:      Kind(le.Uint32(data[pos : pos+4])),
			BitOffset: int(le.Uint32(data[pos+4 : pos+8])),
			Name:      tdbName(data[pos+8 : pos+12]),
			BitWidth:  int(le.Uint32(data[pos+12 : pos+16])),
		}
		pos += tdbFieldSize
	}

	location.data = pos
	end := pos + header.Stride*header.Capacity
	if end > len(data) {
		return nil, location, truncatedTDB("record data for "+name, pos)
	}

	// The table works directly on the file's copy of the records.
	table, err := NewTable(name, header, fields, data[pos:end:end])
	if err != nil {
		return nil, location, rompatch.ErrMalformedInput.Wrap(err)
	}
	return table, location, nil
}

// TableNames lists the tables in directory order.
func (file *File) TableNames() []string {
	return append([]string(nil), file.order...)
}

// Table returns a table by name. Changes made to the table show up in
// [File.Bytes].
func (file *File) Table(name string) (*Table, error) {
	table, ok := file.tables[name]
	if !ok {
		return nil, rompatch.ErrNotFound.WithMessage(fmt.Sprintf("no TDB table named %q", name))
	}
	return table, nil
}

// Bytes serializes the database, including the current live count of every
// table.
func (file *File) Bytes() []byte {
	out := bytes.Clone(file.raw)
	for name, table := range file.tables {
		location := file.locations[name]
		copy(out[location.data:], table.data)
		binary.LittleEndian.PutUint16(out[location.header+20:], uint16(table.Header.Capacity))
		binary.LittleEndian.PutUint16(out[location.header+22:], uint16(table.Header.Count))
	}
	return out
}

// NewFile builds a database from scratch. Table names are at most four bytes,
// as are field names. Hashes and other fields this package doesn't use are
// zero.
func NewFile(tables []*Table) (*File, error) {
	le := binary.LittleEndian
	putName := func(out []byte, name string) ([]byte, error) {
		if len(name) == 0 || len(name) > 4 {
			return nil, rompatch.ErrInvalidArgument.WithMessage(
				fmt.Sprintf("TDB names must be 1-4 bytes, got %q", name))
		}
		var raw [4]byte
		copy(raw[:], name)
		return append(out, raw[:]...), nil
	}

	var body []byte
	directory := make([]byte, 0, len(tables)*tdbDirectoryEntrySize)
	var err error
	for _, table := range tables {
		if table.Header.Capacity > 0xFFFF || len(table.Fields) > 0xFF {
			return nil, rompatch.ErrInvalidArgument.WithMessage(
				fmt.Sprintf("table %q is too large for a TDB file", table.Name))
		}
		if directory, err = putName(directory, table.Name); err != nil {
			return nil, err
		}
		directory = le.AppendUint32(directory, uint32(len(body)))

		body = append(body, make([]byte, 8)...)
		body = le.AppendUint32(body, uint32(table.Header.Stride))
		body = le.AppendUint32(body, uint32(table.Header.Capacity))
		body = append(body, make([]byte, 4)...)

		body = le.AppendUint16(body, uint16(table.Header.Capacity))
		body = le.AppendUint16(body, uint16(table.Header.Count))
		body = append(body, make([]byte, 4)...)
		body = le.AppendUint32(body, uint32(len(table.Fields)))
		body = append(body, make([]byte, 4+tdbFieldHashSize)...)

		for _, f := range table.Fields {
			body = le.AppendUint32(body, uint32(f.Kind))
			body = le.AppendUint32(body, uint32(f.BitOffset))
			if body, err = putName(body, f.Name); err != nil {
				return nil, err
			}
			body = le.AppendUint32(body, uint32(f.BitWidth))
		}
		body = append(body, table.data...)
	}

	out := make([]byte, tdbDirectoryStart, tdbDirectoryStart+len(directory)+len(body))
	copy(out, tdbMagic)
	out = append(out, directory...)
	out = append(out, body...)
	le.PutUint32(out[8:12], uint32(len(out)))
	le.PutUint32(out[16:20], uint32(len(tables)))
	return ParseFile(out)
}
