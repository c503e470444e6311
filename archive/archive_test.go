package archive_test

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/dargueta/rompatch"
	"github.com/dargueta/rompatch/archive"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleContents() ([]archive.Entry, map[string][]byte) {
	entries := []archive.Entry{
		{Name: "nhl2007.tdb"},
		{Name: "empty.bin"},
		{Name: "nhlbioatt.tdb"},
	}
	contents := map[string][]byte{
		"nhl2007.tdb":   bytes.Repeat([]byte{0xAB}, 300),
		"empty.bin":     {},
		"nhlbioatt.tdb": []byte("attributes"),
	}
	return entries, contents
}

func TestBuildExtract__RoundTrip(t *testing.T) {
	formats := []archive.Format{archive.DefaultBIGF, archive.DefaultAFS, archive.BIGF{Alignment: 1}}

	for _, format := range formats {
		t.Run(format.Name(), func(t *testing.T) {
			entries, contents := sampleContents()
			if _, ok := format.(archive.AFS); ok {
				for i := range entries {
					contents[archive.AFSEntryName(i)] = contents[entries[i].Name]
					entries[i].Name = archive.AFSEntryName(i)
				}
			}

			data, err := format.Build(entries, contents)
			require.NoError(t, err)

			detected, err := archive.Detect(data)
			require.NoError(t, err)
			assert.Equal(t, format.Name(), detected.Name())

			parsed, err := format.Parse(data)
			require.NoError(t, err)
			require.Len(t, parsed, len(entries))

			for i, entry := range parsed {
				assert.Equal(t, entries[i].Name, entry.Name)
				assert.Equal(t, len(contents[entry.Name]), entry.Size)

				extracted, err := archive.Extract(format, data, entry.Name)
				require.NoError(t, err)
				assert.Equal(t, contents[entry.Name], extracted, "file %q", entry.Name)
			}
		})
	}
}

func TestBIGFBuild__Layout(t *testing.T) {
	entries, contents := sampleContents()
	data, err := archive.DefaultBIGF.Build(entries, contents)
	require.NoError(t, err)

	headerSize := 16 + (8 + 12) + (8 + 10) + (8 + 14)
	assert.Equal(t, []byte("BIGF"), data[:4])
	assert.EqualValues(t, len(data), binary.LittleEndian.Uint32(data[4:8]), "total size is LE")
	assert.EqualValues(t, 3, binary.BigEndian.Uint32(data[8:12]))
	assert.EqualValues(t, headerSize, binary.BigEndian.Uint32(data[12:16]))

	parsed, err := archive.DefaultBIGF.Parse(data)
	require.NoError(t, err)
	assert.Equal(t, 128, parsed[0].Offset)
	assert.Equal(t, 512, parsed[1].Offset, "300 bytes rounds up to 384 + 128")
	assert.Equal(t, 512, parsed[2].Offset, "empty file takes no space")
	assert.Equal(t, 522, len(data), "no padding after the last file")
}

func TestAFSBuild__Layout(t *testing.T) {
	entries := []archive.Entry{{Name: "00000"}, {Name: "00001"}}
	contents := map[string][]byte{
		"00000": bytes.Repeat([]byte{1}, 2049),
		"00001": {2, 2},
	}
	data, err := archive.DefaultAFS.Build(entries, contents)
	require.NoError(t, err)

	parsed, err := archive.DefaultAFS.Parse(data)
	require.NoError(t, err)
	assert.Equal(t, []archive.Entry{
		{Name: "00000", Offset: 2048, Size: 2049},
		{Name: "00001", Offset: 6144, Size: 2},
	}, parsed)
	assert.Equal(t, 8192, len(data), "every file is padded to a sector")
}

func TestBuild__DuplicateNames(t *testing.T) {
	entries := []archive.Entry{{Name: "A.DAT"}, {Name: "a.dat"}}
	contents := map[string][]byte{"A.DAT": {1}, "a.dat": {2}}
	_, err := archive.DefaultBIGF.Build(entries, contents)
	assert.ErrorIs(t, err, rompatch.ErrInvalidArgument)
	assert.ErrorContains(t, err, "duplicate")
	_, err = archive.DefaultAFS.Build(entries, contents)
	assert.ErrorIs(t, err, rompatch.ErrInvalidArgument)
}

func TestBuild__MissingContents(t *testing.T) {
	entries, contents := sampleContents()
	delete(contents, "nhlbioatt.tdb")

	for _, format := range []archive.Format{archive.DefaultBIGF, archive.DefaultAFS} {
		t.Run(format.Name(), func(t *testing.T) {
			_, err := format.Build(entries, contents)
			assert.ErrorIs(t, err, rompatch.ErrInvalidArgument)
			assert.ErrorContains(t, err, "nhlbioatt.tdb")
		})
	}
}

func TestExtract__CaseInsensitive(t *testing.T) {
	entries, contents := sampleContents()
	data, err := archive.DefaultBIGF.Build(entries, contents)
	require.NoError(t, err)

	extracted, err := archive.Extract(archive.DefaultBIGF, data, "NHLBIOATT.TDB")
	require.NoError(t, err)
	assert.Equal(t, []byte("attributes"), extracted)

	_, err = archive.Extract(archive.DefaultBIGF, data, "missing.tdb")
	assert.ErrorIs(t, err, rompatch.ErrNotFound)
}

func TestReplaceInPlace(t *testing.T) {
	entries, contents := sampleContents()
	data, err := archive.DefaultBIGF.Build(entries, contents)
	require.NoError(t, err)
	before, err := archive.DefaultBIGF.Parse(data)
	require.NoError(t, err)

	err = archive.ReplaceInPlace(archive.DefaultBIGF, data, "nhl2007.tdb", []byte("smaller"))
	require.NoError(t, err)

	after, err := archive.DefaultBIGF.Parse(data)
	require.NoError(t, err)
	assert.Equal(t, before, after, "directory must not change")

	extracted, err := archive.Extract(archive.DefaultBIGF, data, "nhl2007.tdb")
	require.NoError(t, err)
	expected := append([]byte("smaller"), make([]byte, 293)...)
	assert.Equal(t, expected, extracted, "remainder must be zeroed")

	untouched, err := archive.Extract(archive.DefaultBIGF, data, "nhlbioatt.tdb")
	require.NoError(t, err)
	assert.Equal(t, []byte("attributes"), untouched)
}

func TestReplaceInPlace__TooLarge(t *testing.T) {
	entries, contents := sampleContents()
	data, err := archive.DefaultBIGF.Build(entries, contents)
	require.NoError(t, err)
	original := bytes.Clone(data)

	err = archive.ReplaceInPlace(archive.DefaultBIGF, data, "nhlbioatt.tdb", []byte("much too long"))
	assert.ErrorIs(t, err, rompatch.ErrNoSpace)
	assert.Equal(t, original, data, "archive must be untouched on failure")
}

func TestReplace__Rebuild(t *testing.T) {
	entries, contents := sampleContents()
	data, err := archive.DefaultBIGF.Build(entries, contents)
	require.NoError(t, err)

	bigger := bytes.Repeat([]byte{0xCD}, 1000)
	rebuilt, err := archive.Replace(archive.DefaultBIGF, data, "EMPTY.BIN", bigger)
	require.NoError(t, err)

	extracted, err := archive.Extract(archive.DefaultBIGF, rebuilt, "empty.bin")
	require.NoError(t, err)
	assert.Equal(t, bigger, extracted)

	other, err := archive.Extract(archive.DefaultBIGF, rebuilt, "nhl2007.tdb")
	require.NoError(t, err)
	assert.Equal(t, contents["nhl2007.tdb"], other)
}

func TestParse__Malformed(t *testing.T) {
	entries, contents := sampleContents()
	good, err := archive.DefaultBIGF.Build(entries, contents)
	require.NoError(t, err)

	pointsOutside := bytes.Clone(good)
	binary.BigEndian.PutUint32(pointsOutside[16:20], 100000)

	tests := []struct {
		Name   string
		Format archive.Format
		Data   []byte
	}{
		{"bigf empty", archive.DefaultBIGF, nil},
		{"bigf bad magic", archive.DefaultBIGF, append([]byte("BIGG"), good[4:]...)},
		{"bigf truncated directory", archive.DefaultBIGF, good[:30]},
		{"bigf offset outside", archive.DefaultBIGF, pointsOutside},
		{"afs short", archive.DefaultAFS, []byte("AFS\x00")},
		{"afs truncated toc", archive.DefaultAFS, []byte("AFS\x00\x05\x00\x00\x00\x00\x00")},
		{
			"afs entry outside",
			archive.DefaultAFS,
			[]byte("AFS\x00\x01\x00\x00\x00\x10\x00\x00\x00\x01\x00\x00\x00"),
		},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			_, err := test.Format.Parse(test.Data)
			assert.ErrorIs(t, err, rompatch.ErrMalformedInput)
		})
	}

	_, err = archive.Detect([]byte("PK\x03\x04"))
	assert.ErrorIs(t, err, rompatch.ErrMalformedInput)
}

func TestAFSEntryName(t *testing.T) {
	assert.Equal(t, "00042", archive.AFSEntryName(42))
	index, err := archive.ParseAFSEntryName("00042")
	require.NoError(t, err)
	assert.Equal(t, 42, index)

	_, err = archive.ParseAFSEntryName("forty-two")
	assert.ErrorIs(t, err, rompatch.ErrInvalidArgument)

	format, err := archive.FormatByName("AFS")
	require.NoError(t, err)
	assert.Equal(t, "afs", format.Name())
}
