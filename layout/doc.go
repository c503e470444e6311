// Package layout turns logical record indices into physical byte ranges in a
// game image.
//
// Disc images dumped in raw mode interleave user data with per-sector headers
// and error correction codes, so a table that the game sees as contiguous is
// split across "data windows" in the file. A [Geometry] describes that
// periodic structure. Tables of records ([FixedTable], [PackedTable]) are
// defined in logical coordinates and resolved through the geometry into
// [Region]s, each made of one or more [Chunk]s.
//
// Nothing here reads or writes data; see the image package for that.
package layout
