// Package compression implements the compression schemes found in game images
// and in this module's test fixtures.
//
// # RefPack
//
// RefPack (also known as QFS) is the LZ77 variant used across EA Sports titles
// to compress database files inside BIGF archives. A stream is the magic bytes
// 0x10 0xFB, the decompressed size as a 24-bit big-endian integer, and then a
// series of commands. Each command carries 0-3 literal bytes and optionally a
// back-reference into the output produced so far:
//
//	0xxxxxxx                    2 bytes, copy 3-10 bytes from up to 1 KiB back
//	10xxxxxx                    3 bytes, copy 4-67 bytes from up to 16 KiB back
//	110xxxxx                    4 bytes, copy 5-1028 bytes from up to 128 KiB back
//	111xxxxx (< 0xFC)           4-112 literal bytes, no copy
//	111111xx                    end of stream, 0-3 trailing literals
//
// Back-references may overlap the bytes they produce, so copies run one byte
// at a time.
//
// # RLE8 + gzip
//
// Test images are mostly empty space, so they're stored run-length encoded
// and then gzipped. The run-length scheme is the one used by the BMP file
// format: if a byte B occurs N >= 2 times, B is written twice, followed by a
// byte giving how many additional times B occurred. For example:
//
//	WXXXXXXXXXXXXXXXYZZ
//	W XX 13 Y ZZ 0
//
// Runs longer than 257 bytes are split. A byte appearing exactly twice costs
// three bytes, but gzip takes care of that.
package compression
