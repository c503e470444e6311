// Package textcodec encodes display text into the fixed-size byte fields found
// in game images.
//
// Every field has a byte budget. Text is folded to ASCII, case-mapped as the
// charset requires, truncated to leave room for a terminator, and padded with
// NUL bytes to exactly fill the budget. The same input and budget always give
// the same bytes.
//
// Two families of charsets are provided: single-byte ASCII (upper, lower, or
// case-preserving) and a dual-byte charset covering the subset of Shift-JIS
// full-width characters used for menu names.
package textcodec

import (
	"strings"
	"unicode"
)

// Charset maps characters to fixed-width code units. Implementations live in
// this package; the tables behind them are built once and never modified.
type Charset interface {
	// Name is a short identifier for logs and reports.
	Name() string
	// Width is the number of bytes in one encoded character. The terminator
	// is one unit of all zero bytes.
	Width() int
	// Prepare folds and case-maps text exactly as [EncodeFixed] will see it.
	Prepare(text string) string
	encodeRune(r rune, dst []byte)
	decodeUnit(src []byte) (rune, bool)
}

type caseMapping int

const (
	preserveCase caseMapping = iota
	upperCase
	lowerCase
	titleCase
)

func applyCase(text string, mapping caseMapping) string {
	switch mapping {
	case upperCase:
		return strings.ToUpper(text)
	case lowerCase:
		return strings.ToLower(text)
	case titleCase:
		runes := []rune(strings.ToLower(text))
		if len(runes) > 0 {
			runes[0] = unicode.ToUpper(runes[0])
		}
		return string(runes)
	}
	return text
}

////////////////////////////////////////////////////////////////////////////////
// Single-byte ASCII

type asciiCharset struct {
	name    string
	mapping caseMapping
}

var (
	ASCIIUpper    Charset = asciiCharset{"ascii-upper", upperCase}
	ASCIILower    Charset = asciiCharset{"ascii-lower", lowerCase}
	ASCIIPreserve Charset = asciiCharset{"ascii", preserveCase}
)

func (cs asciiCharset) Name() string {
	return cs.name
}

func (cs asciiCharset) Width() int {
	return 1
}

func (cs asciiCharset) Prepare(text string) string {
	return applyCase(Fold(text), cs.mapping)
}

func (cs asciiCharset) encodeRune(r rune, dst []byte) {
	if r < 0x20 || r > 0x7E {
		r = ' '
	}
	dst[0] = byte(r)
}

func (cs asciiCharset) decodeUnit(src []byte) (rune, bool) {
	if src[0] == 0 {
		return 0, false
	}
	return rune(src[0]), true
}

////////////////////////////////////////////////////////////////////////////////
// Dual-byte

type dualByteCharset struct {
	name     string
	forward  map[rune][2]byte
	reverse  map[[2]byte]rune
	fallback [2]byte
}

// ShiftJIS encodes letters, digits, and a little punctuation as full-width
// Shift-JIS codes. Anything else, including space, becomes the blank code
// 0x82 0x80.
//
// Text is titlecased before encoding: the first letter is upper case and the
// rest lower case, which is how the game's menus show kanji-section names. An
// all-caps name like "REAL MADRID" is stored, and decodes, as "Real madrid".
//
// Besides '.', the punctuation common in club names (, ' - &) gets its own
// full-width code in the 0x81 row instead of the blank. Older patchers write
// those as blanks; the game displays both.
var ShiftJIS Charset = newShiftJIS()

func newShiftJIS() *dualByteCharset {
	cs := &dualByteCharset{
		name:     "shift-jis",
		forward:  make(map[rune][2]byte),
		reverse:  make(map[[2]byte]rune),
		fallback: [2]byte{0x82, 0x80},
	}

	for c := 'A'; c <= 'Z'; c++ {
		cs.add(c, [2]byte{0x82, byte(c + 31)})
	}
	for c := 'a'; c <= 'z'; c++ {
		cs.add(c, [2]byte{0x82, byte(c + 32)})
	}
	for c := '0'; c <= '9'; c++ {
		cs.add(c, [2]byte{0x82, byte(c + 31)})
	}
	cs.add('.', [2]byte{0x81, 0x42})
	cs.add(',', [2]byte{0x81, 0x43})
	cs.add('\'', [2]byte{0x81, 0x66})
	cs.add('-', [2]byte{0x81, 0x7C})
	cs.add('&', [2]byte{0x81, 0x95})
	cs.add(' ', cs.fallback)
	return cs
}

func (cs *dualByteCharset) add(r rune, code [2]byte) {
	if _, exists := cs.reverse[code]; exists {
		panic("textcodec: duplicate dual-byte code for " + string(r))
	}
	cs.forward[r] = code
	cs.reverse[code] = r
}

func (cs *dualByteCharset) Name() string {
	return cs.name
}

func (cs *dualByteCharset) Width() int {
	return 2
}

func (cs *dualByteCharset) Prepare(text string) string {
	return applyCase(Fold(text), titleCase)
}

func (cs *dualByteCharset) encodeRune(r rune, dst []byte) {
	code, ok := cs.forward[r]
	if !ok {
		code = cs.fallback
	}
	dst[0] = code[0]
	dst[1] = code[1]
}

func (cs *dualByteCharset) decodeUnit(src []byte) (rune, bool) {
	if src[0] == 0 && src[1] == 0 {
		return 0, false
	}
	r, ok := cs.reverse[[2]byte{src[0], src[1]}]
	if !ok {
		return '?', true
	}
	return r, true
}

// Supports reports whether r survives an encode/decode round trip in cs
// without being replaced.
func Supports(cs Charset, r rune) bool {
	switch c := cs.(type) {
	case asciiCharset:
		return r >= 0x20 && r <= 0x7E
	case *dualByteCharset:
		_, ok := c.forward[r]
		return ok
	}
	return false
}

// Lookup finds a charset by its [Charset.Name].
func Lookup(name string) (Charset, bool) {
	for _, cs := range []Charset{ASCIIUpper, ASCIILower, ASCIIPreserve, ShiftJIS} {
		if cs.Name() == name {
			return cs, true
		}
	}
	return nil, false
}
