package textcodec

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Capacity gives the maximum number of characters that fit in `budget` bytes
// with room left for the terminator.
func Capacity(budget int, cs Charset) int {
	capacity := budget/cs.Width() - 1
	if capacity < 0 {
		return 0
	}
	return capacity
}

// EncodeFixed encodes text into exactly `budget` bytes. If the prepared text
// has more than [Capacity] characters it's cut down to that, and `truncated`
// is true. The remainder of the buffer, terminator included, is zero bytes.
func EncodeFixed(text string, budget int, cs Charset) (data []byte, truncated bool) {
	if budget < 0 {
		budget = 0
	}
	data = make([]byte, budget)

	characters := []rune(cs.Prepare(text))
	capacity := Capacity(budget, cs)
	if len(characters) > capacity {
		characters = characters[:capacity]
		truncated = true
	}

	width := cs.Width()
	for i, r := range characters {
		cs.encodeRune(r, data[i*width:(i+1)*width])
	}
	return data, truncated
}

// Decode reads characters up to the first terminator (or the end of the data)
// and trims trailing padding. A trailing partial code unit is ignored.
func Decode(data []byte, cs Charset) string {
	var builder strings.Builder
	width := cs.Width()

	for i := 0; i+width <= len(data); i += width {
		r, ok := cs.decodeUnit(data[i : i+width])
		if !ok {
			break
		}
		builder.WriteRune(r)
	}
	return strings.TrimRight(builder.String(), " \x00")
}

// Letters that don't decompose under NFKD but have a conventional ASCII
// spelling.
var specialFolds = strings.NewReplacer(
	"ø", "o", "Ø", "O",
	"ß", "ss",
	"đ", "d", "Đ", "D",
	"ł", "l", "Ł", "L",
	"æ", "ae", "Æ", "AE",
	"œ", "oe", "Œ", "OE",
	"þ", "th", "Þ", "TH",
)

// Fold converts text to plain ASCII: diacritics are stripped (é → e, ñ → n),
// a handful of ligatures and special letters are spelled out, and whatever is
// still outside ASCII is dropped.
func Fold(text string) string {
	text = specialFolds.Replace(text)

	// Transformers carry state, so a fresh chain is built for every call.
	folder := transform.Chain(
		norm.NFKD,
		runes.Remove(runes.In(unicode.Mn)),
		runes.Remove(runes.Predicate(func(r rune) bool { return r > unicode.MaxASCII })),
	)

	folded, _, err := transform.String(folder, text)
	if err != nil {
		// Only reachable with invalid UTF-8; keep the ASCII bytes we have.
		return strings.Map(
			func(r rune) rune {
				if r > unicode.MaxASCII {
					return -1
				}
				return r
			},
			text,
		)
	}
	return folded
}
