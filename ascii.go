package bwf

import (
	"fmt"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var asciiTable = &unicode.RangeTable{
	R16:         []unicode.Range16{{Lo: 0x00, Hi: 0x7f, Stride: 1}},
	LatinOffset: 1,
}

// asciiFilter replaces ill-formed UTF-8 with U+FFFD, splits accented
// letters into base letter and combining mark, then drops every rune
// outside of 7-bit ASCII, the replacement character included.
func asciiFilter() transform.Transformer {
	return transform.Chain(runes.ReplaceIllFormed(), norm.NFD, runes.Remove(runes.NotIn(asciiTable)))
}

// decodeASCII never fails: bytes that are not ASCII are dropped.
func decodeASCII(b []byte) string {
	out, _, err := transform.Bytes(asciiFilter(), b)
	if err != nil {
		return ""
	}

	return string(out)
}

// StripNonASCII returns s reduced to 7-bit ASCII. Accents are dropped from
// their base letters, other runes are removed.
func StripNonASCII(s string) string {
	out, _, err := transform.String(asciiFilter(), s)
	if err != nil {
		return ""
	}

	return out
}

func isASCII(s string) bool {
	for i := range len(s) {
		if s[i] > unicode.MaxASCII {
			return false
		}
	}

	return true
}

func checkASCII(field, s string) error {
	if !isASCII(s) {
		return fmt.Errorf("%w: %s %q", ErrNonASCII, field, s)
	}

	return nil
}
