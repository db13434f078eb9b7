package encoding

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyHex is returned by ParseHex when the input holds no hex digits.
var ErrEmptyHex = errors.New("encoding: empty hex input")

// ParseHex reads a loosely formatted hex string into bytes, the way the
// shell's hex commands accept it: whitespace is ignored, "0x"/"0X"
// prefixes before a digit are skipped, and an odd number of digits gets a
// leading zero nibble. Any other character is an error.
//
//	"55 AA 01 02 0x0D 0A" -> {0x55, 0xAA, 0x01, 0x02, 0x0D, 0x0A}
//	"ABC"                 -> {0x0A, 0xBC}
func ParseHex(s string) ([]byte, error) {
	digits := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case isSpace(c):
		case c == '0' && i+2 < len(s) && (s[i+1] == 'x' || s[i+1] == 'X') && isHexDigit(s[i+2]):
			i++ // skip the prefix; the loop increment eats the 'x'
		case isHexDigit(c):
			digits = append(digits, c)
		default:
			return nil, fmt.Errorf("encoding: invalid hex character %q", c)
		}
	}
	if len(digits) == 0 {
		return nil, ErrEmptyHex
	}
	if len(digits)%2 == 1 {
		digits = append([]byte{'0'}, digits...)
	}
	out := make([]byte, len(digits)/2)
	if _, err := hex.Decode(out, digits); err != nil {
		return nil, fmt.Errorf("encoding: decode hex: %w", err)
	}
	return out, nil
}

// FormatHex renders p as uppercase hex pairs, each byte followed by a
// space, so consecutive stream chunks concatenate cleanly:
//
//	{0x55, 0xAA} -> "55 AA "
//
// Display call sites that dislike the trailing space trim it.
func FormatHex(p []byte) string {
	var b strings.Builder
	b.Grow(len(p) * 3)
	for _, c := range p {
		b.WriteByte(hexUpper[c>>4])
		b.WriteByte(hexUpper[c&0x0F])
		b.WriteByte(' ')
	}
	return b.String()
}

// FormatASCII renders p with printable ASCII bytes kept as-is and
// everything else shown as '.'.
func FormatASCII(p []byte) string {
	var b strings.Builder
	b.Grow(len(p))
	for _, c := range p {
		if c >= 0x20 && c < 0x7F {
			b.WriteByte(c)
		} else {
			b.WriteByte('.')
		}
	}
	return b.String()
}

const hexUpper = "0123456789ABCDEF"

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}

func isHexDigit(c byte) bool {
	switch {
	case c >= '0' && c <= '9':
		return true
	case c >= 'a' && c <= 'f':
		return true
	case c >= 'A' && c <= 'F':
		return true
	}
	return false
}
