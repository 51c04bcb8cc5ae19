package classfile

import (
	"fmt"
	"unicode/utf16"
)

// DecodeModifiedUTF8 decodes the modified UTF-8 used by class files and Java data streams: NUL
// is encoded in two bytes and supplementary characters as surrogate pairs of three bytes each.
func DecodeModifiedUTF8(b []byte) (string, error) {
	ascii := true
	for _, c := range b {
		if c == 0 || c >= 0x80 {
			ascii = false
			break
		}
	}

	if ascii {
		return string(b), nil
	}

	units := make([]uint16, 0, len(b))

	for i := 0; i < len(b); {
		c := b[i]

		switch {
		case c == 0:
			return "", fmt.Errorf("%w: raw NUL in modified UTF-8", ErrMalformed)
		case c < 0x80:
			units = append(units, uint16(c))
			i++
		case c&0xE0 == 0xC0:
			if i+1 >= len(b) || b[i+1]&0xC0 != 0x80 {
				return "", fmt.Errorf("%w: bad 2-byte sequence at %d", ErrMalformed, i)
			}

			units = append(units, uint16(c&0x1F)<<6|uint16(b[i+1]&0x3F))
			i += 2
		case c&0xF0 == 0xE0:
			if i+2 >= len(b) || b[i+1]&0xC0 != 0x80 || b[i+2]&0xC0 != 0x80 {
				return "", fmt.Errorf("%w: bad 3-byte sequence at %d", ErrMalformed, i)
			}

			units = append(units, uint16(c&0x0F)<<12|uint16(b[i+1]&0x3F)<<6|uint16(b[i+2]&0x3F))
			i += 3
		default:
			return "", fmt.Errorf("%w: invalid byte 0x%02x at %d", ErrMalformed, c, i)
		}
	}

	return string(utf16.Decode(units)), nil
}

// EncodeModifiedUTF8 is the inverse of DecodeModifiedUTF8.
func EncodeModifiedUTF8(s string) []byte {
	ascii := true
	for i := 0; i < len(s); i++ {
		if s[i] == 0 || s[i] >= 0x80 {
			ascii = false
			break
		}
	}

	if ascii {
		return []byte(s)
	}

	out := make([]byte, 0, len(s)+4)

	for _, u := range utf16.Encode([]rune(s)) {
		switch {
		case u != 0 && u < 0x80:
			out = append(out, byte(u))
		case u < 0x800:
			out = append(out, byte(0xC0|u>>6), byte(0x80|u&0x3F))
		default:
			out = append(out, byte(0xE0|u>>12), byte(0x80|(u>>6)&0x3F), byte(0x80|u&0x3F))
		}
	}

	return out
}
