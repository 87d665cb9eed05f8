package nbt

import (
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// Strings are stored in the modified UTF-8 format used by java's DataOutput.
// It differs from UTF-8 in two places:
//   - U+0000 is encoded as the two bytes C0 80.
//   - code points above U+FFFF are split into a surrogate pair
//     and each half is encoded as a 3 byte sequence.

// modifiedUTF8Len returns the number of bytes needed to encode s.
func modifiedUTF8Len(s string) (n int) {
	for _, r := range s {
		switch {
		case r == 0:
			n += 2
		case r < 0x80:
			n++
		case r < 0x800:
			n += 2
		case r < 0x10000:
			n += 3
		default:
			n += 6
		}
	}
	return n
}

// appendModifiedUTF8 appends the modified UTF-8 encoding of s to dst.
// Invalid UTF-8 in s is encoded as U+FFFD.
func appendModifiedUTF8(dst []byte, s string) []byte {
	for _, r := range s {
		switch {
		case r == 0:
			dst = append(dst, 0xC0, 0x80)
		case r < 0x80:
			dst = append(dst, byte(r))
		case r < 0x800:
			dst = append(dst, 0xC0|byte(r>>6), 0x80|byte(r&0x3F))
		case r < 0x10000:
			dst = appendUnit(dst, uint16(r))
		default:
			hi, lo := utf16.EncodeRune(r)
			dst = appendUnit(appendUnit(dst, uint16(hi)), uint16(lo))
		}
	}
	return dst
}

func appendUnit(dst []byte, u uint16) []byte {
	return append(dst, 0xE0|byte(u>>12), 0x80|byte((u>>6)&0x3F), 0x80|byte(u&0x3F))
}

// decodeModifiedUTF8 decodes b.
// If b is not valid, bad is the offset of the first invalid byte and ok is false.
func decodeModifiedUTF8(b []byte) (s string, bad int, ok bool) {
	// fast path for ascii only strings
	ascii := true
	for _, c := range b {
		if c == 0 || c >= 0x80 {
			ascii = false
			break
		}
	}
	if ascii {
		return string(b), 0, true
	}

	var sb strings.Builder
	sb.Grow(len(b))

	// high surrogate waiting for its pair
	var pending rune = -1
	flush := func() {
		if pending >= 0 {
			sb.WriteRune(utf8.RuneError)
			pending = -1
		}
	}

	for i := 0; i < len(b); {
		c := b[i]
		var u rune
		switch {
		case c < 0x80:
			u = rune(c)
			i++
		case c&0xE0 == 0xC0:
			if i+1 >= len(b) || b[i+1]&0xC0 != 0x80 {
				return "", i, false
			}
			u = rune(c&0x1F)<<6 | rune(b[i+1]&0x3F)
			i += 2
		case c&0xF0 == 0xE0:
			if i+2 >= len(b) || b[i+1]&0xC0 != 0x80 || b[i+2]&0xC0 != 0x80 {
				return "", i, false
			}
			u = rune(c&0x0F)<<12 | rune(b[i+1]&0x3F)<<6 | rune(b[i+2]&0x3F)
			i += 3
		default:
			return "", i, false
		}

		switch {
		case utf16.IsSurrogate(u) && u < 0xDC00:
			flush()
			pending = u
		case utf16.IsSurrogate(u):
			if pending >= 0 {
				sb.WriteRune(utf16.DecodeRune(pending, u))
				pending = -1
			} else {
				sb.WriteRune(utf8.RuneError)
			}
		default:
			flush()
			sb.WriteRune(u)
		}
	}
	flush()
	return sb.String(), 0, true
}
