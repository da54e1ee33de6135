// Package charset implements the text encoding used by Digimon World 2 for
// in-game strings.
//
// Most characters take one byte. The byte 0xF0 introduces a two-byte code
// naming a whole dictionary word, and 0xFF terminates a string. Decoded text
// renders codes without a printable form as tokens in braces: control codes
// by name ("{ENTER}"), unassigned codes in hex ("{42}", "{F017}"). The
// encoder accepts the same tokens, plus "{word}" for any dictionary word, so
// that every code can be written from text.
package charset

import (
	"bytes"
	"fmt"
	"strconv"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"
)

// maxToken bounds the length of a brace token, braces included.
const maxToken = 32

// DW2 is the game text encoding.
var DW2 encoding.Encoding = dw2{}

type dw2 struct{}

func (dw2) NewDecoder() *encoding.Decoder {
	return &encoding.Decoder{Transformer: decoder{}}
}

func (dw2) NewEncoder() *encoding.Encoder {
	return &encoding.Encoder{Transformer: encoder{}}
}

// RepertoireError indicates a character the game charset cannot represent.
type RepertoireError struct {
	Rune rune
}

func (err RepertoireError) Error() string {
	return fmt.Sprintf("character %q is not in the game charset", err.Rune)
}

// TokenError indicates a malformed or unknown brace token.
type TokenError struct {
	Token string
}

func (err TokenError) Error() string {
	return fmt.Sprintf("invalid token %q", err.Token)
}

// Decode converts encoded bytes, without a terminator, to text.
func Decode(b []byte) (string, error) {
	s, err := DW2.NewDecoder().Bytes(b)
	return string(s), err
}

// Encode converts text to encoded bytes, without a terminator.
func Encode(s string) ([]byte, error) {
	return DW2.NewEncoder().Bytes([]byte(s))
}

// Span returns the length of the string at the start of b, not counting the
// terminator, and whether a terminator was found. A two-byte code is never
// split, so 0xF0 0xFF is a word code rather than a terminator. When b ends
// in the middle of a two-byte code, n is the offset of the prefix byte.
func Span(b []byte) (n int, terminated bool) {
	for n < len(b) {
		switch b[n] {
		case Terminator:
			return n, true
		case wordPrefix:
			if n+1 >= len(b) {
				return n, false
			}
			n += 2
		default:
			n++
		}
	}
	return n, false
}

// Valid returns whether b is a complete string without a terminator.
func Valid(b []byte) bool {
	n, terminated := Span(b)
	return !terminated && n == len(b)
}

////////////////////////////////////////////////////////////////

// render returns the text for one code.
func render(code uint16) string {
	if code > 0xFF {
		if w, ok := words[code]; ok {
			return w
		}
		return fmt.Sprintf("{%04X}", code)
	}
	if g, ok := glyphs[code]; ok {
		return g
	}
	if name, ok := controls[code]; ok {
		return "{" + name + "}"
	}
	return fmt.Sprintf("{%02X}", code)
}

// lookupToken returns the code for the inside of a brace token.
func lookupToken(token string) (uint16, bool) {
	if code, ok := tokenCodes[token]; ok {
		return code, true
	}
	switch len(token) {
	case 2:
		v, err := strconv.ParseUint(token, 16, 8)
		if err != nil || v == Terminator || v == wordPrefix {
			return 0, false
		}
		return uint16(v), true
	case 4:
		v, err := strconv.ParseUint(token, 16, 16)
		if err != nil || v>>8 != wordPrefix {
			return 0, false
		}
		return uint16(v), true
	}
	return 0, false
}

type decoder struct{ transform.NopResetter }

func (decoder) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	for nSrc < len(src) {
		code, size := uint16(src[nSrc]), 1
		if src[nSrc] == wordPrefix {
			if nSrc+1 >= len(src) {
				if !atEOF {
					return nDst, nSrc, transform.ErrShortSrc
				}
				return nDst, nSrc, TokenError{Token: "F0"}
			}
			code, size = wordPrefix<<8|uint16(src[nSrc+1]), 2
		}
		s := render(code)
		if nDst+len(s) > len(dst) {
			return nDst, nSrc, transform.ErrShortDst
		}
		nDst += copy(dst[nDst:], s)
		nSrc += size
	}
	return nDst, nSrc, nil
}

type encoder struct{ transform.NopResetter }

func (encoder) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	for nSrc < len(src) {
		var code uint16
		var size int
		if src[nSrc] == '{' {
			end := bytes.IndexByte(src[nSrc:], '}')
			if end < 0 {
				if !atEOF && len(src)-nSrc < maxToken {
					return nDst, nSrc, transform.ErrShortSrc
				}
				return nDst, nSrc, TokenError{Token: string(src[nSrc:])}
			}
			token := string(src[nSrc+1 : nSrc+end])
			var ok bool
			if code, ok = lookupToken(token); !ok {
				return nDst, nSrc, TokenError{Token: token}
			}
			size = end + 1
		} else {
			r, n := utf8.DecodeRune(src[nSrc:])
			if r == utf8.RuneError && n <= 1 {
				if !atEOF && !utf8.FullRune(src[nSrc:]) {
					return nDst, nSrc, transform.ErrShortSrc
				}
				return nDst, nSrc, encoding.ErrInvalidUTF8
			}
			c, ok := runeCodes[r]
			if !ok {
				return nDst, nSrc, RepertoireError{Rune: r}
			}
			code, size = c, n
		}
		if code > 0xFF {
			if nDst+2 > len(dst) {
				return nDst, nSrc, transform.ErrShortDst
			}
			dst[nDst] = byte(code >> 8)
			dst[nDst+1] = byte(code)
			nDst += 2
		} else {
			if nDst+1 > len(dst) {
				return nDst, nSrc, transform.ErrShortDst
			}
			dst[nDst] = byte(code)
			nDst++
		}
		nSrc += size
	}
	return nDst, nSrc, nil
}
