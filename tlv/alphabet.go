package tlv

import (
	"errors"
	"fmt"
)

var ErrAlphabetInconsistent = errors.New("tlv: character count does not match octet length")

// defaultAlphabet maps the 7-bit default alphabet to ASCII. Characters without an ASCII
// counterpart are replaced by their base letter or by '?'. The escape code 0x1b becomes a space.
const defaultAlphabet = "" +
	"@?$?eeuioC\nOo\rAa" + // 0x00
	"?_????????? AasE" + // 0x10
	" !\"#?%&'()*+,-./" + // 0x20
	"0123456789:;<=>?" + // 0x30
	"!ABCDEFGHIJKLMNO" + // 0x40
	"PQRSTUVWXYZAONU?" + // 0x50
	"?abcdefghijklmno" + // 0x60
	"pqrstuvwxyzaonua" // 0x70

const unknownSeptet = 0x3f // '?'

var asciiToDefaultAlphabet = func() [128]byte {
	var result [128]byte
	for i := range result {
		result[i] = unknownSeptet
	}
	for septet := len(defaultAlphabet) - 1; septet >= 0; septet-- {
		c := defaultAlphabet[septet]
		if c == '?' && septet != unknownSeptet {
			continue
		}
		result[c] = byte(septet)
	}
	for c := 0x20; c < 0x7b; c++ {
		if defaultAlphabet[c] == byte(c) {
			result[c] = byte(c)
		}
	}
	return result
}()

// UnpackDefaultAlphabet unpacks charCount septets from the first octetLen bytes of src into dst
// as ASCII text followed by a terminating NUL. It returns the number of bytes written including
// the NUL, or 0 if the text does not fit into dst or if charCount is not consistent with
// octetLen.
func UnpackDefaultAlphabet(dst, src []byte, octetLen, charCount int) int {
	if octetLen < 0 || charCount < 0 || octetLen > len(src) {
		return 0
	}
	if octetLen*8 > (len(dst)+1)*7 {
		return 0
	}
	if charCount*7 > octetLen*8 || charCount*7 <= (octetLen-1)*8 {
		return 0
	}
	if charCount+1 > len(dst) {
		return 0
	}

	for i := 0; i < charCount; i++ {
		dst[i] = defaultAlphabet[septetAt(src, i*7)]
	}
	dst[charCount] = 0
	return charCount + 1
}

// septetAt extracts the 7 bits starting at the given bit offset, least significant bit first.
func septetAt(src []byte, bitOffset int) byte {
	index := bitOffset / 8
	shift := uint(bitOffset % 8)
	result := src[index] >> shift
	if shift > 1 {
		result |= src[index+1] << (8 - shift)
	}
	return result & 0x7f
}

// DecodeDefaultAlphabet returns the text of charCount septets packed into src.
func DecodeDefaultAlphabet(src []byte, charCount int) (string, error) {
	dst := make([]byte, charCount+1)
	n := UnpackDefaultAlphabet(dst, src, len(src), charCount)
	if n == 0 {
		return "", fmt.Errorf("%w: %d characters in %d octets", ErrAlphabetInconsistent, charCount, len(src))
	}
	return string(dst[:n-1]), nil
}

// PackDefaultAlphabet packs the given ASCII text into septets. It returns the packed octets and
// the number of characters. Characters that have no representation in the default alphabet are
// packed as '?'.
func PackDefaultAlphabet(text string) ([]byte, int) {
	charCount := len(text)
	result := make([]byte, (charCount*7+7)/8)
	for i := 0; i < charCount; i++ {
		septet := byte(unknownSeptet)
		if c := text[i]; c < 0x80 {
			septet = asciiToDefaultAlphabet[c]
		}
		bitOffset := i * 7
		index := bitOffset / 8
		shift := uint(bitOffset % 8)
		result[index] |= septet << shift
		if shift > 1 {
			result[index+1] |= septet >> (8 - shift)
		}
	}
	return result, charCount
}
