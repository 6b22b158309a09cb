package tlv

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidDigit = errors.New("tlv: invalid semi-octet digit")

const (
	fillerNibble = 0x0f
	digitChars   = "0123456789*#abc"
)

// EncodeDigits packs a digit string into semi-octets, first digit in the low nibble. An odd
// number of digits leaves 0xF in the last high nibble.
func EncodeDigits(digits string) ([]byte, error) {
	result := make([]byte, (len(digits)+1)/2)
	for i := 0; i < len(digits); i++ {
		nibble := strings.IndexByte(digitChars, digits[i])
		if nibble < 0 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidDigit, digits[i])
		}
		if i%2 == 0 {
			result[i/2] = byte(nibble)
		} else {
			result[i/2] |= byte(nibble) << 4
		}
	}
	if len(digits)%2 == 1 {
		result[len(result)-1] |= fillerNibble << 4
	}
	return result, nil
}

// DecodeDigits unpacks semi-octets into a digit string. A filler nibble is only accepted as
// the last high nibble.
func DecodeDigits(octets []byte) (string, error) {
	var result strings.Builder
	result.Grow(len(octets) * 2)
	for i, b := range octets {
		low, high := b&0x0f, b>>4
		if low == fillerNibble {
			return "", fmt.Errorf("%w: filler in low nibble of octet %d", ErrInvalidDigit, i)
		}
		result.WriteByte(digitChars[low])
		if high == fillerNibble {
			if i != len(octets)-1 {
				return "", fmt.Errorf("%w: filler in octet %d", ErrInvalidDigit, i)
			}
			break
		}
		result.WriteByte(digitChars[high])
	}
	return result.String(), nil
}

// LastDigit returns the value of the last digit of the given semi-octets: the low nibble of the
// last octet if its high nibble is the filler, otherwise the high nibble.
func LastDigit(octets []byte) (byte, bool) {
	if len(octets) == 0 {
		return 0, false
	}
	last := octets[len(octets)-1]
	if last>>4 == fillerNibble {
		return last & 0x0f, true
	}
	return last >> 4, true
}
