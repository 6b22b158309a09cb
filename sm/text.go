package sm

import (
	"fmt"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"github.com/ftl/map-responder/tlv"
)

/* Text related types and functions */

// DataCodingScheme according to [DCS] 4
type DataCodingScheme byte

// TextEncoding of the user data, derived from the data coding scheme
type TextEncoding byte

// All character sets of [DCS] 4
const (
	DefaultAlphabet TextEncoding = iota
	EightBit
	UCS2
)

func (e TextEncoding) String() string {
	switch e {
	case DefaultAlphabet:
		return "default alphabet"
	case EightBit:
		return "8 bit"
	case UCS2:
		return "UCS2"
	default:
		return fmt.Sprintf("encoding %d", byte(e))
	}
}

// TextCodecs contains encoding.Encoding instances for the octet based encodings.
var TextCodecs = map[TextEncoding]encoding.Encoding{
	EightBit: charmap.ISO8859_1,
	UCS2:     unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM),
}

var fallbackCodec encoding.Encoding = charmap.ISO8859_1 // be lenient and use ISO8859-1 as fallback

// Encoding returns the character set of this data coding scheme. Reserved coding groups are treated
// as default alphabet.
func (s DataCodingScheme) Encoding() TextEncoding {
	switch {
	case s&0xC0 == 0x00, s&0xC0 == 0x40: // general data coding, optionally marked for automatic deletion
		switch (s & 0x0C) >> 2 {
		case 1:
			return EightBit
		case 2:
			return UCS2
		default:
			return DefaultAlphabet
		}
	case s&0xF0 == 0xE0: // message waiting indication group, UCS2
		return UCS2
	case s&0xF0 == 0xF0: // data coding/message class
		if s&0x04 != 0 {
			return EightBit
		}
		return DefaultAlphabet
	default:
		return DefaultAlphabet
	}
}

// DecodeUserData decodes the given user data. The length is given in characters for the default alphabet
// and in octets for all other encodings.
func DecodeUserData(textEncoding TextEncoding, bytes []byte, length int) (string, error) {
	if textEncoding == DefaultAlphabet {
		return tlv.DecodeDefaultAlphabet(bytes, length)
	}

	if length > len(bytes) {
		return "", fmt.Errorf("%w: %d octets announced, %d available", ErrInvalidUserData, length, len(bytes))
	}

	var decoder *encoding.Decoder
	codec, ok := TextCodecs[textEncoding]
	if ok {
		decoder = codec.NewDecoder()
	} else {
		decoder = fallbackCodec.NewDecoder()
	}

	utf8, err := decoder.Bytes(bytes[:length])
	return string(utf8), err
}
