package sm

import (
	"errors"
	"fmt"
	"time"

	"github.com/ftl/map-responder/tlv"
)

var (
	ErrTooShort        = errors.New("sm: TPDU too short")
	ErrInvalidAddress  = errors.New("sm: invalid originating address")
	ErrInvalidUserData = errors.New("sm: user data length does not match the TPDU")
)

// DecodingErrorText replaces the text of a short message that cannot be decoded.
const DecodingErrorText = "(error decoding)"

// fixedHeaderLength is the length of an SMS-DELIVER TPDU without the OA digits: first octet, OA length,
// OA type, PID, DCS, SCTS and UDL.
const fixedHeaderLength = 13

// typeOfNumberAlphanumeric according to [TL] 9.1.2.5
const typeOfNumberAlphanumeric = 0x50

// Deliver represents the contents of an SMS-DELIVER TPDU according to [TL] 9.2.2.1.
type Deliver struct {
	FirstOctet     byte
	Originator     Address
	ProtocolID     byte
	DataCoding     DataCodingScheme
	Timestamp      time.Time
	UserDataLength int
	UserData       []byte
}

// Address represents the TP-OA parameter according to [TL] 9.1.2.5.
type Address struct {
	Type   byte
	Digits string
}

func (a Address) String() string {
	if a.Type&0x70 == 0x10 {
		return "+" + a.Digits
	}
	return a.Digits
}

// ParseDeliver parses an SMS-DELIVER TPDU from the given bytes. An invalid TP-SCTS leaves the
// timestamp zero.
func ParseDeliver(bytes []byte) (Deliver, error) {
	if len(bytes) < fixedHeaderLength {
		return Deliver{}, fmt.Errorf("%w: %d", ErrTooShort, len(bytes))
	}

	var result Deliver
	result.FirstOctet = bytes[0]
	semiOctets := int(bytes[1])
	digitBytes := semiOctets/2 + semiOctets%2
	headerLength := fixedHeaderLength + digitBytes
	if len(bytes) < headerLength {
		return Deliver{}, fmt.Errorf("%w: %d, header needs %d", ErrTooShort, len(bytes), headerLength)
	}

	var err error
	result.Originator, err = parseAddress(bytes[2], bytes[3:3+digitBytes], semiOctets)
	if err != nil {
		return Deliver{}, err
	}

	i := 3 + digitBytes
	result.ProtocolID = bytes[i]
	result.DataCoding = DataCodingScheme(bytes[i+1])
	// a broken timestamp does not keep the text from being shown
	timestamp, err := DecodeTimestamp(bytes[i+2 : i+9])
	if err == nil {
		result.Timestamp = timestamp
	}
	result.UserDataLength = int(bytes[headerLength-1])
	result.UserData = bytes[headerLength:]

	return result, nil
}

func parseAddress(addressType byte, bytes []byte, semiOctets int) (Address, error) {
	result := Address{Type: addressType}
	if addressType&0x70 == typeOfNumberAlphanumeric {
		text, err := tlv.DecodeDefaultAlphabet(bytes, semiOctets*4/7)
		if err != nil {
			return Address{}, fmt.Errorf("%w: %w", ErrInvalidAddress, err)
		}
		result.Digits = text
		return result, nil
	}

	digits, err := tlv.DecodeDigits(bytes)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %w", ErrInvalidAddress, err)
	}
	if len(digits) > semiOctets {
		digits = digits[:semiOctets]
	}
	result.Digits = digits
	return result, nil
}

// Text decodes the user data of this short message.
func (d Deliver) Text() (string, error) {
	return DecodeUserData(d.DataCoding.Encoding(), d.UserData, d.UserDataLength)
}

// Render returns the text of the short message in the given TPDU or DecodingErrorText if the TPDU
// cannot be decoded.
func Render(bytes []byte) string {
	deliver, err := ParseDeliver(bytes)
	if err != nil {
		return DecodingErrorText
	}
	text, err := deliver.Text()
	if err != nil {
		return DecodingErrorText
	}
	return text
}

// DecodeTimestamp decodes the TP-SCTS parameter according to [TL] 9.2.3.11.
func DecodeTimestamp(bytes []byte) (time.Time, error) {
	if len(bytes) != 7 {
		return time.Time{}, fmt.Errorf("a timestamp must be 7 bytes long")
	}

	fields := make([]int, 6)
	for i := range fields {
		low, high := int(bytes[i]&0x0F), int(bytes[i]>>4)
		if low > 9 || high > 9 {
			return time.Time{}, fmt.Errorf("invalid timestamp digit in octet %d: 0x%02x", i, bytes[i])
		}
		fields[i] = low*10 + high
	}

	zone := bytes[6]
	quarters := int(zone&0x07)*10 + int(zone>>4)
	if zone&0x08 != 0 {
		quarters = -quarters
	}
	location := time.FixedZone("", quarters*15*60)

	return time.Date(2000+fields[0], time.Month(fields[1]), fields[2], fields[3], fields[4], fields[5], 0, location), nil
}
