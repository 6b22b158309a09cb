package catalog

import (
	"github.com/bassosimone/runtimex"

	"github.com/ftl/map-responder/tlv"
)

// USSDDefaultAlphabet is the USSD data coding scheme for text in the 7-bit default alphabet, language unspecified.
const USSDDefaultAlphabet byte = 0x0F

// Demonstration parameter values. These bytes are what conformance tests expect on the wire.
var (
	// SGSNAddress is 193.195.185.113 as address type IPv4.
	SGSNAddress = []byte{0x04, 0xc1, 0xc3, 0xb9, 0x71}

	// IMSI is 60802678000454.
	IMSI = []byte{0x06, 0x08, 0x62, 0x87, 0x00, 0x40, 0x45}

	// MSCNumber is +375290000002, international ISDN.
	MSCNumber = append([]byte{0x91}, runtimex.PanicOnError1(tlv.EncodeDigits("375290000002"))...)

	// MenuUSSD is "XY Telecom\n 1. Balance\n 2. Texts Remaining", 42 characters.
	MenuUSSD = []byte{
		0xd8, 0x2c, 0x88, 0x5a, 0x66, 0x97, 0xc7, 0xef, 0xb6, 0x02, 0x14, 0x73, 0x81,
		0x84, 0x61, 0x76, 0xd8, 0x3d, 0x2e, 0x2b, 0x40, 0x32, 0x17, 0x88, 0x5a, 0xc6,
		0xd3, 0xe7, 0x20, 0x69, 0xb9, 0x1d, 0x4e, 0xbb, 0xd3, 0xee, 0x73,
	}

	// SampleTextUSSD is "This is sample text", 19 characters.
	SampleTextUSSD = []byte{
		0x54, 0x74, 0x7a, 0x0e, 0x4a, 0xcf, 0x41, 0xf3, 0x70, 0x1b, 0xce, 0x2e, 0x83,
		0xe8, 0x65, 0x3c, 0x1d,
	}

	// BalanceUSSD is "Your balance = 350", 18 characters.
	BalanceUSSD = []byte{
		0xd9, 0x77, 0x5d, 0x0e, 0x12, 0x87, 0xd9, 0x61, 0xf7, 0xb8, 0x0c, 0xea, 0x81,
		0x66, 0x35, 0x58,
	}
)

// GeographicalInfoSamples are the locations reported by AnyTime-Interrogation responses.
var GeographicalInfoSamples = [8][8]byte{
	{0x14, 0x10, 0x00, 0x00, 0x80, 0x00, 0x00, 0x14},
	{0x14, 0x20, 0x00, 0x00, 0x70, 0x00, 0x00, 0x14},
	{0x14, 0x30, 0x00, 0x00, 0x60, 0x00, 0x00, 0x14},
	{0x14, 0x40, 0x00, 0x00, 0x50, 0x00, 0x00, 0x14},
	{0x14, 0x50, 0x00, 0x00, 0x40, 0x00, 0x00, 0x14},
	{0x14, 0x60, 0x00, 0x00, 0x30, 0x00, 0x00, 0x14},
	{0x14, 0x70, 0x00, 0x00, 0x20, 0x00, 0x00, 0x14},
	{0x14, 0x80, 0x00, 0x00, 0x10, 0x00, 0x00, 0x14},
}
