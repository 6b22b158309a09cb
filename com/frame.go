package com

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/ftl/map-responder/primitive"
	"github.com/ftl/map-responder/tlv"
)

// HeaderLen is the length of the fixed frame header:
//
//	type(2) dialogue id(2) instance(2) src(1) dst(1) param length(2)
//
// All fields are big endian.
const HeaderLen = 10

// MaxParamLen is the largest parameter area a frame can carry.
const MaxParamLen = tlv.MaxStreamLen

var (
	ErrShortHeader   = errors.New("com: short frame header")
	ErrFrameTooLarge = errors.New("com: parameter area too large")
)

// Header is the fixed part of a frame.
type Header struct {
	Type       primitive.MessageType
	DialogueID primitive.DialogueID
	Instance   primitive.Instance
	Src        primitive.ModuleID
	Dst        primitive.ModuleID
	ParamLen   uint16
}

// EncodeHeader writes the header into the first HeaderLen bytes of buf.
func EncodeHeader(buf []byte, h Header) {
	binary.BigEndian.PutUint16(buf[0:2], uint16(h.Type))
	binary.BigEndian.PutUint16(buf[2:4], uint16(h.DialogueID))
	binary.BigEndian.PutUint16(buf[4:6], uint16(h.Instance))
	buf[6] = byte(h.Src)
	buf[7] = byte(h.Dst)
	binary.BigEndian.PutUint16(buf[8:10], h.ParamLen)
}

// DecodeHeader reads a header from exactly HeaderLen bytes.
func DecodeHeader(b []byte) (Header, error) {
	if len(b) != HeaderLen {
		return Header{}, fmt.Errorf("com: invalid header length: %d", len(b))
	}
	return Header{
		Type:       primitive.MessageType(binary.BigEndian.Uint16(b[0:2])),
		DialogueID: primitive.DialogueID(binary.BigEndian.Uint16(b[2:4])),
		Instance:   primitive.Instance(binary.BigEndian.Uint16(b[4:6])),
		Src:        primitive.ModuleID(b[6]),
		Dst:        primitive.ModuleID(b[7]),
		ParamLen:   binary.BigEndian.Uint16(b[8:10]),
	}, nil
}

// ReadFrame reads one primitive from r. io.EOF is only returned if r ends on a frame boundary.
func ReadFrame(r io.Reader) (primitive.Inbound, error) {
	var fixed [HeaderLen]byte
	if _, err := io.ReadFull(r, fixed[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return primitive.Inbound{}, ErrShortHeader
		}
		return primitive.Inbound{}, err
	}

	h, err := DecodeHeader(fixed[:])
	if err != nil {
		return primitive.Inbound{}, err
	}
	if h.ParamLen > MaxParamLen {
		return primitive.Inbound{}, fmt.Errorf("%w: %d", ErrFrameTooLarge, h.ParamLen)
	}

	params := make([]byte, h.ParamLen)
	if _, err := io.ReadFull(r, params); err != nil {
		return primitive.Inbound{}, err
	}

	return primitive.Inbound{
		Type:       h.Type,
		DialogueID: h.DialogueID,
		Instance:   h.Instance,
		Src:        h.Src,
		Dst:        h.Dst,
		Params:     params,
	}, nil
}

// AppendFrame appends the frame of the given primitive to buf.
func AppendFrame(buf []byte, out primitive.Outbound) ([]byte, error) {
	if len(out.Params) > MaxParamLen {
		return buf, fmt.Errorf("%w: %d", ErrFrameTooLarge, len(out.Params))
	}
	var fixed [HeaderLen]byte
	EncodeHeader(fixed[:], Header{
		Type:       out.Type,
		DialogueID: out.DialogueID,
		Instance:   out.Instance,
		Src:        out.Src,
		Dst:        out.Dst,
		ParamLen:   uint16(len(out.Params)),
	})
	buf = append(buf, fixed[:]...)
	return append(buf, out.Params...), nil
}
