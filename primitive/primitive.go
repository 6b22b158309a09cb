package primitive

import (
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
)

// MessageType identifies the kind of message exchanged with the MAP module.
type MessageType uint16

// All message types relevant for the responder.
const (
	ServiceRequest     MessageType = 0xc7e0
	ServiceIndication  MessageType = 0x87e1
	DialogueRequest    MessageType = 0xc7e2
	DialogueIndication MessageType = 0x87e3
)

func (t MessageType) String() string {
	switch t {
	case ServiceRequest:
		return "srv-req"
	case ServiceIndication:
		return "srv-ind"
	case DialogueRequest:
		return "dlg-req"
	case DialogueIndication:
		return "dlg-ind"
	default:
		return fmt.Sprintf("0x%04x", uint16(t))
	}
}

// DialogueID identifies a dialogue. The high bit marks dialogues that were opened by the peer,
// the remaining 15 bits are the index into the dialogue table.
type DialogueID uint16

const (
	inboundFlag DialogueID = 0x8000
	indexMask   DialogueID = 0x7fff
)

// InboundDialogue returns the id of the inbound dialogue with the given table index.
func InboundDialogue(index int) DialogueID {
	return inboundFlag | (DialogueID(index) & indexMask)
}

// Inbound reports whether the dialogue was opened by the peer.
func (id DialogueID) Inbound() bool {
	return id&inboundFlag != 0
}

// Index returns the table index of this dialogue.
func (id DialogueID) Index() int {
	return int(id & indexMask)
}

func (id DialogueID) String() string {
	return fmt.Sprintf("%04x", uint16(id))
}

// Instance is the opaque routing handle of the MAP instance that serves a dialogue.
type Instance uint16

// ModuleID addresses a task on the signaling gateway.
type ModuleID byte

// Inbound is one primitive received from the MAP module.
type Inbound struct {
	Type       MessageType
	DialogueID DialogueID
	Instance   Instance
	Src        ModuleID
	Dst        ModuleID
	Params     []byte
}

// Subtype returns the primitive subtype, which is the first byte of the parameter area.
func (p Inbound) Subtype() (byte, bool) {
	if len(p.Params) == 0 {
		return 0, false
	}
	return p.Params[0], true
}

// Outbound is one primitive sent to the MAP module. The parameter area is owned by whoever
// holds the value; see tlv.Release.
type Outbound struct {
	Type       MessageType
	DialogueID DialogueID
	Instance   Instance
	Src        ModuleID
	Dst        ModuleID
	Params     []byte
}

// Subtype returns the primitive subtype, which is the first byte of the parameter area.
func (p Outbound) Subtype() (byte, bool) {
	if len(p.Params) == 0 {
		return 0, false
	}
	return p.Params[0], true
}

var hexSanitizer = regexp.MustCompile(`\s+`)

// HexToBinary converts a hex dump, as written by the trace, into a slice of bytes.
func HexToBinary(s string) ([]byte, error) {
	sanitized := hexSanitizer.ReplaceAllString(s, "")
	return hex.DecodeString(sanitized)
}

// BinaryToHex converts a slice of bytes into the hex representation used in traces.
func BinaryToHex(b []byte) string {
	return strings.ToUpper(hex.EncodeToString(b))
}
