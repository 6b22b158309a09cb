// Package catalog holds the canned responses of the responder, one per service indication it answers.
package catalog

import (
	"errors"
	"fmt"

	"github.com/ftl/map-responder/primitive"
	"github.com/ftl/map-responder/tlv"
)

var ErrNoResponse = errors.New("catalog: no response for service primitive")

// Continuation tells how a dialogue continues after its response was sent.
type Continuation int

const (
	// Close ends the dialogue with a close request.
	Close Continuation = iota
	// Delimit sends a delimiter and waits for the next service primitive.
	Delimit
	// ByTerminationMode closes or delimits depending on the termination mode of the dialogue.
	ByTerminationMode
)

func (c Continuation) String() string {
	switch c {
	case Close:
		return "close"
	case Delimit:
		return "delimit"
	case ByTerminationMode:
		return "by-termination-mode"
	default:
		return fmt.Sprintf("continuation-%d", int(c))
	}
}

// ParamsFunc returns the demonstration parameters of a response, without the invoke id.
type ParamsFunc func(subscriber []byte) []tlv.Param

// Entry describes the response to one service indication.
type Entry struct {
	Response     primitive.ServiceType
	Continuation Continuation
	Params       ParamsFunc
}

// Catalog maps service indications to their responses.
type Catalog struct {
	entries map[primitive.ServiceType]Entry
}

// New returns a catalog with the given entries.
func New(entries map[primitive.ServiceType]Entry) *Catalog {
	result := &Catalog{entries: make(map[primitive.ServiceType]Entry, len(entries))}
	for indication, entry := range entries {
		result.entries[indication] = entry
	}
	return result
}

// Default returns the catalog with all service indications the responder answers.
func Default() *Catalog {
	return New(map[primitive.ServiceType]Entry{
		primitive.ForwardSMIndication: {
			Response: primitive.ForwardSMResponse,
		},
		primitive.MTForwardSMIndication: {
			Response: primitive.MTForwardSMResponse,
		},
		primitive.SendIMSIIndication: {
			Response: primitive.SendIMSIResponse,
			Params:   fixed(tlv.Param{Tag: primitive.TagIMSI, Value: IMSI}),
		},
		primitive.SendRoutingInfoForGPRSIndication: {
			Response: primitive.SendRoutingInfoForGPRSResponse,
			Params:   fixed(tlv.Param{Tag: primitive.TagSGSNAddress, Value: SGSNAddress}),
		},
		primitive.SendRoutingInfoForSMIndication: {
			Response: primitive.SendRoutingInfoForSMResponse,
			Params: fixed(
				tlv.Param{Tag: primitive.TagIMSI, Value: IMSI},
				tlv.Param{Tag: primitive.TagMSCNumber, Value: MSCNumber},
			),
		},
		primitive.ProcessUnstructuredSSIndication: {
			Response:     primitive.UnstructuredSSRequest,
			Continuation: Delimit,
			Params:       ussd(MenuUSSD),
		},
		primitive.UnstructuredSSConfirmation: {
			Response: primitive.ProcessUnstructuredSSResponse,
			Params:   ussd(BalanceUSSD),
		},
		primitive.UnstructuredSSIndication: {
			Response:     primitive.UnstructuredSSResponse,
			Continuation: Delimit,
			Params:       ussd(SampleTextUSSD),
		},
		primitive.UnstructuredSSNotifyIndication: {
			Response:     primitive.UnstructuredSSResponse,
			Continuation: ByTerminationMode,
		},
		primitive.AnyTimeInterrogationIndication: {
			Response: primitive.AnyTimeInterrogationResponse,
			Params: func(subscriber []byte) []tlv.Param {
				return []tlv.Param{{Tag: primitive.TagGeographicalInfo, Value: GeographicalInfoSamples[SampleIndex(subscriber)][:]}}
			},
		},
	})
}

func fixed(params ...tlv.Param) ParamsFunc {
	return func([]byte) []tlv.Param {
		return params
	}
}

func ussd(text []byte) ParamsFunc {
	return fixed(
		tlv.Param{Tag: primitive.TagUSSDCoding, Value: []byte{USSDDefaultAlphabet}},
		tlv.Param{Tag: primitive.TagUSSDString, Value: text},
	)
}

// Recognized reports whether the given service indication is answered by this catalog.
func (c *Catalog) Recognized(indication primitive.ServiceType) bool {
	_, ok := c.Lookup(indication)
	return ok
}

// Lookup returns the entry for the given service indication.
func (c *Catalog) Lookup(indication primitive.ServiceType) (Entry, bool) {
	entry, ok := c.entries[indication]
	return entry, ok
}

// Build encodes the response to the given service indication. The invoke id is copied into the
// response, the subscriber number is only used by responses that depend on it. The returned stream
// comes from the tlv pool.
func (c *Catalog) Build(indication primitive.ServiceType, invokeID byte, subscriber []byte) ([]byte, Continuation, error) {
	entry, ok := c.Lookup(indication)
	if !ok {
		return nil, Close, fmt.Errorf("%w: %s", ErrNoResponse, indication)
	}

	params := []tlv.Param{tlv.P(primitive.TagInvokeID, invokeID)}
	if entry.Params != nil {
		params = append(params, entry.Params(subscriber)...)
	}
	return tlv.Encode(byte(entry.Response), params...), entry.Continuation, nil
}

// SampleIndex selects one of the geographical information samples by the last digit of the
// given subscriber number. Without a subscriber number or for digits beyond the sample table,
// the first sample is used.
func SampleIndex(subscriber []byte) int {
	digit, ok := tlv.LastDigit(subscriber)
	if !ok || int(digit) >= len(GeographicalInfoSamples) {
		return 0
	}
	return int(digit)
}
