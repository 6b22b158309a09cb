/*
The package dialogue implements the dialogue handling of the responder: a fixed table of dialogue records
and the state machine that answers the primitives of each dialogue.

A dialogue is opened by the peer, carries one or more service indications, each followed by a delimiter,
and ends with a close or an abort:

	null --open--> wait-service --service--> wait-delimiter --respond--> null
	                    ^                          |
	                    +---------continue---------+

Every primitive that does not fit into this sequence aborts the dialogue.
*/
package dialogue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/ftl/map-responder/catalog"
	"github.com/ftl/map-responder/primitive"
	"github.com/ftl/map-responder/sm"
	"github.com/ftl/map-responder/tlv"
)

var ErrUnexpectedMessage = errors.New("dialogue: unexpected message type")

// DefaultCapacity is the table capacity used when the configuration does not set one.
const DefaultCapacity = 1024

// Config of a Machine.
type Config struct {
	LocalModule     primitive.ModuleID
	PeerModule      primitive.ModuleID
	Trace           bool
	TerminationMode TerminationMode
	Dialogues       int
}

// Outcome describes what a primitive did to its dialogue.
type Outcome struct {
	DialogueID primitive.DialogueID
	Event      Event
	From       State
	To         State
	Emissions  []primitive.Outbound
}

// Machine drives the dialogues in its table.
type Machine struct {
	table   *Table
	catalog *catalog.Catalog

	localModule primitive.ModuleID
	peerModule  primitive.ModuleID

	terminationMode atomic.Int32
	trace           atomic.Bool

	logger zerolog.Logger
}

// NewMachine returns a machine with a fresh dialogue table. If no catalog is given, the default
// catalog is used.
func NewMachine(config Config, responses *catalog.Catalog) (*Machine, error) {
	capacity := config.Dialogues
	if capacity == 0 {
		capacity = DefaultCapacity
	}
	table, err := NewTable(capacity)
	if err != nil {
		return nil, err
	}
	if responses == nil {
		responses = catalog.Default()
	}

	result := &Machine{
		table:       table,
		catalog:     responses,
		localModule: config.LocalModule,
		peerModule:  config.PeerModule,
		logger:      zerolog.Nop(),
	}
	result.terminationMode.Store(int32(config.TerminationMode))
	result.trace.Store(config.Trace)
	return result, nil
}

// WithLogger sets the logger of this machine.
func (m *Machine) WithLogger(logger zerolog.Logger) *Machine {
	m.logger = logger
	return m
}

// Table returns the dialogue table of this machine.
func (m *Machine) Table() *Table {
	return m.table
}

// SetTerminationMode sets the termination mode for dialogues opened from now on.
func (m *Machine) SetTerminationMode(mode TerminationMode) {
	m.terminationMode.Store(int32(mode))
}

// TerminationMode returns the termination mode for newly opened dialogues.
func (m *Machine) TerminationMode() TerminationMode {
	return TerminationMode(m.terminationMode.Load())
}

// SetTrace switches the tracing of dialogue contents on or off.
func (m *Machine) SetTrace(enabled bool) {
	m.trace.Store(enabled)
}

// Trace reports whether dialogue contents are traced.
func (m *Machine) Trace() bool {
	return m.trace.Load()
}

// Handle processes one primitive received from the MAP module and returns the primitives to send in
// response. Primitives that do not fit into their dialogue abort it; this is part of the outcome and
// not an error. Handle only fails if the primitive cannot be attributed to a dialogue.
//
// The parameter streams of the emissions come from the tlv pool; whoever sends them releases them.
func (m *Machine) Handle(ctx context.Context, in primitive.Inbound) (Outcome, error) {
	if in.Type != primitive.DialogueIndication && in.Type != primitive.ServiceIndication {
		return Outcome{}, fmt.Errorf("%w: %s", ErrUnexpectedMessage, in.Type)
	}
	record, err := m.table.Lookup(in.DialogueID)
	if err != nil {
		return Outcome{}, err
	}

	record.mu.Lock()
	defer record.mu.Unlock()

	result := Outcome{
		DialogueID: in.DialogueID,
		From:       record.current(),
	}
	logger := m.logger.With().Str("dlg", in.DialogueID.String()).Str("state", string(result.From)).Logger()

	switch result.From {
	case Null:
		result.Event, result.Emissions = m.handleNull(logger, record, in)
	case WaitingForServicePrimitive:
		result.Event, result.Emissions = m.handleWaitingForService(logger, record, in)
	case WaitingForDelimiter:
		result.Event, result.Emissions = m.handleWaitingForDelimiter(logger, record, in)
	}

	if result.Event == Abort {
		peer := record.peer
		if result.From == Null {
			peer = in.Instance
		}
		result.Emissions = append(result.Emissions, m.request(in.DialogueID, peer, userAbortRequest(primitive.ProcedureError)))
		logger.Debug().Str("type", in.Type.String()).Str("subtype", subtypeName(in)).Str("params", parameterTags(in.Params)).Msg("unexpected primitive, aborting dialogue")
	}

	if result.Event != "" {
		err = record.fire(ctx, result.Event)
		if err != nil {
			for _, emission := range result.Emissions {
				tlv.Release(emission.Params)
			}
			result.Emissions = nil
			return result, err
		}
	}
	result.To = record.current()

	if result.Event != "" {
		logger.Debug().Str("event", string(result.Event)).Str("next", string(result.To)).Int("emissions", len(result.Emissions)).Msg("transition")
	}
	return result, nil
}

func (m *Machine) handleNull(logger zerolog.Logger, record *Record, in primitive.Inbound) (Event, []primitive.Outbound) {
	subtype, _ := in.Subtype()
	if in.Type != primitive.DialogueIndication || primitive.DialogueType(subtype) != primitive.OpenIndication {
		return Abort, nil
	}

	n, err := tlv.Get(in.Params, primitive.TagApplicationContext, record.applicationContext[:])
	if err != nil || n == 0 {
		logger.Debug().Err(err).Msg("open indication without usable application context")
		return Abort, nil
	}
	record.acLen = n
	record.peer = in.Instance
	record.terminationMode = m.TerminationMode()

	if m.Trace() {
		logger.Info().Uint16("instance", uint16(in.Instance)).Str("ac", primitive.BinaryToHex(record.applicationContext[:n])).Msg("open indication")
	}
	return Open, []primitive.Outbound{
		m.request(in.DialogueID, record.peer, openResponse(primitive.DialogueAccepted, record.applicationContext[:n])),
	}
}

func (m *Machine) handleWaitingForService(logger zerolog.Logger, record *Record, in primitive.Inbound) (Event, []primitive.Outbound) {
	subtype, _ := in.Subtype()
	switch in.Type {
	case primitive.ServiceIndication:
		service := primitive.ServiceType(subtype)
		if !m.catalog.Recognized(service) {
			return Abort, nil
		}
		invokeID, err := tlv.InvokeID(in.Params)
		if err != nil {
			logger.Warn().Str("service", service.String()).Err(err).Msg("no invoke id included in the primitive")
			return "", nil
		}
		record.pending = service
		record.invokeID = invokeID
		record.subscriberLen = 0

		if service == primitive.AnyTimeInterrogationIndication {
			n, err := tlv.Get(in.Params, primitive.TagMSISDN, record.subscriber[:])
			if err != nil {
				n = 0
			}
			record.subscriberLen = n
		}

		if m.Trace() {
			event := logger.Info().Str("service", service.String()).Uint8("invoke", invokeID)
			if service == primitive.ForwardSMIndication || service == primitive.MTForwardSMIndication {
				event = event.Str("text", shortMessageText(in.Params))
			}
			event.Msg("service indication")
		}
		return Service, nil

	case primitive.DialogueIndication:
		switch primitive.DialogueType(subtype) {
		case primitive.NoticeIndication:
			logger.Debug().Msg("notice indication, closing dialogue")
			return Release, []primitive.Outbound{
				m.request(in.DialogueID, record.peer, closeRequest(primitive.NormalRelease)),
			}
		case primitive.CloseIndication:
			return Release, nil
		}
	}
	return Abort, nil
}

func (m *Machine) handleWaitingForDelimiter(logger zerolog.Logger, record *Record, in primitive.Inbound) (Event, []primitive.Outbound) {
	subtype, _ := in.Subtype()
	if in.Type != primitive.DialogueIndication || primitive.DialogueType(subtype) != primitive.DelimiterIndication {
		return Abort, nil
	}

	response, continuation, err := m.catalog.Build(record.pending, record.invokeID, record.subscriber[:record.subscriberLen])
	if err != nil {
		logger.Error().Err(err).Msg("cannot build response")
		return Abort, nil
	}
	emissions := []primitive.Outbound{
		m.service(in.DialogueID, record.peer, response),
	}

	if continuation == catalog.ByTerminationMode {
		if record.terminationMode.ClosesAfterNotify() {
			continuation = catalog.Close
		} else {
			continuation = catalog.Delimit
		}
	}

	switch continuation {
	case catalog.Delimit:
		return Continue, append(emissions, m.request(in.DialogueID, record.peer, delimiterRequest()))
	default:
		return Respond, append(emissions, m.request(in.DialogueID, record.peer, closeRequest(primitive.NormalRelease)))
	}
}

func subtypeName(in primitive.Inbound) string {
	subtype, ok := in.Subtype()
	switch {
	case !ok:
		return "none"
	case in.Type == primitive.DialogueIndication:
		return primitive.DialogueType(subtype).IndicationName()
	default:
		return primitive.ServiceType(subtype).String()
	}
}

// parameterTags lists the tags of all parameters in the stream, e.g. "0e,19".
func parameterTags(stream []byte) string {
	params, err := tlv.Params(stream)
	if err != nil {
		return err.Error()
	}
	tags := make([]string, len(params))
	for i, p := range params {
		tags[i] = fmt.Sprintf("%02x", byte(p.Tag))
	}
	return strings.Join(tags, ",")
}

func shortMessageText(params []byte) string {
	tpdu, err := tlv.Find(params, primitive.TagSMRPUI)
	if err != nil {
		return sm.DecodingErrorText
	}
	return sm.Render(tpdu)
}
