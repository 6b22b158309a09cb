package dialogue

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/looplab/fsm"

	"github.com/ftl/map-responder/primitive"
)

var (
	ErrOutgoingDialogue  = errors.New("dialogue: id does not belong to an inbound dialogue")
	ErrOutOfRange        = errors.New("dialogue: id beyond table capacity")
	ErrInvalidCapacity   = errors.New("dialogue: invalid table capacity")
	ErrInvalidTransition = errors.New("dialogue: invalid transition")
)

const (
	// MaxCapacity is the number of dialogues addressable by the 15 bit index of a dialogue id.
	MaxCapacity = 0x8000

	// MaxApplicationContextLen is the longest application context a dialogue can hold.
	MaxApplicationContextLen = 32

	// MaxSubscriberLen is the longest subscriber number a dialogue can hold.
	MaxSubscriberLen = 20
)

// State of a dialogue.
type State string

// All dialogue states.
const (
	Null                       State = "null"
	WaitingForServicePrimitive State = "wait-service"
	WaitingForDelimiter        State = "wait-delimiter"
)

// Event moves a dialogue from one state to the next.
type Event string

// All dialogue events. An empty event means that the primitive did not change the dialogue.
const (
	Open     Event = "open"
	Service  Event = "service"
	Respond  Event = "respond"
	Continue Event = "continue"
	Release  Event = "release"
	Abort    Event = "abort"
)

var transitions = fsm.Events{
	{Name: string(Open), Src: []string{string(Null)}, Dst: string(WaitingForServicePrimitive)},
	{Name: string(Service), Src: []string{string(WaitingForServicePrimitive)}, Dst: string(WaitingForDelimiter)},
	{Name: string(Respond), Src: []string{string(WaitingForDelimiter)}, Dst: string(Null)},
	{Name: string(Continue), Src: []string{string(WaitingForDelimiter)}, Dst: string(WaitingForServicePrimitive)},
	{Name: string(Release), Src: []string{string(WaitingForServicePrimitive)}, Dst: string(Null)},
	{Name: string(Abort), Src: []string{string(Null), string(WaitingForServicePrimitive), string(WaitingForDelimiter)}, Dst: string(Null)},
}

// Record holds everything the responder knows about one dialogue. Records are allocated once with
// the table and reused. Only the machine changes a record, while holding its lock.
type Record struct {
	mu    sync.Mutex
	state *fsm.FSM

	peer               primitive.Instance
	applicationContext [MaxApplicationContextLen]byte
	acLen              int
	terminationMode    TerminationMode
	pending            primitive.ServiceType
	invokeID           byte
	subscriber         [MaxSubscriberLen]byte
	subscriberLen      int
}

func (r *Record) init() {
	r.state = fsm.NewFSM(
		string(Null),
		transitions,
		fsm.Callbacks{
			"enter_" + string(Null): func(_ context.Context, _ *fsm.Event) {
				r.clear()
			},
		},
	)
	r.clear()
}

func (r *Record) clear() {
	r.peer = 0
	r.acLen = 0
	r.terminationMode = Auto
	r.pending = 0
	r.invokeID = 0
	r.subscriberLen = 0
}

func (r *Record) current() State {
	return State(r.state.Current())
}

func (r *Record) fire(ctx context.Context, event Event) error {
	err := r.state.Event(ctx, string(event))
	var noTransition fsm.NoTransitionError
	if err == nil || errors.As(err, &noTransition) {
		return nil
	}
	return fmt.Errorf("%w: %s in state %s: %w", ErrInvalidTransition, event, r.current(), err)
}

func (r *Record) reset() {
	r.state.SetState(string(Null))
	r.clear()
}

// Snapshot is a copy of the contents of a record.
type Snapshot struct {
	State              State
	Peer               primitive.Instance
	ApplicationContext []byte
	TerminationMode    TerminationMode
	Pending            primitive.ServiceType
	InvokeID           byte
	Subscriber         []byte
}

func (r *Record) snapshot() Snapshot {
	return Snapshot{
		State:              r.current(),
		Peer:               r.peer,
		ApplicationContext: append([]byte(nil), r.applicationContext[:r.acLen]...),
		TerminationMode:    r.terminationMode,
		Pending:            r.pending,
		InvokeID:           r.invokeID,
		Subscriber:         append([]byte(nil), r.subscriber[:r.subscriberLen]...),
	}
}

// Table is the fixed set of dialogue records, indexed by the index of the dialogue id.
type Table struct {
	records []Record
}

// NewTable allocates a table with the given number of records, all in state Null.
func NewTable(capacity int) (*Table, error) {
	if capacity < 1 || capacity > MaxCapacity {
		return nil, fmt.Errorf("%w: %d, must be 1..%d", ErrInvalidCapacity, capacity, MaxCapacity)
	}
	result := &Table{records: make([]Record, capacity)}
	for i := range result.records {
		result.records[i].init()
	}
	return result, nil
}

// Capacity returns the number of records.
func (t *Table) Capacity() int {
	return len(t.records)
}

// Lookup returns the record of the given dialogue.
func (t *Table) Lookup(id primitive.DialogueID) (*Record, error) {
	if !id.Inbound() {
		return nil, fmt.Errorf("%w: %s", ErrOutgoingDialogue, id)
	}
	index := id.Index()
	if index >= len(t.records) {
		return nil, fmt.Errorf("%w: %s, capacity %d", ErrOutOfRange, id, len(t.records))
	}
	return &t.records[index], nil
}

// Inspect returns a copy of the record of the given dialogue.
func (t *Table) Inspect(id primitive.DialogueID) (Snapshot, error) {
	record, err := t.Lookup(id)
	if err != nil {
		return Snapshot{}, err
	}
	record.mu.Lock()
	defer record.mu.Unlock()
	return record.snapshot(), nil
}

// Reset puts all records back into state Null.
func (t *Table) Reset() {
	for i := range t.records {
		record := &t.records[i]
		record.mu.Lock()
		record.reset()
		record.mu.Unlock()
	}
}

// Active returns the number of records that are not in state Null.
func (t *Table) Active() int {
	result := 0
	for i := range t.records {
		record := &t.records[i]
		record.mu.Lock()
		if record.current() != Null {
			result++
		}
		record.mu.Unlock()
	}
	return result
}
