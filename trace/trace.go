// Package trace writes a one-line hex dump of every primitive exchanged with the MAP module.
package trace

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/ftl/map-responder/primitive"
)

// MaxParamLen limits the dumped part of a parameter area.
const MaxParamLen = 320

// Prefixes of received and sent primitives.
const (
	RxPrefix = "MTR Rx:"
	TxPrefix = "MTR Tx:"
)

// Tracer writes trace lines to a writer while it is enabled.
type Tracer struct {
	mu      sync.Mutex
	out     io.Writer
	enabled atomic.Bool
}

// New returns a tracer that writes to the given writer.
func New(out io.Writer, enabled bool) *Tracer {
	result := &Tracer{out: out}
	result.enabled.Store(enabled)
	return result
}

// SetEnabled switches the trace on or off.
func (t *Tracer) SetEnabled(enabled bool) {
	t.enabled.Store(enabled)
}

// Enabled reports whether the trace is on.
func (t *Tracer) Enabled() bool {
	return t.enabled.Load()
}

// Received traces a primitive received from the MAP module.
func (t *Tracer) Received(in primitive.Inbound) {
	t.write(RxPrefix, in.Instance, in.Type, in.DialogueID, in.Src, in.Dst, in.Params)
}

// Sent traces a primitive sent to the MAP module.
func (t *Tracer) Sent(out primitive.Outbound) {
	t.write(TxPrefix, out.Instance, out.Type, out.DialogueID, out.Src, out.Dst, out.Params)
}

func (t *Tracer) write(prefix string, instance primitive.Instance, messageType primitive.MessageType, id primitive.DialogueID, src, dst primitive.ModuleID, params []byte) {
	if !t.Enabled() {
		return
	}
	line := Line(prefix, instance, messageType, id, src, dst, params)

	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintln(t.out, line)
}

// Line formats one trace line:
//
//	<prefix> I<instance> M t<type> i<dialogue id> f<src> d<dst> s00 p<params>
//
// The parameter area is dumped as upper case hex, at most MaxParamLen bytes. The status is always 00.
func Line(prefix string, instance primitive.Instance, messageType primitive.MessageType, id primitive.DialogueID, src, dst primitive.ModuleID, params []byte) string {
	result := fmt.Sprintf("%s I%04x M t%04x i%04x f%02x d%02x s00", prefix, uint16(instance), uint16(messageType), uint16(id), byte(src), byte(dst))
	if len(params) == 0 {
		return result
	}
	if len(params) > MaxParamLen {
		params = params[:MaxParamLen]
	}
	return result + " p" + primitive.BinaryToHex(params)
}
