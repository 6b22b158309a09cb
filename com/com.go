/*
The package com carries primitives between the responder and the MAP module. Each primitive travels as one
frame over an io.ReadWriter, usually a TCP connection to the signaling gateway or a serial port.
*/
package com

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/ftl/map-responder/primitive"
	"github.com/ftl/map-responder/tlv"
)

const readQueueSize = 16

var ErrClosed = errors.New("com: link closed")

// Tracer is notified about every primitive that passes the link.
type Tracer interface {
	Received(in primitive.Inbound)
	Sent(out primitive.Outbound)
}

// NewWithTrace creates a new Link that traces all primitives.
func NewWithTrace(device io.ReadWriter, tracer Tracer) *Link {
	return newLink(device, tracer)
}

// New creates a new Link using the given io.ReadWriter to exchange primitives with the MAP module.
func New(device io.ReadWriter) *Link {
	return newLink(device, nil)
}

func newLink(device io.ReadWriter, tracer Tracer) *Link {
	result := &Link{
		device: device,
		closed: make(chan struct{}),
		tracer: tracer,
	}
	result.primitives = result.readLoop(device)
	return result
}

// Link exchanges primitives with the MAP module.
type Link struct {
	device     io.ReadWriter
	primitives <-chan primitive.Inbound
	closed     chan struct{}
	tracer     Tracer

	writeLock sync.Mutex
	writeBuf  []byte

	errLock sync.Mutex
	err     error
}

func (l *Link) readLoop(r io.Reader) <-chan primitive.Inbound {
	primitives := make(chan primitive.Inbound, readQueueSize)
	go func() {
		defer close(l.closed)
		defer close(primitives)
		for {
			in, err := ReadFrame(r)
			if err != nil {
				if !errors.Is(err, io.EOF) {
					l.setErr(err)
				}
				return
			}
			if l.tracer != nil {
				l.tracer.Received(in)
			}
			primitives <- in
		}
	}()
	return primitives
}

func (l *Link) setErr(err error) {
	l.errLock.Lock()
	defer l.errLock.Unlock()
	l.err = err
}

// Err returns the error that ended the read loop, if the device did not simply reach its end.
func (l *Link) Err() error {
	l.errLock.Lock()
	defer l.errLock.Unlock()
	return l.err
}

// Closed reports whether the device has ended.
func (l *Link) Closed() bool {
	select {
	case <-l.closed:
		return true
	default:
		return false
	}
}

// Receive returns the next primitive. Primitives already read are still delivered after the device
// ended, then Receive returns ErrClosed.
func (l *Link) Receive(ctx context.Context) (primitive.Inbound, error) {
	select {
	case in, valid := <-l.primitives:
		if !valid {
			if err := l.Err(); err != nil {
				return primitive.Inbound{}, fmt.Errorf("%w: %w", ErrClosed, err)
			}
			return primitive.Inbound{}, ErrClosed
		}
		return in, nil
	case <-ctx.Done():
		return primitive.Inbound{}, ctx.Err()
	}
}

// Send writes the given primitive as one frame. On success the parameter area is handed back to the
// tlv pool; on failure it remains with the caller.
func (l *Link) Send(ctx context.Context, out primitive.Outbound) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if l.Closed() {
		return ErrClosed
	}

	l.writeLock.Lock()
	defer l.writeLock.Unlock()

	var err error
	l.writeBuf, err = AppendFrame(l.writeBuf[:0], out)
	if err != nil {
		return err
	}
	if _, err := l.device.Write(l.writeBuf); err != nil {
		return fmt.Errorf("com: cannot send %s for dialogue %s: %w", out.Type, out.DialogueID, err)
	}

	if l.tracer != nil {
		l.tracer.Sent(out)
	}
	tlv.Release(out.Params)
	return nil
}
