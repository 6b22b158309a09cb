package com

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ftl/map-responder/primitive"
	"github.com/ftl/map-responder/tlv"
)

var openIndication = primitive.Inbound{
	Type:       primitive.DialogueIndication,
	DialogueID: 0x8001,
	Instance:   0x0102,
	Src:        0x15,
	Dst:        0x2d,
	Params:     []byte{0x01, 0x0b, 0x02, 0x04, 0x00, 0x00},
}

type recordingTracer struct {
	mu       sync.Mutex
	received []primitive.Inbound
	sent     []primitive.Outbound
}

func (t *recordingTracer) Received(in primitive.Inbound) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.received = append(t.received, in)
}

func (t *recordingTracer) Sent(out primitive.Outbound) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sent = append(t.sent, out)
}

func TestFrameRoundTrip(t *testing.T) {
	frame, err := AppendFrame(nil, primitive.Outbound(openIndication))
	require.NoError(t, err)

	expected, err := primitive.HexToBinary("87e3 8001 0102 15 2d 0006 010b02040000")
	require.NoError(t, err)
	assert.Equal(t, expected, frame)

	actual, err := ReadFrame(bytes.NewReader(frame))
	require.NoError(t, err)
	assert.Equal(t, openIndication, actual)
}

func TestReadFrame_Errors(t *testing.T) {
	_, err := ReadFrame(bytes.NewReader([]byte{0x87, 0xe3, 0x80}))
	assert.ErrorIs(t, err, ErrShortHeader)

	tooLarge, err := primitive.HexToBinary("87e3 8001 0102 15 2d 0141")
	require.NoError(t, err)
	_, err = ReadFrame(bytes.NewReader(tooLarge))
	assert.ErrorIs(t, err, ErrFrameTooLarge)

	_, err = AppendFrame(nil, primitive.Outbound{Params: make([]byte, MaxParamLen+1)})
	assert.ErrorIs(t, err, ErrFrameTooLarge)
}

func TestLink_CloseDevice(t *testing.T) {
	device := NewInMemory()
	link := New(device)

	device.Close()

	require.Eventually(t, link.Closed, time.Second, time.Millisecond)
	_, err := link.Receive(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
	assert.NoError(t, link.Err())
}

func TestLink_Receive(t *testing.T) {
	device := NewInMemory()
	tracer := new(recordingTracer)
	link := NewWithTrace(device, tracer)
	require.NoError(t, device.PreparePrimitive(openIndication))
	delimiter := openIndication
	delimiter.Params = []byte{0x03, 0x00}
	require.NoError(t, device.PreparePrimitive(delimiter))
	device.CloseWhenEmpty(true)

	first, err := link.Receive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, openIndication, first)

	second, err := link.Receive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, delimiter, second)

	_, err = link.Receive(context.Background())
	assert.ErrorIs(t, err, ErrClosed)

	tracer.mu.Lock()
	defer tracer.mu.Unlock()
	assert.Len(t, tracer.received, 2)
}

func TestLink_ReceiveBrokenFrame(t *testing.T) {
	device := NewInMemory()
	link := New(device)
	device.PrepareRead([]byte{0x87, 0xe3, 0x80, 0x01})
	device.CloseWhenEmpty(true)

	_, err := link.Receive(context.Background())

	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, err, ErrShortHeader)
}

func TestLink_ReceiveCancelled(t *testing.T) {
	device := NewInMemory()
	defer device.Close()
	link := New(device)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := link.Receive(ctx)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLink_Send(t *testing.T) {
	device := NewInMemory()
	defer device.Close()
	tracer := new(recordingTracer)
	link := NewWithTrace(device, tracer)
	out := primitive.Outbound{
		Type:       primitive.DialogueRequest,
		DialogueID: 0x8001,
		Instance:   0x0102,
		Src:        0x2d,
		Dst:        0x15,
		Params:     tlv.Encode(byte(primitive.DelimiterRequest)),
	}

	err := link.Send(context.Background(), out)
	require.NoError(t, err)

	written, err := device.WrittenPrimitives()
	require.NoError(t, err)
	require.Len(t, written, 1)
	assert.Equal(t, primitive.DialogueRequest, written[0].Type)
	assert.Equal(t, primitive.DialogueID(0x8001), written[0].DialogueID)
	assert.Equal(t, primitive.Instance(0x0102), written[0].Instance)
	assert.Equal(t, primitive.ModuleID(0x15), written[0].Dst)
	assert.Equal(t, []byte{0x03, 0x00}, written[0].Params)

	tracer.mu.Lock()
	defer tracer.mu.Unlock()
	assert.Len(t, tracer.sent, 1)
}

func TestLink_SendFailure(t *testing.T) {
	device := NewInMemory()
	defer device.Close()
	link := New(device)
	failure := errors.New("device gone")
	device.FailWrites(failure)
	params := tlv.Encode(byte(primitive.DelimiterRequest))

	err := link.Send(context.Background(), primitive.Outbound{Type: primitive.DialogueRequest, DialogueID: 0x8001, Params: params})

	assert.ErrorIs(t, err, failure)
	assert.Equal(t, []byte{0x03, 0x00}, params, "parameters stay with the caller")
	assert.Empty(t, device.Written())
	tlv.Release(params)
}

func TestLink_SendAfterClose(t *testing.T) {
	device := NewInMemory()
	link := New(device)
	device.Close()
	require.Eventually(t, link.Closed, time.Second, time.Millisecond)

	err := link.Send(context.Background(), primitive.Outbound{Type: primitive.DialogueRequest})

	assert.ErrorIs(t, err, ErrClosed)
}

func TestLink_SendCancelled(t *testing.T) {
	device := NewInMemory()
	defer device.Close()
	link := New(device)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := link.Send(ctx, primitive.Outbound{Type: primitive.DialogueRequest})

	assert.ErrorIs(t, err, context.Canceled)
}
