package com

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/ftl/map-responder/primitive"
)

// NewInMemory returns a device that plays the MAP module in tests.
func NewInMemory() *InMemory {
	return &InMemory{
		readBuffer:  []byte{},
		writeBuffer: []byte{},
		readLock:    new(sync.RWMutex),
		writeLock:   new(sync.RWMutex),
		writeSignal: make(chan bool, 1),
		closed:      make(chan struct{}),
	}
}

// InMemory is an io.ReadWriter that delivers prepared frames and records written frames.
type InMemory struct {
	readBuffer     []byte
	writeBuffer    []byte
	readLock       *sync.RWMutex
	writeLock      *sync.RWMutex
	writeSignal    chan bool
	writeErr       error
	closed         chan struct{}
	closeOnce      sync.Once
	closeWhenEmpty bool
}

func (rw *InMemory) Close() error {
	rw.closeOnce.Do(func() {
		close(rw.closed)
	})
	return nil
}

func (rw *InMemory) WaitUntilClosed() {
	<-rw.closed
}

func (rw *InMemory) Read(p []byte) (int, error) {
	for {
		rw.readLock.RLock()
		if len(rw.readBuffer) > 0 {
			rw.readLock.RUnlock()
			break
		}
		rw.readLock.RUnlock()
		select {
		case <-rw.closed:
			return 0, io.EOF
		case <-time.After(10 * time.Millisecond):
			continue
		}
	}

	select {
	case <-rw.closed:
		return 0, io.EOF
	default:
	}

	rw.readLock.Lock()
	defer rw.readLock.Unlock()
	n := copy(p, rw.readBuffer)
	rw.readBuffer = rw.readBuffer[n:]
	if rw.closeWhenEmpty && len(rw.readBuffer) == 0 {
		rw.Close()
	}
	return n, nil
}

// PrepareRead queues raw bytes for reading.
func (rw *InMemory) PrepareRead(p []byte) {
	rw.readLock.Lock()
	defer rw.readLock.Unlock()

	rw.readBuffer = append(rw.readBuffer, p...)
}

// PreparePrimitive queues the frame of a primitive sent by the MAP module.
func (rw *InMemory) PreparePrimitive(in primitive.Inbound) error {
	frame, err := AppendFrame(nil, primitive.Outbound(in))
	if err != nil {
		return err
	}
	rw.PrepareRead(frame)
	return nil
}

func (rw *InMemory) IsReadEmpty() bool {
	rw.readLock.RLock()
	defer rw.readLock.RUnlock()

	return len(rw.readBuffer) == 0
}

// CloseWhenEmpty lets the device end as soon as all prepared bytes are read.
func (rw *InMemory) CloseWhenEmpty(value bool) {
	rw.readLock.Lock()
	defer rw.readLock.Unlock()

	rw.closeWhenEmpty = value
}

// FailWrites makes all following writes fail with the given error. Pass nil to accept writes again.
func (rw *InMemory) FailWrites(err error) {
	rw.writeLock.Lock()
	defer rw.writeLock.Unlock()

	rw.writeErr = err
}

func (rw *InMemory) Write(p []byte) (int, error) {
	rw.writeLock.Lock()
	defer rw.writeLock.Unlock()

	if rw.writeErr != nil {
		return 0, rw.writeErr
	}

	rw.writeBuffer = append(rw.writeBuffer, p...)
	select {
	case rw.writeSignal <- true:
	default:
	}
	return len(p), nil
}

func (rw *InMemory) Written() []byte {
	rw.writeLock.RLock()
	defer rw.writeLock.RUnlock()

	return append([]byte(nil), rw.writeBuffer...)
}

// WrittenPrimitives decodes all frames written so far.
func (rw *InMemory) WrittenPrimitives() ([]primitive.Inbound, error) {
	r := bytes.NewReader(rw.Written())
	var result []primitive.Inbound
	for {
		frame, err := ReadFrame(r)
		if errors.Is(err, io.EOF) {
			return result, nil
		}
		if err != nil {
			return result, err
		}
		result = append(result, frame)
	}
}

func (rw *InMemory) ClearWrite() {
	rw.writeLock.Lock()
	defer rw.writeLock.Unlock()

	rw.writeBuffer = []byte{}
}

func (rw *InMemory) WaitUntilWritten() {
	<-rw.writeSignal
}
