/*
The package tlv implements the parameter format of MAP primitives as exchanged with the MAP module:

	subtype(1) { tag(1) length(1) value(length) }* terminator(0x00)

It also contains the two value encodings the responder needs to look into: the packed 7-bit
default alphabet and semi-octet digit strings.
*/
package tlv

import (
	"errors"
	"fmt"

	"github.com/bassosimone/runtimex"

	"github.com/ftl/map-responder/primitive"
)

var (
	ErrNotFound  = errors.New("tlv: parameter not found")
	ErrTruncated = errors.New("tlv: truncated parameter stream")
	ErrTooLarge  = errors.New("tlv: parameter value larger than destination")
)

// Param is one parameter of a primitive.
type Param struct {
	Tag   primitive.Tag
	Value []byte
}

// P is a shorthand to build a parameter from single bytes.
func P(tag primitive.Tag, value ...byte) Param {
	return Param{Tag: tag, Value: value}
}

// walk visits every parameter of the stream until visit returns true, the terminator is found,
// or the stream ends on a parameter boundary. It never reads past the end of the stream.
func walk(stream []byte, visit func(tag primitive.Tag, value []byte) bool) error {
	if len(stream) == 0 {
		return ErrTruncated
	}
	i := 1 // skip the primitive subtype
	for i < len(stream) {
		tag := primitive.Tag(stream[i])
		if tag == primitive.TagTerminator {
			return ErrNotFound
		}
		if len(stream)-i < 2 {
			return ErrTruncated
		}
		length := int(stream[i+1])
		i += 2
		if len(stream)-i < length {
			return ErrTruncated
		}
		if visit(tag, stream[i:i+length]) {
			return nil
		}
		i += length
	}
	return ErrNotFound
}

// Find returns the value of the first parameter with the given tag. The returned slice aliases
// the stream.
func Find(stream []byte, tag primitive.Tag) ([]byte, error) {
	var result []byte
	err := walk(stream, func(t primitive.Tag, value []byte) bool {
		if t != tag {
			return false
		}
		result = value
		return true
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Get copies the value of the first parameter with the given tag into dst and returns the
// number of bytes copied. If the value does not fit into dst, Get returns ErrTooLarge and leaves
// dst untouched.
func Get(stream []byte, tag primitive.Tag, dst []byte) (int, error) {
	value, err := Find(stream, tag)
	if err != nil {
		return 0, err
	}
	if len(value) > len(dst) {
		return 0, fmt.Errorf("%w: tag 0x%02x has %d bytes, room for %d", ErrTooLarge, byte(tag), len(value), len(dst))
	}
	return copy(dst, value), nil
}

// InvokeID returns the first invoke id parameter of the stream. Invoke id parameters that are
// not exactly one byte long are skipped.
func InvokeID(stream []byte) (byte, error) {
	var result byte
	err := walk(stream, func(t primitive.Tag, value []byte) bool {
		if t != primitive.TagInvokeID || len(value) != 1 {
			return false
		}
		result = value[0]
		return true
	})
	if err != nil {
		return 0, err
	}
	return result, nil
}

// Params returns all parameters of the stream, up to the terminator.
func Params(stream []byte) ([]Param, error) {
	result := make([]Param, 0, 4)
	err := walk(stream, func(t primitive.Tag, value []byte) bool {
		result = append(result, Param{Tag: t, Value: value})
		return false
	})
	if errors.Is(err, ErrNotFound) {
		return result, nil
	}
	return nil, err
}

// Size returns the exact length of the stream that encodes the given parameters.
func Size(params ...Param) int {
	result := 2 // subtype and terminator
	for _, p := range params {
		result += 2 + len(p.Value)
	}
	return result
}

// Encode builds a parameter stream with the given subtype and parameters. The buffer is taken
// from the pool; pass it to Release once it is not used anymore.
func Encode(subtype byte, params ...Param) []byte {
	e := NewEncoder(subtype, Size(params...))
	for _, p := range params {
		e.Put(p.Tag, p.Value...)
	}
	return e.Bytes()
}

// Encoder writes a parameter stream into a buffer of a size known in advance. Running out of
// space is a programming error and panics.
type Encoder struct {
	buf []byte
	n   int
}

// NewEncoder starts a parameter stream of exactly size bytes with the given subtype.
func NewEncoder(subtype byte, size int) *Encoder {
	runtimex.Assert(size >= 2)
	e := &Encoder{buf: Acquire(size)}
	e.buf[0] = subtype
	e.n = 1
	return e
}

// Put appends one parameter.
func (e *Encoder) Put(tag primitive.Tag, value ...byte) *Encoder {
	runtimex.Assert(tag != primitive.TagTerminator)
	runtimex.Assert(len(value) <= 0xff)
	runtimex.Assert(e.n+2+len(value) < len(e.buf))
	e.buf[e.n] = byte(tag)
	e.buf[e.n+1] = byte(len(value))
	e.n += 2
	e.n += copy(e.buf[e.n:], value)
	return e
}

// Bytes terminates the stream and returns it. The stream must fill the buffer exactly.
func (e *Encoder) Bytes() []byte {
	runtimex.Assert(e.n+1 == len(e.buf))
	e.buf[e.n] = byte(primitive.TagTerminator)
	e.n++
	return e.buf
}
