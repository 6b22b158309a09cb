package tlv

import "sync"

// MaxStreamLen is the largest parameter area the MAP module accepts.
const MaxStreamLen = 320

var streamPool = sync.Pool{
	New: func() any {
		buf := make([]byte, MaxStreamLen)
		return &buf
	},
}

// Acquire returns a buffer of the given length. Buffers up to MaxStreamLen come from a pool.
func Acquire(size int) []byte {
	if size > MaxStreamLen {
		return make([]byte, size)
	}
	buf := streamPool.Get().(*[]byte)
	result := (*buf)[:size]
	clear(result)
	return result
}

// Release hands a buffer obtained from Acquire or Encode back to the pool. The caller must not
// use the buffer afterwards.
func Release(buf []byte) {
	if cap(buf) != MaxStreamLen {
		return
	}
	buf = buf[:MaxStreamLen]
	streamPool.Put(&buf)
}
