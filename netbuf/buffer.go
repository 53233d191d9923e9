// Package netbuf implements the byte-cursor Buffer used to serialize and
// deserialize every wire structure. All primitives are little-endian.
package netbuf

import (
	"encoding/binary"
	"math"

	"github.com/netplay-go/netsim/neterr"
)

// Buffer owns or borrows a byte region with independent read and write
// cursors. Writing past the backing capacity grows the slice; reading past
// the write cursor sets the error flag instead of panicking, matching
// spec.md §4.2.
type Buffer struct {
	data []byte
	r    int
	err  error
}

// New creates an empty, growable write buffer.
func New() *Buffer {
	return &Buffer{data: make([]byte, 0, 64)}
}

// Wrap creates a read-only buffer over an existing slice (no copy).
func Wrap(data []byte) *Buffer {
	return &Buffer{data: data}
}

// Bytes returns the buffer's full backing slice.
func (b *Buffer) Bytes() []byte { return b.data }

// Remaining reports how many unread bytes are left.
func (b *Buffer) Remaining() int { return len(b.data) - b.r }

// Err returns the first error encountered by a Read call, if any.
func (b *Buffer) Err() error { return b.err }

// Reset clears both cursors and any sticky error.
func (b *Buffer) Reset() {
	b.data = b.data[:0]
	b.r = 0
	b.err = nil
}

func (b *Buffer) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

func (b *Buffer) need(n int) ([]byte, bool) {
	if b.err != nil || b.r+n > len(b.data) {
		b.fail(neterr.ErrBufferOverrun)
		return nil, false
	}
	out := b.data[b.r : b.r+n]
	b.r += n
	return out, true
}

// ReadByte reads a single byte, returning 0 on overrun.
func (b *Buffer) ReadByte() byte {
	v, ok := b.need(1)
	if !ok {
		return 0
	}
	return v[0]
}

// ReadBytes reads n raw bytes, returning a nil slice on overrun.
func (b *Buffer) ReadBytes(n int) []byte {
	v, ok := b.need(n)
	if !ok {
		return nil
	}
	out := make([]byte, n)
	copy(out, v)
	return out
}

// ReadUint16 reads a little-endian uint16.
func (b *Buffer) ReadUint16() uint16 {
	v, ok := b.need(2)
	if !ok {
		return 0
	}
	return binary.LittleEndian.Uint16(v)
}

// ReadUint32 reads a little-endian uint32.
func (b *Buffer) ReadUint32() uint32 {
	v, ok := b.need(4)
	if !ok {
		return 0
	}
	return binary.LittleEndian.Uint32(v)
}

// ReadUint64 reads a little-endian uint64.
func (b *Buffer) ReadUint64() uint64 {
	v, ok := b.need(8)
	if !ok {
		return 0
	}
	return binary.LittleEndian.Uint64(v)
}

// ReadFloat32 reads a little-endian IEEE-754 float32.
func (b *Buffer) ReadFloat32() float32 {
	return math.Float32frombits(b.ReadUint32())
}

// WriteByte appends a single byte.
func (b *Buffer) WriteByte(v byte) {
	b.data = append(b.data, v)
}

// WriteBytes appends raw bytes.
func (b *Buffer) WriteBytes(v []byte) {
	b.data = append(b.data, v...)
}

// WriteUint16 appends a little-endian uint16.
func (b *Buffer) WriteUint16(v uint16) {
	b.data = binary.LittleEndian.AppendUint16(b.data, v)
}

// WriteUint32 appends a little-endian uint32.
func (b *Buffer) WriteUint32(v uint32) {
	b.data = binary.LittleEndian.AppendUint32(b.data, v)
}

// WriteUint64 appends a little-endian uint64.
func (b *Buffer) WriteUint64(v uint64) {
	b.data = binary.LittleEndian.AppendUint64(b.data, v)
}

// WriteFloat32 appends a little-endian IEEE-754 float32.
func (b *Buffer) WriteFloat32(v float32) {
	b.WriteUint32(math.Float32bits(v))
}

// Len returns the number of bytes currently written.
func (b *Buffer) Len() int { return len(b.data) }
