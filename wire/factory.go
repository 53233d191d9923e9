package wire

import (
	"strconv"
	"sync"
)

// Factory is a tick-local message pool. Unlike the teacher's process-wide
// global factory, a Factory is owned by a single transport.Peer (see
// DESIGN.md's "process-wide MessageFactory singleton" open question).
//
// Factory is backed by sync.Pool keyed by Kind rather than the teacher's
// hand-rolled free list: every Kind serializes to a fixed-shape Message,
// so there is nothing sync.Pool's type erasure costs us here.
type Factory struct {
	pools [11]sync.Pool // indexed by Kind

	mu   sync.Mutex
	lent int
}

// NewFactory constructs an empty factory.
func NewFactory() *Factory {
	f := &Factory{}
	for i := range f.pools {
		k := Kind(i)
		f.pools[i].New = func() any {
			return &Message{Kind: k, Payload: make([]byte, 0, 64)}
		}
	}
	return f
}

// Lend returns a Message of the given Kind, recycling one from the pool
// when available.
func (f *Factory) Lend(kind Kind) *Message {
	f.mu.Lock()
	f.lent++
	f.mu.Unlock()

	m := f.pools[kind].Get().(*Message)
	m.reset()
	m.Kind = kind
	return m
}

// Release returns m to its pool after clearing its payload. Every Message
// obtained from Lend must eventually reach Release, either directly or by
// being handed to a channel that releases on ack/drop (spec.md §5).
func (f *Factory) Release(m *Message) {
	if m == nil {
		return
	}
	kind := m.Kind
	m.reset()
	f.pools[kind].Put(m)

	f.mu.Lock()
	f.lent--
	f.mu.Unlock()
}

// Outstanding returns the number of Messages currently lent but not yet
// released. A steady-state Peer should see this return to 0 between ticks
// once all in-flight reliable sends have been acked or dropped.
func (f *Factory) Outstanding() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lent
}

// AssertBalanced panics if messages are still outstanding. Call this from
// Peer.Stop as the factory-exhaustion/leak-detection assertion spec.md §5
// requires at shutdown.
func (f *Factory) AssertBalanced() {
	if n := f.Outstanding(); n != 0 {
		panic("wire: message factory leaked outstanding messages at shutdown: " + strconv.Itoa(n))
	}
}
