package channel

import (
	"time"

	"github.com/netplay-go/netsim/wire"
)

const (
	// dupWindowSize is the sliding window, in sequence numbers, over which
	// duplicate delivery is suppressed (spec.md §4.5).
	dupWindowSize = 1024

	// DefaultRTO is the retransmit timeout used when none is configured.
	// The RTT estimate does not change it.
	DefaultRTO = 200 * time.Millisecond
)

type pendingSend struct {
	msg    *wire.Message
	sentAt int64 // unix nanos of the most recent send or retransmit
}

// ReliableOrdered delivers every submitted message exactly once, in the
// sender's submission order, retransmitting until acked. Grounded on
// spec.md §4.5 and the teacher's Session.SendQueue/RecoveryQueue/ACKQueue/
// ChannelOrderIndex bookkeeping, generalized from RakNet-specific framing
// to the spec's seq/ack-bitfield model.
type ReliableOrdered struct {
	rto         time.Duration
	rttEstimate time.Duration

	unsentQueue []*wire.Message
	unacked     map[uint16]*pendingSend
	nextOutSeq  uint16

	// seenMarker[s%dupWindowSize] == s (as int32) iff s was the last
	// sequence to land in that slot (-1 marks an empty slot); a ring-buffer
	// duplicate filter over the trailing dupWindowSize sequence numbers.
	seenMarker [dupWindowSize]int32

	reorderBuf   map[uint16]*wire.Message
	nextExpected uint16
	anyReceived  bool
	readyQueue   []*wire.Message

	// release is called on release (ack or channel teardown) so the
	// caller's Factory can reclaim the Message; may be nil in tests.
	release func(*wire.Message)
}

// NewReliableOrdered constructs a channel with the given initial RTO and an
// optional release callback invoked when a sent message is acked (so the
// owning wire.Factory can reclaim it).
func NewReliableOrdered(rto time.Duration, release func(*wire.Message)) *ReliableOrdered {
	if rto <= 0 {
		rto = DefaultRTO
	}
	c := &ReliableOrdered{
		rto:         rto,
		rttEstimate: rto,
		unacked:     make(map[uint16]*pendingSend),
		reorderBuf:  make(map[uint16]*wire.Message),
		release:     release,
	}
	for i := range c.seenMarker {
		c.seenMarker[i] = -1
	}
	return c
}

func (c *ReliableOrdered) AddToSend(msg *wire.Message) {
	c.unsentQueue = append(c.unsentQueue, msg)
}

// NextToSend prefers the oldest unacked message whose retransmit deadline
// has elapsed; otherwise it pops from the unsent queue and assigns the
// next outbound sequence number.
func (c *ReliableOrdered) NextToSend() *wire.Message {
	return c.nextToSendAt(nowNanos())
}

func (c *ReliableOrdered) nextToSendAt(now int64) *wire.Message {
	var oldest *pendingSend
	for _, p := range c.unacked {
		if now-p.sentAt < c.rto.Nanoseconds() {
			continue
		}
		if oldest == nil || p.sentAt < oldest.sentAt {
			oldest = p
		}
	}
	if oldest != nil {
		oldest.sentAt = now
		return oldest.msg
	}

	if len(c.unsentQueue) == 0 {
		return nil
	}
	msg := c.unsentQueue[0]
	c.unsentQueue = c.unsentQueue[1:]
	msg.Sequence = c.nextOutSeq
	c.nextOutSeq++
	c.unacked[msg.Sequence] = &pendingSend{msg: msg, sentAt: now}
	return msg
}

// OnReceive records an inbound reliable-ordered message, discarding
// duplicates within the trailing window and buffering out-of-order
// arrivals until they can be released in sequence.
func (c *ReliableOrdered) OnReceive(msg *wire.Message) {
	seq := msg.Sequence
	slot := int(seq) % dupWindowSize
	if c.seenMarker[slot] == int32(seq) {
		return // duplicate within the window
	}

	// Anything already released (seq < nextExpected, accounting for wrap)
	// is also a duplicate.
	if !seqGreaterThanOrEqual(seq, c.nextExpected) {
		return
	}

	c.seenMarker[slot] = int32(seq)
	c.reorderBuf[seq] = msg

	for {
		next, ok := c.reorderBuf[c.nextExpected]
		if !ok {
			break
		}
		delete(c.reorderBuf, c.nextExpected)
		c.readyQueue = append(c.readyQueue, next)
		c.nextExpected++
		c.anyReceived = true
	}
}

// Ready pops the next message available for application delivery, in
// strictly increasing sequence order with no gaps.
func (c *ReliableOrdered) Ready() *wire.Message {
	if len(c.readyQueue) == 0 {
		return nil
	}
	msg := c.readyQueue[0]
	c.readyQueue = c.readyQueue[1:]
	return msg
}

// GenerateAcks computes last_acked as the highest contiguous sequence
// received and a 32-bit bitfield of the 32 sequences immediately before it.
func (c *ReliableOrdered) GenerateAcks() (uint16, uint32) {
	if !c.anyReceived {
		return 0, 0
	}
	lastAcked := c.nextExpected - 1
	var bits uint32
	for i := uint16(0); i < 32; i++ {
		s := lastAcked - (i + 1)
		slot := int(s) % dupWindowSize
		if c.seenMarker[slot] == int32(s) {
			bits |= 1 << i
		}
	}
	return lastAcked, bits
}

// ProcessAcks marks lastAcked and every bit-indicated sequence as
// acknowledged, releasing them from retransmission tracking and sampling
// RTT via the 0.9/0.1 EWMA spec.md §4.5 specifies.
func (c *ReliableOrdered) ProcessAcks(lastAcked uint16, ackBits uint32) {
	now := nowNanos()
	c.ackOne(lastAcked, now)
	for i := uint16(0); i < 32; i++ {
		if ackBits&(1<<i) != 0 {
			c.ackOne(lastAcked-(i+1), now)
		}
	}
}

func (c *ReliableOrdered) ackOne(seq uint16, now int64) {
	p, ok := c.unacked[seq]
	if !ok {
		return
	}
	delete(c.unacked, seq)
	if p.sentAt != 0 {
		sample := time.Duration(now - p.sentAt)
		c.rttEstimate = time.Duration(0.9*float64(c.rttEstimate) + 0.1*float64(sample))
	}
	if c.release != nil {
		c.release(p.msg)
	}
}

// Tick is a no-op: retransmission deadlines are evaluated lazily inside
// NextToSend, matching the teacher's per-tick assemble-then-send loop.
func (c *ReliableOrdered) Tick(int64) {}

// RTT returns the current smoothed round-trip-time estimate.
func (c *ReliableOrdered) RTT() time.Duration { return c.rttEstimate }

// DropAllUnacked discards every outstanding unacked send without
// retransmitting, releasing each back through the release callback. Called
// when the owning RemotePeer is disconnected for inactivity (spec.md §5).
func (c *ReliableOrdered) DropAllUnacked() {
	for seq, p := range c.unacked {
		delete(c.unacked, seq)
		if c.release != nil {
			c.release(p.msg)
		}
	}
}

func seqGreaterThanOrEqual(s1, s2 uint16) bool {
	return s1 == s2 || seqGreaterThan(s1, s2)
}

var _ Channel = (*ReliableOrdered)(nil)
