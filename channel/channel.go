// Package channel implements the per-connection transmission channels:
// UnreliableUnordered and ReliableOrdered, each with its own send/receive
// queueing, sequencing, and (for the reliable variant) ACK and
// retransmission bookkeeping.
package channel

import "github.com/netplay-go/netsim/wire"

// Channel is the minimal capability interface every transmission channel
// variant implements. spec.md §9 allows either a tagged sum or a small
// interface for virtual dispatch; Go's interface dispatch is cheap enough
// that we use the interface directly rather than a tagged sum + switch.
type Channel interface {
	// AddToSend enqueues msg for outbound delivery.
	AddToSend(msg *wire.Message)
	// NextToSend pops the next message ready to go out this tick, or nil.
	NextToSend() *wire.Message
	// OnReceive processes an inbound message parsed off the wire.
	OnReceive(msg *wire.Message)
	// Ready pops the next message ready for application-level delivery,
	// in the order this channel's policy guarantees, or nil.
	Ready() *wire.Message
	// GenerateAcks returns the ack fields to stamp on the next outbound
	// packet header for this channel (both zero for UnreliableUnordered).
	GenerateAcks() (lastAcked uint16, ackBits uint32)
	// ProcessAcks applies an inbound packet's ack fields, freeing acked
	// sends from retransmission tracking.
	ProcessAcks(lastAcked uint16, ackBits uint32)
	// Tick advances any per-channel timers that aren't evaluated lazily
	// elsewhere. A no-op for variants with nothing to advance.
	Tick(nowUnixNano int64)
}

// seqGreaterThan implements spec.md §4.5's 16-bit wrap-aware comparator:
// s1 > s2 iff (s1>s2 && s1-s2<=32768) || (s2>s1 && s2-s1>32768).
func seqGreaterThan(s1, s2 uint16) bool {
	return (s1 > s2 && s1-s2 <= 32768) || (s2 > s1 && s2-s1 > 32768)
}
