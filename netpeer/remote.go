// Package netpeer tracks the set of remote connections a transport.Peer is
// talking to: per-connection state, channel sets, and liveness.
package netpeer

import (
	"time"

	"github.com/google/uuid"
	"github.com/netplay-go/netsim/channel"
	"github.com/netplay-go/netsim/netaddr"
	"github.com/netplay-go/netsim/neterr"
	"github.com/netplay-go/netsim/wire"
)

// State is a RemotePeer's place in the connection lifecycle.
type State int

const (
	StateConnecting State = iota
	StateConnected
	StateDisconnecting
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "Connecting"
	case StateConnected:
		return "Connected"
	case StateDisconnecting:
		return "Disconnecting"
	default:
		return "Unknown"
	}
}

// ChannelID selects which TransmissionChannel a message travels on.
type ChannelID uint8

const (
	ChannelHandshake ChannelID = iota
	ChannelReplication
	ChannelInGameReliable
	ChannelInGameUnreliable
	numChannels
)

// RemotePeer is the local view of the other side of a live connection.
// Grounded on the teacher's Session struct (source/protocol/raknet.go),
// generalized from RakNet-specific fields to spec.md §3's handshake-salt
// model. Invariant: once State == StateConnected, XoredSalt != 0 and both
// salts are fixed (spec.md §3).
type RemotePeer struct {
	ID            uint16
	Address       netaddr.Address
	CorrelationID uuid.UUID // log/metric correlation only, never on the wire

	ClientSalt uint64
	ServerSalt uint64
	XoredSalt  uint64

	State State

	LastPacketReceived time.Time

	channels [numChannels]channel.Channel

	// PendingDisconnect is set once disconnection is decided but not yet
	// finalized; spec.md §3 requires deferred removal at end of tick.
	PendingDisconnect bool
	DisconnectReason  neterr.DisconnectReason
	ShouldNotify      bool
}

// NewRemotePeer constructs a peer in Connecting state with a fresh channel
// set. release is invoked by the reliable channels when a sent message is
// acked, so the owning wire.Factory can reclaim it.
func NewRemotePeer(id uint16, addr netaddr.Address, rto time.Duration, release func(*wire.Message), now time.Time) *RemotePeer {
	p := &RemotePeer{
		ID:                 id,
		Address:            addr,
		CorrelationID:      uuid.New(),
		State:              StateConnecting,
		LastPacketReceived: now,
	}
	p.channels[ChannelHandshake] = channel.NewReliableOrdered(rto, release)
	p.channels[ChannelReplication] = channel.NewUnreliableUnordered()
	p.channels[ChannelInGameReliable] = channel.NewReliableOrdered(rto, release)
	p.channels[ChannelInGameUnreliable] = channel.NewUnreliableUnordered()
	return p
}

// Channel returns the channel bound to id, or nil if id is out of range.
// wire.Decode already rejects packets with an invalid channel id before
// they reach this far; this bounds check is a second line of defense
// against any other caller indexing with an unvalidated id.
func (p *RemotePeer) Channel(id ChannelID) channel.Channel {
	if id >= numChannels {
		return nil
	}
	return p.channels[id]
}

// Channels returns every channel this peer owns, in ChannelID order.
func (p *RemotePeer) Channels() []channel.Channel {
	return p.channels[:]
}

// MarkConnected fixes the session's xored salt and transitions to
// Connected. Both salts must already be set.
func (p *RemotePeer) MarkConnected() {
	p.XoredSalt = p.ClientSalt ^ p.ServerSalt
	p.State = StateConnected
}

// TouchLiveness records that a datagram was just received from this peer.
func (p *RemotePeer) TouchLiveness(now time.Time) {
	p.LastPacketReceived = now
}

// Inactive reports whether this peer has been silent for at least timeout.
func (p *RemotePeer) Inactive(now time.Time, timeout time.Duration) bool {
	return now.Sub(p.LastPacketReceived) >= timeout
}

// BeginDisconnect marks the peer for deferred removal at end of tick.
func (p *RemotePeer) BeginDisconnect(reason neterr.DisconnectReason, notify bool) {
	if p.PendingDisconnect {
		return
	}
	p.State = StateDisconnecting
	p.PendingDisconnect = true
	p.DisconnectReason = reason
	p.ShouldNotify = notify
}

// DropUnackedReliableSends discards all outstanding reliable sends without
// retransmitting, used when a peer is torn down for inactivity.
func (p *RemotePeer) DropUnackedReliableSends() {
	for _, id := range []ChannelID{ChannelHandshake, ChannelInGameReliable} {
		if ro, ok := p.channels[id].(*channel.ReliableOrdered); ok {
			ro.DropAllUnacked()
		}
	}
}
