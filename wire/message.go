// Package wire implements the tagged message records, the pooled message
// factory, and the datagram (Packet) framing on top of netbuf.Buffer.
package wire

import (
	"github.com/netplay-go/netsim/neterr"
	"github.com/netplay-go/netsim/netbuf"
)

// Kind tags the variant of a Message, mirroring spec.md §3's MessageKind.
type Kind uint8

const (
	KindConnectionRequest Kind = iota
	KindConnectionChallenge
	KindConnectionChallengeResponse
	KindConnectionAccepted
	KindConnectionDenied
	KindDisconnection
	KindInGame
	KindInGameResponse
	KindReplication
	KindTimeRequest
	KindTimeResponse
)

// Flags bits carried in the message header.
const (
	FlagReliable uint8 = 1 << 0
	FlagOrdered  uint8 = 1 << 1
	// FlagFragment marks a Message as one piece of a larger payload split
	// by Fragmenter because it alone exceeded the packet size cap (see
	// SPEC_FULL.md §7's supplemented split-packet fallback).
	FlagFragment uint8 = 1 << 2
)

// Message is a tagged, header-carrying wire record. Instances are pooled by
// Factory and must not be read after Release.
type Message struct {
	Kind     Kind
	Flags    uint8
	Sequence uint16

	// Handshake-only fields; zero when unused.
	ClientSalt uint64
	ServerSalt uint64
	DenyReason uint8

	// Fragment-only fields; zero when FlagFragment is clear.
	FragmentID    uint16
	FragmentIndex uint16
	FragmentCount uint16

	Payload []byte
}

func (m *Message) reset() {
	m.Kind = 0
	m.Flags = 0
	m.Sequence = 0
	m.ClientSalt = 0
	m.ServerSalt = 0
	m.DenyReason = 0
	m.FragmentID = 0
	m.FragmentIndex = 0
	m.FragmentCount = 0
	m.Payload = m.Payload[:0]
}

// IsFragment reports whether FlagFragment is set.
func (m *Message) IsFragment() bool { return m.Flags&FlagFragment != 0 }

// Reliable reports whether FlagReliable is set.
func (m *Message) Reliable() bool { return m.Flags&FlagReliable != 0 }

// Ordered reports whether FlagOrdered is set.
func (m *Message) Ordered() bool { return m.Flags&FlagOrdered != 0 }

// hasClientSalt reports whether Kind carries the client salt field on the
// wire, per spec.md §6; hasServerSalt does the same for the server salt.
func (k Kind) hasClientSalt() bool {
	return k == KindConnectionRequest || k == KindConnectionChallenge || k == KindConnectionChallengeResponse
}

func (k Kind) hasServerSalt() bool {
	return k == KindConnectionChallenge || k == KindConnectionChallengeResponse
}

// hasReason reports whether Kind carries a one-byte DisconnectReason on the
// wire: ConnectionDenied per spec.md §6, and Disconnection since spec.md
// §4.7 names disconnect reasons without fixing its wire shape — reusing the
// same field for both keeps the header uniform.
func (k Kind) hasReason() bool {
	return k == KindConnectionDenied || k == KindDisconnection
}

// Serialize writes the message header and payload into b. A u16 payload
// length follows the fixed header fields: spec.md §6 fixes the header
// layout but is silent on how multiple messages packed back-to-back in one
// Packet are told apart, since payload length varies by Kind. We resolve
// that ambiguity (recorded in DESIGN.md) by framing every message with an
// explicit length prefix rather than relying on a final message consuming
// the rest of the datagram.
func (m *Message) Serialize(b *netbuf.Buffer) {
	b.WriteByte(byte(m.Kind))
	b.WriteByte(m.Flags)
	b.WriteUint16(m.Sequence)
	if m.Kind.hasClientSalt() {
		b.WriteUint64(m.ClientSalt)
	}
	if m.Kind.hasServerSalt() {
		b.WriteUint64(m.ServerSalt)
	}
	if m.Kind.hasReason() {
		b.WriteByte(m.DenyReason)
	}
	if m.IsFragment() {
		b.WriteUint16(m.FragmentID)
		b.WriteUint16(m.FragmentIndex)
		b.WriteUint16(m.FragmentCount)
	}
	b.WriteUint16(uint16(len(m.Payload)))
	b.WriteBytes(m.Payload)
}

// Deserialize reads one framed message (header + length-prefixed payload)
// from b, leaving b's cursor at the start of the next message, if any.
func (m *Message) Deserialize(b *netbuf.Buffer) error {
	m.Kind = Kind(b.ReadByte())
	m.Flags = b.ReadByte()
	m.Sequence = b.ReadUint16()
	if m.Kind.hasClientSalt() {
		m.ClientSalt = b.ReadUint64()
	}
	if m.Kind.hasServerSalt() {
		m.ServerSalt = b.ReadUint64()
	}
	if m.Kind.hasReason() {
		m.DenyReason = b.ReadByte()
	}
	if m.IsFragment() {
		m.FragmentID = b.ReadUint16()
		m.FragmentIndex = b.ReadUint16()
		m.FragmentCount = b.ReadUint16()
	}
	n := b.ReadUint16()
	m.Payload = append(m.Payload[:0], b.ReadBytes(int(n))...)
	if b.Err() != nil {
		return neterr.ErrMalformedPacket
	}
	return nil
}

// Size reports the serialized size in bytes without allocating.
func (m *Message) Size() int {
	size := 4 + 2 // kind + flags + sequence + payload length prefix
	if m.Kind.hasClientSalt() {
		size += 8
	}
	if m.Kind.hasServerSalt() {
		size += 8
	}
	if m.Kind.hasReason() {
		size++
	}
	if m.IsFragment() {
		size += 6
	}
	return size + len(m.Payload)
}
