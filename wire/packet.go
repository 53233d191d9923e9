package wire

import (
	"github.com/netplay-go/netsim/neterr"
	"github.com/netplay-go/netsim/netbuf"
)

// DefaultMaxPacketSize is the conservative, configurable hard cap on a
// datagram's encoded size, enforced before sending (spec.md §3).
const DefaultMaxPacketSize = 1200

// DefaultProtocolID filters foreign traffic arriving on the socket.
const DefaultProtocolID uint32 = 0x52504C31 // "RPL1"

// headerSize is the fixed packet header from spec.md §6: u32 protocol_id,
// u16 packet_sequence, u16 last_acked_sequence, u32 ack_bitfield,
// u8 channel_id. The field list sums to 13 bytes even though spec.md's
// prose labels it "11 bytes" (see DESIGN.md); the field layout is taken as
// authoritative.
const headerSize = 4 + 2 + 2 + 4 + 1

// NumChannels mirrors netpeer.ChannelID's four channels (Handshake,
// Replication, InGameReliable, InGameUnreliable). wire can't import
// netpeer (netpeer imports wire), so the valid range is restated here and
// enforced by Decode, per spec.md §4.4's "parsing validates protocol-id
// and channel-id and rejects malformed with MalformedPacket."
const NumChannels uint8 = 4

// Packet is the datagram envelope: header plus an ordered list of messages,
// size-bounded by MaxPacketSize.
type Packet struct {
	ProtocolID       uint32
	PacketSequence   uint16
	LastAckedSeq     uint16
	AckBitfield      uint32
	ChannelID        uint8
	Messages         []*Message

	maxSize int
}

// NewPacket starts an empty packet for channelID, bounded by maxSize.
func NewPacket(protocolID uint32, channelID uint8, maxSize int) *Packet {
	if maxSize <= 0 {
		maxSize = DefaultMaxPacketSize
	}
	return &Packet{ProtocolID: protocolID, ChannelID: channelID, maxSize: maxSize}
}

// Size returns the packet's current encoded size.
func (p *Packet) Size() int {
	size := headerSize
	for _, m := range p.Messages {
		size += m.Size()
	}
	return size
}

// Append adds msg to the packet iff doing so would not exceed maxSize.
// Returns neterr.ErrPacketFull otherwise; the caller should finish this
// packet and start a new one.
func (p *Packet) Append(msg *Message) error {
	if p.Size()+msg.Size() > p.maxSize {
		return neterr.ErrPacketFull
	}
	p.Messages = append(p.Messages, msg)
	return nil
}

// Encode serializes the full packet: header then messages back-to-back.
func (p *Packet) Encode() []byte {
	b := netbuf.New()
	b.WriteUint32(p.ProtocolID)
	b.WriteUint16(p.PacketSequence)
	b.WriteUint16(p.LastAckedSeq)
	b.WriteUint32(p.AckBitfield)
	b.WriteByte(p.ChannelID)
	for _, m := range p.Messages {
		m.Serialize(b)
	}
	return b.Bytes()
}

// Decode parses a received datagram's header and messages, validating the
// protocol id and rejecting malformed framing.
func Decode(data []byte, expectedProtocolID uint32) (*Packet, error) {
	if len(data) < headerSize {
		return nil, neterr.ErrMalformedPacket
	}
	b := netbuf.Wrap(data)
	p := &Packet{
		ProtocolID:     b.ReadUint32(),
		PacketSequence: b.ReadUint16(),
		LastAckedSeq:   b.ReadUint16(),
		AckBitfield:    b.ReadUint32(),
		ChannelID:      b.ReadByte(),
	}
	if b.Err() != nil {
		return nil, neterr.ErrMalformedPacket
	}
	if p.ProtocolID != expectedProtocolID {
		return nil, neterr.ErrMalformedPacket
	}
	if p.ChannelID >= NumChannels {
		return nil, neterr.ErrMalformedPacket
	}

	for b.Remaining() > 0 {
		m := &Message{}
		if err := m.Deserialize(b); err != nil {
			return nil, err
		}
		p.Messages = append(p.Messages, m)
	}
	return p, nil
}
