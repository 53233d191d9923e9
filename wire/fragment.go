package wire

// GetSafePayloadSize returns the largest single-message payload that fits
// in one packet built for the given MTU, after reserving room for the
// packet header and one message's non-payload framing. Mirrors the
// teacher's MTU safety-margin calculation (see SPEC_FULL.md §7), recast
// against this wire format's own header/frame sizes instead of RakNet's.
func GetSafePayloadSize(mtu int) int {
	const udpIPv4Overhead = 28 // 20-byte IPv4 header + 8-byte UDP header
	const messageFrameOverhead = 4 + 2 // kind + flags + sequence + length prefix
	safe := mtu - udpIPv4Overhead - headerSize - messageFrameOverhead
	if safe < 0 {
		return 0
	}
	return safe
}

// fragmentPayloadSize is the per-fragment payload budget once the
// fragment header (FragmentID/Index/Count, 6 bytes) is also reserved.
func fragmentPayloadSize(mtu int) int {
	safe := GetSafePayloadSize(mtu) - 6
	if safe < 1 {
		return 1
	}
	return safe
}

// Fragmenter splits oversized message payloads into FlagFragment-tagged
// pieces and reassembles them on the receiving side. Used only when a
// single Message's payload alone would exceed the packet size cap — the
// spec's ordinary PacketFull-then-new-packet rule handles everything else.
type Fragmenter struct {
	factory *Factory
	nextID  uint16

	pending map[uint16]*reassembly
}

type reassembly struct {
	kind     Kind
	flags    uint8
	total    uint16
	received uint16
	parts    [][]byte
}

// NewFragmenter constructs a Fragmenter that lends/releases messages
// through factory.
func NewFragmenter(factory *Factory) *Fragmenter {
	return &Fragmenter{factory: factory, pending: make(map[uint16]*reassembly)}
}

// Split breaks payload into one or more Messages of the given kind/flags,
// each carrying FlagFragment, sized to fit mtu. Returns a single
// non-fragment Message if payload already fits in one piece.
func (fr *Fragmenter) Split(kind Kind, flags uint8, payload []byte, mtu int) []*Message {
	safe := GetSafePayloadSize(mtu)
	if len(payload) <= safe {
		m := fr.factory.Lend(kind)
		m.Flags = flags
		m.Payload = append(m.Payload[:0], payload...)
		return []*Message{m}
	}

	chunkSize := fragmentPayloadSize(mtu)
	count := (len(payload) + chunkSize - 1) / chunkSize
	id := fr.nextID
	fr.nextID++

	msgs := make([]*Message, 0, count)
	for i := 0; i < count; i++ {
		start := i * chunkSize
		end := start + chunkSize
		if end > len(payload) {
			end = len(payload)
		}
		m := fr.factory.Lend(kind)
		m.Flags = flags | FlagFragment
		m.FragmentID = id
		m.FragmentIndex = uint16(i)
		m.FragmentCount = uint16(count)
		m.Payload = append(m.Payload[:0], payload[start:end]...)
		msgs = append(msgs, m)
	}
	return msgs
}

// Add feeds a received fragment into reassembly state. Returns the
// reassembled payload, kind, and flags (with FlagFragment cleared) once
// every piece of that FragmentID has arrived; ok is false while pieces are
// still outstanding.
func (fr *Fragmenter) Add(m *Message) (payload []byte, kind Kind, flags uint8, ok bool) {
	r := fr.pending[m.FragmentID]
	if r == nil {
		r = &reassembly{kind: m.Kind, flags: m.Flags &^ FlagFragment, total: m.FragmentCount, parts: make([][]byte, m.FragmentCount)}
		fr.pending[m.FragmentID] = r
	}
	if int(m.FragmentIndex) >= len(r.parts) || r.parts[m.FragmentIndex] != nil {
		return nil, 0, 0, false
	}
	cp := make([]byte, len(m.Payload))
	copy(cp, m.Payload)
	r.parts[m.FragmentIndex] = cp
	r.received++

	if r.received < r.total {
		return nil, 0, 0, false
	}

	delete(fr.pending, m.FragmentID)
	total := 0
	for _, p := range r.parts {
		total += len(p)
	}
	out := make([]byte, 0, total)
	for _, p := range r.parts {
		out = append(out, p...)
	}
	return out, r.kind, r.flags, true
}
