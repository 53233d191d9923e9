package channel

import (
	"testing"

	"github.com/netplay-go/netsim/wire"
)

func newTestMessage(payload string) *wire.Message {
	return &wire.Message{Kind: wire.KindInGame, Payload: []byte(payload)}
}

func TestReliableOrderedAssignsIncreasingSequence(t *testing.T) {
	c := NewReliableOrdered(0, nil)
	c.AddToSend(newTestMessage("a"))
	c.AddToSend(newTestMessage("b"))

	first := c.nextToSendAt(1000)
	second := c.nextToSendAt(1000)
	if first.Sequence != 0 || second.Sequence != 1 {
		t.Fatalf("got sequences %d, %d; want 0, 1", first.Sequence, second.Sequence)
	}
}

func TestReliableOrderedRetransmitsAfterRTO(t *testing.T) {
	c := NewReliableOrdered(100, nil)
	c.AddToSend(newTestMessage("a"))

	sent := c.nextToSendAt(0)
	if sent == nil {
		t.Fatal("expected first send")
	}
	if msg := c.nextToSendAt(50); msg != nil {
		t.Fatalf("expected no retransmit before RTO elapsed, got %v", msg)
	}
	if msg := c.nextToSendAt(101); msg == nil {
		t.Fatal("expected retransmit once RTO elapsed")
	}
}

func TestReliableOrderedReleasesOutOfOrderArrivals(t *testing.T) {
	c := NewReliableOrdered(0, nil)

	m2 := newTestMessage("two")
	m2.Sequence = 2
	m1 := newTestMessage("one")
	m1.Sequence = 1
	m0 := newTestMessage("zero")
	m0.Sequence = 0

	c.OnReceive(m2)
	if got := c.Ready(); got != nil {
		t.Fatalf("expected nothing ready before gap filled, got %v", got)
	}
	c.OnReceive(m0)
	if got := c.Ready(); got != m0 {
		t.Fatalf("expected seq 0 ready, got %v", got)
	}
	if got := c.Ready(); got != nil {
		t.Fatalf("expected seq 1 still missing, got %v", got)
	}
	c.OnReceive(m1)
	if got := c.Ready(); got != m1 {
		t.Fatalf("expected seq 1 ready, got %v", got)
	}
	if got := c.Ready(); got != m2 {
		t.Fatalf("expected seq 2 ready, got %v", got)
	}
}

func TestReliableOrderedDropsDuplicateDelivery(t *testing.T) {
	c := NewReliableOrdered(0, nil)
	m := newTestMessage("a")
	m.Sequence = 0
	c.OnReceive(m)
	c.Ready()

	dup := newTestMessage("a-dup")
	dup.Sequence = 0
	c.OnReceive(dup)
	if got := c.Ready(); got != nil {
		t.Fatalf("expected duplicate to be dropped, got %v", got)
	}
}

func TestGenerateAndProcessAcksRoundTrip(t *testing.T) {
	receiver := NewReliableOrdered(0, nil)
	for seq := uint16(0); seq < 4; seq++ {
		m := newTestMessage("x")
		m.Sequence = seq
		receiver.OnReceive(m)
	}
	lastAcked, bits := receiver.GenerateAcks()
	if lastAcked != 3 {
		t.Fatalf("lastAcked = %d, want 3", lastAcked)
	}
	// seqs 0,1,2 were received: bit i covers lastAcked-(i+1).
	want := uint32(1<<0 | 1<<1 | 1<<2)
	if bits != want {
		t.Fatalf("ackBits = %b, want %b", bits, want)
	}

	var released []*wire.Message
	sender := NewReliableOrdered(0, func(m *wire.Message) { released = append(released, m) })
	for i := 0; i < 4; i++ {
		sender.AddToSend(newTestMessage("x"))
		sender.nextToSendAt(0)
	}
	sender.ProcessAcks(lastAcked, bits)
	if len(released) != 4 {
		t.Fatalf("released %d messages, want 4", len(released))
	}
	if len(sender.unacked) != 0 {
		t.Fatalf("unacked not drained: %d left", len(sender.unacked))
	}
}

func TestDropAllUnackedReleasesWithoutRetransmit(t *testing.T) {
	var released []*wire.Message
	c := NewReliableOrdered(0, func(m *wire.Message) { released = append(released, m) })
	c.AddToSend(newTestMessage("a"))
	c.nextToSendAt(0)

	c.DropAllUnacked()
	if len(released) != 1 {
		t.Fatalf("released %d messages, want 1", len(released))
	}
	if got := c.nextToSendAt(1_000_000); got != nil {
		t.Fatalf("expected nothing left to send, got %v", got)
	}
}

func TestSeqGreaterThanHandlesWrap(t *testing.T) {
	cases := []struct {
		s1, s2 uint16
		want   bool
	}{
		{1, 0, true},
		{0, 1, false},
		{0, 65535, true},
		{65535, 0, false},
	}
	for _, c := range cases {
		if got := seqGreaterThan(c.s1, c.s2); got != c.want {
			t.Errorf("seqGreaterThan(%d, %d) = %v, want %v", c.s1, c.s2, got, c.want)
		}
	}
}
