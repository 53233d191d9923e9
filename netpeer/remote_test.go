package netpeer

import (
	"testing"
	"time"

	"github.com/netplay-go/netsim/netaddr"
	"github.com/netplay-go/netsim/neterr"
	"github.com/netplay-go/netsim/wire"
)

func testAddr(port uint16) netaddr.Address {
	return netaddr.Address{IP: [4]byte{127, 0, 0, 1}, Port: port}
}

func TestNewRemotePeerStartsConnecting(t *testing.T) {
	now := time.Now()
	p := NewRemotePeer(1, testAddr(9000), 0, nil, now)

	if p.State != StateConnecting {
		t.Errorf("expected StateConnecting, got %v", p.State)
	}
	if p.CorrelationID.String() == "" {
		t.Error("expected a non-empty correlation id")
	}
	for id := ChannelID(0); id < numChannels; id++ {
		if p.Channel(id) == nil {
			t.Errorf("channel %d not initialized", id)
		}
	}
}

func TestMarkConnectedFixesXoredSalt(t *testing.T) {
	p := NewRemotePeer(1, testAddr(9000), 0, nil, time.Now())
	p.ClientSalt = 0xAAAA
	p.ServerSalt = 0x5555

	p.MarkConnected()

	if p.State != StateConnected {
		t.Errorf("expected StateConnected, got %v", p.State)
	}
	if want := uint64(0xAAAA ^ 0x5555); p.XoredSalt != want {
		t.Errorf("expected xored salt %x, got %x", want, p.XoredSalt)
	}
}

func TestInactiveHonorsTimeout(t *testing.T) {
	now := time.Now()
	p := NewRemotePeer(1, testAddr(9000), 0, nil, now)

	if p.Inactive(now.Add(time.Second), 5*time.Second) {
		t.Error("should not be inactive before timeout elapses")
	}
	if !p.Inactive(now.Add(6*time.Second), 5*time.Second) {
		t.Error("should be inactive once timeout elapses")
	}
}

func TestBeginDisconnectIsIdempotent(t *testing.T) {
	p := NewRemotePeer(1, testAddr(9000), 0, nil, time.Now())

	p.BeginDisconnect(neterr.ReasonTimeout, true)
	p.BeginDisconnect(neterr.ReasonServerFull, false)

	if p.DisconnectReason != neterr.ReasonTimeout {
		t.Errorf("expected first reason to stick, got %v", p.DisconnectReason)
	}
	if !p.ShouldNotify {
		t.Error("expected first notify flag to stick")
	}
}

func TestDropUnackedReliableSendsReleasesMessages(t *testing.T) {
	var released []*wire.Message
	release := func(m *wire.Message) { released = append(released, m) }

	p := NewRemotePeer(1, testAddr(9000), 10*time.Millisecond, release, time.Now())
	msg := &wire.Message{Kind: wire.KindInGame}
	p.Channel(ChannelHandshake).AddToSend(msg)
	if got := p.Channel(ChannelHandshake).NextToSend(); got == nil {
		t.Fatal("expected a message to send")
	}

	p.DropUnackedReliableSends()

	if len(released) != 1 {
		t.Fatalf("expected 1 released message, got %d", len(released))
	}
}
