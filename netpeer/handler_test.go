package netpeer

import (
	"testing"
	"time"

	"github.com/netplay-go/netsim/neterr"
)

func TestHandlerAddAndLookup(t *testing.T) {
	h := NewRemotePeersHandler(2, time.Second)
	p := NewRemotePeer(h.AllocateID(), testAddr(9000), 0, nil, time.Now())

	if err := h.Add(p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, ok := h.FindByID(p.ID); !ok || got != p {
		t.Error("expected to find peer by id")
	}
	if got, ok := h.FindByAddress(p.Address); !ok || got != p {
		t.Error("expected to find peer by address")
	}
	if h.Len() != 1 {
		t.Errorf("expected 1 tracked peer, got %d", h.Len())
	}
}

func TestHandlerRejectsDuplicateAddress(t *testing.T) {
	h := NewRemotePeersHandler(2, time.Second)
	addr := testAddr(9000)
	first := NewRemotePeer(h.AllocateID(), addr, 0, nil, time.Now())
	if err := h.Add(first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second := NewRemotePeer(h.AllocateID(), addr, 0, nil, time.Now())
	if err := h.Add(second); err != neterr.ErrAlreadyConnected {
		t.Errorf("expected ErrAlreadyConnected, got %v", err)
	}
}

func TestHandlerRejectsOverCapacity(t *testing.T) {
	h := NewRemotePeersHandler(1, time.Second)
	if err := h.Add(NewRemotePeer(h.AllocateID(), testAddr(9000), 0, nil, time.Now())); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := h.Add(NewRemotePeer(h.AllocateID(), testAddr(9001), 0, nil, time.Now()))
	if err != neterr.ErrCapacityExceeded {
		t.Errorf("expected ErrCapacityExceeded, got %v", err)
	}
}

func TestHandlerTickMarksTimeouts(t *testing.T) {
	h := NewRemotePeersHandler(4, 5*time.Second)
	start := time.Now()
	p := NewRemotePeer(h.AllocateID(), testAddr(9000), 0, nil, start)
	if err := h.Add(p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if timedOut := h.Tick(start.Add(time.Second)); len(timedOut) != 0 {
		t.Errorf("expected no timeouts yet, got %d", len(timedOut))
	}

	timedOut := h.Tick(start.Add(10 * time.Second))
	if len(timedOut) != 1 {
		t.Fatalf("expected 1 timeout, got %d", len(timedOut))
	}
	if timedOut[0].DisconnectReason != neterr.ReasonTimeout {
		t.Errorf("expected ReasonTimeout, got %v", timedOut[0].DisconnectReason)
	}
}

func TestHandlerReapPendingRemovesFromBothIndices(t *testing.T) {
	h := NewRemotePeersHandler(4, 5*time.Second)
	p := NewRemotePeer(h.AllocateID(), testAddr(9000), 0, nil, time.Now())
	if err := h.Add(p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	p.BeginDisconnect(neterr.ReasonPeerShutDown, false)
	reaped := h.ReapPending()

	if len(reaped) != 1 {
		t.Fatalf("expected 1 reaped peer, got %d", len(reaped))
	}
	if _, ok := h.FindByID(p.ID); ok {
		t.Error("peer should no longer be findable by id")
	}
	if _, ok := h.FindByAddress(p.Address); ok {
		t.Error("peer should no longer be findable by address")
	}
	if h.Len() != 0 {
		t.Errorf("expected 0 tracked peers, got %d", h.Len())
	}
}

func TestAllocateIDSkipsTaken(t *testing.T) {
	h := NewRemotePeersHandler(4, time.Second)
	first := h.AllocateID()
	p := NewRemotePeer(first, testAddr(9000), 0, nil, time.Now())
	if err := h.Add(p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second := h.AllocateID()
	if second == first {
		t.Error("expected a distinct id for the second allocation")
	}
}
