package netpeer

import (
	"time"

	"github.com/netplay-go/netsim/netaddr"
	"github.com/netplay-go/netsim/neterr"
)

// DefaultInactivityTimeout is how long a peer may stay silent before it is
// marked for disconnection (spec.md §6).
const DefaultInactivityTimeout = 5 * time.Second

// RemotePeersHandler owns the full set of connections a transport.Peer is
// tracking, indexed by both peer id and remote address so inbound datagrams
// and outbound game-level lookups are both O(1). Grounded on the teacher's
// Server.Players map plus its address-keyed raknet session table.
type RemotePeersHandler struct {
	byID      map[uint16]*RemotePeer
	byAddress map[netaddr.Address]*RemotePeer

	maxPeers          int
	inactivityTimeout time.Duration
	nextID            uint16
}

// NewRemotePeersHandler constructs an empty handler capped at maxPeers
// simultaneous connections.
func NewRemotePeersHandler(maxPeers int, inactivityTimeout time.Duration) *RemotePeersHandler {
	if inactivityTimeout <= 0 {
		inactivityTimeout = DefaultInactivityTimeout
	}
	return &RemotePeersHandler{
		byID:              make(map[uint16]*RemotePeer),
		byAddress:         make(map[netaddr.Address]*RemotePeer),
		maxPeers:          maxPeers,
		inactivityTimeout: inactivityTimeout,
	}
}

// Add registers a newly-handshaked peer. Returns ErrCapacityExceeded if the
// handler is full and ErrAlreadyConnected if addr already has a live peer.
func (h *RemotePeersHandler) Add(p *RemotePeer) error {
	if _, exists := h.byAddress[p.Address]; exists {
		return neterr.ErrAlreadyConnected
	}
	if h.maxPeers > 0 && len(h.byID) >= h.maxPeers {
		return neterr.ErrCapacityExceeded
	}
	h.byID[p.ID] = p
	h.byAddress[p.Address] = p
	return nil
}

// AllocateID returns the next unused peer id, wrapping on overflow.
func (h *RemotePeersHandler) AllocateID() uint16 {
	for {
		id := h.nextID
		h.nextID++
		if _, taken := h.byID[id]; !taken {
			return id
		}
	}
}

// FindByAddress looks up a peer by remote address.
func (h *RemotePeersHandler) FindByAddress(addr netaddr.Address) (*RemotePeer, bool) {
	p, ok := h.byAddress[addr]
	return p, ok
}

// FindByID looks up a peer by id.
func (h *RemotePeersHandler) FindByID(id uint16) (*RemotePeer, bool) {
	p, ok := h.byID[id]
	return p, ok
}

// Remove drops a peer from both indices.
func (h *RemotePeersHandler) Remove(id uint16) {
	p, ok := h.byID[id]
	if !ok {
		return
	}
	delete(h.byID, id)
	delete(h.byAddress, p.Address)
}

// Len reports the number of currently-tracked peers.
func (h *RemotePeersHandler) Len() int { return len(h.byID) }

// All returns every tracked peer. Callers must not mutate the slice.
func (h *RemotePeersHandler) All() []*RemotePeer {
	peers := make([]*RemotePeer, 0, len(h.byID))
	for _, p := range h.byID {
		peers = append(peers, p)
	}
	return peers
}

// Tick advances inactivity timers, marking any peer silent for longer than
// the configured timeout for deferred disconnection. Returns the peers
// newly marked this call so the caller can queue disconnect notifications.
func (h *RemotePeersHandler) Tick(now time.Time) []*RemotePeer {
	var timedOut []*RemotePeer
	for _, p := range h.byID {
		if p.PendingDisconnect {
			continue
		}
		if p.Inactive(now, h.inactivityTimeout) {
			p.BeginDisconnect(neterr.ReasonTimeout, true)
			timedOut = append(timedOut, p)
		}
	}
	return timedOut
}

// ReapPending finalizes every peer marked PendingDisconnect: drops
// outstanding reliable sends and removes it from both indices. Must run
// once per tick after message processing, per spec.md §3's deferred
// disconnection requirement.
func (h *RemotePeersHandler) ReapPending() []*RemotePeer {
	var reaped []*RemotePeer
	for id, p := range h.byID {
		if !p.PendingDisconnect {
			continue
		}
		p.DropUnackedReliableSends()
		delete(h.byID, id)
		delete(h.byAddress, p.Address)
		reaped = append(reaped, p)
	}
	return reaped
}
