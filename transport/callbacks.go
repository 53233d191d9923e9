package transport

import (
	"sync/atomic"

	"github.com/netplay-go/netsim/neterr"
)

// SubscriptionID identifies a registered callback for later Unsubscribe.
type SubscriptionID uint64

// Callbacks bundles every event a host can subscribe to, per spec.md §6's
// embedding API. Any field left nil is simply never invoked.
type Callbacks struct {
	OnLocalConnect          func()
	OnLocalDisconnect       func(reason neterr.DisconnectReason)
	OnLocalConnectionFailed func(reason neterr.DisconnectReason)
	OnRemoteConnect         func(peerID uint16)
	OnRemoteDisconnect      func(peerID uint16, reason neterr.DisconnectReason)
}

// subscriptions is a monotonic-id registry of Callbacks, letting a host
// attach and detach observers at runtime without the Peer knowing how many
// there are or in what order they were added.
type subscriptions struct {
	nextID uint64
	byID   map[SubscriptionID]Callbacks
}

func newSubscriptions() *subscriptions {
	return &subscriptions{byID: make(map[SubscriptionID]Callbacks)}
}

func (s *subscriptions) subscribe(cb Callbacks) SubscriptionID {
	id := SubscriptionID(atomic.AddUint64(&s.nextID, 1))
	s.byID[id] = cb
	return id
}

func (s *subscriptions) unsubscribe(id SubscriptionID) {
	delete(s.byID, id)
}

func (s *subscriptions) fireLocalConnect() {
	for _, cb := range s.byID {
		if cb.OnLocalConnect != nil {
			cb.OnLocalConnect()
		}
	}
}

func (s *subscriptions) fireLocalDisconnect(reason neterr.DisconnectReason) {
	for _, cb := range s.byID {
		if cb.OnLocalDisconnect != nil {
			cb.OnLocalDisconnect(reason)
		}
	}
}

func (s *subscriptions) fireLocalConnectionFailed(reason neterr.DisconnectReason) {
	for _, cb := range s.byID {
		if cb.OnLocalConnectionFailed != nil {
			cb.OnLocalConnectionFailed(reason)
		}
	}
}

func (s *subscriptions) fireRemoteConnect(peerID uint16) {
	for _, cb := range s.byID {
		if cb.OnRemoteConnect != nil {
			cb.OnRemoteConnect(peerID)
		}
	}
}

func (s *subscriptions) fireRemoteDisconnect(peerID uint16, reason neterr.DisconnectReason) {
	for _, cb := range s.byID {
		if cb.OnRemoteDisconnect != nil {
			cb.OnRemoteDisconnect(peerID, reason)
		}
	}
}
