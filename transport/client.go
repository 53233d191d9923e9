package transport

import (
	"time"

	"github.com/netplay-go/netsim/netaddr"
	"github.com/netplay-go/netsim/netbuf"
	"github.com/netplay-go/netsim/netconfig"
	"github.com/netplay-go/netsim/netlog"
	"github.com/netplay-go/netsim/netmetrics"
	"github.com/netplay-go/netsim/netpeer"
	"github.com/netplay-go/netsim/neterr"
	"github.com/netplay-go/netsim/wire"
)

// connState is the client-local handshake/connection state, distinct from
// netpeer.State (which only tracks Connecting/Connected/Disconnecting for
// the RemotePeer record representing the server).
type connState int

const (
	connIdle connState = iota
	connSendingConnectionRequest
	connSendingChallengeResponse
	connConnected
	connFailed
)

// Client is the connecting side: it drives the handshake retry/timeout FSM
// against a single Server and represents that server as its one
// netpeer.RemotePeer. Grounded on spec.md §4.7's client FSM; no direct
// teacher analogue (SA-MP has no Go client), built in the teacher's
// struct-plus-explicit-FSM style.
type Client struct {
	*peerCore

	serverAddr netaddr.Address
	serverPeer *netpeer.RemotePeer
	clientSalt uint64

	// LocalPeerID is this client's id as assigned by the server in
	// ConnectionAccepted, used as controlled_by_peer_id in replication.
	LocalPeerID uint16

	state           connState
	retries         int
	retryDeadline   time.Time
	overallDeadline time.Time
}

// NewClient constructs an unconnected Client.
func NewClient(cfg *netconfig.Config, log *netlog.Logger) *Client {
	return &Client{
		peerCore: newPeerCore(PeerKindClient, cfg, log, 1),
		state:    connIdle,
	}
}

// Start binds an ephemeral local socket.
func (c *Client) Start() error {
	return c.bind(netaddr.Address{})
}

// Connect begins the handshake against addr: a fresh client_salt, bounded
// retries at ConnectRetryInterval, failing with ConnectionTimeout if
// ConnectOverallTimeout elapses (spec.md §4.7's client FSM).
func (c *Client) Connect(addr netaddr.Address) error {
	salt, err := randomSalt()
	if err != nil {
		return err
	}

	now := time.Now()
	c.serverAddr = addr
	c.clientSalt = salt
	c.serverPeer = netpeer.NewRemotePeer(0, addr, c.cfg.RTOInitial, c.factory.Release, now)
	c.serverPeer.ClientSalt = salt
	if err := c.peers.Add(c.serverPeer); err != nil {
		return err
	}

	c.state = connSendingConnectionRequest
	c.retries = 0
	c.retryDeadline = now
	c.overallDeadline = now.Add(c.cfg.ConnectOverallTimeout)
	return nil
}

// Stop disconnects (if connected) and tears down the socket.
func (c *Client) Stop() {
	c.stopCommon(neterr.ReasonPeerShutDown)
	c.subs.fireLocalDisconnect(neterr.ReasonPeerShutDown)
}

// Tick drains inbound datagrams, advances the handshake retry timers, and
// sends queued outbound traffic.
func (c *Client) Tick(dt time.Duration) {
	now := time.Now()
	c.drainInbound(func(addr netaddr.Address, raw []byte) {
		if !addr.Equal(c.serverAddr) {
			return
		}
		c.handleDatagram(raw, now)
	})

	c.advanceHandshake(now)
	c.reapDisconnects()
	c.broadcastReplication()
	c.sendOutbound()
}

func (c *Client) advanceHandshake(now time.Time) {
	switch c.state {
	case connSendingConnectionRequest, connSendingChallengeResponse:
	default:
		return
	}

	if now.After(c.overallDeadline) {
		c.failHandshake(neterr.ReasonConnectionTimeout)
		return
	}
	if now.Before(c.retryDeadline) {
		return
	}
	if c.retries >= c.cfg.ConnectMaxRetries {
		c.failHandshake(neterr.ReasonConnectionTimeout)
		return
	}

	c.retries++
	c.retryDeadline = now.Add(c.cfg.ConnectRetryInterval)
	c.resendHandshakeMessage()
}

func (c *Client) resendHandshakeMessage() {
	var msg *wire.Message
	switch c.state {
	case connSendingConnectionRequest:
		msg = c.factory.Lend(wire.KindConnectionRequest)
		msg.Flags = wire.FlagReliable | wire.FlagOrdered
		msg.ClientSalt = c.clientSalt
	case connSendingChallengeResponse:
		msg = c.factory.Lend(wire.KindConnectionChallengeResponse)
		msg.Flags = wire.FlagReliable | wire.FlagOrdered
		msg.ClientSalt = c.clientSalt
		msg.ServerSalt = c.serverPeer.ServerSalt
	default:
		return
	}
	_ = c.sendTo(c.serverAddr, uint8(netpeer.ChannelHandshake), msg)
	c.factory.Release(msg)
}

func (c *Client) failHandshake(reason neterr.DisconnectReason) {
	c.state = connFailed
	c.peers.Remove(c.serverPeer.ID)
	c.subs.fireLocalConnectionFailed(reason)
}

func (c *Client) handleDatagram(raw []byte, now time.Time) {
	pkt, err := c.decodeIncoming(raw)
	if err != nil {
		c.log.Warn("malformed packet from server")
		return
	}
	c.serverPeer.TouchLiveness(now)
	c.deliverToChannel(c.serverPeer, pkt, func(msg *wire.Message) {
		c.handleMessage(msg)
	})
}

func (c *Client) handleMessage(msg *wire.Message) {
	switch msg.Kind {
	case wire.KindConnectionChallenge:
		c.handleChallenge(msg)
	case wire.KindConnectionAccepted:
		c.handleAccepted(msg)
	case wire.KindConnectionDenied:
		c.handleDenied(msg)
	case wire.KindDisconnection:
		c.handleServerDisconnect(neterr.DisconnectReason(msg.DenyReason))
	case wire.KindReplication:
		if c.repl != nil {
			if err := c.repl.ClientProcess(msg); err != nil {
				c.log.Warn("failed to apply replication message", zapErr(err))
			}
		}
	default:
		// In-game payloads are surfaced to the embedding game host's own
		// message loop; this library only guarantees delivery order.
	}
}

func (c *Client) handleChallenge(msg *wire.Message) {
	if c.state != connSendingConnectionRequest {
		return
	}
	if msg.ClientSalt != c.clientSalt {
		return
	}
	c.serverPeer.ServerSalt = msg.ServerSalt
	c.state = connSendingChallengeResponse
	c.retries = 0
	c.retryDeadline = time.Time{}
	c.resendHandshakeMessage()
}

func (c *Client) handleAccepted(msg *wire.Message) {
	if c.state != connSendingChallengeResponse {
		return
	}
	b := netbuf.Wrap(msg.Payload)
	c.LocalPeerID = b.ReadUint16()
	if b.Err() != nil {
		return
	}

	c.serverPeer.MarkConnected()
	c.state = connConnected
	netmetrics.ConnectedPeers.Inc()
	c.subs.fireLocalConnect()
}

func (c *Client) handleDenied(msg *wire.Message) {
	if c.state != connSendingConnectionRequest && c.state != connSendingChallengeResponse {
		return
	}
	reason := neterr.DisconnectReason(msg.DenyReason)
	c.state = connFailed
	c.peers.Remove(c.serverPeer.ID)
	c.subs.fireLocalConnectionFailed(reason)
}

func (c *Client) handleServerDisconnect(reason neterr.DisconnectReason) {
	if c.state != connConnected {
		return
	}
	c.state = connFailed
	netmetrics.ConnectedPeers.Dec()
	c.peers.Remove(c.serverPeer.ID)
	c.subs.fireLocalDisconnect(reason)
}

// Connected reports whether the handshake has completed.
func (c *Client) Connected() bool { return c.state == connConnected }
