// Package transport implements the Peer/Server/Client connection FSM:
// socket ownership, the per-tick drain-process-retransmit-send loop, and
// the challenge/salt handshake. Grounded on the teacher's
// Server.Start/listen/updateLoop/sessionCleanupLoop tick shape.
package transport

import (
	"time"

	"github.com/netplay-go/netsim/netaddr"
	"github.com/netplay-go/netsim/netconfig"
	"github.com/netplay-go/netsim/netlog"
	"github.com/netplay-go/netsim/netmetrics"
	"github.com/netplay-go/netsim/netpeer"
	"github.com/netplay-go/netsim/neterr"
	"github.com/netplay-go/netsim/replication"
	"github.com/netplay-go/netsim/wire"
)

// peerCore holds the state and tick-loop machinery shared by Server and
// Client. It has no "virtual" dispatch of its own — Go favors composition
// over subclass hooks, so Server and Client each drive their own FSM and
// call into peerCore's helpers explicitly, the way the teacher's Server
// struct is a single flat type rather than a class hierarchy.
type peerCore struct {
	kind PeerKind
	cfg  *netconfig.Config
	log  *netlog.Logger

	sock  *netaddr.Socket
	peers *netpeer.RemotePeersHandler

	factory *wire.Factory
	frag    *wire.Fragmenter
	vars    *replication.NetworkVariableChangesHandler
	repl    *replication.Manager

	subs *subscriptions

	running bool
}

func newPeerCore(kind PeerKind, cfg *netconfig.Config, log *netlog.Logger, maxPeers int) *peerCore {
	if log == nil {
		log = netlog.New(netlogInfoLevel)
	}
	factory := wire.NewFactory()
	vars := replication.NewNetworkVariableChangesHandler(nil)
	return &peerCore{
		kind:    kind,
		cfg:     cfg,
		log:     log,
		peers:   netpeer.NewRemotePeersHandler(maxPeers, cfg.InactivityTimeout),
		factory: factory,
		frag:    wire.NewFragmenter(factory),
		vars:    vars,
		repl:    replication.NewManager(nil, vars, log),
		subs:    newSubscriptions(),
	}
}

// Subscribe registers a Callbacks set and returns its id for Unsubscribe.
func (c *peerCore) Subscribe(cb Callbacks) SubscriptionID { return c.subs.subscribe(cb) }

// Unsubscribe removes a previously registered Callbacks set.
func (c *peerCore) Unsubscribe(id SubscriptionID) { c.subs.unsubscribe(id) }

// RegisterEntityFactory wires the game host's entity factory into the
// replication manager. Must be called before CreateEntity/ClientProcess.
func (c *peerCore) RegisterEntityFactory(factory replication.EntityFactory) {
	c.repl = replication.NewManager(factory, c.vars, c.log)
}

// Replication exposes the replication manager for game-host use
// (CreateEntity/RemoveEntity/ServerReplicateWorldState).
func (c *peerCore) Replication() *replication.Manager { return c.repl }

// LocalAddr returns the bound socket's local address.
func (c *peerCore) LocalAddr() netaddr.Address { return c.sock.LocalAddr() }

func (c *peerCore) bind(addr netaddr.Address) error {
	sock, err := netaddr.Bind(addr)
	if err != nil {
		return err
	}
	c.sock = sock
	c.running = true
	return nil
}

// drainInbound reads up to RecvBudgetPerTick datagrams and dispatches each
// to handle, bounding per-tick work under flood per spec.md §5.
func (c *peerCore) drainInbound(handle func(addr netaddr.Address, raw []byte)) {
	budget := c.cfg.RecvBudgetPerTick
	buf := make([]byte, c.cfg.MaxPacketSize)
	for i := 0; i < budget; i++ {
		n, addr, err := c.sock.Recv(buf)
		if err == netaddr.ErrWouldBlock {
			return
		}
		if err != nil {
			c.log.Warn("recv failed", zapErr(err))
			continue
		}
		netmetrics.PacketsReceived.Inc()
		raw := make([]byte, n)
		copy(raw, buf[:n])
		handle(addr, raw)
	}
}

// decodeIncoming parses raw into a wire.Packet, validating the protocol id.
func (c *peerCore) decodeIncoming(raw []byte) (*wire.Packet, error) {
	return wire.Decode(raw, c.cfg.ProtocolID)
}

// deliverToChannel routes every message in pkt into the RemotePeer's
// channel named by pkt.ChannelID, processes that channel's ack fields, and
// drains newly-ready application messages via onReady. A message carrying
// FlagFragment is one piece of a payload split by Fragmenter.Split on the
// sender's side (see broadcastReplication); it is buffered until every
// sibling piece has arrived and only then handed to onReady as one
// reassembled message, so callers never see a partial payload.
func (c *peerCore) deliverToChannel(rp *netpeer.RemotePeer, pkt *wire.Packet, onReady func(msg *wire.Message)) {
	ch := rp.Channel(netpeer.ChannelID(pkt.ChannelID))
	if ch == nil {
		return
	}
	ch.ProcessAcks(pkt.LastAckedSeq, pkt.AckBitfield)
	for _, msg := range pkt.Messages {
		ch.OnReceive(msg)
	}
	for {
		msg := ch.Ready()
		if msg == nil {
			break
		}
		if msg.IsFragment() {
			payload, kind, flags, ok := c.frag.Add(msg)
			if !ok {
				continue
			}
			onReady(&wire.Message{Kind: kind, Flags: flags, Payload: payload})
			continue
		}
		onReady(msg)
	}
}

// broadcastReplication drains every pending RAT action from the replication
// manager and fans it out to every connected peer, splitting the payload
// into one or more fresh *wire.Messages per peer via this side's Fragmenter
// (see replication.PendingReplication for why the same Message can't be
// shared across peers' channels; most payloads fit in a single piece, and
// Split is a no-op split in that case). RAT_CREATE/RAT_DESTROY
// (FlagReliable set) ride the in-game reliable channel so they're actually
// retransmitted until acked; RAT_UPDATE rides the dedicated replication
// channel, which is UnreliableUnordered: updates are not retransmitted and
// are applied in arrival order, so an older update that arrives after a
// newer one is applied as well. The only staleness control is the per-tick
// coalescing in NetworkVariableChangesHandler.
func (c *peerCore) broadcastReplication() {
	for {
		pr, ok := c.repl.NextPending()
		if !ok {
			return
		}
		for _, rp := range c.peers.All() {
			if rp.State != netpeer.StateConnected {
				continue
			}
			channelID := netpeer.ChannelReplication
			if pr.Flags&wire.FlagReliable != 0 {
				channelID = netpeer.ChannelInGameReliable
			}
			ch := rp.Channel(channelID)
			for _, msg := range c.frag.Split(wire.KindReplication, pr.Flags, pr.Payload, c.cfg.MaxPacketSize) {
				ch.AddToSend(msg)
			}
		}
	}
}

// sendOutbound assembles and sends one packet per active channel for every
// connected or connecting peer, splitting into multiple packets if a
// channel's queued messages exceed MaxPacketSize. A packet is still sent
// when empty of messages so a channel's ack fields reach the peer promptly,
// mirroring the teacher's periodic ACK/NACK datagrams.
func (c *peerCore) sendOutbound() {
	for _, rp := range c.peers.All() {
		for id, ch := range rp.Channels() {
			pkt := wire.NewPacket(c.cfg.ProtocolID, uint8(id), c.cfg.MaxPacketSize)
			for {
				msg := ch.NextToSend()
				if msg == nil {
					break
				}
				if err := pkt.Append(msg); err != nil {
					// Packet full: flush it and start a fresh one for msg.
					c.sendPacket(rp, ch, pkt)
					pkt = wire.NewPacket(c.cfg.ProtocolID, uint8(id), c.cfg.MaxPacketSize)
					_ = pkt.Append(msg)
				}
			}
			c.sendPacket(rp, ch, pkt)
		}
	}
}

func (c *peerCore) sendPacket(rp *netpeer.RemotePeer, ch interface {
	GenerateAcks() (uint16, uint32)
}, pkt *wire.Packet) {
	pkt.LastAckedSeq, pkt.AckBitfield = ch.GenerateAcks()
	data := pkt.Encode()

	// Messages without FlagReliable are fire-and-forget: nothing keeps a
	// reference to them past this datagram, so reclaim them into the
	// factory right away instead of leaking them. Reliable messages stay
	// owned by the channel's unacked map and are released on ack or drop.
	for _, msg := range pkt.Messages {
		if !msg.Reliable() {
			c.factory.Release(msg)
		}
	}

	if err := c.sock.Send(data, rp.Address); err != nil {
		c.log.Warn("send failed", zapErr(err))
		return
	}
	netmetrics.PacketsSent.Inc()
	netmetrics.PacketBytes.Observe(float64(len(data)))
}

// sendTo sends a single ad hoc packet (used for handshake replies that
// predate a RemotePeer's channel set).
func (c *peerCore) sendTo(addr netaddr.Address, channelID uint8, msg *wire.Message) error {
	pkt := wire.NewPacket(c.cfg.ProtocolID, channelID, c.cfg.MaxPacketSize)
	if err := pkt.Append(msg); err != nil {
		return err
	}
	data := pkt.Encode()
	if err := c.sock.Send(data, addr); err != nil {
		return err
	}
	netmetrics.PacketsSent.Inc()
	netmetrics.PacketBytes.Observe(float64(len(data)))
	return nil
}

// reapDisconnects finalizes every peer marked for disconnection this tick,
// firing on_remote_disconnect for each. Must run once per tick after
// message processing (spec.md §3's deferred-disconnection requirement).
func (c *peerCore) reapDisconnects() {
	for _, rp := range c.peers.ReapPending() {
		netmetrics.ConnectedPeers.Dec()
		if rp.ShouldNotify {
			c.subs.fireRemoteDisconnect(rp.ID, rp.DisconnectReason)
		}
	}
}

// stopCommon sends a best-effort Disconnection to every peer, tears down
// the socket, and asserts the message factory is balanced.
func (c *peerCore) stopCommon(reason neterr.DisconnectReason) {
	if !c.running {
		return
	}
	for _, rp := range c.peers.All() {
		msg := c.factory.Lend(wire.KindDisconnection)
		msg.DenyReason = uint8(reason)
		_ = c.sendTo(rp.Address, uint8(netpeer.ChannelHandshake), msg)
		c.factory.Release(msg)
		rp.DropUnackedReliableSends()
	}
	c.running = false
	if c.sock != nil {
		_ = c.sock.Close()
	}
	c.factory.AssertBalanced()
}

const netlogInfoLevel = 0 // zapcore.InfoLevel; kept local to avoid importing zapcore here
