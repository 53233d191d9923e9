package transport

import (
	"crypto/rand"
	"encoding/binary"
	"time"

	"go.uber.org/zap"

	"github.com/netplay-go/netsim/netaddr"
	"github.com/netplay-go/netsim/netbuf"
	"github.com/netplay-go/netsim/netconfig"
	"github.com/netplay-go/netsim/netlog"
	"github.com/netplay-go/netsim/netmetrics"
	"github.com/netplay-go/netsim/netpeer"
	"github.com/netplay-go/netsim/neterr"
	"github.com/netplay-go/netsim/wire"
	"golang.org/x/time/rate"
)

// Server is the authoritative side of the connection: it accepts
// handshakes from unknown addresses up to MaxConnections and drives
// world-state replication. Grounded on the teacher's Server.Start/listen/
// updateLoop/sessionCleanupLoop/handleGamePacket shape, generalized from
// SA-MP's fixed RPC dispatch to spec.md §4.7's salt handshake FSM.
type Server struct {
	*peerCore

	// handshakeLimiter paces unknown-address ConnectionRequest processing,
	// grounded on wireguard-go's per-handshake rate limiting concern
	// (DESIGN.md) but implemented with the idiomatic x/time/rate bucket.
	handshakeLimiter *rate.Limiter
}

// NewServer constructs a Server bound to no socket yet; call Start to bind.
func NewServer(cfg *netconfig.Config, log *netlog.Logger) *Server {
	return &Server{
		peerCore:         newPeerCore(PeerKindServer, cfg, log, cfg.MaxConnections),
		handshakeLimiter: rate.NewLimiter(rate.Limit(50), 50),
	}
}

// Start binds the listening socket.
func (s *Server) Start() error {
	addr := netaddr.Address{Port: uint16(s.cfg.Port)}
	if ip, ok := parseHostIPv4(s.cfg.Host); ok {
		addr.IP = ip
	}
	return s.bind(addr)
}

// Stop disconnects every connected peer and tears down the socket.
func (s *Server) Stop() {
	s.stopCommon(neterr.ReasonPeerShutDown)
	s.subs.fireLocalDisconnect(neterr.ReasonPeerShutDown)
}

// Tick drains inbound datagrams, advances handshake/replication state,
// finalizes disconnections, and assembles outbound packets — the shared
// shape from spec.md §4.7's tick(dt).
func (s *Server) Tick(dt time.Duration) {
	now := time.Now()
	s.drainInbound(func(addr netaddr.Address, raw []byte) {
		s.handleDatagram(addr, raw, now)
	})

	for _, rp := range s.peers.Tick(now) {
		netmetrics.ConnectionsTimedOut.Inc()
		s.log.Info("peer timed out", zap.Uint16("peer_id", rp.ID))
	}

	s.reapDisconnects()
	s.broadcastReplication()
	s.sendOutbound()
}

func (s *Server) handleDatagram(addr netaddr.Address, raw []byte, now time.Time) {
	pkt, err := s.decodeIncoming(raw)
	if err != nil {
		s.log.Warn("malformed packet", zap.String("addr", addr.String()))
		return
	}

	if rp, ok := s.peers.FindByAddress(addr); ok {
		rp.TouchLiveness(now)
		s.deliverToChannel(rp, pkt, func(msg *wire.Message) {
			s.handleMessage(rp, msg)
		})
		return
	}

	s.handleUnknownPeerDatagram(addr, pkt)
}

func (s *Server) handleUnknownPeerDatagram(addr netaddr.Address, pkt *wire.Packet) {
	for _, msg := range pkt.Messages {
		if msg.Kind != wire.KindConnectionRequest {
			continue // non-handshake traffic from an unknown peer is silently dropped
		}
		if !s.handshakeLimiter.Allow() {
			return
		}
		s.beginHandshake(addr, msg)
		return
	}
}

func (s *Server) beginHandshake(addr netaddr.Address, req *wire.Message) {
	serverSalt, err := randomSalt()
	if err != nil {
		s.log.Error("failed to generate server salt", zapErr(err))
		return
	}

	id := s.peers.AllocateID()
	rp := netpeer.NewRemotePeer(id, addr, s.cfg.RTOInitial, s.factory.Release, time.Now())
	rp.ClientSalt = req.ClientSalt
	rp.ServerSalt = serverSalt

	if err := s.peers.Add(rp); err != nil {
		netmetrics.ConnectionsDenied.Inc()
		s.denyConnection(addr, neterr.ReasonServerFull)
		return
	}

	challenge := s.factory.Lend(wire.KindConnectionChallenge)
	challenge.Flags = wire.FlagReliable | wire.FlagOrdered
	challenge.ClientSalt = rp.ClientSalt
	challenge.ServerSalt = rp.ServerSalt
	rp.Channel(netpeer.ChannelHandshake).AddToSend(challenge)
}

func (s *Server) handleMessage(rp *netpeer.RemotePeer, msg *wire.Message) {
	switch msg.Kind {
	case wire.KindConnectionRequest:
		s.resendChallenge(rp)
	case wire.KindConnectionChallengeResponse:
		s.handleChallengeResponse(rp, msg)
	case wire.KindDisconnection:
		rp.BeginDisconnect(neterr.ReasonPeerShutDown, true)
	case wire.KindReplication:
		// The server is the sole replication authority; inbound replication
		// traffic from a client is out of this spec's scope and is dropped.
	default:
		// In-game payloads are handed to the embedding game host via its
		// own message loop; this library only guarantees delivery order.
	}
}

// resendChallenge re-sends the Challenge for a peer that is still
// StateConnecting, so a client retrying its ConnectionRequest (its own
// Challenge reply having been lost) gets re-challenged with the same
// server_salt instead of being silently ignored (spec.md §4.7 step 1,
// Testable Scenario #4). Once a peer has advanced past StateConnecting the
// request is a stale retry racing the real handshake outcome and is
// dropped.
func (s *Server) resendChallenge(rp *netpeer.RemotePeer) {
	if rp.State != netpeer.StateConnecting {
		return
	}
	challenge := s.factory.Lend(wire.KindConnectionChallenge)
	challenge.Flags = wire.FlagReliable | wire.FlagOrdered
	challenge.ClientSalt = rp.ClientSalt
	challenge.ServerSalt = rp.ServerSalt
	rp.Channel(netpeer.ChannelHandshake).AddToSend(challenge)
}

func (s *Server) handleChallengeResponse(rp *netpeer.RemotePeer, msg *wire.Message) {
	if rp.State != netpeer.StateConnecting {
		return
	}
	if msg.ClientSalt != rp.ClientSalt || msg.ServerSalt != rp.ServerSalt {
		return // forged or stale response, drop silently
	}

	rp.MarkConnected()
	netmetrics.ConnectionsAccepted.Inc()
	netmetrics.ConnectedPeers.Inc()

	accepted := s.factory.Lend(wire.KindConnectionAccepted)
	accepted.Flags = wire.FlagReliable | wire.FlagOrdered
	b := netbuf.New()
	b.WriteUint16(rp.ID)
	accepted.Payload = append(accepted.Payload[:0], b.Bytes()...)
	rp.Channel(netpeer.ChannelHandshake).AddToSend(accepted)

	s.subs.fireRemoteConnect(rp.ID)
}

func (s *Server) denyConnection(addr netaddr.Address, reason neterr.DisconnectReason) {
	deny := s.factory.Lend(wire.KindConnectionDenied)
	deny.DenyReason = uint8(reason)
	_ = s.sendTo(addr, uint8(netpeer.ChannelHandshake), deny)
	s.factory.Release(deny)
}

func randomSalt() (uint64, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

// parseHostIPv4 handles the "0.0.0.0" wildcard and dotted-quad hosts the
// way netconfig.Config.Host is documented to accept; anything else leaves
// addr.IP zeroed (wildcard bind).
func parseHostIPv4(host string) (ip [4]byte, ok bool) {
	if host == "" || host == "0.0.0.0" {
		return ip, false
	}
	parsed := parseDottedQuad(host)
	if parsed == nil {
		return ip, false
	}
	copy(ip[:], parsed)
	return ip, true
}

func parseDottedQuad(host string) []byte {
	var parts [4]int
	n := 0
	cur := 0
	for i := 0; i <= len(host); i++ {
		if i == len(host) || host[i] == '.' {
			if n >= 4 {
				return nil
			}
			parts[n] = cur
			n++
			cur = 0
			continue
		}
		c := host[i]
		if c < '0' || c > '9' {
			return nil
		}
		cur = cur*10 + int(c-'0')
	}
	if n != 4 {
		return nil
	}
	out := make([]byte, 4)
	for i, p := range parts {
		if p > 255 {
			return nil
		}
		out[i] = byte(p)
	}
	return out
}
