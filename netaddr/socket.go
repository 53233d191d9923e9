package netaddr

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/netplay-go/netsim/neterr"
)

// Socket is a single non-blocking UDP endpoint. A Peer owns exactly one.
type Socket struct {
	conn *net.UDPConn
}

// Bind opens a UDP socket on addr. It fails with neterr.ErrBindFailed.
func Bind(addr Address) (*Socket, error) {
	conn, err := net.ListenUDP("udp4", addr.UDPAddr())
	if err != nil {
		return nil, fmt.Errorf("bind %s: %w", addr, neterr.ErrBindFailed)
	}
	return &Socket{conn: conn}, nil
}

// Close releases the underlying file descriptor.
func (s *Socket) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

// Send writes buf to addr without blocking. Transient errors (e.g. a
// momentarily full send buffer) are swallowed per spec.md §4.1; only
// unrecoverable errors surface as neterr.ErrSendFailed.
func (s *Socket) Send(buf []byte, addr Address) error {
	_, err := s.conn.WriteToUDP(buf, addr.UDPAddr())
	if err == nil {
		return nil
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return nil
	}
	return fmt.Errorf("send to %s: %w", addr, neterr.ErrSendFailed)
}

// ErrWouldBlock is returned by Recv when no datagram is currently queued.
var ErrWouldBlock = errors.New("netaddr: would block")

// Recv reads a single datagram into buf without blocking for longer than a
// tiny deadline, returning ErrWouldBlock when nothing is pending.
func (s *Socket) Recv(buf []byte) (int, Address, error) {
	_ = s.conn.SetReadDeadline(time.Now().Add(time.Microsecond))
	n, udpAddr, err := s.conn.ReadFromUDP(buf)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return 0, Address{}, ErrWouldBlock
		}
		return 0, Address{}, fmt.Errorf("recv: %w", neterr.ErrRecvFailed)
	}
	addr, ok := FromUDPAddr(udpAddr)
	if !ok {
		return 0, Address{}, ErrWouldBlock
	}
	return n, addr, nil
}

// LocalAddr returns the bound local address.
func (s *Socket) LocalAddr() Address {
	addr, _ := FromUDPAddr(s.conn.LocalAddr().(*net.UDPAddr))
	return addr
}
