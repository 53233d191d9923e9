// Package netaddr provides the UDP endpoint value type and a non-blocking
// socket wrapper used by every layer above it.
package netaddr

import (
	"fmt"
	"net"
)

// Address is an IPv4 endpoint. It is a value type: two Addresses compare
// equal iff both the IP and port match.
type Address struct {
	IP   [4]byte
	Port uint16
}

// FromUDPAddr converts a *net.UDPAddr into an Address, dropping anything
// that isn't a 4-byte IPv4 address.
func FromUDPAddr(addr *net.UDPAddr) (Address, bool) {
	if addr == nil {
		return Address{}, false
	}
	ip4 := addr.IP.To4()
	if ip4 == nil {
		return Address{}, false
	}
	var a Address
	copy(a.IP[:], ip4)
	a.Port = uint16(addr.Port)
	return a, true
}

// UDPAddr converts back to a *net.UDPAddr for use with net.UDPConn.
func (a Address) UDPAddr() *net.UDPAddr {
	return &net.UDPAddr{
		IP:   net.IPv4(a.IP[0], a.IP[1], a.IP[2], a.IP[3]),
		Port: int(a.Port),
	}
}

// Equal reports whether two addresses name the same (ip, port) pair.
func (a Address) Equal(other Address) bool {
	return a.IP == other.IP && a.Port == other.Port
}

func (a Address) String() string {
	return fmt.Sprintf("%d.%d.%d.%d:%d", a.IP[0], a.IP[1], a.IP[2], a.IP[3], a.Port)
}
