package transport

// PeerKind distinguishes the two concrete Peer roles. Resolves spec.md §9's
// dual client/server enum question into one canonical type shared by both
// Server and Client (see DESIGN.md).
type PeerKind int

const (
	PeerKindNone PeerKind = iota
	PeerKindClient
	PeerKindServer
)

func (k PeerKind) String() string {
	switch k {
	case PeerKindClient:
		return "Client"
	case PeerKindServer:
		return "Server"
	default:
		return "None"
	}
}
