package replication

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/netplay-go/netsim/netbuf"
	"github.com/netplay-go/netsim/netlog"
	"github.com/netplay-go/netsim/wire"
)

// ActionType tags which replication action a RAT message payload carries.
// spec.md §6 fixes each action's payload layout but never says how a
// receiver distinguishes one from another on the wire (every action shares
// wire.KindReplication); we resolve that the way the teacher's RPC opcodes
// do (source/protocol/rpc.go: a leading id byte ahead of the payload
// fields) by prefixing every replication payload with this one-byte tag.
type ActionType uint8

const (
	ActionCreate ActionType = iota
	ActionUpdate
	ActionDestroy
)

// EntityFactory is the external boundary replication uses to create and
// destroy game-side objects; the manager never touches game state directly.
type EntityFactory interface {
	Create(typeID uint32, id EntityID, controlledBy uint32, posX, posY float32, vars *NetworkVariableChangesHandler) (handle any)
	Destroy(handle any)
}

// entityRecord is the manager's bookkeeping for one live networked entity.
type entityRecord struct {
	TypeID       uint32
	ControlledBy uint32
	Handle       any
}

// PendingReplication is one queued RAT action, carrying the wire flags and
// the already-encoded payload. spec.md §4.9 writes the to_send/in_flight
// queues in terms of a single message handed to a single peer; here a RAT
// action fans out to every connected peer, and each peer's ReliableOrdered/
// UnreliableUnordered channel assigns its own sequence number into the
// *wire.Message it owns, so the same Message pointer cannot be shared
// across peers (two channels would race on the one Sequence field). Manager
// therefore only hands out the canonical flags+payload; the transport layer
// lends one *wire.Message per peer from that template.
type PendingReplication struct {
	Flags   uint8
	Payload []byte
}

// Manager owns the entity id space and the create/update/destroy message
// lifecycle spec.md §4.9 describes. Grounded on spec.md §4.9 directly; no
// teacher analogue (SA-MP has no generic entity replication), generalized
// in the teacher's style of a single struct with id-keyed maps (see
// Server.Players).
type Manager struct {
	factory EntityFactory
	vars    *NetworkVariableChangesHandler
	log     *netlog.Logger

	nextEntityID EntityID
	entities     map[EntityID]*entityRecord

	toSend []PendingReplication
}

// NewManager constructs a Manager. factory may be nil on a pure relay, but
// must be set before CreateEntity/ClientProcess are called. log follows the
// same nil-defaults-to-a-logger pattern as transport.peerCore.
func NewManager(factory EntityFactory, vars *NetworkVariableChangesHandler, log *netlog.Logger) *Manager {
	if log == nil {
		log = netlog.New(zapcore.InfoLevel)
	}
	return &Manager{
		factory:  factory,
		vars:     vars,
		log:      log,
		entities: make(map[EntityID]*entityRecord),
	}
}

func (m *Manager) allocateEntityID() EntityID {
	for {
		m.nextEntityID++
		if m.nextEntityID != InvalidEntityID {
			return m.nextEntityID
		}
	}
}

// CreateEntity is server-only: it allocates an id, invokes the external
// factory, and enqueues a reliable-ordered RAT_CREATE.
func (m *Manager) CreateEntity(typeID uint32, controlledBy uint32, posX, posY float32) EntityID {
	id := m.allocateEntityID()
	handle := m.factory.Create(typeID, id, controlledBy, posX, posY, m.vars)
	m.entities[id] = &entityRecord{TypeID: typeID, ControlledBy: controlledBy, Handle: handle}

	b := netbuf.New()
	b.WriteByte(byte(ActionCreate))
	b.WriteUint32(typeID)
	b.WriteUint32(uint32(id))
	b.WriteUint32(controlledBy)
	b.WriteFloat32(posX)
	b.WriteFloat32(posY)
	m.enqueue(wire.FlagReliable|wire.FlagOrdered, b.Bytes())
	return id
}

// RemoveEntity destroys the game handle for id and enqueues a
// reliable-ordered RAT_DESTROY. An unknown id is logged and ignored
// (non-fatal per spec.md §4.9).
func (m *Manager) RemoveEntity(id EntityID) {
	rec, ok := m.entities[id]
	if !ok {
		m.log.Warn("remove of unknown entity id ignored", zap.Uint32("entity_id", uint32(id)))
		return
	}
	m.factory.Destroy(rec.Handle)
	delete(m.entities, id)

	b := netbuf.New()
	b.WriteByte(byte(ActionDestroy))
	b.WriteUint32(uint32(id))
	m.enqueue(wire.FlagReliable|wire.FlagOrdered, b.Bytes())
}

// ServerReplicateWorldState drains every coalesced variable change and
// emits one ordered-but-unreliable RAT_UPDATE per entity with changes.
func (m *Manager) ServerReplicateWorldState() {
	changes := m.vars.CollectAll()
	for entity, cs := range changes {
		b := netbuf.New()
		b.WriteByte(byte(ActionUpdate))
		b.WriteUint32(uint32(entity))
		EncodeChanges(b, cs)
		m.enqueue(wire.FlagOrdered, b.Bytes())
	}
}

// ClientProcess applies one received replication message per the action
// tag prefixing its payload.
func (m *Manager) ClientProcess(msg *wire.Message) error {
	b := netbuf.Wrap(msg.Payload)
	action := ActionType(b.ReadByte())

	switch action {
	case ActionCreate:
		typeID := b.ReadUint32()
		id := EntityID(b.ReadUint32())
		controlledBy := b.ReadUint32()
		posX := b.ReadFloat32()
		posY := b.ReadFloat32()
		if b.Err() != nil {
			return b.Err()
		}
		if _, exists := m.entities[id]; exists {
			m.log.Warn("duplicate RAT_CREATE for known entity id ignored", zap.Uint32("entity_id", uint32(id)))
			return nil
		}
		handle := m.factory.Create(typeID, id, controlledBy, posX, posY, m.vars)
		m.entities[id] = &entityRecord{TypeID: typeID, ControlledBy: controlledBy, Handle: handle}

	case ActionUpdate:
		id := EntityID(b.ReadUint32())
		if _, exists := m.entities[id]; !exists {
			handle := m.factory.Create(0, id, 0, 0, 0, m.vars)
			m.entities[id] = &entityRecord{Handle: handle}
		}
		if err := m.vars.Apply(b); err != nil {
			return err
		}

	case ActionDestroy:
		id := EntityID(b.ReadUint32())
		if rec, exists := m.entities[id]; exists {
			m.factory.Destroy(rec.Handle)
			delete(m.entities, id)
		}
	}
	return nil
}

// NextPending pops the next queued outbound RAT action template. The
// transport layer is responsible for turning it into one *wire.Message per
// connected peer (see PendingReplication's doc comment).
func (m *Manager) NextPending() (PendingReplication, bool) {
	if len(m.toSend) == 0 {
		return PendingReplication{}, false
	}
	pr := m.toSend[0]
	m.toSend = m.toSend[1:]
	return pr, true
}

// EntityCount reports how many entities are currently tracked.
func (m *Manager) EntityCount() int { return len(m.entities) }

func (m *Manager) enqueue(flags uint8, payload []byte) {
	cp := make([]byte, len(payload))
	copy(cp, payload)
	m.toSend = append(m.toSend, PendingReplication{Flags: flags, Payload: cp})
}
