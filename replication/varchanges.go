// Package replication implements field-level entity replication on top of
// the wire/channel layers: coalesced per-tick variable changes and the
// create/update/destroy lifecycle for networked entities.
package replication

import (
	"github.com/netplay-go/netsim/netbuf"
)

// VariableID names a single replicated field on an entity.
type VariableID uint32

// EntityID names a networked entity, assigned by Manager.
type EntityID uint32

// InvalidEntityID is never assigned to a real entity (spec.md §4.9).
const InvalidEntityID EntityID = 0

// change is one coalesced (variable, entity) → value write pending send.
type change struct {
	Variable VariableID
	Entity   EntityID
	Value    float32
}

// AssignFunc writes a decoded value into the live game state for (variable,
// entity). Registered once by the host; invoked from Apply.
type AssignFunc func(variable VariableID, entity EntityID, value float32)

// NetworkVariableChangesHandler tracks a monotonically increasing variable
// id space and coalesces same-tick writes to the same (variable, entity)
// pair down to their most recent value. Grounded on spec.md §4.8; no
// teacher analogue exists (SA-MP has no field-level delta replication), so
// this is modeled directly from the prose.
type NetworkVariableChangesHandler struct {
	nextVariableID VariableID
	pending        map[uint64]*change // key: variable<<32 | entity
	assign         AssignFunc
}

// NewNetworkVariableChangesHandler constructs an empty handler. assign may
// be nil for a server that only produces changes and never applies them.
func NewNetworkVariableChangesHandler(assign AssignFunc) *NetworkVariableChangesHandler {
	return &NetworkVariableChangesHandler{
		pending: make(map[uint64]*change),
		assign:  assign,
	}
}

// RegisterVariable allocates and returns the next variable id.
func (h *NetworkVariableChangesHandler) RegisterVariable() VariableID {
	h.nextVariableID++
	return h.nextVariableID
}

func changeKey(variable VariableID, entity EntityID) uint64 {
	return uint64(variable)<<32 | uint64(entity)
}

// Set records a write for (variable, entity), replacing any value already
// pending this tick for the same pair.
func (h *NetworkVariableChangesHandler) Set(variable VariableID, entity EntityID, value float32) {
	key := changeKey(variable, entity)
	if c, ok := h.pending[key]; ok {
		c.Value = value
		return
	}
	h.pending[key] = &change{Variable: variable, Entity: entity, Value: value}
}

// CollectAll returns every coalesced change grouped by entity and clears
// the pending set.
func (h *NetworkVariableChangesHandler) CollectAll() map[EntityID][]change {
	if len(h.pending) == 0 {
		return nil
	}
	out := make(map[EntityID][]change)
	for _, c := range h.pending {
		out[c.Entity] = append(out[c.Entity], *c)
	}
	h.pending = make(map[uint64]*change)
	return out
}

// EncodeChanges writes num_changes followed by each (variable_id,
// entity_id, value) triple, per spec.md §6's RAT_UPDATE payload layout.
func EncodeChanges(b *netbuf.Buffer, changes []change) {
	b.WriteUint16(uint16(len(changes)))
	for _, c := range changes {
		b.WriteUint32(uint32(c.Variable))
		b.WriteUint32(uint32(c.Entity))
		b.WriteFloat32(c.Value)
	}
}

// Apply reads a count-prefixed list of changes from b and writes each
// through the registered AssignFunc.
func (h *NetworkVariableChangesHandler) Apply(b *netbuf.Buffer) error {
	n := b.ReadUint16()
	for i := uint16(0); i < n; i++ {
		variable := VariableID(b.ReadUint32())
		entity := EntityID(b.ReadUint32())
		value := b.ReadFloat32()
		if h.assign != nil {
			h.assign(variable, entity, value)
		}
	}
	return b.Err()
}
