package entity

import "fmt"

// ============================================================
// Identity & kinds
// ============================================================

// ID is a stable handle resolved through the scene graph.
type ID int64

// NoID marks an absent handle.
const NoID ID = 0

// Kind is the closed set of entity variants.
type Kind uint8

const (
	KindLayer Kind = iota + 1
	KindVertex
	KindEdge
	KindFace
	KindLightSlot
)

func (k Kind) String() string {
	switch k {
	case KindLayer:
		return "layer"
	case KindVertex:
		return "vertex"
	case KindEdge:
		return "edge"
	case KindFace:
		return "face"
	case KindLightSlot:
		return "lightSlot"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// KindSet is a bitmask over Kind used by trigger configurations.
type KindSet uint16

func KindsOf(kinds ...Kind) KindSet {
	var s KindSet
	for _, k := range kinds {
		s |= 1 << k
	}
	return s
}

func (s KindSet) Has(k Kind) bool {
	return s&(1<<k) != 0
}

// ============================================================
// Entity
// ============================================================

type Entity interface {
	ID() ID
	Kind() Kind
	Removed() bool
	// State returns the transactable fields of the entity.
	State() State
	// Restore writes back fields captured by State and announces each changed one.
	Restore(State)
}

// State is a field-level snapshot keyed by field name.
type State map[string]any

// Host is the graph an entity lives in.
type Host interface {
	Dispatch(Signal)
	Invalidate(ids ...ID)
}

// base carries identity and the soft-delete flag.
type base struct {
	id      ID
	removed bool
	host    Host
}

func (b *base) ID() ID        { return b.id }
func (b *base) Removed() bool { return b.removed }

// SetRemovedFlag flips the soft-delete flag. Signals are the graph's job.
func (b *base) SetRemovedFlag(removed bool) { b.removed = removed }

func (b *base) fieldChanged(kind Kind, field string) {
	if b.host == nil {
		return
	}
	b.host.Dispatch(Signal{
		Target:     b.id,
		TargetKind: kind,
		Data:       SignalData{Type: SignalFieldChanged, FieldName: field},
	})
}

// Remover is implemented by every entity; the scene graph uses it for soft delete.
type Remover interface {
	SetRemovedFlag(bool)
}
