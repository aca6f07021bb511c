package entity

// SignalKind is the kind of change an entity announces.
type SignalKind uint8

const (
	SignalDirty SignalKind = iota + 1
	SignalFieldChanged
	SignalChildAdded
	SignalChildRemoved
	SignalRemoved
	SignalRestored
)

func (k SignalKind) String() string {
	switch k {
	case SignalDirty:
		return "dirty"
	case SignalFieldChanged:
		return "fieldChanged"
	case SignalChildAdded:
		return "childAdded"
	case SignalChildRemoved:
		return "childRemoved"
	case SignalRemoved:
		return "removed"
	case SignalRestored:
		return "restored"
	}
	return "unknown"
}

// Signal is a change event. TargetKind is resolved once, when the signal is raised.
type Signal struct {
	Target     ID
	TargetKind Kind
	Data       SignalData
}

type SignalData struct {
	Type      SignalKind
	FieldName string
	// Entity is the related entity, e.g. the child for ChildAdded.
	Entity ID
}
