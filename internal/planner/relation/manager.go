package relation

import (
	"log/slog"
	"slices"

	"floorplan/internal/planner/entity"
	"floorplan/internal/planner/signal"
)

// ============================================================
// Relationship Manager
// ============================================================

// Kind names a category of derived data, e.g. face visibility.
type Kind string

// Event is what a trigger callback receives.
type Event struct {
	Relation Kind
	Signal   entity.Signal
}

// Config is one trigger rule: entity kinds × signal kinds → callback.
type Config struct {
	TargetKinds entity.KindSet
	ActionTypes []entity.SignalKind
	Callback    func(Event)
}

func (c Config) matches(s entity.Signal) bool {
	return c.TargetKinds.Has(s.TargetKind) && slices.Contains(c.ActionTypes, s.Data.Type)
}

type registration struct {
	kind    Kind
	configs []Config
}

// Manager routes bus signals to the trigger configs of every relationship.
// It caches nothing itself; each relationship owns its cache and clears it
// from its callbacks.
type Manager struct {
	bus    *signal.Bus
	token  signal.Token
	kinds  []registration
	logger *slog.Logger
}

func NewManager(bus *signal.Bus) *Manager {
	m := &Manager{
		bus:    bus,
		logger: slog.Default().With("component", "relation.Manager"),
	}
	m.token = bus.Listen(m.handle)
	return m
}

// RegisterConfigs appends configs for kind. Kinds and configs are evaluated in registration order.
func (m *Manager) RegisterConfigs(kind Kind, configs ...Config) {
	for i := range m.kinds {
		if m.kinds[i].kind == kind {
			m.kinds[i].configs = append(m.kinds[i].configs, configs...)
			return
		}
	}
	m.kinds = append(m.kinds, registration{kind: kind, configs: append([]Config(nil), configs...)})
	m.logger.Debug("relationship registered", "kind", kind, "configs", len(configs))
}

// Kinds lists registered relationship kinds in registration order.
func (m *Manager) Kinds() []Kind {
	out := make([]Kind, 0, len(m.kinds))
	for _, r := range m.kinds {
		out = append(out, r.kind)
	}
	return out
}

// Close detaches the manager from the bus.
func (m *Manager) Close() {
	m.bus.Unlisten(m.token)
}

func (m *Manager) handle(s entity.Signal) {
	for _, r := range m.kinds {
		for _, c := range r.configs {
			if c.matches(s) {
				c.Callback(Event{Relation: r.kind, Signal: s})
			}
		}
	}
}
