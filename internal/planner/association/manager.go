package association

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"floorplan/internal/planner/entity"
	"floorplan/internal/planner/scene"
	"floorplan/internal/planner/signal"
)

var ErrDuplicate = errors.New("association already registered")

// ============================================================
// Association Manager
// ============================================================

// Manager indexes associations by the entities they depend on. A dependency
// signal only marks an association pending; recomputation happens later,
// outside signal dispatch, through ComputePending.
type Manager struct {
	graph     *scene.Graph
	token     signal.Token
	byID      map[string]Association
	order     []string
	byEntity  map[entity.ID][]string
	pending   map[string]struct{}
	suspended int
	logger    *slog.Logger
}

func NewManager(g *scene.Graph) *Manager {
	m := &Manager{
		graph:  g,
		logger: slog.Default().With("component", "association.Manager"),
	}
	m.reset()
	m.token = g.Bus().Listen(m.handle)
	return m
}

func (m *Manager) reset() {
	m.byID = make(map[string]Association)
	m.order = nil
	m.byEntity = make(map[entity.ID][]string)
	m.pending = make(map[string]struct{})
}

func (m *Manager) Close() {
	m.graph.Bus().Unlisten(m.token)
}

// Add registers a and marks it pending so the next commit settles it.
func (m *Manager) Add(a Association) error {
	if _, ok := m.byID[a.ID()]; ok {
		return fmt.Errorf("%s: %w", a.ID(), ErrDuplicate)
	}
	m.byID[a.ID()] = a
	m.order = append(m.order, a.ID())
	m.index(a)
	if m.suspended == 0 {
		m.pending[a.ID()] = struct{}{}
	}
	return nil
}

func (m *Manager) Remove(id string) {
	a, ok := m.byID[id]
	if !ok {
		return
	}
	m.unindex(a)
	delete(m.byID, id)
	delete(m.pending, id)
	m.order = slices.DeleteFunc(m.order, func(s string) bool { return s == id })
}

func (m *Manager) Get(id string) (Association, bool) {
	a, ok := m.byID[id]
	return a, ok
}

// All returns associations in insertion order.
func (m *Manager) All() []Association {
	out := make([]Association, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.byID[id])
	}
	return out
}

// ForEntity returns associations whose source or targets include id.
func (m *Manager) ForEntity(id entity.ID) []Association {
	var out []Association
	for _, aid := range m.byEntity[id] {
		out = append(out, m.byID[aid])
	}
	return out
}

// Rebind changes the endpoints of a registered association and reindexes it.
func (m *Manager) Rebind(id string, source entity.ID, targets ...entity.ID) error {
	a, ok := m.byID[id]
	if !ok {
		return fmt.Errorf("association %s: %w", id, scene.ErrNotFound)
	}
	m.unindex(a)
	a.Bind(source, targets...)
	m.index(a)
	if m.suspended == 0 {
		m.pending[id] = struct{}{}
	}
	return nil
}

// Prune drops associations that are no longer valid. Associations are kept
// dormant while an endpoint is removed, because undo may bring it back; Prune
// is for callers that know history no longer reaches them.
func (m *Manager) Prune() int {
	var dropped int
	for _, id := range slices.Clone(m.order) {
		if !m.byID[id].IsValid() {
			m.Remove(id)
			dropped++
		}
	}
	return dropped
}

func (m *Manager) index(a Association) {
	for _, id := range append([]entity.ID{a.Entity()}, a.Targets()...) {
		if id == entity.NoID || slices.Contains(m.byEntity[id], a.ID()) {
			continue
		}
		m.byEntity[id] = append(m.byEntity[id], a.ID())
	}
}

func (m *Manager) unindex(a Association) {
	for _, id := range append([]entity.ID{a.Entity()}, a.Targets()...) {
		m.byEntity[id] = slices.DeleteFunc(m.byEntity[id], func(s string) bool { return s == a.ID() })
		if len(m.byEntity[id]) == 0 {
			delete(m.byEntity, id)
		}
	}
}

// ============================================================
// Pending work
// ============================================================

// Suspend stops dependency signals from marking associations pending.
// Undo and redo restore recorded positions and must not trigger recomputation.
func (m *Manager) Suspend() { m.suspended++ }

func (m *Manager) Resume() {
	if m.suspended > 0 {
		m.suspended--
	}
}

func (m *Manager) HasPending() bool {
	return len(m.pending) > 0
}

// DiscardPending forgets every pending mark.
func (m *Manager) DiscardPending() {
	clear(m.pending)
}

// ComputePending recomputes pending associations in insertion order until no
// new marks appear or maxRounds is reached. It returns the number of moves.
func (m *Manager) ComputePending(maxRounds int) int {
	var moves int
	for round := 0; round < maxRounds && len(m.pending) > 0; round++ {
		batch := m.takePending()
		for _, a := range batch {
			if a.Compute(true) == ResultMoved {
				moves++
			}
		}
	}
	if len(m.pending) > 0 {
		m.logger.Warn("associations did not settle", "rounds", maxRounds, "pending", len(m.pending))
		clear(m.pending)
	}
	return moves
}

func (m *Manager) takePending() []Association {
	var out []Association
	for _, id := range m.order {
		if _, ok := m.pending[id]; ok {
			out = append(out, m.byID[id])
		}
	}
	clear(m.pending)
	return out
}

func (m *Manager) handle(s entity.Signal) {
	if m.suspended > 0 {
		return
	}
	switch s.TargetKind {
	case entity.KindEdge:
		switch s.Data.Type {
		case entity.SignalDirty, entity.SignalRemoved, entity.SignalRestored:
		default:
			return
		}
		m.mark(s.Target)
		// endpoints of a changed edge may be constrained targets
		if e, ok := m.graph.Edge(s.Target); ok {
			m.mark(e.From())
			m.mark(e.To())
		}
	case entity.KindVertex:
		switch s.Data.Type {
		case entity.SignalFieldChanged, entity.SignalRemoved, entity.SignalRestored:
			m.mark(s.Target)
		}
	}
}

func (m *Manager) mark(id entity.ID) {
	for _, aid := range m.byEntity[id] {
		m.pending[aid] = struct{}{}
	}
}

// ============================================================
// Persistence
// ============================================================

func (m *Manager) Dump() []Record {
	out := make([]Record, 0, len(m.order))
	for _, a := range m.All() {
		out = append(out, a.Dump())
	}
	return out
}

// Load replaces every association with records.
func (m *Manager) Load(records []Record) error {
	m.reset()
	for _, r := range records {
		a, err := FromRecord(m.graph, r)
		if err != nil {
			return err
		}
		if err := m.Add(a); err != nil {
			return err
		}
	}
	clear(m.pending)
	m.logger.Info("associations loaded", "count", len(records))
	return nil
}
