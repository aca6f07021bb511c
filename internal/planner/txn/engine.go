package txn

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"floorplan/internal/planner/association"
	"floorplan/internal/planner/metrics"
	"floorplan/internal/planner/scene"
)

// ============================================================
// Transaction Engine
// ============================================================

type Options struct {
	// UndoDepth bounds the undo stack; zero means unbounded.
	UndoDepth int
	// AssociationRounds bounds deferred association recomputation per commit.
	AssociationRounds int
}

func DefaultOptions() Options {
	return Options{UndoDepth: 100, AssociationRounds: 8}
}

// unit is one undo step: the entries of a committed session.
type unit struct {
	id      string
	entries []*Entry
	folded  []*Entry
}

// Engine owns request state, sessions and the undo/redo stacks for one graph.
// It is single-threaded like the graph it mutates.
type Engine struct {
	graph   *scene.Graph
	assoc   *association.Manager
	opts    Options
	entries map[Request]*Entry
	retired map[Request]struct{}
	undo    []*unit
	redo    []*unit
	active  *Session
	logger  *slog.Logger
}

// NewEngine creates an engine for g. assoc may be nil when the plan has no associations.
func NewEngine(g *scene.Graph, assoc *association.Manager, opts Options) *Engine {
	if opts.AssociationRounds <= 0 {
		opts.AssociationRounds = DefaultOptions().AssociationRounds
	}
	return &Engine{
		graph:   g,
		assoc:   assoc,
		opts:    opts,
		entries: make(map[Request]*Entry),
		retired: make(map[Request]struct{}),
		logger:  slog.Default().With("component", "txn.Engine"),
	}
}

// StartSession opens a session. Only one session may be active at a time.
func (m *Engine) StartSession() (*Session, error) {
	if m.active != nil {
		return nil, ErrSessionActive
	}
	s := &Session{id: uuid.NewString(), engine: m, started: time.Now()}
	m.active = s
	m.logger.Debug("session started", "session", s.id)
	return s, nil
}

// Apply commits reqs as a single session.
func (m *Engine) Apply(reqs ...Request) error {
	s, err := m.StartSession()
	if err != nil {
		return err
	}
	for _, r := range reqs {
		if err := s.Append(r); err != nil {
			if abortErr := s.Abort(); abortErr != nil {
				m.logger.Error("abort after failed append", "error", abortErr)
			}
			return err
		}
	}
	return s.Commit()
}

// Entry returns the engine's record for r.
func (m *Engine) Entry(r Request) (*Entry, bool) {
	e, ok := m.entries[r]
	return e, ok
}

func (m *Engine) CanUndo() bool { return len(m.undo) > 0 }
func (m *Engine) CanRedo() bool { return len(m.redo) > 0 }

// Undo reverts the most recent committed session, its requests in reverse order.
func (m *Engine) Undo() error {
	if m.active != nil {
		return ErrSessionActive
	}
	if len(m.undo) == 0 {
		return ErrNothingToUndo
	}
	u := m.undo[len(m.undo)-1]
	m.suspendAssociations()
	defer m.resumeAssociations()
	for i := len(u.entries) - 1; i >= 0; i-- {
		if err := m.undoEntry(u.entries[i]); err != nil {
			return fmt.Errorf("undo session %s: %w", u.id, err)
		}
	}
	m.undo = m.undo[:len(m.undo)-1]
	m.redo = append(m.redo, u)
	m.logger.Info("session undone", "session", u.id, "requests", len(u.entries))
	return nil
}

// Redo re-applies the most recently undone session in commit order.
func (m *Engine) Redo() error {
	if m.active != nil {
		return ErrSessionActive
	}
	if len(m.redo) == 0 {
		return ErrNothingToRedo
	}
	u := m.redo[len(m.redo)-1]
	m.suspendAssociations()
	defer m.resumeAssociations()
	for _, e := range u.entries {
		if err := m.redoEntry(e); err != nil {
			return fmt.Errorf("redo session %s: %w", u.id, err)
		}
	}
	m.redo = m.redo[:len(m.redo)-1]
	m.undo = append(m.undo, u)
	m.logger.Info("session redone", "session", u.id, "requests", len(u.entries))
	return nil
}

// ============================================================
// Guarded transitions
// ============================================================

func (m *Engine) commitEntry(r Request) (*Entry, error) {
	if _, ok := m.retired[r]; ok {
		m.record(r, "commit", "rejected")
		return nil, &StateError{Request: r.Type(), Op: "commit", State: StateRetired}
	}
	if e, ok := m.entries[r]; ok {
		m.record(r, "commit", "rejected")
		return nil, &StateError{Request: r.Type(), Op: "commit", State: e.state}
	}
	effects, err := r.OnCommit(m.graph)
	if err != nil {
		m.record(r, "commit", "error")
		return nil, fmt.Errorf("commit %s: %w", r.Type(), err)
	}
	e := &Entry{request: r, state: StateCommitted, effects: effects}
	m.entries[r] = e
	m.record(r, "commit", "ok")
	return e, nil
}

func (m *Engine) undoEntry(e *Entry) error {
	if !e.state.Live() {
		m.record(e.request, "undo", "rejected")
		return &StateError{Request: e.request.Type(), Op: "undo", State: e.state}
	}
	e.request.OnUndo(m.graph, e.effects)
	e.state = StateUndone
	m.record(e.request, "undo", "ok")
	return nil
}

func (m *Engine) redoEntry(e *Entry) error {
	if e.state != StateUndone {
		m.record(e.request, "redo", "rejected")
		return &StateError{Request: e.request.Type(), Op: "redo", State: e.state}
	}
	e.request.OnRedo(m.graph, e.effects)
	e.state = StateRedone
	m.record(e.request, "redo", "ok")
	return nil
}

func (m *Engine) record(r Request, op, outcome string) {
	metrics.RequestOperations.WithLabelValues(r.Type(), op, outcome).Inc()
}

// push makes u the newest undo step and drops the redo branch.
func (m *Engine) push(u *unit) {
	for _, dropped := range m.redo {
		m.forget(dropped)
	}
	m.redo = nil
	m.undo = append(m.undo, u)
	if m.opts.UndoDepth > 0 && len(m.undo) > m.opts.UndoDepth {
		m.forget(m.undo[0])
		m.undo = m.undo[1:]
	}
}

// forget drops u's entries from history and keeps a tombstone per request.
func (m *Engine) forget(u *unit) {
	for _, e := range u.entries {
		m.retire(e)
	}
	for _, e := range u.folded {
		m.retire(e)
	}
}

func (m *Engine) retire(e *Entry) {
	delete(m.entries, e.request)
	m.retired[e.request] = struct{}{}
	e.state = StateRetired
}

func (m *Engine) suspendAssociations() {
	if m.assoc != nil {
		m.assoc.Suspend()
	}
}

func (m *Engine) resumeAssociations() {
	if m.assoc != nil {
		m.assoc.Resume()
	}
}
