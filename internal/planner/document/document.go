package document

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"floorplan/internal/planner/association"
	"floorplan/internal/planner/relation"
	"floorplan/internal/planner/scene"
	"floorplan/internal/planner/signal"
	"floorplan/internal/planner/txn"
)

// ============================================================
// Document
// ============================================================

// Document is one open plan: the graph with its bus, derived data,
// associations and history. Callers serialise access through Do.
type Document struct {
	id   string
	name string

	mu        sync.Mutex
	bus       *signal.Bus
	graph     *scene.Graph
	relations *relation.Manager
	visible   *relation.FaceVisible
	assoc     *association.Manager
	engine    *txn.Engine
}

// Snapshot is the persisted form of a document.
type Snapshot struct {
	Name         string               `json:"name"`
	Graph        scene.Snapshot       `json:"graph"`
	Associations []association.Record `json:"associations"`
}

// New creates an empty document. An empty id gets a fresh uuid.
func New(id, name string, opts txn.Options) *Document {
	if id == "" {
		id = uuid.NewString()
	}
	bus := signal.NewBus()
	g := scene.New(bus)
	relations := relation.NewManager(bus)
	assoc := association.NewManager(g)
	return &Document{
		id:        id,
		name:      name,
		bus:       bus,
		graph:     g,
		relations: relations,
		visible:   relation.NewFaceVisible(relations, g),
		assoc:     assoc,
		engine:    txn.NewEngine(g, assoc, opts),
	}
}

// FromSnapshot rebuilds a document. History starts empty.
func FromSnapshot(id string, snap Snapshot, opts txn.Options) (*Document, error) {
	d := New(id, snap.Name, opts)
	if err := d.graph.Load(snap.Graph); err != nil {
		return nil, fmt.Errorf("load graph: %w", err)
	}
	if err := d.assoc.Load(snap.Associations); err != nil {
		return nil, fmt.Errorf("load associations: %w", err)
	}
	d.visible.Clear()
	return d, nil
}

func (d *Document) ID() string   { return d.id }
func (d *Document) Name() string { return d.name }

// Do runs fn with exclusive access to the document.
func (d *Document) Do(fn func(*Session) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return fn(&Session{doc: d})
}

// Close detaches every listener from the bus.
func (d *Document) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.assoc.Close()
	d.relations.Close()
	slog.Default().Debug("document closed", "component", "document", "id", d.id)
}

// Session is the locked view handed to Do callbacks.
type Session struct {
	doc *Document
}

func (s *Session) Graph() *scene.Graph                { return s.doc.graph }
func (s *Session) Visible() *relation.FaceVisible     { return s.doc.visible }
func (s *Session) Associations() *association.Manager { return s.doc.assoc }
func (s *Session) Engine() *txn.Engine                { return s.doc.engine }

// Snapshot captures the current graph and associations.
func (s *Session) Snapshot() Snapshot {
	return Snapshot{
		Name:         s.doc.name,
		Graph:        s.doc.graph.Dump(),
		Associations: s.doc.assoc.Dump(),
	}
}
