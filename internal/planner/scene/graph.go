package scene

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"

	"floorplan/internal/planner/entity"
	"floorplan/internal/planner/geom"
	"floorplan/internal/planner/signal"
)

var (
	ErrNotFound  = errors.New("entity not found")
	ErrRemoved   = errors.New("entity removed")
	ErrWrongKind = errors.New("wrong entity kind")
)

// ============================================================
// Graph
// ============================================================

// Graph owns every entity of a plan and the topological parent index
// (vertex → edges, edge → faces, face → layer, light slot → face).
type Graph struct {
	bus      *signal.Bus
	entities map[entity.ID]entity.Entity
	parents  map[entity.ID][]entity.ID
	children map[entity.ID][]entity.ID
	nextID   entity.ID
	root     entity.ID
	logger   *slog.Logger
}

func New(bus *signal.Bus) *Graph {
	g := &Graph{
		bus:    bus,
		logger: slog.Default().With("component", "scene.Graph"),
	}
	g.reset()
	return g
}

func (g *Graph) reset() {
	g.entities = make(map[entity.ID]entity.Entity)
	g.parents = make(map[entity.ID][]entity.ID)
	g.children = make(map[entity.ID][]entity.ID)
	g.nextID = 0
	g.root = g.allocate()
	g.entities[g.root] = entity.NewLayer(g.root, g)
}

func (g *Graph) allocate() entity.ID {
	g.nextID++
	return g.nextID
}

func (g *Graph) Bus() *signal.Bus { return g.bus }

// Root returns the layer all faces attach to.
func (g *Graph) Root() entity.ID { return g.root }

// ============================================================
// Creation
// ============================================================

func (g *Graph) AddVertex(p geom.Point) *entity.Vertex {
	v := entity.NewVertex(g.allocate(), g, p.X, p.Y, p.Z)
	g.entities[v.ID()] = v
	return v
}

func (g *Graph) AddEdge(from, to entity.ID, split, inner bool) (*entity.Edge, error) {
	for _, id := range []entity.ID{from, to} {
		if _, err := g.live(id, entity.KindVertex); err != nil {
			return nil, fmt.Errorf("edge endpoint %d: %w", id, err)
		}
	}
	e := entity.NewEdge(g.allocate(), g, from, to, split, inner)
	g.entities[e.ID()] = e
	g.link(from, e.ID())
	if to != from {
		g.link(to, e.ID())
	}
	return e, nil
}

func (g *Graph) AddFace(edges []entity.ID) (*entity.Face, error) {
	for _, id := range edges {
		if _, err := g.live(id, entity.KindEdge); err != nil {
			return nil, fmt.Errorf("face edge %d: %w", id, err)
		}
	}
	f := entity.NewFace(g.allocate(), g, edges)
	g.entities[f.ID()] = f
	for _, id := range edges {
		g.link(id, f.ID())
	}
	g.attach(g.root, f.ID())
	return f, nil
}

// AddLightSlot creates a light slot as a child of face.
func (g *Graph) AddLightSlot(face entity.ID, path geom.Path, width, height float64) (*entity.LightSlot, error) {
	if len(path) == 0 {
		return nil, errors.New("light slot path is empty")
	}
	if _, err := g.live(face, entity.KindFace); err != nil {
		return nil, fmt.Errorf("light slot parent %d: %w", face, err)
	}
	s := entity.NewLightSlot(g.allocate(), g, path, width, height)
	g.entities[s.ID()] = s
	g.attach(face, s.ID())
	return s, nil
}

// link records parent as a topological parent of child without announcing it.
func (g *Graph) link(child, parent entity.ID) {
	g.parents[child] = append(g.parents[child], parent)
	g.children[parent] = append(g.children[parent], child)
}

// attach links child under parent and announces ChildAdded on the parent.
func (g *Graph) attach(parent, child entity.ID) {
	g.link(child, parent)
	g.dispatchOn(parent, entity.SignalData{Type: entity.SignalChildAdded, Entity: child})
}

// ============================================================
// Lookup
// ============================================================

func (g *Graph) Get(id entity.ID) (entity.Entity, bool) {
	e, ok := g.entities[id]
	return e, ok
}

// live resolves id and checks kind and the removed flag.
func (g *Graph) live(id entity.ID, kind entity.Kind) (entity.Entity, error) {
	e, ok := g.entities[id]
	if !ok {
		return nil, fmt.Errorf("%d: %w", id, ErrNotFound)
	}
	if e.Kind() != kind {
		return nil, fmt.Errorf("%d is a %s, want %s: %w", id, e.Kind(), kind, ErrWrongKind)
	}
	if e.Removed() {
		return nil, fmt.Errorf("%d: %w", id, ErrRemoved)
	}
	return e, nil
}

func (g *Graph) Vertex(id entity.ID) (*entity.Vertex, bool) {
	v, ok := g.entities[id].(*entity.Vertex)
	return v, ok
}

func (g *Graph) Edge(id entity.ID) (*entity.Edge, bool) {
	e, ok := g.entities[id].(*entity.Edge)
	return e, ok
}

func (g *Graph) Face(id entity.ID) (*entity.Face, bool) {
	f, ok := g.entities[id].(*entity.Face)
	return f, ok
}

func (g *Graph) LightSlot(id entity.ID) (*entity.LightSlot, bool) {
	s, ok := g.entities[id].(*entity.LightSlot)
	return s, ok
}

// Parents returns the topological parents of id, removed ones included.
// Callers check the removed flag before acting on a parent.
func (g *Graph) Parents(id entity.ID) []entity.ID {
	return append([]entity.ID(nil), g.parents[id]...)
}

func (g *Graph) Children(id entity.ID) []entity.ID {
	return append([]entity.ID(nil), g.children[id]...)
}

// IDs returns the ids of every entity of kind, sorted, removed ones included.
func (g *Graph) IDs(kind entity.Kind) []entity.ID {
	var ids []entity.ID
	for id, e := range g.entities {
		if e.Kind() == kind {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// LiveIDs is IDs without removed entities.
func (g *Graph) LiveIDs(kind entity.Kind) []entity.ID {
	ids := g.IDs(kind)
	out := ids[:0]
	for _, id := range ids {
		if !g.entities[id].Removed() {
			out = append(out, id)
		}
	}
	return out
}

// EdgeSegment returns the current endpoints of an edge.
func (g *Graph) EdgeSegment(id entity.ID) (geom.Segment, bool) {
	e, ok := g.Edge(id)
	if !ok {
		return geom.Segment{}, false
	}
	from, ok1 := g.Vertex(e.From())
	to, ok2 := g.Vertex(e.To())
	if !ok1 || !ok2 {
		return geom.Segment{}, false
	}
	return geom.Segment{From: from.Point(), To: to.Point()}, true
}

// EdgeLine returns the infinite planar line carried by an edge.
func (g *Graph) EdgeLine(id entity.ID) (geom.Line, bool) {
	s, ok := g.EdgeSegment(id)
	if !ok {
		return geom.Line{}, false
	}
	return s.Line(), true
}

// FaceOutline walks the face's edges and returns the loop of corner points.
func (g *Graph) FaceOutline(id entity.ID) ([]geom.Point, bool) {
	f, ok := g.Face(id)
	if !ok {
		return nil, false
	}
	edges := f.Edges()
	if len(edges) == 0 {
		return nil, false
	}
	first, ok := g.Edge(edges[0])
	if !ok {
		return nil, false
	}
	cur := first.From()
	if len(edges) > 1 {
		// start from the endpoint not shared with the second edge
		if second, ok := g.Edge(edges[1]); ok && (second.From() == cur || second.To() == cur) {
			cur = first.To()
		}
	}
	var pts []geom.Point
	for _, eid := range edges {
		e, ok := g.Edge(eid)
		if !ok {
			return nil, false
		}
		v, ok := g.Vertex(cur)
		if !ok {
			return nil, false
		}
		pts = append(pts, v.Point())
		next := e.Opposite(cur)
		if next == entity.NoID {
			return nil, false
		}
		cur = next
	}
	return pts, true
}

// ============================================================
// Mutation
// ============================================================

// SetRemoved soft-deletes or restores an entity. Parents hear ChildRemoved or ChildAdded.
func (g *Graph) SetRemoved(id entity.ID, removed bool) error {
	e, ok := g.entities[id]
	if !ok {
		return fmt.Errorf("%d: %w", id, ErrNotFound)
	}
	if e.Removed() == removed {
		return nil
	}
	r, ok := e.(entity.Remover)
	if !ok {
		return fmt.Errorf("%d cannot be removed: %w", id, ErrWrongKind)
	}
	r.SetRemovedFlag(removed)

	kind := entity.SignalRestored
	childKind := entity.SignalChildAdded
	if removed {
		kind = entity.SignalRemoved
		childKind = entity.SignalChildRemoved
	}
	g.dispatchOn(id, entity.SignalData{Type: kind})
	for _, p := range g.parents[id] {
		g.dispatchOn(p, entity.SignalData{Type: childKind, Entity: id})
	}
	g.logger.Debug("removed flag changed", "id", id, "kind", e.Kind().String(), "removed", removed)
	return nil
}

// SetFaceEdges replaces the boundary of a face and moves its parent index
// entries accordingly. The face hears FieldChanged("edges").
func (g *Graph) SetFaceEdges(face entity.ID, edges []entity.ID) error {
	f, ok := g.Face(face)
	if !ok {
		return fmt.Errorf("face %d: %w", face, ErrNotFound)
	}
	for _, id := range edges {
		if _, ok := g.Edge(id); !ok {
			return fmt.Errorf("face edge %d: %w", id, ErrNotFound)
		}
	}
	for _, id := range f.Edges() {
		g.unlink(id, face)
	}
	for _, id := range edges {
		g.link(id, face)
	}
	f.SetEdges(edges)
	return nil
}

func (g *Graph) unlink(child, parent entity.ID) {
	g.parents[child] = slices.DeleteFunc(g.parents[child], func(id entity.ID) bool { return id == parent })
	g.children[parent] = slices.DeleteFunc(g.children[parent], func(id entity.ID) bool { return id == child })
}

// Invalidate marks ids and everything depending on them dirty.
// Each entity in the dependent subgraph hears exactly one Dirty signal.
func (g *Graph) Invalidate(ids ...entity.ID) {
	seen := make(map[entity.ID]bool)
	queue := append([]entity.ID(nil), ids...)
	var order []entity.ID
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if seen[id] {
			continue
		}
		seen[id] = true
		e, ok := g.entities[id]
		if !ok || e.Removed() || e.Kind() == entity.KindLayer {
			continue
		}
		order = append(order, id)
		queue = append(queue, g.parents[id]...)
	}

	g.bus.Hold()
	for _, id := range order {
		g.dispatchOn(id, entity.SignalData{Type: entity.SignalDirty})
	}
	g.bus.Release()
}

// Dispatch raises s on the bus with its target kind filled in.
func (g *Graph) Dispatch(s entity.Signal) {
	if s.TargetKind == 0 {
		if e, ok := g.entities[s.Target]; ok {
			s.TargetKind = e.Kind()
		}
	}
	g.bus.Dispatch(s)
}

func (g *Graph) dispatchOn(id entity.ID, data entity.SignalData) {
	g.Dispatch(entity.Signal{Target: id, Data: data})
}
