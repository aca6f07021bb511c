package scene

import (
	"fmt"

	"floorplan/internal/planner/entity"
	"floorplan/internal/planner/geom"
)

// ============================================================
// Snapshot
// ============================================================

// Snapshot is the persisted form of a graph. Removed entities are kept so
// that ids referenced from history stay resolvable after a reload.
type Snapshot struct {
	NextID     entity.ID         `json:"nextId"`
	Root       entity.ID         `json:"root"`
	Vertices   []VertexRecord    `json:"vertices"`
	Edges      []EdgeRecord      `json:"edges"`
	Faces      []FaceRecord      `json:"faces"`
	LightSlots []LightSlotRecord `json:"lightSlots"`
}

type VertexRecord struct {
	ID      entity.ID `json:"id"`
	Removed bool      `json:"removed,omitempty"`
	X       float64   `json:"x"`
	Y       float64   `json:"y"`
	Z       float64   `json:"z,omitempty"`
}

type EdgeRecord struct {
	ID      entity.ID `json:"id"`
	Removed bool      `json:"removed,omitempty"`
	From    entity.ID `json:"from"`
	To      entity.ID `json:"to"`
	Split   bool      `json:"split,omitempty"`
	Inner   bool      `json:"inner,omitempty"`
}

type FaceRecord struct {
	ID       entity.ID   `json:"id"`
	Removed  bool        `json:"removed,omitempty"`
	Edges    []entity.ID `json:"edges"`
	Hidden   bool        `json:"hidden,omitempty"`
	Material string      `json:"material,omitempty"`
}

type LightSlotRecord struct {
	ID      entity.ID `json:"id"`
	Removed bool      `json:"removed,omitempty"`
	Face    entity.ID `json:"face"`
	Path    geom.Path `json:"path"`
	Width   float64   `json:"width"`
	Height  float64   `json:"height"`
}

func (g *Graph) Dump() Snapshot {
	snap := Snapshot{NextID: g.nextID, Root: g.root}
	for _, id := range g.IDs(entity.KindVertex) {
		v, _ := g.Vertex(id)
		snap.Vertices = append(snap.Vertices, VertexRecord{ID: id, Removed: v.Removed(), X: v.X(), Y: v.Y(), Z: v.Z()})
	}
	for _, id := range g.IDs(entity.KindEdge) {
		e, _ := g.Edge(id)
		snap.Edges = append(snap.Edges, EdgeRecord{
			ID: id, Removed: e.Removed(), From: e.From(), To: e.To(),
			Split: e.IsSplitEdge(), Inner: e.IsInnerEdge(),
		})
	}
	for _, id := range g.IDs(entity.KindFace) {
		f, _ := g.Face(id)
		snap.Faces = append(snap.Faces, FaceRecord{
			ID: id, Removed: f.Removed(), Edges: f.Edges(), Hidden: f.Hidden(), Material: f.Material(),
		})
	}
	for _, id := range g.IDs(entity.KindLightSlot) {
		s, _ := g.LightSlot(id)
		var face entity.ID
		if p := g.parents[id]; len(p) > 0 {
			face = p[0]
		}
		snap.LightSlots = append(snap.LightSlots, LightSlotRecord{
			ID: id, Removed: s.Removed(), Face: face, Path: s.Path(), Width: s.Width(), Height: s.Height(),
		})
	}
	return snap
}

// Load replaces the graph contents with snap. No signals are raised;
// callers drop every derived cache after a load.
func (g *Graph) Load(snap Snapshot) error {
	entities := make(map[entity.ID]entity.Entity)
	parents := make(map[entity.ID][]entity.ID)
	children := make(map[entity.ID][]entity.ID)
	link := func(child, parent entity.ID) {
		parents[child] = append(parents[child], parent)
		children[parent] = append(children[parent], child)
	}
	need := func(id entity.ID, kind entity.Kind) error {
		e, ok := entities[id]
		if !ok || e.Kind() != kind {
			return fmt.Errorf("snapshot references missing %s %d: %w", kind, id, ErrNotFound)
		}
		return nil
	}

	root := snap.Root
	if root == entity.NoID {
		return fmt.Errorf("snapshot has no root layer")
	}
	entities[root] = entity.NewLayer(root, g)

	for _, r := range snap.Vertices {
		v := entity.NewVertex(r.ID, g, r.X, r.Y, r.Z)
		v.SetRemovedFlag(r.Removed)
		entities[r.ID] = v
	}
	for _, r := range snap.Edges {
		if err := need(r.From, entity.KindVertex); err != nil {
			return err
		}
		if err := need(r.To, entity.KindVertex); err != nil {
			return err
		}
		e := entity.NewEdge(r.ID, g, r.From, r.To, r.Split, r.Inner)
		e.SetRemovedFlag(r.Removed)
		entities[r.ID] = e
		link(r.From, r.ID)
		if r.To != r.From {
			link(r.To, r.ID)
		}
	}
	for _, r := range snap.Faces {
		for _, eid := range r.Edges {
			if err := need(eid, entity.KindEdge); err != nil {
				return err
			}
		}
		f := entity.LoadFace(r.ID, g, r.Edges, r.Hidden, r.Material)
		f.SetRemovedFlag(r.Removed)
		entities[r.ID] = f
		for _, eid := range r.Edges {
			link(eid, r.ID)
		}
		link(r.ID, root)
	}
	for _, r := range snap.LightSlots {
		if err := need(r.Face, entity.KindFace); err != nil {
			return err
		}
		s := entity.NewLightSlot(r.ID, g, r.Path, r.Width, r.Height)
		s.SetRemovedFlag(r.Removed)
		entities[r.ID] = s
		link(r.ID, r.Face)
	}

	next := snap.NextID
	for id := range entities {
		if id > next {
			next = id
		}
	}

	g.entities = entities
	g.parents = parents
	g.children = children
	g.root = root
	g.nextID = next
	g.logger.Info("graph loaded", "entities", len(entities))
	return nil
}
