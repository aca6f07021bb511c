package entity

import (
	"math"

	"floorplan/internal/planner/geom"
)

// ============================================================
// Layer
// ============================================================

// Layer is the root container faces attach to.
type Layer struct {
	base
}

func NewLayer(id ID, host Host) *Layer {
	return &Layer{base: base{id: id, host: host}}
}

func (l *Layer) Kind() Kind      { return KindLayer }
func (l *Layer) State() State    { return State{} }
func (l *Layer) Restore(s State) {}

// ============================================================
// Vertex
// ============================================================

type Vertex struct {
	base
	x, y, z float64
}

func NewVertex(id ID, host Host, x, y, z float64) *Vertex {
	return &Vertex{base: base{id: id, host: host}, x: x, y: y, z: z}
}

func (v *Vertex) Kind() Kind { return KindVertex }

func (v *Vertex) X() float64 { return v.x }
func (v *Vertex) Y() float64 { return v.y }
func (v *Vertex) Z() float64 { return v.z }

func (v *Vertex) Point() geom.Point {
	return geom.Point{X: v.x, Y: v.y, Z: v.z}
}

// Set moves the vertex. Changes below geom.Epsilon are ignored, so Set reports
// whether anything moved. With invalidate the dependent subgraph is marked dirty.
func (v *Vertex) Set(x, y, z float64, invalidate bool) bool {
	var changed []string
	if math.Abs(v.x-x) > geom.Epsilon {
		v.x = x
		changed = append(changed, "x")
	}
	if math.Abs(v.y-y) > geom.Epsilon {
		v.y = y
		changed = append(changed, "y")
	}
	if math.Abs(v.z-z) > geom.Epsilon {
		v.z = z
		changed = append(changed, "z")
	}
	if len(changed) == 0 {
		return false
	}
	for _, f := range changed {
		v.fieldChanged(KindVertex, f)
	}
	if invalidate && v.host != nil {
		v.host.Invalidate(v.id)
	}
	return true
}

func (v *Vertex) State() State {
	return State{"x": v.x, "y": v.y, "z": v.z}
}

func (v *Vertex) Restore(s State) {
	x, _ := s["x"].(float64)
	y, _ := s["y"].(float64)
	z, _ := s["z"].(float64)
	v.Set(x, y, z, false)
}

// ============================================================
// Edge
// ============================================================

type Edge struct {
	base
	from, to    ID
	isSplitEdge bool
	isInnerEdge bool
}

func NewEdge(id ID, host Host, from, to ID, split, inner bool) *Edge {
	return &Edge{base: base{id: id, host: host}, from: from, to: to, isSplitEdge: split, isInnerEdge: inner}
}

func (e *Edge) Kind() Kind        { return KindEdge }
func (e *Edge) From() ID          { return e.from }
func (e *Edge) To() ID            { return e.to }
func (e *Edge) IsSplitEdge() bool { return e.isSplitEdge }
func (e *Edge) IsInnerEdge() bool { return e.isInnerEdge }

// IsSplitInner reports the flag combination that makes an edge move rigidly with a constrained vertex.
func (e *Edge) IsSplitInner() bool { return e.isSplitEdge && e.isInnerEdge }

// Opposite returns the endpoint that is not v, or NoID when v is not an endpoint.
func (e *Edge) Opposite(v ID) ID {
	switch v {
	case e.from:
		return e.to
	case e.to:
		return e.from
	}
	return NoID
}

// Dirty marks the edge and its dependents stale.
func (e *Edge) Dirty() {
	if e.host != nil {
		e.host.Invalidate(e.id)
	}
}

func (e *Edge) State() State {
	return State{"isSplitEdge": e.isSplitEdge, "isInnerEdge": e.isInnerEdge}
}

func (e *Edge) Restore(s State) {
	if v, ok := s["isSplitEdge"].(bool); ok && v != e.isSplitEdge {
		e.isSplitEdge = v
		e.fieldChanged(KindEdge, "isSplitEdge")
	}
	if v, ok := s["isInnerEdge"].(bool); ok && v != e.isInnerEdge {
		e.isInnerEdge = v
		e.fieldChanged(KindEdge, "isInnerEdge")
	}
}

// ============================================================
// Face
// ============================================================

type Face struct {
	base
	edges    []ID
	hidden   bool
	material string
}

func NewFace(id ID, host Host, edges []ID) *Face {
	return &Face{base: base{id: id, host: host}, edges: append([]ID(nil), edges...)}
}

// LoadFace rebuilds a face from persisted fields without announcing them.
func LoadFace(id ID, host Host, edges []ID, hidden bool, material string) *Face {
	f := NewFace(id, host, edges)
	f.hidden = hidden
	f.material = material
	return f
}

func (f *Face) Kind() Kind       { return KindFace }
func (f *Face) Edges() []ID      { return append([]ID(nil), f.edges...) }
func (f *Face) Hidden() bool     { return f.hidden }
func (f *Face) Material() string { return f.material }

// SetEdges replaces the face boundary. The graph keeps its index in step.
func (f *Face) SetEdges(edges []ID) {
	f.edges = append([]ID(nil), edges...)
	f.fieldChanged(KindFace, "edges")
}

func (f *Face) SetHidden(hidden bool) {
	if f.hidden == hidden {
		return
	}
	f.hidden = hidden
	f.fieldChanged(KindFace, "hidden")
}

func (f *Face) SetMaterial(material string) {
	if f.material == material {
		return
	}
	f.material = material
	f.fieldChanged(KindFace, "material")
}

func (f *Face) State() State {
	return State{"hidden": f.hidden, "material": f.material}
}

func (f *Face) Restore(s State) {
	if v, ok := s["hidden"].(bool); ok {
		f.SetHidden(v)
	}
	if v, ok := s["material"].(string); ok {
		f.SetMaterial(v)
	}
}

// ============================================================
// LightSlot
// ============================================================

// LightSlot is a content attached to a face along a path of coedges.
type LightSlot struct {
	base
	path   geom.Path
	width  float64
	height float64
}

func NewLightSlot(id ID, host Host, path geom.Path, width, height float64) *LightSlot {
	return &LightSlot{base: base{id: id, host: host}, path: path.Clone(), width: width, height: height}
}

func (s *LightSlot) Kind() Kind      { return KindLightSlot }
func (s *LightSlot) Path() geom.Path { return s.path.Clone() }
func (s *LightSlot) Width() float64  { return s.width }
func (s *LightSlot) Height() float64 { return s.height }

func (s *LightSlot) State() State {
	return State{"width": s.width, "height": s.height}
}

func (s *LightSlot) Restore(st State) {
	if v, ok := st["width"].(float64); ok && v != s.width {
		s.width = v
		s.fieldChanged(KindLightSlot, "width")
	}
	if v, ok := st["height"].(float64); ok && v != s.height {
		s.height = v
		s.fieldChanged(KindLightSlot, "height")
	}
}
