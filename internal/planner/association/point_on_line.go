package association

import (
	"slices"

	"github.com/google/uuid"

	"floorplan/internal/planner/entity"
	"floorplan/internal/planner/geom"
	"floorplan/internal/planner/metrics"
	"floorplan/internal/planner/scene"
)

// ============================================================
// Point on line
// ============================================================

// PointOnLine keeps its first target vertex on the nearest intersection of the
// source edge's line with the lines of the vertex's parent edges.
type PointOnLine struct {
	id      string
	graph   *scene.Graph
	source  entity.ID
	targets []entity.ID
}

// NewPointOnLine binds source and targets. An empty id gets a fresh uuid.
func NewPointOnLine(g *scene.Graph, id string, source entity.ID, targets ...entity.ID) *PointOnLine {
	if id == "" {
		id = uuid.NewString()
	}
	a := &PointOnLine{id: id, graph: g}
	a.Bind(source, targets...)
	return a
}

func (a *PointOnLine) ID() string           { return a.id }
func (a *PointOnLine) Type() Type           { return TypePointOnLine }
func (a *PointOnLine) Entity() entity.ID    { return a.source }
func (a *PointOnLine) Targets() []entity.ID { return slices.Clone(a.targets) }

func (a *PointOnLine) Bind(source entity.ID, targets ...entity.ID) {
	a.source = source
	a.targets = slices.Clone(targets)
}

func (a *PointOnLine) Unbind(target entity.ID) {
	a.targets = slices.DeleteFunc(a.targets, func(id entity.ID) bool { return id == target })
}

func (a *PointOnLine) UnbindAll() {
	a.source = entity.NoID
	a.targets = nil
}

func (a *PointOnLine) IsValid() bool {
	if a.source == entity.NoID || len(a.targets) == 0 {
		return false
	}
	e, ok := a.graph.Edge(a.source)
	if !ok || e.Removed() {
		return false
	}
	v, ok := a.graph.Vertex(a.targets[0])
	return ok && !v.Removed()
}

func (a *PointOnLine) Dump() Record {
	return Record{ID: a.id, Type: TypePointOnLine, Entity: a.source, Targets: a.Targets()}
}

// Compute moves the first target onto the winning intersection and shifts the
// far endpoint of every contributing split inner edge by the same offset.
// All moves complete before the single invalidation at the end.
func (a *PointOnLine) Compute(invalidate bool) Result {
	res := a.compute(invalidate)
	metrics.AssociationComputes.WithLabelValues(string(TypePointOnLine), string(res)).Inc()
	return res
}

func (a *PointOnLine) compute(invalidate bool) Result {
	if !a.IsValid() {
		return ResultDormant
	}
	line, ok := a.graph.EdgeLine(a.source)
	if !ok || line.Degenerate() {
		return ResultNoIntersection
	}
	target, _ := a.graph.Vertex(a.targets[0])
	pos := target.Point().Planar()

	var (
		best     geom.Point
		bestLen  float64
		found    bool
		affected []*entity.Edge
	)
	for _, pid := range a.graph.Parents(target.ID()) {
		parent, ok := a.graph.Edge(pid)
		if !ok || parent.Removed() {
			continue
		}
		pl, ok := a.graph.EdgeLine(pid)
		if !ok {
			continue
		}
		p, ok := line.Intersect(pl)
		if !ok {
			continue
		}
		if parent.IsSplitInner() {
			affected = append(affected, parent)
		}
		if d := p.Sub(pos).Len(); !found || d < bestLen {
			best, bestLen, found = p, d, true
		}
	}
	if !found {
		return ResultNoIntersection
	}

	delta := best.Sub(pos)
	if delta.Len() <= geom.Epsilon {
		return ResultUnchanged
	}

	moved := []entity.ID{target.ID()}
	bus := a.graph.Bus()
	bus.Hold()
	target.Set(best.X, best.Y, target.Z(), false)
	for _, e := range affected {
		oid := e.Opposite(target.ID())
		o, ok := a.graph.Vertex(oid)
		if !ok || o.Removed() {
			continue
		}
		if o.Set(o.X()+delta.X, o.Y()+delta.Y, o.Z(), false) {
			moved = append(moved, oid)
		}
	}
	bus.Release()

	if invalidate {
		a.graph.Invalidate(moved...)
	}
	return ResultMoved
}

// ============================================================
// Extend edge to point
// ============================================================

// ExtendEdgeToPoint moves the endpoint of edge nearer to p onto p, provided p
// is colinear with the edge within tol. It reports whether anything moved.
func ExtendEdgeToPoint(g *scene.Graph, edge entity.ID, p geom.Point, tol float64) bool {
	e, ok := g.Edge(edge)
	if !ok || e.Removed() {
		return false
	}
	seg, ok := g.EdgeSegment(edge)
	if !ok || !seg.Line().ContainsPoint(p, tol) {
		return false
	}
	vid := e.From()
	if p.Dist(seg.To) < p.Dist(seg.From) {
		vid = e.To()
	}
	v, ok := g.Vertex(vid)
	if !ok || v.Removed() {
		return false
	}
	return v.Set(p.X, p.Y, v.Z(), true)
}
