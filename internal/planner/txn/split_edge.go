package txn

import (
	"fmt"
	"log/slog"

	"floorplan/internal/planner/association"
	"floorplan/internal/planner/entity"
	"floorplan/internal/planner/geom"
	"floorplan/internal/planner/scene"
)

// ============================================================
// Split edge
// ============================================================

type faceEdit struct {
	face   entity.ID
	before []entity.ID
	after  []entity.ID
}

// SplitEdgeRequest subdivides an edge at a point into two split edges that
// replace it in every face. Associations using the edge as their source are
// moved onto the first half, which carries the same line.
type SplitEdgeRequest struct {
	edge  entity.ID
	at    geom.Point
	assoc *association.Manager

	faces   []faceEdit
	rebinds []string
	logger  *slog.Logger
}

// NewSplitEdgeRequest splits edge at the projection of at. assoc may be nil.
func NewSplitEdgeRequest(edge entity.ID, at geom.Point, assoc *association.Manager) *SplitEdgeRequest {
	return &SplitEdgeRequest{
		edge:   edge,
		at:     at,
		assoc:  assoc,
		logger: slog.Default().With("component", "txn.SplitEdge"),
	}
}

func (r *SplitEdgeRequest) Type() string { return "splitEdge" }

// CanTransactField is false: the request rewrites face boundaries.
func (r *SplitEdgeRequest) CanTransactField() bool { return false }

func (r *SplitEdgeRequest) OnCommit(g *scene.Graph) (CommitEffects, error) {
	e, ok := g.Edge(r.edge)
	if !ok || e.Removed() {
		return CommitEffects{}, fmt.Errorf("edge %d: %w", r.edge, scene.ErrNotFound)
	}
	seg, _ := g.EdgeSegment(r.edge)
	line := seg.Line()
	t := line.Param(r.at)
	if length := line.Dir.Len(); t*length <= geom.Epsilon || (1-t)*length <= geom.Epsilon {
		return CommitEffects{}, fmt.Errorf("split point outside edge %d: %w", r.edge, ErrInvalidParams)
	}
	p := line.Project(r.at)
	p.Z = seg.From.Z + t*(seg.To.Z-seg.From.Z)

	g.Bus().Hold()
	defer g.Bus().Release()

	v := g.AddVertex(p)
	first, err := g.AddEdge(e.From(), v.ID(), true, e.IsInnerEdge())
	if err != nil {
		return CommitEffects{}, err
	}
	second, err := g.AddEdge(v.ID(), e.To(), true, e.IsInnerEdge())
	if err != nil {
		return CommitEffects{}, err
	}

	for _, fid := range g.Parents(r.edge) {
		f, ok := g.Face(fid)
		if !ok || f.Removed() {
			continue
		}
		before := f.Edges()
		after := replaceInLoop(g, before, e, first.ID(), second.ID())
		if err := g.SetFaceEdges(fid, after); err != nil {
			return CommitEffects{}, err
		}
		r.faces = append(r.faces, faceEdit{face: fid, before: before, after: after})
	}

	if r.assoc != nil {
		for _, a := range r.assoc.ForEntity(r.edge) {
			if a.Entity() != r.edge {
				continue
			}
			if err := r.assoc.Rebind(a.ID(), first.ID(), a.Targets()...); err != nil {
				return CommitEffects{}, err
			}
			r.rebinds = append(r.rebinds, a.ID())
		}
	}

	if err := g.SetRemoved(r.edge, true); err != nil {
		return CommitEffects{}, err
	}
	return CommitEffects{
		Created: []entity.ID{v.ID(), first.ID(), second.ID()},
		Removed: []entity.ID{r.edge},
	}, nil
}

func (r *SplitEdgeRequest) OnUndo(g *scene.Graph, eff CommitEffects) {
	g.Bus().Hold()
	defer g.Bus().Release()
	r.setRemoved(g, eff.Removed, false)
	for _, fe := range r.faces {
		r.setFaceEdges(g, fe.face, fe.before)
	}
	r.rebind(r.edge)
	r.setRemoved(g, eff.Created, true)
}

func (r *SplitEdgeRequest) OnRedo(g *scene.Graph, eff CommitEffects) {
	g.Bus().Hold()
	defer g.Bus().Release()
	r.setRemoved(g, eff.Created, false)
	for _, fe := range r.faces {
		r.setFaceEdges(g, fe.face, fe.after)
	}
	if len(eff.Created) > 1 {
		r.rebind(eff.Created[1])
	}
	r.setRemoved(g, eff.Removed, true)
}

func (r *SplitEdgeRequest) rebind(source entity.ID) {
	if r.assoc == nil {
		return
	}
	for _, id := range r.rebinds {
		a, ok := r.assoc.Get(id)
		if !ok {
			continue
		}
		if err := r.assoc.Rebind(id, source, a.Targets()...); err != nil {
			r.logger.Warn("association rebind failed", "association", id, "error", err)
		}
	}
}

func (r *SplitEdgeRequest) setRemoved(g *scene.Graph, ids []entity.ID, removed bool) {
	for _, id := range ids {
		if err := g.SetRemoved(id, removed); err != nil {
			r.logger.Warn("split replay skipped", "id", id, "error", err)
		}
	}
}

func (r *SplitEdgeRequest) setFaceEdges(g *scene.Graph, face entity.ID, edges []entity.ID) {
	if err := g.SetFaceEdges(face, edges); err != nil {
		r.logger.Warn("face boundary replay skipped", "face", face, "error", err)
	}
}

// replaceInLoop swaps e for its two halves, ordered to follow the loop direction.
func replaceInLoop(g *scene.Graph, loop []entity.ID, e *entity.Edge, first, second entity.ID) []entity.ID {
	out := make([]entity.ID, 0, len(loop)+1)
	for i, id := range loop {
		if id != e.ID() {
			out = append(out, id)
			continue
		}
		halves := []entity.ID{first, second}
		if len(loop) > 1 {
			prev, ok := g.Edge(loop[(i+len(loop)-1)%len(loop)])
			// the previous edge meets e at the vertex the walk enters through
			if ok && prev.From() != e.From() && prev.To() != e.From() {
				halves = []entity.ID{second, first}
			}
		}
		out = append(out, halves...)
	}
	return out
}
