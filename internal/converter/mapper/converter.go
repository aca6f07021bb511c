package mapper

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/uuid"

	"floorplan/internal/converter/graph"
	"floorplan/internal/converter/models"
	"floorplan/internal/converter/parser"
	"floorplan/internal/planner/association"
	"floorplan/internal/planner/entity"
	"floorplan/internal/planner/geom"
	"floorplan/internal/planner/scene"
	"floorplan/internal/planner/txn"
)

// ============================================================
// Import request
// ============================================================

// ImportRequest adds the walls and rooms of an SVG plan to a graph as one
// undoable step. Walls become edges, a wall cut by another becomes split
// edges, T-junctions become point-on-line associations and rooms become faces.
type ImportRequest struct {
	elements []models.SVGElement
	opts     graph.Options
	assoc    *association.Manager

	summary      models.ImportSummary
	associations []association.Association
	created      []entity.ID
	logger       *slog.Logger
}

// NewImportRequest imports elements. assoc may be nil, in which case
// junctions are not constrained.
func NewImportRequest(elements []models.SVGElement, opts graph.Options, assoc *association.Manager) *ImportRequest {
	return &ImportRequest{
		elements: elements,
		opts:     opts,
		assoc:    assoc,
		logger:   slog.Default().With("component", "converter.Import"),
	}
}

func (r *ImportRequest) Type() string { return "importPlan" }

func (r *ImportRequest) CanTransactField() bool { return false }

// Summary is valid after commit.
func (r *ImportRequest) Summary() models.ImportSummary { return r.summary }

func (r *ImportRequest) OnCommit(g *scene.Graph) (txn.CommitEffects, error) {
	eff, err := r.commit(g)
	if err != nil {
		// leave nothing half imported behind
		for i := len(r.created) - 1; i >= 0; i-- {
			r.setRemoved(g, r.created[i], true)
		}
		return txn.CommitEffects{}, err
	}
	return eff, nil
}

func (r *ImportRequest) commit(g *scene.Graph) (txn.CommitEffects, error) {
	b := graph.NewBuilder(r.opts)
	var enclosures []models.SVGElement
	for _, el := range r.elements {
		switch {
		case el.Type == models.ElementWall:
			if err := b.AddElement(el); err != nil {
				return txn.CommitEffects{}, err
			}
		case el.Type.Enclosure():
			enclosures = append(enclosures, el)
		default:
			r.summary.Skipped = append(r.summary.Skipped, el.ID)
		}
	}
	lay := b.Build()

	g.Bus().Hold()
	defer g.Bus().Release()

	vertices := make([]entity.ID, len(lay.Vertices))
	for i, p := range lay.Vertices {
		vertices[i] = r.addVertex(g, p)
	}
	edges := make([]entity.ID, len(lay.Pieces))
	for i, p := range lay.Pieces {
		e, err := g.AddEdge(vertices[p.From], vertices[p.To], p.Split, p.Inner)
		if err != nil {
			return txn.CommitEffects{}, err
		}
		edges[i] = e.ID()
		r.created = append(r.created, e.ID())
		r.summary.Edges++
		if p.Split {
			r.summary.SplitEdges++
		}
	}

	for _, j := range lay.Junctions {
		a := association.NewPointOnLine(g, uuid.NewString(), edges[j.Bar], vertices[j.Vertex])
		r.associations = append(r.associations, a)
	}
	r.summary.Associations = len(r.associations)

	for _, el := range enclosures {
		if err := r.addFace(g, el); err != nil {
			r.logger.Warn("enclosure skipped", "element", el.ID, "error", err)
			r.summary.Skipped = append(r.summary.Skipped, el.ID)
		}
	}

	if r.assoc != nil {
		for _, a := range r.associations {
			if err := r.assoc.Add(a); err != nil {
				return txn.CommitEffects{}, err
			}
		}
	}

	r.logger.Info("plan imported",
		"vertices", r.summary.Vertices, "edges", r.summary.Edges,
		"faces", r.summary.Faces, "associations", r.summary.Associations,
		"skipped", len(r.summary.Skipped))
	return txn.CommitEffects{Created: slices.Clone(r.created)}, nil
}

func (r *ImportRequest) addVertex(g *scene.Graph, p geom.Point) entity.ID {
	v := g.AddVertex(p)
	r.created = append(r.created, v.ID())
	r.summary.Vertices++
	return v.ID()
}

// addFace finds or creates a vertex at each corner of el and follows existing
// edges between consecutive corners, adding an edge where none runs.
func (r *ImportRequest) addFace(g *scene.Graph, el models.SVGElement) error {
	var pts []geom.Point
	switch geo := el.Geometry.(type) {
	case models.RectGeometry:
		pts = geo.Corners()
	case models.PathGeometry:
		var err error
		if pts, err = parser.ParsePath(geo.D); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported geometry %T", el.Geometry)
	}
	if n := len(pts); n > 1 && pts[0].Equal(pts[n-1], r.opts.MergeTolerance) {
		pts = pts[:n-1]
	}
	if len(pts) < 3 {
		return fmt.Errorf("enclosure needs 3 corners, has %d", len(pts))
	}

	corners := make([]entity.ID, 0, len(pts))
	for _, p := range pts {
		id := r.nearestVertex(g, p)
		if id == entity.NoID {
			id = r.addVertex(g, p)
		}
		if len(corners) > 0 && corners[len(corners)-1] == id {
			continue
		}
		corners = append(corners, id)
	}
	if len(corners) > 1 && corners[0] == corners[len(corners)-1] {
		corners = corners[:len(corners)-1]
	}
	if len(corners) < 3 {
		return fmt.Errorf("corners collapse within %.1f", r.opts.MergeTolerance)
	}

	var loop []entity.ID
	for i, from := range corners {
		chain, err := r.chain(g, from, corners[(i+1)%len(corners)])
		if err != nil {
			return err
		}
		loop = append(loop, chain...)
	}
	f, err := g.AddFace(loop)
	if err != nil {
		return err
	}
	r.created = append(r.created, f.ID())
	r.summary.Faces++
	return nil
}

// nearestVertex returns the closest vertex created by this import within the
// merge tolerance of p.
func (r *ImportRequest) nearestVertex(g *scene.Graph, p geom.Point) entity.ID {
	best, bestDist := entity.NoID, r.opts.MergeTolerance
	for _, id := range r.created {
		v, ok := g.Vertex(id)
		if !ok {
			continue
		}
		if d := v.Point().Dist(p); d <= bestDist {
			best, bestDist = id, d
		}
	}
	return best
}

// chain walks live edges from one corner towards the next, staying on the
// straight run between them.
func (r *ImportRequest) chain(g *scene.Graph, from, to entity.ID) ([]entity.ID, error) {
	target := r.point(g, to)
	var out []entity.ID
	for cur := from; cur != to; {
		here := r.point(g, cur)
		line := geom.NewLine(here, target)
		next, via := entity.NoID, entity.NoID
		bestDist := here.Dist(target)
		for _, eid := range g.Parents(cur) {
			e, ok := g.Edge(eid)
			if !ok || e.Removed() || slices.Contains(out, eid) {
				continue
			}
			other := e.Opposite(cur)
			p := r.point(g, other)
			if line.Distance(p) > r.opts.MergeTolerance || line.Param(p) <= 0 {
				continue
			}
			if d := p.Dist(target); d < bestDist {
				next, via, bestDist = other, eid, d
			}
		}
		if via == entity.NoID {
			e, err := g.AddEdge(cur, to, false, false)
			if err != nil {
				return nil, err
			}
			r.created = append(r.created, e.ID())
			r.summary.Edges++
			return append(out, e.ID()), nil
		}
		out = append(out, via)
		cur = next
	}
	return out, nil
}

func (r *ImportRequest) point(g *scene.Graph, id entity.ID) geom.Point {
	v, _ := g.Vertex(id)
	if v == nil {
		return geom.Point{}
	}
	return v.Point()
}

func (r *ImportRequest) OnUndo(g *scene.Graph, eff txn.CommitEffects) {
	if r.assoc != nil {
		for _, a := range r.associations {
			r.assoc.Remove(a.ID())
		}
	}
	g.Bus().Hold()
	defer g.Bus().Release()
	for i := len(eff.Created) - 1; i >= 0; i-- {
		r.setRemoved(g, eff.Created[i], true)
	}
}

func (r *ImportRequest) OnRedo(g *scene.Graph, eff txn.CommitEffects) {
	g.Bus().Hold()
	for _, id := range eff.Created {
		r.setRemoved(g, id, false)
	}
	g.Bus().Release()
	if r.assoc != nil {
		for _, a := range r.associations {
			if err := r.assoc.Add(a); err != nil {
				r.logger.Warn("association replay skipped", "association", a.ID(), "error", err)
			}
		}
	}
}

func (r *ImportRequest) setRemoved(g *scene.Graph, id entity.ID, removed bool) {
	if err := g.SetRemoved(id, removed); err != nil {
		r.logger.Warn("import replay skipped", "id", id, "error", err)
	}
}
