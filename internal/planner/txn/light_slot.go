package txn

import (
	"fmt"
	"log/slog"

	"floorplan/internal/planner/entity"
	"floorplan/internal/planner/geom"
	"floorplan/internal/planner/scene"
)

// ============================================================
// Add light slot (merge on create)
// ============================================================

const (
	defaultMergeTolerance = 1e-6
	tangentTolerance      = 1e-6
)

type AddLightSlotParams struct {
	Parent entity.ID `json:"parent"`
	Path   geom.Path `json:"path"`
	Width  float64   `json:"width"`
	Height float64   `json:"height"`
	// Tolerance for endpoint matching and overlap; zero picks a default.
	Tolerance float64 `json:"tolerance,omitempty"`
}

// AddLightSlotRequest inserts a light slot on a face. Existing slots that
// overlap the new path are removed; adjacent compatible slots are merged
// into it and removed.
type AddLightSlotRequest struct {
	params AddLightSlotParams
	logger *slog.Logger
}

func NewAddLightSlotRequest(p AddLightSlotParams) *AddLightSlotRequest {
	p.Path = p.Path.Clone()
	if p.Tolerance <= 0 {
		p.Tolerance = defaultMergeTolerance
	}
	return &AddLightSlotRequest{params: p, logger: slog.Default().With("component", "txn.AddLightSlot")}
}

func (r *AddLightSlotRequest) Type() string { return "addLightSlot" }

// CanTransactField is true: the request only adds and removes whole entities.
func (r *AddLightSlotRequest) CanTransactField() bool { return true }

func (r *AddLightSlotRequest) OnCommit(g *scene.Graph) (CommitEffects, error) {
	p := r.params
	if len(p.Path) == 0 {
		return CommitEffects{}, fmt.Errorf("empty light slot path: %w", ErrInvalidParams)
	}

	path := p.Path.Clone()
	var removed []entity.ID
	var candidates []*entity.LightSlot
	for _, id := range g.Children(p.Parent) {
		s, ok := g.LightSlot(id)
		if !ok || s.Removed() {
			continue
		}
		if pathsOverlap(path, s.Path(), p.Tolerance) {
			removed = append(removed, id)
			continue
		}
		candidates = append(candidates, s)
	}

	// merging moves the path ends, so rescan until nothing more joins
	for merged := true; merged; {
		merged = false
		for i, s := range candidates {
			if s == nil {
				continue
			}
			joined, ok := mergePaths(path, s.Path(), p.Tolerance)
			if !ok {
				continue
			}
			path = joined
			removed = append(removed, s.ID())
			candidates[i] = nil
			merged = true
		}
	}

	g.Bus().Hold()
	defer g.Bus().Release()
	for i, id := range removed {
		if err := g.SetRemoved(id, true); err != nil {
			r.restore(g, removed[:i])
			return CommitEffects{}, err
		}
	}
	slot, err := g.AddLightSlot(p.Parent, path, p.Width, p.Height)
	if err != nil {
		r.restore(g, removed)
		return CommitEffects{}, err
	}
	r.logger.Debug("light slot created", "id", slot.ID(), "coedges", len(path), "removed", len(removed))
	return CommitEffects{Created: []entity.ID{slot.ID()}, Removed: removed}, nil
}

// restore brings back slots removed by a commit that then failed.
func (r *AddLightSlotRequest) restore(g *scene.Graph, ids []entity.ID) {
	for _, id := range ids {
		r.setRemoved(g, id, false)
	}
}

// OnUndo only removes the created slot. Slots removed by the commit stay removed.
func (r *AddLightSlotRequest) OnUndo(g *scene.Graph, eff CommitEffects) {
	g.Bus().Hold()
	defer g.Bus().Release()
	for _, id := range eff.Created {
		r.setRemoved(g, id, true)
	}
}

// OnRedo restores the created slot and replays the recorded removals verbatim.
func (r *AddLightSlotRequest) OnRedo(g *scene.Graph, eff CommitEffects) {
	g.Bus().Hold()
	defer g.Bus().Release()
	for _, id := range eff.Created {
		r.setRemoved(g, id, false)
	}
	for _, id := range eff.Removed {
		r.setRemoved(g, id, true)
	}
}

func (r *AddLightSlotRequest) setRemoved(g *scene.Graph, id entity.ID, removed bool) {
	if err := g.SetRemoved(id, removed); err != nil {
		r.logger.Warn("light slot replay skipped", "id", id, "error", err)
	}
}

// ============================================================
// Path matching
// ============================================================

// pathsOverlap reports a shared coedge or a geometric overlap between any two curves.
func pathsOverlap(a, b geom.Path, tol float64) bool {
	for _, ca := range a {
		for _, cb := range b {
			if ca.ID != "" && ca.ID == cb.ID {
				return true
			}
			if geom.Overlaps(ca.Curve, cb.Curve, tol) {
				return true
			}
		}
	}
	return false
}

// mergePaths joins other onto cur at a shared endpoint, in head/tail order,
// walking other backwards when only its reverse connects.
func mergePaths(cur, other geom.Path, tol float64) (geom.Path, bool) {
	for _, o := range []geom.Path{other, other.Reverse()} {
		if joined, ok := join(o, cur, tol); ok {
			return joined, true
		}
		if joined, ok := join(cur, o, tol); ok {
			return joined, true
		}
	}
	return nil, false
}

func join(head, tail geom.Path, tol float64) (geom.Path, bool) {
	if !head.EndPt().Equal(tail.StartPt(), tol) {
		return nil, false
	}
	if !continuous(head[len(head)-1].Curve, tail[0].Curve) {
		return nil, false
	}
	return append(head.Clone(), tail...), true
}

// continuous decides whether two curves meeting at a point may be concatenated.
// Two straight segments only need the shared endpoint; an arc on either side
// also needs matching tangents at the joint.
func continuous(a, b geom.Curve) bool {
	if a.Type() == geom.CurveLine && b.Type() == geom.CurveLine {
		return true
	}
	return a.EndTangent().Sub(b.StartTangent()).Len() <= tangentTolerance
}
