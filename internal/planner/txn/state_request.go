package txn

import (
	"fmt"
	"maps"
	"slices"

	"floorplan/internal/planner/association"
	"floorplan/internal/planner/entity"
	"floorplan/internal/planner/geom"
	"floorplan/internal/planner/scene"
)

// ============================================================
// State Request
// ============================================================

// StateRequest records field-level before/after snapshots of the entities in
// its scope around a mutation. Undo writes the before state back, redo the after state.
type StateRequest struct {
	kind   string
	scope  func(*scene.Graph) []entity.ID
	mutate func(*scene.Graph) error
	ids    []entity.ID
	before map[entity.ID]entity.State
	after  map[entity.ID]entity.State
}

func NewStateRequest(kind string, scope func(*scene.Graph) []entity.ID, mutate func(*scene.Graph) error) *StateRequest {
	return &StateRequest{kind: kind, scope: scope, mutate: mutate}
}

func (r *StateRequest) Type() string { return r.kind }

func (r *StateRequest) CanTransactField() bool { return true }

func (r *StateRequest) OnCommit(g *scene.Graph) (CommitEffects, error) {
	r.ids = r.scope(g)
	r.before = capture(g, r.ids)
	if err := r.mutate(g); err != nil {
		restore(g, r.before)
		return CommitEffects{}, err
	}
	r.after = capture(g, r.ids)
	r.dropUnchanged()
	return CommitEffects{}, nil
}

func (r *StateRequest) OnUndo(g *scene.Graph, _ CommitEffects) {
	restore(g, r.before)
}

func (r *StateRequest) OnRedo(g *scene.Graph, _ CommitEffects) {
	restore(g, r.after)
}

// Compose folds next into r when both cover the same entities. The earliest
// before state and the latest after state survive.
func (r *StateRequest) Compose(next Request) bool {
	n, ok := next.(*StateRequest)
	if !ok || n.kind != r.kind || !slices.Equal(r.ids, n.ids) {
		return false
	}
	for id, st := range n.before {
		if _, seen := r.before[id]; !seen {
			r.before[id] = st
		}
	}
	for id, st := range n.after {
		r.after[id] = st
	}
	r.dropUnchanged()
	return true
}

// Changed returns the entities whose fields differ between before and after.
func (r *StateRequest) Changed() []entity.ID {
	return slices.Sorted(maps.Keys(r.after))
}

func (r *StateRequest) dropUnchanged() {
	for id, before := range r.before {
		if after, ok := r.after[id]; ok && maps.Equal(before, after) {
			delete(r.before, id)
			delete(r.after, id)
		}
	}
}

func capture(g *scene.Graph, ids []entity.ID) map[entity.ID]entity.State {
	out := make(map[entity.ID]entity.State, len(ids))
	for _, id := range ids {
		if e, ok := g.Get(id); ok {
			out[id] = e.State()
		}
	}
	return out
}

// restore writes states back with the bus held, then invalidates once.
func restore(g *scene.Graph, states map[entity.ID]entity.State) {
	if len(states) == 0 {
		return
	}
	ids := slices.Sorted(maps.Keys(states))
	g.Bus().Hold()
	for _, id := range ids {
		if e, ok := g.Get(id); ok {
			e.Restore(states[id])
		}
	}
	g.Bus().Release()
	g.Invalidate(ids...)
}

// ============================================================
// Field requests
// ============================================================

// NewMoveVertexRequest moves a vertex and marks its dependents dirty.
func NewMoveVertexRequest(vertex entity.ID, to geom.Point) *StateRequest {
	return NewStateRequest("moveVertex",
		func(*scene.Graph) []entity.ID { return []entity.ID{vertex} },
		func(g *scene.Graph) error {
			v, ok := g.Vertex(vertex)
			if !ok || v.Removed() {
				return fmt.Errorf("vertex %d: %w", vertex, scene.ErrNotFound)
			}
			v.Set(to.X, to.Y, to.Z, true)
			return nil
		})
}

// NewExtendEdgeRequest extends edge to a colinear point. A point off the
// edge's line leaves the graph untouched.
func NewExtendEdgeRequest(edge entity.ID, to geom.Point, tol float64) *StateRequest {
	return NewStateRequest("extendEdge",
		func(g *scene.Graph) []entity.ID {
			e, ok := g.Edge(edge)
			if !ok {
				return nil
			}
			return []entity.ID{e.From(), e.To()}
		},
		func(g *scene.Graph) error {
			if e, ok := g.Edge(edge); !ok || e.Removed() {
				return fmt.Errorf("edge %d: %w", edge, scene.ErrNotFound)
			}
			association.ExtendEdgeToPoint(g, edge, to, tol)
			return nil
		})
}

// FaceFields is a partial update of face fields; nil fields are left alone.
type FaceFields struct {
	Hidden   *bool   `json:"hidden,omitempty"`
	Material *string `json:"material,omitempty"`
}

func NewFaceFieldsRequest(face entity.ID, fields FaceFields) *StateRequest {
	return NewStateRequest("faceFields",
		func(*scene.Graph) []entity.ID { return []entity.ID{face} },
		func(g *scene.Graph) error {
			f, ok := g.Face(face)
			if !ok || f.Removed() {
				return fmt.Errorf("face %d: %w", face, scene.ErrNotFound)
			}
			if fields.Hidden != nil {
				f.SetHidden(*fields.Hidden)
			}
			if fields.Material != nil {
				f.SetMaterial(*fields.Material)
			}
			return nil
		})
}

// ============================================================
// Deferred association recomputation
// ============================================================

// NewComputeAssociationsRequest settles pending associations. Its scope is
// every live vertex because the moved set is only known afterwards.
func NewComputeAssociationsRequest(mgr *association.Manager, rounds int) *StateRequest {
	return NewStateRequest("computeAssociations",
		func(g *scene.Graph) []entity.ID { return g.LiveIDs(entity.KindVertex) },
		func(*scene.Graph) error {
			mgr.ComputePending(rounds)
			return nil
		})
}
