package relation

import (
	"math"
	"slices"

	"floorplan/internal/planner/entity"
	"floorplan/internal/planner/geom"
	"floorplan/internal/planner/scene"
)

// KindFaceVisible is the face visibility relationship.
const KindFaceVisible Kind = "faceVisible"

// Visibility is the derived visibility of a face.
type Visibility struct {
	Visible bool
	Area    float64
	Outline []geom.Point
}

var (
	vertexGeometryFields = []string{"x", "y", "z"}
	faceVisibilityFields = []string{"hidden", "edges"}
)

// FaceVisible caches per-face visibility and drops entries when the geometry
// or visibility flags of the face, its edges or their vertices change.
type FaceVisible struct {
	graph *scene.Graph
	cache *Cache[Visibility]
}

func NewFaceVisible(m *Manager, g *scene.Graph) *FaceVisible {
	r := &FaceVisible{graph: g, cache: NewCache[Visibility](KindFaceVisible)}
	m.RegisterConfigs(KindFaceVisible,
		Config{
			TargetKinds: entity.KindsOf(entity.KindFace),
			ActionTypes: []entity.SignalKind{
				entity.SignalDirty, entity.SignalChildAdded, entity.SignalChildRemoved,
				entity.SignalRemoved, entity.SignalRestored,
			},
			Callback: r.onFaceChanged,
		},
		Config{
			TargetKinds: entity.KindsOf(entity.KindFace),
			ActionTypes: []entity.SignalKind{entity.SignalFieldChanged},
			Callback:    r.onFaceFieldChanged,
		},
		Config{
			TargetKinds: entity.KindsOf(entity.KindEdge),
			ActionTypes: []entity.SignalKind{entity.SignalDirty, entity.SignalRemoved, entity.SignalRestored},
			Callback:    r.onEdgeChanged,
		},
		Config{
			TargetKinds: entity.KindsOf(entity.KindVertex),
			ActionTypes: []entity.SignalKind{entity.SignalFieldChanged},
			Callback:    r.onVertexFieldChanged,
		},
	)
	return r
}

// Data returns the cached entry without computing it.
func (r *FaceVisible) Data(face entity.ID) (Visibility, bool) {
	return r.cache.Get(face)
}

// Get returns the visibility of face, computing and caching it on a miss.
func (r *FaceVisible) Get(face entity.ID) Visibility {
	if v, ok := r.cache.Get(face); ok {
		return v
	}
	v := r.compute(face)
	r.cache.Set(face, v)
	return v
}

func (r *FaceVisible) Clear() {
	r.cache.Clear()
}

func (r *FaceVisible) compute(id entity.ID) Visibility {
	f, ok := r.graph.Face(id)
	if !ok || f.Removed() {
		return Visibility{}
	}
	for _, eid := range f.Edges() {
		if e, ok := r.graph.Edge(eid); !ok || e.Removed() {
			return Visibility{}
		}
	}
	outline, ok := r.graph.FaceOutline(id)
	if !ok {
		return Visibility{}
	}
	area := polygonArea(outline)
	return Visibility{
		Visible: !f.Hidden() && area > geom.Epsilon,
		Area:    area,
		Outline: outline,
	}
}

func polygonArea(pts []geom.Point) float64 {
	var sum float64
	for i := range pts {
		j := (i + 1) % len(pts)
		sum += pts[i].X*pts[j].Y - pts[j].X*pts[i].Y
	}
	return math.Abs(sum) / 2
}

// ============================================================
// Triggers
// ============================================================

// hasParent reports whether id is still attached somewhere. Detached sources are ignored.
func (r *FaceVisible) hasParent(id entity.ID) bool {
	return len(r.graph.Parents(id)) > 0
}

func (r *FaceVisible) onFaceChanged(ev Event) {
	if !r.hasParent(ev.Signal.Target) {
		return
	}
	r.cache.Delete(ev.Signal.Target)
}

func (r *FaceVisible) onFaceFieldChanged(ev Event) {
	if !slices.Contains(faceVisibilityFields, ev.Signal.Data.FieldName) {
		return
	}
	r.onFaceChanged(ev)
}

func (r *FaceVisible) onEdgeChanged(ev Event) {
	r.clearFacesOf(ev.Signal.Target)
}

func (r *FaceVisible) onVertexFieldChanged(ev Event) {
	if !slices.Contains(vertexGeometryFields, ev.Signal.Data.FieldName) {
		return
	}
	// edges are walked through the parent index only, so removed edges are
	// cleared without dereferencing their geometry
	for _, eid := range r.graph.Parents(ev.Signal.Target) {
		r.clearFacesOf(eid)
	}
}

func (r *FaceVisible) clearFacesOf(edge entity.ID) {
	for _, fid := range r.graph.Parents(edge) {
		r.cache.Delete(fid)
	}
}
