package relation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"floorplan/internal/planner/entity"
	"floorplan/internal/planner/geom"
	"floorplan/internal/planner/scene"
	"floorplan/internal/planner/signal"
)

type fixture struct {
	graph    *scene.Graph
	rel      *FaceVisible
	vertices []*entity.Vertex
	edges    []*entity.Edge
	face     *entity.Face
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	bus := signal.NewBus()
	g := scene.New(bus)
	rel := NewFaceVisible(NewManager(bus), g)

	fx := &fixture{graph: g, rel: rel}
	for _, p := range []geom.Point{{X: 0, Y: 0}, {X: 4, Y: 0}, {X: 4, Y: 3}, {X: 0, Y: 3}} {
		fx.vertices = append(fx.vertices, g.AddVertex(p))
	}
	var ids []entity.ID
	for i, v := range fx.vertices {
		e, err := g.AddEdge(v.ID(), fx.vertices[(i+1)%4].ID(), false, false)
		require.NoError(t, err)
		fx.edges = append(fx.edges, e)
		ids = append(ids, e.ID())
	}
	f, err := g.AddFace(ids)
	require.NoError(t, err)
	fx.face = f
	return fx
}

// warm computes and caches the face entry.
func (fx *fixture) warm(t *testing.T) {
	t.Helper()
	v := fx.rel.Get(fx.face.ID())
	require.True(t, v.Visible)
	_, ok := fx.rel.Data(fx.face.ID())
	require.True(t, ok)
}

func (fx *fixture) cached() bool {
	_, ok := fx.rel.Data(fx.face.ID())
	return ok
}

func TestFaceVisible_Compute(t *testing.T) {
	fx := newFixture(t)
	v := fx.rel.Get(fx.face.ID())
	assert.True(t, v.Visible)
	assert.InDelta(t, 12, v.Area, 1e-9)
	assert.Len(t, v.Outline, 4)
}

func TestFaceVisible_InvalidatedByMatchingSignals(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(fx *fixture)
	}{
		{"vertex moved", func(fx *fixture) { fx.vertices[2].Set(5, 3, 0, false) }},
		{"vertex z changed", func(fx *fixture) { fx.vertices[2].Set(4, 3, 1, false) }},
		{"edge dirty", func(fx *fixture) { fx.edges[1].Dirty() }},
		{"face hidden", func(fx *fixture) { fx.face.SetHidden(true) }},
		{"face dirty", func(fx *fixture) { fx.graph.Invalidate(fx.face.ID()) }},
		{"child added", func(fx *fixture) {
			_, _ = fx.graph.AddLightSlot(fx.face.ID(), geom.Path{{ID: "c", Curve: geom.Segment{To: geom.Point{X: 1}}}}, 1, 1)
		}},
		{"edge removed", func(fx *fixture) { _ = fx.graph.SetRemoved(fx.edges[0].ID(), true) }},
		{"face removed", func(fx *fixture) { _ = fx.graph.SetRemoved(fx.face.ID(), true) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture(t)
			fx.warm(t)
			tt.mutate(fx)
			assert.False(t, fx.cached(), "entry must be absent until recomputed")
		})
	}
}

func TestFaceVisible_UnwatchedFieldKeepsEntry(t *testing.T) {
	fx := newFixture(t)
	fx.warm(t)

	fx.face.SetMaterial("oak")
	assert.True(t, fx.cached())

	fx.graph.Dispatch(entity.Signal{
		Target: fx.vertices[0].ID(),
		Data:   entity.SignalData{Type: entity.SignalFieldChanged, FieldName: "label"},
	})
	assert.True(t, fx.cached())
}

func TestFaceVisible_DetachedSourceIgnored(t *testing.T) {
	fx := newFixture(t)
	fx.warm(t)

	loose := fx.graph.AddVertex(geom.Point{X: 50, Y: 50})
	loose.Set(51, 50, 0, true)
	assert.True(t, fx.cached())
}

func TestFaceVisible_RemovedEdgeClearsWithoutRecompute(t *testing.T) {
	fx := newFixture(t)
	fx.warm(t)
	require.NoError(t, fx.graph.SetRemoved(fx.edges[1].ID(), true))
	assert.False(t, fx.cached())

	fx.warm2(t)
	// moving a vertex of the removed edge still clears the face through the index
	fx.vertices[1].Set(4, -1, 0, false)
	assert.False(t, fx.cached())
}

// warm2 caches the entry without requiring visibility.
func (fx *fixture) warm2(t *testing.T) {
	t.Helper()
	v := fx.rel.Get(fx.face.ID())
	assert.False(t, v.Visible, "a face with a removed edge is not visible")
	require.True(t, fx.cached())
}

func TestFaceVisible_HiddenFaceRecomputes(t *testing.T) {
	fx := newFixture(t)
	fx.warm(t)
	fx.face.SetHidden(true)
	assert.False(t, fx.rel.Get(fx.face.ID()).Visible)
	fx.face.SetHidden(false)
	assert.True(t, fx.rel.Get(fx.face.ID()).Visible)
}

func TestManager_RegistrationOrderAndMatching(t *testing.T) {
	bus := signal.NewBus()
	m := NewManager(bus)
	var calls []string
	m.RegisterConfigs("a", Config{
		TargetKinds: entity.KindsOf(entity.KindEdge),
		ActionTypes: []entity.SignalKind{entity.SignalDirty},
		Callback:    func(ev Event) { calls = append(calls, "a1:"+string(ev.Relation)) },
	})
	m.RegisterConfigs("b", Config{
		TargetKinds: entity.KindsOf(entity.KindEdge, entity.KindVertex),
		ActionTypes: []entity.SignalKind{entity.SignalDirty, entity.SignalRemoved},
		Callback:    func(Event) { calls = append(calls, "b1") },
	})
	m.RegisterConfigs("a", Config{
		TargetKinds: entity.KindsOf(entity.KindEdge),
		ActionTypes: []entity.SignalKind{entity.SignalDirty},
		Callback:    func(Event) { calls = append(calls, "a2") },
	})

	bus.Dispatch(entity.Signal{Target: 1, TargetKind: entity.KindEdge, Data: entity.SignalData{Type: entity.SignalDirty}})
	assert.Equal(t, []string{"a1:a", "a2", "b1"}, calls)
	assert.Equal(t, []Kind{"a", "b"}, m.Kinds())

	calls = nil
	bus.Dispatch(entity.Signal{Target: 1, TargetKind: entity.KindFace, Data: entity.SignalData{Type: entity.SignalDirty}})
	assert.Empty(t, calls)

	m.Close()
	bus.Dispatch(entity.Signal{Target: 1, TargetKind: entity.KindEdge, Data: entity.SignalData{Type: entity.SignalDirty}})
	assert.Empty(t, calls)
}

func TestCache(t *testing.T) {
	c := NewCache[int]("test")
	_, ok := c.Get(1)
	assert.False(t, ok)
	c.Set(1, 42)
	v, ok := c.Get(1)
	require.True(t, ok)
	assert.Equal(t, 42, v)
	c.Delete(1)
	c.Delete(1)
	assert.Zero(t, c.Len())
	c.Set(2, 1)
	c.Clear()
	assert.Zero(t, c.Len())
}
