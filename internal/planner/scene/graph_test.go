package scene

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"floorplan/internal/planner/entity"
	"floorplan/internal/planner/geom"
	"floorplan/internal/planner/signal"
)

type recorder struct {
	signals []entity.Signal
}

func (r *recorder) listen(b *signal.Bus) {
	b.Listen(func(s entity.Signal) { r.signals = append(r.signals, s) })
}

func (r *recorder) of(kind entity.SignalKind) []entity.ID {
	var ids []entity.ID
	for _, s := range r.signals {
		if s.Data.Type == kind {
			ids = append(ids, s.Target)
		}
	}
	return ids
}

// square builds a 10×10 square face and returns the graph, its corner vertices and edges.
func square(t *testing.T) (*Graph, []*entity.Vertex, []*entity.Edge, *entity.Face) {
	t.Helper()
	g := New(signal.NewBus())
	pts := []geom.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}}
	var vs []*entity.Vertex
	for _, p := range pts {
		vs = append(vs, g.AddVertex(p))
	}
	var es []*entity.Edge
	var ids []entity.ID
	for i := range vs {
		e, err := g.AddEdge(vs[i].ID(), vs[(i+1)%len(vs)].ID(), false, false)
		require.NoError(t, err)
		es = append(es, e)
		ids = append(ids, e.ID())
	}
	f, err := g.AddFace(ids)
	require.NoError(t, err)
	return g, vs, es, f
}

func TestGraph_ParentIndex(t *testing.T) {
	g, vs, es, f := square(t)

	assert.Equal(t, []entity.ID{es[0].ID(), es[3].ID()}, g.Parents(vs[0].ID()))
	assert.Equal(t, []entity.ID{f.ID()}, g.Parents(es[1].ID()))
	assert.Equal(t, []entity.ID{g.Root()}, g.Parents(f.ID()))
	assert.Contains(t, g.Children(g.Root()), f.ID())
}

func TestGraph_AddEdgeRejectsRemovedEndpoint(t *testing.T) {
	g := New(signal.NewBus())
	a := g.AddVertex(geom.Point{})
	b := g.AddVertex(geom.Point{X: 1})
	require.NoError(t, g.SetRemoved(b.ID(), true))

	_, err := g.AddEdge(a.ID(), b.ID(), false, false)
	require.ErrorIs(t, err, ErrRemoved)

	_, err = g.AddEdge(a.ID(), 999, false, false)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGraph_InvalidatePropagatesOnce(t *testing.T) {
	g, vs, es, f := square(t)
	var rec recorder
	rec.listen(g.Bus())

	g.Invalidate(vs[0].ID(), vs[1].ID())

	dirty := rec.of(entity.SignalDirty)
	assert.ElementsMatch(t, []entity.ID{vs[0].ID(), vs[1].ID(), es[3].ID(), es[0].ID(), es[1].ID(), f.ID()}, dirty)
	assert.Len(t, dirty, 6, "shared dependents hear one signal")
}

func TestGraph_VertexSetSignals(t *testing.T) {
	g, vs, _, f := square(t)
	var rec recorder
	rec.listen(g.Bus())

	assert.False(t, vs[0].Set(0, 0, 0, true), "sub-epsilon move is a no-op")
	assert.Empty(t, rec.signals)

	assert.True(t, vs[0].Set(1, 0, 0, false))
	require.Len(t, rec.signals, 1)
	assert.Equal(t, "x", rec.signals[0].Data.FieldName)
	assert.Equal(t, entity.KindVertex, rec.signals[0].TargetKind)

	rec.signals = nil
	vs[0].Set(2, 0, 0, true)
	assert.Contains(t, rec.of(entity.SignalDirty), f.ID())
}

func TestGraph_SetRemovedAnnouncesToParents(t *testing.T) {
	g, _, _, f := square(t)
	slot, err := g.AddLightSlot(f.ID(), geom.Path{{ID: "c", Curve: geom.Segment{To: geom.Point{X: 1}}}}, 5, 5)
	require.NoError(t, err)

	var rec recorder
	rec.listen(g.Bus())
	require.NoError(t, g.SetRemoved(slot.ID(), true))
	assert.True(t, slot.Removed())
	assert.Equal(t, []entity.ID{slot.ID()}, rec.of(entity.SignalRemoved))
	assert.Equal(t, []entity.ID{f.ID()}, rec.of(entity.SignalChildRemoved))

	rec.signals = nil
	require.NoError(t, g.SetRemoved(slot.ID(), true), "repeat is a no-op")
	assert.Empty(t, rec.signals)

	require.NoError(t, g.SetRemoved(slot.ID(), false))
	assert.Equal(t, []entity.ID{f.ID()}, rec.of(entity.SignalChildAdded))
	assert.Contains(t, g.Children(f.ID()), slot.ID(), "soft delete keeps the index")
}

func TestGraph_FaceOutline(t *testing.T) {
	g, _, _, f := square(t)
	pts, ok := g.FaceOutline(f.ID())
	require.True(t, ok)
	assert.Equal(t, []geom.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}}, pts)
}

func TestGraph_SetFaceEdgesMovesIndex(t *testing.T) {
	g, vs, es, f := square(t)
	mid := g.AddVertex(geom.Point{X: 5})
	a, err := g.AddEdge(vs[0].ID(), mid.ID(), true, false)
	require.NoError(t, err)
	b, err := g.AddEdge(mid.ID(), vs[1].ID(), true, false)
	require.NoError(t, err)

	require.NoError(t, g.SetFaceEdges(f.ID(), []entity.ID{a.ID(), b.ID(), es[1].ID(), es[2].ID(), es[3].ID()}))
	assert.Empty(t, g.Parents(es[0].ID()))
	assert.Equal(t, []entity.ID{f.ID()}, g.Parents(a.ID()))

	pts, ok := g.FaceOutline(f.ID())
	require.True(t, ok)
	assert.Len(t, pts, 5)
}

func TestGraph_DumpLoad(t *testing.T) {
	g, vs, es, f := square(t)
	f.SetHidden(true)
	require.NoError(t, g.SetRemoved(es[2].ID(), true))
	slot, err := g.AddLightSlot(f.ID(), geom.Path{{ID: "c", Curve: geom.Segment{To: geom.Point{X: 3}}}}, 2, 4)
	require.NoError(t, err)

	data, err := json.Marshal(g.Dump())
	require.NoError(t, err)

	var snap Snapshot
	require.NoError(t, json.Unmarshal(data, &snap))
	loaded := New(signal.NewBus())
	require.NoError(t, loaded.Load(snap))

	lf, ok := loaded.Face(f.ID())
	require.True(t, ok)
	assert.True(t, lf.Hidden())
	le, ok := loaded.Edge(es[2].ID())
	require.True(t, ok)
	assert.True(t, le.Removed())
	assert.Equal(t, g.Parents(vs[0].ID()), loaded.Parents(vs[0].ID()))
	ls, ok := loaded.LightSlot(slot.ID())
	require.True(t, ok)
	assert.Equal(t, 4.0, ls.Height())
	assert.Equal(t, []entity.ID{f.ID()}, loaded.Parents(slot.ID()))

	next := loaded.AddVertex(geom.Point{})
	assert.Greater(t, next.ID(), slot.ID(), "ids are never reused")
}

func TestGraph_LoadRejectsDanglingEdge(t *testing.T) {
	g := New(signal.NewBus())
	err := g.Load(Snapshot{Root: 1, Edges: []EdgeRecord{{ID: 2, From: 3, To: 4}}})
	require.ErrorIs(t, err, ErrNotFound)
}
