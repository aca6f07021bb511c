package txn

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"floorplan/internal/planner/entity"
	"floorplan/internal/planner/geom"
	"floorplan/internal/planner/scene"
)

func seg(id string, x0, y0, x1, y1 float64) geom.Coedge {
	return geom.Coedge{ID: id, Curve: geom.Segment{From: geom.Point{X: x0, Y: y0}, To: geom.Point{X: x1, Y: y1}}}
}

func addSlot(t *testing.T, e *env, face entity.ID, path geom.Path) (*AddLightSlotRequest, *entity.LightSlot) {
	t.Helper()
	r := NewAddLightSlotRequest(AddLightSlotParams{Parent: face, Path: path, Width: 1, Height: 2})
	require.NoError(t, e.engine.Apply(r))
	entry, ok := e.engine.Entry(r)
	require.True(t, ok)
	require.Len(t, entry.Effects().Created, 1)
	slot, ok := e.graph.LightSlot(entry.Effects().Created[0])
	require.True(t, ok)
	return r, slot
}

func TestAddLightSlot_Plain(t *testing.T) {
	e := newEnv(t, DefaultOptions())
	_, _, f := e.square(t)

	_, slot := addSlot(t, e, f.ID(), geom.Path{seg("a", 0, 1, 5, 1)})
	assert.Contains(t, e.graph.Children(f.ID()), slot.ID())
	assert.Equal(t, 2.0, slot.Height())

	require.NoError(t, e.engine.Undo())
	assert.True(t, slot.Removed())
	require.NoError(t, e.engine.Redo())
	assert.False(t, slot.Removed())
}

func TestAddLightSlot_RejectsBadParams(t *testing.T) {
	e := newEnv(t, DefaultOptions())
	_, _, f := e.square(t)

	err := e.engine.Apply(NewAddLightSlotRequest(AddLightSlotParams{Parent: f.ID()}))
	require.ErrorIs(t, err, ErrInvalidParams)
	err = e.engine.Apply(NewAddLightSlotRequest(AddLightSlotParams{Parent: 999, Path: geom.Path{seg("a", 0, 0, 1, 0)}}))
	require.Error(t, err)
	assert.False(t, e.engine.CanUndo())
}

func TestAddLightSlot_FailedCommitRestoresOverlapped(t *testing.T) {
	e := newEnv(t, DefaultOptions())
	_, _, f := e.square(t)
	_, old := addSlot(t, e, f.ID(), geom.Path{seg("a", 0, 1, 6, 1)})
	require.NoError(t, e.graph.SetRemoved(f.ID(), true))

	err := e.engine.Apply(NewAddLightSlotRequest(AddLightSlotParams{Parent: f.ID(), Path: geom.Path{seg("b", 4, 1, 9, 1)}, Width: 1, Height: 2}))
	require.ErrorIs(t, err, scene.ErrRemoved)
	assert.False(t, old.Removed(), "overlapped slot is put back")
}

func TestAddLightSlot_OverlapRemovesExisting(t *testing.T) {
	e := newEnv(t, DefaultOptions())
	_, _, f := e.square(t)
	_, old := addSlot(t, e, f.ID(), geom.Path{seg("a", 0, 1, 6, 1)})

	_, created := addSlot(t, e, f.ID(), geom.Path{seg("b", 4, 1, 9, 1)})
	assert.True(t, old.Removed())
	assert.Equal(t, geom.Path{seg("b", 4, 1, 9, 1)}, created.Path(), "overlapping slots are not merged")
}

func TestAddLightSlot_SharedCoedgeCountsAsOverlap(t *testing.T) {
	e := newEnv(t, DefaultOptions())
	_, _, f := e.square(t)
	arc := geom.Coedge{ID: "shared", Curve: geom.Arc{Center: geom.Point{X: 5, Y: 5}, Radius: 2, Start: 0, Sweep: math.Pi / 2}}
	_, old := addSlot(t, e, f.ID(), geom.Path{arc})

	// same coedge id, different geometry
	_, created := addSlot(t, e, f.ID(), geom.Path{seg("shared", 1, 8, 2, 8)})
	assert.True(t, old.Removed())
	assert.Len(t, created.Path(), 1)
}

func TestAddLightSlot_MergesAdjacent(t *testing.T) {
	tests := []struct {
		name     string
		existing geom.Path
		added    geom.Path
		want     geom.Path
	}{
		{
			name:     "existing before new",
			existing: geom.Path{seg("a", 0, 1, 5, 1)},
			added:    geom.Path{seg("n", 5, 1, 5, 6)},
			want:     geom.Path{seg("a", 0, 1, 5, 1), seg("n", 5, 1, 5, 6)},
		},
		{
			name:     "existing after new",
			existing: geom.Path{seg("a", 5, 6, 1, 6)},
			added:    geom.Path{seg("n", 5, 1, 5, 6)},
			want:     geom.Path{seg("n", 5, 1, 5, 6), seg("a", 5, 6, 1, 6)},
		},
		{
			name:     "existing reversed",
			existing: geom.Path{seg("a", 5, 1, 0, 1)},
			added:    geom.Path{seg("n", 5, 1, 5, 6)},
			want:     geom.Path{seg("a", 0, 1, 5, 1), seg("n", 5, 1, 5, 6)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t, DefaultOptions())
			_, _, f := e.square(t)
			_, old := addSlot(t, e, f.ID(), tt.existing)

			_, created := addSlot(t, e, f.ID(), tt.added)
			assert.True(t, old.Removed())
			assert.Equal(t, tt.want, created.Path())
		})
	}
}

func TestAddLightSlot_MergesThroughBothEnds(t *testing.T) {
	e := newEnv(t, DefaultOptions())
	_, _, f := e.square(t)
	_, left := addSlot(t, e, f.ID(), geom.Path{seg("l", 0, 1, 2, 1)})
	_, right := addSlot(t, e, f.ID(), geom.Path{seg("r", 4, 1, 6, 1)})

	_, created := addSlot(t, e, f.ID(), geom.Path{seg("m", 2, 1, 4, 1)})
	assert.True(t, left.Removed())
	assert.True(t, right.Removed())
	assert.Len(t, created.Path(), 3)
	assert.Equal(t, geom.Point{X: 0, Y: 1}, created.Path().StartPt())
	assert.Equal(t, geom.Point{X: 6, Y: 1}, created.Path().EndPt())
}

func TestAddLightSlot_ArcTangentMismatchDoesNotMerge(t *testing.T) {
	e := newEnv(t, DefaultOptions())
	_, _, f := e.square(t)
	// starts at (0,0) heading +x
	arc := geom.Coedge{ID: "arc", Curve: geom.Arc{Center: geom.Point{X: 0, Y: 5}, Radius: 5, Start: -math.Pi / 2, Sweep: math.Pi / 2}}
	_, old := addSlot(t, e, f.ID(), geom.Path{arc})

	// arrives at (0,0) heading +y
	_, created := addSlot(t, e, f.ID(), geom.Path{seg("n", 0, -5, 0, 0)})
	assert.False(t, old.Removed())
	assert.Len(t, created.Path(), 1)

	// arrives at (0,0) heading +x: tangent continuous
	_, merged := addSlot(t, e, f.ID(), geom.Path{seg("m", -5, 0, 0, 0)})
	assert.True(t, old.Removed())
	assert.Len(t, merged.Path(), 2)
}

func TestAddLightSlot_SiblingFacesAreIndependent(t *testing.T) {
	e := newEnv(t, DefaultOptions())
	_, es, f := e.square(t)
	other, err := e.graph.AddFace([]entity.ID{es[0].ID(), es[1].ID(), es[2].ID(), es[3].ID()})
	require.NoError(t, err)
	_, old := addSlot(t, e, other.ID(), geom.Path{seg("a", 0, 1, 6, 1)})

	addSlot(t, e, f.ID(), geom.Path{seg("b", 0, 1, 6, 1)})
	assert.False(t, old.Removed())
}

func TestAddLightSlot_UndoDoesNotRestoreMerged(t *testing.T) {
	e := newEnv(t, DefaultOptions())
	_, _, f := e.square(t)
	_, a := addSlot(t, e, f.ID(), geom.Path{seg("a", 0, 1, 5, 1)})
	req, created := addSlot(t, e, f.ID(), geom.Path{seg("n", 5, 1, 9, 1)})
	require.True(t, a.Removed())

	entry, _ := e.engine.Entry(req)
	assert.Equal(t, []entity.ID{a.ID()}, entry.Effects().Removed)

	require.NoError(t, e.engine.Undo())
	assert.True(t, created.Removed())
	assert.True(t, a.Removed(), "undo only removes the created slot")

	// unrelated slot that overlaps the created one while it is undone
	c, err := e.graph.AddLightSlot(f.ID(), geom.Path{seg("c", 6, 1, 8, 1)}, 1, 1)
	require.NoError(t, err)

	require.NoError(t, e.engine.Redo())
	assert.False(t, created.Removed())
	assert.True(t, a.Removed())
	assert.False(t, c.Removed(), "redo replays the recorded removals only")
}
