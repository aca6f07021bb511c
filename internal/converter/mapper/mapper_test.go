package mapper

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"floorplan/internal/converter/graph"
	"floorplan/internal/converter/parser"
	"floorplan/internal/planner/document"
	"floorplan/internal/planner/entity"
	"floorplan/internal/planner/geom"
	"floorplan/internal/planner/txn"
)

const planSVG = `<svg xmlns="http://www.w3.org/2000/svg">
  <rect id="Wall_top" x="0" y="-5" width="100" height="10"/>
  <rect id="Wall_bottom" x="0" y="55" width="100" height="10"/>
  <rect id="Wall_left" x="-5" y="0" width="10" height="60"/>
  <rect id="Wall_right" x="95" y="0" width="10" height="60"/>
  <rect id="Wall_inner" x="45" y="0" width="10" height="30"/>
  <rect id="Room_hall" x="5" y="5" width="90" height="50"/>
  <rect id="Door_1" x="20" y="-5" width="20" height="10"/>
</svg>`

func importPlan(t *testing.T) (*document.Document, *ImportRequest) {
	t.Helper()
	els, err := parser.ParseSVG(strings.NewReader(planSVG))
	require.NoError(t, err)

	doc := document.New("", "test", txn.DefaultOptions())
	t.Cleanup(doc.Close)

	var req *ImportRequest
	require.NoError(t, doc.Do(func(s *document.Session) error {
		req = NewImportRequest(els, graph.DefaultOptions(), s.Associations())
		return s.Engine().Apply(req)
	}))
	return doc, req
}

func vertexAt(t *testing.T, s *document.Session, p geom.Point) entity.ID {
	t.Helper()
	for _, id := range s.Graph().LiveIDs(entity.KindVertex) {
		v, _ := s.Graph().Vertex(id)
		if v.Point().Equal(p, 1e-9) {
			return id
		}
	}
	t.Fatalf("no vertex at %v", p)
	return entity.NoID
}

func TestImport_Summary(t *testing.T) {
	doc, req := importPlan(t)

	sum := req.Summary()
	assert.Equal(t, 6, sum.Vertices)
	assert.Equal(t, 5, sum.Edges)
	assert.Equal(t, 0, sum.SplitEdges)
	assert.Equal(t, 1, sum.Faces)
	assert.Equal(t, 1, sum.Associations)
	assert.Equal(t, []string{"Door_1"}, sum.Skipped)

	require.NoError(t, doc.Do(func(s *document.Session) error {
		faces := s.Graph().LiveIDs(entity.KindFace)
		require.Len(t, faces, 1)
		vis := s.Visible().Get(faces[0])
		assert.True(t, vis.Visible)
		assert.InDelta(t, 6000, vis.Area, 1e-9)
		assert.Len(t, s.Associations().All(), 1)
		assert.False(t, s.Associations().HasPending())
		return nil
	}))
}

func TestImport_UndoRedo(t *testing.T) {
	doc, _ := importPlan(t)

	require.NoError(t, doc.Do(func(s *document.Session) error {
		require.NoError(t, s.Engine().Undo())
		assert.Empty(t, s.Graph().LiveIDs(entity.KindVertex))
		assert.Empty(t, s.Graph().LiveIDs(entity.KindEdge))
		assert.Empty(t, s.Graph().LiveIDs(entity.KindFace))
		assert.Empty(t, s.Associations().All())

		require.NoError(t, s.Engine().Redo())
		assert.Len(t, s.Graph().LiveIDs(entity.KindVertex), 6)
		assert.Len(t, s.Graph().LiveIDs(entity.KindFace), 1)
		assert.Len(t, s.Associations().All(), 1)
		return nil
	}))
}

func TestImport_JunctionFollowsBar(t *testing.T) {
	doc, _ := importPlan(t)

	require.NoError(t, doc.Do(func(s *document.Session) error {
		corner := vertexAt(t, s, geom.Point{X: 0, Y: 0})
		stem := vertexAt(t, s, geom.Point{X: 50, Y: 0})

		require.NoError(t, s.Engine().Apply(txn.NewMoveVertexRequest(corner, geom.Point{X: 0, Y: 10})))
		v, _ := s.Graph().Vertex(stem)
		assert.InDelta(t, 50, v.X(), 1e-9)
		assert.InDelta(t, 5, v.Y(), 1e-9)

		require.NoError(t, s.Engine().Undo())
		assert.InDelta(t, 0, v.Y(), 1e-9)
		return nil
	}))
}

func TestImport_BadWallAbortsCleanly(t *testing.T) {
	doc := document.New("", "bad", txn.DefaultOptions())
	t.Cleanup(doc.Close)

	els, err := parser.ParseSVG(strings.NewReader(`<svg>
  <rect id="Wall_ok" x="0" y="0" width="100" height="10"/>
  <path id="Wall_curved" d="M0 0 C 1 1 2 2 3 3"/>
</svg>`))
	require.NoError(t, err)

	require.NoError(t, doc.Do(func(s *document.Session) error {
		err := s.Engine().Apply(NewImportRequest(els, graph.DefaultOptions(), s.Associations()))
		require.Error(t, err)
		assert.Empty(t, s.Graph().LiveIDs(entity.KindVertex))
		assert.False(t, s.Engine().CanUndo())
		return nil
	}))
}

func TestRender(t *testing.T) {
	doc, _ := importPlan(t)

	require.NoError(t, doc.Do(func(s *document.Session) error {
		faces := s.Graph().LiveIDs(entity.KindFace)
		require.Len(t, faces, 1)
		_, err := s.Graph().AddLightSlot(faces[0], geom.Path{
			{ID: "a", Curve: geom.Segment{From: geom.Point{X: 10, Y: 10}, To: geom.Point{X: 40, Y: 10}}},
		}, 2, 1)
		require.NoError(t, err)

		out, err := NewRenderer(10).Render(s.Graph(), s.Visible())
		require.NoError(t, err)

		assert.True(t, strings.HasPrefix(out, `<?xml`))
		assert.Contains(t, out, `viewBox="-10 -10 120 80"`)
		assert.Equal(t, 5, strings.Count(out, `<rect id="edge-`))
		assert.Equal(t, 1, strings.Count(out, `<path id="face-`))
		assert.Contains(t, out, `d="M 10 10 L 40 10"`)

		// a hidden face is not drawn
		f, _ := s.Graph().Face(faces[0])
		f.SetHidden(true)
		out, err = NewRenderer(10).Render(s.Graph(), s.Visible())
		require.NoError(t, err)
		assert.NotContains(t, out, `id="face-`)
		return nil
	}))
}

func TestPathData_Arc(t *testing.T) {
	p := geom.Path{
		{ID: "a", Curve: geom.Segment{From: geom.Point{X: 0, Y: 0}, To: geom.Point{X: 10, Y: 0}}},
		{ID: "b", Curve: geom.Arc{Center: geom.Point{X: 10, Y: 5}, Radius: 5, Start: -1.5707963267948966, Sweep: 3.141592653589793}},
	}
	assert.Equal(t, "M 0 0 L 10 0 A 5 5 0 0 1 10 10", pathData(p))
}

func TestRender_RequiresGraph(t *testing.T) {
	_, err := NewRenderer(0).Render(nil, nil)
	assert.Error(t, err)
}
