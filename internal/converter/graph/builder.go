package graph

import (
	"fmt"
	"log/slog"
	"math"
	"sort"

	"floorplan/internal/converter/models"
	"floorplan/internal/converter/parser"
	"floorplan/internal/planner/geom"
)

// ============================================================
// Graph Builder
// ============================================================

type Options struct {
	// MergeTolerance is the radius within which wall ends become one vertex.
	MergeTolerance float64
	// ConnectTolerance is how far a wall end may miss a perpendicular wall and still meet it.
	ConnectTolerance float64
	// AxisSnapTolerance is the deviation under which a piece is made exactly axis aligned.
	AxisSnapTolerance float64
}

func DefaultOptions() Options {
	return Options{MergeTolerance: 8, ConnectTolerance: 15, AxisSnapTolerance: 4}
}

// Wall is the centre line of a wall element.
type Wall struct {
	ID        string
	From, To  geom.Point
	Thickness float64
}

// Piece is a stretch of wall between two vertices of the layout.
type Piece struct {
	Wall     string
	From, To int
	// Split is set when the wall was cut into several pieces.
	Split bool
	// Inner is set when the piece does not run along the plan's outline.
	Inner bool
}

// Junction is a wall end resting on the interior of another wall.
type Junction struct {
	Vertex int
	// Bar is the index of the piece of the supporting wall that Vertex rests on.
	Bar int
}

// Layout is the topology extracted from the walls of a plan.
type Layout struct {
	Vertices  []geom.Point
	Pieces    []Piece
	Junctions []Junction
}

type Builder struct {
	opts   Options
	walls  []Wall
	logger *slog.Logger
}

func NewBuilder(opts Options) *Builder {
	return &Builder{opts: opts, logger: slog.Default().With("component", "converter.Builder")}
}

func (b *Builder) Walls() []Wall { return b.walls }

// AddElement extracts the centre line of a wall element.
func (b *Builder) AddElement(el models.SVGElement) error {
	var pts []geom.Point
	switch g := el.Geometry.(type) {
	case models.RectGeometry:
		pts = g.Corners()
	case models.PathGeometry:
		var err error
		if pts, err = parser.ParsePath(g.D); err != nil {
			return fmt.Errorf("wall %s: %w", el.ID, err)
		}
	default:
		return fmt.Errorf("wall %s: unsupported geometry %T", el.ID, el.Geometry)
	}
	if len(pts) < 2 {
		return nil
	}
	b.walls = append(b.walls, centreLine(el.ID, pts))
	return nil
}

// centreLine runs along the long side of the bounding box, through its middle.
func centreLine(id string, pts []geom.Point) Wall {
	lo, hi := bounds(pts)
	w, h := hi.X-lo.X, hi.Y-lo.Y
	wall := Wall{ID: id, Thickness: math.Min(w, h)}
	switch {
	case w == 0 && h == 0:
		wall.From, wall.To = pts[0], pts[len(pts)-1]
	case w >= h:
		mid := lo.Y + h/2
		wall.From, wall.To = geom.Point{X: lo.X, Y: mid}, geom.Point{X: hi.X, Y: mid}
	default:
		mid := lo.X + w/2
		wall.From, wall.To = geom.Point{X: mid, Y: lo.Y}, geom.Point{X: mid, Y: hi.Y}
	}
	return wall
}

func bounds(pts []geom.Point) (geom.Point, geom.Point) {
	lo, hi := pts[0], pts[0]
	for _, p := range pts[1:] {
		lo.X, lo.Y = math.Min(lo.X, p.X), math.Min(lo.Y, p.Y)
		hi.X, hi.Y = math.Max(hi.X, p.X), math.Max(hi.Y, p.Y)
	}
	return lo, hi
}

// ============================================================
// Wall splitting
// ============================================================

// span is a wall reduced to one axis: it runs from start to end along the
// axis at the fixed coordinate level.
type span struct {
	wall       Wall
	horizontal bool
	start, end float64
	level      float64
	cuts       []float64
}

type stem struct {
	point geom.Point
	bar   *span
}

func newSpan(w Wall) *span {
	s := &span{wall: w, horizontal: math.Abs(w.From.Y-w.To.Y) <= math.Abs(w.From.X-w.To.X)}
	if s.horizontal {
		s.start, s.end, s.level = w.From.X, w.To.X, w.From.Y
	} else {
		s.start, s.end, s.level = w.From.Y, w.To.Y, w.From.X
	}
	if s.start > s.end {
		s.start, s.end = s.end, s.start
	}
	return s
}

func (s *span) point(t float64) geom.Point {
	if s.horizontal {
		return geom.Point{X: t, Y: s.level}
	}
	return geom.Point{X: s.level, Y: t}
}

// between reports whether p falls between a and b along the span's axis.
func (s *span) between(a, b, p geom.Point) bool {
	ta, tb, tp := a.X, b.X, p.X
	if !s.horizontal {
		ta, tb, tp = a.Y, b.Y, p.Y
	}
	return tp >= math.Min(ta, tb) && tp <= math.Max(ta, tb)
}

// reach reports whether t is on the span or within tol past one of its ends.
func (s *span) reach(t, tol float64) bool {
	return t >= s.start-tol && t <= s.end+tol
}

// snapEnd moves the end nearest to t onto t when it is within tol and
// reports whether it did.
func (s *span) snapEnd(t, tol float64) bool {
	switch {
	case math.Abs(t-s.start) <= tol && math.Abs(t-s.start) <= math.Abs(t-s.end):
		s.start = t
		return true
	case math.Abs(t-s.end) <= tol:
		s.end = t
		return true
	}
	return false
}

// Build cuts walls where they cross, merges close ends into shared vertices and
// records T-junctions. A wall ending on another does not cut it.
func (b *Builder) Build() Layout {
	spans := make([]*span, 0, len(b.walls))
	for _, w := range b.walls {
		spans = append(spans, newSpan(w))
	}

	var stems []stem
	tol := b.opts.ConnectTolerance
	for i := range spans {
		for j := i + 1; j < len(spans); j++ {
			h, v := spans[i], spans[j]
			if h.horizontal == v.horizontal {
				continue
			}
			if !h.horizontal {
				h, v = v, h
			}
			if !h.reach(v.level, tol) || !v.reach(h.level, tol) {
				continue
			}
			p := geom.Point{X: v.level, Y: h.level}
			hEnd := h.snapEnd(v.level, tol)
			vEnd := v.snapEnd(h.level, tol)
			switch {
			case vEnd && !hEnd:
				// the bar stays whole, the stem end is constrained onto it
				stems = append(stems, stem{point: p, bar: h})
				v.cuts = append(v.cuts, h.level)
			case hEnd && !vEnd:
				stems = append(stems, stem{point: p, bar: v})
				h.cuts = append(h.cuts, v.level)
			default:
				h.cuts = append(h.cuts, v.level)
				v.cuts = append(v.cuts, h.level)
			}
		}
	}

	lay := &layoutBuilder{tol: b.opts.MergeTolerance}
	pieceOf := make(map[*span][]int)
	for _, s := range spans {
		stops := []float64{s.start, s.end}
		for _, c := range s.cuts {
			// a later snap may have trimmed the span below an earlier cut
			if c > s.start && c < s.end {
				stops = append(stops, c)
			}
		}
		sort.Float64s(stops)
		stops = dedupe(stops)
		parts := len(stops) - 1
		for k := 0; k < parts; k++ {
			from := lay.vertex(s.point(stops[k]))
			to := lay.vertex(s.point(stops[k+1]))
			if from == to {
				continue
			}
			pieceOf[s] = append(pieceOf[s], len(lay.pieces))
			lay.pieces = append(lay.pieces, Piece{Wall: s.wall.ID, From: from, To: to, Split: parts > 1})
		}
	}

	for _, st := range stems {
		vid, ok := lay.find(st.point)
		if !ok {
			continue
		}
		for _, pi := range pieceOf[st.bar] {
			p := lay.pieces[pi]
			if st.bar.between(lay.vertices[p.From], lay.vertices[p.To], st.point) {
				lay.junctions = append(lay.junctions, Junction{Vertex: vid, Bar: pi})
				break
			}
		}
	}

	b.snapAxisAligned(lay)
	lay.markInner()

	b.logger.Debug("layout built",
		"walls", len(b.walls), "vertices", len(lay.vertices),
		"pieces", len(lay.pieces), "junctions", len(lay.junctions))
	return Layout{Vertices: lay.vertices, Pieces: lay.pieces, Junctions: lay.junctions}
}

func dedupe(sorted []float64) []float64 {
	out := sorted[:1]
	for _, v := range sorted[1:] {
		if math.Abs(v-out[len(out)-1]) > 1e-6 {
			out = append(out, v)
		}
	}
	return out
}

// ============================================================
// Layout assembly
// ============================================================

type layoutBuilder struct {
	tol       float64
	vertices  []geom.Point
	pieces    []Piece
	junctions []Junction
}

func (l *layoutBuilder) find(p geom.Point) (int, bool) {
	for i, v := range l.vertices {
		if v.Dist(p) <= l.tol {
			return i, true
		}
	}
	return 0, false
}

// vertex returns the index of the vertex within tol of p, adding one if none is.
func (l *layoutBuilder) vertex(p geom.Point) int {
	if i, ok := l.find(p); ok {
		return i
	}
	l.vertices = append(l.vertices, p)
	return len(l.vertices) - 1
}

// snapAxisAligned makes nearly horizontal and vertical pieces exact by
// averaging the shared coordinate of their vertices.
func (b *Builder) snapAxisAligned(l *layoutBuilder) {
	type acc struct {
		sumX, sumY float64
		nX, nY     int
	}
	accs := make(map[int]*acc)
	get := func(i int) *acc {
		if accs[i] == nil {
			accs[i] = &acc{}
		}
		return accs[i]
	}
	for _, p := range l.pieces {
		a, c := l.vertices[p.From], l.vertices[p.To]
		switch {
		case math.Abs(a.Y-c.Y) <= b.opts.AxisSnapTolerance:
			y := (a.Y + c.Y) / 2
			for _, i := range []int{p.From, p.To} {
				get(i).sumY += y
				get(i).nY++
			}
		case math.Abs(a.X-c.X) <= b.opts.AxisSnapTolerance:
			x := (a.X + c.X) / 2
			for _, i := range []int{p.From, p.To} {
				get(i).sumX += x
				get(i).nX++
			}
		}
	}
	for i, a := range accs {
		if a.nX > 0 {
			l.vertices[i].X = a.sumX / float64(a.nX)
		}
		if a.nY > 0 {
			l.vertices[i].Y = a.sumY / float64(a.nY)
		}
	}
}

// markInner flags pieces that do not lie on a side of the bounding box.
func (l *layoutBuilder) markInner() {
	if len(l.vertices) == 0 {
		return
	}
	lo, hi := bounds(l.vertices)
	onSide := func(a, b geom.Point) bool {
		near := func(x, y float64) bool { return math.Abs(x-y) <= l.tol }
		return (near(a.X, lo.X) && near(b.X, lo.X)) || (near(a.X, hi.X) && near(b.X, hi.X)) ||
			(near(a.Y, lo.Y) && near(b.Y, lo.Y)) || (near(a.Y, hi.Y) && near(b.Y, hi.Y))
	}
	for i, p := range l.pieces {
		l.pieces[i].Inner = !onSide(l.vertices[p.From], l.vertices[p.To])
	}
}
