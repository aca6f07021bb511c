package geom

import "math"

// ============================================================
// Line
// ============================================================

// Line is an infinite line in the XY plane. Z is ignored everywhere.
type Line struct {
	Origin Point
	Dir    Point
}

func NewLine(a, b Point) Line {
	a, b = a.Planar(), b.Planar()
	return Line{Origin: a, Dir: b.Sub(a)}
}

// Degenerate reports whether the line was built from two coincident points.
func (l Line) Degenerate() bool {
	return l.Dir.Len() < Epsilon
}

// Intersect returns the single intersection point of two lines.
// Parallel, coincident and degenerate lines yield no point.
func (l Line) Intersect(o Line) (Point, bool) {
	if l.Degenerate() || o.Degenerate() {
		return Point{}, false
	}
	denom := l.Dir.Cross(o.Dir)
	if math.Abs(denom) < Epsilon*l.Dir.Len()*o.Dir.Len() {
		return Point{}, false
	}
	t := o.Origin.Sub(l.Origin).Cross(o.Dir) / denom
	return l.Origin.Add(l.Dir.Scale(t)).Planar(), true
}

// Param returns t such that Origin + t*Dir is the projection of p.
func (l Line) Param(p Point) float64 {
	d := l.Dir.Dot(l.Dir)
	if d < Epsilon {
		return 0
	}
	return p.Planar().Sub(l.Origin).Dot(l.Dir) / d
}

// Project returns the orthogonal projection of p onto the line.
func (l Line) Project(p Point) Point {
	return l.Origin.Add(l.Dir.Scale(l.Param(p))).Planar()
}

// Distance returns the planar distance from p to the line.
func (l Line) Distance(p Point) float64 {
	if l.Degenerate() {
		return p.Dist(l.Origin)
	}
	return p.Dist(l.Project(p))
}

// ContainsPoint reports whether p lies on the line within tol.
func (l Line) ContainsPoint(p Point, tol float64) bool {
	if l.Degenerate() {
		return false
	}
	return l.Distance(p) <= tol
}
