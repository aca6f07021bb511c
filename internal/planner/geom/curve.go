package geom

import (
	"fmt"
	"math"
)

// ============================================================
// Curves
// ============================================================

type CurveType string

const (
	CurveLine CurveType = "line"
	CurveArc  CurveType = "arc"
)

// Curve is a directed planar curve.
type Curve interface {
	Type() CurveType
	StartPt() Point
	EndPt() Point
	// StartTangent and EndTangent are unit vectors in the direction of travel.
	StartTangent() Point
	EndTangent() Point
	Reverse() Curve
}

type Segment struct {
	From Point
	To   Point
}

func (s Segment) Type() CurveType     { return CurveLine }
func (s Segment) StartPt() Point      { return s.From }
func (s Segment) EndPt() Point        { return s.To }
func (s Segment) StartTangent() Point { return s.To.Sub(s.From).Unit() }
func (s Segment) EndTangent() Point   { return s.To.Sub(s.From).Unit() }
func (s Segment) Reverse() Curve      { return Segment{From: s.To, To: s.From} }

func (s Segment) Line() Line { return NewLine(s.From, s.To) }

// Arc is a circular arc. Sweep is signed: positive runs counter-clockwise.
type Arc struct {
	Center Point
	Radius float64
	Start  float64
	Sweep  float64
}

func (a Arc) Type() CurveType { return CurveArc }

func (a Arc) at(angle float64) Point {
	return Point{X: a.Center.X + a.Radius*math.Cos(angle), Y: a.Center.Y + a.Radius*math.Sin(angle)}
}

func (a Arc) tangent(angle float64) Point {
	t := Point{X: -math.Sin(angle), Y: math.Cos(angle)}
	if a.Sweep < 0 {
		return t.Scale(-1)
	}
	return t
}

func (a Arc) StartPt() Point      { return a.at(a.Start) }
func (a Arc) EndPt() Point        { return a.at(a.Start + a.Sweep) }
func (a Arc) StartTangent() Point { return a.tangent(a.Start) }
func (a Arc) EndTangent() Point   { return a.tangent(a.Start + a.Sweep) }
func (a Arc) Reverse() Curve      { return Arc{Center: a.Center, Radius: a.Radius, Start: a.Start + a.Sweep, Sweep: -a.Sweep} }

// Overlaps reports whether two curves share a stretch of positive length.
// Touching at a single endpoint is adjacency, not overlap.
func Overlaps(a, b Curve, tol float64) bool {
	switch ca := a.(type) {
	case Segment:
		cb, ok := b.(Segment)
		if !ok {
			return false
		}
		return segmentsOverlap(ca, cb, tol)
	case Arc:
		cb, ok := b.(Arc)
		if !ok {
			return false
		}
		return arcsOverlap(ca, cb, tol)
	}
	return false
}

func segmentsOverlap(a, b Segment, tol float64) bool {
	la := a.Line()
	if la.Degenerate() || !la.ContainsPoint(b.From, tol) || !la.ContainsPoint(b.To, tol) {
		return false
	}
	length := la.Dir.Len()
	t0, t1 := la.Param(b.From), la.Param(b.To)
	if t0 > t1 {
		t0, t1 = t1, t0
	}
	lo := math.Max(0, t0)
	hi := math.Min(1, t1)
	return (hi-lo)*length > tol
}

func arcsOverlap(a, b Arc, tol float64) bool {
	if !a.Center.Equal(b.Center, tol) || math.Abs(a.Radius-b.Radius) > tol {
		return false
	}
	a0, a1 := angularRange(a)
	b0, b1 := angularRange(b)
	minSweep := tol / math.Max(a.Radius, Epsilon)
	// compare on both sides of the 2π wrap
	for _, shift := range []float64{-2 * math.Pi, 0, 2 * math.Pi} {
		lo := math.Max(a0, b0+shift)
		hi := math.Min(a1, b1+shift)
		if hi-lo > minSweep {
			return true
		}
	}
	return false
}

func angularRange(a Arc) (float64, float64) {
	lo, hi := a.Start, a.Start+a.Sweep
	if lo > hi {
		lo, hi = hi, lo
	}
	return lo, hi
}

// ============================================================
// Serialization
// ============================================================

// CurveRecord is the flat persisted form of a Curve.
type CurveRecord struct {
	Type   CurveType `json:"type"`
	From   Point     `json:"from,omitempty"`
	To     Point     `json:"to,omitempty"`
	Center Point     `json:"center,omitempty"`
	Radius float64   `json:"radius,omitempty"`
	Start  float64   `json:"start,omitempty"`
	Sweep  float64   `json:"sweep,omitempty"`
}

func RecordOf(c Curve) CurveRecord {
	switch v := c.(type) {
	case Segment:
		return CurveRecord{Type: CurveLine, From: v.From, To: v.To}
	case Arc:
		return CurveRecord{Type: CurveArc, Center: v.Center, Radius: v.Radius, Start: v.Start, Sweep: v.Sweep}
	}
	return CurveRecord{}
}

func (r CurveRecord) Curve() (Curve, error) {
	switch r.Type {
	case CurveLine:
		return Segment{From: r.From, To: r.To}, nil
	case CurveArc:
		return Arc{Center: r.Center, Radius: r.Radius, Start: r.Start, Sweep: r.Sweep}, nil
	}
	return nil, fmt.Errorf("unknown curve type %q", r.Type)
}
