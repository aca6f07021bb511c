package geom

import "math"

// Epsilon is the distance below which two coordinates are considered identical.
const Epsilon = 1e-9

// ============================================================
// Point
// ============================================================

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z,omitempty"`
}

func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y, Z: p.Z + q.Z}
}

func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y, Z: p.Z - q.Z}
}

func (p Point) Scale(k float64) Point {
	return Point{X: p.X * k, Y: p.Y * k, Z: p.Z * k}
}

// Planar drops the out-of-plane coordinate.
func (p Point) Planar() Point {
	return Point{X: p.X, Y: p.Y}
}

// Len returns the planar length of p treated as a vector.
func (p Point) Len() float64 {
	return math.Hypot(p.X, p.Y)
}

// Dist returns the planar distance between p and q.
func (p Point) Dist(q Point) float64 {
	return p.Sub(q).Len()
}

func (p Point) Equal(q Point, tol float64) bool {
	return p.Dist(q) <= tol
}

func (p Point) Dot(q Point) float64 {
	return p.X*q.X + p.Y*q.Y
}

// Cross is the z component of the planar cross product.
func (p Point) Cross(q Point) float64 {
	return p.X*q.Y - p.Y*q.X
}

// Unit returns the planar unit vector of p, or the zero vector.
func (p Point) Unit() Point {
	l := p.Len()
	if l < Epsilon {
		return Point{}
	}
	return Point{X: p.X / l, Y: p.Y / l}
}
