package models

import "floorplan/internal/planner/geom"

// ============================================================
// SVG Elements
// ============================================================

type ElementType string

const (
	ElementWall    ElementType = "wall"
	ElementDoor    ElementType = "door"
	ElementWindow  ElementType = "window"
	ElementRoom    ElementType = "room"
	ElementBalcony ElementType = "balcony"
)

// Enclosure reports whether elements of this type become faces.
func (t ElementType) Enclosure() bool {
	return t == ElementRoom || t == ElementBalcony
}

type SVGElement struct {
	ID       string
	Type     ElementType
	Geometry any // RectGeometry or PathGeometry
}

type RectGeometry struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Corners returns the rectangle corners clockwise in SVG coordinates.
func (r RectGeometry) Corners() []geom.Point {
	return []geom.Point{
		{X: r.X, Y: r.Y},
		{X: r.X + r.Width, Y: r.Y},
		{X: r.X + r.Width, Y: r.Y + r.Height},
		{X: r.X, Y: r.Y + r.Height},
	}
}

type PathGeometry struct {
	D string
}

// ============================================================
// Import result
// ============================================================

// ImportSummary describes what an import added to a plan.
type ImportSummary struct {
	Vertices     int      `json:"vertices"`
	Edges        int      `json:"edges"`
	SplitEdges   int      `json:"splitEdges"`
	Faces        int      `json:"faces"`
	Associations int      `json:"associations"`
	Skipped      []string `json:"skipped,omitempty"`
}
