package mapper

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"floorplan/internal/planner/entity"
	"floorplan/internal/planner/geom"
	"floorplan/internal/planner/relation"
	"floorplan/internal/planner/scene"
)

// ============================================================
// Renderer
// ============================================================

// Renderer draws the live part of a graph as SVG: walls as rectangles of
// the configured thickness, visible faces as outlines and light slots as
// stroked paths.
type Renderer struct {
	thickness float64
	padding   float64
}

func NewRenderer(thickness float64) *Renderer {
	if thickness <= 0 {
		thickness = 10
	}
	return &Renderer{thickness: thickness, padding: thickness}
}

// Render reads face outlines through visible so repeated renders of an
// unchanged plan hit the cache.
func (r *Renderer) Render(g *scene.Graph, visible *relation.FaceVisible) (string, error) {
	if g == nil || visible == nil {
		return "", fmt.Errorf("graph and visibility are required")
	}

	minX, minY, width, height := r.viewBox(g)

	var elements []string
	elements = append(elements, r.renderWalls(g)...)
	elements = append(elements, r.renderFaces(g, visible)...)
	elements = append(elements, r.renderLightSlots(g)...)

	var builder strings.Builder
	builder.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	builder.WriteString(fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%s" height="%s" viewBox="%s %s %s %s">`,
		formatFloat(width), formatFloat(height),
		formatFloat(minX), formatFloat(minY), formatFloat(width), formatFloat(height)))
	builder.WriteString("\n")

	for _, elem := range elements {
		builder.WriteString("  ")
		builder.WriteString(elem)
		builder.WriteString("\n")
	}

	builder.WriteString(`</svg>`)
	return builder.String(), nil
}

// viewBox bounds the live vertices plus padding on every side.
func (r *Renderer) viewBox(g *scene.Graph) (float64, float64, float64, float64) {
	ids := g.LiveIDs(entity.KindVertex)
	if len(ids) == 0 {
		return 0, 0, 2 * r.padding, 2 * r.padding
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, id := range ids {
		v, _ := g.Vertex(id)
		minX, maxX = math.Min(minX, v.X()), math.Max(maxX, v.X())
		minY, maxY = math.Min(minY, v.Y()), math.Max(maxY, v.Y())
	}
	return minX - r.padding, minY - r.padding, maxX - minX + 2*r.padding, maxY - minY + 2*r.padding
}

// ============================================================
// Element renderers
// ============================================================

func (r *Renderer) renderWalls(g *scene.Graph) []string {
	var out []string

	for _, id := range g.LiveIDs(entity.KindEdge) {
		seg, ok := g.EdgeSegment(id)
		if !ok {
			continue
		}
		v1, v2 := seg.From, seg.To
		dx := v2.X - v1.X
		dy := v2.Y - v1.Y

		switch {
		case math.Abs(dy) <= geom.Epsilon:
			x := math.Min(v1.X, v2.X)
			y := v1.Y - r.thickness/2
			out = append(out, fmt.Sprintf(`<rect id="edge-%d" x="%s" y="%s" width="%s" height="%s" fill="none" stroke="#000" />`,
				id, formatFloat(x), formatFloat(y), formatFloat(math.Abs(dx)), formatFloat(r.thickness)))
		case math.Abs(dx) <= geom.Epsilon:
			x := v1.X - r.thickness/2
			y := math.Min(v1.Y, v2.Y)
			out = append(out, fmt.Sprintf(`<rect id="edge-%d" x="%s" y="%s" width="%s" height="%s" fill="none" stroke="#000" />`,
				id, formatFloat(x), formatFloat(y), formatFloat(r.thickness), formatFloat(math.Abs(dy))))
		default:
			out = append(out, fmt.Sprintf(`<line id="edge-%d" x1="%s" y1="%s" x2="%s" y2="%s" stroke="#000" stroke-width="%s" />`,
				id, formatFloat(v1.X), formatFloat(v1.Y), formatFloat(v2.X), formatFloat(v2.Y), formatFloat(r.thickness)))
		}
	}

	return out
}

func (r *Renderer) renderFaces(g *scene.Graph, visible *relation.FaceVisible) []string {
	var out []string

	for _, id := range g.LiveIDs(entity.KindFace) {
		vis := visible.Get(id)
		if !vis.Visible || len(vis.Outline) < 3 {
			continue
		}

		var path strings.Builder
		fmt.Fprintf(&path, `<path id="face-%d" d="M `, id)
		path.WriteString(formatPoint(vis.Outline[0]))
		for _, p := range vis.Outline[1:] {
			path.WriteString(" L ")
			path.WriteString(formatPoint(p))
		}
		fill := "none"
		if f, ok := g.Face(id); ok && f.Material() != "" {
			fill = f.Material()
		}
		fmt.Fprintf(&path, ` Z" fill="%s" stroke="#888" />`, fill)

		out = append(out, path.String())
	}

	return out
}

func (r *Renderer) renderLightSlots(g *scene.Graph) []string {
	var out []string

	for _, id := range g.LiveIDs(entity.KindLightSlot) {
		s, ok := g.LightSlot(id)
		if !ok || len(s.Path()) == 0 {
			continue
		}
		d := pathData(s.Path())
		out = append(out, fmt.Sprintf(`<path id="slot-%d" d="%s" fill="none" stroke="#f5a623" stroke-width="%s" />`,
			id, d, formatFloat(s.Width())))
	}

	return out
}

// pathData converts a coedge chain to SVG path commands.
func pathData(p geom.Path) string {
	var d strings.Builder
	d.WriteString("M ")
	d.WriteString(formatPoint(p.StartPt()))
	for _, c := range p {
		end := c.Curve.EndPt()
		switch cv := c.Curve.(type) {
		case geom.Arc:
			large, sweep := 0, 0
			if math.Abs(cv.Sweep) > math.Pi {
				large = 1
			}
			if cv.Sweep > 0 {
				sweep = 1
			}
			fmt.Fprintf(&d, " A %s %s 0 %d %d %s",
				formatFloat(cv.Radius), formatFloat(cv.Radius), large, sweep, formatPoint(end))
		default:
			d.WriteString(" L ")
			d.WriteString(formatPoint(end))
		}
	}
	return d.String()
}

// ============================================================
// Formatting helpers
// ============================================================

func formatFloat(val float64) string {
	// keep output stable across tiny float noise
	return strconv.FormatFloat(math.Round(val*1e6)/1e6, 'f', -1, 64)
}

func formatPoint(p geom.Point) string {
	return formatFloat(p.X) + " " + formatFloat(p.Y)
}
