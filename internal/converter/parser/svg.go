package parser

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"floorplan/internal/converter/models"
)

// ============================================================
// XML Structures
// ============================================================

type SVG struct {
	XMLName xml.Name `xml:"svg"`
	Group
}

// Group содержимое <svg> или вложенной <g>
type Group struct {
	ID     string  `xml:"id,attr"`
	Rects  []Rect  `xml:"rect"`
	Paths  []Path  `xml:"path"`
	Groups []Group `xml:"g"`
}

type Rect struct {
	ID     string  `xml:"id,attr"`
	X      float64 `xml:"x,attr"`
	Y      float64 `xml:"y,attr"`
	Width  float64 `xml:"width,attr"`
	Height float64 `xml:"height,attr"`
}

type Path struct {
	ID string `xml:"id,attr"`
	D  string `xml:"d,attr"`
}

// ============================================================
// Parser
// ============================================================

// ParseSVG парсит SVG и возвращает элементы плана (внутри группы сначала rect).
// Элементы с неизвестным id пропускаются.
func ParseSVG(r io.Reader) ([]models.SVGElement, error) {
	var svg SVG
	if err := xml.NewDecoder(r).Decode(&svg); err != nil {
		return nil, fmt.Errorf("decode svg: %w", err)
	}
	var elements []models.SVGElement
	collect(svg.Group, &elements)
	return elements, nil
}

func collect(g Group, out *[]models.SVGElement) {
	for _, rect := range g.Rects {
		t, ok := ClassifyID(rect.ID)
		if !ok {
			continue
		}
		*out = append(*out, models.SVGElement{
			ID:   rect.ID,
			Type: t,
			Geometry: models.RectGeometry{
				X:      rect.X,
				Y:      rect.Y,
				Width:  rect.Width,
				Height: rect.Height,
			},
		})
	}
	for _, path := range g.Paths {
		t, ok := ClassifyID(path.ID)
		if !ok {
			continue
		}
		*out = append(*out, models.SVGElement{
			ID:       path.ID,
			Type:     t,
			Geometry: models.PathGeometry{D: path.D},
		})
	}
	for _, child := range g.Groups {
		collect(child, out)
	}
}

var prefixes = []struct {
	prefix string
	t      models.ElementType
}{
	{"Wall_", models.ElementWall},
	{"Hui_Wall_", models.ElementWall},
	{"Door_", models.ElementDoor},
	{"Window_", models.ElementWindow},
	{"Room_", models.ElementRoom},
	{"Balcony", models.ElementBalcony},
}

// ClassifyID определяет тип элемента по id
func ClassifyID(id string) (models.ElementType, bool) {
	for _, p := range prefixes {
		if strings.HasPrefix(id, p.prefix) {
			return p.t, true
		}
	}
	// Hall_room, Toilet_Room
	if strings.HasSuffix(strings.ToLower(id), "_room") {
		return models.ElementRoom, true
	}
	return "", false
}
