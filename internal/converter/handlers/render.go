package handlers

import (
	"time"

	"github.com/gofiber/fiber/v3"

	"floorplan/internal/converter/mapper"
	"floorplan/internal/planner/document"
)

// ============================================================
// Render Handler
// ============================================================

// SVG renders the live plan.
func (h *PlanHandler) SVG(c fiber.Ctx) error {
	doc, err := h.document(c)
	if err != nil {
		return h.fail(c, err)
	}

	var svg string
	err = doc.Do(func(s *document.Session) error {
		svg, err = mapper.NewRenderer(h.cfg.WallThickness).Render(s.Graph(), s.Visible())
		return err
	})
	if err != nil {
		return h.fail(c, err)
	}

	c.Set("Content-Type", "image/svg+xml")
	return c.SendString(svg)
}

// Save stores the plan snapshot and writes its SVG export next to the source.
func (h *PlanHandler) Save(c fiber.Ctx) error {
	doc, err := h.document(c)
	if err != nil {
		return h.fail(c, err)
	}

	var (
		snap document.Snapshot
		svg  string
	)
	err = doc.Do(func(s *document.Session) error {
		snap = s.Snapshot()
		svg, err = mapper.NewRenderer(h.cfg.WallThickness).Render(s.Graph(), s.Visible())
		return err
	})
	if err != nil {
		return h.fail(c, err)
	}

	updated, err := h.plans.Save(c.Context(), doc.ID(), snap)
	if err != nil {
		return h.fail(c, err)
	}
	if err := h.files.SaveFile(doc.ID(), h.files.ExportPath(doc.ID()), []byte(svg)); err != nil {
		return h.fail(c, err)
	}

	h.logger.Info("plan saved", "id", doc.ID())
	return c.JSON(fiber.Map{"id": doc.ID(), "updated_at": updated.Format(time.RFC3339)})
}
