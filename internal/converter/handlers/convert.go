package handlers

import (
	"bytes"
	"io"
	"net/http"

	"github.com/gofiber/fiber/v3"

	"floorplan/internal/converter/mapper"
	"floorplan/internal/converter/parser"
	"floorplan/internal/planner/document"
)

// ============================================================
// Import Handler
// ============================================================

// Create imports an SVG plan from multipart/form-data into a new document.
func (h *PlanHandler) Create(c fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": "file required in multipart/form-data",
		})
	}

	f, err := file.Open()
	if err != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "failed to open file"})
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "failed to read file"})
	}

	elements, err := parser.ParseSVG(bytes.NewReader(data))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	name := c.FormValue("name")
	if name == "" {
		name = file.Filename
	}
	doc := document.New("", name, h.cfg.History)

	var req *mapper.ImportRequest
	err = doc.Do(func(s *document.Session) error {
		req = mapper.NewImportRequest(elements, h.cfg.Import, s.Associations())
		return s.Engine().Apply(req)
	})
	if err != nil {
		doc.Close()
		return c.Status(http.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	}
	h.docs.Open(doc)

	if err := h.files.SaveFile(doc.ID(), h.files.SourcePath(doc.ID()), data); err != nil {
		h.logger.Warn("source not kept", "id", doc.ID(), "error", err)
	}

	h.logger.Info("plan created", "id", doc.ID(), "name", name, "bytes", len(data))
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"id":      doc.ID(),
		"name":    name,
		"summary": req.Summary(),
	})
}
