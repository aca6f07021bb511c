package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"golang.org/x/sync/singleflight"

	"floorplan/internal/converter/graph"
	"floorplan/internal/planner/document"
	"floorplan/internal/planner/entity"
	"floorplan/internal/planner/geom"
	"floorplan/internal/planner/scene"
	"floorplan/internal/planner/store"
	"floorplan/internal/planner/txn"
)

// ============================================================
// Plan Handler
// ============================================================

// PlanStore persists document snapshots.
type PlanStore interface {
	Save(ctx context.Context, id string, snap document.Snapshot) (time.Time, error)
	Load(ctx context.Context, id string) (*store.Plan, error)
	List(ctx context.Context) ([]store.Summary, error)
	Delete(ctx context.Context, id string) error
}

// PlanConfig tunes editing and rendering.
type PlanConfig struct {
	History txn.Options
	// Tolerance is used for edge extension and as the default light slot tolerance.
	Tolerance     float64
	WallThickness float64
	Import        graph.Options
}

func DefaultPlanConfig() PlanConfig {
	return PlanConfig{
		History:       txn.DefaultOptions(),
		Tolerance:     1e-6,
		WallThickness: 10,
		Import:        graph.DefaultOptions(),
	}
}

type PlanHandler struct {
	docs     *document.Registry
	plans    PlanStore
	files    *store.FileStorage
	cfg      PlanConfig
	validate *validator.Validate
	// reopen collapses concurrent loads of the same stored plan
	reopen singleflight.Group
	logger *slog.Logger
}

func NewPlanHandler(docs *document.Registry, plans PlanStore, files *store.FileStorage, cfg PlanConfig) *PlanHandler {
	return &PlanHandler{
		docs:     docs,
		plans:    plans,
		files:    files,
		cfg:      cfg,
		validate: validator.New(),
		logger:   slog.Default().With("component", "handlers.Plan"),
	}
}

type planPayload struct {
	ID      string            `json:"id"`
	CanUndo bool              `json:"canUndo"`
	CanRedo bool              `json:"canRedo"`
	Plan    document.Snapshot `json:"plan"`
}

type pointRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (p pointRequest) point() geom.Point { return geom.Point{X: p.X, Y: p.Y, Z: p.Z} }

type faceRequest struct {
	Hidden   *bool   `json:"hidden"`
	Material *string `json:"material" validate:"omitempty,max=64"`
}

type lightSlotRequest struct {
	Parent    entity.ID `json:"parent" validate:"required,gt=0"`
	Path      geom.Path `json:"path" validate:"required,min=1"`
	Width     float64   `json:"width" validate:"gt=0"`
	Height    float64   `json:"height" validate:"gte=0"`
	Tolerance float64   `json:"tolerance" validate:"gte=0"`
}

// decode unmarshals the body into v and checks its validate tags.
func (h *PlanHandler) decode(c fiber.Ctx, v any) error {
	if err := json.Unmarshal(c.Body(), v); err != nil {
		return fmt.Errorf("invalid json: %w", txn.ErrInvalidParams)
	}
	if err := h.validate.Struct(v); err != nil {
		return fmt.Errorf("%s: %w", err.Error(), txn.ErrInvalidParams)
	}
	return nil
}

// List returns the open documents and the stored plans.
func (h *PlanHandler) List(c fiber.Ctx) error {
	saved, err := h.plans.List(c.Context())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"open": h.docs.IDs(), "saved": saved})
}

// Get returns the plan records with the history state.
func (h *PlanHandler) Get(c fiber.Ctx) error {
	doc, err := h.document(c)
	if err != nil {
		return h.fail(c, err)
	}
	return h.respond(c, doc, func(*document.Session) error { return nil })
}

// Delete closes the plan and drops its stored snapshot and files.
func (h *PlanHandler) Delete(c fiber.Ctx) error {
	id := c.Params("id")
	closed := h.docs.Close(id) == nil

	err := h.plans.Delete(c.Context(), id)
	switch {
	case errors.Is(err, store.ErrNotFound) && !closed:
		return h.fail(c, err)
	case err != nil && !errors.Is(err, store.ErrNotFound):
		return h.fail(c, err)
	}
	if err := h.files.Remove(id); err != nil {
		h.logger.Warn("plan files not removed", "id", id, "error", err)
	}

	h.logger.Info("plan deleted", "id", id)
	return c.SendStatus(http.StatusNoContent)
}

// Undo reverts the latest edit.
func (h *PlanHandler) Undo(c fiber.Ctx) error {
	return h.edit(c, func(s *document.Session) error { return s.Engine().Undo() })
}

// Redo re-applies the latest undone edit.
func (h *PlanHandler) Redo(c fiber.Ctx) error {
	return h.edit(c, func(s *document.Session) error { return s.Engine().Redo() })
}

// MoveVertex moves a vertex; constrained vertices follow.
func (h *PlanHandler) MoveVertex(c fiber.Ctx) error {
	vid, err := idParam(c, "vid")
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	var req pointRequest
	if err := h.decode(c, &req); err != nil {
		return h.fail(c, err)
	}
	return h.edit(c, func(s *document.Session) error {
		return s.Engine().Apply(txn.NewMoveVertexRequest(vid, req.point()))
	})
}

// SplitEdge cuts an edge at the point nearest to the body's point.
func (h *PlanHandler) SplitEdge(c fiber.Ctx) error {
	eid, err := idParam(c, "eid")
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	var req pointRequest
	if err := h.decode(c, &req); err != nil {
		return h.fail(c, err)
	}
	return h.edit(c, func(s *document.Session) error {
		return s.Engine().Apply(txn.NewSplitEdgeRequest(eid, req.point(), s.Associations()))
	})
}

// UpdateFace changes the hidden flag or material of a face.
func (h *PlanHandler) UpdateFace(c fiber.Ctx) error {
	fid, err := idParam(c, "fid")
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	var req faceRequest
	if err := h.decode(c, &req); err != nil {
		return h.fail(c, err)
	}
	fields := txn.FaceFields{Hidden: req.Hidden, Material: req.Material}
	return h.edit(c, func(s *document.Session) error {
		return s.Engine().Apply(txn.NewFaceFieldsRequest(fid, fields))
	})
}

// AddLightSlot places a light slot on a face, merging it with adjacent slots.
func (h *PlanHandler) AddLightSlot(c fiber.Ctx) error {
	var req lightSlotRequest
	if err := h.decode(c, &req); err != nil {
		return h.fail(c, err)
	}
	params := txn.AddLightSlotParams{
		Parent:    req.Parent,
		Path:      req.Path,
		Width:     req.Width,
		Height:    req.Height,
		Tolerance: req.Tolerance,
	}
	if params.Tolerance == 0 {
		params.Tolerance = h.cfg.Tolerance
	}
	return h.edit(c, func(s *document.Session) error {
		return s.Engine().Apply(txn.NewAddLightSlotRequest(params))
	})
}

// ExtendEdge stretches an edge to a point on its line.
func (h *PlanHandler) ExtendEdge(c fiber.Ctx) error {
	eid, err := idParam(c, "eid")
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	var req pointRequest
	if err := h.decode(c, &req); err != nil {
		return h.fail(c, err)
	}
	return h.edit(c, func(s *document.Session) error {
		return s.Engine().Apply(txn.NewExtendEdgeRequest(eid, req.point(), h.cfg.Tolerance))
	})
}

// ============================================================
// Helpers
// ============================================================

// document resolves :id, reopening a stored plan when it is not in memory.
func (h *PlanHandler) document(c fiber.Ctx) (*document.Document, error) {
	// fiber reuses the request buffer once the handler returns
	id := strings.Clone(c.Params("id"))
	doc, err := h.docs.Get(id)
	if !errors.Is(err, document.ErrUnknownDocument) {
		return doc, err
	}
	v, err, _ := h.reopen.Do(id, func() (any, error) {
		if doc, err := h.docs.Get(id); err == nil {
			return doc, nil
		}
		plan, err := h.plans.Load(c.Context(), id)
		if err != nil {
			return nil, err
		}
		doc, err := document.FromSnapshot(plan.ID, plan.Snapshot, h.cfg.History)
		if err != nil {
			return nil, err
		}
		h.docs.Open(doc)
		h.logger.Info("plan reopened", "id", id)
		return doc, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*document.Document), nil
}

func (h *PlanHandler) edit(c fiber.Ctx, fn func(*document.Session) error) error {
	doc, err := h.document(c)
	if err != nil {
		return h.fail(c, err)
	}
	return h.respond(c, doc, fn)
}

// respond runs fn and answers with the resulting plan.
func (h *PlanHandler) respond(c fiber.Ctx, doc *document.Document, fn func(*document.Session) error) error {
	var payload planPayload
	err := doc.Do(func(s *document.Session) error {
		if err := fn(s); err != nil {
			return err
		}
		payload = planPayload{
			ID:      doc.ID(),
			CanUndo: s.Engine().CanUndo(),
			CanRedo: s.Engine().CanRedo(),
			Plan:    s.Snapshot(),
		}
		return nil
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(payload)
}

func (h *PlanHandler) fail(c fiber.Ctx, err error) error {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("plan request failed", "path", c.Path(), "error", err)
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, document.ErrUnknownDocument),
		errors.Is(err, store.ErrNotFound),
		errors.Is(err, scene.ErrNotFound),
		errors.Is(err, scene.ErrRemoved):
		return http.StatusNotFound
	case errors.Is(err, txn.ErrInvalidParams),
		errors.Is(err, scene.ErrWrongKind):
		return http.StatusBadRequest
	case errors.Is(err, txn.ErrNothingToUndo),
		errors.Is(err, txn.ErrNothingToRedo),
		errors.Is(err, txn.ErrSessionActive),
		errors.Is(err, txn.ErrSessionClosed),
		errors.Is(err, txn.ErrInvalidRequestState):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func idParam(c fiber.Ctx, name string) (entity.ID, error) {
	n, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || n <= 0 {
		return entity.NoID, errors.New("invalid " + name)
	}
	return entity.ID(n), nil
}
