package association

import (
	"fmt"

	"floorplan/internal/planner/entity"
	"floorplan/internal/planner/scene"
)

// ============================================================
// Association
// ============================================================

type Type string

const TypePointOnLine Type = "pointOnLine"

// Result is the outcome of one Compute call.
type Result string

const (
	ResultMoved Result = "moved"
	// ResultUnchanged means the target already sat on the winning intersection.
	ResultUnchanged Result = "unchanged"
	// ResultNoIntersection is a valid transient state; nothing is touched.
	ResultNoIntersection Result = "no_intersection"
	// ResultDormant means an endpoint is removed or unbound.
	ResultDormant Result = "dormant"
)

// Association positions target entities from the geometry of a source entity.
// It holds ids only; the graph owns the entities.
type Association interface {
	ID() string
	Type() Type
	Entity() entity.ID
	Targets() []entity.ID
	Bind(source entity.ID, targets ...entity.ID)
	Unbind(target entity.ID)
	UnbindAll()
	// IsValid reports whether the source and first target are bound and live.
	IsValid() bool
	Compute(invalidate bool) Result
	Dump() Record
}

// Record is the persisted form of an association.
type Record struct {
	ID      string      `json:"id"`
	Type    Type        `json:"type"`
	Entity  entity.ID   `json:"entity"`
	Targets []entity.ID `json:"targets"`
}

// FromRecord rebuilds an association bound to g.
func FromRecord(g *scene.Graph, r Record) (Association, error) {
	switch r.Type {
	case TypePointOnLine:
		return NewPointOnLine(g, r.ID, r.Entity, r.Targets...), nil
	}
	return nil, fmt.Errorf("unknown association type %q", r.Type)
}
