package txn

import (
	"floorplan/internal/planner/entity"
	"floorplan/internal/planner/scene"
)

// ============================================================
// Request
// ============================================================

// Request is one atomic, replayable graph mutation. The engine calls OnCommit
// at most once and stores the returned effects; undo and redo receive them back.
type Request interface {
	Type() string
	OnCommit(g *scene.Graph) (CommitEffects, error)
	OnUndo(g *scene.Graph, effects CommitEffects)
	OnRedo(g *scene.Graph, effects CommitEffects)
	// CanTransactField reports whether sibling requests of the same type may be folded into this one.
	CanTransactField() bool
}

// Composer is implemented by requests that can absorb a later sibling.
type Composer interface {
	Compose(next Request) bool
}

// CommitEffects lists entities a commit created and the other entities it
// soft-removed as a side effect.
type CommitEffects struct {
	Created []entity.ID `json:"created,omitempty"`
	Removed []entity.ID `json:"removed,omitempty"`
}

// ============================================================
// Request state
// ============================================================

type RequestState int

const (
	StateCreated RequestState = iota
	StateCommitted
	StateUndone
	StateRedone
	// StateRetired marks a request dropped from history. It can never be committed again.
	StateRetired
)

func (s RequestState) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateCommitted:
		return "committed"
	case StateUndone:
		return "undone"
	case StateRedone:
		return "redone"
	case StateRetired:
		return "retired"
	}
	return "unknown"
}

// Live reports whether the request's forward effects are visible in the graph.
func (s RequestState) Live() bool {
	return s == StateCommitted || s == StateRedone
}

// Entry is the engine's record of one request.
type Entry struct {
	request Request
	state   RequestState
	effects CommitEffects
	// folded entries were absorbed by an earlier sibling and have no undo of their own
	folded bool
}

func (e *Entry) Request() Request       { return e.request }
func (e *Entry) State() RequestState    { return e.state }
func (e *Entry) Effects() CommitEffects { return e.effects }
func (e *Entry) Folded() bool           { return e.folded }
