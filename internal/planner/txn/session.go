package txn

import (
	"fmt"
	"time"

	"floorplan/internal/planner/metrics"
)

// ============================================================
// Session
// ============================================================

// Session is an ordered batch of requests that becomes one undo step on
// Commit, or is reverted in reverse order on Abort.
type Session struct {
	id      string
	engine  *Engine
	entries []*Entry
	folded  []*Entry
	started time.Time
	closed  bool
}

func (s *Session) ID() string { return s.id }

// Entries returns the session's entries in commit order, folded ones excluded.
func (s *Session) Entries() []*Entry {
	return append([]*Entry(nil), s.entries...)
}

// Append commits r immediately. A request of the same type as the previous
// one is folded into it when both allow field transactions.
func (s *Session) Append(r Request) error {
	if s.closed {
		return ErrSessionClosed
	}
	e, err := s.engine.commitEntry(r)
	if err != nil {
		return err
	}
	if n := len(s.entries); n > 0 {
		prev := s.entries[n-1]
		if foldable(prev.request, r) && prev.request.(Composer).Compose(r) {
			e.folded = true
			s.folded = append(s.folded, e)
			return nil
		}
	}
	s.entries = append(s.entries, e)
	return nil
}

func foldable(prev, next Request) bool {
	if prev.Type() != next.Type() || !prev.CanTransactField() || !next.CanTransactField() {
		return false
	}
	_, ok := prev.(Composer)
	return ok
}

// Commit settles pending associations inside this session and pushes it as
// one undo step. An empty session leaves the history untouched.
func (s *Session) Commit() error {
	if s.closed {
		return ErrSessionClosed
	}
	m := s.engine
	if m.assoc != nil && m.assoc.HasPending() {
		if err := s.Append(NewComputeAssociationsRequest(m.assoc, m.opts.AssociationRounds)); err != nil {
			return fmt.Errorf("settle associations: %w", err)
		}
	}
	s.close("commit")
	if len(s.entries) == 0 {
		return nil
	}
	m.push(&unit{id: s.id, entries: s.entries, folded: s.folded})
	m.logger.Info("session committed", "session", s.id, "requests", len(s.entries))
	return nil
}

// Abort undoes every committed member in reverse order.
func (s *Session) Abort() error {
	if s.closed {
		return ErrSessionClosed
	}
	m := s.engine
	m.suspendAssociations()
	defer m.resumeAssociations()
	var firstErr error
	for i := len(s.entries) - 1; i >= 0; i-- {
		if err := m.undoEntry(s.entries[i]); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if m.assoc != nil {
		m.assoc.DiscardPending()
	}
	m.forget(&unit{id: s.id, entries: s.entries, folded: s.folded})
	s.close("abort")
	m.logger.Info("session aborted", "session", s.id, "requests", len(s.entries))
	return firstErr
}

func (s *Session) close(outcome string) {
	s.closed = true
	if s.engine.active == s {
		s.engine.active = nil
	}
	metrics.SessionDuration.WithLabelValues(outcome).Observe(time.Since(s.started).Seconds())
}
