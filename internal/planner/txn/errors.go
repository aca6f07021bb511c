package txn

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRequestState is matched by every *StateError.
	ErrInvalidRequestState = errors.New("invalid request state")
	ErrNothingToUndo       = errors.New("nothing to undo")
	ErrNothingToRedo       = errors.New("nothing to redo")
	ErrSessionActive       = errors.New("a session is already active")
	ErrSessionClosed       = errors.New("session is closed")
	ErrInvalidParams       = errors.New("invalid request parameters")
)

// StateError rejects an operation that does not fit the request's current state.
type StateError struct {
	Request string
	Op      string
	State   RequestState
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s %s: request is %s", e.Op, e.Request, e.State)
}

func (e *StateError) Unwrap() error {
	return ErrInvalidRequestState
}
