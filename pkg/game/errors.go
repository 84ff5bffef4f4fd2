package game

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrInvalidInput is returned for an empty concept, an empty question or a
	// non-positive turn limit.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInference matches every *InferenceError.
	ErrInference = errors.New("inference failed")
)

// InferenceError reports a failed inference call for one role of one turn.
type InferenceError struct {
	Role Role
	Turn int
	Err  error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("%s inference failed on turn %d: %v", e.Role, e.Turn, e.Err)
}

func (e *InferenceError) Unwrap() error {
	return e.Err
}

func (e *InferenceError) Is(target error) bool {
	return target == ErrInference
}

// SessionError aborts a session. History holds the exchanges completed before
// the failure.
type SessionError struct {
	History History
	Err     error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("game session failed after %d completed turns: %v", e.History.Len(), e.Err)
}

func (e *SessionError) Unwrap() error {
	return e.Err
}
