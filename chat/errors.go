package chat

import (
	"errors"
	"fmt"

	"github.com/wyemhu12/vikini-sub002/store"
)

// Sentinel error kinds. Use errors.Is for assertions.
var (
	// ErrUnauthenticated indicates the request carries no user.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrInvalidRequest indicates a malformed request (e.g. empty message).
	ErrInvalidRequest = errors.New("invalid request")
	// ErrConversationNotFound covers missing and foreign conversations alike.
	ErrConversationNotFound = errors.New("conversation not found")
	// ErrUpstream indicates the model failed.
	ErrUpstream = errors.New("upstream model error")
	// ErrPersistence indicates a store write failed.
	ErrPersistence = errors.New("persistence error")
)

// Error is a classified chat error. The cause stays in the chain for errors.As.
type Error struct {
	// Kind is the sentinel for classification.
	Kind error
	// Op is the step that failed (e.g. "load", "save_message").
	Op string
	// Err is the underlying error, if any.
	Err error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("chat %s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("chat %s: %v: %v", e.Op, e.Kind, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether the error matches the target sentinel.
func (e *Error) Is(target error) bool {
	return errors.Is(e.Kind, target)
}

func newError(kind error, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// classifyStoreError maps ownership and lookup failures onto chat kinds.
// A foreign conversation is reported as not found.
func classifyStoreError(op string, err error) *Error {
	if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrForbidden) {
		return newError(ErrConversationNotFound, op, err)
	}
	return newError(ErrPersistence, op, err)
}
