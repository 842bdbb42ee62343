package client

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConnected is returned when a send is attempted without a joined
	// push binding. The transport is never touched in that case.
	ErrNotConnected = errors.New("push channel is not connected")

	// ErrStaleResponse marks a response that arrived for a session which is
	// no longer current. It is dropped silently, never surfaced to users.
	ErrStaleResponse = errors.New("response belongs to a superseded session")
)

// NetworkError wraps transport-level failures (server unreachable, dial
// errors, timeouts).
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error during %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ValidationError reports input the server rejected (wrong file type, size).
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Message
}

// ServerError reports a non-2xx response or an error event payload.
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error (status %d): %s", e.StatusCode, e.Message)
}

// IsStale reports whether err should be dropped without user-visible effect.
func IsStale(err error) bool {
	return errors.Is(err, ErrStaleResponse)
}
