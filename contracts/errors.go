// Package contracts holds the shared types and sentinel errors used across
// the engine: cell identity, cell contents/values, and the error taxonomy
// surfaced either synchronously (as a returned error) or asynchronously (as
// an event payload).
package contracts

import "errors"

// ErrInvalidName is returned when a proposed cell name fails the shape
// check, the caller-supplied validity predicate, or cannot be normalized.
var ErrInvalidName = errors.New("invalid cell name")

// ErrFormulaFormat is returned when a formula string cannot be parsed.
var ErrFormulaFormat = errors.New("invalid formula format")

// ErrCircularDependency is returned when a proposed formula would create a
// dependency cycle.
var ErrCircularDependency = errors.New("circular dependency")

// ErrReadWriteError wraps local XML save/load failures.
var ErrReadWriteError = errors.New("read/write error")

// ErrConnectionClosed marks a session as torn down, either by Leave or by
// the transport reporting end-of-stream.
var ErrConnectionClosed = errors.New("connection closed")
