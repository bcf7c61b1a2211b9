package domain

import "errors"

var (
	// ErrNotFound means a store or file does not exist yet.
	ErrNotFound = errors.New("not found")
	// ErrMalformed means a line or response entry could not be parsed.
	ErrMalformed = errors.New("malformed")
	// ErrTransport means a network round trip failed.
	ErrTransport = errors.New("transport failure")
	// ErrTimeout means a retry policy ran out of attempts or time.
	ErrTimeout = errors.New("retry policy exhausted")
	// ErrCycle means an is_a traversal revisited a node on the same path.
	ErrCycle = errors.New("is_a cycle detected")
	// ErrInvalidInput means user supplied arguments are unusable.
	ErrInvalidInput = errors.New("invalid input")
	// ErrEmptyUniverse means the publication universe is empty.
	ErrEmptyUniverse = errors.New("empty publication universe")
)
