package service

import "errors"

var (
	// ErrNotStarted is returned by accessors used before Start.
	ErrNotStarted = errors.New("service not started")
	// ErrDependency wraps a backing store that never became reachable.
	ErrDependency = errors.New("dependency unavailable")
)
