package scheduler

import "errors"

// Sentinel kinds for scheduler errors.
var (
	ErrAlreadyStarted = errors.New("scheduler already started")
	ErrScheduler      = errors.New("scheduler failure")
	ErrTickPanic      = errors.New("matchmaking tick panicked")
)
