package queue

import "errors"

// Sentinel kinds for queue errors.
var (
	ErrNotInQueue    = errors.New("player not in queue")
	ErrEmptyPlayerID = errors.New("player id must not be empty")
)
