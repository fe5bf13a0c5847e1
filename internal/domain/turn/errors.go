package turn

import "errors"

// Validation failures of SubmitMove, in the order they are checked.
var (
	ErrMatchNotFound        = errors.New("match not found")
	ErrPlayerNotParticipant = errors.New("player is not a participant of the match")
	ErrMatchFinished        = errors.New("match is already finished")
	ErrInvalidTurnNumber    = errors.New("invalid turn number")
	ErrMoveAlreadyExists    = errors.New("move already submitted for this turn")
	ErrInvalidMoveTarget    = errors.New("invalid move target")
)

// ErrInvalidPlayers rejects a match whose players are empty or equal.
var ErrInvalidPlayers = errors.New("invalid match players")
