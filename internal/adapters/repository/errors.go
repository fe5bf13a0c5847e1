package repository

import "errors"

// Sentinel kinds for pool errors.
var (
	ErrInvalidLimit    = errors.New("invalid pool limit")
	ErrPoolUnavailable = errors.New("waiting pool unavailable")
)
