package storage

import "errors"

// Sentinel kinds for storage errors.
var (
	ErrConnect   = errors.New("storage connect failed")
	ErrDuplicate = errors.New("record already exists")
	ErrNotFound  = errors.New("record not found")
)
