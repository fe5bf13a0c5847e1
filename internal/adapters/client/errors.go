package client

import "errors"

// Sentinel kinds for client errors.
var (
	ErrNotFound      = errors.New("remote resource not found")
	ErrUnavailable   = errors.New("remote service unavailable")
	ErrRejected      = errors.New("remote service rejected request")
	ErrEmptyResponse = errors.New("remote service returned an empty response")
)
