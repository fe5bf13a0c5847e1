package api

import (
	"errors"
	"fmt"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrUnauthorized = errors.New("unauthorized")
)

// opError ties an operation name to a kind and an optional cause.
type opError struct {
	op    string
	kind  error
	cause error
}

func (e *opError) Error() string {
	switch {
	case e.kind != nil && e.cause != nil:
		return fmt.Sprintf("%s: %v: %v", e.op, e.kind, e.cause)
	case e.kind != nil:
		return fmt.Sprintf("%s: %v", e.op, e.kind)
	default:
		return fmt.Sprintf("%s: %v", e.op, e.cause)
	}
}

// Unwrap exposes both kind and cause to errors.Is and errors.As.
func (e *opError) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.kind != nil {
		out = append(out, e.kind)
	}
	if e.cause != nil {
		out = append(out, e.cause)
	}
	return out
}

// Wrap annotates err with op. It returns nil for a nil err.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &opError{op: op, cause: err}
}

// WrapKind returns an error of kind for op caused by err.
func WrapKind(op string, kind, err error) error {
	return &opError{op: op, kind: kind, cause: err}
}
