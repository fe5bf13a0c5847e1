package notify

import "errors"

// ErrClosed is returned when subscribing to a closed hub.
var ErrClosed = errors.New("notification hub closed")
