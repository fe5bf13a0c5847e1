package matchmaking

import "errors"

// ErrPlayerNotFound marks a candidate the identity service could not resolve.
var ErrPlayerNotFound = errors.New("player not found")
