package auth

import "errors"

// ErrForbidden marks role or ownership authorization failures. Handlers map
// it to 403.
var ErrForbidden = errors.New("forbidden")
