package request

import "errors"

// ErrInternalServer is the generic error returned to clients when a handler
// fails in a way they cannot act on.
var ErrInternalServer = errors.New("internal server error")
