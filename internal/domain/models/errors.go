package models

import "errors"

// ErrValidation is wrapped by every input validation failure so transports can
// map the whole family to a client error.
var ErrValidation = errors.New("validation failed")
