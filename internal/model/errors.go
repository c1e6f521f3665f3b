package model

import "errors"

// ErrValidation is wrapped with the offending field messages, e.g.
// fmt.Errorf("%w: email is invalid", ErrValidation).
var ErrValidation = errors.New("validation failed")
