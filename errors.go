package swissalloc

import "errors"

// ErrInvalidConfig is returned when a Config field cannot be parsed or is out of range.
var ErrInvalidConfig = errors.New("swissalloc: invalid config")
