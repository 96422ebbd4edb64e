package repositories

import "errors"

// ErrNotFound is returned by every repository when the requested row does
// not exist, regardless of the backing implementation.
var ErrNotFound = errors.New("record not found")
