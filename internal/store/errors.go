package store

import "errors"

// Errors surfaced by session store operations. All of them are recoverable
// at the point of the single operation that raised them.
var (
	// ErrValidation means a required field was empty.
	ErrValidation = errors.New("fill all fields")
	// ErrDuplicateEmail means a registration used an email already in use.
	ErrDuplicateEmail = errors.New("user already exists")
	// ErrInvalidCredentials deliberately does not distinguish an unknown
	// email from a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
)
