package model

import "github.com/rotisserie/eris"

// Sentinel errors classifying failures for the API layer. Wrap them with
// eris to add context; classify with eris.Is.
var (
	// ErrNotFound means a referenced entity id does not exist.
	ErrNotFound = eris.New("not found")

	// ErrValidation means malformed or conflicting input.
	ErrValidation = eris.New("validation failed")

	// ErrDuplicateEmail means a contact with the email already exists.
	// The storage unique constraint is the authoritative guard.
	ErrDuplicateEmail = eris.New("contact with this email already exists")
)
