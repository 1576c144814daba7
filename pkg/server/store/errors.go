package store

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a record doesn't exist or isn't visible
var ErrNotFound = errors.New("record not found")

// ErrConflict is returned when a write collides with an existing record
var ErrConflict = errors.New("record conflict")

// ErrEmailInUse is returned when an email already belongs to another user
var ErrEmailInUse = fmt.Errorf("%w: email belongs to another user", ErrConflict)

// ErrInvalidState is returned when a status transition isn't allowed
var ErrInvalidState = errors.New("invalid state transition")
