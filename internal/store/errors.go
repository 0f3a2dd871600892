package store

import "errors"

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateUsername is returned when a user creation conflicts with an
// existing username. The unique index on users.username makes this the
// single-winner outcome of racing registrations.
var ErrDuplicateUsername = errors.New("username already taken")
