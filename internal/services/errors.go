package services

import "errors"

var (
	// ErrInvalidDate is returned when a birthday cannot be parsed as an
	// ISO calendar date.
	ErrInvalidDate = errors.New("invalid date")

	// ErrMissingFields is returned when a required registration field is
	// empty. Browsers enforce this client-side; the server re-checks.
	ErrMissingFields = errors.New("missing required fields")

	// ErrInvalidCredentials is returned on login failure. Unknown
	// username and wrong password both map here so callers cannot
	// enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUploadRejected is returned when an uploaded file fails the
	// extension allow-list or exceeds the size bound.
	ErrUploadRejected = errors.New("upload rejected")

	// ErrSessionInvalid is returned when a session cookie is missing,
	// forged, revoked, or expired.
	ErrSessionInvalid = errors.New("invalid session")
)
