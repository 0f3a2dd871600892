package types

import "time"

// Session is a server-side login session bound to a user.
// The ID is an unpredictable opaque identifier; clients only ever hold it
// wrapped inside a signed cookie.
type Session struct {
	// ID is the opaque session identifier.
	ID string `json:"id" db:"id"`

	// UserID references the authenticated user.
	UserID int `json:"user_id" db:"user_id"`

	// ExpiresAt is when the session stops being valid.
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`

	// CreatedAt is when the session was established.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Expired reports whether the session is past its expiry at the given time.
func (s Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
