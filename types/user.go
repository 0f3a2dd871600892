package types

import "time"

// User represents a registered account and its profile data.
type User struct {
	// ID is the unique identifier of the user.
	ID int `json:"id" db:"id"`

	// Name is the user's display name.
	Name string `json:"name" db:"name"`

	// Birthday is the user's date of birth. Only the calendar date is
	// meaningful; the time of day is always midnight UTC.
	Birthday time.Time `json:"birthday" db:"birthday"`

	// Address is the user's free-text postal address.
	Address string `json:"address" db:"address"`

	// Username is the unique, case-sensitive login name chosen by the user.
	Username string `json:"username" db:"username"`

	// PasswordHash stores the hashed representation of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// ImageFilename references the user's stored profile photo.
	// Empty when no valid photo was uploaded at registration.
	ImageFilename string `json:"image_filename,omitempty" db:"image_filename"`

	// CreatedAt is the timestamp when the account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the account.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// AgeOn returns the user's age in whole years on the given date.
// The year difference is decremented by one when the (month, day) of the
// given date precedes the (month, day) of the birthday.
func (u User) AgeOn(now time.Time) int {
	age := now.Year() - u.Birthday.Year()
	if now.Month() < u.Birthday.Month() ||
		(now.Month() == u.Birthday.Month() && now.Day() < u.Birthday.Day()) {
		age--
	}
	return age
}

// HasImage reports whether the user has a stored profile photo.
func (u User) HasImage() bool {
	return u.ImageFilename != ""
}
