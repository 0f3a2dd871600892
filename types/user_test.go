package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestUserAgeOn(t *testing.T) {
	user := User{Birthday: date(2000, time.May, 20)}

	tests := []struct {
		name string
		now  time.Time
		want int
	}{
		{name: "day before birthday", now: date(2024, time.May, 19), want: 23},
		{name: "on birthday", now: date(2024, time.May, 20), want: 24},
		{name: "day after birthday", now: date(2024, time.May, 21), want: 24},
		{name: "earlier month", now: date(2024, time.February, 1), want: 23},
		{name: "later month", now: date(2024, time.November, 1), want: 24},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, user.AgeOn(tt.now))
		})
	}
}

func TestUserHasImage(t *testing.T) {
	assert.False(t, User{}.HasImage())
	assert.True(t, User{ImageFilename: "abc_photo.png"}.HasImage())
}

func TestSessionExpired(t *testing.T) {
	session := Session{ExpiresAt: date(2024, time.May, 20)}

	assert.False(t, session.Expired(date(2024, time.May, 19)))
	assert.True(t, session.Expired(date(2024, time.May, 21)))
}
