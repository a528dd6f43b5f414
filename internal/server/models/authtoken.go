package models

import "time"

// AuthToken is an opaque bearer credential owned by a user.
type AuthToken struct {
	Token     string
	UserID    int64
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether the token is no longer valid at now.
// A token is dead from the exact instant of its expiry.
func (t *AuthToken) Expired(now time.Time) bool {
	return !t.ExpiresAt.After(now)
}
